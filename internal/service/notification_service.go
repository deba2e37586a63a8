package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/grievance-api/internal/models"
	"github.com/noah-isme/grievance-api/pkg/jobs"
	"github.com/noah-isme/grievance-api/pkg/notify"
	"github.com/noah-isme/grievance-api/pkg/queue"
)

const (
	jobTypeLifecycleEvent = "grievance.event"
	jobTypeCitizenEmail   = "grievance.email"
)

// LifecycleEvent is published for every citizen-visible timeline entry.
type LifecycleEvent struct {
	EventID     string                 `json:"event_id"`
	GrievanceID string                 `json:"grievance_id"`
	TrackingID  string                 `json:"tracking_id"`
	SchemeID    string                 `json:"scheme_id"`
	DistrictID  string                 `json:"district_id"`
	MandalID    string                 `json:"mandal_id"`
	Action      models.ActionType      `json:"action"`
	FromStatus  models.GrievanceStatus `json:"from_status"`
	ToStatus    models.GrievanceStatus `json:"to_status"`
	Level       models.Level           `json:"level"`
	ActorType   models.ActorType       `json:"actor_type"`
	OccurredAt  time.Time              `json:"occurred_at"`
}

// NotificationConfig tunes delivery.
type NotificationConfig struct {
	EventsQueue string
	PortalURL   string
	Workers     int
	Retries     int
}

// NotificationService fans committed lifecycle changes out to the message
// broker and to citizen e-mail. Delivery is asynchronous and never fails the
// action that triggered it.
type NotificationService struct {
	publisher queue.Publisher
	mailer    notify.Mailer
	jobs      *jobs.Queue
	cfg       NotificationConfig
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewNotificationService builds the service. publisher and mailer are optional.
func NewNotificationService(publisher queue.Publisher, mailer notify.Mailer, cfg NotificationConfig, metrics *MetricsService, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.EventsQueue == "" {
		cfg.EventsQueue = "grievance_events"
	}
	s := &NotificationService{publisher: publisher, mailer: mailer, cfg: cfg, metrics: metrics, logger: logger}
	s.jobs = jobs.NewQueue("notifications", s.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.Retries,
		RetryDelay: 2 * time.Second,
		Logger:     logger,
	})
	return s
}

// Start launches the delivery workers.
func (s *NotificationService) Start(ctx context.Context) {
	s.jobs.Start(ctx)
}

// Stop halts the workers. Buffered deliveries are dropped.
func (s *NotificationService) Stop() {
	s.jobs.Stop()
}

// GrievanceUpdated enqueues delivery for a committed public entry.
func (s *NotificationService) GrievanceUpdated(_ context.Context, g *models.Grievance, entry models.TimelineEntry) {
	if !entry.IsPublic {
		return
	}
	if s.publisher != nil {
		s.enqueue(jobTypeLifecycleEvent, LifecycleEvent{
			EventID:     entry.ID,
			GrievanceID: g.ID,
			TrackingID:  g.TrackingID,
			SchemeID:    g.SchemeID,
			DistrictID:  g.DistrictID,
			MandalID:    g.MandalID,
			Action:      entry.Action,
			FromStatus:  entry.FromStatus,
			ToStatus:    entry.ToStatus,
			Level:       g.CurrentLevel,
			ActorType:   entry.PerformedBy.Type,
			OccurredAt:  entry.Timestamp,
		})
	}
	if s.mailer != nil && g.Citizen.Email != nil && *g.Citizen.Email != "" {
		s.enqueue(jobTypeCitizenEmail, s.citizenMessage(g, entry))
	}
}

func (s *NotificationService) citizenMessage(g *models.Grievance, entry models.TimelineEntry) notify.Message {
	msg := notify.Message{
		To:          *g.Citizen.Email,
		Name:        g.Citizen.Name,
		Subject:     fmt.Sprintf("Grievance %s: %s", g.TrackingID, g.Status.Label()),
		TrackingID:  g.TrackingID,
		StatusLabel: g.Status.Label(),
	}
	if entry.Action == models.ActionSubmit {
		msg.Subject = fmt.Sprintf("Grievance %s received", g.TrackingID)
	}
	if entry.Note != nil {
		msg.Note = *entry.Note
	} else if entry.SendBackReason != nil && entry.Action == models.ActionReject {
		msg.Note = *entry.SendBackReason
	}
	if s.cfg.PortalURL != "" {
		msg.TrackURL = strings.TrimRight(s.cfg.PortalURL, "/") + "/track/" + g.TrackingID
	}
	return msg
}

func (s *NotificationService) enqueue(jobType string, payload interface{}) {
	err := s.jobs.Enqueue(jobs.Job{ID: uuid.NewString(), Type: jobType, Payload: payload})
	if err == nil {
		return
	}
	level := s.logger.Warn
	if errors.Is(err, jobs.ErrQueueStopped) {
		level = s.logger.Debug
	}
	level("notification dropped", zap.String("type", jobType), zap.Error(err))
}

func (s *NotificationService) handle(ctx context.Context, job jobs.Job) error {
	switch job.Type {
	case jobTypeLifecycleEvent:
		err := s.publisher.Publish(ctx, s.cfg.EventsQueue, job.Payload)
		s.metrics.Notification("broker", err)
		return err
	case jobTypeCitizenEmail:
		msg, ok := job.Payload.(notify.Message)
		if !ok {
			return nil
		}
		err := s.mailer.Send(ctx, msg)
		s.metrics.Notification("email", err)
		return err
	}
	s.logger.Warn("unknown notification job", zap.String("type", job.Type))
	return nil
}
