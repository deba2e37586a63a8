package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/grievance-api/internal/dto"
	"github.com/noah-isme/grievance-api/internal/models"
	"github.com/noah-isme/grievance-api/internal/repository"
	"github.com/noah-isme/grievance-api/internal/workflow"
	appErrors "github.com/noah-isme/grievance-api/pkg/errors"
)

type grievanceMutator interface {
	ApplyAction(ctx context.Context, id string, mutate repository.Mutator) (*models.Grievance, error)
}

// ActionServiceOption customises ActionService.
type ActionServiceOption func(*ActionService)

func WithActionNotifier(n lifecycleNotifier) ActionServiceOption {
	return func(s *ActionService) { s.notifier = n }
}

func WithActionMetrics(m *MetricsService) ActionServiceOption {
	return func(s *ActionService) { s.metrics = m }
}

// WithActionCache invalidates cached dashboards after each committed action.
func WithActionCache(c *CacheService) ActionServiceOption {
	return func(s *ActionService) { s.cache = c }
}

func WithActionClock(now func() time.Time) ActionServiceOption {
	return func(s *ActionService) { s.now = now }
}

// ActionService applies officer decisions to grievances.
type ActionService struct {
	repo      grievanceMutator
	officers  officerFinder
	validator *validator.Validate
	logger    *zap.Logger
	notifier  lifecycleNotifier
	metrics   *MetricsService
	cache     *CacheService
	now       func() time.Time
}

func NewActionService(repo grievanceMutator, officers officerFinder, validate *validator.Validate, logger *zap.Logger, opts ...ActionServiceOption) *ActionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	s := &ActionService{repo: repo, officers: officers, validator: validate, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PerformAction validates req against the latest committed state of the
// grievance and, on success, appends exactly one timeline entry together with
// the resulting status, level and priority.
func (s *ActionService) PerformAction(ctx context.Context, grievanceID, officerID string, req dto.PerformActionRequest) (*models.Grievance, error) {
	g, entry, err := s.perform(ctx, grievanceID, officerID, req)
	s.metrics.GrievanceAction(string(req.Action), outcomeOf(err))
	if err != nil {
		s.logger.Info("grievance action refused",
			zap.String("grievance_id", grievanceID),
			zap.String("officer_id", officerID),
			zap.String("action", string(req.Action)),
			zap.Error(err),
		)
		return nil, err
	}

	s.logger.Info("grievance action applied",
		zap.String("grievance_id", g.ID),
		zap.String("tracking_id", g.TrackingID),
		zap.String("officer_id", officerID),
		zap.String("action", string(entry.Action)),
		zap.String("from_status", string(entry.FromStatus)),
		zap.String("to_status", string(entry.ToStatus)),
	)
	_ = s.cache.Invalidate(ctx, CacheKey("dashboard", "*"))
	if s.notifier != nil && entry.IsPublic {
		s.notifier.GrievanceUpdated(ctx, g, *entry)
	}
	g.StatusLabel = g.Status.Label()
	return g, nil
}

func (s *ActionService) perform(ctx context.Context, grievanceID, officerID string, req dto.PerformActionRequest) (*models.Grievance, *models.TimelineEntry, error) {
	req.Note = strings.TrimSpace(req.Note)
	req.SendBackReason = strings.TrimSpace(req.SendBackReason)
	if err := s.validator.StructPartial(req, "Action"); err != nil {
		return nil, nil, validationError(err, "invalid action payload")
	}
	if req.Action == models.ActionSubmit {
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "submit is reserved for citizens")
	}

	var entry *models.TimelineEntry
	g, err := s.repo.ApplyAction(ctx, grievanceID, func(current *models.Grievance) (*models.TimelineEntry, error) {
		// The officer is re-read under the grievance lock so deactivation
		// takes effect before the next decision.
		e, err := s.decide(ctx, current, officerID, req)
		entry = e
		return e, err
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "grievance not found")
		}
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, nil, appErr
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, appErrors.ErrInternal.Message)
	}
	return g, entry, nil
}

// decide mutates g in place and returns the entry to append.
func (s *ActionService) decide(ctx context.Context, g *models.Grievance, officerID string, req dto.PerformActionRequest) (*models.TimelineEntry, error) {
	if g.Status.Terminal() {
		return nil, appErrors.Clone(appErrors.ErrTerminalState, "grievance is already "+string(g.Status))
	}

	officer, err := activeOfficer(ctx, s.officers, officerID)
	if err != nil {
		return nil, err
	}
	if !workflow.Allowed(officer.Level, req.Action) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "action "+string(req.Action)+" is not permitted at level "+officer.Level.String())
	}
	if officer.Level != g.CurrentLevel {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "grievance is held at level "+g.CurrentLevel.String())
	}
	if !officer.Scope().Matches(g) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "grievance is outside your jurisdiction")
	}

	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid action payload")
	}

	var reason *string
	if workflow.RequiresReason(req.Action) {
		r := req.SendBackReason
		if r == "" {
			r = req.Note
		}
		if r == "" {
			return nil, appErrors.Invalid("send_back_reason", "a reason is required for "+string(req.Action))
		}
		reason = &r
	}

	next, err := workflow.Transition(workflow.State{Status: g.Status, Level: g.CurrentLevel}, req.Action)
	if err != nil {
		switch {
		case errors.Is(err, workflow.ErrTerminal):
			return nil, appErrors.Clone(appErrors.ErrTerminalState, err.Error())
		case errors.Is(err, workflow.ErrNoHigherLevel), errors.Is(err, workflow.ErrNoLowerLevel), errors.Is(err, workflow.ErrResolveNotAtHOD):
			return nil, appErrors.Clone(appErrors.ErrForbidden, err.Error())
		}
		return nil, appErrors.Invalid("action", err.Error())
	}

	now := s.now().UTC()
	isPublic := workflow.Visibility(req.Action, req.IsPublic)
	entry := &models.TimelineEntry{
		ID:             uuid.NewString(),
		GrievanceID:    g.ID,
		Timestamp:      now,
		Action:         req.Action,
		FromStatus:     g.Status,
		ToStatus:       next.Status,
		PerformedBy:    models.OfficerActor(officer.ID, officer.Name),
		SendBackReason: reason,
		IsPublic:       isPublic,
	}
	if req.Note != "" {
		note := req.Note
		entry.Note = &note
	}

	g.Status = next.Status
	g.CurrentLevel = next.Level
	g.UpdatedAt = now
	if req.Priority != "" {
		g.Priority = req.Priority
	}
	g.Priority = workflow.AgedPriority(next.Status, g.Priority, g.SubmittedAt, now)
	if next.Status == models.StatusResolved {
		g.ResolvedAt = &now
	}
	return entry, nil
}

func outcomeOf(err error) string {
	if err == nil {
		return "ok"
	}
	return strings.ToLower(appErrors.FromError(err).Code)
}
