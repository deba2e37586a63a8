package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/grievance-api/internal/dto"
	"github.com/noah-isme/grievance-api/internal/models"
	"github.com/noah-isme/grievance-api/internal/repository"
	"github.com/noah-isme/grievance-api/internal/workflow"
	"github.com/noah-isme/grievance-api/pkg/config"
	appErrors "github.com/noah-isme/grievance-api/pkg/errors"
)

type grievanceStore interface {
	Create(ctx context.Context, g *models.Grievance) error
	GetByID(ctx context.Context, id string) (*models.Grievance, error)
	List(ctx context.Context, filter models.GrievanceFilter) ([]models.Grievance, int, error)
}

type officerFinder interface {
	FindByID(ctx context.Context, id string) (*models.Officer, error)
}

type trackingIDGenerator interface {
	Next() string
}

// lifecycleNotifier is told about every committed public timeline entry.
type lifecycleNotifier interface {
	GrievanceUpdated(ctx context.Context, g *models.Grievance, entry models.TimelineEntry)
}

type catalogLabeler interface {
	Labels(ctx context.Context, schemeID, districtID, mandalID string) CatalogLabels
}

// GrievanceServiceOption customises GrievanceService.
type GrievanceServiceOption func(*GrievanceService)

// WithGrievanceNotifier wires lifecycle notifications.
func WithGrievanceNotifier(n lifecycleNotifier) GrievanceServiceOption {
	return func(s *GrievanceService) { s.notifier = n }
}

// WithGrievanceCatalog wires catalog labels on the officer detail view.
func WithGrievanceCatalog(c catalogLabeler) GrievanceServiceOption {
	return func(s *GrievanceService) { s.catalog = c }
}

// WithGrievanceMetrics wires submission counters.
func WithGrievanceMetrics(m *MetricsService) GrievanceServiceOption {
	return func(s *GrievanceService) { s.metrics = m }
}

// WithGrievanceClock overrides the time source.
func WithGrievanceClock(now func() time.Time) GrievanceServiceOption {
	return func(s *GrievanceService) { s.now = now }
}

// GrievanceService handles citizen intake and officer reads.
type GrievanceService struct {
	repo      grievanceStore
	officers  officerFinder
	ids       trackingIDGenerator
	validator *validator.Validate
	logger    *zap.Logger
	cfg       config.GrievanceConfig
	notifier  lifecycleNotifier
	catalog   catalogLabeler
	metrics   *MetricsService
	now       func() time.Time
}

// NewGrievanceService constructs a GrievanceService.
func NewGrievanceService(repo grievanceStore, officers officerFinder, ids trackingIDGenerator, validate *validator.Validate, logger *zap.Logger, cfg config.GrievanceConfig, opts ...GrievanceServiceOption) *GrievanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	if cfg.MaxDescriptionWords <= 0 {
		cfg.MaxDescriptionWords = 300
	}
	if cfg.TrackingIDRetries <= 0 {
		cfg.TrackingIDRetries = 5
	}
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = 10
	}
	if cfg.MaxPageSize <= 0 {
		cfg.MaxPageSize = 100
	}
	s := &GrievanceService{
		repo:      repo,
		officers:  officers,
		ids:       ids,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates an intake and stores it at the mandal level with its submit entry.
func (s *GrievanceService) Create(ctx context.Context, req dto.CreateGrievanceRequest) (*dto.CreateGrievanceResponse, error) {
	trimIntake(&req)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid grievance payload")
	}
	if words := len(strings.Fields(req.Description)); words > s.cfg.MaxDescriptionWords {
		return nil, appErrors.Invalid("description", fmt.Sprintf("description must not exceed %d words (got %d)", s.cfg.MaxDescriptionWords, words))
	}

	now := s.now().UTC()
	status, level := workflow.Initial()
	g := &models.Grievance{
		ID:                uuid.NewString(),
		SchemeID:          req.SchemeID,
		DepartmentID:      req.DepartmentID,
		CategoryID:        req.CategoryID,
		SubcategoryID:     req.SubcategoryID,
		ApplicationNumber: req.ApplicationNumber,
		Citizen: models.Citizen{
			Name:         req.Citizen.Name,
			Phone:        req.Citizen.Phone,
			Email:        req.Citizen.Email,
			AadhaarLast4: req.Citizen.AadhaarLast4,
		},
		DistrictID:        req.DistrictID,
		MandalID:          req.MandalID,
		Address:           req.Address,
		SchemeDetails:     req.SchemeDetails,
		Description:       req.Description,
		HasVoiceRecording: req.HasVoiceRecording,
		Attachments:       req.Attachments,
		Status:            status,
		CurrentLevel:      level,
		Priority:          models.PriorityLow,
		SubmittedAt:       now,
		UpdatedAt:         now,
	}
	if g.SchemeDetails == nil {
		g.SchemeDetails = map[string]string{}
	}
	if g.Attachments == nil {
		g.Attachments = []string{}
	}
	submit := models.TimelineEntry{
		ID:          uuid.NewString(),
		GrievanceID: g.ID,
		Timestamp:   now,
		Action:      models.ActionSubmit,
		FromStatus:  status,
		ToStatus:    status,
		PerformedBy: models.CitizenActor(g.Citizen.Name),
		IsPublic:    true,
	}
	g.Timeline = []models.TimelineEntry{submit}

	var err error
	for attempt := 1; attempt <= s.cfg.TrackingIDRetries; attempt++ {
		g.TrackingID = s.ids.Next()
		err = s.repo.Create(ctx, g)
		if !errors.Is(err, repository.ErrDuplicateTrackingID) {
			break
		}
		s.logger.Warn("tracking id collision", zap.String("tracking_id", g.TrackingID), zap.Int("attempt", attempt))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, appErrors.ErrInternal.Message)
	}

	s.logger.Info("grievance submitted",
		zap.String("grievance_id", g.ID),
		zap.String("tracking_id", g.TrackingID),
		zap.String("scheme_id", g.SchemeID),
		zap.String("mandal_id", g.MandalID),
	)
	s.metrics.GrievanceCreated(g.SchemeID)
	if s.notifier != nil {
		s.notifier.GrievanceUpdated(ctx, g, submit)
	}

	return &dto.CreateGrievanceResponse{
		GrievanceID: g.ID,
		TrackingID:  g.TrackingID,
		Status:      g.Status,
		StatusLabel: g.Status.Label(),
	}, nil
}

// GetDetails returns the full record, all timeline entries included, for an
// officer whose jurisdiction covers it.
func (s *GrievanceService) GetDetails(ctx context.Context, officerID, grievanceID string) (*dto.GrievanceDetail, error) {
	officer, err := activeOfficer(ctx, s.officers, officerID)
	if err != nil {
		return nil, err
	}
	g, err := s.repo.GetByID(ctx, grievanceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "grievance not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grievance")
	}
	if !officer.Scope().Matches(g) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "grievance is outside your jurisdiction")
	}

	g.StatusLabel = g.Status.Label()
	g.Priority = workflow.AgedPriority(g.Status, g.Priority, g.SubmittedAt, s.now())
	detail := &dto.GrievanceDetail{Grievance: g}
	if s.catalog != nil {
		labels := s.catalog.Labels(ctx, g.SchemeID, g.DistrictID, g.MandalID)
		detail.SchemeName = labels.Scheme
		detail.DistrictName = labels.District
		detail.MandalName = labels.Mandal
	}
	return detail, nil
}

// List returns the officer's jurisdiction filtered by query, newest first.
func (s *GrievanceService) List(ctx context.Context, officerID string, query dto.ListGrievancesQuery) (models.Page[models.Grievance], error) {
	var empty models.Page[models.Grievance]
	if err := s.validator.Struct(query); err != nil {
		return empty, validationError(err, "invalid list query")
	}
	officer, err := activeOfficer(ctx, s.officers, officerID)
	if err != nil {
		return empty, err
	}

	scope := officer.Scope()
	filter := models.GrievanceFilter{
		Status:     models.GrievanceStatus(query.Status),
		Priority:   models.Priority(query.Priority),
		SchemeID:   query.SchemeID,
		DistrictID: query.DistrictID,
		MandalID:   query.MandalID,
		Search:     strings.TrimSpace(query.Search),
		Scope:      &scope,
		Page:       query.Page,
		PerPage:    query.PerPage,
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PerPage <= 0 {
		filter.PerPage = s.cfg.DefaultPageSize
	}
	filter.PerPage = min(filter.PerPage, s.cfg.MaxPageSize)
	if query.DateFrom != "" {
		from, _ := time.Parse("2006-01-02", query.DateFrom)
		filter.DateFrom = &from
	}
	if query.DateTo != "" {
		to, _ := time.Parse("2006-01-02", query.DateTo)
		// inclusive of the whole day
		to = to.Add(24*time.Hour - time.Nanosecond)
		filter.DateTo = &to
	}
	if filter.DateFrom != nil && filter.DateTo != nil && filter.DateFrom.After(*filter.DateTo) {
		return empty, appErrors.Invalid("date_from", "date_from must not be after date_to")
	}

	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return empty, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grievances")
	}
	now := s.now()
	for i := range items {
		items[i].StatusLabel = items[i].Status.Label()
		items[i].Priority = workflow.AgedPriority(items[i].Status, items[i].Priority, items[i].SubmittedAt, now)
	}
	if items == nil {
		items = []models.Grievance{}
	}
	return models.Page[models.Grievance]{Data: items, Total: total, Page: filter.Page, PerPage: filter.PerPage}, nil
}

func trimIntake(req *dto.CreateGrievanceRequest) {
	req.SchemeID = strings.TrimSpace(req.SchemeID)
	req.DistrictID = strings.TrimSpace(req.DistrictID)
	req.MandalID = strings.TrimSpace(req.MandalID)
	req.Address = strings.TrimSpace(req.Address)
	req.Description = strings.TrimSpace(req.Description)
	req.Citizen.Name = strings.TrimSpace(req.Citizen.Name)
	req.Citizen.Phone = strings.TrimSpace(req.Citizen.Phone)
	req.Citizen.AadhaarLast4 = strings.TrimSpace(req.Citizen.AadhaarLast4)
	if req.Citizen.Email != nil {
		email := strings.TrimSpace(*req.Citizen.Email)
		if email == "" {
			req.Citizen.Email = nil
		} else {
			req.Citizen.Email = &email
		}
	}
}

// activeOfficer loads officerID and rejects unknown or deactivated accounts.
func activeOfficer(ctx context.Context, officers officerFinder, officerID string) (*models.Officer, error) {
	if officerID == "" {
		return nil, appErrors.ErrUnauthorized
	}
	officer, err := officers.FindByID(ctx, officerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "officer not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load officer")
	}
	if !officer.IsActive {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "officer account is inactive")
	}
	return officer, nil
}
