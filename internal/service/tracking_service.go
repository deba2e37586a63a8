package service

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/grievance-api/internal/models"
	appErrors "github.com/noah-isme/grievance-api/pkg/errors"
	"github.com/noah-isme/grievance-api/pkg/trackingid"
)

var (
	mobilePattern  = regexp.MustCompile(`^\d{10}$`)
	aadhaarPattern = regexp.MustCompile(`^\d{4}$`)
)

type grievanceLookup interface {
	GetByTrackingID(ctx context.Context, trackingID string) (*models.Grievance, error)
	FindByContact(ctx context.Context, phone, aadhaarLast4 string) ([]models.Grievance, error)
}

// TrackingService answers citizen status lookups. Results never include
// internal timeline entries.
type TrackingService struct {
	repo   grievanceLookup
	logger *zap.Logger
}

func NewTrackingService(repo grievanceLookup, logger *zap.Logger) *TrackingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TrackingService{repo: repo, logger: logger}
}

// TrackByTrackingID accepts the id in any case with surrounding whitespace.
func (s *TrackingService) TrackByTrackingID(ctx context.Context, raw string) (*models.Grievance, error) {
	id, ok := trackingid.Normalize(raw)
	if !ok {
		return nil, appErrors.Invalid("tracking_id", "tracking id must look like GRV-XXXXXXXX-XXXX")
	}
	g, err := s.repo.GetByTrackingID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no grievance found for this tracking id")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, appErrors.ErrInternal.Message)
	}
	return g.PublicView(), nil
}

// TrackByContact lists every grievance filed with the mobile number and
// Aadhaar suffix. An empty result is not an error.
func (s *TrackingService) TrackByContact(ctx context.Context, mobile, aadhaarLast4 string) ([]models.Grievance, error) {
	mobile = strings.TrimSpace(mobile)
	aadhaarLast4 = strings.TrimSpace(aadhaarLast4)
	if !mobilePattern.MatchString(mobile) {
		return nil, appErrors.Invalid("phone", "mobile number must be exactly 10 digits")
	}
	if !aadhaarPattern.MatchString(aadhaarLast4) {
		return nil, appErrors.Invalid("aadhaar_last_4", "aadhaar must be exactly the last 4 digits")
	}

	found, err := s.repo.FindByContact(ctx, mobile, aadhaarLast4)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, appErrors.ErrInternal.Message)
	}
	out := make([]models.Grievance, 0, len(found))
	for i := range found {
		out = append(out, *found[i].PublicView())
	}
	s.logger.Debug("contact lookup", zap.Int("matches", len(out)))
	return out, nil
}
