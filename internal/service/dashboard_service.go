package service

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/grievance-api/internal/dto"
	"github.com/noah-isme/grievance-api/internal/models"
	"github.com/noah-isme/grievance-api/internal/workflow"
	appErrors "github.com/noah-isme/grievance-api/pkg/errors"
)

type summaryReader interface {
	Summaries(ctx context.Context, scope models.Scope) ([]models.GrievanceSummary, error)
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL time.Duration
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Grievances summaryReader
	Officers   officerFinder
	Cache      *CacheService
	Logger     *zap.Logger
	Config     DashboardServiceConfig
}

// DashboardService computes scoped grievance statistics for officers.
type DashboardService struct {
	grievances summaryReader
	officers   officerFinder
	cache      *CacheService
	logger     *zap.Logger
	now        func() time.Time
	cfg        DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	cfg := params.Config
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Minute
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		grievances: params.Grievances,
		officers:   params.Officers,
		cache:      params.Cache,
		logger:     logger,
		now:        time.Now,
		cfg:        cfg,
	}
}

// ForOfficer returns stats over the officer's jurisdiction and reports whether
// they came from cache.
func (s *DashboardService) ForOfficer(ctx context.Context, officerID string) (*dto.DashboardResponse, bool, error) {
	officer, err := activeOfficer(ctx, s.officers, officerID)
	if err != nil {
		return nil, false, err
	}
	scope := officer.Scope()

	resp, hit, err := Remember(ctx, s.cache, CacheKey("dashboard", officer.ID), s.cfg.CacheTTL, func(ctx context.Context) (*dto.DashboardResponse, error) {
		summaries, err := s.grievances.Summaries(ctx, scope)
		if err != nil {
			return nil, err
		}
		return &dto.DashboardResponse{
			Scope: dto.DashboardScope{
				Level:      officer.Level,
				DistrictID: scope.DistrictID,
				MandalID:   scope.MandalID,
				SchemeIDs:  scope.SchemeIDs,
			},
			Stats: ComputeStats(summaries, s.now()),
		}, nil
	})
	if err != nil {
		s.logger.Error("dashboard aggregation failed", zap.String("officer_id", officer.ID), zap.Error(err))
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute dashboard")
	}
	return resp, hit, nil
}

// ComputeStats aggregates already-scoped grievances. now selects the month
// for resolved_this_month.
func ComputeStats(items []models.GrievanceSummary, now time.Time) models.DashboardStats {
	var stats models.DashboardStats
	now = now.UTC()
	var resolvedDays float64
	var resolvedWithTime int

	for _, g := range items {
		stats.TotalGrievances++
		if !g.Status.Terminal() {
			stats.Pending++
		}
		switch g.Status {
		case models.StatusSubmitted, models.StatusAtMandal:
			stats.AtMandal++
		case models.StatusAtDistrict:
			stats.AtDistrict++
		case models.StatusAtHOD:
			stats.AtHOD++
		case models.StatusInfoRequested:
			stats.InfoRequested++
		case models.StatusRejected:
			stats.Rejected++
		case models.StatusResolved:
			stats.Resolved++
			if g.ResolvedAt != nil {
				resolved := g.ResolvedAt.UTC()
				if resolved.Year() == now.Year() && resolved.Month() == now.Month() {
					stats.ResolvedThisMonth++
				}
				resolvedDays += resolved.Sub(g.SubmittedAt).Hours() / 24
				resolvedWithTime++
			}
		}
		switch workflow.AgedPriority(g.Status, g.Priority, g.SubmittedAt, now) {
		case models.PriorityLow:
			stats.ByPriority.Low++
		case models.PriorityMedium:
			stats.ByPriority.Medium++
		case models.PriorityHigh:
			stats.ByPriority.High++
		case models.PriorityUrgent:
			stats.ByPriority.Urgent++
		}
	}
	if resolvedWithTime > 0 {
		stats.AvgResolutionDays = math.Round(resolvedDays/float64(resolvedWithTime)*100) / 100
	}
	return stats
}
