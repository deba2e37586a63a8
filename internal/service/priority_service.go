package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/grievance-api/pkg/errors"
)

type priorityRaiser interface {
	RaisePriorities(ctx context.Context, now time.Time) (int, error)
}

// PriorityService escalates open grievances as they age so stored priority
// filters agree with what officers see.
type PriorityService struct {
	repo   priorityRaiser
	cache  *CacheService
	logger *zap.Logger
	now    func() time.Time
}

func NewPriorityService(repo priorityRaiser, cache *CacheService, logger *zap.Logger) *PriorityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PriorityService{repo: repo, cache: cache, logger: logger, now: time.Now}
}

// Sweep persists the age floor and drops cached dashboards when anything moved.
func (s *PriorityService) Sweep(ctx context.Context) (int, error) {
	changed, err := s.repo.RaisePriorities(ctx, s.now())
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to age priorities")
	}
	if changed > 0 {
		_ = s.cache.Invalidate(ctx, CacheKey("dashboard", "*"))
		s.logger.Info("grievance priorities raised", zap.Int("count", changed))
	}
	return changed, nil
}

// Run sweeps once immediately and then every interval until ctx ends.
func (s *PriorityService) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	if _, err := s.Sweep(ctx); err != nil {
		s.logger.Warn("priority sweep failed", zap.Error(err))
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.logger.Warn("priority sweep failed", zap.Error(err))
			}
		}
	}
}
