package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/grievance-api/pkg/errors"
	"github.com/noah-isme/grievance-api/pkg/catalog"
)

// CatalogLabels are display names resolved for one grievance. Missing
// entries stay empty.
type CatalogLabels struct {
	Scheme   string
	District string
	Mandal   string
}

// CatalogService serves CMS catalogs through the redis cache.
type CatalogService struct {
	source catalog.Source
	cache  *CacheService
	ttl    time.Duration
	logger *zap.Logger
}

func NewCatalogService(source catalog.Source, cache *CacheService, ttl time.Duration, logger *zap.Logger) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &CatalogService{source: source, cache: cache, ttl: ttl, logger: logger}
}

// Schemes lists active schemes only.
func (s *CatalogService) Schemes(ctx context.Context) ([]catalog.Scheme, error) {
	all, _, err := Remember(ctx, s.cache, CacheKey("catalog", "schemes"), s.ttl, s.source.Schemes)
	if err != nil {
		return nil, s.upstreamError(err, "schemes")
	}
	active := make([]catalog.Scheme, 0, len(all))
	for _, sc := range all {
		if sc.IsActive {
			active = append(active, sc)
		}
	}
	return active, nil
}

func (s *CatalogService) Districts(ctx context.Context) ([]catalog.District, error) {
	list, _, err := Remember(ctx, s.cache, CacheKey("catalog", "districts"), s.ttl, s.source.Districts)
	if err != nil {
		return nil, s.upstreamError(err, "districts")
	}
	return list, nil
}

// Mandals lists mandals, restricted to districtID when it is set.
func (s *CatalogService) Mandals(ctx context.Context, districtID string) ([]catalog.Mandal, error) {
	list, _, err := Remember(ctx, s.cache, CacheKey("catalog", "mandals"), s.ttl, s.source.Mandals)
	if err != nil {
		return nil, s.upstreamError(err, "mandals")
	}
	if districtID == "" {
		return list, nil
	}
	out := make([]catalog.Mandal, 0)
	for _, m := range list {
		if m.DistrictID == districtID {
			out = append(out, m)
		}
	}
	return out, nil
}

// Labels resolves names for display. Catalog outages degrade to empty labels.
func (s *CatalogService) Labels(ctx context.Context, schemeID, districtID, mandalID string) CatalogLabels {
	var labels CatalogLabels
	if schemes, err := s.Schemes(ctx); err == nil {
		for _, sc := range schemes {
			if sc.ID == schemeID {
				labels.Scheme = sc.Name
			}
		}
	}
	if districts, err := s.Districts(ctx); err == nil {
		for _, d := range districts {
			if d.ID == districtID {
				labels.District = d.Name
			}
		}
	}
	if mandals, err := s.Mandals(ctx, districtID); err == nil {
		for _, m := range mandals {
			if m.ID == mandalID {
				labels.Mandal = m.Name
			}
		}
	}
	return labels
}

func (s *CatalogService) upstreamError(err error, what string) error {
	s.logger.Warn("catalog fetch failed", zap.String("catalog", what), zap.Error(err))
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "catalog is temporarily unavailable")
}
