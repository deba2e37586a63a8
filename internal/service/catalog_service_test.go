package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/grievance-api/internal/repository"
	"github.com/noah-isme/grievance-api/pkg/catalog"
	appErrors "github.com/noah-isme/grievance-api/pkg/errors"
)

type countingSource struct {
	catalog.Static
	schemeCalls int
	err         error
}

func (s *countingSource) Schemes(ctx context.Context) ([]catalog.Scheme, error) {
	s.schemeCalls++
	if s.err != nil {
		return nil, s.err
	}
	return s.Static.Schemes(ctx)
}

func (s *countingSource) Mandals(ctx context.Context) ([]catalog.Mandal, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.Static.Mandals(ctx)
}

func TestCatalogServiceCachesSchemes(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cache := NewCacheService(repository.NewCacheRepository(client, zap.NewNop()), nil, time.Minute, zap.NewNop(), true)

	pilot := catalog.Pilot()
	pilot.SchemeList = append(pilot.SchemeList, catalog.Scheme{ID: "scheme_retired", Name: "Retired", IsActive: false})
	src := &countingSource{Static: pilot}
	svc := NewCatalogService(src, cache, time.Minute, zap.NewNop())

	first, err := svc.Schemes(context.Background())
	require.NoError(t, err)
	assert.Len(t, first, 2, "inactive schemes are hidden")

	_, err = svc.Schemes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, src.schemeCalls)
	assert.True(t, mr.Exists(CacheKey("catalog", "schemes")))
}

func TestCatalogServiceMandalsByDistrictAndLabels(t *testing.T) {
	svc := NewCatalogService(catalog.Pilot(), nil, 0, zap.NewNop())

	mandals, err := svc.Mandals(context.Background(), "dist_rng")
	require.NoError(t, err)
	assert.Len(t, mandals, 2)

	labels := svc.Labels(context.Background(), "scheme_shadi_mubarak", "dist_hyd", "mndl_charminar")
	assert.Equal(t, CatalogLabels{Scheme: "Shadi Mubarak", District: "Hyderabad", Mandal: "Charminar"}, labels)
}

func TestCatalogServiceDegradesOnOutage(t *testing.T) {
	src := &countingSource{Static: catalog.Pilot(), err: errors.New("cms down")}
	svc := NewCatalogService(src, nil, 0, zap.NewNop())

	_, err := svc.Schemes(context.Background())
	assert.ErrorIs(t, err, appErrors.ErrInternal)

	labels := svc.Labels(context.Background(), "scheme_shadi_mubarak", "dist_hyd", "mndl_charminar")
	assert.Empty(t, labels.Scheme)
	assert.Equal(t, "Hyderabad", labels.District)
	assert.Empty(t, labels.Mandal)
}
