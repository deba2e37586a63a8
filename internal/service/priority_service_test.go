package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/grievance-api/internal/dto"
	"github.com/noah-isme/grievance-api/internal/models"
	"github.com/noah-isme/grievance-api/internal/repository"
	"github.com/noah-isme/grievance-api/pkg/config"
)

func TestOfficerReadsApplyAgeFloor(t *testing.T) {
	e := newEngine(t)
	g := e.submit(t)
	require.Equal(t, models.PriorityLow, g.Priority)

	later := func() time.Time { return fixedNow.AddDate(0, 0, 20) }
	reader := NewGrievanceService(e.repo, e.officers, &sequenceIDs{}, nil, zap.NewNop(), config.GrievanceConfig{}, WithGrievanceClock(later))

	page, err := reader.List(context.Background(), mandalOfficer.ID, dto.ListGrievancesQuery{})
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, models.PriorityHigh, page.Data[0].Priority)

	detail, err := reader.GetDetails(context.Background(), mandalOfficer.ID, g.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PriorityHigh, detail.Priority)
}

func TestActionPersistsAgeFloor(t *testing.T) {
	e := newEngine(t)
	g := e.submit(t)
	e.actions.now = func() time.Time { return fixedNow.AddDate(0, 0, 10) }

	updated := e.act(t, g, mandalOfficer, models.ActionAddNote, "checked ledger", "")
	assert.Equal(t, models.PriorityMedium, updated.Priority)

	updated, err := e.actions.PerformAction(context.Background(), g.ID, mandalOfficer.ID, dto.PerformActionRequest{
		Action: models.ActionAddNote, Note: "lowered", Priority: models.PriorityLow,
	})
	require.NoError(t, err)
	assert.Equal(t, models.PriorityMedium, updated.Priority, "priority never drops below the age floor")
}

func TestPriorityServiceSweep(t *testing.T) {
	e := newEngine(t)
	g := e.submit(t)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cache := NewCacheService(repository.NewCacheRepository(client, zap.NewNop()), nil, time.Minute, zap.NewNop(), true)
	require.NoError(t, mr.Set(CacheKey("dashboard", mandalOfficer.ID), "{}"))

	svc := NewPriorityService(e.repo, cache, zap.NewNop())
	svc.now = func() time.Time { return fixedNow.AddDate(0, 0, 40) }

	n, err := svc.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.False(t, mr.Exists(CacheKey("dashboard", mandalOfficer.ID)))

	stored, err := e.repo.GetByID(context.Background(), g.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PriorityUrgent, stored.Priority)

	page, err := e.grievances.List(context.Background(), mandalOfficer.ID, dto.ListGrievancesQuery{Priority: "urgent"})
	require.NoError(t, err)
	assert.Len(t, page.Data, 1, "priority filters see swept values")

	n, err = svc.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}
