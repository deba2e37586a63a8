package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/grievance-api/internal/models"
)

func TestMemoryGrievanceRepositoryCreateAndLookup(t *testing.T) {
	repo := NewMemoryGrievanceRepository()
	ctx := context.Background()
	g := sampleGrievance(time.Now().UTC())

	require.NoError(t, repo.Create(ctx, g))
	assert.ErrorIs(t, repo.Create(ctx, g), ErrDuplicateTrackingID)

	got, err := repo.GetByTrackingID(ctx, g.TrackingID)
	require.NoError(t, err)
	assert.Equal(t, g.ID, got.ID)

	got.Timeline = nil
	again, err := repo.GetByID(ctx, g.ID)
	require.NoError(t, err)
	assert.Len(t, again.Timeline, 1)

	_, err = repo.GetByID(ctx, "nope")
	assert.ErrorIs(t, err, sql.ErrNoRows)

	matches, err := repo.FindByContact(ctx, "9876543210", "1234")
	require.NoError(t, err)
	assert.Len(t, matches, 1)
	matches, err = repo.FindByContact(ctx, "9876543210", "9999")
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestMemoryGrievanceRepositoryListPaginatesAndScopes(t *testing.T) {
	repo := NewMemoryGrievanceRepository()
	ctx := context.Background()
	base := time.Now().UTC()
	for i := 0; i < 5; i++ {
		g := sampleGrievance(base.Add(time.Duration(i) * time.Minute))
		g.ID = fmt.Sprintf("g-%d", i)
		g.TrackingID = fmt.Sprintf("GRV-LOYW3V28-AB1%d", i)
		if i%2 == 1 {
			g.MandalID = "mndl_golconda"
		}
		require.NoError(t, repo.Create(ctx, g))
	}

	list, total, err := repo.List(ctx, models.GrievanceFilter{Page: 2, PerPage: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, list, 2)
	assert.Equal(t, "g-2", list[0].ID)

	scope := models.Scope{MandalID: "mndl_golconda", SchemeIDs: []string{"scheme_shadi_mubarak"}}
	list, total, err = repo.List(ctx, models.GrievanceFilter{Scope: &scope})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, list, 2)

	summaries, err := repo.Summaries(ctx, models.Scope{SchemeIDs: []string{}})
	require.NoError(t, err)
	assert.Empty(t, summaries)
}

func TestMemoryGrievanceRepositoryApplyActionIsAllOrNothing(t *testing.T) {
	repo := NewMemoryGrievanceRepository()
	ctx := context.Background()
	g := sampleGrievance(time.Now().UTC())
	require.NoError(t, repo.Create(ctx, g))

	_, err := repo.ApplyAction(ctx, g.ID, func(w *models.Grievance) (*models.TimelineEntry, error) {
		w.Status = models.StatusRejected
		return nil, errors.New("validation")
	})
	require.Error(t, err)

	stored, err := repo.GetByID(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAtMandal, stored.Status)
	assert.Len(t, stored.Timeline, 1)

	_, err = repo.ApplyAction(ctx, "missing", nil)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestMemoryGrievanceRepositorySerialisesPerGrievance(t *testing.T) {
	repo := NewMemoryGrievanceRepository()
	ctx := context.Background()
	g := sampleGrievance(time.Now().UTC())
	require.NoError(t, repo.Create(ctx, g))

	const writers = 50
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := repo.ApplyAction(ctx, g.ID, func(w *models.Grievance) (*models.TimelineEntry, error) {
				return &models.TimelineEntry{
					ID: fmt.Sprintf("n-%d", i), GrievanceID: w.ID, Action: models.ActionAddNote,
					FromStatus: w.Status, ToStatus: w.Status, PerformedBy: models.SystemActor(),
				}, nil
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	stored, err := repo.GetByID(ctx, g.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Timeline, writers+1)
}

func TestMemoryGrievanceRepositoryRaisePriorities(t *testing.T) {
	repo := NewMemoryGrievanceRepository()
	ctx := context.Background()
	now := time.Date(2024, 3, 31, 12, 0, 0, 0, time.UTC)

	stale := sampleGrievance(now.AddDate(0, 0, -20))
	fresh := sampleGrievance(now.AddDate(0, 0, -2))
	fresh.ID, fresh.TrackingID = "g-2", "GRV-LOYW3V28-CD34"
	closed := sampleGrievance(now.AddDate(0, 0, -40))
	closed.ID, closed.TrackingID, closed.Status = "g-3", "GRV-LOYW3V28-EF56", models.StatusResolved
	for _, g := range []*models.Grievance{stale, fresh, closed} {
		g.Priority = models.PriorityLow
		require.NoError(t, repo.Create(ctx, g))
	}

	n, err := repo.RaisePriorities(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := repo.GetByID(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PriorityHigh, got.Priority)
	assert.Len(t, got.Timeline, 1, "aging adds no timeline entry")

	got, _ = repo.GetByID(ctx, fresh.ID)
	assert.Equal(t, models.PriorityLow, got.Priority)
	got, _ = repo.GetByID(ctx, closed.ID)
	assert.Equal(t, models.PriorityLow, got.Priority)

	n, err = repo.RaisePriorities(ctx, now)
	require.NoError(t, err)
	assert.Zero(t, n)
}
