package repository

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/noah-isme/grievance-api/internal/models"
	"github.com/noah-isme/grievance-api/internal/workflow"
)

// MemoryGrievanceRepository keeps grievances in process. Writes to one
// grievance are serialised by a per-id mutex; stored records are only
// replaced after a mutation succeeds.
type MemoryGrievanceRepository struct {
	mu         sync.RWMutex
	byID       map[string]*models.Grievance
	byTracking map[string]string
	locks      map[string]*sync.Mutex
}

func NewMemoryGrievanceRepository() *MemoryGrievanceRepository {
	return &MemoryGrievanceRepository{
		byID:       make(map[string]*models.Grievance),
		byTracking: make(map[string]string),
		locks:      make(map[string]*sync.Mutex),
	}
}

func (r *MemoryGrievanceRepository) Create(_ context.Context, g *models.Grievance) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byTracking[g.TrackingID]; exists {
		return ErrDuplicateTrackingID
	}
	r.byID[g.ID] = g.Clone()
	r.byTracking[g.TrackingID] = g.ID
	r.locks[g.ID] = &sync.Mutex{}
	return nil
}

func (r *MemoryGrievanceRepository) GetByID(_ context.Context, id string) (*models.Grievance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return g.Clone(), nil
}

func (r *MemoryGrievanceRepository) GetByTrackingID(ctx context.Context, trackingID string) (*models.Grievance, error) {
	r.mu.RLock()
	id, ok := r.byTracking[trackingID]
	r.mu.RUnlock()
	if !ok {
		return nil, sql.ErrNoRows
	}
	return r.GetByID(ctx, id)
}

func (r *MemoryGrievanceRepository) FindByContact(_ context.Context, phone, aadhaarLast4 string) ([]models.Grievance, error) {
	matches := r.filter(func(g *models.Grievance) bool {
		return g.Citizen.Phone == phone && g.Citizen.AadhaarLast4 == aadhaarLast4
	})
	out := make([]models.Grievance, 0, len(matches))
	for _, g := range matches {
		out = append(out, *g)
	}
	return out, nil
}

func (r *MemoryGrievanceRepository) List(_ context.Context, filter models.GrievanceFilter) ([]models.Grievance, int, error) {
	matches := r.filter(filter.Matches)
	total := len(matches)

	start, end := 0, total
	if filter.PerPage > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		start = min((page-1)*filter.PerPage, total)
		end = min(start+filter.PerPage, total)
	}

	out := make([]models.Grievance, 0, end-start)
	for _, g := range matches[start:end] {
		c := *g
		c.Timeline = []models.TimelineEntry{}
		out = append(out, c)
	}
	return out, total, nil
}

func (r *MemoryGrievanceRepository) Summaries(_ context.Context, scope models.Scope) ([]models.GrievanceSummary, error) {
	matches := r.filter(scope.Matches)
	out := make([]models.GrievanceSummary, 0, len(matches))
	for _, g := range matches {
		out = append(out, models.GrievanceSummary{
			Status:      g.Status,
			Priority:    g.Priority,
			SubmittedAt: g.SubmittedAt,
			ResolvedAt:  g.ResolvedAt,
		})
	}
	return out, nil
}

func (r *MemoryGrievanceRepository) ApplyAction(_ context.Context, id string, mutate Mutator) (*models.Grievance, error) {
	r.mu.RLock()
	lock, ok := r.locks[id]
	r.mu.RUnlock()
	if !ok {
		return nil, sql.ErrNoRows
	}

	lock.Lock()
	defer lock.Unlock()

	r.mu.RLock()
	working := r.byID[id].Clone()
	r.mu.RUnlock()

	entry, err := mutate(working)
	if err != nil {
		return nil, err
	}
	working.Timeline = append(working.Timeline, *entry)

	r.mu.Lock()
	r.byID[id] = working
	r.mu.Unlock()

	return working.Clone(), nil
}

// RaisePriorities lifts open grievances to their age floor.
func (r *MemoryGrievanceRepository) RaisePriorities(_ context.Context, now time.Time) (int, error) {
	r.mu.RLock()
	ids := make([]string, 0, len(r.locks))
	for id := range r.locks {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	changed := 0
	for _, id := range ids {
		if r.raise(id, now) {
			changed++
		}
	}
	return changed, nil
}

func (r *MemoryGrievanceRepository) raise(id string, now time.Time) bool {
	r.mu.RLock()
	lock := r.locks[id]
	r.mu.RUnlock()

	lock.Lock()
	defer lock.Unlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	g := r.byID[id]
	aged := workflow.AgedPriority(g.Status, g.Priority, g.SubmittedAt, now)
	if aged == g.Priority {
		return false
	}
	c := g.Clone()
	c.Priority = aged
	r.byID[id] = c
	return true
}

// filter returns clones of matching grievances, newest first.
func (r *MemoryGrievanceRepository) filter(keep func(*models.Grievance) bool) []*models.Grievance {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*models.Grievance, 0)
	for _, g := range r.byID {
		if keep(g) {
			out = append(out, g.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SubmittedAt.Equal(out[j].SubmittedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].SubmittedAt.After(out[j].SubmittedAt)
	})
	return out
}
