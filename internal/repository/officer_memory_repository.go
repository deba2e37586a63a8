package repository

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/noah-isme/grievance-api/internal/models"
)

// MemoryOfficerRepository is the in-process officer directory.
type MemoryOfficerRepository struct {
	mu          sync.RWMutex
	officers    map[string]models.Officer
	credentials map[string]models.OfficerCredential
}

func NewMemoryOfficerRepository(officers ...models.Officer) *MemoryOfficerRepository {
	r := &MemoryOfficerRepository{
		officers:    make(map[string]models.Officer, len(officers)),
		credentials: make(map[string]models.OfficerCredential),
	}
	for _, o := range officers {
		r.officers[o.ID] = o
	}
	return r
}

// Put adds or replaces an officer.
func (r *MemoryOfficerRepository) Put(o models.Officer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.officers[o.ID] = o
}

func (r *MemoryOfficerRepository) FindByID(_ context.Context, id string) (*models.Officer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.officers[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	o.SchemeIDs = append([]string{}, o.SchemeIDs...)
	return &o, nil
}

func (r *MemoryOfficerRepository) FindCredential(_ context.Context, username string) (*models.OfficerCredential, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.credentials[username]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &c, nil
}

func (r *MemoryOfficerRepository) SaveCredential(_ context.Context, cred models.OfficerCredential) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for username, existing := range r.credentials {
		if existing.OfficerID == cred.OfficerID {
			delete(r.credentials, username)
		}
	}
	r.credentials[cred.Username] = cred
	return nil
}

func (r *MemoryOfficerRepository) TouchLogin(context.Context, string, time.Time) error {
	return nil
}
