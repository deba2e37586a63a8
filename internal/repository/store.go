package repository

import (
	"context"
	"time"

	"github.com/noah-isme/grievance-api/internal/models"
)

// GrievanceStore is implemented by the Postgres and in-memory record stores.
type GrievanceStore interface {
	Create(ctx context.Context, g *models.Grievance) error
	GetByID(ctx context.Context, id string) (*models.Grievance, error)
	GetByTrackingID(ctx context.Context, trackingID string) (*models.Grievance, error)
	FindByContact(ctx context.Context, phone, aadhaarLast4 string) ([]models.Grievance, error)
	List(ctx context.Context, filter models.GrievanceFilter) ([]models.Grievance, int, error)
	Summaries(ctx context.Context, scope models.Scope) ([]models.GrievanceSummary, error)
	ApplyAction(ctx context.Context, id string, mutate Mutator) (*models.Grievance, error)
	RaisePriorities(ctx context.Context, now time.Time) (int, error)
}

// OfficerStore is implemented by the Postgres and in-memory officer directories.
type OfficerStore interface {
	FindByID(ctx context.Context, id string) (*models.Officer, error)
	FindCredential(ctx context.Context, username string) (*models.OfficerCredential, error)
	SaveCredential(ctx context.Context, cred models.OfficerCredential) error
	TouchLogin(ctx context.Context, officerID string, at time.Time) error
}

var (
	_ GrievanceStore = (*GrievanceRepository)(nil)
	_ GrievanceStore = (*MemoryGrievanceRepository)(nil)
	_ OfficerStore   = (*OfficerRepository)(nil)
	_ OfficerStore   = (*MemoryOfficerRepository)(nil)
)
