package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/grievance-api/internal/models"
)

const officerColumns = `id, name, email, phone, role, level, designation, district_id, mandal_id, scheme_ids, is_active`

type officerRow struct {
	ID          string         `db:"id"`
	Name        string         `db:"name"`
	Email       string         `db:"email"`
	Phone       string         `db:"phone"`
	Role        string         `db:"role"`
	Level       int            `db:"level"`
	Designation string         `db:"designation"`
	DistrictID  string         `db:"district_id"`
	MandalID    sql.NullString `db:"mandal_id"`
	SchemeIDs   pq.StringArray `db:"scheme_ids"`
	IsActive    bool           `db:"is_active"`
}

func (r officerRow) toModel() *models.Officer {
	schemes := []string(r.SchemeIDs)
	if schemes == nil {
		schemes = []string{}
	}
	return &models.Officer{
		ID:          r.ID,
		Name:        r.Name,
		Email:       r.Email,
		Phone:       r.Phone,
		Role:        models.OfficerRole(r.Role),
		Level:       models.Level(r.Level),
		Designation: r.Designation,
		DistrictID:  r.DistrictID,
		MandalID:    nullString(r.MandalID),
		SchemeIDs:   schemes,
		IsActive:    r.IsActive,
	}
}

// OfficerRepository reads officers and their login credentials.
type OfficerRepository struct {
	db *sqlx.DB
}

func NewOfficerRepository(db *sqlx.DB) *OfficerRepository {
	return &OfficerRepository{db: db}
}

// FindByID returns the officer or sql.ErrNoRows.
func (r *OfficerRepository) FindByID(ctx context.Context, id string) (*models.Officer, error) {
	var row officerRow
	query := `SELECT ` + officerColumns + ` FROM officers WHERE id = $1`
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("get officer: %w", err)
	}
	return row.toModel(), nil
}

// FindCredential returns the credential for username or sql.ErrNoRows.
func (r *OfficerRepository) FindCredential(ctx context.Context, username string) (*models.OfficerCredential, error) {
	var row struct {
		OfficerID    string `db:"officer_id"`
		Username     string `db:"username"`
		PasswordHash string `db:"password_hash"`
	}
	const query = `SELECT officer_id, username, password_hash FROM officer_credentials WHERE username = $1`
	if err := r.db.GetContext(ctx, &row, query, username); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("get officer credential: %w", err)
	}
	return &models.OfficerCredential{OfficerID: row.OfficerID, Username: row.Username, PasswordHash: row.PasswordHash}, nil
}

// SaveCredential creates or replaces the login for an officer.
func (r *OfficerRepository) SaveCredential(ctx context.Context, cred models.OfficerCredential) error {
	const query = `INSERT INTO officer_credentials (officer_id, username, password_hash, updated_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (officer_id) DO UPDATE SET username = EXCLUDED.username, password_hash = EXCLUDED.password_hash, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.ExecContext(ctx, query, cred.OfficerID, cred.Username, cred.PasswordHash, time.Now().UTC()); err != nil {
		return fmt.Errorf("save officer credential: %w", err)
	}
	return nil
}

// TouchLogin records a successful login.
func (r *OfficerRepository) TouchLogin(ctx context.Context, officerID string, at time.Time) error {
	const query = `UPDATE officer_credentials SET last_login_at = $1 WHERE officer_id = $2`
	if _, err := r.db.ExecContext(ctx, query, at, officerID); err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return nil
}
