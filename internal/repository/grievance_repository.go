package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/grievance-api/internal/models"
)

// ErrDuplicateTrackingID is returned by Create when the tracking id is taken.
var ErrDuplicateTrackingID = errors.New("tracking id already exists")

// Mutator computes the next state of a locked grievance in place and returns
// the timeline entry recording it. A non-nil error aborts without writing.
type Mutator func(g *models.Grievance) (*models.TimelineEntry, error)

const grievanceColumns = `id, tracking_id, scheme_id, department_id, category_id, subcategory_id, application_number,
	citizen_name, citizen_phone, citizen_email, citizen_aadhaar_last4, district_id, mandal_id, address,
	scheme_details, description, has_voice_recording, attachments, status, current_level, priority,
	submitted_at, updated_at, resolved_at`

const timelineColumns = `id, grievance_id, action, from_status, to_status, actor_type, actor_id, actor_name,
	note, send_back_reason, is_public, created_at`

type grievanceRow struct {
	ID                string         `db:"id"`
	TrackingID        string         `db:"tracking_id"`
	SchemeID          string         `db:"scheme_id"`
	DepartmentID      string         `db:"department_id"`
	CategoryID        string         `db:"category_id"`
	SubcategoryID     string         `db:"subcategory_id"`
	ApplicationNumber sql.NullString `db:"application_number"`
	CitizenName       string         `db:"citizen_name"`
	CitizenPhone      string         `db:"citizen_phone"`
	CitizenEmail      sql.NullString `db:"citizen_email"`
	CitizenAadhaar    string         `db:"citizen_aadhaar_last4"`
	DistrictID        string         `db:"district_id"`
	MandalID          string         `db:"mandal_id"`
	Address           string         `db:"address"`
	SchemeDetails     []byte         `db:"scheme_details"`
	Description       string         `db:"description"`
	HasVoiceRecording bool           `db:"has_voice_recording"`
	Attachments       pq.StringArray `db:"attachments"`
	Status            string         `db:"status"`
	CurrentLevel      int            `db:"current_level"`
	Priority          string         `db:"priority"`
	SubmittedAt       time.Time      `db:"submitted_at"`
	UpdatedAt         time.Time      `db:"updated_at"`
	ResolvedAt        sql.NullTime   `db:"resolved_at"`
}

func (r grievanceRow) toModel() (*models.Grievance, error) {
	g := &models.Grievance{
		ID:                r.ID,
		TrackingID:        r.TrackingID,
		SchemeID:          r.SchemeID,
		DepartmentID:      r.DepartmentID,
		CategoryID:        r.CategoryID,
		SubcategoryID:     r.SubcategoryID,
		ApplicationNumber: nullString(r.ApplicationNumber),
		Citizen: models.Citizen{
			Name:         r.CitizenName,
			Phone:        r.CitizenPhone,
			Email:        nullString(r.CitizenEmail),
			AadhaarLast4: r.CitizenAadhaar,
		},
		DistrictID:        r.DistrictID,
		MandalID:          r.MandalID,
		Address:           r.Address,
		Description:       r.Description,
		HasVoiceRecording: r.HasVoiceRecording,
		Attachments:       []string(r.Attachments),
		Status:            models.GrievanceStatus(r.Status),
		CurrentLevel:      models.Level(r.CurrentLevel),
		Priority:          models.Priority(r.Priority),
		SubmittedAt:       r.SubmittedAt,
		UpdatedAt:         r.UpdatedAt,
		Timeline:          []models.TimelineEntry{},
	}
	if g.Attachments == nil {
		g.Attachments = []string{}
	}
	if r.ResolvedAt.Valid {
		t := r.ResolvedAt.Time
		g.ResolvedAt = &t
	}
	g.SchemeDetails = map[string]string{}
	if len(r.SchemeDetails) > 0 {
		if err := json.Unmarshal(r.SchemeDetails, &g.SchemeDetails); err != nil {
			return nil, fmt.Errorf("decode scheme details for %s: %w", r.ID, err)
		}
	}
	return g, nil
}

type timelineRow struct {
	ID             string         `db:"id"`
	GrievanceID    string         `db:"grievance_id"`
	Action         string         `db:"action"`
	FromStatus     string         `db:"from_status"`
	ToStatus       string         `db:"to_status"`
	ActorType      string         `db:"actor_type"`
	ActorID        sql.NullString `db:"actor_id"`
	ActorName      string         `db:"actor_name"`
	Note           sql.NullString `db:"note"`
	SendBackReason sql.NullString `db:"send_back_reason"`
	IsPublic       bool           `db:"is_public"`
	CreatedAt      time.Time      `db:"created_at"`
}

func (r timelineRow) toModel() models.TimelineEntry {
	return models.TimelineEntry{
		ID:          r.ID,
		GrievanceID: r.GrievanceID,
		Timestamp:   r.CreatedAt,
		Action:      models.ActionType(r.Action),
		FromStatus:  models.GrievanceStatus(r.FromStatus),
		ToStatus:    models.GrievanceStatus(r.ToStatus),
		PerformedBy: models.Actor{
			Type: models.ActorType(r.ActorType),
			ID:   r.ActorID.String,
			Name: r.ActorName,
		},
		Note:           nullString(r.Note),
		SendBackReason: nullString(r.SendBackReason),
		IsPublic:       r.IsPublic,
	}
}

// GrievanceRepository persists grievances and their timelines in PostgreSQL.
type GrievanceRepository struct {
	db *sqlx.DB
}

// NewGrievanceRepository constructs the repository.
func NewGrievanceRepository(db *sqlx.DB) *GrievanceRepository {
	return &GrievanceRepository{db: db}
}

// Create inserts the grievance and its initial timeline in one transaction.
func (r *GrievanceRepository) Create(ctx context.Context, g *models.Grievance) (err error) {
	details, err := json.Marshal(g.SchemeDetails)
	if err != nil {
		return fmt.Errorf("encode scheme details: %w", err)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin grievance transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const insertQuery = `INSERT INTO grievances (` + grievanceColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24)`
	_, err = tx.ExecContext(ctx, insertQuery,
		g.ID, g.TrackingID, g.SchemeID, g.DepartmentID, g.CategoryID, g.SubcategoryID, g.ApplicationNumber,
		g.Citizen.Name, g.Citizen.Phone, g.Citizen.Email, g.Citizen.AadhaarLast4, g.DistrictID, g.MandalID, g.Address,
		details, g.Description, g.HasVoiceRecording, pq.Array(g.Attachments), g.Status, int(g.CurrentLevel), g.Priority,
		g.SubmittedAt, g.UpdatedAt, g.ResolvedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateTrackingID
		}
		return fmt.Errorf("insert grievance: %w", err)
	}

	for i := range g.Timeline {
		if err = insertTimeline(ctx, tx, &g.Timeline[i]); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit grievance: %w", err)
	}
	return nil
}

// GetByID returns the grievance with its full timeline or sql.ErrNoRows.
func (r *GrievanceRepository) GetByID(ctx context.Context, id string) (*models.Grievance, error) {
	return r.getOne(ctx, "id", id)
}

// GetByTrackingID looks up a grievance by its canonical tracking id.
func (r *GrievanceRepository) GetByTrackingID(ctx context.Context, trackingID string) (*models.Grievance, error) {
	return r.getOne(ctx, "tracking_id", trackingID)
}

func (r *GrievanceRepository) getOne(ctx context.Context, column, value string) (*models.Grievance, error) {
	query := fmt.Sprintf(`SELECT %s FROM grievances WHERE %s = $1`, grievanceColumns, column)
	var row grievanceRow
	if err := r.db.GetContext(ctx, &row, query, value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("get grievance: %w", err)
	}
	g, err := row.toModel()
	if err != nil {
		return nil, err
	}
	if err := r.attachTimelines(ctx, r.db, []*models.Grievance{g}); err != nil {
		return nil, err
	}
	return g, nil
}

// FindByContact returns every grievance filed with the phone and Aadhaar digits, newest first.
func (r *GrievanceRepository) FindByContact(ctx context.Context, phone, aadhaarLast4 string) ([]models.Grievance, error) {
	query := `SELECT ` + grievanceColumns + ` FROM grievances
WHERE citizen_phone = $1 AND citizen_aadhaar_last4 = $2
ORDER BY submitted_at DESC`
	var rows []grievanceRow
	if err := r.db.SelectContext(ctx, &rows, query, phone, aadhaarLast4); err != nil {
		return nil, fmt.Errorf("find grievances by contact: %w", err)
	}
	ptrs, err := toModels(rows)
	if err != nil {
		return nil, err
	}
	if err := r.attachTimelines(ctx, r.db, ptrs); err != nil {
		return nil, err
	}
	return derefAll(ptrs), nil
}

// List returns one page of grievances, without timelines, and the total match count.
func (r *GrievanceRepository) List(ctx context.Context, filter models.GrievanceFilter) ([]models.Grievance, int, error) {
	where, args := buildGrievanceFilter(filter)

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM grievances`+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count grievances: %w", err)
	}

	query := `SELECT ` + grievanceColumns + ` FROM grievances` + where + ` ORDER BY submitted_at DESC, id`
	if filter.PerPage > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		args = append(args, filter.PerPage, (page-1)*filter.PerPage)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	var rows []grievanceRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list grievances: %w", err)
	}
	ptrs, err := toModels(rows)
	if err != nil {
		return nil, 0, err
	}
	return derefAll(ptrs), total, nil
}

// Summaries returns the dashboard projection of grievances in scope.
func (r *GrievanceRepository) Summaries(ctx context.Context, scope models.Scope) ([]models.GrievanceSummary, error) {
	where, args := buildGrievanceFilter(models.GrievanceFilter{Scope: &scope})
	var rows []struct {
		Status      string       `db:"status"`
		Priority    string       `db:"priority"`
		SubmittedAt time.Time    `db:"submitted_at"`
		ResolvedAt  sql.NullTime `db:"resolved_at"`
	}
	query := `SELECT status, priority, submitted_at, resolved_at FROM grievances` + where
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("load grievance summaries: %w", err)
	}
	out := make([]models.GrievanceSummary, 0, len(rows))
	for _, row := range rows {
		s := models.GrievanceSummary{
			Status:      models.GrievanceStatus(row.Status),
			Priority:    models.Priority(row.Priority),
			SubmittedAt: row.SubmittedAt,
		}
		if row.ResolvedAt.Valid {
			t := row.ResolvedAt.Time
			s.ResolvedAt = &t
		}
		out = append(out, s)
	}
	return out, nil
}

// ApplyAction locks the grievance row, lets mutate compute the next state
// against the committed record and writes the new state and entry atomically.
func (r *GrievanceRepository) ApplyAction(ctx context.Context, id string, mutate Mutator) (result *models.Grievance, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin action transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var row grievanceRow
	lockQuery := `SELECT ` + grievanceColumns + ` FROM grievances WHERE id = $1 FOR UPDATE`
	if err = tx.GetContext(ctx, &row, lockQuery, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("lock grievance: %w", err)
	}
	g, err := row.toModel()
	if err != nil {
		return nil, err
	}
	if err = r.attachTimelines(ctx, tx, []*models.Grievance{g}); err != nil {
		return nil, err
	}

	entry, err := mutate(g)
	if err != nil {
		return nil, err
	}

	const updateQuery = `UPDATE grievances
SET status = $1, current_level = $2, priority = $3, updated_at = $4, resolved_at = $5
WHERE id = $6`
	if _, err = tx.ExecContext(ctx, updateQuery, g.Status, int(g.CurrentLevel), g.Priority, g.UpdatedAt, g.ResolvedAt, g.ID); err != nil {
		return nil, fmt.Errorf("update grievance: %w", err)
	}
	if err = insertTimeline(ctx, tx, entry); err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit action: %w", err)
	}

	g.Timeline = append(g.Timeline, *entry)
	return g, nil
}

func insertTimeline(ctx context.Context, tx *sqlx.Tx, e *models.TimelineEntry) error {
	var actorID *string
	if e.PerformedBy.ID != "" {
		actorID = &e.PerformedBy.ID
	}
	const query = `INSERT INTO grievance_timeline (` + timelineColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := tx.ExecContext(ctx, query,
		e.ID, e.GrievanceID, e.Action, e.FromStatus, e.ToStatus,
		e.PerformedBy.Type, actorID, e.PerformedBy.Name,
		e.Note, e.SendBackReason, e.IsPublic, e.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert timeline entry: %w", err)
	}
	return nil
}

const raisePrioritiesQuery = `UPDATE grievances SET priority = CASE
		WHEN submitted_at < $1 THEN 'urgent'
		WHEN submitted_at < $2 AND priority IN ('low', 'medium') THEN 'high'
		ELSE 'medium' END
	WHERE status NOT IN ('resolved', 'rejected') AND (
		(submitted_at < $1 AND priority <> 'urgent') OR
		(submitted_at < $2 AND priority IN ('low', 'medium')) OR
		(submitted_at < $3 AND priority = 'low'))`

// RaisePriorities lifts open grievances to their age floor and returns the
// number of rows changed.
func (r *GrievanceRepository) RaisePriorities(ctx context.Context, now time.Time) (int, error) {
	now = now.UTC()
	res, err := r.db.ExecContext(ctx, raisePrioritiesQuery,
		now.AddDate(0, 0, -30), now.AddDate(0, 0, -15), now.AddDate(0, 0, -7))
	if err != nil {
		return 0, fmt.Errorf("raise priorities: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("raise priorities: %w", err)
	}
	return int(n), nil
}

func (r *GrievanceRepository) attachTimelines(ctx context.Context, q sqlx.QueryerContext, list []*models.Grievance) error {
	if len(list) == 0 {
		return nil
	}
	ids := make([]string, len(list))
	index := make(map[string]*models.Grievance, len(list))
	for i, g := range list {
		ids[i] = g.ID
		index[g.ID] = g
	}

	query := `SELECT ` + timelineColumns + ` FROM grievance_timeline WHERE grievance_id = ANY($1) ORDER BY seq`
	var rows []timelineRow
	if err := sqlx.SelectContext(ctx, q, &rows, query, pq.Array(ids)); err != nil {
		return fmt.Errorf("load timeline: %w", err)
	}
	for _, row := range rows {
		if g, ok := index[row.GrievanceID]; ok {
			g.Timeline = append(g.Timeline, row.toModel())
		}
	}
	return nil
}

func buildGrievanceFilter(f models.GrievanceFilter) (string, []interface{}) {
	var (
		clauses []string
		args    []interface{}
	)
	add := func(format string, value interface{}) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf(format, len(args)))
	}

	if f.Scope != nil {
		if f.Scope.DistrictID != "" {
			add("district_id = $%d", f.Scope.DistrictID)
		}
		if f.Scope.MandalID != "" {
			add("mandal_id = $%d", f.Scope.MandalID)
		}
		if f.Scope.SchemeIDs != nil {
			add("scheme_id = ANY($%d)", pq.Array(f.Scope.SchemeIDs))
		}
	}
	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}
	if f.Priority != "" {
		add("priority = $%d", string(f.Priority))
	}
	if f.SchemeID != "" {
		add("scheme_id = $%d", f.SchemeID)
	}
	if f.DistrictID != "" {
		add("district_id = $%d", f.DistrictID)
	}
	if f.MandalID != "" {
		add("mandal_id = $%d", f.MandalID)
	}
	if f.DateFrom != nil {
		add("submitted_at >= $%d", *f.DateFrom)
	}
	if f.DateTo != nil {
		add("submitted_at <= $%d", *f.DateTo)
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		args = append(args, "%"+escapeLike(search)+"%")
		clauses = append(clauses, fmt.Sprintf("(tracking_id ILIKE $%d OR citizen_name ILIKE $%d)", len(args), len(args)))
	}

	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func toModels(rows []grievanceRow) ([]*models.Grievance, error) {
	ptrs := make([]*models.Grievance, 0, len(rows))
	for _, row := range rows {
		g, err := row.toModel()
		if err != nil {
			return nil, err
		}
		ptrs = append(ptrs, g)
	}
	return ptrs, nil
}

func derefAll(ptrs []*models.Grievance) []models.Grievance {
	list := make([]models.Grievance, 0, len(ptrs))
	for _, g := range ptrs {
		list = append(list, *g)
	}
	return list
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
