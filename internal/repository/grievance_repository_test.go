package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/grievance-api/internal/models"
)

var (
	grievanceCols = []string{"id", "tracking_id", "scheme_id", "department_id", "category_id", "subcategory_id", "application_number",
		"citizen_name", "citizen_phone", "citizen_email", "citizen_aadhaar_last4", "district_id", "mandal_id", "address",
		"scheme_details", "description", "has_voice_recording", "attachments", "status", "current_level", "priority",
		"submitted_at", "updated_at", "resolved_at"}
	timelineCols = []string{"id", "grievance_id", "action", "from_status", "to_status", "actor_type", "actor_id", "actor_name",
		"note", "send_back_reason", "is_public", "created_at"}
)

func newGrievanceRepoMock(t *testing.T) (*GrievanceRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewGrievanceRepository(sqlx.NewDb(db, "sqlmock")), mock
}

func grievanceRows(submitted time.Time, status string, level int) *sqlmock.Rows {
	return sqlmock.NewRows(grievanceCols).AddRow(
		"g-1", "GRV-LOYW3V28-AB12", "scheme_shadi_mubarak", "dept_minority_welfare", "cat_financial_assistance", "", nil,
		"Ravi Kumar", "9876543210", nil, "1234", "dist_hyd", "mndl_charminar", "Old City",
		[]byte(`{"marriage_date":"2024-01-10"}`), "Amount not received", false, "{proof.pdf}", status, level, "low",
		submitted, submitted, nil,
	)
}

func submitTimelineRows(submitted time.Time) *sqlmock.Rows {
	return sqlmock.NewRows(timelineCols).AddRow(
		"t-1", "g-1", "submit", "at_mandal", "at_mandal", "citizen", nil, "Ravi Kumar", "Grievance submitted", nil, true, submitted,
	)
}

func sampleGrievance(now time.Time) *models.Grievance {
	note := "Grievance submitted"
	return &models.Grievance{
		ID:            "g-1",
		TrackingID:    "GRV-LOYW3V28-AB12",
		SchemeID:      "scheme_shadi_mubarak",
		Citizen:       models.Citizen{Name: "Ravi Kumar", Phone: "9876543210", AadhaarLast4: "1234"},
		DistrictID:    "dist_hyd",
		MandalID:      "mndl_charminar",
		SchemeDetails: map[string]string{},
		Attachments:   []string{},
		Status:        models.StatusAtMandal,
		CurrentLevel:  models.LevelMandal,
		Priority:      models.PriorityLow,
		SubmittedAt:   now,
		UpdatedAt:     now,
		Timeline: []models.TimelineEntry{{
			ID: "t-1", GrievanceID: "g-1", Timestamp: now, Action: models.ActionSubmit,
			FromStatus: models.StatusAtMandal, ToStatus: models.StatusAtMandal,
			PerformedBy: models.CitizenActor("Ravi Kumar"), Note: &note, IsPublic: true,
		}},
	}
}

func TestGrievanceRepositoryCreate(t *testing.T) {
	repo, mock := newGrievanceRepoMock(t)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO grievances")).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO grievance_timeline")).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Create(context.Background(), sampleGrievance(now)))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGrievanceRepositoryCreateDuplicateTrackingID(t *testing.T) {
	repo, mock := newGrievanceRepoMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO grievances")).WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	err := repo.Create(context.Background(), sampleGrievance(time.Now()))
	assert.ErrorIs(t, err, ErrDuplicateTrackingID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGrievanceRepositoryGetByTrackingID(t *testing.T) {
	repo, mock := newGrievanceRepoMock(t)
	submitted := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT id, tracking_id.* FROM grievances WHERE tracking_id = \$1`).
		WithArgs("GRV-LOYW3V28-AB12").
		WillReturnRows(grievanceRows(submitted, "at_mandal", 1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM grievance_timeline WHERE grievance_id = ANY($1) ORDER BY seq")).
		WillReturnRows(submitTimelineRows(submitted))

	g, err := repo.GetByTrackingID(context.Background(), "GRV-LOYW3V28-AB12")
	require.NoError(t, err)
	assert.Equal(t, models.StatusAtMandal, g.Status)
	assert.Equal(t, []string{"proof.pdf"}, g.Attachments)
	assert.Equal(t, "2024-01-10", g.SchemeDetails["marriage_date"])
	require.Len(t, g.Timeline, 1)
	assert.Equal(t, models.ActorCitizen, g.Timeline[0].PerformedBy.Type)
	assert.Nil(t, g.ResolvedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGrievanceRepositoryGetByIDNotFound(t *testing.T) {
	repo, mock := newGrievanceRepoMock(t)
	mock.ExpectQuery(`FROM grievances WHERE id = \$1`).WithArgs("missing").WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestGrievanceRepositoryListBuildsFilters(t *testing.T) {
	repo, mock := newGrievanceRepoMock(t)
	submitted := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM grievances WHERE status = $1 AND (tracking_id ILIKE $2 OR citizen_name ILIKE $2)")).
		WithArgs("at_mandal", "%ravi%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY submitted_at DESC, id LIMIT $3 OFFSET $4")).
		WithArgs("at_mandal", "%ravi%", 10, 10).
		WillReturnRows(grievanceRows(submitted, "at_mandal", 1))

	list, total, err := repo.List(context.Background(), models.GrievanceFilter{
		Status: models.StatusAtMandal, Search: "ravi", Page: 2, PerPage: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, 11, total)
	require.Len(t, list, 1)
	assert.Empty(t, list[0].Timeline)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBuildGrievanceFilterScope(t *testing.T) {
	where, args := buildGrievanceFilter(models.GrievanceFilter{
		Scope:  &models.Scope{MandalID: "mndl_charminar", SchemeIDs: []string{"scheme_shadi_mubarak"}},
		Search: "50%_off",
	})
	assert.Equal(t, " WHERE mandal_id = $1 AND scheme_id = ANY($2) AND (tracking_id ILIKE $3 OR citizen_name ILIKE $3)", where)
	require.Len(t, args, 3)
	assert.Equal(t, `%50\%\_off%`, args[2])
}

func TestGrievanceRepositoryApplyActionCommits(t *testing.T) {
	repo, mock := newGrievanceRepoMock(t)
	submitted := time.Now().UTC().Add(-time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM grievances WHERE id = $1 FOR UPDATE")).
		WithArgs("g-1").
		WillReturnRows(grievanceRows(submitted, "at_mandal", 1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM grievance_timeline")).WillReturnRows(submitTimelineRows(submitted))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE grievances")).
		WithArgs(models.StatusAtDistrict, 2, models.PriorityLow, sqlmock.AnyArg(), nil, "g-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO grievance_timeline")).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	g, err := repo.ApplyAction(context.Background(), "g-1", func(g *models.Grievance) (*models.TimelineEntry, error) {
		entry := &models.TimelineEntry{
			ID: "t-2", GrievanceID: g.ID, Timestamp: time.Now().UTC(), Action: models.ActionForward,
			FromStatus: g.Status, ToStatus: models.StatusAtDistrict,
			PerformedBy: models.OfficerActor("off_mndl_charminar", "Sri. Syed Hussain"), IsPublic: true,
		}
		g.Status, g.CurrentLevel, g.UpdatedAt = models.StatusAtDistrict, models.LevelDistrict, entry.Timestamp
		return entry, nil
	})
	require.NoError(t, err)
	assert.Len(t, g.Timeline, 2)
	assert.Equal(t, models.StatusAtDistrict, g.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGrievanceRepositoryApplyActionRollsBackOnMutatorError(t *testing.T) {
	repo, mock := newGrievanceRepoMock(t)
	submitted := time.Now().UTC()
	boom := errors.New("not allowed")

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).WillReturnRows(grievanceRows(submitted, "rejected", 1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM grievance_timeline")).WillReturnRows(submitTimelineRows(submitted))
	mock.ExpectRollback()

	_, err := repo.ApplyAction(context.Background(), "g-1", func(*models.Grievance) (*models.TimelineEntry, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGrievanceRepositoryRaisePriorities(t *testing.T) {
	repo, mock := newGrievanceRepoMock(t)
	now := time.Date(2024, 3, 31, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE grievances SET priority = CASE`)).
		WithArgs(now.AddDate(0, 0, -30), now.AddDate(0, 0, -15), now.AddDate(0, 0, -7)).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.RaisePriorities(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE grievances SET priority = CASE`)).
		WillReturnError(errors.New("connection reset"))
	_, err = repo.RaisePriorities(context.Background(), now)
	assert.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
