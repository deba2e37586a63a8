package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/grievance-api/internal/dto"
	"github.com/noah-isme/grievance-api/internal/models"
	"github.com/noah-isme/grievance-api/internal/repository"
	"github.com/noah-isme/grievance-api/internal/workflow"
	"github.com/noah-isme/grievance-api/pkg/config"
	appErrors "github.com/noah-isme/grievance-api/pkg/errors"
)

func TestGrievanceServiceCreate(t *testing.T) {
	e := newEngine(t)

	resp, err := e.grievances.Create(context.Background(), validIntake())
	require.NoError(t, err)
	assert.Equal(t, "GRV-TEST0001-0001", resp.TrackingID)
	assert.Equal(t, models.StatusAtMandal, resp.Status)
	assert.Equal(t, "At Mandal Level", resp.StatusLabel)

	g, err := e.repo.GetByID(context.Background(), resp.GrievanceID)
	require.NoError(t, err)
	assert.Equal(t, models.LevelMandal, g.CurrentLevel)
	assert.Equal(t, models.PriorityLow, g.Priority)
	assert.Equal(t, fixedNow, g.SubmittedAt)
	assert.Nil(t, g.ResolvedAt)
	require.Len(t, g.Timeline, 1)

	submit := g.Timeline[0]
	assert.Equal(t, models.ActionSubmit, submit.Action)
	assert.Equal(t, models.StatusAtMandal, submit.FromStatus)
	assert.Equal(t, models.StatusAtMandal, submit.ToStatus)
	assert.Equal(t, models.CitizenActor("Fatima Begum"), submit.PerformedBy)
	assert.True(t, submit.IsPublic)
	assert.True(t, workflow.Consistent(g.Status, g.CurrentLevel))

	require.Len(t, e.notifier.entries, 1)
	assert.Equal(t, models.ActionSubmit, e.notifier.entries[0].Action)
}

func TestGrievanceServiceCreateValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*dto.CreateGrievanceRequest)
		field  string
	}{
		{"short phone", func(r *dto.CreateGrievanceRequest) { r.Citizen.Phone = "98765" }, "citizen.phone"},
		{"letters in aadhaar", func(r *dto.CreateGrievanceRequest) { r.Citizen.AadhaarLast4 = "12ab" }, "citizen.aadhaar_last_4"},
		{"missing scheme", func(r *dto.CreateGrievanceRequest) { r.SchemeID = "  " }, "scheme_id"},
		{"bad email", func(r *dto.CreateGrievanceRequest) { r.Citizen.Email = strPtr("not-an-email") }, "citizen.email"},
		{"description too long", func(r *dto.CreateGrievanceRequest) { r.Description = strings.Repeat("word ", 301) }, "description"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := newEngine(t)
			req := validIntake()
			tc.mutate(&req)

			_, err := e.grievances.Create(context.Background(), req)
			require.Error(t, err)
			assert.ErrorIs(t, err, appErrors.ErrValidation)
			var appErr *appErrors.Error
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, tc.field, appErr.Field)

			_, total, err := e.repo.List(context.Background(), models.GrievanceFilter{})
			require.NoError(t, err)
			assert.Zero(t, total)
		})
	}
}

func TestGrievanceServiceCreateAcceptsExactWordLimit(t *testing.T) {
	e := newEngine(t)
	req := validIntake()
	req.Description = strings.TrimSpace(strings.Repeat("word ", 300))

	_, err := e.grievances.Create(context.Background(), req)
	require.NoError(t, err)
}

func TestGrievanceServiceCreateRetriesTrackingCollision(t *testing.T) {
	repo := repository.NewMemoryGrievanceRepository()
	ids := &sequenceIDs{ids: []string{"GRV-AAAA-0001", "GRV-AAAA-0001", "GRV-AAAA-0002"}}
	svc := NewGrievanceService(repo, repository.NewMemoryOfficerRepository(), ids, nil, zap.NewNop(), config.GrievanceConfig{})

	first, err := svc.Create(context.Background(), validIntake())
	require.NoError(t, err)
	second, err := svc.Create(context.Background(), validIntake())
	require.NoError(t, err)

	assert.Equal(t, "GRV-AAAA-0001", first.TrackingID)
	assert.Equal(t, "GRV-AAAA-0002", second.TrackingID)
	assert.Equal(t, 3, ids.n)
}

type alwaysDuplicateStore struct {
	grievanceStore
	calls int
}

func (s *alwaysDuplicateStore) Create(context.Context, *models.Grievance) error {
	s.calls++
	return repository.ErrDuplicateTrackingID
}

func TestGrievanceServiceCreateGivesUpAfterRetries(t *testing.T) {
	store := &alwaysDuplicateStore{}
	svc := NewGrievanceService(store, repository.NewMemoryOfficerRepository(), &sequenceIDs{}, nil, zap.NewNop(), config.GrievanceConfig{TrackingIDRetries: 3})

	_, err := svc.Create(context.Background(), validIntake())
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrInternal)
	assert.Equal(t, 3, store.calls)
}

func TestGrievanceServiceRoundTripThroughTracking(t *testing.T) {
	repo := repository.NewMemoryGrievanceRepository()
	svc := NewGrievanceService(repo, repository.NewMemoryOfficerRepository(), &sequenceIDs{ids: []string{"GRV-LOYW3V28-X9K2"}}, nil, zap.NewNop(), config.GrievanceConfig{})
	tracking := NewTrackingService(repo, zap.NewNop())

	resp, err := svc.Create(context.Background(), validIntake())
	require.NoError(t, err)

	found, err := tracking.TrackByTrackingID(context.Background(), strings.ToLower(resp.TrackingID))
	require.NoError(t, err)
	assert.Equal(t, resp.TrackingID, found.TrackingID)
	assert.Equal(t, "At Mandal Level", found.StatusLabel)
}

type staticLabels CatalogLabels

func (s staticLabels) Labels(context.Context, string, string, string) CatalogLabels {
	return CatalogLabels(s)
}

func TestGrievanceServiceGetDetails(t *testing.T) {
	e := newEngine(t)
	e.grievances.catalog = staticLabels{Scheme: "Shadi Mubarak", District: "Hyderabad", Mandal: "Charminar"}
	g := e.submit(t)
	_, err := e.actions.PerformAction(context.Background(), g.ID, mandalOfficer.ID, dto.PerformActionRequest{
		Action: models.ActionAddNote, Note: "called the applicant",
	})
	require.NoError(t, err)

	detail, err := e.grievances.GetDetails(context.Background(), mandalOfficer.ID, g.ID)
	require.NoError(t, err)
	assert.Len(t, detail.Timeline, 2, "officers see internal notes")
	assert.False(t, detail.Timeline[1].IsPublic)
	assert.Equal(t, "Shadi Mubarak", detail.SchemeName)
	assert.Equal(t, "Charminar", detail.MandalName)

	_, err = e.grievances.GetDetails(context.Background(), otherMandalOfficer.ID, g.ID)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = e.grievances.GetDetails(context.Background(), mandalOfficer.ID, "missing")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	_, err = e.grievances.GetDetails(context.Background(), inactiveOfficer.ID, g.ID)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestGrievanceServiceListScopesByLevel(t *testing.T) {
	e := newEngine(t)
	for i := 0; i < 3; i++ {
		e.submit(t)
	}
	req := validIntake()
	req.MandalID = "mndl_golconda"
	_, err := e.grievances.Create(context.Background(), req)
	require.NoError(t, err)
	req = validIntake()
	req.SchemeID = "scheme_scholarship"
	_, err = e.grievances.Create(context.Background(), req)
	require.NoError(t, err)

	mandal, err := e.grievances.List(context.Background(), mandalOfficer.ID, dto.ListGrievancesQuery{})
	require.NoError(t, err)
	assert.Equal(t, 3, mandal.Total)

	district, err := e.grievances.List(context.Background(), districtOfficer.ID, dto.ListGrievancesQuery{})
	require.NoError(t, err)
	assert.Equal(t, 4, district.Total, "district sees both mandals but only its scheme")

	hod, err := e.grievances.List(context.Background(), hodOfficer.ID, dto.ListGrievancesQuery{})
	require.NoError(t, err)
	assert.Equal(t, 5, hod.Total)
}

func TestGrievanceServiceListFiltersAndPaging(t *testing.T) {
	e := newEngine(t)
	for i := 0; i < 12; i++ {
		e.submit(t)
	}

	page, err := e.grievances.List(context.Background(), districtOfficer.ID, dto.ListGrievancesQuery{Page: 2})
	require.NoError(t, err)
	assert.Equal(t, 12, page.Total)
	assert.Len(t, page.Data, 2)
	assert.Equal(t, 10, page.PerPage)
	assert.Equal(t, 2, page.Pagination().TotalPages)

	clamped, err := e.grievances.List(context.Background(), districtOfficer.ID, dto.ListGrievancesQuery{PerPage: 1000})
	require.NoError(t, err)
	assert.Equal(t, 100, clamped.PerPage)

	bySearch, err := e.grievances.List(context.Background(), districtOfficer.ID, dto.ListGrievancesQuery{Search: "grv-test0003"})
	require.NoError(t, err)
	assert.Equal(t, 1, bySearch.Total)

	byName, err := e.grievances.List(context.Background(), districtOfficer.ID, dto.ListGrievancesQuery{Search: "fatima"})
	require.NoError(t, err)
	assert.Equal(t, 12, byName.Total)

	byPhone, err := e.grievances.List(context.Background(), districtOfficer.ID, dto.ListGrievancesQuery{Search: "9876543210"})
	require.NoError(t, err)
	assert.Zero(t, byPhone.Total, "search covers tracking id and citizen name only")

	byStatus, err := e.grievances.List(context.Background(), districtOfficer.ID, dto.ListGrievancesQuery{Status: "resolved"})
	require.NoError(t, err)
	assert.Zero(t, byStatus.Total)
	assert.NotNil(t, byStatus.Data)

	sameDay, err := e.grievances.List(context.Background(), districtOfficer.ID, dto.ListGrievancesQuery{
		DateFrom: fixedNow.Format("2006-01-02"), DateTo: fixedNow.Format("2006-01-02"),
	})
	require.NoError(t, err)
	assert.Equal(t, 12, sameDay.Total)

	before, err := e.grievances.List(context.Background(), districtOfficer.ID, dto.ListGrievancesQuery{
		DateTo: fixedNow.Add(-48 * time.Hour).Format("2006-01-02"),
	})
	require.NoError(t, err)
	assert.Zero(t, before.Total)
}

func TestGrievanceServiceListRejectsBadQuery(t *testing.T) {
	e := newEngine(t)

	_, err := e.grievances.List(context.Background(), districtOfficer.ID, dto.ListGrievancesQuery{Status: "closed"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = e.grievances.List(context.Background(), districtOfficer.ID, dto.ListGrievancesQuery{DateFrom: "15/03/2024"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = e.grievances.List(context.Background(), districtOfficer.ID, dto.ListGrievancesQuery{DateFrom: "2024-03-20", DateTo: "2024-03-01"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}
