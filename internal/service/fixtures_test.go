package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/grievance-api/internal/dto"
	"github.com/noah-isme/grievance-api/internal/models"
	"github.com/noah-isme/grievance-api/internal/repository"
	"github.com/noah-isme/grievance-api/pkg/config"
)

var fixedNow = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }

var (
	mandalOfficer = models.Officer{
		ID: "off-mandal", Name: "K. Ravi", Role: models.RoleMandalOfficer, Level: models.LevelMandal,
		DistrictID: "dist_hyd", MandalID: strPtr("mndl_charminar"),
		SchemeIDs: []string{"scheme_shadi_mubarak"}, IsActive: true,
	}
	otherMandalOfficer = models.Officer{
		ID: "off-mandal-2", Name: "S. Rao", Role: models.RoleMandalOfficer, Level: models.LevelMandal,
		DistrictID: "dist_hyd", MandalID: strPtr("mndl_golconda"),
		SchemeIDs: []string{"scheme_shadi_mubarak"}, IsActive: true,
	}
	districtOfficer = models.Officer{
		ID: "off-district", Name: "A. Khan", Role: models.RoleDistrictOfficer, Level: models.LevelDistrict,
		DistrictID: "dist_hyd", SchemeIDs: []string{"scheme_shadi_mubarak"}, IsActive: true,
	}
	hodOfficer = models.Officer{
		ID: "off-hod", Name: "P. Reddy", Role: models.RoleHOD, Level: models.LevelHOD,
		SchemeIDs: []string{"scheme_shadi_mubarak", "scheme_scholarship"}, IsActive: true,
	}
	inactiveOfficer = models.Officer{
		ID: "off-inactive", Name: "N. Das", Role: models.RoleMandalOfficer, Level: models.LevelMandal,
		DistrictID: "dist_hyd", MandalID: strPtr("mndl_charminar"),
		SchemeIDs: []string{"scheme_shadi_mubarak"}, IsActive: false,
	}
)

// sequenceIDs hands out predetermined tracking ids, then synthesises more.
type sequenceIDs struct {
	mu  sync.Mutex
	ids []string
	n   int
}

func (s *sequenceIDs) Next() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	if len(s.ids) > 0 {
		id := s.ids[0]
		s.ids = s.ids[1:]
		return id
	}
	return fmt.Sprintf("GRV-TEST%04d-%04d", s.n, s.n)
}

type recordingNotifier struct {
	mu      sync.Mutex
	entries []models.TimelineEntry
}

func (r *recordingNotifier) GrievanceUpdated(_ context.Context, _ *models.Grievance, entry models.TimelineEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
}

type engine struct {
	repo       *repository.MemoryGrievanceRepository
	officers   *repository.MemoryOfficerRepository
	grievances *GrievanceService
	actions    *ActionService
	tracking   *TrackingService
	notifier   *recordingNotifier
}

func newEngine(t *testing.T) *engine {
	t.Helper()
	repo := repository.NewMemoryGrievanceRepository()
	officers := repository.NewMemoryOfficerRepository(mandalOfficer, otherMandalOfficer, districtOfficer, hodOfficer, inactiveOfficer)
	notifier := &recordingNotifier{}
	clock := func() time.Time { return fixedNow }
	return &engine{
		repo:     repo,
		officers: officers,
		grievances: NewGrievanceService(repo, officers, &sequenceIDs{}, nil, zap.NewNop(), config.GrievanceConfig{},
			WithGrievanceNotifier(notifier), WithGrievanceClock(clock)),
		actions:  NewActionService(repo, officers, nil, zap.NewNop(), WithActionNotifier(notifier), WithActionClock(clock)),
		tracking: NewTrackingService(repo, zap.NewNop()),
		notifier: notifier,
	}
}

func validIntake() dto.CreateGrievanceRequest {
	return dto.CreateGrievanceRequest{
		SchemeID:     "scheme_shadi_mubarak",
		DepartmentID: "dept_minority_welfare",
		CategoryID:   "cat_financial_assistance",
		Citizen: dto.CitizenInput{
			Name:         "Fatima Begum",
			Phone:        "9876543210",
			Email:        strPtr("fatima@example.com"),
			AadhaarLast4: "1234",
		},
		DistrictID:    "dist_hyd",
		MandalID:      "mndl_charminar",
		Address:       "H.No 1-2-3, Charminar, Hyderabad",
		SchemeDetails: map[string]string{"marriage_date": "2024-01-10"},
		Description:   "Assistance amount not credited after sanction.",
	}
}

func (e *engine) submit(t *testing.T) *models.Grievance {
	t.Helper()
	resp, err := e.grievances.Create(context.Background(), validIntake())
	require.NoError(t, err)
	g, err := e.repo.GetByID(context.Background(), resp.GrievanceID)
	require.NoError(t, err)
	return g
}

func (e *engine) act(t *testing.T, g *models.Grievance, officer models.Officer, action models.ActionType, note, reason string) *models.Grievance {
	t.Helper()
	updated, err := e.actions.PerformAction(context.Background(), g.ID, officer.ID, dto.PerformActionRequest{
		Action: action, Note: note, SendBackReason: reason,
	})
	require.NoError(t, err)
	return updated
}
