package repository

import (
	"context"

	"github.com/noah-isme/grievance-api/internal/models"
)

// PilotAccount is a seeded officer with its portal login.
type PilotAccount struct {
	Officer  models.Officer
	Username string
}

func strRef(s string) *string { return &s }

// PilotAccounts lists the officers of the initial rollout. The SQL seed
// migration inserts the same rows.
func PilotAccounts() []PilotAccount {
	schemes := []string{"scheme_shadi_mubarak", "scheme_scholarship"}
	return []PilotAccount{
		{Username: "mandal.charminar", Officer: models.Officer{
			ID: "off-mandal-charminar", Name: "K. Ravi", Email: "mandal.charminar@pilot.local", Phone: "9000000001",
			Role: models.RoleMandalOfficer, Level: models.LevelMandal, Designation: "Mandal Welfare Officer",
			DistrictID: "dist_hyd", MandalID: strRef("mndl_charminar"), SchemeIDs: schemes, IsActive: true,
		}},
		{Username: "mandal.golconda", Officer: models.Officer{
			ID: "off-mandal-golconda", Name: "S. Anitha", Email: "mandal.golconda@pilot.local", Phone: "9000000002",
			Role: models.RoleMandalOfficer, Level: models.LevelMandal, Designation: "Mandal Welfare Officer",
			DistrictID: "dist_hyd", MandalID: strRef("mndl_golconda"), SchemeIDs: schemes, IsActive: true,
		}},
		{Username: "district.hyd", Officer: models.Officer{
			ID: "off-district-hyd", Name: "M. Farooq", Email: "district.hyd@pilot.local", Phone: "9000000003",
			Role: models.RoleDistrictOfficer, Level: models.LevelDistrict, Designation: "District Minority Welfare Officer",
			DistrictID: "dist_hyd", SchemeIDs: schemes, IsActive: true,
		}},
		{Username: "hod.minority", Officer: models.Officer{
			ID: "off-hod-minority", Name: "P. Reddy", Email: "hod.minority@pilot.local", Phone: "9000000004",
			Role: models.RoleHOD, Level: models.LevelHOD, Designation: "Director, Minority Welfare",
			SchemeIDs: schemes, IsActive: true,
		}},
	}
}

// SeedPilot loads the pilot officers into an in-memory store, all sharing one password hash.
func SeedPilot(ctx context.Context, repo *MemoryOfficerRepository, passwordHash string) error {
	for _, acct := range PilotAccounts() {
		repo.Put(acct.Officer)
		if err := repo.SaveCredential(ctx, models.OfficerCredential{
			OfficerID: acct.Officer.ID, Username: acct.Username, PasswordHash: passwordHash,
		}); err != nil {
			return err
		}
	}
	return nil
}
