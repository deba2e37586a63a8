// Package catalog reads the scheme and location catalogs served by the CMS.
package catalog

import "context"

type Scheme struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Code         string `json:"code"`
	DepartmentID string `json:"department_id"`
	CategoryID   string `json:"category_id"`
	IsActive     bool   `json:"is_active"`
}

type District struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Code string `json:"code"`
}

type Mandal struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Code       string `json:"code"`
	DistrictID string `json:"district_id"`
}

// Source lists catalog entries.
type Source interface {
	Schemes(ctx context.Context) ([]Scheme, error)
	Districts(ctx context.Context) ([]District, error)
	Mandals(ctx context.Context) ([]Mandal, error)
}

// Static serves a fixed catalog. It backs deployments without a CMS.
type Static struct {
	SchemeList   []Scheme
	DistrictList []District
	MandalList   []Mandal
}

func (s Static) Schemes(context.Context) ([]Scheme, error)     { return s.SchemeList, nil }
func (s Static) Districts(context.Context) ([]District, error) { return s.DistrictList, nil }
func (s Static) Mandals(context.Context) ([]Mandal, error)     { return s.MandalList, nil }

// Pilot is the catalog of the initial rollout.
func Pilot() Static {
	return Static{
		SchemeList: []Scheme{
			{ID: "scheme_shadi_mubarak", Name: "Shadi Mubarak", Code: "SM", DepartmentID: "dept_minority_welfare", CategoryID: "cat_financial_assistance", IsActive: true},
			{ID: "scheme_scholarship", Name: "Post Matric Scholarship", Code: "PMS", DepartmentID: "dept_minority_welfare", CategoryID: "cat_education", IsActive: true},
		},
		DistrictList: []District{
			{ID: "dist_hyd", Name: "Hyderabad", Code: "HYD"},
			{ID: "dist_rng", Name: "Rangareddy", Code: "RNG"},
		},
		MandalList: []Mandal{
			{ID: "mndl_charminar", Name: "Charminar", Code: "CHR", DistrictID: "dist_hyd"},
			{ID: "mndl_golconda", Name: "Golconda", Code: "GLC", DistrictID: "dist_hyd"},
			{ID: "mndl_secunderabad", Name: "Secunderabad", Code: "SEC", DistrictID: "dist_hyd"},
			{ID: "mndl_rajendranagar", Name: "Rajendranagar", Code: "RJN", DistrictID: "dist_rng"},
			{ID: "mndl_shamshabad", Name: "Shamshabad", Code: "SHM", DistrictID: "dist_rng"},
		},
	}
}
