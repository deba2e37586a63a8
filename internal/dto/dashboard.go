package dto

import "github.com/noah-isme/grievance-api/internal/models"

// DashboardResponse wraps scoped stats with the scope they were computed for.
type DashboardResponse struct {
	Scope DashboardScope        `json:"scope"`
	Stats models.DashboardStats `json:"stats"`
}

// DashboardScope describes the jurisdiction used for aggregation.
type DashboardScope struct {
	Level      models.Level `json:"level"`
	DistrictID string       `json:"district_id,omitempty"`
	MandalID   string       `json:"mandal_id,omitempty"`
	SchemeIDs  []string     `json:"scheme_ids"`
}
