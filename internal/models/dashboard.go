package models

// PriorityCounts tallies grievances per priority.
type PriorityCounts struct {
	Low    int `json:"low"`
	Medium int `json:"medium"`
	High   int `json:"high"`
	Urgent int `json:"urgent"`
}

// DashboardStats summarises grievances within an officer's scope.
type DashboardStats struct {
	TotalGrievances   int            `json:"total_grievances"`
	Pending           int            `json:"pending"`
	Resolved          int            `json:"resolved"`
	Rejected          int            `json:"rejected"`
	InfoRequested     int            `json:"info_requested"`
	ResolvedThisMonth int            `json:"resolved_this_month"`
	ByPriority        PriorityCounts `json:"by_priority"`
	AtMandal          int            `json:"at_mandal"`
	AtDistrict        int            `json:"at_district"`
	AtHOD             int            `json:"at_hod"`
	AvgResolutionDays float64        `json:"avg_resolution_days"`
}
