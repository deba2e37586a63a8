package models

import "time"

// GrievanceStatus is the lifecycle state of a grievance.
type GrievanceStatus string

const (
	StatusSubmitted     GrievanceStatus = "submitted"
	StatusAtMandal      GrievanceStatus = "at_mandal"
	StatusAtDistrict    GrievanceStatus = "at_district"
	StatusAtHOD         GrievanceStatus = "at_hod"
	StatusInfoRequested GrievanceStatus = "info_requested"
	StatusResolved      GrievanceStatus = "resolved"
	StatusRejected      GrievanceStatus = "rejected"
)

// Terminal reports whether no further actions may be applied.
func (s GrievanceStatus) Terminal() bool {
	return s == StatusResolved || s == StatusRejected
}

// Valid reports whether s is a known status.
func (s GrievanceStatus) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

var statusLabels = map[GrievanceStatus]string{
	StatusSubmitted:     "Submitted - Under Review",
	StatusAtMandal:      "At Mandal Level",
	StatusAtDistrict:    "At District Level",
	StatusAtHOD:         "At HOD Level",
	StatusInfoRequested: "Additional Information Required",
	StatusResolved:      "Resolved",
	StatusRejected:      "Rejected",
}

// Label is the citizen-facing wording of a status.
func (s GrievanceStatus) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

// Level is the officer tier currently holding a grievance.
type Level int

const (
	LevelMandal   Level = 1
	LevelDistrict Level = 2
	LevelHOD      Level = 3
)

func (l Level) Valid() bool {
	return l >= LevelMandal && l <= LevelHOD
}

func (l Level) String() string {
	switch l {
	case LevelMandal:
		return "mandal"
	case LevelDistrict:
		return "district"
	case LevelHOD:
		return "hod"
	}
	return "unknown"
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Rank orders priorities from low (0) to urgent (3).
func (p Priority) Rank() int {
	switch p {
	case PriorityMedium:
		return 1
	case PriorityHigh:
		return 2
	case PriorityUrgent:
		return 3
	}
	return 0
}

// ActionType names a lifecycle event recorded on the timeline.
type ActionType string

const (
	ActionSubmit        ActionType = "submit"
	ActionForward       ActionType = "forward"
	ActionSendBack      ActionType = "send_back"
	ActionRequestInfo   ActionType = "request_info"
	ActionAddNote       ActionType = "add_note"
	ActionScheduleVisit ActionType = "schedule_visit"
	ActionResolve       ActionType = "resolve"
	ActionReject        ActionType = "reject"
)

// Citizen is the complainant. It never changes after submission.
type Citizen struct {
	Name         string  `json:"name"`
	Phone        string  `json:"phone"`
	Email        *string `json:"email,omitempty"`
	AadhaarLast4 string  `json:"aadhaar_last_4"`
}

// Grievance is the canonical record together with its audit timeline.
type Grievance struct {
	ID                string            `json:"id"`
	TrackingID        string            `json:"tracking_id"`
	SchemeID          string            `json:"scheme_id"`
	DepartmentID      string            `json:"department_id,omitempty"`
	CategoryID        string            `json:"category_id,omitempty"`
	SubcategoryID     string            `json:"subcategory_id,omitempty"`
	ApplicationNumber *string           `json:"application_number,omitempty"`
	Citizen           Citizen           `json:"citizen"`
	DistrictID        string            `json:"district_id"`
	MandalID          string            `json:"mandal_id"`
	Address           string            `json:"address"`
	SchemeDetails     map[string]string `json:"scheme_details"`
	Description       string            `json:"description"`
	HasVoiceRecording bool              `json:"has_voice_recording"`
	Attachments       []string          `json:"attachments"`
	Status            GrievanceStatus   `json:"status"`
	StatusLabel       string            `json:"status_label,omitempty"`
	CurrentLevel      Level             `json:"current_level"`
	Priority          Priority          `json:"priority"`
	SubmittedAt       time.Time         `json:"submitted_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
	ResolvedAt        *time.Time        `json:"resolved_at,omitempty"`
	Timeline          []TimelineEntry   `json:"timeline"`
}

// Clone returns a deep copy so callers can mutate without touching stored state.
func (g *Grievance) Clone() *Grievance {
	if g == nil {
		return nil
	}
	c := *g
	if g.Citizen.Email != nil {
		email := *g.Citizen.Email
		c.Citizen.Email = &email
	}
	if g.ApplicationNumber != nil {
		n := *g.ApplicationNumber
		c.ApplicationNumber = &n
	}
	if g.ResolvedAt != nil {
		t := *g.ResolvedAt
		c.ResolvedAt = &t
	}
	if g.SchemeDetails != nil {
		c.SchemeDetails = make(map[string]string, len(g.SchemeDetails))
		for k, v := range g.SchemeDetails {
			c.SchemeDetails[k] = v
		}
	}
	c.Attachments = append([]string(nil), g.Attachments...)
	c.Timeline = make([]TimelineEntry, len(g.Timeline))
	for i := range g.Timeline {
		c.Timeline[i] = g.Timeline[i].clone()
	}
	return &c
}

// PublicView returns a copy carrying the citizen status label and only the
// timeline entries marked public.
func (g *Grievance) PublicView() *Grievance {
	c := g.Clone()
	c.StatusLabel = c.Status.Label()
	public := make([]TimelineEntry, 0, len(c.Timeline))
	for _, entry := range c.Timeline {
		if entry.IsPublic {
			public = append(public, entry)
		}
	}
	c.Timeline = public
	return c
}

// LastEntry returns the most recent timeline entry, if any.
func (g *Grievance) LastEntry() (TimelineEntry, bool) {
	if len(g.Timeline) == 0 {
		return TimelineEntry{}, false
	}
	return g.Timeline[len(g.Timeline)-1], true
}

// TimelineEntry is one immutable audit record.
type TimelineEntry struct {
	ID             string          `json:"id"`
	GrievanceID    string          `json:"grievance_id"`
	Timestamp      time.Time       `json:"timestamp"`
	Action         ActionType      `json:"action"`
	FromStatus     GrievanceStatus `json:"from_status"`
	ToStatus       GrievanceStatus `json:"to_status"`
	PerformedBy    Actor           `json:"performed_by"`
	Note           *string         `json:"note,omitempty"`
	SendBackReason *string         `json:"send_back_reason,omitempty"`
	IsPublic       bool            `json:"is_public"`
}

func (e TimelineEntry) clone() TimelineEntry {
	c := e
	if e.Note != nil {
		n := *e.Note
		c.Note = &n
	}
	if e.SendBackReason != nil {
		r := *e.SendBackReason
		c.SendBackReason = &r
	}
	return c
}

// GrievanceSummary is the projection the dashboard aggregates over.
type GrievanceSummary struct {
	Status      GrievanceStatus
	Priority    Priority
	SubmittedAt time.Time
	ResolvedAt  *time.Time
}

// GrievanceFilter narrows officer listings.
type GrievanceFilter struct {
	Status     GrievanceStatus
	Priority   Priority
	SchemeID   string
	DistrictID string
	MandalID   string
	DateFrom   *time.Time
	DateTo     *time.Time
	Search     string
	Scope      *Scope
	Page       int
	PerPage    int
}

// Matches evaluates the filter against g in memory. Pagination is ignored.
func (f GrievanceFilter) Matches(g *Grievance) bool {
	if f.Scope != nil && !f.Scope.Matches(g) {
		return false
	}
	if f.Status != "" && g.Status != f.Status {
		return false
	}
	if f.Priority != "" && g.Priority != f.Priority {
		return false
	}
	if f.SchemeID != "" && g.SchemeID != f.SchemeID {
		return false
	}
	if f.DistrictID != "" && g.DistrictID != f.DistrictID {
		return false
	}
	if f.MandalID != "" && g.MandalID != f.MandalID {
		return false
	}
	if f.DateFrom != nil && g.SubmittedAt.Before(*f.DateFrom) {
		return false
	}
	if f.DateTo != nil && g.SubmittedAt.After(*f.DateTo) {
		return false
	}
	if f.Search != "" && !containsFold(g.TrackingID, f.Search) && !containsFold(g.Citizen.Name, f.Search) {
		return false
	}
	return true
}
