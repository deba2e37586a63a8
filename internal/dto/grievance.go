package dto

import "github.com/noah-isme/grievance-api/internal/models"

// CitizenInput is the complainant block of an intake.
type CitizenInput struct {
	Name         string  `json:"name" validate:"required,max=200"`
	Phone        string  `json:"phone" validate:"required,len=10,numeric"`
	Email        *string `json:"email" validate:"omitempty,email,max=254"`
	AadhaarLast4 string  `json:"aadhaar_last_4" validate:"required,len=4,numeric"`
}

// CreateGrievanceRequest is the payload assembled by the citizen intake form.
type CreateGrievanceRequest struct {
	SchemeID          string            `json:"scheme_id" validate:"required,max=100"`
	DepartmentID      string            `json:"department_id" validate:"max=100"`
	CategoryID        string            `json:"category_id" validate:"max=100"`
	SubcategoryID     string            `json:"subcategory_id" validate:"max=100"`
	ApplicationNumber *string           `json:"application_number" validate:"omitempty,max=100"`
	Citizen           CitizenInput      `json:"citizen"`
	DistrictID        string            `json:"district_id" validate:"required,max=100"`
	MandalID          string            `json:"mandal_id" validate:"required,max=100"`
	Address           string            `json:"address" validate:"required,max=1000"`
	SchemeDetails     map[string]string `json:"scheme_details" validate:"omitempty,max=50"`
	Description       string            `json:"description" validate:"required"`
	HasVoiceRecording bool              `json:"has_voice_recording"`
	Attachments       []string          `json:"attachments" validate:"omitempty,max=10,dive,required,max=500"`
}

// CreateGrievanceResponse returns the identifiers the citizen needs to track.
type CreateGrievanceResponse struct {
	GrievanceID string                 `json:"grievance_id"`
	TrackingID  string                 `json:"tracking_id"`
	Status      models.GrievanceStatus `json:"status"`
	StatusLabel string                 `json:"status_label"`
}

// TrackByContactRequest looks grievances up by mobile and Aadhaar suffix.
type TrackByContactRequest struct {
	Phone        string `json:"phone"`
	AadhaarLast4 string `json:"aadhaar_last_4"`
}

// PerformActionRequest is an officer decision on a grievance.
type PerformActionRequest struct {
	Action         models.ActionType `json:"action" validate:"required,oneof=forward send_back request_info add_note schedule_visit resolve reject submit"`
	Note           string            `json:"note" validate:"max=2000"`
	SendBackReason string            `json:"send_back_reason" validate:"max=2000"`
	IsPublic       *bool             `json:"is_public"`
	Priority       models.Priority   `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
}

// ListGrievancesQuery mirrors the officer list query string.
type ListGrievancesQuery struct {
	Status     string `form:"status" validate:"omitempty,oneof=submitted at_mandal at_district at_hod info_requested resolved rejected"`
	Priority   string `form:"priority" validate:"omitempty,oneof=low medium high urgent"`
	SchemeID   string `form:"scheme_id"`
	DistrictID string `form:"district_id"`
	MandalID   string `form:"mandal_id"`
	DateFrom   string `form:"date_from" validate:"omitempty,datetime=2006-01-02"`
	DateTo     string `form:"date_to" validate:"omitempty,datetime=2006-01-02"`
	Search     string `form:"search" validate:"max=100"`
	Page       int    `form:"page" validate:"omitempty,min=1"`
	PerPage    int    `form:"per_page" validate:"omitempty,min=1"`
}

// GrievanceDetail is the officer view of one grievance with catalog names.
type GrievanceDetail struct {
	*models.Grievance
	SchemeName   string `json:"scheme_name,omitempty"`
	DistrictName string `json:"district_name,omitempty"`
	MandalName   string `json:"mandal_name,omitempty"`
}

// AttachmentUploadRequest asks for a presigned upload slot.
type AttachmentUploadRequest struct {
	FileName    string `json:"file_name" validate:"required,max=200"`
	ContentType string `json:"content_type" validate:"required,oneof=application/pdf image/jpeg image/png audio/webm audio/mpeg"`
}

// AttachmentUploadResponse carries the upload URL and the reference to submit.
type AttachmentUploadResponse struct {
	UploadURL string `json:"upload_url"`
	ObjectKey string `json:"object_key"`
	ExpiresAt string `json:"expires_at"`
}
