package dto

import "time"

// ExportRequest selects the compliance report format.
type ExportRequest struct {
	Format string `json:"format" validate:"required,oneof=csv pdf xlsx"`
}

// ExportResult points at a rendered report.
type ExportResult struct {
	ID          string    `json:"id"`
	Format      string    `json:"format"`
	FileName    string    `json:"file_name"`
	DownloadURL string    `json:"download_url"`
	ExpiresAt   time.Time `json:"expires_at"`
}
