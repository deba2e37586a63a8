package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/grievance-api/internal/dto"
	"github.com/noah-isme/grievance-api/internal/models"
	"github.com/noah-isme/grievance-api/pkg/response"
)

type grievanceCreator interface {
	Create(ctx context.Context, req dto.CreateGrievanceRequest) (*dto.CreateGrievanceResponse, error)
}

type grievanceTracker interface {
	TrackByTrackingID(ctx context.Context, raw string) (*models.Grievance, error)
	TrackByContact(ctx context.Context, mobile, aadhaarLast4 string) ([]models.Grievance, error)
}

type uploadSigner interface {
	RequestUpload(ctx context.Context, req dto.AttachmentUploadRequest) (*dto.AttachmentUploadResponse, error)
}

// CitizenHandler serves the public intake and tracking endpoints.
type CitizenHandler struct {
	grievances  grievanceCreator
	tracking    grievanceTracker
	attachments uploadSigner
}

// NewCitizenHandler constructs the handler.
func NewCitizenHandler(grievances grievanceCreator, tracking grievanceTracker, attachments uploadSigner) *CitizenHandler {
	return &CitizenHandler{grievances: grievances, tracking: tracking, attachments: attachments}
}

// Create godoc
// @Summary Submit a grievance
// @Tags Grievances
// @Accept json
// @Produce json
// @Param payload body dto.CreateGrievanceRequest true "Intake"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /grievances [post]
func (h *CitizenHandler) Create(c *gin.Context) {
	var req dto.CreateGrievanceRequest
	if !bindJSON(c, &req, "invalid grievance payload") {
		return
	}
	res, err := h.grievances.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, res)
}

// Track godoc
// @Summary Track a grievance by tracking ID
// @Tags Grievances
// @Produce json
// @Param trackingId path string true "Tracking ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /grievances/track/{trackingId} [get]
func (h *CitizenHandler) Track(c *gin.Context) {
	g, err := h.tracking.TrackByTrackingID(c.Request.Context(), c.Param("trackingId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, g)
}

// Search godoc
// @Summary Find grievances by mobile and Aadhaar suffix
// @Tags Grievances
// @Accept json
// @Produce json
// @Param payload body dto.TrackByContactRequest true "Contact"
// @Success 200 {object} response.Envelope
// @Router /grievances/search [post]
func (h *CitizenHandler) Search(c *gin.Context) {
	var req dto.TrackByContactRequest
	if !bindJSON(c, &req, "invalid search payload") {
		return
	}
	items, err := h.tracking.TrackByContact(c.Request.Context(), req.Phone, req.AadhaarLast4)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil, map[string]interface{}{"count": len(items)})
}

// UploadURL godoc
// @Summary Presigned attachment upload
// @Tags Grievances
// @Accept json
// @Produce json
// @Param payload body dto.AttachmentUploadRequest true "File"
// @Success 200 {object} response.Envelope
// @Router /grievances/attachments/upload-url [post]
func (h *CitizenHandler) UploadURL(c *gin.Context) {
	var req dto.AttachmentUploadRequest
	if !bindJSON(c, &req, "invalid upload request") {
		return
	}
	res, err := h.attachments.RequestUpload(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, res)
}
