package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/grievance-api/internal/dto"
	"github.com/noah-isme/grievance-api/internal/models"
	"github.com/noah-isme/grievance-api/internal/service"
	appErrors "github.com/noah-isme/grievance-api/pkg/errors"
	"github.com/noah-isme/grievance-api/pkg/response"
)

type grievanceReader interface {
	GetDetails(ctx context.Context, officerID, grievanceID string) (*dto.GrievanceDetail, error)
	List(ctx context.Context, officerID string, query dto.ListGrievancesQuery) (models.Page[models.Grievance], error)
}

type actionPerformer interface {
	PerformAction(ctx context.Context, grievanceID, officerID string, req dto.PerformActionRequest) (*models.Grievance, error)
}

type timelineExporter interface {
	Export(ctx context.Context, officerID, grievanceID string, req dto.ExportRequest) (*dto.ExportResult, error)
}

type attachmentLinker interface {
	Links(ctx context.Context, officerID, grievanceID string) ([]service.AttachmentLink, error)
}

// OfficerHandler serves the authenticated grievance queue.
type OfficerHandler struct {
	grievances  grievanceReader
	actions     actionPerformer
	exports     timelineExporter
	attachments attachmentLinker
}

// NewOfficerHandler constructs the handler.
func NewOfficerHandler(grievances grievanceReader, actions actionPerformer, exports timelineExporter, attachments attachmentLinker) *OfficerHandler {
	return &OfficerHandler{grievances: grievances, actions: actions, exports: exports, attachments: attachments}
}

// List godoc
// @Summary Grievances in the officer's jurisdiction
// @Tags Officer
// @Produce json
// @Security BearerAuth
// @Param status query string false "Status"
// @Param priority query string false "Priority"
// @Param scheme_id query string false "Scheme"
// @Param district_id query string false "District"
// @Param mandal_id query string false "Mandal"
// @Param date_from query string false "YYYY-MM-DD"
// @Param date_to query string false "YYYY-MM-DD"
// @Param search query string false "Tracking ID or citizen name"
// @Param page query int false "Page"
// @Param per_page query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /officer/grievances [get]
func (h *OfficerHandler) List(c *gin.Context) {
	id, ok := officerID(c)
	if !ok {
		return
	}
	var query dto.ListGrievancesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	page, err := h.grievances.List(c.Request.Context(), id, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Page(c, page)
}

// Detail godoc
// @Summary Grievance with full timeline
// @Tags Officer
// @Produce json
// @Security BearerAuth
// @Param id path string true "Grievance ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /officer/grievances/{id} [get]
func (h *OfficerHandler) Detail(c *gin.Context) {
	id, ok := officerID(c)
	if !ok {
		return
	}
	detail, err := h.grievances.GetDetails(c.Request.Context(), id, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, detail)
}

// Act godoc
// @Summary Perform a workflow action
// @Tags Officer
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Grievance ID"
// @Param payload body dto.PerformActionRequest true "Action"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /officer/grievances/{id}/actions [post]
func (h *OfficerHandler) Act(c *gin.Context) {
	id, ok := officerID(c)
	if !ok {
		return
	}
	var req dto.PerformActionRequest
	if !bindJSON(c, &req, "invalid action payload") {
		return
	}
	g, err := h.actions.PerformAction(c.Request.Context(), c.Param("id"), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, g)
}

// Export godoc
// @Summary Render a compliance export of the timeline
// @Tags Officer
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Grievance ID"
// @Param payload body dto.ExportRequest true "Format"
// @Success 201 {object} response.Envelope
// @Router /officer/grievances/{id}/export [post]
func (h *OfficerHandler) Export(c *gin.Context) {
	id, ok := officerID(c)
	if !ok {
		return
	}
	var req dto.ExportRequest
	if !bindJSON(c, &req, "invalid export payload") {
		return
	}
	res, err := h.exports.Export(c.Request.Context(), id, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, res)
}

// Attachments godoc
// @Summary Presigned download links for a grievance's attachments
// @Tags Officer
// @Produce json
// @Security BearerAuth
// @Param id path string true "Grievance ID"
// @Success 200 {object} response.Envelope
// @Router /officer/grievances/{id}/attachments [get]
func (h *OfficerHandler) Attachments(c *gin.Context) {
	id, ok := officerID(c)
	if !ok {
		return
	}
	links, err := h.attachments.Links(c.Request.Context(), id, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, links)
}
