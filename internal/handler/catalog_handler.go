package handler

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/grievance-api/pkg/catalog"
	"github.com/noah-isme/grievance-api/pkg/response"
)

type catalogReader interface {
	Schemes(ctx context.Context) ([]catalog.Scheme, error)
	Districts(ctx context.Context) ([]catalog.District, error)
	Mandals(ctx context.Context, districtID string) ([]catalog.Mandal, error)
}

// CatalogHandler exposes the CMS reference lists used by the intake form.
type CatalogHandler struct {
	catalog catalogReader
}

// NewCatalogHandler constructs the handler.
func NewCatalogHandler(c catalogReader) *CatalogHandler {
	return &CatalogHandler{catalog: c}
}

// Schemes godoc
// @Summary Active welfare schemes
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /catalog/schemes [get]
func (h *CatalogHandler) Schemes(c *gin.Context) {
	items, err := h.catalog.Schemes(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, items)
}

// Districts godoc
// @Summary Districts
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /catalog/districts [get]
func (h *CatalogHandler) Districts(c *gin.Context) {
	items, err := h.catalog.Districts(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, items)
}

// Mandals godoc
// @Summary Mandals, optionally within one district
// @Tags Catalog
// @Produce json
// @Param district_id query string false "District"
// @Success 200 {object} response.Envelope
// @Router /catalog/mandals [get]
func (h *CatalogHandler) Mandals(c *gin.Context) {
	items, err := h.catalog.Mandals(c.Request.Context(), strings.TrimSpace(c.Query("district_id")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, items)
}
