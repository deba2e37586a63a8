package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/grievance-api/internal/middleware"
	"github.com/noah-isme/grievance-api/internal/models"
)

// Routes groups every handler mounted under the API prefix.
type Routes struct {
	Citizen   *CitizenHandler
	Officer   *OfficerHandler
	Auth      *AuthHandler
	Dashboard *DashboardHandler
	Download  *DownloadHandler
	Catalog   *CatalogHandler

	// Authenticate guards officer routes; LookupLimit throttles public lookups.
	Authenticate gin.HandlerFunc
	LookupLimit  gin.HandlerFunc
}

// Register mounts the citizen, officer and export routes on api.
func (rt Routes) Register(api *gin.RouterGroup) {
	limit := rt.LookupLimit
	if limit == nil {
		limit = func(c *gin.Context) { c.Next() }
	}

	grievances := api.Group("/grievances")
	grievances.POST("", rt.Citizen.Create)
	grievances.GET("/track/:trackingId", limit, rt.Citizen.Track)
	grievances.POST("/search", limit, rt.Citizen.Search)
	grievances.POST("/attachments/upload-url", limit, rt.Citizen.UploadURL)

	catalog := api.Group("/catalog")
	catalog.GET("/schemes", rt.Catalog.Schemes)
	catalog.GET("/districts", rt.Catalog.Districts)
	catalog.GET("/mandals", rt.Catalog.Mandals)

	auth := api.Group("/auth")
	auth.POST("/login", limit, rt.Auth.Login)
	auth.GET("/me", rt.Authenticate, rt.Auth.Me)

	officer := api.Group("/officer", rt.Authenticate, middleware.RequireLevels(models.LevelMandal, models.LevelDistrict, models.LevelHOD))
	officer.GET("/dashboard", rt.Dashboard.Officer)
	officer.GET("/grievances", rt.Officer.List)
	officer.GET("/grievances/:id", rt.Officer.Detail)
	officer.POST("/grievances/:id/actions", rt.Officer.Act)
	officer.POST("/grievances/:id/export", rt.Officer.Export)
	officer.GET("/grievances/:id/attachments", rt.Officer.Attachments)

	api.GET("/export/:token", rt.Download.Download)
}
