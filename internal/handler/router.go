package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noor-edu/archive-api/internal/middleware"
	"github.com/noor-edu/archive-api/internal/models"
	"github.com/noor-edu/archive-api/internal/service"
)

// Handlers groups every HTTP handler plus the services the route
// middleware needs.
type Handlers struct {
	Auth       *AuthHandler
	Ingest     *IngestHandler
	Navigation *NavigationHandler
	Taxonomy   *TaxonomyHandler
	Transfer   *TransferHandler
	Export     *ExportHandler
	Review     *ReviewHandler

	AuthService *service.AuthService
	Permissions *service.PermissionService
}

// RegisterRoutes mounts the API under the given prefix. Everything except
// login requires a bearer token; mutating routes additionally require the
// matching capability.
func (h *Handlers) RegisterRoutes(r *gin.Engine, prefix string) {
	api := r.Group(prefix)

	api.POST("/auth/login", h.Auth.Login)

	authed := api.Group("")
	authed.Use(middleware.JWT(h.AuthService))

	authed.GET("/auth/me", h.Auth.Me)

	authed.POST("/ingest",
		middleware.RequireCapability(h.Permissions, models.CapUploadContent), h.Ingest.Submit)

	browse := authed.Group("", middleware.RequireCapability(h.Permissions, models.CapBrowseContent))
	browse.POST("/navigate", h.Navigation.Navigate)
	browse.GET("/navigate/view", h.Navigation.View)

	taxonomy := authed.Group("/taxonomy")
	taxonomy.GET("/sections", h.Taxonomy.ListSections)
	taxonomy.GET("/cards", h.Taxonomy.ListCards)
	taxonomy.GET("/item-types", h.Taxonomy.ListItemTypes)

	manage := taxonomy.Group("", middleware.RequireCapability(h.Permissions, models.CapManageTaxonomy))
	manage.POST("/sections", h.Taxonomy.CreateSection)
	manage.PUT("/sections/:key", h.Taxonomy.UpdateSection)
	manage.DELETE("/sections/:key", h.Taxonomy.DisableSection)
	manage.POST("/cards", h.Taxonomy.CreateCard)
	manage.POST("/item-types", h.Taxonomy.CreateItemType)
	manage.POST("/aliases", h.Taxonomy.CreateAlias)
	manage.DELETE("/aliases/:alias", h.Taxonomy.DeleteAlias)
	manage.POST("/mappings", h.Taxonomy.CreateMapping)
	manage.POST("/subject-sections", h.Taxonomy.EnableSubjectSection)
	manage.GET("/export", h.Transfer.Export)
	manage.POST("/import", h.Transfer.Import)

	review := authed.Group("/ingestions", middleware.RequireCapability(h.Permissions, models.CapApproveIngestions))
	review.GET("/pending", h.Review.ListPending)
	review.POST("/:id/approve", h.Review.Approve)
	review.POST("/:id/reject", h.Review.Reject)

	authed.GET("/materials/export",
		middleware.RequireCapability(h.Permissions, models.CapExportInventory), h.Export.Inventory)
}
