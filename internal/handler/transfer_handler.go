package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noor-edu/archive-api/internal/dto"
	"github.com/noor-edu/archive-api/internal/service"
	appErrors "github.com/noor-edu/archive-api/pkg/errors"
	"github.com/noor-edu/archive-api/pkg/response"
)

// TransferHandler moves the whole taxonomy in and out as one document,
// for seeding new environments and reviewing changes before applying them.
type TransferHandler struct {
	service *service.ImportExportService
}

// NewTransferHandler creates a new handler.
func NewTransferHandler(svc *service.ImportExportService) *TransferHandler {
	return &TransferHandler{service: svc}
}

// Export renders the full taxonomy as a portable document.
func (h *TransferHandler) Export(c *gin.Context) {
	doc, err := h.service.Export(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doc, nil)
}

// Import applies a taxonomy document. With dry_run=true nothing is
// written and the report shows what would change. With strict=true a
// document that would produce conflicts is refused before any write.
func (h *TransferHandler) Import(c *gin.Context) {
	var doc dto.TaxonomyDocument
	if err := c.ShouldBindJSON(&doc); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid taxonomy document"))
		return
	}

	dryRun := c.Query("dry_run") == "true"
	strict := c.Query("strict") == "true"

	if strict {
		preview, err := h.service.Import(c.Request.Context(), &doc, true)
		if err != nil {
			response.Error(c, err)
			return
		}
		if preview.HasConflicts() {
			response.JSON(c, http.StatusConflict, preview, nil)
			return
		}
	}

	report, err := h.service.Import(c.Request.Context(), &doc, dryRun)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}
