package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noor-edu/archive-api/internal/service"
	appErrors "github.com/noor-edu/archive-api/pkg/errors"
	"github.com/noor-edu/archive-api/pkg/response"
)

// ExportHandler serves downloadable inventory reports of the archive.
type ExportHandler struct {
	service *service.ExportService
}

// NewExportHandler creates a new handler.
func NewExportHandler(svc *service.ExportService) *ExportHandler {
	return &ExportHandler{service: svc}
}

// Inventory streams the material inventory in the requested format.
func (h *ExportHandler) Inventory(c *gin.Context) {
	format := c.DefaultQuery("format", "csv")

	var (
		payload  []byte
		mimeType string
		err      error
	)
	switch format {
	case "csv":
		payload, err = h.service.InventoryCSV(c.Request.Context())
		mimeType = "text/csv; charset=utf-8"
	case "pdf":
		payload, err = h.service.InventoryPDF(c.Request.Context())
		mimeType = "application/pdf"
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf"))
		return
	}
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", service.Filename(format)))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, mimeType, payload)
}
