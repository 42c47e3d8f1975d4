package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noor-edu/archive-api/internal/dto"
	"github.com/noor-edu/archive-api/internal/service"
	appErrors "github.com/noor-edu/archive-api/pkg/errors"
	"github.com/noor-edu/archive-api/pkg/response"
)

// IngestHandler accepts content submissions for archival.
type IngestHandler struct {
	service *service.IngestionService
}

// NewIngestHandler creates a new handler.
func NewIngestHandler(svc *service.IngestionService) *IngestHandler {
	return &IngestHandler{service: svc}
}

// Submit ingests one submission. Policy violations come back as a 200
// with a rejected status; errors are reserved for infrastructure failures.
func (h *IngestHandler) Submit(c *gin.Context) {
	admin := adminFromContext(c)
	if admin == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var sub dto.Submission
	if err := c.ShouldBindJSON(&sub); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid submission payload"))
		return
	}

	res, err := h.service.Ingest(c.Request.Context(), sub, admin)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, res, nil)
}
