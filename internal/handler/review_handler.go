package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noor-edu/archive-api/internal/models"
	"github.com/noor-edu/archive-api/internal/service"
	"github.com/noor-edu/archive-api/pkg/response"
)

// ReviewHandler exposes the ingestion review queue.
type ReviewHandler struct {
	service *service.ReviewService
}

// NewReviewHandler creates a new handler.
func NewReviewHandler(svc *service.ReviewService) *ReviewHandler {
	return &ReviewHandler{service: svc}
}

// ListPending returns ingestion records awaiting review, oldest first.
func (h *ReviewHandler) ListPending(c *gin.Context) {
	pagination := &models.Pagination{}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		pagination.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		pagination.PageSize = size
	}

	records, err := h.service.ListPending(c.Request.Context(), pagination)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, pagination)
}

// Approve marks a pending ingestion record as approved.
func (h *ReviewHandler) Approve(c *gin.Context) {
	if err := h.service.Approve(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Reject marks a pending ingestion record as rejected.
func (h *ReviewHandler) Reject(c *gin.Context) {
	if err := h.service.Reject(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
