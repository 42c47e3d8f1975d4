package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noor-edu/archive-api/internal/dto"
	"github.com/noor-edu/archive-api/internal/service"
	appErrors "github.com/noor-edu/archive-api/pkg/errors"
	"github.com/noor-edu/archive-api/pkg/response"
)

// NavigationHandler exposes the session-based content browser.
type NavigationHandler struct {
	service *service.NavigationService
}

// NewNavigationHandler creates a new handler.
func NewNavigationHandler(svc *service.NavigationService) *NavigationHandler {
	return &NavigationHandler{service: svc}
}

// Navigate applies one enter/back/reset step to a session and renders
// the resulting node.
func (h *NavigationHandler) Navigate(c *gin.Context) {
	admin := adminFromContext(c)
	if admin == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.NavigateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid navigation payload"))
		return
	}

	res, err := h.service.Navigate(c.Request.Context(), req, admin)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, res, nil)
}

// View re-renders the current node of a session without moving.
func (h *NavigationHandler) View(c *gin.Context) {
	admin := adminFromContext(c)
	if admin == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	sessionID := strings.TrimSpace(c.Query("session_id"))
	if sessionID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "session_id is required"))
		return
	}

	res, err := h.service.View(c.Request.Context(), sessionID, admin)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, res, nil)
}
