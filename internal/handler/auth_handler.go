package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noor-edu/archive-api/internal/models"
	"github.com/noor-edu/archive-api/internal/service"
	appErrors "github.com/noor-edu/archive-api/pkg/errors"
	"github.com/noor-edu/archive-api/pkg/response"
)

// AuthHandler wires HTTP endpoints to the auth service.
type AuthHandler struct {
	service *service.AuthService
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(svc *service.AuthService) *AuthHandler {
	return &AuthHandler{service: svc}
}

// Login authenticates an admin by username and password and returns an
// access token.
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid login payload"))
		return
	}

	res, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, res, nil)
}

// Me returns the authenticated admin's info.
func (h *AuthHandler) Me(c *gin.Context) {
	admin := adminFromContext(c)
	if admin == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	response.JSON(c, http.StatusOK, models.AdminInfo{
		ID:   admin.ID,
		Name: admin.Name,
		Role: admin.Role,
	}, nil)
}
