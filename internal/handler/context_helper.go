package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noor-edu/archive-api/internal/middleware"
	"github.com/noor-edu/archive-api/internal/models"
)

func adminFromContext(c *gin.Context) *models.Admin {
	value, exists := c.Get(middleware.ContextAdminKey)
	if !exists {
		return nil
	}
	admin, ok := value.(*models.Admin)
	if !ok {
		return nil
	}
	return admin
}

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextClaimsKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}
