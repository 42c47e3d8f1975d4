package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noor-edu/archive-api/internal/models"
	"github.com/noor-edu/archive-api/internal/service"
	appErrors "github.com/noor-edu/archive-api/pkg/errors"
	"github.com/noor-edu/archive-api/pkg/response"
)

// RequireCapability enforces capability-mask access control. Owners pass
// implicitly via the permission service.
func RequireCapability(perms *service.PermissionService, cap models.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		value, exists := c.Get(ContextAdminKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		admin, ok := value.(*models.Admin)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		if err := perms.Require(admin, cap); err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		c.Next()
	}
}
