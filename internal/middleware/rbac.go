package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/sekolahku/psb-api/internal/models"
	"github.com/sekolahku/psb-api/internal/service"
	"github.com/sekolahku/psb-api/pkg/response"
)

// RequireRoles enforces role-based access. The decision itself lives in
// service.Authorize so route guards and in-service checks agree.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := service.Authorize(ClaimsFromContext(c), roles...); err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		c.Next()
	}
}
