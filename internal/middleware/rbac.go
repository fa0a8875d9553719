package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/aec-internal/requisitions-api/internal/models"
	appErrors "github.com/aec-internal/requisitions-api/pkg/errors"
	"github.com/aec-internal/requisitions-api/pkg/response"
)

// RequireDepartments gates a route to the listed departments. Route-level
// gating is coarse; per-field write authorization happens in the
// requisition service.
func RequireDepartments(departments ...models.Department) gin.HandlerFunc {
	allowed := make(map[models.Department]struct{}, len(departments))
	for _, d := range departments {
		allowed[d] = struct{}{}
	}
	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims := claimsValue.(*models.JWTClaims)

		if _, ok := allowed[claims.Department]; ok {
			c.Next()
			return
		}

		response.Error(c, appErrors.ErrForbidden)
		c.Abort()
	}
}
