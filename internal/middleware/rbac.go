package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/hakplan/roster-api/internal/models"
	appErrors "github.com/hakplan/roster-api/pkg/errors"
	"github.com/hakplan/roster-api/pkg/response"
)

// RequireRoles blocks the request unless the authenticated user holds
// one of the given roles.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims := claimsValue.(*models.JWTClaims)

		if _, ok := allowed[claims.Role]; !ok {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}
