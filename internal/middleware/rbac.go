package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/patil-rushikesh/FDW-backend/internal/models"
	appErrors "github.com/patil-rushikesh/FDW-backend/pkg/errors"
	"github.com/patil-rushikesh/FDW-backend/pkg/response"
)

// RequireRoles lets a request through only when the authenticated role is listed.
// Record-level checks such as ownership and department scope stay in the services.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(c *gin.Context) {
		value, exists := c.Get(ContextUserKey)
		claims, ok := value.(*models.JWTClaims)
		if !exists || !ok || claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		if _, ok := allowed[claims.Role]; !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "role "+string(claims.Role)+" may not access this resource"))
			c.Abort()
			return
		}
		c.Next()
	}
}
