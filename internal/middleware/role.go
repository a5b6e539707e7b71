package middleware

import (
	"net/http"
	"strings"

	"github.com/franciscosanchezn/gin-user-manager/internal/models"
	"github.com/gin-gonic/gin"
)

// RequireRole is a middleware that checks the authenticated user holds one of the roles.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	allowed := make(map[models.Role]struct{}, len(roles))
	names := make([]string, 0, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
		names = append(names, string(r))
	}

	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				models.NewAPIError(models.ErrUnauthorized, "Authentication required"))
			return
		}

		if _, ok := allowed[user.Role]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, models.NewAPIError(models.ErrForbidden,
				"Insufficient permissions", map[string]interface{}{
					"required_role": strings.Join(names, ","),
					"user_role":     user.Role,
					"user_id":       user.ID,
				}))
			return
		}

		c.Next()
	}
}
