package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/edufam/gradebook-api/internal/models"
	appErrors "github.com/edufam/gradebook-api/pkg/errors"
	"github.com/edufam/gradebook-api/pkg/response"
)

// RequireRoles blocks requests from actors outside the allowed role set.
func RequireRoles(roles ...models.Role) gin.HandlerFunc {
	allowed := make(map[models.Role]struct{}, len(roles))
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

// RequireGrading admits any role that may enter grades.
func RequireGrading() gin.HandlerFunc {
	return RequireRoles(models.RoleTeacher, models.RolePrincipal, models.RoleSchoolDirector)
}

// RequireAdministrative admits principal-level roles only.
func RequireAdministrative() gin.HandlerFunc {
	return RequireRoles(models.RolePrincipal, models.RoleSchoolDirector)
}
