package rbac

import (
	"net/http"
	"slices"
	"strconv"

	"callpower/internal/auth"

	"github.com/gin-gonic/gin"
)

// RequireAnyRole admits callers holding one of roles. super_admin always passes.
func RequireAnyRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		g, err := auth.Identity(c.Request.Context())
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "role required"})
			return
		}
		if !IsSuperAdmin(g.Role) && !slices.Contains(roles, g.Role) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

// RequireCampaignScope enforces the token's campaign scope on routes that
// carry a campaign id path parameter.
func RequireCampaignScope(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseInt(c.Param(param), 10, 64)
		if err != nil || id <= 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid " + param})
			return
		}
		role, _ := auth.Role(c.Request.Context())
		if !IsSuperAdmin(role) && !auth.CanAccessCampaign(c.Request.Context(), id) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}
