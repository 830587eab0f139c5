package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dispatch/internal/domain"
)

const identityKey = "identity"

// Identity resolves the caller from the X-User-ID and X-User-Role headers
// and stores it on the request context. Requests without both headers are
// rejected. Authentication proper happens upstream at the gateway.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader("X-User-ID")
		role := c.GetHeader("X-User-Role")

		if userID == "" || role == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing identity headers"})
			return
		}
		if !domain.ValidRole(role) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unknown role"})
			return
		}

		c.Set(identityKey, domain.Identity{ID: userID, Role: domain.Role(role)})
		c.Next()
	}
}

// CallerFrom returns the identity set by the Identity middleware.
func CallerFrom(c *gin.Context) (domain.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return domain.Identity{}, false
	}
	id, ok := v.(domain.Identity)
	return id, ok
}
