package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type AdminChecker interface {
	IsAdmin(address string) bool
}

// RequireAdmin recomputes admin status from the session address on every
// request rather than trusting a role baked into the token, so a revoked or
// switched account loses access immediately.
func RequireAdmin(checker AdminChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, ok := c.Get("wallet_address")
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}

		address, ok := v.(string)
		if !ok || !checker.IsAdmin(address) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}
