package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// CronSecretHeader carries the shared secret for internal scheduler endpoints
const CronSecretHeader = "X-Cron-Secret"

// RequireRole returns middleware that only lets the listed roles through.
// It must run after the JWT middleware, which stores the caller's role in
// the gin context.
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(c *gin.Context) {
		role := GetJWTRole(c)
		if role == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "ERR_UNAUTHORIZED",
					"message": "Authentication required",
				},
			})
			return
		}

		if _, ok := allowed[role]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "ERR_FORBIDDEN",
					"message": "Insufficient role for this resource",
				},
			})
			return
		}

		c.Next()
	}
}

// RequireAdmin restricts a route to administrators
func RequireAdmin() gin.HandlerFunc {
	return RequireRole("admin")
}

// RequireDriver restricts a route to drivers
func RequireDriver() gin.HandlerFunc {
	return RequireRole("driver")
}

// CronSecret guards internal endpoints triggered by external schedulers.
// Requests must present the configured secret in the X-Cron-Secret header.
// An empty configured secret disables the endpoints entirely rather than
// leaving them open.
func CronSecret(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		presented := c.GetHeader(CronSecretHeader)
		if secret == "" || subtle.ConstantTimeCompare([]byte(presented), []byte(secret)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "ERR_UNAUTHORIZED",
					"message": "Invalid or missing cron secret",
				},
			})
			return
		}
		c.Next()
	}
}
