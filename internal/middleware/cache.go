package middleware

import (
	"github.com/gin-gonic/gin"
)

// NoStore forbids caching. Used on auth responses and on every guarded API
// route, whose payload must not outlive the session.
func NoStore() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-store")
		c.Header("Pragma", "no-cache")
		c.Next()
	}
}
