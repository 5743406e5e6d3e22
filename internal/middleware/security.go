package middleware

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// SecurityConfig represents security headers configuration
type SecurityConfig struct {
	HSTS           bool
	HSTSMaxAge     int
	FrameOptions   string
	ReferrerPolicy string
	CSPDirectives  []string
}

// DefaultSecurityConfig returns headers suited to a JSON API. HSTS is only
// sent when the portal is served over TLS.
func DefaultSecurityConfig(tls bool) SecurityConfig {
	return SecurityConfig{
		HSTS:           tls,
		HSTSMaxAge:     31536000,
		FrameOptions:   "DENY",
		ReferrerPolicy: "strict-origin-when-cross-origin",
		CSPDirectives: []string{
			"default-src 'none'",
			"frame-ancestors 'none'",
		},
	}
}

// SecurityHeaders adds security headers to responses
func SecurityHeaders(config SecurityConfig) gin.HandlerFunc {
	hsts := "max-age=" + strconv.Itoa(config.HSTSMaxAge) + "; includeSubDomains"
	csp := strings.Join(config.CSPDirectives, "; ")

	return func(c *gin.Context) {
		if config.HSTS {
			c.Header("Strict-Transport-Security", hsts)
		}
		c.Header("X-Frame-Options", config.FrameOptions)
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("Referrer-Policy", config.ReferrerPolicy)
		if csp != "" {
			c.Header("Content-Security-Policy", csp)
		}
		c.Next()
	}
}
