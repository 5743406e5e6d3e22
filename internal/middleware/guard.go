package middleware

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/care-portal/internal/service/guard"
	"github.com/jwalitptl/care-portal/pkg/errors"
	"github.com/jwalitptl/care-portal/pkg/httputil"
)

const ContextDecision = "guard_decision"

// Evaluator decides route access for a client
type Evaluator interface {
	Evaluate(ctx context.Context, clientID, path string) guard.Decision
}

// PathFunc picks the portal route a request is guarded as
type PathFunc func(c *gin.Context) string

// StaticPath guards every request as path
func StaticPath(path string) PathFunc {
	return func(*gin.Context) string { return path }
}

// ParamPath guards a request as the value of a wildcard parameter
func ParamPath(name string) PathFunc {
	return func(c *gin.Context) string {
		p := c.Param(name)
		if !strings.HasPrefix(p, "/") {
			p = "/" + p
		}
		return p
	}
}

// RouteGuard evaluates the guard for the request and only lets rendered
// decisions through. Browsers are redirected to the login page, API
// clients get the decision as the error details.
func RouteGuard(g Evaluator, pathOf PathFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		d := g.Evaluate(c.Request.Context(), ClientID(c), pathOf(c))

		switch d.Kind {
		case guard.KindRender:
			c.Set(ContextDecision, d)
			c.Next()
		case guard.KindLoading:
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, httputil.Response{Success: false, Data: d})
		case guard.KindRedirectLogin:
			if wantsHTML(c) {
				c.Redirect(http.StatusFound, LoginLocation(d.From))
				c.Abort()
				return
			}
			httputil.RespondWithErrorDetails(c, errors.Unauthorized(nil), d)
		default:
			httputil.RespondWithErrorDetails(c, errors.PaymentRequired("subscription required"), d)
		}
	}
}

// LoginLocation is the login URL that returns to from after signing in
func LoginLocation(from string) string {
	if from == "" {
		return guard.LoginPath
	}
	return guard.LoginPath + "?from=" + url.QueryEscape(from)
}

// Decision returns the decision RouteGuard rendered the request with
func Decision(c *gin.Context) (guard.Decision, bool) {
	v, ok := c.Get(ContextDecision)
	if !ok {
		return guard.Decision{}, false
	}
	d, ok := v.(guard.Decision)
	return d, ok
}

func wantsHTML(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Accept"), "text/html")
}
