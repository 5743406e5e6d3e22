// Package handler holds helpers shared by the HTTP handlers. Each area of
// the portal has its own subpackage with a Handler exposing RegisterRoutes.
package handler

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/care-portal/internal/middleware"
	"github.com/jwalitptl/care-portal/internal/service/session"
	"github.com/jwalitptl/care-portal/pkg/errors"
)

// Sessions resolves the session store of a client
type Sessions interface {
	Get(ctx context.Context, clientID string) *session.Store
}

// Store returns the calling client's session store
func Store(c *gin.Context, sessions Sessions) *session.Store {
	return sessions.Get(c.Request.Context(), middleware.ClientID(c))
}

// BindJSON binds the request body into dst. On failure the error is attached
// to the context for the validation and error middleware, and false is
// returned.
func BindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		_ = c.Error(errors.BadRequest("invalid request body", err))
		return false
	}
	return true
}

// WantsHTML reports whether the caller is a browser navigation
func WantsHTML(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Accept"), "text/html")
}
