package auth

import (
	"context"
	stderrors "errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/care-portal/internal/handler"
	"github.com/jwalitptl/care-portal/internal/middleware"
	"github.com/jwalitptl/care-portal/internal/model"
	"github.com/jwalitptl/care-portal/internal/service/logout"
	"github.com/jwalitptl/care-portal/internal/service/session"
	"github.com/jwalitptl/care-portal/internal/upstream"
	"github.com/jwalitptl/care-portal/pkg/errors"
	"github.com/jwalitptl/care-portal/pkg/httputil"
)

// Sessions resolves a client's store and mirror
type Sessions interface {
	Get(ctx context.Context, clientID string) *session.Store
	Mirror(ctx context.Context, clientID string) *session.Mirror
}

type Logouter interface {
	Logout(ctx context.Context, clientID string, opts logout.Options) logout.Result
}

type Handler struct {
	sessions Sessions
	logout   Logouter
}

func NewHandler(sessions Sessions, l Logouter) *Handler {
	return &Handler{sessions: sessions, logout: l}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	auth := r.Group("/auth", middleware.NoStore())
	{
		auth.POST("/login", h.Login)
		auth.POST("/register", h.Register)
		auth.POST("/logout", h.Logout)
		auth.GET("/session", h.Session)
	}
}

type loginResponse struct {
	User     *model.User `json:"user"`
	Demo     bool        `json:"demo"`
	Redirect string      `json:"redirect"`
}

func (h *Handler) Login(c *gin.Context) {
	var req model.LoginRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	res, err := handler.Store(c, h.sessions).Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		_ = c.Error(errors.Internal(err))
		return
	}
	if !res.Success {
		httputil.RespondWithError(c, &errors.AppError{Code: errors.ErrUnauthorized, Message: res.Message})
		return
	}

	redirect := c.Query("from")
	if !strings.HasPrefix(redirect, "/") || strings.HasPrefix(redirect, "//") {
		redirect = "/dashboard"
	}
	httputil.RespondWithSuccess(c, loginResponse{User: res.User, Demo: res.Demo, Redirect: redirect})
}

func (h *Handler) Register(c *gin.Context) {
	var req model.RegisterRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	res := handler.Store(c, h.sessions).Register(c.Request.Context(), &req)
	switch res.Outcome {
	case upstream.OutcomeOK:
		httputil.RespondWithStatus(c, http.StatusCreated, res.Data)
	case upstream.OutcomeNetworkError:
		httputil.RespondWithError(c, errors.Unavailable(res.Err))
	default:
		msg := "registration rejected"
		var se *upstream.StatusError
		if stderrors.As(res.Err, &se) && se.Status == http.StatusBadRequest {
			msg = "registration rejected: " + se.Body
		}
		log.Warn().Err(res.Err).Str("outcome", res.Outcome.String()).Msg("Registration failed")
		httputil.RespondWithError(c, errors.BadRequest(msg, res.Err))
	}
}

// Logout always succeeds. Browsers are sent to the login page, API clients
// receive the location to navigate to.
func (h *Handler) Logout(c *gin.Context) {
	res := h.logout.Logout(c.Request.Context(), middleware.ClientID(c), logout.Options{})

	if handler.WantsHTML(c) {
		c.Redirect(http.StatusSeeOther, res.HardRedirect)
		return
	}
	httputil.RespondWithSuccess(c, res)
}

type sessionResponse struct {
	model.Session
	Consistent bool `json:"consistent"`
}

func (h *Handler) Session(c *gin.Context) {
	ctx := c.Request.Context()
	clientID := middleware.ClientID(c)
	store := h.sessions.Get(ctx, clientID)

	consistent := h.sessions.Mirror(ctx, clientID).Verify(store)
	httputil.RespondWithSuccess(c, sessionResponse{Session: store.Snapshot(), Consistent: consistent})
}
