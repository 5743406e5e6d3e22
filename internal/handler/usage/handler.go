package usage

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/care-portal/internal/handler"
	"github.com/jwalitptl/care-portal/internal/middleware"
	"github.com/jwalitptl/care-portal/internal/model"
	"github.com/jwalitptl/care-portal/internal/service/usage"
	"github.com/jwalitptl/care-portal/pkg/errors"
	"github.com/jwalitptl/care-portal/pkg/httputil"
	"github.com/jwalitptl/care-portal/pkg/metrics"
)

// StreamPath is registered without the request timeout
const StreamPath = "/api/usage/stream"

type Handler struct {
	svc      *usage.Service
	sessions handler.Sessions
	guard    middleware.Evaluator
	watch    usage.WatchConfig
	metrics  *metrics.Metrics
}

func NewHandler(svc *usage.Service, sessions handler.Sessions, g middleware.Evaluator, watch usage.WatchConfig, m *metrics.Metrics) *Handler {
	return &Handler{svc: svc, sessions: sessions, guard: g, watch: watch, metrics: m}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	u := r.Group("/usage", middleware.RouteGuard(h.guard, middleware.StaticPath("/usage")))
	{
		u.GET("/dashboard", h.Dashboard)
		u.GET("/counters", h.Counters)
		u.GET("/alerts", h.Alerts)
		u.POST("/track", h.Track)
		u.POST("/alerts/:id/dismiss", h.DismissAlert)
		u.GET("/stream", h.Stream)
	}
}

type listResponse struct {
	Items    interface{} `json:"items"`
	Fallback bool        `json:"fallback"`
}

func (h *Handler) Dashboard(c *gin.Context) {
	token := handler.Store(c, h.sessions).Token()
	httputil.RespondWithSuccess(c, h.svc.Dashboard(c.Request.Context(), token))
}

func (h *Handler) Counters(c *gin.Context) {
	token := handler.Store(c, h.sessions).Token()
	counters, fallback := h.svc.Counters(c.Request.Context(), token)
	httputil.RespondWithSuccess(c, listResponse{Items: counters, Fallback: fallback})
}

func (h *Handler) Alerts(c *gin.Context) {
	token := handler.Store(c, h.sessions).Token()
	alerts, fallback := h.svc.Alerts(c.Request.Context(), token)
	httputil.RespondWithSuccess(c, listResponse{Items: alerts, Fallback: fallback})
}

func (h *Handler) Track(c *gin.Context) {
	var req model.TrackRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	token := handler.Store(c, h.sessions).Token()
	if err := h.svc.Track(c.Request.Context(), token, &req); err != nil {
		_ = c.Error(forwardError(err))
		return
	}
	httputil.RespondWithStatus(c, http.StatusAccepted, req)
}

func (h *Handler) DismissAlert(c *gin.Context) {
	token := handler.Store(c, h.sessions).Token()
	if err := h.svc.DismissAlert(c.Request.Context(), token, c.Param("id")); err != nil {
		_ = c.Error(forwardError(err))
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"id": c.Param("id"), "dismissed": true})
}

// Stream sends a usage snapshot right away and on every refresh tick as
// server-sent events. The pollers behind it stop before Stream returns.
func (h *Handler) Stream(c *gin.Context) {
	ctx := c.Request.Context()
	clientID := middleware.ClientID(c)
	token := handler.Store(c, h.sessions).Token()

	snaps := make(chan *model.UsageSnapshot)
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.svc.Watch(ctx, clientID, token, h.watch, h.metrics, func(s *model.UsageSnapshot) {
			select {
			case snaps <- s:
			case <-ctx.Done():
			}
		})
	}()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	for {
		select {
		case <-ctx.Done():
			<-done
			return
		case s := <-snaps:
			c.SSEvent("usage", s)
			c.Writer.Flush()
		}
	}
}

func forwardError(err error) error {
	if stderrors.Is(err, usage.ErrUpstream) {
		return errors.Unavailable(err)
	}
	return errors.Internal(err)
}
