package views

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/care-portal/internal/middleware"
	"github.com/jwalitptl/care-portal/internal/service/access"
	"github.com/jwalitptl/care-portal/internal/service/dashboard"
	"github.com/jwalitptl/care-portal/internal/service/guard"
	"github.com/jwalitptl/care-portal/pkg/errors"
	"github.com/jwalitptl/care-portal/pkg/httputil"
)

// Handler resolves portal pages. The page itself is rendered by the
// frontend; the response tells it whether and how to render.
type Handler struct {
	guard     middleware.Evaluator
	dashboard *dashboard.Service
}

func NewHandler(g middleware.Evaluator, d *dashboard.Service) *Handler {
	return &Handler{guard: g, dashboard: d}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/views/*path", middleware.RouteGuard(h.guard, middleware.ParamPath("path")), h.View)
}

type viewResponse struct {
	guard.Decision
	View         string      `json:"view"`
	Capabilities []string    `json:"capabilities"`
	Data         interface{} `json:"data,omitempty"`
}

func (h *Handler) View(c *gin.Context) {
	d, ok := middleware.Decision(c)
	if !ok {
		_ = c.Error(errors.Internal(nil))
		return
	}

	view := viewName(d.Path)
	resp := viewResponse{
		Decision:     d,
		View:         view,
		Capabilities: access.Capabilities(d.User),
	}
	switch view {
	case "dashboard":
		resp.Data = h.dashboard.HospitalStats()
	case "lab-tests":
		resp.Data = h.dashboard.LabCategories()
	case "profile":
		resp.Data = d.User
	}
	httputil.RespondWithSuccess(c, resp)
}

func viewName(path string) string {
	seg := strings.SplitN(strings.TrimPrefix(path, "/"), "/", 2)[0]
	if seg == "" {
		return "home"
	}
	return seg
}
