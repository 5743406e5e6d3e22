package dashboard

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/care-portal/internal/handler"
	"github.com/jwalitptl/care-portal/internal/middleware"
	"github.com/jwalitptl/care-portal/internal/model"
	"github.com/jwalitptl/care-portal/internal/service/dashboard"
	"github.com/jwalitptl/care-portal/pkg/errors"
	"github.com/jwalitptl/care-portal/pkg/httputil"
)

type Handler struct {
	svc      *dashboard.Service
	sessions handler.Sessions
	guard    middleware.Evaluator
}

func NewHandler(svc *dashboard.Service, sessions handler.Sessions, g middleware.Evaluator) *Handler {
	return &Handler{svc: svc, sessions: sessions, guard: g}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	d := r.Group("/dashboard")
	{
		d.GET("/hospital", middleware.RouteGuard(h.guard, middleware.StaticPath("/dashboard")), h.HospitalStats)
		d.GET("/permissions", middleware.RouteGuard(h.guard, middleware.StaticPath("/dashboard")), h.Permissions)
		d.GET("/lab-tests", middleware.RouteGuard(h.guard, middleware.StaticPath("/lab-tests")), h.LabTests)
	}
}

func (h *Handler) HospitalStats(c *gin.Context) {
	httputil.RespondWithSuccess(c, h.svc.HospitalStats())
}

type labTestsResponse struct {
	Tests      []model.LabTest `json:"tests"`
	Categories []string        `json:"categories"`
}

func (h *Handler) LabTests(c *gin.Context) {
	var f dashboard.LabTestFilter
	if err := c.ShouldBindQuery(&f); err != nil {
		_ = c.Error(errors.BadRequest("invalid query", err))
		return
	}
	httputil.RespondWithSuccess(c, labTestsResponse{
		Tests:      h.svc.LabTests(f),
		Categories: h.svc.LabCategories(),
	})
}

func (h *Handler) Permissions(c *gin.Context) {
	store := handler.Store(c, h.sessions)
	httputil.RespondWithSuccess(c, h.svc.Permissions(c.Request.Context(), store.Token(), store.Snapshot().User))
}
