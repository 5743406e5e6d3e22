package diagnosis

import (
	stderrors "errors"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/care-portal/internal/handler"
	"github.com/jwalitptl/care-portal/internal/middleware"
	"github.com/jwalitptl/care-portal/internal/model"
	"github.com/jwalitptl/care-portal/internal/service/diagnosis"
	"github.com/jwalitptl/care-portal/pkg/errors"
	"github.com/jwalitptl/care-portal/pkg/httputil"
)

type Handler struct {
	svc   *diagnosis.Service
	guard middleware.Evaluator
}

func NewHandler(svc *diagnosis.Service, g middleware.Evaluator) *Handler {
	return &Handler{svc: svc, guard: g}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/diagnosis/homeopathy",
		middleware.RouteGuard(h.guard, middleware.StaticPath("/ai-diagnosis")),
		h.Homeopathy,
	)
}

type diagnosisResponse struct {
	Results []model.DiagnosisResult `json:"results"`
}

func (h *Handler) Homeopathy(c *gin.Context) {
	var req model.DiagnosisRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	results, err := h.svc.Diagnose(c.Request.Context(), req.Symptoms)
	switch {
	case stderrors.Is(err, diagnosis.ErrNoSymptoms):
		_ = c.Error(errors.BadRequest(err.Error(), err))
		return
	case err != nil:
		_ = c.Error(errors.Internal(err))
		return
	}
	if results == nil {
		results = []model.DiagnosisResult{}
	}
	httputil.RespondWithSuccess(c, diagnosisResponse{Results: results})
}
