package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pinger is a dependency checked by the readiness endpoint
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	checks   map[string]Pinger
	gatherer prometheus.Gatherer
}

// NewHandler creates the health handler. A nil gatherer serves the default
// registry.
func NewHandler(checks map[string]Pinger, gatherer prometheus.Gatherer) *Handler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Handler{checks: checks, gatherer: gatherer}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	health := r.Group("/health")
	{
		health.GET("/live", h.LivenessCheck)
		health.GET("/ready", h.ReadinessCheck)
	}
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{})))
}

func (h *Handler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "UP", "time": time.Now().UTC()})
}

func (h *Handler) ReadinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	down := gin.H{}
	for name, p := range h.checks {
		if err := p.Ping(ctx); err != nil {
			down[name] = err.Error()
		}
	}
	if len(down) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "DOWN", "reasons": down})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "UP"})
}
