package router

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/care-portal/internal/middleware"
	"github.com/jwalitptl/care-portal/pkg/metrics"
)

type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

type Router struct {
	engine  *gin.Engine
	config  RouterConfig
	metrics *metrics.Metrics
	health  Handler
	auth    Handler
	api     []Handler
}

type RouterConfig struct {
	Production       bool
	RateLimitEnabled bool
	RateLimit        rate.Limit
	RateBurst        int
	CORSConfig       middleware.CORSConfig
	Session          middleware.SessionConfig
	RequestTimeout   time.Duration
	MaxBodyBytes     int64
	// Paths served without the request timeout, as registered.
	LongLived []string
}

// NewRouter builds the engine with the core middleware chain. health is
// mounted without a client session; auth and api handlers get one.
func NewRouter(m *metrics.Metrics, config RouterConfig, health, auth Handler, api ...Handler) *Router {
	if config.Production {
		gin.SetMode(gin.ReleaseMode)
	}
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = 1 << 20
	}

	engine := gin.New()

	r := &Router{
		engine:  engine,
		config:  config,
		metrics: m,
		health:  health,
		auth:    auth,
		api:     api,
	}

	engine.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
		r.metricsMiddleware(),
		middleware.SecurityHeaders(middleware.DefaultSecurityConfig(config.Session.Secure)),
		middleware.CORS(config.CORSConfig),
	)

	if config.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  config.RateLimit,
			Burst: config.RateBurst,
		})
		engine.Use(rateLimiter.RateLimit())
	}

	engine.Use(
		middleware.SizeLimit(config.MaxBodyBytes),
		middleware.Timeout(config.RequestTimeout, config.LongLived...),
	)

	return r
}

func (r *Router) Setup() {
	r.health.RegisterRoutes(&r.engine.RouterGroup)

	portal := r.engine.Group("")
	portal.Use(middleware.ClientSession(r.config.Session)...)
	portal.Use(
		middleware.ErrorHandler(),
		middleware.Validation(middleware.DefaultValidationConfig()),
	)

	r.auth.RegisterRoutes(portal)

	api := portal.Group("/api", middleware.NoStore())
	for _, h := range r.api {
		h.RegisterRoutes(api)
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}

func (r *Router) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		duration := time.Since(start).Seconds()

		r.metrics.RequestDuration.WithLabelValues(c.Request.Method, path, status).Observe(duration)
		r.metrics.RequestTotal.WithLabelValues(c.Request.Method, path, status).Inc()

		if c.Writer.Status() >= 400 {
			r.metrics.ErrorTotal.WithLabelValues(c.Request.Method, path, "http").Inc()
		}
	}
}
