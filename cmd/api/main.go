package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/care-portal/internal/config"
	authHandler "github.com/jwalitptl/care-portal/internal/handler/auth"
	dashboardHandler "github.com/jwalitptl/care-portal/internal/handler/dashboard"
	diagnosisHandler "github.com/jwalitptl/care-portal/internal/handler/diagnosis"
	"github.com/jwalitptl/care-portal/internal/handler/health"
	usageHandler "github.com/jwalitptl/care-portal/internal/handler/usage"
	"github.com/jwalitptl/care-portal/internal/handler/views"
	"github.com/jwalitptl/care-portal/internal/middleware"
	"github.com/jwalitptl/care-portal/internal/router"
	"github.com/jwalitptl/care-portal/internal/service/dashboard"
	"github.com/jwalitptl/care-portal/internal/service/diagnosis"
	"github.com/jwalitptl/care-portal/internal/service/guard"
	"github.com/jwalitptl/care-portal/internal/service/logout"
	"github.com/jwalitptl/care-portal/internal/service/session"
	"github.com/jwalitptl/care-portal/internal/service/usage"
	"github.com/jwalitptl/care-portal/internal/storage"
	"github.com/jwalitptl/care-portal/internal/upstream"
	"github.com/jwalitptl/care-portal/pkg/auth"
	"github.com/jwalitptl/care-portal/pkg/logger"
	"github.com/jwalitptl/care-portal/pkg/metrics"
	"github.com/jwalitptl/care-portal/pkg/security"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	logger.Setup(logger.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	m := metrics.NewMetrics("portal", prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Storage areas
	local, err := storage.NewRedisArea(ctx, storage.RedisConfig{
		URL:    cfg.Redis.URL,
		Prefix: cfg.Redis.KeyPrefix,
		TTL:    cfg.Redis.TTL,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer local.Close()

	areas := storage.Areas{
		Local:   local,
		Session: storage.NewMemoryArea(cfg.Session.AreaIdleTime, 10*time.Minute),
	}

	// Upstream API and demo identity
	api := upstream.NewClient(upstream.Config{
		BaseURL:            cfg.Upstream.BaseURL,
		Timeout:            cfg.Upstream.Timeout,
		BreakerMaxFailures: cfg.Upstream.BreakerMaxFailures,
		BreakerInterval:    cfg.Upstream.BreakerInterval,
		BreakerTimeout:     cfg.Upstream.BreakerTimeout,
	}, m)

	demo, err := security.NewCredential(cfg.Demo.Email, cfg.Demo.Password, cfg.Demo.BcryptCost)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to prepare demo credential")
	}
	issuer := auth.NewTokenIssuer(cfg.JWT.Secret, cfg.TokenTTL(), cfg.JWT.Issuer)

	// Services
	sessions := session.NewRegistry(session.Deps{
		Areas:   areas,
		API:     api,
		Demo:    demo,
		Issuer:  issuer,
		Metrics: m,
	}, cfg.Session.IdleTimeout)

	routeGuard := guard.New(guard.Config{
		Env:             cfg.Env,
		DevBypassPrefix: cfg.Guard.DevBypassPrefix,
		DemoEmail:       demo.Email(),
	}, cfg.AccessConfig(), sessions, api, m)

	logoutSvc := logout.NewService(sessions, api, areas, cfg.Logout.Delay, m)
	usageSvc := usage.NewService(api, areas.Local)
	dashboardSvc := dashboard.NewService(api)
	diagnosisSvc := diagnosis.NewService(cfg.Diagnosis.Delay)

	// Handlers
	healthH := health.NewHandler(map[string]health.Pinger{"redis": local}, prometheus.DefaultGatherer)
	authH := authHandler.NewHandler(sessions, logoutSvc)
	viewsH := views.NewHandler(routeGuard, dashboardSvc)
	dashboardH := dashboardHandler.NewHandler(dashboardSvc, sessions, routeGuard)
	usageH := usageHandler.NewHandler(usageSvc, sessions, routeGuard, usage.WatchConfig{
		RefreshInterval:    cfg.Poller.UsageRefresh,
		ActiveTimeInterval: cfg.Poller.ActiveTime,
	}, m)
	diagnosisH := diagnosisHandler.NewHandler(diagnosisSvc, routeGuard)

	// Setup router
	r := router.NewRouter(m, router.RouterConfig{
		Production:       cfg.IsProduction(),
		RateLimitEnabled: cfg.RateLimit.Enabled,
		RateLimit:        rate.Limit(cfg.RateLimit.RequestsPerSecond),
		RateBurst:        cfg.RateLimit.Burst,
		CORSConfig: middleware.CORSConfig{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     cfg.CORS.AllowedMethods,
			AllowHeaders:     cfg.CORS.AllowedHeaders,
			ExposeHeaders:    []string{"Content-Length", "Content-Type", middleware.HeaderXRequestID},
			AllowCredentials: true,
			MaxAge:           86400,
		},
		Session: middleware.SessionConfig{
			CookieName: cfg.Session.CookieName,
			Secret:     cfg.Session.Secret,
			MaxAge:     cfg.Session.MaxAge,
			Secure:     cfg.Session.Secure,
		},
		RequestTimeout: cfg.Server.RequestTimeout,
		LongLived:      []string{usageHandler.StreamPath},
	}, healthH, authH, viewsH, dashboardH, usageH, diagnosisH)
	r.Setup()

	// Create server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	// Start server
	go func() {
		log.Info().Int("port", cfg.Server.Port).Str("env", cfg.Env).Msg("care portal listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	<-ctx.Done()
	log.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server exited properly")
}
