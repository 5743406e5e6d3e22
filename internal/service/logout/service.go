// Package logout tears down a client's session. Every step is best effort:
// logout always completes and always ends on the login page.
package logout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/care-portal/internal/service/session"
	"github.com/jwalitptl/care-portal/internal/storage"
	"github.com/jwalitptl/care-portal/internal/upstream"
	"github.com/jwalitptl/care-portal/pkg/metrics"
)

const (
	LoginPath    = "/login"
	DefaultDelay = 100 * time.Millisecond

	// cleanupTimeout bounds storage removal once it no longer follows the
	// caller's context.
	cleanupTimeout = 5 * time.Second
)

// API is the upstream logout call
type API interface {
	Logout(ctx context.Context, token, refreshToken string) upstream.Result[struct{}]
}

// Sessions resolves a client's store and mirror
type Sessions interface {
	Get(ctx context.Context, clientID string) *session.Store
	Mirror(ctx context.Context, clientID string) *session.Mirror
}

// Options are the caller supplied hooks. Nil hooks are skipped; a nil
// Dispatch goes to the client's mirror and a nil Navigate yields a hard
// redirect in the result.
type Options struct {
	Dispatch        func(session.Action)
	Navigate        func(path string)
	SecondaryLogout func(ctx context.Context) error
}

// Result describes how logout finished
type Result struct {
	HardRedirect     string `json:"hard_redirect,omitempty"`
	UpstreamNotified bool   `json:"upstream_notified"`
	Recovered        bool   `json:"recovered"`
}

type Service struct {
	sessions Sessions
	api      API
	areas    storage.Areas
	delay    time.Duration
	metrics  *metrics.Metrics
}

func NewService(sessions Sessions, api API, areas storage.Areas, delay time.Duration, m *metrics.Metrics) *Service {
	if delay < 0 {
		delay = DefaultDelay
	}
	return &Service{sessions: sessions, api: api, areas: areas, delay: delay, metrics: m}
}

// Logout signs clientID out. It never fails.
func (s *Service) Logout(ctx context.Context, clientID string, opts Options) Result {
	var res Result
	store := s.sessions.Get(ctx, clientID)

	// Key removal must finish even when the caller has gone away.
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	if err := s.run(ctx, cleanupCtx, clientID, store, opts, &res); err != nil {
		log.Warn().Err(err).Str("client_id", clientID).Msg("Logout hit an unexpected error; clearing all client storage")
		res.Recovered = true
		s.clearAll(cleanupCtx, clientID)
	}

	store.Reset()
	s.count(res)

	s.wait(ctx)
	if opts.Navigate != nil {
		opts.Navigate(LoginPath)
	} else {
		res.HardRedirect = LoginPath
	}
	return res
}

// run performs the upstream call on ctx and the remaining steps on
// cleanupCtx. A panic in any step is turned into an error.
func (s *Service) run(ctx, cleanupCtx context.Context, clientID string, store *session.Store, opts Options, res *Result) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("logout panic: %v", r)
		}
	}()

	if token := store.Token(); token != "" {
		refresh, _ := storage.GetFirst(cleanupCtx, s.areas.Local, clientID, storage.RefreshTokenKeys...)
		out := s.api.Logout(ctx, token, refresh)
		res.UpstreamNotified = out.OK()
		if !out.OK() {
			log.Debug().Err(out.Err).Str("outcome", out.Outcome.String()).Msg("Upstream logout failed; continuing")
		}
	}

	var errs []error
	for _, area := range s.areas.All() {
		if err := area.Delete(cleanupCtx, clientID, storage.KnownKeys...); err != nil {
			errs = append(errs, fmt.Errorf("failed to clear %s area: %w", area.Name(), err))
		}
	}

	if opts.SecondaryLogout != nil {
		if err := opts.SecondaryLogout(cleanupCtx); err != nil {
			errs = append(errs, fmt.Errorf("secondary logout: %w", err))
		}
	}

	logoutAction := session.Action{Type: session.ActionLogout}
	if opts.Dispatch != nil {
		opts.Dispatch(logoutAction)
	} else {
		s.sessions.Mirror(cleanupCtx, clientID).Dispatch(logoutAction)
	}

	return errors.Join(errs...)
}

func (s *Service) clearAll(ctx context.Context, clientID string) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("client_id", clientID).Msg("Failed to clear client storage")
		}
	}()

	for _, area := range s.areas.All() {
		if err := area.Clear(ctx, clientID); err != nil {
			log.Error().Err(err).Str("area", area.Name()).Str("client_id", clientID).Msg("Failed to clear client storage")
		}
	}
}

func (s *Service) wait(ctx context.Context) {
	if s.delay == 0 {
		return
	}
	t := time.NewTimer(s.delay)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

func (s *Service) count(res Result) {
	if s.metrics == nil {
		return
	}
	mode := "clean"
	if res.Recovered {
		mode = "recovered"
	}
	s.metrics.Logouts.WithLabelValues(mode).Inc()
}
