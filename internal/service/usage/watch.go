package usage

import (
	"context"
	"time"

	"github.com/jwalitptl/care-portal/internal/model"
	"github.com/jwalitptl/care-portal/pkg/metrics"
	"github.com/jwalitptl/care-portal/pkg/poller"
)

// WatchConfig sets the two polling intervals of a usage view
type WatchConfig struct {
	RefreshInterval    time.Duration
	ActiveTimeInterval time.Duration
}

// Watch keeps a usage view alive until ctx ends. It emits a snapshot
// immediately and then on every refresh tick, and accumulates the client's
// active time on every active time tick. Both pollers have stopped when
// Watch returns.
func (s *Service) Watch(ctx context.Context, clientID, token string, cfg WatchConfig, m *metrics.Metrics, emit func(*model.UsageSnapshot)) {
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = 30 * time.Second
	}
	if cfg.ActiveTimeInterval <= 0 {
		cfg.ActiveTimeInterval = time.Minute
	}

	refresher := poller.New("usage_refresh", cfg.RefreshInterval, func(ctx context.Context) error {
		snap := s.Snapshot(ctx, token)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		emit(snap)
		return nil
	})

	first := true
	tracker := poller.New("active_time", cfg.ActiveTimeInterval, func(ctx context.Context) error {
		if first {
			first = false
			return nil
		}
		return s.ReportActiveTime(ctx, clientID, token, cfg.ActiveTimeInterval)
	})

	for _, p := range []*poller.Poller{refresher, tracker} {
		p.OnRun = func(err error) { countRun(m, p.Name, err) }
	}

	if m != nil {
		m.ActiveViews.Inc()
		defer m.ActiveViews.Dec()
	}

	refresher.Start(ctx)
	tracker.Start(ctx)
	<-ctx.Done()
	refresher.Stop()
	tracker.Stop()
}

func countRun(m *metrics.Metrics, task string, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.PollRuns.WithLabelValues(task, status).Inc()
}
