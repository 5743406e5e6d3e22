// Package usage serves the usage analytics views. Reads fall back to demo
// data whenever the healthcare API does not answer with usable data.
package usage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/care-portal/internal/model"
	"github.com/jwalitptl/care-portal/internal/storage"
	"github.com/jwalitptl/care-portal/internal/upstream"
)

// ActiveTimeFeature is the feature name active time is reported under
const ActiveTimeFeature = "session_time"

// API is the usage part of the healthcare API
type API interface {
	UsageDashboard(ctx context.Context, token string) upstream.Result[*model.UsageDashboard]
	UsageCounters(ctx context.Context, token string) upstream.Result[[]model.UsageCounter]
	UsageAlerts(ctx context.Context, token string) upstream.Result[[]model.UsageAlert]
	TrackUsage(ctx context.Context, token string, req *model.TrackRequest) upstream.Result[struct{}]
	DismissAlert(ctx context.Context, token, alertID string) upstream.Result[struct{}]
}

type Service struct {
	api   API
	local storage.Area
	now   func() time.Time
}

func NewService(api API, local storage.Area) *Service {
	return &Service{api: api, local: local, now: time.Now}
}

// Dashboard returns the usage dashboard. Demo data has Fallback set.
func (s *Service) Dashboard(ctx context.Context, token string) *model.UsageDashboard {
	res := s.api.UsageDashboard(ctx, token)
	if res.OK() && res.Data != nil {
		return res.Data
	}
	logFallback("dashboard", res.Outcome, res.Err)
	return demoDashboard(s.now())
}

func (s *Service) Counters(ctx context.Context, token string) ([]model.UsageCounter, bool) {
	res := s.api.UsageCounters(ctx, token)
	if res.OK() {
		return res.Data, false
	}
	logFallback("counters", res.Outcome, res.Err)
	return demoCounters(), true
}

func (s *Service) Alerts(ctx context.Context, token string) ([]model.UsageAlert, bool) {
	res := s.api.UsageAlerts(ctx, token)
	if res.OK() {
		return res.Data, false
	}
	logFallback("alerts", res.Outcome, res.Err)
	return demoAlerts(s.now()), true
}

// Snapshot gathers dashboard, counters and alerts in one value.
func (s *Service) Snapshot(ctx context.Context, token string) *model.UsageSnapshot {
	counters, _ := s.Counters(ctx, token)
	alerts, _ := s.Alerts(ctx, token)
	return &model.UsageSnapshot{
		Dashboard: s.Dashboard(ctx, token),
		Counters:  counters,
		Alerts:    alerts,
		At:        s.now().UTC(),
	}
}

// Track forwards a usage event.
func (s *Service) Track(ctx context.Context, token string, req *model.TrackRequest) error {
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	res := s.api.TrackUsage(ctx, token, req)
	if !res.OK() {
		return fmt.Errorf("failed to track usage: %w", outcomeError(res.Outcome, res.Err))
	}
	return nil
}

func (s *Service) DismissAlert(ctx context.Context, token, alertID string) error {
	res := s.api.DismissAlert(ctx, token, alertID)
	if !res.OK() {
		return fmt.Errorf("failed to dismiss alert %s: %w", alertID, outcomeError(res.Outcome, res.Err))
	}
	return nil
}

type activeTime struct {
	Month string `json:"month"`
	MS    int64  `json:"ms"`
}

// AddActiveTime adds d to the client's active time for the current month and
// returns the new total. The counter restarts when the month changes or the
// stored value cannot be read.
func (s *Service) AddActiveTime(ctx context.Context, clientID string, d time.Duration) (time.Duration, error) {
	month := s.now().UTC().Format("2006-01")
	cur := activeTime{Month: month}

	raw, err := s.local.Get(ctx, clientID, storage.KeyMonthlyActiveTime)
	switch {
	case err == nil:
		var stored activeTime
		if jerr := json.Unmarshal([]byte(raw), &stored); jerr != nil {
			log.Warn().Err(jerr).Str("client_id", clientID).Msg("Resetting unreadable monthly active time")
		} else if stored.Month == month {
			cur = stored
		}
	case !errors.Is(err, storage.ErrNotFound):
		return 0, fmt.Errorf("failed to read active time: %w", err)
	}

	cur.MS += d.Milliseconds()
	out, err := json.Marshal(cur)
	if err != nil {
		return 0, fmt.Errorf("failed to encode active time: %w", err)
	}
	if err := s.local.Set(ctx, clientID, storage.KeyMonthlyActiveTime, string(out)); err != nil {
		return 0, fmt.Errorf("failed to store active time: %w", err)
	}
	return time.Duration(cur.MS) * time.Millisecond, nil
}

// ReportActiveTime records d locally and forwards it to the API. A failed
// upstream report is logged; the local total is kept.
func (s *Service) ReportActiveTime(ctx context.Context, clientID, token string, d time.Duration) error {
	total, err := s.AddActiveTime(ctx, clientID, d)
	if err != nil {
		return err
	}

	req := &model.TrackRequest{
		Feature:  ActiveTimeFeature,
		Quantity: int(d.Seconds()),
		Metadata: model.JSONMap{"monthly_active_ms": total.Milliseconds()},
	}
	if req.Quantity < 1 {
		req.Quantity = 1
	}
	if res := s.api.TrackUsage(ctx, token, req); !res.OK() {
		log.Debug().Err(res.Err).Str("outcome", res.Outcome.String()).Msg("Active time report not accepted")
	}
	return nil
}

// ErrUpstream wraps every failed forward call
var ErrUpstream = errors.New("healthcare API request failed")

func outcomeError(o upstream.Outcome, err error) error {
	if err == nil {
		return fmt.Errorf("%w: %s", ErrUpstream, o)
	}
	return fmt.Errorf("%w: %s: %v", ErrUpstream, o, err)
}

func logFallback(what string, o upstream.Outcome, err error) {
	log.Warn().Err(err).Str("resource", what).Str("outcome", o.String()).Msg("Using demo usage data")
}
