// Package upstream is the client for the external healthcare REST API. Every
// call returns a Result whose Outcome tells the caller whether the data is
// usable, and if not, why.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"github.com/jwalitptl/care-portal/pkg/metrics"
)

const (
	maxBodyBytes          = 1 << 20
	subscriptionErrorCode = "subscription_error"
)

var (
	errServerStatus = errors.New("upstream server error")
	// errCallerGone marks requests abandoned by the caller. They say nothing
	// about upstream health and are not counted by the breaker.
	errCallerGone = errors.New("request abandoned by caller")
)

// Config configures the API client
type Config struct {
	BaseURL            string
	Timeout            time.Duration
	BreakerMaxFailures uint32
	BreakerInterval    time.Duration
	BreakerTimeout     time.Duration
}

// Client talks to the healthcare API
type Client struct {
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	metrics *metrics.Metrics
}

func NewClient(cfg Config, m *metrics.Metrics) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.BreakerMaxFailures == 0 {
		cfg.BreakerMaxFailures = 5
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = 30 * time.Second
	}

	maxFailures := cfg.BreakerMaxFailures
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:     "healthcare-api",
		Interval: cfg.BreakerInterval,
		Timeout:  cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, errCallerGone)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Upstream circuit breaker state changed")
		},
	})

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: cfg.Timeout},
		breaker: breaker,
		metrics: m,
	}
}

type rawResponse struct {
	status int
	body   []byte
}

type errorBody struct {
	Code   string `json:"code"`
	Detail string `json:"detail"`
	Error  string `json:"error"`
}

// do performs one request and classifies the response. 5xx and transport
// failures count against the circuit breaker; 4xx and caller cancellations
// do not.
func do[T any](ctx context.Context, c *Client, endpoint, method, path, token string, payload any) Result[T] {
	start := time.Now()
	res := doRequest[T](ctx, c, method, path, token, payload)

	if c.metrics != nil {
		c.metrics.UpstreamRequests.WithLabelValues(endpoint, res.Outcome.String()).Inc()
		c.metrics.UpstreamLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}
	if !res.OK() && res.Outcome != OutcomeNotFound {
		log.Debug().
			Err(res.Err).
			Str("endpoint", endpoint).
			Str("outcome", res.Outcome.String()).
			Int("status", res.Status).
			Msg("Upstream call did not succeed")
	}
	return res
}

func doRequest[T any](ctx context.Context, c *Client, method, path, token string, payload any) Result[T] {
	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return Result[T]{Outcome: OutcomeOtherError, Err: fmt.Errorf("failed to marshal request: %w", err)}
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return Result[T]{Outcome: OutcomeOtherError, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	if err := ctx.Err(); err != nil {
		return Result[T]{Outcome: OutcomeNetworkError, Err: fmt.Errorf("%s %s: %w: %w", method, path, errCallerGone, err)}
	}

	out, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, callerErr(ctx, err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return nil, callerErr(ctx, fmt.Errorf("failed to read response: %w", err))
		}
		raw := &rawResponse{status: resp.StatusCode, body: data}
		if resp.StatusCode >= http.StatusInternalServerError {
			return raw, errServerStatus
		}
		return raw, nil
	})

	raw, _ := out.(*rawResponse)
	if err != nil && !errors.Is(err, errServerStatus) {
		return Result[T]{Outcome: OutcomeNetworkError, Err: fmt.Errorf("%s %s: %w", method, path, err)}
	}

	return classify[T](raw)
}

// callerErr tags err with errCallerGone when ctx ended before the exchange
// completed.
func callerErr(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %w", errCallerGone, err)
	}
	return err
}

func classify[T any](raw *rawResponse) Result[T] {
	var res Result[T]
	res.Status = raw.status

	if raw.status >= 200 && raw.status < 300 {
		if len(bytes.TrimSpace(raw.body)) == 0 {
			res.Outcome = OutcomeOK
			return res
		}
		if err := json.Unmarshal(raw.body, &res.Data); err != nil {
			res.Outcome = OutcomeOtherError
			res.Err = fmt.Errorf("failed to decode response: %w", err)
			return res
		}
		res.Outcome = OutcomeOK
		return res
	}

	var eb errorBody
	_ = json.Unmarshal(raw.body, &eb)
	statusErr := &StatusError{Status: raw.status, Code: eb.Code, Body: string(raw.body)}
	res.Err = statusErr

	switch {
	case raw.status == http.StatusNotFound:
		res.Outcome = OutcomeNotFound
	case raw.status == http.StatusUnauthorized, eb.Code == subscriptionErrorCode:
		res.Outcome = OutcomeUnauthorized
	default:
		res.Outcome = OutcomeOtherError
	}
	return res
}
