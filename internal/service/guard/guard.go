// Package guard decides whether a client may see a route. It combines the
// client's session, the route's access rule and the client's subscription,
// falling back to demo subscriptions when the healthcare API misbehaves and
// the route allows it.
package guard

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/care-portal/internal/model"
	"github.com/jwalitptl/care-portal/internal/service/access"
	"github.com/jwalitptl/care-portal/internal/service/session"
	"github.com/jwalitptl/care-portal/internal/upstream"
	"github.com/jwalitptl/care-portal/pkg/metrics"
)

// Kind is what the caller should do with a route
type Kind string

const (
	KindLoading              Kind = "loading"
	KindRender               Kind = "render"
	KindRedirectLogin        Kind = "redirect_login"
	KindSubscriptionRequired Kind = "subscription_required"
)

// State is the guard's view of the client when it decided
type State string

const (
	StateLoading                       State = "loading"
	StatePublic                        State = "public"
	StateAuthenticatedNoSubscription   State = "authenticated_no_subscription"
	StateAuthenticatedWithSubscription State = "authenticated_with_subscription"
	StateDenied                        State = "denied"
)

// Deny reasons
const (
	ReasonUnauthenticated         = "unauthenticated"
	ReasonInsufficientRole        = "insufficient_role"
	ReasonSubscriptionUnavailable = "subscription_unavailable"
	ReasonPlanRequired            = "plan_required"
	ReasonCapabilityRequired      = "capability_required"
)

// LoginPath is where unauthenticated clients are sent
const LoginPath = "/login"

// Decision is the outcome of Evaluate
type Decision struct {
	Kind         Kind                      `json:"kind"`
	State        State                     `json:"state"`
	Path         string                    `json:"path"`
	From         string                    `json:"from,omitempty"`
	Reason       string                    `json:"reason,omitempty"`
	Warning      string                    `json:"warning,omitempty"`
	Subscription *model.SubscriptionStatus `json:"subscription,omitempty"`
	User         *model.User               `json:"user,omitempty"`
	DevBypass    bool                      `json:"dev_bypass,omitempty"`
}

// SubscriptionAPI looks up the caller's subscription
type SubscriptionAPI interface {
	MySubscription(ctx context.Context, token string) upstream.Result[*model.SubscriptionStatus]
}

// Sessions resolves a client's session store
type Sessions interface {
	Get(ctx context.Context, clientID string) *session.Store
}

// Config controls environment dependent behaviour
type Config struct {
	Env             string
	DevBypassPrefix string
	DemoEmail       string
}

// Guard evaluates route access
type Guard struct {
	cfg      Config
	rules    *model.AccessConfig
	sessions Sessions
	api      SubscriptionAPI
	metrics  *metrics.Metrics
	now      func() time.Time
}

func New(cfg Config, rules *model.AccessConfig, sessions Sessions, api SubscriptionAPI, m *metrics.Metrics) *Guard {
	return &Guard{
		cfg:      cfg,
		rules:    rules,
		sessions: sessions,
		api:      api,
		metrics:  m,
		now:      time.Now,
	}
}

// Evaluate decides what clientID sees at path.
func (g *Guard) Evaluate(ctx context.Context, clientID, path string) Decision {
	d := g.evaluate(ctx, clientID, path)
	if g.metrics != nil {
		source := "none"
		if d.Subscription != nil {
			source = d.Subscription.Source
		}
		g.metrics.GuardDecisions.WithLabelValues(string(d.Kind), source).Inc()
	}
	return d
}

func (g *Guard) evaluate(ctx context.Context, clientID, path string) Decision {
	rule := g.rules.Match(path)
	if rule.Public {
		return Decision{Kind: KindRender, State: StatePublic, Path: path}
	}

	store := g.sessions.Get(ctx, clientID)
	snap := store.Snapshot()
	if snap.Loading {
		return Decision{Kind: KindLoading, State: StateLoading, Path: path}
	}

	bypassed := false
	if !snap.Authenticated {
		if !g.DevBypassApplies(path) {
			return Decision{Kind: KindRedirectLogin, State: StateDenied, Path: path, From: path, Reason: ReasonUnauthenticated}
		}
		if err := store.GrantDemoIdentity(ctx, session.DemoSuperAdmin(g.cfg.DemoEmail)); err != nil {
			log.Error().Err(err).Str("client_id", clientID).Msg("Failed to grant development identity")
			return Decision{Kind: KindRedirectLogin, State: StateDenied, Path: path, From: path, Reason: ReasonUnauthenticated}
		}
		log.Warn().Str("client_id", clientID).Str("path", path).Msg("Development bypass granted demo super admin")
		snap = store.Snapshot()
		bypassed = true
	}

	user := snap.User
	if rule.AdminOnly && !access.CanAccessAdmin(user) {
		return Decision{Kind: KindSubscriptionRequired, State: StateDenied, Path: path, Reason: ReasonInsufficientRole, User: user}
	}

	if access.HasSubscriptionBypass(user) {
		return Decision{
			Kind:         KindRender,
			State:        StateAuthenticatedWithSubscription,
			Path:         path,
			Subscription: model.UnlimitedSubscription(),
			User:         user,
			DevBypass:    bypassed,
		}
	}

	sub, warning, ok := g.resolveSubscription(ctx, store.Token(), rule)
	if !ok {
		return Decision{
			Kind:    KindSubscriptionRequired,
			State:   StateDenied,
			Path:    path,
			Reason:  ReasonSubscriptionUnavailable,
			Warning: warning,
			User:    user,
		}
	}

	if reason := unmet(rule, sub); reason != "" {
		return Decision{
			Kind:         KindSubscriptionRequired,
			State:        StateDenied,
			Path:         path,
			Reason:       reason,
			Warning:      warning,
			Subscription: sub,
			User:         user,
		}
	}

	state := StateAuthenticatedNoSubscription
	if sub != nil {
		state = StateAuthenticatedWithSubscription
	}
	return Decision{
		Kind:         KindRender,
		State:        state,
		Path:         path,
		Warning:      warning,
		Subscription: sub,
		User:         user,
		DevBypass:    bypassed,
	}
}

// resolveSubscription maps the lookup outcome through the rule's fallback
// policies. ok is false when a closed policy denies the route.
func (g *Guard) resolveSubscription(ctx context.Context, token string, rule model.RouteRule) (sub *model.SubscriptionStatus, warning string, ok bool) {
	res := g.api.MySubscription(ctx, token)

	switch res.Outcome {
	case upstream.OutcomeOK:
		return res.Data, "", true
	case upstream.OutcomeNotFound:
		if rule.OnNotFound.OrOpen() == model.FallbackClosed {
			return nil, "no subscription found", false
		}
		return nil, "", true
	case upstream.OutcomeUnauthorized:
		if rule.OnUnauthorized.OrOpen() == model.FallbackClosed {
			return nil, "subscription lookup rejected", false
		}
		return model.DemoSubscription(g.now()), "using demo subscription", true
	case upstream.OutcomeNetworkError:
		if rule.OnNetworkError.OrOpen() == model.FallbackClosed {
			return nil, "subscription service unreachable", false
		}
		return model.OfflineDemoSubscription(g.now()), "subscription service unreachable; using offline demo", true
	default:
		log.Warn().Err(res.Err).Int("status", res.Status).Msg("Subscription lookup failed")
		if rule.OnOtherError.OrOpen() == model.FallbackClosed {
			return nil, "subscription lookup failed", false
		}
		return nil, "subscription lookup failed", true
	}
}

// unmet returns the reason rule's requirements are not met by sub, or "".
// Demo and unlimited subscriptions satisfy any plan requirement.
func unmet(rule model.RouteRule, sub *model.SubscriptionStatus) string {
	if len(rule.RequiredPlans) == 0 && len(rule.RequiredCapabilities) == 0 {
		return ""
	}
	if sub == nil || !sub.IsCurrentlyActive {
		if len(rule.RequiredPlans) > 0 {
			return ReasonPlanRequired
		}
		return ReasonCapabilityRequired
	}

	if len(rule.RequiredPlans) > 0 && !planMatches(rule.RequiredPlans, sub) {
		return ReasonPlanRequired
	}
	for _, c := range rule.RequiredCapabilities {
		if !sub.HasFeature(c) {
			return ReasonCapabilityRequired
		}
	}
	return ""
}

func planMatches(plans []string, sub *model.SubscriptionStatus) bool {
	switch sub.Source {
	case model.SourceUnlimited, model.SourceDemo, model.SourceOfflineDemo:
		return true
	}
	for _, p := range plans {
		if strings.EqualFold(p, sub.PlanID) || strings.EqualFold(p, sub.PlanName) {
			return true
		}
	}
	return false
}

// DevBypassApplies reports whether unauthenticated access to path is granted
// a demo identity. It never applies in production.
func (g *Guard) DevBypassApplies(path string) bool {
	if IsProduction(g.cfg.Env) || g.cfg.DevBypassPrefix == "" {
		return false
	}
	return strings.HasPrefix(path, g.cfg.DevBypassPrefix)
}

// IsProduction reports whether env names a production deployment.
func IsProduction(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "production", "prod":
		return true
	}
	return false
}
