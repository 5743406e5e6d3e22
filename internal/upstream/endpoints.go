package upstream

import (
	"context"
	"net/http"
	"net/url"

	"github.com/jwalitptl/care-portal/internal/model"
)

// API paths
const (
	PathLogin               = "/auth/login/"
	PathRegister            = "/auth/register/"
	PathLogout              = "/auth/logout/"
	PathMySubscription      = "/api/subscriptions/my-subscription/"
	PathUsageDashboard      = "/api/usage/dashboard/"
	PathUsageCounters       = "/api/usage/counters/"
	PathUsageAlerts         = "/api/usage/alerts/"
	PathUsageTrack          = "/api/usage/track/"
	PathHospitalPermissions = "/api/hospital/management/me/permissions/"
)

func pathDismissAlert(id string) string {
	return "/api/usage/alerts/" + url.PathEscape(id) + "/dismiss/"
}

func (c *Client) Login(ctx context.Context, email, password string) Result[*model.LoginResponse] {
	return do[*model.LoginResponse](ctx, c, "login", http.MethodPost, PathLogin, "", map[string]string{
		"email":    email,
		"password": password,
	})
}

func (c *Client) Register(ctx context.Context, req *model.RegisterRequest) Result[*model.User] {
	return do[*model.User](ctx, c, "register", http.MethodPost, PathRegister, "", req)
}

func (c *Client) Logout(ctx context.Context, token, refreshToken string) Result[struct{}] {
	var payload any
	if refreshToken != "" {
		payload = map[string]string{"refresh": refreshToken}
	}
	return do[struct{}](ctx, c, "logout", http.MethodPost, PathLogout, token, payload)
}

// MySubscription fetches the caller's subscription. A 404 means the user has
// none.
func (c *Client) MySubscription(ctx context.Context, token string) Result[*model.SubscriptionStatus] {
	res := do[*model.SubscriptionStatus](ctx, c, "my_subscription", http.MethodGet, PathMySubscription, token, nil)
	if res.OK() && res.Data != nil {
		res.Data.Source = model.SourceRemote
	}
	return res
}

func (c *Client) UsageDashboard(ctx context.Context, token string) Result[*model.UsageDashboard] {
	return do[*model.UsageDashboard](ctx, c, "usage_dashboard", http.MethodGet, PathUsageDashboard, token, nil)
}

func (c *Client) UsageCounters(ctx context.Context, token string) Result[[]model.UsageCounter] {
	return do[[]model.UsageCounter](ctx, c, "usage_counters", http.MethodGet, PathUsageCounters, token, nil)
}

func (c *Client) UsageAlerts(ctx context.Context, token string) Result[[]model.UsageAlert] {
	return do[[]model.UsageAlert](ctx, c, "usage_alerts", http.MethodGet, PathUsageAlerts, token, nil)
}

func (c *Client) TrackUsage(ctx context.Context, token string, req *model.TrackRequest) Result[struct{}] {
	return do[struct{}](ctx, c, "usage_track", http.MethodPost, PathUsageTrack, token, req)
}

func (c *Client) DismissAlert(ctx context.Context, token, alertID string) Result[struct{}] {
	return do[struct{}](ctx, c, "usage_alert_dismiss", http.MethodPost, pathDismissAlert(alertID), token, nil)
}

func (c *Client) HospitalPermissions(ctx context.Context, token string) Result[*model.HospitalPermissions] {
	return do[*model.HospitalPermissions](ctx, c, "hospital_permissions", http.MethodGet, PathHospitalPermissions, token, nil)
}
