package guard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jwalitptl/care-portal/internal/model"
	"github.com/jwalitptl/care-portal/internal/service/session"
	"github.com/jwalitptl/care-portal/internal/storage"
	"github.com/jwalitptl/care-portal/internal/upstream"
	"github.com/jwalitptl/care-portal/pkg/auth"
	"github.com/jwalitptl/care-portal/pkg/metrics"
	"github.com/jwalitptl/care-portal/pkg/security"
)

const (
	demoEmail    = "mastermind@xerxez.com"
	demoPassword = "Tanzilla@tanzeem786"
)

type mockSubscriptions struct {
	mock.Mock
}

func (m *mockSubscriptions) MySubscription(ctx context.Context, token string) upstream.Result[*model.SubscriptionStatus] {
	args := m.Called(token)
	return args.Get(0).(upstream.Result[*model.SubscriptionStatus])
}

type unreachableLogin struct{}

func (unreachableLogin) Login(ctx context.Context, email, password string) upstream.Result[*model.LoginResponse] {
	return upstream.Result[*model.LoginResponse]{Outcome: upstream.OutcomeNetworkError, Err: errors.New("dial tcp: connection refused")}
}

func (unreachableLogin) Register(ctx context.Context, req *model.RegisterRequest) upstream.Result[*model.User] {
	return upstream.Result[*model.User]{Outcome: upstream.OutcomeNetworkError}
}

type fixture struct {
	registry *session.Registry
	subs     *mockSubscriptions
	guard    *Guard
}

func testRules() *model.AccessConfig {
	return model.NewAccessConfig([]model.RouteRule{
		{Prefix: "/", Public: false},
		{Prefix: "/login", Public: true},
		{Prefix: "/admin", AdminOnly: true},
		{Prefix: "/radiology", RequiredCapabilities: []string{"radiology"}},
		{Prefix: "/premium", RequiredPlans: []string{"Enterprise"}},
		{Prefix: "/strict", OnNotFound: model.FallbackClosed, OnNetworkError: model.FallbackClosed,
			OnUnauthorized: model.FallbackClosed, OnOtherError: model.FallbackClosed},
	})
}

func newFixture(t *testing.T, env string) *fixture {
	t.Helper()
	cred, err := security.NewCredential(demoEmail, demoPassword, bcrypt.MinCost)
	require.NoError(t, err)

	deps := session.Deps{
		Areas: storage.Areas{
			Local:   storage.NewMemoryArea(time.Hour, time.Hour),
			Session: storage.NewMemoryArea(time.Hour, time.Hour),
		},
		API:    unreachableLogin{},
		Demo:   cred,
		Issuer: auth.NewTokenIssuer("secret", time.Hour, "care-portal"),
	}
	f := &fixture{
		registry: session.NewRegistry(deps, time.Minute),
		subs:     &mockSubscriptions{},
	}
	cfg := Config{Env: env, DevBypassPrefix: "/dashboard-pages/", DemoEmail: demoEmail}
	f.guard = New(cfg, testRules(), f.registry, f.subs, metrics.Nop())
	return f
}

func (f *fixture) signIn(t *testing.T, clientID string, user *model.User) {
	t.Helper()
	require.NoError(t, f.registry.Get(context.Background(), clientID).GrantDemoIdentity(context.Background(), user))
}

func doctor() *model.User {
	return &model.User{ID: "d1", Email: "doc@x.y", Role: model.RoleDoctor}
}

func TestEvaluate_UnauthenticatedRedirectsWithOrigin(t *testing.T) {
	f := newFixture(t, "development")

	d := f.guard.Evaluate(context.Background(), "c1", "/SecureNeat/dashboard")

	assert.Equal(t, KindRedirectLogin, d.Kind)
	assert.Equal(t, StateDenied, d.State)
	assert.Equal(t, "/SecureNeat/dashboard", d.From)
	f.subs.AssertNotCalled(t, "MySubscription", mock.Anything)
}

func TestEvaluate_PublicRoute(t *testing.T) {
	f := newFixture(t, "development")

	d := f.guard.Evaluate(context.Background(), "c1", "/login")

	assert.Equal(t, KindRender, d.Kind)
	assert.Nil(t, d.Subscription)
}

func TestEvaluate_AdminsBypassSubscription(t *testing.T) {
	users := map[string]*model.User{
		"super admin role": {ID: "1", Role: model.RoleSuperAdmin},
		"legacy superuser": {ID: "2", IsSuperuser: true},
		"admin":            {ID: "3", Role: model.RoleAdmin},
	}

	for name, u := range users {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, "production")
			f.signIn(t, "c1", u)

			d := f.guard.Evaluate(context.Background(), "c1", "/radiology/scans")

			assert.Equal(t, KindRender, d.Kind)
			require.NotNil(t, d.Subscription)
			assert.Equal(t, model.SourceUnlimited, d.Subscription.Source)
			f.subs.AssertNotCalled(t, "MySubscription", mock.Anything)
		})
	}
}

func TestEvaluate_SubscriptionOutcomes(t *testing.T) {
	active := &model.SubscriptionStatus{PlanName: "Pro", IsCurrentlyActive: true, Source: model.SourceRemote,
		Features: map[string]bool{"radiology": true}}

	tests := []struct {
		name       string
		result     upstream.Result[*model.SubscriptionStatus]
		wantState  State
		wantSource string
		wantNil    bool
		wantWarn   bool
	}{
		{name: "ok", result: upstream.Result[*model.SubscriptionStatus]{Outcome: upstream.OutcomeOK, Data: active},
			wantState: StateAuthenticatedWithSubscription, wantSource: model.SourceRemote},
		{name: "not found", result: upstream.Result[*model.SubscriptionStatus]{Outcome: upstream.OutcomeNotFound, Status: 404},
			wantState: StateAuthenticatedNoSubscription, wantNil: true},
		{name: "unauthorized", result: upstream.Result[*model.SubscriptionStatus]{Outcome: upstream.OutcomeUnauthorized, Status: 401},
			wantState: StateAuthenticatedWithSubscription, wantSource: model.SourceDemo, wantWarn: true},
		{name: "network error", result: upstream.Result[*model.SubscriptionStatus]{Outcome: upstream.OutcomeNetworkError},
			wantState: StateAuthenticatedWithSubscription, wantSource: model.SourceOfflineDemo, wantWarn: true},
		{name: "other error", result: upstream.Result[*model.SubscriptionStatus]{Outcome: upstream.OutcomeOtherError, Status: 500},
			wantState: StateAuthenticatedNoSubscription, wantNil: true, wantWarn: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, "production")
			f.signIn(t, "c1", doctor())
			f.subs.On("MySubscription", mock.AnythingOfType("string")).Return(tt.result)

			d := f.guard.Evaluate(context.Background(), "c1", "/dashboard")

			assert.Equal(t, KindRender, d.Kind)
			assert.Equal(t, tt.wantState, d.State)
			assert.Equal(t, tt.wantWarn, d.Warning != "")
			if tt.wantNil {
				assert.Nil(t, d.Subscription)
				return
			}
			require.NotNil(t, d.Subscription)
			assert.Equal(t, tt.wantSource, d.Subscription.Source)
			assert.True(t, d.Subscription.IsCurrentlyActive)
		})
	}
}

func TestEvaluate_ClosedPolicies(t *testing.T) {
	outcomes := []upstream.Outcome{
		upstream.OutcomeNotFound,
		upstream.OutcomeUnauthorized,
		upstream.OutcomeNetworkError,
		upstream.OutcomeOtherError,
	}

	for _, outcome := range outcomes {
		t.Run(outcome.String(), func(t *testing.T) {
			f := newFixture(t, "production")
			f.signIn(t, "c1", doctor())
			f.subs.On("MySubscription", mock.Anything).Return(upstream.Result[*model.SubscriptionStatus]{Outcome: outcome})

			d := f.guard.Evaluate(context.Background(), "c1", "/strict/page")

			assert.Equal(t, KindSubscriptionRequired, d.Kind)
			assert.Equal(t, StateDenied, d.State)
			assert.Equal(t, ReasonSubscriptionUnavailable, d.Reason)
		})
	}
}

func TestEvaluate_Requirements(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		sub    *model.SubscriptionStatus
		want   Kind
		reason string
	}{
		{name: "capability granted", path: "/radiology/x",
			sub:  &model.SubscriptionStatus{PlanName: "Pro", IsCurrentlyActive: true, Source: model.SourceRemote, Features: map[string]bool{"radiology": true}},
			want: KindRender},
		{name: "capability missing", path: "/radiology/x",
			sub:  &model.SubscriptionStatus{PlanName: "Basic", IsCurrentlyActive: true, Source: model.SourceRemote},
			want: KindSubscriptionRequired, reason: ReasonCapabilityRequired},
		{name: "inactive subscription", path: "/radiology/x",
			sub:  &model.SubscriptionStatus{PlanName: "Pro", IsCurrentlyActive: false, Source: model.SourceRemote, Features: map[string]bool{"radiology": true}},
			want: KindSubscriptionRequired, reason: ReasonCapabilityRequired},
		{name: "plan matches case-insensitively", path: "/premium",
			sub:  &model.SubscriptionStatus{PlanName: "enterprise", IsCurrentlyActive: true, Source: model.SourceRemote},
			want: KindRender},
		{name: "plan mismatch", path: "/premium",
			sub:  &model.SubscriptionStatus{PlanName: "Basic", IsCurrentlyActive: true, Source: model.SourceRemote},
			want: KindSubscriptionRequired, reason: ReasonPlanRequired},
		{name: "no subscription", path: "/premium",
			want: KindSubscriptionRequired, reason: ReasonPlanRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, "production")
			f.signIn(t, "c1", doctor())
			res := upstream.Result[*model.SubscriptionStatus]{Outcome: upstream.OutcomeOK, Data: tt.sub}
			if tt.sub == nil {
				res = upstream.Result[*model.SubscriptionStatus]{Outcome: upstream.OutcomeNotFound}
			}
			f.subs.On("MySubscription", mock.Anything).Return(res)

			d := f.guard.Evaluate(context.Background(), "c1", tt.path)

			assert.Equal(t, tt.want, d.Kind)
			assert.Equal(t, tt.reason, d.Reason)
		})
	}
}

func TestEvaluate_OfflineDemoSatisfiesRequirements(t *testing.T) {
	f := newFixture(t, "production")
	f.signIn(t, "c1", doctor())
	f.subs.On("MySubscription", mock.Anything).Return(upstream.Result[*model.SubscriptionStatus]{Outcome: upstream.OutcomeNetworkError})

	d := f.guard.Evaluate(context.Background(), "c1", "/premium")

	assert.Equal(t, KindRender, d.Kind)
	assert.Equal(t, model.SourceOfflineDemo, d.Subscription.Source)
}

func TestEvaluate_AdminOnly(t *testing.T) {
	f := newFixture(t, "production")
	f.signIn(t, "c1", doctor())

	d := f.guard.Evaluate(context.Background(), "c1", "/admin/users")

	assert.Equal(t, KindSubscriptionRequired, d.Kind)
	assert.Equal(t, ReasonInsufficientRole, d.Reason)

	f.signIn(t, "c2", &model.User{ID: "a", Role: model.RoleAdmin})
	assert.Equal(t, KindRender, f.guard.Evaluate(context.Background(), "c2", "/admin/users").Kind)
}

func TestEvaluate_DevBypass(t *testing.T) {
	f := newFixture(t, "development")

	d := f.guard.Evaluate(context.Background(), "c1", "/dashboard-pages/hospital")

	assert.Equal(t, KindRender, d.Kind)
	assert.True(t, d.DevBypass)
	require.NotNil(t, d.User)
	assert.Equal(t, model.RoleSuperAdmin, d.User.Role)
	assert.True(t, f.registry.Get(context.Background(), "c1").Snapshot().Authenticated)
}

func TestEvaluate_DevBypassDisabledInProduction(t *testing.T) {
	f := newFixture(t, "production")

	d := f.guard.Evaluate(context.Background(), "c1", "/dashboard-pages/hospital")

	assert.Equal(t, KindRedirectLogin, d.Kind)
	assert.Equal(t, "/dashboard-pages/hospital", d.From)
}

func TestEvaluate_DemoLoginWithUnreachableAPI(t *testing.T) {
	f := newFixture(t, "production")
	store := f.registry.Get(context.Background(), "c1")

	res, err := store.Login(context.Background(), demoEmail, demoPassword)
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.True(t, res.Demo)
	assert.NotEmpty(t, res.Token)

	d := f.guard.Evaluate(context.Background(), "c1", "/radiology/scans")

	assert.Equal(t, KindRender, d.Kind)
	assert.Equal(t, model.SourceUnlimited, d.Subscription.Source)
	f.subs.AssertNotCalled(t, "MySubscription", mock.Anything)
}

func TestIsProduction(t *testing.T) {
	assert.True(t, IsProduction("production"))
	assert.True(t, IsProduction(" Prod "))
	assert.False(t, IsProduction("development"))
	assert.False(t, IsProduction(""))
}
