package logout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/care-portal/internal/model"
	"github.com/jwalitptl/care-portal/internal/service/session"
	"github.com/jwalitptl/care-portal/internal/storage"
	"github.com/jwalitptl/care-portal/internal/upstream"
	"github.com/jwalitptl/care-portal/pkg/auth"
	"github.com/jwalitptl/care-portal/pkg/metrics"
)

type apiFunc func(token, refresh string) upstream.Result[struct{}]

func (f apiFunc) Logout(_ context.Context, token, refresh string) upstream.Result[struct{}] {
	return f(token, refresh)
}

type fixture struct {
	areas    storage.Areas
	registry *session.Registry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	areas := storage.Areas{
		Local:   storage.NewMemoryArea(time.Hour, time.Hour),
		Session: storage.NewMemoryArea(time.Hour, time.Hour),
	}
	deps := session.Deps{
		Areas:  areas,
		Issuer: auth.NewTokenIssuer("secret", time.Hour, "care-portal"),
	}
	return &fixture{areas: areas, registry: session.NewRegistry(deps, time.Minute)}
}

// newRedisFixture backs the local area with miniredis so storage calls
// observe context cancellation.
func newRedisFixture(t *testing.T) (*fixture, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	areas := storage.Areas{
		Local:   storage.NewRedisAreaFromClient(client, "", 0),
		Session: storage.NewMemoryArea(time.Hour, time.Hour),
	}
	deps := session.Deps{
		Areas:  areas,
		Issuer: auth.NewTokenIssuer("secret", time.Hour, "care-portal"),
	}
	return &fixture{areas: areas, registry: session.NewRegistry(deps, time.Minute)}, mr
}

func (f *fixture) seedAll(t *testing.T, clientID string) {
	t.Helper()
	ctx := context.Background()
	for _, area := range f.areas.All() {
		for _, k := range storage.KnownKeys {
			require.NoError(t, area.Set(ctx, clientID, k, "v-"+k))
		}
		require.NoError(t, area.Set(ctx, clientID, "theme", "dark"))
	}
	require.NoError(t, f.registry.Get(ctx, clientID).GrantDemoIdentity(ctx, &model.User{ID: "1", Role: model.RoleDoctor}))
}

func (f *fixture) assertKnownKeysGone(t *testing.T, clientID string) {
	t.Helper()
	for _, area := range f.areas.All() {
		for _, k := range storage.KnownKeys {
			_, err := area.Get(context.Background(), clientID, k)
			assert.ErrorIs(t, err, storage.ErrNotFound, "%s/%s", area.Name(), k)
		}
	}
}

func TestLogout_RemovesKnownKeysRegardlessOfUpstream(t *testing.T) {
	outcomes := []upstream.Outcome{
		upstream.OutcomeOK,
		upstream.OutcomeNotFound,
		upstream.OutcomeUnauthorized,
		upstream.OutcomeNetworkError,
		upstream.OutcomeOtherError,
	}

	for _, outcome := range outcomes {
		t.Run(outcome.String(), func(t *testing.T) {
			f := newFixture(t)
			f.seedAll(t, "c1")

			var gotToken string
			api := apiFunc(func(token, refresh string) upstream.Result[struct{}] {
				gotToken = token
				return upstream.Result[struct{}]{Outcome: outcome}
			})
			svc := NewService(f.registry, api, f.areas, 0, metrics.Nop())

			var navigated []string
			res := svc.Logout(context.Background(), "c1", Options{Navigate: func(p string) { navigated = append(navigated, p) }})

			assert.NotEmpty(t, gotToken)
			assert.Equal(t, outcome == upstream.OutcomeOK, res.UpstreamNotified)
			assert.False(t, res.Recovered)
			assert.Empty(t, res.HardRedirect)
			assert.Equal(t, []string{LoginPath}, navigated)
			f.assertKnownKeysGone(t, "c1")

			theme, err := f.areas.Local.Get(context.Background(), "c1", "theme")
			require.NoError(t, err)
			assert.Equal(t, "dark", theme)

			assert.False(t, f.registry.Get(context.Background(), "c1").Snapshot().Authenticated)
			assert.False(t, f.registry.Mirror(context.Background(), "c1").Authenticated())
		})
	}
}

func TestLogout_SkipsUpstreamWithoutToken(t *testing.T) {
	f := newFixture(t)
	called := false
	api := apiFunc(func(token, refresh string) upstream.Result[struct{}] {
		called = true
		return upstream.Result[struct{}]{Outcome: upstream.OutcomeOK}
	})

	res := NewService(f.registry, api, f.areas, 0, nil).Logout(context.Background(), "c1", Options{})

	assert.False(t, called)
	assert.Equal(t, LoginPath, res.HardRedirect)
}

func TestLogout_PanicClearsEverything(t *testing.T) {
	f := newFixture(t)
	f.seedAll(t, "c1")
	api := apiFunc(func(token, refresh string) upstream.Result[struct{}] {
		return upstream.Result[struct{}]{Outcome: upstream.OutcomeOK}
	})

	var navigated string
	res := NewService(f.registry, api, f.areas, 0, nil).Logout(context.Background(), "c1", Options{
		Dispatch: func(session.Action) { panic("store gone") },
		Navigate: func(p string) { navigated = p },
	})

	assert.True(t, res.Recovered)
	assert.Equal(t, LoginPath, navigated)
	for _, area := range f.areas.All() {
		keys, err := area.Keys(context.Background(), "c1")
		require.NoError(t, err)
		assert.Empty(t, keys, area.Name())
	}
}

func TestLogout_SecondaryLogoutErrorClearsEverything(t *testing.T) {
	f := newFixture(t)
	f.seedAll(t, "c1")
	api := apiFunc(func(token, refresh string) upstream.Result[struct{}] {
		return upstream.Result[struct{}]{Outcome: upstream.OutcomeNetworkError}
	})

	var dispatched []string
	res := NewService(f.registry, api, f.areas, 0, nil).Logout(context.Background(), "c1", Options{
		SecondaryLogout: func(context.Context) error { return errors.New("provider down") },
		Dispatch:        func(a session.Action) { dispatched = append(dispatched, a.Type) },
	})

	assert.True(t, res.Recovered)
	assert.Equal(t, []string{session.ActionLogout}, dispatched)
	_, err := f.areas.Local.Get(context.Background(), "c1", "theme")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestLogout_WaitsBeforeNavigating(t *testing.T) {
	f := newFixture(t)
	api := apiFunc(func(token, refresh string) upstream.Result[struct{}] {
		return upstream.Result[struct{}]{Outcome: upstream.OutcomeOK}
	})
	svc := NewService(f.registry, api, f.areas, 50*time.Millisecond, nil)

	start := time.Now()
	svc.Logout(context.Background(), "c1", Options{})
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start = time.Now()
	res := svc.Logout(ctx, "c1", Options{})
	assert.Less(t, time.Since(start), 50*time.Millisecond)
	assert.Equal(t, LoginPath, res.HardRedirect)
}

func TestLogout_CancelledCallerStillRemovesKeys(t *testing.T) {
	f, mr := newRedisFixture(t)
	f.seedAll(t, "c1")

	var gotRefresh string
	api := apiFunc(func(token, refresh string) upstream.Result[struct{}] {
		gotRefresh = refresh
		return upstream.Result[struct{}]{Outcome: upstream.OutcomeNetworkError}
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := NewService(f.registry, api, f.areas, 0, nil).Logout(ctx, "c1", Options{})

	assert.False(t, res.Recovered)
	assert.Equal(t, LoginPath, res.HardRedirect)
	assert.Equal(t, "v-"+storage.KeyRefreshTokenSnake, gotRefresh)
	f.assertKnownKeysGone(t, "c1")

	keys, err := f.areas.Local.Keys(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, []string{"theme"}, keys)
	assert.Len(t, mr.Keys(), 1)
}

func TestLogout_CancelledCallerRecoveryClearsEverything(t *testing.T) {
	f, mr := newRedisFixture(t)
	f.seedAll(t, "c1")
	api := apiFunc(func(token, refresh string) upstream.Result[struct{}] {
		return upstream.Result[struct{}]{Outcome: upstream.OutcomeOK}
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := NewService(f.registry, api, f.areas, 0, nil).Logout(ctx, "c1", Options{
		Dispatch: func(session.Action) { panic("store gone") },
	})

	assert.True(t, res.Recovered)
	assert.Empty(t, mr.Keys())
}
