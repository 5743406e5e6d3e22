// Package session owns the authentication state of each browser client. A
// Store is the single authoritative owner of a client's session; every other
// view of that state (the Mirror) is derived from it by subscription.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/care-portal/internal/model"
	"github.com/jwalitptl/care-portal/internal/storage"
	"github.com/jwalitptl/care-portal/internal/upstream"
	"github.com/jwalitptl/care-portal/pkg/metrics"
	"github.com/jwalitptl/care-portal/pkg/security"
)

// API is the part of the healthcare API the session store calls
type API interface {
	Login(ctx context.Context, email, password string) upstream.Result[*model.LoginResponse]
	Register(ctx context.Context, req *model.RegisterRequest) upstream.Result[*model.User]
}

// TokenIssuer mints tokens for demo identities
type TokenIssuer interface {
	Issue(user *model.User) (string, error)
}

// EventKind names a session transition
type EventKind string

const (
	EventRestore EventKind = "restore"
	EventLogin   EventKind = "login"
	EventLogout  EventKind = "logout"
)

// Event is published to subscribers after every transition
type Event struct {
	Kind     EventKind
	ClientID string
	Session  model.Session
}

// LoginResult is returned by Login
type LoginResult struct {
	Success bool        `json:"success"`
	User    *model.User `json:"user,omitempty"`
	Token   string      `json:"token,omitempty"`
	Demo    bool        `json:"demo"`
	Message string      `json:"message,omitempty"`
}

// Deps are shared by every Store
type Deps struct {
	Areas   storage.Areas
	API     API
	Demo    *security.Credential
	Issuer  TokenIssuer
	Metrics *metrics.Metrics
}

// Store holds one client's session.
type Store struct {
	clientID string
	deps     Deps

	mu    sync.RWMutex
	state model.Session
	token string

	subMu   sync.Mutex
	subs    map[int]func(Event)
	nextSub int
}

func NewStore(clientID string, deps Deps) *Store {
	return &Store{
		clientID: clientID,
		deps:     deps,
		state:    model.Session{Loading: true},
		subs:     make(map[int]func(Event)),
	}
}

func (s *Store) ClientID() string {
	return s.clientID
}

// RestoreSession rebuilds the session from the local area. The client is
// authenticated only when both a user record and a token are stored. Read
// and parse failures leave the client unauthenticated and are logged.
func (s *Store) RestoreSession(ctx context.Context) model.Session {
	s.mu.Lock()
	s.state.Loading = true
	s.mu.Unlock()

	user, token, err := s.readPersisted(ctx)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		log.Warn().Err(err).Str("client_id", s.clientID).Msg("Failed to restore session")
	}

	s.mu.Lock()
	if err != nil || user == nil || token == "" {
		s.state = model.Session{}
		s.token = ""
	} else {
		s.state = model.Session{Authenticated: true, User: user}
		s.token = token
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.publish(EventRestore, snap)
	return snap
}

func (s *Store) readPersisted(ctx context.Context) (*model.User, string, error) {
	local := s.deps.Areas.Local

	raw, err := local.Get(ctx, s.clientID, storage.KeyUser)
	if err != nil {
		return nil, "", err
	}
	token, err := storage.GetFirst(ctx, local, s.clientID, storage.TokenKeys...)
	if err != nil {
		return nil, "", err
	}

	var user model.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return nil, "", fmt.Errorf("failed to parse stored user: %w", err)
	}
	user.Normalize()
	return &user, token, nil
}

// Login authenticates against the API. When the API does not accept the
// credentials for any reason, the configured demo super admin credential is
// tried before giving up.
func (s *Store) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	res := s.deps.API.Login(ctx, email, password)
	if res.OK() && res.Data != nil && res.Data.User != nil && res.Data.Access() != "" {
		user := res.Data.User
		user.Normalize()
		if err := s.establish(ctx, user, res.Data.Access(), res.Data.RefreshToken, false); err != nil {
			return nil, err
		}
		s.countLogin("success")
		return &LoginResult{Success: true, User: copyUser(user), Token: res.Data.Access()}, nil
	}

	if s.deps.Demo.Matches(email, password) {
		log.Warn().
			Str("client_id", s.clientID).
			Str("outcome", res.Outcome.String()).
			Msg("Healthcare API login failed; using demo super admin credential")

		user := DemoSuperAdmin(s.deps.Demo.Email())
		token, err := s.deps.Issuer.Issue(user)
		if err != nil {
			return nil, fmt.Errorf("failed to issue demo token: %w", err)
		}
		if err := s.establish(ctx, user, token, "", true); err != nil {
			return nil, err
		}
		s.countLogin("demo")
		return &LoginResult{Success: true, User: copyUser(user), Token: token, Demo: true}, nil
	}

	s.countLogin("failure")
	msg := "invalid credentials"
	if res.Outcome == upstream.OutcomeNetworkError {
		msg = "authentication service unavailable"
	}
	return &LoginResult{Success: false, Message: msg}, nil
}

// GrantDemoIdentity signs the client in as user with a freshly minted demo
// token.
func (s *Store) GrantDemoIdentity(ctx context.Context, user *model.User) error {
	user.Normalize()
	token, err := s.deps.Issuer.Issue(user)
	if err != nil {
		return fmt.Errorf("failed to issue demo token: %w", err)
	}
	return s.establish(ctx, user, token, "", true)
}

// Register forwards a registration to the API. It does not sign the client in.
func (s *Store) Register(ctx context.Context, req *model.RegisterRequest) upstream.Result[*model.User] {
	return s.deps.API.Register(ctx, req)
}

// establish persists the identity under every legacy key name and marks the
// client authenticated.
func (s *Store) establish(ctx context.Context, user *model.User, token, refresh string, demo bool) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to encode user: %w", err)
	}

	local := s.deps.Areas.Local
	if err := local.Set(ctx, s.clientID, storage.KeyUser, string(raw)); err != nil {
		return fmt.Errorf("failed to persist user: %w", err)
	}
	if err := storage.SetAll(ctx, local, s.clientID, token, storage.TokenKeys...); err != nil {
		return fmt.Errorf("failed to persist token: %w", err)
	}
	if refresh != "" {
		if err := storage.SetAll(ctx, local, s.clientID, refresh, storage.RefreshTokenKeys...); err != nil {
			return fmt.Errorf("failed to persist refresh token: %w", err)
		}
	}
	if err := local.Set(ctx, s.clientID, storage.KeyUserRole, user.Role.String()); err != nil {
		return fmt.Errorf("failed to persist role: %w", err)
	}
	if demo && user.Role == model.RoleSuperAdmin {
		if err := local.Set(ctx, s.clientID, storage.KeySuperAdminDetected, strconv.FormatBool(true)); err != nil {
			return fmt.Errorf("failed to persist super admin flag: %w", err)
		}
	}
	if err := s.deps.Areas.Session.Set(ctx, s.clientID, storage.KeySessionAuth, strconv.FormatBool(true)); err != nil {
		return fmt.Errorf("failed to persist session flag: %w", err)
	}

	s.mu.Lock()
	s.state = model.Session{Authenticated: true, User: copyUser(user)}
	s.token = token
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.publish(EventLogin, snap)
	return nil
}

// Reset drops the in-memory session. Persisted keys are the logout service's
// concern.
func (s *Store) Reset() {
	s.mu.Lock()
	s.state = model.Session{}
	s.token = ""
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.publish(EventLogout, snap)
}

// Snapshot returns a copy of the current session.
func (s *Store) Snapshot() model.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Token returns the current access token, if any.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Store) snapshotLocked() model.Session {
	return model.Session{
		Authenticated: s.state.Authenticated,
		User:          copyUser(s.state.User),
		Loading:       s.state.Loading,
	}
}

// Subscribe registers fn for every future event and returns a function that
// removes it.
func (s *Store) Subscribe(fn func(Event)) func() {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Store) publish(kind EventKind, snap model.Session) {
	s.subMu.Lock()
	fns := make([]func(Event), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	ev := Event{Kind: kind, ClientID: s.clientID, Session: snap}
	for _, fn := range fns {
		fn(ev)
	}
}

func (s *Store) countLogin(result string) {
	if s.deps.Metrics != nil {
		s.deps.Metrics.Logins.WithLabelValues(result).Inc()
	}
}

// DemoSuperAdmin builds the synthetic super admin identity.
func DemoSuperAdmin(email string) *model.User {
	return &model.User{
		ID:          "demo-" + uuid.NewString(),
		Email:       email,
		Username:    "superadmin",
		Name:        "Super Admin (Demo)",
		Role:        model.RoleSuperAdmin,
		UserRole:    model.RoleSuperAdmin,
		IsSuperuser: true,
		IsStaff:     true,
		IsAdmin:     true,
	}
}

func copyUser(u *model.User) *model.User {
	if u == nil {
		return nil
	}
	cp := *u
	return &cp
}
