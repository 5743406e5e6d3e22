package session

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Action types accepted by Mirror.Dispatch
const (
	ActionLogout       = "auth/logout"
	ActionLoginSuccess = "auth/loginSuccess"
)

// Action is a dispatch-style state change
type Action struct {
	Type string
}

// Mirror is a derived, read-mostly copy of a Store's authentication flag.
// It follows the store through its event stream and may additionally be
// told about logouts by dispatch. The Store always wins on disagreement.
type Mirror struct {
	mu            sync.RWMutex
	authenticated bool
	unsubscribe   func()
}

// NewMirror attaches a mirror to store.
func NewMirror(store *Store) *Mirror {
	m := &Mirror{authenticated: store.Snapshot().Authenticated}
	m.unsubscribe = store.Subscribe(m.onEvent)
	return m
}

func (m *Mirror) onEvent(ev Event) {
	m.mu.Lock()
	m.authenticated = ev.Session.Authenticated
	m.mu.Unlock()
}

// Dispatch applies a.
func (m *Mirror) Dispatch(a Action) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch a.Type {
	case ActionLogout:
		m.authenticated = false
	case ActionLoginSuccess:
		m.authenticated = true
	default:
		log.Debug().Str("action", a.Type).Msg("Ignoring unknown session action")
	}
}

func (m *Mirror) Authenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.authenticated
}

// Verify reports whether the mirror agrees with store. On disagreement it
// logs a warning and resynchronises from the store.
func (m *Mirror) Verify(store *Store) bool {
	want := store.Snapshot().Authenticated

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.authenticated == want {
		return true
	}

	log.Warn().
		Str("client_id", store.ClientID()).
		Bool("store", want).
		Bool("mirror", m.authenticated).
		Msg("Session containers disagree; using store")
	m.authenticated = want
	return false
}

// Close detaches the mirror from its store.
func (m *Mirror) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}
