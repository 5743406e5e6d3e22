package storage

import (
	"context"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
)

// MemoryArea keeps the session area in process memory. Entries expire after
// the configured idle duration.
type MemoryArea struct {
	cache  *cache.Cache
	prefix string
}

func NewMemoryArea(expiration, cleanupInterval time.Duration) *MemoryArea {
	return &MemoryArea{
		cache:  cache.New(expiration, cleanupInterval),
		prefix: "portal:session",
	}
}

func (m *MemoryArea) Name() string {
	return "session"
}

func (m *MemoryArea) Get(_ context.Context, clientID, key string) (string, error) {
	val, found := m.cache.Get(namespaced(m.prefix, clientID, key))
	if !found {
		return "", ErrNotFound
	}
	s, _ := val.(string)
	return s, nil
}

func (m *MemoryArea) Set(_ context.Context, clientID, key, value string) error {
	m.cache.Set(namespaced(m.prefix, clientID, key), value, cache.DefaultExpiration)
	return nil
}

func (m *MemoryArea) Delete(_ context.Context, clientID string, keys ...string) error {
	for _, k := range keys {
		m.cache.Delete(namespaced(m.prefix, clientID, k))
	}
	return nil
}

func (m *MemoryArea) Keys(_ context.Context, clientID string) ([]string, error) {
	prefix := clientPrefix(m.prefix, clientID)
	var keys []string
	for full := range m.cache.Items() {
		if strings.HasPrefix(full, prefix) {
			keys = append(keys, stripPrefix(full, prefix))
		}
	}
	return keys, nil
}

func (m *MemoryArea) Clear(ctx context.Context, clientID string) error {
	keys, _ := m.Keys(ctx, clientID)
	return m.Delete(ctx, clientID, keys...)
}
