// Package localstore manages the application's local key-value state: a
// durable area and a session-scoped area. Only keys under the reserved auth
// prefix or the application namespace are ever touched.
package localstore

import (
	"context"
	"strings"
	"sync"
)

const (
	// AuthStoragePrefix is the reserved prefix used by the remote auth SDK
	// for persisted sessions.
	AuthStoragePrefix = "sb-"
	// AppNamespace prefixes every key this application writes itself.
	AppNamespace = "flowforge-"

	// SessionKey holds the serialized auth session in the durable area.
	SessionKey = AuthStoragePrefix + "flowforge-auth-token"
	// DarkModeKey persists the dark-mode preference flag.
	DarkModeKey = AppNamespace + "dark-mode"
)

// Area is one key-value storage area.
type Area interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
}

// Store bundles the two standard areas.
type Store struct {
	Durable Area
	Session Area
}

// New constructs a store over the given areas.
func New(durable, session Area) *Store {
	return &Store{Durable: durable, Session: session}
}

// ClearPrefixes removes from both areas every key whose name begins with one
// of the given prefixes. Removal continues past individual failures; the
// first error encountered is returned.
func (s *Store) ClearPrefixes(ctx context.Context, prefixes ...string) error {
	var firstErr error
	for _, area := range []Area{s.Durable, s.Session} {
		if area == nil {
			continue
		}
		keys, err := area.Keys(ctx)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		for _, key := range keys {
			if !hasAnyPrefix(key, prefixes) {
				continue
			}
			if err := area.Remove(ctx, key); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func hasAnyPrefix(key string, prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(key, p) {
			return true
		}
	}
	return false
}

// MemoryArea is an in-process area used for session-scoped state and tests.
type MemoryArea struct {
	mu   sync.Mutex
	data map[string]string
}

// NewMemoryArea constructs an empty in-memory area.
func NewMemoryArea() *MemoryArea {
	return &MemoryArea{data: make(map[string]string)}
}

func (a *MemoryArea) Get(_ context.Context, key string) (string, bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	v, ok := a.data[key]
	return v, ok, nil
}

func (a *MemoryArea) Set(_ context.Context, key, value string) error {
	a.mu.Lock()
	a.data[key] = value
	a.mu.Unlock()
	return nil
}

func (a *MemoryArea) Remove(_ context.Context, key string) error {
	a.mu.Lock()
	delete(a.data, key)
	a.mu.Unlock()
	return nil
}

func (a *MemoryArea) Keys(_ context.Context) ([]string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	keys := make([]string, 0, len(a.data))
	for k := range a.data {
		keys = append(keys, k)
	}
	return keys, nil
}
