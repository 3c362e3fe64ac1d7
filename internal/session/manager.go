package session

import (
	"context"
	"log"
	"sync"

	"github.com/google/uuid"
)

// Manager hands out the session id for one widget instance. Concurrent
// Ensure calls share a single resolution: only one id is minted no
// matter how many callers race for it.
type Manager struct {
	key   string
	store Store

	mu       sync.Mutex
	current  string
	inflight *resolution
}

type resolution struct {
	done chan struct{}
	id   string
	err  error
}

// NewManager creates a manager for the given storage key. A nil store
// falls back to an in-memory one.
func NewManager(key string, store Store) *Manager {
	if store == nil {
		store = NewMemoryStore()
	}
	return &Manager{key: key, store: store}
}

// Ensure returns the current session id, resolving one if needed. A
// stored id is adopted as-is; otherwise a fresh id is minted and
// persisted. Callers arriving while a resolution is in flight wait for
// it instead of starting their own.
func (m *Manager) Ensure(ctx context.Context) (string, error) {
	m.mu.Lock()
	if m.current != "" {
		id := m.current
		m.mu.Unlock()
		return id, nil
	}
	if m.inflight != nil {
		r := m.inflight
		m.mu.Unlock()
		select {
		case <-r.done:
			return r.id, r.err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	r := &resolution{done: make(chan struct{})}
	m.inflight = r
	m.mu.Unlock()

	id, err := m.resolve(ctx)

	m.mu.Lock()
	if err == nil {
		m.current = id
	}
	m.inflight = nil
	m.mu.Unlock()

	r.id = id
	r.err = err
	close(r.done)
	return id, err
}

func (m *Manager) resolve(ctx context.Context) (string, error) {
	stored, err := m.store.Get(ctx, m.key)
	if err != nil {
		log.Printf("session: reading stored session failed: %v", err)
	}
	if stored != "" {
		return stored, nil
	}

	id := uuid.New().String()
	if err := m.store.Put(ctx, m.key, id); err != nil {
		log.Printf("session: persisting session failed: %v", err)
	}
	return id, nil
}

// Current returns the resolved session id, or empty if none yet.
func (m *Manager) Current() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Invalidate drops the current session so the next Ensure mints a new
// one. Used when the backend reports the session unknown.
func (m *Manager) Invalidate(ctx context.Context) {
	m.mu.Lock()
	m.current = ""
	m.mu.Unlock()
	if err := m.store.Delete(ctx, m.key); err != nil {
		log.Printf("session: clearing stored session failed: %v", err)
	}
}

// Key returns the storage key this manager persists under.
func (m *Manager) Key() string {
	return m.key
}
