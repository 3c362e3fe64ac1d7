package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/nsing-labs/ragbridge/internal/db"
)

// Store persists session ids keyed by storage key. Implementations must
// be safe for concurrent use. A missing key reads as the empty string
// with a nil error.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, key, sessionID string) error
	Delete(ctx context.Context, key string) error
}

// MemoryStore keeps session ids in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]string)}
}

func (s *MemoryStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[key], nil
}

func (s *MemoryStore) Put(ctx context.Context, key, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[key] = sessionID
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, key)
	return nil
}

// SQLiteStore persists session ids in the chat_sessions table so they
// survive process restarts.
type SQLiteStore struct {
	db *db.DB
}

// NewSQLiteStore creates a store backed by the given database.
func NewSQLiteStore(d *db.DB) *SQLiteStore {
	return &SQLiteStore{db: d}
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (string, error) {
	var sessionID string
	err := s.db.QueryRowContext(ctx, `SELECT session_id FROM chat_sessions WHERE storage_key = ?`, key).Scan(&sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading session: %w", err)
	}
	return sessionID, nil
}

func (s *SQLiteStore) Put(ctx context.Context, key, sessionID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_sessions (storage_key, session_id)
		VALUES (?, ?)
		ON CONFLICT(storage_key) DO UPDATE SET session_id = excluded.session_id
	`, key, sessionID)
	if err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM chat_sessions WHERE storage_key = ?`, key)
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}
