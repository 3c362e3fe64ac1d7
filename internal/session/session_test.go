package session

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/nsing-labs/ragbridge/internal/db"
)

func TestStorageKeyStable(t *testing.T) {
	a := StorageKey("https://rag.example.com/api/v1/agents_openai/abc/chat/completions", "default")
	b := StorageKey("https://rag.example.com/api/v1/agents_openai/abc/chat/completions", "default")
	if a != b {
		t.Errorf("same inputs produced different keys: %q vs %q", a, b)
	}
	if a[:len(storageKeyPrefix)] != storageKeyPrefix {
		t.Errorf("key missing prefix: %q", a)
	}
}

func TestStorageKeyVariesWithInputs(t *testing.T) {
	base := StorageKey("https://rag.example.com/x", "default")
	if StorageKey("https://rag.example.com/y", "default") == base {
		t.Errorf("endpoint change did not change key")
	}
	if StorageKey("https://rag.example.com/x", "gpt") == base {
		t.Errorf("model change did not change key")
	}
}

func TestStorageKeyEmptyModelDefaults(t *testing.T) {
	if StorageKey("https://x", "") != StorageKey("https://x", "default") {
		t.Errorf("empty model should hash as default")
	}
}

func TestHash36(t *testing.T) {
	// Known values from the 32-bit rolling hash.
	if got := hash36(""); got != "0" {
		t.Errorf("hash36(\"\") = %q, want 0", got)
	}
	if got := hash36("a"); got != "2p" {
		t.Errorf("hash36(\"a\") = %q, want 2p", got)
	}
	// Non-BMP input hashes as two surrogate code units, matching
	// what charCodeAt feeds the widget's hash.
	if got := hash36("\U0001F600"); got != "11zz7" {
		t.Errorf("hash36(\"\\U0001F600\") = %q, want 11zz7", got)
	}
}

// countingStore records how many writes the manager performs.
type countingStore struct {
	mu     sync.Mutex
	values map[string]string
	gets   int
	puts   int
}

func newCountingStore() *countingStore {
	return &countingStore{values: make(map[string]string)}
}

func (s *countingStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets++
	return s.values[key], nil
}

func (s *countingStore) Put(ctx context.Context, key, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.puts++
	s.values[key] = sessionID
	return nil
}

func (s *countingStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

type erroringStore struct{}

func (erroringStore) Get(ctx context.Context, key string) (string, error) {
	return "", errors.New("disk on fire")
}

func (erroringStore) Put(ctx context.Context, key, sessionID string) error {
	return errors.New("disk on fire")
}

func (erroringStore) Delete(ctx context.Context, key string) error {
	return errors.New("disk on fire")
}

func TestManagerEnsureSingleFlight(t *testing.T) {
	store := newCountingStore()
	m := NewManager("key-1", store)

	const n = 20
	ids := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := m.Ensure(context.Background())
			if err != nil {
				t.Errorf("Ensure() error: %v", err)
			}
			ids[i] = id
		}(i)
	}
	wg.Wait()

	for i := 1; i < n; i++ {
		if ids[i] != ids[0] {
			t.Fatalf("divergent session ids: %q vs %q", ids[i], ids[0])
		}
	}
	if store.puts != 1 {
		t.Errorf("expected exactly one persisted write, got %d", store.puts)
	}
}

func TestManagerAdoptsStoredSession(t *testing.T) {
	store := newCountingStore()
	store.values["key-1"] = "stored-id"
	m := NewManager("key-1", store)

	id, err := m.Ensure(context.Background())
	if err != nil {
		t.Fatalf("Ensure() error: %v", err)
	}
	if id != "stored-id" {
		t.Errorf("expected stored id adopted, got %q", id)
	}
	if store.puts != 0 {
		t.Errorf("adopting a stored id should not write, got %d puts", store.puts)
	}
}

func TestManagerInvalidate(t *testing.T) {
	store := newCountingStore()
	m := NewManager("key-1", store)

	first, err := m.Ensure(context.Background())
	if err != nil {
		t.Fatalf("Ensure() error: %v", err)
	}
	m.Invalidate(context.Background())
	if m.Current() != "" {
		t.Errorf("Current() should be empty after Invalidate")
	}

	second, err := m.Ensure(context.Background())
	if err != nil {
		t.Fatalf("Ensure() error: %v", err)
	}
	if second == first {
		t.Errorf("expected a fresh id after Invalidate, got the old one")
	}
}

func TestManagerStoreErrorsAreNonFatal(t *testing.T) {
	m := NewManager("key-1", erroringStore{})

	id, err := m.Ensure(context.Background())
	if err != nil {
		t.Fatalf("Ensure() should survive store failures: %v", err)
	}
	if id == "" {
		t.Errorf("expected a minted id despite store failures")
	}
	m.Invalidate(context.Background())
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	d, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory() error: %v", err)
	}
	defer d.Close()

	store := NewSQLiteStore(d)
	ctx := context.Background()

	got, err := store.Get(ctx, "missing")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got != "" {
		t.Errorf("missing key should read empty, got %q", got)
	}

	if err := store.Put(ctx, "k", "sess-1"); err != nil {
		t.Fatalf("Put() error: %v", err)
	}
	if err := store.Put(ctx, "k", "sess-2"); err != nil {
		t.Fatalf("second Put() error: %v", err)
	}
	got, err = store.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got != "sess-2" {
		t.Errorf("expected latest id, got %q", got)
	}

	if err := store.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	got, err = store.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got != "" {
		t.Errorf("expected empty after delete, got %q", got)
	}
}
