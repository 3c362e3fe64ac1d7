package assistant

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nsing-labs/ragbridge/internal/config"
	"github.com/nsing-labs/ragbridge/internal/ragflow"
	"github.com/nsing-labs/ragbridge/internal/reply"
	"github.com/nsing-labs/ragbridge/internal/session"
)

// stubSource returns scripted replies or errors and records the
// session ids it saw.
type stubSource struct {
	mu       sync.Mutex
	reply    reply.Reply
	err      error
	sessions []string
	block    chan struct{}
}

func (s *stubSource) Name() string {
	return "stub"
}

func (s *stubSource) Send(ctx context.Context, sessionID, prompt string) (reply.Reply, error) {
	s.mu.Lock()
	s.sessions = append(s.sessions, sessionID)
	block := s.block
	s.mu.Unlock()
	if block != nil {
		<-block
	}
	return s.reply, s.err
}

func newTestAssistant(src Source) *Assistant {
	mgr := session.NewManager("test-key", session.NewMemoryStore())
	return New(src, mgr)
}

func TestSubmitEmptyPromptIsNoOp(t *testing.T) {
	src := &stubSource{reply: reply.Reply{Content: "hi"}}
	a := newTestAssistant(src)

	if turn := a.Submit(context.Background(), "   \n\t"); turn != nil {
		t.Errorf("expected nil turn for whitespace prompt")
	}
	if len(src.sessions) != 0 {
		t.Errorf("no network call expected, got %d", len(src.sessions))
	}
	if len(a.Transcript()) != 0 {
		t.Errorf("transcript should be empty")
	}
}

func TestSubmitSuccess(t *testing.T) {
	src := &stubSource{reply: reply.Reply{
		Content:    "answer",
		References: []reply.Reference{{ID: "d1", Name: "Doc"}},
	}}
	a := newTestAssistant(src)

	turn := a.Submit(context.Background(), "  question  ")
	if turn == nil {
		t.Fatalf("expected a turn")
	}
	if turn.Pending {
		t.Errorf("turn should be resolved")
	}
	if turn.Prompt != "question" {
		t.Errorf("prompt not trimmed: %q", turn.Prompt)
	}
	if turn.Content != "answer" {
		t.Errorf("content = %q", turn.Content)
	}
	if len(turn.References) != 1 {
		t.Errorf("references not carried")
	}
	if len(a.Transcript()) != 1 {
		t.Errorf("turn not kept in transcript")
	}
}

func TestSubmitWhilePendingIsNoOp(t *testing.T) {
	src := &stubSource{reply: reply.Reply{Content: "late"}, block: make(chan struct{})}
	a := newTestAssistant(src)

	done := make(chan *Turn)
	go func() {
		done <- a.Submit(context.Background(), "first")
	}()

	// Wait until the first submit is in flight.
	deadline := time.After(2 * time.Second)
	for !a.Busy() {
		select {
		case <-deadline:
			t.Fatalf("first submit never became pending")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	if turn := a.Submit(context.Background(), "second"); turn != nil {
		t.Errorf("expected nil turn while another is pending")
	}

	close(src.block)
	first := <-done
	if first == nil || first.Content != "late" {
		t.Errorf("first turn lost: %+v", first)
	}
	if len(a.Transcript()) != 1 {
		t.Errorf("expected a single turn, got %d", len(a.Transcript()))
	}
	if a.Busy() {
		t.Errorf("assistant should accept input again")
	}
}

func TestSubmitTimeoutFallback(t *testing.T) {
	src := &stubSource{err: &ragflow.TimeoutError{Timeout: time.Second}}
	a := newTestAssistant(src)

	turn := a.Submit(context.Background(), "slow question")
	if turn == nil {
		t.Fatalf("expected a turn")
	}
	if turn.Content != FallbackUnreachable {
		t.Errorf("content = %q, want unreachable fallback", turn.Content)
	}
	if turn.Err == nil {
		t.Errorf("cause should be recorded on the turn")
	}
	if a.Busy() {
		t.Errorf("assistant should accept input after a timeout")
	}
}

func TestSubmit404InvalidatesSession(t *testing.T) {
	src := &stubSource{err: &ragflow.TransportError{StatusCode: 404, Body: "not found"}}
	a := newTestAssistant(src)

	turn := a.Submit(context.Background(), "q1")
	if turn == nil {
		t.Fatalf("expected a turn")
	}
	if turn.Content != FallbackSessionExpired {
		t.Errorf("content = %q, want session expired fallback", turn.Content)
	}
	firstSession := src.sessions[0]

	// No auto-retry happened.
	if len(src.sessions) != 1 {
		t.Fatalf("expected exactly one send, got %d", len(src.sessions))
	}

	src.err = nil
	src.reply = reply.Reply{Content: "fresh"}
	if turn := a.Submit(context.Background(), "q2"); turn == nil || turn.Content != "fresh" {
		t.Fatalf("second submit failed: %+v", turn)
	}
	if src.sessions[1] == firstSession {
		t.Errorf("expected a fresh session id after 404, got the old one")
	}
}

func TestSubmitSurfacesServerText(t *testing.T) {
	src := &stubSource{err: &ragflow.TransportError{StatusCode: 500, Body: "model overloaded"}}
	a := newTestAssistant(src)

	turn := a.Submit(context.Background(), "q")
	if turn.Content != "model overloaded" {
		t.Errorf("content = %q, want the server text", turn.Content)
	}
}

func TestSubmitEmptyBodyTransportError(t *testing.T) {
	src := &stubSource{err: &ragflow.TransportError{StatusCode: 502}}
	a := newTestAssistant(src)

	turn := a.Submit(context.Background(), "q")
	if turn.Content != FallbackUnreachable {
		t.Errorf("content = %q, want unreachable fallback", turn.Content)
	}
}

func TestSubmitMalformedResponseFallback(t *testing.T) {
	src := &stubSource{err: &ragflow.MalformedResponseError{Err: errors.New("bad json")}}
	a := newTestAssistant(src)

	turn := a.Submit(context.Background(), "q")
	if turn.Content != FallbackUnreachable {
		t.Errorf("content = %q, want unreachable fallback", turn.Content)
	}
}

func TestWarmResolvesSession(t *testing.T) {
	src := &stubSource{reply: reply.Reply{Content: "hi"}}
	mgr := session.NewManager("warm-key", session.NewMemoryStore())
	a := New(src, mgr)

	if err := a.Warm(context.Background()); err != nil {
		t.Fatalf("Warm() error: %v", err)
	}
	if mgr.Current() == "" {
		t.Errorf("session not resolved by Warm")
	}
}

func TestMockSourceKeywords(t *testing.T) {
	src := NewMockSource()
	ctx := context.Background()

	rep, err := src.Send(ctx, "s", "Can you introduce yourself?")
	if err != nil {
		t.Fatalf("Send() error: %v", err)
	}
	if !strings.Contains(rep.Content, "NSING Assistant") {
		t.Errorf("introduce reply missing, got %q", rep.Content)
	}

	rep, _ = src.Send(ctx, "s", "Show me NSING N32 specs.")
	if !strings.Contains(rep.Content, "N32H787") {
		t.Errorf("spec table missing, got %q", rep.Content)
	}

	rep, _ = src.Send(ctx, "s", "Where can I view the Choml icon?")
	if !strings.Contains(rep.Content, "choml.png") {
		t.Errorf("icon link missing, got %q", rep.Content)
	}

	rep, _ = src.Send(ctx, "s", "something unrelated")
	if !strings.Contains(rep.Content, "Thanks for the question") {
		t.Errorf("default reply missing, got %q", rep.Content)
	}
}

func TestBridgeSourceRejectsBadOrigins(t *testing.T) {
	if _, err := NewBridgeSource("ws://localhost:8090/ws/chat", "", 0); err == nil {
		t.Errorf("empty origin should be rejected")
	}
	if _, err := NewBridgeSource("ws://localhost:8090/ws/chat", "*", 0); err == nil {
		t.Errorf("wildcard origin should be rejected")
	}
	if _, err := NewBridgeSource("", "https://example.com", 0); err == nil {
		t.Errorf("empty url should be rejected")
	}
	src, err := NewBridgeSource("ws://localhost:8090/ws/chat", "https://example.com", 0)
	if err != nil {
		t.Fatalf("valid origin rejected: %v", err)
	}
	if src.Origin() != "https://example.com" {
		t.Errorf("origin not kept: %q", src.Origin())
	}
}

func TestBridgeSourceTimesOutOnSilentGateway(t *testing.T) {
	// The gateway accepts the socket and the frame but never replies.
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	silent := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer silent.Close()

	wsURL := "ws" + strings.TrimPrefix(silent.URL, "http") + "/ws/chat"
	src, err := NewBridgeSource(wsURL, "https://example.com", 50*time.Millisecond)
	if err != nil {
		t.Fatalf("NewBridgeSource: %v", err)
	}
	defer src.Close()

	start := time.Now()
	_, err = src.Send(context.Background(), "s", "hello")
	if err == nil {
		t.Fatal("expected a timeout error")
	}
	var terr *ragflow.TimeoutError
	if !errors.As(err, &terr) {
		t.Fatalf("expected TimeoutError, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("send blocked for %s despite the configured timeout", elapsed)
	}

	// The dead connection is dropped, so the next call fails fast
	// instead of hanging on the lock.
	if _, err := src.Send(context.Background(), "s", "again"); err == nil {
		t.Error("expected second send to fail as well")
	}
}

func TestNewSourceSelection(t *testing.T) {
	mock, err := NewSource(&config.Config{Source: config.SourceMock}, nil)
	if err != nil {
		t.Fatalf("NewSource(mock) error: %v", err)
	}
	if mock.Name() != "mock" {
		t.Errorf("got %q", mock.Name())
	}

	rf, err := NewSource(&config.Config{
		Source:  config.SourceRagflow,
		APIBase: "https://rag.example.com",
		AgentID: "a",
		APIKey:  "k",
	}, nil)
	if err != nil {
		t.Fatalf("NewSource(ragflow) error: %v", err)
	}
	if rf.Name() != "ragflow" {
		t.Errorf("got %q", rf.Name())
	}

	if _, err := NewSource(&config.Config{Source: config.SourceBridge}, nil); err == nil {
		t.Errorf("bridge without url should fail")
	}
}
