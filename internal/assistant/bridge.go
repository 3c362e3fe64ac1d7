package assistant

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nsing-labs/ragbridge/internal/ragflow"
	"github.com/nsing-labs/ragbridge/internal/reply"
)

// bridgeFrame is the message format on the bridge socket, both ways.
type bridgeFrame struct {
	Type       string                 `json:"type"`
	SessionID  string                 `json:"session_id,omitempty"`
	Content    string                 `json:"content,omitempty"`
	References []reply.Reference      `json:"references,omitempty"`
	Chunks     map[string]reply.Chunk `json:"chunks,omitempty"`
	Error      string                 `json:"error,omitempty"`
}

// BridgeSource relays prompts to a ragbridge gateway over a WebSocket.
// Requests are serialized on the single connection: one frame out, one
// frame back.
type BridgeSource struct {
	url     string
	origin  string
	timeout time.Duration

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewBridgeSource creates a bridge source. The origin is mandatory and
// must name a concrete origin; a wildcard is rejected. A non-positive
// timeout falls back to the same default the HTTP transport uses.
func NewBridgeSource(url, origin string, timeout time.Duration) (*BridgeSource, error) {
	if url == "" {
		return nil, fmt.Errorf("bridge url is required")
	}
	if origin == "" || origin == "*" {
		return nil, fmt.Errorf("bridge origin must be a concrete origin, not %q", origin)
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &BridgeSource{url: url, origin: origin, timeout: timeout}, nil
}

func (s *BridgeSource) Name() string {
	return "bridge"
}

// Origin returns the origin sent on the handshake.
func (s *BridgeSource) Origin() string {
	return s.origin
}

func (s *BridgeSource) Send(ctx context.Context, sessionID, prompt string) (reply.Reply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conn, err := s.connect(ctx)
	if err != nil {
		return reply.Reply{}, err
	}

	frame := bridgeFrame{Type: "message", SessionID: sessionID, Content: prompt}
	if err := conn.WriteJSON(frame); err != nil {
		s.drop()
		return reply.Reply{}, fmt.Errorf("writing to bridge: %w", err)
	}

	// A gateway that stops responding must not hold the connection
	// open forever; the exchange deadline bounds every read.
	deadline := time.Now().Add(s.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	conn.SetReadDeadline(deadline)

	var resp bridgeFrame
	if err := conn.ReadJSON(&resp); err != nil {
		s.drop()
		var nerr net.Error
		if errors.As(err, &nerr) && nerr.Timeout() {
			return reply.Reply{}, &ragflow.TimeoutError{Timeout: s.timeout}
		}
		return reply.Reply{}, fmt.Errorf("reading from bridge: %w", err)
	}
	conn.SetReadDeadline(time.Time{})

	if resp.Type == "error" || resp.Error != "" {
		return reply.Reply{}, fmt.Errorf("bridge error: %s", resp.Error)
	}
	rep := reply.Reply{
		Content:    resp.Content,
		References: resp.References,
		Chunks:     resp.Chunks,
	}
	if rep.Content == "" {
		rep.Content = reply.Fallback
	}
	return rep, nil
}

// Close shuts the underlying connection if one is open.
func (s *BridgeSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

// connect dials lazily and reuses the connection. Caller holds the
// lock.
func (s *BridgeSource) connect(ctx context.Context) (*websocket.Conn, error) {
	if s.conn != nil {
		return s.conn, nil
	}
	header := http.Header{}
	header.Set("Origin", s.origin)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, header)
	if err != nil {
		return nil, fmt.Errorf("dialing bridge: %w", err)
	}
	s.conn = conn
	return conn, nil
}

// drop discards a connection after a failed exchange. Caller holds the
// lock.
func (s *BridgeSource) drop() {
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
}
