package assistant

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"

	"github.com/nsing-labs/ragbridge/internal/ragflow"
	"github.com/nsing-labs/ragbridge/internal/reply"
	"github.com/nsing-labs/ragbridge/internal/session"
)

// FallbackUnreachable is shown when the assistant cannot be reached at
// all: timeouts, connection failures, malformed payloads.
const FallbackUnreachable = "Sorry, we couldn't reach the assistant right now. Please try again soon."

// FallbackSessionExpired is shown when the backend no longer knows the
// session. The stored session is cleared; the next submit starts fresh.
const FallbackSessionExpired = "That conversation has expired. Please send your message again."

// Turn is one prompt/reply exchange. A turn resolves exactly once:
// Pending flips false when Content is filled, either with the reply or
// with a fallback.
type Turn struct {
	Prompt     string
	Pending    bool
	Content    string
	References []reply.Reference
	Chunks     map[string]reply.Chunk
	Err        error
}

// Assistant drives the chat exchange: one pending turn at a time, a
// session resolved on first use, and failures converted to user-facing
// fallback text. Source errors never escape; they land in the turn.
type Assistant struct {
	source   Source
	sessions *session.Manager

	mu      sync.Mutex
	turns   []*Turn
	pending bool
}

// New creates an assistant over the given source and session manager.
func New(source Source, sessions *session.Manager) *Assistant {
	return &Assistant{source: source, sessions: sessions}
}

// Warm resolves the session ahead of the first submit so the first
// reply does not pay for session setup.
func (a *Assistant) Warm(ctx context.Context) error {
	_, err := a.sessions.Ensure(ctx)
	return err
}

// Busy reports whether a turn is in flight.
func (a *Assistant) Busy() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pending
}

// Transcript returns the turns so far, oldest first.
func (a *Assistant) Transcript() []*Turn {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]*Turn, len(a.turns))
	copy(out, a.turns)
	return out
}

// SessionID returns the current session id, resolving one if needed.
func (a *Assistant) SessionID(ctx context.Context) (string, error) {
	return a.sessions.Ensure(ctx)
}

// Submit sends one prompt and blocks until the turn resolves. An empty
// or whitespace prompt is a no-op, as is submitting while another turn
// is pending; both return nil.
func (a *Assistant) Submit(ctx context.Context, prompt string) *Turn {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil
	}

	a.mu.Lock()
	if a.pending {
		a.mu.Unlock()
		return nil
	}
	turn := &Turn{Prompt: prompt, Pending: true}
	a.turns = append(a.turns, turn)
	a.pending = true
	a.mu.Unlock()

	rep, err := a.exchange(ctx, prompt)

	a.mu.Lock()
	turn.Pending = false
	if err != nil {
		turn.Err = err
		turn.Content = a.fallbackFor(err)
	} else {
		turn.Content = rep.Content
		turn.References = rep.References
		turn.Chunks = rep.Chunks
	}
	a.pending = false
	a.mu.Unlock()
	return turn
}

func (a *Assistant) exchange(ctx context.Context, prompt string) (reply.Reply, error) {
	sessionID, err := a.sessions.Ensure(ctx)
	if err != nil {
		return reply.Reply{}, err
	}
	return a.source.Send(ctx, sessionID, prompt)
}

// fallbackFor converts a source failure into the bubble text. A 404
// additionally clears the stored session so the next submit mints a
// fresh one; there is no automatic retry.
func (a *Assistant) fallbackFor(err error) string {
	var transport *ragflow.TransportError
	if errors.As(err, &transport) {
		if transport.NotFound() {
			log.Printf("assistant: session rejected, clearing stored session")
			a.sessions.Invalidate(context.Background())
			return FallbackSessionExpired
		}
		if transport.Body != "" {
			return transport.Body
		}
		return FallbackUnreachable
	}
	log.Printf("assistant: request failed: %v", err)
	return FallbackUnreachable
}
