package assistant

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/nsing-labs/ragbridge/internal/config"
	"github.com/nsing-labs/ragbridge/internal/ragflow"
	"github.com/nsing-labs/ragbridge/internal/reply"
)

// Source produces one assistant reply per prompt. Implementations are
// a single attempt; retry policy belongs to the caller.
type Source interface {
	Send(ctx context.Context, sessionID, prompt string) (reply.Reply, error)
	Name() string
}

// NewSource builds the reply source the configuration selects.
func NewSource(cfg *config.Config, httpClient *http.Client) (Source, error) {
	switch cfg.Source {
	case config.SourceMock:
		return NewMockSource(), nil
	case config.SourceBridge:
		return NewBridgeSource(cfg.Bridge.URL, cfg.Bridge.Origin, time.Duration(cfg.TimeoutMs)*time.Millisecond)
	case config.SourceOpenAI:
		return NewOpenAISource(cfg, httpClient), nil
	case config.SourceRagflow, "":
		client := ragflow.NewClient(ragflow.ClientOptions{
			APIBase:        cfg.APIBase,
			AgentID:        cfg.AgentID,
			APIKey:         cfg.APIKey,
			TokenEndpoint:  cfg.TokenEndpoint,
			CompletionPath: cfg.CompletionPath,
			Model:          cfg.Model,
			Timeout:        time.Duration(cfg.TimeoutMs) * time.Millisecond,
			HTTPClient:     httpClient,
		})
		return NewRagflowSource(client), nil
	}
	return nil, fmt.Errorf("unknown source %q", cfg.Source)
}

// RagflowSource sends prompts to a RAGFlow agent and parses the raw
// payload into a reply.
type RagflowSource struct {
	client *ragflow.Client
}

// NewRagflowSource wraps an agent client as a reply source.
func NewRagflowSource(client *ragflow.Client) *RagflowSource {
	return &RagflowSource{client: client}
}

func (s *RagflowSource) Name() string {
	return "ragflow"
}

func (s *RagflowSource) Send(ctx context.Context, sessionID, prompt string) (reply.Reply, error) {
	raw, err := s.client.SendMessage(ctx, sessionID, prompt, "")
	if err != nil {
		return reply.Reply{}, err
	}
	return reply.Parse(raw, s.client.BaseURL()), nil
}

// Client exposes the underlying agent client.
func (s *RagflowSource) Client() *ragflow.Client {
	return s.client
}
