package assistant

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/nsing-labs/ragbridge/internal/config"
	"github.com/nsing-labs/ragbridge/internal/ragflow"
	"github.com/nsing-labs/ragbridge/internal/reply"
)

// OpenAISource talks to any OpenAI-compatible completion API. Replies
// carry no retrieval references; only the content path of the parser
// applies.
type OpenAISource struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// NewOpenAISource creates a source against the configured base URL.
func NewOpenAISource(cfg *config.Config, httpClient *http.Client) *OpenAISource {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.APIBase != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.APIBase, "/") + "/v1"
	}
	if httpClient != nil {
		clientCfg.HTTPClient = httpClient
	}
	return &OpenAISource{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   cfg.Model,
		timeout: time.Duration(cfg.TimeoutMs) * time.Millisecond,
	}
}

func (s *OpenAISource) Name() string {
	return "openai"
}

func (s *OpenAISource) Send(ctx context.Context, sessionID, prompt string) (reply.Reply, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return reply.Reply{}, convertOpenAIError(err, s.timeout)
	}

	var content string
	if len(resp.Choices) > 0 {
		content = resp.Choices[0].Message.Content
	}
	if strings.TrimSpace(content) == "" {
		content = reply.Fallback
	}
	return reply.Reply{Content: content}, nil
}

// convertOpenAIError maps go-openai failures onto the shared transport
// error taxonomy so the widget controller treats all sources alike.
func convertOpenAIError(err error, timeout time.Duration) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &ragflow.TimeoutError{Timeout: timeout}
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &ragflow.TransportError{StatusCode: apiErr.HTTPStatusCode, Body: apiErr.Message}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &ragflow.TransportError{StatusCode: reqErr.HTTPStatusCode, Body: reqErr.Error()}
	}
	return err
}
