package ragflow

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultCompletionPath is the RAGFlow agent completion route. The
// agent id is substituted into the placeholder at request time.
const DefaultCompletionPath = "/api/v1/agents_openai/{agent_id}/chat/completions"

// ClientOptions configures a RAGFlow agent client.
type ClientOptions struct {
	APIBase        string
	AgentID        string
	APIKey         string
	TokenEndpoint  string
	CompletionPath string
	Model          string
	Timeout        time.Duration
	HTTPClient     *http.Client
}

// Client talks to one RAGFlow agent's completion endpoint. A call is a
// single attempt; retries belong to the caller.
type Client struct {
	opts   ClientOptions
	http   *http.Client
	tokens *TokenSource
}

// NewClient creates a client from the given options, filling defaults
// for the completion path, model and timeout.
func NewClient(opts ClientOptions) *Client {
	opts.APIBase = strings.TrimRight(opts.APIBase, "/")
	if opts.CompletionPath == "" {
		opts.CompletionPath = DefaultCompletionPath
	}
	if opts.Model == "" {
		opts.Model = "default"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 120 * time.Second
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		opts:   opts,
		http:   httpClient,
		tokens: NewTokenSource(opts.APIKey, opts.TokenEndpoint, httpClient),
	}
}

// BaseURL returns the normalized API base.
func (c *Client) BaseURL() string {
	return c.opts.APIBase
}

// Model returns the configured default model.
func (c *Client) Model() string {
	return c.opts.Model
}

// Endpoint returns the completion URL with the agent id substituted.
func (c *Client) Endpoint() string {
	path := strings.Replace(c.opts.CompletionPath, "{agent_id}", c.opts.AgentID, 1)
	return c.opts.APIBase + path
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

// SendMessage posts one user prompt and returns the raw JSON response
// body. The session id is not sent on the wire: the backend treats each
// call as stateless, the id only keys client-side state. An empty model
// uses the client default.
func (c *Client) SendMessage(ctx context.Context, sessionID, prompt, model string) ([]byte, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, fmt.Errorf("message is required")
	}
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}
	if token == "" {
		return nil, fmt.Errorf("missing RAGFlow API token")
	}

	if model == "" {
		model = c.opts.Model
	}
	body, err := json.Marshal(chatRequest{
		Model:    model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
		Stream:   false,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &TimeoutError{Timeout: c.opts.Timeout}
		}
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	text, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &TransportError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(text))}
	}
	if len(bytes.TrimSpace(text)) == 0 {
		return []byte("{}"), nil
	}
	if !json.Valid(text) {
		return nil, &MalformedResponseError{Err: fmt.Errorf("invalid JSON from RAGFlow")}
	}
	return text, nil
}
