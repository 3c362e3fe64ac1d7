package ragflow

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
)

// TokenSource resolves the bearer credential for RAGFlow requests.
// Without a token endpoint it hands back the static key. With one, the
// endpoint is queried once and the result cached for the source's
// lifetime; a failed or empty fetch falls back to the static key.
type TokenSource struct {
	key      string
	endpoint string
	http     *http.Client

	mu     sync.Mutex
	cached *string
}

// NewTokenSource creates a token source. A nil http client uses the
// default one.
func NewTokenSource(key, endpoint string, httpClient *http.Client) *TokenSource {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &TokenSource{key: key, endpoint: endpoint, http: httpClient}
}

// Token returns the credential to send as the bearer token.
func (t *TokenSource) Token(ctx context.Context) (string, error) {
	if t.endpoint == "" {
		return t.key, nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cached == nil {
		fetched := t.fetch(ctx)
		t.cached = &fetched
	}
	if *t.cached != "" {
		return *t.cached, nil
	}
	return t.key, nil
}

func (t *TokenSource) fetch(ctx context.Context) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.endpoint, nil)
	if err != nil {
		return ""
	}
	req.Header.Set("Cache-Control", "no-store")

	resp, err := t.http.Do(req)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return ""
	}

	var payload struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return ""
	}
	return payload.Token
}
