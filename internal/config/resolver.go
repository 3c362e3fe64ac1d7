package config

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"
)

// remoteConfig is the JSON body served by a config endpoint. Absent
// fields leave the locally merged values in place.
type remoteConfig struct {
	APIBase string `json:"apiBase"`
	AgentID string `json:"agentId"`
	APIKey  string `json:"apiKey"`
}

// Resolver produces a validated Config, fetching server-side defaults at
// most once per instance when required fields are still missing after the
// local merge. The caller-supplied Config is never mutated.
type Resolver struct {
	base   *Config
	client *http.Client

	mu       sync.Mutex
	resolved *Config
	err      error
	done     bool
}

// NewResolver wraps the merged local configuration. httpClient may be nil.
func NewResolver(base *Config, httpClient *http.Client) *Resolver {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Resolver{base: base, client: httpClient}
}

// Resolve returns the validated configuration. The remote fetch, when one
// is needed, happens at most once; the outcome (config or error) is
// cached for the resolver's lifetime.
func (r *Resolver) Resolve(ctx context.Context) (*Config, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done {
		return r.resolved, r.err
	}
	r.resolved, r.err = r.resolve(ctx)
	r.done = true
	return r.resolved, r.err
}

func (r *Resolver) resolve(ctx context.Context) (*Config, error) {
	cfg := *r.base

	if r.needsRemote(&cfg) && cfg.ConfigEndpoint != "" {
		remote, err := r.fetchRemote(ctx, cfg.ConfigEndpoint)
		if err != nil {
			// Not fatal by itself: the required-field check below decides.
			log.Printf("config: fetching %s: %v", cfg.ConfigEndpoint, err)
		} else {
			if cfg.APIBase == "" {
				cfg.APIBase = remote.APIBase
			}
			if cfg.AgentID == "" {
				cfg.AgentID = remote.AgentID
			}
			if cfg.APIKey == "" {
				cfg.APIKey = remote.APIKey
			}
		}
	}

	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// needsRemote reports whether a server-side config fetch could still fill
// a required field.
func (r *Resolver) needsRemote(cfg *Config) bool {
	if cfg.Source == SourceMock || cfg.Source == SourceBridge {
		return false
	}
	return cfg.APIBase == "" || cfg.AgentID == "" || cfg.APIKey == ""
}

func (r *Resolver) fetchRemote(ctx context.Context, endpoint string) (*remoteConfig, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Cache-Control", "no-store")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("config endpoint returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var remote remoteConfig
	if err := json.Unmarshal(body, &remote); err != nil {
		return nil, fmt.Errorf("config endpoint returned invalid JSON: %w", err)
	}
	return &remote, nil
}
