package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// MissingFieldError reports the first required configuration field still
// absent after merging all sources.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("ragflow %s is not configured", e.Field)
}

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (RAGBRIDGE_*). A missing file yields the
// built-in defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	cfg := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	// Overlay environment variables: RAGBRIDGE_API_BASE -> api_base, etc.
	if err := k.Load(env.Provider("RAGBRIDGE_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "RAGBRIDGE_"))
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// validSources is the set of recognized reply source values.
var validSources = map[SourceType]bool{
	SourceRagflow: true,
	SourceMock:    true,
	SourceBridge:  true,
	SourceOpenAI:  true,
}

// Normalize applies defaults for unset optional fields and canonicalizes
// URL-ish values. The API base never keeps a trailing slash.
func (c *Config) Normalize() {
	c.APIBase = strings.TrimRight(c.APIBase, "/")
	if c.CompletionPath == "" {
		c.CompletionPath = DefaultCompletionPath
	}
	if c.TimeoutMs <= 0 {
		c.TimeoutMs = DefaultTimeoutMs
	}
	if c.Model == "" {
		c.Model = "default"
	}
	if c.Source == "" {
		c.Source = SourceRagflow
	}
}

// Validate checks the merged configuration. Required fields are checked
// in order: api_base, agent_id, api_key; a configured token endpoint
// waives the static key requirement. The mock source needs no backend.
func (c *Config) Validate() error {
	if c.Source != "" && !validSources[c.Source] {
		return fmt.Errorf("invalid source %q: must be one of ragflow, mock, bridge, openai", c.Source)
	}
	if strings.Count(c.CompletionPath, "{agent_id}") != 1 {
		return fmt.Errorf("completion_path must contain exactly one {agent_id} placeholder")
	}
	if c.TimeoutMs <= 0 {
		return fmt.Errorf("timeout_ms must be positive")
	}

	switch c.Source {
	case SourceMock:
		return nil
	case SourceBridge:
		if c.Bridge.URL == "" {
			return &MissingFieldError{Field: "bridge.url"}
		}
		return nil
	}

	if c.APIBase == "" {
		return &MissingFieldError{Field: "api_base"}
	}
	if c.Source != SourceOpenAI && c.AgentID == "" {
		return &MissingFieldError{Field: "agent_id"}
	}
	if c.APIKey == "" && c.TokenEndpoint == "" {
		return &MissingFieldError{Field: "api_key"}
	}
	return nil
}
