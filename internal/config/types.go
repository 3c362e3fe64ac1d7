package config

// SourceType selects the reply source backing the assistant.
type SourceType string

const (
	// SourceRagflow talks to a RAGFlow-compatible agent endpoint over HTTP.
	SourceRagflow SourceType = "ragflow"
	// SourceMock serves canned local replies, useful before a backend is
	// configured.
	SourceMock SourceType = "mock"
	// SourceBridge relays prompts over a WebSocket chat bridge.
	SourceBridge SourceType = "bridge"
	// SourceOpenAI talks to a plain OpenAI-compatible endpoint without
	// RAGFlow reference payloads.
	SourceOpenAI SourceType = "openai"
)

// Config is the top-level ragbridge configuration, corresponding to
// .ragbridge.yml. Resolve produces the validated form used by the client.
type Config struct {
	APIBase        string     `yaml:"api_base" koanf:"api_base"`
	AgentID        string     `yaml:"agent_id" koanf:"agent_id"`
	APIKey         string     `yaml:"api_key" koanf:"api_key"`
	Model          string     `yaml:"model" koanf:"model"`
	CompletionPath string     `yaml:"completion_path" koanf:"completion_path"`
	TimeoutMs      int        `yaml:"timeout_ms" koanf:"timeout_ms"`
	ConfigEndpoint string     `yaml:"config_endpoint" koanf:"config_endpoint"`
	TokenEndpoint  string     `yaml:"token_endpoint" koanf:"token_endpoint"`
	DatasetID      string     `yaml:"dataset_id" koanf:"dataset_id"`
	DataDir        string     `yaml:"data_dir" koanf:"data_dir"`
	Source         SourceType `yaml:"source" koanf:"source"`

	Bridge    BridgeConfig    `yaml:"bridge" koanf:"bridge"`
	Serve     ServeConfig     `yaml:"serve" koanf:"serve"`
	Assistant AssistantConfig `yaml:"assistant" koanf:"assistant"`
}

// BridgeConfig configures the WebSocket bridge reply source.
type BridgeConfig struct {
	URL string `yaml:"url" koanf:"url"`
	// Origin must name the single trusted origin presented during the
	// handshake. A wildcard is rejected outright.
	Origin string `yaml:"origin" koanf:"origin"`
}

// ServeConfig configures the gateway server.
type ServeConfig struct {
	Port           int      `yaml:"port" koanf:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" koanf:"allowed_origins"`
	AllowAll       bool     `yaml:"allow_all" koanf:"allow_all"`
}

// AssistantConfig holds user-facing assistant texts.
type AssistantConfig struct {
	Name        string   `yaml:"name" koanf:"name"`
	Welcome     string   `yaml:"welcome" koanf:"welcome"`
	Suggestions []string `yaml:"suggestions" koanf:"suggestions"`
}
