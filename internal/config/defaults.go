package config

// DefaultCompletionPath is the RAGFlow OpenAI-compatible agent endpoint;
// {agent_id} is substituted at request time.
const DefaultCompletionPath = "/api/v1/agents_openai/{agent_id}/chat/completions"

// DefaultTimeoutMs bounds a single chat request.
const DefaultTimeoutMs = 120000

// DefaultConfig returns the built-in defaults applied before any file,
// environment, or flag overrides.
func DefaultConfig() *Config {
	return &Config{
		Model:          "default",
		CompletionPath: DefaultCompletionPath,
		TimeoutMs:      DefaultTimeoutMs,
		Source:         SourceRagflow,
		Serve: ServeConfig{
			Port: 8090,
		},
		Assistant: AssistantConfig{
			Name:    "NSING Assistant",
			Welcome: "This virtual assistant answers quick questions about NSING products, applications, and sales support.",
			Suggestions: []string{
				"Can you introduce yourself?",
				"Show me NSING N32 specs.",
				"Where can I view the Choml icon?",
			},
		},
	}
}
