package config

import (
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard and returns the
// resulting Config. It also saves the config to the given path.
func RunWizard(path string) (*Config, error) {
	fmt.Println("Welcome to ragbridge! Let's connect your assistant.")
	fmt.Println()

	cfg := DefaultConfig()

	basePrompt := promptui.Prompt{
		Label: "RAGFlow API base URL (e.g. https://rag.example.com)",
		Validate: func(s string) error {
			if strings.TrimSpace(s) == "" {
				return fmt.Errorf("api base is required")
			}
			return nil
		},
	}
	base, err := basePrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("api base: %w", err)
	}
	cfg.APIBase = strings.TrimRight(strings.TrimSpace(base), "/")

	agentPrompt := promptui.Prompt{
		Label: "Agent id",
		Validate: func(s string) error {
			if strings.TrimSpace(s) == "" {
				return fmt.Errorf("agent id is required")
			}
			return nil
		},
	}
	agent, err := agentPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("agent id: %w", err)
	}
	cfg.AgentID = strings.TrimSpace(agent)

	keyPrompt := promptui.Prompt{
		Label: "API key (leave empty to use a token endpoint)",
		Mask:  '*',
	}
	key, err := keyPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("api key: %w", err)
	}
	cfg.APIKey = strings.TrimSpace(key)

	if cfg.APIKey == "" {
		tokenPrompt := promptui.Prompt{Label: "Token endpoint URL"}
		token, err := tokenPrompt.Run()
		if err != nil {
			return nil, fmt.Errorf("token endpoint: %w", err)
		}
		cfg.TokenEndpoint = strings.TrimSpace(token)
	}

	modelPrompt := promptui.Prompt{
		Label:   "Model",
		Default: cfg.Model,
	}
	model, err := modelPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("model: %w", err)
	}
	cfg.Model = strings.TrimSpace(model)

	datasetPrompt := promptui.Prompt{
		Label: "Dataset id for uploads (optional)",
	}
	dataset, err := datasetPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("dataset id: %w", err)
	}
	cfg.DatasetID = strings.TrimSpace(dataset)

	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := cfg.Save(path); err != nil {
		return nil, err
	}
	fmt.Printf("\nConfiguration saved to %s\n", path)
	return cfg, nil
}
