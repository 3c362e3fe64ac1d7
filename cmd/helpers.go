package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/nsing-labs/ragbridge/internal/assistant"
	"github.com/nsing-labs/ragbridge/internal/config"
	"github.com/nsing-labs/ragbridge/internal/db"
	"github.com/nsing-labs/ragbridge/internal/ragflow"
	"github.com/nsing-labs/ragbridge/internal/session"
)

// Flag overlays shared by the chat-facing commands. Empty values leave
// the config untouched.
var (
	flagAPIBase string
	flagAgentID string
	flagAPIKey  string
	flagModel   string
	flagSource  string
)

// resolveConfig loads the config file, applies flag overlays, then
// runs the resolver (remote fill-in, normalization, validation).
func resolveConfig(ctx context.Context) (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `ragbridge init` to create a config file", err)
	}
	if flagAPIBase != "" {
		cfg.APIBase = flagAPIBase
	}
	if flagAgentID != "" {
		cfg.AgentID = flagAgentID
	}
	if flagAPIKey != "" {
		cfg.APIKey = flagAPIKey
	}
	if flagModel != "" {
		cfg.Model = flagModel
	}
	if flagSource != "" {
		cfg.Source = config.SourceType(flagSource)
	}

	resolver := config.NewResolver(cfg, nil)
	return resolver.Resolve(ctx)
}

// newSource builds the configured reply source.
func newSource(cfg *config.Config) (assistant.Source, error) {
	return assistant.NewSource(cfg, nil)
}

// newDatasetClient builds a dataset client, requiring a dataset id.
func newDatasetClient(cfg *config.Config) (*ragflow.DatasetClient, error) {
	if cfg.DatasetID == "" {
		return nil, fmt.Errorf("dataset_id is not configured; set it in %s or pass --dataset", cfgFile)
	}
	return ragflow.NewDatasetClient(cfg.APIBase, cfg.DatasetID, cfg.APIKey, nil), nil
}

// databasePath returns where the SQLite database lives for this config.
func databasePath(cfg *config.Config) string {
	dir := cfg.DataDir
	if dir == "" {
		dir = ".ragbridge"
	}
	return filepath.Join(dir, "ragbridge.db")
}

// openDatabase opens the configured database. Failures degrade to nil;
// callers then run without persistence.
func openDatabase(cfg *config.Config) *db.DB {
	database, err := db.Open(databasePath(cfg))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not open database: %v\n", err)
		fmt.Fprintln(os.Stderr, "Sessions and transcripts will not be persisted.")
		return nil
	}
	return database
}

// newSessionManager wires the session manager for the given config,
// persisting to the database when one is available.
func newSessionManager(cfg *config.Config, database *db.DB) *session.Manager {
	endpoint := completionEndpoint(cfg)
	key := session.StorageKey(endpoint, cfg.Model)
	var store session.Store
	if database != nil {
		store = session.NewSQLiteStore(database)
	}
	return session.NewManager(key, store)
}

func completionEndpoint(cfg *config.Config) string {
	client := ragflow.NewClient(ragflow.ClientOptions{
		APIBase:        cfg.APIBase,
		AgentID:        cfg.AgentID,
		CompletionPath: cfg.CompletionPath,
		APIKey:         cfg.APIKey,
		Model:          cfg.Model,
		Timeout:        time.Duration(cfg.TimeoutMs) * time.Millisecond,
	})
	return client.Endpoint()
}
