package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"github.com/nsing-labs/ragbridge/internal/progress"
	"github.com/nsing-labs/ragbridge/internal/ragflow"
)

var (
	uploadDataset string
	uploadParse   bool
	uploadWait    bool
)

// pollInterval is how often `upload --wait` re-checks parse status.
const pollInterval = 6 * time.Second

var uploadCmd = &cobra.Command{
	Use:   "upload <pattern>...",
	Short: "Upload documents to the configured dataset",
	Long: `Uploads files matching the given glob patterns (** supported) to the
RAGFlow dataset. With --parse the backend starts chunking the uploaded
documents; with --wait the command polls until parsing settles.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, err := resolveConfig(ctx)
		if err != nil {
			return err
		}
		if uploadDataset != "" {
			cfg.DatasetID = uploadDataset
		}
		client, err := newDatasetClient(cfg)
		if err != nil {
			return err
		}

		paths, err := expandPatterns(args)
		if err != nil {
			return err
		}
		if len(paths) == 0 {
			return fmt.Errorf("no files match the given patterns")
		}

		reporter := progress.NewUploadReporter(len(paths))

		// Upload one file per request so progress tracks real work.
		var ids []string
		for _, path := range paths {
			var size int64
			if info, err := os.Stat(path); err == nil {
				size = info.Size()
			}
			reporter.File(path, size)
			uploaded, err := client.UploadDocuments(ctx, []string{path})
			if err != nil {
				reporter.Done()
				return fmt.Errorf("uploading %s: %w", path, err)
			}
			ids = append(ids, uploaded...)
			reporter.Advance()
		}
		reporter.Done()

		if !uploadParse && !uploadWait {
			return nil
		}

		if err := client.StartParsing(ctx, ids); err != nil {
			return fmt.Errorf("starting parse: %w", err)
		}
		fmt.Println("Parsing started")

		if uploadWait {
			return waitForParsing(ctx, client, ids)
		}
		return nil
	},
}

func init() {
	uploadCmd.Flags().StringVar(&uploadDataset, "dataset", "", "dataset id (default from config)")
	uploadCmd.Flags().BoolVar(&uploadParse, "parse", false, "start parsing after upload")
	uploadCmd.Flags().BoolVar(&uploadWait, "wait", false, "wait until parsing finishes (implies --parse)")
	rootCmd.AddCommand(uploadCmd)
}

// expandPatterns resolves glob patterns to regular files, keeping
// literal paths that exist as-is.
func expandPatterns(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var paths []string
	for _, pattern := range patterns {
		if info, err := os.Stat(pattern); err == nil && !info.IsDir() {
			if !seen[pattern] {
				seen[pattern] = true
				paths = append(paths, pattern)
			}
			continue
		}
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", pattern, err)
		}
		for _, match := range matches {
			info, err := os.Stat(match)
			if err != nil || info.IsDir() {
				continue
			}
			if !seen[match] {
				seen[match] = true
				paths = append(paths, match)
			}
		}
	}
	return paths, nil
}

// waitForParsing polls the document list until none of the uploaded
// documents is still parsing.
func waitForParsing(ctx context.Context, client *ragflow.DatasetClient, ids []string) error {
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		docs, err := client.ListDocuments(ctx)
		if err != nil {
			return fmt.Errorf("checking parse status: %w", err)
		}

		pending := 0
		for _, doc := range docs {
			if !wanted[doc.ID] {
				continue
			}
			if doc.Status() == ragflow.StatusParsing {
				pending++
			}
		}
		if pending == 0 {
			fmt.Println("Parsing finished")
			return nil
		}
		fmt.Printf("Waiting on %d document(s)...\n", pending)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
