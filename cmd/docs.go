package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nsing-labs/ragbridge/internal/ragflow"
)

var (
	docsDataset string
	docsWatch   bool
)

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "List documents in the configured dataset",
	Long:  `Lists the dataset's documents with their parse status. With --watch the list refreshes until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, err := resolveConfig(ctx)
		if err != nil {
			return err
		}
		if docsDataset != "" {
			cfg.DatasetID = docsDataset
		}
		client, err := newDatasetClient(cfg)
		if err != nil {
			return err
		}

		if err := printDocuments(ctx, client); err != nil {
			return err
		}
		if !docsWatch {
			return nil
		}

		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				fmt.Println()
				if err := printDocuments(ctx, client); err != nil {
					return err
				}
			}
		}
	},
}

func init() {
	docsCmd.Flags().StringVar(&docsDataset, "dataset", "", "dataset id (default from config)")
	docsCmd.Flags().BoolVar(&docsWatch, "watch", false, "refresh the list periodically")
	rootCmd.AddCommand(docsCmd)
}

func printDocuments(ctx context.Context, client *ragflow.DatasetClient) error {
	docs, err := client.ListDocuments(ctx)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		fmt.Println("No documents yet.")
		return nil
	}
	for _, doc := range docs {
		size := ragflow.FormatSize(doc.Size)
		if size != "" {
			size = size + "  "
		}
		fmt.Printf("%-10s %s%s\n", doc.Status(), size, doc.DisplayName())
	}
	return nil
}
