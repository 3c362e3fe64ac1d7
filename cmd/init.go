package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nsing-labs/ragbridge/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a config file interactively",
	Long:  `Walks through the RAGFlow connection settings and writes them to the config file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.RunWizard(cfgFile)
		if err != nil {
			return err
		}
		fmt.Printf("Config written to %s\n", cfgFile)
		fmt.Printf("  API base: %s\n", cfg.APIBase)
		fmt.Printf("  Agent:    %s\n", cfg.AgentID)
		fmt.Printf("  Model:    %s\n", cfg.Model)
		fmt.Println("Run `ragbridge chat` to start a conversation.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
