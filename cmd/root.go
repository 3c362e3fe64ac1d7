package cmd

import (
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "ragbridge",
	Short: "Chat client and gateway for RAGFlow agent backends",
	Long: `Ragbridge connects marketing-site chat widgets to a RAGFlow agent
backend. It resolves configuration, keeps a stable chat session per
endpoint, parses agent replies into content plus cited references, and
can serve as a gateway so browser widgets never see the API key.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", ".ragbridge.yml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
