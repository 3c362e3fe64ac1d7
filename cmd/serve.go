package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nsing-labs/ragbridge/internal/db"
	"github.com/nsing-labs/ragbridge/internal/server"
)

var (
	servePort     int
	serveAllowAll bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the widget gateway",
	Long: `Starts the HTTP gateway that site widgets talk to. The gateway keeps
the RAGFlow API key server-side: widgets fetch their config and token
from it, and chat requests are proxied to the agent with transcripts
stored locally.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := resolveConfig(cmd.Context())
		if err != nil {
			return err
		}

		source, err := newSource(cfg)
		if err != nil {
			return err
		}

		database := openDatabase(cfg)
		var store *db.ConversationStore
		if database != nil {
			defer database.Close()
			store = db.NewConversationStore(database)
		}

		port := servePort
		if port == 0 {
			port = cfg.Serve.Port
		}
		srv := server.New(server.Config{
			Port:           port,
			AllowedOrigins: cfg.Serve.AllowedOrigins,
			AllowAll:       serveAllowAll || cfg.Serve.AllowAll,
		}, cfg, source, store)

		// Graceful shutdown.
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		go func() {
			<-ctx.Done()
			fmt.Fprintln(os.Stderr, "\nShutting down gateway...")
			srv.Shutdown(context.Background())
		}()

		fmt.Fprintf(os.Stderr, "ragbridge gateway v%s starting on port %d\n", Version, port)
		fmt.Fprintf(os.Stderr, "  Source: %s\n", source.Name())
		if database != nil {
			fmt.Fprintf(os.Stderr, "  Database: %s\n", database.Path())
		}

		return srv.Start()
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port (default from config)")
	serveCmd.Flags().BoolVar(&serveAllowAll, "allow-all", false, "allow all origins (dev mode)")
	serveCmd.Flags().StringVar(&flagSource, "source", "", "reply source (ragflow, mock, bridge, openai)")
	rootCmd.AddCommand(serveCmd)
}
