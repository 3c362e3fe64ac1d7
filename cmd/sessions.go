package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nsing-labs/ragbridge/internal/db"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage stored chat sessions and transcripts",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored conversations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := resolveConfig(cmd.Context())
		if err != nil {
			return err
		}
		database, err := db.Open(databasePath(cfg))
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer database.Close()

		conversations, err := db.NewConversationStore(database).ListSessions()
		if err != nil {
			return err
		}
		if len(conversations) == 0 {
			fmt.Println("No stored conversations.")
			return nil
		}
		for _, c := range conversations {
			title := c.Title
			if title == "" {
				title = "(untitled)"
			}
			fmt.Printf("%s  %3d msgs  %s  %s\n", c.UpdatedAt.Format("2006-01-02 15:04"), c.MessageCount, c.SessionID, title)
		}
		return nil
	},
}

var sessionsClearCmd = &cobra.Command{
	Use:   "clear [session-id]",
	Short: "Delete stored conversations",
	Long:  `Deletes a single conversation by session id, or all stored sessions and transcripts when no id is given.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := resolveConfig(cmd.Context())
		if err != nil {
			return err
		}
		database, err := db.Open(databasePath(cfg))
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer database.Close()

		store := db.NewConversationStore(database)
		if len(args) == 1 {
			if err := store.DeleteSession(args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted conversation %s\n", args[0])
			return nil
		}
		if err := store.DeleteAll(); err != nil {
			return err
		}
		fmt.Println("Deleted all stored sessions and transcripts.")
		return nil
	},
}

func init() {
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsClearCmd)
	rootCmd.AddCommand(sessionsCmd)
}
