package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/nsing-labs/ragbridge/internal/assistant"
	"github.com/nsing-labs/ragbridge/internal/config"
	"github.com/nsing-labs/ragbridge/internal/render"
	"github.com/nsing-labs/ragbridge/internal/reply"
)

var chatHTML bool

var chatCmd = &cobra.Command{
	Use:   "chat [prompt]",
	Short: "Chat with the configured assistant",
	Long: `Sends a prompt to the assistant and prints the reply. With a prompt
argument the command runs once and exits; without one it starts an
interactive loop. Inline citations are resolved to numbered footnotes
and cited documents are listed under the reply.`,
	Args: cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, err := resolveConfig(ctx)
		if err != nil {
			return err
		}

		source, err := newSource(cfg)
		if err != nil {
			return err
		}
		database := openDatabase(cfg)
		if database != nil {
			defer database.Close()
		}
		bot := assistant.New(source, newSessionManager(cfg, database))
		if err := bot.Warm(ctx); err != nil {
			return fmt.Errorf("resolving session: %w", err)
		}

		if len(args) > 0 {
			turn := bot.Submit(ctx, strings.Join(args, " "))
			if turn == nil {
				return fmt.Errorf("empty prompt")
			}
			printTurn(turn)
			return nil
		}
		return chatLoop(ctx, cfg, bot)
	},
}

func init() {
	chatCmd.Flags().BoolVar(&chatHTML, "html", false, "print the rendered HTML fragment instead of text")
	chatCmd.Flags().StringVar(&flagAPIBase, "api-base", "", "RAGFlow API base URL")
	chatCmd.Flags().StringVar(&flagAgentID, "agent", "", "RAGFlow agent id")
	chatCmd.Flags().StringVar(&flagAPIKey, "api-key", "", "RAGFlow API key")
	chatCmd.Flags().StringVar(&flagModel, "model", "", "model name")
	chatCmd.Flags().StringVar(&flagSource, "source", "", "reply source (ragflow, mock, bridge, openai)")
	rootCmd.AddCommand(chatCmd)
}

func chatLoop(ctx context.Context, cfg *config.Config, bot *assistant.Assistant) error {
	fmt.Printf("%s\n", cfg.Assistant.Name)
	fmt.Printf("%s\n\n", cfg.Assistant.Welcome)
	if len(cfg.Assistant.Suggestions) > 0 {
		fmt.Println("Try one of these:")
		for _, suggestion := range cfg.Assistant.Suggestions {
			fmt.Printf("  - %s\n", suggestion)
		}
		fmt.Println()
	}
	fmt.Println("Type your question, or \"exit\" to quit.")

	for {
		prompt := promptui.Prompt{Label: "You"}
		input, err := prompt.Run()
		if err != nil {
			if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
				return nil
			}
			return err
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			return nil
		}

		turn := bot.Submit(ctx, input)
		if turn == nil {
			continue
		}
		printTurn(turn)
	}
}

func printTurn(turn *assistant.Turn) {
	if chatHTML {
		renderer := render.New()
		fmt.Println(renderer.Render(reply.Reply{
			Content:    turn.Content,
			References: turn.References,
			Chunks:     turn.Chunks,
		}))
		return
	}

	content, cited := render.Footnotes(turn.Content, turn.Chunks)
	fmt.Printf("\n%s\n", content)
	if len(cited) > 0 {
		fmt.Println("\nCitations:")
		for i, chunk := range cited {
			fmt.Printf("  [%d] %s\n", i+1, chunk.DocumentName)
		}
	}
	if len(turn.References) > 0 {
		fmt.Println("\nSources:")
		for _, ref := range turn.References {
			if ref.URL != "" {
				fmt.Printf("  - %s (%s)\n", ref.Name, ref.URL)
			} else {
				fmt.Printf("  - %s\n", ref.Name)
			}
		}
	}
	fmt.Println()
}
