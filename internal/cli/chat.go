package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/evcraddock/house-market/internal/chat"
)

func newChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat [message]",
		Short: "Ask the property assistant",
		Long:  "Sends one message to the assistant, or with no arguments starts an interactive conversation. Type 'exit' or press Ctrl-D to leave.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if len(args) > 0 {
				return ask(ctx, a.Chat, strings.Join(args, " "))
			}
			return converse(ctx, a.Chat, os.Stdin)
		},
	}
}

func ask(ctx context.Context, s *chat.Store, text string) error {
	reply, err := s.Send(ctx, text)
	if err != nil {
		return fmt.Errorf("asking assistant: %w", err)
	}
	if isJSON() {
		return printJSON(s.Messages())
	}
	fmt.Println(reply)
	return nil
}

// converse reads messages from r until EOF or "exit". A failed message is
// reported and the conversation continues.
func converse(ctx context.Context, s *chat.Store, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}

		reply, err := s.Send(ctx, line)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %s\n", s.Err())
			continue
		}
		fmt.Println(reply)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	if isJSON() {
		return printJSON(s.Messages())
	}
	return nil
}
