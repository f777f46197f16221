package main

import (
	"bufio"
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/park285/chess-assistant-bot/internal/adapter/chesspresenter"
	"github.com/park285/chess-assistant-bot/internal/service/assistant"
)

var consoleUser string

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Chat with the assistant on stdin",
	Long: `Each input line is sent to the assistant as a chat message.

Lines starting with "/cb " are sent as button callbacks (for example "/cb turn_white"),
and "/photo" simulates a board photo.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		rt, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer rt.close(context.Background())

		presenter := chesspresenter.NewWriterPresenter(chesspresenter.NewFormatter(rt.deps.Messages), cmd.OutOrStdout())
		scanner := bufio.NewScanner(cmd.InOrStdin())
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			if line == "/quit" || line == "/exit" {
				break
			}
			reply := rt.deps.Dispatcher.Handle(ctx, consoleEvent(consoleUser, line))
			if err := presenter.Reply(chesspresenter.ToDTOReply(reply)); err != nil {
				return err
			}
		}
		return scanner.Err()
	},
}

func consoleEvent(userID, line string) assistant.Event {
	switch {
	case line == "/photo":
		return assistant.Event{UserID: userID, Kind: assistant.EventPhoto}
	case strings.HasPrefix(line, "/cb "):
		return assistant.Event{UserID: userID, Kind: assistant.EventCallback, Text: strings.TrimSpace(line[len("/cb "):])}
	default:
		return assistant.Event{UserID: userID, Kind: assistant.EventText, Text: line}
	}
}

func init() {
	rootCmd.AddCommand(consoleCmd)
	consoleCmd.Flags().StringVarP(&consoleUser, "user", "u", "console", "user id for the session")
}
