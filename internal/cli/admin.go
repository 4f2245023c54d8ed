package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/victornm/quizpin/internal/api"
	"github.com/victornm/quizpin/internal/domain"
	"github.com/victornm/quizpin/internal/errors"
)

func newCreateCmd(opts *rootOptions) *cobra.Command {
	var title string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a game and print its PIN.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(api.Config{BaseURL: opts.server})
			created, err := client.CreateGame(cmd.Context(), api.CreateGameRequest{Title: title})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "game %s created\n", created.GameID)
			fmt.Fprintf(cmd.OutOrStdout(), "PIN: %s\n", created.PIN)
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "game title (env: QUIZPIN_TITLE)")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newAddQuestionCmd(opts *rootOptions) *cobra.Command {
	var (
		gameID  string
		text    string
		options []string
		correct int
	)

	cmd := &cobra.Command{
		Use:   "add-question",
		Short: "Append a question to a prepared game.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(api.Config{BaseURL: opts.server})
			err := client.AddQuestion(cmd.Context(), api.AddQuestionRequest{
				GameID:       gameID,
				Text:         text,
				Options:      options,
				CorrectIndex: correct,
			})
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "question added")
			return nil
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&gameID, "game", "", "game id (env: QUIZPIN_GAME)")
	fs.StringVar(&text, "text", "", "question text (env: QUIZPIN_TEXT)")
	fs.StringSliceVar(&options, "options", nil, "the 4 answer options, comma separated (env: QUIZPIN_OPTIONS)")
	fs.IntVar(&correct, "correct", 0, "index of the correct option, 0 to 3 (env: QUIZPIN_CORRECT)")
	_ = cmd.MarkFlagRequired("game")
	_ = cmd.MarkFlagRequired("text")
	_ = cmd.MarkFlagRequired("options")
	return cmd
}

func newGamesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "games",
		Short: "List games, newest first.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(api.Config{BaseURL: opts.server})
			games, err := client.ListGames(cmd.Context())
			if err != nil {
				return err
			}

			for _, g := range games {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %-8s  %s\n", g.PIN, g.ID, g.Status, g.Title)
			}
			return nil
		},
	}
}

func newStatusCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <game-id> <PREPARED|ACTIVE|FINISHED>",
		Short: "Move a game between lifecycle states.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			status := domain.GameStatus(args[1])
			switch status {
			case domain.StatusPrepared, domain.StatusActive, domain.StatusFinished:
			default:
				return errors.New(errors.CodeInvalidArgument, errors.WithMessagef("unknown status %q", args[1]))
			}

			client := api.NewClient(api.Config{BaseURL: opts.server})
			if err := client.UpdateGameStatus(cmd.Context(), args[0], status); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "status updated")
			return nil
		},
	}
	return cmd
}
