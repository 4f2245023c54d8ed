package cli

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/victornm/quizpin/internal/channel"
	"github.com/victornm/quizpin/internal/store"
	"github.com/victornm/quizpin/internal/view"
)

// hostSession builds the store and channel for a host view. Host views observe
// only: their session is ephemeral and never written to the snapshot database.
func hostSession(cmd *cobra.Command, opts *rootOptions) (*store.Store, *channel.Channel, error) {
	st := store.New(cmd.Context(), store.Config{})

	wsURL, err := opts.wsURL()
	if err != nil {
		return nil, nil, err
	}
	return st, channel.New(channel.Config{URL: wsURL, Store: st}), nil
}

func newControlCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "control <pin>",
		Short: "Drive a game as its host: start it and advance the questions.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			st, ch, err := hostSession(cmd, opts)
			if err != nil {
				return err
			}

			control := view.NewHostControl(view.Config{Store: st, Channel: ch, Out: cmd.OutOrStdout()})
			control.Mount(ctx)
			defer control.Unmount()
			defer ch.Close(ctx)

			if err := control.Join(ctx, args[0]); err != nil {
				return err
			}
			control.Render()

			scanner := bufio.NewScanner(cmd.InOrStdin())
			for scanner.Scan() {
				switch strings.TrimSpace(scanner.Text()) {
				case "":
				case "start":
					if err := control.StartGame(ctx); err != nil {
						fmt.Fprintf(cmd.OutOrStdout(), "! %v\n", err)
					}
				case "next":
					if err := control.NextQuestion(ctx); err != nil {
						fmt.Fprintf(cmd.OutOrStdout(), "! %v\n", err)
					}
				case "quit":
					return nil
				default:
					fmt.Fprintln(cmd.OutOrStdout(), "commands: start, next, quit")
				}
			}
			return scanner.Err()
		},
	}
	return cmd
}

func newDisplayCmd(opts *rootOptions) *cobra.Command {
	var joinURL string

	cmd := &cobra.Command{
		Use:   "display <pin>",
		Short: "Run the shared screen: lobby with PIN and QR code, questions, ranking.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			st, ch, err := hostSession(cmd, opts)
			if err != nil {
				return err
			}

			if joinURL == "" {
				joinURL = fmt.Sprintf("%s/join?pin=%s", opts.server, args[0])
			}

			display := view.NewHostDisplay(view.Config{
				Store:   st,
				Channel: ch,
				Out:     cmd.OutOrStdout(),
				JoinURL: joinURL,
			})
			display.Mount(ctx)
			defer display.Unmount()
			defer ch.Close(ctx)

			if err := display.Join(ctx, args[0]); err != nil {
				return err
			}
			display.Render()

			shutdown := make(chan os.Signal, 1)
			signal.Notify(shutdown, syscall.SIGTERM, os.Interrupt)
			<-shutdown
			return nil
		},
	}

	cmd.Flags().StringVar(&joinURL, "join-url", "", "URL encoded in the lobby QR code (env: QUIZPIN_JOIN_URL)")
	return cmd
}
