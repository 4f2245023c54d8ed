package cli

import (
	"bufio"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/victornm/quizpin/internal/api"
	"github.com/victornm/quizpin/internal/channel"
	"github.com/victornm/quizpin/internal/domain"
	"github.com/victornm/quizpin/internal/store"
	"github.com/victornm/quizpin/internal/view"
)

func newPlayCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "play [pin] [nickname]",
		Short: "Join a game and answer questions. With no arguments, resumes the saved session.",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if err := ensureParentDir(opts.snapshot); err != nil {
				return err
			}
			snaps, err := store.OpenSnapshots(opts.snapshot)
			if err != nil {
				return err
			}
			defer snaps.Close()

			st := store.New(ctx, store.Config{Snapshots: snaps})
			wsURL, err := opts.wsURL()
			if err != nil {
				return err
			}
			ch := channel.New(channel.Config{URL: wsURL, Store: st})

			player := view.NewPlayer(view.Config{Store: st, Channel: ch, Out: cmd.OutOrStdout()})
			player.Mount(ctx)
			defer player.Unmount()
			defer ch.Close(ctx)

			if len(args) == 2 {
				if err := player.Join(ctx, args[0], args[1]); err != nil {
					return err
				}
			} else if err := resume(ctx, opts, st, player); err != nil {
				return err
			}

			return playLoop(ctx, cmd, player)
		},
	}
	return cmd
}

// resume rejoins the session left behind by a previous run. The channel replays
// nothing, so the REST state query decides whether the game is still worth
// rejoining before the socket is opened.
func resume(ctx context.Context, opts *rootOptions, st *store.Store, player *view.Player) error {
	sess := st.Read()
	if sess.PIN == "" || !sess.Phase.Active() {
		return fmt.Errorf("no resumable session; run: quizpin play <pin> <nickname>")
	}

	client := api.NewClient(api.Config{BaseURL: opts.server})
	state, err := client.GameState(ctx, sess.PIN)
	if err != nil || state.Status == domain.StatusFinished {
		st.Forget(ctx)
		return fmt.Errorf("game %s is over; run: quizpin play <pin> <nickname>", sess.PIN)
	}

	return player.Rejoin(ctx)
}

func playLoop(ctx context.Context, cmd *cobra.Command, player *view.Player) error {
	player.Render()
	fmt.Fprintln(cmd.OutOrStdout(), "type an option number to answer, or 'quit' to leave")

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
		case line == "quit":
			player.Leave(ctx)
			return nil
		default:
			idx, err := strconv.Atoi(line)
			if err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "not an option: %s\n", line)
				continue
			}
			if err := player.SubmitAnswer(ctx, idx); err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "! %v\n", err)
			}
		}
	}
	return scanner.Err()
}
