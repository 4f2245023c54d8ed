// Package cli wires the quizpin commands: the reference server, the admin
// commands on the REST boundary and the three interactive views.
package cli

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type rootOptions struct {
	server   string
	snapshot string
}

// New builds the quizpin command tree. Every flag can also be set through a
// QUIZPIN_* environment variable.
func New() *cobra.Command {
	opts := &rootOptions{}

	v := viper.New()
	v.SetEnvPrefix("QUIZPIN")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "quizpin",
		Short:         "Live quiz games: host on a big screen, answer on your phone.",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	fs := cmd.PersistentFlags()
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})
	fs.StringVar(&opts.server, "server", "http://localhost:8080", "base URL of the quiz server (env: QUIZPIN_SERVER)")
	fs.StringVar(&opts.snapshot, "snapshot", defaultSnapshotPath(), "path of the local session snapshot database (env: QUIZPIN_SNAPSHOT)")

	cmd.AddCommand(
		newServeCmd(),
		newCreateCmd(opts),
		newAddQuestionCmd(opts),
		newGamesCmd(opts),
		newStatusCmd(opts),
		newPlayCmd(opts),
		newControlCmd(opts),
		newDisplayCmd(opts),
	)

	for _, sub := range cmd.Commands() {
		bindFlags(v, sub.Flags())
	}
	bindFlags(v, fs)

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})

	return cmd
}

func bindFlags(v *viper.Viper, fs *pflag.FlagSet) {
	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})
}

// wsURL derives the websocket endpoint from the server base URL.
func (o *rootOptions) wsURL() (string, error) {
	u, err := url.Parse(o.server)
	if err != nil {
		return "", fmt.Errorf("invalid --server %q: %w", o.server, err)
	}

	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = "/ws"
	return u.String(), nil
}

func defaultSnapshotPath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "quizpin-session.db"
	}
	return filepath.Join(dir, "quizpin", "session.db")
}

func ensureParentDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}
