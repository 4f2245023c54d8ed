package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/victornm/quizpin/internal/config"
	"github.com/victornm/quizpin/internal/server"
)

func newServeCmd() *cobra.Command {
	var (
		configPath  string
		port        int32
		redisAddrs  []string
		redisPass   string
		redisPrefix string
		dbPath      string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the quiz server.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			var c server.Config
			c.HTTP.Port = port
			c.Redis.Addrs = redisAddrs
			c.Redis.Pass = redisPass
			c.Redis.Prefix = redisPrefix
			c.SQLite.Path = dbPath

			if configPath != "" {
				if err := config.Load(configPath, &c); err != nil {
					return err
				}
			}

			s, err := server.Init(c)
			if err != nil {
				return err
			}

			shutdown := make(chan os.Signal, 1)
			signal.Notify(shutdown, syscall.SIGTERM, os.Interrupt)

			go s.Start()
			<-shutdown
			s.Shutdown()
			return nil
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&configPath, "config", "", "path to a config file; flags are the fallback (env: QUIZPIN_CONFIG)")
	fs.Int32Var(&port, "port", 8080, "port to listen on (env: QUIZPIN_PORT)")
	fs.StringSliceVar(&redisAddrs, "redis", nil, "redis addresses; empty starts an embedded instance (env: QUIZPIN_REDIS)")
	fs.StringVar(&redisPass, "redis-pass", "", "redis password (env: QUIZPIN_REDIS_PASS)")
	fs.StringVar(&redisPrefix, "redis-prefix", "quizpin", "redis key prefix (env: QUIZPIN_REDIS_PREFIX)")
	fs.StringVar(&dbPath, "db", "quizpin.db", "path of the server's sqlite database (env: QUIZPIN_DB)")

	return cmd
}
