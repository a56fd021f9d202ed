// cmd/serve.go
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aceteam-ai/skillcraft/internal/dedupe"
	"github.com/aceteam-ai/skillcraft/internal/ratelimit"
	"github.com/aceteam-ai/skillcraft/internal/server"
	"github.com/aceteam-ai/skillcraft/internal/slackbot"
	"github.com/aceteam-ai/skillcraft/internal/usage"
	"github.com/slack-go/slack"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Slack bot and the usage API",
	Long: `Starts the HTTP server that receives Slack Events API callbacks on
/slack/events, answers app mentions through the operation router, and serves
/health and /usage. Runs until interrupted; in-flight replies are allowed to
finish before exit.

Set REDIS_URL to share event de-duplication between replicas.`,
	Example: `  # Listen on the default :8000
  skillcraft serve

  # Listen elsewhere with debug logging
  skillcraft serve --addr :9000 --debug`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}
	if err := cfg.ValidateServe(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r, log, err := newBilledRouter(cfg)
	if err != nil {
		return err
	}

	store, closeStore, err := newDedupeStore(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	defer closeStore()

	limiter := ratelimit.New(cfg.Slack.RateLimitRPS, cfg.Slack.RateLimitBurst)
	defer limiter.Stop()

	bot := slackbot.NewHandler(slackbot.Config{
		SigningSecret: cfg.Slack.SigningSecret,
		Router:        r,
		Poster:        slack.New(cfg.Slack.BotToken),
		Dedupe:        store,
		Limiter:       limiter,
		Logger:        logger.Named("slack"),
	})

	srv := server.New(server.Config{
		Addr:       cfg.Server.Addr,
		Version:    Version,
		Slack:      bot,
		Aggregator: usage.NewAggregator(log),
		Logger:     logger.Named("server"),
	})

	logger.Info("starting skillcraft",
		zap.String("addr", srv.Addr()),
		zap.String("cost_file", log.Path()),
		zap.String("model", cfg.Watsonx.ModelID),
		zap.Bool("shared_dedupe", cfg.RedisURL != ""))

	err = srv.Start(ctx)
	logger.Info("waiting for in-flight replies")
	bot.Wait()
	if err != nil {
		return fmt.Errorf("server stopped: %w", err)
	}
	return nil
}

// newDedupeStore returns a Redis store when url is set, else an in-memory one.
func newDedupeStore(ctx context.Context, url string) (dedupe.Store, func(), error) {
	if url == "" {
		return dedupe.NewMemoryStore(dedupe.DefaultTTL), func() {}, nil
	}
	client, err := dedupe.Connect(ctx, url)
	if err != nil {
		return nil, nil, err
	}
	return dedupe.NewRedisStore(client, "", dedupe.DefaultTTL), func() { client.Close() }, nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides SKILLCRAFT_ADDR)")
}
