// Command youtube-live-chat-openai runs the live chat assistant bot. It:
//   - Loads configuration (config.json + YTBOT_* env + flags) and initializes
//     structured logging.
//   - Verifies the OpenAI assistant and resolves the target live broadcast.
//   - Polls the live chat, answers mentions and "!" commands through the
//     assistant, and throttles polling when the daily quota budget runs low.
//   - Exposes a minimal HTTP server with /healthz, /readyz, /status, and /metrics.
//
// Shutdown is graceful on SIGINT/SIGTERM.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	openai "github.com/sashabaranov/go-openai"
	"github.com/spf13/cobra"

	"github.com/thiagocaliman/youtube-live-chat-openai/assistant"
	"github.com/thiagocaliman/youtube-live-chat-openai/bot"
	"github.com/thiagocaliman/youtube-live-chat-openai/config"
	"github.com/thiagocaliman/youtube-live-chat-openai/quota"
	"github.com/thiagocaliman/youtube-live-chat-openai/server"
	"github.com/thiagocaliman/youtube-live-chat-openai/telemetry"
	"github.com/thiagocaliman/youtube-live-chat-openai/youtubeapi"
)

const version = "1.0.0"

var (
	flagVideoID  string
	flagInterval int
	flagEconomy  bool
	flagConfig   string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "youtube-live-chat-openai",
		Short: "YouTube live chat bot backed by an OpenAI assistant",
		RunE: func(cmd *cobra.Command, args []string) error {
			run(cmd.Context())
			return nil
		},
	}
	rootCmd.Flags().StringVarP(&flagVideoID, "video", "t", "", "live broadcast video ID (overrides config)")
	rootCmd.Flags().IntVarP(&flagInterval, "interval", "i", 0, "poll interval in seconds (overrides config)")
	rootCmd.Flags().BoolVarP(&flagEconomy, "economy", "e", false, "start in economy mode (slow polling)")
	rootCmd.Flags().StringVar(&flagConfig, "config", "config.json", "path to the config file")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(parent context.Context) {
	// Load .env file if present (local dev convenience only; production relies on real env)
	_ = godotenv.Load()

	initLogging()

	cfg, err := config.Load(flagConfig)
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}
	applyFlags(cfg)
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("err", err))
		os.Exit(1)
	}
	// Persist flag overrides so the next run picks them up.
	if err := cfg.Save(); err != nil {
		slog.Warn("config save failed", slog.Any("err", err))
	}

	telemetry.Init()
	shutdownTracing, err := telemetry.InitTracing("youtube-chat-bot", version)
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer shutdownTracing()

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		slog.Error("OPENAI_API_KEY not set")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Assistant preflight: fail fast on a bad assistant ID or key.
	responder := assistant.New(openai.NewClient(apiKey), cfg.AssistantID)
	if d := envDuration("ASSISTANT_MAX_WAIT"); d > 0 {
		responder.MaxWait = d
	}
	name, err := responder.Verify(ctx)
	if err != nil {
		slog.Error("assistant verification failed", slog.String("assistant", cfg.AssistantID), slog.Any("err", err))
		os.Exit(1)
	}
	slog.Info("assistant verified", slog.String("assistant", cfg.AssistantID), slog.String("name", name))

	svc, err := youtubeapi.NewService(ctx)
	if err != nil {
		slog.Error("youtube service init failed", slog.Any("err", err))
		os.Exit(1)
	}

	// Economy flips persist into the config file so restarts stay throttled.
	tracker := quota.New(quota.DefaultStore(cfg.QuotaFile), cfg.DailyQuota, cfg.QuotaReserve, cfg.EconomyMode, func(on bool) error {
		cfg.SetEconomyMode(on)
		return cfg.Save()
	})
	if err := tracker.Load(ctx); err != nil {
		slog.Warn("quota state load failed, starting fresh", slog.Any("err", err))
	}

	chatClient := youtubeapi.NewClient(svc, tracker)
	b := bot.New(cfg, chatClient, responder, tracker)

	go func() {
		if err := server.Start(ctx, b, cfg.HTTPAddr); err != nil {
			slog.Error("http server failed", slog.Any("err", err))
		}
	}()

	if err := b.Run(ctx); err != nil {
		slog.Error("bot stopped", slog.Any("err", err))
		os.Exit(1)
	}
}

func applyFlags(cfg *config.Config) {
	if flagVideoID != "" {
		cfg.SetVideoID(flagVideoID)
	}
	if flagInterval > 0 {
		cfg.SetPollInterval(time.Duration(flagInterval) * time.Second)
	}
	if flagEconomy {
		cfg.SetEconomyMode(true)
	}
}

// initLogging configures slog from LOG_LEVEL and LOG_FORMAT (text | json).
func initLogging() {
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "info", "":
		// keep default
	default:
		tmp := slog.New(slog.NewTextHandler(os.Stdout, nil))
		tmp.Warn("unknown LOG_LEVEL, using info", slog.String("value", os.Getenv("LOG_LEVEL")))
	}
	var handler slog.Handler
	switch strings.ToLower(os.Getenv("LOG_FORMAT")) {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	default:
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))
	slog.Info("logger initialized", slog.String("level", lvl.String()))
}

func envDuration(key string) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("invalid duration, ignoring", slog.String("key", key), slog.String("value", v))
		return 0
	}
	return d
}
