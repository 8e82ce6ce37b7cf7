package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/ogulcanaydogan/aussiebb-go/internal/config"
	"github.com/ogulcanaydogan/aussiebb-go/internal/observability"
	"github.com/ogulcanaydogan/aussiebb-go/internal/output"
	"github.com/ogulcanaydogan/aussiebb-go/pkg/account"
	"github.com/ogulcanaydogan/aussiebb-go/pkg/alerts"
	"github.com/ogulcanaydogan/aussiebb-go/pkg/client"
	"github.com/ogulcanaydogan/aussiebb-go/pkg/storage"
	"github.com/ogulcanaydogan/aussiebb-go/pkg/tracker"
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags.
var Version = "dev"

var (
	cfgFile      string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "abb",
	Short: "abb - Aussie Broadband usage client",
	Long: `abb reads account details and data usage from the Aussie Broadband
customer API. Historic usage is resolved against each service's billing
rollover day, archived locally for reporting, and checked against the
plan's data quota.`,
	SilenceUsage: true,
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.abb/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "format", "o", "auto", "output format (table, json, yaml)")
}

// loadConfig loads the configuration.
func loadConfig() (*config.Config, error) {
	return config.Load(cfgFile)
}

// format returns the validated --format flag.
func format() (output.Format, error) {
	return output.ParseFormat(outputFormat)
}

// newLogger creates a structured logger from config.
func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var handler slog.Handler
	if cfg.Logging.Format == "text" {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}

	return slog.New(handler)
}

// initClient creates a client from config and logs in.
func initClient(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) (*client.Client, error) {
	if err := cfg.RequireAuth(); err != nil {
		return nil, err
	}

	opts := []client.Option{
		client.WithBaseURLs(withSlash(cfg.API.AuthURL), withSlash(cfg.API.BaseURL)),
		client.WithTimeout(cfg.API.Timeout),
	}
	if metrics != nil {
		opts = append(opts, client.WithObserver(metrics))
	}

	c, err := client.New(logger, opts...)
	if err != nil {
		return nil, err
	}
	if err := c.Login(ctx, cfg.Auth.Username, cfg.Auth.Password); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	logger.Debug("logged in", "username", cfg.Auth.Username, "token_expiry", c.TokenExpiry())
	return c, nil
}

// initAccount creates a logged in account.
func initAccount(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) (*account.Account, error) {
	c, err := initClient(ctx, cfg, logger, metrics)
	if err != nil {
		return nil, err
	}

	var opts []account.Option
	if metrics != nil {
		opts = append(opts, account.WithHistoryRecorder(metrics))
	}
	return account.New(c, cfg.Cache.Refresh, logger, opts...), nil
}

// initStorage creates a storage backend from config.
func initStorage(cfg *config.Config) (storage.Storage, error) {
	return storage.NewSQLite(cfg.Storage.Path)
}

// initNotifiers creates alert notifiers from config.
func initNotifiers(cfg *config.Config) []alerts.Notifier {
	var notifiers []alerts.Notifier

	if cfg.Alerts.Slack.Enabled && cfg.Alerts.Slack.WebhookURL != "" {
		notifiers = append(notifiers, alerts.NewSlackNotifier(
			cfg.Alerts.Slack.WebhookURL,
			cfg.Alerts.Slack.Channel,
		))
	}

	if cfg.Alerts.Webhook.Enabled && cfg.Alerts.Webhook.URL != "" {
		notifiers = append(notifiers, alerts.NewWebhookNotifier(
			cfg.Alerts.Webhook.URL,
			cfg.Alerts.Webhook.Secret,
		))
	}

	return notifiers
}

// initTracker creates a fully wired usage tracker.
func initTracker(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*tracker.UsageTracker, storage.Storage, error) {
	acct, err := initAccount(ctx, cfg, logger, nil)
	if err != nil {
		return nil, nil, err
	}

	store, err := initStorage(cfg)
	if err != nil {
		return nil, nil, err
	}

	return tracker.NewUsageTracker(acct, store, logger), store, nil
}

func withSlash(u string) string {
	if strings.HasSuffix(u, "/") {
		return u
	}
	return u + "/"
}
