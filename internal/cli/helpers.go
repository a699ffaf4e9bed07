package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"s3sweep/internal/config"
	"s3sweep/internal/secrets"
	"s3sweep/internal/state"
	"s3sweep/internal/storage"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// loadConfig reads the config file and applies command-line overrides before
// validating.
func (a *app) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Decode(a.global.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("bucket") {
		cfg.S3.Bucket = a.global.Bucket
	}
	if flags.Changed("prefix") {
		cfg.S3.Prefix = a.global.Prefix
	}
	if flags.Changed("cutoff") {
		cfg.Cutoff = a.global.Cutoff
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = a.global.LogLevel
	}

	cfg.ApplyDefaults()
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func newLogger(w io.Writer, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.TrimSpace(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	output := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: "2006-01-02 15:04:05",
	}
	return zerolog.New(output).Level(lvl).With().Timestamp().Logger()
}

func newS3Store(ctx context.Context, cfg *config.Config) (storage.VersionStore, error) {
	credsCfg, err := credentialsConfig(cfg.Credentials)
	if err != nil {
		return nil, err
	}
	creds, err := secrets.Provider(credsCfg)
	if err != nil {
		return nil, fmt.Errorf("load credentials: %w", err)
	}

	client, err := storage.NewS3Client(ctx, cfg.S3, storage.ClientOptions{
		Credentials:     creds,
		ListPageTimeout: cfg.Timeouts.ListPage.Duration,
		DownloadTimeout: cfg.Timeouts.Download.Duration,
		DeleteTimeout:   cfg.Timeouts.DeleteBatch.Duration,
	})
	if err != nil {
		return nil, fmt.Errorf("create object store: %w", err)
	}
	return client, nil
}

// credentialsConfig falls back to the secrets file in the app directory when
// none is configured and one exists.
func credentialsConfig(cfg config.CredentialsConfig) (config.CredentialsConfig, error) {
	if cfg.File != "" {
		return cfg, nil
	}
	path, err := state.SecretsPath()
	if err != nil {
		return cfg, err
	}
	if _, err := os.Stat(path); err == nil {
		cfg.File = path
	} else if !os.IsNotExist(err) {
		return cfg, fmt.Errorf("stat secrets file: %w", err)
	}
	return cfg, nil
}
