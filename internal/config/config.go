package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	defaultDownloadDir   = "s3sweep-download"
	defaultLogLevel      = "info"
	defaultSection       = "AWS"
	defaultAccessKey     = "AWS_KEY"
	defaultSecretKey     = "AWS_SECRET"
	defaultSessionToken  = "AWS_SESSION_TOKEN"
	defaultBatchSize     = 1000
	maxBatchSize         = 1000
	defaultListTimeout   = 30 * time.Second
	defaultDeleteTimeout = 60 * time.Second
)

const cutoffDateLayout = "2006-01-02"

type Config struct {
	Cutoff      string            `toml:"cutoff"`
	DownloadDir string            `toml:"download_dir"`
	ExportDir   string            `toml:"export_dir"`
	LogLevel    string            `toml:"log_level"`
	S3          S3Config          `toml:"s3"`
	Credentials CredentialsConfig `toml:"credentials"`
	Delete      DeleteConfig      `toml:"delete"`
	Timeouts    TimeoutConfig     `toml:"timeouts"`
}

type S3Config struct {
	Endpoint string `toml:"endpoint"`
	Region   string `toml:"region"`
	Bucket   string `toml:"bucket"`
	Prefix   string `toml:"prefix"`
}

type CredentialsConfig struct {
	File              string `toml:"file"`
	Section           string `toml:"section"`
	AccessKeyField    string `toml:"access_key_field"`
	SecretKeyField    string `toml:"secret_key_field"`
	SessionTokenField string `toml:"session_token_field"`
}

type DeleteConfig struct {
	BatchSize int `toml:"batch_size"`
}

type TimeoutConfig struct {
	ListPage    Duration `toml:"list_page"`
	Download    Duration `toml:"download"`
	DeleteBatch Duration `toml:"delete_batch"`
}

// Duration decodes TOML strings such as "30s" into a time.Duration.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))
	if raw == "" {
		d.Duration = 0
		return nil
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

func DefaultConfig() *Config {
	return &Config{
		DownloadDir: defaultDownloadDir,
		LogLevel:    defaultLogLevel,
		Credentials: CredentialsConfig{
			Section:           defaultSection,
			AccessKeyField:    defaultAccessKey,
			SecretKeyField:    defaultSecretKey,
			SessionTokenField: defaultSessionToken,
		},
		Delete: DeleteConfig{BatchSize: defaultBatchSize},
		Timeouts: TimeoutConfig{
			ListPage:    Duration{defaultListTimeout},
			DeleteBatch: Duration{defaultDeleteTimeout},
		},
	}
}

func Load(path string) (*Config, error) {
	cfg, err := Decode(path)
	if err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Decode reads path over the defaults without validating, so callers can
// apply overrides first. A missing file yields the defaults.
func Decode(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) ApplyDefaults() {
	if c.DownloadDir == "" {
		c.DownloadDir = defaultDownloadDir
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	if c.Credentials.Section == "" {
		c.Credentials.Section = defaultSection
	}
	if c.Credentials.AccessKeyField == "" {
		c.Credentials.AccessKeyField = defaultAccessKey
	}
	if c.Credentials.SecretKeyField == "" {
		c.Credentials.SecretKeyField = defaultSecretKey
	}
	if c.Credentials.SessionTokenField == "" {
		c.Credentials.SessionTokenField = defaultSessionToken
	}
	if c.Delete.BatchSize == 0 {
		c.Delete.BatchSize = defaultBatchSize
	}
}

func (c *Config) Normalize() {
	c.Cutoff = strings.TrimSpace(c.Cutoff)
	c.DownloadDir = strings.TrimSpace(c.DownloadDir)
	c.ExportDir = strings.TrimSpace(c.ExportDir)
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.S3.Endpoint = strings.TrimSpace(c.S3.Endpoint)
	c.S3.Region = strings.TrimSpace(c.S3.Region)
	c.S3.Bucket = strings.TrimSpace(c.S3.Bucket)
	c.Credentials.File = strings.TrimSpace(c.Credentials.File)
	c.Credentials.Section = strings.TrimSpace(c.Credentials.Section)
}

func (c *Config) Validate() error {
	switch c.LogLevel {
	case "", "trace", "debug", "info", "warn", "error", "disabled":
	default:
		return errors.New("log_level must be trace, debug, info, warn, error, or disabled")
	}
	if c.Delete.BatchSize < 1 || c.Delete.BatchSize > maxBatchSize {
		return fmt.Errorf("delete.batch_size must be between 1 and %d", maxBatchSize)
	}
	if c.Timeouts.ListPage.Duration < 0 || c.Timeouts.Download.Duration < 0 || c.Timeouts.DeleteBatch.Duration < 0 {
		return errors.New("timeouts must not be negative")
	}
	if c.Cutoff != "" {
		if _, err := ParseCutoff(c.Cutoff); err != nil {
			return err
		}
	}
	return nil
}

// CutoffTime returns the configured cutoff. It is an error if none is set.
func (c *Config) CutoffTime() (time.Time, error) {
	if c.Cutoff == "" {
		return time.Time{}, errors.New("cutoff is required")
	}
	return ParseCutoff(c.Cutoff)
}

// ParseCutoff accepts a date (midnight UTC) or an RFC3339 timestamp.
func ParseCutoff(raw string) (time.Time, error) {
	value := strings.TrimSpace(raw)
	if t, err := time.ParseInLocation(cutoffDateLayout, value, time.UTC); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("cutoff must be YYYY-MM-DD or RFC3339, got %q", raw)
}
