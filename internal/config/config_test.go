package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.toml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load missing file: %v", err)
	}

	if cfg.DownloadDir != "s3sweep-download" {
		t.Fatalf("unexpected default download_dir: got %q", cfg.DownloadDir)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("unexpected default log_level: got %q", cfg.LogLevel)
	}
	if cfg.Credentials.Section != "AWS" || cfg.Credentials.AccessKeyField != "AWS_KEY" || cfg.Credentials.SecretKeyField != "AWS_SECRET" {
		t.Fatalf("unexpected default credentials: %+v", cfg.Credentials)
	}
	if cfg.Delete.BatchSize != 1000 {
		t.Fatalf("unexpected default batch size: got %d", cfg.Delete.BatchSize)
	}
	if cfg.Timeouts.ListPage.Duration != 30*time.Second {
		t.Fatalf("unexpected list page timeout: got %s", cfg.Timeouts.ListPage.Duration)
	}
	if cfg.Timeouts.Download.Duration != 0 {
		t.Fatalf("unexpected download timeout: got %s", cfg.Timeouts.Download.Duration)
	}
	if _, err := cfg.CutoffTime(); err == nil {
		t.Fatal("expected missing cutoff error")
	}
}

func TestLoadAppliesDefaultsAndNormalizes(t *testing.T) {
	path := writeConfig(t,
		`cutoff = " 2024-06-02 "`,
		`download_dir = ""`,
		`export_dir = " /tmp/export "`,
		`log_level = " DEBUG "`,
		``,
		`[s3]`,
		`bucket = " dsta "`,
		`region = "us-east-1"`,
		`prefix = "News/DailyEvents/Archived/"`,
		``,
		`[credentials]`,
		`file = " /etc/s3sweep/secrets.ini "`,
		`section = ""`,
		``,
		`[timeouts]`,
		`list_page = "5s"`,
		`download = "2m"`,
	)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Cutoff != "2024-06-02" {
		t.Fatalf("cutoff not trimmed: %q", cfg.Cutoff)
	}
	if cfg.DownloadDir != "s3sweep-download" {
		t.Fatalf("download_dir default not applied: %q", cfg.DownloadDir)
	}
	if cfg.ExportDir != "/tmp/export" {
		t.Fatalf("export_dir not trimmed: %q", cfg.ExportDir)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("log_level not normalized: %q", cfg.LogLevel)
	}
	if cfg.S3.Bucket != "dsta" {
		t.Fatalf("bucket not trimmed: %q", cfg.S3.Bucket)
	}
	if cfg.S3.Prefix != "News/DailyEvents/Archived/" {
		t.Fatalf("prefix should be kept verbatim: %q", cfg.S3.Prefix)
	}
	if cfg.Credentials.File != "/etc/s3sweep/secrets.ini" || cfg.Credentials.Section != "AWS" {
		t.Fatalf("unexpected credentials: %+v", cfg.Credentials)
	}
	if cfg.Timeouts.ListPage.Duration != 5*time.Second || cfg.Timeouts.Download.Duration != 2*time.Minute {
		t.Fatalf("unexpected timeouts: %+v", cfg.Timeouts)
	}
	if cfg.Timeouts.DeleteBatch.Duration != 60*time.Second {
		t.Fatalf("delete batch timeout default lost: %s", cfg.Timeouts.DeleteBatch.Duration)
	}

	cutoff, err := cfg.CutoffTime()
	if err != nil {
		t.Fatalf("cutoff time: %v", err)
	}
	if want := time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC); !cutoff.Equal(want) {
		t.Fatalf("cutoff mismatch: got %s want %s", cutoff, want)
	}
}

func TestLoadValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		lines   []string
		wantErr string
	}{
		{name: "batch too large", lines: []string{"[delete]", "batch_size = 1001"}, wantErr: "batch_size"},
		{name: "batch negative", lines: []string{"[delete]", "batch_size = -1"}, wantErr: "batch_size"},
		{name: "bad log level", lines: []string{`log_level = "loud"`}, wantErr: "log_level"},
		{name: "bad cutoff", lines: []string{`cutoff = "June 2nd"`}, wantErr: "cutoff must be"},
		{name: "bad duration", lines: []string{"[timeouts]", `list_page = "soon"`}, wantErr: ""},
		{name: "negative duration", lines: []string{"[timeouts]", `download = "-1s"`}, wantErr: "must not be negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.lines...))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got: %v", tt.wantErr, err)
			}
		})
	}
}

func TestDecodeDefersValidation(t *testing.T) {
	cfg, err := Decode(writeConfig(t, `cutoff = "June 2nd"`, "[delete]", "batch_size = 5000"))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cfg.Cutoff != "June 2nd" || cfg.Delete.BatchSize != 5000 {
		t.Fatalf("decoded values mismatch: %+v", cfg)
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error before overrides")
	}

	cfg.Cutoff = "2024-06-02"
	cfg.Delete.BatchSize = 500
	cfg.ApplyDefaults()
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate after override: %v", err)
	}

	missing, err := Decode(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("decode missing file: %v", err)
	}
	if missing.Delete.BatchSize != 1000 || missing.LogLevel != "info" {
		t.Fatalf("expected defaults for missing file: %+v", missing)
	}
}

func TestParseCutoff(t *testing.T) {
	tests := []struct {
		input   string
		want    time.Time
		wantErr bool
	}{
		{input: "2024-06-02", want: time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC)},
		{input: "2024-06-02T10:30:00Z", want: time.Date(2024, 6, 2, 10, 30, 0, 0, time.UTC)},
		{input: "2024-06-02T10:30:00+02:00", want: time.Date(2024, 6, 2, 8, 30, 0, 0, time.UTC)},
		{input: "", wantErr: true},
		{input: "02/06/2024", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseCutoff(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("expected error for %q", tt.input)
			}
			continue
		}
		if err != nil {
			t.Fatalf("parse %q: %v", tt.input, err)
		}
		if !got.Equal(tt.want) {
			t.Fatalf("parse %q: got %s want %s", tt.input, got, tt.want)
		}
	}
}
