// Package secrets reads static S3 credentials from a local INI file.
package secrets

import (
	"errors"
	"fmt"
	"strings"

	"s3sweep/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/go-ini/ini"
)

var (
	ErrMissingSection = errors.New("credentials section not found")
	ErrMissingKey     = errors.New("credentials key not found")
)

type StaticKeys struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

// Load reads the keys named by cfg from the INI file at cfg.File.
func Load(cfg config.CredentialsConfig) (StaticKeys, error) {
	if strings.TrimSpace(cfg.File) == "" {
		return StaticKeys{}, errors.New("credentials file is required")
	}

	file, err := ini.Load(cfg.File)
	if err != nil {
		return StaticKeys{}, fmt.Errorf("read credentials file: %w", err)
	}

	section, err := file.GetSection(cfg.Section)
	if err != nil {
		return StaticKeys{}, fmt.Errorf("%w: [%s] in %s", ErrMissingSection, cfg.Section, cfg.File)
	}

	access, err := requiredKey(section, cfg.AccessKeyField)
	if err != nil {
		return StaticKeys{}, err
	}
	secret, err := requiredKey(section, cfg.SecretKeyField)
	if err != nil {
		return StaticKeys{}, err
	}

	keys := StaticKeys{AccessKeyID: access, SecretAccessKey: secret}
	if cfg.SessionTokenField != "" && section.HasKey(cfg.SessionTokenField) {
		keys.SessionToken = strings.TrimSpace(section.Key(cfg.SessionTokenField).String())
	}
	return keys, nil
}

func requiredKey(section *ini.Section, name string) (string, error) {
	if name == "" || !section.HasKey(name) {
		return "", fmt.Errorf("%w: %s in [%s]", ErrMissingKey, name, section.Name())
	}
	value := strings.TrimSpace(section.Key(name).String())
	if value == "" {
		return "", fmt.Errorf("%w: %s in [%s] is empty", ErrMissingKey, name, section.Name())
	}
	return value, nil
}

// Provider returns nil when no credentials file is configured, which leaves
// the SDK's default credential chain in charge.
func Provider(cfg config.CredentialsConfig) (aws.CredentialsProvider, error) {
	if strings.TrimSpace(cfg.File) == "" {
		return nil, nil
	}
	keys, err := Load(cfg)
	if err != nil {
		return nil, err
	}
	return credentials.NewStaticCredentialsProvider(keys.AccessKeyID, keys.SecretAccessKey, keys.SessionToken), nil
}
