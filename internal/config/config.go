// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RentNest Contributors

// Package config provides the service configuration, loaded from a YAML
// file with environment-variable overlay.
package config

import (
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/samber/oops"
)

// Config is the root configuration. Value sources, in descending
// priority: explicit path argument, CONFIG_PATH environment variable,
// ./local.yaml, then environment variables on top of whichever file
// loaded.
type Config struct {
	Env           string              `yaml:"env" env:"ENV" env-default:"local"`
	DB            DBConfig            `yaml:"db"`
	Auth          AuthConfig          `yaml:"auth"`
	S3            S3Config            `yaml:"s3"`
	SMTP          SMTPConfig          `yaml:"smtp"`
	Observability ObservabilityConfig `yaml:"observability"`
	Log           LogConfig           `yaml:"log"`
}

// DBConfig holds database connection settings.
type DBConfig struct {
	URL string `yaml:"url" env:"DATABASE_URL" env-required:"true"`
}

// AuthConfig holds token issuance and lockout policy. Access and refresh
// secrets are independent so one leaking does not compromise the other.
type AuthConfig struct {
	AccessSecret     string        `yaml:"access_secret" env:"ACCESS_TOKEN_SECRET" env-required:"true"`
	RefreshSecret    string        `yaml:"refresh_secret" env:"REFRESH_TOKEN_SECRET" env-required:"true"`
	AccessTTL        time.Duration `yaml:"access_ttl" env:"ACCESS_TOKEN_TTL" env-default:"15m"`
	RefreshTTL       time.Duration `yaml:"refresh_ttl" env:"REFRESH_TOKEN_TTL" env-default:"720h"`
	Issuer           string        `yaml:"issuer" env:"TOKEN_ISSUER" env-default:"rentnest"`
	LockoutThreshold int           `yaml:"lockout_threshold" env:"LOCKOUT_THRESHOLD" env-default:"5"`
	ResetTokenTTL    time.Duration `yaml:"reset_token_ttl" env:"RESET_TOKEN_TTL" env-default:"1h"`
	ResetBaseURL     string        `yaml:"reset_base_url" env:"RESET_BASE_URL" env-default:"http://localhost:8080"`
}

// S3Config holds object-storage settings for avatar uploads.
type S3Config struct {
	Endpoint      string `yaml:"endpoint" env:"S3_ENDPOINT" env-required:"true"`
	RootUser      string `yaml:"root_user" env:"S3_ROOT_USER" env-required:"true"`
	RootPassword  string `yaml:"root_password" env:"S3_ROOT_PASSWORD" env-required:"true"`
	Bucket        string `yaml:"bucket" env:"S3_BUCKET" env-default:"rentnest"`
	PublicBaseURL string `yaml:"public_base_url" env:"S3_PUBLIC_BASE_URL"`
}

// SMTPConfig holds reset-mail delivery settings. An empty host selects the
// log-only sender.
type SMTPConfig struct {
	Host string `yaml:"host" env:"SMTP_HOST"`
	Port string `yaml:"port" env:"SMTP_PORT" env-default:"587"`
	From string `yaml:"from" env:"SMTP_FROM" env-default:"noreply@rentnest.io"`
}

// ObservabilityConfig holds the metrics/health listen address.
type ObservabilityConfig struct {
	Addr string `yaml:"addr" env:"METRICS_ADDR" env-default:"127.0.0.1:9100"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}

// MustLoad wraps Load and panics on error.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load loads configuration by priority: explicit path, CONFIG_PATH,
// ./local.yaml, then pure environment.
func Load(path string) (*Config, error) {
	var cfg Config

	tryRead := func(p string) (*Config, error) {
		if p == "" {
			return nil, oops.Code("CONFIG_INVALID").Errorf("empty config path")
		}
		if _, err := os.Stat(p); err != nil {
			return nil, oops.Code("CONFIG_INVALID").With("path", p).Wrap(err)
		}
		if err := cleanenv.ReadConfig(p, &cfg); err != nil {
			return nil, oops.Code("CONFIG_INVALID").With("path", p).Wrap(err)
		}
		return &cfg, nil
	}

	if path != "" {
		return tryRead(path)
	}
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		return tryRead(envPath)
	}
	if _, err := os.Stat("local.yaml"); err == nil {
		return tryRead("local.yaml")
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, oops.Code("CONFIG_INVALID").
			With("operation", "read environment").
			Wrap(err)
	}
	return &cfg, nil
}
