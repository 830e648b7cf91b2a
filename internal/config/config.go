// Package config loads postcache settings from defaults, an optional YAML
// file and POSTCACHE_* environment variables, in that order.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/roach88/postcache/internal/remote"
	"github.com/roach88/postcache/internal/store"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "POSTCACHE_"

// Config is the full application configuration.
type Config struct {
	Store  StoreConfig  `yaml:"store" envPrefix:"STORE_"`
	Remote RemoteConfig `yaml:"remote" envPrefix:"REMOTE_"`
	Log    LogConfig    `yaml:"log" envPrefix:"LOG_"`
}

// StoreConfig identifies the local store.
type StoreConfig struct {
	Dir     string `yaml:"dir" env:"DIR"`
	Name    string `yaml:"name" env:"NAME"`
	Version int    `yaml:"version" env:"VERSION"`
}

// RemoteConfig configures the HTTP provider.
type RemoteConfig struct {
	Endpoint     string        `yaml:"endpoint" env:"ENDPOINT"`
	Timeout      time.Duration `yaml:"timeout" env:"TIMEOUT"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" env:"MAX_BODY_BYTES"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Level string `yaml:"level" env:"LEVEL"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Store: StoreConfig{
			Dir:     defaultStoreDir(),
			Name:    store.DefaultName,
			Version: store.DefaultVersion,
		},
		Remote: RemoteConfig{
			Endpoint:     remote.DefaultEndpoint,
			Timeout:      remote.DefaultTimeout,
			MaxBodyBytes: remote.DefaultMaxBodyBytes,
		},
		Log: LogConfig{Level: "info"},
	}
}

func defaultStoreDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "."
	}
	return filepath.Join(dir, "postcache")
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty) and the environment. The result is validated.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := decodeYAML(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// decodeYAML rejects unknown keys. An empty document leaves cfg unchanged.
func decodeYAML(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// ParseEnv applies POSTCACHE_* environment overrides to target.
func ParseEnv(target *Config) error {
	if err := env.ParseWithOptions(target, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if err := store.ValidateName(c.Store.Name); err != nil {
		return fmt.Errorf("store.name: %w", err)
	}
	if c.Store.Version < 1 {
		return fmt.Errorf("store.version: must be >= 1, got %d", c.Store.Version)
	}
	u, err := url.Parse(c.Remote.Endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("remote.endpoint: must be an absolute http(s) URL, got %q", c.Remote.Endpoint)
	}
	if c.Remote.Timeout <= 0 {
		return fmt.Errorf("remote.timeout: must be positive, got %s", c.Remote.Timeout)
	}
	if c.Remote.MaxBodyBytes <= 0 {
		return fmt.Errorf("remote.max_body_bytes: must be positive, got %d", c.Remote.MaxBodyBytes)
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel parses the configured level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("log.level: unknown level %q", l.Level)
	}
	return level, nil
}

// StoreOptions converts the store section for store.Open.
func (c Config) StoreOptions(logger *slog.Logger) store.Options {
	return store.Options{
		Dir:     c.Store.Dir,
		Name:    c.Store.Name,
		Version: c.Store.Version,
		Logger:  logger,
	}
}

// RemoteOptions converts the remote section for remote.NewHTTPProvider.
func (c Config) RemoteOptions(logger *slog.Logger) remote.Options {
	return remote.Options{
		Endpoint:     c.Remote.Endpoint,
		Timeout:      c.Remote.Timeout,
		MaxBodyBytes: c.Remote.MaxBodyBytes,
		Logger:       logger,
	}
}
