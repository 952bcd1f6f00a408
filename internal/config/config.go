// Package config loads go-flvmeta settings from TOML or YAML files.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/autobrr/go-flvmeta/internal/flvmeta"
)

type Config struct {
	Update UpdateConfig `toml:"update" yaml:"update"`
	Watch  WatchConfig  `toml:"watch" yaml:"watch"`
	Log    LogConfig    `toml:"log" yaml:"log"`
}

type UpdateConfig struct {
	ResetTimestamps  bool   `toml:"reset_timestamps" yaml:"reset_timestamps"`
	AllKeyframes     bool   `toml:"all_keyframes" yaml:"all_keyframes"`
	PreserveMetadata bool   `toml:"preserve" yaml:"preserve"`
	NoLastSecond     bool   `toml:"no_last_second" yaml:"no_last_second"`
	Policy           string `toml:"policy" yaml:"policy"`
	Creator          string `toml:"creator" yaml:"creator"`
	// Fields are name=value pairs added to every rewritten file.
	Fields []string `toml:"fields" yaml:"fields"`
}

type WatchConfig struct {
	QuietMs int `toml:"quiet_ms" yaml:"quiet_ms"`
}

type LogConfig struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"`
}

func DefaultConfig() *Config {
	return &Config{
		Update: UpdateConfig{Policy: flvmeta.PolicyStrict.String()},
		Watch:  WatchConfig{QuietMs: int(flvmeta.DefaultQuietPeriod / time.Millisecond)},
		Log:    LogConfig{Level: "info", Format: "text"},
	}
}

// DefaultPath is where Load looks when no path is given.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".", "flvmeta.toml")
	}
	return filepath.Join(dir, "flvmeta", "config.toml")
}

// Load reads path, falling back to defaults when the file does not exist.
// An empty path means DefaultPath.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}
	cfg, err := loadConfigFromFile(path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	return cfg, nil
}

func loadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("decode TOML: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("decode YAML: %w", err)
		}
	default:
		if _, err := toml.Decode(string(data), cfg); err == nil {
			return cfg, nil
		}
		cfg = DefaultConfig()
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: unable to parse %s as TOML or YAML", path)
		}
	}
	return cfg, nil
}

func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("FLVMETA_POLICY"); v != "" {
		c.Update.Policy = v
	}
	if v := os.Getenv("FLVMETA_CREATOR"); v != "" {
		c.Update.Creator = v
	}
	if v := os.Getenv("FLVMETA_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

func (c *Config) Validate() error {
	var errs []error
	if _, err := flvmeta.ParsePolicy(c.Update.Policy); err != nil {
		errs = append(errs, err)
	}
	for _, f := range c.Update.Fields {
		if _, err := flvmeta.ParseField(f); err != nil {
			errs = append(errs, err)
		}
	}
	if c.Watch.QuietMs < 0 {
		errs = append(errs, fmt.Errorf("watch.quiet_ms must not be negative"))
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

// Options converts the update section into engine options.
func (c *Config) Options() (flvmeta.Options, error) {
	policy, err := flvmeta.ParsePolicy(c.Update.Policy)
	if err != nil {
		return flvmeta.Options{}, err
	}
	opts := flvmeta.Options{
		ResetTimestamps:  c.Update.ResetTimestamps,
		AllKeyframes:     c.Update.AllKeyframes,
		PreserveMetadata: c.Update.PreserveMetadata,
		NoLastSecond:     c.Update.NoLastSecond,
		Policy:           policy,
		Creator:          c.Update.Creator,
	}
	for _, spec := range c.Update.Fields {
		f, err := flvmeta.ParseField(spec)
		if err != nil {
			return flvmeta.Options{}, err
		}
		opts.Fields = append(opts.Fields, f)
	}
	return opts, nil
}

func (c *Config) QuietPeriod() time.Duration {
	return time.Duration(c.Watch.QuietMs) * time.Millisecond
}

func (c *Config) LogLevel() slog.Level {
	level, _ := parseLevel(c.Log.Level)
	return level
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}
