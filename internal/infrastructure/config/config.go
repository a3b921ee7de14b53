package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/adrg/xdg"
	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap/zapcore"

	"github.com/Richard-Rogalski/PrisonLauncher/internal/shared/paths"
	"github.com/Richard-Rogalski/PrisonLauncher/internal/shared/types"
)

// AppName names the configuration directory below the XDG config home
const AppName = "prisonlauncher"

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Instances InstancesConfig `toml:"instances"`
	Watch     WatchConfig     `toml:"watch"`
	Logging   LogConfig       `toml:"logging"`
	RateLimit RateLimitConfig `toml:"rate_limit"`
	Redis     RedisConfig     `toml:"redis"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" toml:"port"`
	Host string `envconfig:"HOST" toml:"host"`
}

// InstancesConfig describes where instances live and how they are found.
type InstancesConfig struct {
	Dir        string   `envconfig:"INSTANCES_DIR" toml:"dir"`
	GroupFile  string   `envconfig:"INSTANCES_GROUP_FILE" toml:"group_file"`
	Marker     string   `envconfig:"INSTANCES_MARKER" toml:"marker"`
	Ignore     []string `envconfig:"INSTANCES_IGNORE" toml:"ignore"`
	KnownTypes []string `envconfig:"INSTANCES_KNOWN_TYPES" toml:"known_types"`
}

// WatchConfig controls reloading when the instance root changes.
type WatchConfig struct {
	Enabled  bool     `envconfig:"WATCH_ENABLED" toml:"enabled"`
	Debounce Duration `envconfig:"WATCH_DEBOUNCE" toml:"debounce"`
}

// Duration is a time.Duration written as "500ms" in files and environment.
type Duration time.Duration

// UnmarshalText parses a Go duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalText formats the duration.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" toml:"level"`
	Development bool   `envconfig:"LOG_DEV" toml:"development"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" toml:"requests_per_second"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" toml:"burst"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" toml:"enabled"`
}

// RedisConfig enables event publishing when URL is set.
type RedisConfig struct {
	URL     string `envconfig:"REDIS_URL" toml:"url"`
	Channel string `envconfig:"REDIS_CHANNEL" toml:"channel"`
}

// Enabled reports whether a Redis URL is configured.
func (r RedisConfig) Enabled() bool {
	return r.URL != ""
}

// DefaultPath returns the config file location below the XDG config home.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, AppName, "launcher.toml")
}

// Load loads configuration from the default file, if present, and
// environment variables.
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom loads configuration in order of precedence: defaults, the TOML
// file at path, then environment variables. An empty path means the default
// location, which may be absent.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	required := path != ""
	if !required {
		path = DefaultPath()
	}
	if err := cfg.mergeFile(path); err != nil {
		if required || !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := toml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// Validate checks the configuration for values the server cannot run with.
func (c *Config) Validate() error {
	port, err := strconv.Atoi(c.Server.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid port %q", c.Server.Port)
	}
	if c.Instances.Dir == "" {
		return errors.New("instances dir must not be empty")
	}
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(c.Logging.Level)); err != nil {
		return fmt.Errorf("invalid log level %q", c.Logging.Level)
	}
	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst <= 0) {
		return errors.New("rate limit requires positive rps and burst")
	}
	if c.Watch.Enabled && c.Watch.Debounce <= 0 {
		return errors.New("watch debounce must be positive")
	}
	return nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8075",
			Host: "0.0.0.0",
		},
		Instances: InstancesConfig{
			Dir:        paths.DefaultInstancesDir,
			Marker:     paths.MarkerFile,
			Ignore:     []string{".*"},
			KnownTypes: []string{types.TypeLegacy, types.TypeOneSix, types.TypeNostalgia},
		},
		Watch: WatchConfig{
			Enabled:  false,
			Debounce: Duration(500 * time.Millisecond),
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
		Redis: RedisConfig{
			Channel: "prisonlauncher:instances",
		},
	}
}
