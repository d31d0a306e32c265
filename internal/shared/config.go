package shared

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// MusicDirEnv names the environment variable overriding [LibraryConfig.MusicDir].
const MusicDirEnv = "MUSIC_DIR"

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Catalog  CatalogConfig  `toml:"catalog"`
	Player   PlayerConfig   `toml:"player"`
	Library  LibraryConfig  `toml:"library"`
	Database DatabaseConfig `toml:"database"`
	Server   ServerConfig   `toml:"server"`
}

// CatalogConfig contains settings for the remote music catalog.
type CatalogConfig struct {
	BaseURL           string `toml:"base_url"`
	Source            string `toml:"source"`
	Bitrate           int    `toml:"bitrate"`
	SearchCount       int    `toml:"search_count"`
	CoverSize         int    `toml:"cover_size"`
	TimeoutSeconds    int    `toml:"timeout_seconds"`
	RateLimitRequests int    `toml:"rate_limit_requests"`
	RateLimitWindow   int    `toml:"rate_limit_window_seconds"`
}

// Timeout returns the per-request timeout.
func (c CatalogConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Window returns the interval over which RateLimitRequests are allowed.
func (c CatalogConfig) Window() time.Duration {
	return time.Duration(c.RateLimitWindow) * time.Second
}

// PlayerConfig contains playback defaults.
type PlayerConfig struct {
	Volume         float64 `toml:"volume"`
	Mode           string  `toml:"mode"`
	TickIntervalMS int     `toml:"tick_interval_ms"`
}

// TickInterval returns the clock sampling period.
func (p PlayerConfig) TickInterval() time.Duration {
	return time.Duration(p.TickIntervalMS) * time.Millisecond
}

// LibraryConfig contains local music directory settings.
type LibraryConfig struct {
	MusicDir string `toml:"music_dir"`
	Watch    bool   `toml:"watch"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Addr returns host:port for [http.Server].
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read config file: %v", ErrMissingConfig, err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadEnv reads a .env file (when present) into the process environment, then applies environment overrides to c.
func LoadEnv(c *Config, files ...string) error {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load env file: %w", err)
	}

	if dir := os.Getenv(MusicDirEnv); dir != "" {
		c.Library.MusicDir = dir
	}
	return nil
}
