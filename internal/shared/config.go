package shared

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/adrg/xdg"
)

//go:embed config.example.toml
var exampleConf []byte

const (
	appName    = "ytmirror"
	dbFileName = "ytmirror.db"
)

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Database    DatabaseConfig    `toml:"database"`
	Sync        SyncConfig        `toml:"sync"`
	Matcher     MatcherConfig     `toml:"matcher"`
	Server      ServerConfig      `toml:"server"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
	YouTube YouTubeConfig `toml:"youtube"`
	LastFM  LastFMConfig  `toml:"lastfm"`
}

// SpotifyConfig contains Spotify client-credentials settings.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
}

// YouTubeConfig points at the ytmusicapi proxy and the auth file it should use.
type YouTubeConfig struct {
	ProxyURL    string `toml:"proxy_url"`
	HeadersPath string `toml:"headers_path"`
}

// LastFMConfig contains Last.fm API credentials.
type LastFMConfig struct {
	APIKey    string `toml:"api_key"`
	APISecret string `toml:"api_secret"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// SyncConfig tunes the outbox worker.
type SyncConfig struct {
	Workers        int `toml:"workers"`
	CallDelayMS    int `toml:"call_delay_ms"`
	ChunkSize      int `toml:"chunk_size"`
	RetryLimit     int `toml:"retry_limit"`
	RetryBackoffMS int `toml:"retry_backoff_ms"`
	IntervalSec    int `toml:"interval_sec"`
}

// MatcherConfig tunes fingerprint scoring.
type MatcherConfig struct {
	Sigma             float64 `toml:"sigma"`
	DurationWeight    float64 `toml:"duration_weight"`
	TopK              int     `toml:"top_k"`
	DurationTolerance int     `toml:"duration_tolerance"`
	MatchThreshold    float64 `toml:"match_threshold"`
	AmbiguityMargin   float64 `toml:"ambiguity_margin"`
	SearchWithArtist  bool    `toml:"search_with_artist"`
}

// ServerConfig contains settings for the sync daemon's HTTP listener.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// CallDelay returns the spacing between remote calls.
func (s SyncConfig) CallDelay() time.Duration {
	return time.Duration(s.CallDelayMS) * time.Millisecond
}

// RetryBackoff returns the pause before an optional in-drain retry.
func (s SyncConfig) RetryBackoff() time.Duration {
	return time.Duration(s.RetryBackoffMS) * time.Millisecond
}

// Interval returns the daemon's scheduled sync interval. Zero disables the ticker.
func (s SyncConfig) Interval() time.Duration {
	return time.Duration(s.IntervalSec) * time.Second
}

// Addr returns the listen address of the daemon.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabasePath resolves the configured database path.
//
// An empty path falls back to $XDG_DATA_HOME/ytmirror/ytmirror.db.
func (c *Config) DatabasePath() (string, error) {
	if c.Database.Path != "" {
		return c.Database.Path, nil
	}
	path, err := xdg.DataFile(filepath.Join(appName, dbFileName))
	if err != nil {
		return "", fmt.Errorf("failed to resolve data directory: %w", err)
	}
	return path, nil
}

// Validate checks values that would otherwise surface as confusing runtime failures.
func (c *Config) Validate() error {
	if c.Sync.Workers < 0 {
		return fmt.Errorf("%w: sync.workers must not be negative", ErrInvalidConfig)
	}
	if c.Sync.ChunkSize < 0 {
		return fmt.Errorf("%w: sync.chunk_size must not be negative", ErrInvalidConfig)
	}
	if c.Matcher.DurationWeight < 0 || c.Matcher.DurationWeight > 1 {
		return fmt.Errorf("%w: matcher.duration_weight must be within [0,1]", ErrInvalidConfig)
	}
	if c.Matcher.Sigma < 0 {
		return fmt.Errorf("%w: matcher.sigma must not be negative", ErrInvalidConfig)
	}
	return nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
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
