package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir    string `toml:"data_dir"`
	LogDir     string `toml:"log_dir"`
	LibraryDir string `toml:"library_dir"`
}

// TMDB contains configuration for The Movie Database API.
type TMDB struct {
	APIKey       string `toml:"api_key"`
	BaseURL      string `toml:"base_url"`
	Language     string `toml:"language"`
	ImageBaseURL string `toml:"image_base_url"`
}

// Cache contains configuration for the metadata cache.
type Cache struct {
	Path                string `toml:"path"`
	TTLDays             int    `toml:"ttl_days"`
	SentinelTTLMinutes  int    `toml:"sentinel_ttl_minutes"`
	SaveIntervalSeconds int    `toml:"save_interval_seconds"`
	Eviction            bool   `toml:"eviction"`
}

// Indexer describes a Newznab or Torznab compatible source.
type Indexer struct {
	Name       string   `toml:"name"`
	URL        string   `toml:"url"`
	APIKey     string   `toml:"api_key"`
	Protocol   string   `toml:"protocol"`
	Categories []string `toml:"categories"`
	Enabled    bool     `toml:"enabled"`
	// Cookie is sent when probing the site's web login.
	Cookie string `toml:"cookie"`
}

// Library contains configuration for the media library structure.
type Library struct {
	MoviesDir string `toml:"movies_dir"`
	TVDir     string `toml:"tv_dir"`
}

// Downloader selects and configures the download client.
type Downloader struct {
	Client   string `toml:"client"`
	URL      string `toml:"url"`
	User     string `toml:"user"`
	Pass     string `toml:"pass"`
	Category string `toml:"category"`
	WatchDir string `toml:"watch_dir"`
}

// Filter contains release filtering rules applied after identity matching.
type Filter struct {
	Include       []string `toml:"include"`
	Exclude       []string `toml:"exclude"`
	MinSizeMB     int      `toml:"min_size_mb"`
	MaxSizeMB     int      `toml:"max_size_mb"`
	MinResolution string   `toml:"min_resolution"`
}

// Workflow contains configuration for daemon schedules.
type Workflow struct {
	RefreshSchedule    string `toml:"refresh_schedule"`
	SearchSchedule     string `toml:"search_schedule"`
	WishlistSchedule   string `toml:"wishlist_schedule"`
	RefreshConcurrency int    `toml:"refresh_concurrency"`
	RequestTimeout     int    `toml:"request_timeout"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Subscribe      bool   `toml:"subscribe"`
	Download       bool   `toml:"download"`
	Errors         bool   `toml:"errors"`
}

// Telegram contains configuration for the Telegram bot.
type Telegram struct {
	Enabled            bool   `toml:"enabled"`
	Token              string `toml:"token"`
	ChatID             string `toml:"chat_id"`
	BaseURL            string `toml:"base_url"`
	PollTimeoutSeconds int    `toml:"poll_timeout_seconds"`
}

// Trakt contains configuration for the watchlist sync.
type Trakt struct {
	Enabled   bool   `toml:"enabled"`
	ClientID  string `toml:"client_id"`
	TokenFile string `toml:"token_file"`
	StateFile string `toml:"state_file"`
}

// API configures the read-only HTTP status API.
type API struct {
	// Bind is a host:port to listen on; empty disables the API.
	Bind  string `toml:"bind"`
	Token string `toml:"token"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for MoviePilot.
//
// Configuration sections by subsystem:
//   - Paths: data, log and library roots
//   - TMDB: title recognition via The Movie Database
//   - Cache: metadata cache lifetime and persistence
//   - Indexers: Newznab/Torznab sources listed and searched for releases
//   - Library: movies/tv subdirectories used for holdings checks
//   - Downloader: NZBGet or blackhole download client
//   - Filter: release rules applied after identity matching
//   - Workflow: cron schedules for refresh, search, and wishlist sync
//   - Notifications: ntfy push notification settings
//   - Telegram: bot notifications and chat commands
//   - Trakt: watchlist sync
//   - API: read-only HTTP status endpoints
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	TMDB          TMDB          `toml:"tmdb"`
	Cache         Cache         `toml:"cache"`
	Indexers      []Indexer     `toml:"indexers"`
	Library       Library       `toml:"library"`
	Downloader    Downloader    `toml:"downloader"`
	Filter        Filter        `toml:"filter"`
	Workflow      Workflow      `toml:"workflow"`
	Notifications Notifications `toml:"notifications"`
	Telegram      Telegram      `toml:"telegram"`
	Trakt         Trakt         `toml:"trakt"`
	API           API           `toml:"api"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("moviepilot.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
// LibraryDir is created on a best-effort basis so the daemon can run when
// external storage is temporarily unavailable.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.DataDir, c.Paths.LogDir, filepath.Dir(c.Cache.Path)}
	if c.Downloader.Client == DownloaderBlackhole {
		dirs = append(dirs, c.Downloader.WatchDir)
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.LibraryDir) != "" {
		_ = os.MkdirAll(c.Paths.LibraryDir, 0o755)
	}
	return nil
}

// DatabasePath returns the subscription database location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "moviepilot.db")
}

// LockPath returns the daemon single-instance lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "moviepilot.lock")
}

// PIDPath returns the daemon pid file.
func (c *Config) PIDPath() string {
	return filepath.Join(c.Paths.DataDir, "moviepilot.pid")
}

// SocketPath returns the daemon control socket.
func (c *Config) SocketPath() string {
	return filepath.Join(c.Paths.DataDir, "moviepilot.sock")
}

// LogPath returns the daemon log file.
func (c *Config) LogPath() string {
	return filepath.Join(c.Paths.LogDir, "moviepilot.log")
}

// MoviesPath returns the absolute movie library root.
func (c *Config) MoviesPath() string {
	return filepath.Join(c.Paths.LibraryDir, c.Library.MoviesDir)
}

// TVPath returns the absolute series library root.
func (c *Config) TVPath() string {
	return filepath.Join(c.Paths.LibraryDir, c.Library.TVDir)
}

// CacheTTL returns the sliding lifetime of resolved cache entries.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLDays) * 24 * time.Hour
}

// SentinelTTL returns the in-memory lifetime of "not found" cache entries.
func (c *Config) SentinelTTL() time.Duration {
	return time.Duration(c.Cache.SentinelTTLMinutes) * time.Minute
}

// SaveInterval returns the debounce interval between cache saves.
func (c *Config) SaveInterval() time.Duration {
	return time.Duration(c.Cache.SaveIntervalSeconds) * time.Second
}

// RequestTimeout returns the timeout applied to outbound HTTP calls.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Workflow.RequestTimeout) * time.Second
}

// EnabledIndexers returns the indexers that participate in refresh and search.
func (c *Config) EnabledIndexers() []Indexer {
	out := make([]Indexer, 0, len(c.Indexers))
	for _, idx := range c.Indexers {
		if idx.Enabled {
			out = append(out, idx)
		}
	}
	return out
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
