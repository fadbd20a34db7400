package config

import (
	"errors"
	"fmt"
	"net"
	"regexp"
	"strings"

	"github.com/robfig/cron/v3"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateTMDB(); err != nil {
		return err
	}
	if err := c.validateLibrary(); err != nil {
		return err
	}
	if err := c.validateIndexers(); err != nil {
		return err
	}
	if err := c.validateDownloader(); err != nil {
		return err
	}
	if err := c.validateFilter(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateTelegram(); err != nil {
		return err
	}
	if err := c.validateTrakt(); err != nil {
		return err
	}
	if c.API.Bind != "" {
		if _, _, err := net.SplitHostPort(c.API.Bind); err != nil {
			return fmt.Errorf("api.bind must be host:port: %w", err)
		}
	}
	return nil
}

func (c *Config) validateTMDB() error {
	if c.TMDB.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = defaultConfigPath
		}
		return fmt.Errorf("tmdb.api_key is required. Set TMDB_API_KEY env var or edit %s (create with 'moviepilot config init')", defaultPath)
	}
	return nil
}

func (c *Config) validateLibrary() error {
	if c.Library.MoviesDir == "" {
		return errors.New("library.movies_dir must be set")
	}
	if c.Library.TVDir == "" {
		return errors.New("library.tv_dir must be set")
	}
	return nil
}

func (c *Config) validateIndexers() error {
	seen := make(map[string]struct{}, len(c.Indexers))
	for i, idx := range c.Indexers {
		if idx.Name == "" {
			return fmt.Errorf("indexers[%d].name must be set", i)
		}
		key := strings.ToLower(idx.Name)
		if _, dup := seen[key]; dup {
			return fmt.Errorf("indexers[%d].name %q is duplicated", i, idx.Name)
		}
		seen[key] = struct{}{}
		if !idx.Enabled {
			continue
		}
		if idx.URL == "" {
			return fmt.Errorf("indexers[%d].url must be set when enabled", i)
		}
		switch idx.Protocol {
		case ProtocolNewznab, ProtocolTorznab:
		default:
			return fmt.Errorf("indexers[%d].protocol must be %q or %q", i, ProtocolNewznab, ProtocolTorznab)
		}
	}
	return nil
}

func (c *Config) validateDownloader() error {
	switch c.Downloader.Client {
	case DownloaderNZBGet:
		if c.Downloader.URL == "" {
			return errors.New("downloader.url must be set when downloader.client is nzbget")
		}
	case DownloaderBlackhole:
		if c.Downloader.WatchDir == "" {
			return errors.New("downloader.watch_dir must be set when downloader.client is blackhole")
		}
	case "":
	default:
		return fmt.Errorf("downloader.client must be %q, %q, or empty", DownloaderNZBGet, DownloaderBlackhole)
	}
	return nil
}

func (c *Config) validateFilter() error {
	for _, pattern := range append(append([]string{}, c.Filter.Include...), c.Filter.Exclude...) {
		if _, err := regexp.Compile(pattern); err != nil {
			return fmt.Errorf("filter pattern %q: %w", pattern, err)
		}
	}
	if c.Filter.MinSizeMB < 0 || c.Filter.MaxSizeMB < 0 {
		return errors.New("filter size bounds must be >= 0")
	}
	if c.Filter.MaxSizeMB > 0 && c.Filter.MinSizeMB > c.Filter.MaxSizeMB {
		return errors.New("filter.min_size_mb must not exceed filter.max_size_mb")
	}
	switch c.Filter.MinResolution {
	case "", "480p", "576p", "720p", "1080p", "2160p":
	default:
		return fmt.Errorf("filter.min_resolution %q is not recognized", c.Filter.MinResolution)
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if err := ensurePositiveMap(map[string]int{
		"notifications.request_timeout": c.Notifications.RequestTimeout,
		"workflow.refresh_concurrency":  c.Workflow.RefreshConcurrency,
		"workflow.request_timeout":      c.Workflow.RequestTimeout,
		"cache.ttl_days":                c.Cache.TTLDays,
		"cache.save_interval_seconds":   c.Cache.SaveIntervalSeconds,
	}); err != nil {
		return err
	}
	for key, spec := range map[string]string{
		"workflow.refresh_schedule":  c.Workflow.RefreshSchedule,
		"workflow.search_schedule":   c.Workflow.SearchSchedule,
		"workflow.wishlist_schedule": c.Workflow.WishlistSchedule,
	} {
		if _, err := cron.ParseStandard(spec); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	return nil
}

func (c *Config) validateTelegram() error {
	if !c.Telegram.Enabled {
		return nil
	}
	if c.Telegram.Token == "" {
		return errors.New("telegram.token must be set when telegram.enabled is true (or set TELEGRAM_TOKEN)")
	}
	if c.Telegram.ChatID == "" {
		return errors.New("telegram.chat_id must be set when telegram.enabled is true (or set TELEGRAM_CHAT_ID)")
	}
	return nil
}

func (c *Config) validateTrakt() error {
	if !c.Trakt.Enabled {
		return nil
	}
	if c.Trakt.ClientID == "" {
		return errors.New("trakt.client_id must be set when trakt.enabled is true (or set TRAKT_CLIENT_ID)")
	}
	if c.Trakt.TokenFile == "" {
		return errors.New("trakt.token_file must be set when trakt.enabled is true")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
