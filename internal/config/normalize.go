package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTMDB()
	if err := c.normalizeCache(); err != nil {
		return err
	}
	c.normalizeIndexers()
	if err := c.normalizeDownloader(); err != nil {
		return err
	}
	c.normalizeFilter()
	c.normalizeWorkflow()
	c.normalizeTelegram()
	if err := c.normalizeTrakt(); err != nil {
		return err
	}
	c.normalizeAPI()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.LibraryDir, err = expandPath(c.Paths.LibraryDir); err != nil {
		return fmt.Errorf("paths.library_dir: %w", err)
	}
	c.Library.MoviesDir = strings.TrimSpace(c.Library.MoviesDir)
	c.Library.TVDir = strings.TrimSpace(c.Library.TVDir)
	return nil
}

func (c *Config) normalizeTMDB() {
	c.TMDB.APIKey = strings.TrimSpace(c.TMDB.APIKey)
	if c.TMDB.APIKey == "" {
		if value, ok := os.LookupEnv("TMDB_API_KEY"); ok {
			c.TMDB.APIKey = strings.TrimSpace(value)
		}
	}
	c.TMDB.BaseURL = strings.TrimRight(strings.TrimSpace(c.TMDB.BaseURL), "/")
	if c.TMDB.BaseURL == "" {
		c.TMDB.BaseURL = defaultTMDBBaseURL
	}
	c.TMDB.ImageBaseURL = strings.TrimRight(strings.TrimSpace(c.TMDB.ImageBaseURL), "/")
	if c.TMDB.ImageBaseURL == "" {
		c.TMDB.ImageBaseURL = defaultTMDBImageBaseURL
	}
	c.TMDB.Language = strings.TrimSpace(c.TMDB.Language)
	if c.TMDB.Language == "" {
		c.TMDB.Language = defaultTMDBLanguage
	}
}

func (c *Config) normalizeCache() error {
	var err error
	if strings.TrimSpace(c.Cache.Path) == "" {
		c.Cache.Path = filepath.Join(c.Paths.DataDir, defaultCacheFile)
	}
	if c.Cache.Path, err = expandPath(c.Cache.Path); err != nil {
		return fmt.Errorf("cache.path: %w", err)
	}
	if c.Cache.TTLDays <= 0 {
		c.Cache.TTLDays = defaultCacheTTLDays
	}
	if c.Cache.SaveIntervalSeconds <= 0 {
		c.Cache.SaveIntervalSeconds = defaultSaveIntervalSeconds
	}
	if c.Cache.SentinelTTLMinutes < 0 {
		c.Cache.SentinelTTLMinutes = 0
	}
	return nil
}

func (c *Config) normalizeIndexers() {
	for i := range c.Indexers {
		idx := &c.Indexers[i]
		idx.Name = strings.TrimSpace(idx.Name)
		idx.URL = strings.TrimRight(strings.TrimSpace(idx.URL), "/")
		idx.APIKey = strings.TrimSpace(idx.APIKey)
		idx.Protocol = strings.ToLower(strings.TrimSpace(idx.Protocol))
		if idx.Protocol == "" {
			idx.Protocol = ProtocolNewznab
		}
		cats := idx.Categories[:0]
		for _, cat := range idx.Categories {
			if trimmed := strings.TrimSpace(cat); trimmed != "" {
				cats = append(cats, trimmed)
			}
		}
		idx.Categories = cats
	}
}

func (c *Config) normalizeDownloader() error {
	c.Downloader.Client = strings.ToLower(strings.TrimSpace(c.Downloader.Client))
	c.Downloader.URL = strings.TrimRight(strings.TrimSpace(c.Downloader.URL), "/")
	c.Downloader.User = strings.TrimSpace(c.Downloader.User)
	if c.Downloader.Pass == "" {
		if value, ok := os.LookupEnv("NZBGET_PASS"); ok {
			c.Downloader.Pass = value
		}
	}
	c.Downloader.Category = strings.TrimSpace(c.Downloader.Category)
	if c.Downloader.Category == "" {
		c.Downloader.Category = defaultNZBGetCategory
	}
	if strings.TrimSpace(c.Downloader.WatchDir) != "" {
		var err error
		if c.Downloader.WatchDir, err = expandPath(c.Downloader.WatchDir); err != nil {
			return fmt.Errorf("downloader.watch_dir: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeFilter() {
	c.Filter.Include = trimList(c.Filter.Include)
	c.Filter.Exclude = trimList(c.Filter.Exclude)
	c.Filter.MinResolution = strings.ToLower(strings.TrimSpace(c.Filter.MinResolution))
}

func (c *Config) normalizeWorkflow() {
	c.Workflow.RefreshSchedule = strings.TrimSpace(c.Workflow.RefreshSchedule)
	if c.Workflow.RefreshSchedule == "" {
		c.Workflow.RefreshSchedule = defaultRefreshSchedule
	}
	c.Workflow.SearchSchedule = strings.TrimSpace(c.Workflow.SearchSchedule)
	if c.Workflow.SearchSchedule == "" {
		c.Workflow.SearchSchedule = defaultSearchSchedule
	}
	c.Workflow.WishlistSchedule = strings.TrimSpace(c.Workflow.WishlistSchedule)
	if c.Workflow.WishlistSchedule == "" {
		c.Workflow.WishlistSchedule = defaultWishlistSchedule
	}
	if c.Workflow.RefreshConcurrency <= 0 {
		c.Workflow.RefreshConcurrency = defaultRefreshConcurrency
	}
	if c.Workflow.RequestTimeout <= 0 {
		c.Workflow.RequestTimeout = defaultRequestTimeout
	}
}

func (c *Config) normalizeTelegram() {
	c.Telegram.Token = strings.TrimSpace(c.Telegram.Token)
	if c.Telegram.Token == "" {
		if value, ok := os.LookupEnv("TELEGRAM_TOKEN"); ok {
			c.Telegram.Token = strings.TrimSpace(value)
		}
	}
	c.Telegram.ChatID = strings.TrimSpace(c.Telegram.ChatID)
	if c.Telegram.ChatID == "" {
		if value, ok := os.LookupEnv("TELEGRAM_CHAT_ID"); ok {
			c.Telegram.ChatID = strings.TrimSpace(value)
		}
	}
	c.Telegram.BaseURL = strings.TrimRight(strings.TrimSpace(c.Telegram.BaseURL), "/")
	if c.Telegram.BaseURL == "" {
		c.Telegram.BaseURL = defaultTelegramBaseURL
	}
	if c.Telegram.PollTimeoutSeconds <= 0 {
		c.Telegram.PollTimeoutSeconds = defaultTelegramPollTimeout
	}
}

func (c *Config) normalizeTrakt() error {
	c.Trakt.ClientID = strings.TrimSpace(c.Trakt.ClientID)
	if c.Trakt.ClientID == "" {
		if value, ok := os.LookupEnv("TRAKT_CLIENT_ID"); ok {
			c.Trakt.ClientID = strings.TrimSpace(value)
		}
	}
	var err error
	if strings.TrimSpace(c.Trakt.TokenFile) == "" {
		c.Trakt.TokenFile = defaultTraktTokenFile
	}
	if c.Trakt.TokenFile, err = expandPath(c.Trakt.TokenFile); err != nil {
		return fmt.Errorf("trakt.token_file: %w", err)
	}
	if strings.TrimSpace(c.Trakt.StateFile) == "" {
		c.Trakt.StateFile = filepath.Join(c.Paths.DataDir, defaultTraktStateFile)
	}
	if c.Trakt.StateFile, err = expandPath(c.Trakt.StateFile); err != nil {
		return fmt.Errorf("trakt.state_file: %w", err)
	}
	return nil
}

func (c *Config) normalizeAPI() {
	c.API.Bind = strings.TrimSpace(c.API.Bind)
	c.API.Token = strings.TrimSpace(c.API.Token)
	if c.API.Token == "" {
		if value, ok := os.LookupEnv("MOVIEPILOT_API_TOKEN"); ok {
			c.API.Token = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func trimList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
