package config

const (
	defaultConfigPath          = "~/.config/moviepilot/config.toml"
	defaultDataDir             = "~/.local/share/moviepilot"
	defaultLogDir              = "~/.local/share/moviepilot/logs"
	defaultLibraryDir          = "~/library"
	defaultMoviesDir           = "movies"
	defaultTVDir               = "tv"
	defaultTMDBLanguage        = "en-US"
	defaultTMDBBaseURL         = "https://api.themoviedb.org/3"
	defaultTMDBImageBaseURL    = "https://image.tmdb.org/t/p/w500"
	defaultCacheFile           = "tmdb_cache.db"
	defaultCacheTTLDays        = 7
	defaultSentinelTTLMinutes  = 60
	defaultSaveIntervalSeconds = 600
	defaultRefreshSchedule     = "@every 30m"
	defaultSearchSchedule      = "@every 6h"
	defaultWishlistSchedule    = "@every 1h"
	defaultRefreshConcurrency  = 4
	defaultRequestTimeout      = 30
	defaultNotifyTimeout       = 10
	defaultTelegramBaseURL     = "https://api.telegram.org"
	defaultTelegramPollTimeout = 30
	defaultTraktTokenFile      = "~/.config/moviepilot/trakt_token.json"
	defaultTraktStateFile      = "wishlist_state.json"
	defaultNZBGetCategory      = "moviepilot"
	defaultNZBGetURL           = "http://localhost:6789"
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"

	// DownloaderNZBGet hands releases to an NZBGet instance over JSON-RPC.
	DownloaderNZBGet = "nzbget"
	// DownloaderBlackhole fetches release files into a watch directory.
	DownloaderBlackhole = "blackhole"

	// ProtocolNewznab marks usenet indexers.
	ProtocolNewznab = "newznab"
	// ProtocolTorznab marks torrent indexers.
	ProtocolTorznab = "torznab"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:    defaultDataDir,
			LogDir:     defaultLogDir,
			LibraryDir: defaultLibraryDir,
		},
		TMDB: TMDB{
			Language:     defaultTMDBLanguage,
			BaseURL:      defaultTMDBBaseURL,
			ImageBaseURL: defaultTMDBImageBaseURL,
		},
		Cache: Cache{
			TTLDays:             defaultCacheTTLDays,
			SentinelTTLMinutes:  defaultSentinelTTLMinutes,
			SaveIntervalSeconds: defaultSaveIntervalSeconds,
			Eviction:            true,
		},
		Library: Library{
			MoviesDir: defaultMoviesDir,
			TVDir:     defaultTVDir,
		},
		Downloader: Downloader{
			Client:   DownloaderNZBGet,
			URL:      defaultNZBGetURL,
			Category: defaultNZBGetCategory,
		},
		Workflow: Workflow{
			RefreshSchedule:    defaultRefreshSchedule,
			SearchSchedule:     defaultSearchSchedule,
			WishlistSchedule:   defaultWishlistSchedule,
			RefreshConcurrency: defaultRefreshConcurrency,
			RequestTimeout:     defaultRequestTimeout,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			Subscribe:      true,
			Download:       true,
			Errors:         true,
		},
		Telegram: Telegram{
			BaseURL:            defaultTelegramBaseURL,
			PollTimeoutSeconds: defaultTelegramPollTimeout,
		},
		Trakt: Trakt{
			TokenFile: defaultTraktTokenFile,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
