package config

import (
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment variable names
const (
	EnvLibraryRoot      = "LIBRARY_ROOT"
	EnvArchiveURL       = "ARCHIVE_URL"
	EnvSeasonCount      = "SEASON_COUNT"
	EnvMaxConcurrency   = "MAX_CONCURRENCY"
	EnvAutoConfirm      = "AUTO_CONFIRM"
	EnvScraper          = "SCRAPER"
	EnvBrowserInstall   = "BROWSER_INSTALL"
	EnvPageTimeout      = "PAGE_TIMEOUT"
	EnvChunkSize        = "CHUNK_SIZE"
	EnvPartialFiles     = "PARTIAL_FILES"
	EnvHistoryEnabled   = "HISTORY_ENABLED"
	EnvHistoryDB        = "HISTORY_DB"
	EnvSkipCompleted    = "SKIP_COMPLETED"
	EnvProgressInterval = "PROGRESS_INTERVAL"
	EnvLogLevel         = "LOG_LEVEL"
)

// Default values
const (
	DefaultArchiveURL       = "https://archive.org/download/its_always_sunny_complete_archive/"
	DefaultSeasonCount      = 10
	DefaultMaxConcurrency   = 8
	DefaultScraper          = ScraperHTTP
	DefaultPageTimeout      = 60 * time.Second
	DefaultChunkSize        = 1024
	DefaultPartialFiles     = PartialFilesKeep
	DefaultHistoryDB        = "download_history.db"
	DefaultProgressInterval = 10 * time.Second
	DefaultLogLevel         = "INFO"

	MaxConcurrencyLimit = 64
)

// Listing scrapers
const (
	ScraperHTTP    = "http"
	ScraperBrowser = "browser"
)

// Partial file policies
const (
	PartialFilesKeep   = "keep"
	PartialFilesDelete = "delete"
)

// Config holds all configuration values for the season downloader
type Config struct {
	LibraryRoot      string        // Directory that receives one sub-directory per season
	ArchiveURL       string        // Root listing page of the archive
	SeasonCount      int           // Highest season number offered at the prompt
	MaxConcurrency   int           // Number of parallel file transfers
	AutoConfirm      bool          // Skip the "Proceed?" prompt
	Scraper          string        // Listing scraper (http, browser)
	BrowserInstall   bool          // Install the playwright driver and chromium before scraping
	PageTimeout      time.Duration // Timeout for loading a listing page
	ChunkSize        int           // Read/write chunk size for transfers
	PartialFiles     string        // What to do with truncated files (keep, delete)
	HistoryEnabled   bool          // Record finished downloads in the history database
	HistoryDB        string        // Path of the history database
	SkipCompleted    bool          // Skip files the history already records as complete
	ProgressInterval time.Duration // Period of the batch progress summary, 0 disables it
	LogLevel         string        // Logging level (DEBUG, INFO, WARN, ERROR, FATAL)
}

// LoadConfig loads and validates the configuration from environment variables
// Returns a Config struct or an error if validation fails
func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or could not be loaded: %v", err)
	}

	return loadFromEnv(NewEnvValidator())
}

func loadFromEnv(validator *EnvValidator) (*Config, error) {
	if err := validator.ValidateRequired(); err != nil {
		return nil, fmt.Errorf("environment validation failed: %w", err)
	}

	cfg := &Config{
		LibraryRoot:  validator.GetString(EnvLibraryRoot, ""),
		ArchiveURL:   validator.GetString(EnvArchiveURL, DefaultArchiveURL),
		Scraper:      strings.ToLower(validator.GetString(EnvScraper, DefaultScraper)),
		PartialFiles: strings.ToLower(validator.GetString(EnvPartialFiles, DefaultPartialFiles)),
		HistoryDB:    validator.GetString(EnvHistoryDB, DefaultHistoryDB),
		LogLevel:     strings.ToUpper(validator.GetString(EnvLogLevel, DefaultLogLevel)),
	}

	var err error
	if cfg.SeasonCount, err = validator.GetInt(EnvSeasonCount, DefaultSeasonCount); err != nil {
		return nil, err
	}
	if cfg.MaxConcurrency, err = validator.GetInt(EnvMaxConcurrency, DefaultMaxConcurrency); err != nil {
		return nil, err
	}
	if cfg.ChunkSize, err = validator.GetInt(EnvChunkSize, DefaultChunkSize); err != nil {
		return nil, err
	}
	if cfg.AutoConfirm, err = validator.GetBool(EnvAutoConfirm, false); err != nil {
		return nil, err
	}
	if cfg.BrowserInstall, err = validator.GetBool(EnvBrowserInstall, false); err != nil {
		return nil, err
	}
	if cfg.HistoryEnabled, err = validator.GetBool(EnvHistoryEnabled, true); err != nil {
		return nil, err
	}
	if cfg.SkipCompleted, err = validator.GetBool(EnvSkipCompleted, true); err != nil {
		return nil, err
	}
	if cfg.PageTimeout, err = validator.GetDuration(EnvPageTimeout, DefaultPageTimeout); err != nil {
		return nil, err
	}
	if cfg.ProgressInterval, err = validator.GetDuration(EnvProgressInterval, DefaultProgressInterval); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate performs additional validation on the loaded configuration
func (c *Config) Validate() error {
	if strings.TrimSpace(c.LibraryRoot) == "" {
		return fmt.Errorf("library root cannot be empty")
	}

	parsed, err := url.Parse(c.ArchiveURL)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return fmt.Errorf("archive URL must be an absolute http(s) URL, got: %q", c.ArchiveURL)
	}

	if c.SeasonCount < 1 {
		return fmt.Errorf("season count must be a positive integer, got: %d", c.SeasonCount)
	}

	if c.MaxConcurrency < 1 || c.MaxConcurrency > MaxConcurrencyLimit {
		return fmt.Errorf("max concurrency must be between 1 and %d, got: %d", MaxConcurrencyLimit, c.MaxConcurrency)
	}

	if c.ChunkSize < 1 {
		return fmt.Errorf("chunk size must be a positive integer, got: %d", c.ChunkSize)
	}

	if c.PageTimeout <= 0 {
		return fmt.Errorf("page timeout must be positive, got: %s", c.PageTimeout)
	}

	if c.ProgressInterval < 0 {
		return fmt.Errorf("progress interval cannot be negative, got: %s", c.ProgressInterval)
	}

	switch c.Scraper {
	case ScraperHTTP, ScraperBrowser:
	default:
		return fmt.Errorf("invalid scraper: %s. Valid scrapers are: http, browser", c.Scraper)
	}

	switch c.PartialFiles {
	case PartialFilesKeep, PartialFilesDelete:
	default:
		return fmt.Errorf("invalid partial file policy: %s. Valid policies are: keep, delete", c.PartialFiles)
	}

	if c.HistoryEnabled && strings.TrimSpace(c.HistoryDB) == "" {
		return fmt.Errorf("history database path cannot be empty when history is enabled")
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"DEBUG": true,
		"INFO":  true,
		"WARN":  true,
		"ERROR": true,
		"FATAL": true,
	}

	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s. Valid levels are: DEBUG, INFO, WARN, ERROR, FATAL", c.LogLevel)
	}

	return nil
}
