package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment variable the config reads.
const EnvPrefix = "ARTGRAB_"

// DefaultFilenameTemplate is used when neither the settings store nor the config names one.
const DefaultFilenameTemplate = "%artworkTitle% by %artworkAuthorName% [%artworkId%] p%artworkPart%.%imageFileExtension%"

// Anchor variants for the download toolbar.
const (
	AnchorBeforeTitle = "before-title"
	AnchorAfterTitle  = "after-title"
	AnchorPanel       = "panel"
)

// Config holds all configuration options for artgrab
type Config struct {
	// Site structure and request identity
	Site SiteConfig `yaml:"site" json:"site"`

	// Page session behaviour
	Session SessionConfig `yaml:"session" json:"session"`

	// Rate limiting configuration
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Download settings
	Download DownloadConfig `yaml:"download" json:"download"`

	// Notification preferences
	Notifications NotificationConfig `yaml:"notifications" json:"notifications"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// SiteConfig describes the host page. Selectors are data, not code.
type SiteConfig struct {
	BaseURL       string `yaml:"base_url" json:"base_url"`
	Referer       string `yaml:"referer" json:"referer"`
	UserAgent     string `yaml:"user_agent" json:"user_agent"`
	DetailPattern string `yaml:"detail_pattern" json:"detail_pattern"`

	Selectors SelectorConfig `yaml:"selectors" json:"selectors"`

	// Embedded initial-state document markers
	EmbeddedMarker     string `yaml:"embedded_marker" json:"embedded_marker"`
	EmbeddedTerminator string `yaml:"embedded_terminator" json:"embedded_terminator"`
}

// SelectorConfig lists the CSS selectors used against the host page
type SelectorConfig struct {
	Region       string `yaml:"region" json:"region"`
	Panel        string `yaml:"panel" json:"panel"`
	Title        string `yaml:"title" json:"title"`
	Parts        string `yaml:"parts" json:"parts"`
	ExpandedPart string `yaml:"expanded_part" json:"expanded_part"`
	Author       string `yaml:"author" json:"author"`
	PostingDate  string `yaml:"posting_date" json:"posting_date"`
	Likes        string `yaml:"likes" json:"likes"`
	Bookmarks    string `yaml:"bookmarks" json:"bookmarks"`
	Views        string `yaml:"views" json:"views"`
}

// SessionConfig holds page session configuration
type SessionConfig struct {
	Anchor       string        `yaml:"anchor" json:"anchor"`
	WaitTimeout  time.Duration `yaml:"wait_timeout" json:"wait_timeout"`
	SettingsPath string        `yaml:"settings_path" json:"settings_path"`
	Bulk         bool          `yaml:"bulk" json:"bulk"`
	Part         int           `yaml:"part" json:"part"`
	UseTUI       bool          `yaml:"use_tui" json:"use_tui"`
	// Resume skips artworks a previous run with the same checkpoint saved completely
	Resume       bool          `yaml:"resume" json:"resume"`
	Checkpoint   string        `yaml:"checkpoint" json:"checkpoint"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int           `yaml:"requests_per_minute" json:"requests_per_minute"`
	BurstSize         int           `yaml:"burst_size" json:"burst_size"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier" json:"backoff_multiplier"`
	MaxRetries        int           `yaml:"max_retries" json:"max_retries"`
	RetryDelay        time.Duration `yaml:"retry_delay" json:"retry_delay"`
}

// OutputConfig holds output directory configuration
type OutputConfig struct {
	BaseDirectory     string `yaml:"base_directory" json:"base_directory"`
	FilenameTemplate  string `yaml:"filename_template" json:"filename_template"`
	SaveAs            bool   `yaml:"save_as" json:"save_as"`
	OverwriteExisting bool   `yaml:"overwrite_existing" json:"overwrite_existing"`
	WriteMetadata     bool   `yaml:"write_metadata" json:"write_metadata"`
}

// DownloadConfig holds download-specific configuration
type DownloadConfig struct {
	ConcurrentDownloads int           `yaml:"concurrent_downloads" json:"concurrent_downloads"`
	DownloadTimeout     time.Duration `yaml:"download_timeout" json:"download_timeout"`
	RetryAttempts       int           `yaml:"retry_attempts" json:"retry_attempts"`
	HighResolution      bool          `yaml:"high_resolution" json:"high_resolution"`
	MaxFileSize         int64         `yaml:"max_file_size" json:"max_file_size"`
}

// NotificationConfig holds notification preferences
type NotificationConfig struct {
	Enabled          bool   `yaml:"enabled" json:"enabled"`
	OnComplete       bool   `yaml:"on_complete" json:"on_complete"`
	OnError          bool   `yaml:"on_error" json:"on_error"`
	NotificationType string `yaml:"notification_type" json:"notification_type"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		Site: SiteConfig{
			BaseURL:       "https://www.pixiv.net",
			Referer:       "https://www.pixiv.net/",
			UserAgent:     "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0 Safari/537.36",
			DetailPattern: `/artworks/\d+`,
			Selectors: SelectorConfig{
				Region:       ".charcoal-token > div",
				Panel:        "main",
				Title:        "figcaption h1",
				Parts:        "div[role='presentation'] a > img",
				ExpandedPart: ".gtm-expand-full-size-illust > img",
				Author:       "a[data-gtm-value]:not(:has(img))",
				PostingDate:  "[title='Posting date']",
				Likes:        "dd[title='Like']",
				Bookmarks:    "dd[title='Bookmarks']",
				Views:        "dd[title='Views']",
			},
			EmbeddedMarker:     `id="meta-preload-data" content='`,
			EmbeddedTerminator: `'>`,
		},
		Session: SessionConfig{
			Anchor:       AnchorBeforeTitle,
			WaitTimeout:  10 * time.Second,
			SettingsPath: filepath.Join(home, ".config", "artgrab", "settings.db"),
			Part:         0,
			Checkpoint:   "default",
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 60,
			BurstSize:         10,
			BackoffMultiplier: 2.0,
			MaxRetries:        3,
			RetryDelay:        2 * time.Second,
		},
		Output: OutputConfig{
			BaseDirectory:    "./downloads",
			FilenameTemplate: DefaultFilenameTemplate,
		},
		Download: DownloadConfig{
			ConcurrentDownloads: 3,
			DownloadTimeout:     60 * time.Second,
			RetryAttempts:       3,
			HighResolution:      true,
		},
		Notifications: NotificationConfig{
			Enabled:          true,
			OnComplete:       true,
			OnError:          true,
			NotificationType: "terminal",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

func envString(name string, dst *string) {
	if v := os.Getenv(EnvPrefix + name); v != "" {
		*dst = v
	}
}

func envBool(name string, dst *bool) {
	if v := os.Getenv(EnvPrefix + name); v != "" {
		*dst = strings.ToLower(v) == "true" || v == "1"
	}
}

func envPositiveInt(name string, dst *int) error {
	v := os.Getenv(EnvPrefix + name)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
	}
	if n > 0 {
		*dst = n
	}
	return nil
}

func envDuration(name string, dst *time.Duration) error {
	v := os.Getenv(EnvPrefix + name)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
	}
	*dst = d
	return nil
}

// LoadFromEnv loads configuration from ARTGRAB_* environment variables
func (c *Config) LoadFromEnv() error {
	envString("BASE_URL", &c.Site.BaseURL)
	envString("USER_AGENT", &c.Site.UserAgent)
	envString("REFERER", &c.Site.Referer)
	envString("OUTPUT_DIR", &c.Output.BaseDirectory)
	envString("FILENAME_TEMPLATE", &c.Output.FilenameTemplate)
	envString("ANCHOR", &c.Session.Anchor)
	envString("SETTINGS_PATH", &c.Session.SettingsPath)
	envString("CHECKPOINT", &c.Session.Checkpoint)
	envString("LOG_LEVEL", &c.Logging.Level)
	envString("LOG_FILE", &c.Logging.File)
	envBool("SAVE_AS", &c.Output.SaveAs)
	envBool("NOTIFICATIONS_ENABLED", &c.Notifications.Enabled)
	envBool("WRITE_METADATA", &c.Output.WriteMetadata)

	var errs []error
	errs = append(errs,
		envPositiveInt("REQUESTS_PER_MINUTE", &c.RateLimit.RequestsPerMinute),
		envPositiveInt("CONCURRENT_DOWNLOADS", &c.Download.ConcurrentDownloads),
		envDuration("DOWNLOAD_TIMEOUT", &c.Download.DownloadTimeout),
		envDuration("WAIT_TIMEOUT", &c.Session.WaitTimeout),
	)
	return errors.Join(errs...)
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		".artgrab.yaml",
		".artgrab.yml",
		filepath.Join(home, ".config", "artgrab", "config.yaml"),
		filepath.Join(home, ".config", "artgrab", "config.yml"),
		filepath.Join(home, ".artgrab.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// DetailMatcher compiles the detail-page pattern
func (c *Config) DetailMatcher() (*regexp.Regexp, error) {
	return regexp.Compile(c.Site.DetailPattern)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Site.BaseURL == "" {
		errs = append(errs, errors.New("site base URL is required"))
	}
	if _, err := c.DetailMatcher(); err != nil {
		errs = append(errs, fmt.Errorf("invalid detail pattern: %w", err))
	}
	if c.Site.Selectors.Region == "" {
		errs = append(errs, errors.New("region selector is required"))
	}
	if c.Site.Selectors.Panel == "" {
		errs = append(errs, errors.New("panel selector is required"))
	}
	if c.Site.Selectors.Title == "" {
		errs = append(errs, errors.New("title selector is required"))
	}

	switch c.Session.Anchor {
	case AnchorBeforeTitle, AnchorAfterTitle, AnchorPanel:
	default:
		errs = append(errs, fmt.Errorf("unknown anchor variant %q", c.Session.Anchor))
	}
	if c.Session.WaitTimeout <= 0 {
		errs = append(errs, errors.New("wait timeout must be positive"))
	}
	if c.Session.Part < 0 {
		errs = append(errs, errors.New("part index cannot be negative"))
	}

	if c.RateLimit.RequestsPerMinute <= 0 {
		errs = append(errs, errors.New("requests per minute must be positive"))
	}
	if c.RateLimit.BurstSize <= 0 {
		errs = append(errs, errors.New("burst size must be positive"))
	}
	if c.RateLimit.MaxRetries < 0 {
		errs = append(errs, errors.New("max retries cannot be negative"))
	}

	if c.Download.ConcurrentDownloads <= 0 {
		errs = append(errs, errors.New("concurrent downloads must be positive"))
	}
	if c.Download.ConcurrentDownloads > 10 {
		errs = append(errs, errors.New("concurrent downloads should not exceed 10"))
	}
	if c.Download.DownloadTimeout <= 0 {
		errs = append(errs, errors.New("download timeout must be positive"))
	}

	if c.Output.BaseDirectory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}
	if c.Output.FilenameTemplate == "" {
		errs = append(errs, errors.New("filename template is required"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	validNotifTypes := map[string]bool{
		"terminal": true, "desktop": true, "none": true,
	}
	if !validNotifTypes[strings.ToLower(c.Notifications.NotificationType)] {
		errs = append(errs, errors.New("invalid notification type"))
	}

	return errors.Join(errs...)
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration.
// Zero values are ignored so unset flags never clobber file or env values;
// "save-as" is only present when given, so false is honoured.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if v, ok := flags["output"].(string); ok && v != "" {
		c.Output.BaseDirectory = v
	}
	if v, ok := flags["template"].(string); ok && v != "" {
		c.Output.FilenameTemplate = v
	}
	if v, ok := flags["anchor"].(string); ok && v != "" {
		c.Session.Anchor = v
	}
	if v, ok := flags["concurrent"].(int); ok && v > 0 {
		c.Download.ConcurrentDownloads = v
	}
	if v, ok := flags["part"].(int); ok && v > 0 {
		c.Session.Part = v
	}
	if v, ok := flags["bulk"].(bool); ok && v {
		c.Session.Bulk = true
	}
	if v, ok := flags["save-as"].(bool); ok {
		c.Output.SaveAs = v
	}
	if v, ok := flags["metadata"].(bool); ok && v {
		c.Output.WriteMetadata = true
	}
	if v, ok := flags["resume"].(bool); ok && v {
		c.Session.Resume = true
	}
	if v, ok := flags["checkpoint"].(string); ok && v != "" {
		c.Session.Checkpoint = v
	}
	if v, ok := flags["tui"].(bool); ok && v {
		c.Session.UseTUI = true
	}
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".artgrab.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
