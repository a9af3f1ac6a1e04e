package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment variable the loader reads
const EnvPrefix = "ANIMEDL_"

// Config holds all configuration options for the downloader
type Config struct {
	// Source site and video host endpoints
	Site SiteConfig `yaml:"site" json:"site"`

	// Shared HTTP session settings
	HTTP HTTPConfig `yaml:"http" json:"http"`

	// Episode download settings
	Download DownloadConfig `yaml:"download" json:"download"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// SiteConfig describes the scraped site and the third-party video host
type SiteConfig struct {
	BaseURL            string `yaml:"base_url" json:"base_url"`
	BootstrapScriptURL string `yaml:"bootstrap_script_url" json:"bootstrap_script_url"`
	InfoPageURL        string `yaml:"info_page_url" json:"info_page_url"`
	VideoIDPattern     string `yaml:"video_id_pattern" json:"video_id_pattern"`
}

// FormatInfoPageURL fills an info page template with the escaped video
// identifier. The same URL is fetched during resolution and sent as Referer.
func FormatInfoPageURL(template, id string) string {
	return fmt.Sprintf(template, url.PathEscape(id))
}

// HTTPConfig holds settings for the shared session
type HTTPConfig struct {
	UserAgent         string        `yaml:"user_agent" json:"user_agent"`
	RequestTimeout    time.Duration `yaml:"request_timeout" json:"request_timeout"`
	RequestsPerMinute int           `yaml:"requests_per_minute" json:"requests_per_minute"`
	RetryAttempts     int           `yaml:"retry_attempts" json:"retry_attempts"`
	RetryDelay        time.Duration `yaml:"retry_delay" json:"retry_delay"`
}

// DownloadConfig holds download-specific configuration
type DownloadConfig struct {
	Quality        string        `yaml:"quality" json:"quality"`
	MaxAttempts    int           `yaml:"max_attempts" json:"max_attempts"`
	RetryDelay     time.Duration `yaml:"retry_delay" json:"retry_delay"`
	StallTimeout   time.Duration `yaml:"stall_timeout" json:"stall_timeout"`
	AttemptTimeout time.Duration `yaml:"attempt_timeout" json:"attempt_timeout"`
	MinFileSize    int64         `yaml:"min_file_size" json:"min_file_size"`
	Overwrite      bool          `yaml:"overwrite" json:"overwrite"`
	ShowProgress   bool          `yaml:"show_progress" json:"show_progress"`
}

// OutputConfig holds output directory configuration
type OutputConfig struct {
	Directory string `yaml:"directory" json:"directory"`
	Extension string `yaml:"extension" json:"extension"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			BaseURL:            "http://www.chia-anime.me",
			BootstrapScriptURL: "http://www.chia-anime.me/pa.js",
			InfoPageURL:        "http://download.animeapp.net/video/%s",
			VideoIDPattern:     `animepremium.\w{2,4}/video/([\w\d\-]+)`,
		},
		HTTP: HTTPConfig{
			UserAgent:         "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/69.0.3497.92 Safari/537.36",
			RequestTimeout:    30 * time.Second,
			RequestsPerMinute: 60,
			RetryAttempts:     3,
			RetryDelay:        time.Second,
		},
		Download: DownloadConfig{
			Quality:        "low",
			MaxAttempts:    5,
			RetryDelay:     2 * time.Second,
			StallTimeout:   60 * time.Second,
			AttemptTimeout: 0, // 0 means no hard deadline
			MinFileSize:    20 * 1024 * 1024,
			Overwrite:      false,
			ShowProgress:   true,
		},
		Output: OutputConfig{
			Directory: "",
			Extension: ".mp4",
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// LoadFromEnv loads configuration from ANIMEDL_* environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	if v := os.Getenv(EnvPrefix + "BASE_URL"); v != "" {
		c.Site.BaseURL = v
	}
	if v := os.Getenv(EnvPrefix + "USER_AGENT"); v != "" {
		c.HTTP.UserAgent = v
	}
	if v := os.Getenv(EnvPrefix + "REQUESTS_PER_MINUTE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sREQUESTS_PER_MINUTE: %w", EnvPrefix, err))
		} else {
			c.HTTP.RequestsPerMinute = n
		}
	}
	if v := os.Getenv(EnvPrefix + "DIR"); v != "" {
		c.Output.Directory = v
	}
	if v := os.Getenv(EnvPrefix + "QUALITY"); v != "" {
		c.Download.Quality = strings.ToLower(v)
	}
	if v := os.Getenv(EnvPrefix + "MAX_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sMAX_ATTEMPTS: %w", EnvPrefix, err))
		} else {
			c.Download.MaxAttempts = n
		}
	}
	if v := os.Getenv(EnvPrefix + "STALL_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sSTALL_TIMEOUT: %w", EnvPrefix, err))
		} else {
			c.Download.StallTimeout = d
		}
	}
	if v := os.Getenv(EnvPrefix + "OVERWRITE"); v != "" {
		c.Download.Overwrite = strings.ToLower(v) == "true"
	}
	if v := os.Getenv(EnvPrefix + "LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(EnvPrefix + "LOG_FILE"); v != "" {
		c.Logging.File = v
	}

	return errors.Join(errs...)
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
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
		".animedl.yaml",
		".animedl.yml",
		filepath.Join(home, ".config", "animedl", "config.yaml"),
		filepath.Join(home, ".animedl.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if _, err := url.ParseRequestURI(c.Site.BaseURL); err != nil || c.Site.BaseURL == "" {
		errs = append(errs, fmt.Errorf("invalid site base URL %q", c.Site.BaseURL))
	}
	if c.Site.BootstrapScriptURL == "" {
		errs = append(errs, errors.New("bootstrap script URL is required"))
	}
	if strings.Count(c.Site.InfoPageURL, "%s") != 1 {
		errs = append(errs, errors.New("info page URL must contain exactly one %s placeholder"))
	}
	if re, err := regexp.Compile(c.Site.VideoIDPattern); err != nil {
		errs = append(errs, fmt.Errorf("invalid video id pattern: %w", err))
	} else if re.NumSubexp() < 1 {
		errs = append(errs, errors.New("video id pattern needs a capture group"))
	}

	if c.HTTP.RequestTimeout <= 0 {
		errs = append(errs, errors.New("request timeout must be positive"))
	}
	if c.HTTP.RequestsPerMinute <= 0 {
		errs = append(errs, errors.New("requests per minute must be positive"))
	}
	if c.HTTP.RetryAttempts <= 0 {
		errs = append(errs, errors.New("page retry attempts must be positive"))
	}

	switch c.Download.Quality {
	case "high", "low":
	default:
		errs = append(errs, fmt.Errorf("quality must be high or low, got %q", c.Download.Quality))
	}
	if c.Download.MaxAttempts <= 0 {
		errs = append(errs, errors.New("max attempts must be positive"))
	}
	if c.Download.StallTimeout <= 0 {
		errs = append(errs, errors.New("stall timeout must be positive"))
	}
	if c.Download.AttemptTimeout < 0 {
		errs = append(errs, errors.New("attempt timeout cannot be negative"))
	}
	if c.Download.MinFileSize < 0 {
		errs = append(errs, errors.New("minimum file size cannot be negative"))
	}

	if c.Output.Directory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
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

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration.
// Only keys present in the map are applied.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if dir, ok := flags["dir"].(string); ok && dir != "" {
		c.Output.Directory = dir
	}
	if quality, ok := flags["quality"].(string); ok && quality != "" {
		c.Download.Quality = strings.ToLower(quality)
	}
	if attempts, ok := flags["max-attempts"].(int); ok && attempts > 0 {
		c.Download.MaxAttempts = attempts
	}
	if stall, ok := flags["stall-timeout"].(time.Duration); ok && stall > 0 {
		c.Download.StallTimeout = stall
	}
	if overwrite, ok := flags["overwrite"].(bool); ok {
		c.Download.Overwrite = overwrite
	}
	if progress, ok := flags["progress"].(bool); ok {
		c.Download.ShowProgress = progress
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
	if logFile, ok := flags["log-file"].(string); ok && logFile != "" {
		c.Logging.File = logFile
	}
}

// Load loads configuration from all sources with proper precedence.
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// .env files are optional
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".animedl.env"))

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
