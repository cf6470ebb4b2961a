package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Supported store names
const (
	StorePlay     = "play"
	StoreAppStore = "appstore"
)

// Supported pause strategies after a failed page fetch
const (
	BackoffConstant    = "constant"
	BackoffExponential = "exponential"
)

// EnvPrefix is prepended to every environment variable the tool reads
const EnvPrefix = "STOREREVIEWS_"

// Pause after a failed page when scrape.pause_duration is not set
const (
	DefaultPlayPause     = 60 * time.Second
	DefaultAppStorePause = 10 * time.Second
)

// Config holds all configuration options for a scrape run
type Config struct {
	// Storefront and request parameters
	Store StoreConfig `yaml:"store" json:"store"`

	// App identifiers, processed strictly in this order
	Apps []string `yaml:"apps" json:"apps"`

	// Pagination and pause behaviour
	Scrape ScrapeConfig `yaml:"scrape" json:"scrape"`

	// Output files
	Output OutputConfig `yaml:"output" json:"output"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// StoreConfig selects the provider and the fixed request parameters
type StoreConfig struct {
	Name      string        `yaml:"name" json:"name"`
	Region    string        `yaml:"region" json:"region"`
	Language  string        `yaml:"language" json:"language"`
	Sort      string        `yaml:"sort" json:"sort"`
	Throttle  int           `yaml:"throttle" json:"throttle"`
	PageSize  int           `yaml:"page_size" json:"page_size"`
	BaseURL   string        `yaml:"base_url" json:"base_url"`
	UserAgent string        `yaml:"user_agent" json:"user_agent"`
	Timeout   time.Duration `yaml:"timeout" json:"timeout"`
}

// ScrapeConfig holds the per-app loop settings
type ScrapeConfig struct {
	// PauseDuration of zero uses the store default, see Config.Pause
	PauseDuration time.Duration `yaml:"pause_duration" json:"pause_duration"`
	Backoff       string        `yaml:"backoff" json:"backoff"`
	MaxPause      time.Duration `yaml:"max_pause" json:"max_pause"`
	// MaxRetries caps consecutive failures on one page (0 means unlimited)
	MaxRetries    int           `yaml:"max_retries" json:"max_retries"`
	MetadataDelay time.Duration `yaml:"metadata_delay" json:"metadata_delay"`
}

// OutputConfig holds output file configuration
type OutputConfig struct {
	Directory    string `yaml:"directory" json:"directory"`
	CombinedFile string `yaml:"combined_file" json:"combined_file"`
	MetadataFile string `yaml:"metadata_file" json:"metadata_file"`
	MetricsFile  string `yaml:"metrics_file" json:"metrics_file"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with the defaults of a Google Play
// review run
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Name:      StorePlay,
			Region:    "gb",
			Language:  "en",
			Sort:      "helpfulness",
			Throttle:  1,
			PageSize:  40,
			UserAgent: "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
			Timeout:   30 * time.Second,
		},
		Apps: nil,
		Scrape: ScrapeConfig{
			PauseDuration: 0,
			Backoff:       BackoffConstant,
			MaxPause:      10 * time.Minute,
			MaxRetries:    0,
			MetadataDelay: time.Second,
		},
		Output: OutputConfig{
			Directory:    ".",
			CombinedFile: "all_reviews",
			MetadataFile: "",
			MetricsFile:  "",
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// Pause returns the configured pause after a failed page, or the store's
// default when none is configured
func (c *Config) Pause() time.Duration {
	if c.Scrape.PauseDuration > 0 {
		return c.Scrape.PauseDuration
	}
	if c.Store.Name == StoreAppStore {
		return DefaultAppStorePause
	}
	return DefaultPlayPause
}

// MetadataFileName returns the combined metadata file name, derived from the
// store when not configured
func (c *Config) MetadataFileName() string {
	if c.Output.MetadataFile != "" {
		return c.Output.MetadataFile
	}
	return c.Store.Name + "_app_meta_data"
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	if v := os.Getenv(EnvPrefix + "STORE"); v != "" {
		c.Store.Name = strings.ToLower(v)
	}
	if v := os.Getenv(EnvPrefix + "REGION"); v != "" {
		c.Store.Region = strings.ToLower(v)
	}
	if v := os.Getenv(EnvPrefix + "LANGUAGE"); v != "" {
		c.Store.Language = v
	}
	if v := os.Getenv(EnvPrefix + "SORT"); v != "" {
		c.Store.Sort = strings.ToLower(v)
	}
	if v := os.Getenv(EnvPrefix + "BASE_URL"); v != "" {
		c.Store.BaseURL = v
	}
	if v := os.Getenv(EnvPrefix + "USER_AGENT"); v != "" {
		c.Store.UserAgent = v
	}
	if v := os.Getenv(EnvPrefix + "APPS"); v != "" {
		c.Apps = SplitList(v)
	}

	if v := os.Getenv(EnvPrefix + "PAUSE_DURATION"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sPAUSE_DURATION: %w", EnvPrefix, err))
		} else {
			c.Scrape.PauseDuration = d
		}
	}
	if v := os.Getenv(EnvPrefix + "MAX_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sMAX_RETRIES: %w", EnvPrefix, err))
		} else {
			c.Scrape.MaxRetries = n
		}
	}

	if v := os.Getenv(EnvPrefix + "OUTPUT_DIR"); v != "" {
		c.Output.Directory = v
	}
	if v := os.Getenv(EnvPrefix + "METRICS_FILE"); v != "" {
		c.Output.MetricsFile = v
	}
	if v := os.Getenv(EnvPrefix + "LOG_LEVEL"); v != "" {
		c.Logging.Level = v
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
		".storereviews.yaml",
		".storereviews.yml",
		"storereviews.yaml",
		filepath.Join(home, ".config", "storereviews", "config.yaml"),
		filepath.Join(home, ".config", "storereviews", "config.yml"),
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

	switch c.Store.Name {
	case StorePlay, StoreAppStore:
	default:
		errs = append(errs, fmt.Errorf("unknown store %q (expected %s or %s)", c.Store.Name, StorePlay, StoreAppStore))
	}
	if len(c.Store.Region) != 2 {
		errs = append(errs, errors.New("region must be a two-letter country code"))
	}
	validSorts := map[string]bool{"helpfulness": true, "newest": true, "rating": true}
	if !validSorts[strings.ToLower(c.Store.Sort)] {
		errs = append(errs, fmt.Errorf("invalid sort mode %q", c.Store.Sort))
	}
	if c.Store.Throttle < 0 {
		errs = append(errs, errors.New("throttle cannot be negative"))
	}
	if c.Store.PageSize <= 0 {
		errs = append(errs, errors.New("page size must be positive"))
	}
	if c.Store.Timeout <= 0 {
		errs = append(errs, errors.New("request timeout must be positive"))
	}

	for i, app := range c.Apps {
		if strings.TrimSpace(app) == "" {
			errs = append(errs, fmt.Errorf("app identifier %d is empty", i))
		}
	}

	if c.Scrape.PauseDuration < 0 {
		errs = append(errs, errors.New("pause duration cannot be negative"))
	}
	if c.Scrape.Backoff != BackoffConstant && c.Scrape.Backoff != BackoffExponential {
		errs = append(errs, fmt.Errorf("invalid backoff %q", c.Scrape.Backoff))
	}
	if c.Scrape.MaxPause < c.Pause() {
		errs = append(errs, errors.New("max pause cannot be shorter than pause duration"))
	}
	if c.Scrape.MaxRetries < 0 {
		errs = append(errs, errors.New("max retries cannot be negative"))
	}
	if c.Scrape.MetadataDelay < 0 {
		errs = append(errs, errors.New("metadata delay cannot be negative"))
	}

	if c.Output.Directory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}
	if c.Output.CombinedFile == "" {
		errs = append(errs, errors.New("combined file name is required"))
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

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge applies the non-zero fields of overrides on top of the configuration.
// Command line flags are collected into a partial Config and merged here.
// Zero values never override; use an Override for those.
func (c *Config) Merge(overrides *Config) error {
	if overrides == nil {
		return nil
	}
	if err := mergo.Merge(c, overrides, mergo.WithOverride); err != nil {
		return fmt.Errorf("failed to merge overrides: %w", err)
	}
	return nil
}

// Override sets fields unconditionally. It carries command line flags whose
// zero value is meaningful, such as --max-retries 0 (retry forever) or
// --throttle 0 (no throttling), which Merge would ignore.
type Override func(*Config)

// SplitList splits a comma or whitespace separated list of identifiers
func SplitList(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\n' || r == '\t'
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
// Explicit overrides run after the merge, so they also apply zero values.
func Load(configPath string, overrides *Config, explicit ...Override) (*Config, error) {
	// Missing .env files are fine
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".storereviews.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := config.Merge(overrides); err != nil {
		return nil, err
	}
	for _, apply := range explicit {
		apply(config)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
