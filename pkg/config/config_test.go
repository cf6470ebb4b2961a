package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, StorePlay, config.Store.Name)
	assert.Equal(t, "gb", config.Store.Region)
	assert.Equal(t, "helpfulness", config.Store.Sort)
	assert.Equal(t, 1, config.Store.Throttle)
	assert.Zero(t, config.Scrape.PauseDuration, "pause follows the store")
	assert.Equal(t, 60*time.Second, config.Pause())
	assert.Equal(t, 0, config.Scrape.MaxRetries, "retries are unlimited by default")
	assert.Equal(t, "all_reviews", config.Output.CombinedFile)
	assert.Equal(t, "play_app_meta_data", config.MetadataFileName())
	assert.NoError(t, config.Validate())
}

func TestPauseFollowsStore(t *testing.T) {
	config := DefaultConfig()
	assert.Equal(t, DefaultPlayPause, config.Pause())

	config.Store.Name = StoreAppStore
	assert.Equal(t, 10*time.Second, config.Pause())

	config.Scrape.PauseDuration = 3 * time.Second
	assert.Equal(t, 3*time.Second, config.Pause(), "configured pause wins over the store default")
}

func TestLoadAppStoreDefaultPause(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("store:\n  name: appstore\n"), 0644))

	config, err := Load(configPath, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultAppStorePause, config.Pause())
}

func TestMetadataFileName(t *testing.T) {
	config := DefaultConfig()
	config.Store.Name = StoreAppStore
	assert.Equal(t, "appstore_app_meta_data", config.MetadataFileName())

	config.Output.MetadataFile = "meta"
	assert.Equal(t, "meta", config.MetadataFileName())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv(EnvPrefix+"STORE", "AppStore")
	t.Setenv(EnvPrefix+"REGION", "US")
	t.Setenv(EnvPrefix+"APPS", "com.example.one, com.example.two,,com.example.three")
	t.Setenv(EnvPrefix+"PAUSE_DURATION", "5s")
	t.Setenv(EnvPrefix+"MAX_RETRIES", "3")
	t.Setenv(EnvPrefix+"OUTPUT_DIR", "/tmp/reviews")
	t.Setenv(EnvPrefix+"LOG_LEVEL", "debug")

	config := DefaultConfig()
	require.NoError(t, config.LoadFromEnv())

	assert.Equal(t, StoreAppStore, config.Store.Name)
	assert.Equal(t, "us", config.Store.Region)
	assert.Equal(t, []string{"com.example.one", "com.example.two", "com.example.three"}, config.Apps)
	assert.Equal(t, 5*time.Second, config.Scrape.PauseDuration)
	assert.Equal(t, 3, config.Scrape.MaxRetries)
	assert.Equal(t, "/tmp/reviews", config.Output.Directory)
	assert.Equal(t, "debug", config.Logging.Level)
}

func TestLoadFromEnvInvalidValues(t *testing.T) {
	t.Setenv(EnvPrefix+"PAUSE_DURATION", "soon")
	t.Setenv(EnvPrefix+"MAX_RETRIES", "many")

	config := DefaultConfig()
	err := config.LoadFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PAUSE_DURATION")
	assert.Contains(t, err.Error(), "MAX_RETRIES")
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
store:
  name: appstore
  region: us
  sort: newest
apps:
  - "553834731"
  - com.example.app
scrape:
  pause_duration: 2s
  backoff: exponential
  max_retries: 4
output:
  directory: ./out
logging:
  level: warn
`
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0644))

	config := DefaultConfig()
	require.NoError(t, config.LoadFromFile(configPath))

	assert.Equal(t, StoreAppStore, config.Store.Name)
	assert.Equal(t, "us", config.Store.Region)
	assert.Equal(t, "newest", config.Store.Sort)
	assert.Equal(t, []string{"553834731", "com.example.app"}, config.Apps)
	assert.Equal(t, 2*time.Second, config.Scrape.PauseDuration)
	assert.Equal(t, BackoffExponential, config.Scrape.Backoff)
	assert.Equal(t, 4, config.Scrape.MaxRetries)
	assert.Equal(t, "./out", config.Output.Directory)
	assert.Equal(t, "warn", config.Logging.Level)

	// Fields absent from the file keep their defaults
	assert.Equal(t, 40, config.Store.PageSize)
	assert.Equal(t, "all_reviews", config.Output.CombinedFile)
}

func TestLoadFromFileMissing(t *testing.T) {
	config := DefaultConfig()
	err := config.LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"unknown store", func(c *Config) { c.Store.Name = "amazon" }, "unknown store"},
		{"bad region", func(c *Config) { c.Store.Region = "gbr" }, "region"},
		{"bad sort", func(c *Config) { c.Store.Sort = "random" }, "sort mode"},
		{"negative pause", func(c *Config) { c.Scrape.PauseDuration = -time.Second }, "pause duration"},
		{"max pause below pause", func(c *Config) { c.Scrape.PauseDuration = time.Hour }, "max pause"},
		{"negative retries", func(c *Config) { c.Scrape.MaxRetries = -1 }, "max retries"},
		{"empty app", func(c *Config) { c.Apps = []string{"a", " "} }, "app identifier 1"},
		{"bad backoff", func(c *Config) { c.Scrape.Backoff = "linear" }, "backoff"},
		{"no output dir", func(c *Config) { c.Output.Directory = "" }, "output directory"},
		{"bad log level", func(c *Config) { c.Logging.Level = "trace" }, "log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)
			err := config.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateJoinsErrors(t *testing.T) {
	config := DefaultConfig()
	config.Store.Name = "amazon"
	config.Logging.Level = "loud"

	err := config.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown store")
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestMerge(t *testing.T) {
	config := DefaultConfig()
	overrides := &Config{
		Store:  StoreConfig{Region: "de"},
		Apps:   []string{"com.example.flag"},
		Scrape: ScrapeConfig{PauseDuration: 3 * time.Second},
	}

	require.NoError(t, config.Merge(overrides))

	assert.Equal(t, "de", config.Store.Region)
	assert.Equal(t, StorePlay, config.Store.Name, "zero override fields keep existing values")
	assert.Equal(t, []string{"com.example.flag"}, config.Apps)
	assert.Equal(t, 3*time.Second, config.Scrape.PauseDuration)
	assert.Equal(t, time.Second, config.Scrape.MetadataDelay)

	assert.NoError(t, config.Merge(nil))
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	original := DefaultConfig()
	original.Apps = []string{"com.example.saved"}
	original.Store.Region = "fr"
	require.NoError(t, original.Save(path))

	loaded := DefaultConfig()
	require.NoError(t, loaded.LoadFromFile(path))
	assert.Equal(t, original, loaded)
}

func TestLoadPrecedence(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("store:\n  region: us\nscrape:\n  max_retries: 2\n"), 0644))

	t.Setenv(EnvPrefix+"MAX_RETRIES", "7")

	config, err := Load(configPath, &Config{Store: StoreConfig{Sort: "newest"}})
	require.NoError(t, err)

	assert.Equal(t, "us", config.Store.Region, "file overrides defaults")
	assert.Equal(t, 7, config.Scrape.MaxRetries, "env overrides file")
	assert.Equal(t, "newest", config.Store.Sort, "flags override env")
}

func TestLoadExplicitZeroOverrides(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("store:\n  throttle: 3\nscrape:\n  max_retries: 5\n"), 0644))

	// zero values in the merged overrides are ignored
	config, err := Load(configPath, &Config{Scrape: ScrapeConfig{MaxRetries: 0}, Store: StoreConfig{Throttle: 0}})
	require.NoError(t, err)
	assert.Equal(t, 5, config.Scrape.MaxRetries)
	assert.Equal(t, 3, config.Store.Throttle)

	config, err = Load(configPath, nil,
		func(c *Config) { c.Scrape.MaxRetries = 0 },
		func(c *Config) { c.Store.Throttle = 0 },
	)
	require.NoError(t, err)
	assert.Equal(t, 0, config.Scrape.MaxRetries, "retry forever restored")
	assert.Equal(t, 0, config.Store.Throttle, "throttling disabled")
}

func TestLoadExplicitOverridesAreValidated(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("apps: [a]\n"), 0644))

	_, err := Load(configPath, nil, func(c *Config) { c.Scrape.MaxRetries = -2 })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max retries")
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, SplitList(" a,b\tc\n"))
	assert.Empty(t, SplitList(" , "))
}
