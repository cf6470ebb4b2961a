package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"storereviews/pkg/config"
	"storereviews/pkg/logger"
	"storereviews/pkg/ui"
)

var (
	// Version information
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	logFile    string
	quiet      bool
	notify     bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "storereviews",
	Short: "Collect app reviews and store listings from Google Play and the App Store",
	Long: `storereviews pages through the public reviews of a list of apps and writes
them to JSON files, one per app plus a combined file.

A failed page is checkpointed to the app's file, followed by a pause and a
retry of the same page, so long runs survive throttling and flaky networks.

Features:
  - Google Play and App Store review feeds
  - Store listing metadata collection
  - Resume interrupted runs at app granularity
  - Constant or exponential pauses after errors
  - Prometheus textfile metrics`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.Version = version
		if quiet {
			ui.SetQuiet(true)
		}
		if cmd.Name() == "scrape" || cmd.Name() == "metadata" {
			ui.PrintBanner()
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		ui.PrintError("Error", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is ./.storereviews.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "also write logs to this file")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&notify, "notify", false, "send a desktop notification when the run ends")

	rootCmd.SetVersionTemplate(`storereviews {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// loadConfig layers the config file, environment and flag overrides, then
// initializes the global logger from the result
func loadConfig(overrides *config.Config, explicit ...config.Override) (*config.Config, logger.Logger, error) {
	if overrides == nil {
		overrides = &config.Config{}
	}
	overrides.Logging.Level = logLevel
	overrides.Logging.File = logFile

	cfg, err := config.Load(configFile, overrides, explicit...)
	if err != nil {
		return nil, nil, err
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, logger.GetLogger(), nil
}

// explicitOverrides carries the flags whose zero value means something and
// would otherwise be dropped by the merge
func explicitOverrides(flags *pflag.FlagSet) []config.Override {
	var out []config.Override
	if flags.Changed("max-retries") {
		if n, err := flags.GetInt("max-retries"); err == nil {
			out = append(out, func(c *config.Config) { c.Scrape.MaxRetries = n })
		}
	}
	if flags.Changed("throttle") {
		if n, err := flags.GetInt("throttle"); err == nil {
			out = append(out, func(c *config.Config) { c.Store.Throttle = n })
		}
	}
	if flags.Changed("delay") {
		if d, err := flags.GetDuration("delay"); err == nil {
			out = append(out, func(c *config.Config) { c.Scrape.MetadataDelay = d })
		}
	}
	return out
}

// resolveApps prefers command line identifiers over the configured list
func resolveApps(cfg *config.Config, args []string) ([]string, error) {
	if len(args) > 0 {
		apps := make([]string, 0, len(args))
		for _, a := range args {
			apps = append(apps, config.SplitList(a)...)
		}
		cfg.Apps = apps
	}
	if len(cfg.Apps) == 0 {
		return nil, fmt.Errorf("no apps to process: pass identifiers as arguments or set apps in the config file")
	}
	return cfg.Apps, nil
}
