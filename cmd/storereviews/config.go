package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"storereviews/pkg/config"
	"storereviews/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage storereviews configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (STOREREVIEWS_*), including a .env file
  - Configuration file
  - Default values (lowest priority)`,
}

// initCmd represents the config init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create an example configuration file with all available options.

The file will be created in the current directory as '.storereviews.yaml'
unless a different path is specified with the --config flag.`,
	RunE: runConfigInit,
}

// showCmd represents the config show command
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Show the effective configuration after merging every source.`,
	RunE:  runConfigShow,
}

// validateCmd represents the config validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration",
	Long: `Validate the effective configuration and check that the output and log
directories can be created.`,
	RunE: runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(validateCmd)
}

const exampleConfig = `# storereviews configuration file
#
# Every option can also be set with an environment variable prefixed with
# STOREREVIEWS_, for example STOREREVIEWS_STORE or STOREREVIEWS_APPS.

store:
  # play or appstore
  name: play
  # Two-letter country code of the storefront
  region: gb
  # Review language (Google Play only)
  language: en
  # helpfulness, newest or rating
  sort: helpfulness
  # Maximum requests per second
  throttle: 1
  # Reviews per page (Google Play only)
  page_size: 40
  timeout: 30s

# Apps are processed strictly in this order.
# Google Play uses package names, the App Store numeric ids or bundle ids.
apps:
  - com.spotify.music
  - com.whatsapp

scrape:
  # Pause after a failed page. Unset uses the store default:
  # 60s for play, 10s for appstore
  # pause_duration: 60s
  # constant or exponential
  backoff: constant
  # Longest pause when backoff is exponential
  max_pause: 10m
  # Consecutive failures allowed on one page, 0 retries forever
  max_retries: 0
  # Wait between apps in metadata runs
  metadata_delay: 1s

output:
  directory: .
  combined_file: all_reviews
  # Defaults to <store>_app_meta_data
  metadata_file: ""
  # Prometheus textfile, empty disables it
  metrics_file: ""

logging:
  # debug, info, warn, error
  level: info
  # Log file path, empty logs to the console only
  file: ""
`

func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath := configFile
	if configPath == "" {
		configPath = ".storereviews.yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("configuration file already exists: %s", configPath)
	}

	if err := os.WriteFile(configPath, []byte(exampleConfig), 0644); err != nil {
		return fmt.Errorf("failed to create configuration file: %w", err)
	}

	ui.PrintSuccess("Configuration file created: " + configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("1. Edit the app list in the configuration file")
	fmt.Println("2. Run 'storereviews config validate' to check the configuration")
	fmt.Println("3. Start collecting with 'storereviews scrape'")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}

	fmt.Print(string(data))
	fmt.Println("\nConfiguration sources (in order of priority):")
	fmt.Println("1. Command line flags")
	fmt.Println("2. Environment variables (STOREREVIEWS_*)")
	if configFile != "" {
		fmt.Printf("3. Configuration file: %s\n", configFile)
	} else {
		fmt.Println("3. Configuration file: (searched in default locations)")
	}
	fmt.Println("4. Default values")
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		return err
	}

	var problems []string
	if err := os.MkdirAll(cfg.Output.Directory, 0755); err != nil {
		problems = append(problems, fmt.Sprintf("cannot create output directory: %v", err))
	}
	if cfg.Logging.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Logging.File), 0755); err != nil {
			problems = append(problems, fmt.Sprintf("cannot create log directory: %v", err))
		}
	}
	if len(problems) > 0 {
		for _, p := range problems {
			fmt.Printf("  - %s\n", p)
		}
		return fmt.Errorf("configuration has %d problem(s)", len(problems))
	}

	if len(cfg.Apps) == 0 {
		ui.PrintWarning("No apps configured, pass them on the command line")
	}

	ui.PrintSuccess("Configuration is valid")
	fmt.Println("\nConfiguration summary:")
	fmt.Printf("  Store: %s (%s, %s)\n", cfg.Store.Name, cfg.Store.Region, cfg.Store.Sort)
	fmt.Printf("  Apps: %d\n", len(cfg.Apps))
	fmt.Printf("  Pause: %s (%s)\n", cfg.Pause(), cfg.Scrape.Backoff)
	fmt.Printf("  Max retries: %d\n", cfg.Scrape.MaxRetries)
	fmt.Printf("  Output directory: %s\n", cfg.Output.Directory)
	fmt.Printf("  Log level: %s\n", cfg.Logging.Level)
	return nil
}
