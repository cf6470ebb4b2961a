package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"storereviews/internal/runner"
	"storereviews/pkg/config"
	"storereviews/pkg/ui"
)

var (
	metadataStore storeFlags
	metadataDelay time.Duration
	metadataFile  string
)

// metadataCmd represents the metadata command
var metadataCmd = &cobra.Command{
	Use:   "metadata [appId...]",
	Short: "Collect the store listing of a list of apps",
	Long: `Fetch the store listing (title, developer, rating, installs and so on) of
each app and write all of them to <store>_app_meta_data.json.

An app whose listing cannot be fetched is recorded with "results": null and
the run continues with the next app.`,
	Example: `  storereviews metadata com.spotify.music com.whatsapp
  storereviews metadata com.zhiliaoapp.musically --store appstore --delay 2s`,
	RunE: runMetadata,
}

func init() {
	rootCmd.AddCommand(metadataCmd)

	metadataStore.register(metadataCmd)
	metadataCmd.Flags().DurationVar(&metadataDelay, "delay", 0, "wait between apps (default 1s)")
	metadataCmd.Flags().StringVar(&metadataFile, "file", "", "output file name, without .json (default <store>_app_meta_data)")
}

func runMetadata(cmd *cobra.Command, args []string) error {
	o := &config.Config{}
	metadataStore.apply(o)
	o.Scrape.MetadataDelay = metadataDelay
	o.Output.MetadataFile = metadataFile

	cfg, log, err := loadConfig(o, explicitOverrides(cmd.Flags())...)
	if err != nil {
		return err
	}
	apps, err := resolveApps(cfg, args)
	if err != nil {
		return err
	}

	ui.PrintInfo("Store", cfg.Store.Name)
	ui.PrintInfo("Output", cfg.MetadataFileName()+".json")

	p, err := runner.NewProvider(cfg, log)
	if err != nil {
		return err
	}
	run, err := runner.NewMetadata(cfg, p, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	records, err := run.Scraper.ScrapeAll(ctx, apps)
	if mErr := run.Metrics.WriteTextfile(cfg.Output.MetricsFile); mErr != nil {
		log.WithError(mErr).Warn("Failed to write metrics")
	}
	if err != nil {
		return err
	}

	if !quiet {
		ui.RenderMetadataSummary(os.Stdout, records)
	}
	ui.PrintSuccess("Metadata written to " + run.Store.Path(cfg.MetadataFileName()))
	return nil
}
