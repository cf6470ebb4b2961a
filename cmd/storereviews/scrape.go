package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"storereviews/internal/runner"
	"storereviews/pkg/config"
	"storereviews/pkg/ui"
)

// storeFlags are shared by scrape and metadata
type storeFlags struct {
	store     string
	region    string
	language  string
	outputDir string
}

func (f *storeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.store, "store", "s", "", "storefront: play or appstore")
	cmd.Flags().StringVarP(&f.region, "region", "r", "", "two-letter country code")
	cmd.Flags().StringVar(&f.language, "language", "", "review language (Google Play only)")
	cmd.Flags().StringVarP(&f.outputDir, "output", "o", "", "output directory (default: current directory)")
}

func (f *storeFlags) apply(c *config.Config) {
	c.Store.Name = f.store
	c.Store.Region = f.region
	c.Store.Language = f.language
	c.Output.Directory = f.outputDir
}

var (
	scrapeStore  storeFlags
	sortMode     string
	pause        time.Duration
	backoff      string
	maxRetries   int
	throttle     int
	combinedFile string
	metricsFile  string
	resumeRun    bool
	forceRestart bool
	showSummary  bool
)

// scrapeCmd represents the scrape command
var scrapeCmd = &cobra.Command{
	Use:   "scrape [appId...]",
	Short: "Collect all reviews of a list of apps",
	Long: `Collect every review page of each app, strictly one app and one page at a time.

Each app gets a <appId>.json file with its reviews. When all apps are done a
combined all_reviews.json is written with one entry per app.

A page that fails is retried after a pause. Before pausing, the reviews
collected so far are written to the app's file, so an interrupted run never
loses more than the current page.`,
	Example: `  # Google Play reviews for two apps
  storereviews scrape com.spotify.music com.whatsapp

  # App Store reviews, newest first, US storefront
  storereviews scrape 324684580 --store appstore --region us --sort newest

  # Exponential pauses, give up on a page after 10 failures
  storereviews scrape com.whatsapp --backoff exponential --pause 5s --max-retries 10

  # Resume an interrupted run
  storereviews scrape --resume`,
	RunE: runScrape,
}

func init() {
	rootCmd.AddCommand(scrapeCmd)

	scrapeStore.register(scrapeCmd)
	scrapeCmd.Flags().StringVar(&sortMode, "sort", "", "review order: helpfulness, newest or rating")
	scrapeCmd.Flags().DurationVar(&pause, "pause", 0, "pause after a failed page (default 60s play, 10s appstore)")
	scrapeCmd.Flags().StringVar(&backoff, "backoff", "", "pause strategy: constant or exponential")
	scrapeCmd.Flags().IntVar(&maxRetries, "max-retries", 0, "consecutive failures allowed on one page (0 = unlimited)")
	scrapeCmd.Flags().IntVar(&throttle, "throttle", 0, "maximum requests per second")
	scrapeCmd.Flags().StringVar(&combinedFile, "combined-file", "", "name of the combined output file, without .json")
	scrapeCmd.Flags().StringVar(&metricsFile, "metrics-file", "", "write Prometheus metrics to this file at the end")
	scrapeCmd.Flags().BoolVar(&resumeRun, "resume", false, "skip apps finished by an interrupted run")
	scrapeCmd.Flags().BoolVar(&forceRestart, "force-restart", false, "discard any existing run checkpoint")
	scrapeCmd.Flags().BoolVar(&showSummary, "summary", true, "print a summary table at the end")
}

func scrapeOverrides() *config.Config {
	o := &config.Config{}
	scrapeStore.apply(o)
	o.Store.Sort = sortMode
	o.Store.Throttle = throttle
	o.Scrape.PauseDuration = pause
	o.Scrape.Backoff = backoff
	o.Scrape.MaxRetries = maxRetries
	o.Output.CombinedFile = combinedFile
	o.Output.MetricsFile = metricsFile
	return o
}

func runScrape(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig(scrapeOverrides(), explicitOverrides(cmd.Flags())...)
	if err != nil {
		return err
	}
	apps, err := resolveApps(cfg, args)
	if err != nil {
		return err
	}

	ui.PrintInfo("Store", cfg.Store.Name)
	ui.PrintInfo("Apps", strconv.Itoa(len(apps)))
	ui.PrintInfo("Output", cfg.Output.Directory)

	p, err := runner.NewProvider(cfg, log)
	if err != nil {
		return err
	}
	run, err := runner.NewReviews(cfg, p, resumeRun, forceRestart, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	notifier := ui.NewNotifier(notify)
	summaries, err := run.Scraper.ScrapeAll(ctx, apps)

	if mErr := run.Metrics.WriteTextfile(cfg.Output.MetricsFile); mErr != nil {
		log.WithError(mErr).Warn("Failed to write metrics")
	}

	if err != nil {
		log.WithError(err).Error("Review run stopped")
		notifier.RunFailed(err)
		return err
	}

	total := 0
	for _, s := range summaries {
		total += s.NumberOfReviews
	}
	log.InfoWithFields("Review run completed", map[string]interface{}{
		"apps":     len(summaries),
		"reviews":  total,
		"combined": run.Store.Path(cfg.Output.CombinedFile),
	})

	if showSummary && !quiet {
		ui.RenderReviewSummary(os.Stdout, summaries)
	}
	notifier.RunFinished(len(summaries), total)
	return nil
}
