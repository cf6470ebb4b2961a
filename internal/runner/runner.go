// Package runner turns a loaded configuration into the provider, storage and
// scraper instances used by the commands.
package runner

import (
	"fmt"

	"storereviews/pkg/checkpoint"
	"storereviews/pkg/config"
	"storereviews/pkg/logger"
	"storereviews/pkg/provider"
	"storereviews/pkg/provider/appstore"
	"storereviews/pkg/provider/googleplay"
	"storereviews/pkg/retry"
	"storereviews/pkg/scraper"
	"storereviews/pkg/storage"
)

// NewProvider builds the adapter for the configured store
func NewProvider(cfg *config.Config, log logger.Logger) (provider.Provider, error) {
	client := provider.ClientOptions{
		BaseURL:   cfg.Store.BaseURL,
		UserAgent: cfg.Store.UserAgent,
		Timeout:   cfg.Store.Timeout,
		Logger:    log,
	}

	switch cfg.Store.Name {
	case config.StorePlay:
		p, err := googleplay.New(googleplay.Options{
			ClientOptions: client,
			PageSize:      cfg.Store.PageSize,
			Region:        cfg.Store.Region,
			Language:      cfg.Store.Language,
		})
		if err != nil {
			return nil, err
		}
		return p, nil
	case config.StoreAppStore:
		p, err := appstore.New(appstore.Options{
			ClientOptions: client,
			Region:        cfg.Store.Region,
		})
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store.Name)
	}
}

// ScrapeOptions maps the configuration onto the review loop options
func ScrapeOptions(cfg *config.Config, resume, forceRestart bool) (scraper.Options, error) {
	sort, err := provider.ParseSortMode(cfg.Store.Sort)
	if err != nil {
		return scraper.Options{}, err
	}
	backoff, err := retry.New(cfg.Scrape.Backoff, cfg.Pause(), cfg.Scrape.MaxPause)
	if err != nil {
		return scraper.Options{}, err
	}

	return scraper.Options{
		StoreName:    cfg.Store.Name,
		Sort:         sort,
		Region:       cfg.Store.Region,
		Language:     cfg.Store.Language,
		Throttle:     cfg.Store.Throttle,
		Backoff:      backoff,
		MaxRetries:   cfg.Scrape.MaxRetries,
		CombinedFile: cfg.Output.CombinedFile,
		Resume:       resume,
		ForceRestart: forceRestart,
	}, nil
}

// Reviews holds everything a review run needs
type Reviews struct {
	Scraper *scraper.Scraper
	Metrics *scraper.Metrics
	Store   *storage.Manager
}

// NewReviews wires a review scraper for cfg. The run checkpoint lives next to
// the output files.
func NewReviews(cfg *config.Config, p provider.ReviewFetcher, resume, forceRestart bool, log logger.Logger) (*Reviews, error) {
	store, err := storage.NewManager(cfg.Output.Directory)
	if err != nil {
		return nil, err
	}

	opts, err := ScrapeOptions(cfg, resume, forceRestart)
	if err != nil {
		return nil, err
	}

	metrics := scraper.NewMetrics()
	s := scraper.New(p, store, opts, log)
	s.SetMetrics(metrics)
	s.SetCheckpointManager(checkpoint.NewManager(store, log))

	return &Reviews{Scraper: s, Metrics: metrics, Store: store}, nil
}

// Metadata holds everything a metadata run needs
type Metadata struct {
	Scraper *scraper.MetadataScraper
	Metrics *scraper.Metrics
	Store   *storage.Manager
}

// NewMetadata wires a metadata scraper for cfg
func NewMetadata(cfg *config.Config, p provider.MetadataFetcher, log logger.Logger) (*Metadata, error) {
	store, err := storage.NewManager(cfg.Output.Directory)
	if err != nil {
		return nil, err
	}

	metrics := scraper.NewMetrics()
	s := scraper.NewMetadataScraper(p, store, cfg.MetadataFileName(), cfg.Scrape.MetadataDelay, log)
	s.SetMetrics(metrics)

	return &Metadata{Scraper: s, Metrics: metrics, Store: store}, nil
}
