package scraper

import (
	"context"
	"fmt"
	"time"

	errs "storereviews/pkg/errors"
	"storereviews/pkg/logger"
	"storereviews/pkg/models"
	"storereviews/pkg/provider"
	"storereviews/pkg/retry"
)

// MetadataScraper fetches the store listing of every app and writes them to
// one file. A failed app is recorded with null results and the run goes on.
type MetadataScraper struct {
	provider provider.MetadataFetcher
	store    Store
	fileName string
	delay    time.Duration
	metrics  *Metrics
	logger   logger.Logger

	now  func() time.Time
	wait func(ctx context.Context, d time.Duration) error
}

// NewMetadataScraper creates a MetadataScraper writing <fileName>.json and
// waiting delay between apps
func NewMetadataScraper(p provider.MetadataFetcher, store Store, fileName string, delay time.Duration, log logger.Logger) *MetadataScraper {
	if log == nil {
		log = logger.GetLogger()
	}
	return &MetadataScraper{
		provider: p,
		store:    store,
		fileName: fileName,
		delay:    delay,
		logger:   log,
		now:      time.Now,
		wait:     retry.Wait,
	}
}

// SetMetrics attaches run metrics
func (m *MetadataScraper) SetMetrics(metrics *Metrics) {
	m.metrics = metrics
}

// ScrapeAll fetches metadata for every app in order
func (m *MetadataScraper) ScrapeAll(ctx context.Context, apps []string) ([]models.AppMetadataRecord, error) {
	records := make([]models.AppMetadataRecord, 0, len(apps))

	for i, app := range apps {
		if err := ctx.Err(); err != nil {
			return records, err
		}

		log := m.logger.WithContext(ctx).WithField("app", app)
		log.Info("Fetching app metadata")

		start := time.Now()
		results, err := m.provider.AppMetadata(ctx, app)
		m.metrics.ObserveFetch(time.Since(start))
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return records, ctxErr
			}
			errorType := errs.Classify(err)
			m.metrics.IncFetchError(string(errorType))
			log.WithError(err).ErrorWithFields("Failed to fetch app metadata", map[string]interface{}{
				"error_type": string(errorType),
			})
			results = nil
		} else {
			m.metrics.IncAppCompleted()
		}

		records = append(records, models.AppMetadataRecord{
			App:        app,
			ScrapeTime: m.now(),
			Results:    results,
		})

		if i < len(apps)-1 {
			if err := m.wait(ctx, m.delay); err != nil {
				return records, err
			}
		}
	}

	if err := m.store.WriteJSON(m.fileName, records); err != nil {
		return records, fmt.Errorf("failed to write metadata: %w", err)
	}
	logger.LogFileWritten(m.logger, m.store.Path(m.fileName), len(records))

	return records, nil
}
