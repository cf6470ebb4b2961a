package scraper

import (
	"context"
	"fmt"
	"os"
	"time"

	"storereviews/pkg/checkpoint"
	errs "storereviews/pkg/errors"
	"storereviews/pkg/logger"
	"storereviews/pkg/models"
	"storereviews/pkg/provider"
	"storereviews/pkg/retry"
)

// Options holds the fixed parameters of a review run
type Options struct {
	StoreName string
	Sort      provider.SortMode
	Region    string
	Language  string
	Throttle  int

	// Backoff decides the pause after each consecutive failure on a page
	Backoff retry.BackoffStrategy
	// MaxRetries caps consecutive failures on one page; 0 retries forever
	MaxRetries int

	// CombinedFile is the logical name of the file holding every summary
	CombinedFile string

	Resume       bool
	ForceRestart bool
}

// loopState is the state of the per-app scrape loop
type loopState int

const (
	stateFetching loopState = iota
	statePausedAfterError
	stateDone
)

// Scraper collects reviews for a list of apps, one app and one page at a time
type Scraper struct {
	provider      provider.ReviewFetcher
	store         Store
	checkpointMgr *checkpoint.Manager
	opts          Options
	metrics       *Metrics
	logger        logger.Logger

	now  func() time.Time
	wait func(ctx context.Context, d time.Duration) error
}

// New creates a Scraper
func New(p provider.ReviewFetcher, store Store, opts Options, log logger.Logger) *Scraper {
	if log == nil {
		log = logger.GetLogger()
	}
	if opts.Backoff == nil {
		opts.Backoff = &retry.ConstantBackoff{Delay: time.Minute}
	}
	if opts.Sort == "" {
		opts.Sort = provider.SortHelpfulness
	}
	if opts.CombinedFile == "" {
		opts.CombinedFile = "all_reviews"
	}
	return &Scraper{
		provider: p,
		store:    store,
		opts:     opts,
		logger:   log,
		now:      time.Now,
		wait:     retry.Wait,
	}
}

// SetMetrics attaches run metrics
func (s *Scraper) SetMetrics(m *Metrics) {
	s.metrics = m
}

// SetCheckpointManager enables the run checkpoint used by resume
func (s *Scraper) SetCheckpointManager(m *checkpoint.Manager) {
	s.checkpointMgr = m
}

// fetchPage performs one provider call. Errors are returned inside the
// result, never as a second value.
func (s *Scraper) fetchPage(ctx context.Context, appID string, page int) models.ScrapeResult {
	start := time.Now()
	reviews, err := s.provider.ReviewsPage(ctx, provider.PageRequest{
		AppID:    appID,
		Page:     page,
		Sort:     s.opts.Sort,
		Region:   s.opts.Region,
		Language: s.opts.Language,
		Throttle: s.opts.Throttle,
	})
	s.metrics.ObserveFetch(time.Since(start))

	if err != nil {
		return models.ScrapeResult{Reviews: []models.Review{}, Err: err}
	}
	if reviews == nil {
		reviews = []models.Review{}
	}
	return models.ScrapeResult{Reviews: reviews}
}

// ScrapeApp pages through all reviews of one app. A failed page is
// checkpointed to <appID>.json, followed by a pause and a retry of the same
// page. The loop ends on the first page that returns no reviews and no error.
//
// The returned error is non-nil only when ctx ends or the checkpoint cannot
// be written.
func (s *Scraper) ScrapeApp(ctx context.Context, appID string) (models.ScrapeResult, error) {
	log := s.logger.WithContext(ctx).WithField("app", appID)

	first := s.provider.FirstPage()
	page := first
	reviews := []models.Review{}
	failures := 0
	var lastErr error

	state := stateFetching
	for state != stateDone {
		if err := ctx.Err(); err != nil {
			return models.ScrapeResult{}, err
		}

		switch state {
		case stateFetching:
			res := s.fetchPage(ctx, appID, page)
			if res.Err == nil {
				failures = 0
				if len(res.Reviews) == 0 {
					state = stateDone
					continue
				}
				reviews = append(reviews, res.Reviews...)
				s.metrics.ObservePage(len(res.Reviews))
				logger.LogPage(log, appID, page, len(res.Reviews), len(reviews))
				page++
				continue
			}

			if ctxErr := ctx.Err(); ctxErr != nil {
				return models.ScrapeResult{}, ctxErr
			}

			failures++
			lastErr = res.Err
			s.metrics.IncFetchError(string(errs.Classify(res.Err)))

			if err := s.store.WriteJSON(appID, models.AppReviewsFile{
				App:           appID,
				NumberOfPages: page - first,
				Reviews:       reviews,
			}); err != nil {
				return models.ScrapeResult{}, fmt.Errorf("failed to checkpoint %s: %w", appID, err)
			}
			logger.LogFileWritten(log, s.store.Path(appID), len(reviews))

			if s.opts.MaxRetries > 0 && failures > s.opts.MaxRetries {
				log.WithError(lastErr).ErrorWithFields("Retry limit reached, keeping partial reviews", map[string]interface{}{
					"page":          page,
					"failures":      failures,
					"total_reviews": len(reviews),
				})
				s.metrics.IncGiveUp()
				state = stateDone
				continue
			}
			state = statePausedAfterError

		case statePausedAfterError:
			delay := s.opts.Backoff.NextDelay(failures)
			errorType := errs.Classify(lastErr)
			logger.LogPause(log, appID, page, failures, delay, string(errorType), !errs.IsRetryable(errorType), lastErr)
			s.metrics.IncPause()

			if err := s.wait(ctx, delay); err != nil {
				return models.ScrapeResult{}, err
			}
			state = stateFetching
		}
	}

	return models.ScrapeResult{Reviews: reviews, NumberOfPages: page - first}, nil
}

// ScrapeAll runs ScrapeApp for every app in order, writes each app's file,
// and finally writes the combined file. Any write error aborts the run.
func (s *Scraper) ScrapeAll(ctx context.Context, apps []string) ([]models.AppScrapeSummary, error) {
	logger.LogComponentStart(s.logger, "scraper", map[string]interface{}{
		"apps":        len(apps),
		"sort":        string(s.opts.Sort),
		"region":      s.opts.Region,
		"max_retries": s.opts.MaxRetries,
	})

	cp, err := s.prepareCheckpoint(apps)
	if err != nil {
		return nil, err
	}

	summaries := make([]models.AppScrapeSummary, 0, len(apps))
	for i, app := range apps {
		if cp != nil && cp.IsCompleted(app) {
			summary, err := s.loadCompleted(app)
			if err == nil {
				s.logger.InfoWithFields("Reusing completed app", map[string]interface{}{
					"app":     app,
					"reviews": summary.NumberOfReviews,
				})
				summaries = append(summaries, summary)
				continue
			}
			s.logger.WithError(err).WarnWithFields("Completed app file unreadable, scraping again", map[string]interface{}{"app": app})
		}

		s.logger.InfoWithFields("Scraping app", map[string]interface{}{
			"app":      app,
			"position": i + 1,
			"of":       len(apps),
		})

		result, err := s.ScrapeApp(ctx, app)
		if err != nil {
			return summaries, fmt.Errorf("scrape %s: %w", app, err)
		}

		if err := s.store.WriteJSON(app, models.AppReviewsFile{
			App:           app,
			NumberOfPages: result.NumberOfPages,
			Reviews:       result.Reviews,
		}); err != nil {
			return summaries, fmt.Errorf("failed to write reviews for %s: %w", app, err)
		}
		logger.LogFileWritten(s.logger, s.store.Path(app), len(result.Reviews))

		summary := models.NewSummary(app, result, s.now())
		summaries = append(summaries, summary)
		s.metrics.IncAppCompleted()

		s.logger.InfoWithFields("App completed", map[string]interface{}{
			"app":     app,
			"pages":   summary.NumberOfPages,
			"reviews": summary.NumberOfReviews,
		})

		if cp != nil {
			if err := s.checkpointMgr.MarkCompleted(cp, app); err != nil {
				return summaries, err
			}
		}
	}

	if err := s.store.WriteJSON(s.opts.CombinedFile, summaries); err != nil {
		return summaries, fmt.Errorf("failed to write combined reviews: %w", err)
	}
	logger.LogFileWritten(s.logger, s.store.Path(s.opts.CombinedFile), len(summaries))

	if s.checkpointMgr != nil {
		if err := s.checkpointMgr.Delete(); err != nil {
			s.logger.WithError(err).Warn("Failed to remove run checkpoint")
		}
	}

	return summaries, nil
}

// prepareCheckpoint loads or creates the run checkpoint according to the
// resume options
func (s *Scraper) prepareCheckpoint(apps []string) (*checkpoint.Checkpoint, error) {
	if s.checkpointMgr == nil {
		return nil, nil
	}

	if s.opts.ForceRestart && s.checkpointMgr.Exists() {
		if err := s.checkpointMgr.Delete(); err != nil {
			return nil, err
		}
		s.logger.Info("Ignoring existing checkpoint")
	}

	if s.opts.Resume {
		cp, err := s.checkpointMgr.Load()
		if err != nil {
			return nil, err
		}
		if cp != nil && cp.Matches(s.opts.StoreName, apps) {
			return cp, nil
		}
		if cp != nil {
			s.logger.Warn("Checkpoint belongs to a different run, starting over")
		}
	}

	return s.checkpointMgr.Create(s.opts.StoreName, apps)
}

// loadCompleted rebuilds the summary of an app finished by an earlier run.
// The scrape time is the modification time of its file.
func (s *Scraper) loadCompleted(app string) (models.AppScrapeSummary, error) {
	var file models.AppReviewsFile
	if err := s.store.ReadJSON(app, &file); err != nil {
		return models.AppScrapeSummary{}, err
	}

	scrapeTime := s.now()
	if info, err := os.Stat(s.store.Path(app)); err == nil {
		scrapeTime = info.ModTime()
	}

	return models.NewSummary(app, models.ScrapeResult{
		Reviews:       file.Reviews,
		NumberOfPages: file.NumberOfPages,
	}, scrapeTime), nil
}
