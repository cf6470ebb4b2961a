// Package scraper drives review and metadata collection.
//
// Apps are processed strictly one after another, and pages within an app in
// ascending order, so a store never sees concurrent requests from one run.
//
// Review runs:
//
// For each app the Scraper requests pages starting at the provider's first
// page. A failed page writes the reviews collected so far to <appId>.json,
// pauses according to the configured backoff and retries the same page. The
// app is finished when a page comes back empty without an error. Once every
// app is done the summaries are written to the combined file.
//
//	s := scraper.New(playClient, storageManager, scraper.Options{
//	    StoreName: "play",
//	    Region:    "gb",
//	    Backoff:   &retry.ConstantBackoff{Delay: time.Minute},
//	}, logger.GetLogger())
//	summaries, err := s.ScrapeAll(ctx, apps)
//
// With a checkpoint manager attached, completed apps are recorded in the run
// checkpoint and a resumed run reads them back from their files.
//
// Metadata runs:
//
// MetadataScraper calls the provider once per app and writes every result,
// or null for failed apps, to a single file.
package scraper
