package models

import (
	"encoding/json"
	"time"
)

// Review is one provider-defined review record. Its shape belongs to the
// provider and it is persisted exactly as received.
type Review = json.RawMessage

// ScrapeResult is the outcome of one page fetch attempt, or of a whole per-app
// loop when Err is nil
type ScrapeResult struct {
	Reviews       []Review
	NumberOfPages int
	Err           error
}

// AppScrapeSummary is one entry of the combined reviews file
type AppScrapeSummary struct {
	PackageName     string    `json:"packageName"`
	Reviews         []Review  `json:"reviews"`
	NumberOfPages   int       `json:"numberOfPages"`
	NumberOfReviews int       `json:"numberOfReviews"`
	ScrapeTime      time.Time `json:"scrapeTime"`
}

// AppReviewsFile is the body of the per-app <appId>.json file. It is written
// as a checkpoint after every failed page and once more when the app is done.
type AppReviewsFile struct {
	App           string   `json:"app"`
	NumberOfPages int      `json:"numberOfPages"`
	Reviews       []Review `json:"reviews"`
}

// AppMetadataRecord is one entry of the combined metadata file. Results is
// null when the provider failed for that app.
type AppMetadataRecord struct {
	App        string          `json:"app"`
	ScrapeTime time.Time       `json:"scrapeTime"`
	Results    json.RawMessage `json:"results"`
}

// NewSummary builds the summary for a finished app
func NewSummary(app string, result ScrapeResult, scrapeTime time.Time) AppScrapeSummary {
	reviews := result.Reviews
	if reviews == nil {
		reviews = []Review{}
	}
	return AppScrapeSummary{
		PackageName:     app,
		Reviews:         reviews,
		NumberOfPages:   result.NumberOfPages,
		NumberOfReviews: len(reviews),
		ScrapeTime:      scrapeTime,
	}
}
