package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"storereviews/pkg/models"
)

// SortMode selects the review ordering requested from a store
type SortMode string

const (
	SortHelpfulness SortMode = "helpfulness"
	SortNewest      SortMode = "newest"
	SortRating      SortMode = "rating"
)

// ParseSortMode converts a configuration value to a SortMode
func ParseSortMode(s string) (SortMode, error) {
	switch SortMode(strings.ToLower(strings.TrimSpace(s))) {
	case SortHelpfulness:
		return SortHelpfulness, nil
	case SortNewest:
		return SortNewest, nil
	case SortRating:
		return SortRating, nil
	default:
		return "", fmt.Errorf("unknown sort mode %q", s)
	}
}

// PageRequest identifies one page of reviews for one app
type PageRequest struct {
	AppID    string
	Page     int
	Sort     SortMode
	Region   string
	Language string
	// Throttle is the maximum number of requests per second
	Throttle int
}

// ReviewFetcher retrieves review pages
type ReviewFetcher interface {
	// FirstPage is the index of the first page (0 or 1 depending on the store)
	FirstPage() int
	// ReviewsPage returns the reviews of one page. An empty slice with a nil
	// error means there are no more reviews.
	ReviewsPage(ctx context.Context, req PageRequest) ([]models.Review, error)
}

// MetadataFetcher retrieves the store listing of an app
type MetadataFetcher interface {
	AppMetadata(ctx context.Context, appID string) (json.RawMessage, error)
}

// Provider is a storefront able to serve reviews and metadata
type Provider interface {
	ReviewFetcher
	MetadataFetcher
	Name() string
}
