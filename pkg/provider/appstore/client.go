package appstore

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	errs "storereviews/pkg/errors"
	"storereviews/pkg/logger"
	"storereviews/pkg/models"
	"storereviews/pkg/provider"
	"storereviews/pkg/ratelimit"
)

const (
	// DefaultBaseURL is the iTunes web service host
	DefaultBaseURL = "https://itunes.apple.com"

	// MaxPage is the last page the customer reviews feed serves
	MaxPage = 10

	idCacheSize = 1024
)

var numericID = regexp.MustCompile(`^\d+$`)

// Options configures a Client
type Options struct {
	provider.ClientOptions
	Region string
}

// Client talks to the App Store lookup service and customer reviews feed
type Client struct {
	http    *resty.Client
	region  string
	trackID *lru.Cache[string, int64]
	limits  *ratelimit.Registry
	logger  logger.Logger
}

// New creates an App Store client
func New(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Region == "" {
		opts.Region = "us"
	}
	if opts.Logger == nil {
		opts.Logger = logger.GetLogger()
	}

	cache, err := lru.New[string, int64](idCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create id cache: %w", err)
	}

	httpClient := provider.NewRestyClient(provider.ClientOptions{
		BaseURL:   strings.TrimSuffix(opts.BaseURL, "/"),
		UserAgent: opts.UserAgent,
		Timeout:   opts.Timeout,
		Logger:    opts.Logger,
	})

	return &Client{
		http:    httpClient,
		region:  strings.ToLower(opts.Region),
		trackID: cache,
		limits:  ratelimit.NewRegistry(),
		logger:  opts.Logger.WithField("provider", "appstore"),
	}, nil
}

// Name returns the store name
func (c *Client) Name() string {
	return "appstore"
}

// FirstPage returns 1, the reviews feed is one based
func (c *Client) FirstPage() int {
	return 1
}

// Review is the normalized form of a customer reviews feed entry
type Review struct {
	ID        string `json:"id"`
	UserName  string `json:"userName"`
	UserURL   string `json:"userUrl"`
	Version   string `json:"version"`
	Score     int    `json:"score"`
	Title     string `json:"title"`
	Text      string `json:"text"`
	URL       string `json:"url"`
	Updated   string `json:"updated"`
	VoteSum   int    `json:"voteSum"`
	VoteCount int    `json:"voteCount"`
}

type label struct {
	Label string `json:"label"`
}

type feedEntry struct {
	ID     label `json:"id"`
	Author struct {
		Name label `json:"name"`
		URI  label `json:"uri"`
	} `json:"author"`
	Version   label `json:"im:version"`
	Rating    label `json:"im:rating"`
	Title     label `json:"title"`
	Content   label `json:"content"`
	Updated   label `json:"updated"`
	VoteSum   label `json:"im:voteSum"`
	VoteCount label `json:"im:voteCount"`
	Link      struct {
		Attributes struct {
			Href string `json:"href"`
		} `json:"attributes"`
	} `json:"link"`
}

type feedResponse struct {
	Feed struct {
		Entry json.RawMessage `json:"entry"`
	} `json:"feed"`
}

type lookupResponse struct {
	ResultCount int               `json:"resultCount"`
	Results     []json.RawMessage `json:"results"`
}

func sortParam(s provider.SortMode) string {
	if s == provider.SortNewest {
		return "mostrecent"
	}
	return "mosthelpful"
}

func (c *Client) countryFor(region string) string {
	if region != "" {
		return strings.ToLower(region)
	}
	return c.region
}

// ReviewsPage returns one page of the customer reviews feed. The feed stops
// at page 10; later pages are reported as empty.
func (c *Client) ReviewsPage(ctx context.Context, req provider.PageRequest) ([]models.Review, error) {
	if req.Page < 1 {
		return nil, fmt.Errorf("invalid page %d (pages start at 1)", req.Page)
	}
	if req.Page > MaxPage {
		return []models.Review{}, nil
	}

	country := c.countryFor(req.Region)
	id, err := c.resolveID(ctx, req.AppID, country, req.Throttle)
	if err != nil {
		return nil, err
	}

	if err := c.limits.Wait(ctx, req.Throttle); err != nil {
		return nil, err
	}

	path := fmt.Sprintf("/%s/rss/customerreviews/page=%d/id=%d/sortby=%s/json", country, req.Page, id, sortParam(req.Sort))
	res, err := c.http.R().SetContext(ctx).Get(path)
	if err := provider.CheckResponse(res, err, "reviews feed for "+req.AppID); err != nil {
		return nil, err
	}

	entries, err := parseFeed(res.Body())
	if err != nil {
		return nil, err
	}

	reviews := make([]models.Review, 0, len(entries))
	for _, e := range entries {
		data, err := json.Marshal(normalizeEntry(e))
		if err != nil {
			return nil, fmt.Errorf("failed to encode review: %w", err)
		}
		reviews = append(reviews, data)
	}
	return reviews, nil
}

// parseFeed accepts entry as a list, a single object, or absent
func parseFeed(body []byte) ([]feedEntry, error) {
	var feed feedResponse
	if err := json.Unmarshal(body, &feed); err != nil {
		return nil, errs.New(errs.ErrorTypeParsing, "malformed reviews feed", err)
	}

	raw := strings.TrimSpace(string(feed.Feed.Entry))
	switch {
	case raw == "" || raw == "null":
		return []feedEntry{}, nil
	case strings.HasPrefix(raw, "["):
		var entries []feedEntry
		if err := json.Unmarshal(feed.Feed.Entry, &entries); err != nil {
			return nil, errs.New(errs.ErrorTypeParsing, "malformed feed entries", err)
		}
		return entries, nil
	default:
		var entry feedEntry
		if err := json.Unmarshal(feed.Feed.Entry, &entry); err != nil {
			return nil, errs.New(errs.ErrorTypeParsing, "malformed feed entry", err)
		}
		return []feedEntry{entry}, nil
	}
}

func normalizeEntry(e feedEntry) Review {
	score, _ := strconv.Atoi(e.Rating.Label)
	voteSum, _ := strconv.Atoi(e.VoteSum.Label)
	voteCount, _ := strconv.Atoi(e.VoteCount.Label)
	return Review{
		ID:        e.ID.Label,
		UserName:  e.Author.Name.Label,
		UserURL:   e.Author.URI.Label,
		Version:   e.Version.Label,
		Score:     score,
		Title:     e.Title.Label,
		Text:      e.Content.Label,
		URL:       e.Link.Attributes.Href,
		Updated:   e.Updated.Label,
		VoteSum:   voteSum,
		VoteCount: voteCount,
	}
}

// AppMetadata returns the raw lookup record of an app
func (c *Client) AppMetadata(ctx context.Context, appID string) (json.RawMessage, error) {
	result, err := c.lookup(ctx, appID, c.region, 1)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// resolveID maps a bundle id to its numeric track id. Numeric ids are used
// as they are.
func (c *Client) resolveID(ctx context.Context, appID, country string, throttle int) (int64, error) {
	if numericID.MatchString(appID) {
		return strconv.ParseInt(appID, 10, 64)
	}

	key := country + "|" + appID
	if id, ok := c.trackID.Get(key); ok {
		return id, nil
	}

	result, err := c.lookup(ctx, appID, country, throttle)
	if err != nil {
		return 0, err
	}

	var app struct {
		TrackID int64 `json:"trackId"`
	}
	if err := json.Unmarshal(result, &app); err != nil || app.TrackID == 0 {
		return 0, errs.New(errs.ErrorTypeParsing, "lookup result has no trackId for "+appID, err)
	}

	c.trackID.Add(key, app.TrackID)
	c.logger.DebugWithFields("Resolved bundle id", map[string]interface{}{
		"app":      appID,
		"track_id": app.TrackID,
	})
	return app.TrackID, nil
}

func (c *Client) lookup(ctx context.Context, appID, country string, throttle int) (json.RawMessage, error) {
	if err := c.limits.Wait(ctx, throttle); err != nil {
		return nil, err
	}

	param := "bundleId"
	if numericID.MatchString(appID) {
		param = "id"
	}

	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			param:     appID,
			"country": country,
		}).
		Get("/lookup")
	if err := provider.CheckResponse(res, err, "lookup for "+appID); err != nil {
		return nil, err
	}

	var lookup lookupResponse
	if err := json.Unmarshal(res.Body(), &lookup); err != nil {
		return nil, errs.New(errs.ErrorTypeParsing, "malformed lookup response", err)
	}
	if len(lookup.Results) == 0 {
		return nil, &errs.Error{Type: errs.ErrorTypeNotFound, Message: "app not found: " + appID, Code: 404}
	}
	return lookup.Results[0], nil
}
