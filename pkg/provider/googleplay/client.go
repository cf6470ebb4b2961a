package googleplay

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	"storereviews/pkg/logger"
	"storereviews/pkg/provider"
	"storereviews/pkg/ratelimit"
)

const (
	// DefaultBaseURL is the public Google Play web front
	DefaultBaseURL = "https://play.google.com"

	// DefaultPageSize is the number of reviews requested per page
	DefaultPageSize = 40

	tokenCacheSize = 4096
)

// Options configures a Client
type Options struct {
	provider.ClientOptions
	PageSize int
	Region   string
	Language string
}

// Client talks to Google Play
type Client struct {
	http     *resty.Client
	pageSize int
	region   string
	language string
	tokens   *lru.Cache[string, pageToken]
	limits   *ratelimit.Registry
	logger   logger.Logger
}

// pageToken is the continuation token needed to request a page. Done marks
// pages past the end of the review list.
type pageToken struct {
	token string
	done  bool
}

// New creates a Google Play client
func New(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.Region == "" {
		opts.Region = "us"
	}
	if opts.Language == "" {
		opts.Language = "en"
	}
	if opts.Logger == nil {
		opts.Logger = logger.GetLogger()
	}

	tokens, err := lru.New[string, pageToken](tokenCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create token cache: %w", err)
	}

	httpClient := provider.NewRestyClient(provider.ClientOptions{
		BaseURL:   strings.TrimSuffix(opts.BaseURL, "/"),
		UserAgent: opts.UserAgent,
		Timeout:   opts.Timeout,
		Logger:    opts.Logger,
	})

	return &Client{
		http:     httpClient,
		pageSize: opts.PageSize,
		region:   opts.Region,
		language: opts.Language,
		tokens:   tokens,
		limits:   ratelimit.NewRegistry(),
		logger:   opts.Logger.WithField("provider", "play"),
	}, nil
}

// Name returns the store name
func (c *Client) Name() string {
	return "play"
}

// FirstPage returns 0, Google Play pages are zero based
func (c *Client) FirstPage() int {
	return 0
}

func (c *Client) wait(ctx context.Context, throttle int) error {
	return c.limits.Wait(ctx, throttle)
}
