package provider

import (
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	errs "storereviews/pkg/errors"
	"storereviews/pkg/logger"
)

// ClientOptions configures the HTTP client shared by the store adapters
type ClientOptions struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
	Logger    logger.Logger
}

// NewRestyClient builds a resty client with the base URL, user agent and
// timeout applied, logging every completed round trip
func NewRestyClient(opts ClientOptions) *resty.Client {
	log := opts.Logger
	if log == nil {
		log = logger.GetLogger()
	}

	client := resty.New().
		SetBaseURL(opts.BaseURL).
		SetHeader("Accept-Language", "en").
		SetRetryCount(0)

	if opts.UserAgent != "" {
		client.SetHeader("User-Agent", opts.UserAgent)
	}
	if opts.Timeout > 0 {
		client.SetTimeout(opts.Timeout)
	}

	client.OnAfterResponse(func(_ *resty.Client, res *resty.Response) error {
		logger.LogRequest(log, res.Request.Method, res.Request.URL, res.StatusCode(), res.Time())
		return nil
	})

	return client
}

// CheckResponse turns a resty result into a typed error. Transport failures
// become network errors and non 2xx statuses are mapped by status code.
func CheckResponse(res *resty.Response, err error, what string) error {
	if err != nil {
		return errs.New(errs.ErrorTypeNetwork, what, err)
	}
	if res.IsError() || res.StatusCode() >= 300 {
		return errs.FromStatus(res.StatusCode(), fmt.Sprintf("%s: %s", what, res.Status()))
	}
	return nil
}
