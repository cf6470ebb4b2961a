package appstore

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	errs "storereviews/pkg/errors"
	"storereviews/pkg/logger"
	"storereviews/pkg/provider"
)

const testBaseURL = "http://itunes.test"

func newTestClient(t *testing.T) *Client {
	t.Helper()
	c, err := New(Options{
		ClientOptions: provider.ClientOptions{
			BaseURL: testBaseURL,
			Timeout: 5 * time.Second,
			Logger:  logger.NewNopLogger(),
		},
		Region: "gb",
	})
	require.NoError(t, err)

	httpmock.ActivateNonDefault(c.http.GetClient())
	t.Cleanup(httpmock.DeactivateAndReset)
	return c
}

func entryJSON(id, rating string) string {
	return fmt.Sprintf(`{
		"author": {"uri": {"label": "https://itunes.test/user"}, "name": {"label": "user-%[1]s"}},
		"im:version": {"label": "3.1"},
		"im:rating": {"label": "%[2]s"},
		"id": {"label": "%[1]s"},
		"title": {"label": "Title %[1]s"},
		"content": {"label": "Body %[1]s", "attributes": {"type": "text"}},
		"link": {"attributes": {"rel": "related", "href": "https://itunes.test/review/%[1]s"}},
		"im:voteSum": {"label": "4"},
		"im:voteCount": {"label": "6"},
		"updated": {"label": "2019-03-01T10:00:00-07:00"}
	}`, id, rating)
}

const lookupBody = `{"resultCount":1,"results":[{"trackId":553834731,"bundleId":"com.example.app","trackName":"Example"}]}`

func TestReviewsPageResolvesBundleID(t *testing.T) {
	c := newTestClient(t)

	lookups := 0
	httpmock.RegisterResponder("GET", "=~^"+testBaseURL+"/lookup",
		func(req *http.Request) (*http.Response, error) {
			lookups++
			assert.Equal(t, "com.example.app", req.URL.Query().Get("bundleId"))
			assert.Equal(t, "gb", req.URL.Query().Get("country"))
			return httpmock.NewStringResponse(http.StatusOK, lookupBody), nil
		})
	httpmock.RegisterResponder("GET", testBaseURL+"/gb/rss/customerreviews/page=1/id=553834731/sortby=mosthelpful/json",
		httpmock.NewStringResponder(http.StatusOK, `{"feed":{"entry":[`+entryJSON("1", "5")+`,`+entryJSON("2", "2")+`]}}`))
	httpmock.RegisterResponder("GET", testBaseURL+"/gb/rss/customerreviews/page=2/id=553834731/sortby=mosthelpful/json",
		httpmock.NewStringResponder(http.StatusOK, `{"feed":{"entry":`+entryJSON("3", "4")+`}}`))

	ctx := context.Background()
	req := provider.PageRequest{AppID: "com.example.app", Page: 1, Sort: provider.SortHelpfulness, Region: "gb"}

	first, err := c.ReviewsPage(ctx, req)
	require.NoError(t, err)
	require.Len(t, first, 2)

	var r Review
	require.NoError(t, json.Unmarshal(first[0], &r))
	assert.Equal(t, Review{
		ID:        "1",
		UserName:  "user-1",
		UserURL:   "https://itunes.test/user",
		Version:   "3.1",
		Score:     5,
		Title:     "Title 1",
		Text:      "Body 1",
		URL:       "https://itunes.test/review/1",
		Updated:   "2019-03-01T10:00:00-07:00",
		VoteSum:   4,
		VoteCount: 6,
	}, r)

	req.Page = 2
	second, err := c.ReviewsPage(ctx, req)
	require.NoError(t, err)
	require.Len(t, second, 1, "a single entry object is one review")

	assert.Equal(t, 1, lookups, "bundle id is resolved once")
}

func TestReviewsPageNumericIDAndNewest(t *testing.T) {
	c := newTestClient(t)
	httpmock.RegisterResponder("GET", testBaseURL+"/us/rss/customerreviews/page=3/id=42/sortby=mostrecent/json",
		httpmock.NewStringResponder(http.StatusOK, `{"feed":{"author":{"name":{"label":"iTunes Store"}}}}`))

	reviews, err := c.ReviewsPage(context.Background(), provider.PageRequest{AppID: "42", Page: 3, Sort: provider.SortNewest, Region: "US"})
	require.NoError(t, err)
	assert.NotNil(t, reviews)
	assert.Empty(t, reviews)
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestReviewsPageBeyondFeed(t *testing.T) {
	c := newTestClient(t)

	reviews, err := c.ReviewsPage(context.Background(), provider.PageRequest{AppID: "42", Page: MaxPage + 1})
	require.NoError(t, err)
	assert.Empty(t, reviews)
	assert.Equal(t, 0, httpmock.GetTotalCallCount())

	_, err = c.ReviewsPage(context.Background(), provider.PageRequest{AppID: "42", Page: 0})
	assert.Error(t, err)
}

func TestReviewsPageUnknownBundle(t *testing.T) {
	c := newTestClient(t)
	httpmock.RegisterResponder("GET", "=~^"+testBaseURL+"/lookup",
		httpmock.NewStringResponder(http.StatusOK, `{"resultCount":0,"results":[]}`))

	_, err := c.ReviewsPage(context.Background(), provider.PageRequest{AppID: "com.example.missing", Page: 1})
	require.Error(t, err)
	assert.Equal(t, errs.ErrorTypeNotFound, errs.Classify(err))
}

func TestReviewsPageErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		expected errs.ErrorType
	}{
		{"rate limited", http.StatusTooManyRequests, "", errs.ErrorTypeRateLimit},
		{"forbidden", http.StatusForbidden, "", errs.ErrorTypeAuth},
		{"bad gateway", http.StatusBadGateway, "", errs.ErrorTypeServerError},
		{"malformed", http.StatusOK, `{"feed":`, errs.ErrorTypeParsing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t)
			httpmock.RegisterResponder("GET", "=~/rss/customerreviews/",
				httpmock.NewStringResponder(tt.status, tt.body))

			reviews, err := c.ReviewsPage(context.Background(), provider.PageRequest{AppID: "42", Page: 1})
			require.Error(t, err)
			assert.Empty(t, reviews)
			assert.Equal(t, tt.expected, errs.Classify(err))
		})
	}
}

func TestAppMetadata(t *testing.T) {
	c := newTestClient(t)
	httpmock.RegisterResponder("GET", "=~^"+testBaseURL+"/lookup",
		httpmock.NewStringResponder(http.StatusOK, lookupBody))

	raw, err := c.AppMetadata(context.Background(), "com.example.app")
	require.NoError(t, err)
	assert.JSONEq(t, `{"trackId":553834731,"bundleId":"com.example.app","trackName":"Example"}`, string(raw))
}

func TestParseFeedVariants(t *testing.T) {
	entries, err := parseFeed([]byte(`{"feed":{"entry":null}}`))
	require.NoError(t, err)
	assert.Empty(t, entries)

	entries, err = parseFeed([]byte(`{"feed":{"entry":[]}}`))
	require.NoError(t, err)
	assert.Empty(t, entries)

	_, err = parseFeed([]byte(`{"feed":{"entry":"text"}}`))
	assert.Error(t, err)
}

func TestName(t *testing.T) {
	c := newTestClient(t)
	assert.Equal(t, "appstore", c.Name())
	assert.Equal(t, 1, c.FirstPage())
}
