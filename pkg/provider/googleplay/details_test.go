package googleplay

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	errs "storereviews/pkg/errors"
)

const detailsHTML = `<!doctype html>
<html><head>
<meta property="og:title" content="Focus Timer - Apps on Google Play">
<meta property="og:description" content="Stay focused.">
<meta property="og:image" content="https://img.test/icon.png">
<meta property="og:url" content="https://play.google.com/store/apps/details?id=com.example.app">
<script type="application/ld+json">{"@context":"https://schema.org","@type":"BreadcrumbList"}</script>
<script type="application/ld+json">{
  "@context": "https://schema.org",
  "@type": "SoftwareApplication",
  "name": "Focus Timer",
  "url": "https://play.google.com/store/apps/details?id=com.example.app",
  "description": "A timer that keeps you off your phone.",
  "image": "https://img.test/icon-512.png",
  "applicationCategory": "PRODUCTIVITY",
  "contentRating": "Everyone",
  "author": {"@type": "Person", "name": "Example Labs", "url": "https://example.test"},
  "aggregateRating": {"@type": "AggregateRating", "ratingValue": "4.3", "ratingCount": "1,204"},
  "offers": [{"@type": "Offer", "price": 0, "priceCurrency": "GBP"}]
}</script>
</head><body><h1>Focus Timer</h1></body></html>`

func TestAppMetadata(t *testing.T) {
	c := newTestClient(t)
	httpmock.RegisterResponder("GET", "=~^"+testBaseURL+detailsPath,
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "com.example.app", req.URL.Query().Get("id"))
			assert.Equal(t, "gb", req.URL.Query().Get("gl"))
			return httpmock.NewStringResponse(http.StatusOK, detailsHTML), nil
		})

	raw, err := c.AppMetadata(context.Background(), "com.example.app")
	require.NoError(t, err)

	var details AppDetails
	require.NoError(t, json.Unmarshal(raw, &details))
	assert.Equal(t, "com.example.app", details.AppID)
	assert.Equal(t, "Focus Timer", details.Title)
	assert.Equal(t, "Stay focused.", details.Summary)
	assert.Equal(t, "A timer that keeps you off your phone.", details.Description)
	assert.Equal(t, "https://img.test/icon-512.png", details.Icon)
	assert.Equal(t, "PRODUCTIVITY", details.Genre)
	assert.Equal(t, "Example Labs", details.Developer)
	require.NotNil(t, details.Score)
	assert.InDelta(t, 4.3, *details.Score, 0.001)
	require.NotNil(t, details.Ratings)
	assert.Equal(t, 1204, *details.Ratings)
	assert.True(t, details.Free)
	assert.Equal(t, "GBP", details.Currency)
}

func TestAppMetadataMetaTagsOnly(t *testing.T) {
	details, err := parseDetailsPage("com.example.app", []byte(`<html><head>
<meta property="og:title" content="Only Meta"></head></html>`))
	require.NoError(t, err)
	assert.Equal(t, "Only Meta", details.Title)
	assert.Nil(t, details.Score)
	assert.Contains(t, details.URL, "id=com.example.app")
}

func TestAppMetadataEmptyPage(t *testing.T) {
	_, err := parseDetailsPage("com.example.app", []byte(`<html><body></body></html>`))
	require.Error(t, err)
	assert.Equal(t, errs.ErrorTypeParsing, errs.Classify(err))
}

func TestAppMetadataNotFound(t *testing.T) {
	c := newTestClient(t)
	httpmock.RegisterResponder("GET", "=~^"+testBaseURL+detailsPath,
		httpmock.NewStringResponder(http.StatusNotFound, "gone"))

	_, err := c.AppMetadata(context.Background(), "com.example.missing")
	require.Error(t, err)
	assert.Equal(t, errs.ErrorTypeNotFound, errs.Classify(err))
}

func TestFirstOffer(t *testing.T) {
	offer, ok := firstOffer(json.RawMessage(`{"price":"1.99","priceCurrency":"USD"}`))
	require.True(t, ok)
	assert.InDelta(t, 1.99, float64(offer.Price), 0.0001)

	_, ok = firstOffer(json.RawMessage(`[]`))
	assert.False(t, ok)
	_, ok = firstOffer(nil)
	assert.False(t, ok)
}
