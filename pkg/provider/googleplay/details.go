package googleplay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	errs "storereviews/pkg/errors"
	"storereviews/pkg/provider"
)

// AppDetails is the metadata scraped from an app's store page
type AppDetails struct {
	AppID         string   `json:"appId"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Summary       string   `json:"summary,omitempty"`
	Icon          string   `json:"icon"`
	URL           string   `json:"url"`
	Genre         string   `json:"genre,omitempty"`
	ContentRating string   `json:"contentRating,omitempty"`
	Score         *float64 `json:"score"`
	Ratings       *int     `json:"ratings"`
	Price         float64  `json:"price"`
	Currency      string   `json:"currency,omitempty"`
	Free          bool     `json:"free"`
	Developer     string   `json:"developer,omitempty"`
	DeveloperURL  string   `json:"developerUrl,omitempty"`
}

// flexNumber accepts numbers encoded either as JSON numbers or strings
type flexNumber float64

func (f *flexNumber) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return err
	}
	*f = flexNumber(v)
	return nil
}

type ldOffer struct {
	Price         flexNumber `json:"price"`
	PriceCurrency string     `json:"priceCurrency"`
}

type ldApplication struct {
	Type                string `json:"@type"`
	Name                string `json:"name"`
	URL                 string `json:"url"`
	Description         string `json:"description"`
	Image               string `json:"image"`
	ApplicationCategory string `json:"applicationCategory"`
	ContentRating       string `json:"contentRating"`
	Author              struct {
		Name string `json:"name"`
		URL  string `json:"url"`
	} `json:"author"`
	AggregateRating *struct {
		RatingValue flexNumber `json:"ratingValue"`
		RatingCount flexNumber `json:"ratingCount"`
	} `json:"aggregateRating"`
	Offers json.RawMessage `json:"offers"`
}

// AppMetadata scrapes the details page of an app
func (c *Client) AppMetadata(ctx context.Context, appID string) (json.RawMessage, error) {
	if err := c.wait(ctx, 1); err != nil {
		return nil, err
	}

	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"id": appID,
			"hl": c.language,
			"gl": c.region,
		}).
		Get(detailsPath)
	if err := provider.CheckResponse(res, err, "details request for "+appID); err != nil {
		return nil, err
	}

	details, err := parseDetailsPage(appID, res.Body())
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(details)
	if err != nil {
		return nil, fmt.Errorf("failed to encode details for %s: %w", appID, err)
	}
	return data, nil
}

func parseDetailsPage(appID string, body []byte) (*AppDetails, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, errs.New(errs.ErrorTypeParsing, "failed to parse details page", err)
	}

	details := &AppDetails{
		AppID:   appID,
		Title:   metaContent(doc, "og:title"),
		Summary: metaContent(doc, "og:description"),
		Icon:    metaContent(doc, "og:image"),
		URL:     metaContent(doc, "og:url"),
		Free:    true,
	}

	var app *ldApplication
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var candidate ldApplication
		if err := json.Unmarshal([]byte(s.Text()), &candidate); err != nil {
			return true
		}
		if candidate.Type == "SoftwareApplication" || candidate.Type == "MobileApplication" {
			app = &candidate
			return false
		}
		return true
	})

	if app == nil && details.Title == "" {
		return nil, errs.New(errs.ErrorTypeParsing, "details page has no app data", nil)
	}

	if app != nil {
		applyLinkedData(details, app)
	}

	if details.Title == "" {
		details.Title = strings.TrimSpace(doc.Find("h1").First().Text())
	}
	if details.URL == "" {
		details.URL = DefaultBaseURL + detailsPath + "?id=" + appID
	}

	return details, nil
}

func applyLinkedData(details *AppDetails, app *ldApplication) {
	if app.Name != "" {
		details.Title = app.Name
	}
	if app.URL != "" {
		details.URL = app.URL
	}
	if app.Image != "" {
		details.Icon = app.Image
	}
	details.Description = app.Description
	details.Genre = app.ApplicationCategory
	details.ContentRating = app.ContentRating
	details.Developer = app.Author.Name
	details.DeveloperURL = app.Author.URL

	if app.AggregateRating != nil {
		score := float64(app.AggregateRating.RatingValue)
		ratings := int(app.AggregateRating.RatingCount)
		details.Score = &score
		details.Ratings = &ratings
	}

	if offer, ok := firstOffer(app.Offers); ok {
		details.Price = float64(offer.Price)
		details.Currency = offer.PriceCurrency
		details.Free = offer.Price == 0
	}
}

// firstOffer accepts offers as a single object or a list
func firstOffer(raw json.RawMessage) (ldOffer, bool) {
	if isNull(raw) {
		return ldOffer{}, false
	}
	var list []ldOffer
	if err := json.Unmarshal(raw, &list); err == nil {
		if len(list) == 0 {
			return ldOffer{}, false
		}
		return list[0], true
	}
	var single ldOffer
	if err := json.Unmarshal(raw, &single); err == nil {
		return single, true
	}
	return ldOffer{}, false
}

func metaContent(doc *goquery.Document, property string) string {
	sel := doc.Find(fmt.Sprintf(`meta[property="%s"]`, property))
	if sel.Length() == 0 {
		sel = doc.Find(fmt.Sprintf(`meta[name="%s"]`, property))
	}
	return strings.TrimSpace(sel.First().AttrOr("content", ""))
}
