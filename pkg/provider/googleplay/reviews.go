package googleplay

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	errs "storereviews/pkg/errors"
	"storereviews/pkg/models"
	"storereviews/pkg/provider"
)

const (
	reviewsRPC  = "UsvDTd"
	xssiPrefix  = ")]}'"
	batchPath   = "/_/PlayStoreUi/data/batchexecute"
	detailsPath = "/store/apps/details"
)

// Review is the normalized form of a Google Play review
type Review struct {
	ID        string     `json:"id"`
	UserName  string     `json:"userName"`
	UserImage string     `json:"userImage"`
	Date      *time.Time `json:"date"`
	Score     int        `json:"score"`
	ScoreText string     `json:"scoreText"`
	URL       string     `json:"url"`
	Text      string     `json:"text"`
	ReplyDate *time.Time `json:"replyDate"`
	ReplyText *string    `json:"replyText"`
	Version   *string    `json:"version"`
	ThumbsUp  int        `json:"thumbsUp"`
}

func sortCode(s provider.SortMode) int {
	switch s {
	case provider.SortNewest:
		return 2
	case provider.SortRating:
		return 3
	default:
		return 1
	}
}

func (c *Client) cacheKey(req provider.PageRequest, page int) string {
	return fmt.Sprintf("%s|%s|%s|%s|%d", req.AppID, req.Sort, c.regionFor(req), c.languageFor(req), page)
}

func (c *Client) regionFor(req provider.PageRequest) string {
	if req.Region != "" {
		return req.Region
	}
	return c.region
}

func (c *Client) languageFor(req provider.PageRequest) string {
	if req.Language != "" {
		return req.Language
	}
	return c.language
}

// ReviewsPage returns one page of reviews. Pages after the first are reached
// with the continuation token returned for the previous page; missing tokens
// are rebuilt by walking forward from the first page.
func (c *Client) ReviewsPage(ctx context.Context, req provider.PageRequest) ([]models.Review, error) {
	if req.Page < 0 {
		return nil, fmt.Errorf("invalid page %d", req.Page)
	}

	token, err := c.tokenFor(ctx, req)
	if err != nil {
		return nil, err
	}
	if token.done {
		return []models.Review{}, nil
	}

	reviews, _, err := c.fetchPage(ctx, req, req.Page, token.token)
	return reviews, err
}

func (c *Client) tokenFor(ctx context.Context, req provider.PageRequest) (pageToken, error) {
	if req.Page == 0 {
		return pageToken{}, nil
	}
	if tok, ok := c.tokens.Get(c.cacheKey(req, req.Page)); ok {
		return tok, nil
	}

	c.logger.DebugWithFields("Continuation token missing, walking pages", map[string]interface{}{
		"app":  req.AppID,
		"page": req.Page,
	})

	current := pageToken{}
	for p := 0; p < req.Page; p++ {
		if tok, ok := c.tokens.Get(c.cacheKey(req, p+1)); ok {
			current = tok
			continue
		}
		if current.done {
			return current, nil
		}
		_, next, err := c.fetchPage(ctx, req, p, current.token)
		if err != nil {
			return pageToken{}, err
		}
		current = next
	}
	return current, nil
}

// fetchPage requests page p using token and caches the token for page p+1
func (c *Client) fetchPage(ctx context.Context, req provider.PageRequest, p int, token string) ([]models.Review, pageToken, error) {
	if err := c.wait(ctx, req.Throttle); err != nil {
		return nil, pageToken{}, err
	}

	body, err := c.buildRequest(req.AppID, sortCode(req.Sort), token)
	if err != nil {
		return nil, pageToken{}, err
	}

	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"rpcids": reviewsRPC,
			"hl":     c.languageFor(req),
			"gl":     c.regionFor(req),
		}).
		SetFormData(map[string]string{"f.req": body}).
		Post(batchPath)
	if err := provider.CheckResponse(res, err, "reviews request for "+req.AppID); err != nil {
		return nil, pageToken{}, err
	}

	raw, next, err := parseReviewsResponse(res.Body())
	if err != nil {
		return nil, pageToken{}, err
	}

	reviews := make([]models.Review, 0, len(raw))
	for _, r := range raw {
		review, err := normalizeReview(req.AppID, r)
		if err != nil {
			return nil, pageToken{}, err
		}
		reviews = append(reviews, review)
	}

	nextToken := pageToken{token: next, done: next == ""}
	c.tokens.Add(c.cacheKey(req, p+1), nextToken)

	return reviews, nextToken, nil
}

func (c *Client) buildRequest(appID string, sort int, token string) (string, error) {
	var tok interface{}
	if token != "" {
		tok = token
	}

	inner, err := json.Marshal([]interface{}{
		nil,
		nil,
		[]interface{}{2, sort, []interface{}{c.pageSize, nil, tok}, nil, []interface{}{}},
		[]interface{}{appID, 7},
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	outer, err := json.Marshal([]interface{}{
		[]interface{}{
			[]interface{}{reviewsRPC, string(inner), nil, "generic"},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}
	return string(outer), nil
}

// parseReviewsResponse extracts the raw review arrays and the next page token
// from a batchexecute response
func parseReviewsResponse(body []byte) ([]json.RawMessage, string, error) {
	text := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(string(body)), xssiPrefix))

	var envelope [][]json.RawMessage
	if err := json.Unmarshal([]byte(text), &envelope); err != nil {
		return nil, "", errs.New(errs.ErrorTypeParsing, "malformed batchexecute response", err)
	}
	if len(envelope) == 0 || len(envelope[0]) < 3 {
		return nil, "", errs.New(errs.ErrorTypeParsing, "unexpected batchexecute envelope", nil)
	}

	var payloadText *string
	if err := json.Unmarshal(envelope[0][2], &payloadText); err != nil {
		return nil, "", errs.New(errs.ErrorTypeParsing, "unexpected batchexecute payload", err)
	}
	if payloadText == nil {
		return []json.RawMessage{}, "", nil
	}

	var payload []json.RawMessage
	if err := json.Unmarshal([]byte(*payloadText), &payload); err != nil {
		return nil, "", errs.New(errs.ErrorTypeParsing, "malformed reviews payload", err)
	}

	var reviews []json.RawMessage
	if len(payload) > 0 && !isNull(payload[0]) {
		if err := json.Unmarshal(payload[0], &reviews); err != nil {
			return nil, "", errs.New(errs.ErrorTypeParsing, "malformed reviews list", err)
		}
	}
	if reviews == nil {
		reviews = []json.RawMessage{}
	}

	var next string
	if len(payload) > 1 {
		next = stringAt(payload[1], 1)
	}
	if len(reviews) == 0 {
		next = ""
	}

	return reviews, next, nil
}

func normalizeReview(appID string, raw json.RawMessage) (models.Review, error) {
	id := stringAt(raw, 0)
	score := intAt(raw, 2)

	review := Review{
		ID:        id,
		UserName:  stringAt(raw, 1, 0),
		UserImage: stringAt(raw, 1, 1, 3, 2),
		Date:      timeAt(raw, 5, 0),
		Score:     score,
		ScoreText: fmt.Sprintf("%d", score),
		URL:       reviewURL(appID, id),
		Text:      stringAt(raw, 4),
		ReplyDate: timeAt(raw, 7, 2, 0),
		ReplyText: optionalStringAt(raw, 7, 1),
		Version:   optionalStringAt(raw, 10),
		ThumbsUp:  intAt(raw, 6),
	}

	data, err := json.Marshal(review)
	if err != nil {
		return nil, fmt.Errorf("failed to encode review %s: %w", id, err)
	}
	return models.Review(data), nil
}

func reviewURL(appID, reviewID string) string {
	q := url.Values{}
	q.Set("id", appID)
	q.Set("reviewId", reviewID)
	return DefaultBaseURL + detailsPath + "?" + q.Encode()
}
