package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"storereviews/pkg/checkpoint"
	"storereviews/pkg/config"
	"storereviews/pkg/logger"
	"storereviews/pkg/models"
)

// mockAppStore serves the lookup service and a three page reviews feed.
// The first request for page 2 fails with 503.
type mockAppStore struct {
	mu     sync.Mutex
	hits   map[string]int
	server *httptest.Server
}

func newMockAppStore(t *testing.T) *mockAppStore {
	m := &mockAppStore{hits: make(map[string]int)}

	mux := http.NewServeMux()
	mux.HandleFunc("/lookup", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("id") == "123" {
			fmt.Fprint(w, `{"resultCount":1,"results":[{"trackId":123,"trackName":"Demo","averageUserRating":4.5}]}`)
			return
		}
		fmt.Fprint(w, `{"resultCount":0,"results":[]}`)
	})
	mux.HandleFunc("/gb/rss/customerreviews/", func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		m.hits[r.URL.Path]++
		n := m.hits[r.URL.Path]
		m.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/gb/rss/customerreviews/page=1/id=123/sortby=mosthelpful/json":
			fmt.Fprint(w, `{"feed":{"entry":[`+entry("r1", "5")+`,`+entry("r2", "3")+`]}}`)
		case "/gb/rss/customerreviews/page=2/id=123/sortby=mosthelpful/json":
			if n == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			fmt.Fprint(w, `{"feed":{"entry":`+entry("r3", "1")+`}}`)
		default:
			fmt.Fprint(w, `{"feed":{}}`)
		}
	})

	m.server = httptest.NewServer(mux)
	t.Cleanup(m.server.Close)
	return m
}

func entry(id, rating string) string {
	return fmt.Sprintf(`{"id":{"label":%q},"author":{"name":{"label":"user-%s"}},"im:rating":{"label":%q},"title":{"label":"t"},"content":{"label":"c"}}`, id, id, rating)
}

func testConfig(t *testing.T, baseURL string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Store.Name = config.StoreAppStore
	cfg.Store.BaseURL = baseURL
	cfg.Store.Throttle = 0
	cfg.Scrape.PauseDuration = time.Millisecond
	cfg.Scrape.MaxPause = time.Millisecond
	cfg.Scrape.MetadataDelay = time.Millisecond
	cfg.Output.Directory = t.TempDir()
	cfg.Output.MetricsFile = filepath.Join(cfg.Output.Directory, "run.prom")
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestReviewRunEndToEnd(t *testing.T) {
	srv := newMockAppStore(t)
	cfg := testConfig(t, srv.server.URL)
	log := logger.NewNopLogger()

	p, err := NewProvider(cfg, log)
	require.NoError(t, err)
	run, err := NewReviews(cfg, p, false, false, log)
	require.NoError(t, err)

	summaries, err := run.Scraper.ScrapeAll(context.Background(), []string{"123"})
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, 3, summaries[0].NumberOfReviews)
	assert.Equal(t, 2, summaries[0].NumberOfPages)

	var file models.AppReviewsFile
	require.NoError(t, run.Store.ReadJSON("123", &file))
	require.Len(t, file.Reviews, 3)

	var third struct {
		ID       string `json:"id"`
		UserName string `json:"userName"`
		Score    int    `json:"score"`
	}
	require.NoError(t, json.Unmarshal(file.Reviews[2], &third))
	assert.Equal(t, "r3", third.ID)
	assert.Equal(t, "user-r3", third.UserName)
	assert.Equal(t, 1, third.Score)

	assert.FileExists(t, run.Store.Path("all_reviews"))
	assert.NoFileExists(t, run.Store.Path(checkpoint.FileName))

	assert.Equal(t, float64(1), testutil.ToFloat64(run.Metrics.FetchErrors.WithLabelValues("server_error")))
	assert.Equal(t, float64(1), testutil.ToFloat64(run.Metrics.Pauses))

	require.NoError(t, run.Metrics.WriteTextfile(cfg.Output.MetricsFile))
	data, err := os.ReadFile(cfg.Output.MetricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "storereviews_reviews_total 3")
}

func TestMetadataRunEndToEnd(t *testing.T) {
	srv := newMockAppStore(t)
	cfg := testConfig(t, srv.server.URL)
	log := logger.NewNopLogger()

	p, err := NewProvider(cfg, log)
	require.NoError(t, err)
	run, err := NewMetadata(cfg, p, log)
	require.NoError(t, err)

	records, err := run.Scraper.ScrapeAll(context.Background(), []string{"123", "999"})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.JSONEq(t, `{"trackId":123,"trackName":"Demo","averageUserRating":4.5}`, string(records[0].Results))
	assert.Nil(t, records[1].Results)

	assert.FileExists(t, run.Store.Path("appstore_app_meta_data"))
}
