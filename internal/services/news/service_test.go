package news

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/mandi/internal/common"
	"github.com/ternarybob/mandi/internal/interfaces"
	"github.com/ternarybob/mandi/internal/models"
	"github.com/ternarybob/mandi/internal/storage/badger"
)

func feed(items ...string) string {
	body := ""
	for _, item := range items {
		body += item
	}
	return `<?xml version="1.0" encoding="UTF-8"?><rss version="2.0"><channel><title>News</title>` + body + `</channel></rss>`
}

func item(title, link string) string {
	return fmt.Sprintf(`<item><title>%s</title><link>%s</link><pubDate>Mon, 01 Jul 2024 08:00:00 GMT</pubDate><source url="https://example.com">Example Times</source></item>`, title, link)
}

func newTestService(t *testing.T, feedURL string) (*Service, interfaces.StorageManager) {
	t.Helper()
	manager, err := badger.NewManager(arbor.NewLogger(), &common.BadgerConfig{Path: filepath.Join(t.TempDir(), "db")})
	require.NoError(t, err)
	t.Cleanup(func() { manager.Close() })

	config := common.NewsConfig{
		FeedURL:     feedURL,
		UserAgent:   "Mozilla/5.0",
		MaxItems:    10,
		SummaryDays: 7,
		Concurrency: 2,
		Retry:       common.RetryConfig{MaxRetries: 1, RequestTimeout: time.Second},
	}
	service := NewService(config, common.TrackingConfig{}, manager.NewsStorage(), arbor.NewLogger())
	service.now = func() time.Time { return time.Date(2024, time.July, 3, 0, 0, 0, 0, time.UTC) }
	return service, manager
}

func TestAnalyze(t *testing.T) {
	sentiment, signals := Analyze("Onion shortage and crop damage push prices", nil)
	assert.Equal(t, models.SentimentBearish, sentiment)
	assert.ElementsMatch(t, []string{"shortage", "crop damage"}, signals)

	sentiment, signals = Analyze("Bumper crop lifts export outlook", nil)
	assert.Equal(t, models.SentimentBullish, sentiment)
	assert.ElementsMatch(t, []string{"bumper crop", "export"}, signals)

	sentiment, signals = Analyze("Mandi arrivals steady", []string{"arrivals"})
	assert.Equal(t, models.SentimentNeutral, sentiment)
	assert.Equal(t, []string{"arrivals"}, signals)
}

func TestSummarize(t *testing.T) {
	items := []*models.NewsItem{
		{Sentiment: models.SentimentBearish, DemandSignals: []string{"shortage", "inflation"}},
		{Sentiment: models.SentimentBearish, DemandSignals: []string{"shortage"}},
		{Sentiment: models.SentimentBullish, DemandSignals: []string{"export"}},
	}

	summary := Summarize("Onion", items, 2)
	assert.Equal(t, models.SentimentBearish, summary.OverallSentiment)
	assert.Equal(t, 3, summary.NewsCount)
	assert.Equal(t, []string{"shortage", "export"}, summary.TopSignals)
	assert.Equal(t, 2, summary.SentimentBreakdown[models.SentimentBearish])
}

func TestService_DuplicateURLKeepsFirst(t *testing.T) {
	fetches := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches++
		assert.Equal(t, "Onion price india", r.URL.Query().Get("q"))
		headline := "Onion export demand rises"
		if fetches > 1 {
			headline = "Onion export demand rises sharply"
		}
		w.Write([]byte(feed(item(headline, "https://example.com/onion-1"))))
	}))
	defer server.Close()

	service, manager := newTestService(t, server.URL+"/rss/search?q={query}+price+india")
	ctx := context.Background()

	inserted, err := service.Run(ctx, []string{"Onion"})
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)

	inserted, err = service.Run(ctx, []string{"Onion"})
	require.NoError(t, err)
	assert.Zero(t, inserted)

	count, err := manager.NewsStorage().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	stored, err := manager.NewsStorage().ByCommoditySince(ctx, "Onion", time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "Onion export demand rises", stored[0].Headline)
	assert.Equal(t, "Example Times", stored[0].Publisher)
	assert.Equal(t, models.SentimentBullish, stored[0].Sentiment)
}

func TestService_MaxItemsAndSummary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(feed(
			item("Tomato shortage in north", "https://example.com/t1"),
			item("Tomato crop damage after rains", "https://example.com/t2"),
			item("Tomato good harvest in south", "https://example.com/t3"),
		)))
	}))
	defer server.Close()

	service, _ := newTestService(t, server.URL+"?q={query}")
	service.config.MaxItems = 2
	ctx := context.Background()

	inserted, err := service.Run(ctx, []string{"Tomato"})
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)

	summary, err := service.DemandSummary(ctx, "Tomato")
	require.NoError(t, err)
	assert.Equal(t, 2, summary.NewsCount)
	assert.Equal(t, models.SentimentBearish, summary.OverallSentiment)
}

func TestService_FeedFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	service, _ := newTestService(t, server.URL+"?q={query}")
	inserted, err := service.Run(context.Background(), []string{"Tomato"})
	assert.Zero(t, inserted)
	assert.Error(t, err)
}
