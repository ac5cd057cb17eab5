// Package news collects commodity headlines from an RSS search feed and
// scores them for supply/demand sentiment.
package news

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/gofeed/rss"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/mandi/internal/common"
	"github.com/ternarybob/mandi/internal/httpclient"
	"github.com/ternarybob/mandi/internal/interfaces"
	"github.com/ternarybob/mandi/internal/models"
	"golang.org/x/sync/errgroup"
)

const (
	sourceName   = "google_news"
	topSignals   = 5
	queryPattern = "{query}"
)

// Service fetches, scores and stores news items
type Service struct {
	client   *httpclient.Client
	config   common.NewsConfig
	keywords []string
	storage  interfaces.NewsStorage
	logger   arbor.ILogger
	now      func() time.Time
}

// NewService creates the news enrichment service
func NewService(config common.NewsConfig, tracking common.TrackingConfig, storage interfaces.NewsStorage, logger arbor.ILogger) *Service {
	return &Service{
		client:   httpclient.NewClient(sourceName, config.Retry, logger, httpclient.WithUserAgent(config.UserAgent)),
		config:   config,
		keywords: tracking.DemandKeywords,
		storage:  storage,
		logger:   logger,
		now:      time.Now,
	}
}

// Fetch downloads and scores the newest items for a commodity
func (s *Service) Fetch(ctx context.Context, commodity string) ([]*models.NewsItem, error) {
	feedURL := strings.ReplaceAll(s.config.FeedURL, queryPattern, url.QueryEscape(commodity))

	body, err := s.client.Get(ctx, feedURL, nil)
	if err != nil {
		return nil, err
	}

	parser := &rss.Parser{}
	feed, err := parser.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse news feed for %s: %w", commodity, err)
	}

	now := s.now()
	var items []*models.NewsItem
	for _, entry := range feed.Items {
		if len(items) >= s.config.MaxItems {
			break
		}
		if entry.Link == "" {
			continue
		}

		published := now
		if entry.PubDateParsed != nil {
			published = *entry.PubDateParsed
		}

		publisher := ""
		if entry.Source != nil {
			publisher = entry.Source.Title
		}

		sentiment, signals := Analyze(entry.Title, s.keywords)
		items = append(items, &models.NewsItem{
			URL:           entry.Link,
			Commodity:     commodity,
			Headline:      entry.Title,
			Publisher:     publisher,
			PublishedAt:   published,
			FetchedAt:     now,
			Sentiment:     sentiment,
			DemandSignals: signals,
		})
	}

	return items, nil
}

// Run collects news for each commodity on a bounded pool and returns how
// many new items were stored. Items whose URL is already stored are skipped.
func (s *Service) Run(ctx context.Context, commodities []string) (int, error) {
	if len(commodities) == 0 {
		return 0, nil
	}

	var (
		mu       sync.Mutex
		inserted int
		failed   int
		lastErr  error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, s.config.Concurrency))

	for _, commodity := range commodities {
		g.Go(func() error {
			n, err := s.collect(gctx, commodity)

			mu.Lock()
			defer mu.Unlock()
			inserted += n
			if err != nil {
				failed++
				lastErr = err
				s.logger.Warn().Err(err).Str("commodity", commodity).Msg("News fetch failed")
			}
			return nil
		})
	}
	g.Wait()

	s.logger.Info().Int("commodities", len(commodities)).Int("inserted", inserted).Msg("News enrichment complete")

	if failed == len(commodities) {
		return 0, lastErr
	}
	return inserted, nil
}

func (s *Service) collect(ctx context.Context, commodity string) (int, error) {
	items, err := s.Fetch(ctx, commodity)
	if err != nil {
		return 0, err
	}

	inserted := 0
	for _, item := range items {
		ok, err := s.storage.InsertIfAbsent(ctx, item)
		if err != nil {
			return inserted, err
		}
		if ok {
			inserted++
		}
	}
	return inserted, nil
}

// DemandSummary reports sentiment and top signals over the configured window
func (s *Service) DemandSummary(ctx context.Context, commodity string) (*models.DemandSummary, error) {
	days := s.config.SummaryDays
	if days <= 0 {
		days = 7
	}
	cutoff := s.now().AddDate(0, 0, -days)

	items, err := s.storage.ByCommoditySince(ctx, commodity, cutoff)
	if err != nil {
		return nil, err
	}
	return Summarize(commodity, items, topSignals), nil
}

var _ interfaces.NewsEnricher = (*Service)(nil)
