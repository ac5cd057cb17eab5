// Package web scrapes the eNAM trade-data page as the backup price source.
package web

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/mandi/internal/common"
	"github.com/ternarybob/mandi/internal/httpclient"
	"github.com/ternarybob/mandi/internal/interfaces"
	"github.com/ternarybob/mandi/internal/models"
	"github.com/ternarybob/mandi/internal/sources"
)

const (
	sourceName   = "web_backup"
	qualityScore = 7
	minCells     = 5

	// UnknownState is recorded when no known state name appears in the market text
	UnknownState = "Unknown"
)

// Source is the backup price adapter. It is slower and less reliable than
// the official API, so the pipeline only calls it when the API falls short.
type Source struct {
	client      *httpclient.Client
	config      common.WebSourceConfig
	knownStates []string
	priority    []string
	storage     interfaces.PriceStorage
	logger      arbor.ILogger
	now         func() time.Time
}

// NewSource creates the web backup adapter
func NewSource(config common.WebSourceConfig, tracking common.TrackingConfig, storage interfaces.PriceStorage, logger arbor.ILogger) *Source {
	return &Source{
		client:      httpclient.NewClient(sourceName, config.Retry, logger, httpclient.WithUserAgent(config.UserAgent)),
		config:      config,
		knownStates: tracking.KnownStates,
		priority:    tracking.PriorityStates,
		storage:     storage,
		logger:      logger,
		now:         time.Now,
	}
}

func (s *Source) Name() string {
	return sourceName
}

// Fetch downloads the trade-data page and extracts rows for the commodity
func (s *Source) Fetch(ctx context.Context, commodity string) ([]*models.PriceRecord, error) {
	body, err := s.client.Get(ctx, s.config.URL, nil)
	if err != nil {
		return nil, err
	}
	return s.Parse(body, commodity)
}

// Parse extracts price rows from an HTML document. A page with no matching
// rows is an empty result, not an error.
func (s *Source) Parse(body []byte, commodity string) ([]*models.PriceRecord, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s page: %w", sourceName, err)
	}

	now := s.now()
	needle := strings.ToLower(strings.TrimSpace(commodity))

	var records []*models.PriceRecord
	discoverRows(doc).Each(func(i int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < minCells {
			return
		}

		text := func(idx int) string {
			return strings.TrimSpace(cells.Eq(idx).Text())
		}

		name := text(0)
		if !strings.Contains(strings.ToLower(name), needle) {
			return
		}

		minPrice, errMin := sources.ParsePrice(text(2))
		maxPrice, errMax := sources.ParsePrice(text(3))
		modal, errModal := sources.ParsePrice(text(4))
		if errMin != nil || errMax != nil || errModal != nil {
			s.logger.Debug().Str("commodity", name).Int("row", i).Msg("Skipping row with unparseable prices")
			return
		}

		market := text(1)
		state := s.ExtractState(market)
		records = append(records, &models.PriceRecord{
			Commodity:        sources.CanonicalCommodity(commodity, name),
			State:            state,
			Market:           market,
			ModalPrice:       modal,
			MinPrice:         minPrice,
			MaxPrice:         maxPrice,
			Unit:             models.DefaultUnit,
			Date:             models.TruncateToDate(now),
			Source:           models.SourceWebBackup,
			ScrapedAt:        now,
			DataQualityScore: qualityScore,
			IsPriorityRegion: sources.ContainsFold(s.priority, state),
		})
	})

	return records, nil
}

// discoverRows prefers rows explicitly marked as price or trade rows and
// falls back to every non-header table row.
func discoverRows(doc *goquery.Document) *goquery.Selection {
	marked := doc.Find("tr[class*='price'], tr[class*='trade']")
	if marked.Length() > 0 {
		return marked
	}

	rows := doc.FindNodes()
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		if tr := table.Find("tr"); tr.Length() > 1 {
			rows = rows.AddSelection(tr.Slice(1, goquery.ToEnd))
		}
	})
	return rows
}

// ExtractState finds a known state name inside the market text
func (s *Source) ExtractState(market string) string {
	lower := strings.ToLower(market)
	for _, state := range s.knownStates {
		if strings.Contains(lower, strings.ToLower(state)) {
			return state
		}
	}
	return UnknownState
}

// Run scrapes and upserts records for a commodity
func (s *Source) Run(ctx context.Context, commodity string) (int, error) {
	records, err := s.Fetch(ctx, commodity)
	var transient *models.TransientFetchError
	if errors.As(err, &transient) {
		s.logger.Warn().Err(err).Str("commodity", commodity).Msg("Web backup unavailable, no data collected")
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		s.logger.Info().Str("commodity", commodity).Msg("Web backup found no matching rows")
		return 0, nil
	}

	saved, err := s.storage.UpsertMany(ctx, records)
	if err != nil {
		return 0, fmt.Errorf("failed to persist %s records: %w", sourceName, err)
	}

	s.logger.Info().Str("commodity", commodity).Int("saved", saved).Msg("Web backup collection complete")
	return saved, nil
}

var _ interfaces.PriceSource = (*Source)(nil)
