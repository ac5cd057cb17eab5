// Package officialapi ingests mandi prices from the data.gov.in resource API.
package officialapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/mandi/internal/common"
	"github.com/ternarybob/mandi/internal/httpclient"
	"github.com/ternarybob/mandi/internal/interfaces"
	"github.com/ternarybob/mandi/internal/models"
	"github.com/ternarybob/mandi/internal/sources"
)

const sourceName = "official_api"

// ErrMissingAPIKey is returned when no data.gov.in key is configured
var ErrMissingAPIKey = errors.New("official api key not configured")

type pageResponse struct {
	Records []map[string]any `json:"records"`
}

// Source is the primary price adapter
type Source struct {
	client   *httpclient.Client
	config   common.OfficialAPIConfig
	priority []string
	storage  interfaces.PriceStorage
	logger   arbor.ILogger
	now      func() time.Time
}

// NewSource creates the official API adapter
func NewSource(config common.OfficialAPIConfig, tracking common.TrackingConfig, storage interfaces.PriceStorage, logger arbor.ILogger) *Source {
	return &Source{
		client:   httpclient.NewClient(sourceName, config.Retry, logger),
		config:   config,
		priority: tracking.PriorityStates,
		storage:  storage,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *Source) Name() string {
	return sourceName
}

// FetchPage requests one page of raw records. An empty commodity fetches every commodity.
func (s *Source) FetchPage(ctx context.Context, commodity string, limit, offset int) ([]map[string]any, error) {
	if s.config.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	params := url.Values{}
	params.Set("api-key", s.config.APIKey)
	params.Set("format", "json")
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(offset))
	if commodity != "" {
		params.Set("filters[commodity]", commodity)
	}

	body, err := s.client.Get(ctx, s.config.BaseURL, params)
	if err != nil {
		return nil, err
	}

	var page pageResponse
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()
	if err := decoder.Decode(&page); err != nil {
		return nil, fmt.Errorf("failed to decode %s page: %w", sourceName, err)
	}
	return page.Records, nil
}

// Fetch pages through the API until a page is empty or MaxPages is reached.
// A failed page ends pagination; the records gathered so far are returned
// together with the error.
func (s *Source) Fetch(ctx context.Context, commodity string) ([]*models.PriceRecord, error) {
	var records []*models.PriceRecord
	now := s.now()
	dropped := 0

	for page := 0; page < s.config.MaxPages; page++ {
		raw, err := s.FetchPage(ctx, commodity, s.config.PageLimit, page*s.config.PageLimit)
		if err != nil {
			s.logger.Warn().Err(err).Str("commodity", commodity).Int("page", page).Msg("Official API page failed")
			return records, err
		}
		if len(raw) == 0 {
			break
		}

		for _, r := range raw {
			record, err := Normalize(r, now)
			if err != nil {
				dropped++
				continue
			}
			record.Commodity = sources.CanonicalCommodity(commodity, record.Commodity)
			record.IsPriorityRegion = sources.ContainsFold(s.priority, record.State)
			records = append(records, record)
		}

		if len(raw) < s.config.PageLimit {
			break
		}
	}

	if dropped > 0 {
		s.logger.Debug().Str("commodity", commodity).Int("dropped", dropped).Msg("Dropped records that could not be normalized")
	}
	return records, nil
}

// Run fetches and upserts records for a commodity, returning how many were
// persisted. Exhausted retries are logged and reported as no data.
func (s *Source) Run(ctx context.Context, commodity string) (int, error) {
	records, fetchErr := s.Fetch(ctx, commodity)

	saved := 0
	if len(records) > 0 {
		var err error
		saved, err = s.storage.UpsertMany(ctx, records)
		if err != nil {
			return 0, fmt.Errorf("failed to persist %s records: %w", sourceName, err)
		}
	}

	s.logger.Info().Str("commodity", commodity).Int("saved", saved).Msg("Official API collection complete")

	if fetchErr != nil && saved == 0 {
		var transient *models.TransientFetchError
		if errors.As(fetchErr, &transient) {
			s.logger.Warn().Err(fetchErr).Str("commodity", commodity).Msg("Official API unavailable, no data collected")
			return 0, nil
		}
		return 0, fetchErr
	}
	return saved, nil
}

var _ interfaces.PriceSource = (*Source)(nil)
