package officialapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
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

func newTestStorage(t *testing.T) interfaces.StorageManager {
	t.Helper()
	manager, err := badger.NewManager(arbor.NewLogger(), &common.BadgerConfig{Path: filepath.Join(t.TempDir(), "db")})
	require.NoError(t, err)
	t.Cleanup(func() { manager.Close() })
	return manager
}

func testConfig(baseURL string) common.OfficialAPIConfig {
	return common.OfficialAPIConfig{
		BaseURL:   baseURL,
		APIKey:    "test-key",
		PageLimit: 2,
		MaxPages:  5,
		Retry: common.RetryConfig{
			MaxRetries:     3,
			RetryDelay:     time.Millisecond,
			RequestTimeout: 2 * time.Second,
		},
	}
}

func TestNormalize_CandidateKeysAndDefaults(t *testing.T) {
	now := time.Date(2024, time.May, 1, 10, 0, 0, 0, time.UTC)

	record, err := Normalize(map[string]any{
		"Commodity":    "Onion",
		"State":        "Maharashtra",
		"Market":       "Lasalgaon",
		"Modal Price":  json.Number("2000"),
		"arrival_date": "28/04/2024",
	}, now)
	require.NoError(t, err)

	assert.Equal(t, "Onion", record.Commodity)
	assert.Equal(t, "Lasalgaon", record.Market)
	assert.Equal(t, "2000", record.ModalPrice.String())
	assert.Equal(t, "1800", record.MinPrice.String())
	assert.Equal(t, "2200", record.MaxPrice.String())
	assert.Equal(t, models.DefaultUnit, record.Unit)
	assert.Equal(t, 28, record.Date.Day())
	assert.Equal(t, models.SourceOfficialAPI, record.Source)
	assert.Equal(t, 9, record.DataQualityScore)

	// No modal price: kept at zero so validation can count it
	record, err = Normalize(map[string]any{"commodity": "Tomato", "market": "Pune", "state": "MH"}, now)
	require.NoError(t, err)
	assert.Equal(t, "Tomato", record.Commodity)
	assert.True(t, record.ModalPrice.IsZero())
	assert.True(t, record.MinPrice.IsZero())
	assert.True(t, record.MaxPrice.IsZero())

	record, err = Normalize(map[string]any{"commodity": "Tomato", "modal_price": "n/a"}, now)
	require.NoError(t, err)
	assert.True(t, record.ModalPrice.IsZero())
}

func TestNormalize_DropsRecordWithoutCommodity(t *testing.T) {
	_, err := Normalize(map[string]any{"modal_price": "1000"}, time.Now())

	var normErr *models.NormalizationError
	require.True(t, errors.As(err, &normErr))
	assert.Equal(t, "commodity", normErr.Field)
}

func TestSource_RunPaginatesAndUpserts(t *testing.T) {
	pages := [][]map[string]any{
		{
			{"commodity": "Tomato", "state": "Maharashtra", "market": "Pune", "modal_price": "1000", "arrival_date": "01/03/2024"},
			{"commodity": "Tomato", "state": "Bihar", "market": "Patna", "modal_price": "1100", "arrival_date": "01/03/2024"},
		},
		{
			{"commodity": "Tomato", "state": "Gujarat", "market": "Surat", "modal_price": "1200", "arrival_date": "01/03/2024"},
			{"state": "Gujarat", "market": "Rajkot", "modal_price": "900"},
		},
		{},
	}

	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		q := r.URL.Query()
		assert.Equal(t, "test-key", q.Get("api-key"))
		assert.Equal(t, "json", q.Get("format"))
		assert.Equal(t, "Tomato", q.Get("filters[commodity]"))

		offset, _ := strconv.Atoi(q.Get("offset"))
		page := offset / 2
		json.NewEncoder(w).Encode(map[string]any{"records": pages[page]})
	}))
	defer server.Close()

	storage := newTestStorage(t)
	tracking := common.TrackingConfig{PriorityStates: []string{"Maharashtra", "Gujarat"}}
	source := NewSource(testConfig(server.URL), tracking, storage.PriceStorage(), arbor.NewLogger())

	ctx := context.Background()
	saved, err := source.Run(ctx, "Tomato")
	require.NoError(t, err)
	assert.Equal(t, 3, saved)
	assert.Equal(t, 3, requests)

	// Running again converges on the same keys
	saved, err = source.Run(ctx, "Tomato")
	require.NoError(t, err)
	assert.Equal(t, 3, saved)

	count, err := storage.PriceStorage().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	pune, err := storage.PriceStorage().Get(ctx, models.IdentityKey("Tomato", "Pune", "Maharashtra", time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	assert.True(t, pune.IsPriorityRegion)

	patna, err := storage.PriceStorage().Get(ctx, models.IdentityKey("Tomato", "Patna", "Bihar", time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	assert.False(t, patna.IsPriorityRegion)
}

func TestSource_ExhaustedRetriesYieldNoData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	storage := newTestStorage(t)
	source := NewSource(testConfig(server.URL), common.TrackingConfig{}, storage.PriceStorage(), arbor.NewLogger())

	saved, err := source.Run(context.Background(), "Tomato")
	require.NoError(t, err)
	assert.Zero(t, saved)

	// Fetch still surfaces the transient failure
	records, err := source.Fetch(context.Background(), "Tomato")
	assert.Empty(t, records)
	var transient *models.TransientFetchError
	assert.True(t, errors.As(err, &transient))
}

func TestSource_MissingAPIKey(t *testing.T) {
	storage := newTestStorage(t)
	config := testConfig("http://127.0.0.1:1")
	config.APIKey = ""
	source := NewSource(config, common.TrackingConfig{}, storage.PriceStorage(), arbor.NewLogger())

	saved, err := source.Run(context.Background(), "Tomato")
	assert.Zero(t, saved)
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}
