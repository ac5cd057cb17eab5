package badger

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/mandi/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

func newTestDB(t *testing.T) *BadgerDB {
	t.Helper()

	options := badgerhold.DefaultOptions
	options.Dir = t.TempDir()
	options.ValueDir = options.Dir
	options.Logger = nil

	store, err := badgerhold.Open(options)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return &BadgerDB{store: store}
}

func tomato(market string, day int, modal int64) *models.PriceRecord {
	return &models.PriceRecord{
		Commodity:  "Tomato",
		State:      "Maharashtra",
		Market:     market,
		ModalPrice: decimal.NewFromInt(modal),
		MinPrice:   decimal.NewFromInt(modal - 100),
		MaxPrice:   decimal.NewFromInt(modal + 100),
		Unit:       models.DefaultUnit,
		Date:       time.Date(2024, time.March, day, 0, 0, 0, 0, time.UTC),
		Source:     models.SourceOfficialAPI,
	}
}

func TestPriceStorage_UpsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	storage := NewPriceStorage(newTestDB(t), arbor.NewLogger())

	first := tomato("Pune", 1, 1000)
	require.NoError(t, storage.Upsert(ctx, first))

	// Same identity tuple, different casing and a newer price
	second := tomato("  pune ", 1, 1200)
	second.Commodity = "tomato"
	require.NoError(t, storage.Upsert(ctx, second))

	count, err := storage.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	got, err := storage.Get(ctx, first.IdentityKey())
	require.NoError(t, err)
	assert.True(t, got.ModalPrice.Equal(decimal.NewFromInt(1200)), "last write wins")
}

func TestPriceStorage_UpsertManyCountsSaved(t *testing.T) {
	ctx := context.Background()
	storage := NewPriceStorage(newTestDB(t), arbor.NewLogger())

	saved, err := storage.UpsertMany(ctx, []*models.PriceRecord{
		tomato("Pune", 1, 1000),
		tomato("Nashik", 1, 950),
		{Commodity: ""},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, saved)
}

func TestPriceStorage_LatestAndHistory(t *testing.T) {
	ctx := context.Background()
	storage := NewPriceStorage(newTestDB(t), arbor.NewLogger())

	for day := 1; day <= 5; day++ {
		require.NoError(t, storage.Upsert(ctx, tomato("Pune", day, int64(1000+day*10))))
	}

	latest, err := storage.Latest(ctx, "Tomato")
	require.NoError(t, err)
	assert.Equal(t, 5, latest.Date.Day())

	history, err := storage.History(ctx, "Tomato", 3)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, 3, history[0].Date.Day())
	assert.Equal(t, 5, history[2].Date.Day())

	_, err = storage.Latest(ctx, "Onion")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestPriceStorage_ScrapedSinceAndDeleteAll(t *testing.T) {
	ctx := context.Background()
	storage := NewPriceStorage(newTestDB(t), arbor.NewLogger())

	old := tomato("Pune", 1, 1000)
	old.ScrapedAt = time.Now().Add(-48 * time.Hour)
	fresh := tomato("Pune", 2, 1000)
	fresh.ScrapedAt = time.Now()
	_, err := storage.UpsertMany(ctx, []*models.PriceRecord{old, fresh})
	require.NoError(t, err)

	recent, err := storage.ScrapedSince(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, 2, recent[0].Date.Day())

	require.NoError(t, storage.DeleteAll(ctx))
	count, err := storage.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestNewsStorage_DuplicateURLIsSuppressed(t *testing.T) {
	ctx := context.Background()
	storage := NewNewsStorage(newTestDB(t), arbor.NewLogger())

	item := &models.NewsItem{
		URL:         "https://example.com/onion-export",
		Commodity:   "Onion",
		Headline:    "Onion export demand surges",
		PublishedAt: time.Now(),
	}

	inserted, err := storage.InsertIfAbsent(ctx, item)
	require.NoError(t, err)
	assert.True(t, inserted)

	dup := *item
	dup.ID = ""
	dup.Headline = "Onion export demand surges (updated)"
	inserted, err = storage.InsertIfAbsent(ctx, &dup)
	require.NoError(t, err)
	assert.False(t, inserted)

	count, err := storage.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	recent, err := storage.ByCommoditySince(ctx, "Onion", time.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "Onion export demand surges", recent[0].Headline)
}

func TestAlertStorage_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	storage := NewAlertStorage(newTestDB(t), arbor.NewLogger())

	base := time.Now()
	for i, commodity := range []string{"Tomato", "Onion", "Tomato"} {
		require.NoError(t, storage.Insert(ctx, &models.Alert{
			Type:      models.AlertPriceDrop,
			Commodity: commodity,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	all, err := storage.List(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	tomatoes, err := storage.List(ctx, "Tomato", 1)
	require.NoError(t, err)
	require.Len(t, tomatoes, 1)
	assert.True(t, tomatoes[0].CreatedAt.Equal(base.Add(2*time.Minute)))
	assert.NotEmpty(t, tomatoes[0].ID)
}

func TestWeatherStorage_LatestByState(t *testing.T) {
	ctx := context.Background()
	storage := NewWeatherStorage(newTestDB(t), arbor.NewLogger())

	now := time.Now()
	require.NoError(t, storage.Insert(ctx, &models.WeatherSnapshot{State: "Punjab", Temperature: 30, FetchedAt: now.Add(-time.Hour)}))
	require.NoError(t, storage.Insert(ctx, &models.WeatherSnapshot{State: "Punjab", Temperature: 36, FetchedAt: now}))

	latest, err := storage.LatestByState(ctx, "Punjab")
	require.NoError(t, err)
	assert.Equal(t, 36.0, latest.Temperature)

	_, err = storage.LatestByState(ctx, "Kerala")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestModelStorage_SaveBumpsVersion(t *testing.T) {
	ctx := context.Background()
	storage := NewModelStorage(newTestDB(t), arbor.NewLogger())

	_, err := storage.Load(ctx, "Tomato")
	assert.ErrorIs(t, err, models.ErrNotFound)

	v1, err := storage.Save(ctx, "Tomato", []byte("first"))
	require.NoError(t, err)
	v2, err := storage.Save(ctx, "Tomato", []byte("second"))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), v1)
	assert.Equal(t, uint64(2), v2)

	artifact, err := storage.Load(ctx, "tomato")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), artifact.Version)
	assert.Equal(t, []byte("second"), artifact.Data)

	_, err = storage.Save(ctx, "Onion", []byte("x"))
	require.NoError(t, err)
	commodities, err := storage.Commodities(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Tomato", "Onion"}, commodities)
}
