package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/mandi/internal/models"
)

// PriceStorage persists PriceRecords keyed by their identity tuple
type PriceStorage interface {
	// Upsert inserts or replaces a record by its identity key (last write wins)
	Upsert(ctx context.Context, record *models.PriceRecord) error
	UpsertMany(ctx context.Context, records []*models.PriceRecord) (int, error)

	Get(ctx context.Context, key string) (*models.PriceRecord, error)

	// Latest returns the most recent record for a commodity by date, or models.ErrNotFound
	Latest(ctx context.Context, commodity string) (*models.PriceRecord, error)

	// History returns up to limit records for a commodity ordered by date ascending.
	// A limit of zero returns every record.
	History(ctx context.Context, commodity string, limit int) ([]*models.PriceRecord, error)

	// ScrapedSince returns records ingested at or after the cutoff
	ScrapedSince(ctx context.Context, cutoff time.Time) ([]*models.PriceRecord, error)

	Count(ctx context.Context) (int, error)

	// DeleteAll purges every price record. Used by the reset operation only.
	DeleteAll(ctx context.Context) error
}

// WeatherStorage persists immutable weather snapshots
type WeatherStorage interface {
	Insert(ctx context.Context, snapshot *models.WeatherSnapshot) error
	LatestByState(ctx context.Context, state string) (*models.WeatherSnapshot, error)
	List(ctx context.Context, limit int) ([]*models.WeatherSnapshot, error)
}

// NewsStorage persists news items, deduplicated by URL
type NewsStorage interface {
	// InsertIfAbsent stores the item unless its URL is already present.
	// Returns true when the item was stored.
	InsertIfAbsent(ctx context.Context, item *models.NewsItem) (bool, error)
	ByCommoditySince(ctx context.Context, commodity string, cutoff time.Time) ([]*models.NewsItem, error)
	Count(ctx context.Context) (int, error)
}

// AlertStorage persists alerts append-only
type AlertStorage interface {
	Insert(ctx context.Context, alert *models.Alert) error
	List(ctx context.Context, commodity string, limit int) ([]*models.Alert, error)
}

// ModelArtifact is a serialized forecast model with its version
type ModelArtifact struct {
	Commodity string
	Version   uint64
	Data      []byte
	SavedAt   time.Time
}

// ModelStorage keeps one versioned artifact per commodity, replaced atomically
type ModelStorage interface {
	// Save writes data as the next version for the commodity and returns that version
	Save(ctx context.Context, commodity string, data []byte) (uint64, error)
	// Load returns the current artifact, or models.ErrNotFound
	Load(ctx context.Context, commodity string) (*ModelArtifact, error)
	Commodities(ctx context.Context) ([]string, error)
}

// StorageManager exposes every repository backed by one store
type StorageManager interface {
	PriceStorage() PriceStorage
	WeatherStorage() WeatherStorage
	NewsStorage() NewsStorage
	AlertStorage() AlertStorage
	ModelStorage() ModelStorage
	// Ping reports whether the store is reachable
	Ping(ctx context.Context) error
	Close() error
}
