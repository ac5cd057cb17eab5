package interfaces

import (
	"context"

	"github.com/ternarybob/mandi/internal/models"
)

// PriceSource is a market-price adapter. Run fetches, normalizes and persists
// records for the commodity scope (empty = every tracked commodity) and returns
// the number persisted. Exhausted retries are logged by the adapter and come
// back as a zero count with a nil error.
type PriceSource interface {
	Name() string
	Run(ctx context.Context, commodity string) (int, error)
}

// WeatherEnricher fetches and stores a snapshot per state
type WeatherEnricher interface {
	Run(ctx context.Context, states []string) (int, error)
}

// NewsEnricher fetches and stores news per commodity
type NewsEnricher interface {
	Run(ctx context.Context, commodities []string) (int, error)
}

// RecordValidator performs the advisory quality pass
type RecordValidator interface {
	Validate(records []*models.PriceRecord) models.ValidationStats
}

// AlertNotifier forwards a persisted alert downstream (best effort)
type AlertNotifier interface {
	Notify(ctx context.Context, alert *models.Alert) error
}
