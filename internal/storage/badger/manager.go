package badger

import (
	"context"
	"errors"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/mandi/internal/common"
	"github.com/ternarybob/mandi/internal/interfaces"
)

// ErrStoreClosed is returned by Ping when the database is no longer open
var ErrStoreClosed = errors.New("badger store is closed")

// Manager implements the StorageManager interface for Badger
type Manager struct {
	db      *BadgerDB
	price   interfaces.PriceStorage
	weather interfaces.WeatherStorage
	news    interfaces.NewsStorage
	alert   interfaces.AlertStorage
	model   interfaces.ModelStorage
	logger  arbor.ILogger
}

// NewManager creates a new Badger storage manager
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	manager := newManager(db, logger)
	logger.Info().Str("path", config.Path).Msg("Badger storage manager initialized")

	return manager, nil
}

func newManager(db *BadgerDB, logger arbor.ILogger) *Manager {
	return &Manager{
		db:      db,
		price:   NewPriceStorage(db, logger),
		weather: NewWeatherStorage(db, logger),
		news:    NewNewsStorage(db, logger),
		alert:   NewAlertStorage(db, logger),
		model:   NewModelStorage(db, logger),
		logger:  logger,
	}
}

// PriceStorage returns the price record repository
func (m *Manager) PriceStorage() interfaces.PriceStorage {
	return m.price
}

// WeatherStorage returns the weather snapshot repository
func (m *Manager) WeatherStorage() interfaces.WeatherStorage {
	return m.weather
}

// NewsStorage returns the news item repository
func (m *Manager) NewsStorage() interfaces.NewsStorage {
	return m.news
}

// AlertStorage returns the alert repository
func (m *Manager) AlertStorage() interfaces.AlertStorage {
	return m.alert
}

// ModelStorage returns the forecast model artifact store
func (m *Manager) ModelStorage() interfaces.ModelStorage {
	return m.model
}

// Ping reports whether the underlying database is open
func (m *Manager) Ping(ctx context.Context) error {
	if m.db == nil || m.db.Store() == nil || m.db.Store().Badger().IsClosed() {
		return ErrStoreClosed
	}
	return nil
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
