package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/mandi/internal/common"
	"github.com/ternarybob/mandi/internal/interfaces"
	"github.com/ternarybob/mandi/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// WeatherStorage implements the WeatherStorage interface for Badger
type WeatherStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewWeatherStorage creates a new WeatherStorage instance
func NewWeatherStorage(db *BadgerDB, logger arbor.ILogger) interfaces.WeatherStorage {
	return &WeatherStorage{
		db:     db,
		logger: logger,
	}
}

func (s *WeatherStorage) Insert(ctx context.Context, snapshot *models.WeatherSnapshot) error {
	if snapshot.ID == "" {
		snapshot.ID = common.NewSnapshotID()
	}
	if err := s.db.Store().Insert(snapshot.ID, snapshot); err != nil {
		return fmt.Errorf("failed to insert weather snapshot for %s: %w", snapshot.State, err)
	}
	return nil
}

func (s *WeatherStorage) LatestByState(ctx context.Context, state string) (*models.WeatherSnapshot, error) {
	var snapshots []models.WeatherSnapshot
	query := badgerhold.Where("State").Eq(state).Index("State").SortBy("FetchedAt").Reverse().Limit(1)
	if err := s.db.Store().Find(&snapshots, query); err != nil {
		return nil, fmt.Errorf("failed to find weather for %s: %w", state, err)
	}
	if len(snapshots) == 0 {
		return nil, fmt.Errorf("weather for %s: %w", state, models.ErrNotFound)
	}
	return &snapshots[0], nil
}

func (s *WeatherStorage) List(ctx context.Context, limit int) ([]*models.WeatherSnapshot, error) {
	query := badgerhold.Where("ID").Ne("").SortBy("FetchedAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}

	var snapshots []models.WeatherSnapshot
	if err := s.db.Store().Find(&snapshots, query); err != nil {
		return nil, fmt.Errorf("failed to list weather snapshots: %w", err)
	}

	result := make([]*models.WeatherSnapshot, len(snapshots))
	for i := range snapshots {
		result[i] = &snapshots[i]
	}
	return result, nil
}
