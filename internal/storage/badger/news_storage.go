package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/mandi/internal/common"
	"github.com/ternarybob/mandi/internal/interfaces"
	"github.com/ternarybob/mandi/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// NewsStorage implements the NewsStorage interface for Badger.
// Items are keyed by URL so a second insert of the same URL is rejected.
type NewsStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewNewsStorage creates a new NewsStorage instance
func NewNewsStorage(db *BadgerDB, logger arbor.ILogger) interfaces.NewsStorage {
	return &NewsStorage{
		db:     db,
		logger: logger,
	}
}

func (s *NewsStorage) InsertIfAbsent(ctx context.Context, item *models.NewsItem) (bool, error) {
	if item.URL == "" {
		return false, fmt.Errorf("news item URL is required")
	}
	if item.ID == "" {
		item.ID = common.NewNewsID()
	}

	err := s.db.Store().Insert(item.URL, item)
	if errors.Is(err, badgerhold.ErrKeyExists) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to insert news item: %w", err)
	}
	return true, nil
}

func (s *NewsStorage) ByCommoditySince(ctx context.Context, commodity string, cutoff time.Time) ([]*models.NewsItem, error) {
	var items []models.NewsItem
	query := badgerhold.Where("Commodity").Eq(commodity).Index("Commodity").
		And("PublishedAt").Ge(cutoff).
		SortBy("PublishedAt").Reverse()
	if err := s.db.Store().Find(&items, query); err != nil {
		return nil, fmt.Errorf("failed to find news for %s: %w", commodity, err)
	}

	result := make([]*models.NewsItem, len(items))
	for i := range items {
		result[i] = &items[i]
	}
	return result, nil
}

func (s *NewsStorage) Count(ctx context.Context) (int, error) {
	count, err := s.db.Store().Count(&models.NewsItem{}, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count news items: %w", err)
	}
	return int(count), nil
}
