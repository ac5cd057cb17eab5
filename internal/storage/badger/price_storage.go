package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/mandi/internal/interfaces"
	"github.com/ternarybob/mandi/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// PriceStorage implements the PriceStorage interface for Badger
type PriceStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewPriceStorage creates a new PriceStorage instance
func NewPriceStorage(db *BadgerDB, logger arbor.ILogger) interfaces.PriceStorage {
	return &PriceStorage{
		db:     db,
		logger: logger,
	}
}

func (s *PriceStorage) Upsert(ctx context.Context, record *models.PriceRecord) error {
	if record.Commodity == "" {
		return fmt.Errorf("price record commodity is required")
	}

	record.ID = record.IdentityKey()
	if record.ScrapedAt.IsZero() {
		record.ScrapedAt = time.Now()
	}

	if err := s.db.Store().Upsert(record.ID, record); err != nil {
		return fmt.Errorf("failed to upsert price record %s: %w", record.ID, err)
	}
	return nil
}

// UpsertMany saves each record, skipping failures. Returns the number saved.
func (s *PriceStorage) UpsertMany(ctx context.Context, records []*models.PriceRecord) (int, error) {
	saved := 0
	var lastErr error
	for _, record := range records {
		if err := s.Upsert(ctx, record); err != nil {
			s.logger.Warn().Err(err).Str("commodity", record.Commodity).Msg("Failed to save price record")
			lastErr = err
			continue
		}
		saved++
	}

	// Nothing saved out of a non-empty batch means the store itself is failing
	if saved == 0 && lastErr != nil {
		return 0, lastErr
	}
	return saved, nil
}

func (s *PriceStorage) Get(ctx context.Context, key string) (*models.PriceRecord, error) {
	var record models.PriceRecord
	if err := s.db.Store().Get(key, &record); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, fmt.Errorf("price record %s: %w", key, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get price record: %w", err)
	}
	return &record, nil
}

func (s *PriceStorage) Latest(ctx context.Context, commodity string) (*models.PriceRecord, error) {
	var records []models.PriceRecord
	query := badgerhold.Where("Commodity").Eq(commodity).SortBy("Date", "ScrapedAt").Reverse().Limit(1)
	if err := s.db.Store().Find(&records, query); err != nil {
		return nil, fmt.Errorf("failed to find latest price for %s: %w", commodity, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("latest price for %s: %w", commodity, models.ErrNotFound)
	}
	return &records[0], nil
}

func (s *PriceStorage) History(ctx context.Context, commodity string, limit int) ([]*models.PriceRecord, error) {
	query := badgerhold.Where("Commodity").Eq(commodity).SortBy("Date").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}

	var records []models.PriceRecord
	if err := s.db.Store().Find(&records, query); err != nil {
		return nil, fmt.Errorf("failed to load history for %s: %w", commodity, err)
	}

	// Most recent N were selected; hand them back oldest first
	result := make([]*models.PriceRecord, len(records))
	for i := range records {
		result[len(records)-1-i] = &records[i]
	}
	return result, nil
}

func (s *PriceStorage) ScrapedSince(ctx context.Context, cutoff time.Time) ([]*models.PriceRecord, error) {
	var records []models.PriceRecord
	if err := s.db.Store().Find(&records, badgerhold.Where("ScrapedAt").Ge(cutoff)); err != nil {
		return nil, fmt.Errorf("failed to find records scraped since %s: %w", cutoff.Format(time.RFC3339), err)
	}

	result := make([]*models.PriceRecord, len(records))
	for i := range records {
		result[i] = &records[i]
	}
	return result, nil
}

func (s *PriceStorage) Count(ctx context.Context) (int, error) {
	count, err := s.db.Store().Count(&models.PriceRecord{}, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count price records: %w", err)
	}
	return int(count), nil
}

func (s *PriceStorage) DeleteAll(ctx context.Context) error {
	if err := s.db.Store().DeleteMatching(&models.PriceRecord{}, badgerhold.Where("ID").Ne("")); err != nil {
		return fmt.Errorf("failed to delete price records: %w", err)
	}
	s.logger.Info().Msg("All price records deleted")
	return nil
}
