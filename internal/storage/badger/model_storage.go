package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/mandi/internal/interfaces"
	"github.com/ternarybob/mandi/internal/models"
)

// Model artifacts bypass badgerhold and live under their own key prefix:
// model:{commodity} -> JSON envelope holding the version and the encoded model
const modelKeyPrefix = "model:"

// ModelStorage implements the ModelStorage interface on the raw Badger DB
type ModelStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewModelStorage creates a new ModelStorage instance
func NewModelStorage(db *BadgerDB, logger arbor.ILogger) interfaces.ModelStorage {
	return &ModelStorage{
		db:     db,
		logger: logger,
	}
}

func (s *ModelStorage) modelKey(commodity string) []byte {
	return []byte(modelKeyPrefix + strings.ToLower(strings.TrimSpace(commodity)))
}

// Save bumps the version and replaces the artifact in a single transaction,
// so readers see either the previous model or the new one.
func (s *ModelStorage) Save(ctx context.Context, commodity string, data []byte) (uint64, error) {
	if commodity == "" {
		return 0, fmt.Errorf("commodity is required")
	}

	var version uint64
	err := s.db.Store().Badger().Update(func(txn *badgerdb.Txn) error {
		key := s.modelKey(commodity)

		current, err := readArtifact(txn, key)
		if err != nil && !errors.Is(err, badgerdb.ErrKeyNotFound) {
			return err
		}
		version = 1
		if current != nil {
			version = current.Version + 1
		}

		payload, err := json.Marshal(interfaces.ModelArtifact{
			Commodity: commodity,
			Version:   version,
			Data:      data,
			SavedAt:   time.Now(),
		})
		if err != nil {
			return fmt.Errorf("failed to marshal model artifact: %w", err)
		}
		return txn.Set(key, payload)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to save model for %s: %w", commodity, err)
	}

	s.logger.Debug().Str("commodity", commodity).Int64("version", int64(version)).Int("bytes", len(data)).Msg("Model artifact saved")
	return version, nil
}

func (s *ModelStorage) Load(ctx context.Context, commodity string) (*interfaces.ModelArtifact, error) {
	var artifact *interfaces.ModelArtifact
	err := s.db.Store().Badger().View(func(txn *badgerdb.Txn) error {
		var err error
		artifact, err = readArtifact(txn, s.modelKey(commodity))
		return err
	})
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return nil, fmt.Errorf("model for %s: %w", commodity, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load model for %s: %w", commodity, err)
	}
	return artifact, nil
}

func (s *ModelStorage) Commodities(ctx context.Context) ([]string, error) {
	var commodities []string
	err := s.db.Store().Badger().View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		prefix := []byte(modelKeyPrefix)
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			artifact, err := decodeArtifact(it.Item())
			if err != nil {
				return err
			}
			commodities = append(commodities, artifact.Commodity)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list model commodities: %w", err)
	}
	return commodities, nil
}

func readArtifact(txn *badgerdb.Txn, key []byte) (*interfaces.ModelArtifact, error) {
	item, err := txn.Get(key)
	if err != nil {
		return nil, err
	}
	return decodeArtifact(item)
}

func decodeArtifact(item *badgerdb.Item) (*interfaces.ModelArtifact, error) {
	var artifact interfaces.ModelArtifact
	err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &artifact)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to decode model artifact %s: %w", item.Key(), err)
	}
	return &artifact, nil
}
