// Package forecast trains per-commodity price models and produces
// autoregressive multi-day forecasts.
package forecast

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/mandi/internal/common"
	"github.com/ternarybob/mandi/internal/interfaces"
	"github.com/ternarybob/mandi/internal/models"
)

// Model is the serialized artifact for one commodity. A Model is never
// mutated once built; retraining swaps in a new one.
type Model struct {
	Commodity string
	Forest    *Forest
	Metrics   models.TrainingMetrics
}

// Service trains, stores and serves forecast models
type Service struct {
	prices interfaces.PriceStorage
	store  interfaces.ModelStorage
	config common.ForecastConfig
	logger arbor.ILogger
	now    func() time.Time

	mu     sync.RWMutex
	loaded map[string]*Model
}

// NewService creates the forecasting service
func NewService(prices interfaces.PriceStorage, store interfaces.ModelStorage, config common.ForecastConfig, logger arbor.ILogger) *Service {
	return &Service{
		prices: prices,
		store:  store,
		config: config,
		logger: logger,
		now:    time.Now,
		loaded: make(map[string]*Model),
	}
}

func modelKey(commodity string) string {
	return strings.ToLower(strings.TrimSpace(commodity))
}

// Train fits a model on the commodity's history, persists it as the next
// artifact version and makes it the model used for prediction.
func (s *Service) Train(ctx context.Context, commodity string) (*models.TrainingMetrics, error) {
	history, err := s.prices.History(ctx, commodity, s.config.HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load history for %s: %w", commodity, err)
	}

	rows := PrepareFeatures(commodity, history)
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s has %d records: %w", commodity, len(history), models.ErrInsufficientHistory)
	}

	train, test := s.split(rows)
	x, y := matrix(train)
	forest := TrainForest(x, y, ForestParams{
		Trees:           s.config.Trees,
		MaxDepth:        s.config.MaxDepth,
		MinSamplesSplit: s.config.MinSamplesSplit,
		Seed:            s.config.Seed,
	})

	// Without a holdout the metrics describe the training fit
	eval := test
	if len(eval) == 0 {
		eval = train
	}
	actual, predicted := make([]float64, len(eval)), make([]float64, len(eval))
	for i, row := range eval {
		actual[i] = row.ModalPrice
		predicted[i] = forest.Predict(row.Vector())
	}

	model := &Model{
		Commodity: commodity,
		Forest:    forest,
		Metrics: models.TrainingMetrics{
			Commodity: commodity,
			MAE:       meanAbsoluteError(actual, predicted),
			R2:        r2Score(actual, predicted),
			TrainRows: len(train),
			TestRows:  len(test),
			TrainedAt: s.now(),
		},
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(model); err != nil {
		return nil, fmt.Errorf("failed to encode model for %s: %w", commodity, err)
	}

	version, err := s.store.Save(ctx, commodity, buf.Bytes())
	if err != nil {
		return nil, err
	}
	model.Metrics.ModelVersion = version
	s.install(model)

	s.logger.Info().
		Str("commodity", commodity).
		Int("train_rows", model.Metrics.TrainRows).
		Int("test_rows", model.Metrics.TestRows).
		Float64("mae", model.Metrics.MAE).
		Float64("r2", model.Metrics.R2).
		Int64("version", int64(version)).
		Msg("Forecast model trained")

	metrics := model.Metrics
	return &metrics, nil
}

// split shuffles rows with the configured seed and holds out TestFraction of
// them. A holdout that would leave nothing to train on is skipped.
func (s *Service) split(rows []models.FeatureRow) (train, test []models.FeatureRow) {
	n := len(rows)
	testSize := int(math.Ceil(s.config.TestFraction * float64(n)))
	if testSize >= n {
		testSize = 0
	}

	perm := rand.New(rand.NewSource(s.config.Seed)).Perm(n)
	for i, p := range perm {
		if i < testSize {
			test = append(test, rows[p])
		} else {
			train = append(train, rows[p])
		}
	}
	return train, test
}

func matrix(rows []models.FeatureRow) ([][]float64, []float64) {
	x := make([][]float64, len(rows))
	y := make([]float64, len(rows))
	for i, row := range rows {
		x[i] = row.Vector()
		y[i] = row.ModalPrice
	}
	return x, y
}

// install swaps in model unless a newer version is already loaded
func (s *Service) install(model *Model) {
	key := modelKey(model.Commodity)

	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.loaded[key]; ok && current.Metrics.ModelVersion > model.Metrics.ModelVersion {
		return
	}
	s.loaded[key] = model
}

// model returns the current model, loading the stored artifact on first use
func (s *Service) model(ctx context.Context, commodity string) (*Model, error) {
	s.mu.RLock()
	model, ok := s.loaded[modelKey(commodity)]
	s.mu.RUnlock()
	if ok {
		return model, nil
	}

	artifact, err := s.store.Load(ctx, commodity)
	if errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", commodity, models.ErrModelNotTrained)
	}
	if err != nil {
		return nil, err
	}

	model = &Model{}
	if err := gob.NewDecoder(bytes.NewReader(artifact.Data)).Decode(model); err != nil {
		return nil, fmt.Errorf("failed to decode model for %s: %w", commodity, err)
	}
	model.Metrics.ModelVersion = artifact.Version
	s.install(model)

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded[modelKey(commodity)], nil
}

// Metrics returns the training metrics of the current model
func (s *Service) Metrics(ctx context.Context, commodity string) (*models.TrainingMetrics, error) {
	model, err := s.model(ctx, commodity)
	if err != nil {
		return nil, err
	}
	metrics := model.Metrics
	return &metrics, nil
}

// PredictNextNDays forecasts n days ahead (the configured horizon when n <= 0).
// Day one takes the newest observed price as lag1; after each step only lag1
// is replaced by the prediction while rolling features stay at their last
// observed values. Calendar features follow each target date. Too little
// history yields an empty slice, not an error.
func (s *Service) PredictNextNDays(ctx context.Context, commodity string, n int) ([]models.Forecast, error) {
	if n <= 0 {
		n = s.config.Horizon
	}

	model, err := s.model(ctx, commodity)
	if err != nil {
		return nil, err
	}

	history, err := s.prices.History(ctx, commodity, s.config.HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load history for %s: %w", commodity, err)
	}

	rows := PrepareFeatures(commodity, history)
	if len(rows) == 0 {
		s.logger.Info().Str("commodity", commodity).Int("records", len(history)).Msg("Not enough history to forecast")
		return []models.Forecast{}, nil
	}

	features := rows[len(rows)-1]
	lastPrice := features.ModalPrice
	features.Lag1 = lastPrice
	today := models.TruncateToDate(s.now())

	forecasts := make([]models.Forecast, 0, n)
	for i := 0; i < n; i++ {
		target := today.AddDate(0, 0, i+1)
		features.DayOfWeek = weekdayIndex(target)
		features.Month = int(target.Month())

		price := round2(model.Forest.Predict(features.Vector()))
		forecasts = append(forecasts, models.Forecast{
			Commodity:         commodity,
			Date:              target,
			DayOffset:         i + 1,
			PredictedPrice:    price,
			LastObservedPrice: lastPrice,
		})

		features.Lag1 = price
	}

	return forecasts, nil
}

// TrainAll trains every listed commodity, skipping those that fail
func (s *Service) TrainAll(ctx context.Context, commodities []string) map[string]*models.TrainingMetrics {
	results := make(map[string]*models.TrainingMetrics)
	for _, commodity := range commodities {
		metrics, err := s.Train(ctx, commodity)
		if err != nil {
			s.logger.Warn().Err(err).Str("commodity", commodity).Msg("Skipping forecast model")
			continue
		}
		results[commodity] = metrics
	}
	return results
}

// LoadStored loads every persisted model artifact and returns how many are available
func (s *Service) LoadStored(ctx context.Context) (int, error) {
	commodities, err := s.store.Commodities(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list stored models: %w", err)
	}

	loaded := 0
	for _, commodity := range commodities {
		if _, err := s.model(ctx, commodity); err != nil {
			s.logger.Warn().Err(err).Str("commodity", commodity).Msg("Failed to load stored model")
			continue
		}
		loaded++
	}
	return loaded, nil
}
