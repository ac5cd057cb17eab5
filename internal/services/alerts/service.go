// Package alerts turns forecasts into persisted, broadcast price alerts.
package alerts

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/mandi/internal/common"
	"github.com/ternarybob/mandi/internal/interfaces"
	"github.com/ternarybob/mandi/internal/models"
)

const (
	SourcePrediction = "ML_Prediction"
	SourceManual     = "Manual"
)

// Service generates alerts, persists them and fans them out to notifiers.
// Persistence is the source of truth; notification is best effort.
type Service struct {
	alerts     interfaces.AlertStorage
	prices     interfaces.PriceStorage
	thresholds Thresholds
	config     common.AlertsConfig
	logger     arbor.ILogger
	now        func() time.Time

	mu        sync.RWMutex
	notifiers []interfaces.AlertNotifier
}

// NewService creates the alert generator
func NewService(alerts interfaces.AlertStorage, prices interfaces.PriceStorage, config common.AlertsConfig, logger arbor.ILogger, notifiers ...interfaces.AlertNotifier) *Service {
	return &Service{
		alerts:     alerts,
		prices:     prices,
		thresholds: NewThresholds(config),
		config:     config,
		logger:     logger,
		now:        time.Now,
		notifiers:  notifiers,
	}
}

// AddNotifier registers another downstream sink
func (s *Service) AddNotifier(notifier interfaces.AlertNotifier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifiers = append(s.notifiers, notifier)
}

// GenerateAlerts classifies each forecast against the commodity's latest
// stored price. Forecasts without a current price are skipped. A storage
// failure while persisting is returned; notification failures never are.
func (s *Service) GenerateAlerts(ctx context.Context, forecasts []models.Forecast) ([]*models.Alert, error) {
	current := make(map[string]*models.PriceRecord)
	var generated []*models.Alert

	for _, forecast := range forecasts {
		latest, ok := current[forecast.Commodity]
		if !ok {
			record, err := s.prices.Latest(ctx, forecast.Commodity)
			if err != nil && !errors.Is(err, models.ErrNotFound) {
				return generated, err
			}
			latest = record
			current[forecast.Commodity] = record
		}
		if latest == nil || !latest.ModalPrice.IsPositive() {
			continue
		}

		alert := s.priceAlert(forecast, latest.ModalPrice)
		if alert == nil {
			continue
		}

		if err := s.publish(ctx, alert); err != nil {
			return generated, err
		}
		generated = append(generated, alert)
	}

	s.logger.Info().Int("forecasts", len(forecasts)).Int("alerts", len(generated)).Msg("Alert generation complete")
	return generated, nil
}

func (s *Service) priceAlert(forecast models.Forecast, currentPrice decimal.Decimal) *models.Alert {
	predicted := decimal.NewFromFloat(forecast.PredictedPrice)
	change := ChangeFraction(currentPrice, predicted)

	alertType, severity, ok := s.thresholds.Classify(change)
	if !ok {
		return nil
	}

	changeFloat := change.InexactFloat64()
	title, message, hindi := messages(alertType, forecast.Commodity, changeFloat, forecast.PredictedPrice)

	return &models.Alert{
		Type:             alertType,
		Severity:         severity,
		Commodity:        forecast.Commodity,
		Title:            title,
		Message:          message,
		MessageHindi:     hindi,
		CurrentPrice:     currentPrice.InexactFloat64(),
		PredictedPrice:   forecast.PredictedPrice,
		ChangePercentage: change.Mul(decimal.NewFromInt(100)).Round(1).InexactFloat64(),
		TargetUsers:      []string{},
		TargetStates:     []string{},
		Metadata: models.AlertMetadata{
			Source:     SourcePrediction,
			Confidence: s.config.Confidence,
			Actionable: true,
		},
		CreatedAt: s.now(),
	}
}

// CreateDemandAlert records a manual demand alert and broadcasts it
func (s *Service) CreateDemandAlert(ctx context.Context, commodity, message string) (*models.Alert, error) {
	if commodity == "" || message == "" {
		return nil, fmt.Errorf("commodity and message are required")
	}

	alert := &models.Alert{
		Type:         models.AlertDemand,
		Severity:     models.SeverityMedium,
		Commodity:    commodity,
		Title:        fmt.Sprintf("High Demand - %s", commodity),
		Message:      message,
		MessageHindi: message,
		TargetUsers:  []string{},
		TargetStates: []string{},
		Metadata: models.AlertMetadata{
			Source:     SourceManual,
			Actionable: true,
		},
		CreatedAt: s.now(),
	}

	if err := s.publish(ctx, alert); err != nil {
		return nil, err
	}
	return alert, nil
}

// List returns stored alerts, newest first
func (s *Service) List(ctx context.Context, commodity string, limit int) ([]*models.Alert, error) {
	return s.alerts.List(ctx, commodity, limit)
}

func (s *Service) publish(ctx context.Context, alert *models.Alert) error {
	if err := s.alerts.Insert(ctx, alert); err != nil {
		return fmt.Errorf("failed to persist alert: %w", err)
	}

	s.mu.RLock()
	notifiers := append([]interfaces.AlertNotifier(nil), s.notifiers...)
	s.mu.RUnlock()

	for _, notifier := range notifiers {
		if err := notifier.Notify(ctx, alert); err != nil {
			s.logger.Warn().Err(err).Str("alert_id", alert.ID).Str("title", alert.Title).Msg("Alert broadcast failed")
		}
	}
	return nil
}
