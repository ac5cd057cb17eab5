package handlers

import (
	"context"

	"github.com/ternarybob/mandi/internal/models"
	"github.com/ternarybob/mandi/internal/services/pipeline"
)

// PipelineRunner executes one aggregation pass
type PipelineRunner interface {
	Run(ctx context.Context, opts pipeline.RunOptions) (*models.Report, error)
}

// Forecaster trains per-commodity models and predicts forward prices
type Forecaster interface {
	Train(ctx context.Context, commodity string) (*models.TrainingMetrics, error)
	Metrics(ctx context.Context, commodity string) (*models.TrainingMetrics, error)
	PredictNextNDays(ctx context.Context, commodity string, n int) ([]models.Forecast, error)
}

// AlertManager generates, records and lists alerts
type AlertManager interface {
	GenerateAlerts(ctx context.Context, forecasts []models.Forecast) ([]*models.Alert, error)
	CreateDemandAlert(ctx context.Context, commodity, message string) (*models.Alert, error)
	List(ctx context.Context, commodity string, limit int) ([]*models.Alert, error)
}

// DemandSummarizer aggregates recent news sentiment for a commodity
type DemandSummarizer interface {
	DemandSummary(ctx context.Context, commodity string) (*models.DemandSummary, error)
}
