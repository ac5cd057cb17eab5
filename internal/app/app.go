package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/mandi/internal/common"
	"github.com/ternarybob/mandi/internal/handlers"
	"github.com/ternarybob/mandi/internal/interfaces"
	"github.com/ternarybob/mandi/internal/models"
	"github.com/ternarybob/mandi/internal/services/alerts"
	"github.com/ternarybob/mandi/internal/services/forecast"
	"github.com/ternarybob/mandi/internal/services/news"
	"github.com/ternarybob/mandi/internal/services/pipeline"
	"github.com/ternarybob/mandi/internal/services/scheduler"
	"github.com/ternarybob/mandi/internal/services/validation"
	"github.com/ternarybob/mandi/internal/services/weather"
	"github.com/ternarybob/mandi/internal/sources/officialapi"
	"github.com/ternarybob/mandi/internal/sources/web"
	"github.com/ternarybob/mandi/internal/storage/badger"
)

// Scheduled job names
const (
	JobCollect  = "collect"
	JobForecast = "forecast"
)

// App holds all application components and dependencies
type App struct {
	Config         *common.Config
	Logger         arbor.ILogger
	ctx            context.Context
	cancelCtx      context.CancelFunc
	StorageManager interfaces.StorageManager

	// Market price sources
	PrimarySource *officialapi.Source
	BackupSource  *web.Source

	// Enrichment and validation
	WeatherService    *weather.Service
	NewsService       *news.Service
	ValidationService *validation.PriceValidationService

	PipelineService  *pipeline.Service
	ForecastService  *forecast.Service
	AlertService     *alerts.Service
	SchedulerService interfaces.SchedulerService

	// HTTP handlers
	APIHandler       *handlers.APIHandler
	MarketHandler    *handlers.MarketHandler
	PipelineHandler  *handlers.PipelineHandler
	ForecastHandler  *handlers.ForecastHandler
	AlertHandler     *handlers.AlertHandler
	SchedulerHandler *handlers.SchedulerHandler
	AlertHub         *handlers.AlertHub
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		Config:    cfg,
		Logger:    logger,
		ctx:       ctx,
		cancelCtx: cancel,
	}

	if err := app.initDatabase(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	app.initServices()
	app.initHandlers()

	if err := app.initScheduler(); err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to initialize scheduler: %w", err)
	}

	if loaded, err := app.ForecastService.LoadStored(ctx); err != nil {
		logger.Warn().Err(err).Msg("Failed to load stored forecast models")
	} else {
		logger.Debug().Int("models", loaded).Msg("Forecast models loaded")
	}

	logger.Info().
		Strs("commodities", cfg.Tracking.Commodities).
		Bool("scheduler_enabled", cfg.Scheduler.Enabled).
		Bool("broadcast_enabled", cfg.Alerts.BroadcastURL != "").
		Msg("Application initialization complete")

	return app, nil
}

// initDatabase initializes the storage layer (Badger)
func (a *App) initDatabase() error {
	manager, err := badger.NewManager(a.Logger, &a.Config.Storage.Badger)
	if err != nil {
		return err
	}
	a.StorageManager = manager

	a.Logger.Debug().Str("path", a.Config.Storage.Badger.Path).Msg("Storage layer initialized")
	return nil
}

// initServices builds the domain services in dependency order
func (a *App) initServices() {
	cfg := a.Config
	prices := a.StorageManager.PriceStorage()

	a.PrimarySource = officialapi.NewSource(cfg.Sources.OfficialAPI, cfg.Tracking, prices, a.Logger)
	a.BackupSource = web.NewSource(cfg.Sources.Web, cfg.Tracking, prices, a.Logger)

	a.WeatherService = weather.NewService(cfg.Weather, cfg.Tracking, a.StorageManager.WeatherStorage(), a.Logger)
	a.NewsService = news.NewService(cfg.News, cfg.Tracking, a.StorageManager.NewsStorage(), a.Logger)

	a.ValidationService = validation.NewPriceValidationService(cfg.Tracking, a.Logger)
	a.ValidationService.SetQuarantineHook(func(record *models.PriceRecord, reason string) {
		a.Logger.Debug().
			Str("record", record.ID).
			Str("reason", reason).
			Msg("Price record flagged by validation")
	})

	a.PipelineService = pipeline.NewService(pipeline.Dependencies{
		Primary:   a.PrimarySource,
		Backup:    a.BackupSource,
		Weather:   a.WeatherService,
		News:      a.NewsService,
		Validator: a.ValidationService,
		Storage:   a.StorageManager,
	}, cfg.Pipeline, cfg.Tracking, a.Logger)

	a.ForecastService = forecast.NewService(prices, a.StorageManager.ModelStorage(), cfg.Forecast, a.Logger)

	a.AlertHub = handlers.NewAlertHub(a.Logger)
	a.AlertService = alerts.NewService(a.StorageManager.AlertStorage(), prices, cfg.Alerts, a.Logger, a.AlertHub)
	if cfg.Alerts.BroadcastURL != "" {
		a.AlertService.AddNotifier(alerts.NewHTTPNotifier(cfg.Alerts, a.Logger))
	}
}

// initHandlers initializes all HTTP handlers
func (a *App) initHandlers() {
	cfg := a.Config

	a.APIHandler = handlers.NewAPIHandler(a.StorageManager, a.Logger)
	a.MarketHandler = handlers.NewMarketHandler(
		a.StorageManager.PriceStorage(),
		a.StorageManager.WeatherStorage(),
		a.NewsService,
		a.Logger,
	)
	a.PipelineHandler = handlers.NewPipelineHandler(a.PipelineService, a.Logger)
	a.ForecastHandler = handlers.NewForecastHandler(a.ForecastService, cfg.Forecast.Horizon, a.Logger)
	a.AlertHandler = handlers.NewAlertHandler(a.AlertService, a.ForecastService, cfg.Forecast.Horizon, cfg.Tracking.Commodities, a.Logger)
}

// initScheduler registers the collection and forecast jobs. The scheduler is
// only started by the server when enabled in configuration.
func (a *App) initScheduler() error {
	a.SchedulerService = scheduler.NewService(a.Logger)
	a.SchedulerHandler = handlers.NewSchedulerHandler(a.SchedulerService, a.Logger)

	if a.Config.Scheduler.CollectSchedule != "" {
		err := a.SchedulerService.RegisterJob(JobCollect, a.Config.Scheduler.CollectSchedule,
			"Collect market prices, weather and news", func() error {
				_, err := a.PipelineService.Run(a.ctx, pipeline.RunOptions{})
				return err
			})
		if err != nil {
			return err
		}
	}

	if a.Config.Scheduler.ForecastSchedule != "" {
		err := a.SchedulerService.RegisterJob(JobForecast, a.Config.Scheduler.ForecastSchedule,
			"Retrain forecast models and generate price alerts", func() error {
				_, err := a.RunForecastCycle(a.ctx)
				return err
			})
		if err != nil {
			return err
		}
	}

	return nil
}

// RunForecastCycle retrains every tracked commodity, forecasts the configured
// horizon and turns the forecasts into alerts
func (a *App) RunForecastCycle(ctx context.Context) ([]*models.Alert, error) {
	commodities := a.Config.Tracking.Commodities
	trained := a.ForecastService.TrainAll(ctx, commodities)

	var forecasts []models.Forecast
	for _, commodity := range commodities {
		predicted, err := a.ForecastService.PredictNextNDays(ctx, commodity, a.Config.Forecast.Horizon)
		if err != nil {
			if !errors.Is(err, models.ErrModelNotTrained) {
				a.Logger.Warn().Err(err).Str("commodity", commodity).Msg("Forecast failed")
			}
			continue
		}
		forecasts = append(forecasts, predicted...)
	}

	generated, err := a.AlertService.GenerateAlerts(ctx, forecasts)
	if err != nil {
		return generated, fmt.Errorf("alert generation failed: %w", err)
	}

	a.Logger.Info().
		Int("models", len(trained)).
		Int("forecasts", len(forecasts)).
		Int("alerts", len(generated)).
		Msg("Forecast cycle complete")

	return generated, nil
}

// Reset purges every stored price record
func (a *App) Reset(ctx context.Context) error {
	if err := a.StorageManager.PriceStorage().DeleteAll(ctx); err != nil {
		return fmt.Errorf("failed to reset price records: %w", err)
	}
	a.Logger.Warn().Msg("All price records deleted")
	return nil
}

// Context returns the application lifetime context
func (a *App) Context() context.Context {
	return a.ctx
}

// Close closes all application resources
func (a *App) Close() error {
	if a.cancelCtx != nil {
		a.cancelCtx()
	}

	if a.SchedulerService != nil {
		if err := a.SchedulerService.Stop(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to stop scheduler service")
		}
	}

	if a.AlertHub != nil {
		a.AlertHub.Close()
	}

	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
		a.Logger.Info().Msg("Storage closed")
	}

	return nil
}
