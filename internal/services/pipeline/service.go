// Package pipeline sequences one aggregation pass: collect, enrich, validate, report.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/mandi/internal/common"
	"github.com/ternarybob/mandi/internal/interfaces"
	"github.com/ternarybob/mandi/internal/models"
)

// Stage names used in reports and logs
const (
	StagePrimary  = "collect_primary"
	StageBackup   = "collect_backup"
	StageWeather  = "enrich_weather"
	StageNews     = "enrich_news"
	StageValidate = "validate"
)

// RunOptions scopes one invocation. Empty fields fall back to tracked defaults.
type RunOptions struct {
	Commodity string
	States    []string
}

// Dependencies are the collaborators the pipeline sequences
type Dependencies struct {
	Primary   interfaces.PriceSource
	Backup    interfaces.PriceSource
	Weather   interfaces.WeatherEnricher
	News      interfaces.NewsEnricher
	Validator interfaces.RecordValidator
	Storage   interfaces.StorageManager
}

// Service is the aggregation orchestrator. It keeps no state between runs.
type Service struct {
	deps     Dependencies
	config   common.PipelineConfig
	tracking common.TrackingConfig
	logger   arbor.ILogger
	now      func() time.Time
}

// NewService creates the orchestrator
func NewService(deps Dependencies, config common.PipelineConfig, tracking common.TrackingConfig, logger arbor.ILogger) *Service {
	return &Service{
		deps:     deps,
		config:   config,
		tracking: tracking,
		logger:   logger,
		now:      time.Now,
	}
}

// Run executes a single pass. Every stage failure is caught and reported in
// the returned Report; only an unreachable store is returned as an error.
func (s *Service) Run(ctx context.Context, opts RunOptions) (*models.Report, error) {
	if err := s.deps.Storage.Ping(ctx); err != nil {
		return nil, fmt.Errorf("store unavailable: %w", err)
	}

	started := s.now()
	report := &models.Report{
		RunID:     common.NewRunID(),
		Commodity: opts.Commodity,
		States:    s.states(opts),
		StartedAt: started,
	}

	s.logger.Info().
		Str("run_id", report.RunID).
		Str("commodity", opts.Commodity).
		Strs("states", report.States).
		Msg("Pipeline run started")

	// 1. Collect: primary, then backup only when the primary falls short
	primary := s.stage(ctx, StagePrimary, func(ctx context.Context) (int, error) {
		return s.deps.Primary.Run(ctx, opts.Commodity)
	})
	report.Stages = append(report.Stages, primary)
	report.Market.APIRecords = primary.Count

	if primary.Count < s.config.SufficiencyThreshold && s.deps.Backup != nil {
		report.Market.BackupInvoked = true
		backup := s.stage(ctx, StageBackup, func(ctx context.Context) (int, error) {
			return s.deps.Backup.Run(ctx, opts.Commodity)
		})
		report.Stages = append(report.Stages, backup)
		report.Market.WebRecords = backup.Count
	} else {
		report.Stages = append(report.Stages, models.Skipped(StageBackup, "primary yield sufficient"))
	}
	report.Market.TotalMarketRecords = report.Market.APIRecords + report.Market.WebRecords

	// 2. Enrich: weather per state
	weather := s.stage(ctx, StageWeather, func(ctx context.Context) (int, error) {
		return s.deps.Weather.Run(ctx, report.States)
	})
	report.Stages = append(report.Stages, weather)
	report.Weather = weather.Count

	// 3. Enrich: news per commodity
	news := s.stage(ctx, StageNews, func(ctx context.Context) (int, error) {
		return s.deps.News.Run(ctx, s.commodities(opts))
	})
	report.Stages = append(report.Stages, news)
	report.News = news.Count

	// 4. Validate recently scraped records
	var stats models.ValidationStats
	validate := s.stage(ctx, StageValidate, func(ctx context.Context) (int, error) {
		recent, err := s.deps.Storage.PriceStorage().ScrapedSince(ctx, s.now().Add(-s.validationWindow()))
		if err != nil {
			return 0, err
		}
		stats = s.deps.Validator.Validate(recent)
		return stats.Total, nil
	})
	report.Stages = append(report.Stages, validate)
	report.Validation = stats

	// 5. Report
	report.Duration = s.now().Sub(started)

	s.logger.Info().
		Str("run_id", report.RunID).
		Int("api_records", report.Market.APIRecords).
		Int("web_records", report.Market.WebRecords).
		Bool("backup_invoked", report.Market.BackupInvoked).
		Int("weather", report.Weather).
		Int("news", report.News).
		Int("invalid", report.Validation.Invalid).
		Dur("duration", report.Duration).
		Msg("Pipeline run complete")

	return report, nil
}

// stage runs fn behind a panic guard and downgrades any failure to a Failed
// result with a zero count.
func (s *Service) stage(ctx context.Context, name string, fn func(ctx context.Context) (int, error)) models.StageResult {
	start := s.now()

	var count int
	err := common.Guard(s.logger, name, func() error {
		var err error
		count, err = fn(ctx)
		return err
	})

	var result models.StageResult
	if err != nil {
		s.logger.Warn().Err(err).Str("stage", name).Msg("Pipeline stage failed")
		result = models.Failed(name, err)
	} else {
		result = models.OK(name, count)
	}
	result.Duration = s.now().Sub(start)
	return result
}

func (s *Service) states(opts RunOptions) []string {
	if len(opts.States) > 0 {
		return opts.States
	}
	return s.tracking.States
}

func (s *Service) commodities(opts RunOptions) []string {
	if opts.Commodity != "" {
		return []string{opts.Commodity}
	}
	return s.tracking.Commodities
}

func (s *Service) validationWindow() time.Duration {
	if s.config.ValidationWindow > 0 {
		return s.config.ValidationWindow
	}
	return 24 * time.Hour
}
