// Package weather enriches the pipeline with per-state current conditions
// from OpenWeatherMap.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/mandi/internal/common"
	"github.com/ternarybob/mandi/internal/httpclient"
	"github.com/ternarybob/mandi/internal/interfaces"
	"github.com/ternarybob/mandi/internal/models"
	"golang.org/x/sync/errgroup"
)

const sourceName = "openweathermap"

// ErrMissingAPIKey is returned when no OpenWeatherMap key is configured
var ErrMissingAPIKey = errors.New("weather api key not configured")

// ErrUnmappedState is returned by Fetch for a state with no reference city
var ErrUnmappedState = errors.New("no weather city mapped for state")

type currentResponse struct {
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  float64 `json:"humidity"`
		Pressure  float64 `json:"pressure"`
	} `json:"main"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Rain struct {
		OneHour   float64 `json:"1h"`
		ThreeHour float64 `json:"3h"`
	} `json:"rain"`
}

// Service fetches and stores weather snapshots
type Service struct {
	client  *httpclient.Client
	config  common.WeatherConfig
	cities  map[string]string
	storage interfaces.WeatherStorage
	logger  arbor.ILogger
	now     func() time.Time
}

// NewService creates the weather enrichment service
func NewService(config common.WeatherConfig, tracking common.TrackingConfig, storage interfaces.WeatherStorage, logger arbor.ILogger) *Service {
	return &Service{
		client:  httpclient.NewClient(sourceName, config.Retry, logger),
		config:  config,
		cities:  tracking.WeatherCities,
		storage: storage,
		logger:  logger,
		now:     time.Now,
	}
}

// CityFor returns the reference city for a state; ok is false for unmapped states
func (s *Service) CityFor(state string) (string, bool) {
	city, ok := s.cities[state]
	return city, ok && city != ""
}

// Fetch retrieves current conditions for a state without persisting them
func (s *Service) Fetch(ctx context.Context, state string) (*models.WeatherSnapshot, error) {
	if s.config.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	city, ok := s.CityFor(state)
	if !ok {
		return nil, fmt.Errorf("%s: %w", state, ErrUnmappedState)
	}

	params := url.Values{}
	params.Set("q", city+",IN")
	params.Set("appid", s.config.APIKey)
	params.Set("units", "metric")

	body, err := s.client.Get(ctx, s.config.BaseURL, params)
	if err != nil {
		return nil, err
	}

	var resp currentResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode weather for %s: %w", city, err)
	}

	snapshot := &models.WeatherSnapshot{
		State:       state,
		City:        city,
		Temperature: resp.Main.Temp,
		FeelsLike:   resp.Main.FeelsLike,
		Humidity:    resp.Main.Humidity,
		Pressure:    resp.Main.Pressure,
		WindSpeed:   resp.Wind.Speed,
		Rainfall1h:  resp.Rain.OneHour,
		Rainfall3h:  resp.Rain.ThreeHour,
		Source:      "OpenWeatherMap",
		FetchedAt:   s.now(),
	}
	if len(resp.Weather) > 0 {
		snapshot.Condition = resp.Weather[0].Main
		snapshot.Description = resp.Weather[0].Description
	}
	snapshot.Impact = AssessImpact(snapshot)

	return snapshot, nil
}

// Run fetches a snapshot per state on a bounded pool. One state failing
// never blocks the others; an error is returned only when every state failed.
func (s *Service) Run(ctx context.Context, states []string) (int, error) {
	if len(states) == 0 {
		return 0, nil
	}

	var (
		mu      sync.Mutex
		stored  int
		lastErr error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, s.config.Concurrency))

	for _, state := range states {
		g.Go(func() error {
			err := s.collectState(gctx, state)

			mu.Lock()
			defer mu.Unlock()
			if errors.Is(err, ErrUnmappedState) {
				s.logger.Debug().Str("state", state).Msg("Skipping weather for unmapped state")
				return nil
			}
			if err != nil {
				lastErr = err
				s.logger.Warn().Err(err).Str("state", state).Msg("Weather fetch failed")
				return nil
			}
			stored++
			return nil
		})
	}
	g.Wait()

	s.logger.Info().Int("states", len(states)).Int("stored", stored).Msg("Weather enrichment complete")

	if stored == 0 && lastErr != nil {
		return 0, lastErr
	}
	return stored, nil
}

func (s *Service) collectState(ctx context.Context, state string) error {
	snapshot, err := s.Fetch(ctx, state)
	if err != nil {
		return err
	}
	return s.storage.Insert(ctx, snapshot)
}

var _ interfaces.WeatherEnricher = (*Service)(nil)
