package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment" yaml:"environment"` // "development" or "production"
	Server      ServerConfig    `toml:"server" yaml:"server"`
	Storage     StorageConfig   `toml:"storage" yaml:"storage"`
	Logging     LoggingConfig   `toml:"logging" yaml:"logging"`
	Sources     SourcesConfig   `toml:"sources" yaml:"sources"`
	Weather     WeatherConfig   `toml:"weather" yaml:"weather"`
	News        NewsConfig      `toml:"news" yaml:"news"`
	Alerts      AlertsConfig    `toml:"alerts" yaml:"alerts"`
	Forecast    ForecastConfig  `toml:"forecast" yaml:"forecast"`
	Pipeline    PipelineConfig  `toml:"pipeline" yaml:"pipeline"`
	Scheduler   SchedulerConfig `toml:"scheduler" yaml:"scheduler"`
	Tracking    TrackingConfig  `toml:"tracking" yaml:"tracking"`
}

type ServerConfig struct {
	Port int    `toml:"port" yaml:"port" validate:"gt=0,lt=65536"`
	Host string `toml:"host" yaml:"host"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger" yaml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path" yaml:"path" validate:"required"` // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup" yaml:"reset_on_startup"`
}

type LoggingConfig struct {
	Level      string   `toml:"level" yaml:"level"`   // "debug", "info", "warn", "error"
	Output     []string `toml:"output" yaml:"output"` // "stdout", "file"
	TimeFormat string   `toml:"time_format" yaml:"time_format"`
}

type SourcesConfig struct {
	OfficialAPI OfficialAPIConfig `toml:"official_api" yaml:"official_api"`
	Web         WebSourceConfig   `toml:"web" yaml:"web"`
}

// RetryConfig is shared by every upstream client.
// Backoff is linear: attempt x RetryDelay.
type RetryConfig struct {
	MaxRetries     int           `toml:"max_retries" yaml:"max_retries" validate:"gte=1"`
	RetryDelay     time.Duration `toml:"retry_delay" yaml:"retry_delay"`
	RequestTimeout time.Duration `toml:"request_timeout" yaml:"request_timeout" validate:"gt=0"`
	RequestDelay   time.Duration `toml:"request_delay" yaml:"request_delay"` // Minimum delay between requests to the same source
}

// OfficialAPIConfig configures the data.gov.in mandi price API
type OfficialAPIConfig struct {
	BaseURL   string      `toml:"base_url" yaml:"base_url" validate:"required,url"`
	APIKey    string      `toml:"api_key" yaml:"api_key"`
	PageLimit int         `toml:"page_limit" yaml:"page_limit" validate:"gt=0"`
	MaxPages  int         `toml:"max_pages" yaml:"max_pages" validate:"gt=0"`
	Retry     RetryConfig `toml:"retry" yaml:"retry"`
}

// WebSourceConfig configures the eNAM trade-data page scraper
type WebSourceConfig struct {
	URL       string      `toml:"url" yaml:"url" validate:"required,url"`
	UserAgent string      `toml:"user_agent" yaml:"user_agent"`
	Retry     RetryConfig `toml:"retry" yaml:"retry"`
}

// WeatherConfig configures the OpenWeatherMap current-conditions client
type WeatherConfig struct {
	BaseURL     string      `toml:"base_url" yaml:"base_url" validate:"required,url"`
	APIKey      string      `toml:"api_key" yaml:"api_key"`
	Concurrency int         `toml:"concurrency" yaml:"concurrency" validate:"gte=1"`
	Retry       RetryConfig `toml:"retry" yaml:"retry"`
}

// NewsConfig configures the Google News RSS client
type NewsConfig struct {
	FeedURL     string      `toml:"feed_url" yaml:"feed_url" validate:"required"` // {query} is replaced with the commodity
	UserAgent   string      `toml:"user_agent" yaml:"user_agent"`
	MaxItems    int         `toml:"max_items" yaml:"max_items" validate:"gt=0"`
	SummaryDays int         `toml:"summary_days" yaml:"summary_days"`
	Concurrency int         `toml:"concurrency" yaml:"concurrency" validate:"gte=1"`
	Retry       RetryConfig `toml:"retry" yaml:"retry"`
}

// AlertsConfig configures alert thresholds and the broadcast sink
type AlertsConfig struct {
	BroadcastURL      string        `toml:"broadcast_url" yaml:"broadcast_url"` // empty disables broadcast
	DropThreshold     float64       `toml:"drop_threshold" yaml:"drop_threshold" validate:"gt=0"`
	HighDropThreshold float64       `toml:"high_drop_threshold" yaml:"high_drop_threshold" validate:"gtefield=DropThreshold"`
	SpikeThreshold    float64       `toml:"spike_threshold" yaml:"spike_threshold" validate:"gt=0"`
	Confidence        float64       `toml:"confidence" yaml:"confidence"`
	NotifyTimeout     time.Duration `toml:"notify_timeout" yaml:"notify_timeout"`
}

// ForecastConfig configures the random forest and the forecast horizon
type ForecastConfig struct {
	Horizon         int     `toml:"horizon" yaml:"horizon" validate:"gte=1,lte=30"`
	Trees           int     `toml:"trees" yaml:"trees" validate:"gte=1"`
	MaxDepth        int     `toml:"max_depth" yaml:"max_depth" validate:"gte=1"`
	MinSamplesSplit int     `toml:"min_samples_split" yaml:"min_samples_split" validate:"gte=2"`
	Seed            int64   `toml:"seed" yaml:"seed"`
	TestFraction    float64 `toml:"test_fraction" yaml:"test_fraction" validate:"gte=0,lt=1"`
	HistoryLimit    int     `toml:"history_limit" yaml:"history_limit"` // Max records read per commodity (0 = all)
}

// PipelineConfig configures the aggregation pass
type PipelineConfig struct {
	SufficiencyThreshold int           `toml:"sufficiency_threshold" yaml:"sufficiency_threshold"` // Below this primary yield the backup source runs
	ValidationWindow     time.Duration `toml:"validation_window" yaml:"validation_window"`
}

// SchedulerConfig configures cron-driven runs
type SchedulerConfig struct {
	Enabled          bool   `toml:"enabled" yaml:"enabled"`
	CollectSchedule  string `toml:"collect_schedule" yaml:"collect_schedule"`
	ForecastSchedule string `toml:"forecast_schedule" yaml:"forecast_schedule"`
}

// PriceBand is a plausible modal-price range in INR per quintal
type PriceBand struct {
	Low  float64 `toml:"low" yaml:"low"`
	High float64 `toml:"high" yaml:"high"`
}

// TrackingConfig lists what the pipeline covers by default
type TrackingConfig struct {
	Commodities    []string             `toml:"commodities" yaml:"commodities" validate:"min=1"`
	States         []string             `toml:"states" yaml:"states"`
	WeatherCities  map[string]string    `toml:"weather_cities" yaml:"weather_cities"` // state -> city
	PriorityStates []string             `toml:"priority_states" yaml:"priority_states"`
	KnownStates    []string             `toml:"known_states" yaml:"known_states"` // matched against market names by the web scraper
	PriceBands     map[string]PriceBand `toml:"price_bands" yaml:"price_bands"`
	DemandKeywords []string             `toml:"demand_keywords" yaml:"demand_keywords"`
}

// NewDefaultConfig creates a configuration with default values
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8086,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data/mandi",
			},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout", "file"},
			TimeFormat: "15:04:05",
		},
		Sources: SourcesConfig{
			OfficialAPI: OfficialAPIConfig{
				BaseURL:   "https://api.data.gov.in/resource/9ef84268-d588-465a-a308-a864a43d0070",
				PageLimit: 100,
				MaxPages:  10,
				Retry:     defaultRetry(),
			},
			Web: WebSourceConfig{
				URL:       "https://enam.gov.in/web/dashboard/trade-data",
				UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
				Retry:     defaultRetry(),
			},
		},
		Weather: WeatherConfig{
			BaseURL:     "https://api.openweathermap.org/data/2.5/weather",
			Concurrency: 2,
			Retry:       defaultRetry(),
		},
		News: NewsConfig{
			FeedURL:     "https://news.google.com/rss/search?q={query}+price+india",
			UserAgent:   "Mozilla/5.0",
			MaxItems:    10,
			SummaryDays: 7,
			Concurrency: 2,
			Retry:       defaultRetry(),
		},
		Alerts: AlertsConfig{
			BroadcastURL:      "http://localhost:4000/api/market-alerts/broadcast",
			DropThreshold:     0.10,
			HighDropThreshold: 0.15,
			SpikeThreshold:    0.15,
			Confidence:        0.85,
			NotifyTimeout:     5 * time.Second,
		},
		Forecast: ForecastConfig{
			Horizon:         7,
			Trees:           100,
			MaxDepth:        15,
			MinSamplesSplit: 2,
			Seed:            42,
			TestFraction:    0.2,
			HistoryLimit:    60,
		},
		Pipeline: PipelineConfig{
			SufficiencyThreshold: 10,
			ValidationWindow:     24 * time.Hour,
		},
		Scheduler: SchedulerConfig{
			Enabled:          false,
			CollectSchedule:  "0 */6 * * *",
			ForecastSchedule: "30 6 * * *",
		},
		Tracking: TrackingConfig{
			Commodities: []string{"Tomato", "Onion", "Potato", "Wheat", "Rice", "Cotton"},
			States:      []string{"Maharashtra", "Gujarat", "Karnataka", "Uttar Pradesh", "Punjab"},
			WeatherCities: map[string]string{
				"Maharashtra":   "Mumbai",
				"Gujarat":       "Ahmedabad",
				"Karnataka":     "Bangalore",
				"Uttar Pradesh": "Lucknow",
				"Punjab":        "Chandigarh",
			},
			PriorityStates: []string{"Maharashtra", "Gujarat", "Karnataka", "Uttar Pradesh", "Punjab"},
			KnownStates: []string{
				"Maharashtra", "Gujarat", "Karnataka", "Uttar Pradesh", "Punjab",
				"Haryana", "Rajasthan", "Madhya Pradesh", "Tamil Nadu", "Telangana",
				"Andhra Pradesh", "West Bengal", "Bihar", "Odisha", "Kerala",
			},
			PriceBands: map[string]PriceBand{
				"Tomato": {Low: 200, High: 5000},
				"Onion":  {Low: 300, High: 6000},
				"Potato": {Low: 300, High: 4000},
				"Wheat":  {Low: 1500, High: 3500},
				"Rice":   {Low: 2000, High: 5000},
				"Cotton": {Low: 4000, High: 10000},
			},
			DemandKeywords: []string{
				"shortage", "price rise", "export", "high demand",
				"inflation", "supply disruption", "crop damage",
			},
		},
	}
}

func defaultRetry() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		RetryDelay:     2 * time.Second,
		RequestTimeout: 30 * time.Second,
		RequestDelay:   2 * time.Second,
	}
}

// LoadFromFiles loads configuration with priority: defaults -> file1 -> file2 -> ... -> env.
// Later files override earlier files. Files ending in .yaml or .yml are decoded as YAML,
// everything else as TOML.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			err = yaml.Unmarshal(data, config)
		default:
			err = toml.Unmarshal(data, config)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	if err := Validate(config); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks the configuration with go-playground/validator
func Validate(config *Config) error {
	validate := validator.New()
	if err := validate.Struct(config); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("MANDI_ENV"); env != "" {
		config.Environment = env
	}

	// Server configuration
	if port := os.Getenv("MANDI_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("MANDI_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	if badgerPath := os.Getenv("MANDI_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	// Logging configuration
	if level := os.Getenv("MANDI_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("MANDI_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	// Upstream credentials
	if apiKey := os.Getenv("MANDI_DATA_GOV_API_KEY"); apiKey != "" {
		config.Sources.OfficialAPI.APIKey = apiKey
	} else if apiKey := os.Getenv("DATA_GOV_API_KEY"); apiKey != "" {
		config.Sources.OfficialAPI.APIKey = apiKey
	}
	if apiKey := os.Getenv("MANDI_OPENWEATHER_API_KEY"); apiKey != "" {
		config.Weather.APIKey = apiKey
	} else if apiKey := os.Getenv("OPENWEATHER_API_KEY"); apiKey != "" {
		config.Weather.APIKey = apiKey
	}

	if broadcastURL := os.Getenv("MANDI_ALERTS_BROADCAST_URL"); broadcastURL != "" {
		config.Alerts.BroadcastURL = broadcastURL
	} else if backend := os.Getenv("NODE_BACKEND_URL"); backend != "" {
		config.Alerts.BroadcastURL = strings.TrimRight(backend, "/") + "/api/market-alerts/broadcast"
	}

	if threshold := os.Getenv("MANDI_ALERTS_DROP_THRESHOLD"); threshold != "" {
		if v, err := strconv.ParseFloat(threshold, 64); err == nil {
			config.Alerts.DropThreshold = v
		}
	}
	if threshold := os.Getenv("MANDI_ALERTS_SPIKE_THRESHOLD"); threshold != "" {
		if v, err := strconv.ParseFloat(threshold, 64); err == nil {
			config.Alerts.SpikeThreshold = v
		}
	}

	if threshold := os.Getenv("MANDI_PIPELINE_SUFFICIENCY_THRESHOLD"); threshold != "" {
		if v, err := strconv.Atoi(threshold); err == nil {
			config.Pipeline.SufficiencyThreshold = v
		}
	}

	if enabled := os.Getenv("MANDI_SCHEDULER_ENABLED"); enabled != "" {
		if v, err := strconv.ParseBool(enabled); err == nil {
			config.Scheduler.Enabled = v
		}
	}

	if commodities := os.Getenv("MANDI_TRACKING_COMMODITIES"); commodities != "" {
		config.Tracking.Commodities = SplitList(commodities)
	}
	if states := os.Getenv("MANDI_TRACKING_STATES"); states != "" {
		config.Tracking.States = SplitList(states)
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config (highest priority)
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port != 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// SplitList splits a comma-separated list, dropping blanks
func SplitList(value string) []string {
	var items []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
