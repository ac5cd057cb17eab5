package models

import "time"

// WeatherImpact is the coarse agricultural impact of current weather
type WeatherImpact string

const (
	ImpactPositive WeatherImpact = "positive"
	ImpactNeutral  WeatherImpact = "neutral"
	ImpactNegative WeatherImpact = "negative"
)

// ImpactAssessment is derived from a snapshot's temperature, rainfall and condition
type ImpactAssessment struct {
	Overall WeatherImpact `json:"overall_impact"`
	Factors []string      `json:"factors"`
}

// WeatherSnapshot is one state's weather at fetch time.
// Snapshots are inserted, never overwritten; newer snapshots supersede older ones.
type WeatherSnapshot struct {
	ID    string `json:"id" badgerhold:"key"`
	State string `json:"state" badgerholdIndex:"State"`
	City  string `json:"city"`

	Temperature float64 `json:"temperature"` // Celsius
	FeelsLike   float64 `json:"feels_like"`
	Humidity    float64 `json:"humidity"` // percent
	Pressure    float64 `json:"pressure"` // hPa
	WindSpeed   float64 `json:"wind_speed"`

	Condition   string  `json:"weather_condition"`
	Description string  `json:"weather_description"`
	Rainfall1h  float64 `json:"rainfall_1h"` // mm
	Rainfall3h  float64 `json:"rainfall_3h"` // mm

	Impact    ImpactAssessment `json:"impact_analysis"`
	Source    string           `json:"source"`
	FetchedAt time.Time        `json:"timestamp"`
}
