package models

import "time"

// Forecast is one predicted price for one commodity on one future date.
// Forecasts are computed on demand and never persisted.
type Forecast struct {
	Commodity         string    `json:"commodity"`
	Date              time.Time `json:"date"`
	DayOffset         int       `json:"day"` // 1..N
	PredictedPrice    float64   `json:"predicted_price"`
	LastObservedPrice float64   `json:"last_observed_price"`
}

// FeatureRow is one fully-populated row of the forecasting feature table
type FeatureRow struct {
	Commodity  string    `json:"commodity"`
	Date       time.Time `json:"date"`
	ModalPrice float64   `json:"modal_price"`
	Lag1       float64   `json:"price_lag_1"`
	Lag7       float64   `json:"price_lag_7"`
	MA7        float64   `json:"price_ma_7"`
	Std7       float64   `json:"price_std_7"`
	DayOfWeek  int       `json:"day_of_week"` // Monday = 0
	Month      int       `json:"month"`
}

// Vector returns the model input in fixed feature order
func (f FeatureRow) Vector() []float64 {
	return []float64{f.Lag1, f.Lag7, f.MA7, f.Std7, float64(f.DayOfWeek), float64(f.Month)}
}

// FeatureNames lists model inputs in the order used by FeatureRow.Vector
var FeatureNames = []string{"price_lag_1", "price_lag_7", "price_ma_7", "price_std_7", "day_of_week", "month"}

// TrainingMetrics reports holdout quality of a trained model
type TrainingMetrics struct {
	Commodity    string    `json:"commodity"`
	MAE          float64   `json:"mae"`
	R2           float64   `json:"r2"`
	TrainRows    int       `json:"train_rows"`
	TestRows     int       `json:"test_rows"`
	ModelVersion uint64    `json:"model_version"`
	TrainedAt    time.Time `json:"trained_at"`
}
