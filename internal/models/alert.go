package models

import "time"

// AlertType classifies why an alert was raised
type AlertType string

const (
	AlertPriceDrop  AlertType = "PRICE_DROP"
	AlertPriceSpike AlertType = "PRICE_SPIKE"
	AlertDemand     AlertType = "DEMAND"
)

// AlertSeverity ranks alert urgency
type AlertSeverity string

const (
	SeverityHigh   AlertSeverity = "HIGH"
	SeverityMedium AlertSeverity = "MEDIUM"
)

// AlertMetadata records provenance of an alert
type AlertMetadata struct {
	Source     string  `json:"source"` // ML_Prediction, Manual
	Confidence float64 `json:"confidence,omitempty"`
	Actionable bool    `json:"actionable"`
}

// Alert is an actionable notification. Alerts are append-only.
type Alert struct {
	ID       string        `json:"id" badgerhold:"key"`
	Type     AlertType     `json:"type"`
	Severity AlertSeverity `json:"severity"`

	Commodity    string `json:"commodity" badgerholdIndex:"Commodity"`
	Title        string `json:"title"`
	Message      string `json:"message"`
	MessageHindi string `json:"messageHindi"`

	CurrentPrice     float64 `json:"current_price,omitempty"`
	PredictedPrice   float64 `json:"predicted_price,omitempty"`
	ChangePercentage float64 `json:"change_percentage,omitempty"`

	TargetUsers  []string      `json:"targetUsers"`
	TargetStates []string      `json:"targetStates"`
	Metadata     AlertMetadata `json:"metadata"`
	CreatedAt    time.Time     `json:"createdAt"`
}
