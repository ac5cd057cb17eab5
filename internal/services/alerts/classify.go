package alerts

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
	"github.com/ternarybob/mandi/internal/common"
	"github.com/ternarybob/mandi/internal/models"
)

// Thresholds are the fractional price moves that raise alerts
type Thresholds struct {
	Drop     decimal.Decimal
	HighDrop decimal.Decimal
	Spike    decimal.Decimal
}

// NewThresholds reads thresholds from config
func NewThresholds(config common.AlertsConfig) Thresholds {
	return Thresholds{
		Drop:     decimal.NewFromFloat(config.DropThreshold),
		HighDrop: decimal.NewFromFloat(config.HighDropThreshold),
		Spike:    decimal.NewFromFloat(config.SpikeThreshold),
	}
}

// ChangeFraction returns (predicted - current) / current
func ChangeFraction(current, predicted decimal.Decimal) decimal.Decimal {
	return predicted.Sub(current).Div(current)
}

// Classify maps a fractional change to an alert type and severity. Drops are
// checked before spikes; ok is false when the move is inside both thresholds.
func (t Thresholds) Classify(change decimal.Decimal) (models.AlertType, models.AlertSeverity, bool) {
	if change.LessThanOrEqual(t.Drop.Neg()) {
		if change.LessThanOrEqual(t.HighDrop.Neg()) {
			return models.AlertPriceDrop, models.SeverityHigh, true
		}
		return models.AlertPriceDrop, models.SeverityMedium, true
	}
	if change.GreaterThanOrEqual(t.Spike) {
		return models.AlertPriceSpike, models.SeverityMedium, true
	}
	return "", "", false
}

// messages returns the title and the English and Hindi bodies for a price alert
func messages(alertType models.AlertType, commodity string, change, predicted float64) (string, string, string) {
	pct := math.Abs(change) * 100
	if alertType == models.AlertPriceDrop {
		return fmt.Sprintf("%s Price Drop Alert", commodity),
			fmt.Sprintf("%s prices expected to drop %.1f%% to ₹%.2f/quintal. Consider selling now.", commodity, pct, predicted),
			fmt.Sprintf("%s का भाव %.1f%% घट सकता है। ₹%.2f/क्विंटल। अभी बेचें।", commodity, pct, predicted)
	}
	return fmt.Sprintf("%s Price Increase Alert", commodity),
		fmt.Sprintf("%s prices expected to rise %.1f%% to ₹%.2f/quintal. Hold for better rates.", commodity, pct, predicted),
		fmt.Sprintf("%s का भाव %.1f%% बढ़ सकता है। ₹%.2f/क्विंटल। बेहतर भाव के लिए रुकें।", commodity, pct, predicted)
}
