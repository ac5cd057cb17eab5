package validation

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/mandi/internal/common"
	"github.com/ternarybob/mandi/internal/models"
)

func newTestService() *PriceValidationService {
	tracking := common.TrackingConfig{
		PriceBands: map[string]common.PriceBand{
			"Tomato": {Low: 200, High: 5000},
		},
	}
	return NewPriceValidationService(tracking, arbor.NewLogger())
}

func record(commodity string, modal int64) *models.PriceRecord {
	return &models.PriceRecord{Commodity: commodity, ModalPrice: decimal.NewFromInt(modal)}
}

func TestValidate_TomatoBand(t *testing.T) {
	service := newTestService()

	low := service.Validate([]*models.PriceRecord{record("Tomato", 50)})
	assert.Equal(t, models.ValidationStats{Total: 1, Invalid: 1, Outliers: 1}, low)

	ok := service.Validate([]*models.PriceRecord{record("Tomato", 1000)})
	assert.Equal(t, models.ValidationStats{Total: 1}, ok)
}

func TestValidate_ZeroModalIsInvalidAndOutlier(t *testing.T) {
	service := newTestService()

	finding := service.Check(record("Tomato", 0))
	assert.True(t, finding.Invalid)
	assert.True(t, finding.Outlier)
	assert.Equal(t, "missing modal price, modal price outside plausible band", finding.Reason)

	stats := service.Validate([]*models.PriceRecord{
		record("Tomato", 0),
		{Commodity: "Tomato"}, // modal never set
		record("Onion", 0),    // no band configured
	})
	assert.Equal(t, models.ValidationStats{Total: 3, Invalid: 3, Outliers: 2}, stats)
}

func TestValidate_StructuralChecks(t *testing.T) {
	service := newTestService()

	stats := service.Validate([]*models.PriceRecord{
		record("", 1000),
		record("Onion", 0),
		record("Onion", 99999), // no band configured
		record("tomato", 5001),
	})

	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 3, stats.Invalid)
	assert.Equal(t, 1, stats.Outliers)
	assert.Equal(t, 1, stats.Valid())
}

func TestValidate_QuarantineHookSeesFailures(t *testing.T) {
	service := newTestService()

	var reasons []string
	service.SetQuarantineHook(func(r *models.PriceRecord, reason string) {
		reasons = append(reasons, reason)
	})

	service.Validate([]*models.PriceRecord{record("Tomato", 50), record("Tomato", 800)})
	assert.Equal(t, []string{"modal price outside plausible band"}, reasons)
}
