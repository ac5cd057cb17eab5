package officialapi

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/ternarybob/mandi/internal/models"
	"github.com/ternarybob/mandi/internal/sources"
)

// Candidate keys per logical field, tried in order. The API has used both
// snake_case and title-case names for the same columns.
var (
	commodityKeys = []string{"commodity", "Commodity"}
	stateKeys     = []string{"state", "State"}
	districtKeys  = []string{"district", "District"}
	marketKeys    = []string{"market", "Market"}
	modalKeys     = []string{"modal_price", "Modal Price", "Modal_x0020_Price", "modal"}
	minKeys       = []string{"min_price", "Min Price", "Min_x0020_Price", "minimum"}
	maxKeys       = []string{"max_price", "Max Price", "Max_x0020_Price", "maximum"}
	arrivalKeys   = []string{"arrival_quantity", "Arrivals", "arrivals"}
	tradedKeys    = []string{"traded_quantity", "Traded Quantity"}
	unitKeys      = []string{"unit", "Unit"}
	dateKeys      = []string{"date", "Date", "arrival_date", "Arrival_Date"}
)

var (
	minFactor = decimal.NewFromFloat(0.9)
	maxFactor = decimal.NewFromFloat(1.1)
)

const qualityScore = 9

// Normalize maps one raw API record to a PriceRecord. Records without a
// commodity are rejected with a NormalizationError. A missing or non-numeric
// modal price becomes zero and the record is kept for the validator.
func Normalize(raw map[string]any, now time.Time) (*models.PriceRecord, error) {
	commodity := sources.PickString(raw, commodityKeys...)
	if commodity == "" {
		return nil, &models.NormalizationError{Source: sourceName, Field: "commodity", Reason: "missing"}
	}

	modal, ok := sources.PickDecimal(raw, modalKeys...)
	if !ok {
		modal = decimal.Zero
	}

	minPrice, ok := sources.PickDecimal(raw, minKeys...)
	if !ok {
		minPrice = modal.Mul(minFactor)
	}
	maxPrice, ok := sources.PickDecimal(raw, maxKeys...)
	if !ok {
		maxPrice = modal.Mul(maxFactor)
	}

	arrival, _ := sources.PickDecimal(raw, arrivalKeys...)
	traded, _ := sources.PickDecimal(raw, tradedKeys...)

	unit := sources.PickString(raw, unitKeys...)
	if unit == "" {
		unit = models.DefaultUnit
	}

	return &models.PriceRecord{
		Commodity:        commodity,
		State:            sources.PickString(raw, stateKeys...),
		District:         sources.PickString(raw, districtKeys...),
		Market:           sources.PickString(raw, marketKeys...),
		ModalPrice:       modal,
		MinPrice:         minPrice,
		MaxPrice:         maxPrice,
		ArrivalQuantity:  arrival,
		TradedQuantity:   traded,
		Unit:             unit,
		Date:             sources.ParseDate(sources.PickString(raw, dateKeys...), now),
		Source:           models.SourceOfficialAPI,
		ScrapedAt:        now,
		DataQualityScore: qualityScore,
	}, nil
}
