package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PriceSource identifies which adapter produced a price record
type PriceSource string

const (
	SourceOfficialAPI PriceSource = "OfficialAPI"
	SourceWebBackup   PriceSource = "WebBackup"
	SourceSynthetic   PriceSource = "Synthetic"
)

// DefaultUnit is the trading unit reported by mandi price feeds
const DefaultUnit = "Quintal"

// DateLayout is the calendar-date layout used in identity keys and API output
const DateLayout = "2006-01-02"

// PriceRecord is one commodity's price at one market on one date.
// Prices and quantities are non-negative decimals; Min <= Modal <= Max is a
// target but is not enforced at ingest.
type PriceRecord struct {
	ID string `json:"id" badgerhold:"key"` // identity key, see IdentityKey

	Commodity string `json:"commodity" validate:"required" badgerholdIndex:"Commodity"`
	State     string `json:"state"`
	District  string `json:"district"`
	Market    string `json:"market"`

	ModalPrice decimal.Decimal `json:"modal_price"`
	MinPrice   decimal.Decimal `json:"min_price"`
	MaxPrice   decimal.Decimal `json:"max_price"`

	ArrivalQuantity decimal.Decimal `json:"arrival_quantity"`
	TradedQuantity  decimal.Decimal `json:"traded_quantity"`
	Unit            string          `json:"unit"`

	Date             time.Time   `json:"date"` // source-reported calendar date (UTC midnight)
	Source           PriceSource `json:"source"`
	ScrapedAt        time.Time   `json:"scraped_at"`
	DataQualityScore int         `json:"data_quality_score"` // 0-10 trust weight assigned by the source
	IsPriorityRegion bool        `json:"is_priority_region"`
}

// IdentityKey returns the dedup/upsert key (commodity, market, state, date).
func (r *PriceRecord) IdentityKey() string {
	return IdentityKey(r.Commodity, r.Market, r.State, r.Date)
}

// IdentityKey builds the canonical identity key for a price record
func IdentityKey(commodity, market, state string, date time.Time) string {
	return strings.Join([]string{
		strings.ToLower(strings.TrimSpace(commodity)),
		strings.ToLower(strings.TrimSpace(market)),
		strings.ToLower(strings.TrimSpace(state)),
		date.Format(DateLayout),
	}, "|")
}

// TruncateToDate drops the clock component, keeping the calendar date in UTC
func TruncateToDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ModalFloat returns the modal price as float64 for numeric work
func (r *PriceRecord) ModalFloat() float64 {
	return r.ModalPrice.InexactFloat64()
}
