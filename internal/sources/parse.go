// Package sources holds the parsing helpers shared by the price adapters.
package sources

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/ternarybob/mandi/internal/models"
)

// dateLayouts are tried in order when a source reports a calendar date
var dateLayouts = []string{
	"2006-01-02",
	"02-01-2006",
	"02/01/2006",
}

var priceReplacer = strings.NewReplacer(",", "", "₹", "", "Rs.", "", "Rs", "", " ", "")

// ParsePrice parses a displayed price such as "₹1,250.50"
func ParsePrice(value string) (decimal.Decimal, error) {
	cleaned := priceReplacer.Replace(strings.TrimSpace(value))
	if cleaned == "" {
		return decimal.Zero, fmt.Errorf("empty price")
	}
	return decimal.NewFromString(cleaned)
}

// ParseDate parses a source date, falling back to the calendar date of now
// when the value is empty or in no known layout.
func ParseDate(value string, now time.Time) time.Time {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return models.TruncateToDate(t)
		}
	}
	return models.TruncateToDate(now)
}

// PickString returns the first non-empty value among the candidate keys
func PickString(raw map[string]any, keys ...string) string {
	for _, key := range keys {
		value, ok := raw[key]
		if !ok || value == nil {
			continue
		}
		var s string
		switch v := value.(type) {
		case string:
			s = v
		case json.Number:
			s = v.String()
		default:
			s = fmt.Sprint(v)
		}
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}

// PickDecimal returns the first candidate key holding a parseable number
func PickDecimal(raw map[string]any, keys ...string) (decimal.Decimal, bool) {
	for _, key := range keys {
		s := PickString(raw, key)
		if s == "" {
			continue
		}
		if d, err := ParsePrice(s); err == nil {
			return d, true
		}
	}
	return decimal.Zero, false
}

// ContainsFold reports whether value matches any entry ignoring case
func ContainsFold(values []string, value string) bool {
	value = strings.TrimSpace(value)
	for _, v := range values {
		if strings.EqualFold(strings.TrimSpace(v), value) {
			return true
		}
	}
	return false
}

// CanonicalCommodity keeps the caller's spelling when the source differs only in case
func CanonicalCommodity(requested, reported string) string {
	reported = strings.TrimSpace(reported)
	if requested != "" && strings.EqualFold(requested, reported) {
		return requested
	}
	return reported
}
