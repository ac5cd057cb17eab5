package sources

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePrice(t *testing.T) {
	d, err := ParsePrice("₹1,250.50")
	require.NoError(t, err)
	assert.Equal(t, "1250.5", d.String())

	_, err = ParsePrice("  ")
	assert.Error(t, err)

	_, err = ParsePrice("n/a")
	assert.Error(t, err)
}

func TestParseDate(t *testing.T) {
	now := time.Date(2024, time.June, 9, 15, 30, 0, 0, time.UTC)

	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-03-05", time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)},
		{"05-03-2024", time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)},
		{"05/03/2024", time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)},
		{"March 5", time.Date(2024, time.June, 9, 0, 0, 0, 0, time.UTC)},
		{"", time.Date(2024, time.June, 9, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		assert.True(t, tt.want.Equal(ParseDate(tt.in, now)), tt.in)
	}
}

func TestPickHelpers(t *testing.T) {
	raw := map[string]any{
		"Modal Price": json.Number("1800"),
		"modal_price": "",
		"Market":      " Azadpur ",
	}

	assert.Equal(t, "Azadpur", PickString(raw, "market", "Market"))

	d, ok := PickDecimal(raw, "modal_price", "Modal Price", "modal")
	require.True(t, ok)
	assert.Equal(t, "1800", d.String())

	_, ok = PickDecimal(raw, "min_price")
	assert.False(t, ok)
}

func TestCanonicalCommodity(t *testing.T) {
	assert.Equal(t, "Tomato", CanonicalCommodity("Tomato", "TOMATO "))
	assert.Equal(t, "Onion", CanonicalCommodity("Tomato", "Onion"))
}
