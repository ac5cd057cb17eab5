package forecast

import (
	"math"
	"sort"
	"time"

	"github.com/montanaflynn/stats"
	"github.com/ternarybob/mandi/internal/models"
)

// window is the lag/rolling horizon; the first window observations have no
// complete feature row.
const window = 7

// observation is one day's modal price for a commodity
type observation struct {
	Date  time.Time
	Price float64
}

// dailySeries collapses records to one observation per calendar date
// (mean modal price across markets), ordered by date ascending.
func dailySeries(records []*models.PriceRecord) []observation {
	sums := make(map[time.Time]float64)
	counts := make(map[time.Time]int)
	for _, r := range records {
		if r == nil || !r.ModalPrice.IsPositive() {
			continue
		}
		day := models.TruncateToDate(r.Date)
		sums[day] += r.ModalFloat()
		counts[day]++
	}

	series := make([]observation, 0, len(sums))
	for day, sum := range sums {
		series = append(series, observation{Date: day, Price: sum / float64(counts[day])})
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Date.Before(series[j].Date) })
	return series
}

// PrepareFeatures builds the feature table for one commodity. Rows whose lag
// or rolling values would be undefined are dropped, so n daily observations
// yield max(0, n-7) rows. The rolling window includes the row's own price.
func PrepareFeatures(commodity string, history []*models.PriceRecord) []models.FeatureRow {
	series := dailySeries(history)
	if len(series) <= window {
		return nil
	}

	prices := make([]float64, len(series))
	for i, obs := range series {
		prices[i] = obs.Price
	}

	rows := make([]models.FeatureRow, 0, len(series)-window)
	for i := window; i < len(series); i++ {
		rolling := prices[i-window+1 : i+1]
		ma, _ := stats.Mean(rolling)
		std, _ := stats.StandardDeviationSample(rolling)

		rows = append(rows, models.FeatureRow{
			Commodity:  commodity,
			Date:       series[i].Date,
			ModalPrice: prices[i],
			Lag1:       prices[i-1],
			Lag7:       prices[i-window],
			MA7:        ma,
			Std7:       std,
			DayOfWeek:  weekdayIndex(series[i].Date),
			Month:      int(series[i].Date.Month()),
		})
	}
	return rows
}

// weekdayIndex numbers days Monday = 0 through Sunday = 6
func weekdayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}
