package news

import (
	"sort"
	"strings"

	"github.com/ternarybob/mandi/internal/models"
)

var (
	positiveKeywords = []string{"high demand", "export", "good harvest", "bumper crop"}
	negativeKeywords = []string{"shortage", "crop damage", "supply disruption", "price rise", "inflation"}
)

// Analyze scores a headline. More negative than positive keywords reads as
// bearish, the reverse as bullish. Every matched keyword is a demand signal.
func Analyze(text string, extraSignals []string) (models.Sentiment, []string) {
	lower := strings.ToLower(text)

	var signals []string
	seen := make(map[string]bool)
	match := func(keywords []string) int {
		hits := 0
		for _, kw := range keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw == "" || !strings.Contains(lower, kw) {
				continue
			}
			hits++
			if !seen[kw] {
				seen[kw] = true
				signals = append(signals, kw)
			}
		}
		return hits
	}

	positive := match(positiveKeywords)
	negative := match(negativeKeywords)
	match(extraSignals)

	sentiment := models.SentimentNeutral
	switch {
	case negative > positive:
		sentiment = models.SentimentBearish
	case positive > negative:
		sentiment = models.SentimentBullish
	}
	if signals == nil {
		signals = []string{}
	}
	return sentiment, signals
}

// Summarize folds recent items into a DemandSummary
func Summarize(commodity string, items []*models.NewsItem, topN int) *models.DemandSummary {
	summary := &models.DemandSummary{
		Commodity:        commodity,
		OverallSentiment: models.SentimentNeutral,
		NewsCount:        len(items),
		TopSignals:       []string{},
		SentimentBreakdown: map[models.Sentiment]int{
			models.SentimentBullish: 0,
			models.SentimentBearish: 0,
			models.SentimentNeutral: 0,
		},
	}

	frequency := make(map[string]int)
	for _, item := range items {
		summary.SentimentBreakdown[item.Sentiment]++
		for _, signal := range item.DemandSignals {
			frequency[signal]++
		}
	}

	bullish := summary.SentimentBreakdown[models.SentimentBullish]
	bearish := summary.SentimentBreakdown[models.SentimentBearish]
	switch {
	case bullish > bearish:
		summary.OverallSentiment = models.SentimentBullish
	case bearish > bullish:
		summary.OverallSentiment = models.SentimentBearish
	}

	for signal := range frequency {
		summary.TopSignals = append(summary.TopSignals, signal)
	}
	sort.Slice(summary.TopSignals, func(i, j int) bool {
		a, b := summary.TopSignals[i], summary.TopSignals[j]
		if frequency[a] != frequency[b] {
			return frequency[a] > frequency[b]
		}
		return a < b
	})
	if len(summary.TopSignals) > topN {
		summary.TopSignals = summary.TopSignals[:topN]
	}

	return summary
}
