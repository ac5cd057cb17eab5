package models

import "time"

// Sentiment is the supply/demand reading of a headline
type Sentiment string

const (
	SentimentBullish Sentiment = "bullish"
	SentimentBearish Sentiment = "bearish"
	SentimentNeutral Sentiment = "neutral"
)

// NewsItem is one article relevant to a commodity, deduplicated by URL
type NewsItem struct {
	URL       string `json:"url" badgerhold:"key"`
	ID        string `json:"id"`
	Commodity string `json:"commodity" badgerholdIndex:"Commodity"`
	Headline  string `json:"headline"`
	Publisher string `json:"source"`

	PublishedAt time.Time `json:"published_at"`
	FetchedAt   time.Time `json:"fetched_at"`

	Sentiment     Sentiment `json:"sentiment"`
	DemandSignals []string  `json:"demand_signals"`
}

// DemandSummary aggregates recent news signals for one commodity
type DemandSummary struct {
	Commodity          string            `json:"commodity"`
	OverallSentiment   Sentiment         `json:"overall_sentiment"`
	NewsCount          int               `json:"news_count"`
	TopSignals         []string          `json:"top_signals"`
	SentimentBreakdown map[Sentiment]int `json:"sentiment_breakdown"`
}
