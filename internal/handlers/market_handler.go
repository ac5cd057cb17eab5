package handlers

import (
	"errors"
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/mandi/internal/interfaces"
	"github.com/ternarybob/mandi/internal/models"
)

const (
	defaultHistoryLimit = 100
	maxHistoryLimit     = 1000
	defaultWeatherLimit = 50
)

// MarketHandler serves stored prices, weather snapshots and news demand summaries
type MarketHandler struct {
	prices  interfaces.PriceStorage
	weather interfaces.WeatherStorage
	news    DemandSummarizer
	logger  arbor.ILogger
}

// NewMarketHandler creates a new market data handler
func NewMarketHandler(prices interfaces.PriceStorage, weather interfaces.WeatherStorage, news DemandSummarizer, logger arbor.ILogger) *MarketHandler {
	return &MarketHandler{
		prices:  prices,
		weather: weather,
		news:    news,
		logger:  logger,
	}
}

// PricesHandler handles GET /api/prices?commodity=&limit= - price history ascending by date
func (h *MarketHandler) PricesHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	commodity := QueryCommodity(r)
	if commodity == "" {
		WriteError(w, http.StatusBadRequest, "Missing commodity parameter")
		return
	}

	limit := QueryInt(r, "limit", defaultHistoryLimit, maxHistoryLimit)
	records, err := h.prices.History(r.Context(), commodity, limit)
	if err != nil {
		h.logger.Error().Err(err).Str("commodity", commodity).Msg("Failed to read price history")
		WriteError(w, http.StatusInternalServerError, "Failed to read price history")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"commodity": commodity,
		"count":     len(records),
		"records":   records,
	})
}

// LatestPriceHandler handles GET /api/prices/latest?commodity=
func (h *MarketHandler) LatestPriceHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	commodity := QueryCommodity(r)
	if commodity == "" {
		WriteError(w, http.StatusBadRequest, "Missing commodity parameter")
		return
	}

	record, err := h.prices.Latest(r.Context(), commodity)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "No prices recorded for "+commodity)
			return
		}
		h.logger.Error().Err(err).Str("commodity", commodity).Msg("Failed to read latest price")
		WriteError(w, http.StatusInternalServerError, "Failed to read latest price")
		return
	}

	WriteJSON(w, http.StatusOK, record)
}

// WeatherHandler handles GET /api/weather?state= - latest snapshot for a state, or recent snapshots
func (h *MarketHandler) WeatherHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	if state := r.URL.Query().Get("state"); state != "" {
		snapshot, err := h.weather.LatestByState(r.Context(), state)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				WriteError(w, http.StatusNotFound, "No weather recorded for "+state)
				return
			}
			h.logger.Error().Err(err).Str("state", state).Msg("Failed to read weather")
			WriteError(w, http.StatusInternalServerError, "Failed to read weather")
			return
		}
		WriteJSON(w, http.StatusOK, snapshot)
		return
	}

	snapshots, err := h.weather.List(r.Context(), QueryInt(r, "limit", defaultWeatherLimit, maxHistoryLimit))
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list weather snapshots")
		WriteError(w, http.StatusInternalServerError, "Failed to list weather snapshots")
		return
	}

	WriteJSON(w, http.StatusOK, snapshots)
}

// NewsSummaryHandler handles GET /api/news/summary?commodity=
func (h *MarketHandler) NewsSummaryHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	commodity := QueryCommodity(r)
	if commodity == "" {
		WriteError(w, http.StatusBadRequest, "Missing commodity parameter")
		return
	}

	summary, err := h.news.DemandSummary(r.Context(), commodity)
	if err != nil {
		h.logger.Error().Err(err).Str("commodity", commodity).Msg("Failed to summarise news")
		WriteError(w, http.StatusInternalServerError, "Failed to summarise news")
		return
	}

	WriteJSON(w, http.StatusOK, summary)
}
