package handlers

import (
	"errors"
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/mandi/internal/models"
)

const maxForecastDays = 30

// ForecastHandler trains models and serves predictions
type ForecastHandler struct {
	forecaster Forecaster
	horizon    int
	logger     arbor.ILogger
}

// NewForecastHandler creates a new forecast handler; horizon is the default days parameter
func NewForecastHandler(forecaster Forecaster, horizon int, logger arbor.ILogger) *ForecastHandler {
	if horizon <= 0 {
		horizon = 7
	}
	return &ForecastHandler{
		forecaster: forecaster,
		horizon:    horizon,
		logger:     logger,
	}
}

// TrainHandler handles POST /api/forecast/train?commodity=
func (h *ForecastHandler) TrainHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	commodity := QueryCommodity(r)
	if commodity == "" {
		WriteError(w, http.StatusBadRequest, "Missing commodity parameter")
		return
	}

	metrics, err := h.forecaster.Train(r.Context(), commodity)
	if err != nil {
		if errors.Is(err, models.ErrInsufficientHistory) {
			WriteError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		h.logger.Error().Err(err).Str("commodity", commodity).Msg("Model training failed")
		WriteError(w, http.StatusInternalServerError, "Model training failed")
		return
	}

	WriteJSON(w, http.StatusOK, metrics)
}

// ForecastHandler handles GET /api/forecast?commodity=&days=
func (h *ForecastHandler) ForecastHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	commodity := QueryCommodity(r)
	if commodity == "" {
		WriteError(w, http.StatusBadRequest, "Missing commodity parameter")
		return
	}
	days := QueryInt(r, "days", h.horizon, maxForecastDays)

	forecasts, err := h.forecaster.PredictNextNDays(r.Context(), commodity, days)
	if err != nil {
		if errors.Is(err, models.ErrModelNotTrained) {
			WriteError(w, http.StatusConflict, "No trained model for "+commodity)
			return
		}
		h.logger.Error().Err(err).Str("commodity", commodity).Msg("Forecast failed")
		WriteError(w, http.StatusInternalServerError, "Forecast failed")
		return
	}

	response := map[string]interface{}{
		"commodity": commodity,
		"days":      days,
		"forecasts": forecasts,
	}
	if metrics, err := h.forecaster.Metrics(r.Context(), commodity); err == nil {
		response["metrics"] = metrics
	}

	WriteJSON(w, http.StatusOK, response)
}
