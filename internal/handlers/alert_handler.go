package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/mandi/internal/models"
)

const (
	defaultAlertLimit = 50
	maxAlertLimit     = 500
)

// AlertHandler generates and lists market alerts
type AlertHandler struct {
	alerts      AlertManager
	forecaster  Forecaster
	horizon     int
	commodities []string
	logger      arbor.ILogger
}

// NewAlertHandler creates a new alert handler. Generation without a commodity
// covers every tracked commodity.
func NewAlertHandler(alerts AlertManager, forecaster Forecaster, horizon int, commodities []string, logger arbor.ILogger) *AlertHandler {
	if horizon <= 0 {
		horizon = 7
	}
	return &AlertHandler{
		alerts:      alerts,
		forecaster:  forecaster,
		horizon:     horizon,
		commodities: commodities,
		logger:      logger,
	}
}

// GenerateHandler handles POST /api/alerts/generate?commodity= - forecasts then classifies
func (h *AlertHandler) GenerateHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	commodities := h.commodities
	if c := QueryCommodity(r); c != "" {
		commodities = []string{c}
	}

	var forecasts []models.Forecast
	skipped := make(map[string]string)
	for _, commodity := range commodities {
		predicted, err := h.forecaster.PredictNextNDays(r.Context(), commodity, h.horizon)
		if err != nil {
			if !errors.Is(err, models.ErrModelNotTrained) {
				h.logger.Warn().Err(err).Str("commodity", commodity).Msg("Forecast failed during alert generation")
			}
			skipped[commodity] = err.Error()
			continue
		}
		forecasts = append(forecasts, predicted...)
	}

	generated, err := h.alerts.GenerateAlerts(r.Context(), forecasts)
	if err != nil {
		h.logger.Error().Err(err).Msg("Alert generation failed")
		WriteError(w, http.StatusInternalServerError, "Alert generation failed")
		return
	}

	response := map[string]interface{}{
		"forecasts": len(forecasts),
		"alerts":    generated,
	}
	if len(skipped) > 0 {
		response["skipped"] = skipped
	}
	WriteJSON(w, http.StatusOK, response)
}

// ListHandler handles GET /api/alerts?commodity=&limit= - newest first
func (h *AlertHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	alerts, err := h.alerts.List(r.Context(), QueryCommodity(r), QueryInt(r, "limit", defaultAlertLimit, maxAlertLimit))
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list alerts")
		WriteError(w, http.StatusInternalServerError, "Failed to list alerts")
		return
	}

	WriteJSON(w, http.StatusOK, alerts)
}

type demandAlertRequest struct {
	Commodity string `json:"commodity"`
	Message   string `json:"message"`
}

// DemandHandler handles POST /api/alerts/demand - records a manual demand alert
func (h *AlertHandler) DemandHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req demandAlertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Commodity = strings.TrimSpace(req.Commodity)
	req.Message = strings.TrimSpace(req.Message)
	if req.Commodity == "" || req.Message == "" {
		WriteError(w, http.StatusBadRequest, "commodity and message are required")
		return
	}

	alert, err := h.alerts.CreateDemandAlert(r.Context(), req.Commodity, req.Message)
	if err != nil {
		h.logger.Error().Err(err).Str("commodity", req.Commodity).Msg("Failed to create demand alert")
		WriteError(w, http.StatusInternalServerError, "Failed to create demand alert")
		return
	}

	WriteJSON(w, http.StatusCreated, alert)
}
