package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/mandi/internal/services/pipeline"
)

// PipelineHandler triggers aggregation passes over HTTP
type PipelineHandler struct {
	runner PipelineRunner
	logger arbor.ILogger
}

// NewPipelineHandler creates a new pipeline handler
func NewPipelineHandler(runner PipelineRunner, logger arbor.ILogger) *PipelineHandler {
	return &PipelineHandler{
		runner: runner,
		logger: logger,
	}
}

type runRequest struct {
	Commodity string   `json:"commodity"`
	States    []string `json:"states"`
}

// RunHandler handles POST /api/pipeline/run - runs one pass and returns its report.
// Scope comes from a JSON body or from commodity/states query parameters.
func (h *PipelineHandler) RunHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	opts := pipeline.RunOptions{
		Commodity: QueryCommodity(r),
		States:    QueryStates(r),
	}

	if r.Body != nil && r.ContentLength != 0 {
		var req runRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if c := strings.TrimSpace(req.Commodity); c != "" {
			opts.Commodity = c
		}
		if len(req.States) > 0 {
			opts.States = req.States
		}
	}

	report, err := h.runner.Run(r.Context(), opts)
	if err != nil {
		h.logger.Error().Err(err).Msg("Pipeline run aborted")
		WriteError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, report)
}
