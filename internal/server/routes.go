package server

import (
	"net/http"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// WebSocket alert feed
	mux.HandleFunc("/ws/alerts", s.app.AlertHub.HandleWebSocket)

	// API routes - Pipeline
	mux.HandleFunc("/api/pipeline/run", s.app.PipelineHandler.RunHandler) // POST

	// API routes - Market data
	mux.HandleFunc("/api/prices", s.app.MarketHandler.PricesHandler)
	mux.HandleFunc("/api/prices/latest", s.app.MarketHandler.LatestPriceHandler)
	mux.HandleFunc("/api/weather", s.app.MarketHandler.WeatherHandler)
	mux.HandleFunc("/api/news/summary", s.app.MarketHandler.NewsSummaryHandler)

	// API routes - Forecast
	mux.HandleFunc("/api/forecast", s.app.ForecastHandler.ForecastHandler)    // GET
	mux.HandleFunc("/api/forecast/train", s.app.ForecastHandler.TrainHandler) // POST

	// API routes - Alerts
	mux.HandleFunc("/api/alerts", s.app.AlertHandler.ListHandler)               // GET
	mux.HandleFunc("/api/alerts/generate", s.app.AlertHandler.GenerateHandler) // POST
	mux.HandleFunc("/api/alerts/demand", s.app.AlertHandler.DemandHandler)     // POST

	// API routes - Scheduler
	mux.HandleFunc("/api/scheduler/jobs", s.app.SchedulerHandler.JobsHandler)
	mux.HandleFunc("/api/scheduler/trigger", s.app.SchedulerHandler.TriggerHandler)

	// API routes - System
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)

	// 404 handler for unmatched routes
	mux.HandleFunc("/", s.app.APIHandler.NotFoundHandler)

	return mux
}
