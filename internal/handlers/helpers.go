package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/ternarybob/mandi/internal/common"
)

// RequireMethod validates that the HTTP request uses the specified method.
// Returns true if the method matches, false otherwise (and writes error response).
func RequireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

// WriteJSON writes a JSON response with the specified status code and data.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// WriteError writes a standard error JSON response.
func WriteError(w http.ResponseWriter, statusCode int, message string) error {
	return WriteJSON(w, statusCode, map[string]string{
		"status": "error",
		"error":  message,
	})
}

// QueryInt reads a positive integer query parameter, falling back to def
// when absent or malformed and capping at max when max > 0.
func QueryInt(r *http.Request, name string, def, max int) int {
	value := def
	if raw := r.URL.Query().Get(name); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			value = n
		}
	}
	if max > 0 && value > max {
		value = max
	}
	return value
}

// QueryCommodity returns the trimmed commodity parameter
func QueryCommodity(r *http.Request) string {
	return strings.TrimSpace(r.URL.Query().Get("commodity"))
}

// QueryStates parses a comma-separated states parameter
func QueryStates(r *http.Request) []string {
	return common.SplitList(r.URL.Query().Get("states"))
}
