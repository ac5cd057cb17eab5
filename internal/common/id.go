package common

import (
	"github.com/google/uuid"
)

// NewAlertID generates a unique alert ID with the "alert_" prefix
func NewAlertID() string {
	return "alert_" + uuid.New().String()
}

// NewSnapshotID generates a unique weather snapshot ID with the "wx_" prefix
func NewSnapshotID() string {
	return "wx_" + uuid.New().String()
}

// NewNewsID generates a unique news item ID with the "news_" prefix
func NewNewsID() string {
	return "news_" + uuid.New().String()
}

// NewRunID generates a unique pipeline run ID with the "run_" prefix
func NewRunID() string {
	return "run_" + uuid.New().String()
}
