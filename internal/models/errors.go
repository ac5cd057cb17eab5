package models

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by repositories when a lookup has no match
	ErrNotFound = errors.New("not found")

	// ErrModelNotTrained is returned when prediction is attempted without a trained model
	ErrModelNotTrained = errors.New("forecast model not trained")

	// ErrInsufficientHistory is returned when too few observations exist to build features
	ErrInsufficientHistory = errors.New("insufficient price history")
)

// TransientFetchError is a network or timeout failure that survived every retry
type TransientFetchError struct {
	Source   string
	Attempts int
	Err      error
}

func (e *TransientFetchError) Error() string {
	return fmt.Sprintf("%s: fetch failed after %d attempts: %v", e.Source, e.Attempts, e.Err)
}

func (e *TransientFetchError) Unwrap() error {
	return e.Err
}

// NormalizationError marks a raw record whose shape could not be mapped
type NormalizationError struct {
	Source string
	Field  string
	Reason string
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("%s: cannot normalize record (%s): %s", e.Source, e.Field, e.Reason)
}

// NotificationDeliveryError is a failed alert broadcast. Persistence has already succeeded.
type NotificationDeliveryError struct {
	AlertID    string
	StatusCode int
	Err        error
}

func (e *NotificationDeliveryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("alert %s broadcast failed: %v", e.AlertID, e.Err)
	}
	return fmt.Sprintf("alert %s broadcast failed: status %d", e.AlertID, e.StatusCode)
}

func (e *NotificationDeliveryError) Unwrap() error {
	return e.Err
}
