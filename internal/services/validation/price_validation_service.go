// Package validation runs the advisory quality pass over stored price records.
package validation

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/mandi/internal/common"
	"github.com/ternarybob/mandi/internal/interfaces"
	"github.com/ternarybob/mandi/internal/models"
)

// QuarantineHook receives every record that failed a check. The default is a
// no-op; validation never deletes or moves records on its own.
type QuarantineHook func(record *models.PriceRecord, reason string)

// Finding is the outcome of checking one record
type Finding struct {
	Invalid bool
	Outlier bool
	Reason  string
}

// PriceValidationService checks structural completeness and per-commodity price bands
type PriceValidationService struct {
	validate   *validator.Validate
	bands      map[string]common.PriceBand
	quarantine QuarantineHook
	logger     arbor.ILogger
}

// NewPriceValidationService creates a validator using the tracked price bands
func NewPriceValidationService(tracking common.TrackingConfig, logger arbor.ILogger) *PriceValidationService {
	bands := make(map[string]common.PriceBand, len(tracking.PriceBands))
	for commodity, band := range tracking.PriceBands {
		bands[strings.ToLower(commodity)] = band
	}

	return &PriceValidationService{
		validate:   validator.New(),
		bands:      bands,
		quarantine: func(*models.PriceRecord, string) {},
		logger:     logger,
	}
}

// SetQuarantineHook installs a hook for failed records
func (s *PriceValidationService) SetQuarantineHook(hook QuarantineHook) {
	if hook != nil {
		s.quarantine = hook
	}
}

// Check evaluates a single record. A missing modal price is invalid and is
// still checked against the band, so a zero price can also be an outlier.
// Outliers are always invalid.
func (s *PriceValidationService) Check(record *models.PriceRecord) Finding {
	if err := s.validate.Struct(record); err != nil {
		return Finding{Invalid: true, Reason: "missing commodity"}
	}

	var finding Finding
	if !record.ModalPrice.GreaterThan(decimal.Zero) {
		finding = Finding{Invalid: true, Reason: "missing modal price"}
	}

	band, ok := s.bands[strings.ToLower(strings.TrimSpace(record.Commodity))]
	if !ok {
		return finding
	}

	modal := record.ModalFloat()
	if modal < band.Low || modal > band.High {
		reason := "modal price outside plausible band"
		if finding.Invalid {
			reason = finding.Reason + ", " + reason
		}
		return Finding{Invalid: true, Outlier: true, Reason: reason}
	}
	return finding
}

// Validate tallies invalid and outlier records
func (s *PriceValidationService) Validate(records []*models.PriceRecord) models.ValidationStats {
	stats := models.ValidationStats{Total: len(records)}

	for _, record := range records {
		finding := s.Check(record)
		if !finding.Invalid {
			continue
		}
		stats.Invalid++
		if finding.Outlier {
			stats.Outliers++
		}
		s.quarantine(record, finding.Reason)
	}

	s.logger.Info().
		Int("total", stats.Total).
		Int("invalid", stats.Invalid).
		Int("outliers", stats.Outliers).
		Msg("Price validation complete")

	return stats
}

var _ interfaces.RecordValidator = (*PriceValidationService)(nil)
