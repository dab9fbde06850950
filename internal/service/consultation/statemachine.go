package consultation

import (
	"fmt"
	"time"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/pkg/errors"
)

const (
	MinTemperature = 30.0
	MaxTemperature = 45.0
)

// ValidateClinical checks the data required to attend a consultation.
// Temperature, respiratory rate and pulse are mandatory.
func ValidateClinical(data *model.ClinicalData) error {
	if data == nil {
		return errors.NewValidation(
			"temperature: is required",
			"respiratory_rate: is required",
			"pulse: is required",
		)
	}

	var details []string
	switch {
	case data.Temperature == nil:
		details = append(details, "temperature: is required")
	case *data.Temperature < MinTemperature || *data.Temperature > MaxTemperature:
		details = append(details, fmt.Sprintf("temperature: must be between %g and %g", MinTemperature, MaxTemperature))
	}
	switch {
	case data.RespiratoryRate == nil:
		details = append(details, "respiratory_rate: is required")
	case *data.RespiratoryRate <= 0:
		details = append(details, "respiratory_rate: must be positive")
	}
	switch {
	case data.Pulse == nil:
		details = append(details, "pulse: is required")
	case *data.Pulse <= 0:
		details = append(details, "pulse: must be positive")
	}
	if data.OxygenSaturation != nil && (*data.OxygenSaturation < 0 || *data.OxygenSaturation > 100) {
		details = append(details, "oxygen_saturation: must be between 0 and 100")
	}

	if len(details) > 0 {
		return errors.NewValidation(details...)
	}
	return nil
}

// Apply moves c to the target status. Only waiting consultations move:
// to attended with valid clinical data, or to cancelled unconditionally.
// On error c is left untouched.
func Apply(c *model.Consultation, to model.ConsultationStatus, clinical *model.ClinicalData, now time.Time) error {
	from := c.Status
	if from != model.ConsultationStatusWaiting {
		return errors.NewInvalidTransition(string(from), string(to))
	}

	switch to {
	case model.ConsultationStatusAttended:
		if err := ValidateClinical(clinical); err != nil {
			return err
		}
		attendedAt := now.UTC()
		c.ClinicalData = *clinical
		c.AttendedAt = &attendedAt
	case model.ConsultationStatusCancelled:
	default:
		return errors.NewInvalidTransition(string(from), string(to))
	}

	c.Status = to
	return nil
}
