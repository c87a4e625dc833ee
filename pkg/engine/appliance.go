package engine

import (
	"fmt"

	"github.com/urjabill/urjabill/pkg/types"
)

// MonthlyUnits converts one appliance into its monthly kWh consumption for
// the given season. Only the fields belonging to the appliance's InputMode
// are read; fields for other modes are ignored even if present.
func (e *Engine) MonthlyUnits(a types.Appliance, season types.Season) (float64, error) {
	if err := validateUsage(a); err != nil {
		return 0, err
	}

	qty := float64(a.Quantity)
	mult := e.seasonMultiplier(a.Category, season)

	switch a.InputMode {
	case types.RatingModeStandard:
		if a.Watts < 0 {
			return 0, &ValidationError{Field: "watts", Reason: "must not be negative"}
		}
		return a.Watts * a.HoursPerDay * a.DaysPerMonth * qty / 1000 * mult, nil
	case types.RatingModeBEEAnnual:
		if a.AnnualKWH <= 0 {
			return 0, &ValidationError{Field: "annualKWH", Reason: "required for bee_annual mode"}
		}
		// annual BEE figures are measured under standardized conditions but
		// the multiplier applies the same as for standard mode
		return a.AnnualKWH / 12 * qty * mult, nil
	case types.RatingModeISEER:
		kw, err := e.coolingInputKW(a, a.ISEER, "iseer")
		if err != nil {
			return 0, err
		}
		return kw * a.HoursPerDay * a.DaysPerMonth * qty * mult, nil
	case types.RatingModeEER:
		kw, err := e.coolingInputKW(a, a.EER, "eer")
		if err != nil {
			return 0, err
		}
		return kw * a.HoursPerDay * a.DaysPerMonth * qty * mult, nil
	default:
		return 0, &ValidationError{Field: "inputMode", Reason: fmt.Sprintf("unknown mode %q", a.InputMode)}
	}
}

// coolingInputKW derives the electrical draw of an air conditioner from its
// cooling capacity and efficiency ratio. Higher ratios draw less power for
// the same cooling.
func (e *Engine) coolingInputKW(a types.Appliance, ratio float64, field string) (float64, error) {
	if ratio <= 0 {
		return 0, &ValidationError{Field: field, Reason: fmt.Sprintf("required for %s mode", field)}
	}
	if a.CapacityTons <= 0 {
		return 0, &ValidationError{Field: "capacityTons", Reason: fmt.Sprintf("required for %s mode", field)}
	}
	return a.CapacityTons * e.tunables.KWPerTon / ratio, nil
}

// validateUsage rejects negative usage values. Range clamping (hours to
// [0,24], days to [0,31]) is the caller's responsibility.
func validateUsage(a types.Appliance) error {
	if a.HoursPerDay < 0 {
		return &ValidationError{Field: "hoursPerDay", Reason: "must not be negative"}
	}
	if a.DaysPerMonth < 0 {
		return &ValidationError{Field: "daysPerMonth", Reason: "must not be negative"}
	}
	if a.Quantity < 0 {
		return &ValidationError{Field: "quantity", Reason: "must not be negative"}
	}
	return nil
}
