package engine

import (
	"math"

	"github.com/urjabill/urjabill/pkg/types"
)

// ApplySubsidy splits a unit quantity into the portion covered by the
// household's free-unit allowance and the portion that remains billable. The
// subsidy removes units, not cost: the first LimitUnits are free outright
// rather than billed at the lowest slab rate.
func (e *Engine) ApplySubsidy(units float64, cfg types.SubsidyConfig) (types.SubsidySplit, error) {
	if units < 0 {
		return types.SubsidySplit{}, &ValidationError{Field: "units", Reason: "must not be negative"}
	}
	if cfg.Type == types.SubsidyNone {
		return types.SubsidySplit{BillableUnits: units}, nil
	}
	if cfg.LimitUnits < 0 {
		return types.SubsidySplit{}, &ValidationError{Field: "limitUnits", Reason: "must not be negative"}
	}
	return types.SubsidySplit{
		SubsidizedUnits:       math.Min(units, cfg.LimitUnits),
		BillableUnits:         math.Max(0, units-cfg.LimitUnits),
		RemainingSubsidyUnits: math.Max(0, cfg.LimitUnits-units),
	}, nil
}
