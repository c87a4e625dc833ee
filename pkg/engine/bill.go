package engine

import (
	"fmt"
	"math"

	"github.com/urjabill/urjabill/pkg/types"
)

// ValidateTariff checks the structural invariants of a tariff schedule:
// slabs ordered and contiguous by ascending lower bound, starting at zero,
// with exactly the last slab unbounded, and no negative rates or charges.
func ValidateTariff(t types.StateTariff) error {
	if t.FixedCharge < 0 {
		return &ConfigurationError{Reason: "fixed charge must not be negative"}
	}
	if len(t.Slabs) == 0 {
		return &ConfigurationError{Reason: "must have at least one slab"}
	}
	if t.Slabs[0].MinUnits != 0 {
		return &ConfigurationError{Reason: "first slab must start at 0 units"}
	}
	for i, slab := range t.Slabs {
		if slab.RatePerUnit < 0 {
			return &ConfigurationError{Reason: fmt.Sprintf("slab %d rate must not be negative", i)}
		}
		if i == len(t.Slabs)-1 {
			if slab.MaxUnits != nil {
				return &ConfigurationError{Reason: "last slab must be unbounded"}
			}
			continue
		}
		if slab.MaxUnits == nil {
			return &ConfigurationError{Reason: fmt.Sprintf("slab %d is unbounded but not last", i)}
		}
		if *slab.MaxUnits <= slab.MinUnits {
			return &ConfigurationError{Reason: fmt.Sprintf("slab %d upper bound must exceed its lower bound", i)}
		}
		if t.Slabs[i+1].MinUnits != *slab.MaxUnits {
			return &ConfigurationError{Reason: fmt.Sprintf("slab %d does not begin where slab %d ends", i+1, i)}
		}
	}
	return nil
}

// ProgressiveBill prices a unit quantity against a tariff schedule. Each slab
// bills only the units falling inside its range; the fixed charge applies
// once regardless of units, including zero.
//
// This is the only slab walk in the codebase: monthly bills, month-to-date
// costs, and projections all go through here.
func (e *Engine) ProgressiveBill(units float64, tariff types.StateTariff) (types.BillBreakdown, error) {
	if err := ValidateTariff(tariff); err != nil {
		return types.BillBreakdown{}, err
	}
	if units < 0 {
		return types.BillBreakdown{}, &ValidationError{Field: "units", Reason: "must not be negative"}
	}

	bill := types.BillBreakdown{
		FixedCharge: tariff.FixedCharge,
	}
	for _, slab := range tariff.Slabs {
		if units <= slab.MinUnits {
			break
		}
		upper := units
		if slab.MaxUnits != nil {
			upper = math.Min(units, *slab.MaxUnits)
		}
		slabUnits := upper - slab.MinUnits
		cost := slabUnits * slab.RatePerUnit
		bill.EnergyCost += cost
		bill.Slabs = append(bill.Slabs, types.SlabCost{
			FromUnits:   slab.MinUnits,
			ToUnits:     slab.MaxUnits,
			Units:       slabUnits,
			RatePerUnit: slab.RatePerUnit,
			Cost:        cost,
		})
	}
	bill.Total = bill.EnergyCost + bill.FixedCharge
	return bill, nil
}
