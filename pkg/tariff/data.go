package tariff

import (
	"github.com/urjabill/urjabill/pkg/types"
)

func f64(v float64) *float64 {
	return &v
}

// builtinTariffs returns the residential schedules the service ships with.
// Rates are simplified single-phase residential energy charges in rupees per
// kWh; real schedules carry riders and duties that vary by billing cycle.
func builtinTariffs() []types.StateTariff {
	return []types.StateTariff{
		{
			ID:          "msedcl_residential",
			Name:        "MSEDCL Residential",
			State:       "Maharashtra",
			FixedCharge: 128,
			Slabs: []types.TariffSlab{
				{MinUnits: 0, MaxUnits: f64(100), RatePerUnit: 4.71},
				{MinUnits: 100, MaxUnits: f64(300), RatePerUnit: 10.29},
				{MinUnits: 300, MaxUnits: f64(500), RatePerUnit: 14.55},
				{MinUnits: 500, MaxUnits: nil, RatePerUnit: 16.64},
			},
		},
		{
			ID:          "brpl_residential",
			Name:        "BSES Rajdhani Residential",
			State:       "Delhi",
			FixedCharge: 20,
			Slabs: []types.TariffSlab{
				{MinUnits: 0, MaxUnits: f64(200), RatePerUnit: 3},
				{MinUnits: 200, MaxUnits: f64(400), RatePerUnit: 4.5},
				{MinUnits: 400, MaxUnits: f64(800), RatePerUnit: 6.5},
				{MinUnits: 800, MaxUnits: f64(1200), RatePerUnit: 7},
				{MinUnits: 1200, MaxUnits: nil, RatePerUnit: 8},
			},
		},
		{
			ID:          "tneb_residential",
			Name:        "TNEB Domestic",
			State:       "Tamil Nadu",
			FixedCharge: 0,
			Slabs: []types.TariffSlab{
				{MinUnits: 0, MaxUnits: f64(100), RatePerUnit: 0},
				{MinUnits: 100, MaxUnits: f64(200), RatePerUnit: 2.35},
				{MinUnits: 200, MaxUnits: f64(400), RatePerUnit: 4.7},
				{MinUnits: 400, MaxUnits: f64(500), RatePerUnit: 6.3},
				{MinUnits: 500, MaxUnits: nil, RatePerUnit: 8.4},
			},
		},
		{
			ID:          "bescom_residential",
			Name:        "BESCOM Domestic",
			State:       "Karnataka",
			FixedCharge: 120,
			Slabs: []types.TariffSlab{
				{MinUnits: 0, MaxUnits: f64(100), RatePerUnit: 4.75},
				{MinUnits: 100, MaxUnits: f64(200), RatePerUnit: 7},
				{MinUnits: 200, MaxUnits: nil, RatePerUnit: 8.25},
			},
		},
		{
			// flat single-slab schedule, mostly useful for demos and tests
			ID:          "flat_demo",
			Name:        "Flat Rate Demo",
			State:       "",
			FixedCharge: 50,
			Slabs: []types.TariffSlab{
				{MinUnits: 0, MaxUnits: nil, RatePerUnit: 6},
			},
		},
	}
}
