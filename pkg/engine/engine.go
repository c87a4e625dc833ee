package engine

import (
	"github.com/urjabill/urjabill/pkg/types"
)

// Tunables holds every calibration constant the engine uses. Keeping them in
// one table means they can be tested and tuned without touching the
// calculation logic.
type Tunables struct {
	// SeasonMultipliers scales usage for the categories listed in
	// SeasonSensitiveCategories. Every season must have an entry.
	SeasonMultipliers map[types.Season]float64

	// SeasonSensitiveCategories are the categories the seasonal multiplier
	// applies to. Other categories are season-invariant.
	SeasonSensitiveCategories map[types.ApplianceCategory]bool

	// SolarKWHPerKWPerDay is the assumed daily yield of a rooftop install per
	// rated kW. 4.0 reflects typical Indian insolation.
	SolarKWHPerKWPerDay float64
	// SolarDaysPerMonth is the number of generating days assumed per month.
	SolarDaysPerMonth float64

	// KWPerTon converts cooling capacity to thermal kW (1 ton = 3.517 kW).
	// Electrical draw is KWPerTon * tons / ratio for ISEER and EER modes.
	KWPerTon float64

	// EfficiencyBands maps net monthly units to a letter grade. Bands are
	// checked in order; the first band whose UnderUnits exceeds the net units
	// wins, and the grade after the last band applies otherwise.
	EfficiencyBands []EfficiencyBand
	// WorstGrade applies at or above the last band's UnderUnits.
	WorstGrade types.EfficiencyGrade

	// TopConsumerCount is how many appliances the ranked consumer list holds.
	TopConsumerCount int

	// StabilizedAfterDays is the logged-day count at which a month's average
	// is considered stable.
	StabilizedAfterDays int
	// ConfidenceAfterDays is the logged-day count below which no confidence
	// score is published.
	ConfidenceAfterDays int
	// ConfidenceBase and ConfidenceSpread define the published score:
	// min(ConfidenceCap, base + daysLogged/daysInMonth * spread).
	ConfidenceBase   float64
	ConfidenceSpread float64
	ConfidenceCap    float64

	// WarningFraction of the subsidy limit is where a day's cumulative usage
	// moves from safe to warning.
	WarningFraction float64

	// CrossingWithoutSubsidy reports the subsidy limit as crossed even when
	// no subsidy is configured. With the limit defaulting to zero that makes
	// any usage a crossing, so it is off by default.
	CrossingWithoutSubsidy bool
}

// EfficiencyBand grades net monthly consumption strictly under UnderUnits.
type EfficiencyBand struct {
	UnderUnits float64
	Grade      types.EfficiencyGrade
}

// DefaultTunables returns the calibration table the service ships with.
func DefaultTunables() Tunables {
	return Tunables{
		SeasonMultipliers: map[types.Season]float64{
			types.SeasonSummer:  1.20,
			types.SeasonMonsoon: 1.05,
			types.SeasonWinter:  0.90,
		},
		SeasonSensitiveCategories: map[types.ApplianceCategory]bool{
			types.CategoryCooling: true,
			types.CategoryHeating: true,
		},
		SolarKWHPerKWPerDay: 4.0,
		SolarDaysPerMonth:   30,
		KWPerTon:            3.517,
		EfficiencyBands: []EfficiencyBand{
			{UnderUnits: 150, Grade: types.GradeA},
			{UnderUnits: 300, Grade: types.GradeB},
			{UnderUnits: 450, Grade: types.GradeC},
			{UnderUnits: 600, Grade: types.GradeD},
		},
		WorstGrade:          types.GradeE,
		TopConsumerCount:    3,
		StabilizedAfterDays: 7,
		ConfidenceAfterDays: 10,
		ConfidenceBase:      65,
		ConfidenceSpread:    35,
		ConfidenceCap:       99,
		WarningFraction:     0.85,
	}
}

// Engine holds the calculation logic for appliance energy, progressive
// billing, subsidies, and monthly aggregation. All methods are pure: they
// only read their arguments and the tunables, never the clock, and never
// mutate inputs, so a single Engine is safe for concurrent use.
type Engine struct {
	tunables Tunables
}

// NewEngine creates a new Engine with the given tunables.
func NewEngine(t Tunables) *Engine {
	return &Engine{tunables: t}
}

// Tunables returns the engine's calibration table.
func (e *Engine) Tunables() Tunables {
	return e.tunables
}

func (e *Engine) seasonMultiplier(category types.ApplianceCategory, season types.Season) float64 {
	if !e.tunables.SeasonSensitiveCategories[category] {
		return 1
	}
	if m, ok := e.tunables.SeasonMultipliers[season]; ok {
		return m
	}
	return 1
}

func (e *Engine) efficiencyGrade(netUnits float64) types.EfficiencyGrade {
	for _, band := range e.tunables.EfficiencyBands {
		if netUnits < band.UnderUnits {
			return band.Grade
		}
	}
	return e.tunables.WorstGrade
}
