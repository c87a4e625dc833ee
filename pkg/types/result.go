package types

// SlabCost is the portion of a bill attributable to one tariff slab.
type SlabCost struct {
	FromUnits   float64  `json:"fromUnits"`
	ToUnits     *float64 `json:"toUnits"`
	Units       float64  `json:"units"`
	RatePerUnit float64  `json:"ratePerUnit"`
	Cost        float64  `json:"cost"`
}

// BillBreakdown is the result of pricing a unit quantity against a tariff.
// It is deliberately a distinct type from a plain unit count so the two can
// never be confused at a call site.
type BillBreakdown struct {
	EnergyCost  float64    `json:"energyCost"`
	FixedCharge float64    `json:"fixedCharge"`
	Total       float64    `json:"total"`
	Slabs       []SlabCost `json:"slabs"`
}

// SubsidySplit divides a unit quantity into the portion covered by a subsidy
// allowance and the portion that remains billable.
type SubsidySplit struct {
	SubsidizedUnits       float64 `json:"subsidizedUnits"`
	BillableUnits         float64 `json:"billableUnits"`
	RemainingSubsidyUnits float64 `json:"remainingSubsidyUnits"`
}

// ApplianceBreakdown is one appliance's share of a monthly calculation.
type ApplianceBreakdown struct {
	ApplianceID string            `json:"applianceID"`
	Name        string            `json:"name"`
	Category    ApplianceCategory `json:"category"`
	Units       float64           `json:"units"`
	Cost        float64           `json:"cost"`
	Percentage  float64           `json:"percentage"`
}

// EfficiencyGrade is a coarse letter grade (A best, E worst) summarizing a
// household's net monthly consumption.
type EfficiencyGrade string

const (
	GradeA EfficiencyGrade = "A"
	GradeB EfficiencyGrade = "B"
	GradeC EfficiencyGrade = "C"
	GradeD EfficiencyGrade = "D"
	GradeE EfficiencyGrade = "E"
)

// CalculationResult is the complete output of a monthly bill calculation.
type CalculationResult struct {
	Season Season `json:"season"`

	// Unit accounting, in calculation order.
	TotalUnits            float64 `json:"totalUnits"`
	SolarGeneratedUnits   float64 `json:"solarGeneratedUnits"`
	NetUnits              float64 `json:"netUnits"`
	SubsidizedUnits       float64 `json:"subsidizedUnits"`
	BillableUnits         float64 `json:"billableUnits"`
	RemainingSubsidyUnits float64 `json:"remainingSubsidyUnits"`

	// Cost of the billable units under the tariff.
	Bill BillBreakdown `json:"bill"`

	Breakdown       []ApplianceBreakdown `json:"breakdown"`
	HighestConsumer *ApplianceBreakdown  `json:"highestConsumer,omitempty"`
	TopConsumers    []ApplianceBreakdown `json:"topConsumers"`

	EfficiencyScore EfficiencyGrade `json:"efficiencyScore"`

	// SeasonalProjections maps every season to its projected monthly units;
	// SeasonalImpact is the active season's units minus the average of the
	// other seasons.
	SeasonalProjections map[Season]float64 `json:"seasonalProjections"`
	SeasonalImpact      float64            `json:"seasonalImpact"`
}
