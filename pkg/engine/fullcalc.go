package engine

import (
	"context"
	"log/slog"
	"math"
	"sort"

	"github.com/urjabill/urjabill/pkg/types"
)

// FullCalculation produces the complete monthly calculation for an appliance
// inventory: units, solar offset, subsidy split, progressive bill, and the
// derived analytics. An empty inventory is a valid zero-usage month whose
// total is just the fixed charge.
func (e *Engine) FullCalculation(
	ctx context.Context,
	appliances []types.Appliance,
	tariff types.StateTariff,
	solar types.SolarConfig,
	subsidy types.SubsidyConfig,
	season types.Season,
) (types.CalculationResult, error) {
	// validate the tariff up front so we fail before doing any work
	if err := ValidateTariff(tariff); err != nil {
		return types.CalculationResult{}, err
	}

	res := types.CalculationResult{
		Season:       season,
		Breakdown:    make([]types.ApplianceBreakdown, 0, len(appliances)),
		TopConsumers: []types.ApplianceBreakdown{},
	}

	for _, a := range appliances {
		units, err := e.MonthlyUnits(a, season)
		if err != nil {
			return types.CalculationResult{}, err
		}
		res.TotalUnits += units
		res.Breakdown = append(res.Breakdown, types.ApplianceBreakdown{
			ApplianceID: a.ID,
			Name:        a.Name,
			Category:    a.Category,
			Units:       units,
		})
	}

	res.SolarGeneratedUnits = e.SolarMonthlyUnits(solar)
	res.NetUnits = math.Max(0, res.TotalUnits-res.SolarGeneratedUnits)

	split, err := e.ApplySubsidy(res.NetUnits, subsidy)
	if err != nil {
		return types.CalculationResult{}, err
	}
	res.SubsidizedUnits = split.SubsidizedUnits
	res.BillableUnits = split.BillableUnits
	res.RemainingSubsidyUnits = split.RemainingSubsidyUnits

	res.Bill, err = e.ProgressiveBill(res.BillableUnits, tariff)
	if err != nil {
		return types.CalculationResult{}, err
	}

	// costs are attributed proportionally by units
	for i := range res.Breakdown {
		if res.TotalUnits > 0 {
			share := res.Breakdown[i].Units / res.TotalUnits
			res.Breakdown[i].Cost = share * res.Bill.EnergyCost
			res.Breakdown[i].Percentage = share * 100
		}
	}

	// stable sort so insertion order breaks ties in the rankings
	ranked := make([]types.ApplianceBreakdown, len(res.Breakdown))
	copy(ranked, res.Breakdown)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Units > ranked[j].Units
	})
	if len(ranked) > 0 {
		top := ranked[0]
		res.HighestConsumer = &top
	}
	n := e.tunables.TopConsumerCount
	if n > len(ranked) {
		n = len(ranked)
	}
	res.TopConsumers = append(res.TopConsumers, ranked[:n]...)

	res.EfficiencyScore = e.efficiencyGrade(res.NetUnits)

	res.SeasonalProjections = make(map[types.Season]float64, len(types.Seasons))
	var otherTotal float64
	var otherCount int
	for _, s := range types.Seasons {
		var units float64
		for _, a := range appliances {
			u, err := e.MonthlyUnits(a, s)
			if err != nil {
				return types.CalculationResult{}, err
			}
			units += u
		}
		res.SeasonalProjections[s] = units
		if s != season {
			otherTotal += units
			otherCount++
		}
	}
	if otherCount > 0 {
		res.SeasonalImpact = res.TotalUnits - otherTotal/float64(otherCount)
	}

	slog.DebugContext(ctx, "full calculation finished",
		slog.String("season", string(season)),
		slog.Int("appliances", len(appliances)),
		slog.Float64("totalUnits", res.TotalUnits),
		slog.Float64("netUnits", res.NetUnits),
		slog.Float64("billableUnits", res.BillableUnits),
		slog.Float64("total", res.Bill.Total),
	)
	return res, nil
}

// SolarMonthlyUnits returns the assumed monthly generation of a rooftop
// install. Not installed means zero regardless of capacity.
func (e *Engine) SolarMonthlyUnits(solar types.SolarConfig) float64 {
	if !solar.Installed || solar.CapacityKW <= 0 {
		return 0
	}
	return solar.CapacityKW * e.tunables.SolarKWHPerKWPerDay * e.tunables.SolarDaysPerMonth
}
