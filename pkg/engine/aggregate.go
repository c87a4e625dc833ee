package engine

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/urjabill/urjabill/pkg/types"
)

// SummarizeMonth rolls up daily usage logs for the month containing refDate
// into month-to-date and projected figures plus a per-day calendar. The
// reference date is an explicit parameter so identical inputs always produce
// identical output; the engine never reads the wall clock.
//
// Before any day is logged, the per-day baseline falls back to the inventory's
// monthly consumption divided by 30. The fallback disappears entirely once a
// single real day exists.
func (e *Engine) SummarizeMonth(
	ctx context.Context,
	logs []types.UserDailyUsage,
	tariff types.StateTariff,
	inventory []types.Appliance,
	subsidy types.SubsidyConfig,
	season types.Season,
	refDate time.Time,
) (types.MonthlyUsageSummary, error) {
	if err := ValidateTariff(tariff); err != nil {
		return types.MonthlyUsageSummary{}, err
	}

	year, month, _ := refDate.Date()
	daysInMonth := time.Date(year, month+1, 0, 0, 0, 0, 0, refDate.Location()).Day()

	sum := types.MonthlyUsageSummary{
		Year:        year,
		Month:       month,
		DaysInMonth: daysInMonth,
	}

	// collapse logs to one unit total per calendar day of the target month
	unitsByDay := make(map[int]float64)
	for _, l := range logs {
		ly, lm, ld := l.Date.Date()
		if ly != year || lm != month {
			continue
		}
		unitsByDay[ld] += l.TotalUnits
		sum.TotalUnits += l.TotalUnits
	}
	sum.DaysLogged = len(unitsByDay)

	if sum.DaysLogged > 0 {
		sum.AvgUnitsPerDay = sum.TotalUnits / float64(sum.DaysLogged)
	} else {
		var monthly float64
		for _, a := range inventory {
			u, err := e.MonthlyUnits(a, season)
			if err != nil {
				return types.MonthlyUsageSummary{}, err
			}
			monthly += u
		}
		sum.AvgUnitsPerDay = monthly / 30
	}
	sum.ProjectedUnits = sum.AvgUnitsPerDay * float64(daysInMonth)

	sum.IsStabilized = sum.DaysLogged >= e.tunables.StabilizedAfterDays
	if sum.DaysLogged >= e.tunables.ConfidenceAfterDays {
		score := math.Min(
			e.tunables.ConfidenceCap,
			e.tunables.ConfidenceBase+float64(sum.DaysLogged)/float64(daysInMonth)*e.tunables.ConfidenceSpread,
		)
		sum.ConfidenceScore = &score
	}

	mtd, err := e.ProgressiveBill(sum.TotalUnits, tariff)
	if err != nil {
		return types.MonthlyUsageSummary{}, err
	}
	projected, err := e.ProgressiveBill(sum.ProjectedUnits, tariff)
	if err != nil {
		return types.MonthlyUsageSummary{}, err
	}
	sum.MTDBillCost = mtd.Total
	sum.ProjectedBillTotal = projected.Total
	sum.EstRemainderCost = math.Max(0, sum.ProjectedBillTotal-sum.MTDBillCost)

	if subsidy.Type != types.SubsidyNone || e.tunables.CrossingWithoutSubsidy {
		sum.SlabCrossed = sum.TotalUnits > subsidy.LimitUnits
	}

	// per-day calendar with cumulative classification against the limit
	limit := subsidy.LimitUnits
	classify := subsidy.Type != types.SubsidyNone && limit > 0
	var cumulative float64
	refY, refM, refD := refDate.Date()
	sum.Days = make([]types.DaySummary, 0, daysInMonth)
	for day := 1; day <= daysInMonth; day++ {
		d := types.DaySummary{
			Date: time.Date(year, month, day, 0, 0, 0, 0, refDate.Location()),
		}
		if units, ok := unitsByDay[day]; ok {
			cumulative += units
			d.Kind = types.DayLogged
			d.Units = units
			d.Status = types.DayStatusSafe
			if classify {
				switch {
				case cumulative >= limit:
					d.Status = types.DayStatusCritical
				case cumulative >= e.tunables.WarningFraction*limit:
					d.Status = types.DayStatusWarning
				}
			}
		} else if year > refY || (year == refY && (month > refM || (month == refM && day > refD))) {
			d.Kind = types.DayFuture
		} else {
			d.Kind = types.DayEstimated
		}
		d.CumulativeUnits = cumulative
		sum.Days = append(sum.Days, d)
	}

	slog.DebugContext(ctx, "month summarized",
		slog.Int("year", year),
		slog.String("month", month.String()),
		slog.Int("daysLogged", sum.DaysLogged),
		slog.Float64("totalUnits", sum.TotalUnits),
		slog.Float64("projectedUnits", sum.ProjectedUnits),
		slog.Bool("slabCrossed", sum.SlabCrossed),
	)
	return sum, nil
}
