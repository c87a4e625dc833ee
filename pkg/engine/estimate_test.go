package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urjabill/urjabill/pkg/types"
)

func TestEstimateDay(t *testing.T) {
	e := NewEngine(DefaultTunables())
	tariff := threeSlabTariff()
	date := time.Date(2026, time.June, 5, 13, 45, 0, 0, time.UTC)

	inventory := []types.Appliance{
		{
			ID: "ac", Name: "Bedroom AC", Category: types.CategoryCooling,
			InputMode: types.RatingModeISEER, CapacityTons: 1.0, ISEER: 3.517,
			HoursPerDay: 5, DaysPerMonth: 30, Quantity: 1,
		},
		{
			ID: "fridge", Name: "Refrigerator", Category: types.CategoryElectronics,
			InputMode: types.RatingModeBEEAnnual, AnnualKWH: 360, Quantity: 1,
			HoursPerDay: 24, DaysPerMonth: 30,
		},
	}

	t.Run("synthesizes a flagged log", func(t *testing.T) {
		usage, err := e.EstimateDay(inventory, tariff, types.SeasonSummer, date)
		require.NoError(t, err)
		assert.True(t, usage.IsEstimated)
		// date is truncated to midnight
		assert.Equal(t, time.Date(2026, time.June, 5, 0, 0, 0, 0, time.UTC), usage.Date)
		require.Len(t, usage.Entries, 2)

		// AC: 1 ton x 3.517 / 3.517 = 1 kW, x5h x1.2 summer = 6 units
		ac := usage.Entries[0]
		assert.Equal(t, types.RatingModeISEER, ac.RatingMode)
		assert.InDelta(t, 3.517, ac.RatingValue, 1e-9)
		assert.InDelta(t, 1.0, ac.PowerKW, 1e-9)
		assert.InDelta(t, 6, ac.Units, 1e-9)

		// fridge: 360/12/30 = 1 unit, season invariant
		fridge := usage.Entries[1]
		assert.InDelta(t, 360, fridge.RatingValue, 1e-9)
		assert.InDelta(t, 1, fridge.Units, 1e-9)

		assert.InDelta(t, 7, usage.TotalUnits, 1e-9)
		// 7 units all in the first slab; no fixed charge on a single day
		assert.InDelta(t, 21, usage.TotalCost, 1e-9)

		var costSum float64
		for _, entry := range usage.Entries {
			costSum += entry.Cost
		}
		assert.InDelta(t, usage.TotalCost, costSum, 1e-9)
	})

	t.Run("empty inventory yields an empty estimate", func(t *testing.T) {
		usage, err := e.EstimateDay(nil, tariff, types.SeasonSummer, date)
		require.NoError(t, err)
		assert.True(t, usage.IsEstimated)
		assert.Zero(t, usage.TotalUnits)
		assert.Zero(t, usage.TotalCost)
		assert.Empty(t, usage.Entries)
	})

	t.Run("standard mode derives power from watts", func(t *testing.T) {
		usage, err := e.EstimateDay([]types.Appliance{{
			ID: "tv", Name: "TV", Category: types.CategoryElectronics,
			InputMode: types.RatingModeStandard, Watts: 120,
			HoursPerDay: 4, DaysPerMonth: 30, Quantity: 1,
		}}, tariff, types.SeasonWinter, date)
		require.NoError(t, err)
		require.Len(t, usage.Entries, 1)
		assert.InDelta(t, 0.12, usage.Entries[0].PowerKW, 1e-9)
		assert.InDelta(t, 0.48, usage.Entries[0].Units, 1e-9)
	})

	t.Run("thirty estimated days match the monthly figure", func(t *testing.T) {
		fridge := types.Appliance{
			ID: "fridge", Name: "Refrigerator", Category: types.CategoryElectronics,
			InputMode: types.RatingModeBEEAnnual, AnnualKWH: 250, Quantity: 1,
			HoursPerDay: 24, DaysPerMonth: 30,
		}
		monthly, err := e.MonthlyUnits(fridge, types.SeasonSummer)
		require.NoError(t, err)
		usage, err := e.EstimateDay([]types.Appliance{fridge}, tariff, types.SeasonSummer, date)
		require.NoError(t, err)
		assert.InDelta(t, monthly, usage.TotalUnits*30, 1e-9)
	})

	t.Run("invalid appliance fails", func(t *testing.T) {
		_, err := e.EstimateDay([]types.Appliance{{
			ID: "bad", InputMode: types.RatingModeEER, Quantity: 1,
		}}, tariff, types.SeasonSummer, date)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
	})
}
