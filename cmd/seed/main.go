package main

import (
	"context"
	"math/rand"
	"os"
	"time"

	"github.com/levenlabs/go-lflag"
	"github.com/urjabill/urjabill/pkg/engine"
	"github.com/urjabill/urjabill/pkg/log"
	"github.com/urjabill/urjabill/pkg/storage"
	"github.com/urjabill/urjabill/pkg/tariff"
	"github.com/urjabill/urjabill/pkg/types"
)

const (
	seedHouseholdID = "demo_home"
	seedUserID      = "demo"
)

func main() {
	os.Setenv("FIRESTORE_EMULATOR_HOST", "127.0.0.1:8087")
	s := storage.Configured()
	lflag.Configure()

	ctx := context.Background()

	log.Ctx(ctx).InfoContext(ctx, "seeding mock data")

	// Use a new random source
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	household := types.Household{
		ID:         seedHouseholdID,
		InviteCode: "demo1234",
		Permissions: []types.HouseholdPermissions{
			{UserID: seedUserID},
		},
	}
	if err := s.CreateHousehold(ctx, seedHouseholdID, household); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to create household", "error", err)
		os.Exit(1)
	}
	user := types.User{
		ID:    seedUserID,
		Email: "demo@example.com",
		Households: []types.UserHousehold{
			{ID: seedHouseholdID, Name: "Demo Home"},
		},
	}
	if err := s.CreateUser(ctx, user); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to create user", "error", err)
		os.Exit(1)
	}

	settings := types.Settings{
		TariffID: "msedcl_residential",
		Season:   types.SeasonSummer,
		Solar: types.SolarConfig{
			Installed:  true,
			CapacityKW: 2,
		},
		Subsidy: types.SubsidyConfig{
			Type:       types.SubsidyGovernment,
			LimitUnits: 300,
		},
		InsightLanguage: "en",
	}
	if err := s.SetSettings(ctx, seedHouseholdID, settings, types.CurrentSettingsVersion); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to set settings", "error", err)
		os.Exit(1)
	}

	inventory := []types.Appliance{
		{
			ID:           "ceiling-fan",
			Name:         "Ceiling Fan",
			Category:     types.CategoryCooling,
			InputMode:    types.RatingModeStandard,
			Watts:        75,
			HoursPerDay:  10,
			DaysPerMonth: 30,
			Quantity:     3,
		},
		{
			ID:           "fridge",
			Name:         "Refrigerator",
			Category:     types.CategoryElectronics,
			InputMode:    types.RatingModeBEEAnnual,
			AnnualKWH:    250,
			HoursPerDay:  24,
			DaysPerMonth: 30,
			Quantity:     1,
		},
		{
			ID:           "bedroom-ac",
			Name:         "Bedroom AC",
			Category:     types.CategoryCooling,
			InputMode:    types.RatingModeISEER,
			CapacityTons: 1.5,
			ISEER:        5.2,
			Inverter:     true,
			HoursPerDay:  6,
			DaysPerMonth: 30,
			Quantity:     1,
		},
		{
			ID:           "led-lights",
			Name:         "LED Bulbs",
			Category:     types.CategoryLighting,
			InputMode:    types.RatingModeStandard,
			Watts:        9,
			HoursPerDay:  6,
			DaysPerMonth: 30,
			Quantity:     8,
		},
		{
			ID:           "water-pump",
			Name:         "Water Pump",
			Category:     types.CategoryMotor,
			InputMode:    types.RatingModeStandard,
			Watts:        750,
			HoursPerDay:  1,
			DaysPerMonth: 30,
			Quantity:     1,
		},
		{
			ID:           "television",
			Name:         "Television",
			Category:     types.CategoryElectronics,
			InputMode:    types.RatingModeStandard,
			Watts:        120,
			HoursPerDay:  5,
			DaysPerMonth: 30,
			Quantity:     1,
		},
	}
	for _, a := range inventory {
		if err := s.UpsertAppliance(ctx, seedHouseholdID, a); err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to upsert appliance", "error", err, "appliance", a.ID)
			os.Exit(1)
		}
	}

	catalog := tariff.Configured()
	schedule, err := catalog.ForSettings(settings)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to resolve tariff", "error", err)
		os.Exit(1)
	}
	eng := engine.NewEngine(engine.DefaultTunables())

	// Log usage for the first two weeks of the current month so the summary
	// has enough days to stabilize and project from.
	now := time.Now().UTC()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	days := 14
	for i := 0; i < days; i++ {
		day := start.AddDate(0, 0, i)
		if day.After(now) {
			break
		}

		// Jitter each appliance's hours so day-to-day usage varies.
		logged := make([]types.Appliance, len(inventory))
		copy(logged, inventory)
		for j := range logged {
			jitter := 0.8 + rng.Float64()*0.4
			logged[j].HoursPerDay *= jitter
			if logged[j].HoursPerDay > 24 {
				logged[j].HoursPerDay = 24
			}
		}
		// The pump skips some days entirely
		if rng.Float64() < 0.2 {
			for j := range logged {
				if logged[j].ID == "water-pump" {
					logged[j].HoursPerDay = 0
				}
			}
		}

		usage, err := eng.EstimateDay(logged, schedule, settings.Season, day)
		if err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to build usage", "error", err, "date", day)
			os.Exit(1)
		}
		usage.IsEstimated = false
		if err := s.UpsertDailyUsage(ctx, seedHouseholdID, usage); err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to upsert usage", "error", err, "date", day)
			os.Exit(1)
		}
	}

	if err := s.Close(); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to close storage", "error", err)
	}
	log.Ctx(ctx).InfoContext(ctx, "seeding complete", "householdID", seedHouseholdID)
}
