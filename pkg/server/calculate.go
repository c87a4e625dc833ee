package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/urjabill/urjabill/pkg/log"
	"github.com/urjabill/urjabill/pkg/types"
)

func (s *Server) handleCalculate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	householdID := s.getHouseholdID(r)

	settings, err := s.getSettingsWithMigration(ctx, householdID)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to get settings", slog.Any("error", err))
		writeJSONError(w, "failed to get settings", http.StatusInternalServerError)
		return
	}

	season := settings.Season
	if override := r.URL.Query().Get("season"); override != "" {
		switch types.Season(override) {
		case types.SeasonSummer, types.SeasonWinter, types.SeasonMonsoon:
			season = types.Season(override)
		default:
			writeJSONError(w, fmt.Sprintf("unknown season: %s", override), http.StatusBadRequest)
			return
		}
	}

	schedule, err := s.tariffs.ForSettings(settings.Settings)
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "no usable tariff for household", slog.String("tariffID", settings.TariffID), slog.Any("error", err))
		writeJSONError(w, fmt.Sprintf("no usable tariff: %v", err), http.StatusBadRequest)
		return
	}

	appliances, err := s.storage.ListAppliances(ctx, householdID)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to list appliances", slog.Any("error", err))
		writeJSONError(w, "failed to list appliances", http.StatusInternalServerError)
		return
	}

	result, err := s.engineFor(settings.Settings).FullCalculation(ctx, appliances, schedule, settings.Solar, settings.Subsidy, season)
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "calculation failed", slog.Any("error", err))
		writeEngineError(w, err)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		panic(http.ErrAbortHandler)
	}
}
