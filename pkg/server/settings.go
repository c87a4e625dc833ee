package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/urjabill/urjabill/pkg/engine"
	"github.com/urjabill/urjabill/pkg/log"
	"github.com/urjabill/urjabill/pkg/types"
)

type settingsWithVersion struct {
	types.Settings
	version int
}

func (s *Server) getSettingsWithMigration(ctx context.Context, householdID string) (settingsWithVersion, error) {
	settings, version, err := s.storage.GetSettings(ctx, householdID)
	if err != nil {
		return settingsWithVersion{}, err
	}
	sv := settingsWithVersion{
		Settings: settings,
		version:  version,
	}

	// Check for migration
	if version < types.CurrentSettingsVersion {
		log.Ctx(ctx).InfoContext(ctx, "migrating settings", slog.Int("oldVersion", version), slog.Int("newVersion", types.CurrentSettingsVersion))
		newSettings, changed, err := types.MigrateSettings(settings, version)
		if err != nil {
			// Log error but return settings as is (best effort)
			log.Ctx(ctx).ErrorContext(ctx, "failed to migrate settings", slog.Int("currentVersion", version), slog.Any("error", err))
		} else if changed {
			sv.Settings = newSettings
			sv.version = types.CurrentSettingsVersion
			if err := s.storage.SetSettings(ctx, householdID, newSettings, types.CurrentSettingsVersion); err != nil {
				log.Ctx(ctx).ErrorContext(ctx, "failed to save migrated settings", slog.Any("error", err))
				// Return migrated settings even if save failed, so current request works with new defaults
			} else {
				log.Ctx(ctx).InfoContext(ctx, "saved migrated settings", slog.Int("oldVersion", version), slog.Int("newVersion", types.CurrentSettingsVersion))
			}
		}
	}

	return sv, nil
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	householdID := s.getHouseholdID(r)
	settings, err := s.getSettingsWithMigration(ctx, householdID)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to get settings", slog.Any("error", err))
		writeJSONError(w, "failed to get settings", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(settings.Settings); err != nil {
		panic(http.ErrAbortHandler)
	}
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	householdID := s.getHouseholdID(r)

	// Validate Authentication from Context (set by authMiddleware)
	user := s.getUser(r)
	if user.ID == "" && !s.bypassAuth {
		writeJSONError(w, "missing authentication", http.StatusUnauthorized)
		return
	}

	if !user.Admin {
		log.Ctx(ctx).WarnContext(ctx, "unauthorized for settings update", slog.String("userID", user.ID), slog.String("email", user.Email))
		writeJSONError(w, "unauthorized", http.StatusForbidden)
		return
	}

	var req struct {
		types.Settings
		HouseholdID string `json:"householdID"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to decode settings", slog.Any("error", err))
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	newSettings := req.Settings

	switch newSettings.Season {
	case types.SeasonSummer, types.SeasonWinter, types.SeasonMonsoon:
	default:
		writeJSONError(w, fmt.Sprintf("unknown season: %s", newSettings.Season), http.StatusBadRequest)
		return
	}
	switch newSettings.Subsidy.Type {
	case types.SubsidyNone, types.SubsidyGovernment, types.SubsidyCompany:
	default:
		writeJSONError(w, fmt.Sprintf("unknown subsidy type: %s", newSettings.Subsidy.Type), http.StatusBadRequest)
		return
	}
	if newSettings.Subsidy.LimitUnits < 0 {
		writeJSONError(w, "subsidy limit cannot be negative", http.StatusBadRequest)
		return
	}
	if newSettings.Solar.CapacityKW < 0 {
		writeJSONError(w, "solar capacity cannot be negative", http.StatusBadRequest)
		return
	}
	if newSettings.InsightLanguage == "" {
		newSettings.InsightLanguage = "en"
	}

	// make sure the selected or custom tariff actually prices
	selected, err := s.tariffs.ForSettings(newSettings)
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "invalid tariff selection", slog.String("tariffID", newSettings.TariffID), slog.Any("error", err))
		writeJSONError(w, fmt.Sprintf("invalid tariff selection: %v", err), http.StatusBadRequest)
		return
	}
	if newSettings.CustomTariff != nil {
		if err := engine.ValidateTariff(*newSettings.CustomTariff); err != nil {
			writeEngineError(w, err)
			return
		}
	}

	if err := s.storage.SetSettings(ctx, householdID, newSettings, types.CurrentSettingsVersion); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to save settings", slog.Any("error", err))
		writeJSONError(w, "failed to save settings", http.StatusInternalServerError)
		return
	}

	log.Ctx(ctx).InfoContext(ctx, "settings updated", slog.String("tariffID", selected.ID))

	w.WriteHeader(http.StatusOK)
}
