package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/urjabill/urjabill/pkg/log"
	"github.com/urjabill/urjabill/pkg/types"
)

func (s *Server) handleListAppliances(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	householdID := s.getHouseholdID(r)

	appliances, err := s.storage.ListAppliances(ctx, householdID)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to list appliances", slog.Any("error", err))
		writeJSONError(w, "failed to list appliances", http.StatusInternalServerError)
		return
	}

	// Always return an array, even if empty
	if appliances == nil {
		appliances = []types.Appliance{}
	}

	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(appliances); err != nil {
		panic(http.ErrAbortHandler)
	}
}

func (s *Server) handleUpsertAppliance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	householdID := s.getHouseholdID(r)

	var req struct {
		types.Appliance
		HouseholdID string `json:"householdID"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to decode appliance", slog.Any("error", err))
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	appliance := req.Appliance
	if appliance.Name == "" {
		writeJSONError(w, "name is required", http.StatusBadRequest)
		return
	}
	if appliance.Quantity == 0 {
		appliance.Quantity = 1
	}
	if appliance.HoursPerDay < 0 || appliance.HoursPerDay > 24 {
		writeJSONError(w, "hoursPerDay must be between 0 and 24", http.StatusBadRequest)
		return
	}
	if appliance.DaysPerMonth < 0 || appliance.DaysPerMonth > 31 {
		writeJSONError(w, "daysPerMonth must be between 0 and 31", http.StatusBadRequest)
		return
	}

	settings, err := s.getSettingsWithMigration(ctx, householdID)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to get settings", slog.Any("error", err))
		writeJSONError(w, "failed to get settings", http.StatusInternalServerError)
		return
	}

	// a dry-run calculation catches missing mode fields and negative values
	// before the record is persisted
	if _, err := s.engine.MonthlyUnits(appliance, settings.Season); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "invalid appliance", slog.String("name", appliance.Name), slog.Any("error", err))
		writeEngineError(w, err)
		return
	}

	if appliance.ID == "" {
		appliance.ID = uuid.NewString()
	}

	if err := s.storage.UpsertAppliance(ctx, householdID, appliance); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to upsert appliance", slog.String("applianceID", appliance.ID), slog.Any("error", err))
		writeJSONError(w, "failed to save appliance", http.StatusInternalServerError)
		return
	}

	log.Ctx(ctx).InfoContext(ctx, "appliance saved", slog.String("applianceID", appliance.ID), slog.String("name", appliance.Name))

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(appliance); err != nil {
		panic(http.ErrAbortHandler)
	}
}

func (s *Server) handleDeleteAppliance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	householdID := s.getHouseholdID(r)

	applianceID := r.PathValue("id")
	if applianceID == "" {
		writeJSONError(w, "appliance id is required", http.StatusBadRequest)
		return
	}

	if err := s.storage.DeleteAppliance(ctx, householdID, applianceID); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to delete appliance", slog.String("applianceID", applianceID), slog.Any("error", err))
		writeJSONError(w, "failed to delete appliance", http.StatusInternalServerError)
		return
	}

	log.Ctx(ctx).InfoContext(ctx, "appliance deleted", slog.String("applianceID", applianceID))
	w.WriteHeader(http.StatusOK)
}
