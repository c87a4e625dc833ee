package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/urjabill/urjabill/pkg/log"
	"github.com/urjabill/urjabill/pkg/types"
)

type logUsageRequest struct {
	HouseholdID string          `json:"householdID"`
	Date        string          `json:"date"`
	Entries     []logUsageEntry `json:"entries"`
}

type logUsageEntry struct {
	ApplianceID string  `json:"applianceID"`
	Hours       float64 `json:"hours"`
}

func (s *Server) handleLogUsage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	householdID := s.getHouseholdID(r)

	var req logUsageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to decode usage log", slog.Any("error", err))
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	date, err := time.Parse(dateFormat, req.Date)
	if err != nil {
		writeJSONError(w, fmt.Sprintf("invalid date: %v", err), http.StatusBadRequest)
		return
	}
	if len(req.Entries) == 0 {
		writeJSONError(w, "at least one entry is required", http.StatusBadRequest)
		return
	}

	settings, err := s.getSettingsWithMigration(ctx, householdID)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to get settings", slog.Any("error", err))
		writeJSONError(w, "failed to get settings", http.StatusInternalServerError)
		return
	}

	schedule, err := s.tariffs.ForSettings(settings.Settings)
	if err != nil {
		writeJSONError(w, fmt.Sprintf("no usable tariff: %v", err), http.StatusBadRequest)
		return
	}

	inventory, err := s.storage.ListAppliances(ctx, householdID)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to list appliances", slog.Any("error", err))
		writeJSONError(w, "failed to list appliances", http.StatusInternalServerError)
		return
	}
	byID := make(map[string]types.Appliance, len(inventory))
	for _, a := range inventory {
		byID[a.ID] = a
	}

	// Resolve each entry against the inventory with the logged hours swapped
	// in, then let the engine compute units and costs for the day.
	logged := make([]types.Appliance, 0, len(req.Entries))
	for _, entry := range req.Entries {
		a, ok := byID[entry.ApplianceID]
		if !ok {
			writeJSONError(w, fmt.Sprintf("unknown appliance: %s", entry.ApplianceID), http.StatusBadRequest)
			return
		}
		if entry.Hours < 0 || entry.Hours > 24 {
			writeJSONError(w, fmt.Sprintf("hours for %s must be between 0 and 24", entry.ApplianceID), http.StatusBadRequest)
			return
		}
		a.HoursPerDay = entry.Hours
		logged = append(logged, a)
	}

	usage, err := s.engineFor(settings.Settings).EstimateDay(logged, schedule, settings.Season, date)
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to compute usage log", slog.Any("error", err))
		writeEngineError(w, err)
		return
	}
	// these are user-entered measurements, not synthesized ones
	usage.IsEstimated = false

	if err := s.storage.UpsertDailyUsage(ctx, householdID, usage); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to save usage log", slog.Any("error", err))
		writeJSONError(w, "failed to save usage log", http.StatusInternalServerError)
		return
	}

	log.Ctx(ctx).InfoContext(ctx, "usage logged", slog.String("date", req.Date), slog.Float64("totalUnits", usage.TotalUnits))

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(usage); err != nil {
		panic(http.ErrAbortHandler)
	}
}

func (s *Server) handleGetUsage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	householdID := s.getHouseholdID(r)

	start, end, err := parseDayRange(r)
	if err != nil {
		writeJSONError(w, "invalid day range: "+err.Error(), http.StatusBadRequest)
		return
	}

	settings, err := s.getSettingsWithMigration(ctx, householdID)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to get settings", slog.Any("error", err))
		writeJSONError(w, "failed to get settings", http.StatusInternalServerError)
		return
	}

	schedule, err := s.tariffs.ForSettings(settings.Settings)
	if err != nil {
		writeJSONError(w, fmt.Sprintf("no usable tariff: %v", err), http.StatusBadRequest)
		return
	}

	inventory, err := s.storage.ListAppliances(ctx, householdID)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to list appliances", slog.Any("error", err))
		writeJSONError(w, "failed to list appliances", http.StatusInternalServerError)
		return
	}

	logs, err := s.storage.GetDailyUsage(ctx, householdID, start, end)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to get daily usage", slog.Any("error", err))
		writeJSONError(w, "failed to get daily usage", http.StatusInternalServerError)
		return
	}

	logged := make(map[string]types.UserDailyUsage, len(logs))
	for _, l := range logs {
		logged[l.Date.Format(dateFormat)] = l
	}

	// fill gaps up to today with inventory-derived estimates; future days
	// are omitted entirely
	eng := s.engineFor(settings.Settings)
	today := truncateDay(time.Now().UTC())
	out := make([]types.UserDailyUsage, 0, len(logs))
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		if l, ok := logged[day.Format(dateFormat)]; ok {
			out = append(out, l)
			continue
		}
		if day.After(today) {
			continue
		}
		estimated, err := eng.EstimateDay(inventory, schedule, settings.Season, day)
		if err != nil {
			log.Ctx(ctx).WarnContext(ctx, "failed to estimate day", slog.String("date", day.Format(dateFormat)), slog.Any("error", err))
			writeEngineError(w, err)
			return
		}
		out = append(out, estimated)
	}

	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(out); err != nil {
		panic(http.ErrAbortHandler)
	}
}

func parseDayRange(r *http.Request) (time.Time, time.Time, error) {
	startStr := r.URL.Query().Get("start")
	endStr := r.URL.Query().Get("end")

	if startStr == "" || endStr == "" {
		// Default to the current month so far if not specified
		now := time.Now().UTC()
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		return start, truncateDay(now), nil
	}

	start, err := time.Parse(dateFormat, startStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start day: %w", err)
	}

	end, err := time.Parse(dateFormat, endStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end day: %w", err)
	}

	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("start day must be before end day")
	}

	if end.Sub(start) > 366*24*time.Hour {
		return time.Time{}, time.Time{}, fmt.Errorf("day range cannot exceed a year")
	}

	return start, end, nil
}
