package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/urjabill/urjabill/pkg/log"
)

const dateFormat = "2006-01-02"

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	householdID := s.getHouseholdID(r)

	refDate := time.Now().UTC()
	if dateStr := r.URL.Query().Get("date"); dateStr != "" {
		var err error
		refDate, err = time.Parse(dateFormat, dateStr)
		if err != nil {
			writeJSONError(w, fmt.Sprintf("invalid date: %v", err), http.StatusBadRequest)
			return
		}
	}

	settings, err := s.getSettingsWithMigration(ctx, householdID)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to get settings", slog.Any("error", err))
		writeJSONError(w, "failed to get settings", http.StatusInternalServerError)
		return
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

	// fetch every log of the reference month
	monthStart := time.Date(refDate.Year(), refDate.Month(), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, -1)
	logs, err := s.storage.GetDailyUsage(ctx, householdID, monthStart, monthEnd)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to get daily usage", slog.Any("error", err))
		writeJSONError(w, "failed to get daily usage", http.StatusInternalServerError)
		return
	}

	summary, err := s.engineFor(settings.Settings).SummarizeMonth(ctx, logs, schedule, appliances, settings.Subsidy, settings.Season, refDate)
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "summary failed", slog.Any("error", err))
		writeEngineError(w, err)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(summary); err != nil {
		panic(http.ErrAbortHandler)
	}
}
