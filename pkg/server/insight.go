package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/urjabill/urjabill/pkg/log"
)

func (s *Server) handleInsight(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	householdID := s.getHouseholdID(r)

	if !s.insight.Enabled() {
		writeJSONError(w, "insight service not configured", http.StatusServiceUnavailable)
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

	appliances, err := s.storage.ListAppliances(ctx, householdID)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to list appliances", slog.Any("error", err))
		writeJSONError(w, "failed to list appliances", http.StatusInternalServerError)
		return
	}

	result, err := s.engineFor(settings.Settings).FullCalculation(ctx, appliances, schedule, settings.Solar, settings.Subsidy, settings.Season)
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "calculation failed", slog.Any("error", err))
		writeEngineError(w, err)
		return
	}

	text, err := s.insight.Generate(ctx, result, schedule, settings.InsightLanguage)
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "insight generation failed", slog.Any("error", err))
		writeJSONError(w, "insight service unavailable", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(struct {
		Insight string `json:"insight"`
	}{Insight: text}); err != nil {
		panic(http.ErrAbortHandler)
	}
}
