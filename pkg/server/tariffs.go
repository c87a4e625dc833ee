package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/urjabill/urjabill/pkg/log"
	"github.com/urjabill/urjabill/pkg/types"
)

func (s *Server) handleListTariffs(w http.ResponseWriter, r *http.Request) {
	tariffs := s.tariffs.List()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(tariffs); err != nil {
		panic(http.ErrAbortHandler)
	}
}

func (s *Server) handleListHouseholds(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := s.getUser(r)

	// Check if user is an admin
	// We aren't specifically checking for singleHousehold here because this is
	// for listing households which isn't even supported for singleHousehold
	if !s.isAdmin(user) && !s.bypassAuth {
		log.Ctx(ctx).WarnContext(ctx, "unauthorized access to list households", slog.String("email", user.Email))
		writeJSONError(w, "forbidden", http.StatusForbidden)
		return
	}

	households, err := s.storage.ListHouseholds(ctx)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to list households", slog.Any("error", err))
		writeJSONError(w, "failed to list households", http.StatusInternalServerError)
		return
	}

	// Always return an array, even if empty
	if households == nil {
		households = []types.Household{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(households); err != nil {
		panic(http.ErrAbortHandler)
	}
}
