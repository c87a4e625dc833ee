package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/urjabill/urjabill/pkg/log"
	"github.com/urjabill/urjabill/pkg/types"
)

type feedbackRequest struct {
	Sentiment   string `json:"sentiment"`
	Comment     string `json:"comment"`
	HouseholdID string `json:"householdID"`
}

func (s *Server) handleSubmitFeedback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := s.getUser(r)

	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to decode feedback request", slog.Any("error", err))
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if req.Sentiment == "" {
		writeJSONError(w, "sentiment is required", http.StatusBadRequest)
		return
	}
	if req.HouseholdID == "" {
		writeJSONError(w, "householdID is required", http.StatusBadRequest)
		return
	}

	// Make sure user actually belongs to this household
	if !s.bypassAuth {
		belongs := false
		for _, h := range s.getAllUserHouseholds(r) {
			if h.ID == req.HouseholdID {
				belongs = true
				break
			}
		}
		if !belongs && !s.isAdmin(user) {
			log.Ctx(ctx).WarnContext(ctx, "unauthorized access to household for feedback", slog.String("email", user.Email), slog.String("householdID", req.HouseholdID))
			writeJSONError(w, "forbidden", http.StatusForbidden)
			return
		}
	}

	feedback := types.Feedback{
		ID:          uuid.NewString(),
		Sentiment:   req.Sentiment,
		Comment:     req.Comment,
		HouseholdID: req.HouseholdID,
		UserID:      user.ID,
		Timestamp:   time.Now().UTC(),
	}

	if err := s.storage.InsertFeedback(ctx, feedback); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to insert feedback", slog.Any("error", err))
		writeJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleListFeedback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := s.getUser(r)

	if !s.isAdmin(user) && !s.bypassAuth {
		log.Ctx(ctx).WarnContext(ctx, "unauthorized access to list feedback", slog.String("email", user.Email))
		writeJSONError(w, "forbidden", http.StatusForbidden)
		return
	}

	feedbacks, err := s.storage.ListFeedback(ctx)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to list feedback", slog.Any("error", err))
		writeJSONError(w, "failed to list feedback", http.StatusInternalServerError)
		return
	}

	// Always return an array, even if empty
	if feedbacks == nil {
		feedbacks = []types.Feedback{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(feedbacks); err != nil {
		panic(http.ErrAbortHandler)
	}
}
