package server

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/urjabill/urjabill/pkg/log"
	"github.com/urjabill/urjabill/pkg/storage"
	"github.com/urjabill/urjabill/pkg/types"
)

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Parse request body
	var req struct {
		InviteCode      string `json:"inviteCode"`
		JoinHouseholdID string `json:"joinHouseholdID"`
		Create          bool   `json:"create"`
		Name            string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		// since we failed to read, don't return JSON error
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if !req.Create && (req.InviteCode == "" || req.JoinHouseholdID == "") {
		writeJSONError(w, "inviteCode and joinHouseholdID are required", http.StatusBadRequest)
		return
	}

	if req.Create && s.singleHousehold {
		writeJSONError(w, "cannot create a new household in single-household mode", http.StatusForbidden)
		return
	}

	// Get the authenticated user from context (either existing or new-to-register)
	var userID, email string

	if user := s.getUser(r); user.ID != "" {
		userID = user.ID
		email = user.Email
	} else if userToRegister, ok := ctx.Value(userToRegisterContextKey).(types.User); ok {
		userID = userToRegister.ID
		email = userToRegister.Email
	}

	if userID == "" {
		writeJSONError(w, "authentication required", http.StatusUnauthorized)
		return
	}

	// Limit user to 5 households
	households := s.getAllUserHouseholds(r)
	if len(households) >= 5 {
		alreadyMember := false
		if !req.Create {
			for _, h := range households {
				if h.ID == req.JoinHouseholdID {
					alreadyMember = true
					break
				}
			}
		}
		if !alreadyMember {
			writeJSONError(w, "maximum of 5 households reached", http.StatusForbidden)
			return
		}
	}

	var household types.Household
	if req.Create {
		// Generate Household ID
		prefix := ""
		if idx := strings.Index(email, "@"); idx != -1 {
			prefix = email[:idx]
		}

		usePrefix := false
		if len(prefix) >= 8 {
			for i := 0; i < 10; i++ {
				try := prefix
				if i > 0 {
					try = fmt.Sprintf("%s_%d", prefix, i)
				}
				if _, err := s.storage.GetHousehold(ctx, try); errors.Is(err, storage.ErrHouseholdNotFound) {
					prefix = try
					usePrefix = true
					break
				}
			}
		}

		if usePrefix {
			req.JoinHouseholdID = prefix
		} else {
			b := make([]byte, 8)
			if _, err := rand.Read(b); err != nil {
				writeJSONError(w, "failed to generate household id", http.StatusInternalServerError)
				return
			}
			req.JoinHouseholdID = hex.EncodeToString(b)
		}

		household = types.Household{
			ID:         req.JoinHouseholdID,
			InviteCode: "",
			Permissions: []types.HouseholdPermissions{
				{UserID: userID},
			},
		}

		if err := s.storage.CreateHousehold(ctx, req.JoinHouseholdID, household); err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "join: failed to create household", slog.String("householdID", req.JoinHouseholdID), slog.Any("error", err))
			writeJSONError(w, "failed to create household", http.StatusInternalServerError)
			return
		}
	} else {
		// Look up the household
		var err error
		household, err = s.storage.GetHousehold(ctx, req.JoinHouseholdID)
		if err != nil {
			log.Ctx(ctx).WarnContext(ctx, "join: household not found", slog.String("householdID", req.JoinHouseholdID), slog.Any("error", err))
			writeJSONError(w, "household not found", http.StatusNotFound)
			return
		}

		// Validate invite code using constant-time comparison
		if household.InviteCode == "" || subtle.ConstantTimeCompare([]byte(req.InviteCode), []byte(household.InviteCode)) != 1 {
			log.Ctx(ctx).WarnContext(ctx, "join: invalid invite code", slog.String("householdID", req.JoinHouseholdID), slog.String("userID", userID))
			writeJSONError(w, "invalid invite code", http.StatusForbidden)
			return
		}
	}

	// Check if user already has permission on this household
	alreadyJoined := false
	for _, p := range household.Permissions {
		if p.UserID == userID {
			alreadyJoined = true
			break
		}
	}

	// 1. Create or Update User
	isNewUser := false
	if _, ok := ctx.Value(userToRegisterContextKey).(types.User); ok {
		isNewUser = true
	}

	if req.Name == "" {
		req.Name = req.JoinHouseholdID
	}

	if isNewUser {
		// Create the user with this household
		newUser := types.User{
			ID:    userID,
			Email: email,
			Households: []types.UserHousehold{
				{
					ID:   req.JoinHouseholdID,
					Name: req.Name,
				},
			},
		}
		if err := s.storage.CreateUser(ctx, newUser); err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "join: failed to create user", slog.String("userID", userID), slog.Any("error", err))
			writeJSONError(w, "failed to create user", http.StatusInternalServerError)
			return
		}
	} else {
		// Existing user, add household to their list if not already there
		existingUser, err := s.storage.GetUser(ctx, userID)
		if err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "join: failed to get user", slog.Any("error", err))
			writeJSONError(w, "failed to join household", http.StatusInternalServerError)
			return
		}

		hasHousehold := false
		nameChanged := false
		for i := range existingUser.Households {
			if existingUser.Households[i].ID == req.JoinHouseholdID {
				if existingUser.Households[i].Name != req.Name {
					existingUser.Households[i].Name = req.Name
					nameChanged = true
				}
				hasHousehold = true
				break
			}
		}

		if !hasHousehold {
			existingUser.Households = append(existingUser.Households, types.UserHousehold{
				ID:   req.JoinHouseholdID,
				Name: req.Name,
			})
		}

		if !hasHousehold || nameChanged {
			if err := s.storage.UpdateUser(ctx, existingUser); err != nil {
				log.Ctx(ctx).ErrorContext(ctx, "join: failed to update user", slog.Any("error", err))
				writeJSONError(w, "failed to join household", http.StatusInternalServerError)
				return
			}
		}
	}

	// 2. Update Household (Add permission)
	if !alreadyJoined {
		household.Permissions = append(household.Permissions, types.HouseholdPermissions{UserID: userID})
		if err := s.storage.UpdateHousehold(ctx, req.JoinHouseholdID, household); err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "join: failed to update household", slog.String("householdID", req.JoinHouseholdID), slog.Any("error", err))
			writeJSONError(w, "failed to join household", http.StatusInternalServerError)
			return
		}
	}

	log.Ctx(ctx).InfoContext(ctx, "user joined household", slog.String("householdID", req.JoinHouseholdID))
	w.WriteHeader(http.StatusOK)
}
