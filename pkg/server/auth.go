package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/urjabill/urjabill/pkg/log"
	"github.com/urjabill/urjabill/pkg/storage"
	"github.com/urjabill/urjabill/pkg/types"
)

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ctx = log.With(ctx, log.Ctx(ctx).With(slog.String("reqPath", r.URL.Path)))

		allowNoLogin := r.URL.Path == "/api/auth/login" || r.URL.Path == "/api/auth/status" || r.URL.Path == "/api/join"
		ignoreUserNotFound := r.URL.Path == "/api/auth/login" || r.URL.Path == "/api/join" || r.URL.Path == "/api/auth/status" || r.URL.Path == "/api/auth/logout"
		ignoreHouseholdID := r.URL.Path == "/api/auth/login" || r.URL.Path == "/api/auth/status" || r.URL.Path == "/api/auth/logout"

		// extract HouseholdID
		var householdID string
		if r.Method == http.MethodGet || r.Method == http.MethodDelete {
			householdID = r.URL.Query().Get("householdID")
		} else {
			// read body to find HouseholdID
			var bodyBytes []byte
			if r.Body != nil {
				// Limit body size to 1MB to prevent DoS
				r.Body = http.MaxBytesReader(w, r.Body, 1048576)
				var err error
				bodyBytes, err = io.ReadAll(r.Body)
				if err != nil {
					log.Ctx(ctx).ErrorContext(ctx, "failed to read request body", slog.Any("error", err))
					// since we failed to read, don't return JSON error
					http.Error(w, "invalid request", http.StatusBadRequest)
					return
				}
				// restore body for next handler
				r.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
			}

			// try to unmarshal just the HouseholdID
			if len(bodyBytes) > 0 {
				var justHouseholdID struct {
					HouseholdID string `json:"householdID"`
				}
				err := json.Unmarshal(bodyBytes, &justHouseholdID)
				if err != nil {
					log.Ctx(ctx).ErrorContext(ctx, "failed to unmarshal request body", slog.Any("error", err))
					// since we failed to read, don't return JSON error
					http.Error(w, "invalid request", http.StatusBadRequest)
					return
				}
				householdID = justHouseholdID.HouseholdID
			}
		}

		var email string
		var userID string
		// userFound is true if the user is a real user found in the database
		var userFound bool
		// user might be a mock/fake user if this is bypassAuth or singleHousehold
		var user types.User
		// handle authentication
		if s.bypassAuth {
			user = types.User{
				ID:         "",
				Households: []types.UserHousehold{{ID: types.HouseholdIDNone}},
				Admin:      true,
			}
			ctx = context.WithValue(ctx, userContextKey, user)
		} else {
			var authSuccess bool

			// 1. Authenticate User
			authCookie, err := r.Cookie(authTokenCookie)
			if err != nil && !errors.Is(err, http.ErrNoCookie) {
				log.Ctx(ctx).ErrorContext(ctx, "failed to get auth cookie", slog.Any("error", err))
				writeJSONError(w, "missing auth cookie", http.StatusBadRequest)
				return
			}
			if authCookie != nil {
				emailRet, subjectRet, _, err := s.authenticateToken(ctx, authCookie.Value, "")
				if err != nil {
					log.Ctx(ctx).ErrorContext(ctx, "auth token validation failed", slog.Any("error", err))
					writeJSONError(w, "invalid auth token", http.StatusBadRequest)
					return
				}
				email = emailRet
				userID = subjectRet
				authSuccess = true
			} else if !allowNoLogin {
				log.Ctx(ctx).WarnContext(ctx, "no auth cookie found")
				writeJSONError(w, "missing auth cookie", http.StatusBadRequest)
				return
			}

			if authSuccess {
				// fetch user
				if s.singleHousehold {
					user = types.User{
						ID:         userID,
						Email:      email,
						Households: []types.UserHousehold{{ID: types.HouseholdIDNone}},
					}
				} else {
					var err error
					user, err = s.storage.GetUser(ctx, userID)
					if err != nil {
						if ignoreUserNotFound && errors.Is(err, storage.ErrUserNotFound) {
							log.Ctx(ctx).InfoContext(ctx, "user not found, will register on join", slog.String("userID", userID), slog.String("email", email))
							// Put a stub user in context so the join handler can create it
							ctx = context.WithValue(ctx, userToRegisterContextKey, types.User{
								ID:    userID,
								Email: email,
							})
						} else {
							log.Ctx(ctx).WarnContext(ctx, "user lookup failed", slog.String("userID", userID), slog.String("email", email), slog.Any("error", err))
							writeJSONError(w, "user lookup failed", http.StatusForbidden)
							return
						}
					} else {
						userFound = true
						// fill in default householdID if the user only has 1 household
						if householdID == "" && len(user.Households) == 1 {
							householdID = user.Households[0].ID
						}
					}
				}

				var isAdmin bool
				for _, admin := range s.adminEmails {
					if email == admin {
						isAdmin = true
						// Do not set user.Admin = true to grant read-only access when multi-household
						// but for single-household we do want to set Admin
						if s.singleHousehold {
							user.Admin = true
						}
						break
					}
				}
				if !s.singleHousehold && householdID != "" && householdID != HouseholdIDAll {
					household, err := s.storage.GetHousehold(ctx, householdID)
					if err != nil {
						log.Ctx(ctx).WarnContext(ctx, "household lookup failed", slog.String("householdID", householdID), slog.Any("error", err))
						writeJSONError(w, "household access denied", http.StatusForbidden)
						return
					}

					permFound := false
					for _, p := range household.Permissions {
						if p.UserID == user.ID {
							permFound = true
							user.Admin = true
							break
						}
					}
					if !permFound && !isAdmin {
						log.Ctx(ctx).WarnContext(ctx, "user does not have permission for household", slog.String("userID", userID), slog.String("email", email), slog.String("household", householdID))
						writeJSONError(w, "household access denied", http.StatusForbidden)
						return
					}
				}
				ctx = context.WithValue(ctx, userContextKey, user)
			} else if !allowNoLogin {
				log.Ctx(ctx).WarnContext(ctx, "unauthenticated request")
				s.clearCookie(w)
				writeJSONError(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}

		if householdID == "" {
			if s.singleHousehold || s.bypassAuth {
				householdID = types.HouseholdIDNone
			} else if !allowNoLogin && !ignoreHouseholdID {
				log.Ctx(ctx).WarnContext(ctx, "householdID required", slog.String("userID", userID))
				writeJSONError(w, "householdID required", http.StatusBadRequest)
				return
			}
		}

		if userID != "" {
			ctx = log.With(ctx, log.Ctx(ctx).With(slog.String("authUserID", userID)))
		}
		if householdID != "" {
			ctx = log.With(ctx, log.Ctx(ctx).With(slog.String("authHouseholdID", householdID)))
		}

		log.Ctx(ctx).DebugContext(
			ctx,
			"authenticated request",
			slog.String("email", email),
			slog.Bool("userFound", userFound),
		)

		ctx = context.WithValue(ctx, allUserHouseholdsContextKey, user.Households)
		ctx = context.WithValue(ctx, householdIDContextKey, householdID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	// Parse the token from the JSON body
	var req struct {
		Token  string `json:"token"`
		Client string `json:"client"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		// since we failed to read, don't return JSON error
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	email, subject, expires, err := s.authenticateToken(r.Context(), req.Token, req.Client)
	if err != nil {
		log.Ctx(r.Context()).WarnContext(r.Context(), "failed to validate id token", slog.Any("error", err))
		writeJSONError(w, "invalid id token", http.StatusUnauthorized)
		return
	}

	if email == "" {
		log.Ctx(r.Context()).WarnContext(r.Context(), "invalid email in id token")
		writeJSONError(w, "invalid oidc claims", http.StatusUnauthorized)
		return
	}

	log.Ctx(r.Context()).InfoContext(r.Context(), "login token validated successfully", slog.String("email", email), slog.String("subject", subject))

	// Set the cookie
	http.SetCookie(w, &http.Cookie{
		Name:     authTokenCookie,
		Value:    req.Token,
		Expires:  expires,
		HttpOnly: true,
		Secure:   true,
		Path:     "/",
		SameSite: http.SameSiteStrictMode,
	})

	w.WriteHeader(http.StatusOK)
}

func (s *Server) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     authTokenCookie,
		Value:    "",
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   true,
		Path:     "/",
		SameSite: http.SameSiteStrictMode,
		MaxAge:   -1,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.clearCookie(w)
	w.WriteHeader(http.StatusOK)
}

type authStatusResponse struct {
	LoggedIn     bool                  `json:"loggedIn"`
	Email        string                `json:"email"`
	AuthRequired bool                  `json:"authRequired"`
	ClientIDs    map[string]string     `json:"clientIDs"`
	Households   []types.UserHousehold `json:"households"`
}

func (s *Server) handleAuthStatus(w http.ResponseWriter, r *http.Request) {
	var loggedIn bool
	user := s.getUser(r)
	if user.ID != "" {
		loggedIn = true
	} else if userToRegister, ok := r.Context().Value(userToRegisterContextKey).(types.User); ok {
		user = userToRegister
		loggedIn = true
	}
	households := s.getAllUserHouseholds(r)

	err := json.NewEncoder(w).Encode(authStatusResponse{
		LoggedIn:     loggedIn,
		Email:        user.Email,
		AuthRequired: len(s.oidcAudiences) > 0,
		ClientIDs:    s.oidcAudiences,
		Households:   households,
	})
	if err != nil {
		panic(http.ErrAbortHandler)
	}
}

func (s *Server) authenticateToken(ctx context.Context, token string, specificClient string) (string, string, time.Time, error) {
	var errs []error

	for providerName, verifier := range s.oidcVerifiers {
		if specificClient != "" && providerName != specificClient {
			continue
		}
		email, subject, expiry, err := verifier(ctx, token)
		if err == nil {
			return email, subject, expiry, nil
		}
		errs = append(errs, fmt.Errorf("%s verifier failed: %v", providerName, err))
	}

	if len(errs) > 1 {
		return "", "", time.Time{}, errors.Join(errs...)
	}
	if len(errs) == 1 {
		return "", "", time.Time{}, errs[0]
	}
	return "", "", time.Time{}, errors.New("no valid audiences configured or token invalid")
}
