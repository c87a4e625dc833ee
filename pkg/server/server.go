package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/NYTimes/gziphandler"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/levenlabs/go-lflag"
	"github.com/urjabill/urjabill/pkg/engine"
	"github.com/urjabill/urjabill/pkg/insight"
	"github.com/urjabill/urjabill/pkg/log"
	"github.com/urjabill/urjabill/pkg/storage"
	"github.com/urjabill/urjabill/pkg/tariff"
	"github.com/urjabill/urjabill/pkg/types"
)

const (
	authTokenCookie = "auth_token"
	HouseholdIDAll  = "ALL"
)

type contextKey string

const (
	householdIDContextKey       contextKey = "householdID"
	allUserHouseholdsContextKey contextKey = "allUserHouseholds"
	userContextKey              contextKey = "user"
	userToRegisterContextKey    contextKey = "userToRegister"
)

// tokenVerifier validates a Google or Apple ID Token and returns the email,
// subject, and expiry claims.
type tokenVerifier func(ctx context.Context, rawIDToken string) (string, string, time.Time, error)

// oidcTokenVerifier wraps an oidc verifier into a tokenVerifier.
func oidcTokenVerifier(v *oidc.IDTokenVerifier) tokenVerifier {
	return func(ctx context.Context, rawIDToken string) (string, string, time.Time, error) {
		idToken, err := v.Verify(ctx, rawIDToken)
		if err != nil {
			return "", "", time.Time{}, err
		}
		var claims struct {
			Email string `json:"email"`
		}
		if err := idToken.Claims(&claims); err != nil {
			return "", "", time.Time{}, err
		}
		return claims.Email, idToken.Subject, idToken.Expiry, nil
	}
}

// Server handles the HTTP API for the UrjaBill system. It orchestrates
// interactions between the tariff catalog, the calculation engine, the
// insight service, and storage.
type Server struct {
	tariffs *tariff.Catalog
	engine  *engine.Engine
	insight *insight.Client
	storage storage.Database

	listenAddr string
	httpServer *http.Server

	adminEmails     []string
	oidcAudiences   map[string]string
	oidcVerifiers   map[string]tokenVerifier
	bypassAuth      bool
	singleHousehold bool
	release         string
	serverName      string
}

// Configured initializes the Server with dependencies.
// It uses lflag to register command-line flags for configuration.
func Configured(t *tariff.Catalog, e *engine.Engine, i *insight.Client, db storage.Database) *Server {
	srv := &Server{
		tariffs:    t,
		engine:     e,
		insight:    i,
		storage:    db,
		serverName: "urjabill",
	}
	revision := os.Getenv("K_REVISION")
	if revision != "" {
		srv.serverName = revision
	}

	// get the port from PORT when running in cloud run
	port := os.Getenv("PORT")
	if port == "" {
		// otherwise default to 8080
		port = "8080"
	}

	listenAddr := lflag.String("http-listen", ":"+port, "HTTP server listen address")
	adminEmails := lflag.String("admin-emails", "", "comma-delimited list of email addresses allowed to see every household")
	oidcAudience := lflag.String("oidc-audience", "", "Google audience/client ID to validate id tokens against")
	oidcAudiences := map[string]string{}
	lflag.JSON(&oidcAudiences, "oidc-audiences", oidcAudiences, "JSON map of provider (google/apple) to audience/client ID")
	singleHousehold := lflag.Bool("single-household", false, "Enable single-household mode (disables householdID requirement)")
	bypassAuth := lflag.Bool("bypass-auth", false, "Disable authentication entirely (local development only)")
	release := lflag.String("release", "production", "Release environment (production or staging)")

	lflag.Do(func() {
		srv.listenAddr = *listenAddr
		if *adminEmails != "" {
			srv.adminEmails = strings.Split(*adminEmails, ",")
			for i, email := range srv.adminEmails {
				srv.adminEmails[i] = strings.TrimSpace(email)
			}
		}
		if len(oidcAudiences) > 0 {
			srv.oidcAudiences = make(map[string]string, len(oidcAudiences))
			srv.oidcVerifiers = make(map[string]tokenVerifier, len(oidcAudiences))
			for n, a := range oidcAudiences {
				switch n {
				case "google":
					provider, err := oidc.NewProvider(context.Background(), "https://accounts.google.com")
					if err != nil {
						log.Ctx(context.Background()).Error("failed to initialize Google OIDC provider", slog.Any("error", err))
						os.Exit(1)
					}
					srv.oidcVerifiers[n] = oidcTokenVerifier(provider.Verifier(&oidc.Config{ClientID: a}))
					srv.oidcAudiences[n] = a
				case "apple":
					provider, err := oidc.NewProvider(context.Background(), "https://appleid.apple.com")
					if err != nil {
						log.Ctx(context.Background()).Error("failed to initialize Apple OIDC provider", slog.Any("error", err))
						os.Exit(1)
					}
					srv.oidcVerifiers[n] = oidcTokenVerifier(provider.Verifier(&oidc.Config{ClientID: a}))
					srv.oidcAudiences[n] = a
				default:
					log.Ctx(context.Background()).Error("unsupported oidc audience client", slog.String("client", n))
					os.Exit(1)
				}
			}
		} else if *oidcAudience != "" {
			provider, err := oidc.NewProvider(context.Background(), "https://accounts.google.com")
			if err != nil {
				log.Ctx(context.Background()).Error("failed to initialize Google OIDC provider", slog.Any("error", err))
				os.Exit(1)
			}
			srv.oidcVerifiers = map[string]tokenVerifier{
				"google": oidcTokenVerifier(provider.Verifier(&oidc.Config{ClientID: *oidcAudience})),
			}
			srv.oidcAudiences = map[string]string{
				"google": *oidcAudience,
			}
		}
		srv.singleHousehold = *singleHousehold
		srv.release = *release

		if *bypassAuth && len(srv.oidcAudiences) == 0 {
			srv.bypassAuth = true
		}
	})

	return srv
}

func (s *Server) setupHandler() http.Handler {
	apiMux := http.NewServeMux()
	apiMux.HandleFunc("GET /api/calculate", s.handleCalculate)
	apiMux.HandleFunc("GET /api/summary", s.handleSummary)
	apiMux.HandleFunc("GET /api/appliances", s.handleListAppliances)
	apiMux.HandleFunc("POST /api/appliances", s.handleUpsertAppliance)
	apiMux.HandleFunc("DELETE /api/appliances/{id}", s.handleDeleteAppliance)
	apiMux.HandleFunc("POST /api/usage", s.handleLogUsage)
	apiMux.HandleFunc("GET /api/usage", s.handleGetUsage)
	apiMux.HandleFunc("GET /api/settings", s.handleGetSettings)
	apiMux.HandleFunc("POST /api/settings", s.handleUpdateSettings)
	apiMux.HandleFunc("GET /api/insight", s.handleInsight)
	apiMux.HandleFunc("GET /api/auth/status", s.handleAuthStatus)
	apiMux.HandleFunc("POST /api/auth/login", s.handleLogin)
	apiMux.HandleFunc("POST /api/auth/logout", s.handleLogout)
	apiMux.HandleFunc("POST /api/join", s.handleJoin)
	apiMux.HandleFunc("GET /api/list/tariffs", s.handleListTariffs)
	apiMux.HandleFunc("GET /api/list/households", s.handleListHouseholds)
	apiMux.HandleFunc("POST /api/feedback", s.handleSubmitFeedback)
	apiMux.HandleFunc("GET /api/list/feedback", s.handleListFeedback)

	mux := http.NewServeMux()
	mux.Handle("/api/", s.authMiddleware(apiMux))
	mux.HandleFunc("/healthz", s.handleHealthz)
	return s.revisionMiddleware(gziphandler.GzipHandler(s.securityHeadersMiddleware(mux)))
}

func (s *Server) getHouseholdID(r *http.Request) string {
	if householdID, ok := r.Context().Value(householdIDContextKey).(string); ok {
		return householdID
	}
	// we want to have a stack trace when this happens
	panic("no householdID in context")
}

func (s *Server) getAllUserHouseholds(r *http.Request) []types.UserHousehold {
	if households, ok := r.Context().Value(allUserHouseholdsContextKey).([]types.UserHousehold); ok {
		return households
	}
	return nil
}

func (s *Server) getUser(r *http.Request) types.User {
	if user, ok := r.Context().Value(userContextKey).(types.User); ok {
		return user
	}
	return types.User{}
}

// engineFor returns the engine tuned for the household's settings. Engines
// are immutable values so deriving a new one per request is cheap.
func (s *Server) engineFor(settings types.Settings) *engine.Engine {
	if !settings.CrossingWithoutSubsidy {
		return s.engine
	}
	t := s.engine.Tunables()
	t.CrossingWithoutSubsidy = true
	return engine.NewEngine(t)
}

// Run starts the HTTP server and blocks until the context is canceled or an error occurs.
// It also handles graceful shutdown when the context is done.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         s.listenAddr,
		Handler:      s.setupHandler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	// use a channel to capturing server errors
	errChan := make(chan error, 1)
	go func() {
		defer close(errChan)
		log.Ctx(ctx).InfoContext(ctx, "starting server", slog.String("addr", s.listenAddr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		// Context canceled, shut down gracefully
		log.Ctx(ctx).InfoContext(ctx, "shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}
}

func writeJSONError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(struct {
		Error string `json:"error"`
	}{Error: msg}); err != nil {
		slog.Warn("failed to write error response", slog.Any("error", err))
		panic(http.ErrAbortHandler)
	}
}

// writeEngineError maps engine error types onto HTTP statuses: invalid
// user-supplied inputs are 400, an unusable tariff schedule is 422, anything
// else is 500.
func writeEngineError(w http.ResponseWriter, err error) {
	var validationErr *engine.ValidationError
	if errors.As(err, &validationErr) {
		writeJSONError(w, validationErr.Error(), http.StatusBadRequest)
		return
	}
	var configErr *engine.ConfigurationError
	if errors.As(err, &configErr) {
		writeJSONError(w, configErr.Error(), http.StatusUnprocessableEntity)
		return
	}
	writeJSONError(w, "internal server error", http.StatusInternalServerError)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("ok")); err != nil {
		panic(http.ErrAbortHandler)
	}
}

func (s *Server) revisionMiddleware(next http.Handler) http.Handler {
	if s.serverName == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Server", s.serverName)
		next.ServeHTTP(w, r)
	})
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// isAdmin returns true if the user's email is in the adminEmails list.
func (s *Server) isAdmin(user types.User) bool {
	for _, adminEmail := range s.adminEmails {
		if user.Email == adminEmail {
			return true
		}
	}
	return false
}
