// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jeranaias/backoffice-tui/internal/config"
	"github.com/jeranaias/backoffice-tui/internal/identity"
	"github.com/jeranaias/backoffice-tui/internal/logging"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// DefaultLoginPerMinute is the per-IP login budget.
	DefaultLoginPerMinute = 30

	// MaxRequestBodySize caps request bodies.
	MaxRequestBodySize = 64 * 1024
)

// ============================================================================
// SERVER
// ============================================================================

// Options configures a Server.
type Options struct {
	Addr      string
	JWTSecret string
	TokenTTL  time.Duration
	SeedFile  string
	// BcryptCost of 0 uses bcrypt.DefaultCost
	BcryptCost     int
	LoginPerMinute int
	Logger         *logging.Logger
}

// OptionsFromConfig maps the [devserver] config section.
func OptionsFromConfig(c config.DevServerConfig) Options {
	return Options{
		Addr:      c.Addr,
		JWTSecret: c.JWTSecret,
		TokenTTL:  time.Duration(c.TokenTTLSecs) * time.Second,
		SeedFile:  c.SeedFile,
	}
}

// Server is the dev identity service.
type Server struct {
	opts   Options
	dir    *Directory
	issuer *Issuer
	log    *logging.Logger
	router chi.Router
	server *http.Server
}

// New builds a Server and loads the seed file when one is configured.
func New(opts Options) (*Server, error) {
	if opts.LoginPerMinute <= 0 {
		opts.LoginPerMinute = DefaultLoginPerMinute
	}
	log := opts.Logger
	if log == nil {
		log = logging.Discard()
	}
	issuer, err := NewIssuer(opts.JWTSecret, opts.TokenTTL)
	if err != nil {
		return nil, err
	}

	s := &Server{
		opts:   opts,
		dir:    NewDirectory(opts.BcryptCost),
		issuer: issuer,
		log:    log.WithComponent("devserver"),
	}
	if opts.SeedFile != "" {
		n, err := s.dir.LoadSeed(opts.SeedFile)
		if err != nil {
			return nil, err
		}
		s.log.Info("seeded accounts", "count", n, "file", opts.SeedFile)
	}
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(RecoveryMiddleware(s.log), SecurityHeadersMiddleware(), LoggingMiddleware(s.log))

	r.Get("/health", s.handleHealth)
	r.Route("/api/admins", func(r chi.Router) {
		r.With(RateLimitMiddleware(NewRateLimiter(s.opts.LoginPerMinute), s.log)).Post("/login", s.handleLogin)
		r.Post("/register", s.handleRegister)
		r.With(BearerMiddleware(s.issuer)).Get("/profile", s.handleProfile)
	})
	s.router = r
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Directory exposes the account store.
func (s *Server) Directory() *Directory {
	return s.dir
}

// Issuer exposes the token issuer.
func (s *Server) Issuer() *Issuer {
	return s.issuer
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
// ready, when non-nil, receives the bound address once listening.
func (s *Server) ListenAndServe(ctx context.Context, ready func(addr string)) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.opts.Addr, err)
	}

	s.server = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- s.server.Serve(ln) }()

	addr := ln.Addr().String()
	s.log.Info("SERVER_START", "addr", addr, "accounts", s.dir.Len())
	if ready != nil {
		ready(addr)
	}

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.log.Info("SERVER_SHUTDOWN")
		return s.server.Shutdown(shutdownCtx)
	}
}

// ============================================================================
// HANDLERS
// ============================================================================

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeFailure(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := s.dir.Authenticate(req.Email, req.Password)
	switch {
	case errors.Is(err, ErrInactive):
		s.log.SessionEvent(logging.EventLoginFailed, "", req.Email, "inactive account")
		writeFailure(w, http.StatusForbidden, "Account is inactive")
		return
	case err != nil:
		s.log.SessionEvent(logging.EventLoginFailed, "", req.Email, "bad credentials")
		writeFailure(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	token, exp, err := s.issuer.Issue(user)
	if err != nil {
		s.log.Error("token issue failed", "error", err.Error())
		writeFailure(w, http.StatusInternalServerError, "Failed to issue token")
		return
	}
	s.log.SessionEvent(logging.EventSessionCreated, "", user.Email, "exp="+exp.UTC().Format(time.RFC3339))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token": token,
		"user":  wireUser(user),
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var form identity.RegisterForm
	if err := decodeBody(w, r, &form); err != nil {
		writeFailure(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := s.dir.Create(form)
	switch {
	case errors.Is(err, ErrEmailTaken):
		writeFailure(w, http.StatusConflict, "Email already exists")
		return
	case errors.Is(err, ErrMissingFields):
		writeFailure(w, http.StatusBadRequest, "All fields are required")
		return
	case err != nil:
		writeFailure(w, http.StatusBadRequest, err.Error())
		return
	}

	s.log.SessionEvent(logging.EventStaffRegistered, "", user.Email, "role="+user.Role)
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": "Staff registered",
		"data":    wireUser(user),
	})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())
	if claims == nil {
		writeFailure(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	if _, err := s.dir.Get(claims.Subject); err != nil {
		writeFailure(w, http.StatusUnauthorized, "Account no longer exists")
		return
	}

	users := s.dir.List()
	data := make([]map[string]interface{}, len(users))
	for i, u := range users {
		data[i] = wireUser(u)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    data,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"accounts": s.dir.Len(),
	})
}

// ============================================================================
// HELPERS
// ============================================================================

// wireUser renders a user the way the hosted service does: a Mongo-style
// _id and a boolean status.
func wireUser(u identity.UserRecord) map[string]interface{} {
	return map[string]interface{}{
		"_id":      u.ID,
		"email":    u.Email,
		"username": u.Username,
		"role":     u.Role,
		"status":   u.Active,
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)
	dec := json.NewDecoder(r.Body)
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeFailure(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{
		"success": false,
		"message": message,
	})
}
