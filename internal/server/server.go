// Package server exposes the application over HTTP: auth, profile, module,
// report, and preference endpoints on top of the orchestration services.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Emanuel0428/FlowForgeAI-sub001/internal/auth"
	"github.com/Emanuel0428/FlowForgeAI-sub001/internal/controller"
	"github.com/Emanuel0428/FlowForgeAI-sub001/internal/localstore"
	"github.com/Emanuel0428/FlowForgeAI-sub001/internal/profile"
	"github.com/Emanuel0428/FlowForgeAI-sub001/internal/ratelimit"
	"github.com/Emanuel0428/FlowForgeAI-sub001/internal/report"
	"github.com/Emanuel0428/FlowForgeAI-sub001/internal/supabase"
	"github.com/Emanuel0428/FlowForgeAI-sub001/internal/util"
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	Controller *controller.Controller
	Auth       *auth.Service
	Profiles   *profile.Service
	Reports    *report.Service
	Local      *localstore.Store

	RedisAddr     string
	RedisPassword string
	// Per-IP per-minute quotas on the credential endpoints. Zero means the
	// defaults.
	SignupRateLimitPerMinute int
	SigninRateLimitPerMinute int
}

// Server exposes HTTP endpoints for the application.
type Server struct {
	ctrl     *controller.Controller
	auth     *auth.Service
	profiles *profile.Service
	reports  *report.Service
	local    *localstore.Store
	mux      *http.ServeMux

	signupLimiter *ratelimit.FixedWindowLimiter
	signinLimiter *ratelimit.FixedWindowLimiter
}

// New constructs the server with routes configured.
func New(cfg Config) (*Server, error) {
	if cfg.Controller == nil || cfg.Auth == nil || cfg.Profiles == nil || cfg.Reports == nil || cfg.Local == nil {
		return nil, fmt.Errorf("server requires controller, auth, profile, report, and local store dependencies")
	}
	signupLimit := cfg.SignupRateLimitPerMinute
	if signupLimit <= 0 {
		signupLimit = 5
	}
	signinLimit := cfg.SigninRateLimitPerMinute
	if signinLimit <= 0 {
		signinLimit = 10
	}
	newLimiter := func(name string, limit int) (*ratelimit.FixedWindowLimiter, error) {
		prefix := "flowforge:ratelimit:" + name
		limiter, err := ratelimit.NewRedisFixedWindowLimiter(cfg.RedisAddr, cfg.RedisPassword, prefix, limit, time.Minute)
		if err != nil {
			return nil, fmt.Errorf("init %s limiter: %w", name, err)
		}
		return limiter, nil
	}
	signupLimiter, err := newLimiter("signup", signupLimit)
	if err != nil {
		return nil, err
	}
	signinLimiter, err := newLimiter("signin", signinLimit)
	if err != nil {
		return nil, err
	}
	s := &Server{
		ctrl:          cfg.Controller,
		auth:          cfg.Auth,
		profiles:      cfg.Profiles,
		reports:       cfg.Reports,
		local:         cfg.Local,
		mux:           http.NewServeMux(),
		signupLimiter: signupLimiter,
		signinLimiter: signinLimiter,
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler wrapped in the standard middleware.
func (s *Server) Router() http.Handler {
	return util.WithSecurityHeaders(util.WithCORS(util.WithRequestID(util.WithRequestLog(s.mux))))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)

	// auth
	s.mux.HandleFunc("/api/auth/signup", s.handleSignup)
	s.mux.HandleFunc("/api/auth/signin", s.handleSignin)
	s.mux.HandleFunc("/api/auth/signout", s.handleSignout)
	s.mux.HandleFunc("/api/auth/refresh", s.handleRefresh)
	s.mux.HandleFunc("/api/auth/reset-password", s.handleResetPassword)
	s.mux.HandleFunc("/api/auth/password", s.handleUpdatePassword)
	s.mux.HandleFunc("/api/auth/session", s.handleSession)
	s.mux.HandleFunc("/api/auth/user", s.handleUser)

	// profile
	s.mux.HandleFunc("/api/profile", s.handleProfile)
	s.mux.HandleFunc("/api/profile/fields", s.handleProfileFields)

	// modules and reports
	s.mux.HandleFunc("/api/modules", s.handleModules)
	s.mux.HandleFunc("/api/modules/select", s.handleSelectModule)
	s.mux.HandleFunc("/api/reports", s.handleReports)
	s.mux.HandleFunc("/api/reports/generate", s.handleGenerateReport)
	s.mux.HandleFunc("/api/reports/retry", s.handleRetryReport)
	s.mux.HandleFunc("/api/reports/stats", s.handleReportStats)
	s.mux.HandleFunc("/api/reports/", s.handleReportByID)

	// preferences and app state
	s.mux.HandleFunc("/api/preferences/dark-mode", s.handleDarkMode)
	s.mux.HandleFunc("/api/state", s.handleState)
	s.mux.HandleFunc("/api/state/error", s.handleStateError)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) allowRate(w http.ResponseWriter, r *http.Request, limiter *ratelimit.FixedWindowLimiter, msg string) bool {
	key := r.URL.Path + "|" + util.ClientIP(r, nil)
	if limiter.Allow(key) {
		return true
	}
	w.Header().Set("Retry-After", "60")
	writeError(w, http.StatusTooManyRequests, msg)
	return false
}

// errorStatus maps a service error to an HTTP status, falling back when the
// error carries no recognizable condition.
func errorStatus(err error, fallback int) int {
	switch {
	case errors.Is(err, auth.ErrNotAuthenticated),
		errors.Is(err, controller.ErrAuthRequired):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrInvalidEmail),
		errors.Is(err, auth.ErrPasswordTooShort),
		errors.Is(err, controller.ErrUnknownModule):
		return http.StatusBadRequest
	case errors.Is(err, profile.ErrNotFound):
		return http.StatusNotFound
	}
	switch supabase.KindOf(err) {
	case supabase.KindInvalidCredentials, supabase.KindSessionMissing:
		return http.StatusUnauthorized
	case supabase.KindNetwork:
		return http.StatusBadGateway
	case supabase.KindConflict:
		return http.StatusConflict
	}
	return fallback
}

func writeServiceError(w http.ResponseWriter, err error, fallback int) {
	writeError(w, errorStatus(err, fallback), err.Error())
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
