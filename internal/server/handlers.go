package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/Emanuel0428/FlowForgeAI-sub001/internal/localstore"
	"github.com/Emanuel0428/FlowForgeAI-sub001/internal/profile"
	"github.com/Emanuel0428/FlowForgeAI-sub001/internal/report"
	"github.com/Emanuel0428/FlowForgeAI-sub001/pkg/domain"
)

const maxBodyBytes = 1 << 20

func decodeBody(w http.ResponseWriter, r *http.Request, out any) bool {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(out); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	// Retries overrides the sign-in retry count; absent means the default.
	Retries *int `json:"retries,omitempty"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(w, r, s.signupLimiter, "too many signup attempts") {
		return
	}
	var req credentialsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	user, err := s.auth.SignUp(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"user": user})
}

func (s *Server) handleSignin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(w, r, s.signinLimiter, "too many signin attempts") {
		return
	}
	var req credentialsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	retries := -1
	if req.Retries != nil {
		retries = *req.Retries
	}
	sess, err := s.auth.SignIn(r.Context(), req.Email, req.Password, retries)
	if err != nil {
		writeServiceError(w, err, http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session": sess, "user": sess.User})
}

func (s *Server) handleSignout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	s.ctrl.SignOut(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	sess, err := s.auth.RefreshSession(r.Context())
	if err != nil {
		writeServiceError(w, err, http.StatusUnauthorized)
		return
	}
	if sess == nil {
		writeError(w, http.StatusUnauthorized, "no session to refresh")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session": sess})
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req credentialsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.auth.ResetPassword(r.Context(), req.Email); err != nil {
		writeServiceError(w, err, http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUpdatePassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w)
		return
	}
	var req struct {
		NewPassword string `json:"newPassword"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.auth.UpdatePassword(r.Context(), req.NewPassword); err != nil {
		writeServiceError(w, err, http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	sess, err := s.auth.CurrentSession(r.Context())
	if err != nil {
		writeServiceError(w, err, http.StatusBadGateway)
		return
	}
	valid := false
	if sess != nil {
		if valid, err = s.auth.HasValidSession(r.Context()); err != nil {
			writeServiceError(w, err, http.StatusBadGateway)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"session": sess, "valid": valid})
}

func (s *Server) handleUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	user, err := s.auth.CurrentUser(r.Context())
	if err != nil {
		writeServiceError(w, err, http.StatusBadGateway)
		return
	}
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// profilePatchRequest mirrors profile.Patch with the app-facing field names.
// A nil field was absent from the body and stays untouched; an empty string
// explicitly clears the column.
type profilePatchRequest struct {
	BusinessType        *string `json:"businessType"`
	RevenueModel        *string `json:"revenueModel"`
	BusinessStage       *string `json:"businessStage"`
	MainObjective       *string `json:"mainObjective"`
	DigitalizationLevel *string `json:"digitalizationLevel"`
	EmployeeCount       *string `json:"employeeCount"`

	BusinessName         *string `json:"businessName"`
	BusinessDescription  *string `json:"businessDescription"`
	Industry             *string `json:"industry"`
	TargetMarket         *string `json:"targetMarket"`
	MainGoals            *string `json:"mainGoals"`
	CurrentChallenges    *string `json:"currentChallenges"`
	CompetitiveAdvantage *string `json:"competitiveAdvantage"`
	MonthlyRevenue       *string `json:"monthlyRevenue"`
	MarketingChannels    *string `json:"marketingChannels"`
	CurrentTools         *string `json:"currentTools"`
	TeamStructure        *string `json:"teamStructure"`
	SalesProcess         *string `json:"salesProcess"`
	CustomerAcquisition  *string `json:"customerAcquisition"`
	RetentionStrategy    *string `json:"retentionStrategy"`
	TechStack            *string `json:"techStack"`
	DataManagement       *string `json:"dataManagement"`
	AutomationLevel      *string `json:"automationLevel"`
	BudgetRange          *string `json:"budgetRange"`
	Timeframe            *string `json:"timeframe"`
	AdditionalContext    *string `json:"additionalContext"`
}

func (req profilePatchRequest) toPatch() profile.Patch {
	return profile.Patch{
		BusinessType:        req.BusinessType,
		RevenueModel:        req.RevenueModel,
		BusinessStage:       req.BusinessStage,
		MainObjective:       req.MainObjective,
		DigitalizationLevel: req.DigitalizationLevel,
		EmployeeCount:       req.EmployeeCount,

		BusinessName:         req.BusinessName,
		BusinessDescription:  req.BusinessDescription,
		Industry:             req.Industry,
		TargetMarket:         req.TargetMarket,
		MainGoals:            req.MainGoals,
		CurrentChallenges:    req.CurrentChallenges,
		CompetitiveAdvantage: req.CompetitiveAdvantage,
		MonthlyRevenue:       req.MonthlyRevenue,
		MarketingChannels:    req.MarketingChannels,
		CurrentTools:         req.CurrentTools,
		TeamStructure:        req.TeamStructure,
		SalesProcess:         req.SalesProcess,
		CustomerAcquisition:  req.CustomerAcquisition,
		RetentionStrategy:    req.RetentionStrategy,
		TechStack:            req.TechStack,
		DataManagement:       req.DataManagement,
		AutomationLevel:      req.AutomationLevel,
		BudgetRange:          req.BudgetRange,
		Timeframe:            req.Timeframe,
		AdditionalContext:    req.AdditionalContext,
	}
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		rec, err := s.profiles.Get(r.Context())
		if err != nil {
			writeServiceError(w, err, http.StatusBadGateway)
			return
		}
		if rec == nil {
			writeJSON(w, http.StatusOK, map[string]any{"profile": nil})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"profile": rec.AppProfile(), "extended": rec.ExtendedProfile()})
	case http.MethodPut:
		var p domain.BusinessProfile
		if !decodeBody(w, r, &p) {
			return
		}
		rec, err := s.ctrl.SaveProfile(r.Context(), p)
		if err != nil {
			writeServiceError(w, err, http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"profile": rec.AppProfile()})
	case http.MethodPatch:
		var req profilePatchRequest
		if !decodeBody(w, r, &req) {
			return
		}
		rec, err := s.profiles.Update(r.Context(), req.toPatch())
		if err != nil {
			writeServiceError(w, err, http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"profile": rec.AppProfile(), "extended": rec.ExtendedProfile()})
	case http.MethodDelete:
		if err := s.profiles.Delete(r.Context()); err != nil {
			writeServiceError(w, err, http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleProfileFields(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	columns, err := s.profiles.CheckAvailableFields(r.Context())
	if err != nil {
		writeServiceError(w, err, http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"columns": columns})
}

func (s *Server) handleModules(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"modules": report.Modules})
}

func (s *Server) handleSelectModule(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req struct {
		ModuleID string `json:"moduleId"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.ctrl.SelectModule(req.ModuleID); err != nil {
		writeServiceError(w, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, s.ctrl.State())
}

func (s *Server) handleGenerateReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req struct {
		Input string `json:"input"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	rep, err := s.ctrl.SubmitReport(r.Context(), req.Input)
	if err != nil {
		writeServiceError(w, err, http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusCreated, rep)
}

func (s *Server) handleRetryReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	rep, err := s.ctrl.Retry(r.Context())
	if err != nil {
		writeServiceError(w, err, http.StatusBadGateway)
		return
	}
	if rep == nil {
		writeJSON(w, http.StatusOK, s.ctrl.State())
		return
	}
	writeJSON(w, http.StatusCreated, rep)
}

func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	var (
		reports []domain.AIReport
		err     error
	)
	if moduleID := r.URL.Query().Get("module"); moduleID != "" {
		reports, err = s.reports.ReportsByModule(r.Context(), moduleID)
	} else {
		reports, err = s.reports.UserReports(r.Context())
	}
	if err != nil {
		writeServiceError(w, err, http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reports": reports})
}

func (s *Server) handleReportStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	stats, err := s.reports.Stats(r.Context())
	if err != nil {
		writeServiceError(w, err, http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleReportByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/reports/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	switch r.Method {
	case http.MethodGet:
		rep, err := s.reports.Get(r.Context(), id)
		if err != nil {
			writeServiceError(w, err, http.StatusBadGateway)
			return
		}
		if rep == nil {
			writeError(w, http.StatusNotFound, "report not found")
			return
		}
		writeJSON(w, http.StatusOK, rep)
	case http.MethodDelete:
		if err := s.reports.Delete(r.Context(), id); err != nil {
			writeServiceError(w, err, http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleDarkMode(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		raw, ok, err := s.local.Durable.Get(r.Context(), localstore.DarkModeKey)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"darkMode": ok && raw == "true"})
	case http.MethodPut:
		var req struct {
			DarkMode bool `json:"darkMode"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		value := "false"
		if req.DarkMode {
			value = "true"
		}
		if err := s.local.Durable.Set(r.Context(), localstore.DarkModeKey, value); err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"darkMode": req.DarkMode})
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, s.ctrl.State())
}

func (s *Server) handleStateError(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		methodNotAllowed(w)
		return
	}
	s.ctrl.ClearError()
	w.WriteHeader(http.StatusNoContent)
}
