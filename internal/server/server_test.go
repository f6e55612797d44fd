package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/Emanuel0428/FlowForgeAI-sub001/internal/ai"
	"github.com/Emanuel0428/FlowForgeAI-sub001/internal/auth"
	"github.com/Emanuel0428/FlowForgeAI-sub001/internal/controller"
	"github.com/Emanuel0428/FlowForgeAI-sub001/internal/localstore"
	"github.com/Emanuel0428/FlowForgeAI-sub001/internal/profile"
	"github.com/Emanuel0428/FlowForgeAI-sub001/internal/report"
	"github.com/Emanuel0428/FlowForgeAI-sub001/internal/supabase"
	"github.com/Emanuel0428/FlowForgeAI-sub001/pkg/domain"
)

type staticGenerator struct{ content string }

func (g staticGenerator) GenerateReport(context.Context, ai.Request) (string, error) {
	return g.content, nil
}

type fixture struct {
	handler http.Handler
	local   *localstore.Store
	// lastPatchBody captures the body of the latest PATCH to the profile
	// table.
	lastPatchBody *string
}

func newFixture(t *testing.T, signedIn bool) *fixture {
	t.Helper()
	f := &fixture{lastPatchBody: new(string)}

	backend := http.NewServeMux()
	backend.HandleFunc("/auth/v1/token", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "access-1", "refresh_token": "refresh-1",
			"token_type": "bearer", "expires_in": 3600,
			"user": map[string]string{"id": "user-1", "email": "ana@example.com", "created_at": "2026-08-01T10:00:00Z"},
		})
	})
	backend.HandleFunc("/auth/v1/user", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"id": "user-1", "email": "ana@example.com", "created_at": "2026-08-01T10:00:00Z",
		})
	})
	backend.HandleFunc("/auth/v1/logout", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	backend.HandleFunc("/rest/v1/user_profiles", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPatch {
			raw, _ := io.ReadAll(r.Body)
			*f.lastPatchBody = string(raw)
		}
		w.Header().Set("Content-Type", "application/json")
		row := `{"id":"prof-1","user_id":"user-1","business_type":"saas",` +
			`"revenue_model":"b2b","business_stage":"crecimiento",` +
			`"main_objective":"aumentar-ventas","digitalization_level":"medio-herramientas",` +
			`"employee_count":"6-20","business_name":"Acme"}`
		if r.Method == http.MethodGet && r.Header.Get("Accept") == "application/vnd.pgrst.object+json" {
			io.WriteString(w, row)
			return
		}
		io.WriteString(w, "["+row+"]")
	})
	backend.HandleFunc("/rest/v1/ai_reports", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `[{"id":"rep-1","user_id":"user-1","profile_id":"prof-1",`+
			`"module_id":"estrategia-digital","module_name":"Estrategia Digital",`+
			`"user_input":"hola","content":"informe","created_at":"2026-08-20T12:00:00Z"}]`)
	})
	backend.HandleFunc("/rest/v1/ai_reports/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, "[]")
	})

	backendSrv := httptest.NewServer(backend)
	t.Cleanup(backendSrv.Close)

	api, err := supabase.NewClient(supabase.Config{URL: backendSrv.URL, AnonKey: "anon-key"})
	if err != nil {
		t.Fatalf("supabase client: %v", err)
	}
	f.local = localstore.New(localstore.NewMemoryArea(), localstore.NewMemoryArea())
	if signedIn {
		raw, _ := json.Marshal(&domain.Session{
			AccessToken:  "access-1",
			RefreshToken: "refresh-1",
			User:         domain.User{ID: "user-1", Email: "ana@example.com"},
		})
		f.local.Durable.Set(context.Background(), localstore.SessionKey, string(raw))
	}
	authSvc, err := auth.New(auth.Config{API: api, Local: f.local})
	if err != nil {
		t.Fatalf("auth: %v", err)
	}
	profileSvc, err := profile.New(profile.Config{API: api, Auth: authSvc})
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	reportSvc, err := report.New(report.Config{API: api, Auth: authSvc})
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	ctrl, err := controller.New(controller.Config{
		Auth: authSvc, Profiles: profileSvc, Reports: reportSvc,
		Generator: staticGenerator{content: "informe"},
	})
	if err != nil {
		t.Fatalf("controller: %v", err)
	}
	t.Cleanup(ctrl.Close)
	if err := ctrl.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	redis := miniredis.RunT(t)
	srv, err := New(Config{
		Controller: ctrl, Auth: authSvc, Profiles: profileSvc,
		Reports: reportSvc, Local: f.local,
		RedisAddr:                redis.Addr(),
		SigninRateLimitPerMinute: 2,
	})
	if err != nil {
		t.Fatalf("server: %v", err)
	}
	f.handler = srv.Router()
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.RemoteAddr = "10.1.2.3:5555"
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthAndSecurityHeaders(t *testing.T) {
	f := newFixture(t, false)
	rec := f.do(t, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("security headers missing")
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatalf("request id missing")
	}
}

func TestSigninReturnsSession(t *testing.T) {
	f := newFixture(t, false)
	rec := f.do(t, http.MethodPost, "/api/auth/signin",
		`{"email":"ana@example.com","password":"secret1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Session domain.Session `json:"session"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Session.AccessToken != "access-1" {
		t.Fatalf("session = %+v", resp.Session)
	}

	rec = f.do(t, http.MethodGet, "/api/auth/user", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("user status = %d", rec.Code)
	}
}

func TestSigninRateLimited(t *testing.T) {
	f := newFixture(t, false)
	body := `{"email":"ana@example.com","password":"secret1"}`
	for i := 0; i < 2; i++ {
		if rec := f.do(t, http.MethodPost, "/api/auth/signin", body); rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i+1, rec.Code)
		}
	}
	rec := f.do(t, http.MethodPost, "/api/auth/signin", body)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "60" {
		t.Fatalf("Retry-After missing")
	}
}

func TestProfilePatchKeepsAbsentFieldsOut(t *testing.T) {
	f := newFixture(t, true)
	rec := f.do(t, http.MethodPatch, "/api/profile", `{"businessName":""}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	if *f.lastPatchBody != `{"business_name":""}` {
		t.Fatalf("patch body = %s, want only the cleared column", *f.lastPatchBody)
	}
}

func TestModulesEndpoint(t *testing.T) {
	f := newFixture(t, false)
	rec := f.do(t, http.MethodGet, "/api/modules", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Modules []report.Module `json:"modules"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if len(resp.Modules) != len(report.Modules) {
		t.Fatalf("modules = %d", len(resp.Modules))
	}
}

func TestGenerateRequiresAuth(t *testing.T) {
	f := newFixture(t, false)
	rec := f.do(t, http.MethodPost, "/api/reports/generate", `{"input":"ayuda"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestGenerateReportFlow(t *testing.T) {
	f := newFixture(t, true)
	rec := f.do(t, http.MethodPost, "/api/modules/select", `{"moduleId":"estrategia-digital"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("select status = %d body=%s", rec.Code, rec.Body.String())
	}
	rec = f.do(t, http.MethodPost, "/api/reports/generate", `{"input":"ayuda"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("generate status = %d body=%s", rec.Code, rec.Body.String())
	}
	var rep domain.AIReport
	json.Unmarshal(rec.Body.Bytes(), &rep)
	if rep.ID != "rep-1" {
		t.Fatalf("report = %+v", rep)
	}

	rec = f.do(t, http.MethodGet, "/api/state", "")
	var state controller.Snapshot
	json.Unmarshal(rec.Body.Bytes(), &state)
	if state.ReportContent != "informe" {
		t.Fatalf("state = %+v", state)
	}
}

func TestDarkModeRoundTrip(t *testing.T) {
	f := newFixture(t, false)
	rec := f.do(t, http.MethodPut, "/api/preferences/dark-mode", `{"darkMode":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("put status = %d", rec.Code)
	}
	rec = f.do(t, http.MethodGet, "/api/preferences/dark-mode", "")
	var resp map[string]bool
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if !resp["darkMode"] {
		t.Fatalf("darkMode = %v", resp)
	}
	raw, ok, _ := f.local.Durable.Get(context.Background(), localstore.DarkModeKey)
	if !ok || raw != "true" {
		t.Fatalf("preference not persisted under its key")
	}
}

func TestUnknownModuleRejected(t *testing.T) {
	f := newFixture(t, true)
	rec := f.do(t, http.MethodPost, "/api/modules/select", `{"moduleId":"no-existe"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	f := newFixture(t, false)
	rec := f.do(t, http.MethodDelete, "/api/auth/signin", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d", rec.Code)
	}
}
