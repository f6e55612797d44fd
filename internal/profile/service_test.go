package profile

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/Emanuel0428/FlowForgeAI-sub001/internal/auth"
	"github.com/Emanuel0428/FlowForgeAI-sub001/internal/supabase"
	"github.com/Emanuel0428/FlowForgeAI-sub001/pkg/domain"
)

type fakeAuth struct {
	sess *domain.Session
}

func (f *fakeAuth) CurrentSession(context.Context) (*domain.Session, error) {
	return f.sess, nil
}

func signedIn() *fakeAuth {
	return &fakeAuth{sess: &domain.Session{
		AccessToken: "access-1",
		User:        domain.User{ID: "user-1", Email: "ana@example.com"},
	}}
}

func newTestService(t *testing.T, src AuthSource, handler http.Handler) *Service {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	api, err := supabase.NewClient(supabase.Config{URL: srv.URL, AnonKey: "anon-key"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	svc, err := New(Config{API: api, Auth: src})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func validProfile() domain.BusinessProfile {
	return domain.BusinessProfile{
		BusinessType:        "saas",
		RevenueModel:        "b2b",
		BusinessStage:       "crecimiento",
		MainObjective:       "aumentar-ventas",
		DigitalizationLevel: "medio-herramientas",
		EmployeeCount:       "6-20",
		BusinessName:        "Acme",
	}
}

func recordJSON() string {
	return `[{"id":"prof-1","user_id":"user-1","business_type":"saas",` +
		`"revenue_model":"b2b","business_stage":"crecimiento",` +
		`"main_objective":"aumentar-ventas","digitalization_level":"medio-herramientas",` +
		`"employee_count":"6-20","business_name":"Acme"}]`
}

func TestSaveRejectsInvalidInputBeforeRemoteCall(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("remote must not be called for invalid input")
	})
	svc := newTestService(t, signedIn(), handler)

	p := validProfile()
	p.BusinessStage = "unicornio"
	if _, err := svc.Save(context.Background(), p); err == nil || !strings.Contains(err.Error(), "businessStage") {
		t.Fatalf("err = %v, want invalid businessStage", err)
	}

	p = validProfile()
	p.RevenueModel = ""
	p.EmployeeCount = ""
	_, err := svc.Save(context.Background(), p)
	if err == nil || !strings.Contains(err.Error(), "revenueModel") || !strings.Contains(err.Error(), "employeeCount") {
		t.Fatalf("err = %v, want both missing fields listed", err)
	}
}

func TestSaveUpsertsKeyedOnUser(t *testing.T) {
	var captured struct {
		query  string
		prefer string
		body   string
	}
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/rest/v1/user_profiles" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		captured.query = r.URL.RawQuery
		captured.prefer = r.Header.Get("Prefer")
		raw, _ := io.ReadAll(r.Body)
		captured.body = string(raw)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, recordJSON())
	})
	svc := newTestService(t, signedIn(), handler)

	rec, err := svc.Save(context.Background(), validProfile())
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if rec.ID != "prof-1" {
		t.Fatalf("rec.ID = %q", rec.ID)
	}
	if captured.query != "on_conflict=user_id" {
		t.Fatalf("query = %q", captured.query)
	}
	if !strings.Contains(captured.prefer, "resolution=merge-duplicates") {
		t.Fatalf("Prefer = %q", captured.prefer)
	}
	if strings.Contains(captured.body, `"id"`) {
		t.Fatalf("payload must not carry the row id: %s", captured.body)
	}
	if !strings.Contains(captured.body, `"user_id":"user-1"`) {
		t.Fatalf("payload missing user_id: %s", captured.body)
	}

	// The save primes the cache; the follow-up read stays local.
	again, err := svc.Get(context.Background())
	if err != nil || again == nil || again.ID != "prof-1" {
		t.Fatalf("cached read = (%+v, %v)", again, err)
	}
}

func TestGetUnauthenticatedReturnsNil(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("remote must not be called without a session")
	})
	svc := newTestService(t, &fakeAuth{}, handler)

	rec, err := svc.Get(context.Background())
	if rec != nil || err != nil {
		t.Fatalf("Get = (%+v, %v), want (nil, nil)", rec, err)
	}
}

func TestGetCachesConfirmedAbsence(t *testing.T) {
	var calls atomic.Int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotAcceptable)
		json.NewEncoder(w).Encode(map[string]string{
			"code":    "PGRST116",
			"message": "JSON object requested, multiple (or no) rows returned",
		})
	})
	svc := newTestService(t, signedIn(), handler)

	for i := 0; i < 2; i++ {
		rec, err := svc.Get(context.Background())
		if rec != nil || err != nil {
			t.Fatalf("Get = (%+v, %v), want (nil, nil)", rec, err)
		}
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("remote called %d times, want 1 (absence cached)", got)
	}
}

func TestUpdateSendsOnlyPresentFields(t *testing.T) {
	var body string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			t.Fatalf("unexpected method %s", r.Method)
		}
		raw, _ := io.ReadAll(r.Body)
		body = string(raw)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, recordJSON())
	})
	svc := newTestService(t, signedIn(), handler)

	name := "Acme"
	if _, err := svc.Update(context.Background(), Patch{BusinessName: &name}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if body != `{"business_name":"Acme"}` {
		t.Fatalf("payload = %s, want exactly the patched column", body)
	}
}

func TestUpdateEmptyPatchSkipsRemoteWrite(t *testing.T) {
	var patches atomic.Int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPatch {
			patches.Add(1)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, strings.TrimSuffix(strings.TrimPrefix(recordJSON(), "["), "]"))
	})
	svc := newTestService(t, signedIn(), handler)

	rec, err := svc.Update(context.Background(), Patch{})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if rec == nil || rec.ID != "prof-1" {
		t.Fatalf("rec = %+v", rec)
	}
	if patches.Load() != 0 {
		t.Fatalf("empty patch must not write remotely")
	}
}

func TestUpdateValidatesEnumInPatch(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("remote must not be called for invalid input")
	})
	svc := newTestService(t, signedIn(), handler)

	bad := "no-such-stage"
	_, err := svc.Update(context.Background(), Patch{BusinessStage: &bad})
	if err == nil || !strings.Contains(err.Error(), "businessStage") {
		t.Fatalf("err = %v, want invalid businessStage", err)
	}
}

func TestUpdateWithoutRowReportsNotFound(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, "[]")
	})
	svc := newTestService(t, signedIn(), handler)

	name := "Acme"
	if _, err := svc.Update(context.Background(), Patch{BusinessName: &name}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestWriteOperationsRequireSession(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("remote must not be called without a session")
	})
	svc := newTestService(t, &fakeAuth{}, handler)

	if _, err := svc.Save(context.Background(), validProfile()); !errors.Is(err, auth.ErrNotAuthenticated) {
		t.Fatalf("save err = %v", err)
	}
	name := "Acme"
	if _, err := svc.Update(context.Background(), Patch{BusinessName: &name}); !errors.Is(err, auth.ErrNotAuthenticated) {
		t.Fatalf("update err = %v", err)
	}
	if err := svc.Delete(context.Background()); !errors.Is(err, auth.ErrNotAuthenticated) {
		t.Fatalf("delete err = %v", err)
	}
}

func TestDeleteScopesToUserAndDropsCache(t *testing.T) {
	var deleteQuery string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodDelete:
			deleteQuery = r.URL.RawQuery
			w.WriteHeader(http.StatusNoContent)
		case http.MethodGet:
			w.Header().Set("Content-Type", "application/json")
			io.WriteString(w, strings.TrimSuffix(strings.TrimPrefix(recordJSON(), "["), "]"))
		default:
			w.Header().Set("Content-Type", "application/json")
			io.WriteString(w, recordJSON())
		}
	})
	svc := newTestService(t, signedIn(), handler)

	if _, err := svc.Save(context.Background(), validProfile()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := svc.Delete(context.Background()); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if deleteQuery != "user_id=eq.user-1" {
		t.Fatalf("delete query = %q", deleteQuery)
	}
	// Cache dropped: the next read goes back to the remote.
	rec, err := svc.Get(context.Background())
	if err != nil || rec == nil {
		t.Fatalf("Get after delete = (%+v, %v)", rec, err)
	}
}

func TestCheckAvailableFieldsSortsColumns(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `[{"user_id":"u","business_type":"saas","id":"p"}]`)
	})
	svc := newTestService(t, signedIn(), handler)

	columns, err := svc.CheckAvailableFields(context.Background())
	if err != nil {
		t.Fatalf("check fields: %v", err)
	}
	want := []string{"business_type", "id", "user_id"}
	if len(columns) != len(want) {
		t.Fatalf("columns = %v", columns)
	}
	for i := range want {
		if columns[i] != want[i] {
			t.Fatalf("columns = %v, want %v", columns, want)
		}
	}
}

func TestRecordConversionRoundTrip(t *testing.T) {
	name := "Acme"
	industry := "logística"
	rec := &Record{
		ID: "prof-1", UserID: "user-1",
		BusinessType: "saas", RevenueModel: "b2b", BusinessStage: "crecimiento",
		MainObjective: "aumentar-ventas", DigitalizationLevel: "medio-herramientas",
		EmployeeCount: "6-20", BusinessName: &name, Industry: &industry,
	}
	app := rec.AppProfile()
	if !app.Complete() {
		t.Fatalf("complete row must convert to a complete profile")
	}
	if app.BusinessName != "Acme" {
		t.Fatalf("BusinessName = %q", app.BusinessName)
	}
	ext := rec.ExtendedProfile()
	if ext.Industry != "logística" {
		t.Fatalf("Industry = %q", ext.Industry)
	}
	if ext.AdditionalContext != "" {
		t.Fatalf("absent optional column must flatten to empty string")
	}
}
