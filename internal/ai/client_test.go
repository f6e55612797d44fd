package ai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Emanuel0428/FlowForgeAI-sub001/pkg/domain"
)

func TestGenerateReport(t *testing.T) {
	var got Request
	var authHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/generate" {
			t.Fatalf("path = %q", r.URL.Path)
		}
		authHeader = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&got)
		io.WriteString(w, `{"content":"# Informe\n\nRecomendaciones."}`)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, "gen-key")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	content, err := c.GenerateReport(context.Background(), Request{
		Profile:   domain.BusinessProfile{BusinessType: "saas"},
		ModuleID:  "estrategia-digital",
		UserInput: "¿Cómo crezco?",
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.Contains(content, "Informe") {
		t.Fatalf("content = %q", content)
	}
	if authHeader != "Bearer gen-key" {
		t.Fatalf("Authorization = %q", authHeader)
	}
	if got.Language != DefaultLanguage {
		t.Fatalf("language = %q, want default applied", got.Language)
	}
	if got.ModuleID != "estrategia-digital" {
		t.Fatalf("moduleId = %q", got.ModuleID)
	}
}

func TestGenerateReportEmptyContentIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"content":"  "}`)
	}))
	defer srv.Close()

	c, _ := NewClient(srv.URL, "")
	if _, err := c.GenerateReport(context.Background(), Request{ModuleID: "m"}); err == nil {
		t.Fatalf("expected error for blank content")
	}
}

func TestGenerateReportSurfacesRemoteMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		io.WriteString(w, `{"error":{"message":"quota exceeded"}}`)
	}))
	defer srv.Close()

	c, _ := NewClient(srv.URL, "")
	_, err := c.GenerateReport(context.Background(), Request{ModuleID: "m"})
	if err == nil || !strings.Contains(err.Error(), "quota exceeded") {
		t.Fatalf("err = %v", err)
	}
}
