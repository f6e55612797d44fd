package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const validYAML = `port: "8080"
logLevel: info
language: es
supabaseURL: https://example.supabase.co
supabaseAnonKey: anon-key
generatorURL: https://generator.example.com
redisAddr: localhost:6379
signinRateLimitPerMinute: 10
`

func TestLoadValidConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8080" || cfg.SupabaseURL != "https://example.supabase.co" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.SigninRateLimitPerMinute != 10 {
		t.Fatalf("signin limit = %d", cfg.SigninRateLimitPerMinute)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("SUPABASE_ANON_KEY", "env-key")
	t.Setenv("FLOWFORGE_LANGUAGE", "en")
	cfg, err := Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.SupabaseAnonKey != "env-key" {
		t.Fatalf("anon key = %q", cfg.SupabaseAnonKey)
	}
	if cfg.Language != "en" {
		t.Fatalf("language = %q", cfg.Language)
	}
}

func TestMissingRequiredFieldFails(t *testing.T) {
	yaml := strings.Replace(validYAML, "supabaseURL: https://example.supabase.co\n", "", 1)
	if _, err := Load(writeConfig(t, yaml)); err == nil || !strings.Contains(err.Error(), "supabaseURL") {
		t.Fatalf("err = %v, want supabaseURL required", err)
	}
}
