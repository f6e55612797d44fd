package profile

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/Emanuel0428/FlowForgeAI-sub001/internal/auth"
	"github.com/Emanuel0428/FlowForgeAI-sub001/internal/cache"
	"github.com/Emanuel0428/FlowForgeAI-sub001/internal/supabase"
	"github.com/Emanuel0428/FlowForgeAI-sub001/pkg/domain"
)

// AuthSource resolves the caller's session. *auth.Service satisfies it.
type AuthSource interface {
	CurrentSession(ctx context.Context) (*domain.Session, error)
}

// Config holds the service dependencies.
type Config struct {
	API   *supabase.Client
	Auth  AuthSource
	Clock func() time.Time
}

// Service reads and writes the authenticated user's business profile.
type Service struct {
	api     *supabase.Client
	auth    AuthSource
	records *cache.TTLCache[*Record]
}

// New constructs the profile service.
func New(cfg Config) (*Service, error) {
	if cfg.API == nil {
		return nil, fmt.Errorf("supabase client required")
	}
	if cfg.Auth == nil {
		return nil, fmt.Errorf("auth source required")
	}
	opts := []cache.Option[*Record]{}
	if cfg.Clock != nil {
		opts = append(opts, cache.WithClock[*Record](cfg.Clock))
	}
	return &Service{
		api:     cfg.API,
		auth:    cfg.Auth,
		records: cache.New[*Record](cache.ProfileTTL, opts...),
	}, nil
}

// Save validates the profile and upserts it keyed on the owning user. The
// row id is never sent; the database generates it and the merge on user_id
// preserves it across saves.
func (s *Service) Save(ctx context.Context, p domain.BusinessProfile) (*Record, error) {
	if err := validateRequired(p); err != nil {
		return nil, err
	}
	sess, err := s.auth.CurrentSession(ctx)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, auth.ErrNotAuthenticated
	}
	payload := map[string]any{
		"user_id":              sess.User.ID,
		"business_type":        p.BusinessType,
		"revenue_model":        p.RevenueModel,
		"business_stage":       p.BusinessStage,
		"main_objective":       p.MainObjective,
		"digitalization_level": p.DigitalizationLevel,
		"employee_count":       p.EmployeeCount,
	}
	if p.BusinessName != "" {
		payload["business_name"] = p.BusinessName
	}
	var rows []Record
	if err := s.api.Upsert(ctx, sess.AccessToken, Table, "user_id", []map[string]any{payload}, &rows); err != nil {
		return nil, fmt.Errorf("save profile: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrNotSaved
	}
	rec := rows[0]
	s.records.Set(&rec)
	slog.Debug("profile saved", "userID", sess.User.ID, "profileID", rec.ID)
	return &rec, nil
}

// Get returns the user's profile, serving the cache while fresh. Absence is
// not an error: no session or no row both yield nil, and a confirmed
// absence is cached like any other answer.
func (s *Service) Get(ctx context.Context) (*Record, error) {
	if rec, ok := s.records.Get(); ok {
		return rec, nil
	}
	sess, err := s.auth.CurrentSession(ctx)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, nil
	}
	var rec Record
	query := "select=*&user_id=eq." + url.QueryEscape(sess.User.ID)
	if err := s.api.SelectSingle(ctx, sess.AccessToken, Table, query, &rec); err != nil {
		if supabase.IsNotFound(err) {
			s.records.Set(nil)
			return nil, nil
		}
		return nil, fmt.Errorf("load profile: %w", err)
	}
	s.records.Set(&rec)
	return &rec, nil
}

// Update applies a partial update. Only fields present in the patch reach
// the wire; an empty patch is answered from the current state without a
// remote write.
func (s *Service) Update(ctx context.Context, patch Patch) (*Record, error) {
	payload := patch.payload()
	if len(payload) == 0 {
		return s.Get(ctx)
	}
	for column, field := range enumColumns {
		value, ok := payload[column]
		if !ok {
			continue
		}
		if v, _ := value.(string); !domain.ValidEnumValue(field, v) {
			return nil, fmt.Errorf("Valor inválido para %s: %q", field, v)
		}
	}
	sess, err := s.auth.CurrentSession(ctx)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, auth.ErrNotAuthenticated
	}
	var rows []Record
	query := "user_id=eq." + url.QueryEscape(sess.User.ID)
	if err := s.api.Update(ctx, sess.AccessToken, Table, query, payload, &rows); err != nil {
		switch supabase.KindOf(err) {
		case supabase.KindSchemaMismatch:
			return nil, fmt.Errorf("la tabla de perfiles no tiene una columna esperada: %w", err)
		case supabase.KindConflict:
			return nil, fmt.Errorf("el perfil entra en conflicto con otro registro: %w", err)
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	rec := rows[0]
	s.records.Set(&rec)
	return &rec, nil
}

// Delete removes the user's profile row and forgets the cached copy.
func (s *Service) Delete(ctx context.Context) error {
	sess, err := s.auth.CurrentSession(ctx)
	if err != nil {
		return err
	}
	if sess == nil {
		return auth.ErrNotAuthenticated
	}
	query := "user_id=eq." + url.QueryEscape(sess.User.ID)
	if err := s.api.Delete(ctx, sess.AccessToken, Table, query); err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	s.records.Clear()
	return nil
}

// CheckAvailableFields inspects one row of the remote table and reports its
// column names sorted, for diagnosing schema drift against Patch columns.
func (s *Service) CheckAvailableFields(ctx context.Context) ([]string, error) {
	token := ""
	if sess, err := s.auth.CurrentSession(ctx); err == nil && sess != nil {
		token = sess.AccessToken
	}
	var rows []map[string]any
	if err := s.api.Select(ctx, token, Table, "select=*&limit=1", &rows); err != nil {
		return nil, fmt.Errorf("inspect profile table: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	columns := make([]string, 0, len(rows[0]))
	for name := range rows[0] {
		columns = append(columns, name)
	}
	sort.Strings(columns)
	return columns, nil
}

// ClearCache drops the cached profile so the next read hits the remote.
func (s *Service) ClearCache() {
	s.records.Clear()
}

func validateRequired(p domain.BusinessProfile) error {
	var missing []string
	values := []struct{ name, value string }{
		{"businessType", p.BusinessType},
		{"revenueModel", p.RevenueModel},
		{"businessStage", p.BusinessStage},
		{"mainObjective", p.MainObjective},
		{"digitalizationLevel", p.DigitalizationLevel},
		{"employeeCount", p.EmployeeCount},
	}
	for _, f := range values {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("Faltan campos requeridos: %s", strings.Join(missing, ", "))
	}
	for _, f := range values {
		if !domain.ValidEnumValue(f.name, f.value) {
			return fmt.Errorf("Valor inválido para %s: %q", f.name, f.value)
		}
	}
	return nil
}
