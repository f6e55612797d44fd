package report

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Emanuel0428/FlowForgeAI-sub001/internal/auth"
	"github.com/Emanuel0428/FlowForgeAI-sub001/internal/supabase"
	"github.com/Emanuel0428/FlowForgeAI-sub001/pkg/domain"
)

// Table is the logical name of the remote reports table.
const Table = "ai_reports"

// recentLimit caps the recent-reports slice in Stats.
const recentLimit = 5

// AuthSource resolves the caller's session. *auth.Service satisfies it.
type AuthSource interface {
	CurrentSession(ctx context.Context) (*domain.Session, error)
}

// Config holds the service dependencies.
type Config struct {
	API  *supabase.Client
	Auth AuthSource
	// NewID generates report ids; defaults to random UUIDs.
	NewID func() string
}

// Service persists and queries generated reports.
type Service struct {
	api   *supabase.Client
	auth  AuthSource
	newID func() string
}

// New constructs the report service.
func New(cfg Config) (*Service, error) {
	if cfg.API == nil {
		return nil, fmt.Errorf("supabase client required")
	}
	if cfg.Auth == nil {
		return nil, fmt.Errorf("auth source required")
	}
	newID := cfg.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	return &Service{api: cfg.API, auth: cfg.Auth, newID: newID}, nil
}

// row is the wire shape of a report.
type row struct {
	ID         string `json:"id"`
	UserID     string `json:"user_id"`
	ProfileID  string `json:"profile_id"`
	ModuleID   string `json:"module_id"`
	ModuleName string `json:"module_name"`
	UserInput  string `json:"user_input"`
	Content    string `json:"content"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

func (r row) toDomain() domain.AIReport {
	out := domain.AIReport{
		ID:         r.ID,
		UserID:     r.UserID,
		ProfileID:  r.ProfileID,
		ModuleID:   r.ModuleID,
		ModuleName: r.ModuleName,
		UserInput:  r.UserInput,
		Content:    r.Content,
	}
	if t, err := supabase.ParseTimestamp(r.CreatedAt); err == nil {
		out.CreatedAt = t
	}
	if t, err := supabase.ParseTimestamp(r.UpdatedAt); err == nil {
		out.UpdatedAt = t
	}
	return out
}

// SaveInput carries everything needed to persist one generated report.
type SaveInput struct {
	ProfileID string
	ModuleID  string
	UserInput string
	Content   string
}

// Save writes a new report row with a client-generated id. The module name
// is denormalized at write time so old reports keep their label even if the
// registry changes later.
func (s *Service) Save(ctx context.Context, in SaveInput) (*domain.AIReport, error) {
	sess, err := s.auth.CurrentSession(ctx)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, auth.ErrNotAuthenticated
	}
	payload := map[string]any{
		"id":          s.newID(),
		"user_id":     sess.User.ID,
		"profile_id":  in.ProfileID,
		"module_id":   in.ModuleID,
		"module_name": ModuleName(in.ModuleID),
		"user_input":  in.UserInput,
		"content":     in.Content,
	}
	var rows []row
	if err := s.api.Insert(ctx, sess.AccessToken, Table, []map[string]any{payload}, &rows); err != nil {
		return nil, fmt.Errorf("save report: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("save report: remote returned no row")
	}
	rep := rows[0].toDomain()
	slog.Info("report saved", "reportID", rep.ID, "moduleID", rep.ModuleID)
	return &rep, nil
}

// UserReports lists the user's reports, newest first. Without a session the
// answer is simply empty.
func (s *Service) UserReports(ctx context.Context) ([]domain.AIReport, error) {
	return s.list(ctx, "")
}

// ReportsByModule lists the user's reports for one module, newest first.
func (s *Service) ReportsByModule(ctx context.Context, moduleID string) ([]domain.AIReport, error) {
	return s.list(ctx, moduleID)
}

func (s *Service) list(ctx context.Context, moduleID string) ([]domain.AIReport, error) {
	sess, err := s.auth.CurrentSession(ctx)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return []domain.AIReport{}, nil
	}
	query := "select=*&user_id=eq." + url.QueryEscape(sess.User.ID)
	if moduleID != "" {
		query += "&module_id=eq." + url.QueryEscape(moduleID)
	}
	query += "&order=created_at.desc"
	var rows []row
	if err := s.api.Select(ctx, sess.AccessToken, Table, query, &rows); err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	out := make([]domain.AIReport, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

// Get fetches one of the user's reports. Absence, including another user's
// report hidden by the ownership filter, yields nil without error.
func (s *Service) Get(ctx context.Context, id string) (*domain.AIReport, error) {
	sess, err := s.auth.CurrentSession(ctx)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, nil
	}
	query := "select=*&id=eq." + url.QueryEscape(id) + "&user_id=eq." + url.QueryEscape(sess.User.ID)
	var r row
	if err := s.api.SelectSingle(ctx, sess.AccessToken, Table, query, &r); err != nil {
		if supabase.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("load report: %w", err)
	}
	rep := r.toDomain()
	return &rep, nil
}

// Delete removes one of the user's reports. The filter carries both the id
// and the owner, so a foreign id silently matches nothing.
func (s *Service) Delete(ctx context.Context, id string) error {
	sess, err := s.auth.CurrentSession(ctx)
	if err != nil {
		return err
	}
	if sess == nil {
		return auth.ErrNotAuthenticated
	}
	query := "id=eq." + url.QueryEscape(id) + "&user_id=eq." + url.QueryEscape(sess.User.ID)
	if err := s.api.Delete(ctx, sess.AccessToken, Table, query); err != nil {
		return fmt.Errorf("delete report: %w", err)
	}
	return nil
}

// Stats aggregates the user's report history: total count, counts per
// module, and the most recent reports. The two remote reads run
// concurrently. Without a session the stats are simply zero.
func (s *Service) Stats(ctx context.Context) (*domain.ReportStats, error) {
	sess, err := s.auth.CurrentSession(ctx)
	if err != nil {
		return nil, err
	}
	stats := &domain.ReportStats{ByModule: map[string]int{}, Recent: []domain.AIReport{}}
	if sess == nil {
		return stats, nil
	}
	owner := "user_id=eq." + url.QueryEscape(sess.User.ID)

	var moduleRows []struct {
		ModuleID string `json:"module_id"`
	}
	var recentRows []row

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.api.Select(gctx, sess.AccessToken, Table, "select=module_id&"+owner, &moduleRows)
	})
	g.Go(func() error {
		query := fmt.Sprintf("select=*&%s&order=created_at.desc&limit=%d", owner, recentLimit)
		return s.api.Select(gctx, sess.AccessToken, Table, query, &recentRows)
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("report stats: %w", err)
	}

	stats.Total = len(moduleRows)
	for _, r := range moduleRows {
		stats.ByModule[r.ModuleID]++
	}
	for _, r := range recentRows {
		stats.Recent = append(stats.Recent, r.toDomain())
	}
	return stats, nil
}
