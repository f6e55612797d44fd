// Package controller holds the application state machine: startup, module
// selection, report submission, and the auth-state driven hydration of the
// user's profile.
package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Emanuel0428/FlowForgeAI-sub001/internal/ai"
	"github.com/Emanuel0428/FlowForgeAI-sub001/internal/auth"
	"github.com/Emanuel0428/FlowForgeAI-sub001/internal/profile"
	"github.com/Emanuel0428/FlowForgeAI-sub001/internal/report"
	"github.com/Emanuel0428/FlowForgeAI-sub001/pkg/domain"
)

// Phase is the controller lifecycle state. Error is terminal: recovery
// requires a process restart.
type Phase string

const (
	PhaseInitializing Phase = "initializing"
	PhaseReady        Phase = "ready"
	PhaseError        Phase = "error"
)

// ErrAuthRequired signals that report submission needs an authenticated
// user with a complete, loaded profile.
var ErrAuthRequired = errors.New("Inicia sesión y completa tu perfil para generar informes")

// ErrUnknownModule rejects selection of ids outside the registry.
var ErrUnknownModule = errors.New("Módulo desconocido")

// Config holds the controller dependencies.
type Config struct {
	Auth      *auth.Service
	Profiles  *profile.Service
	Reports   *report.Service
	Generator ai.Generator
	Language  string
}

// Controller owns the mutable application state. All remote calls happen
// outside its lock; only state mutation is serialized.
type Controller struct {
	auth      *auth.Service
	profiles  *profile.Service
	reports   *report.Service
	generator ai.Generator
	language  string

	mu             sync.Mutex
	phase          Phase
	user           *domain.User
	dbProfile      *profile.Record
	selectedModule string
	lastInput      string
	reportContent  string
	errMessage     string
	loading        bool
	showWelcome    bool
	sub            *auth.Subscription
}

// ErrorDisplaySeconds is how long clients should surface ErrorMessage
// before hiding it on their own.
const ErrorDisplaySeconds = 5

// Snapshot is a point-in-time copy of the controller state.
type Snapshot struct {
	Phase          Phase                   `json:"phase"`
	User           *domain.User            `json:"user,omitempty"`
	Profile        *domain.BusinessProfile `json:"profile,omitempty"`
	SelectedModule string                  `json:"selectedModule,omitempty"`
	ReportContent  string                  `json:"reportContent,omitempty"`
	ErrorMessage   string                  `json:"errorMessage,omitempty"`
	// ErrorDisplaySeconds accompanies ErrorMessage as a display hint.
	ErrorDisplaySeconds int  `json:"errorDisplaySeconds,omitempty"`
	Loading             bool `json:"loading"`
	ShowWelcome         bool `json:"showWelcome"`
}

// New constructs the controller in the initializing phase.
func New(cfg Config) (*Controller, error) {
	if cfg.Auth == nil || cfg.Profiles == nil || cfg.Reports == nil || cfg.Generator == nil {
		return nil, fmt.Errorf("controller requires auth, profile, report, and generator dependencies")
	}
	language := cfg.Language
	if language == "" {
		language = ai.DefaultLanguage
	}
	return &Controller{
		auth:        cfg.Auth,
		profiles:    cfg.Profiles,
		reports:     cfg.Reports,
		generator:   cfg.Generator,
		language:    language,
		phase:       PhaseInitializing,
		showWelcome: true,
	}, nil
}

// Initialize runs the startup sequence: auth hydration, auth-state
// subscription, then profile hydration for an already-known user. Any
// failure is terminal for this controller.
func (c *Controller) Initialize(ctx context.Context) error {
	if err := c.auth.Initialize(ctx); err != nil {
		return c.failInit(err)
	}

	sub := c.auth.OnAuthStateChange(func(user *domain.User) {
		if user != nil {
			c.onSignedIn(user)
			return
		}
		c.resetOnSignOut()
	})
	c.mu.Lock()
	c.sub = sub
	c.mu.Unlock()

	user, err := c.auth.CurrentUser(ctx)
	if err != nil {
		return c.failInit(err)
	}
	if user != nil {
		if err := c.hydrateProfile(ctx); err != nil {
			return c.failInit(err)
		}
	}

	c.mu.Lock()
	c.user = user
	c.phase = PhaseReady
	c.mu.Unlock()
	slog.Info("controller ready", "authenticated", user != nil)
	return nil
}

func (c *Controller) failInit(err error) error {
	c.mu.Lock()
	c.phase = PhaseError
	c.errMessage = err.Error()
	c.mu.Unlock()
	slog.Error("initialization failed", "err", err)
	return err
}

func (c *Controller) onSignedIn(user *domain.User) {
	c.mu.Lock()
	c.user = user
	c.mu.Unlock()
	if err := c.hydrateProfile(context.Background()); err != nil {
		slog.Warn("profile hydration after sign-in", "err", err)
	}
}

// resetOnSignOut drops every piece of user-derived state, including the
// cached profile.
func (c *Controller) resetOnSignOut() {
	c.profiles.ClearCache()
	c.mu.Lock()
	c.user = nil
	c.dbProfile = nil
	c.selectedModule = ""
	c.lastInput = ""
	c.reportContent = ""
	c.errMessage = ""
	c.loading = false
	c.showWelcome = true
	c.mu.Unlock()
}

func (c *Controller) hydrateProfile(ctx context.Context) error {
	rec, err := c.profiles.Get(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.dbProfile = rec
	c.mu.Unlock()
	return nil
}

// SaveProfile persists the profile and adopts the stored row as current.
func (c *Controller) SaveProfile(ctx context.Context, p domain.BusinessProfile) (*profile.Record, error) {
	rec, err := c.profiles.Save(ctx, p)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.dbProfile = rec
	c.mu.Unlock()
	return rec, nil
}

// SelectModule makes a registry module the active one and resets the
// in-flight report state, leaving any welcome view.
func (c *Controller) SelectModule(id string) error {
	if _, ok := report.ModuleByID(id); !ok {
		return ErrUnknownModule
	}
	c.mu.Lock()
	c.selectedModule = id
	c.reportContent = ""
	c.errMessage = ""
	c.lastInput = ""
	c.showWelcome = false
	c.mu.Unlock()
	return nil
}

// SubmitReport generates and persists a report for the active module. It
// requires an authenticated user with a complete, loaded profile. The
// loading flag is cleared on every path.
func (c *Controller) SubmitReport(ctx context.Context, userInput string) (*domain.AIReport, error) {
	c.mu.Lock()
	user := c.user
	dbProfile := c.dbProfile
	moduleID := c.selectedModule
	c.mu.Unlock()

	appProfile := dbProfile.AppProfile()
	if user == nil || dbProfile == nil || !appProfile.Complete() || moduleID == "" {
		return nil, ErrAuthRequired
	}

	// Recorded only for submissions that actually start, so Retry never
	// re-attempts a request that was rejected before reaching the generator.
	c.mu.Lock()
	c.lastInput = userInput
	c.mu.Unlock()

	c.setLoading(true)
	defer c.setLoading(false)

	content, err := c.generator.GenerateReport(ctx, ai.Request{
		Profile:   *appProfile,
		Extended:  dbProfile.ExtendedProfile(),
		ModuleID:  moduleID,
		UserInput: userInput,
		Language:  c.language,
	})
	if err != nil {
		return nil, c.storeFailure(fmt.Errorf("Error al generar el informe: %w", err))
	}

	rep, err := c.reports.Save(ctx, report.SaveInput{
		ProfileID: dbProfile.ID,
		ModuleID:  moduleID,
		UserInput: userInput,
		Content:   content,
	})
	if err != nil {
		return nil, c.storeFailure(fmt.Errorf("Error al guardar el informe: %w", err))
	}

	c.mu.Lock()
	c.reportContent = content
	c.errMessage = ""
	c.mu.Unlock()
	return rep, nil
}

func (c *Controller) storeFailure(err error) error {
	c.mu.Lock()
	c.errMessage = err.Error()
	c.mu.Unlock()
	slog.Error("report submission failed", "err", err)
	return err
}

func (c *Controller) setLoading(v bool) {
	c.mu.Lock()
	c.loading = v
	c.mu.Unlock()
}

// Retry re-submits the last input when one exists; otherwise it only
// dismisses the displayed error.
func (c *Controller) Retry(ctx context.Context) (*domain.AIReport, error) {
	c.mu.Lock()
	last := c.lastInput
	c.mu.Unlock()
	if last == "" {
		c.ClearError()
		return nil, nil
	}
	return c.SubmitReport(ctx, last)
}

// SignOut clears local state first and then revokes the session remotely. A
// remote failure is kept as a non-fatal message; local state is already
// clean either way.
func (c *Controller) SignOut(ctx context.Context) {
	c.resetOnSignOut()
	if err := c.auth.SignOut(ctx); err != nil {
		c.mu.Lock()
		c.errMessage = err.Error()
		c.mu.Unlock()
	}
}

// ClearError dismisses the current inline error message.
func (c *Controller) ClearError() {
	c.mu.Lock()
	c.errMessage = ""
	c.mu.Unlock()
}

// Close releases the auth-state subscription.
func (c *Controller) Close() {
	c.mu.Lock()
	sub := c.sub
	c.sub = nil
	c.mu.Unlock()
	sub.Unsubscribe()
}

// State returns a copy of the current application state.
func (c *Controller) State() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := Snapshot{
		Phase:          c.phase,
		User:           c.user,
		Profile:        c.dbProfile.AppProfile(),
		SelectedModule: c.selectedModule,
		ReportContent:  c.reportContent,
		ErrorMessage:   c.errMessage,
		Loading:        c.loading,
		ShowWelcome:    c.showWelcome,
	}
	if snap.ErrorMessage != "" {
		snap.ErrorDisplaySeconds = ErrorDisplaySeconds
	}
	return snap
}
