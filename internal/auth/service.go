// Package auth orchestrates the remote auth service: validation, bounded
// retry, session caching, persisted-session hydration, and auth-state
// fan-out to subscribers.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"sync"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/Emanuel0428/FlowForgeAI-sub001/internal/cache"
	"github.com/Emanuel0428/FlowForgeAI-sub001/internal/localstore"
	"github.com/Emanuel0428/FlowForgeAI-sub001/internal/supabase"
	"github.com/Emanuel0428/FlowForgeAI-sub001/pkg/domain"
)

const (
	// DefaultSignInRetries bounds transient-failure retries on sign-in.
	DefaultSignInRetries = 2
	// sessionExpiryMargin treats sessions expiring this soon as invalid.
	sessionExpiryMargin = 5 * time.Minute

	defaultRetryDelay = time.Second
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Config holds the service dependencies.
type Config struct {
	API        *supabase.Client
	Local      *localstore.Store
	RetryDelay time.Duration
	Clock      func() time.Time
}

// Service wraps remote sign-up/sign-in/sign-out/password operations.
type Service struct {
	api        *supabase.Client
	local      *localstore.Store
	sessions   *cache.TTLCache[*domain.Session]
	listeners  *listenerRegistry
	retryDelay time.Duration
	now        func() time.Time

	mu          sync.Mutex
	initialized bool
}

// New constructs the auth service.
func New(cfg Config) (*Service, error) {
	if cfg.API == nil {
		return nil, fmt.Errorf("supabase client required")
	}
	if cfg.Local == nil {
		return nil, fmt.Errorf("local store required")
	}
	retryDelay := cfg.RetryDelay
	if retryDelay <= 0 {
		retryDelay = defaultRetryDelay
	}
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}
	return &Service{
		api:        cfg.API,
		local:      cfg.Local,
		sessions:   cache.New[*domain.Session](cache.SessionTTL, cache.WithClock[*domain.Session](now)),
		listeners:  newListenerRegistry(),
		retryDelay: retryDelay,
		now:        now,
	}, nil
}

// Initialize hydrates the session cache from the durable area. Idempotent:
// only the first successful call does any work. The lock is held across the
// hydration so concurrent callers cannot both run it.
func (s *Service) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized {
		return nil
	}

	sess, err := s.loadPersisted(ctx)
	if err != nil {
		return fmt.Errorf("hydrate session: %w", err)
	}
	if sess != nil {
		s.sessions.Set(sess)
	}
	s.initialized = true
	return nil
}

// SignUp registers a new account after client-side validation.
func (s *Service) SignUp(ctx context.Context, email, password string) (*domain.User, error) {
	if !emailPattern.MatchString(email) {
		return nil, ErrInvalidEmail
	}
	if len(password) < 6 {
		return nil, ErrPasswordTooShort
	}
	sess, err := s.api.SignUp(ctx, email, password)
	if err != nil {
		return nil, translate(err)
	}
	s.applySession(ctx, sess)
	user := sess.User
	return &user, nil
}

// SignIn exchanges credentials for a session, retrying transient remote
// failures up to retries extra attempts with a fixed delay. Pass a negative
// value for the default retry count.
func (s *Service) SignIn(ctx context.Context, email, password string, retries int) (*domain.Session, error) {
	if !emailPattern.MatchString(email) {
		return nil, ErrInvalidEmail
	}
	if len(password) < 6 {
		return nil, ErrPasswordTooShort
	}
	if retries < 0 {
		retries = DefaultSignInRetries
	}
	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		sess, err := s.api.SignInWithPassword(ctx, email, password)
		if err == nil {
			s.applySession(ctx, sess)
			return sess, nil
		}
		lastErr = err
		if !supabase.IsRetryable(err) || attempt == retries {
			return nil, translate(err)
		}
		slog.Warn("sign-in transient failure", "attempt", attempt+1, "err", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.retryDelay):
		}
	}
	return nil, translate(lastErr)
}

// SignOut revokes the session remotely and always leaves local state clean,
// even when the remote call fails. A remote failure is returned for display
// but the cleanup has already happened.
func (s *Service) SignOut(ctx context.Context) error {
	var remoteErr error
	if sess := s.lastKnownSession(ctx); sess != nil && sess.AccessToken != "" {
		remoteErr = s.api.SignOut(ctx, sess.AccessToken)
	}
	s.clearLocalState(ctx)
	if remoteErr != nil {
		slog.Warn("remote sign-out failed, local state cleared anyway", "err", remoteErr)
		return translate(remoteErr)
	}
	return nil
}

// CurrentSession returns the cached session when fresh, otherwise validates
// the persisted session against the remote service. A remote answer that the
// session is missing or invalid purges local data and yields nil, not an
// error.
func (s *Service) CurrentSession(ctx context.Context) (*domain.Session, error) {
	if sess, ok := s.sessions.Get(); ok {
		return sess, nil
	}
	persisted, err := s.loadPersisted(ctx)
	if err != nil {
		return nil, err
	}
	if persisted == nil {
		s.sessions.Set(nil)
		return nil, nil
	}
	user, err := s.api.GetUser(ctx, persisted.AccessToken)
	if err != nil {
		if supabase.IsSessionMissing(err) {
			slog.Info("remote reports session missing, purging local data")
			if clearErr := s.ClearLocalData(ctx); clearErr != nil {
				slog.Warn("clear local data", "err", clearErr)
			}
			return nil, nil
		}
		return nil, translate(err)
	}
	persisted.User = *user
	s.sessions.Set(persisted)
	return persisted, nil
}

// CurrentUser resolves the authenticated user, preferring the cache.
func (s *Service) CurrentUser(ctx context.Context) (*domain.User, error) {
	sess, err := s.CurrentSession(ctx)
	if err != nil || sess == nil {
		return nil, err
	}
	user := sess.User
	return &user, nil
}

// HasValidSession reports whether a session exists and is not about to
// expire. A session expiring within the margin counts as invalid even if the
// remote service still considers it live.
func (s *Service) HasValidSession(ctx context.Context) (bool, error) {
	sess, err := s.CurrentSession(ctx)
	if err != nil {
		return false, err
	}
	if sess == nil {
		return false, nil
	}
	expiry := sess.Expiry()
	if expiry.IsZero() {
		expiry = accessTokenExpiry(sess.AccessToken)
	}
	if expiry.IsZero() {
		// Remote validated the session and reported no expiry.
		return true, nil
	}
	return expiry.After(s.now().Add(sessionExpiryMargin)), nil
}

// RefreshSession exchanges the refresh token for a new session.
func (s *Service) RefreshSession(ctx context.Context) (*domain.Session, error) {
	base := s.lastKnownSession(ctx)
	if base == nil || base.RefreshToken == "" {
		return nil, nil
	}
	sess, err := s.api.RefreshSession(ctx, base.RefreshToken)
	if err != nil {
		if supabase.IsSessionMissing(err) {
			if clearErr := s.ClearLocalData(ctx); clearErr != nil {
				slog.Warn("clear local data", "err", clearErr)
			}
			return nil, nil
		}
		return nil, translate(err)
	}
	s.applySession(ctx, sess)
	return sess, nil
}

// ResetPassword triggers the remote password-reset flow.
func (s *Service) ResetPassword(ctx context.Context, email string) error {
	if !emailPattern.MatchString(email) {
		return ErrInvalidEmail
	}
	if err := s.api.Recover(ctx, email); err != nil {
		return translate(err)
	}
	return nil
}

// UpdatePassword sets a new password for the authenticated user.
func (s *Service) UpdatePassword(ctx context.Context, newPassword string) error {
	if len(newPassword) < 6 {
		return ErrPasswordTooShort
	}
	sess, err := s.CurrentSession(ctx)
	if err != nil {
		return err
	}
	if sess == nil {
		return ErrNotAuthenticated
	}
	if _, err := s.api.UpdateUserPassword(ctx, sess.AccessToken, newPassword); err != nil {
		return translate(err)
	}
	return nil
}

// OnAuthStateChange registers a listener invoked with the current user (or
// nil) after every auth-state change. The returned handle removes it.
func (s *Service) OnAuthStateChange(fn Listener) *Subscription {
	return s.listeners.add(fn)
}

// ClearLocalData resets the session cache and removes every managed key
// from both storage areas, bypassing TTLs.
func (s *Service) ClearLocalData(ctx context.Context) error {
	s.sessions.Clear()
	return s.local.ClearPrefixes(ctx, localstore.AuthStoragePrefix, localstore.AppNamespace)
}

// applySession replaces the cached and persisted session wholesale and
// notifies listeners. Cache and storage writes happen before fan-out so
// listeners observe consistent state.
func (s *Service) applySession(ctx context.Context, sess *domain.Session) {
	s.sessions.Set(sess)
	raw, err := json.Marshal(sess)
	if err == nil {
		err = s.local.Durable.Set(ctx, localstore.SessionKey, string(raw))
	}
	if err != nil {
		slog.Warn("persist session", "err", err)
	}
	user := sess.User
	s.listeners.notify(&user)
}

func (s *Service) clearLocalState(ctx context.Context) {
	if err := s.ClearLocalData(ctx); err != nil {
		slog.Warn("clear local data", "err", err)
	}
	s.listeners.notify(nil)
}

// lastKnownSession returns the freshest session available locally without a
// remote round-trip: the cache when valid, else the persisted copy.
func (s *Service) lastKnownSession(ctx context.Context) *domain.Session {
	if sess, ok := s.sessions.Get(); ok {
		return sess
	}
	sess, err := s.loadPersisted(ctx)
	if err != nil {
		return nil
	}
	return sess
}

func (s *Service) loadPersisted(ctx context.Context) (*domain.Session, error) {
	raw, ok, err := s.local.Durable.Get(ctx, localstore.SessionKey)
	if err != nil {
		return nil, fmt.Errorf("read persisted session: %w", err)
	}
	if !ok {
		return nil, nil
	}
	var sess domain.Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil || sess.AccessToken == "" {
		// A corrupt persisted session is dropped rather than surfaced.
		_ = s.local.Durable.Remove(ctx, localstore.SessionKey)
		return nil, nil
	}
	return &sess, nil
}

// accessTokenExpiry reads the exp claim without verifying the signature;
// verification belongs to the remote service, this is only a staleness hint.
func accessTokenExpiry(token string) time.Time {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
