package supabase

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Emanuel0428/FlowForgeAI-sub001/pkg/domain"
)

// sessionResponse is the wire shape of auth endpoints that issue a session.
type sessionResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	TokenType    string       `json:"token_type"`
	ExpiresIn    int64        `json:"expires_in"`
	ExpiresAt    int64        `json:"expires_at"`
	User         userResponse `json:"user"`
}

type userResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	CreatedAt string `json:"created_at"`
}

func (r sessionResponse) toDomain() *domain.Session {
	return &domain.Session{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		TokenType:    r.TokenType,
		ExpiresIn:    r.ExpiresIn,
		ExpiresAt:    r.ExpiresAt,
		User:         r.User.toDomain(),
	}
}

func (r userResponse) toDomain() domain.User {
	u := domain.User{ID: r.ID, Email: r.Email}
	if t, err := ParseTimestamp(r.CreatedAt); err == nil {
		u.CreatedAt = t
	}
	return u
}

// SignUp registers a new account and returns the issued session.
func (c *Client) SignUp(ctx context.Context, email, password string) (*domain.Session, error) {
	payload := map[string]string{"email": email, "password": password}
	var resp sessionResponse
	if err := c.request(ctx, http.MethodPost, "/auth/v1/signup", "", payload, nil, &resp); err != nil {
		return nil, err
	}
	return resp.toDomain(), nil
}

// SignInWithPassword exchanges credentials for a session.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*domain.Session, error) {
	payload := map[string]string{"email": email, "password": password}
	var resp sessionResponse
	if err := c.request(ctx, http.MethodPost, "/auth/v1/token?grant_type=password", "", payload, nil, &resp); err != nil {
		return nil, err
	}
	return resp.toDomain(), nil
}

// RefreshSession exchanges a refresh token for a fresh session.
func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (*domain.Session, error) {
	payload := map[string]string{"refresh_token": refreshToken}
	var resp sessionResponse
	if err := c.request(ctx, http.MethodPost, "/auth/v1/token?grant_type=refresh_token", "", payload, nil, &resp); err != nil {
		return nil, err
	}
	return resp.toDomain(), nil
}

// SignOut revokes the session remotely.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	return c.request(ctx, http.MethodPost, "/auth/v1/logout", accessToken, nil, nil, nil)
}

// Recover triggers the password-reset email flow.
func (c *Client) Recover(ctx context.Context, email string) error {
	payload := map[string]string{"email": email}
	return c.request(ctx, http.MethodPost, "/auth/v1/recover", "", payload, nil, nil)
}

// GetUser resolves the user behind an access token, validating the session.
func (c *Client) GetUser(ctx context.Context, accessToken string) (*domain.User, error) {
	var resp userResponse
	if err := c.request(ctx, http.MethodGet, "/auth/v1/user", accessToken, nil, nil, &resp); err != nil {
		return nil, err
	}
	u := resp.toDomain()
	return &u, nil
}

// UpdateUserPassword sets a new password for the authenticated user.
func (c *Client) UpdateUserPassword(ctx context.Context, accessToken, newPassword string) (*domain.User, error) {
	payload := map[string]string{"password": newPassword}
	var resp userResponse
	if err := c.request(ctx, http.MethodPut, "/auth/v1/user", accessToken, payload, nil, &resp); err != nil {
		return nil, err
	}
	u := resp.toDomain()
	return &u, nil
}

// ParseTimestamp accepts the timestamp layouts the remote service emits.
func ParseTimestamp(value string) (t time.Time, err error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05.999999"} {
		if t, err = time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, err
}
