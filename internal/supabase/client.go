// Package supabase is the adapter for the hosted auth/database service. It
// speaks the service's auth API and its REST data API, and classifies every
// remote failure into an explicit error kind.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Config configures the remote client.
type Config struct {
	URL        string
	AnonKey    string
	HTTPClient *http.Client
}

// Client performs requests against the remote auth and data APIs.
type Client struct {
	baseURL    string
	anonKey    string
	httpClient *http.Client
}

// NewClient validates the project URL and builds a client.
func NewClient(cfg Config) (*Client, error) {
	raw := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if raw == "" {
		return nil, fmt.Errorf("supabase URL is required")
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("supabase URL must be a valid http(s) URL")
	}
	if strings.TrimSpace(cfg.AnonKey) == "" {
		return nil, fmt.Errorf("supabase anon key is required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:    raw,
		anonKey:    strings.TrimSpace(cfg.AnonKey),
		httpClient: httpClient,
	}, nil
}

// request performs one HTTP call. accessToken falls back to the anon key.
// extraHeaders may carry Prefer/Accept values for the data API.
func (c *Client) request(ctx context.Context, method, path, accessToken string, body any, extraHeaders map[string]string, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("apikey", c.anonKey)
	token := accessToken
	if token == "" {
		token = c.anonKey
	}
	req.Header.Set("Authorization", "Bearer "+token)
	for k, v := range extraHeaders {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Kind: KindNetwork, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// errorBody covers both the auth API and data API error shapes.
type errorBody struct {
	Code             any    `json:"code"`
	Message          string `json:"message"`
	Msg              string `json:"msg"`
	ErrorField       string `json:"error"`
	ErrorCode        string `json:"error_code"`
	ErrorDescription string `json:"error_description"`
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 32<<10))
	var body errorBody
	_ = json.Unmarshal(raw, &body)

	message := firstNonEmpty(body.Message, body.Msg, body.ErrorDescription, body.ErrorField, strings.TrimSpace(string(raw)), resp.Status)
	code := body.ErrorCode
	if code == "" {
		switch v := body.Code.(type) {
		case string:
			code = v
		case float64:
			code = fmt.Sprintf("%.0f", v)
		}
	}
	if code == "" && body.ErrorField != "" && !strings.Contains(body.ErrorField, " ") {
		code = body.ErrorField
	}
	return &Error{
		Kind:    classify(resp.StatusCode, code, message),
		Status:  resp.StatusCode,
		Code:    code,
		Message: message,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
