// Package ai calls the remote report-generation service.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Emanuel0428/FlowForgeAI-sub001/pkg/domain"
)

// DefaultLanguage is the language code sent when the caller specifies none.
const DefaultLanguage = "es"

// Request carries everything the generator needs for one report.
type Request struct {
	Profile   domain.BusinessProfile `json:"profile"`
	Extended  domain.ExtendedProfile `json:"extendedProfile"`
	ModuleID  string                 `json:"moduleId"`
	UserInput string                 `json:"userInput"`
	Language  string                 `json:"language"`
}

// Generator produces report text for a request.
type Generator interface {
	GenerateReport(ctx context.Context, req Request) (string, error)
}

// Client is the HTTP generator client.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient constructs a client for the generation service.
func NewClient(baseURL, apiKey string) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("generator base URL required")
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     strings.TrimSpace(apiKey),
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}, nil
}

type generateResponse struct {
	Content string `json:"content"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// GenerateReport returns the generated report text for the request.
func (c *Client) GenerateReport(ctx context.Context, req Request) (string, error) {
	if req.Language == "" {
		req.Language = DefaultLanguage
	}
	var resp generateResponse
	if err := c.doJSON(ctx, c.baseURL+"/generate", req, &resp); err != nil {
		return "", err
	}
	if strings.TrimSpace(resp.Content) == "" {
		return "", fmt.Errorf("empty response from report generator")
	}
	return resp.Content, nil
}

func (c *Client) doJSON(ctx context.Context, url string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		var errResp errorResponse
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		if errResp.Error.Message != "" {
			return fmt.Errorf("generator api error: %s", errResp.Error.Message)
		}
		return fmt.Errorf("generator api error: %s", resp.Status)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return err
	}
	return nil
}
