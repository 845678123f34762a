package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// RunwayClient submits tasks to the Runway API. Completion arrives via the
// webhook URL included in the payload, so there is no polling surface here.
type RunwayClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// RunwayOptions configures a RunwayClient.
type RunwayOptions struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// NewRunwayClient builds a client for the Runway task API.
func NewRunwayClient(opts RunwayOptions) *RunwayClient {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = "https://api.dev.runwayml.com"
	}
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &RunwayClient{
		baseURL:    base,
		apiKey:     strings.TrimSpace(opts.APIKey),
		httpClient: client,
	}
}

// Submit creates a task and returns the provider task id. The provider will
// POST its terminal report to callbackURL.
func (c *RunwayClient) Submit(ctx context.Context, path string, input map[string]any, callbackURL string) (string, error) {
	if c.apiKey == "" {
		return "", errors.New("runway: API key is missing")
	}
	payload, err := json.Marshal(map[string]any{
		"model":       path,
		"input":       input,
		"webhook_url": callbackURL,
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/tasks", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("X-Runway-Version", "2024-11-06")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("runway: submit: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return "", fmt.Errorf("runway: submit: http %d", resp.StatusCode)
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("runway: submit: decode: %w", err)
	}
	if out.ID == "" {
		return "", errors.New("runway: submit: empty task id")
	}
	return out.ID, nil
}
