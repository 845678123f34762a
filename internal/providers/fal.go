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

// FalClient submits jobs to the fal queue API and polls them for completion.
// It backs the synchronous flux variants.
type FalClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// FalOptions configures a FalClient.
type FalOptions struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// NewFalClient builds a client for the fal queue API.
func NewFalClient(opts FalOptions) *FalClient {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = "https://queue.fal.run"
	}
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &FalClient{
		baseURL:    base,
		apiKey:     strings.TrimSpace(opts.APIKey),
		httpClient: client,
	}
}

type falSubmitResp struct {
	RequestID string `json:"request_id"`
}

type falStatusResp struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

type falResultResp struct {
	Images []struct {
		URL         string `json:"url"`
		ContentType string `json:"content_type"`
	} `json:"images"`
	Video struct {
		URL string `json:"url"`
	} `json:"video"`
}

// Submit enqueues the input on the given model path and returns the task handle.
func (c *FalClient) Submit(ctx context.Context, path string, input map[string]any) (string, error) {
	if c.apiKey == "" {
		return "", errors.New("fal: API key is missing")
	}
	body, err := json.Marshal(input)
	if err != nil {
		return "", err
	}
	var out falSubmitResp
	if err := c.do(ctx, http.MethodPost, c.baseURL+"/"+path, body, &out); err != nil {
		return "", fmt.Errorf("fal: submit: %w", err)
	}
	if out.RequestID == "" {
		return "", errors.New("fal: submit: empty request id")
	}
	return out.RequestID, nil
}

// Status reports the task state, fetching the result payload once the queue
// marks the task completed.
func (c *FalClient) Status(ctx context.Context, path, taskID string) (*TaskStatus, error) {
	var st falStatusResp
	endpoint := fmt.Sprintf("%s/%s/requests/%s/status", c.baseURL, path, taskID)
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &st); err != nil {
		return nil, fmt.Errorf("fal: status: %w", err)
	}
	switch strings.ToUpper(st.Status) {
	case "IN_QUEUE":
		return &TaskStatus{State: TaskQueued}, nil
	case "IN_PROGRESS":
		return &TaskStatus{State: TaskProcessing}, nil
	case "COMPLETED":
		return c.result(ctx, path, taskID)
	case "CANCELED", "CANCELLED":
		return &TaskStatus{State: TaskCanceled, Err: st.Error}, nil
	default:
		return &TaskStatus{State: TaskFailed, Err: st.Error}, nil
	}
}

func (c *FalClient) result(ctx context.Context, path, taskID string) (*TaskStatus, error) {
	var res falResultResp
	endpoint := fmt.Sprintf("%s/%s/requests/%s", c.baseURL, path, taskID)
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &res); err != nil {
		return nil, fmt.Errorf("fal: result: %w", err)
	}
	out := &TaskStatus{State: TaskSucceeded}
	switch {
	case len(res.Images) > 0:
		out.OutputURL = res.Images[0].URL
	case res.Video.URL != "":
		out.OutputURL = res.Video.URL
	}
	return out, nil
}

func (c *FalClient) do(ctx context.Context, method, endpoint string, body []byte, out any) error {
	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Key "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("http %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
