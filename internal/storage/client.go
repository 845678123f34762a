package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client talks to a Supabase-compatible object storage service: upload,
// public URL, signed read URL, signed upload URL and download.
type Client struct {
	baseURL    string
	serviceKey string
	httpClient *http.Client
}

// Options configures a storage Client.
type Options struct {
	BaseURL    string
	ServiceKey string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// NewClient builds a storage client. BaseURL points at the storage service
// root (the segment before /storage/v1).
func NewClient(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, errors.New("storage: base url is required")
	}
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:    base,
		serviceKey: strings.TrimSpace(opts.ServiceKey),
		httpClient: client,
	}, nil
}

// Upload writes data under bucket/path and returns the stored path.
func (c *Client) Upload(ctx context.Context, bucket, path string, data []byte, contentType string) (string, error) {
	if c == nil {
		return "", errors.New("storage: no client configured")
	}
	endpoint := fmt.Sprintf("%s/storage/v1/object/%s/%s", c.baseURL, url.PathEscape(bucket), escapePath(path))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	req.Header.Set("X-Upsert", "false")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("storage: upload: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return "", fmt.Errorf("storage: upload: http %d", resp.StatusCode)
	}
	return path, nil
}

// PublicURL returns the public object URL for bucket/path. It performs no
// network call and does not verify the bucket is actually public.
func (c *Client) PublicURL(bucket, path string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", c.baseURL, url.PathEscape(bucket), escapePath(path))
}

// CreateSignedURL issues a time-limited read URL for bucket/path.
func (c *Client) CreateSignedURL(ctx context.Context, bucket, path string, ttl time.Duration) (string, error) {
	if c == nil {
		return "", errors.New("storage: no client configured")
	}
	endpoint := fmt.Sprintf("%s/storage/v1/object/sign/%s/%s", c.baseURL, url.PathEscape(bucket), escapePath(path))
	payload, _ := json.Marshal(map[string]any{"expiresIn": int(ttl.Seconds())})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("storage: sign: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return "", fmt.Errorf("storage: sign: http %d", resp.StatusCode)
	}
	var out struct {
		SignedURL string `json:"signedURL"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("storage: sign: decode: %w", err)
	}
	if out.SignedURL == "" {
		return "", errors.New("storage: sign: empty signed url")
	}
	return c.baseURL + "/storage/v1" + out.SignedURL, nil
}

// CreateSignedUploadURL issues a URL a client can PUT an object to directly.
func (c *Client) CreateSignedUploadURL(ctx context.Context, bucket, path string) (string, error) {
	if c == nil {
		return "", errors.New("storage: no client configured")
	}
	endpoint := fmt.Sprintf("%s/storage/v1/object/upload/sign/%s/%s", c.baseURL, url.PathEscape(bucket), escapePath(path))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("storage: sign upload: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return "", fmt.Errorf("storage: sign upload: http %d", resp.StatusCode)
	}
	var out struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("storage: sign upload: decode: %w", err)
	}
	if out.URL == "" {
		return "", errors.New("storage: sign upload: empty url")
	}
	return c.baseURL + "/storage/v1" + out.URL, nil
}

// Download fetches an object from an arbitrary URL, typically a provider's
// transient delivery URL, returning the bytes and content type.
func (c *Client) Download(ctx context.Context, rawURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("storage: download: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, "", fmt.Errorf("storage: download: http %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("storage: download: read: %w", err)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

func escapePath(path string) string {
	segments := strings.Split(path, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}
