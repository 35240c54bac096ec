package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ppiankov/apispectre/internal/api"
	"github.com/ppiankov/apispectre/internal/models"
)

const defaultTimeout = 60 * time.Second

// Client talks to a remote `apispectre serve` instance.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates an API client. Returns nil if baseURL is empty.
func New(baseURL string) *Client {
	if baseURL == "" {
		return nil
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

// Scan posts entries to /api/scan and returns the server's result.
// The request is checked against the default server limits before sending.
func (c *Client) Scan(ctx context.Context, entries []models.FileEntry, opts models.ScanOptions) (*models.ScanResult, error) {
	if c == nil {
		return nil, fmt.Errorf("no remote configured")
	}

	payload := api.ScanRequest{Files: entries, Options: opts}
	if err := api.ValidateScanRequest(payload, api.Limits{}); err != nil {
		return nil, fmt.Errorf("invalid scan request: %w", err)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal scan request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/scan", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var result models.ScanResult
	if err := c.do(req, &result); err != nil {
		return nil, fmt.Errorf("remote scan: %w", err)
	}

	return &result, nil
}

// Rules lists the rule definitions served by the remote.
func (c *Client) Rules(ctx context.Context) ([]models.RuleDefinition, error) {
	if c == nil {
		return nil, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/rules", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	var defs []models.RuleDefinition
	if err := c.do(req, &defs); err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}

	return defs, nil
}

// HealthInfo is the body of GET /healthz.
type HealthInfo struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// Health checks that the remote is up.
func (c *Client) Health(ctx context.Context) (*HealthInfo, error) {
	if c == nil {
		return nil, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	var info HealthInfo
	if err := c.do(req, &info); err != nil {
		return nil, fmt.Errorf("health check: %w", err)
	}

	return &info, nil
}

// do sends req and decodes a 200 response into out. Other statuses become
// errors carrying the server's {"error": ...} message.
func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		var errResp map[string]string
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		msg := errResp["error"]
		if msg == "" {
			msg = resp.Status
		}
		return fmt.Errorf("API error (HTTP %d): %s", resp.StatusCode, msg)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}
