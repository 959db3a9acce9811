package syncbridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const bridgeTokenHeader = "X-Bridge-Token"

// Client delivers sync payloads to the core service's import endpoint.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Push POSTs the payload to {base}/sync/import. Non-2xx responses are errors
// carrying the status and a snippet of the body for the job's last_error.
func (c *Client) Push(ctx context.Context, payload map[string]any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	// Keep <, > and & literal; the importer is not an HTML context.
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/sync/import", &buf)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set(bridgeTokenHeader, c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("push: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("core service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}
