// Package providers wraps the external generative services: the extraction
// LLM, the image generator, and the TTS backend. Every wrapper enforces a
// per-call timeout, returns concrete error kinds from pkg/errdefs, and is
// stateless, so any stage may call it concurrently.
package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/IsPHao/storyreel/pkg/config"
	"github.com/IsPHao/storyreel/pkg/errdefs"
)

// maxErrorBody bounds how much of an error response is kept for messages.
const maxErrorBody = 2048

// httpClient is the shared transport for all provider wrappers.
type httpClient struct {
	endpoint string
	apiKey   string
	timeout  time.Duration
	client   *http.Client
}

func newHTTPClient(cfg *config.ProvidersConfig) *httpClient {
	return &httpClient{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		timeout:  cfg.Timeout,
		client:   &http.Client{},
	}
}

// postJSON sends payload to endpoint+path and decodes the JSON response into
// out. Network failures and non-2xx statuses become *errdefs.APIError;
// undecodable response bodies become *errdefs.ParseError.
func (c *httpClient) postJSON(ctx context.Context, service, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s request: %w", service, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return &errdefs.APIError{Service: service, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return &errdefs.APIError{Service: service, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &errdefs.APIError{Service: service, Status: resp.StatusCode, Body: string(snippet)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &errdefs.ParseError{Service: service, Err: err}
	}
	return nil
}
