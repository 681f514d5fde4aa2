package designapi

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

// Client talks to the external design generation service that turns an
// uploaded photo into jewelry design candidates. Generation is slow
// (observed 20-90s); the HTTP timeout has to cover the worst case.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

type GenerateRequest struct {
	ImageURL      string `json:"image_url,omitempty"`
	ImageBase64   string `json:"image_base64,omitempty"`
	Comment       string `json:"comment,omitempty"`
	Prompt        string `json:"prompt"`
	ApplicationID string `json:"application_id"`
	VariantCount  int    `json:"variant_count,omitempty"`
}

type GenerateResponse struct {
	ImageURLs      []string `json:"image_urls"`
	ResolvedPrompt string   `json:"resolved_prompt"`
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// Generate produces candidate design images. A text-only generation (no
// image) is permitted; an empty candidate list is treated as a failure.
func (c *Client) Generate(ctx context.Context, genReq GenerateRequest) (*GenerateResponse, error) {
	jsonData, err := json.Marshal(genReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := strings.TrimSuffix(c.baseURL, "/") + "/generate"
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("failed to generate designs: status %d, body: %s", resp.StatusCode, string(body))
	}

	var result GenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(result.ImageURLs) == 0 {
		return nil, fmt.Errorf("generation returned no candidates")
	}

	return &result, nil
}

// RetryWithBackoff executes a function with exponential backoff retry logic.
func (c *Client) RetryWithBackoff(fn func() error, maxRetries int) error {
	backoffs := []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}

	var lastErr error
	for i := 0; i < maxRetries; i++ {
		err := fn()
		if err == nil {
			return nil
		}

		lastErr = err
		if i < len(backoffs) {
			time.Sleep(backoffs[i])
		}
	}

	return fmt.Errorf("failed after %d retries: %w", maxRetries, lastErr)
}
