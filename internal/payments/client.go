package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"atelier-backend/internal/models"
)

// Client creates payment sessions with the external payment gateway and
// returns the redirect URL the client completes payment on.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

type createPaymentRequest struct {
	Reference   string             `json:"reference"`
	AmountCents int64              `json:"amount_cents"`
	Currency    string             `json:"currency"`
	Contact     models.ContactInfo `json:"contact"`
}

type createPaymentResponse struct {
	RedirectURL string `json:"redirect_url"`
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) CreatePayment(ctx context.Context, reference string, amountCents int64, contact models.ContactInfo) (string, error) {
	jsonData, err := json.Marshal(createPaymentRequest{
		Reference:   reference,
		AmountCents: amountCents,
		Currency:    "EUR",
		Contact:     contact,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := strings.TrimSuffix(c.baseURL, "/") + "/payments"
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("failed to create payment: status %d, body: %s", resp.StatusCode, string(body))
	}

	var result createPaymentResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if result.RedirectURL == "" {
		return "", fmt.Errorf("redirect_url is empty in response")
	}

	return result.RedirectURL, nil
}
