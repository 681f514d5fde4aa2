package reconapi

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

// Job statuses reported by the reconstruction service.
const (
	JobPending   = "pending"
	JobCompleted = "completed"
	JobFailed    = "failed"
)

// Client talks to the external 3D reconstruction service. Jobs run for
// minutes; kickoff returns a job id and status is polled separately.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

type createJobRequest struct {
	ImageURL string `json:"image_url"`
}

type createJobResponse struct {
	JobID string `json:"job_id"`
}

type JobStatusResponse struct {
	JobID     string   `json:"job_id"`
	Status    string   `json:"status"`
	ModelURLs []string `json:"model_urls,omitempty"`
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

// CreateJob starts a reconstruction build for the selected design image.
func (c *Client) CreateJob(ctx context.Context, imageURL string) (string, error) {
	jsonData, err := json.Marshal(createJobRequest{ImageURL: imageURL})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := strings.TrimSuffix(c.baseURL, "/") + "/jobs"
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

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return "", fmt.Errorf("failed to create job: status %d, body: %s", resp.StatusCode, string(body))
	}

	var result createJobResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w, body: %s", err, string(body))
	}

	if result.JobID == "" {
		return "", fmt.Errorf("job_id is empty in response, body: %s", string(body))
	}

	return result.JobID, nil
}

// GetJobStatus polls the build status for a job.
func (c *Client) GetJobStatus(ctx context.Context, jobID string) (*JobStatusResponse, error) {
	url := strings.TrimSuffix(c.baseURL, "/") + "/jobs/" + jobID
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("failed to get job status: status %d, body: %s", resp.StatusCode, string(body))
	}

	var result JobStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &result, nil
}
