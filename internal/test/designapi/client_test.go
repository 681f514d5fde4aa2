package designapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"atelier-backend/internal/designapi"
)

func TestClient_Generate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/generate", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))

		var req designapi.GenerateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "a pendant on a fine chain", req.Prompt)

		json.NewEncoder(w).Encode(designapi.GenerateResponse{
			ImageURLs:      []string{"https://cdn.test/a.png", "https://cdn.test/b.png"},
			ResolvedPrompt: "a pendant on a fine chain, refined",
		})
	}))
	defer server.Close()

	client := designapi.NewClient(server.URL, "test-key")
	resp, err := client.Generate(context.Background(), designapi.GenerateRequest{
		Prompt:        "a pendant on a fine chain",
		ApplicationID: "app-1",
	})

	require.NoError(t, err)
	assert.Len(t, resp.ImageURLs, 2)
	assert.Equal(t, "a pendant on a fine chain, refined", resp.ResolvedPrompt)
}

func TestClient_Generate_EmptyCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(designapi.GenerateResponse{})
	}))
	defer server.Close()

	client := designapi.NewClient(server.URL, "test-key")
	_, err := client.Generate(context.Background(), designapi.GenerateRequest{Prompt: "x"})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "no candidates")
}

func TestClient_RetryWithBackoff(t *testing.T) {
	client := designapi.NewClient("https://api.test.com/v1/", "test-key")

	callCount := 0
	err := client.RetryWithBackoff(func() error {
		callCount++
		if callCount < 3 {
			return assert.AnError
		}
		return nil
	}, 3)

	assert.NoError(t, err)
	assert.Equal(t, 3, callCount)
}

func TestClient_RetryWithBackoff_Exhausted(t *testing.T) {
	client := designapi.NewClient("https://api.test.com/v1/", "test-key")

	err := client.RetryWithBackoff(func() error {
		return assert.AnError
	}, 3)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed after 3 retries")
}
