package reconapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"atelier-backend/internal/reconapi"
)

func TestClient_CreateJob(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/jobs", r.URL.Path)
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))

		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]string{"job_id": "job-42"})
	}))
	defer server.Close()

	client := reconapi.NewClient(server.URL, "test-key")
	jobID, err := client.CreateJob(context.Background(), "https://cdn.test/selected.png")

	require.NoError(t, err)
	assert.Equal(t, "job-42", jobID)
}

func TestClient_CreateJob_MissingJobID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{})
	}))
	defer server.Close()

	client := reconapi.NewClient(server.URL, "test-key")
	_, err := client.CreateJob(context.Background(), "https://cdn.test/selected.png")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "job_id is empty")
}

func TestClient_GetJobStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/jobs/job-42", r.URL.Path)
		json.NewEncoder(w).Encode(reconapi.JobStatusResponse{
			JobID:     "job-42",
			Status:    reconapi.JobCompleted,
			ModelURLs: []string{"https://cdn.test/model.glb"},
		})
	}))
	defer server.Close()

	client := reconapi.NewClient(server.URL, "test-key")
	status, err := client.GetJobStatus(context.Background(), "job-42")

	require.NoError(t, err)
	assert.Equal(t, reconapi.JobCompleted, status.Status)
	assert.Equal(t, []string{"https://cdn.test/model.glb"}, status.ModelURLs)
}
