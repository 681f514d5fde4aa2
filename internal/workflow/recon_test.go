package workflow

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"atelier-backend/internal/logger"
	"atelier-backend/internal/models"
	"atelier-backend/internal/reconapi"
)

// reconStore records only the reconstruction writes; everything else on
// the store interface is a no-op.
type reconStore struct {
	mu        sync.Mutex
	jobID     sql.NullString
	status    string
	modelURLs []string
}

func (s *reconStore) state() (sql.NullString, string, []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobID, s.status, s.modelURLs
}

func (s *reconStore) GetApplication(id uuid.UUID) (*models.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &models.Application{ID: id, ReconJobID: s.jobID, ReconStatus: s.status}, nil
}

func (s *reconStore) UpdateApplicationConfig(uuid.UUID, int, sql.NullString, sql.NullString, sql.NullString, sql.NullString, sql.NullString, int64, int64) error {
	return nil
}
func (s *reconStore) UpdateApplicationStep(uuid.UUID, int) error                  { return nil }
func (s *reconStore) SetApplicationStatus(uuid.UUID, string) error                { return nil }
func (s *reconStore) BeginGeneration(uuid.UUID, bool) (bool, error)               { return true, nil }
func (s *reconStore) ClearGenerationOutputs(uuid.UUID) error                      { return nil }
func (s *reconStore) SaveGenerationResult(uuid.UUID, []string, string, int) error { return nil }
func (s *reconStore) SaveGenerationFailure(uuid.UUID, string) error               { return nil }

func (s *reconStore) SetReconJob(id uuid.UUID, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobID = sql.NullString{String: jobID, Valid: true}
	s.status = models.ReconPending
	s.modelURLs = nil
	return nil
}

func (s *reconStore) SetReconPending(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = models.ReconPending
	return nil
}

func (s *reconStore) SetReconCompleted(id uuid.UUID, modelURLs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = models.ReconCompleted
	s.modelURLs = modelURLs
	return nil
}

func (s *reconStore) SetReconFailed(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = models.ReconFailed
	return nil
}

// reconServer fakes the reconstruction service: jobs get sequential ids
// and every status poll reports the currently configured state.
type reconServer struct {
	mu         sync.Mutex
	jobs       int
	status     string
	modelURLs  []string
	failCreate bool
}

func (rs *reconServer) setStatus(status string, modelURLs ...string) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.status = status
	rs.modelURLs = modelURLs
}

func (rs *reconServer) serve(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			rs.mu.Lock()
			if rs.failCreate {
				rs.mu.Unlock()
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			rs.jobs++
			id := fmt.Sprintf("job-%d", rs.jobs)
			rs.mu.Unlock()
			_ = json.NewEncoder(w).Encode(map[string]string{"job_id": id})
			return
		}

		jobID := strings.TrimPrefix(r.URL.Path, "/jobs/")
		rs.mu.Lock()
		resp := reconapi.JobStatusResponse{JobID: jobID, Status: rs.status, ModelURLs: rs.modelURLs}
		rs.mu.Unlock()
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestTracker(t *testing.T, store *reconStore, rs *reconServer) *Tracker {
	t.Helper()
	tracker := NewTracker(store, reconapi.NewClient(rs.serve(t).URL, "key"), logger.NewNop())
	tracker.pollInterval = 10 * time.Millisecond
	t.Cleanup(tracker.Stop)
	return tracker
}

func TestTracker_PersistsCompletedBuild(t *testing.T) {
	store := &reconStore{status: models.ReconNone}
	rs := &reconServer{status: reconapi.JobPending}
	tracker := newTestTracker(t, store, rs)

	tracker.Kickoff(context.Background(), uuid.New(), "https://cdn.test/a.png")

	jobID, status, _ := store.state()
	assert.Equal(t, "job-1", jobID.String)
	assert.Equal(t, models.ReconPending, status)

	rs.setStatus(reconapi.JobCompleted, "https://cdn.test/a.glb", "https://cdn.test/a.usdz")

	require.Eventually(t, func() bool {
		_, status, _ := store.state()
		return status == models.ReconCompleted
	}, 2*time.Second, 10*time.Millisecond)

	_, _, urls := store.state()
	assert.Equal(t, []string{"https://cdn.test/a.glb", "https://cdn.test/a.usdz"}, urls)
}

func TestTracker_PersistsFailedBuild(t *testing.T) {
	store := &reconStore{status: models.ReconNone}
	rs := &reconServer{status: reconapi.JobFailed}
	tracker := newTestTracker(t, store, rs)

	tracker.Kickoff(context.Background(), uuid.New(), "https://cdn.test/a.png")

	require.Eventually(t, func() bool {
		_, status, _ := store.state()
		return status == models.ReconFailed
	}, 2*time.Second, 10*time.Millisecond)
}

func TestTracker_ReselectionReplacesJob(t *testing.T) {
	store := &reconStore{status: models.ReconNone}
	rs := &reconServer{status: reconapi.JobPending}
	tracker := newTestTracker(t, store, rs)
	appID := uuid.New()

	tracker.Kickoff(context.Background(), appID, "https://cdn.test/a.png")
	tracker.mu.Lock()
	first := tracker.watchers[appID]
	tracker.mu.Unlock()
	require.NotNil(t, first)

	tracker.Kickoff(context.Background(), appID, "https://cdn.test/b.png")

	// The old poller is stopped before the new job is watched, so no tick
	// of it can outlive the replacement and write a stale result.
	assert.False(t, first.IsActive())

	jobID, _, _ := store.state()
	assert.Equal(t, "job-2", jobID.String)

	tracker.mu.Lock()
	second := tracker.watchers[appID]
	count := len(tracker.watchers)
	tracker.mu.Unlock()
	assert.Equal(t, 1, count)
	assert.True(t, second.IsActive())
}

func TestTracker_KickoffFailureRetriesLazily(t *testing.T) {
	store := &reconStore{status: models.ReconNone}
	rs := &reconServer{status: reconapi.JobPending, failCreate: true}
	tracker := newTestTracker(t, store, rs)
	appID := uuid.New()

	tracker.Kickoff(context.Background(), appID, "https://cdn.test/a.png")

	// Kickoff failure is non-fatal: pending without a job id.
	jobID, status, _ := store.state()
	assert.False(t, jobID.Valid)
	assert.Equal(t, models.ReconPending, status)

	rs.mu.Lock()
	rs.failCreate = false
	rs.mu.Unlock()

	app := &models.Application{
		ID:               appID,
		ReconStatus:      models.ReconPending,
		SelectedImageURL: sql.NullString{String: "https://cdn.test/a.png", Valid: true},
	}
	tracker.EnsureStarted(context.Background(), app)

	jobID, _, _ = store.state()
	assert.Equal(t, "job-1", jobID.String)
}
