package workflow

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"atelier-backend/internal/logger"
	"atelier-backend/internal/models"
	"atelier-backend/internal/reconapi"
)

// reconPollInterval is how often a pending build job is reconciled.
const reconPollInterval = 5 * time.Second

// Tracker owns the 3D reconstruction lifecycle: fire-and-forget kickoff at
// variant selection, then a background poller per application that
// reconciles job status until a terminal state. The 3D artifact is a
// supplementary visualization; nothing here ever blocks the main workflow.
type Tracker struct {
	db           ApplicationStore
	reconClient  *reconapi.Client
	progress     *progressTracker
	log          *logger.Logger
	pollInterval time.Duration

	mu       sync.Mutex
	watchers map[uuid.UUID]*Poller
}

func NewTracker(db ApplicationStore, reconClient *reconapi.Client, log *logger.Logger) *Tracker {
	return &Tracker{
		db:           db,
		reconClient:  reconClient,
		progress:     newProgressTracker(),
		log:          log,
		pollInterval: reconPollInterval,
		watchers:     make(map[uuid.UUID]*Poller),
	}
}

// Kickoff starts a build job for the selected design image. Failure is
// non-fatal: the aggregate is left pending without a job id and the job
// is retried lazily via EnsureStarted when the 3D view is next requested.
func (t *Tracker) Kickoff(ctx context.Context, appID uuid.UUID, imageURL string) {
	jobID, err := t.reconClient.CreateJob(ctx, imageURL)
	if err != nil {
		t.log.Warn("3d kickoff failed, will retry lazily", "application_id", appID, "error", err)
		if dbErr := t.db.SetReconPending(appID); dbErr != nil {
			t.log.Error("failed to persist pending recon state", "application_id", appID, "error", dbErr)
		}
		return
	}

	if err := t.db.SetReconJob(appID, jobID); err != nil {
		t.log.Error("failed to persist recon job", "application_id", appID, "error", err)
		return
	}

	t.progress.Start(appID)
	t.watch(appID, jobID)
	t.log.Info("3d build started", "application_id", appID, "job_id", jobID)
}

// EnsureStarted resumes tracking for an application whose build is marked
// pending: it retries a failed kickoff, or re-attaches a poller for a job
// started by a previous process.
func (t *Tracker) EnsureStarted(ctx context.Context, app *models.Application) {
	if app.ReconStatus != models.ReconPending {
		return
	}
	if !app.ReconJobID.Valid {
		if app.SelectedImageURL.Valid {
			t.Kickoff(ctx, app.ID, app.SelectedImageURL.String)
		}
		return
	}

	t.mu.Lock()
	_, active := t.watchers[app.ID]
	t.mu.Unlock()
	if !active {
		t.watch(app.ID, app.ReconJobID.String)
	}
}

// watch replaces any existing poller for the application: a new job id
// supersedes the old job, so the old poller is torn down first. The stop
// is synchronous so no tick of the old poller can write a stale terminal
// result after the new job id is recorded.
func (t *Tracker) watch(appID uuid.UUID, jobID string) {
	t.mu.Lock()
	old := t.watchers[appID]
	delete(t.watchers, appID)
	t.mu.Unlock()
	if old != nil {
		old.Stop()
	}

	poller := NewPoller(t.pollInterval, func(ctx context.Context) (bool, error) {
		status, err := t.reconClient.GetJobStatus(ctx, jobID)
		if err != nil {
			// Transient poll failure: the next tick retries.
			return false, err
		}

		switch status.Status {
		case reconapi.JobCompleted:
			if err := t.db.SetReconCompleted(appID, status.ModelURLs); err != nil {
				return false, err
			}
			t.progress.Finish(appID)
			t.log.Info("3d build completed", "application_id", appID, "job_id", jobID)
			return true, nil
		case reconapi.JobFailed:
			if err := t.db.SetReconFailed(appID); err != nil {
				return false, err
			}
			t.progress.Finish(appID)
			t.log.Warn("3d build failed", "application_id", appID, "job_id", jobID)
			return true, nil
		default:
			return false, nil
		}
	}, t.log)

	t.mu.Lock()
	t.watchers[appID] = poller
	t.mu.Unlock()

	poller.Start(context.Background())
}

// Progress reports the display estimate for the 3D build, scaled to its
// multi-minute expected duration.
func (t *Tracker) Progress(app *models.Application) int {
	switch app.ReconStatus {
	case models.ReconCompleted:
		return 100
	case models.ReconPending:
		p := t.progress.Progress(app.ID, ReconEstimate)
		if p == 0 && app.ReconJobID.Valid {
			return 1
		}
		return p
	default:
		return 0
	}
}

// Stop tears down all active pollers, for shutdown.
func (t *Tracker) Stop() {
	t.mu.Lock()
	watchers := make([]*Poller, 0, len(t.watchers))
	for _, p := range t.watchers {
		watchers = append(watchers, p)
	}
	t.watchers = make(map[uuid.UUID]*Poller)
	t.mu.Unlock()

	for _, p := range watchers {
		p.Stop()
	}
}
