package workflow

import (
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Expected durations for the synthetic progress curves. These are UX
// parameters tuned to observed service latency, not correctness contracts;
// completion is always detected from persisted status, never from the
// curve.
const (
	GenerationEstimate = 60 * time.Second
	ReconEstimate      = 180 * time.Second
)

// progressCap is where the curve saturates while the real work is still
// running. Only confirmed completion snaps the display to 100.
const progressCap = 95

// EstimateProgress maps elapsed time onto a saturating 0..95 curve:
// 95 * (1 - e^(-3t/T)). At t=T the estimate reads ~90; it then creeps
// toward the cap however long the external service takes.
func EstimateProgress(elapsed, expected time.Duration) int {
	if elapsed <= 0 || expected <= 0 {
		return 0
	}
	t := elapsed.Seconds() / expected.Seconds()
	p := progressCap * (1 - math.Exp(-3*t))
	if p > progressCap {
		p = progressCap
	}
	return int(p)
}

// progressTracker records when a long-running operation started for each
// application, so status reads can report a synthetic estimate.
type progressTracker struct {
	mu      sync.Mutex
	started map[uuid.UUID]time.Time
}

func newProgressTracker() *progressTracker {
	return &progressTracker{started: make(map[uuid.UUID]time.Time)}
}

func (t *progressTracker) Start(id uuid.UUID) {
	t.mu.Lock()
	t.started[id] = time.Now()
	t.mu.Unlock()
}

// Progress returns the synthetic estimate, or 0 if no operation is being
// tracked (e.g. after a server restart; the next poll still resolves the
// real status from the aggregate).
func (t *progressTracker) Progress(id uuid.UUID, expected time.Duration) int {
	t.mu.Lock()
	startedAt, ok := t.started[id]
	t.mu.Unlock()
	if !ok {
		return 0
	}
	return EstimateProgress(time.Since(startedAt), expected)
}

func (t *progressTracker) Finish(id uuid.UUID) {
	t.mu.Lock()
	delete(t.started, id)
	t.mu.Unlock()
}
