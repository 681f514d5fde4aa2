package workflow

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"

	"atelier-backend/internal/designapi"
	"atelier-backend/internal/logger"
	"atelier-backend/internal/models"
	"atelier-backend/internal/settings"
)

var (
	// ErrGenerationInFlight is returned when the status gate rejects a
	// second generation start for the same application.
	ErrGenerationInFlight = errors.New("a generation is already in flight for this application")
	// ErrNoInput rejects generation before any network call is made.
	ErrNoInput = errors.New("an input image or a comment is required")
	// ErrNotRegenerable is returned when regeneration is requested from a
	// status that has nothing to regenerate.
	ErrNotRegenerable = errors.New("application has no generation to redo")
)

// Orchestrator drives the single external "create design variants" call
// per application. Single-flight is enforced by the status gate on the
// aggregate row; the request handler additionally debounces, but the gate
// is what guarantees no duplicate generation call survives a double
// submit.
type Orchestrator struct {
	db           ApplicationStore
	designClient *designapi.Client
	progress     *progressTracker
	log          *logger.Logger

	// wg tracks background runs so shutdown can drain them.
	wg sync.WaitGroup
}

func NewOrchestrator(db ApplicationStore, designClient *designapi.Client, log *logger.Logger) *Orchestrator {
	return &Orchestrator{
		db:           db,
		designClient: designClient,
		progress:     newProgressTracker(),
		log:          log,
	}
}

// Start validates input, flips the aggregate to generating and launches
// the external call in the background. The caller polls the aggregate for
// completion; a reload mid-flight resumes polling without re-invoking
// this method's side effects (the status gate rejects the re-POST).
func (o *Orchestrator) Start(ctx context.Context, app *models.Application, snap *settings.Snapshot, regenerate bool) error {
	if !app.InputImageURL.Valid && !app.Comment.Valid {
		return ErrNoInput
	}
	if regenerate && app.Status == models.StatusDraft && len(app.CandidateURLs()) == 0 {
		return ErrNotRegenerable
	}

	ok, err := o.db.BeginGeneration(app.ID, regenerate)
	if err != nil {
		return err
	}
	if !ok {
		return ErrGenerationInFlight
	}

	if regenerate {
		// Destructive by design: candidates, selection, decorations and
		// the superseded 3D job all belong to the old image.
		if err := o.db.ClearGenerationOutputs(app.ID); err != nil {
			o.log.Error("failed to clear generation outputs", "application_id", app.ID, "error", err)
		}
	}

	prompt := BuildPrompt(snap, app)
	o.progress.Start(app.ID)

	genReq := designapi.GenerateRequest{
		ApplicationID: app.ID.String(),
		Prompt:        prompt,
		Comment:       stringOrEmpty(app.Comment.Valid, app.Comment.String),
		ImageURL:      stringOrEmpty(app.InputImageURL.Valid, app.InputImageURL.String),
	}

	o.wg.Add(1)
	go o.run(app.ID, genReq)

	return nil
}

// run performs the external call off the request context: the HTTP
// request that triggered generation ends long before the service does,
// and the external job is never cancelled once started.
func (o *Orchestrator) run(appID uuid.UUID, genReq designapi.GenerateRequest) {
	defer o.wg.Done()
	defer o.progress.Finish(appID)

	var result *designapi.GenerateResponse
	err := o.designClient.RetryWithBackoff(func() error {
		var err error
		result, err = o.designClient.Generate(context.Background(), genReq)
		return err
	}, 3)
	if err != nil {
		o.log.Warn("generation failed", "application_id", appID, "error", err)
		if dbErr := o.db.SaveGenerationFailure(appID, err.Error()); dbErr != nil {
			o.log.Error("failed to persist generation failure", "application_id", appID, "error", dbErr)
		}
		return
	}

	if err := o.db.SaveGenerationResult(appID, result.ImageURLs, result.ResolvedPrompt, int(StepSelection)); err != nil {
		o.log.Error("failed to persist generation result", "application_id", appID, "error", err)
		return
	}
	o.log.Info("generation completed", "application_id", appID, "candidates", len(result.ImageURLs))
}

// Progress reports the display estimate for the aggregate: a saturating
// curve while generating, 100 once outputs exist, 0 otherwise.
func (o *Orchestrator) Progress(app *models.Application) int {
	switch app.Status {
	case models.StatusGenerating:
		p := o.progress.Progress(app.ID, GenerationEstimate)
		if p == 0 {
			// Not tracked in this process (e.g. restart); show the floor
			// so the UI still reads as in progress.
			return 1
		}
		return p
	case models.StatusDraft:
		return 0
	default:
		if len(app.CandidateURLs()) > 0 {
			return 100
		}
		return 0
	}
}

// Drain waits for in-flight background generations, for shutdown.
func (o *Orchestrator) Drain() {
	o.wg.Wait()
}

// BuildPrompt assembles the generation prompt from the settings-resolved
// form factor fragment and the chosen material and size.
func BuildPrompt(snap *settings.Snapshot, app *models.Application) string {
	parts := []string{"jewelry design"}
	if app.FormFactor.Valid {
		if ff, ok := snap.FormFactor(app.FormFactor.String); ok && ff.PromptFragment != "" {
			parts = []string{ff.PromptFragment}
		}
	}
	if app.Material.Valid {
		if m, ok := snap.Materials[app.Material.String]; ok {
			parts = append(parts, "in "+m.Label)
		}
	}
	if app.Size.Valid && app.Material.Valid {
		if opt, ok := snap.SizesForMaterial(app.Material.String)[app.Size.String]; ok {
			parts = append(parts, "size "+opt.Label)
		}
	}
	return strings.Join(parts, ", ")
}

func stringOrEmpty(valid bool, s string) string {
	if valid {
		return s
	}
	return ""
}
