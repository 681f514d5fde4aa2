package workflow_test

import (
	"database/sql"
	"encoding/json"
	"sync"

	"github.com/google/uuid"

	"atelier-backend/internal/models"
)

// fakeStore keeps a single aggregate in memory with the same write
// semantics as the SQL client, including the generation status gate.
type fakeStore struct {
	mu      sync.Mutex
	app     models.Application
	cleared int
}

func newFakeStore(app *models.Application) *fakeStore {
	return &fakeStore{app: *app}
}

func (f *fakeStore) snapshot() models.Application {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.app
}

func (f *fakeStore) GetApplication(id uuid.UUID) (*models.Application, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := f.app
	return &cp, nil
}

func (f *fakeStore) UpdateApplicationConfig(id uuid.UUID, step int, formFactor, material, size, comment, engraving sql.NullString, baseCents, totalCents int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.app.CurrentStep = step
	if formFactor.Valid {
		f.app.FormFactor = formFactor
	}
	if material.Valid {
		f.app.Material = material
	}
	if size.Valid {
		f.app.Size = size
	}
	if comment.Valid {
		f.app.Comment = comment
	}
	if engraving.Valid {
		f.app.EngravingText = engraving
	}
	f.app.BaseCostCents = baseCents
	f.app.TotalCostCents = totalCents
	return nil
}

func (f *fakeStore) UpdateApplicationStep(id uuid.UUID, step int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.app.CurrentStep = step
	return nil
}

func (f *fakeStore) SetApplicationStatus(id uuid.UUID, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.app.Status = status
	return nil
}

func (f *fakeStore) BeginGeneration(id uuid.UUID, regenerate bool) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	allowed := f.app.Status == models.StatusDraft
	if regenerate {
		switch f.app.Status {
		case models.StatusGenerated, models.StatusVariantsReady, models.StatusSelected:
			allowed = true
		}
	}
	if !allowed {
		return false, nil
	}
	f.app.Status = models.StatusGenerating
	f.app.ErrorMessage = sql.NullString{}
	return true, nil
}

func (f *fakeStore) ClearGenerationOutputs(id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.app.Candidates = nil
	f.app.ResolvedPrompt = sql.NullString{}
	f.app.SelectedVariant = sql.NullInt64{}
	f.app.SelectedImageURL = sql.NullString{}
	f.app.ReconJobID = sql.NullString{}
	f.app.ReconStatus = models.ReconNone
	f.app.ModelURLs = nil
	f.app.Decorations = json.RawMessage("[]")
	f.app.DecorationCostCents = 0
	f.app.TotalCostCents = f.app.BaseCostCents
	f.cleared++
	return nil
}

func (f *fakeStore) SaveGenerationResult(id uuid.UUID, candidateURLs []string, resolvedPrompt string, step int) error {
	raw, err := json.Marshal(candidateURLs)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.app.Status = models.StatusGenerated
	f.app.Candidates = raw
	f.app.ResolvedPrompt = sql.NullString{String: resolvedPrompt, Valid: true}
	f.app.CurrentStep = step
	f.app.ErrorMessage = sql.NullString{}
	return nil
}

func (f *fakeStore) SaveGenerationFailure(id uuid.UUID, errorMsg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.app.Status = models.StatusDraft
	f.app.ErrorMessage = sql.NullString{String: errorMsg, Valid: true}
	return nil
}

func (f *fakeStore) SetReconJob(id uuid.UUID, jobID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.app.ReconJobID = sql.NullString{String: jobID, Valid: true}
	f.app.ReconStatus = models.ReconPending
	f.app.ModelURLs = nil
	return nil
}

func (f *fakeStore) SetReconPending(id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.app.ReconStatus = models.ReconPending
	return nil
}

func (f *fakeStore) SetReconCompleted(id uuid.UUID, modelURLs []string) error {
	raw, err := json.Marshal(modelURLs)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.app.ReconStatus = models.ReconCompleted
	f.app.ModelURLs = raw
	return nil
}

func (f *fakeStore) SetReconFailed(id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.app.ReconStatus = models.ReconFailed
	return nil
}
