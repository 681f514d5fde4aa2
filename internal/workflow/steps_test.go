package workflow_test

import (
	"database/sql"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"atelier-backend/internal/models"
	"atelier-backend/internal/settings"
	"atelier-backend/internal/workflow"
)

func draftApp() *models.Application {
	return &models.Application{
		ID:          uuid.New(),
		SessionID:   uuid.New(),
		Status:      models.StatusDraft,
		ReconStatus: models.ReconNone,
	}
}

func withCandidates(app *models.Application, urls ...string) *models.Application {
	raw, _ := json.Marshal(urls)
	app.Candidates = raw
	return app
}

func TestStepFromName(t *testing.T) {
	step, ok := workflow.StepFromName("decorations")
	assert.True(t, ok)
	assert.Equal(t, workflow.StepDecorations, step)

	_, ok = workflow.StepFromName("nope")
	assert.False(t, ok)
}

func TestCanAdvance_RejectsUnknownTransition(t *testing.T) {
	snap := settings.Defaults()
	err := workflow.CanAdvance(workflow.StepUpload, workflow.StepCheckout, draftApp(), snap)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "cannot advance")
}

func TestCanAdvance_GeneratingRequiresInput(t *testing.T) {
	snap := settings.Defaults()
	app := draftApp()

	err := workflow.CanAdvance(workflow.StepUpload, workflow.StepGenerating, app, snap)
	assert.Error(t, err)

	app.Comment = sql.NullString{String: "a dragon curled around a pearl", Valid: true}
	err = workflow.CanAdvance(workflow.StepUpload, workflow.StepGenerating, app, snap)
	assert.NoError(t, err)
}

func TestCanAdvance_SelectionRequiresCandidates(t *testing.T) {
	snap := settings.Defaults()
	app := draftApp()

	err := workflow.CanAdvance(workflow.StepGenerating, workflow.StepSelection, app, snap)
	assert.Error(t, err)

	withCandidates(app, "https://cdn.test/a.png")
	app.Status = models.StatusGenerated
	err = workflow.CanAdvance(workflow.StepGenerating, workflow.StepSelection, app, snap)
	assert.NoError(t, err)

	// Mid-flight generation blocks even when stale candidates exist.
	app.Status = models.StatusGenerating
	err = workflow.CanAdvance(workflow.StepGenerating, workflow.StepSelection, app, snap)
	assert.Error(t, err)
}

func TestCanAdvance_ConfigureRequiresSelection(t *testing.T) {
	snap := settings.Defaults()
	app := withCandidates(draftApp(), "https://cdn.test/a.png")
	app.Status = models.StatusVariantsReady

	err := workflow.CanAdvance(workflow.StepSelection, workflow.StepConfigure, app, snap)
	assert.Error(t, err)

	app.SelectedVariant = sql.NullInt64{Int64: 0, Valid: true}
	err = workflow.CanAdvance(workflow.StepSelection, workflow.StepConfigure, app, snap)
	assert.NoError(t, err)
}

func TestCanAdvance_DecorationsRequireConfiguration(t *testing.T) {
	snap := settings.Defaults()
	app := draftApp()

	err := workflow.CanAdvance(workflow.StepConfigure, workflow.StepDecorations, app, snap)
	assert.Error(t, err)

	app.Material = sql.NullString{String: "silver", Valid: true}
	app.Size = sql.NullString{String: "m", Valid: true}
	err = workflow.CanAdvance(workflow.StepConfigure, workflow.StepDecorations, app, snap)
	assert.NoError(t, err)

	// An unpriced size for the material fails the guard.
	app.Size = sql.NullString{String: "xxl", Valid: true}
	err = workflow.CanAdvance(workflow.StepConfigure, workflow.StepDecorations, app, snap)
	assert.Error(t, err)
}

func TestCanAdvance_DecorationsSkippable(t *testing.T) {
	snap := settings.Defaults()
	app := draftApp()
	app.Material = sql.NullString{String: "silver", Valid: true}
	app.Size = sql.NullString{String: "m", Valid: true}

	// configure -> finalize directly, bypassing decorations and engraving.
	err := workflow.CanAdvance(workflow.StepConfigure, workflow.StepFinalize, app, snap)
	assert.NoError(t, err)
}

func TestCanAdvance_EngravingAvailability(t *testing.T) {
	snap := settings.Defaults()
	app := draftApp()
	app.Material = sql.NullString{String: "silver", Valid: true}
	app.Size = sql.NullString{String: "m", Valid: true}

	app.FormFactor = sql.NullString{String: "pendant", Valid: true}
	err := workflow.CanAdvance(workflow.StepConfigure, workflow.StepEngraving, app, snap)
	assert.NoError(t, err)

	// Earrings are not engravable.
	app.FormFactor = sql.NullString{String: "earrings", Valid: true}
	err = workflow.CanAdvance(workflow.StepConfigure, workflow.StepEngraving, app, snap)
	assert.Error(t, err)

	// The smallest size is too small for engraving on any form factor.
	app.FormFactor = sql.NullString{String: "pendant", Valid: true}
	app.Size = sql.NullString{String: "s", Valid: true}
	err = workflow.CanAdvance(workflow.StepConfigure, workflow.StepEngraving, app, snap)
	assert.Error(t, err)
}

func TestCanAdvance_CheckoutRequiresVerifiedIdentity(t *testing.T) {
	snap := settings.Defaults()
	app := draftApp()

	err := workflow.CanAdvance(workflow.StepVisualization, workflow.StepCheckout, app, snap)
	assert.Error(t, err)

	app.UserID = uuid.NullUUID{UUID: uuid.New(), Valid: true}
	err = workflow.CanAdvance(workflow.StepVisualization, workflow.StepCheckout, app, snap)
	assert.NoError(t, err)
}
