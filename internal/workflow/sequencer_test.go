package workflow_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"atelier-backend/internal/logger"
	"atelier-backend/internal/models"
	"atelier-backend/internal/settings"
	"atelier-backend/internal/workflow"
)

// configuredApp is an aggregate sitting at the configure step with a
// selected variant and a valid silver/m configuration.
func configuredApp() *models.Application {
	app := withCandidates(draftApp(), "https://cdn.test/a.png", "https://cdn.test/b.png")
	app.Status = models.StatusSelected
	app.CurrentStep = int(workflow.StepConfigure)
	app.SelectedVariant = sql.NullInt64{Int64: 0, Valid: true}
	app.SelectedImageURL = sql.NullString{String: "https://cdn.test/a.png", Valid: true}
	app.Material = sql.NullString{String: "silver", Valid: true}
	app.Size = sql.NullString{String: "m", Valid: true}
	app.BaseCostCents = 5900
	app.TotalCostCents = 5900
	return app
}

func TestAdvance_IdenticalRetryIsAck(t *testing.T) {
	snap := settings.Defaults()
	app := configuredApp()
	store := newFakeStore(app)
	seq := workflow.NewSequencer(store, logger.NewNop())

	// A retried transition request carrying the already-applied patch must
	// converge, not be rejected as an illegal self-transition.
	patch := workflow.ConfigPatch{Material: "silver", Size: "m"}
	updated, err := seq.Advance(context.Background(), app, workflow.StepConfigure, patch, snap)
	require.NoError(t, err)
	assert.Equal(t, int(workflow.StepConfigure), updated.CurrentStep)
	assert.Equal(t, int64(5900), store.snapshot().BaseCostCents)
}

func TestAdvance_SameStepConfigChange(t *testing.T) {
	snap := settings.Defaults()
	app := configuredApp()
	store := newFakeStore(app)
	seq := workflow.NewSequencer(store, logger.NewNop())

	patch := workflow.ConfigPatch{Size: "l"}
	updated, err := seq.Advance(context.Background(), app, workflow.StepConfigure, patch, snap)
	require.NoError(t, err)
	assert.Equal(t, "l", updated.Size.String)
	assert.Equal(t, int64(7400), updated.BaseCostCents)
	assert.Equal(t, int(workflow.StepConfigure), updated.CurrentStep)
}

func TestAdvance_SameStepChangeRunsGuard(t *testing.T) {
	snap := settings.Defaults()
	app := configuredApp()
	store := newFakeStore(app)
	seq := workflow.NewSequencer(store, logger.NewNop())

	// An unpriced size fails the configure guard; nothing is persisted.
	patch := workflow.ConfigPatch{Size: "xxl"}
	app.CurrentStep = int(workflow.StepDecorations)
	_, err := seq.Advance(context.Background(), app, workflow.StepDecorations, patch, snap)
	assert.Error(t, err)
	assert.Equal(t, "m", store.snapshot().Size.String)
}

func TestAdvance_ForwardTransitionPersists(t *testing.T) {
	snap := settings.Defaults()
	app := configuredApp()
	store := newFakeStore(app)
	seq := workflow.NewSequencer(store, logger.NewNop())

	updated, err := seq.Advance(context.Background(), app, workflow.StepDecorations, workflow.ConfigPatch{}, snap)
	require.NoError(t, err)
	assert.Equal(t, int(workflow.StepDecorations), updated.CurrentStep)
}

func TestAdvance_GuardRejectionLeavesStoreUntouched(t *testing.T) {
	snap := settings.Defaults()
	app := configuredApp()
	app.Material = sql.NullString{}
	store := newFakeStore(app)
	seq := workflow.NewSequencer(store, logger.NewNop())

	_, err := seq.Advance(context.Background(), app, workflow.StepDecorations, workflow.ConfigPatch{}, snap)
	assert.Error(t, err)
	assert.Equal(t, int(workflow.StepConfigure), store.snapshot().CurrentStep)
}

func TestAdvance_EnteringSelectionMarksVariantsReady(t *testing.T) {
	snap := settings.Defaults()
	app := withCandidates(draftApp(), "https://cdn.test/a.png")
	app.Status = models.StatusGenerated
	app.CurrentStep = int(workflow.StepGenerating)
	store := newFakeStore(app)
	seq := workflow.NewSequencer(store, logger.NewNop())

	updated, err := seq.Advance(context.Background(), app, workflow.StepSelection, workflow.ConfigPatch{}, snap)
	require.NoError(t, err)
	assert.Equal(t, models.StatusVariantsReady, updated.Status)
	assert.Equal(t, int(workflow.StepSelection), updated.CurrentStep)
}

func TestBack_DecrementsAndKeepsOutputs(t *testing.T) {
	app := configuredApp()
	store := newFakeStore(app)
	seq := workflow.NewSequencer(store, logger.NewNop())

	updated, err := seq.Back(context.Background(), app)
	require.NoError(t, err)
	assert.Equal(t, int(workflow.StepSelection), updated.CurrentStep)
	assert.Len(t, updated.CandidateURLs(), 2)
	assert.True(t, updated.SelectedVariant.Valid)

	// Back at the first step is a no-op.
	first := draftApp()
	firstStore := newFakeStore(first)
	firstSeq := workflow.NewSequencer(firstStore, logger.NewNop())
	updated, err = firstSeq.Back(context.Background(), first)
	require.NoError(t, err)
	assert.Equal(t, 0, updated.CurrentStep)
}
