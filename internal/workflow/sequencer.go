package workflow

import (
	"context"
	"database/sql"

	"atelier-backend/internal/logger"
	"atelier-backend/internal/models"
	"atelier-backend/internal/settings"
)

// ConfigPatch is the partial configuration persisted together with a step
// change. Empty fields leave the stored value untouched.
type ConfigPatch struct {
	FormFactor    string
	Material      string
	Size          string
	Comment       string
	EngravingText string
}

// Sequencer drives the step pipeline. Every forward transition validates
// the target's guard, applies the config patch and persists step index and
// configuration; the aggregate row is the single serialization point.
type Sequencer struct {
	db  ApplicationStore
	log *logger.Logger
}

func NewSequencer(db ApplicationStore, log *logger.Logger) *Sequencer {
	return &Sequencer{db: db, log: log}
}

// Advance moves the application forward to the target step. Re-invoking
// the same transition with a patch that changes nothing is an idempotent
// no-op ack, so a client retry after a lost response converges; a changed
// patch at the current step re-runs the step's guard and persists the new
// configuration.
func (s *Sequencer) Advance(ctx context.Context, app *models.Application, target Step, patch ConfigPatch, snap *settings.Snapshot) (*models.Application, error) {
	patched := applyPatch(app, patch)

	if Step(app.CurrentStep) == target {
		if configEqual(app, patched) {
			return app, nil
		}
		if err := checkGuard(target, patched, snap); err != nil {
			return nil, err
		}
	} else if err := CanAdvance(Step(app.CurrentStep), target, patched, snap); err != nil {
		return nil, err
	}

	baseCents := patched.BaseCostCents
	if patched.Material.Valid && patched.Size.Valid {
		if price, ok := snap.PriceFor(patched.Material.String, patched.Size.String); ok {
			baseCents = price
		}
	}
	totalCents := baseCents + patched.DecorationCostCents

	err := s.db.UpdateApplicationConfig(app.ID, int(target),
		nullIfEmpty(patch.FormFactor), nullIfEmpty(patch.Material), nullIfEmpty(patch.Size),
		nullIfEmpty(patch.Comment), nullIfEmpty(patch.EngravingText),
		baseCents, totalCents)
	if err != nil {
		return nil, err
	}

	if target == StepSelection && app.Status == models.StatusGenerated {
		if err := s.db.SetApplicationStatus(app.ID, models.StatusVariantsReady); err != nil {
			s.log.Warn("failed to mark variants ready", "application_id", app.ID, "error", err)
		}
	}

	return s.db.GetApplication(app.ID)
}

// Back is a pure step-index decrement. Already-computed results
// (candidates, selection, decorations) are kept so forward navigation can
// resume without recomputation.
func (s *Sequencer) Back(ctx context.Context, app *models.Application) (*models.Application, error) {
	if app.CurrentStep == 0 {
		return app, nil
	}
	prev := app.CurrentStep - 1
	if err := s.db.UpdateApplicationStep(app.ID, prev); err != nil {
		return nil, err
	}
	return s.db.GetApplication(app.ID)
}

// applyPatch returns a copy of the aggregate with the patch overlaid, for
// guard evaluation against the post-transition state.
func applyPatch(app *models.Application, patch ConfigPatch) *models.Application {
	patched := *app
	if patch.FormFactor != "" {
		patched.FormFactor = sql.NullString{String: patch.FormFactor, Valid: true}
	}
	if patch.Material != "" {
		patched.Material = sql.NullString{String: patch.Material, Valid: true}
	}
	if patch.Size != "" {
		patched.Size = sql.NullString{String: patch.Size, Valid: true}
	}
	if patch.Comment != "" {
		patched.Comment = sql.NullString{String: patch.Comment, Valid: true}
	}
	if patch.EngravingText != "" {
		patched.EngravingText = sql.NullString{String: patch.EngravingText, Valid: true}
	}
	return &patched
}

// configEqual reports whether two aggregates agree on the patchable
// configuration fields.
func configEqual(a, b *models.Application) bool {
	return a.FormFactor == b.FormFactor &&
		a.Material == b.Material &&
		a.Size == b.Size &&
		a.Comment == b.Comment &&
		a.EngravingText == b.EngravingText
}

func nullIfEmpty(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
