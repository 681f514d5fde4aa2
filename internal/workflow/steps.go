package workflow

import (
	"errors"
	"fmt"

	"atelier-backend/internal/models"
	"atelier-backend/internal/settings"
)

// Step is one position in the customization pipeline. The order is linear
// but individual steps are skippable where a guard allows it.
type Step int

const (
	StepUpload Step = iota
	StepGenerating
	StepSelection
	StepConfigure
	StepDecorations
	StepEngraving
	StepFinalize
	StepVisualization
	StepCheckout
)

var stepNames = map[Step]string{
	StepUpload:        "upload",
	StepGenerating:    "generating",
	StepSelection:     "selection",
	StepConfigure:     "configure",
	StepDecorations:   "decorations",
	StepEngraving:     "engraving",
	StepFinalize:      "finalize",
	StepVisualization: "visualization",
	StepCheckout:      "checkout",
}

func (s Step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return fmt.Sprintf("step(%d)", int(s))
}

// StepFromName resolves a wire-format step name.
func StepFromName(name string) (Step, bool) {
	for step, n := range stepNames {
		if n == name {
			return step, true
		}
	}
	return 0, false
}

// guard validates the precondition for entering a step. A nil entry means
// the step has no precondition beyond the transition table.
type guard func(app *models.Application, snap *settings.Snapshot) error

// transitions is the declarative table of allowed forward moves. Multiple
// targets from one step encode the skip logic: decorations can be
// bypassed entirely, engraving only applies to certain form-factor/size
// combinations.
var transitions = map[Step][]Step{
	StepUpload:        {StepGenerating},
	StepGenerating:    {StepSelection},
	StepSelection:     {StepConfigure},
	StepConfigure:     {StepDecorations, StepEngraving, StepFinalize},
	StepDecorations:   {StepEngraving, StepFinalize},
	StepEngraving:     {StepFinalize},
	StepFinalize:      {StepVisualization},
	StepVisualization: {StepCheckout},
}

var guards = map[Step]guard{
	StepGenerating: func(app *models.Application, _ *settings.Snapshot) error {
		if !app.InputImageURL.Valid && !app.Comment.Valid {
			return errors.New("an input image or a comment is required before generation")
		}
		return nil
	},
	StepSelection: func(app *models.Application, _ *settings.Snapshot) error {
		if app.Status == models.StatusGenerating {
			return errors.New("generation still in progress")
		}
		if len(app.CandidateURLs()) == 0 {
			return errors.New("no generated candidates to select from")
		}
		return nil
	},
	StepConfigure: func(app *models.Application, _ *settings.Snapshot) error {
		if !app.SelectedVariant.Valid {
			return errors.New("a variant must be selected first")
		}
		return nil
	},
	StepDecorations: func(app *models.Application, snap *settings.Snapshot) error {
		return requireConfiguration(app, snap)
	},
	StepEngraving: func(app *models.Application, snap *settings.Snapshot) error {
		if err := requireConfiguration(app, snap); err != nil {
			return err
		}
		if !snap.Engravable(app.FormFactor.String, app.Size.String) {
			return errors.New("engraving is not available for this form factor and size")
		}
		return nil
	},
	StepFinalize: func(app *models.Application, snap *settings.Snapshot) error {
		return requireConfiguration(app, snap)
	},
	StepCheckout: func(app *models.Application, _ *settings.Snapshot) error {
		if !app.UserID.Valid {
			return errors.New("identity must be verified before checkout")
		}
		return nil
	},
}

func requireConfiguration(app *models.Application, snap *settings.Snapshot) error {
	if !app.Material.Valid || !app.Size.Valid {
		return errors.New("material and size must be configured")
	}
	if !snap.MaterialEnabled(app.Material.String) {
		return fmt.Errorf("material %q is not available", app.Material.String)
	}
	if _, ok := snap.PriceFor(app.Material.String, app.Size.String); !ok {
		return fmt.Errorf("size %q is not available for material %q", app.Size.String, app.Material.String)
	}
	return nil
}

// CanAdvance checks the transition table and the target step's guard.
func CanAdvance(from, to Step, app *models.Application, snap *settings.Snapshot) error {
	allowed := false
	for _, t := range transitions[from] {
		if t == to {
			allowed = true
			break
		}
	}
	if !allowed {
		return fmt.Errorf("cannot advance from %s to %s", from, to)
	}
	return checkGuard(to, app, snap)
}

// checkGuard runs the step's guard without consulting the transition
// table, for same-step configuration updates.
func checkGuard(to Step, app *models.Application, snap *settings.Snapshot) error {
	if g, ok := guards[to]; ok && g != nil {
		if err := g(app, snap); err != nil {
			return fmt.Errorf("cannot enter %s: %w", to, err)
		}
	}
	return nil
}
