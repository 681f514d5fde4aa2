package decorations

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// EdgeMarginPercent keeps placements away from the image border so gems
// never render outside the product silhouette.
const EdgeMarginPercent = 5.0

var (
	ErrInvalidBounds = errors.New("preview bounds must be positive")
	ErrOutOfBounds   = errors.New("pointer position outside preview bounds")
	ErrEdgeMargin    = errors.New("placement too close to the image edge")
)

// Placement is one add-on ornament on the product preview. Coordinates
// are percentages of the image bounds, so a placement stays valid across
// resizes and different preview renderings.
type Placement struct {
	ID             uuid.UUID `json:"id"`
	X              float64   `json:"x"`
	Y              float64   `json:"y"`
	DecorationType string    `json:"decoration_type"`
}

// Place converts a pointer position on a preview of the given pixel bounds
// into a normalized placement. Placements within EdgeMarginPercent of any
// edge are rejected.
func Place(pointerX, pointerY, boundsWidth, boundsHeight float64, decorationType string) (Placement, error) {
	if boundsWidth <= 0 || boundsHeight <= 0 {
		return Placement{}, ErrInvalidBounds
	}
	if pointerX < 0 || pointerX > boundsWidth || pointerY < 0 || pointerY > boundsHeight {
		return Placement{}, ErrOutOfBounds
	}

	x := pointerX / boundsWidth * 100
	y := pointerY / boundsHeight * 100

	if x < EdgeMarginPercent || x > 100-EdgeMarginPercent ||
		y < EdgeMarginPercent || y > 100-EdgeMarginPercent {
		return Placement{}, ErrEdgeMargin
	}

	return Placement{
		ID:             uuid.New(),
		X:              x,
		Y:              y,
		DecorationType: decorationType,
	}, nil
}

// Remove returns the list without the placement with the given id. A
// missing id is not an error; the list is returned unchanged.
func Remove(placements []Placement, id uuid.UUID) []Placement {
	out := placements[:0:0]
	for _, p := range placements {
		if p.ID != id {
			out = append(out, p)
		}
	}
	return out
}

// CostByType computes the decoration total from per-type unit prices.
// Recomputed after every add or remove; unknown types contribute nothing.
func CostByType(placements []Placement, unitPriceCents map[string]int64) int64 {
	var total int64
	for _, p := range placements {
		total += unitPriceCents[p.DecorationType]
	}
	return total
}

// RenderScale derives a decoration's on-screen size from its physical size
// relative to the product's physical size for the selected size option.
// The ratio must be recomputed when the size selection changes, never
// cached across size changes.
func RenderScale(decorationMM, productMM float64) (float64, error) {
	if decorationMM <= 0 || productMM <= 0 {
		return 0, fmt.Errorf("physical sizes must be positive: decoration %.2fmm, product %.2fmm", decorationMM, productMM)
	}
	return decorationMM / productMM, nil
}

// Decode unmarshals the aggregate's stored placement list.
func Decode(raw json.RawMessage) ([]Placement, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var placements []Placement
	if err := json.Unmarshal(raw, &placements); err != nil {
		return nil, fmt.Errorf("failed to decode placements: %w", err)
	}
	return placements, nil
}

// Encode marshals a placement list for storage.
func Encode(placements []Placement) (json.RawMessage, error) {
	if placements == nil {
		placements = []Placement{}
	}
	data, err := json.Marshal(placements)
	if err != nil {
		return nil, fmt.Errorf("failed to encode placements: %w", err)
	}
	return data, nil
}
