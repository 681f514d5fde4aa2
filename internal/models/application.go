package models

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Application lifecycle statuses. Monotonic in the normal flow, but
// regeneration and generation failure reset to draft/generating.
const (
	StatusDraft         = "draft"
	StatusGenerating    = "generating"
	StatusGenerated     = "generated"
	StatusVariantsReady = "variants_ready"
	StatusSelected      = "selected"
	StatusFinalized     = "finalized"
	StatusPaid          = "paid"
	StatusPaymentFailed = "payment_failed"
)

// 3D reconstruction job statuses.
const (
	ReconNone      = "none"
	ReconPending   = "pending"
	ReconCompleted = "completed"
	ReconFailed    = "failed"
)

// Application is the durable aggregate for one customer's customization.
// The server row is the source of truth; clients hold a cached projection
// and resume from it after reload.
type Application struct {
	ID        uuid.UUID
	SessionID uuid.UUID
	UserID    uuid.NullUUID

	Status      string
	CurrentStep int

	// Input
	InputImageURL sql.NullString
	Comment       sql.NullString
	FormFactor    sql.NullString
	Material      sql.NullString
	Size          sql.NullString

	// Generation outputs
	Candidates       json.RawMessage // []string of candidate image URLs
	ResolvedPrompt   sql.NullString
	SelectedVariant  sql.NullInt64
	SelectedImageURL sql.NullString

	// 3D outputs
	ReconJobID  sql.NullString
	ReconStatus string
	ModelURLs   json.RawMessage // []string

	// Decorations
	Decorations json.RawMessage // []decorations.Placement

	// Commercial
	BaseCostCents       int64
	DecorationCostCents int64
	TotalCostCents      int64
	PaymentStatus       sql.NullString

	// Engraving
	EngravingText sql.NullString

	ErrorMessage sql.NullString
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CandidateURLs decodes the stored candidate list. Nil on empty or bad data.
func (a *Application) CandidateURLs() []string {
	if len(a.Candidates) == 0 {
		return nil
	}
	var urls []string
	if err := json.Unmarshal(a.Candidates, &urls); err != nil {
		return nil
	}
	return urls
}

// ModelURLList decodes the stored 3D model URLs.
func (a *Application) ModelURLList() []string {
	if len(a.ModelURLs) == 0 {
		return nil
	}
	var urls []string
	if err := json.Unmarshal(a.ModelURLs, &urls); err != nil {
		return nil
	}
	return urls
}
