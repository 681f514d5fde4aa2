package workflow

import (
	"database/sql"

	"github.com/google/uuid"

	"atelier-backend/internal/models"
)

// ApplicationStore is the persistence surface the workflow needs from the
// database client. Satisfied by database.Client; tests substitute an
// in-memory aggregate.
type ApplicationStore interface {
	GetApplication(id uuid.UUID) (*models.Application, error)
	UpdateApplicationConfig(id uuid.UUID, step int, formFactor, material, size, comment, engraving sql.NullString, baseCents, totalCents int64) error
	UpdateApplicationStep(id uuid.UUID, step int) error
	SetApplicationStatus(id uuid.UUID, status string) error

	BeginGeneration(id uuid.UUID, regenerate bool) (bool, error)
	ClearGenerationOutputs(id uuid.UUID) error
	SaveGenerationResult(id uuid.UUID, candidateURLs []string, resolvedPrompt string, step int) error
	SaveGenerationFailure(id uuid.UUID, errorMsg string) error

	SetReconJob(id uuid.UUID, jobID string) error
	SetReconPending(id uuid.UUID) error
	SetReconCompleted(id uuid.UUID, modelURLs []string) error
	SetReconFailed(id uuid.UUID) error
}
