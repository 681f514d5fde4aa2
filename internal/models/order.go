package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Order is the commercial commitment created at checkout. It snapshots the
// application's configuration so later edits to the application cannot
// change what was bought.
type Order struct {
	ID            uuid.UUID
	ApplicationID uuid.UUID
	UserID        uuid.UUID
	Contact       json.RawMessage // ContactInfo
	Material      string
	Size          string
	Decorations   json.RawMessage
	TotalCents    int64
	Status        string
	CreatedAt     time.Time
}

type ContactInfo struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
}
