package models

import (
	"time"

	"github.com/google/uuid"
)

// Participant is a simulated (bot) or human account assignable to a
// membership. "Busy" is derived from holding a membership in an ACTIVE room
// and is never persisted directly.
type Participant struct {
	ID          uuid.UUID `json:"id"`
	DisplayName string    `json:"display_name"`
	Bot         bool      `json:"bot"`
	CreatedAt   time.Time `json:"created_at"`
}
