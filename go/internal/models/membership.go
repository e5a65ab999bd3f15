package models

import (
	"time"

	"github.com/google/uuid"
)

// Membership represents a seat within a room. A membership with no
// participant is a placeholder seat reserved by an external workflow; the
// enrollment scheduler fills it before inserting new seats. Slot is the
// draft-order position, nil until the room starts.
type Membership struct {
	ID            uuid.UUID     `json:"id"`
	RoomID        uuid.UUID     `json:"room_id"`
	ParticipantID uuid.NullUUID `json:"participant_id"`
	Slot          *int          `json:"slot,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
}

// Placeholder reports whether the seat has no participant yet.
func (m *Membership) Placeholder() bool {
	return !m.ParticipantID.Valid
}
