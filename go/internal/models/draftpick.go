package models

import (
	"time"

	"github.com/google/uuid"
)

// DraftPick represents a single pick in a room's draft. Picks are
// insert-only; the (room_id, overall_pick) pair is unique and overall pick
// numbers are contiguous starting at 1.
type DraftPick struct {
	ID           uuid.UUID `json:"id"`
	RoomID       uuid.UUID `json:"room_id"`
	MembershipID uuid.UUID `json:"membership_id"`
	ItemID       uuid.UUID `json:"item_id"`
	Round        int       `json:"round"`
	Pick         int       `json:"pick"`         // pick number in the round
	OverallPick  int       `json:"overall_pick"` // pick number overall
	PickedAt     time.Time `json:"picked_at"`
}
