package events

import (
	"time"
)

// Event types published on the room event bus.
const (
	TypeEnrollmentChanged = "EnrollmentChanged"
	TypeRoomStatusChanged = "RoomStatusChanged"
	TypePickMade          = "PickMade"
	TypeRoomCompleted     = "RoomCompleted"
)

// EnrollmentChangedPayload is published when a seat is filled.
type EnrollmentChangedPayload struct {
	RoomID        string    `json:"room_id"`
	MembershipID  string    `json:"membership_id"`
	ParticipantID string    `json:"participant_id"`
	FilledSeats   int       `json:"filled_seats"`
	Capacity      int       `json:"capacity"`
	JoinedAt      time.Time `json:"joined_at"`
}

// RoomStatusChangedPayload is published on every lifecycle transition.
type RoomStatusChangedPayload struct {
	RoomID    string    `json:"room_id"`
	Status    string    `json:"status"`
	ChangedAt time.Time `json:"changed_at"`
}

// PickMadePayload is published after every recorded draft pick.
type PickMadePayload struct {
	PickID       string    `json:"pick_id"`
	RoomID       string    `json:"room_id"`
	MembershipID string    `json:"membership_id"`
	ItemID       string    `json:"item_id"`
	Round        int       `json:"round"`
	Pick         int       `json:"pick"`
	OverallPick  int       `json:"overall_pick"`
	MadeAt       time.Time `json:"made_at"`
}

// RoomCompletedPayload is published when a room finishes its draft, whether
// by running out of picks or by catalog exhaustion.
type RoomCompletedPayload struct {
	RoomID      string    `json:"room_id"`
	CompletedAt time.Time `json:"completed_at"`
	TotalPicks  int       `json:"total_picks"`
	Forced      bool      `json:"forced"`
}
