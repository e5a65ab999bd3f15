package rooms

import (
	"time"

	"github.com/google/uuid"
	"github.com/rconti3535/LineupLabs-sub001/go/internal/models"
)

// CreateRoomRequest carries the fields for a new room. The persistence
// layer treats creation as idempotent on ID.
type CreateRoomRequest struct {
	ID               uuid.UUID             `json:"id"`
	Capacity         int                   `json:"capacity"`
	Visibility       models.RoomVisibility `json:"visibility"`
	ScheduledStartAt time.Time             `json:"scheduled_start_at"`
	OwnerID          *uuid.UUID            `json:"owner_id,omitempty"`
}

// EnrollParticipantRequest enrolls a participant into a room. If the room
// holds a placeholder membership the oldest one is filled (inheriting any
// pre-assigned draft slot); otherwise a new membership is inserted.
type EnrollParticipantRequest struct {
	MembershipID  uuid.UUID `json:"membership_id"`
	RoomID        uuid.UUID `json:"room_id"`
	ParticipantID uuid.UUID `json:"participant_id"`
}

// RoomWithSeats is a room together with its current membership count.
type RoomWithSeats struct {
	Room        models.Room `json:"room"`
	FilledSeats int         `json:"filled_seats"`
}

// Seat is a membership joined with its participant, if any. Participant is
// nil for placeholder seats.
type Seat struct {
	Membership  models.Membership   `json:"membership"`
	Participant *models.Participant `json:"participant,omitempty"`
}

// Bot reports whether the seat is held by a simulated participant.
func (s Seat) Bot() bool {
	return s.Participant != nil && s.Participant.Bot
}
