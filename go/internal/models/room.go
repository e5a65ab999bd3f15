package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/rconti3535/LineupLabs-sub001/go/internal/roster"
)

// RoomVisibility defines who can discover a room.
type RoomVisibility string

const (
	RoomVisibilityPublic  RoomVisibility = "PUBLIC"
	RoomVisibilityPrivate RoomVisibility = "PRIVATE"
)

// RoomStatus defines the lifecycle status of a room.
type RoomStatus string

const (
	RoomStatusForming   RoomStatus = "FORMING"
	RoomStatusStarting  RoomStatus = "STARTING"
	RoomStatusActive    RoomStatus = "ACTIVE"
	RoomStatusPaused    RoomStatus = "PAUSED"
	RoomStatusCompleted RoomStatus = "COMPLETED"
)

// CanTransitionTo reports whether a status change is legal. The chain is
// monotonic (FORMING -> STARTING -> ACTIVE -> COMPLETED); PAUSED is a
// reversible sub-state reachable and exitable only from/to ACTIVE.
func (s RoomStatus) CanTransitionTo(next RoomStatus) bool {
	switch s {
	case RoomStatusForming:
		return next == RoomStatusStarting
	case RoomStatusStarting:
		return next == RoomStatusActive
	case RoomStatusActive:
		return next == RoomStatusPaused || next == RoomStatusCompleted
	case RoomStatusPaused:
		return next == RoomStatusActive
	default:
		return false
	}
}

// RoomSettings holds JSONB configuration for rooms. The roster template is
// frozen into the room at the FORMING -> STARTING transition and is never
// mutated afterwards.
type RoomSettings struct {
	Roster roster.Template `json:"roster"`
}

// Room represents a draft-eligible league instance.
type Room struct {
	ID               uuid.UUID      `json:"id"`
	Capacity         int            `json:"capacity"`
	Visibility       RoomVisibility `json:"visibility"`
	Status           RoomStatus     `json:"status"`
	Settings         RoomSettings   `json:"settings"`
	ScheduledStartAt time.Time      `json:"scheduled_start_at"`
	StartedAt        *time.Time     `json:"started_at,omitempty"`
	CompletedAt      *time.Time     `json:"completed_at,omitempty"`
	OwnerID          *uuid.UUID     `json:"owner_id,omitempty"` // nil means fully autonomous
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// Autonomous reports whether the room has no external owner and is therefore
// fully managed by the scheduler.
func (r *Room) Autonomous() bool {
	return r.OwnerID == nil
}

// TotalPicks is the number of draft picks a full run of the room produces.
func (r *Room) TotalPicks() int {
	return r.Capacity * r.Settings.Roster.TotalSlots()
}
