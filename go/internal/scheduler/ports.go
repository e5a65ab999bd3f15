package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rconti3535/LineupLabs-sub001/go/internal/models"
	"github.com/rconti3535/LineupLabs-sub001/go/internal/picks"
	"github.com/rconti3535/LineupLabs-sub001/go/internal/rooms"
)

// RoomStore defines what the scheduler needs from room and membership
// persistence. Implemented by rooms.Repository.
type RoomStore interface {
	CreateRoom(ctx context.Context, req rooms.CreateRoomRequest) (*models.Room, error)
	GetRoom(ctx context.Context, id uuid.UUID) (*models.Room, error)
	ListOpenPublicRooms(ctx context.Context) ([]rooms.RoomWithSeats, error)
	ListDueFormingRooms(ctx context.Context, now time.Time) ([]rooms.RoomWithSeats, error)
	ListStartingRooms(ctx context.Context) ([]models.Room, error)
	ListRunningRooms(ctx context.Context) ([]models.Room, error)
	ClaimRoomStart(ctx context.Context, id uuid.UUID, settings models.RoomSettings) (*models.Room, error)
	MarkRoomActive(ctx context.Context, id uuid.UUID, startedAt time.Time) error
	DeferRoomStart(ctx context.Context, id uuid.UUID, until time.Time) error
	CompleteRoom(ctx context.Context, id uuid.UUID, completedAt time.Time) error
	EnrollParticipant(ctx context.Context, req rooms.EnrollParticipantRequest) (*models.Membership, error)
	ListRoomSeats(ctx context.Context, roomID uuid.UUID) ([]rooms.Seat, error)
	ListRunningSeats(ctx context.Context) ([]rooms.Seat, error)
	AssignDraftSlots(ctx context.Context, assignments map[uuid.UUID]int) error
}

// PickStore defines what the draft engine needs from pick persistence.
// Implemented by picks.Repository.
type PickStore interface {
	CreatePick(ctx context.Context, req picks.CreatePickRequest) (*models.DraftPick, error)
	CountPicks(ctx context.Context, roomID uuid.UUID) (int, error)
	ListRoomPicks(ctx context.Context, roomID uuid.UUID) ([]models.DraftPick, error)
}

// Catalog defines the read-only view of the item catalog. Implemented by
// catalog.Repository.
type Catalog interface {
	RankedCandidates(ctx context.Context, excludeIDs []uuid.UUID, positions []string, limit int32) ([]models.Item, error)
	GetItems(ctx context.Context, ids []uuid.UUID) ([]models.Item, error)
}
