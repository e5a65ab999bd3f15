package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rconti3535/LineupLabs-sub001/go/internal/events"
	"github.com/rconti3535/LineupLabs-sub001/go/internal/models"
	"github.com/stretchr/testify/require"
)

func TestSweepEnrollmentArmsOpenRooms(t *testing.T) {
	b1 := bot("bot-1")
	env := newTestEnv([]uuid.UUID{b1.ID}, newMemCatalog(itemsForDraft(12)...))
	openID := formingRoom(env, 4, nil)
	activeID, _ := activeRoom(env, bot("bot-2"), bot("bot-3"))
	ctx := context.Background()

	env.sched.sweepEnrollment(ctx)

	require.True(t, env.sched.registry.Has(openID, TimerEnrollment))
	require.False(t, env.sched.registry.Has(activeID, TimerEnrollment),
		"only open FORMING rooms get an enrollment timer")

	// A second sweep leaves the armed timer in place.
	env.sched.sweepEnrollment(ctx)
	require.ElementsMatch(t, []uuid.UUID{openID}, env.sched.registry.Keys(TimerEnrollment))
}

func TestSweepEnrollmentDisarmsStaleTimers(t *testing.T) {
	b1 := bot("bot-1")
	env := newTestEnv([]uuid.UUID{b1.ID}, newMemCatalog(itemsForDraft(12)...))
	roomID := formingRoom(env, 4, nil)
	ctx := context.Background()

	env.sched.sweepEnrollment(ctx)
	require.True(t, env.sched.registry.Has(roomID, TimerEnrollment))

	// The room starts elsewhere; the next sweep retires its timer.
	env.store.setStatus(roomID, models.RoomStatusStarting)
	env.sched.sweepEnrollment(ctx)
	require.False(t, env.sched.registry.Has(roomID, TimerEnrollment))
}

func TestSweepEnrollmentKeepsRecordedJoinClock(t *testing.T) {
	b1 := bot("bot-1")
	env := newTestEnv([]uuid.UUID{b1.ID}, newMemCatalog(itemsForDraft(12)...))
	roomID := formingRoom(env, 4, nil)
	ctx := context.Background()

	// A tick in flight has released its timer slot and recorded a join.
	// The sweep runs before the tick re-arms.
	joinedAt := env.clock.Now()
	env.sched.setLastJoin(roomID, joinedAt)
	env.clock.Advance(30 * time.Second)

	env.sched.sweepEnrollment(ctx)

	require.True(t, env.sched.registry.Has(roomID, TimerEnrollment))
	require.Equal(t, joinedAt, env.sched.lastJoinTime(roomID),
		"the sweep must not backdate over a recorded join")
}

func TestEnrollTickSeatsBot(t *testing.T) {
	b1 := bot("bot-1")
	env := newTestEnv([]uuid.UUID{b1.ID}, newMemCatalog(itemsForDraft(12)...))
	roomID := formingRoom(env, 4, nil)
	env.store.addSeat(roomID, human("alice"), nil)
	ctx := context.Background()

	env.sched.enrollTick(ctx, roomID)

	seats, err := env.store.ListRoomSeats(ctx, roomID)
	require.NoError(t, err)
	require.Len(t, seats, 2)
	require.Equal(t, 0, env.pool.FreeCount(), "the seated bot stays reserved")
	require.True(t, env.sched.registry.Has(roomID, TimerEnrollment),
		"a still-open room re-arms its join timer")

	var enrolled *events.EnrollmentChangedPayload
	for _, ev := range env.pub.events {
		if ev.Type == events.TypeEnrollmentChanged {
			p := ev.Payload.(events.EnrollmentChangedPayload)
			enrolled = &p
		}
	}
	require.NotNil(t, enrolled)
	require.Equal(t, b1.ID.String(), enrolled.ParticipantID)
	require.Equal(t, 2, enrolled.FilledSeats)
	require.Equal(t, 4, enrolled.Capacity)
}

func TestEnrollTickFillsPlaceholderSeat(t *testing.T) {
	b1 := bot("bot-1")
	env := newTestEnv([]uuid.UUID{b1.ID}, newMemCatalog(itemsForDraft(12)...))
	roomID := formingRoom(env, 2, nil)
	placeholderID := env.store.addSeat(roomID, nil, intPtr(2))
	ctx := context.Background()

	env.sched.enrollTick(ctx, roomID)

	seats, err := env.store.ListRoomSeats(ctx, roomID)
	require.NoError(t, err)
	require.Len(t, seats, 1, "the placeholder is filled, not duplicated")
	require.Equal(t, placeholderID, seats[0].Membership.ID)
	require.False(t, seats[0].Membership.Placeholder())
	require.Equal(t, b1.ID, seats[0].Membership.ParticipantID.UUID)
	require.NotNil(t, seats[0].Membership.Slot)
	require.Equal(t, 2, *seats[0].Membership.Slot, "a pre-assigned draft slot is inherited")
}

func TestEnrollTickLastSeatRetiresTimer(t *testing.T) {
	b1 := bot("bot-1")
	env := newTestEnv([]uuid.UUID{b1.ID}, newMemCatalog(itemsForDraft(12)...))
	roomID := formingRoom(env, 2, nil)
	env.store.addSeat(roomID, human("alice"), nil)
	ctx := context.Background()

	env.sched.enrollTick(ctx, roomID)

	seats, err := env.store.ListRoomSeats(ctx, roomID)
	require.NoError(t, err)
	require.Len(t, seats, 2)
	require.False(t, env.sched.registry.Has(roomID, TimerEnrollment),
		"a full room does not re-arm enrollment")
}

func TestEnrollTickPoolExhausted(t *testing.T) {
	env := newTestEnv(nil, newMemCatalog(itemsForDraft(12)...))
	roomID := formingRoom(env, 4, nil)
	ctx := context.Background()

	env.sched.enrollTick(ctx, roomID)

	seats, err := env.store.ListRoomSeats(ctx, roomID)
	require.NoError(t, err)
	require.Empty(t, seats)
	require.Equal(t, uint64(1), env.pool.ExhaustedCount())
	require.True(t, env.sched.registry.Has(roomID, TimerEnrollment),
		"exhaustion retries on the next interval")
	require.Empty(t, env.pub.typesFor(roomID))
}

func TestEnrollTickIneligibleRoomRetires(t *testing.T) {
	b1 := bot("bot-1")
	env := newTestEnv([]uuid.UUID{b1.ID}, newMemCatalog(itemsForDraft(12)...))
	roomID := formingRoom(env, 2, nil)
	env.store.setStatus(roomID, models.RoomStatusActive)
	ctx := context.Background()

	env.sched.enrollTick(ctx, roomID)

	seats, err := env.store.ListRoomSeats(ctx, roomID)
	require.NoError(t, err)
	require.Empty(t, seats)
	require.Equal(t, 1, env.pool.FreeCount(), "no bot is acquired for an ineligible room")
	require.False(t, env.sched.registry.Has(roomID, TimerEnrollment))
}
