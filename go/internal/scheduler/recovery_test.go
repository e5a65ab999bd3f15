package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rconti3535/LineupLabs-sub001/go/internal/models"
	"github.com/stretchr/testify/require"
)

func TestRecoverRebuildsPoolAndPickTimers(t *testing.T) {
	b1, b2, b3 := bot("bot-1"), bot("bot-2"), bot("bot-3")
	env := newTestEnv([]uuid.UUID{b1.ID, b2.ID, b3.ID}, newMemCatalog(itemsForDraft(12)...))
	ctx := context.Background()

	// One room mid-draft, one still forming with a stranded bot seat.
	activeID, _ := activeRoom(env, b1, b2)
	formingID := formingRoom(env, 4, nil)
	env.store.addSeat(formingID, b3, nil)

	require.NoError(t, env.sched.recover(ctx))

	// Busy set comes from ACTIVE memberships only: the bot stranded in the
	// forming room is acquirable again.
	require.Equal(t, 1, env.pool.FreeCount())
	got, ok := env.pool.Acquire()
	require.True(t, ok)
	require.Equal(t, b3.ID, got)

	require.True(t, env.sched.registry.Has(activeID, TimerPick))
	require.False(t, env.sched.registry.Has(formingID, TimerPick),
		"forming rooms are left to the supervisor")
	require.False(t, env.sched.registry.Has(activeID, TimerEnrollment))
}

func TestRecoverIncludesPausedRooms(t *testing.T) {
	// A room paused at crash time is still mid-draft: its bots stay
	// reserved and its recheck timer comes back, so an external resume
	// makes picks flow again without any extra signal.
	b1, b2 := bot("bot-1"), bot("bot-2")
	env := newTestEnv([]uuid.UUID{b1.ID, b2.ID}, newMemCatalog(itemsForDraft(12)...))
	roomID, _ := activeRoom(env, b1, b2)
	env.store.setStatus(roomID, models.RoomStatusPaused)
	ctx := context.Background()

	require.NoError(t, env.sched.recover(ctx))

	require.Equal(t, 0, env.pool.FreeCount(), "paused-room bots must not be acquirable")
	require.True(t, env.sched.registry.Has(roomID, TimerPick))

	// The recovered timer's tick lands in the paused recheck path.
	env.sched.pickTick(ctx, roomID, false)
	picks, err := env.store.ListRoomPicks(ctx, roomID)
	require.NoError(t, err)
	require.Empty(t, picks)
	require.True(t, env.sched.registry.Has(roomID, TimerPick))

	// Once resumed, the next tick drafts.
	env.store.setStatus(roomID, models.RoomStatusActive)
	env.sched.pickTick(ctx, roomID, false)
	picks, err = env.store.ListRoomPicks(ctx, roomID)
	require.NoError(t, err)
	require.Len(t, picks, 1)
}

func TestRecoverWithNothingPersisted(t *testing.T) {
	b1 := bot("bot-1")
	env := newTestEnv([]uuid.UUID{b1.ID}, newMemCatalog(itemsForDraft(12)...))

	require.NoError(t, env.sched.recover(context.Background()))
	require.Equal(t, 1, env.pool.FreeCount())
	require.Equal(t, 0, env.sched.registry.Len())
}

func TestCreateRoomFormsAutonomousPublicRoom(t *testing.T) {
	env := newTestEnv(nil, newMemCatalog(itemsForDraft(12)...))
	env.sched.cfg.AllowedCapacities = []int{8}
	ctx := context.Background()

	require.NoError(t, env.sched.createRoom(ctx))

	open, err := env.store.ListOpenPublicRooms(ctx)
	require.NoError(t, err)
	require.Len(t, open, 1)

	room := open[0].Room
	require.Equal(t, 8, room.Capacity)
	require.Equal(t, models.RoomVisibilityPublic, room.Visibility)
	require.Equal(t, models.RoomStatusForming, room.Status)
	require.True(t, room.Autonomous())
	want := env.clock.Now().Add(env.sched.cfg.StartOffset)
	require.WithinDuration(t, want, room.ScheduledStartAt, time.Second)
	require.True(t, room.Settings.Roster.Empty(),
		"the template is frozen at start, not at creation")
}
