package scheduler

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// recover rebuilds in-memory state from durable storage. It runs exactly
// once, before any scheduler loop arms a timer: the pool's busy set comes
// from the memberships of mid-draft (ACTIVE or PAUSED) rooms, and every
// such room gets its pick timer back so an interrupted pick clock resumes
// instead of stalling. For a PAUSED room the timer lands in the engine's
// recheck path, which is what lets an external resume take effect with no
// extra signal. Overdue FORMING rooms are deliberately left alone; the
// supervisor sweep is the only code path that starts a draft.
func (s *Scheduler) recover(ctx context.Context) error {
	seats, err := s.rooms.ListRunningSeats(ctx)
	if err != nil {
		return fmt.Errorf("failed to list running seats: %w", err)
	}

	var busy []uuid.UUID
	for _, seat := range seats {
		if seat.Participant != nil {
			busy = append(busy, seat.Participant.ID)
		}
	}
	s.pool.Reconcile(busy)

	running, err := s.rooms.ListRunningRooms(ctx)
	if err != nil {
		return fmt.Errorf("failed to list running rooms: %w", err)
	}

	for _, room := range running {
		// Jittered restart so recovered rooms do not all pick at once.
		s.armPick(ctx, room.ID, s.pickDelay())
	}

	log.Info().
		Str("instance", s.instanceID).
		Int("running_rooms", len(running)).
		Int("busy_participants", len(busy)).
		Msg("recovered scheduler state")

	return nil
}
