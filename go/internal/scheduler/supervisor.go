package scheduler

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rconti3535/LineupLabs-sub001/go/internal/events"
	"github.com/rconti3535/LineupLabs-sub001/go/internal/models"
	"github.com/rconti3535/LineupLabs-sub001/go/internal/rooms"
	"github.com/rs/zerolog/log"
)

// runSupervisor promotes full, time-eligible rooms to their draft on a
// fixed period. Start logic lives only here: enrollment and recovery never
// start a draft themselves, so the guarded FORMING -> STARTING claim is the
// single place a multi-writer race has to be tolerated.
func (s *Scheduler) runSupervisor(ctx context.Context) {
	defer s.wg.Done()

	log.Info().
		Str("instance", s.instanceID).
		Dur("sweep", s.cfg.SupervisorSweep).
		Msg("draft start supervisor started")

	ticker := s.clock.NewTicker(s.cfg.SupervisorSweep)
	defer ticker.Stop()

	s.sweepStarts(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("instance", s.instanceID).Msg("draft start supervisor stopped")
			return
		case <-ticker.Chan():
			s.sweepStarts(ctx)
		}
	}
}

func (s *Scheduler) sweepStarts(ctx context.Context) {
	// Finish any room a dead supervisor left mid-activation first.
	starting, err := s.rooms.ListStartingRooms(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to list starting rooms")
	} else {
		for _, room := range starting {
			s.activateRoom(ctx, &room)
		}
	}

	due, err := s.rooms.ListDueFormingRooms(ctx, s.clock.Now())
	if err != nil {
		log.Error().Err(err).Msg("failed to list due forming rooms; sweep retries on next tick")
		return
	}

	for _, rw := range due {
		switch {
		case rw.FilledSeats >= rw.Room.Capacity:
			s.startRoom(ctx, rw.Room)
		case rw.Room.Autonomous():
			s.deferRoom(ctx, rw.Room)
		default:
			// Owned rooms that are short stay untouched; the owning
			// workflow decides what happens to them.
			log.Debug().
				Str("room_id", rw.Room.ID.String()).
				Int("filled", rw.FilledSeats).
				Int("capacity", rw.Room.Capacity).
				Msg("owned room short of capacity; leaving to owner")
		}
	}
}

// startRoom claims the FORMING -> STARTING transition and, on success,
// finishes activation. The claim freezes the roster template; whatever the
// room drafts with is decided here, once, and never mutated afterwards.
func (s *Scheduler) startRoom(ctx context.Context, room models.Room) {
	settings := room.Settings
	if settings.Roster.Empty() {
		settings.Roster = s.template
	}

	claimed, err := s.rooms.ClaimRoomStart(ctx, room.ID, settings)
	if err != nil {
		if errors.Is(err, rooms.ErrRaceLost) {
			// Another actor already transitioned the room: goal achieved.
			log.Debug().Str("room_id", room.ID.String()).Msg("start claim lost race")
			return
		}
		log.Error().Err(err).Str("room_id", room.ID.String()).Msg("failed to claim room start")
		return
	}

	s.activateRoom(ctx, claimed)
}

// activateRoom completes a claimed start: assigns the draft-order
// permutation, reserves the bots, marks the room ACTIVE, and arms the first
// pick timer. Safe to re-run; every step tolerates having already happened.
func (s *Scheduler) activateRoom(ctx context.Context, room *models.Room) {
	seats, err := s.rooms.ListRoomSeats(ctx, room.ID)
	if err != nil {
		log.Error().Err(err).Str("room_id", room.ID.String()).Msg("failed to list seats for activation")
		return
	}

	taken := make(map[int]bool)
	var unassigned []rooms.Seat
	for _, seat := range seats {
		if seat.Membership.Slot != nil {
			taken[*seat.Membership.Slot] = true
		} else {
			unassigned = append(unassigned, seat)
		}
	}

	var free []int
	for slot := 1; slot <= room.Capacity; slot++ {
		if !taken[slot] {
			free = append(free, slot)
		}
	}

	if len(unassigned) > 0 {
		if len(free) < len(unassigned) {
			log.Error().
				Str("room_id", room.ID.String()).
				Int("unassigned", len(unassigned)).
				Int("free_slots", len(free)).
				Msg("seat count exceeds capacity; cannot assign draft order")
			return
		}

		s.shuffleInts(free)
		assignments := make(map[uuid.UUID]int, len(unassigned))
		for i, seat := range unassigned {
			assignments[seat.Membership.ID] = free[i]
		}

		if err := s.rooms.AssignDraftSlots(ctx, assignments); err != nil {
			log.Error().Err(err).Str("room_id", room.ID.String()).Msg("failed to assign draft slots; retrying next sweep")
			return
		}
	}

	for _, seat := range seats {
		if seat.Bot() {
			s.pool.MarkBusy(seat.Participant.ID)
		}
	}

	startedAt := s.clock.Now()
	if err := s.rooms.MarkRoomActive(ctx, room.ID, startedAt); err != nil {
		if errors.Is(err, rooms.ErrRaceLost) {
			log.Debug().Str("room_id", room.ID.String()).Msg("room already activated elsewhere")
		} else {
			log.Error().Err(err).Str("room_id", room.ID.String()).Msg("failed to mark room active; retrying next sweep")
			return
		}
	}

	log.Info().
		Str("room_id", room.ID.String()).
		Int("capacity", room.Capacity).
		Int("total_picks", room.Capacity*room.Settings.Roster.TotalSlots()).
		Msg("draft started")

	if err := s.publisher.Publish(ctx, room.ID, events.TypeRoomStatusChanged, events.RoomStatusChangedPayload{
		RoomID:    room.ID.String(),
		Status:    string(models.RoomStatusActive),
		ChangedAt: startedAt,
	}); err != nil {
		log.Error().Err(err).Str("room_id", room.ID.String()).Msg("failed to publish status change")
	}

	s.registry.Disarm(room.ID, TimerEnrollment)
	s.armPick(ctx, room.ID, s.pickDelay())
}

func (s *Scheduler) deferRoom(ctx context.Context, room models.Room) {
	until := s.clock.Now().Add(s.cfg.StartDeferral)
	if err := s.rooms.DeferRoomStart(ctx, room.ID, until); err != nil {
		if errors.Is(err, rooms.ErrRaceLost) {
			log.Debug().Str("room_id", room.ID.String()).Msg("room left FORMING before deferral")
			return
		}
		log.Error().Err(err).Str("room_id", room.ID.String()).Msg("failed to defer room start")
		return
	}

	log.Info().
		Str("room_id", room.ID.String()).
		Time("until", until).
		Msg("room short of capacity; start deferred")
}
