package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rconti3535/LineupLabs-sub001/go/internal/events"
	"github.com/rconti3535/LineupLabs-sub001/go/internal/models"
	"github.com/rconti3535/LineupLabs-sub001/go/internal/rooms"
	"github.com/rs/zerolog/log"
)

// runEnrollmentSweep reconciles enrollment timers against the set of rooms
// that should have one. The sweep, not the individual timers, is the source
// of truth: it arms timers for eligible rooms missing one and disarms
// timers for rooms no longer eligible, which makes enrollment self-healing
// against any missed transition.
func (s *Scheduler) runEnrollmentSweep(ctx context.Context) {
	defer s.wg.Done()

	log.Info().
		Str("instance", s.instanceID).
		Dur("sweep", s.cfg.EnrollmentSweep).
		Msg("enrollment sweep started")

	ticker := s.clock.NewTicker(s.cfg.EnrollmentSweep)
	defer ticker.Stop()

	s.sweepEnrollment(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("instance", s.instanceID).Msg("enrollment sweep stopped")
			return
		case <-ticker.Chan():
			s.sweepEnrollment(ctx)
		}
	}
}

func (s *Scheduler) sweepEnrollment(ctx context.Context) {
	open, err := s.rooms.ListOpenPublicRooms(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to list open rooms; sweep retries on next tick")
		return
	}

	eligible := make(map[uuid.UUID]bool, len(open))
	for _, rw := range open {
		eligible[rw.Room.ID] = true
		if s.registry.Has(rw.Room.ID, TimerEnrollment) {
			continue
		}

		// First discovery: backdate the join clock by a random fraction of
		// the acceleration threshold so a batch of recovered rooms does
		// not fire in lockstep. Seed rather than set: the timer registry
		// releases a key before its callback runs, so an in-flight tick
		// for this room may have just recorded a real join.
		backdate := time.Duration(s.randFloat64() * float64(s.cfg.EnrollmentInterval.AccelThreshold))
		s.seedLastJoin(rw.Room.ID, s.clock.Now().Add(-backdate))
		s.armEnrollment(ctx, rw.Room.ID)

		log.Debug().
			Str("room_id", rw.Room.ID.String()).
			Int("filled", rw.FilledSeats).
			Int("capacity", rw.Room.Capacity).
			Dur("backdate", backdate).
			Msg("armed enrollment timer")
	}

	for _, roomID := range s.registry.Keys(TimerEnrollment) {
		if !eligible[roomID] {
			s.registry.Disarm(roomID, TimerEnrollment)
			s.clearLastJoin(roomID)
			log.Debug().Str("room_id", roomID.String()).Msg("disarmed stale enrollment timer")
		}
	}
}

// armEnrollment schedules the room's next join attempt. The elapsed time
// feeding the interval generator is measured from the last successful join,
// so unsuccessful attempts keep the acceleration clock running.
func (s *Scheduler) armEnrollment(ctx context.Context, roomID uuid.UUID) {
	elapsed := s.clock.Since(s.lastJoinTime(roomID))
	wait := s.nextWait(s.cfg.EnrollmentInterval, elapsed)
	s.registry.Arm(ctx, roomID, TimerEnrollment, wait, func(cbCtx context.Context) {
		s.enrollTick(cbCtx, roomID)
	})
}

func (s *Scheduler) enrollTick(ctx context.Context, roomID uuid.UUID) {
	room, err := s.rooms.GetRoom(ctx, roomID)
	if err != nil {
		if errors.Is(err, rooms.ErrRoomNotFound) {
			s.clearLastJoin(roomID)
			return
		}
		log.Error().Err(err).Str("room_id", roomID.String()).Msg("failed to load room for enrollment")
		s.armEnrollment(ctx, roomID)
		return
	}

	seats, err := s.rooms.ListRoomSeats(ctx, roomID)
	if err != nil {
		log.Error().Err(err).Str("room_id", roomID.String()).Msg("failed to list seats for enrollment")
		s.armEnrollment(ctx, roomID)
		return
	}

	filled := 0
	for _, seat := range seats {
		if !seat.Membership.Placeholder() {
			filled++
		}
	}

	if room.Status != models.RoomStatusForming ||
		room.Visibility != models.RoomVisibilityPublic ||
		filled >= room.Capacity {
		// No longer eligible; retire this room's timer. The sweep would
		// catch this too, a beat later.
		s.clearLastJoin(roomID)
		return
	}

	participantID, ok := s.pool.Acquire()
	if !ok {
		// Exhaustion is counted by the pool; the next interval is the
		// retry mechanism.
		log.Warn().Str("room_id", roomID.String()).Msg("participant pool exhausted")
		s.armEnrollment(ctx, roomID)
		return
	}

	membership, err := s.rooms.EnrollParticipant(ctx, rooms.EnrollParticipantRequest{
		MembershipID:  uuid.New(),
		RoomID:        roomID,
		ParticipantID: participantID,
	})
	if err != nil {
		s.pool.Release(participantID)
		log.Error().Err(err).Str("room_id", roomID.String()).Msg("failed to enroll participant")
		s.armEnrollment(ctx, roomID)
		return
	}

	for _, seat := range seats {
		if seat.Membership.ID == membership.ID {
			// The acquired bot was already seated here (possible right
			// after a restart, when FORMING-room bots return to the free
			// set). Keeping it reserved is correct; no seat changed.
			log.Debug().
				Str("room_id", roomID.String()).
				Str("participant_id", participantID.String()).
				Msg("participant already seated in room")
			s.armEnrollment(ctx, roomID)
			return
		}
	}

	now := s.clock.Now()
	s.setLastJoin(roomID, now)
	filled++

	log.Info().
		Str("room_id", roomID.String()).
		Str("participant_id", participantID.String()).
		Int("filled", filled).
		Int("capacity", room.Capacity).
		Msg("enrolled simulated participant")

	if err := s.publisher.Publish(ctx, roomID, events.TypeEnrollmentChanged, events.EnrollmentChangedPayload{
		RoomID:        roomID.String(),
		MembershipID:  membership.ID.String(),
		ParticipantID: participantID.String(),
		FilledSeats:   filled,
		Capacity:      room.Capacity,
		JoinedAt:      now,
	}); err != nil {
		log.Error().Err(err).Str("room_id", roomID.String()).Msg("failed to publish enrollment event")
	}

	if filled < room.Capacity {
		s.armEnrollment(ctx, roomID)
	} else {
		s.clearLastJoin(roomID)
	}
}
