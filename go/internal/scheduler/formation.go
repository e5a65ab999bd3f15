package scheduler

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rconti3535/LineupLabs-sub001/go/internal/models"
	"github.com/rconti3535/LineupLabs-sub001/go/internal/rooms"
	"github.com/rs/zerolog/log"
)

// runFormation creates new public rooms at the global formation pace. Each
// wait is recomputed from elapsed-since-last-successful-creation, so a run
// of failures accelerates the next attempts rather than stalling the pace.
// A failed insert never stops the loop.
func (s *Scheduler) runFormation(ctx context.Context) {
	defer s.wg.Done()

	log.Info().
		Str("instance", s.instanceID).
		Float64("rate", s.cfg.FormationInterval.Rate).
		Ints("capacities", s.cfg.AllowedCapacities).
		Msg("room formation loop started")

	lastCreated := s.clock.Now()
	timer := s.clock.NewTimer(s.nextWait(s.cfg.FormationInterval, 0))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("instance", s.instanceID).Msg("room formation loop stopped")
			return
		case <-timer.Chan():
		}

		if err := s.createRoom(ctx); err != nil {
			log.Error().Err(err).Msg("room creation failed; retrying on next interval")
		} else {
			lastCreated = s.clock.Now()
		}

		timer.Reset(s.nextWait(s.cfg.FormationInterval, s.clock.Since(lastCreated)))
	}
}

func (s *Scheduler) createRoom(ctx context.Context) error {
	capacity := s.cfg.AllowedCapacities[s.randIntn(len(s.cfg.AllowedCapacities))]
	req := rooms.CreateRoomRequest{
		ID:               uuid.New(),
		Capacity:         capacity,
		Visibility:       models.RoomVisibilityPublic,
		ScheduledStartAt: s.clock.Now().Add(s.cfg.StartOffset),
	}

	room, err := s.rooms.CreateRoom(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to create room: %w", err)
	}

	log.Info().
		Str("room_id", room.ID.String()).
		Int("capacity", room.Capacity).
		Time("scheduled_start_at", room.ScheduledStartAt).
		Msg("formed new room")

	return nil
}
