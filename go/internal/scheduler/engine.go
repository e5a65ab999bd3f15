package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rconti3535/LineupLabs-sub001/go/internal/events"
	"github.com/rconti3535/LineupLabs-sub001/go/internal/models"
	"github.com/rconti3535/LineupLabs-sub001/go/internal/picks"
	"github.com/rconti3535/LineupLabs-sub001/go/internal/rooms"
	"github.com/rs/zerolog/log"
)

// ActingIndex returns the 0-based index into the slot-ordered memberships
// of the seat on the clock for the given overall pick, using snake order:
// odd rounds run 1..n, even rounds run n..1.
func ActingIndex(overall, n int) int {
	round := (overall-1)/n + 1
	posInRound := (overall-1)%n + 1
	if round%2 == 1 {
		return posInRound - 1
	}
	return n - posInRound
}

// armPick schedules the room's next pick attempt.
func (s *Scheduler) armPick(ctx context.Context, roomID uuid.UUID, delay time.Duration) {
	s.registry.Arm(ctx, roomID, TimerPick, delay, func(cbCtx context.Context) {
		s.pickTick(cbCtx, roomID, false)
	})
}

// pickDelay returns a uniform integer delay in the configured range. Picks
// are deliberately not exponential: they should look human-paced, and the
// integer jitter keeps concurrent rooms desynchronized.
func (s *Scheduler) pickDelay() time.Duration {
	span := s.cfg.PickDelayMaxSec - s.cfg.PickDelayMinSec + 1
	if span < 1 {
		span = 1
	}
	return time.Duration(s.cfg.PickDelayMinSec+s.randIntn(span)) * time.Second
}

// pickTick runs one turn of a room's draft. With force set (AdvanceDraft),
// the current turn is auto-picked even if it belongs to a human.
func (s *Scheduler) pickTick(ctx context.Context, roomID uuid.UUID, force bool) {
	if !s.beginPick(roomID) {
		log.Debug().Str("room_id", roomID.String()).Msg("pick already in flight; skipping")
		return
	}
	defer s.endPick(roomID)

	room, err := s.rooms.GetRoom(ctx, roomID)
	if err != nil {
		log.Error().Err(err).Str("room_id", roomID.String()).Msg("failed to load room for pick")
		s.armPick(ctx, roomID, s.cfg.HumanRecheck)
		return
	}

	switch room.Status {
	case models.RoomStatusActive:
		// On the clock.
	case models.RoomStatusPaused:
		s.armPick(ctx, roomID, s.cfg.HumanRecheck)
		return
	default:
		// Completed, or not actually started; this timer retires itself.
		log.Debug().
			Str("room_id", roomID.String()).
			Str("status", string(room.Status)).
			Msg("pick timer fired for non-running room")
		return
	}

	seats, err := s.rooms.ListRoomSeats(ctx, roomID)
	if err != nil {
		log.Error().Err(err).Str("room_id", roomID.String()).Msg("failed to list seats for pick")
		s.armPick(ctx, roomID, s.cfg.HumanRecheck)
		return
	}

	roomPicks, err := s.picks.ListRoomPicks(ctx, roomID)
	if err != nil {
		log.Error().Err(err).Str("room_id", roomID.String()).Msg("failed to list picks")
		s.armPick(ctx, roomID, s.cfg.HumanRecheck)
		return
	}

	total := room.TotalPicks()
	made := len(roomPicks)
	if made >= total {
		s.completeRoom(ctx, room, seats, made, false)
		return
	}

	n := room.Capacity
	ordered := make([]rooms.Seat, 0, n)
	for _, seat := range seats {
		if seat.Membership.Slot != nil {
			ordered = append(ordered, seat)
		}
	}
	if len(ordered) < n {
		log.Error().
			Str("room_id", roomID.String()).
			Int("with_slot", len(ordered)).
			Int("capacity", n).
			Msg("active room missing draft slots; rechecking")
		s.armPick(ctx, roomID, s.cfg.HumanRecheck)
		return
	}

	overall := made + 1
	round := (overall-1)/n + 1
	posInRound := (overall-1)%n + 1
	actor := ordered[ActingIndex(overall, n)]

	if !force && !actor.Bot() {
		// A human (or externally owned seat) is on the clock. The
		// external pick-timeout collaborator forces stalled turns through
		// AdvanceDraft; the engine only rechecks.
		s.armPick(ctx, roomID, s.cfg.HumanRecheck)
		return
	}

	excluded := make([]uuid.UUID, len(roomPicks))
	for i, p := range roomPicks {
		excluded[i] = p.ItemID
	}

	// Catalog shortfall force-completes the room rather than letting it
	// stall forever.
	remaining := total - made
	available, err := s.catalog.RankedCandidates(ctx, excluded, nil, int32(remaining))
	if err != nil {
		log.Error().Err(err).Str("room_id", roomID.String()).Msg("failed to query catalog")
		s.armPick(ctx, roomID, s.cfg.HumanRecheck)
		return
	}
	if len(available) < remaining {
		log.Warn().
			Str("room_id", roomID.String()).
			Int("remaining_picks", remaining).
			Int("remaining_items", len(available)).
			Msg("item catalog exhausted; force-completing room")
		s.completeRoom(ctx, room, seats, made, true)
		return
	}

	item, err := s.selectItem(ctx, room, actor, roomPicks, excluded, available[0])
	if err != nil {
		log.Error().Err(err).Str("room_id", roomID.String()).Msg("auto-pick selection failed")
		s.armPick(ctx, roomID, s.cfg.HumanRecheck)
		return
	}

	now := s.clock.Now()
	pick, err := s.picks.CreatePick(ctx, picks.CreatePickRequest{
		ID:           uuid.New(),
		RoomID:       roomID,
		MembershipID: actor.Membership.ID,
		ItemID:       item.ID,
		Round:        round,
		Pick:         posInRound,
		OverallPick:  overall,
		PickedAt:     now,
	})
	if err != nil {
		if errors.Is(err, picks.ErrDuplicatePick) {
			// Another engine instance made this pick first. Not an error:
			// the sequence advanced, so just line up for the next turn.
			log.Debug().
				Str("room_id", roomID.String()).
				Int("overall", overall).
				Msg("pick already recorded elsewhere; rescheduling")
			s.armPick(ctx, roomID, s.pickDelay())
			return
		}
		log.Error().Err(err).Str("room_id", roomID.String()).Msg("failed to record pick")
		s.armPick(ctx, roomID, s.cfg.HumanRecheck)
		return
	}

	log.Info().
		Str("room_id", roomID.String()).
		Str("item_id", item.ID.String()).
		Str("item", item.Name).
		Int("round", round).
		Int("overall", overall).
		Msg("auto-pick recorded")

	if err := s.publisher.Publish(ctx, roomID, events.TypePickMade, events.PickMadePayload{
		PickID:       pick.ID.String(),
		RoomID:       roomID.String(),
		MembershipID: actor.Membership.ID.String(),
		ItemID:       item.ID.String(),
		Round:        round,
		Pick:         posInRound,
		OverallPick:  overall,
		MadeAt:       now,
	}); err != nil {
		log.Error().Err(err).Str("room_id", roomID.String()).Msg("failed to publish pick event")
	}

	if overall >= total {
		s.completeRoom(ctx, room, seats, overall, false)
		return
	}

	s.armPick(ctx, roomID, s.pickDelay())
}

// selectItem picks for a simulated participant in priority order: the best
// item filling a structurally open slot in the actor's frozen roster
// template, then the best item in any position the actor still has
// capacity for, then the best remaining item overall.
func (s *Scheduler) selectItem(ctx context.Context, room *models.Room, actor rooms.Seat, roomPicks []models.DraftPick, excluded []uuid.UUID, fallback models.Item) (models.Item, error) {
	var heldIDs []uuid.UUID
	for _, p := range roomPicks {
		if p.MembershipID == actor.Membership.ID {
			heldIDs = append(heldIDs, p.ItemID)
		}
	}

	held := make([][]string, 0, len(heldIDs))
	if len(heldIDs) > 0 {
		heldItems, err := s.catalog.GetItems(ctx, heldIDs)
		if err != nil {
			return models.Item{}, err
		}
		for _, item := range heldItems {
			held = append(held, item.Positions)
		}
	}

	tmpl := room.Settings.Roster
	if open := tmpl.OpenSlotPositions(held); len(open) > 0 {
		cands, err := s.catalog.RankedCandidates(ctx, excluded, open, 1)
		if err != nil {
			return models.Item{}, err
		}
		if len(cands) > 0 {
			return cands[0], nil
		}
	}

	if open := tmpl.OpenCapacityPositions(held); len(open) > 0 {
		cands, err := s.catalog.RankedCandidates(ctx, excluded, open, 1)
		if err != nil {
			return models.Item{}, err
		}
		if len(cands) > 0 {
			return cands[0], nil
		}
	}

	return fallback, nil
}

// completeRoom finishes a draft: records completion, frees the room's bot
// participants, retires the room's timers, and announces the result.
func (s *Scheduler) completeRoom(ctx context.Context, room *models.Room, seats []rooms.Seat, totalPicks int, forced bool) {
	completedAt := s.clock.Now()
	if err := s.rooms.CompleteRoom(ctx, room.ID, completedAt); err != nil {
		if errors.Is(err, rooms.ErrRaceLost) {
			log.Debug().Str("room_id", room.ID.String()).Msg("room already completed elsewhere")
		} else {
			log.Error().Err(err).Str("room_id", room.ID.String()).Msg("failed to complete room; rechecking")
			s.armPick(ctx, room.ID, s.cfg.HumanRecheck)
			return
		}
	}

	for _, seat := range seats {
		if seat.Bot() {
			s.pool.Release(seat.Participant.ID)
		}
	}

	s.registry.Disarm(room.ID, TimerPick)
	s.registry.Disarm(room.ID, TimerEnrollment)

	log.Info().
		Str("room_id", room.ID.String()).
		Int("total_picks", totalPicks).
		Bool("forced", forced).
		Msg("draft completed")

	if err := s.publisher.Publish(ctx, room.ID, events.TypeRoomStatusChanged, events.RoomStatusChangedPayload{
		RoomID:    room.ID.String(),
		Status:    string(models.RoomStatusCompleted),
		ChangedAt: completedAt,
	}); err != nil {
		log.Error().Err(err).Str("room_id", room.ID.String()).Msg("failed to publish status change")
	}
	if err := s.publisher.Publish(ctx, room.ID, events.TypeRoomCompleted, events.RoomCompletedPayload{
		RoomID:      room.ID.String(),
		CompletedAt: completedAt,
		TotalPicks:  totalPicks,
		Forced:      forced,
	}); err != nil {
		log.Error().Err(err).Str("room_id", room.ID.String()).Msg("failed to publish completion event")
	}
}
