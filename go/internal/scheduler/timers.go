package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// TimerKind names the per-room recurring event a timer drives.
type TimerKind string

const (
	TimerEnrollment TimerKind = "enrollment"
	TimerPick       TimerKind = "pick"
)

type timerKey struct {
	RoomID uuid.UUID
	Kind   TimerKind
}

// Registry owns every outstanding per-room timer, keyed by (room, kind).
// Arming a key atomically replaces any prior handle, so at most one timer
// per room per event type exists. That replacement is the principal
// race-avoidance mechanism of the whole scheduler. The registry is built
// once at startup and torn down by Shutdown; fired callbacks run on their
// own goroutine with panic recovery, so a failure in one room's callback
// can never touch another room's timer.
type Registry struct {
	clock clockwork.Clock

	mu     sync.Mutex
	timers map[timerKey]clockwork.Timer
}

// NewRegistry creates an empty timer registry on the given clock.
func NewRegistry(clock clockwork.Clock) *Registry {
	return &Registry{
		clock:  clock,
		timers: make(map[timerKey]clockwork.Timer),
	}
}

// Arm schedules fn to run after delay, replacing any timer already armed
// for (roomID, kind). The callback fires at most once; re-arming is the
// callback's own responsibility.
func (r *Registry) Arm(ctx context.Context, roomID uuid.UUID, kind TimerKind, delay time.Duration, fn func(context.Context)) {
	key := timerKey{RoomID: roomID, Kind: kind}
	timer := r.clock.NewTimer(delay)

	r.mu.Lock()
	if existing, ok := r.timers[key]; ok {
		stopAndDrainTimer(existing)
	}
	r.timers[key] = timer
	r.mu.Unlock()

	go func() {
		select {
		case <-timer.Chan():
			if !r.claim(key, timer) {
				// Replaced or disarmed between fire and claim; the newer
				// handle owns this key now.
				return
			}
			defer func() {
				if p := recover(); p != nil {
					log.Error().
						Interface("panic", p).
						Str("room_id", roomID.String()).
						Str("kind", string(kind)).
						Msg("timer callback panicked")
				}
			}()
			fn(ctx)
		case <-ctx.Done():
			r.drop(key, timer)
		}
	}()
}

// Disarm stops and removes the timer for (roomID, kind), if any.
func (r *Registry) Disarm(roomID uuid.UUID, kind TimerKind) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := timerKey{RoomID: roomID, Kind: kind}
	if timer, ok := r.timers[key]; ok {
		stopAndDrainTimer(timer)
		delete(r.timers, key)
	}
}

// Has reports whether a timer is outstanding for (roomID, kind).
func (r *Registry) Has(roomID uuid.UUID, kind TimerKind) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.timers[timerKey{RoomID: roomID, Kind: kind}]
	return ok
}

// Keys returns the room ids with an outstanding timer of the given kind.
func (r *Registry) Keys(kind TimerKind) []uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []uuid.UUID
	for key := range r.timers {
		if key.Kind == kind {
			out = append(out, key.RoomID)
		}
	}
	return out
}

// Len returns the number of outstanding timers across all rooms.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.timers)
}

// Shutdown stops every outstanding timer. In-flight callbacks are allowed
// to finish; their effects are at-least-once and harmless to replay.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key, timer := range r.timers {
		stopAndDrainTimer(timer)
		delete(r.timers, key)
	}
}

// claim removes the key if timer is still the registered handle. A false
// return means the timer was replaced after firing and its callback must
// not run.
func (r *Registry) claim(key timerKey, timer clockwork.Timer) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.timers[key]; ok && current == timer {
		delete(r.timers, key)
		return true
	}
	return false
}

// drop removes the key on context cancellation, but only if timer still
// owns it.
func (r *Registry) drop(key timerKey, timer clockwork.Timer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.timers[key]; ok && current == timer {
		stopAndDrainTimer(timer)
		delete(r.timers, key)
	}
}

// stopAndDrainTimer safely stops a timer and drains its channel, following
// the pattern recommended by the time.Timer.Stop documentation.
func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}
