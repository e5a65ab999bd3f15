package participants

import (
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Pool tracks which simulated participants are free versus reserved for a
// draft. Acquire never blocks and never hands out a reserved id; exhaustion
// is a counted, non-fatal condition. The busy set is authoritative only
// in-memory: on process start Reconcile rebuilds it from the memberships of
// mid-draft (ACTIVE or PAUSED) rooms, so a bot stranded in a FORMING room
// by a crash becomes acquirable again.
type Pool struct {
	mu        sync.Mutex
	ids       []uuid.UUID
	busy      map[uuid.UUID]bool
	rng       *rand.Rand
	exhausted atomic.Uint64
}

// NewPool creates a pool over the given simulated participant ids.
func NewPool(ids []uuid.UUID) *Pool {
	return &Pool{
		ids:  ids,
		busy: make(map[uuid.UUID]bool),
		rng:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Acquire reserves and returns a random free participant. The second return
// is false when every participant is busy.
func (p *Pool) Acquire() (uuid.UUID, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	free := make([]uuid.UUID, 0, len(p.ids))
	for _, id := range p.ids {
		if !p.busy[id] {
			free = append(free, id)
		}
	}
	if len(free) == 0 {
		p.exhausted.Add(1)
		return uuid.Nil, false
	}

	id := free[p.rng.Intn(len(free))]
	p.busy[id] = true
	return id, true
}

// Release returns a participant to the free set. Releasing an id that is
// already free, or one the pool does not manage, is a no-op.
func (p *Pool) Release(id uuid.UUID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.busy, id)
}

// MarkBusy reserves a specific participant. Idempotent; used when a room
// starts so seats filled by an external join API are accounted for too.
func (p *Pool) MarkBusy(id uuid.UUID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.busy[id] = true
}

// Reconcile replaces the busy set with the given ids. Ids the pool does not
// manage are ignored. Called once at boot, before any scheduler arms a
// timer, with the participants of every mid-draft room.
func (p *Pool) Reconcile(busyIDs []uuid.UUID) {
	p.mu.Lock()
	defer p.mu.Unlock()

	managed := make(map[uuid.UUID]bool, len(p.ids))
	for _, id := range p.ids {
		managed[id] = true
	}

	p.busy = make(map[uuid.UUID]bool, len(busyIDs))
	for _, id := range busyIDs {
		if managed[id] {
			p.busy[id] = true
		}
	}

	log.Info().
		Int("total", len(p.ids)).
		Int("busy", len(p.busy)).
		Msg("participant pool reconciled")
}

// FreeCount returns the number of currently acquirable participants.
func (p *Pool) FreeCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.ids) - len(p.busy)
}

// Size returns the number of participants the pool manages.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.ids)
}

// ExhaustedCount reports how many Acquire calls found no free participant.
func (p *Pool) ExhaustedCount() uint64 {
	return p.exhausted.Load()
}
