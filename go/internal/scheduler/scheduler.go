package scheduler

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rconti3535/LineupLabs-sub001/go/internal/events"
	"github.com/rconti3535/LineupLabs-sub001/go/internal/models"
	"github.com/rconti3535/LineupLabs-sub001/go/internal/participants"
	"github.com/rconti3535/LineupLabs-sub001/go/internal/roster"
	"github.com/rs/zerolog/log"
)

// Scheduler runs the autonomous room lifecycle: forming rooms, enrolling
// simulated participants, promoting full rooms to their draft, and driving
// bot picks to completion. One logical instance runs per deployment; races
// against a second instance are tolerated through guarded status
// transitions and pick uniqueness, not prevented.
type Scheduler struct {
	cfg       Config
	clock     clockwork.Clock
	rooms     RoomStore
	picks     PickStore
	catalog   Catalog
	pool      *participants.Pool
	publisher events.Publisher
	registry  *Registry
	template  roster.Template

	instanceID string

	rngMu sync.Mutex
	rng   *rand.Rand

	// lastJoin tracks, per forming room, when the enrollment scheduler
	// last successfully seated a participant. Failed attempts leave it
	// untouched so they do not reset the acceleration clock.
	lastJoinMu sync.Mutex
	lastJoin   map[uuid.UUID]time.Time

	// inFlight prevents duplicate pick processing for one room when a
	// timer fire and an AdvanceDraft call overlap.
	inFlightMu sync.Mutex
	inFlight   map[uuid.UUID]bool

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a scheduler. The roster template is the one frozen into
// autonomous rooms at draft start; rooms created externally with their own
// template keep theirs.
func New(cfg Config, clock clockwork.Clock, roomStore RoomStore, pickStore PickStore, cat Catalog, pool *participants.Pool, publisher events.Publisher, template roster.Template) *Scheduler {
	return &Scheduler{
		cfg:        cfg,
		clock:      clock,
		rooms:      roomStore,
		picks:      pickStore,
		catalog:    cat,
		pool:       pool,
		publisher:  publisher,
		registry:   NewRegistry(clock),
		template:   template,
		instanceID: uuid.New().String()[:8],
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		lastJoin:   make(map[uuid.UUID]time.Time),
		inFlight:   make(map[uuid.UUID]bool),
	}
}

// StartEngine recovers persisted state and launches the scheduler loops.
// Idempotent: starting a running scheduler is a logged no-op.
func (s *Scheduler) StartEngine(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		log.Warn().Str("instance", s.instanceID).Msg("scheduler already running")
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.running = true
	s.cancel = cancel
	s.mu.Unlock()

	// Recovery runs to completion before any loop arms a timer.
	if err := s.recover(runCtx); err != nil {
		cancel()
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		return fmt.Errorf("recovery failed: %w", err)
	}

	if s.cfg.FormationEnabled {
		s.wg.Add(1)
		go s.runFormation(runCtx)
	} else {
		log.Info().Str("instance", s.instanceID).Msg("room formation disabled")
	}

	s.wg.Add(1)
	go s.runEnrollmentSweep(runCtx)

	s.wg.Add(1)
	go s.runSupervisor(runCtx)

	log.Info().Str("instance", s.instanceID).Msg("scheduler started")
	return nil
}

// StopEngine clears every outstanding timer and waits for the loops to
// drain. In-flight persistence writes complete or fail on their own;
// replayed effects are harmless to reject. Idempotent.
func (s *Scheduler) StopEngine() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	s.mu.Unlock()

	cancel()
	s.registry.Shutdown()
	s.wg.Wait()

	log.Info().Str("instance", s.instanceID).Msg("scheduler stopped")
}

// AdvanceDraft forces the current turn's auto-pick for a room, on behalf of
// an external pick-timeout collaborator. No-op when the room is not ACTIVE
// or the current turn's pick is already in flight.
func (s *Scheduler) AdvanceDraft(ctx context.Context, roomID uuid.UUID) error {
	room, err := s.rooms.GetRoom(ctx, roomID)
	if err != nil {
		return fmt.Errorf("failed to load room: %w", err)
	}
	if room.Status != models.RoomStatusActive {
		log.Debug().
			Str("room_id", roomID.String()).
			Str("status", string(room.Status)).
			Msg("advance requested for non-active room; ignoring")
		return nil
	}

	s.pickTick(ctx, roomID, true)
	return nil
}

// Stats is a point-in-time snapshot for the health endpoint.
type Stats struct {
	Running       bool   `json:"running"`
	ActiveTimers  int    `json:"active_timers"`
	PoolSize      int    `json:"pool_size"`
	PoolFree      int    `json:"pool_free"`
	PoolExhausted uint64 `json:"pool_exhausted"`
}

// SnapshotStats reports scheduler and pool counters.
func (s *Scheduler) SnapshotStats() Stats {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()

	return Stats{
		Running:       running,
		ActiveTimers:  s.registry.Len(),
		PoolSize:      s.pool.Size(),
		PoolFree:      s.pool.FreeCount(),
		PoolExhausted: s.pool.ExhaustedCount(),
	}
}

func (s *Scheduler) nextWait(cfg IntervalConfig, elapsed time.Duration) time.Duration {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return NextWait(cfg, elapsed, s.rng)
}

func (s *Scheduler) randIntn(n int) int {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return s.rng.Intn(n)
}

func (s *Scheduler) randFloat64() float64 {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return s.rng.Float64()
}

func (s *Scheduler) shuffleInts(vals []int) {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	s.rng.Shuffle(len(vals), func(i, j int) {
		vals[i], vals[j] = vals[j], vals[i]
	})
}

func (s *Scheduler) setLastJoin(roomID uuid.UUID, t time.Time) {
	s.lastJoinMu.Lock()
	defer s.lastJoinMu.Unlock()
	s.lastJoin[roomID] = t
}

// seedLastJoin records a join time only when the room has none yet. The
// enrollment sweep uses it so a concurrent tick that just recorded a real
// join is not overwritten with a synthetic backdate.
func (s *Scheduler) seedLastJoin(roomID uuid.UUID, t time.Time) {
	s.lastJoinMu.Lock()
	defer s.lastJoinMu.Unlock()
	if _, ok := s.lastJoin[roomID]; !ok {
		s.lastJoin[roomID] = t
	}
}

func (s *Scheduler) lastJoinTime(roomID uuid.UUID) time.Time {
	s.lastJoinMu.Lock()
	defer s.lastJoinMu.Unlock()
	if t, ok := s.lastJoin[roomID]; ok {
		return t
	}
	return s.clock.Now()
}

func (s *Scheduler) clearLastJoin(roomID uuid.UUID) {
	s.lastJoinMu.Lock()
	defer s.lastJoinMu.Unlock()
	delete(s.lastJoin, roomID)
}

// beginPick marks a room's pick as in flight. A false return means another
// goroutine is already processing this room.
func (s *Scheduler) beginPick(roomID uuid.UUID) bool {
	s.inFlightMu.Lock()
	defer s.inFlightMu.Unlock()
	if s.inFlight[roomID] {
		return false
	}
	s.inFlight[roomID] = true
	return true
}

func (s *Scheduler) endPick(roomID uuid.UUID) {
	s.inFlightMu.Lock()
	defer s.inFlightMu.Unlock()
	delete(s.inFlight, roomID)
}
