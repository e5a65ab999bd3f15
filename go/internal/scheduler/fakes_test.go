package scheduler

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rconti3535/LineupLabs-sub001/go/internal/models"
	"github.com/rconti3535/LineupLabs-sub001/go/internal/participants"
	"github.com/rconti3535/LineupLabs-sub001/go/internal/picks"
	"github.com/rconti3535/LineupLabs-sub001/go/internal/rooms"
	"github.com/rconti3535/LineupLabs-sub001/go/internal/roster"
)

// memStore is an in-memory RoomStore + PickStore with the same guarded
// transition and uniqueness semantics as the pgx repositories.
type memStore struct {
	mu        sync.Mutex
	roomsByID map[uuid.UUID]*models.Room
	seats     map[uuid.UUID][]rooms.Seat
	picksByRm map[uuid.UUID][]models.DraftPick

	// beforeClaim, when set, runs at the top of ClaimRoomStart; tests use
	// it to simulate a concurrent actor winning the transition.
	beforeClaim func(roomID uuid.UUID)

	// duplicateNextPick makes the next CreatePick fail as a duplicate.
	duplicateNextPick bool
}

func newMemStore() *memStore {
	return &memStore{
		roomsByID: make(map[uuid.UUID]*models.Room),
		seats:     make(map[uuid.UUID][]rooms.Seat),
		picksByRm: make(map[uuid.UUID][]models.DraftPick),
	}
}

func (m *memStore) addRoom(room models.Room) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := room
	m.roomsByID[room.ID] = &r
}

func (m *memStore) addSeat(roomID uuid.UUID, p *models.Participant, slot *int) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()

	seat := rooms.Seat{
		Membership: models.Membership{
			ID:        uuid.New(),
			RoomID:    roomID,
			Slot:      slot,
			CreatedAt: time.Now(),
		},
		Participant: p,
	}
	if p != nil {
		seat.Membership.ParticipantID = uuid.NullUUID{UUID: p.ID, Valid: true}
	}
	m.seats[roomID] = append(m.seats[roomID], seat)
	return seat.Membership.ID
}

func (m *memStore) roomStatus(roomID uuid.UUID) models.RoomStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.roomsByID[roomID].Status
}

func (m *memStore) setStatus(roomID uuid.UUID, status models.RoomStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.roomsByID[roomID].Status = status
}

func (m *memStore) CreateRoom(ctx context.Context, req rooms.CreateRoomRequest) (*models.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.roomsByID[req.ID]; ok {
		r := *existing
		return &r, nil
	}
	room := models.Room{
		ID:               req.ID,
		Capacity:         req.Capacity,
		Visibility:       req.Visibility,
		Status:           models.RoomStatusForming,
		ScheduledStartAt: req.ScheduledStartAt,
		OwnerID:          req.OwnerID,
		CreatedAt:        time.Now(),
	}
	m.roomsByID[req.ID] = &room
	r := room
	return &r, nil
}

func (m *memStore) GetRoom(ctx context.Context, id uuid.UUID) (*models.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, ok := m.roomsByID[id]
	if !ok {
		return nil, rooms.ErrRoomNotFound
	}
	r := *room
	return &r, nil
}

func (m *memStore) filledLocked(roomID uuid.UUID) int {
	n := 0
	for _, seat := range m.seats[roomID] {
		if !seat.Membership.Placeholder() {
			n++
		}
	}
	return n
}

func (m *memStore) ListOpenPublicRooms(ctx context.Context) ([]rooms.RoomWithSeats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []rooms.RoomWithSeats
	for id, room := range m.roomsByID {
		filled := m.filledLocked(id)
		if room.Visibility == models.RoomVisibilityPublic &&
			room.Status == models.RoomStatusForming &&
			filled < room.Capacity {
			out = append(out, rooms.RoomWithSeats{Room: *room, FilledSeats: filled})
		}
	}
	return out, nil
}

func (m *memStore) ListDueFormingRooms(ctx context.Context, now time.Time) ([]rooms.RoomWithSeats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []rooms.RoomWithSeats
	for id, room := range m.roomsByID {
		if room.Status == models.RoomStatusForming && !room.ScheduledStartAt.After(now) {
			out = append(out, rooms.RoomWithSeats{Room: *room, FilledSeats: m.filledLocked(id)})
		}
	}
	return out, nil
}

func (m *memStore) ListStartingRooms(ctx context.Context) ([]models.Room, error) {
	return m.listByStatus(models.RoomStatusStarting), nil
}

func (m *memStore) ListRunningRooms(ctx context.Context) ([]models.Room, error) {
	return m.listByStatus(models.RoomStatusActive, models.RoomStatusPaused), nil
}

func (m *memStore) listByStatus(statuses ...models.RoomStatus) []models.Room {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.Room
	for _, room := range m.roomsByID {
		for _, status := range statuses {
			if room.Status == status {
				out = append(out, *room)
				break
			}
		}
	}
	return out
}

func (m *memStore) ClaimRoomStart(ctx context.Context, id uuid.UUID, settings models.RoomSettings) (*models.Room, error) {
	if m.beforeClaim != nil {
		m.beforeClaim(id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	room, ok := m.roomsByID[id]
	if !ok || room.Status != models.RoomStatusForming {
		return nil, rooms.ErrRaceLost
	}
	room.Status = models.RoomStatusStarting
	room.Settings = settings
	r := *room
	return &r, nil
}

func (m *memStore) MarkRoomActive(ctx context.Context, id uuid.UUID, startedAt time.Time) error {
	return m.transition(id, models.RoomStatusStarting, models.RoomStatusActive)
}

func (m *memStore) DeferRoomStart(ctx context.Context, id uuid.UUID, until time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, ok := m.roomsByID[id]
	if !ok || room.Status != models.RoomStatusForming {
		return rooms.ErrRaceLost
	}
	room.ScheduledStartAt = until
	return nil
}

func (m *memStore) CompleteRoom(ctx context.Context, id uuid.UUID, completedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, ok := m.roomsByID[id]
	if !ok || (room.Status != models.RoomStatusActive && room.Status != models.RoomStatusPaused) {
		return rooms.ErrRaceLost
	}
	room.Status = models.RoomStatusCompleted
	room.CompletedAt = &completedAt
	return nil
}

func (m *memStore) transition(id uuid.UUID, from, to models.RoomStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, ok := m.roomsByID[id]
	if !ok || room.Status != from {
		return rooms.ErrRaceLost
	}
	room.Status = to
	return nil
}

func (m *memStore) EnrollParticipant(ctx context.Context, req rooms.EnrollParticipantRequest) (*models.Membership, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	seats := m.seats[req.RoomID]
	for i := range seats {
		if seats[i].Membership.ParticipantID.Valid && seats[i].Membership.ParticipantID.UUID == req.ParticipantID {
			mem := seats[i].Membership
			return &mem, nil
		}
	}
	for i := range seats {
		if seats[i].Membership.Placeholder() {
			seats[i].Membership.ParticipantID = uuid.NullUUID{UUID: req.ParticipantID, Valid: true}
			seats[i].Participant = &models.Participant{ID: req.ParticipantID, Bot: true}
			mem := seats[i].Membership
			return &mem, nil
		}
	}

	seat := rooms.Seat{
		Membership: models.Membership{
			ID:            req.MembershipID,
			RoomID:        req.RoomID,
			ParticipantID: uuid.NullUUID{UUID: req.ParticipantID, Valid: true},
			CreatedAt:     time.Now(),
		},
		Participant: &models.Participant{ID: req.ParticipantID, Bot: true},
	}
	m.seats[req.RoomID] = append(m.seats[req.RoomID], seat)
	mem := seat.Membership
	return &mem, nil
}

func (m *memStore) ListRoomSeats(ctx context.Context, roomID uuid.UUID) ([]rooms.Seat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := append([]rooms.Seat(nil), m.seats[roomID]...)
	sort.SliceStable(out, func(i, j int) bool {
		si, sj := out[i].Membership.Slot, out[j].Membership.Slot
		switch {
		case si != nil && sj != nil:
			return *si < *sj
		case si != nil:
			return true
		default:
			return false
		}
	})
	return out, nil
}

func (m *memStore) ListRunningSeats(ctx context.Context) ([]rooms.Seat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []rooms.Seat
	for roomID, seats := range m.seats {
		if room, ok := m.roomsByID[roomID]; ok &&
			(room.Status == models.RoomStatusActive || room.Status == models.RoomStatusPaused) {
			out = append(out, seats...)
		}
	}
	return out, nil
}

func (m *memStore) AssignDraftSlots(ctx context.Context, assignments map[uuid.UUID]int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for roomID := range m.seats {
		seats := m.seats[roomID]
		for i := range seats {
			slot, ok := assignments[seats[i].Membership.ID]
			if !ok {
				continue
			}
			if seats[i].Membership.Slot != nil {
				return rooms.ErrRaceLost
			}
			v := slot
			seats[i].Membership.Slot = &v
		}
	}
	return nil
}

func (m *memStore) CreatePick(ctx context.Context, req picks.CreatePickRequest) (*models.DraftPick, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.duplicateNextPick {
		m.duplicateNextPick = false
		return nil, picks.ErrDuplicatePick
	}
	for _, p := range m.picksByRm[req.RoomID] {
		if p.OverallPick == req.OverallPick || p.ItemID == req.ItemID {
			return nil, picks.ErrDuplicatePick
		}
	}

	pick := models.DraftPick{
		ID:           req.ID,
		RoomID:       req.RoomID,
		MembershipID: req.MembershipID,
		ItemID:       req.ItemID,
		Round:        req.Round,
		Pick:         req.Pick,
		OverallPick:  req.OverallPick,
		PickedAt:     req.PickedAt,
	}
	m.picksByRm[req.RoomID] = append(m.picksByRm[req.RoomID], pick)
	p := pick
	return &p, nil
}

func (m *memStore) CountPicks(ctx context.Context, roomID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.picksByRm[roomID]), nil
}

func (m *memStore) ListRoomPicks(ctx context.Context, roomID uuid.UUID) ([]models.DraftPick, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := append([]models.DraftPick(nil), m.picksByRm[roomID]...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].OverallPick < out[j].OverallPick })
	return out, nil
}

// memCatalog is an in-memory rank-ordered item catalog.
type memCatalog struct {
	items []models.Item // sorted by rank
}

func newMemCatalog(items ...models.Item) *memCatalog {
	sorted := append([]models.Item(nil), items...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Rank < sorted[j].Rank })
	return &memCatalog{items: sorted}
}

func (c *memCatalog) RankedCandidates(ctx context.Context, excludeIDs []uuid.UUID, positions []string, limit int32) ([]models.Item, error) {
	excluded := make(map[uuid.UUID]bool, len(excludeIDs))
	for _, id := range excludeIDs {
		excluded[id] = true
	}

	var out []models.Item
	for _, item := range c.items {
		if excluded[item.ID] {
			continue
		}
		if len(positions) > 0 && !overlaps(item.Positions, positions) {
			continue
		}
		out = append(out, item)
		if int32(len(out)) >= limit {
			break
		}
	}
	return out, nil
}

func (c *memCatalog) GetItems(ctx context.Context, ids []uuid.UUID) ([]models.Item, error) {
	want := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []models.Item
	for _, item := range c.items {
		if want[item.ID] {
			out = append(out, item)
		}
	}
	return out, nil
}

func overlaps(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}

// recordPublisher captures published events for assertions.
type recordPublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

type recordedEvent struct {
	RoomID  uuid.UUID
	Type    string
	Payload any
}

func (p *recordPublisher) Publish(ctx context.Context, roomID uuid.UUID, eventType string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{RoomID: roomID, Type: eventType, Payload: payload})
	return nil
}

func (p *recordPublisher) typesFor(roomID uuid.UUID) []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []string
	for _, ev := range p.events {
		if ev.RoomID == roomID {
			out = append(out, ev.Type)
		}
	}
	return out
}

// testTemplate is a compact three-slot roster so drafts finish quickly.
func testTemplate() roster.Template {
	return roster.Template{Slots: []roster.Slot{
		{Name: "QB", Eligible: []string{"QB"}},
		{Name: "RB", Eligible: []string{"RB"}},
		{Name: "FLEX", Eligible: []string{"RB", "WR"}},
	}}
}

type testEnv struct {
	sched *Scheduler
	store *memStore
	cat   *memCatalog
	pool  *participants.Pool
	pub   *recordPublisher
	clock *clockwork.FakeClock
}

func newTestEnv(botIDs []uuid.UUID, cat *memCatalog) *testEnv {
	cfg := DefaultConfig()
	cfg.PickDelayMinSec = 1
	cfg.PickDelayMaxSec = 1

	store := newMemStore()
	pool := participants.NewPool(botIDs)
	pub := &recordPublisher{}
	clock := clockwork.NewFakeClock()
	sched := New(cfg, clock, store, store, cat, pool, pub, testTemplate())

	return &testEnv{sched: sched, store: store, cat: cat, pool: pool, pub: pub, clock: clock}
}

func bot(name string) *models.Participant {
	return &models.Participant{ID: uuid.New(), DisplayName: name, Bot: true}
}

func human(name string) *models.Participant {
	return &models.Participant{ID: uuid.New(), DisplayName: name, Bot: false}
}

func intPtr(v int) *int { return &v }

// itemsForDraft builds enough distinct RB/WR/QB items to run count picks.
func itemsForDraft(count int) []models.Item {
	positions := [][]string{{"QB"}, {"RB"}, {"WR"}}
	out := make([]models.Item, count)
	for i := 0; i < count; i++ {
		out[i] = models.Item{
			ID:        uuid.New(),
			Name:      "item",
			Rank:      i + 1,
			Positions: positions[i%len(positions)],
		}
	}
	return out
}
