package rooms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rconti3535/LineupLabs-sub001/go/internal/models"
	"github.com/rconti3535/LineupLabs-sub001/go/internal/sqlutil"
)

var (
	// ErrRoomNotFound is returned when a room id matches nothing.
	ErrRoomNotFound = errors.New("room not found")

	// ErrRaceLost is returned when a guarded status transition matched no
	// row because another actor already transitioned the room. Callers
	// treat it as "goal already achieved", not a failure.
	ErrRaceLost = errors.New("room status transition lost race")
)

const roomColumns = `id, capacity, visibility, status, settings,
	scheduled_start_at, started_at, completed_at, owner_id, created_at, updated_at`

// Repository implements room and membership data access over pgx.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new rooms repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// CreateRoom inserts a new FORMING room. Creation is idempotent on ID: a
// replayed insert returns the already-persisted room.
func (r *Repository) CreateRoom(ctx context.Context, req CreateRoomRequest) (*models.Room, error) {
	var ownerID uuid.NullUUID
	if req.OwnerID != nil {
		ownerID = uuid.NullUUID{UUID: *req.OwnerID, Valid: true}
	}

	_, err := r.db.Exec(ctx, `
		INSERT INTO rooms (id, capacity, visibility, status, settings, scheduled_start_at, owner_id)
		VALUES ($1, $2, $3, $4, '{}'::jsonb, $5, $6)
		ON CONFLICT (id) DO NOTHING`,
		req.ID.String(), req.Capacity, string(req.Visibility),
		string(models.RoomStatusForming), req.ScheduledStartAt, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to create room: %w", err)
	}

	return r.GetRoom(ctx, req.ID)
}

// GetRoom retrieves a room by ID.
func (r *Repository) GetRoom(ctx context.Context, id uuid.UUID) (*models.Room, error) {
	row := r.db.QueryRow(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id = $1`, id.String())
	room, err := scanRoom(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("failed to get room: %w", err)
	}
	return room, nil
}

// ListOpenPublicRooms returns public FORMING rooms with at least one empty
// seat, together with their filled-seat counts. These are the rooms the
// enrollment scheduler keeps timers for.
func (r *Repository) ListOpenPublicRooms(ctx context.Context) ([]RoomWithSeats, error) {
	return r.listRoomsWithSeats(ctx, `
		SELECT `+prefixedRoomColumns+`, count(m.id) FILTER (WHERE m.participant_id IS NOT NULL)
		FROM rooms r
		LEFT JOIN memberships m ON m.room_id = r.id
		WHERE r.visibility = 'PUBLIC' AND r.status = 'FORMING'
		GROUP BY r.id
		HAVING count(m.id) FILTER (WHERE m.participant_id IS NOT NULL) < r.capacity
		ORDER BY r.created_at`)
}

// ListDueFormingRooms returns FORMING rooms whose scheduled start time has
// elapsed, with their filled-seat counts, for the start supervisor sweep.
func (r *Repository) ListDueFormingRooms(ctx context.Context, now time.Time) ([]RoomWithSeats, error) {
	return r.listRoomsWithSeats(ctx, `
		SELECT `+prefixedRoomColumns+`, count(m.id) FILTER (WHERE m.participant_id IS NOT NULL)
		FROM rooms r
		LEFT JOIN memberships m ON m.room_id = r.id
		WHERE r.status = 'FORMING' AND r.scheduled_start_at <= $1
		GROUP BY r.id
		ORDER BY r.scheduled_start_at`, now)
}

// ListStartingRooms returns rooms caught mid-activation (claimed by a
// supervisor that then died before marking them ACTIVE). The next sweep
// finishes them.
func (r *Repository) ListStartingRooms(ctx context.Context) ([]models.Room, error) {
	rows, err := r.db.Query(ctx, `SELECT `+roomColumns+` FROM rooms WHERE status = 'STARTING' ORDER BY updated_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list starting rooms: %w", err)
	}
	defer rows.Close()

	var out []models.Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan room: %w", err)
		}
		out = append(out, *room)
	}
	return out, rows.Err()
}

// ListRunningRooms returns every room currently mid-draft, ACTIVE or
// PAUSED. Recovery re-arms both: a paused room still needs its recheck
// timer so an external resume is picked up.
func (r *Repository) ListRunningRooms(ctx context.Context) ([]models.Room, error) {
	rows, err := r.db.Query(ctx, `SELECT `+roomColumns+` FROM rooms WHERE status IN ('ACTIVE', 'PAUSED') ORDER BY started_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list running rooms: %w", err)
	}
	defer rows.Close()

	var out []models.Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan room: %w", err)
		}
		out = append(out, *room)
	}
	return out, rows.Err()
}

// ClaimRoomStart performs the guarded FORMING -> STARTING transition and
// freezes the room's roster settings. The UPDATE only matches while the
// persisted status is still FORMING; zero rows affected means another actor
// (a second supervisor instance, or a manual start) got there first.
func (r *Repository) ClaimRoomStart(ctx context.Context, id uuid.UUID, settings models.RoomSettings) (*models.Room, error) {
	settingsBytes, err := json.Marshal(settings)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal room settings: %w", err)
	}

	tag, err := r.db.Exec(ctx, `
		UPDATE rooms
		SET status = 'STARTING', settings = $2, updated_at = now()
		WHERE id = $1 AND status = 'FORMING'`,
		id.String(), settingsBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to claim room start: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrRaceLost
	}

	return r.GetRoom(ctx, id)
}

// MarkRoomActive performs the STARTING -> ACTIVE transition and records the
// pick-clock start timestamp.
func (r *Repository) MarkRoomActive(ctx context.Context, id uuid.UUID, startedAt time.Time) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE rooms
		SET status = 'ACTIVE', started_at = $2, updated_at = now()
		WHERE id = $1 AND status = 'STARTING'`,
		id.String(), startedAt)
	if err != nil {
		return fmt.Errorf("failed to mark room active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRaceLost
	}
	return nil
}

// DeferRoomStart pushes a short FORMING room's scheduled start forward.
func (r *Repository) DeferRoomStart(ctx context.Context, id uuid.UUID, until time.Time) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE rooms
		SET scheduled_start_at = $2, updated_at = now()
		WHERE id = $1 AND status = 'FORMING'`,
		id.String(), until)
	if err != nil {
		return fmt.Errorf("failed to defer room start: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRaceLost
	}
	return nil
}

// PauseRoom performs the ACTIVE -> PAUSED transition.
func (r *Repository) PauseRoom(ctx context.Context, id uuid.UUID) error {
	return r.guardedTransition(ctx, id, models.RoomStatusActive, models.RoomStatusPaused)
}

// ResumeRoom performs the PAUSED -> ACTIVE transition.
func (r *Repository) ResumeRoom(ctx context.Context, id uuid.UUID) error {
	return r.guardedTransition(ctx, id, models.RoomStatusPaused, models.RoomStatusActive)
}

func (r *Repository) guardedTransition(ctx context.Context, id uuid.UUID, from, to models.RoomStatus) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE rooms SET status = $3, updated_at = now()
		WHERE id = $1 AND status = $2`,
		id.String(), string(from), string(to))
	if err != nil {
		return fmt.Errorf("failed to transition room %s -> %s: %w", from, to, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRaceLost
	}
	return nil
}

// CompleteRoom marks a room COMPLETED. It accepts rooms in ACTIVE or PAUSED
// so a catalog-exhausted room can be force-completed even while paused.
func (r *Repository) CompleteRoom(ctx context.Context, id uuid.UUID, completedAt time.Time) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE rooms
		SET status = 'COMPLETED', completed_at = $2, updated_at = now()
		WHERE id = $1 AND status IN ('ACTIVE', 'PAUSED')`,
		id.String(), completedAt)
	if err != nil {
		return fmt.Errorf("failed to complete room: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRaceLost
	}
	return nil
}

// EnrollParticipant fills the oldest placeholder membership in the room,
// inheriting its pre-assigned draft slot if any, or inserts a new
// membership. Idempotent per (room, participant).
func (r *Repository) EnrollParticipant(ctx context.Context, req EnrollParticipantRequest) (*models.Membership, error) {
	var m models.Membership
	err := sqlutil.Run(ctx, r.db, func(tx pgx.Tx) error {
		// Already enrolled? Replayed writes are a no-op.
		err := tx.QueryRow(ctx, `
			SELECT id, room_id, participant_id, slot, created_at
			FROM memberships
			WHERE room_id = $1 AND participant_id = $2`,
			req.RoomID.String(), req.ParticipantID.String()).
			Scan(&m.ID, &m.RoomID, &m.ParticipantID, &m.Slot, &m.CreatedAt)
		if err == nil {
			return nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("failed to check existing membership: %w", err)
		}

		// Prefer filling a placeholder seat.
		var placeholderID uuid.UUID
		err = tx.QueryRow(ctx, `
			SELECT id FROM memberships
			WHERE room_id = $1 AND participant_id IS NULL
			ORDER BY created_at
			LIMIT 1
			FOR UPDATE SKIP LOCKED`,
			req.RoomID.String()).Scan(&placeholderID)
		switch {
		case err == nil:
			return tx.QueryRow(ctx, `
				UPDATE memberships SET participant_id = $2
				WHERE id = $1
				RETURNING id, room_id, participant_id, slot, created_at`,
				placeholderID.String(), req.ParticipantID.String()).
				Scan(&m.ID, &m.RoomID, &m.ParticipantID, &m.Slot, &m.CreatedAt)
		case errors.Is(err, pgx.ErrNoRows):
			return tx.QueryRow(ctx, `
				INSERT INTO memberships (id, room_id, participant_id)
				VALUES ($1, $2, $3)
				RETURNING id, room_id, participant_id, slot, created_at`,
				req.MembershipID.String(), req.RoomID.String(), req.ParticipantID.String()).
				Scan(&m.ID, &m.RoomID, &m.ParticipantID, &m.Slot, &m.CreatedAt)
		default:
			return fmt.Errorf("failed to find placeholder membership: %w", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to enroll participant: %w", err)
	}

	return &m, nil
}

// ListRoomSeats returns the room's memberships joined with participants,
// ordered by draft slot (unassigned seats last, oldest first).
func (r *Repository) ListRoomSeats(ctx context.Context, roomID uuid.UUID) ([]Seat, error) {
	rows, err := r.db.Query(ctx, `
		SELECT m.id, m.room_id, m.participant_id, m.slot, m.created_at,
		       p.id, p.display_name, p.bot, p.created_at
		FROM memberships m
		LEFT JOIN participants p ON p.id = m.participant_id
		WHERE m.room_id = $1
		ORDER BY m.slot NULLS LAST, m.created_at`,
		roomID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list room seats: %w", err)
	}
	defer rows.Close()

	return scanSeats(rows)
}

// ListRunningSeats returns every seat of every mid-draft (ACTIVE or
// PAUSED) room, for pool reconciliation at boot. Paused rooms count: their
// bots are still drafting and must not be handed to another room.
func (r *Repository) ListRunningSeats(ctx context.Context) ([]Seat, error) {
	rows, err := r.db.Query(ctx, `
		SELECT m.id, m.room_id, m.participant_id, m.slot, m.created_at,
		       p.id, p.display_name, p.bot, p.created_at
		FROM memberships m
		JOIN rooms rm ON rm.id = m.room_id AND rm.status IN ('ACTIVE', 'PAUSED')
		LEFT JOIN participants p ON p.id = m.participant_id
		ORDER BY m.room_id, m.slot NULLS LAST`)
	if err != nil {
		return nil, fmt.Errorf("failed to list running seats: %w", err)
	}
	defer rows.Close()

	return scanSeats(rows)
}

// AssignDraftSlots writes the draft-order permutation. Only seats with no
// slot are touched, so slots pre-assigned through placeholder inheritance
// stay put; the write is atomic across all assignments.
func (r *Repository) AssignDraftSlots(ctx context.Context, assignments map[uuid.UUID]int) error {
	return sqlutil.Run(ctx, r.db, func(tx pgx.Tx) error {
		for membershipID, slot := range assignments {
			tag, err := tx.Exec(ctx, `
				UPDATE memberships SET slot = $2
				WHERE id = $1 AND slot IS NULL`,
				membershipID.String(), slot)
			if err != nil {
				return fmt.Errorf("failed to assign slot %d: %w", slot, err)
			}
			if tag.RowsAffected() == 0 {
				return fmt.Errorf("membership %s already has a slot", membershipID)
			}
		}
		return nil
	})
}

const prefixedRoomColumns = `r.id, r.capacity, r.visibility, r.status, r.settings,
	r.scheduled_start_at, r.started_at, r.completed_at, r.owner_id, r.created_at, r.updated_at`

func (r *Repository) listRoomsWithSeats(ctx context.Context, query string, args ...any) ([]RoomWithSeats, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	defer rows.Close()

	var out []RoomWithSeats
	for rows.Next() {
		var (
			room        models.Room
			settings    []byte
			ownerID     uuid.NullUUID
			filledSeats int
		)
		err := rows.Scan(&room.ID, &room.Capacity, &room.Visibility, &room.Status,
			&settings, &room.ScheduledStartAt, &room.StartedAt, &room.CompletedAt,
			&ownerID, &room.CreatedAt, &room.UpdatedAt, &filledSeats)
		if err != nil {
			return nil, fmt.Errorf("failed to scan room: %w", err)
		}
		if err := applyRoomExtras(&room, settings, ownerID); err != nil {
			return nil, err
		}
		out = append(out, RoomWithSeats{Room: room, FilledSeats: filledSeats})
	}
	return out, rows.Err()
}

func scanRoom(row pgx.Row) (*models.Room, error) {
	var (
		room     models.Room
		settings []byte
		ownerID  uuid.NullUUID
	)
	err := row.Scan(&room.ID, &room.Capacity, &room.Visibility, &room.Status,
		&settings, &room.ScheduledStartAt, &room.StartedAt, &room.CompletedAt,
		&ownerID, &room.CreatedAt, &room.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := applyRoomExtras(&room, settings, ownerID); err != nil {
		return nil, err
	}
	return &room, nil
}

func applyRoomExtras(room *models.Room, settings []byte, ownerID uuid.NullUUID) error {
	if len(settings) > 0 {
		if err := json.Unmarshal(settings, &room.Settings); err != nil {
			return fmt.Errorf("failed to unmarshal room settings: %w", err)
		}
	}
	if ownerID.Valid {
		id := ownerID.UUID
		room.OwnerID = &id
	}
	return nil
}

func scanSeats(rows pgx.Rows) ([]Seat, error) {
	var out []Seat
	for rows.Next() {
		var (
			seat        Seat
			pID         uuid.NullUUID
			displayName *string
			bot         *bool
			pCreatedAt  *time.Time
		)
		err := rows.Scan(&seat.Membership.ID, &seat.Membership.RoomID,
			&seat.Membership.ParticipantID, &seat.Membership.Slot, &seat.Membership.CreatedAt,
			&pID, &displayName, &bot, &pCreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan seat: %w", err)
		}
		if pID.Valid {
			seat.Participant = &models.Participant{
				ID:          pID.UUID,
				DisplayName: *displayName,
				Bot:         *bot,
				CreatedAt:   *pCreatedAt,
			}
		}
		out = append(out, seat)
	}
	return out, rows.Err()
}
