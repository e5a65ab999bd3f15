package picks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rconti3535/LineupLabs-sub001/go/internal/models"
)

// ErrDuplicatePick is returned when a pick with the same (room, overall)
// sequence already exists. Two engine instances firing for one room is the
// expected cause; callers discard their local attempt and reschedule.
var ErrDuplicatePick = errors.New("pick already made for this sequence")

const uniqueViolation = "23505"

// CreatePickRequest carries the fields for a new draft pick.
type CreatePickRequest struct {
	ID           uuid.UUID `json:"id"`
	RoomID       uuid.UUID `json:"room_id"`
	MembershipID uuid.UUID `json:"membership_id"`
	ItemID       uuid.UUID `json:"item_id"`
	Round        int       `json:"round"`
	Pick         int       `json:"pick"`
	OverallPick  int       `json:"overall_pick"`
	PickedAt     time.Time `json:"picked_at"`
}

// Repository implements draft pick data access over pgx. Picks are
// insert-only; nothing here mutates a written row.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new picks repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// CreatePick inserts one draft pick. A unique violation on
// (room_id, overall_pick) or on (room_id, item_id) maps to ErrDuplicatePick.
func (r *Repository) CreatePick(ctx context.Context, req CreatePickRequest) (*models.DraftPick, error) {
	var p models.DraftPick
	err := r.db.QueryRow(ctx, `
		INSERT INTO draft_picks (id, room_id, membership_id, item_id, round, pick, overall_pick, picked_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, room_id, membership_id, item_id, round, pick, overall_pick, picked_at`,
		req.ID.String(), req.RoomID.String(), req.MembershipID.String(), req.ItemID.String(),
		req.Round, req.Pick, req.OverallPick, req.PickedAt).
		Scan(&p.ID, &p.RoomID, &p.MembershipID, &p.ItemID, &p.Round, &p.Pick, &p.OverallPick, &p.PickedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, ErrDuplicatePick
		}
		return nil, fmt.Errorf("failed to create draft pick: %w", err)
	}

	return &p, nil
}

// CountPicks returns how many picks the room has recorded.
func (r *Repository) CountPicks(ctx context.Context, roomID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `
		SELECT count(*) FROM draft_picks WHERE room_id = $1`,
		roomID.String()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count picks: %w", err)
	}
	return count, nil
}

// ListRoomPicks returns the room's picks in draft order.
func (r *Repository) ListRoomPicks(ctx context.Context, roomID uuid.UUID) ([]models.DraftPick, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, room_id, membership_id, item_id, round, pick, overall_pick, picked_at
		FROM draft_picks
		WHERE room_id = $1
		ORDER BY overall_pick`,
		roomID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list room picks: %w", err)
	}
	defer rows.Close()

	var out []models.DraftPick
	for rows.Next() {
		var p models.DraftPick
		err := rows.Scan(&p.ID, &p.RoomID, &p.MembershipID, &p.ItemID,
			&p.Round, &p.Pick, &p.OverallPick, &p.PickedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pick: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
