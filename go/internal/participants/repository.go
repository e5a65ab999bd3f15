package participants

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rconti3535/LineupLabs-sub001/go/internal/models"
)

// Repository implements participant data access over pgx.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new participants repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// ListBots returns every simulated participant known to the system. The
// pool is seeded from this at process start.
func (r *Repository) ListBots(ctx context.Context) ([]models.Participant, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, display_name, bot, created_at
		FROM participants
		WHERE bot = true
		ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list bot participants: %w", err)
	}
	defer rows.Close()

	var bots []models.Participant
	for rows.Next() {
		var p models.Participant
		if err := rows.Scan(&p.ID, &p.DisplayName, &p.Bot, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		bots = append(bots, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read participants: %w", err)
	}

	return bots, nil
}

// GetParticipant retrieves a participant by ID.
func (r *Repository) GetParticipant(ctx context.Context, id uuid.UUID) (*models.Participant, error) {
	var p models.Participant
	err := r.db.QueryRow(ctx, `
		SELECT id, display_name, bot, created_at
		FROM participants
		WHERE id = $1`, id.String()).Scan(&p.ID, &p.DisplayName, &p.Bot, &p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get participant: %w", err)
	}
	return &p, nil
}
