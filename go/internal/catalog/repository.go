package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rconti3535/LineupLabs-sub001/go/internal/models"
)

// Repository reads the external item catalog. The catalog is read-only to
// this core: items, ranks and eligibility tags are maintained elsewhere.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new catalog repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// RankedCandidates returns the best-ranked items not in excludeIDs,
// optionally restricted to items eligible for any of the given positions.
// Rank 1 is best; results are ordered best-first.
func (r *Repository) RankedCandidates(ctx context.Context, excludeIDs []uuid.UUID, positions []string, limit int32) ([]models.Item, error) {
	exclude := make([]string, len(excludeIDs))
	for i, id := range excludeIDs {
		exclude[i] = id.String()
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, name, rank, positions
		FROM items
		WHERE NOT (id = ANY($1::uuid[]))
		  AND ($2::text[] IS NULL OR positions && $2::text[])
		ORDER BY rank
		LIMIT $3`,
		exclude, positionsParam(positions), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query ranked candidates: %w", err)
	}
	defer rows.Close()

	var out []models.Item
	for rows.Next() {
		var item models.Item
		if err := rows.Scan(&item.ID, &item.Name, &item.Rank, &item.Positions); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// GetItems returns the items with the given ids, in rank order. Used by the
// draft engine to recover the eligibility tags of already-held items.
func (r *Repository) GetItems(ctx context.Context, ids []uuid.UUID) ([]models.Item, error) {
	want := make([]string, len(ids))
	for i, id := range ids {
		want[i] = id.String()
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, name, rank, positions
		FROM items
		WHERE id = ANY($1::uuid[])
		ORDER BY rank`, want)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	var out []models.Item
	for rows.Next() {
		var item models.Item
		if err := rows.Scan(&item.ID, &item.Name, &item.Rank, &item.Positions); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// positionsParam maps an empty filter to SQL NULL so the position clause
// collapses instead of matching nothing.
func positionsParam(positions []string) any {
	if len(positions) == 0 {
		return nil
	}
	return positions
}
