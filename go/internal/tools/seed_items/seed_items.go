package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rconti3535/LineupLabs-sub001/go/internal/dbconfig"
)

// Item mirrors the JSON layout of an item catalog export.
type Item struct {
	ID        *uuid.UUID `json:"id"`
	Name      string     `json:"name"`
	Rank      int        `json:"rank"`
	Positions []string   `json:"positions"`
}

func main() {
	ctx := context.Background()

	path := "go/internal/assets/items.json"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read %s: %v\n", path, err)
		os.Exit(1)
	}
	var items []Item
	if err := json.Unmarshal(data, &items); err != nil {
		fmt.Fprintf(os.Stderr, "unmarshal items: %v\n", err)
		os.Exit(1)
	}

	cfg := dbconfig.NewConfigFromEnv()
	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect error: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	total, inserted, skipped, errs := len(items), 0, 0, 0
	for _, item := range items {
		id := uuid.New()
		if item.ID != nil {
			id = *item.ID
		}
		tag, err := pool.Exec(ctx, `
            INSERT INTO items (id, name, rank, positions)
            VALUES ($1, $2, $3, $4)
            ON CONFLICT (id) DO NOTHING`,
			id.String(), item.Name, item.Rank, item.Positions)
		if err != nil {
			fmt.Fprintf(os.Stderr, "insert item %s: %v\n", item.Name, err)
			errs++
			continue
		}
		if tag.RowsAffected() == 0 {
			skipped++
		} else {
			inserted++
		}
	}

	fmt.Printf("items: total=%d inserted=%d skipped=%d errors=%d\n", total, inserted, skipped, errs)
	if errs > 0 {
		os.Exit(1)
	}
}
