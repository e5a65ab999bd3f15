package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rconti3535/LineupLabs-sub001/go/internal/dbconfig"
)

var adjectives = []string{
	"Swift", "Clutch", "Gritty", "Savvy", "Bold", "Lucky", "Rowdy", "Steady",
	"Crafty", "Fierce", "Quiet", "Rapid", "Sly", "Vivid", "Wily", "Zesty",
}

var nouns = []string{
	"Falcon", "Badger", "Mustang", "Viper", "Walrus", "Coyote", "Raven",
	"Bison", "Otter", "Lynx", "Heron", "Marmot", "Puma", "Stork", "Wombat",
}

// seed_participants fills the participants table with simulated accounts.
// The scheduler's pool is built from rows with bot = true, so the count here
// bounds how many rooms can fill concurrently.
func main() {
	ctx := context.Background()

	count := 200
	if len(os.Args) > 1 {
		n, err := strconv.Atoi(os.Args[1])
		if err != nil || n < 1 {
			fmt.Fprintf(os.Stderr, "usage: seed_participants [count]\n")
			os.Exit(1)
		}
		count = n
	}

	cfg := dbconfig.NewConfigFromEnv()
	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	inserted, errs := 0, 0
	for i := 0; i < count; i++ {
		name := fmt.Sprintf("%s%s%d",
			adjectives[rng.Intn(len(adjectives))],
			nouns[rng.Intn(len(nouns))],
			rng.Intn(1000))

		_, err := pool.Exec(ctx, `
            INSERT INTO participants (id, display_name, bot)
            VALUES ($1, $2, true)`,
			uuid.New().String(), name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "insert participant %s: %v\n", name, err)
			errs++
			continue
		}
		inserted++
	}

	fmt.Printf("participants: requested=%d inserted=%d errors=%d\n", count, inserted, errs)
	if errs > 0 {
		os.Exit(1)
	}
}
