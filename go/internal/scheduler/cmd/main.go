package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/nats-io/nats.go"
	"github.com/rconti3535/LineupLabs-sub001/go/internal/catalog"
	"github.com/rconti3535/LineupLabs-sub001/go/internal/dbconfig"
	"github.com/rconti3535/LineupLabs-sub001/go/internal/events"
	"github.com/rconti3535/LineupLabs-sub001/go/internal/participants"
	"github.com/rconti3535/LineupLabs-sub001/go/internal/picks"
	"github.com/rconti3535/LineupLabs-sub001/go/internal/rooms"
	"github.com/rconti3535/LineupLabs-sub001/go/internal/roster"
	"github.com/rconti3535/LineupLabs-sub001/go/internal/scheduler"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg := scheduler.NewConfigFromEnv()
	dbCfg := dbconfig.NewConfigFromEnv()
	natsURL := getEnv("NATS_URL", "")
	subjectPrefix := getEnv("EVENT_SUBJECT_PREFIX", "lineuplabs")
	healthAddr := getEnv("HEALTH_ADDR", ":8082")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to database
	db, err := pgxpool.New(ctx, dbCfg.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create database pool")
	}
	defer db.Close()

	if err := db.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}

	log.Info().
		Str("database", dbCfg.Database).
		Str("nats_url", natsURL).
		Msg("starting room scheduler")

	// Event publisher: NATS when configured, log-only otherwise.
	var publisher events.Publisher = events.NewLogPublisher()
	if natsURL != "" {
		nc, err := nats.Connect(natsURL, nats.Name("room-scheduler"))
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to NATS")
		}
		defer nc.Drain()
		publisher = events.NewNATSPublisher(nc, subjectPrefix)
	}

	// Roster template frozen into autonomous rooms at draft start.
	template := roster.DefaultTemplate()
	if path := os.Getenv("ROSTER_TEMPLATE_PATH"); path != "" {
		template, err = roster.LoadTemplate(path)
		if err != nil {
			log.Fatal().Err(err).Str("path", path).Msg("failed to load roster template")
		}
	}

	// Repositories and the participant pool.
	roomRepo := rooms.NewRepository(db)
	pickRepo := picks.NewRepository(db)
	catalogRepo := catalog.NewRepository(db)
	participantRepo := participants.NewRepository(db)

	bots, err := participantRepo.ListBots(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load simulated participants")
	}
	botIDs := make([]uuid.UUID, len(bots))
	for i, b := range bots {
		botIDs[i] = b.ID
	}
	pool := participants.NewPool(botIDs)

	sched := scheduler.New(cfg, clockwork.NewRealClock(), roomRepo, pickRepo, catalogRepo, pool, publisher, template)

	if err := sched.StartEngine(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start scheduler")
	}

	// Health endpoint with pool and timer counters.
	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(sched.SnapshotStats())
	})

	server := &http.Server{
		Addr:         healthAddr,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("health server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("health server failed")
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server shutdown failed")
	}

	sched.StopEngine()
	cancel()

	log.Info().Msg("room scheduler shutdown complete")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
