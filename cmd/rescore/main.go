package main

import (
	"context"

	"github.com/rs/zerolog/log"

	"pandafinder/internal/cache"
	"pandafinder/internal/config"
	"pandafinder/internal/db"
	"pandafinder/internal/logging"
	"pandafinder/internal/pipeline"
	"pandafinder/internal/repository"
	"pandafinder/internal/scoring"
)

// Recomputes every stored score against the current population without
// touching the scraper.
func main() {
	cfg := config.Load()
	logging.Setup(cfg.LogLevel, cfg.LogFormat)

	dbConn, err := db.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer dbConn.Close()
	if err := db.Migrate(dbConn); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	pool, err := db.NewPool(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create pgx pool")
	}
	defer pool.Close()

	engine, err := scoring.NewEngine(cfg.Scoring)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid scoring configuration")
	}

	runner := &pipeline.Runner{
		Engine:   engine,
		Listings: &repository.ListingRepository{DB: dbConn},
		Runs:     &repository.ScoreRunRepository{DB: pool},
		Cache:    cache.New(cfg.RedisURL, cfg.CacheTTL),
	}

	updated, err := runner.RescoreAll("cli")
	if err != nil {
		log.Fatal().Err(err).Msg("rescore failed")
	}
	log.Info().Int("updated", updated).Msg("rescore finished")
}
