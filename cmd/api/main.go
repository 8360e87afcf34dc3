package main

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"pandafinder/internal/api"
	"pandafinder/internal/cache"
	"pandafinder/internal/condition"
	"pandafinder/internal/config"
	"pandafinder/internal/db"
	"pandafinder/internal/logging"
	"pandafinder/internal/observability"
	"pandafinder/internal/pipeline"
	"pandafinder/internal/repository"
	"pandafinder/internal/scoring"
	"pandafinder/internal/scraper"
)

func main() {
	cfg := config.Load()
	logging.Setup(cfg.LogLevel, cfg.LogFormat)
	observability.Start(cfg.MetricsPort)

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

	listingRepo := &repository.ListingRepository{DB: dbConn}
	runRepo := &repository.ScoreRunRepository{DB: pool}

	engine, err := scoring.NewEngine(cfg.Scoring)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid scoring configuration")
	}

	responseCache := cache.New(cfg.RedisURL, cfg.CacheTTL)
	runner := &pipeline.Runner{
		Scraper:  scraper.New(cfg),
		Resolver: condition.NewResolver(cfg.OpenAIKey),
		Engine:   engine,
		Listings: listingRepo,
		Runs:     runRepo,
		Cache:    responseCache,
	}

	if cfg.ScrapeOnStart {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
			defer cancel()
			if _, err := runner.ScrapeAndScore(ctx, cfg.MaxPages); err != nil {
				log.Warn().Err(err).Msg("startup scrape failed")
			}
		}()
	}

	srv := api.NewServer(cfg, listingRepo, runRepo, runner, responseCache)
	if err := srv.Start(); err != nil {
		log.Fatal().Err(err).Msg("api server failed")
	}
	log.Info().Msg("api server stopped")
}
