package main

import (
	"context"
	"flag"
	"time"

	"github.com/rs/zerolog/log"

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

// go run cmd/scraper/main.go -pages=5
// go run cmd/scraper/main.go -cleanup-days=14
func main() {
	pages := flag.Int("pages", 0, "search pages to fetch, 0 uses MAX_PAGES")
	cleanupDays := flag.Int("cleanup-days", 0, "drop listings unseen for this many days, 0 uses CLEANUP_DAYS")
	flag.Parse()

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

	runner := &pipeline.Runner{
		Scraper:  scraper.New(cfg),
		Resolver: condition.NewResolver(cfg.OpenAIKey),
		Engine:   engine,
		Listings: listingRepo,
		Runs:     runRepo,
		Cache:    cache.New(cfg.RedisURL, cfg.CacheTTL),
	}

	maxPages := cfg.MaxPages
	if *pages > 0 {
		maxPages = *pages
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
	defer cancel()

	res, err := runner.ScrapeAndScore(ctx, maxPages)
	if err != nil {
		log.Fatal().Err(err).Msg("scrape failed")
	}

	days := cfg.CleanupDays
	if *cleanupDays > 0 {
		days = *cleanupDays
	}
	if days > 0 {
		removed, err := listingRepo.DeleteOlderThan(days)
		if err != nil {
			log.Warn().Err(err).Msg("cleanup failed")
		} else if removed > 0 {
			log.Info().Int64("removed", removed).Int("days", days).Msg("stale listings removed")
		}
	}

	log.Info().
		Int("scraped", res.Scraped).
		Int("created", res.Created).
		Int("updated", res.Updated).
		Int("rescored", res.Rescored).
		Msg("scrape finished")
}
