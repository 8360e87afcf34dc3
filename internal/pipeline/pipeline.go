package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"pandafinder/internal/cache"
	"pandafinder/internal/condition"
	"pandafinder/internal/model"
	"pandafinder/internal/observability"
	"pandafinder/internal/scoring"
	"pandafinder/internal/scraper"
)

// ErrScrapeLocked means another process holds the scrape lock.
var ErrScrapeLocked = errors.New("a scrape is already running")

// scrapeLockTTL bounds how long a crashed run can block the next one.
const scrapeLockTTL = 10 * time.Minute

// ListingStore is the slice of the listing repository the pipeline needs.
type ListingStore interface {
	Upsert(l model.Listing) (int64, bool, error)
	All() ([]model.Listing, error)
	UpdateScores(listings []model.Listing) error
}

// RunStore records finished scoring passes.
type RunStore interface {
	Insert(run model.ScoreRun) (string, error)
}

// Runner drives the scrape, resolve, store, rescore flow shared by the
// scraper binary and the API's scrape endpoints.
type Runner struct {
	Scraper  *scraper.Scraper
	Resolver *condition.Resolver
	Engine   *scoring.Engine
	Listings ListingStore
	Runs     RunStore
	Cache    *cache.Cache
}

// ScrapeResult sums up one scrape-and-score run.
type ScrapeResult struct {
	Scraped  int `json:"scraped_count"`
	Created  int `json:"created_count"`
	Updated  int `json:"updated_count"`
	Rescored int `json:"rescored_count"`
}

// ScrapeAndScore runs the full pipeline once. Scores are batch-relative,
// so every stored listing is rescored after the new batch lands.
func (r *Runner) ScrapeAndScore(ctx context.Context, maxPages int) (ScrapeResult, error) {
	var res ScrapeResult

	if !r.Cache.AcquireScrapeLock(scrapeLockTTL) {
		return res, ErrScrapeLocked
	}
	defer r.Cache.ReleaseScrapeLock()

	listings, err := r.Scraper.ScrapeListings(ctx, maxPages)
	if err != nil {
		observability.ScrapeRuns.WithLabelValues("error").Inc()
		return res, err
	}
	res.Scraped = len(listings)
	if len(listings) == 0 {
		observability.ScrapeRuns.WithLabelValues("empty").Inc()
		return res, nil
	}

	r.Resolver.ResolveAll(ctx, listings)

	for i := range listings {
		_, created, err := r.Listings.Upsert(listings[i])
		if err != nil {
			log.Warn().Err(err).Str("url", listings[i].URL).Msg("failed to store listing")
			continue
		}
		observability.ListingsUpserted.Inc()
		if created {
			res.Created++
		} else {
			res.Updated++
		}
	}

	rescored, err := r.RescoreAll("scrape")
	if err != nil {
		observability.ScrapeRuns.WithLabelValues("error").Inc()
		return res, err
	}
	res.Rescored = rescored

	observability.ScrapeRuns.WithLabelValues("ok").Inc()
	return res, nil
}

// RescoreAll recomputes every score against the current population and
// records the pass. The trigger names what kicked it off.
func (r *Runner) RescoreAll(trigger string) (int, error) {
	started := time.Now().UTC()

	all, err := r.Listings.All()
	if err != nil {
		return 0, err
	}
	if len(all) == 0 {
		log.Info().Msg("no listings to rescore")
		return 0, nil
	}

	results := r.Engine.Score(all)
	var total float64
	for i := range all {
		res := results[i]
		score := res.Score
		priceScore, yearScore, kmScore := res.PriceScore, res.YearScore, res.KilometersScore
		all[i].Score = &score
		all[i].PriceScore = &priceScore
		all[i].YearScore = &yearScore
		all[i].KilometersScore = &kmScore
		total += float64(score)
	}
	mean := total / float64(len(all))

	if err := r.Listings.UpdateScores(all); err != nil {
		return 0, err
	}

	observability.ScoringRuns.Inc()
	observability.ScoringDuration.Observe(time.Since(started).Seconds())

	if r.Runs != nil {
		run := model.ScoreRun{
			Trigger:        trigger,
			StartedAt:      started,
			FinishedAt:     time.Now().UTC(),
			ListingsTotal:  len(all),
			ListingsScored: len(results),
			MeanScore:      mean,
		}
		if _, err := r.Runs.Insert(run); err != nil {
			log.Warn().Err(err).Msg("failed to record score run")
		}
	}

	r.Cache.InvalidateResponses()
	log.Info().
		Int("listings", len(all)).
		Float64("mean_score", mean).
		Str("trigger", trigger).
		Msg("rescore complete")
	return len(all), nil
}
