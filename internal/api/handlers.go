package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"pandafinder/internal/cache"
	"pandafinder/internal/model"
	"pandafinder/internal/pipeline"
	"pandafinder/internal/repository"
	"pandafinder/internal/scoring"
)

const (
	serviceName    = "Bilbasen Fiat Panda Finder"
	serviceVersion = "1.0.0"

	// Background scrapes run detached from the request context and need
	// their own deadline.
	backgroundScrapeTimeout = 10 * time.Minute
)

// errorResponse is the JSON error envelope: {"detail": "..."}.
type errorResponse struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}

// queryInt reads an integer query parameter, falling back to def when
// absent and rejecting values outside [min, max].
func queryInt(r *http.Request, name string, def, min, max int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	if n < min || n > max {
		return 0, fmt.Errorf("%s must be between %d and %d", name, min, max)
	}
	return n, nil
}

func queryOptInt64(r *http.Request, name string) (*int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		return nil, fmt.Errorf("%s must be a non-negative integer", name)
	}
	return &n, nil
}

func queryOptYear(r *http.Request, name string) (*int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1980 || n > 2030 {
		return nil, fmt.Errorf("%s must be a year between 1980 and 2030", name)
	}
	return &n, nil
}

func queryBool(r *http.Request, name string, def bool) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean", name)
	}
	return b, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": serviceName,
		"version": serviceVersion,
	})
}

func (s *Server) handleListings(w http.ResponseWriter, r *http.Request) {
	skip, err := queryInt(r, "skip", 0, 0, math.MaxInt32)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := queryInt(r, "limit", 100, 1, 1000)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	orderDesc, err := queryBool(r, "order_desc", true)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	f := repository.ListingFilter{
		OrderBy:   r.URL.Query().Get("order_by"),
		OrderDesc: orderDesc,
		Offset:    skip,
		Limit:     limit,
	}
	if f.OrderBy == "" {
		f.OrderBy = "score"
	}

	var parseErr error
	opt64 := func(name string) *int64 {
		v, err := queryOptInt64(r, name)
		if err != nil && parseErr == nil {
			parseErr = err
		}
		return v
	}
	optYear := func(name string) *int {
		v, err := queryOptYear(r, name)
		if err != nil && parseErr == nil {
			parseErr = err
		}
		return v
	}
	f.MinPrice = opt64("min_price")
	f.MaxPrice = opt64("max_price")
	f.MinYear = optYear("min_year")
	f.MaxYear = optYear("max_year")
	f.MinKm = opt64("min_km")
	f.MaxKm = opt64("max_km")
	if parseErr != nil {
		writeError(w, http.StatusBadRequest, parseErr.Error())
		return
	}

	listings, err := s.listings.List(f)
	if err != nil {
		log.Error().Err(err).Msg("failed to list listings")
		writeError(w, http.StatusInternalServerError, "Failed to retrieve listings")
		return
	}
	if listings == nil {
		listings = []model.Listing{}
	}
	writeJSON(w, http.StatusOK, listings)
}

func (s *Server) handleListing(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "id must be an integer")
		return
	}

	listing, err := s.listings.GetByID(id)
	if errors.Is(err, repository.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Listing not found")
		return
	}
	if err != nil {
		log.Error().Err(err).Int64("id", id).Msg("failed to load listing")
		writeError(w, http.StatusInternalServerError, "Failed to retrieve listing")
		return
	}
	writeJSON(w, http.StatusOK, listing)
}

func (s *Server) handleTop10(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 10, 1, 50)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Only the default page is cached; the key would lie for other limits.
	var cached []model.Listing
	if limit == 10 && s.cache.GetJSON(cache.KeyTop10, &cached) {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	listings, err := s.listings.Top(limit)
	if err != nil {
		log.Error().Err(err).Msg("failed to load top listings")
		writeError(w, http.StatusInternalServerError, "Failed to retrieve top listings")
		return
	}
	if listings == nil {
		listings = []model.Listing{}
	}
	if limit == 10 {
		s.cache.SetJSON(cache.KeyTop10, listings)
	}
	writeJSON(w, http.StatusOK, listings)
}

func (s *Server) handleScores(w http.ResponseWriter, r *http.Request) {
	var cached repository.ScoreStats
	if s.cache.GetJSON(cache.KeyScores, &cached) {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	stats, err := s.listings.ScoreStats()
	if err != nil {
		log.Error().Err(err).Msg("failed to compute score stats")
		writeError(w, http.StatusInternalServerError, "Failed to retrieve score statistics")
		return
	}
	s.cache.SetJSON(cache.KeyScores, stats)
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleScoreDistribution(w http.ResponseWriter, r *http.Request) {
	var cached []int
	if s.cache.GetJSON(cache.KeyDistribution, &cached) {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	scores, err := s.listings.AllScores()
	if err != nil {
		log.Error().Err(err).Msg("failed to load scores")
		writeError(w, http.StatusInternalServerError, "Failed to retrieve score distribution")
		return
	}
	if scores == nil {
		scores = []int{}
	}
	s.cache.SetJSON(cache.KeyDistribution, scores)
	writeJSON(w, http.StatusOK, scores)
}

func (s *Server) handleScoreBreakdown(w http.ResponseWriter, r *http.Request) {
	var cached scoring.Breakdown
	if s.cache.GetJSON(cache.KeyBreakdown, &cached) {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	all, err := s.listings.All()
	if err != nil {
		log.Error().Err(err).Msg("failed to load listings for breakdown")
		writeError(w, http.StatusInternalServerError, "Failed to generate score breakdown")
		return
	}
	if len(all) == 0 {
		writeJSON(w, http.StatusOK, map[string]any{
			"error":          "No listings found",
			"total_listings": 0,
		})
		return
	}

	breakdown, err := scoring.Summarize(all)
	if errors.Is(err, scoring.ErrNoScores) {
		writeJSON(w, http.StatusOK, map[string]any{
			"error":          "No scored listings",
			"total_listings": len(all),
		})
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("failed to summarize scores")
		writeError(w, http.StatusInternalServerError, "Failed to generate score breakdown")
		return
	}
	s.cache.SetJSON(cache.KeyBreakdown, breakdown)
	writeJSON(w, http.StatusOK, breakdown)
}

func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	maxPages, err := queryInt(r, "max_pages", 3, 1, 10)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), backgroundScrapeTimeout)
		defer cancel()

		res, err := s.pipe.ScrapeAndScore(ctx, maxPages)
		if err != nil {
			log.Error().Err(err).Msg("background scrape failed")
			return
		}
		log.Info().
			Int("scraped", res.Scraped).
			Int("created", res.Created).
			Int("updated", res.Updated).
			Msg("background scrape finished")
	}()

	writeJSON(w, http.StatusAccepted, map[string]any{
		"message":   "Scraping task started",
		"max_pages": maxPages,
		"status":    "running",
	})
}

type scrapeSyncResponse struct {
	Message string `json:"message"`
	pipeline.ScrapeResult
}

func (s *Server) handleScrapeSync(w http.ResponseWriter, r *http.Request) {
	maxPages, err := queryInt(r, "max_pages", 2, 1, 5)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.pipe.ScrapeAndScore(r.Context(), maxPages)
	if errors.Is(err, pipeline.ErrScrapeLocked) {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("synchronous scrape failed")
		writeError(w, http.StatusInternalServerError, "Scraping failed: "+err.Error())
		return
	}

	msg := "Scraping completed"
	if res.Scraped == 0 {
		msg = "No listings found"
	}
	writeJSON(w, http.StatusOK, scrapeSyncResponse{Message: msg, ScrapeResult: res})
}

func (s *Server) handleRescore(w http.ResponseWriter, r *http.Request) {
	updated, err := s.pipe.RescoreAll("api")
	if err != nil {
		log.Error().Err(err).Msg("rescore failed")
		writeError(w, http.StatusInternalServerError, "Failed to rescore listings")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":       "Rescoring completed",
		"updated_count": updated,
	})
}

type statsResponse struct {
	TotalListings   int                   `json:"total_listings"`
	ScoreStatistics repository.ScoreStats `json:"score_statistics"`
	SearchTerm      string                `json:"search_term"`
	ScoringWeights  scoring.Weights       `json:"scoring_weights"`
	RecentRuns      []model.ScoreRun      `json:"recent_runs"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	var cached statsResponse
	if s.cache.GetJSON(cache.KeyStats, &cached) {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	total, err := s.listings.Count()
	if err != nil {
		log.Error().Err(err).Msg("failed to count listings")
		writeError(w, http.StatusInternalServerError, "Failed to retrieve database stats")
		return
	}
	stats, err := s.listings.ScoreStats()
	if err != nil {
		log.Error().Err(err).Msg("failed to compute score stats")
		writeError(w, http.StatusInternalServerError, "Failed to retrieve database stats")
		return
	}
	runs, err := s.runs.Recent(5)
	if err != nil {
		log.Warn().Err(err).Msg("failed to load recent score runs")
	}
	if runs == nil {
		runs = []model.ScoreRun{}
	}

	resp := statsResponse{
		TotalListings:   total,
		ScoreStatistics: stats,
		SearchTerm:      s.cfg.SearchTerm,
		ScoringWeights:  s.cfg.Scoring.Weights,
		RecentRuns:      runs,
	}
	s.cache.SetJSON(cache.KeyStats, resp)
	writeJSON(w, http.StatusOK, resp)
}
