package api

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"pandafinder/internal/cache"
	"pandafinder/internal/config"
	"pandafinder/internal/model"
	"pandafinder/internal/pipeline"
	"pandafinder/internal/repository"
)

// ListingStore is the read side of the listing repository the API serves from.
type ListingStore interface {
	List(f repository.ListingFilter) ([]model.Listing, error)
	GetByID(id int64) (model.Listing, error)
	Top(limit int) ([]model.Listing, error)
	All() ([]model.Listing, error)
	ScoreStats() (repository.ScoreStats, error)
	AllScores() ([]int, error)
	Count() (int, error)
}

// RunStore exposes past scoring runs for the stats endpoint.
type RunStore interface {
	Recent(limit int) ([]model.ScoreRun, error)
}

// Pipeline triggers scrape and rescore work on behalf of the write endpoints.
type Pipeline interface {
	ScrapeAndScore(ctx context.Context, maxPages int) (pipeline.ScrapeResult, error)
	RescoreAll(trigger string) (int, error)
}

type Server struct {
	cfg      *config.Config
	listings ListingStore
	runs     RunStore
	pipe     Pipeline
	cache    *cache.Cache
}

func NewServer(cfg *config.Config, listings ListingStore, runs RunStore, pipe Pipeline, c *cache.Cache) *Server {
	return &Server{
		cfg:      cfg,
		listings: listings,
		runs:     runs,
		pipe:     pipe,
		cache:    c,
	}
}

func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(requestID)
	r.Use(requestLogger)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/listings", s.handleListings).Methods(http.MethodGet)
	api.HandleFunc("/listings/{id:[0-9]+}", s.handleListing).Methods(http.MethodGet)
	api.HandleFunc("/top10", s.handleTop10).Methods(http.MethodGet)
	api.HandleFunc("/scores", s.handleScores).Methods(http.MethodGet)
	api.HandleFunc("/scores/distribution", s.handleScoreDistribution).Methods(http.MethodGet)
	api.HandleFunc("/scores/breakdown", s.handleScoreBreakdown).Methods(http.MethodGet)
	api.HandleFunc("/scrape", s.handleScrape).Methods(http.MethodPost)
	api.HandleFunc("/scrape/sync", s.handleScrapeSync).Methods(http.MethodPost)
	api.HandleFunc("/rescore", s.handleRescore).Methods(http.MethodPost)
	api.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)

	r.HandleFunc("/", s.handleDashboard).Methods(http.MethodGet)
	r.HandleFunc("/listings", s.handleListingsPage).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, http.StatusNotFound, "Not Found")
	})
	return r
}

// Handler wraps the router with CORS. Mux middleware only runs on matched
// routes, so preflight OPTIONS requests need the outer wrapper.
func (s *Server) Handler() http.Handler {
	return cors(s.Router())
}

// Start serves until SIGINT or SIGTERM, then drains in-flight requests.
func (s *Server) Start() error {
	srv := &http.Server{
		Addr:         net.JoinHostPort(s.cfg.ServerHost, s.cfg.ServerPort),
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("api server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("shutting down api server")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
