package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	PagesFetched = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_pages_fetched_total",
			Help: "Search result pages fetched from Bilbasen",
		},
	)
	ListingsScraped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_listings_scraped_total",
			Help: "Listings extracted from fetched pages",
		},
	)
	ListingsUpserted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "store_listings_upserted_total",
			Help: "Listings written to Postgres",
		},
	)
	ScrapeRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrape_runs_total",
			Help: "Completed scrape runs by outcome",
		},
		[]string{"status"},
	)
	ScoringRuns = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scoring_runs_total",
			Help: "Completed scoring runs",
		},
	)
	ScoringDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scoring_duration_seconds",
			Help:    "Wall time of one scoring run",
			Buckets: prometheus.DefBuckets,
		},
	)
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "API requests by route and status",
		},
		[]string{"method", "path", "status"},
	)
)

func Start(port string) {
	prometheus.MustRegister(
		PagesFetched,
		ListingsScraped,
		ListingsUpserted,
		ScrapeRuns,
		ScoringRuns,
		ScoringDuration,
		HTTPRequests,
	)
	http.Handle("/metrics", promhttp.Handler())
	go http.ListenAndServe(":"+port, nil)
}
