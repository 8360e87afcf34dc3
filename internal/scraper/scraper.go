package scraper

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"

	"pandafinder/internal/config"
	"pandafinder/internal/model"
	"pandafinder/internal/observability"
)

// Scraper walks Bilbasen search result pages and extracts listings,
// preferring the embedded JSON payload over the rendered markup.
type Scraper struct {
	client    *Client
	baseURL   string
	searchURL string
	term      string
}

func New(cfg *config.Config) *Scraper {
	return &Scraper{
		client:    NewClient(cfg),
		baseURL:   cfg.BaseURL,
		searchURL: cfg.SearchURL,
		term:      cfg.SearchTerm,
	}
}

// ScrapeListings fetches up to maxPages of search results. Pagination
// ends early on an empty page or when the next-page control disappears.
// A failure on the first page is an error; on later pages the run ends
// with whatever was collected so far.
func (s *Scraper) ScrapeListings(ctx context.Context, maxPages int) ([]model.Listing, error) {
	if maxPages <= 0 {
		maxPages = 1
	}
	log.Info().Str("search_term", s.term).Int("max_pages", maxPages).Msg("starting scrape")

	var all []model.Listing
	for page := 1; page <= maxPages; page++ {
		pageURL := s.searchURL
		if page > 1 {
			pageURL = fmt.Sprintf("%s&page=%d", s.searchURL, page)
		}

		body, err := s.client.Get(ctx, pageURL)
		if err != nil {
			if page == 1 {
				return nil, fmt.Errorf("scrape first page: %w", err)
			}
			log.Error().Err(err).Int("page", page).Msg("page fetch failed, stopping pagination")
			break
		}
		observability.PagesFetched.Inc()

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
		if err != nil {
			if page == 1 {
				return nil, fmt.Errorf("parse first page: %w", err)
			}
			log.Error().Err(err).Int("page", page).Msg("page parse failed, stopping pagination")
			break
		}

		listings := ExtractNextData(doc, s.baseURL)
		if len(listings) == 0 {
			listings = ExtractDOM(doc, s.baseURL)
		}
		if len(listings) == 0 {
			log.Info().Int("page", page).Msg("no listings on page, reached end of results")
			break
		}

		log.Info().Int("page", page).Int("listings", len(listings)).Msg("page scraped")
		observability.ListingsScraped.Add(float64(len(listings)))
		all = append(all, listings...)

		if !HasNextPage(doc) {
			log.Info().Int("page", page).Msg("no further pages")
			break
		}
	}

	log.Info().Int("total", len(all)).Msg("scrape finished")
	return all, nil
}
