package scraper

import (
	"regexp"
	"time"

	"github.com/PuerkitoBio/goquery"

	"pandafinder/internal/model"
)

// Selector chains for the rendered search page. The hashed class names
// track the live site, the rest are fallbacks for older layouts.
const (
	selListingItem  = "article.Listing_listing__XwaYe, div[data-testid='listing-item'], .bb-listing-clickable, .listing-item"
	selListingLink  = "a.Listing_link__6Z504, a[href*='/brugt/bil/']"
	selListingTitle = ".Listing_title__qH4Gv, h3, .bb-listing-headline"
	selListingPrice = ".Listing_price__q15mE, .bb-listing-price, [data-testid='price']"
	selListingYear  = ".Listing_year__dBuOe, .bb-listing-year, [data-testid='year']"
	selListingKm    = ".Listing_km__Kd7o4, .bb-listing-km, [data-testid='mileage']"
	selListingLoc   = ".Listing_location__KjqBZ, .bb-listing-location, [data-testid='location']"
	selNextPage     = "button[aria-label='Næste'], a[aria-label='Næste'], .pagination-next"
)

var listingDetailRe = regexp.MustCompile(`/brugt/bil/[^/]+/\d+`)

// ExtractDOM scrapes listings from the rendered markup. It is the
// fallback for pages where the __NEXT_DATA__ payload is missing, and
// yields partial listings whose condition is resolved later.
func ExtractDOM(doc *goquery.Document, baseURL string) []model.Listing {
	var listings []model.Listing
	seen := make(map[string]struct{})
	now := time.Now().UTC()

	doc.Find(selListingItem).Each(func(_ int, item *goquery.Selection) {
		href, _ := item.Find(selListingLink).First().Attr("href")
		url := absoluteURL(baseURL, href)
		if url == "" || !listingDetailRe.MatchString(url) {
			return
		}
		if _, dup := seen[url]; dup {
			return
		}
		seen[url] = struct{}{}

		title := CleanText(item.Find(selListingTitle).First().Text())
		if title == "" {
			title = "Untitled Listing"
		}

		listings = append(listings, model.Listing{
			Title:      title,
			URL:        url,
			PriceDKK:   ExtractPrice(item.Find(selListingPrice).First().Text()),
			Year:       ExtractYear(item.Find(selListingYear).First().Text()),
			Kilometers: ExtractKilometers(item.Find(selListingKm).First().Text()),
			Location:   CleanText(item.Find(selListingLoc).First().Text()),
			FetchedAt:  now,
		})
	})

	return listings
}

// HasNextPage reports whether the page links to a further result page.
func HasNextPage(doc *goquery.Document) bool {
	return doc.Find(selNextPage).Length() > 0
}
