package scraper

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"

	"pandafinder/internal/condition"
	"pandafinder/internal/model"
)

// Bilbasen renders search results through Next.js, so the full result set
// is embedded in a script tag as JSON. Reading it is far more reliable
// than scraping the hashed CSS classes of the rendered DOM.
type nextData struct {
	Props struct {
		PageProps struct {
			DehydratedState struct {
				Queries []nextQuery `json:"queries"`
			} `json:"dehydratedState"`
		} `json:"pageProps"`
	} `json:"props"`
}

type nextQuery struct {
	State struct {
		Data struct {
			Listings []srpListing `json:"listings"`
		} `json:"data"`
	} `json:"state"`
}

type srpListing struct {
	URI         string `json:"uri"`
	Make        string `json:"make"`
	Model       string `json:"model"`
	Variant     string `json:"variant"`
	Description string `json:"description"`
	Price       struct {
		Price *float64 `json:"price"`
	} `json:"price"`
	Location struct {
		City    string `json:"city"`
		Region  string `json:"region"`
		ZipCode any    `json:"zipCode"`
	} `json:"location"`
	Properties map[string]srpProperty `json:"properties"`
}

type srpProperty struct {
	DisplayTextShort string `json:"displayTextShort"`
}

// ExtractNextData pulls listings out of the page's __NEXT_DATA__ script.
// Returns nil when the script is missing or does not carry search results.
func ExtractNextData(doc *goquery.Document, baseURL string) []model.Listing {
	raw := doc.Find("script#__NEXT_DATA__").First().Text()
	if strings.TrimSpace(raw) == "" {
		log.Debug().Msg("no __NEXT_DATA__ script in page")
		return nil
	}

	var data nextData
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		log.Warn().Err(err).Msg("failed to decode __NEXT_DATA__ payload")
		return nil
	}

	var listings []model.Listing
	now := time.Now().UTC()
	for _, q := range data.Props.PageProps.DehydratedState.Queries {
		if len(q.State.Data.Listings) == 0 {
			continue
		}
		for _, item := range q.State.Data.Listings {
			l, ok := normalizeSRPListing(item, baseURL, now)
			if !ok {
				continue
			}
			listings = append(listings, l)
		}
		break
	}
	return listings
}

func normalizeSRPListing(item srpListing, baseURL string, now time.Time) (model.Listing, bool) {
	url := absoluteURL(baseURL, item.URI)
	if url == "" {
		log.Debug().Str("make", item.Make).Str("model", item.Model).Msg("skipping listing without URI")
		return model.Listing{}, false
	}

	title := CleanText(strings.Join(nonEmpty(item.Make, item.Model, item.Variant), " "))
	if title == "" {
		title = "Untitled Listing"
	}

	l := model.Listing{
		Title:        title,
		URL:          url,
		Brand:        item.Make,
		Model:        item.Model,
		FuelType:     item.Properties["fueltype"].DisplayTextShort,
		Transmission: item.Properties["geartype"].DisplayTextShort,
		Location:     joinLocation(item.Location.ZipCode, item.Location.City, item.Location.Region),
		FetchedAt:    now,
	}

	if item.Price.Price != nil {
		p := int64(*item.Price.Price)
		l.PriceDKK = &p
	}
	l.Year = ExtractYear(item.Properties["firstregistrationdate"].DisplayTextShort)
	l.Kilometers = ExtractKilometers(item.Properties["mileage"].DisplayTextShort)

	score, label := condition.FromDescription(item.Description)
	l.ConditionStr = label
	l.ConditionScore = &score

	return l, true
}

func joinLocation(zip any, city, region string) string {
	parts := nonEmpty(stringify(zip), city, region)
	return CleanText(strings.Join(parts, " "))
}

// stringify renders a zip code that the feed serves sometimes as a JSON
// number and sometimes as a string.
func stringify(v any) string {
	switch z := v.(type) {
	case nil:
		return ""
	case string:
		return z
	case float64:
		return strconv.FormatFloat(z, 'f', -1, 64)
	default:
		return fmt.Sprint(z)
	}
}

func nonEmpty(parts ...string) []string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}

func absoluteURL(baseURL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	return strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(href, "/")
}
