package api

import (
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"pandafinder/internal/model"
	"pandafinder/internal/repository"
	"pandafinder/internal/scoring"
)

var tmplFuncs = template.FuncMap{
	"fmtPrice": func(p *int64) string {
		if p == nil {
			return "—"
		}
		return groupDigits(*p) + " kr"
	},
	"fmtKm": func(km *int64) string {
		if km == nil {
			return "—"
		}
		return groupDigits(*km) + " km"
	},
	"fmtYear": func(y *int) string {
		if y == nil {
			return "—"
		}
		return strconv.Itoa(*y)
	},
	"fmtScore": func(s *int) string {
		if s == nil {
			return "—"
		}
		return strconv.Itoa(*s)
	},
}

var (
	indexTmpl    = template.Must(template.New("index").Funcs(tmplFuncs).Parse(indexTemplate))
	listingsTmpl = template.Must(template.New("listings").Funcs(tmplFuncs).Parse(listingsTemplate))
	errorTmpl    = template.Must(template.New("error").Parse(errorTemplate))
)

// groupDigits renders 54900 as "54.900", the Danish thousands grouping.
func groupDigits(n int64) string {
	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	pre := len(s) % 3
	if pre > 0 {
		b.WriteString(s[:pre])
		b.WriteByte('.')
	}
	for i := pre; i < len(s); i += 3 {
		b.WriteString(s[i : i+3])
		if i+3 < len(s) {
			b.WriteByte('.')
		}
	}
	return b.String()
}

type distributionBar struct {
	Range   string
	Count   int
	Percent int
}

type dashboardData struct {
	SearchTerm    string
	TotalListings int
	Stats         repository.ScoreStats
	Top           []model.Listing
	Bars          []distributionBar
	Weights       scoring.Weights
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	top, err := s.listings.Top(10)
	if err != nil {
		s.renderError(w, err)
		return
	}
	stats, err := s.listings.ScoreStats()
	if err != nil {
		s.renderError(w, err)
		return
	}
	scores, err := s.listings.AllScores()
	if err != nil {
		s.renderError(w, err)
		return
	}

	bars := make([]distributionBar, 0, 5)
	for _, rng := range []string{"0-19", "20-39", "40-59", "60-79", "80-100"} {
		count := stats.ScoreRanges[rng]
		pct := 0
		if len(scores) > 0 {
			pct = count * 100 / len(scores)
		}
		bars = append(bars, distributionBar{Range: rng, Count: count, Percent: pct})
	}

	data := dashboardData{
		SearchTerm:    s.cfg.SearchTerm,
		TotalListings: len(scores),
		Stats:         stats,
		Top:           top,
		Bars:          bars,
		Weights:       s.cfg.Scoring.Weights,
	}
	s.renderHTML(w, indexTmpl, data)
}

const listingsPageSize = 20

type filterView struct {
	MinPrice, MaxPrice string
	MinYear, MaxYear   string
	MinKm, MaxKm       string
}

type listingsPageData struct {
	SearchTerm  string
	Listings    []model.Listing
	CurrentPage int
	TotalPages  int
	HasPrev     bool
	HasNext     bool
	PrevURL     string
	NextURL     string
	Filters     filterView
}

func (s *Server) handleListingsPage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := 1
	if n, err := strconv.Atoi(q.Get("page")); err == nil && n > 0 {
		page = n
	}

	f := repository.ListingFilter{
		OrderBy:   "score",
		OrderDesc: true,
		Offset:    (page - 1) * listingsPageSize,
		Limit:     listingsPageSize,
	}
	// Form input is hand-typed; unparseable filter values mean "no filter"
	// rather than an error page.
	f.MinPrice, _ = queryOptInt64(r, "min_price")
	f.MaxPrice, _ = queryOptInt64(r, "max_price")
	f.MinYear, _ = queryOptYear(r, "min_year")
	f.MaxYear, _ = queryOptYear(r, "max_year")
	f.MinKm, _ = queryOptInt64(r, "min_km")
	f.MaxKm, _ = queryOptInt64(r, "max_km")

	listings, err := s.listings.List(f)
	if err != nil {
		s.renderError(w, err)
		return
	}
	total, err := s.listings.Count()
	if err != nil {
		s.renderError(w, err)
		return
	}
	totalPages := (total + listingsPageSize - 1) / listingsPageSize

	data := listingsPageData{
		SearchTerm:  s.cfg.SearchTerm,
		Listings:    listings,
		CurrentPage: page,
		TotalPages:  totalPages,
		HasPrev:     page > 1,
		HasNext:     page < totalPages,
		PrevURL:     listingsPageURL(page-1, f),
		NextURL:     listingsPageURL(page+1, f),
		Filters: filterView{
			MinPrice: optStr64(f.MinPrice),
			MaxPrice: optStr64(f.MaxPrice),
			MinYear:  optStrInt(f.MinYear),
			MaxYear:  optStrInt(f.MaxYear),
			MinKm:    optStr64(f.MinKm),
			MaxKm:    optStr64(f.MaxKm),
		},
	}
	s.renderHTML(w, listingsTmpl, data)
}

func listingsPageURL(page int, f repository.ListingFilter) string {
	v := url.Values{}
	v.Set("page", strconv.Itoa(page))
	if f.MinPrice != nil {
		v.Set("min_price", strconv.FormatInt(*f.MinPrice, 10))
	}
	if f.MaxPrice != nil {
		v.Set("max_price", strconv.FormatInt(*f.MaxPrice, 10))
	}
	if f.MinYear != nil {
		v.Set("min_year", strconv.Itoa(*f.MinYear))
	}
	if f.MaxYear != nil {
		v.Set("max_year", strconv.Itoa(*f.MaxYear))
	}
	if f.MinKm != nil {
		v.Set("min_km", strconv.FormatInt(*f.MinKm, 10))
	}
	if f.MaxKm != nil {
		v.Set("max_km", strconv.FormatInt(*f.MaxKm, 10))
	}
	return "/listings?" + v.Encode()
}

func optStr64(p *int64) string {
	if p == nil {
		return ""
	}
	return strconv.FormatInt(*p, 10)
}

func optStrInt(p *int) string {
	if p == nil {
		return ""
	}
	return strconv.Itoa(*p)
}

func (s *Server) renderHTML(w http.ResponseWriter, tmpl *template.Template, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.Execute(w, data); err != nil {
		log.Error().Err(err).Str("template", tmpl.Name()).Msg("template render failed")
	}
}

func (s *Server) renderError(w http.ResponseWriter, err error) {
	log.Error().Err(err).Msg("dashboard render failed")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusInternalServerError)
	if terr := errorTmpl.Execute(w, map[string]string{
		"SearchTerm": s.cfg.SearchTerm,
		"Error":      err.Error(),
	}); terr != nil {
		log.Error().Err(terr).Msg("error page render failed")
	}
}

const indexTemplate = `<!DOCTYPE html>
<html lang="da">
<head>
<meta charset="utf-8">
<title>{{.SearchTerm}} Finder</title>
<style>
body { font-family: system-ui, sans-serif; margin: 0 auto; max-width: 960px; padding: 1rem; color: #222; }
header { display: flex; justify-content: space-between; align-items: baseline; border-bottom: 2px solid #b3202c; }
nav a { margin-left: 1rem; }
.cards { display: flex; gap: 1rem; margin: 1rem 0; }
.card { flex: 1; background: #f6f6f6; border-radius: 6px; padding: 0.8rem; text-align: center; }
.card .num { display: block; font-size: 1.8rem; font-weight: bold; }
table { border-collapse: collapse; width: 100%; }
th, td { text-align: left; padding: 0.4rem 0.6rem; border-bottom: 1px solid #ddd; }
td.score { font-weight: bold; color: #b3202c; }
.bar-row { display: flex; align-items: center; gap: 0.5rem; margin: 0.2rem 0; }
.bar-label { width: 4rem; }
.bar { background: #b3202c; height: 1rem; border-radius: 2px; }
footer { margin-top: 2rem; color: #777; font-size: 0.85rem; }
</style>
</head>
<body>
<header>
<h1>{{.SearchTerm}} Finder</h1>
<nav><a href="/">Dashboard</a><a href="/listings">Listings</a><a href="/api/v1/stats">API</a></nav>
</header>
<section class="cards">
<div class="card"><span class="num">{{.TotalListings}}</span>scored listings</div>
<div class="card"><span class="num">{{printf "%.1f" .Stats.MeanScore}}</span>mean score</div>
<div class="card"><span class="num">{{.Stats.MaxScore}}</span>best score</div>
<div class="card"><span class="num">{{.Stats.MinScore}}</span>worst score</div>
</section>
<section>
<h2>Score distribution</h2>
{{range .Bars}}<div class="bar-row"><span class="bar-label">{{.Range}}</span><div class="bar" style="width: {{.Percent}}%"></div><span>{{.Count}}</span></div>
{{end}}</section>
<section>
<h2>Top 10</h2>
<table>
<tr><th>Score</th><th>Listing</th><th>Price</th><th>Year</th><th>Km</th><th>Condition</th><th>Location</th></tr>
{{range .Top}}<tr>
<td class="score">{{fmtScore .Score}}</td>
<td><a href="{{.URL}}" target="_blank" rel="noopener">{{.Title}}</a></td>
<td>{{fmtPrice .PriceDKK}}</td>
<td>{{fmtYear .Year}}</td>
<td>{{fmtKm .Kilometers}}</td>
<td>{{.ConditionStr}}</td>
<td>{{.Location}}</td>
</tr>
{{else}}<tr><td colspan="7">No scored listings yet. Trigger a scrape via POST /api/v1/scrape.</td></tr>
{{end}}</table>
</section>
<footer>Weights: price {{printf "%.2f" .Weights.Price}}, year {{printf "%.2f" .Weights.Year}},
kilometers {{printf "%.2f" .Weights.Kilometers}}, condition {{printf "%.2f" .Weights.Condition}}</footer>
</body>
</html>
`

const listingsTemplate = `<!DOCTYPE html>
<html lang="da">
<head>
<meta charset="utf-8">
<title>{{.SearchTerm}} Finder - Listings</title>
<style>
body { font-family: system-ui, sans-serif; margin: 0 auto; max-width: 960px; padding: 1rem; color: #222; }
header { display: flex; justify-content: space-between; align-items: baseline; border-bottom: 2px solid #b3202c; }
nav a { margin-left: 1rem; }
form { display: flex; gap: 0.5rem; flex-wrap: wrap; margin: 1rem 0; }
form input { width: 7rem; padding: 0.3rem; }
table { border-collapse: collapse; width: 100%; }
th, td { text-align: left; padding: 0.4rem 0.6rem; border-bottom: 1px solid #ddd; }
td.score { font-weight: bold; color: #b3202c; }
.pager { display: flex; gap: 1rem; justify-content: center; margin: 1rem 0; }
</style>
</head>
<body>
<header>
<h1>{{.SearchTerm}} Finder</h1>
<nav><a href="/">Dashboard</a><a href="/listings">Listings</a><a href="/api/v1/stats">API</a></nav>
</header>
<form method="get" action="/listings">
<input name="min_price" placeholder="Min price" value="{{.Filters.MinPrice}}">
<input name="max_price" placeholder="Max price" value="{{.Filters.MaxPrice}}">
<input name="min_year" placeholder="Min year" value="{{.Filters.MinYear}}">
<input name="max_year" placeholder="Max year" value="{{.Filters.MaxYear}}">
<input name="min_km" placeholder="Min km" value="{{.Filters.MinKm}}">
<input name="max_km" placeholder="Max km" value="{{.Filters.MaxKm}}">
<button type="submit">Filter</button>
</form>
<table>
<tr><th>Score</th><th>Listing</th><th>Price</th><th>Year</th><th>Km</th><th>Condition</th><th>Location</th></tr>
{{range .Listings}}<tr>
<td class="score">{{fmtScore .Score}}</td>
<td><a href="{{.URL}}" target="_blank" rel="noopener">{{.Title}}</a></td>
<td>{{fmtPrice .PriceDKK}}</td>
<td>{{fmtYear .Year}}</td>
<td>{{fmtKm .Kilometers}}</td>
<td>{{.ConditionStr}}</td>
<td>{{.Location}}</td>
</tr>
{{else}}<tr><td colspan="7">No listings match the filters.</td></tr>
{{end}}</table>
<div class="pager">
{{if .HasPrev}}<a href="{{.PrevURL}}">&laquo; Previous</a>{{end}}
<span>Page {{.CurrentPage}} of {{.TotalPages}}</span>
{{if .HasNext}}<a href="{{.NextURL}}">Next &raquo;</a>{{end}}
</div>
</body>
</html>
`

const errorTemplate = `<!DOCTYPE html>
<html lang="da">
<head>
<meta charset="utf-8">
<title>{{.SearchTerm}} Finder - Error</title>
<style>
body { font-family: system-ui, sans-serif; margin: 0 auto; max-width: 960px; padding: 1rem; color: #222; }
.error { background: #fdecea; border: 1px solid #b3202c; border-radius: 6px; padding: 1rem; margin-top: 2rem; }
</style>
</head>
<body>
<h1>{{.SearchTerm}} Finder</h1>
<div class="error"><strong>Something went wrong.</strong><p>{{.Error}}</p></div>
<p><a href="/">Back to dashboard</a></p>
</body>
</html>
`
