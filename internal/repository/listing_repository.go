package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"pandafinder/internal/model"
)

// ErrNotFound is returned when a lookup matches no listing.
var ErrNotFound = errors.New("listing not found")

const listingColumns = `
	id, title, url, price_dkk, year, kilometers,
	COALESCE(condition_str, ''), condition_score, score,
	COALESCE(brand, ''), COALESCE(model, ''), COALESCE(fuel_type, ''),
	COALESCE(transmission, ''), COALESCE(body_type, ''), COALESCE(location, ''),
	COALESCE(dealer_name, ''), price_score, year_score, kilometers_score, fetched_at`

type ListingRepository struct {
	DB *sql.DB
}

type scannable interface {
	Scan(dest ...any) error
}

func scanListing(row scannable) (model.Listing, error) {
	var l model.Listing
	err := row.Scan(
		&l.ID, &l.Title, &l.URL, &l.PriceDKK, &l.Year, &l.Kilometers,
		&l.ConditionStr, &l.ConditionScore, &l.Score,
		&l.Brand, &l.Model, &l.FuelType,
		&l.Transmission, &l.BodyType, &l.Location,
		&l.DealerName, &l.PriceScore, &l.YearScore, &l.KilometersScore, &l.FetchedAt,
	)
	return l, err
}

// Upsert inserts the listing or, when its URL is already known, refreshes
// the scraped fields. Score columns are only touched by UpdateScores so a
// refresh never wipes an earlier scoring pass. Reports the row id and
// whether the listing is new.
func (r *ListingRepository) Upsert(l model.Listing) (int64, bool, error) {
	var id int64
	err := r.DB.QueryRow("SELECT id FROM listings WHERE url = $1", l.URL).Scan(&id)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, false, err
	}

	if errors.Is(err, sql.ErrNoRows) {
		err = r.DB.QueryRow(`
			INSERT INTO listings
			(title, url, price_dkk, year, kilometers, condition_str, condition_score,
			 brand, model, fuel_type, transmission, body_type, location, dealer_name, fetched_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
			RETURNING id
		`, l.Title, l.URL, l.PriceDKK, l.Year, l.Kilometers, l.ConditionStr, l.ConditionScore,
			l.Brand, l.Model, l.FuelType, l.Transmission, l.BodyType, l.Location,
			l.DealerName, l.FetchedAt).Scan(&id)
		if err != nil {
			return 0, false, err
		}
		return id, true, nil
	}

	_, err = r.DB.Exec(`
		UPDATE listings
		SET title = $1, price_dkk = $2, year = $3, kilometers = $4,
		    condition_str = $5, condition_score = $6, brand = $7, model = $8,
		    fuel_type = $9, transmission = $10, body_type = $11, location = $12,
		    dealer_name = $13, fetched_at = $14
		WHERE id = $15
	`, l.Title, l.PriceDKK, l.Year, l.Kilometers, l.ConditionStr, l.ConditionScore,
		l.Brand, l.Model, l.FuelType, l.Transmission, l.BodyType, l.Location,
		l.DealerName, l.FetchedAt, id)
	return id, false, err
}

func (r *ListingRepository) GetByID(id int64) (model.Listing, error) {
	row := r.DB.QueryRow(`SELECT `+listingColumns+` FROM listings WHERE id = $1`, id)
	l, err := scanListing(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Listing{}, ErrNotFound
	}
	return l, err
}

// ListingFilter narrows and orders a listing query. Nil bounds are open.
type ListingFilter struct {
	MinPrice  *int64
	MaxPrice  *int64
	MinYear   *int
	MaxYear   *int
	MinKm     *int64
	MaxKm     *int64
	OrderBy   string
	OrderDesc bool
	Offset    int
	Limit     int
}

// Columns callers may order by. Anything else falls back to score.
var orderColumns = map[string]string{
	"id":              "id",
	"title":           "title",
	"price_dkk":       "price_dkk",
	"year":            "year",
	"kilometers":      "kilometers",
	"condition_score": "condition_score",
	"score":           "score",
	"fetched_at":      "fetched_at",
}

func (r *ListingRepository) List(f ListingFilter) ([]model.Listing, error) {
	where := []string{"1=1"}
	var params []any
	idx := 1

	add := func(clause string, v any) {
		where = append(where, fmt.Sprintf(clause, idx))
		params = append(params, v)
		idx++
	}
	if f.MinPrice != nil {
		add("price_dkk >= $%d", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		add("price_dkk <= $%d", *f.MaxPrice)
	}
	if f.MinYear != nil {
		add("year >= $%d", *f.MinYear)
	}
	if f.MaxYear != nil {
		add("year <= $%d", *f.MaxYear)
	}
	if f.MinKm != nil {
		add("kilometers >= $%d", *f.MinKm)
	}
	if f.MaxKm != nil {
		add("kilometers <= $%d", *f.MaxKm)
	}

	col, ok := orderColumns[f.OrderBy]
	if !ok {
		col = "score"
	}
	dir := "ASC"
	if f.OrderDesc {
		dir = "DESC"
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	params = append(params, limit, f.Offset)

	query := fmt.Sprintf(`
		SELECT %s
		FROM listings
		WHERE %s
		ORDER BY %s %s NULLS LAST, id ASC
		LIMIT $%d OFFSET $%d
	`, listingColumns, strings.Join(where, " AND "), col, dir, idx, idx+1)

	return r.queryListings(query, params...)
}

// All returns every listing, oldest row first. Used by scoring passes,
// which are batch-relative and need the full population.
func (r *ListingRepository) All() ([]model.Listing, error) {
	return r.queryListings(`SELECT ` + listingColumns + ` FROM listings ORDER BY id`)
}

// Top returns the best scored listings, leaving out unscored rows.
func (r *ListingRepository) Top(limit int) ([]model.Listing, error) {
	return r.queryListings(`
		SELECT `+listingColumns+`
		FROM listings
		WHERE score IS NOT NULL
		ORDER BY score DESC, id ASC
		LIMIT $1
	`, limit)
}

// UpdateScores persists the outcome of a scoring pass in one transaction.
// Condition scores come from the ad text, not the batch, so they are left
// untouched here.
func (r *ListingRepository) UpdateScores(listings []model.Listing) error {
	tx, err := r.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		UPDATE listings
		SET score = $1, price_score = $2, year_score = $3, kilometers_score = $4
		WHERE id = $5
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, l := range listings {
		if _, err := stmt.Exec(l.Score, l.PriceScore, l.YearScore, l.KilometersScore, l.ID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ScoreStats mirrors the shape served by the distribution endpoint.
type ScoreStats struct {
	MinScore      int            `json:"min_score"`
	MaxScore      int            `json:"max_score"`
	MeanScore     float64        `json:"mean_score"`
	TotalListings int            `json:"total_listings"`
	ScoreRanges   map[string]int `json:"score_ranges"`
}

func (r *ListingRepository) ScoreStats() (ScoreStats, error) {
	stats := ScoreStats{ScoreRanges: map[string]int{}}

	var minScore, maxScore sql.NullInt64
	var mean sql.NullFloat64
	var count int
	err := r.DB.QueryRow(`
		SELECT MIN(score), MAX(score), AVG(score), COUNT(score)
		FROM listings
		WHERE score IS NOT NULL
	`).Scan(&minScore, &maxScore, &mean, &count)
	if err != nil {
		return stats, err
	}
	if count == 0 {
		return stats, nil
	}
	stats.MinScore = int(minScore.Int64)
	stats.MaxScore = int(maxScore.Int64)
	stats.MeanScore = mean.Float64
	stats.TotalListings = count

	rows, err := r.DB.Query(`
		SELECT CASE
			WHEN score < 20 THEN '0-19'
			WHEN score < 40 THEN '20-39'
			WHEN score < 60 THEN '40-59'
			WHEN score < 80 THEN '60-79'
			ELSE '80-100'
		END AS score_range, COUNT(*)
		FROM listings
		WHERE score IS NOT NULL
		GROUP BY score_range
		ORDER BY score_range
	`)
	if err != nil {
		return stats, err
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		var n int
		if err := rows.Scan(&name, &n); err != nil {
			return stats, err
		}
		stats.ScoreRanges[name] = n
	}
	return stats, rows.Err()
}

// AllScores returns every non-null score, for plotting distributions.
func (r *ListingRepository) AllScores() ([]int, error) {
	rows, err := r.DB.Query(`SELECT score FROM listings WHERE score IS NOT NULL`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scores []int
	for rows.Next() {
		var s int
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		scores = append(scores, s)
	}
	return scores, rows.Err()
}

func (r *ListingRepository) Count() (int, error) {
	var n int
	err := r.DB.QueryRow(`SELECT COUNT(*) FROM listings`).Scan(&n)
	return n, err
}

// DeleteOlderThan removes listings whose last fetch is more than the given
// number of days ago and reports how many rows went away.
func (r *ListingRepository) DeleteOlderThan(days int) (int64, error) {
	res, err := r.DB.Exec(`
		DELETE FROM listings
		WHERE fetched_at < now() - make_interval(days => $1)
	`, days)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *ListingRepository) queryListings(query string, args ...any) ([]model.Listing, error) {
	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []model.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, l)
	}
	return list, rows.Err()
}
