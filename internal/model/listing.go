package model

import "time"

// Listing is one Bilbasen ad as stored in Postgres. Pointer fields are
// nil when the source page carried no parseable value; Score and the
// per-dimension sub-scores stay nil until a scoring run has seen the row.
type Listing struct {
	ID             int64    `json:"id"`
	Title          string   `json:"title"`
	URL            string   `json:"url"`
	PriceDKK       *int64   `json:"price_dkk"`
	Year           *int     `json:"year"`
	Kilometers     *int64   `json:"kilometers"`
	ConditionStr   string   `json:"condition_str"`
	ConditionScore *float64 `json:"condition_score"`
	Score          *int     `json:"score"`

	Brand        string `json:"brand,omitempty"`
	Model        string `json:"model,omitempty"`
	FuelType     string `json:"fuel_type,omitempty"`
	Transmission string `json:"transmission,omitempty"`
	BodyType     string `json:"body_type,omitempty"`
	Location     string `json:"location,omitempty"`
	DealerName   string `json:"dealer_name,omitempty"`

	PriceScore      *float64 `json:"price_score"`
	YearScore       *float64 `json:"year_score"`
	KilometersScore *float64 `json:"kilometers_score"`

	FetchedAt time.Time `json:"fetched_at"`
}
