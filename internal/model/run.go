package model

import "time"

// ScoreRun records one pass of the scoring engine over the stored listings.
type ScoreRun struct {
	ID             string    `json:"id"`
	Trigger        string    `json:"trigger"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
	ListingsTotal  int       `json:"listings_total"`
	ListingsScored int       `json:"listings_scored"`
	MeanScore      float64   `json:"mean_score"`
}
