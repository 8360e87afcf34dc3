package scoring

import (
	"errors"
	"math"
	"sort"

	"pandafinder/internal/model"
)

// ErrNoScores is returned by Summarize when the batch holds no scored listings.
var ErrNoScores = errors.New("no scored listings")

// Stats are the basic descriptive statistics of the final scores in a batch.
type Stats struct {
	Min    int     `json:"min"`
	Max    int     `json:"max"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Std    float64 `json:"std"`
}

// Breakdown is the analysis view served by /api/v1/scores/breakdown.
type Breakdown struct {
	TotalListings  int             `json:"total_listings"`
	ScoredListings int             `json:"scored_listings"`
	Statistics     Stats           `json:"statistics"`
	ScoreRanges    map[string]int  `json:"score_ranges"`
	Top10          []model.Listing `json:"top_10"`
}

// ScoreRange buckets a final score the way the dashboard histogram does.
func ScoreRange(score int) string {
	switch {
	case score < 20:
		return "0-19"
	case score < 40:
		return "20-39"
	case score < 60:
		return "40-59"
	case score < 80:
		return "60-79"
	default:
		return "80-100"
	}
}

// Summarize computes score statistics, the range histogram, and the top
// ten listings over an already-scored batch. Listings with a nil Score
// count toward TotalListings only.
func Summarize(listings []model.Listing) (*Breakdown, error) {
	scored := make([]model.Listing, 0, len(listings))
	for _, l := range listings {
		if l.Score != nil {
			scored = append(scored, l)
		}
	}
	if len(scored) == 0 {
		return nil, ErrNoScores
	}

	scores := make([]float64, len(scored))
	ranges := map[string]int{}
	for i, l := range scored {
		scores[i] = float64(*l.Score)
		ranges[ScoreRange(*l.Score)]++
	}
	sort.Float64s(scores)

	var sum float64
	for _, s := range scores {
		sum += s
	}
	mean := sum / float64(len(scores))

	std := 0.0
	if len(scores) > 1 {
		var sq float64
		for _, s := range scores {
			d := s - mean
			sq += d * d
		}
		std = math.Sqrt(sq / float64(len(scores)-1))
	}

	median := scores[len(scores)/2]
	if len(scores)%2 == 0 {
		median = (scores[len(scores)/2-1] + scores[len(scores)/2]) / 2
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return *scored[i].Score > *scored[j].Score
	})
	top := scored
	if len(top) > 10 {
		top = top[:10]
	}

	return &Breakdown{
		TotalListings:  len(listings),
		ScoredListings: len(scored),
		Statistics: Stats{
			Min:    int(scores[0]),
			Max:    int(scores[len(scores)-1]),
			Mean:   mean,
			Median: median,
			Std:    std,
		},
		ScoreRanges: ranges,
		Top10:       top,
	}, nil
}
