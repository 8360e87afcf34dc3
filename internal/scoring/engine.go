package scoring

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"pandafinder/internal/model"
)

// ErrInvalidConfig marks configuration rejected at engine construction.
var ErrInvalidConfig = errors.New("invalid scoring config")

// Weights blend the four sub-scores into the final score.
// They must sum to 1.0 within weightTolerance.
type Weights struct {
	Price      float64 `yaml:"price" json:"price"`
	Year       float64 `yaml:"year" json:"year"`
	Kilometers float64 `yaml:"kilometers" json:"kilometers"`
	Condition  float64 `yaml:"condition" json:"condition"`
}

func DefaultWeights() Weights {
	return Weights{Price: 0.40, Year: 0.25, Kilometers: 0.25, Condition: 0.10}
}

func (w Weights) Sum() float64 {
	return w.Price + w.Year + w.Kilometers + w.Condition
}

// Config fixes the blend weights and winsorization percentiles for an Engine.
type Config struct {
	Weights           Weights `yaml:"weights" json:"weights"`
	WinsorizeLowerPct float64 `yaml:"winsorize_lower_pct" json:"winsorize_lower_pct"`
	WinsorizeUpperPct float64 `yaml:"winsorize_upper_pct" json:"winsorize_upper_pct"`
}

func DefaultConfig() Config {
	return Config{
		Weights:           DefaultWeights(),
		WinsorizeLowerPct: 5,
		WinsorizeUpperPct: 95,
	}
}

const weightTolerance = 0.01

func (c Config) Validate() error {
	for _, w := range []float64{c.Weights.Price, c.Weights.Year, c.Weights.Kilometers, c.Weights.Condition} {
		if w < 0 {
			return fmt.Errorf("%w: negative weight %g", ErrInvalidConfig, w)
		}
	}
	if sum := c.Weights.Sum(); math.Abs(sum-1.0) > weightTolerance {
		return fmt.Errorf("%w: weights must sum to 1.0, got %.3f", ErrInvalidConfig, sum)
	}
	if c.WinsorizeLowerPct < 0 || c.WinsorizeUpperPct > 100 || c.WinsorizeLowerPct >= c.WinsorizeUpperPct {
		return fmt.Errorf("%w: winsorize percentiles %g/%g out of range", ErrInvalidConfig,
			c.WinsorizeLowerPct, c.WinsorizeUpperPct)
	}
	return nil
}

// Result carries the four sub-scores in [0,1] and the final 0-100 score
// for one listing.
type Result struct {
	PriceScore      float64 `json:"price_score"`
	YearScore       float64 `json:"year_score"`
	KilometersScore float64 `json:"kilometers_score"`
	ConditionScore  float64 `json:"condition_score"`
	Score           int     `json:"score"`
}

// Engine scores batches of listings relative to each other. It holds no
// state beyond its validated config and does no I/O, so one engine can
// score disjoint batches from any number of goroutines.
type Engine struct {
	cfg Config
}

// NewEngine validates cfg once and returns a ready engine. A weight set
// that does not sum to 1.0 or inverted percentile bounds fail here, never
// later during scoring.
func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg}, nil
}

func (e *Engine) Config() Config { return e.cfg }

// Score produces one Result per listing, in input order. Winsorization
// bounds and min/max come from this batch alone, so the same listing can
// score differently in a different batch. Missing or negative price/km
// values are excluded from the bounds and the listing gets the neutral
// 0.5 in that dimension; missing data never fails a batch.
func (e *Engine) Score(listings []model.Listing) []Result {
	n := len(listings)
	if n == 0 {
		return nil
	}

	price := make([]float64, n)
	priceOK := make([]bool, n)
	year := make([]float64, n)
	yearOK := make([]bool, n)
	km := make([]float64, n)
	kmOK := make([]bool, n)

	for i := range listings {
		l := &listings[i]
		if l.PriceDKK != nil && *l.PriceDKK >= 0 {
			price[i] = float64(*l.PriceDKK)
			priceOK[i] = true
		}
		if l.Year != nil {
			year[i] = float64(*l.Year)
			yearOK[i] = true
		}
		if l.Kilometers != nil && *l.Kilometers >= 0 {
			km[i] = float64(*l.Kilometers)
			kmOK[i] = true
		}
	}

	priceScore := e.scoreDimension(price, priceOK, true)
	yearScore := e.scoreDimension(year, yearOK, false)
	kmScore := e.scoreDimension(km, kmOK, true)

	w := e.cfg.Weights
	out := make([]Result, n)
	for i := range listings {
		cond := 0.5
		if c := listings[i].ConditionScore; c != nil {
			cond = clamp01(*c)
		}
		blend := w.Price*priceScore[i] +
			w.Year*yearScore[i] +
			w.Kilometers*kmScore[i] +
			w.Condition*cond
		out[i] = Result{
			PriceScore:      priceScore[i],
			YearScore:       yearScore[i],
			KilometersScore: kmScore[i],
			ConditionScore:  cond,
			Score:           finalScore(blend),
		}
	}
	return out
}

// scoreDimension winsorizes the valid values of one dimension to the
// configured percentile band, min-max normalizes them over the batch, and
// inverts when lower raw values are better. Entries with ok=false, and
// every entry when the winsorized band collapses to a point, get 0.5.
func (e *Engine) scoreDimension(values []float64, ok []bool, lowerIsBetter bool) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		out[i] = 0.5
	}

	valid := make([]float64, 0, len(values))
	for i, v := range values {
		if ok[i] {
			valid = append(valid, v)
		}
	}
	if len(valid) == 0 {
		return out
	}

	sorted := append([]float64(nil), valid...)
	sort.Float64s(sorted)
	lo := interpolatePercentile(sorted, e.cfg.WinsorizeLowerPct)
	hi := interpolatePercentile(sorted, e.cfg.WinsorizeUpperPct)

	if hi-lo < 1e-12 {
		return out
	}

	for i, v := range values {
		if !ok[i] {
			continue
		}
		s := (clampToRange(v, lo, hi) - lo) / (hi - lo)
		if lowerIsBetter {
			s = 1.0 - s
		}
		out[i] = s
	}
	return out
}

// interpolatePercentile returns the p-th percentile of sortedValues using
// linear interpolation between the two nearest order statistics.
func interpolatePercentile(sortedValues []float64, p float64) float64 {
	if len(sortedValues) == 1 {
		return sortedValues[0]
	}

	index := (p / 100.0) * float64(len(sortedValues)-1)
	lower := int(math.Floor(index))
	upper := int(math.Ceil(index))

	if lower == upper {
		return sortedValues[lower]
	}

	weight := index - float64(lower)
	return sortedValues[lower]*(1-weight) + sortedValues[upper]*weight
}

func clampToRange(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clamp01(v float64) float64 {
	return clampToRange(v, 0, 1)
}

func finalScore(blend float64) int {
	s := int(math.Round(blend * 100))
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}
