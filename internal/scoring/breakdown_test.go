package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pandafinder/internal/model"
)

func scoredListing(id int64, score int) model.Listing {
	return model.Listing{ID: id, Score: intp(score)}
}

func TestScoreRange_Buckets(t *testing.T) {
	cases := map[int]string{
		0: "0-19", 19: "0-19",
		20: "20-39", 39: "20-39",
		40: "40-59", 59: "40-59",
		60: "60-79", 79: "60-79",
		80: "80-100", 100: "80-100",
	}
	for score, want := range cases {
		assert.Equal(t, want, ScoreRange(score), "score %d", score)
	}
}

func TestSummarize_EmptyAndUnscored(t *testing.T) {
	_, err := Summarize(nil)
	assert.ErrorIs(t, err, ErrNoScores)

	_, err = Summarize([]model.Listing{{ID: 1}, {ID: 2}})
	assert.ErrorIs(t, err, ErrNoScores)
}

func TestSummarize_Statistics(t *testing.T) {
	listings := []model.Listing{
		scoredListing(1, 10),
		scoredListing(2, 30),
		scoredListing(3, 50),
		scoredListing(4, 70),
		{ID: 5}, // never scored
	}

	b, err := Summarize(listings)
	require.NoError(t, err)

	assert.Equal(t, 5, b.TotalListings)
	assert.Equal(t, 4, b.ScoredListings)
	assert.Equal(t, 10, b.Statistics.Min)
	assert.Equal(t, 70, b.Statistics.Max)
	assert.Equal(t, 40.0, b.Statistics.Mean)
	assert.Equal(t, 40.0, b.Statistics.Median)
	// Sample standard deviation of 10,30,50,70.
	assert.InDelta(t, 25.82, b.Statistics.Std, 0.01)

	assert.Equal(t, map[string]int{
		"0-19":  1,
		"20-39": 1,
		"40-59": 1,
		"60-79": 1,
	}, b.ScoreRanges)
}

func TestSummarize_TopTenOrderedByScore(t *testing.T) {
	var listings []model.Listing
	for i := 1; i <= 14; i++ {
		listings = append(listings, scoredListing(int64(i), i*7))
	}

	b, err := Summarize(listings)
	require.NoError(t, err)

	require.Len(t, b.Top10, 10)
	assert.Equal(t, int64(14), b.Top10[0].ID)
	for i := 1; i < len(b.Top10); i++ {
		assert.GreaterOrEqual(t, *b.Top10[i-1].Score, *b.Top10[i].Score)
	}
}

func TestSummarize_SingleListing(t *testing.T) {
	b, err := Summarize([]model.Listing{scoredListing(1, 42)})
	require.NoError(t, err)

	assert.Equal(t, 42, b.Statistics.Min)
	assert.Equal(t, 42, b.Statistics.Max)
	assert.Equal(t, 42.0, b.Statistics.Mean)
	assert.Equal(t, 42.0, b.Statistics.Median)
	assert.Equal(t, 0.0, b.Statistics.Std)
	assert.Len(t, b.Top10, 1)
}
