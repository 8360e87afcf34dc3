package repository

import (
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pandafinder/internal/model"
)

var listingColumnNames = []string{
	"id", "title", "url", "price_dkk", "year", "kilometers",
	"condition_str", "condition_score", "score",
	"brand", "model", "fuel_type",
	"transmission", "body_type", "location",
	"dealer_name", "price_score", "year_score", "kilometers_score", "fetched_at",
}

func newMockRepo(t *testing.T) (*ListingRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &ListingRepository{DB: db}, mock
}

func TestUpsert_InsertsUnknownURL(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT id FROM listings WHERE url").
		WithArgs("https://www.bilbasen.dk/brugt/bil/fiat-panda/1").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("INSERT INTO listings").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	price := int64(49900)
	id, created, err := repo.Upsert(model.Listing{
		Title:     "Fiat Panda 1,2",
		URL:       "https://www.bilbasen.dk/brugt/bil/fiat-panda/1",
		PriceDKK:  &price,
		FetchedAt: time.Now(),
	})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(7), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsert_RefreshesKnownURL(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT id FROM listings WHERE url").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(3)))
	mock.ExpectExec("UPDATE listings").
		WillReturnResult(sqlmock.NewResult(0, 1))

	id, created, err := repo.Upsert(model.Listing{
		Title: "Fiat Panda 0,9",
		URL:   "https://www.bilbasen.dk/brugt/bil/fiat-panda/2",
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, int64(3), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByID_MapsNoRowsToNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT .* FROM listings WHERE id").
		WithArgs(int64(42)).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(42)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByID_ScansNullColumnsToNilPointers(t *testing.T) {
	repo, mock := newMockRepo(t)

	fetched := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(listingColumnNames).AddRow(
		int64(5), "Fiat Panda", "https://www.bilbasen.dk/brugt/bil/fiat-panda/5",
		nil, nil, int64(86000),
		"Pæn stand", 0.7, nil,
		"Fiat", "Panda", "Benzin",
		"Manuel", "", "5000 Odense",
		"", nil, nil, nil, fetched,
	)
	mock.ExpectQuery("SELECT .* FROM listings WHERE id").
		WithArgs(int64(5)).
		WillReturnRows(rows)

	l, err := repo.GetByID(5)
	require.NoError(t, err)
	assert.Nil(t, l.PriceDKK)
	assert.Nil(t, l.Year)
	assert.Nil(t, l.Score)
	assert.Nil(t, l.PriceScore)
	require.NotNil(t, l.Kilometers)
	assert.Equal(t, int64(86000), *l.Kilometers)
	require.NotNil(t, l.ConditionScore)
	assert.InDelta(t, 0.7, *l.ConditionScore, 1e-9)
	assert.Equal(t, "Pæn stand", l.ConditionStr)
	assert.Equal(t, fetched, l.FetchedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestList_BuildsFilterClausesInOrder(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`price_dkk >= \$1 AND year <= \$2`).
		WithArgs(int64(20000), 2018, 50, 10).
		WillReturnRows(sqlmock.NewRows(listingColumnNames))

	minPrice := int64(20000)
	maxYear := 2018
	_, err := repo.List(ListingFilter{
		MinPrice:  &minPrice,
		MaxYear:   &maxYear,
		OrderBy:   "price_dkk",
		OrderDesc: false,
		Offset:    10,
		Limit:     50,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestList_UnknownOrderColumnFallsBackToScore(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`ORDER BY score DESC NULLS LAST`).
		WithArgs(100, 0).
		WillReturnRows(sqlmock.NewRows(listingColumnNames))

	_, err := repo.List(ListingFilter{OrderBy: "url; DROP TABLE listings", OrderDesc: true})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTop_FiltersUnscoredRows(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`WHERE score IS NOT NULL\s+ORDER BY score DESC`).
		WithArgs(10).
		WillReturnRows(sqlmock.NewRows(listingColumnNames))

	_, err := repo.Top(10)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateScores_RunsInOneTransaction(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	prep := mock.ExpectPrepare("UPDATE listings")
	prep.ExpectExec().
		WithArgs(46, 1.0, 0.0, 0.0, int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().
		WithArgs(58, 0.0, 1.0, 1.0, int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	mkScored := func(id int64, score int, ps, ys, ks float64) model.Listing {
		return model.Listing{
			ID: id, Score: &score,
			PriceScore: &ps, YearScore: &ys, KilometersScore: &ks,
		}
	}
	err := repo.UpdateScores([]model.Listing{
		mkScored(1, 46, 1.0, 0.0, 0.0),
		mkScored(2, 58, 0.0, 1.0, 1.0),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScoreStats_EmptyTable(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT MIN\(score\), MAX\(score\), AVG\(score\), COUNT\(score\)`).
		WillReturnRows(sqlmock.NewRows([]string{"min", "max", "avg", "count"}).
			AddRow(nil, nil, nil, 0))

	stats, err := repo.ScoreStats()
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalListings)
	assert.Empty(t, stats.ScoreRanges)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScoreStats_AggregatesAndRanges(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT MIN\(score\), MAX\(score\), AVG\(score\), COUNT\(score\)`).
		WillReturnRows(sqlmock.NewRows([]string{"min", "max", "avg", "count"}).
			AddRow(12, 91, 55.5, 4))
	mock.ExpectQuery(`GROUP BY score_range`).
		WillReturnRows(sqlmock.NewRows([]string{"score_range", "count"}).
			AddRow("0-19", 1).
			AddRow("40-59", 2).
			AddRow("80-100", 1))

	stats, err := repo.ScoreStats()
	require.NoError(t, err)
	assert.Equal(t, 12, stats.MinScore)
	assert.Equal(t, 91, stats.MaxScore)
	assert.InDelta(t, 55.5, stats.MeanScore, 1e-9)
	assert.Equal(t, 4, stats.TotalListings)
	assert.Equal(t, map[string]int{"0-19": 1, "40-59": 2, "80-100": 1}, stats.ScoreRanges)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteOlderThan_ReportsRowCount(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("DELETE FROM listings").
		WithArgs(7).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.DeleteOlderThan(7)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
