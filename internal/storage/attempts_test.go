package storage

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	pq "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datahunt/pkg/types"
)

var insertAttempt = regexp.QuoteMeta("INSERT INTO traversal_attempts")

func sampleAttempt() Attempt {
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return Attempt{
		RunID:    "run-1",
		Query:    "city populations",
		StartURL: "https://data.example.gov/",
		Outcome: types.Outcome{
			Kind:  types.OutcomeFileFound,
			URL:   "https://data.example.gov/cities.csv",
			Depth: 1,
			Trail: []types.Hop{
				{URL: "https://data.example.gov/", Kind: types.HopPage},
				{URL: "https://data.example.gov/cities.csv", Kind: types.HopFile, Depth: 1, Extension: "csv"},
			},
		},
		DownloadPath: "downloads/cities.csv",
		StartedAt:    started,
		FinishedAt:   started.Add(3 * time.Second),
	}
}

func TestSaveAttempt(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	a := sampleAttempt()
	mock.ExpectExec(insertAttempt).
		WithArgs("run-1", "city populations", "https://data.example.gov/", "file_found",
			"https://data.example.gov/cities.csv", nil, 1, sqlmock.AnyArg(), "downloads/cities.csv",
			a.StartedAt, a.FinishedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))

	w := NewSQLWriterFromDB(db, false)
	require.NoError(t, w.SaveAttempt(context.Background(), a))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveAttemptCreatesMissingTable(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(insertAttempt).WillReturnError(&pq.Error{Code: "42P01", Message: `relation "traversal_attempts" does not exist`})
	for range schemaStatements {
		mock.ExpectExec("CREATE").WillReturnResult(sqlmock.NewResult(0, 0))
	}
	mock.ExpectExec(insertAttempt).WillReturnResult(sqlmock.NewResult(1, 1))

	w := NewSQLWriterFromDB(db, true)
	require.NoError(t, w.SaveAttempt(context.Background(), sampleAttempt()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveAttemptPropagatesErrors(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(insertAttempt).WillReturnError(errors.New("disk full"))

	w := NewSQLWriterFromDB(db, true)
	err = w.SaveAttempt(context.Background(), sampleAttempt())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttemptsForRun(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"run_id", "query", "start_url", "outcome", "final_url", "cause", "depth", "trail", "download_path", "started_at", "finished_at"}).
		AddRow("run-1", "q", "https://a.example/", "fetch_failed", "https://a.example/x.csv", "status 500", 0,
			[]byte(`[{"url":"https://a.example/","kind":"page","depth":0}]`), nil, started, started).
		AddRow("run-1", "q", "https://b.example/", "file_found", "https://b.example/y.csv", nil, 2,
			[]byte(`[]`), "downloads/y.csv", started, started)
	mock.ExpectQuery(regexp.QuoteMeta("FROM traversal_attempts")).WithArgs("run-1").WillReturnRows(rows)

	w := NewSQLWriterFromDB(db, false)
	attempts, err := w.AttemptsForRun(context.Background(), "run-1")
	require.NoError(t, err)
	require.Len(t, attempts, 2)

	assert.Equal(t, types.OutcomeFetchFailed, attempts[0].Outcome.Kind)
	assert.Equal(t, "status 500", attempts[0].Cause)
	require.Len(t, attempts[0].Outcome.Trail, 1)
	assert.Equal(t, types.HopPage, attempts[0].Outcome.Trail[0].Kind)

	assert.Equal(t, "downloads/y.csv", attempts[1].DownloadPath)
	assert.Equal(t, 2, attempts[1].Outcome.Depth)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNilWriterIsNoop(t *testing.T) {
	var w *SQLWriter
	require.NoError(t, w.SaveAttempt(context.Background(), sampleAttempt()))
	require.NoError(t, w.Close())
	_, err := w.AttemptsForRun(context.Background(), "x")
	require.Error(t, err)
}

func TestIsUndefinedTableErr(t *testing.T) {
	assert.True(t, isUndefinedTableErr(&pq.Error{Code: "42P01"}))
	assert.True(t, isUndefinedTableErr(errors.New(`pq: relation "x" does not exist`)))
	assert.False(t, isUndefinedTableErr(errors.New("timeout")))
	assert.True(t, shouldAttemptCreateDatabase("postgres", &pq.Error{Code: "3D000"}))
	assert.False(t, shouldAttemptCreateDatabase("mysql", errors.New("does not exist")))
}
