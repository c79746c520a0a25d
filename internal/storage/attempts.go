package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"datahunt/pkg/types"
)

// Attempt is one traversal from one start URL within a hunt.
type Attempt struct {
	RunID        string        `json:"run_id"`
	Query        string        `json:"query"`
	StartURL     string        `json:"start_url"`
	Outcome      types.Outcome `json:"outcome"`
	Cause        string        `json:"cause,omitempty"`
	DownloadPath string        `json:"download_path,omitempty"`
	StartedAt    time.Time     `json:"started_at"`
	FinishedAt   time.Time     `json:"finished_at"`
}

// RunLog records attempts.
type RunLog interface {
	SaveAttempt(ctx context.Context, a Attempt) error
}

// SaveAttempt inserts a row into traversal_attempts.
func (s *SQLWriter) SaveAttempt(ctx context.Context, a Attempt) error {
	if s == nil || s.db == nil {
		return nil
	}
	trail := a.Outcome.Trail
	if trail == nil {
		trail = []types.Hop{}
	}
	trailJSON, err := json.Marshal(trail)
	if err != nil {
		return fmt.Errorf("encode trail: %w", err)
	}
	cause := a.Cause
	if cause == "" {
		cause = a.Outcome.CauseString()
	}

	const query = `
        INSERT INTO traversal_attempts
            (run_id, query, start_url, outcome, final_url, cause, depth, trail, download_path, started_at, finished_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
    `
	err = s.withSchemaRetry(ctx, func() error {
		_, err := s.db.ExecContext(ctx, query,
			a.RunID,
			a.Query,
			a.StartURL,
			string(a.Outcome.Kind),
			nullString(a.Outcome.URL),
			nullString(cause),
			a.Outcome.Depth,
			trailJSON,
			nullString(a.DownloadPath),
			a.StartedAt.UTC(),
			a.FinishedAt.UTC(),
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}
	return nil
}

// AttemptsForRun returns the attempts of a hunt in the order they ran.
func (s *SQLWriter) AttemptsForRun(ctx context.Context, runID string) ([]Attempt, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("sql store not initialised")
	}
	const query = `
        SELECT run_id, query, start_url, outcome, final_url, cause, depth, trail, download_path, started_at, finished_at
        FROM traversal_attempts
        WHERE run_id = $1
        ORDER BY id ASC
    `
	rows, err := s.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	var attempts []Attempt
	for rows.Next() {
		var (
			a                       Attempt
			kind                    string
			finalURL, cause, dlPath sql.NullString
			trailJSON               []byte
		)
		if err := rows.Scan(&a.RunID, &a.Query, &a.StartURL, &kind, &finalURL, &cause,
			&a.Outcome.Depth, &trailJSON, &dlPath, &a.StartedAt, &a.FinishedAt); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		a.Outcome.Kind = types.OutcomeKind(kind)
		a.Outcome.URL = finalURL.String
		a.Cause = cause.String
		a.DownloadPath = dlPath.String
		if len(trailJSON) > 0 {
			if err := json.Unmarshal(trailJSON, &a.Outcome.Trail); err != nil {
				return nil, fmt.Errorf("decode trail: %w", err)
			}
		}
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attempts: %w", err)
	}
	return attempts, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
