// Package storage persists traversal attempts to a relational run log.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	pq "github.com/lib/pq"

	"datahunt/internal/config"
)

// SQLWriter writes attempts to Postgres through database/sql.
type SQLWriter struct {
	db          *sql.DB
	autoMigrate bool
}

// NewSQLWriter opens and pings the database, creating it and the schema
// when configured to.
func NewSQLWriter(cfg config.SQLConfig) (*SQLWriter, error) {
	if cfg.Driver == "" || cfg.DSN == "" {
		return nil, errors.New("sql config missing driver or dsn")
	}
	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open sql connection: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		if !cfg.CreateIfMissing || !shouldAttemptCreateDatabase(cfg.Driver, err) {
			_ = db.Close()
			return nil, fmt.Errorf("ping sql connection: %w", err)
		}
		_ = db.Close()
		if err := createDatabase(ctx, cfg); err != nil {
			return nil, err
		}
		if db, err = sql.Open(cfg.Driver, cfg.DSN); err != nil {
			return nil, fmt.Errorf("open sql connection: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ping sql connection: %w", err)
		}
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime.Duration > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime.Duration)
	}

	writer := NewSQLWriterFromDB(db, cfg.AutoMigrate)
	if err := writer.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return writer, nil
}

// NewSQLWriterFromDB wraps an already open handle.
func NewSQLWriterFromDB(db *sql.DB, autoMigrate bool) *SQLWriter {
	return &SQLWriter{db: db, autoMigrate: autoMigrate}
}

// Close closes the underlying DB connection.
func (s *SQLWriter) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// withSchemaRetry runs op and, when the table is missing and migrations are
// enabled, creates the schema and runs it once more.
func (s *SQLWriter) withSchemaRetry(ctx context.Context, op func() error) error {
	err := op()
	if err == nil || !s.autoMigrate || !isUndefinedTableErr(err) {
		return err
	}
	if schemaErr := s.ensureSchema(ctx); schemaErr != nil {
		return fmt.Errorf("ensure schema: %w", schemaErr)
	}
	return op()
}

func shouldAttemptCreateDatabase(driver string, err error) bool {
	if !strings.EqualFold(driver, "postgres") {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "3D000"
	}
	return strings.Contains(strings.ToLower(err.Error()), "does not exist")
}

func createDatabase(ctx context.Context, cfg config.SQLConfig) error {
	parsed, err := url.Parse(cfg.DSN)
	if err != nil {
		return fmt.Errorf("parse dsn: %w", err)
	}
	dbName := strings.TrimPrefix(parsed.Path, "/")
	if dbName == "" {
		return errors.New("dsn missing database name")
	}
	if strings.EqualFold(dbName, "postgres") {
		return fmt.Errorf("target database %q cannot be auto-created", dbName)
	}
	parsed.Path = "/postgres"
	adminDB, err := sql.Open(cfg.Driver, parsed.String())
	if err != nil {
		return fmt.Errorf("connect admin database: %w", err)
	}
	defer adminDB.Close()
	if err := adminDB.PingContext(ctx); err != nil {
		return fmt.Errorf("ping admin database: %w", err)
	}
	stmt := fmt.Sprintf("CREATE DATABASE %s", pq.QuoteIdentifier(dbName))
	if _, err := adminDB.ExecContext(ctx, stmt); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "42P04" {
			return nil
		}
		return fmt.Errorf("create database %q: %w", dbName, err)
	}
	return nil
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS traversal_attempts (
	    id BIGSERIAL PRIMARY KEY,
	    run_id TEXT NOT NULL,
	    query TEXT NOT NULL,
	    start_url TEXT NOT NULL,
	    outcome TEXT NOT NULL,
	    final_url TEXT,
	    cause TEXT,
	    depth INT NOT NULL,
	    trail JSONB NOT NULL,
	    download_path TEXT,
	    started_at TIMESTAMPTZ NOT NULL,
	    finished_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_traversal_attempts_run ON traversal_attempts (run_id)`,
	`CREATE INDEX IF NOT EXISTS idx_traversal_attempts_finished ON traversal_attempts (finished_at DESC)`,
}

func (s *SQLWriter) ensureSchema(ctx context.Context) error {
	if s == nil || s.db == nil || !s.autoMigrate {
		return nil
	}
	if ctx == nil || ctx.Err() != nil {
		ctx = context.Background()
	}
	schemaCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	for _, stmt := range schemaStatements {
		if _, err := s.db.ExecContext(schemaCtx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

func isUndefinedTableErr(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "42P01"
	}
	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "relation") && strings.Contains(lower, "does not exist")
}
