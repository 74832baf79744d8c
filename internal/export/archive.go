package export

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/marcboeker/go-duckdb"

	"plausctl/internal/api"
	"plausctl/internal/query"
)

// Archive persists query results into a local DuckDB file so past runs
// stay queryable with plain SQL after the response cache has expired.
type Archive struct {
	db   *sql.DB
	path string
}

// ArchiveStats summarizes the archive contents.
type ArchiveStats struct {
	TotalRuns int    `json:"total_runs"`
	TotalRows int    `json:"total_rows"`
	Location  string `json:"location"`
}

// DefaultArchivePath returns the per-user archive database location.
func DefaultArchivePath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".plausctl", "archive.db"), nil
}

// OpenArchive opens (creating if needed) the archive database and
// ensures its schema.
func OpenArchive(path string) (*Archive, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open DuckDB connection: %w", err)
	}

	a := &Archive{db: db, path: path}
	if err := a.initializeTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize archive tables: %w", err)
	}
	return a, nil
}

// Close closes the database connection.
func (a *Archive) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

func (a *Archive) initializeTables() error {
	schemas := []string{
		`CREATE TABLE IF NOT EXISTS query_runs (
			run_id VARCHAR PRIMARY KEY,
			site_id VARCHAR NOT NULL,
			query_hash VARCHAR NOT NULL,
			query_json TEXT NOT NULL,
			metrics VARCHAR NOT NULL,
			dimensions VARCHAR,
			date_range VARCHAR NOT NULL,
			row_count INTEGER NOT NULL,
			archived_at TIMESTAMP DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS query_rows (
			run_id VARCHAR NOT NULL,
			row_index INTEGER NOT NULL,
			dimensions TEXT,
			metrics TEXT NOT NULL
		)`,
	}
	for _, schema := range schemas {
		if _, err := a.db.Exec(schema); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	return nil
}

// Store appends one query run with all its rows and returns the run ID.
func (a *Archive) Store(ctx context.Context, q *query.Query, resp *api.QueryResponse) (string, error) {
	queryJSON, err := json.Marshal(q)
	if err != nil {
		return "", fmt.Errorf("failed to marshal query: %w", err)
	}
	queryHash, err := query.CacheKey(q)
	if err != nil {
		return "", fmt.Errorf("failed to hash query: %w", err)
	}

	runID := fmt.Sprintf("run_%d", time.Now().UnixNano())

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO query_runs
		(run_id, site_id, query_hash, query_json, metrics, dimensions, date_range, row_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, runID, q.SiteID, queryHash, string(queryJSON),
		strings.Join(q.Metrics, ","), strings.Join(q.Dimensions, ","),
		q.DateRange.String(), len(resp.Results))
	if err != nil {
		return "", fmt.Errorf("failed to insert query run: %w", err)
	}

	for i, row := range resp.Results {
		dimensions, err := json.Marshal(row.Dimensions)
		if err != nil {
			return "", fmt.Errorf("failed to marshal row dimensions: %w", err)
		}
		metrics, err := json.Marshal(row.Metrics)
		if err != nil {
			return "", fmt.Errorf("failed to marshal row metrics: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO query_rows (run_id, row_index, dimensions, metrics)
			VALUES (?, ?, ?, ?)
		`, runID, i, string(dimensions), string(metrics))
		if err != nil {
			return "", fmt.Errorf("failed to insert row %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit archive transaction: %w", err)
	}
	return runID, nil
}

// Stats reports run and row totals.
func (a *Archive) Stats(ctx context.Context) (*ArchiveStats, error) {
	stats := &ArchiveStats{Location: a.path}

	if err := a.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM query_runs`).Scan(&stats.TotalRuns); err != nil {
		return nil, fmt.Errorf("failed to count runs: %w", err)
	}
	if err := a.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM query_rows`).Scan(&stats.TotalRows); err != nil {
		return nil, fmt.Errorf("failed to count rows: %w", err)
	}
	return stats, nil
}
