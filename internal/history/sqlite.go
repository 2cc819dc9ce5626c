package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/devicekit/internal/deviceinfo"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200

	// timestampLayout is fixed-width so text order matches time order.
	timestampLayout = "2006-01-02T15:04:05.000000000Z"
)

// SQLiteRepository implements Repository on the resolution_passes table.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a repository over an open, migrated database.
//
// Parameters:
//   - db: Open SQLite connection used for queries
//
// Returns:
//   - *SQLiteRepository: Repository instance ready for use
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Record inserts a pass. Recording the same pass id twice is an error.
func (r *SQLiteRepository) Record(ctx context.Context, report deviceinfo.PassReport, props deviceinfo.Properties) error {
	if report.ID == "" {
		return fmt.Errorf("pass id is required")
	}

	propsJSON, err := json.Marshal(props)
	if err != nil {
		return fmt.Errorf("marshalling properties: %w", err)
	}
	results := report.Results
	if results == nil {
		results = []deviceinfo.ProbeResult{}
	}
	resultsJSON, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("marshalling probe results: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO resolution_passes
		 (pass_id, kind, device_id, started_at, completed_at, properties, results)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		report.ID,
		string(report.Kind),
		props.DeviceID.Value,
		report.StartedAt.UTC().Format(timestampLayout),
		report.CompletedAt.UTC().Format(timestampLayout),
		string(propsJSON),
		string(resultsJSON),
	)
	if err != nil {
		return fmt.Errorf("inserting pass: %w", err)
	}
	return nil
}

// Latest returns the most recently completed pass, or ErrNotFound.
func (r *SQLiteRepository) Latest(ctx context.Context) (Entry, error) {
	entries, err := r.List(ctx, 1)
	if err != nil {
		return Entry{}, err
	}
	if len(entries) == 0 {
		return Entry{}, ErrNotFound
	}
	return entries[0], nil
}

// List returns passes ordered by completion time, newest first.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - limit: Maximum entries to return (default 50, max 200)
func (r *SQLiteRepository) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT pass_id, kind, device_id, started_at, completed_at, properties, results
		 FROM resolution_passes
		 ORDER BY completed_at DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying passes: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0, limit)
	for rows.Next() {
		var (
			e                      Entry
			kind                   string
			startedAt, completedAt string
			propsJSON, resultsJSON string
		)
		if err := rows.Scan(&e.PassID, &kind, &e.DeviceID, &startedAt, &completedAt, &propsJSON, &resultsJSON); err != nil {
			return nil, fmt.Errorf("scanning pass: %w", err)
		}
		e.Kind = deviceinfo.PassKind(kind)

		if e.StartedAt, err = parseTimestamp(startedAt); err != nil {
			return nil, err
		}
		if e.CompletedAt, err = parseTimestamp(completedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(propsJSON), &e.Properties); err != nil {
			return nil, fmt.Errorf("unmarshalling properties: %w", err)
		}
		if err := json.Unmarshal([]byte(resultsJSON), &e.Results); err != nil {
			return nil, fmt.Errorf("unmarshalling probe results: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating passes: %w", err)
	}
	return entries, nil
}

// Prune deletes passes completed before now-olderThan.
func (r *SQLiteRepository) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, errors.New("olderThan must be positive")
	}

	cutoff := time.Now().UTC().Add(-olderThan).Format(timestampLayout)
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM resolution_passes WHERE completed_at < ?",
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("deleting passes: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}
	return n, nil
}

func parseTimestamp(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("timestamp is empty")
	}
	t, err := time.Parse(timestampLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp: %w", err)
	}
	return t, nil
}
