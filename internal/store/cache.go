// Package store caches fetched weekly track charts in a local SQLite database.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jfmyers9/toptracks/internal/chart"
	_ "modernc.org/sqlite"
)

// Cache persists resolved charts of completed periods using SQLite.
type Cache struct {
	db *sql.DB
}

// Stats summarises the cache contents.
type Stats struct {
	Users   int
	Periods int
	Entries int
	Oldest  time.Time // Zero when the cache is empty
	Newest  time.Time
}

// NewCache opens (or creates) the chart cache at dbPath.
// ":memory:" gives a private in-memory cache.
func NewCache(dbPath string) (*Cache, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Set connection pool size to 1 for in-memory databases to ensure consistency
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA journal_mode = WAL",
		"PRAGMA temp_store = MEMORY",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	// A period row exists only for charts with at least one entry.
	schema := `
		CREATE TABLE IF NOT EXISTS periods (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT NOT NULL COLLATE NOCASE,
			period_start INTEGER NOT NULL,
			period_end INTEGER NOT NULL,
			fetched_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
			UNIQUE (username, period_start, period_end)
		);

		CREATE TABLE IF NOT EXISTS entries (
			period_id INTEGER NOT NULL REFERENCES periods(id) ON DELETE CASCADE,
			rank INTEGER NOT NULL,
			track_name TEXT NOT NULL,
			artist TEXT NOT NULL,
			play_count INTEGER NOT NULL,
			PRIMARY KEY (period_id, rank)
		);

		CREATE INDEX IF NOT EXISTS idx_periods_fetched ON periods(fetched_at);
	`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Cache{db: db}, nil
}

// Close closes the database connection
func (c *Cache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Get returns the cached chart of user for [from, to], in rank order.
func (c *Cache) Get(ctx context.Context, user string, from, to time.Time) ([]chart.Entry, bool, error) {
	var periodID int64
	err := c.db.QueryRowContext(ctx, `
		SELECT id FROM periods
		WHERE username = ? AND period_start = ? AND period_end = ?
	`, user, from.Unix(), to.Unix()).Scan(&periodID)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to query period: %w", err)
	}

	rows, err := c.db.QueryContext(ctx, `
		SELECT track_name, artist, play_count
		FROM entries
		WHERE period_id = ?
		ORDER BY rank ASC
	`, periodID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	var entries []chart.Entry
	for rows.Next() {
		var e chart.Entry
		if err := rows.Scan(&e.Track, &e.Artist, &e.PlayCount); err != nil {
			return nil, false, fmt.Errorf("failed to scan entry: %w", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("error iterating entries: %w", err)
	}

	if len(entries) == 0 {
		return nil, false, nil
	}

	return entries, true, nil
}

// Put stores the chart of user for [from, to], replacing any previous copy.
// Empty charts are not stored.
func (c *Cache) Put(ctx context.Context, user string, from, to time.Time, entries []chart.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM periods
		WHERE username = ? AND period_start = ? AND period_end = ?
	`, user, from.Unix(), to.Unix()); err != nil {
		return fmt.Errorf("failed to replace period: %w", err)
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO periods (username, period_start, period_end)
		VALUES (?, ?, ?)
	`, user, from.Unix(), to.Unix())
	if err != nil {
		return fmt.Errorf("failed to insert period: %w", err)
	}

	periodID, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get insert id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO entries (period_id, rank, track_name, artist, play_count)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i, e := range entries {
		if _, err := stmt.ExecContext(ctx, periodID, i+1, e.Track, e.Artist, e.PlayCount); err != nil {
			return fmt.Errorf("failed to insert entry %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Purge removes charts fetched more than maxAge ago, or every chart when
// maxAge is zero. It returns the number of periods removed.
func (c *Cache) Purge(ctx context.Context, maxAge time.Duration) (int64, error) {
	query := "DELETE FROM periods"
	var args []any
	if maxAge > 0 {
		query += " WHERE fetched_at < ?"
		args = append(args, time.Now().Add(-maxAge).Unix())
	}

	result, err := c.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to purge cache: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return deleted, nil
}

// Stats returns counts over the whole cache.
func (c *Cache) Stats(ctx context.Context) (Stats, error) {
	var (
		s              Stats
		oldest, newest sql.NullInt64
	)

	err := c.db.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT username), COUNT(*), MIN(fetched_at), MAX(fetched_at)
		FROM periods
	`).Scan(&s.Users, &s.Periods, &oldest, &newest)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to count periods: %w", err)
	}

	if err := c.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM entries").Scan(&s.Entries); err != nil {
		return Stats{}, fmt.Errorf("failed to count entries: %w", err)
	}

	if oldest.Valid {
		s.Oldest = time.Unix(oldest.Int64, 0)
	}
	if newest.Valid {
		s.Newest = time.Unix(newest.Int64, 0)
	}

	return s, nil
}
