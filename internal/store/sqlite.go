package store

import (
	"context"
	"database/sql"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface check.
var _ SummaryStore = (*SQLiteStore)(nil)

const summarySchema = `
CREATE TABLE IF NOT EXISTS summaries (
	symbol TEXT NOT NULL,
	date   TEXT NOT NULL,
	text   TEXT NOT NULL,
	PRIMARY KEY (symbol, date)
);`

// SQLiteStore implements SummaryStore backed by a SQLite database, so
// enrichment summaries survive restarts.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and ensures
// the schema exists.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(summarySchema); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveSummary inserts or replaces the summary for a symbol and date.
func (s *SQLiteStore) SaveSummary(ctx context.Context, symbol, date, text string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO summaries (symbol, date, text) VALUES (?, ?, ?)`,
		symbol, date, text)
	return err
}

// GetSummary returns the stored summary for a symbol and date.
func (s *SQLiteStore) GetSummary(ctx context.Context, symbol, date string) (string, bool, error) {
	var text string
	err := s.db.QueryRowContext(ctx,
		`SELECT text FROM summaries WHERE symbol = ? AND date = ?`,
		symbol, date).Scan(&text)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return text, true, nil
}

// LoadSummaries returns all stored summaries for a symbol.
func (s *SQLiteStore) LoadSummaries(ctx context.Context, symbol string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT date, text FROM summaries WHERE symbol = ?`, symbol)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var date, text string
		if err := rows.Scan(&date, &text); err != nil {
			return nil, err
		}
		out[date] = text
	}
	return out, rows.Err()
}
