// Package store defines persistence for the explorer: a Parquet archive of
// normalized daily price series and a SQLite table of enrichment summaries.
package store

import (
	"context"

	"github.com/gabrbl/tilde-news-summary/internal/market"
)

// SeriesStore archives normalized daily price points per symbol.
type SeriesStore interface {
	// WriteSeries persists a batch of points for a symbol, merged with any
	// previously archived points.
	WriteSeries(ctx context.Context, symbol string, points []market.PricePoint) error

	// ReadSeries returns all archived points for a symbol in date order.
	ReadSeries(ctx context.Context, symbol string) (market.Series, error)

	// ListSymbols returns all archived symbols, sorted.
	ListSymbols(ctx context.Context) ([]string, error)
}

// SummaryStore persists enrichment summaries keyed by (symbol, date).
type SummaryStore interface {
	// SaveSummary inserts or replaces the summary for a symbol and date.
	SaveSummary(ctx context.Context, symbol, date, text string) error

	// GetSummary returns the stored summary, or ok=false when absent.
	GetSummary(ctx context.Context, symbol, date string) (text string, ok bool, err error)

	// LoadSummaries returns all stored summaries for a symbol as date→text.
	LoadSummaries(ctx context.Context, symbol string) (map[string]string, error)
}
