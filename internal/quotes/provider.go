// Package quotes fetches daily OHLCV history from an upstream market-data
// provider and hands it to the normalizer as raw rows.
package quotes

import (
	"context"
	"time"

	"github.com/gabrbl/tilde-news-summary/internal/market"
)

// Meta describes a provider response: when the data was produced and the
// exchange timezone the timestamps belong to.
type Meta struct {
	LastUpdated time.Time `json:"lastUpdated"`
	Timezone    string    `json:"timezone"`
}

// Provider returns raw daily rows for a symbol covering at least the last
// lookbackDays calendar days. lookbackDays <= 0 means the full available
// history.
type Provider interface {
	DailyBars(ctx context.Context, symbol string, lookbackDays int) ([]market.Row, Meta, error)
}

// LookbackFor converts a display range into a calendar-day fetch window wide
// enough to cover its trading days (weekends and holidays included).
func LookbackFor(r market.Range) int {
	n := r.TradingDays()
	if n == 0 {
		return 0
	}
	// Roughly 7 calendar days per 5 trading days, plus slack for holidays.
	return n*7/5 + 10
}
