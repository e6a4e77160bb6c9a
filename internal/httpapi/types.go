package httpapi

import (
	"github.com/gabrbl/tilde-news-summary/internal/explorer"
	"github.com/gabrbl/tilde-news-summary/internal/market"
	"github.com/gabrbl/tilde-news-summary/internal/quotes"
)

// ErrorResponse is the JSON body for every non-2xx response. Suggestions is
// populated for unknown-ticker errors.
type ErrorResponse struct {
	Error       string   `json:"error"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// StocksResponse is the payload for GET /api/stocks/{symbol}.
type StocksResponse struct {
	Symbol string         `json:"symbol"`
	Range  market.Range   `json:"range"`
	Points market.Series  `json:"points"`
	Spikes []market.Spike `json:"spikes"`
	Meta   quotes.Meta    `json:"meta"`
}

// SessionResponse is returned when a session is created.
type SessionResponse struct {
	ID string `json:"id"`
}

// LoadSeriesRequest is the body for POST /sessions/{id}/series.
type LoadSeriesRequest struct {
	Symbol string `json:"symbol"`
	Range  string `json:"range"`
}

// SelectRequest is the body for POST /sessions/{id}/select. Geometry fields
// left zero fall back to the server's configured defaults.
type SelectRequest struct {
	Index    int                    `json:"index"`
	Geometry explorer.ChartGeometry `json:"geometry"`
}
