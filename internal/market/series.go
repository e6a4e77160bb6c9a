// Package market defines the price-series data model shared across the
// stock explorer: raw provider rows, normalized daily series, display
// ranges, and spike detection.
package market

import (
	"sort"
	"strings"
)

// Row is a raw daily record as returned by a quotes provider. Providers
// differ in which fields they populate; absent numeric fields stay zero.
type Row struct {
	Timestamp string  // source timestamp, date-first (e.g. "2024-06-03T04:00:00Z" or "2024-06-03")
	Open      float64
	High      float64
	Low       float64
	Close     float64
	AdjClose  float64
	Volume    float64
}

// PricePoint is one normalized trading day. Immutable once produced.
type PricePoint struct {
	Date     string  `json:"date"` // YYYY-MM-DD
	Open     float64 `json:"open"`
	High     float64 `json:"high"`
	Low      float64 `json:"low"`
	Close    float64 `json:"close"`
	AdjClose float64 `json:"adjClose"`
	Volume   float64 `json:"volume"`
}

// Series is an ordered daily price sequence. Invariant: strictly increasing
// Date, no duplicates. A series is always replaced wholesale on refetch.
type Series []PricePoint

// Range is the requested trailing display window for a series.
type Range string

const (
	Range1M  Range = "1M"
	Range3M  Range = "3M"
	Range6M  Range = "6M"
	Range1Y  Range = "1Y"
	RangeMax Range = "MAX"
)

// TradingDays returns the number of trading days a range keeps, or 0 for
// MAX (no trimming).
func (r Range) TradingDays() int {
	switch r {
	case Range1M:
		return 21
	case Range3M:
		return 66
	case Range6M:
		return 126
	case Range1Y:
		return 252
	default:
		return 0
	}
}

// ParseRange validates a range string. Empty defaults to 3M.
func ParseRange(s string) (Range, error) {
	if s == "" {
		return Range3M, nil
	}
	switch r := Range(strings.ToUpper(s)); r {
	case Range1M, Range3M, Range6M, Range1Y, RangeMax:
		return r, nil
	default:
		return "", &ValidationError{Field: "range", Reason: "must be one of 1M, 3M, 6M, 1Y, MAX"}
	}
}

// Normalize converts raw provider rows into a Series: dates reduced to the
// calendar-date portion of the source timestamp, sorted ascending, duplicate
// dates collapsed (last row wins), and trimmed to the tail of the requested
// range. Zero resulting points is reported as ErrNoData so callers can offer
// ticker suggestions instead of a transport failure message.
func Normalize(rows []Row, r Range) (Series, error) {
	byDate := make(map[string]PricePoint, len(rows))
	for _, row := range rows {
		date := dateOnly(row.Timestamp)
		if date == "" {
			continue
		}
		byDate[date] = PricePoint{
			Date:     date,
			Open:     row.Open,
			High:     row.High,
			Low:      row.Low,
			Close:    row.Close,
			AdjClose: row.AdjClose,
			Volume:   row.Volume,
		}
	}

	if len(byDate) == 0 {
		return nil, ErrNoData
	}

	s := make(Series, 0, len(byDate))
	for _, p := range byDate {
		s = append(s, p)
	}
	sort.Slice(s, func(i, j int) bool { return s[i].Date < s[j].Date })

	if n := r.TradingDays(); n > 0 && len(s) > n {
		s = s[len(s)-n:]
	}
	return s, nil
}

// dateOnly extracts the YYYY-MM-DD prefix of a timestamp string.
func dateOnly(ts string) string {
	ts = strings.TrimSpace(ts)
	for _, sep := range []byte{'T', ' '} {
		if i := strings.IndexByte(ts, sep); i >= 0 {
			ts = ts[:i]
			break
		}
	}
	if len(ts) != 10 || ts[4] != '-' || ts[7] != '-' {
		return ""
	}
	return ts
}
