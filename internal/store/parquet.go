package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/parquet-go/parquet-go"

	"github.com/gabrbl/tilde-news-summary/internal/market"
)

// Compile-time interface check.
var _ SeriesStore = (*ParquetStore)(nil)

// ParquetStore implements SeriesStore using Parquet files on disk, one file
// per symbol and year.
type ParquetStore struct {
	DataDir string
}

// NewParquetStore creates a ParquetStore rooted at the given data directory.
func NewParquetStore(dataDir string) *ParquetStore {
	return &ParquetStore{DataDir: dataDir}
}

// PointRecord is the Parquet schema for archived daily points.
type PointRecord struct {
	Date     string  `parquet:"date"` // YYYY-MM-DD
	Open     float64 `parquet:"open"`
	High     float64 `parquet:"high"`
	Low      float64 `parquet:"low"`
	Close    float64 `parquet:"close"`
	AdjClose float64 `parquet:"adj_close"`
	Volume   float64 `parquet:"volume"`
}

// WriteSeries writes points grouped by year to:
//
//	<DataDir>/series/<SYMBOL>/<YYYY>.parquet
//
// Existing records for the same dates are replaced, everything else is kept.
func (s *ParquetStore) WriteSeries(_ context.Context, symbol string, points []market.PricePoint) error {
	if len(points) == 0 {
		return nil
	}

	groups := make(map[string][]PointRecord)
	for _, p := range points {
		if len(p.Date) < 4 {
			continue
		}
		year := p.Date[:4]
		groups[year] = append(groups[year], PointRecord{
			Date:     p.Date,
			Open:     p.Open,
			High:     p.High,
			Low:      p.Low,
			Close:    p.Close,
			AdjClose: p.AdjClose,
			Volume:   p.Volume,
		})
	}

	for year, records := range groups {
		path := s.seriesPath(symbol, year)

		existing, _ := readParquetFile[PointRecord](path)
		merged := mergePointRecords(existing, records)

		if err := writeParquetFile(path, merged); err != nil {
			return fmt.Errorf("writing series for %s/%s: %w", symbol, year, err)
		}
	}
	return nil
}

// ReadSeries reads every archived year file for the symbol and returns the
// points in date order.
func (s *ParquetStore) ReadSeries(_ context.Context, symbol string) (market.Series, error) {
	dir := filepath.Join(s.DataDir, "series", strings.ToUpper(symbol))
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var series market.Series
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".parquet") {
			continue
		}
		records, err := readParquetFile[PointRecord](filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		for _, r := range records {
			series = append(series, market.PricePoint{
				Date:     r.Date,
				Open:     r.Open,
				High:     r.High,
				Low:      r.Low,
				Close:    r.Close,
				AdjClose: r.AdjClose,
				Volume:   r.Volume,
			})
		}
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Date < series[j].Date })
	return series, nil
}

// ListSymbols lists all symbols with archived series data.
func (s *ParquetStore) ListSymbols(_ context.Context) ([]string, error) {
	dir := filepath.Join(s.DataDir, "series")
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var symbols []string
	for _, e := range entries {
		if e.IsDir() {
			symbols = append(symbols, e.Name())
		}
	}
	sort.Strings(symbols)
	return symbols, nil
}

// seriesPath returns the filesystem path for a series Parquet file.
// Layout: <dataDir>/series/<SYMBOL>/<YYYY>.parquet
func (s *ParquetStore) seriesPath(symbol, year string) string {
	return filepath.Join(s.DataDir, "series", strings.ToUpper(symbol), year+".parquet")
}

func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

func readParquetFile[T any](path string) ([]T, error) {
	rows, err := parquet.ReadFile[T](path)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// mergePointRecords deduplicates records by date, preferring incoming over
// existing. Results are sorted by date.
func mergePointRecords(existing, incoming []PointRecord) []PointRecord {
	seen := make(map[string]PointRecord, len(existing)+len(incoming))
	for _, r := range existing {
		seen[r.Date] = r
	}
	for _, r := range incoming {
		seen[r.Date] = r
	}

	merged := make([]PointRecord, 0, len(seen))
	for _, r := range seen {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Date < merged[j].Date })
	return merged
}
