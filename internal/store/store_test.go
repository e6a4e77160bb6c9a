package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/gabrbl/tilde-news-summary/internal/market"
)

func TestParquetStorePath(t *testing.T) {
	ps := NewParquetStore("/data")
	got := ps.seriesPath("aapl", "2024")
	want := filepath.Join("/data", "series", "AAPL", "2024.parquet")
	if got != want {
		t.Errorf("seriesPath mismatch:\n  got  %s\n  want %s", got, want)
	}
}

func TestParquetStoreWriteReadSeries(t *testing.T) {
	dir := t.TempDir()
	ps := NewParquetStore(dir)
	ctx := context.Background()

	points := []market.PricePoint{
		{Date: "2023-12-29", Open: 184, High: 185, Low: 183, Close: 184.5, AdjClose: 184.5, Volume: 40000000},
		{Date: "2024-01-02", Open: 185, High: 186.5, Low: 184, Close: 185.5, AdjClose: 185.5, Volume: 50000000},
	}
	if err := ps.WriteSeries(ctx, "AAPL", points); err != nil {
		t.Fatalf("WriteSeries: %v", err)
	}

	got, err := ps.ReadSeries(ctx, "AAPL")
	if err != nil {
		t.Fatalf("ReadSeries: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ReadSeries returned %d points, want 2", len(got))
	}
	// Year files read back in date order even across year boundaries.
	if got[0].Date != "2023-12-29" || got[1].Date != "2024-01-02" {
		t.Errorf("dates = [%s %s], want chronological order", got[0].Date, got[1].Date)
	}
	if got[1].Close != 185.5 {
		t.Errorf("Close = %v, want 185.5", got[1].Close)
	}
}

func TestParquetStoreMergeSeries(t *testing.T) {
	dir := t.TempDir()
	ps := NewParquetStore(dir)
	ctx := context.Background()

	first := []market.PricePoint{{Date: "2024-03-01", Close: 403}}
	if err := ps.WriteSeries(ctx, "MSFT", first); err != nil {
		t.Fatalf("WriteSeries (first): %v", err)
	}

	// Second write: one new date, one replacement for an existing date.
	second := []market.PricePoint{
		{Date: "2024-03-01", Close: 404},
		{Date: "2024-03-04", Close: 408},
	}
	if err := ps.WriteSeries(ctx, "MSFT", second); err != nil {
		t.Fatalf("WriteSeries (second): %v", err)
	}

	got, err := ps.ReadSeries(ctx, "MSFT")
	if err != nil {
		t.Fatalf("ReadSeries: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d points after merge, want 2", len(got))
	}
	if got[0].Close != 404 {
		t.Errorf("replaced point Close = %v, want 404", got[0].Close)
	}
}

func TestParquetStoreListSymbols(t *testing.T) {
	dir := t.TempDir()
	ps := NewParquetStore(dir)
	ctx := context.Background()

	for _, sym := range []string{"GOOGL", "AAPL"} {
		if err := ps.WriteSeries(ctx, sym, []market.PricePoint{{Date: "2024-01-02", Close: 1}}); err != nil {
			t.Fatalf("WriteSeries(%s): %v", sym, err)
		}
	}

	symbols, err := ps.ListSymbols(ctx)
	if err != nil {
		t.Fatalf("ListSymbols: %v", err)
	}
	if len(symbols) != 2 || symbols[0] != "AAPL" || symbols[1] != "GOOGL" {
		t.Errorf("ListSymbols = %v, want [AAPL GOOGL]", symbols)
	}
}

func TestParquetStoreMissingSymbol(t *testing.T) {
	ps := NewParquetStore(t.TempDir())
	got, err := ps.ReadSeries(context.Background(), "NOPE")
	if err != nil {
		t.Fatalf("ReadSeries: %v", err)
	}
	if got != nil {
		t.Errorf("ReadSeries for unknown symbol = %v, want nil", got)
	}
}

func TestSQLiteStoreSummaries(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer func() {
		if cerr := s.Close(); cerr != nil {
			t.Errorf("Close: %v", cerr)
		}
	}()

	ctx := context.Background()

	if _, ok, err := s.GetSummary(ctx, "AAPL", "2024-06-03"); err != nil || ok {
		t.Fatalf("GetSummary on empty store = ok=%v err=%v, want absent", ok, err)
	}

	if err := s.SaveSummary(ctx, "AAPL", "2024-06-03", "earnings beat"); err != nil {
		t.Fatalf("SaveSummary: %v", err)
	}
	text, ok, err := s.GetSummary(ctx, "AAPL", "2024-06-03")
	if err != nil || !ok || text != "earnings beat" {
		t.Fatalf("GetSummary = %q, %v, %v", text, ok, err)
	}

	// Upsert replaces.
	if err := s.SaveSummary(ctx, "AAPL", "2024-06-03", "revised"); err != nil {
		t.Fatalf("SaveSummary (upsert): %v", err)
	}
	text, _, _ = s.GetSummary(ctx, "AAPL", "2024-06-03")
	if text != "revised" {
		t.Errorf("after upsert text = %q, want %q", text, "revised")
	}

	if err := s.SaveSummary(ctx, "AAPL", "2024-06-04", "quiet day"); err != nil {
		t.Fatalf("SaveSummary: %v", err)
	}
	all, err := s.LoadSummaries(ctx, "AAPL")
	if err != nil {
		t.Fatalf("LoadSummaries: %v", err)
	}
	if len(all) != 2 || all["2024-06-04"] != "quiet day" {
		t.Errorf("LoadSummaries = %v", all)
	}

	// Other symbols are isolated.
	other, err := s.LoadSummaries(ctx, "MSFT")
	if err != nil {
		t.Fatalf("LoadSummaries(MSFT): %v", err)
	}
	if len(other) != 0 {
		t.Errorf("LoadSummaries(MSFT) = %v, want empty", other)
	}
}
