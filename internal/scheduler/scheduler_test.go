package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gabrbl/tilde-news-summary/internal/market"
	"github.com/gabrbl/tilde-news-summary/internal/quotes"
	"github.com/gabrbl/tilde-news-summary/internal/store"
)

type stubProvider struct {
	rowsFor map[string][]market.Row
	errFor  map[string]error
	calls   []string
}

func (p *stubProvider) DailyBars(_ context.Context, symbol string, _ int) ([]market.Row, quotes.Meta, error) {
	p.calls = append(p.calls, symbol)
	if err := p.errFor[symbol]; err != nil {
		return nil, quotes.Meta{}, err
	}
	return p.rowsFor[symbol], quotes.Meta{}, nil
}

func TestRefreshArchivesNormalizedSeries(t *testing.T) {
	p := &stubProvider{rowsFor: map[string][]market.Row{
		"AAPL": {
			{Timestamp: "2024-01-03T05:00:00Z", Close: 186},
			{Timestamp: "2024-01-02T05:00:00Z", Close: 185},
		},
	}}
	st := store.NewParquetStore(t.TempDir())
	a := NewArchiver(p, st, []string{"AAPL"}, nil)

	if err := a.Refresh(context.Background(), "AAPL"); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	got, err := st.ReadSeries(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("ReadSeries: %v", err)
	}
	if len(got) != 2 || got[0].Date != "2024-01-02" || got[1].Date != "2024-01-03" {
		t.Errorf("archived series = %+v, want two normalized ordered points", got)
	}
}

func TestRefreshAllContinuesPastFailures(t *testing.T) {
	p := &stubProvider{
		rowsFor: map[string][]market.Row{"MSFT": {{Timestamp: "2024-01-02", Close: 370}}},
		errFor:  map[string]error{"AAPL": errors.New("boom")},
	}
	st := store.NewParquetStore(t.TempDir())
	a := NewArchiver(p, st, []string{"AAPL", "MSFT"}, nil)

	a.RefreshAll(context.Background())

	if len(p.calls) != 2 {
		t.Fatalf("provider called for %v, want both symbols", p.calls)
	}
	symbols, _ := st.ListSymbols(context.Background())
	if len(symbols) != 1 || symbols[0] != "MSFT" {
		t.Errorf("archived symbols = %v, want [MSFT]", symbols)
	}
}

func TestStartWithoutSymbolsIsNoop(t *testing.T) {
	a := NewArchiver(&stubProvider{}, store.NewParquetStore(t.TempDir()), nil, nil)
	if err := a.Start("0 2 * * *"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	a.Stop() // must not panic with no cron scheduled
}

func TestStartRejectsBadSchedule(t *testing.T) {
	a := NewArchiver(&stubProvider{}, store.NewParquetStore(t.TempDir()), []string{"AAPL"}, nil)
	if err := a.Start("not a cron expr"); err == nil {
		a.Stop()
		t.Fatal("Start accepted an invalid schedule")
	}
}

func TestStartAndStop(t *testing.T) {
	a := NewArchiver(&stubProvider{}, store.NewParquetStore(t.TempDir()), []string{"AAPL"}, nil)
	if err := a.Start("@every 1h"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	done := make(chan struct{})
	go func() {
		a.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}
}
