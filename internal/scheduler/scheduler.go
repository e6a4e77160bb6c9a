// Package scheduler runs the recurring series archive job: for each
// configured symbol, fetch the full daily history, normalize it, and merge it
// into the Parquet archive. The archive feeds ticker suggestions and keeps a
// local copy of history independent of the provider.
package scheduler

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/gabrbl/tilde-news-summary/internal/market"
	"github.com/gabrbl/tilde-news-summary/internal/quotes"
	"github.com/gabrbl/tilde-news-summary/internal/store"
)

// Archiver periodically refreshes the series archive.
type Archiver struct {
	provider quotes.Provider
	store    store.SeriesStore
	symbols  []string
	log      *slog.Logger
	cron     *cron.Cron
}

// NewArchiver creates an Archiver for the given symbols.
func NewArchiver(provider quotes.Provider, st store.SeriesStore, symbols []string, log *slog.Logger) *Archiver {
	if log == nil {
		log = slog.Default()
	}
	return &Archiver{
		provider: provider,
		store:    st,
		symbols:  symbols,
		log:      log.With("component", "archiver"),
	}
}

// Start schedules the refresh at the given cron expression and starts the
// scheduler. With no symbols configured nothing is scheduled.
func (a *Archiver) Start(schedule string) error {
	if len(a.symbols) == 0 {
		a.log.Info("no archive symbols configured, archiver disabled")
		return nil
	}
	a.cron = cron.New()
	if _, err := a.cron.AddFunc(schedule, func() {
		a.RefreshAll(context.Background())
	}); err != nil {
		return err
	}
	a.cron.Start()
	a.log.Info("archiver scheduled", "schedule", schedule, "symbols", len(a.symbols))
	return nil
}

// Stop stops the scheduler and waits for a running job to finish.
func (a *Archiver) Stop() {
	if a.cron != nil {
		<-a.cron.Stop().Done()
	}
}

// RefreshAll refreshes every configured symbol. One failing symbol does not
// stop the rest.
func (a *Archiver) RefreshAll(ctx context.Context) {
	for _, symbol := range a.symbols {
		if err := a.Refresh(ctx, symbol); err != nil {
			a.log.Warn("archive refresh failed", "symbol", symbol, "err", err)
		}
	}
}

// Refresh fetches the full history for one symbol and merges it into the
// archive.
func (a *Archiver) Refresh(ctx context.Context, symbol string) error {
	rows, _, err := a.provider.DailyBars(ctx, symbol, quotes.LookbackFor(market.RangeMax))
	if err != nil {
		return err
	}
	series, err := market.Normalize(rows, market.RangeMax)
	if err != nil {
		return err
	}
	if err := a.store.WriteSeries(ctx, symbol, series); err != nil {
		return err
	}
	a.log.Info("archived series", "symbol", symbol, "points", len(series))
	return nil
}
