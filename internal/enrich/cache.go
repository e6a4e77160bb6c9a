// Package enrich memoizes per-date news summaries for one instrument. The
// cache is the single funnel for enrichment lookups: detector-driven
// prefetches and user-click fetches both go through GetOrFetch, so a date is
// fetched at most once for the lifetime of the session.
package enrich

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/gabrbl/tilde-news-summary/internal/news"
	"github.com/gabrbl/tilde-news-summary/internal/store"
)

// FallbackSummary is stored and shown when enrichment finds nothing or the
// provider fails. Caching it keeps repeated selections from re-fetching.
const FallbackSummary = "No notable news found for this date."

// FetchFunc fetches the summary text for one instrument and date. An empty
// result with nil error means the provider found nothing.
type FetchFunc func(ctx context.Context, symbol, date string) (string, error)

// Cache is a per-symbol date→summary map that fetches lazily, coalesces
// concurrent requests for the same date, and never evicts. Entries survive
// range changes and series refetches; with a SummaryStore attached they also
// survive restarts.
type Cache struct {
	symbol string
	fetch  FetchFunc
	store  store.SummaryStore // optional persistence, may be nil
	log    *slog.Logger

	mu        sync.Mutex
	entries   map[string]string
	observers []func(date, text string)

	group singleflight.Group
}

// New creates a Cache for one symbol. When st is non-nil, previously
// persisted summaries are warm-loaded so they short-circuit immediately.
func New(symbol string, fetch FetchFunc, st store.SummaryStore, log *slog.Logger) *Cache {
	if log == nil {
		log = slog.Default()
	}
	c := &Cache{
		symbol:  strings.ToUpper(symbol),
		fetch:   fetch,
		store:   st,
		log:     log.With("component", "enrich", "symbol", symbol),
		entries: make(map[string]string),
	}
	if st != nil {
		if saved, err := st.LoadSummaries(context.Background(), c.symbol); err != nil {
			c.log.Warn("loading persisted summaries", "err", err)
		} else {
			for date, text := range saved {
				c.entries[date] = text
			}
		}
	}
	return c
}

// Symbol returns the instrument this cache is scoped to.
func (c *Cache) Symbol() string { return c.symbol }

// Subscribe registers an observer invoked after every cache store with the
// date and text just written. Observers keep live spikes and the open
// selection in sync with the cache.
func (c *Cache) Subscribe(fn func(date, text string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, fn)
}

// Peek returns the cached text without fetching.
func (c *Cache) Peek(date string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	text, ok := c.entries[date]
	return text, ok
}

// GetOrFetch returns the summary for a date, fetching it at most once.
// Concurrent calls for the same date share one in-flight fetch. Failures and
// empty results degrade to FallbackSummary, which is cached like any other
// entry.
func (c *Cache) GetOrFetch(ctx context.Context, date string) string {
	c.mu.Lock()
	if text, ok := c.entries[date]; ok {
		c.mu.Unlock()
		return text
	}
	c.mu.Unlock()

	result, _, _ := c.group.Do(date, func() (any, error) {
		text, err := c.fetch(ctx, c.symbol, date)
		if err != nil {
			c.log.Warn("enrichment fetch failed", "date", date, "err", err)
			text = ""
		}
		text = strings.TrimSpace(text)
		if text == "" {
			text = FallbackSummary
		}
		c.put(ctx, date, text)
		return text, nil
	})
	return result.(string)
}

func (c *Cache) put(ctx context.Context, date, text string) {
	c.mu.Lock()
	c.entries[date] = text
	observers := make([]func(string, string), len(c.observers))
	copy(observers, c.observers)
	c.mu.Unlock()

	if c.store != nil {
		if err := c.store.SaveSummary(ctx, c.symbol, date, text); err != nil {
			c.log.Warn("persisting summary", "date", date, "err", err)
		}
	}
	for _, fn := range observers {
		fn(date, text)
	}
}

// NewsFetcher builds a FetchFunc on top of the news search service: one
// query scoped to the instrument and the specific date. The service's
// synopsis is preferred; without one the top headlines are joined.
func NewsFetcher(svc *news.Service) FetchFunc {
	return func(ctx context.Context, symbol, date string) (string, error) {
		res, err := svc.Search(ctx, news.Request{
			Query: symbol + " stock",
			Date:  date,
			Limit: 8,
		})
		if err != nil {
			return "", err
		}
		if res.Summary != "" {
			return res.Summary, nil
		}
		if len(res.Articles) == 0 {
			return "", nil
		}
		headlines := make([]string, 0, 3)
		for _, a := range res.Articles {
			headlines = append(headlines, a.Headline)
			if len(headlines) == 3 {
				break
			}
		}
		return strings.Join(headlines, " · "), nil
	}
}
