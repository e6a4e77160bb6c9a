// Package explorer holds the server-side state behind the stock-explorer UI:
// one Session per browser tab owning the loaded series, detected spikes,
// per-symbol enrichment caches, and the selection/popover state machine.
package explorer

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gabrbl/tilde-news-summary/internal/enrich"
	"github.com/gabrbl/tilde-news-summary/internal/market"
	"github.com/gabrbl/tilde-news-summary/internal/quotes"
	"github.com/gabrbl/tilde-news-summary/internal/store"
)

// ErrSuperseded reports that a series load finished after a newer load for
// the same session had already started; its response was discarded.
var ErrSuperseded = errors.New("series load superseded by a newer request")

// SelectionState is the popover lifecycle state.
type SelectionState string

const (
	StateIdle    SelectionState = "idle"    // nothing selected
	StatePending SelectionState = "pending" // spike selected, enrichment in flight
	StateLoaded  SelectionState = "loaded"  // enrichment text available (possibly fallback)
)

// Selection is a snapshot of the popover state. Spike and Anchor are both
// set (pending/loaded) or both nil (idle).
type Selection struct {
	State  SelectionState `json:"state"`
	Spike  *market.Spike  `json:"spike,omitempty"`
	Anchor *Anchor        `json:"anchor,omitempty"`
}

// clone detaches a snapshot from the live selection. Callers read snapshots
// outside the session mutex, so they must not share pointers with state the
// enrichment goroutine and observers mutate in place.
func (sel Selection) clone() Selection {
	out := Selection{State: sel.State}
	if sel.Spike != nil {
		spike := *sel.Spike
		out.Spike = &spike
	}
	if sel.Anchor != nil {
		anchor := *sel.Anchor
		out.Anchor = &anchor
	}
	return out
}

// SeriesView is a snapshot of the loaded chart data.
type SeriesView struct {
	Symbol string         `json:"symbol"`
	Range  market.Range   `json:"range"`
	Points market.Series  `json:"points"`
	Spikes []market.Spike `json:"spikes"`
	Meta   quotes.Meta    `json:"meta"`
}

// Deps are the collaborators a Session needs.
type Deps struct {
	Provider  quotes.Provider
	Fetch     enrich.FetchFunc
	Summaries store.SummaryStore // optional enrichment persistence
	Detect    market.DetectParams
	Logger    *slog.Logger
}

// Session owns the explorer state for one client. All exported methods are
// safe for concurrent use.
type Session struct {
	ID   string
	deps Deps
	log  *slog.Logger

	mu       sync.Mutex
	symbol   string
	rng      market.Range
	series   market.Series
	meta     quotes.Meta
	spikes   []market.Spike
	caches   map[string]*enrich.Cache // per-symbol, live for the whole session
	loadSeq  uint64                   // stale-response guard for LoadSeries
	selGen   uint64                   // invalidates in-flight enrichment applies
	sel      Selection
	lastUsed time.Time
}

// NewSession creates an idle session with the given ID.
func NewSession(id string, deps Deps) *Session {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	if deps.Detect.LeftWindow <= 0 || deps.Detect.RightWindow <= 0 {
		deps.Detect = market.DefaultDetectParams
	}
	return &Session{
		ID:       id,
		deps:     deps,
		log:      log.With("component", "explorer", "session", id),
		caches:   make(map[string]*enrich.Cache),
		sel:      Selection{State: StateIdle},
		lastUsed: time.Now(),
	}
}

// LoadSeries fetches, normalizes, and scans the series for a symbol and
// range, replacing all derived state. Concurrent loads race by sequence
// number: only the newest request's response is applied, older responses
// return ErrSuperseded without touching state. On a fetch or normalization
// failure the series, spikes, and selection are all cleared.
func (s *Session) LoadSeries(ctx context.Context, symbol string, r market.Range) (*SeriesView, error) {
	if symbol == "" {
		return nil, &market.ValidationError{Field: "symbol", Reason: "must not be empty"}
	}

	s.mu.Lock()
	s.loadSeq++
	seq := s.loadSeq
	s.lastUsed = time.Now()
	s.mu.Unlock()

	rows, meta, err := s.deps.Provider.DailyBars(ctx, symbol, quotes.LookbackFor(r))
	var series market.Series
	if err == nil {
		series, err = market.Normalize(rows, r)
	}

	var cache *enrich.Cache
	if err == nil {
		cache = s.cacheFor(symbol)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.loadSeq {
		return nil, ErrSuperseded
	}

	if err != nil {
		s.series = nil
		s.spikes = nil
		s.resetSelectionLocked()
		return nil, err
	}

	spikes := market.DetectSpikes(series, s.deps.Detect)
	for i := range spikes {
		if text, ok := cache.Peek(spikes[i].Date); ok {
			spikes[i].NewsLoaded = true
			spikes[i].NewsSummary = text
		}
	}

	s.symbol = cache.Symbol()
	s.rng = r
	s.series = series
	s.meta = meta
	s.spikes = spikes
	s.resetSelectionLocked()

	view := s.viewLocked()
	return &view, nil
}

// Select resolves a clicked series index to a spike, computes its popover
// anchor, and starts enrichment. A detected spike at that index is reused;
// any other point gets a synthesized "point" spike. Re-selecting replaces
// the previous selection atomically. A cache hit goes straight to loaded;
// otherwise the selection is pending until the fetch resolves.
func (s *Session) Select(ctx context.Context, index int, geom ChartGeometry) (Selection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUsed = time.Now()

	if len(s.series) == 0 {
		return Selection{}, &market.ValidationError{Field: "index", Reason: "no series loaded"}
	}
	if index < 0 || index >= len(s.series) {
		return Selection{}, &market.ValidationError{Field: "index", Reason: "out of range"}
	}

	spike := s.spikeAtLocked(index)
	anchor := s.anchorLocked(geom, index, spike.Close)
	// A loaded series implies cacheFor already ran for this symbol, and
	// caches are never dropped while the session lives.
	cache := s.caches[s.symbol]

	s.selGen++
	gen := s.selGen

	if text, ok := cache.Peek(spike.Date); ok {
		spike.NewsLoaded = true
		spike.NewsSummary = text
		s.sel = Selection{State: StateLoaded, Spike: &spike, Anchor: &anchor}
		return s.sel.clone(), nil
	}

	s.sel = Selection{State: StatePending, Spike: &spike, Anchor: &anchor}
	go s.enrichSelection(cache, spike.Date, gen)
	return s.sel.clone(), nil
}

// enrichSelection resolves enrichment for a pending selection. The fetch is
// detached from the request context: enrichment is idempotent and worth
// caching even if the selection is gone by the time it finishes.
func (s *Session) enrichSelection(cache *enrich.Cache, date string, gen uint64) {
	text := cache.GetOrFetch(context.Background(), date)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.selGen || s.sel.Spike == nil {
		return // selection replaced or dismissed while fetching
	}
	s.sel.State = StateLoaded
	s.sel.Spike.NewsLoaded = true
	s.sel.Spike.NewsSummary = text
}

// Dismiss returns the selection to idle. The spike and anchor are cleared
// together.
func (s *Session) Dismiss() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUsed = time.Now()
	s.resetSelectionLocked()
}

// Selection returns a detached snapshot of the current popover state.
func (s *Session) Selection() Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sel.clone()
}

// View returns a snapshot of the loaded series, or ok=false before the first
// successful load.
func (s *Session) View() (SeriesView, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.series == nil {
		return SeriesView{}, false
	}
	return s.viewLocked(), true
}

// LastUsed reports the time of the most recent operation, for idle expiry.
func (s *Session) LastUsed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

func (s *Session) viewLocked() SeriesView {
	// The spike list is mutated in place as summaries arrive; hand out a
	// copy. The series itself is immutable once set.
	spikes := make([]market.Spike, len(s.spikes))
	copy(spikes, s.spikes)
	return SeriesView{
		Symbol: s.symbol,
		Range:  s.rng,
		Points: s.series,
		Spikes: spikes,
		Meta:   s.meta,
	}
}

func (s *Session) resetSelectionLocked() {
	s.selGen++
	s.sel = Selection{State: StateIdle}
}

// spikeAtLocked returns a copy of the detected spike at index, or a
// synthesized point spike when the index was not flagged.
func (s *Session) spikeAtLocked(index int) market.Spike {
	for _, sp := range s.spikes {
		if sp.Index == index {
			return sp
		}
	}
	p := s.series[index]
	return market.Spike{
		Date:          p.Date,
		Index:         index,
		Close:         p.Close,
		ChangePercent: market.ChangePercent(s.series, index),
		Kind:          market.SpikePoint,
	}
}

func (s *Session) anchorLocked(geom ChartGeometry, index int, price float64) Anchor {
	minClose, maxClose := s.series[0].Close, s.series[0].Close
	for _, p := range s.series[1:] {
		if p.Close < minClose {
			minClose = p.Close
		}
		if p.Close > maxClose {
			maxClose = p.Close
		}
	}
	return AnchorFor(geom, index, len(s.series), price, minClose, maxClose)
}

// cacheFor returns the enrichment cache for a symbol, creating and wiring
// it on first use. Caches are never dropped while the session lives, so
// summaries survive ticker and range changes. Construction happens outside
// the session mutex: the warm load of persisted summaries does storage I/O
// and must not stall other session operations.
func (s *Session) cacheFor(symbol string) *enrich.Cache {
	key := strings.ToUpper(symbol)

	s.mu.Lock()
	cache, ok := s.caches[key]
	s.mu.Unlock()
	if ok {
		return cache
	}

	fresh := enrich.New(key, s.deps.Fetch, s.deps.Summaries, s.log)
	fresh.Subscribe(func(date, text string) { s.onSummary(key, date, text) })

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.caches[key]; ok {
		// Another load for the same symbol won the race.
		return existing
	}
	s.caches[key] = fresh
	return fresh
}

// onSummary propagates a cache store into the live spike list and the open
// selection when their dates match the stored entry.
func (s *Session) onSummary(symbol, date, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.symbol != symbol {
		return
	}
	for i := range s.spikes {
		if s.spikes[i].Date == date {
			s.spikes[i].NewsLoaded = true
			s.spikes[i].NewsSummary = text
		}
	}
	if s.sel.Spike != nil && s.sel.Spike.Date == date {
		s.sel.State = StateLoaded
		s.sel.Spike.NewsLoaded = true
		s.sel.Spike.NewsSummary = text
	}
}
