// Package news searches financial news across multiple sources: the Alpaca
// news API, Google News RSS, and GlobeNewswire RSS. Results are merged,
// ranked newest-first, and optionally condensed into a short synopsis by a
// summarizer collaborator.
package news

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gabrbl/tilde-news-summary/internal/market"
)

// Article is a single news article from any source.
type Article struct {
	Time     time.Time `json:"time"`
	Source   string    `json:"source"`
	Headline string    `json:"headline"`
	Content  string    `json:"content,omitempty"`
}

// Request describes a news search. Date and Days are mutually exclusive:
// Date restricts results to one calendar day, Days to a trailing window.
type Request struct {
	Query string
	Date  string // YYYY-MM-DD
	Days  int
	Limit int
}

const (
	defaultDays  = 7
	defaultLimit = 10
	maxLimit     = 100
)

// Window resolves the request into an absolute [start, end] time range,
// validating the parameters first. No network call happens on a validation
// failure.
func (r Request) Window(now time.Time) (start, end time.Time, err error) {
	if strings.TrimSpace(r.Query) == "" {
		return time.Time{}, time.Time{}, &market.ValidationError{Field: "query", Reason: "must not be empty"}
	}
	if r.Date != "" && r.Days != 0 {
		return time.Time{}, time.Time{}, &market.ValidationError{Field: "date", Reason: "date and days are mutually exclusive"}
	}
	if r.Days < 0 {
		return time.Time{}, time.Time{}, &market.ValidationError{Field: "days", Reason: "must be positive"}
	}

	if r.Date != "" {
		day, perr := time.Parse("2006-01-02", r.Date)
		if perr != nil {
			return time.Time{}, time.Time{}, &market.ValidationError{Field: "date", Reason: "expected YYYY-MM-DD"}
		}
		return day, day.AddDate(0, 0, 1), nil
	}

	days := r.Days
	if days == 0 {
		days = defaultDays
	}
	return now.AddDate(0, 0, -days), now, nil
}

func (r Request) limit() int {
	if r.Limit <= 0 {
		return defaultLimit
	}
	if r.Limit > maxLimit {
		return maxLimit
	}
	return r.Limit
}

// Result is a ranked article list with an optional synopsis.
type Result struct {
	Articles []Article `json:"news"`
	Summary  string    `json:"summary,omitempty"`
}

// Source fetches articles matching a free-text query within a time window.
type Source interface {
	Name() string
	Fetch(ctx context.Context, query string, start, end time.Time) ([]Article, error)
}

// Summarizer condenses an article list into a short natural-language
// synopsis. It is an optional collaborator; a Service without one simply
// omits the summary.
type Summarizer interface {
	Summarize(ctx context.Context, articles []Article) (string, error)
}

// Service fans a search out to all configured sources concurrently, merges
// the results newest-first, and truncates to the requested limit. A failing
// source degrades that source only, never the whole search.
type Service struct {
	sources    []Source
	summarizer Summarizer
	log        *slog.Logger
}

// NewService creates a news search service. summarizer may be nil.
func NewService(sources []Source, summarizer Summarizer, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		sources:    sources,
		summarizer: summarizer,
		log:        log.With("component", "news"),
	}
}

// Search runs the request against all sources.
func (s *Service) Search(ctx context.Context, req Request) (Result, error) {
	start, end, err := req.Window(time.Now().UTC())
	if err != nil {
		return Result{}, err
	}

	var (
		g, gctx = errgroup.WithContext(ctx)
		merged  = make([][]Article, len(s.sources))
	)
	for i, src := range s.sources {
		g.Go(func() error {
			articles, ferr := src.Fetch(gctx, req.Query, start, end)
			if ferr != nil {
				s.log.Warn("source failed", "source", src.Name(), "err", ferr)
				return nil
			}
			merged[i] = articles
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	var all []Article
	for _, batch := range merged {
		all = append(all, batch...)
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].Time.After(all[j].Time) })
	if limit := req.limit(); len(all) > limit {
		all = all[:limit]
	}

	res := Result{Articles: all}
	if s.summarizer != nil && len(all) > 0 {
		summary, serr := s.summarizer.Summarize(ctx, all)
		if serr != nil {
			s.log.Warn("summarizer failed", "err", serr)
		} else {
			res.Summary = summary
		}
	}
	return res, nil
}
