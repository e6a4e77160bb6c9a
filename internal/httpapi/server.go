// Package httpapi exposes the news search and stock explorer over HTTP JSON.
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gabrbl/tilde-news-summary/internal/explorer"
	"github.com/gabrbl/tilde-news-summary/internal/market"
	"github.com/gabrbl/tilde-news-summary/internal/news"
	"github.com/gabrbl/tilde-news-summary/internal/quotes"
	"github.com/gabrbl/tilde-news-summary/internal/store"
)

// Server serves the explorer HTTP API.
type Server struct {
	news     *news.Service
	provider quotes.Provider
	registry *explorer.Registry
	series   store.SeriesStore // archived symbols, used for ticker suggestions (nil disables)
	detect   market.DetectParams
	geom     explorer.ChartGeometry
	log      *slog.Logger
}

// NewServer creates the API server.
func NewServer(
	newsSvc *news.Service,
	provider quotes.Provider,
	registry *explorer.Registry,
	series store.SeriesStore,
	detect market.DetectParams,
	geom explorer.ChartGeometry,
	log *slog.Logger,
) *Server {
	if log == nil {
		log = slog.Default()
	}
	if detect.LeftWindow <= 0 || detect.RightWindow <= 0 {
		detect = market.DefaultDetectParams
	}
	return &Server{
		news:     newsSvc,
		provider: provider,
		registry: registry,
		series:   series,
		detect:   detect,
		geom:     geom,
		log:      log.With("component", "httpapi"),
	}
}

// RegisterRoutes registers all API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /api/news", s.handleNews)
	mux.HandleFunc("GET /api/stocks/{symbol}", s.handleStocks)
	mux.HandleFunc("POST /api/explorer/sessions", s.handleCreateSession)
	mux.HandleFunc("POST /api/explorer/sessions/{id}/series", s.handleLoadSeries)
	mux.HandleFunc("POST /api/explorer/sessions/{id}/select", s.handleSelect)
	mux.HandleFunc("GET /api/explorer/sessions/{id}/selection", s.handleGetSelection)
	mux.HandleFunc("DELETE /api/explorer/sessions/{id}/selection", s.handleDismiss)
	mux.HandleFunc("DELETE /api/explorer/sessions/{id}", s.handleDeleteSession)
}

// Handler returns an http.Handler with CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// writeDomainError maps the market error taxonomy onto HTTP statuses:
// validation 400, unknown ticker 404 (+suggestions), rate limit 429,
// transport 504, upstream 502.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	var (
		verr *market.ValidationError
		nf   *market.NotFoundError
		rl   *market.RateLimitError
		te   *market.TransportError
		ue   *market.UpstreamError
	)
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Error())
	case errors.As(err, &nf):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: nf.Error(), Suggestions: nf.Suggestions})
	case errors.As(err, &rl):
		writeError(w, http.StatusTooManyRequests, rl.Error())
	case errors.As(err, &te):
		writeError(w, http.StatusGatewayTimeout, te.Error())
	case errors.As(err, &ue):
		writeError(w, http.StatusBadGateway, ue.Error())
	case errors.Is(err, explorer.ErrSuperseded):
		writeError(w, http.StatusConflict, err.Error())
	default:
		s.log.Error("unclassified error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := news.Request{
		Query: q.Get("query"),
		Date:  q.Get("date"),
	}
	if v := q.Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "days must be an integer")
			return
		}
		req.Days = n
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		req.Limit = n
	}

	res, err := s.news.Search(r.Context(), req)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleStocks(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(r.PathValue("symbol"))
	rng, err := market.ParseRange(r.URL.Query().Get("range"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	rows, meta, err := s.provider.DailyBars(r.Context(), symbol, quotes.LookbackFor(rng))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	series, err := market.Normalize(rows, rng)
	if err != nil {
		s.writeDomainError(w, s.withSuggestions(r, symbol, err))
		return
	}

	spikes := market.DetectSpikes(series, s.detect)
	if spikes == nil {
		spikes = []market.Spike{}
	}
	writeJSON(w, http.StatusOK, StocksResponse{
		Symbol: symbol,
		Range:  rng,
		Points: series,
		Spikes: spikes,
		Meta:   meta,
	})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess := s.registry.Create()
	writeJSON(w, http.StatusCreated, SessionResponse{ID: sess.ID})
}

func (s *Server) handleLoadSeries(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req LoadSeriesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	rng, err := market.ParseRange(req.Range)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	symbol := strings.ToUpper(req.Symbol)
	view, err := sess.LoadSeries(r.Context(), symbol, rng)
	if err != nil {
		s.writeDomainError(w, s.withSuggestions(r, symbol, err))
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req SelectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	sel, err := sess.Select(r.Context(), req.Index, s.mergeGeometry(req.Geometry))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sel)
}

func (s *Server) handleGetSelection(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.Selection())
}

func (s *Server) handleDismiss(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	sess.Dismiss()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	s.registry.Delete(r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*explorer.Session, bool) {
	sess, ok := s.registry.Get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown session")
		return nil, false
	}
	return sess, true
}

// mergeGeometry fills geometry fields the client left zero with the
// configured defaults.
func (s *Server) mergeGeometry(g explorer.ChartGeometry) explorer.ChartGeometry {
	if g.Width == 0 {
		g.Width = s.geom.Width
	}
	if g.Height == 0 {
		g.Height = s.geom.Height
	}
	if g.ViewportWidth == 0 {
		g.ViewportWidth = s.geom.ViewportWidth
	}
	if g.PopoverWidth == 0 {
		g.PopoverWidth = s.geom.PopoverWidth
	}
	if g.Margin == 0 {
		g.Margin = s.geom.Margin
	}
	if g.OffsetY == 0 {
		g.OffsetY = s.geom.OffsetY
	}
	return g
}

// withSuggestions turns a no-data result into an unknown-ticker error with
// near-miss suggestions drawn from the archived symbol list.
func (s *Server) withSuggestions(r *http.Request, symbol string, err error) error {
	if !errors.Is(err, market.ErrNoData) {
		return err
	}
	var suggestions []string
	if s.series != nil {
		archived, lerr := s.series.ListSymbols(r.Context())
		if lerr != nil {
			s.log.Warn("listing archived symbols", "error", lerr)
		}
		suggestions = suggestFrom(symbol, archived)
	}
	return &market.NotFoundError{Symbol: symbol, Suggestions: suggestions}
}

// suggestFrom picks up to five archived symbols sharing a prefix with the
// failed lookup, longest prefix first.
func suggestFrom(symbol string, archived []string) []string {
	if symbol == "" {
		return nil
	}
	var out []string
	for prefix := len(symbol); prefix > 0 && len(out) < 5; prefix-- {
		for _, cand := range archived {
			if cand == symbol || !strings.HasPrefix(cand, symbol[:prefix]) {
				continue
			}
			if !contains(out, cand) {
				out = append(out, cand)
				if len(out) == 5 {
					break
				}
			}
		}
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
