// Package tilde provides a Go SDK for the explorer server API.
package tilde

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gabrbl/tilde-news-summary/internal/explorer"
	"github.com/gabrbl/tilde-news-summary/internal/httpapi"
	"github.com/gabrbl/tilde-news-summary/internal/news"
)

// Client talks to a running explorer server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// NewsOptions filter a news search. Date and Days are mutually exclusive.
type NewsOptions struct {
	Date  string
	Days  int
	Limit int
}

// News searches news for a free-text query.
func (c *Client) News(ctx context.Context, query string, opts NewsOptions) (news.Result, error) {
	q := url.Values{"query": {query}}
	if opts.Date != "" {
		q.Set("date", opts.Date)
	}
	if opts.Days > 0 {
		q.Set("days", strconv.Itoa(opts.Days))
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	var res news.Result
	err := c.do(ctx, http.MethodGet, "/api/news?"+q.Encode(), nil, &res)
	return res, err
}

// Stocks fetches the series and detected spikes for a symbol. rng may be
// empty for the default range.
func (c *Client) Stocks(ctx context.Context, symbol, rng string) (httpapi.StocksResponse, error) {
	path := "/api/stocks/" + url.PathEscape(symbol)
	if rng != "" {
		path += "?range=" + url.QueryEscape(rng)
	}
	var res httpapi.StocksResponse
	err := c.do(ctx, http.MethodGet, path, nil, &res)
	return res, err
}

// CreateSession opens an explorer session and returns its ID.
func (c *Client) CreateSession(ctx context.Context) (string, error) {
	var res httpapi.SessionResponse
	if err := c.do(ctx, http.MethodPost, "/api/explorer/sessions", nil, &res); err != nil {
		return "", err
	}
	return res.ID, nil
}

// LoadSeries loads a symbol and range into a session.
func (c *Client) LoadSeries(ctx context.Context, sessionID, symbol, rng string) (explorer.SeriesView, error) {
	var res explorer.SeriesView
	err := c.do(ctx, http.MethodPost, c.sessionPath(sessionID)+"/series",
		httpapi.LoadSeriesRequest{Symbol: symbol, Range: rng}, &res)
	return res, err
}

// Select selects the series point at index and returns the resulting
// selection state.
func (c *Client) Select(ctx context.Context, sessionID string, index int, geom explorer.ChartGeometry) (explorer.Selection, error) {
	var res explorer.Selection
	err := c.do(ctx, http.MethodPost, c.sessionPath(sessionID)+"/select",
		httpapi.SelectRequest{Index: index, Geometry: geom}, &res)
	return res, err
}

// Selection returns the session's current selection state.
func (c *Client) Selection(ctx context.Context, sessionID string) (explorer.Selection, error) {
	var res explorer.Selection
	err := c.do(ctx, http.MethodGet, c.sessionPath(sessionID)+"/selection", nil, &res)
	return res, err
}

// Dismiss clears the session's selection.
func (c *Client) Dismiss(ctx context.Context, sessionID string) error {
	return c.do(ctx, http.MethodDelete, c.sessionPath(sessionID)+"/selection", nil, nil)
}

// CloseSession drops the session.
func (c *Client) CloseSession(ctx context.Context, sessionID string) error {
	return c.do(ctx, http.MethodDelete, c.sessionPath(sessionID), nil, nil)
}

func (c *Client) sessionPath(id string) string {
	return "/api/explorer/sessions/" + url.PathEscape(id)
}

// APIError is a non-2xx response from the server.
type APIError struct {
	Status      int
	Message     string
	Suggestions []string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var apiErr httpapi.ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return &APIError{Status: resp.StatusCode, Message: apiErr.Error, Suggestions: apiErr.Suggestions}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
