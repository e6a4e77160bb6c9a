package news

import (
	"context"
	"encoding/xml"
	"html"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/gabrbl/tilde-news-summary/internal/market"
	"github.com/gabrbl/tilde-news-summary/internal/util"
)

type rssResponse struct {
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title   string `xml:"title"`
	PubDate string `xml:"pubDate"`
	Desc    string `xml:"description"`
}

// --- Google News RSS ---

// GoogleNewsSource searches Google News RSS for a free-text query.
type GoogleNewsSource struct {
	client *util.HTTPClient
}

// NewGoogleNewsSource creates a Google News RSS source sharing the given
// outbound HTTP client.
func NewGoogleNewsSource(client *util.HTTPClient) *GoogleNewsSource {
	return &GoogleNewsSource{client: client}
}

func (s *GoogleNewsSource) Name() string { return "google" }

// Fetch queries the Google News RSS search feed and keeps items inside the
// window. The trailing " - Publisher" suffix Google appends to headlines is
// stripped.
func (s *GoogleNewsSource) Fetch(ctx context.Context, query string, start, end time.Time) ([]Article, error) {
	q := url.QueryEscape(query)
	u := "https://news.google.com/rss/search?q=" + q + "&hl=en-US&gl=US&ceid=US:en"

	rss, err := s.fetchFeed(ctx, u)
	if err != nil {
		return nil, err
	}

	var articles []Article
	for _, item := range rss.Channel.Items {
		t, ok := parsePubDate(item.PubDate)
		if !ok || t.Before(start) || t.After(end) {
			continue
		}
		headline := item.Title
		if idx := strings.LastIndex(headline, " - "); idx > 0 {
			headline = headline[:idx]
		}
		articles = append(articles, Article{
			Time:     t,
			Source:   "google",
			Headline: headline,
			Content:  StripHTML(item.Desc),
		})
	}
	return articles, nil
}

func (s *GoogleNewsSource) fetchFeed(ctx context.Context, u string) (*rssResponse, error) {
	return fetchRSS(ctx, s.client, "google", u)
}

// --- GlobeNewswire RSS ---

// GlobeNewswireSource fetches the GlobeNewswire keyword feed. It only
// yields useful results for ticker-like queries, which is exactly what
// enrichment lookups send.
type GlobeNewswireSource struct {
	client *util.HTTPClient
}

// NewGlobeNewswireSource creates a GlobeNewswire RSS source.
func NewGlobeNewswireSource(client *util.HTTPClient) *GlobeNewswireSource {
	return &GlobeNewswireSource{client: client}
}

func (s *GlobeNewswireSource) Name() string { return "globenewswire" }

func (s *GlobeNewswireSource) Fetch(ctx context.Context, query string, start, end time.Time) ([]Article, error) {
	keyword := strings.Fields(query)
	if len(keyword) == 0 {
		return nil, nil
	}
	u := "https://www.globenewswire.com/RssFeed/keyword/" + url.PathEscape(keyword[0]) + "/feedTitle/GlobeNewswire.xml"

	rss, err := fetchRSS(ctx, s.client, "globenewswire", u)
	if err != nil {
		return nil, err
	}

	var articles []Article
	for _, item := range rss.Channel.Items {
		t, ok := parsePubDate(item.PubDate)
		if !ok || t.Before(start) || t.After(end) {
			continue
		}
		articles = append(articles, Article{
			Time:     t,
			Source:   "globenewswire",
			Headline: item.Title,
			Content:  StripHTML(item.Desc),
		})
	}
	return articles, nil
}

// --- shared helpers ---

func fetchRSS(ctx context.Context, client *util.HTTPClient, provider, u string) (*rssResponse, error) {
	resp, err := client.Do(ctx, func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", "Mozilla/5.0")
		return req, nil
	})
	if err != nil {
		return nil, &market.TransportError{Provider: provider, Err: err}
	}
	defer resp.Body.Close()

	var rss rssResponse
	if err := xml.NewDecoder(resp.Body).Decode(&rss); err != nil {
		return nil, &market.UpstreamError{Provider: provider, Err: err}
	}
	return &rss, nil
}

// parsePubDate tries the pubDate formats seen across RSS feeds.
func parsePubDate(s string) (time.Time, bool) {
	for _, layout := range []string{
		time.RFC1123Z,
		time.RFC1123,
		"Mon, 02 Jan 2006 15:04 MST",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

var htmlTagRe = regexp.MustCompile(`<[^>]*>`)

// StripHTML removes HTML tags and normalizes whitespace.
func StripHTML(s string) string {
	s = htmlTagRe.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}
