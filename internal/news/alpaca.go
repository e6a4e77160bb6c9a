package news

import (
	"context"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
)

// AlpacaSource fetches articles from the Alpaca news API. It only
// participates when the query looks like a ticker symbol, since the API is
// keyed by symbol rather than free text.
type AlpacaSource struct {
	client *marketdata.Client
}

// NewAlpacaSource creates an Alpaca news source from API credentials.
func NewAlpacaSource(apiKey, apiSecret, dataURL string) *AlpacaSource {
	opts := marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if dataURL != "" {
		opts.BaseURL = dataURL
	}
	return &AlpacaSource{client: marketdata.NewClient(opts)}
}

func (s *AlpacaSource) Name() string { return "alpaca" }

func (s *AlpacaSource) Fetch(ctx context.Context, query string, start, end time.Time) ([]Article, error) {
	symbol := symbolFromQuery(query)
	if symbol == "" {
		return nil, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	items, err := s.client.GetNews(marketdata.GetNewsRequest{
		Symbols:            []string{symbol},
		Start:              start,
		End:                end,
		TotalLimit:         50,
		ExcludeContentless: true,
		Sort:               marketdata.SortDesc,
	})
	if err != nil {
		return nil, err
	}

	articles := make([]Article, 0, len(items))
	for _, a := range items {
		articles = append(articles, Article{
			Time:     a.CreatedAt,
			Source:   "alpaca",
			Headline: a.Headline,
			Content:  a.Summary,
		})
	}
	return articles, nil
}

// symbolFromQuery extracts a leading ticker-like token (1-5 letters) from the
// query, or "" when the query is free text.
func symbolFromQuery(query string) string {
	fields := strings.Fields(strings.TrimSpace(query))
	if len(fields) == 0 {
		return ""
	}
	tok := strings.ToUpper(fields[0])
	if len(tok) > 5 {
		return ""
	}
	for _, r := range tok {
		if r < 'A' || r > 'Z' {
			return ""
		}
	}
	return tok
}
