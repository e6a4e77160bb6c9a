package quotes

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"github.com/gabrbl/tilde-news-summary/internal/market"
)

// earliestHistory bounds a MAX-range fetch. Alpaca's SIP feed starts in 2016.
const earliestHistory = 10 * 365

// AlpacaProvider fetches daily bars from the Alpaca market-data API.
type AlpacaProvider struct {
	client *marketdata.Client
	log    *slog.Logger
}

// NewAlpacaProvider creates a provider using the given API credentials.
// dataURL overrides the default market-data endpoint when non-empty.
func NewAlpacaProvider(apiKey, apiSecret, dataURL string) *AlpacaProvider {
	opts := marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if dataURL != "" {
		opts.BaseURL = dataURL
	}
	return &AlpacaProvider{
		client: marketdata.NewClient(opts),
		log:    slog.Default().With("provider", "alpaca"),
	}
}

// DailyBars fetches daily OHLCV bars for the symbol and maps them to raw
// rows. Fetch failures are classified by classifyError; the provider
// answering with nothing at all is left to the normalizer to classify as a
// no-data outcome.
func (p *AlpacaProvider) DailyBars(ctx context.Context, symbol string, lookbackDays int) ([]market.Row, Meta, error) {
	if ctx.Err() != nil {
		return nil, Meta{}, ctx.Err()
	}

	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, Meta{}, &market.ValidationError{Field: "symbol", Reason: "must not be empty"}
	}

	if lookbackDays <= 0 {
		lookbackDays = earliestHistory
	}
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -lookbackDays)

	bars, err := p.client.GetBars(symbol, marketdata.GetBarsRequest{
		TimeFrame: marketdata.OneDay,
		Start:     start,
		End:       end,
		Feed:      "sip",
	})
	if err != nil {
		p.log.Warn("daily bars fetch failed", "symbol", symbol, "err", err)
		return nil, Meta{}, classifyError(err)
	}

	rows := make([]market.Row, 0, len(bars))
	for _, b := range bars {
		rows = append(rows, market.Row{
			Timestamp: b.Timestamp.Format(time.RFC3339),
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
			AdjClose:  b.Close,
			Volume:    float64(b.Volume),
		})
	}

	p.log.Debug("daily bars fetched", "symbol", symbol, "count", len(rows))
	return rows, Meta{LastUpdated: end, Timezone: "America/New_York"}, nil
}

// classifyError maps an SDK failure onto the provider error taxonomy. The
// API answering 429 is a rate limit, any other API response is an upstream
// failure, and everything else is a transport problem reaching the API.
func classifyError(err error) error {
	var apiErr *alpaca.APIError
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusTooManyRequests {
			return &market.RateLimitError{Provider: "alpaca"}
		}
		return &market.UpstreamError{Provider: "alpaca", Err: apiErr}
	}
	return &market.TransportError{Provider: "alpaca", Err: err}
}
