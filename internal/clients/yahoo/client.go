package yahoo

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/atlasresearch/atlas/internal/cache"
	"github.com/atlasresearch/atlas/internal/clients/base"
	"github.com/atlasresearch/atlas/internal/ratelimit"
)

const (
	baseURL      = "https://query2.finance.yahoo.com"
	rateLimitKey = "yahoo-finance"

	profileTTL    = 7 * 24 * time.Hour
	financialsTTL = 24 * time.Hour
	searchTTL     = time.Hour
)

// Client talks to the unofficial Yahoo Finance query API. The endpoints
// are flaky, so lookup failures degrade to nil results instead of errors;
// only context cancellation is propagated.
type Client struct {
	http          *base.Client
	marketDataTTL time.Duration
	log           zerolog.Logger
}

// New builds a Yahoo Finance client. marketDataTTL bounds how long quotes
// are served from cache.
func New(marketDataTTL time.Duration, store cache.Store, limiter *ratelimit.Limiter, log zerolog.Logger) *Client {
	if marketDataTTL <= 0 {
		marketDataTTL = 5 * time.Minute
	}
	cfg := base.Config{
		BaseURL: baseURL,
		Headers: map[string]string{
			"User-Agent": "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			"Accept":     "application/json",
		},
		RateLimitKey:    rateLimitKey,
		RateLimitMax:    60,
		RateLimitWindow: time.Minute,
		CacheTTL:        marketDataTTL,
	}
	return &Client{
		http:          base.New("yahoo", cfg, store, limiter, log),
		marketDataTTL: marketDataTTL,
		log:           log.With().Str("client", "yahoo").Logger(),
	}
}

// GetQuote fetches the current market quote for a symbol.
func (c *Client) GetQuote(ctx context.Context, symbol string) (*Quote, error) {
	query := url.Values{"symbols": {symbol}}
	var resp quoteResponse
	err := c.http.GetJSON(ctx, "/v7/finance/quote", query, base.RequestOptions{
		CacheKey: base.CacheKey("yahoo:quote", map[string]string{"symbol": symbol}),
		CacheTTL: c.marketDataTTL,
	}, &resp)
	if err != nil {
		return nil, c.absorb(err, "quote", symbol)
	}
	if len(resp.QuoteResponse.Result) == 0 {
		return nil, nil
	}
	return &resp.QuoteResponse.Result[0], nil
}

// GetHistoricalData fetches price bars for a symbol. Daily data is cached
// longer than intraday data.
func (c *Client) GetHistoricalData(ctx context.Context, symbol, rng, interval string) ([]PricePoint, error) {
	if rng == "" {
		rng = "1mo"
	}
	if interval == "" {
		interval = "1d"
	}
	ttl := 5 * time.Minute
	if interval == "1d" {
		ttl = time.Hour
	}

	query := url.Values{"range": {rng}, "interval": {interval}}
	var resp chartResponse
	err := c.http.GetJSON(ctx, "/v8/finance/chart/"+url.PathEscape(symbol), query, base.RequestOptions{
		CacheKey: base.CacheKey("yahoo:chart", map[string]string{
			"symbol": symbol, "range": rng, "interval": interval,
		}),
		CacheTTL: ttl,
	}, &resp)
	if err != nil {
		return []PricePoint{}, c.absorb(err, "chart", symbol)
	}
	if len(resp.Chart.Result) == 0 || len(resp.Chart.Result[0].Indicators.Quote) == 0 {
		return []PricePoint{}, nil
	}

	result := resp.Chart.Result[0]
	bars := result.Indicators.Quote[0]
	points := make([]PricePoint, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		p := PricePoint{Timestamp: ts}
		if i < len(bars.Open) {
			p.Open = bars.Open[i]
		}
		if i < len(bars.High) {
			p.High = bars.High[i]
		}
		if i < len(bars.Low) {
			p.Low = bars.Low[i]
		}
		if i < len(bars.Close) {
			p.Close = bars.Close[i]
		}
		if i < len(bars.Volume) {
			p.Volume = bars.Volume[i]
		}
		points = append(points, p)
	}
	return points, nil
}

// GetCompanyProfile fetches the business profile modules for a symbol.
func (c *Client) GetCompanyProfile(ctx context.Context, symbol string) (*CompanyProfile, error) {
	resp, err := c.quoteSummary(ctx, symbol, "assetProfile,summaryProfile", profileTTL)
	if err != nil || resp == nil {
		return nil, err
	}
	if resp.AssetProfile != nil {
		return resp.AssetProfile, nil
	}
	return resp.SummaryProfile, nil
}

// GetFinancials fetches the financial statement modules for a symbol,
// merging financialData over defaultKeyStatistics.
func (c *Client) GetFinancials(ctx context.Context, symbol string) (*Financials, error) {
	resp, err := c.quoteSummary(ctx, symbol, "financialData,defaultKeyStatistics,incomeStatementHistory", financialsTTL)
	if err != nil || resp == nil {
		return nil, err
	}
	fin := resp.FinancialData
	stats := resp.DefaultKeyStatistics
	if fin == nil {
		return stats, nil
	}
	if stats != nil {
		if fin.EnterpriseValue == nil {
			fin.EnterpriseValue = stats.EnterpriseValue
		}
		if fin.SharesOutstanding == nil {
			fin.SharesOutstanding = stats.SharesOutstanding
		}
		if fin.BookValue == nil {
			fin.BookValue = stats.BookValue
		}
		if fin.PriceToBook == nil {
			fin.PriceToBook = stats.PriceToBook
		}
	}
	return fin, nil
}

type summaryModules = struct {
	AssetProfile         *CompanyProfile `json:"assetProfile"`
	SummaryProfile       *CompanyProfile `json:"summaryProfile"`
	FinancialData        *Financials     `json:"financialData"`
	DefaultKeyStatistics *Financials     `json:"defaultKeyStatistics"`
}

func (c *Client) quoteSummary(ctx context.Context, symbol, modules string, ttl time.Duration) (*summaryModules, error) {
	query := url.Values{"modules": {modules}}
	var resp quoteSummaryResponse
	err := c.http.GetJSON(ctx, "/v10/finance/quoteSummary/"+url.PathEscape(symbol), query, base.RequestOptions{
		CacheKey: base.CacheKey("yahoo:summary", map[string]string{
			"symbol": symbol, "modules": modules,
		}),
		CacheTTL: ttl,
	}, &resp)
	if err != nil {
		return nil, c.absorb(err, "quoteSummary", symbol)
	}
	if len(resp.QuoteSummary.Result) == 0 {
		return nil, nil
	}
	return &resp.QuoteSummary.Result[0], nil
}

// SearchSymbols looks up symbols and company names matching a query.
func (c *Client) SearchSymbols(ctx context.Context, q string) ([]SearchHit, error) {
	query := url.Values{"q": {q}}
	var resp searchResponse
	err := c.http.GetJSON(ctx, "/v1/finance/search", query, base.RequestOptions{
		CacheKey: base.CacheKey("yahoo:search", map[string]string{"q": q}),
		CacheTTL: searchTTL,
	}, &resp)
	if err != nil {
		return []SearchHit{}, c.absorb(err, "search", q)
	}
	if resp.Quotes == nil {
		return []SearchHit{}, nil
	}
	return resp.Quotes, nil
}

// absorb logs a lookup failure and swallows it unless the context ended.
func (c *Client) absorb(err error, op, subject string) error {
	if ctxErr := contextError(err); ctxErr != nil {
		return ctxErr
	}
	c.log.Warn().Err(err).Str("op", op).Str("subject", subject).Msg("yahoo lookup failed")
	return nil
}

func contextError(err error) error {
	for _, ctxErr := range []error{context.Canceled, context.DeadlineExceeded} {
		if errors.Is(err, ctxErr) {
			return ctxErr
		}
	}
	return nil
}
