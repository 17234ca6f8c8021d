package edgar

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/atlasresearch/atlas/internal/cache"
	"github.com/atlasresearch/atlas/internal/clients/base"
	"github.com/atlasresearch/atlas/internal/ratelimit"
)

const (
	baseURL    = "https://data.sec.gov"
	archiveURL = "https://www.sec.gov/Archives/edgar/data"

	// SEC fair-access policy: 10 requests per second.
	rateLimitKey = "sec-edgar"

	tickerTableKey = "edgar:company-tickers"
	tickerTableTTL = 24 * time.Hour
)

// Client talks to the SEC EDGAR submissions API.
type Client struct {
	http *base.Client
	log  zerolog.Logger
}

// New builds an EDGAR client. The SEC requires a descriptive User-Agent
// with contact information.
func New(userAgent string, store cache.Store, limiter *ratelimit.Limiter, log zerolog.Logger) *Client {
	cfg := base.Config{
		BaseURL: baseURL,
		Headers: map[string]string{
			"User-Agent": userAgent,
			"Accept":     "application/json",
		},
		RateLimitKey:    rateLimitKey,
		RateLimitMax:    10,
		RateLimitWindow: time.Second,
		CacheTTL:        7 * 24 * time.Hour,
	}
	return &Client{
		http: base.New("edgar", cfg, store, limiter, log),
		log:  log.With().Str("client", "edgar").Logger(),
	}
}

// NormalizeCIK strips leading zeros from a CIK string.
func NormalizeCIK(cik string) string {
	trimmed := strings.TrimLeft(cik, "0")
	if trimmed == "" {
		return "0"
	}
	return trimmed
}

// PadCIK left-pads a CIK to the 10 digits the submissions API expects.
func PadCIK(cik string) string {
	return fmt.Sprintf("%010s", NormalizeCIK(cik))
}

// GetCompanyByCIK fetches the full submissions record for a company.
// Returns nil without error when the CIK is unknown to the SEC.
func (c *Client) GetCompanyByCIK(ctx context.Context, cik string) (*CompanyInfo, error) {
	padded := PadCIK(cik)
	var info CompanyInfo
	err := c.http.GetJSON(ctx, "/submissions/CIK"+padded+".json", nil, base.RequestOptions{
		CacheKey: base.CacheKey("edgar:company", map[string]string{"cik": padded}),
	}, &info)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetching submissions for CIK %s: %w", padded, err)
	}
	return &info, nil
}

// GetCompanyTickers fetches the SEC ticker table. The table is large and
// changes rarely, so it is cached under a single key for a day.
func (c *Client) GetCompanyTickers(ctx context.Context) (map[string]TickerEntry, error) {
	var table map[string]TickerEntry
	err := c.http.GetJSON(ctx, "/files/company_tickers.json", nil, base.RequestOptions{
		CacheKey: tickerTableKey,
		CacheTTL: tickerTableTTL,
	}, &table)
	if err != nil {
		return nil, fmt.Errorf("fetching ticker table: %w", err)
	}
	return table, nil
}

// GetCompanyByTicker resolves a ticker symbol to its submissions record.
// Returns nil without error when the ticker is not listed.
func (c *Client) GetCompanyByTicker(ctx context.Context, ticker string) (*CompanyInfo, error) {
	table, err := c.GetCompanyTickers(ctx)
	if err != nil {
		return nil, err
	}
	upper := strings.ToUpper(ticker)
	for _, entry := range table {
		if strings.ToUpper(entry.Ticker) == upper {
			return c.GetCompanyByCIK(ctx, fmt.Sprintf("%d", entry.CIK))
		}
	}
	c.log.Debug().Str("ticker", ticker).Msg("ticker not found in SEC table")
	return nil, nil
}

// GetRecentFilings returns up to limit filings for a company, optionally
// restricted to one form type. Each filing carries a synthesized archive URL.
func (c *Client) GetRecentFilings(ctx context.Context, cik, formType string, limit int) ([]Filing, error) {
	info, err := c.GetCompanyByCIK(ctx, cik)
	if err != nil {
		return nil, err
	}
	if info == nil {
		return []Filing{}, nil
	}
	if limit <= 0 {
		limit = 10
	}

	recent := info.Filings.Recent
	cikNoZeros := NormalizeCIK(cik)
	filings := make([]Filing, 0, limit)
	for i := range recent.AccessionNumber {
		if formType != "" && recent.Form[i] != formType {
			continue
		}
		f := Filing{
			AccessionNumber: recent.AccessionNumber[i],
			FilingDate:      at(recent.FilingDate, i),
			ReportDate:      at(recent.ReportDate, i),
			Form:            at(recent.Form, i),
			FileNumber:      at(recent.FileNumber, i),
			FilmNumber:      at(recent.FilmNumber, i),
			Items:           at(recent.Items, i),
			PrimaryDocument: at(recent.PrimaryDocument, i),
		}
		if i < len(recent.Size) {
			f.Size = recent.Size[i]
		}
		if i < len(recent.IsXBRL) {
			f.IsXBRL = recent.IsXBRL[i] == 1
		}
		if i < len(recent.IsInlineXBRL) {
			f.IsInlineXBRL = recent.IsInlineXBRL[i] == 1
		}
		if i < len(recent.PrimaryDocDescription) {
			f.PrimaryDocDescription = recent.PrimaryDocDescription[i]
		}
		f.DocumentURL = fmt.Sprintf("%s/%s/%s/%s",
			archiveURL, cikNoZeros,
			strings.ReplaceAll(f.AccessionNumber, "-", ""),
			f.PrimaryDocument)
		filings = append(filings, f)
		if len(filings) >= limit {
			break
		}
	}
	return filings, nil
}

// GetAnnualReports returns the most recent 10-K filings.
func (c *Client) GetAnnualReports(ctx context.Context, cik string) ([]Filing, error) {
	return c.GetRecentFilings(ctx, cik, "10-K", 5)
}

// GetQuarterlyReports returns the most recent 10-Q filings.
func (c *Client) GetQuarterlyReports(ctx context.Context, cik string) ([]Filing, error) {
	return c.GetRecentFilings(ctx, cik, "10-Q", 8)
}

// GetInsiderTrading returns recent Form 4 filings.
func (c *Client) GetInsiderTrading(ctx context.Context, cik string) ([]Filing, error) {
	return c.GetRecentFilings(ctx, cik, "4", 20)
}

// SearchCompanies matches query against company titles in the SEC ticker
// table, returning at most ten hits.
func (c *Client) SearchCompanies(ctx context.Context, query string) ([]SearchResult, error) {
	table, err := c.GetCompanyTickers(ctx)
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(query)
	results := make([]SearchResult, 0, 10)
	for _, entry := range table {
		if strings.Contains(strings.ToLower(entry.Title), needle) {
			results = append(results, SearchResult{
				CIK:    fmt.Sprintf("%d", entry.CIK),
				Title:  entry.Title,
				Ticker: entry.Ticker,
			})
			if len(results) >= 10 {
				break
			}
		}
	}
	return results, nil
}

func at(s []string, i int) string {
	if i < len(s) {
		return s[i]
	}
	return ""
}
