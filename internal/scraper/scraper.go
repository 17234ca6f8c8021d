// Package scraper extracts portfolio company listings from investor
// websites using CSS selector templates.
package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
)

// ScrapedCompany is one company entry pulled from a portfolio page.
type ScrapedCompany struct {
	Name           string `json:"name"`
	Website        string `json:"website,omitempty"`
	Description    string `json:"description,omitempty"`
	LogoURL        string `json:"logoUrl,omitempty"`
	InvestmentDate string `json:"investmentDate,omitempty"`
}

// Result is the outcome of a portfolio scrape.
type Result struct {
	Success    bool             `json:"success"`
	Companies  []ScrapedCompany `json:"companies"`
	Error      string           `json:"error,omitempty"`
	TotalFound int              `json:"totalFound"`
}

// Scraper fetches and parses investor portfolio pages.
type Scraper struct {
	httpClient *http.Client
	log        zerolog.Logger
}

// New builds a scraper with a 10 second fetch timeout.
func New(log zerolog.Logger) *Scraper {
	return &Scraper{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		log:        log.With().Str("component", "scraper").Logger(),
	}
}

// ScrapePortfolio scrapes an investor's portfolio page. nameOrURL is
// matched against the built-in templates first; unknown URLs fall back to
// a generic selector set. overrides, when non-nil, replaces the resolved
// configuration's populated fields.
func (s *Scraper) ScrapePortfolio(ctx context.Context, nameOrURL string, overrides *Config) Result {
	cfg := ConfigFor(nameOrURL)
	if cfg == nil && IsURL(nameOrURL) {
		generic, err := GenericConfig(nameOrURL)
		if err == nil {
			cfg = generic
		}
	}
	if cfg != nil && overrides != nil {
		applyOverrides(cfg, overrides)
	}
	if cfg == nil {
		return Result{
			Success:   false,
			Companies: []ScrapedCompany{},
			Error:     "no scraper configuration found for investor",
		}
	}

	s.log.Info().Str("investor", cfg.Name).Str("url", cfg.PortfolioURL).Msg("scraping portfolio")

	if cfg.JavaScript {
		// Headless-browser rendering is not implemented. Many portfolio
		// pages still ship their listings in the initial HTML.
		s.log.Warn().Str("investor", cfg.Name).Msg("javascript rendering not implemented, scraping static HTML")
	}
	return s.scrapeStatic(ctx, cfg)
}

func (s *Scraper) scrapeStatic(ctx context.Context, cfg *Config) Result {
	doc, err := s.fetch(ctx, cfg.PortfolioURL)
	if err != nil {
		s.log.Error().Err(err).Str("url", cfg.PortfolioURL).Msg("portfolio fetch failed")
		return Result{Success: false, Companies: []ScrapedCompany{}, Error: err.Error()}
	}

	companies := s.extract(doc, cfg)
	s.log.Info().Int("count", len(companies)).Str("investor", cfg.Name).Msg("scrape complete")
	return Result{
		Success:    true,
		Companies:  companies,
		TotalFound: len(companies),
	}
}

func (s *Scraper) fetch(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7)")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s: HTTP %d", pageURL, resp.StatusCode)
	}
	return goquery.NewDocumentFromReader(resp.Body)
}

func (s *Scraper) extract(doc *goquery.Document, cfg *Config) []ScrapedCompany {
	companies := make([]ScrapedCompany, 0)
	doc.Find(cfg.Selectors.Container).Each(func(_ int, el *goquery.Selection) {
		name := strings.TrimSpace(el.Text())
		if cfg.Selectors.Name != "" {
			name = strings.TrimSpace(el.Find(cfg.Selectors.Name).First().Text())
		}
		if name == "" {
			return
		}

		company := ScrapedCompany{Name: name}
		if cfg.Selectors.Website != "" {
			if href, ok := el.Find(cfg.Selectors.Website).First().Attr("href"); ok && href != "" {
				company.Website = NormalizeURL(href, cfg.BaseURL)
			}
		}
		if cfg.Selectors.Description != "" {
			if desc := strings.TrimSpace(el.Find(cfg.Selectors.Description).First().Text()); desc != "" {
				company.Description = desc
			}
		}
		if cfg.Selectors.Logo != "" {
			if src, ok := el.Find(cfg.Selectors.Logo).First().Attr("src"); ok && src != "" {
				company.LogoURL = NormalizeURL(src, cfg.BaseURL)
			}
		}
		companies = append(companies, company)
	})
	return companies
}

func applyOverrides(cfg *Config, o *Config) {
	if o.Name != "" {
		cfg.Name = o.Name
	}
	if o.BaseURL != "" {
		cfg.BaseURL = o.BaseURL
	}
	if o.PortfolioURL != "" {
		cfg.PortfolioURL = o.PortfolioURL
	}
	if o.Selectors.Container != "" {
		cfg.Selectors = o.Selectors
	}
	if o.Pagination != "" {
		cfg.Pagination = o.Pagination
	}
	if o.JavaScript {
		cfg.JavaScript = true
	}
}

// NormalizeURL resolves a scraped href or src against the site base URL.
func NormalizeURL(raw, baseURL string) string {
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		return raw
	}
	if strings.HasPrefix(raw, "//") {
		return "https:" + raw
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return raw
	}
	if strings.HasPrefix(raw, "/") {
		return base.Scheme + "://" + base.Host + raw
	}
	return base.Scheme + "://" + base.Host + "/" + raw
}
