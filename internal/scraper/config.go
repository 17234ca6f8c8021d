package scraper

import (
	"net/url"
	"regexp"
	"strings"
)

// PaginationType describes how a portfolio page exposes more results.
type PaginationType string

const (
	PaginationNone   PaginationType = "none"
	PaginationButton PaginationType = "button"
	PaginationScroll PaginationType = "scroll"
)

// Selectors are the CSS selectors used to pull company entries out of a
// portfolio page. Container is required, the rest are optional.
type Selectors struct {
	Container   string `json:"container"`
	Name        string `json:"name"`
	Website     string `json:"website,omitempty"`
	Description string `json:"description,omitempty"`
	Logo        string `json:"logo,omitempty"`
}

// Config describes how to scrape one investor's portfolio page.
type Config struct {
	Name          string         `json:"name"`
	BaseURL       string         `json:"baseUrl"`
	PortfolioURL  string         `json:"portfolioUrl"`
	Selectors     Selectors      `json:"selectors"`
	JavaScript    bool           `json:"javascript"`
	Pagination    PaginationType `json:"pagination"`
	MaxPages      int            `json:"maxPages,omitempty"`
	WaitSelector  string         `json:"waitSelector,omitempty"`
	WaitTimeoutMs int            `json:"waitTimeoutMs,omitempty"`
}

// Templates are pre-built configurations for well-known investors.
var Templates = map[string]Config{
	"sequoia-capital": {
		Name:         "Sequoia Capital",
		BaseURL:      "https://www.sequoiacap.com",
		PortfolioURL: "https://www.sequoiacap.com/companies/",
		JavaScript:   true,
		Selectors: Selectors{
			Container:   `[data-testid="company-card"]`,
			Name:        "h3",
			Website:     "a[href]",
			Description: "p",
		},
		WaitSelector:  `[data-testid="company-card"]`,
		WaitTimeoutMs: 5000,
		Pagination:    PaginationScroll,
		MaxPages:      10,
	},
	"andreessen-horowitz": {
		Name:         "Andreessen Horowitz (a16z)",
		BaseURL:      "https://a16z.com",
		PortfolioURL: "https://a16z.com/portfolio/",
		JavaScript:   true,
		Selectors: Selectors{
			Container:   ".portfolio-company",
			Name:        ".company-name",
			Website:     "a[href]",
			Description: ".company-description",
		},
		WaitSelector:  ".portfolio-company",
		WaitTimeoutMs: 5000,
		Pagination:    PaginationScroll,
		MaxPages:      10,
	},
	"benchmark": {
		Name:         "Benchmark",
		BaseURL:      "https://www.benchmark.com",
		PortfolioURL: "https://www.benchmark.com/companies",
		JavaScript:   false,
		Selectors: Selectors{
			Container: ".company-item",
			Name:      "h3",
			Website:   "a[href]",
		},
		Pagination: PaginationNone,
	},
	"accel": {
		Name:         "Accel",
		BaseURL:      "https://www.accel.com",
		PortfolioURL: "https://www.accel.com/companies",
		JavaScript:   true,
		Selectors: Selectors{
			Container:   "[data-company]",
			Name:        ".company-name",
			Website:     "a[href]",
			Description: ".company-tagline",
		},
		WaitSelector:  "[data-company]",
		WaitTimeoutMs: 5000,
		Pagination:    PaginationButton,
		MaxPages:      20,
	},
	"greylock": {
		Name:         "Greylock Partners",
		BaseURL:      "https://greylock.com",
		PortfolioURL: "https://greylock.com/portfolio/",
		JavaScript:   true,
		Selectors: Selectors{
			Container: ".portfolio-item",
			Name:      "h3",
			Website:   "a[href]",
		},
		WaitSelector:  ".portfolio-item",
		WaitTimeoutMs: 5000,
		Pagination:    PaginationScroll,
		MaxPages:      10,
	},
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]`)

// ConfigFor resolves a scraper configuration by investor name or URL.
// Returns nil when no template matches.
func ConfigFor(nameOrURL string) *Config {
	normalized := nonAlnum.ReplaceAllString(strings.ToLower(nameOrURL), "-")
	for key, cfg := range Templates {
		if strings.Contains(normalized, key) || strings.Contains(nameOrURL, cfg.BaseURL) {
			c := cfg
			return &c
		}
	}
	return nil
}

// GenericConfig builds a best-effort configuration for an unknown
// portfolio URL.
func GenericConfig(rawURL string) (*Config, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	return &Config{
		Name:         strings.TrimPrefix(u.Hostname(), "www."),
		BaseURL:      u.Scheme + "://" + u.Host,
		PortfolioURL: rawURL,
		JavaScript:   false,
		Selectors: Selectors{
			Container:   ".company, [data-company], .portfolio-item",
			Name:        "h1, h2, h3, h4, .name, .title",
			Website:     "a[href]",
			Description: "p, .description, .tagline",
		},
		Pagination: PaginationNone,
	}, nil
}

// IsURL reports whether s parses as an absolute http(s) URL.
func IsURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
