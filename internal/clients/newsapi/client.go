package newsapi

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/atlasresearch/atlas/internal/cache"
	"github.com/atlasresearch/atlas/internal/clients/base"
	"github.com/atlasresearch/atlas/internal/ratelimit"
)

const (
	baseURL      = "https://newsapi.org/v2"
	rateLimitKey = "newsapi"

	headlinesTTL = time.Hour
)

// Article is one news item.
type Article struct {
	Source struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"source"`
	Author      string `json:"author"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	URLToImage  string `json:"urlToImage"`
	PublishedAt string `json:"publishedAt"`
	Content     string `json:"content"`
}

type articlesResponse struct {
	Status       string    `json:"status"`
	TotalResults int       `json:"totalResults"`
	Articles     []Article `json:"articles"`
}

// EverythingQuery parameterizes the /everything endpoint.
type EverythingQuery struct {
	Query    string
	From     time.Time
	To       time.Time
	SortBy   string
	PageSize int
}

// Client talks to NewsAPI. Without an API key all lookups return empty
// results; the free tier allows 100 requests per day.
type Client struct {
	http    *base.Client
	apiKey  string
	newsTTL time.Duration
	log     zerolog.Logger
	now     func() time.Time
}

// New builds a NewsAPI client. apiKey may be empty, newsTTL bounds how long
// article lists are served from cache.
func New(apiKey string, newsTTL time.Duration, store cache.Store, limiter *ratelimit.Limiter, log zerolog.Logger) *Client {
	if newsTTL <= 0 {
		newsTTL = 30 * time.Minute
	}
	cfg := base.Config{
		BaseURL: baseURL,
		Headers: map[string]string{
			"X-Api-Key": apiKey,
			"Accept":    "application/json",
		},
		RateLimitKey:    rateLimitKey,
		RateLimitMax:    100,
		RateLimitWindow: 24 * time.Hour,
		CacheTTL:        newsTTL,
	}
	return &Client{
		http:    base.New("newsapi", cfg, store, limiter, log),
		apiKey:  apiKey,
		newsTTL: newsTTL,
		log:     log.With().Str("client", "newsapi").Logger(),
		now:     time.Now,
	}
}

// GetEverything searches all indexed articles.
func (c *Client) GetEverything(ctx context.Context, q EverythingQuery) ([]Article, error) {
	if c.apiKey == "" {
		c.log.Warn().Msg("no NewsAPI key configured, returning empty results")
		return []Article{}, nil
	}
	if q.SortBy == "" {
		q.SortBy = "publishedAt"
	}
	if q.PageSize <= 0 {
		q.PageSize = 10
	}

	query := url.Values{
		"q":        {q.Query},
		"language": {"en"},
		"sortBy":   {q.SortBy},
		"pageSize": {strconv.Itoa(q.PageSize)},
	}
	cacheParams := map[string]string{
		"q": q.Query, "sortBy": q.SortBy, "pageSize": strconv.Itoa(q.PageSize),
	}
	if !q.From.IsZero() {
		from := q.From.Format("2006-01-02")
		query.Set("from", from)
		cacheParams["from"] = from
	}
	if !q.To.IsZero() {
		to := q.To.Format("2006-01-02")
		query.Set("to", to)
		cacheParams["to"] = to
	}

	var resp articlesResponse
	err := c.http.GetJSON(ctx, "/everything", query, base.RequestOptions{
		CacheKey: base.CacheKey("news:everything", cacheParams),
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("searching news for %q: %w", q.Query, err)
	}
	if resp.Articles == nil {
		return []Article{}, nil
	}
	return resp.Articles, nil
}

// GetCompanyNews returns recent articles mentioning a company, covering
// the last thirty days.
func (c *Client) GetCompanyNews(ctx context.Context, companyName string, pageSize int) ([]Article, error) {
	if pageSize <= 0 {
		pageSize = 10
	}
	now := c.now()
	return c.GetEverything(ctx, EverythingQuery{
		Query:    fmt.Sprintf("%q", companyName),
		From:     now.AddDate(0, 0, -30),
		To:       now,
		PageSize: pageSize,
	})
}

// GetFundingNews returns articles about a company's fundraising activity
// over the last ninety days, ranked by relevancy.
func (c *Client) GetFundingNews(ctx context.Context, companyName string) ([]Article, error) {
	now := c.now()
	query := fmt.Sprintf("%q AND (funding OR \"raised\" OR \"investment\" OR \"series\" OR \"round\")", companyName)
	return c.GetEverything(ctx, EverythingQuery{
		Query:    query,
		From:     now.AddDate(0, 0, -90),
		To:       now,
		SortBy:   "relevancy",
		PageSize: 10,
	})
}

// GetTopHeadlines returns current headlines for a category and country.
func (c *Client) GetTopHeadlines(ctx context.Context, category, country string) ([]Article, error) {
	if c.apiKey == "" {
		c.log.Warn().Msg("no NewsAPI key configured, returning empty results")
		return []Article{}, nil
	}
	if country == "" {
		country = "us"
	}

	query := url.Values{"country": {country}}
	if category != "" {
		query.Set("category", category)
	}

	var resp articlesResponse
	err := c.http.GetJSON(ctx, "/top-headlines", query, base.RequestOptions{
		CacheKey: base.CacheKey("news:headlines", map[string]string{
			"category": category, "country": country,
		}),
		CacheTTL: headlinesTTL,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("fetching headlines: %w", err)
	}
	if resp.Articles == nil {
		return []Article{}, nil
	}
	return resp.Articles, nil
}
