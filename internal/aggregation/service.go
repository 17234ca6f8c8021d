// Package aggregation combines company data from every upstream provider
// into a single enriched record. Lookups run concurrently and individual
// provider failures never abort the others; whatever arrived gets merged.
package aggregation

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/atlasresearch/atlas/internal/clients/edgar"
	"github.com/atlasresearch/atlas/internal/clients/newsapi"
	"github.com/atlasresearch/atlas/internal/clients/opencorporates"
	"github.com/atlasresearch/atlas/internal/clients/wikidata"
	"github.com/atlasresearch/atlas/internal/clients/yahoo"
	"github.com/atlasresearch/atlas/internal/domain"
	"github.com/atlasresearch/atlas/internal/modules/companies"
)

// StaleAfter is how long fetched company data stays fresh.
const StaleAfter = 30 * 24 * time.Hour

// batchDelay spaces out batch enrichment to stay friendly to upstream
// rate limits.
const batchDelay = time.Second

// EdgarAPI is the slice of the SEC EDGAR client used during enrichment.
type EdgarAPI interface {
	GetCompanyByTicker(ctx context.Context, ticker string) (*edgar.CompanyInfo, error)
}

// YahooAPI is the slice of the Yahoo Finance client used during enrichment.
type YahooAPI interface {
	GetQuote(ctx context.Context, symbol string) (*yahoo.Quote, error)
	GetCompanyProfile(ctx context.Context, symbol string) (*yahoo.CompanyProfile, error)
	GetFinancials(ctx context.Context, symbol string) (*yahoo.Financials, error)
}

// OpenCorporatesAPI is the slice of the OpenCorporates client used during
// enrichment.
type OpenCorporatesAPI interface {
	SearchCompanies(ctx context.Context, q, jurisdiction string) ([]opencorporates.Company, error)
}

// WikidataAPI is the slice of the Wikidata client used during enrichment.
type WikidataAPI interface {
	GetCompanyData(ctx context.Context, name string) (*wikidata.CompanyData, error)
}

// NewsAPI is the slice of the NewsAPI client used during enrichment.
type NewsAPI interface {
	GetCompanyNews(ctx context.Context, companyName string, pageSize int) ([]newsapi.Article, error)
}

// Enriched is the merged view of one company across all providers.
type Enriched struct {
	CompanyID string `json:"companyId"`

	Name          string   `json:"name,omitempty"`
	LegalName     string   `json:"legalName,omitempty"`
	Description   string   `json:"description,omitempty"`
	Website       string   `json:"website,omitempty"`
	Industry      string   `json:"industry,omitempty"`
	Sector        string   `json:"sector,omitempty"`
	Headquarters  string   `json:"headquarters,omitempty"`
	City          string   `json:"city,omitempty"`
	State         string   `json:"state,omitempty"`
	Country       string   `json:"country,omitempty"`
	CIK           string   `json:"cik,omitempty"`
	Exchange      string   `json:"exchange,omitempty"`
	FoundedYear   *int     `json:"foundedYear,omitempty"`
	EmployeeCount *int     `json:"employeeCount,omitempty"`
	MarketCap     *float64 `json:"marketCap,omitempty"`
	Revenue       *float64 `json:"revenue,omitempty"`

	News    []newsapi.Article   `json:"news"`
	Sources []domain.DataSource `json:"sources"`
	Errors  []string            `json:"errors"`

	raw   map[string]interface{}
	quote *yahoo.Quote
}

// BatchItem is the outcome of one company in a batch enrichment run.
type BatchItem struct {
	CompanyID string `json:"companyId"`
	Error     string `json:"error,omitempty"`
}

// BatchResult summarizes a batch enrichment run.
type BatchResult struct {
	Enriched int         `json:"enriched"`
	Failed   int         `json:"failed"`
	Items    []BatchItem `json:"items"`
}

// Service orchestrates multi-provider company enrichment.
type Service struct {
	repo     *companies.Repository
	edgar    EdgarAPI
	yahoo    YahooAPI
	oc       OpenCorporatesAPI
	wikidata WikidataAPI
	news     NewsAPI
	log      zerolog.Logger
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewService creates a new aggregation service. Any client may be nil, in
// which case that provider is skipped.
func NewService(
	repo *companies.Repository,
	edgarClient EdgarAPI,
	yahooClient YahooAPI,
	ocClient OpenCorporatesAPI,
	wikidataClient WikidataAPI,
	newsClient NewsAPI,
	log zerolog.Logger,
) *Service {
	return &Service{
		repo:     repo,
		edgar:    edgarClient,
		yahoo:    yahooClient,
		oc:       ocClient,
		wikidata: wikidataClient,
		news:     newsClient,
		log:      log.With().Str("service", "aggregation").Logger(),
		now:      time.Now,
		sleep:    sleepCtx,
	}
}

// provider slot order decides merge precedence: earlier providers win
// contested fields.
const (
	slotEdgar = iota
	slotQuote
	slotProfile
	slotFinancials
	slotOpenCorporates
	slotWikidata
	slotNews
	slotCount
)

type slotResult struct {
	data interface{}
	err  error
}

// EnrichCompany fetches every provider concurrently and merges the results
// into one enriched record. Provider failures are collected, not fatal.
func (s *Service) EnrichCompany(ctx context.Context, companyID string) (*Enriched, error) {
	company, err := s.repo.GetByID(companyID)
	if err != nil {
		return nil, err
	}

	results := s.fetchAll(ctx, company)
	enriched := s.merge(company, results)

	if err := s.SaveEnrichedData(company, enriched); err != nil {
		return nil, err
	}
	s.log.Info().
		Str("company", company.Name).
		Int("sources", len(enriched.Sources)).
		Int("errors", len(enriched.Errors)).
		Msg("Company enrichment complete")
	return enriched, nil
}

func (s *Service) fetchAll(ctx context.Context, company *domain.Company) []slotResult {
	results := make([]slotResult, slotCount)
	var wg sync.WaitGroup

	run := func(slot int, fn func() (interface{}, error)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			data, err := fn()
			results[slot] = slotResult{data: data, err: err}
		}()
	}

	if s.edgar != nil && company.Ticker != "" {
		run(slotEdgar, func() (interface{}, error) {
			return s.edgar.GetCompanyByTicker(ctx, company.Ticker)
		})
	}
	if s.yahoo != nil && company.Ticker != "" {
		run(slotQuote, func() (interface{}, error) {
			return s.yahoo.GetQuote(ctx, company.Ticker)
		})
		run(slotProfile, func() (interface{}, error) {
			return s.yahoo.GetCompanyProfile(ctx, company.Ticker)
		})
		run(slotFinancials, func() (interface{}, error) {
			return s.yahoo.GetFinancials(ctx, company.Ticker)
		})
	}
	if s.oc != nil {
		run(slotOpenCorporates, func() (interface{}, error) {
			return s.oc.SearchCompanies(ctx, company.Name, "")
		})
	}
	if s.wikidata != nil {
		run(slotWikidata, func() (interface{}, error) {
			return s.wikidata.GetCompanyData(ctx, company.Name)
		})
	}
	if s.news != nil {
		run(slotNews, func() (interface{}, error) {
			return s.news.GetCompanyNews(ctx, company.Name, 10)
		})
	}

	wg.Wait()
	return results
}

func (s *Service) merge(company *domain.Company, results []slotResult) *Enriched {
	e := &Enriched{
		CompanyID: company.ID,
		News:      []newsapi.Article{},
		// The stored record itself is always the first source; providers
		// only fill what it left empty.
		Sources: []domain.DataSource{domain.SourceDatabase},
		Errors:  []string{},
		raw:     make(map[string]interface{}),
	}

	for slot, result := range results {
		if result.err != nil {
			e.Errors = append(e.Errors, fmt.Sprintf("%s: %v", slotSource(slot), result.err))
			continue
		}
		if result.data == nil {
			continue
		}
		switch slot {
		case slotEdgar:
			s.applyEdgar(e, result.data)
		case slotQuote:
			s.applyQuote(e, result.data)
		case slotProfile:
			s.applyProfile(e, result.data)
		case slotFinancials:
			s.applyFinancials(e, result.data)
		case slotOpenCorporates:
			s.applyOpenCorporates(e, result.data)
		case slotWikidata:
			s.applyWikidata(e, result.data)
		case slotNews:
			s.applyNews(e, result.data)
		}
	}
	return e
}

func (s *Service) applyEdgar(e *Enriched, data interface{}) {
	info, ok := data.(*edgar.CompanyInfo)
	if !ok || info == nil {
		return
	}
	setIfEmpty(&e.Name, info.Name)
	setIfEmpty(&e.CIK, info.CIK)
	setIfEmpty(&e.Industry, info.SICDescription)
	setIfEmpty(&e.Website, info.Website)
	if len(info.Exchanges) > 0 {
		setIfEmpty(&e.Exchange, info.Exchanges[0])
	}
	if addr := info.Addresses.Business; addr != nil {
		setIfEmpty(&e.City, addr.City)
		setIfEmpty(&e.State, addr.StateOrCountry)
	}
	s.recordSource(e, domain.SourceSECEdgar, info)
}

func (s *Service) applyQuote(e *Enriched, data interface{}) {
	quote, ok := data.(*yahoo.Quote)
	if !ok || quote == nil {
		return
	}
	setIfEmpty(&e.Name, quote.LongName)
	setIfEmpty(&e.Name, quote.ShortName)
	setIfEmpty(&e.Exchange, quote.FullExchangeName)
	if quote.MarketCap > 0 && e.MarketCap == nil {
		v := quote.MarketCap
		e.MarketCap = &v
	}
	e.quote = quote
	s.recordSource(e, domain.SourceYahooFinance, quote)
}

func (s *Service) applyProfile(e *Enriched, data interface{}) {
	profile, ok := data.(*yahoo.CompanyProfile)
	if !ok || profile == nil {
		return
	}
	setIfEmpty(&e.Description, profile.LongBusinessSummary)
	setIfEmpty(&e.Website, profile.Website)
	setIfEmpty(&e.Industry, profile.Industry)
	setIfEmpty(&e.Sector, profile.Sector)
	setIfEmpty(&e.City, profile.City)
	setIfEmpty(&e.State, profile.State)
	setIfEmpty(&e.Country, profile.Country)
	if profile.FullTimeEmployees > 0 && e.EmployeeCount == nil {
		v := profile.FullTimeEmployees
		e.EmployeeCount = &v
	}
	s.recordSource(e, domain.SourceYahooFinance, profile)
}

func (s *Service) applyFinancials(e *Enriched, data interface{}) {
	fin, ok := data.(*yahoo.Financials)
	if !ok || fin == nil {
		return
	}
	if fin.TotalRevenue != nil && fin.TotalRevenue.Raw > 0 && e.Revenue == nil {
		v := fin.TotalRevenue.Raw
		e.Revenue = &v
	}
	s.recordSource(e, domain.SourceYahooFinance, fin)
}

func (s *Service) applyOpenCorporates(e *Enriched, data interface{}) {
	hits, ok := data.([]opencorporates.Company)
	if !ok || len(hits) == 0 {
		return
	}
	first := hits[0]
	setIfEmpty(&e.LegalName, first.Name)
	if first.RegisteredAddress != nil {
		setIfEmpty(&e.City, first.RegisteredAddress.Locality)
		setIfEmpty(&e.State, first.RegisteredAddress.Region)
		setIfEmpty(&e.Country, first.RegisteredAddress.Country)
	}
	setIfEmpty(&e.Headquarters, first.AddressInFull)
	s.recordSource(e, domain.SourceOpenCorporates, first)
}

func (s *Service) applyWikidata(e *Enriched, data interface{}) {
	wd, ok := data.(*wikidata.CompanyData)
	if !ok || wd == nil {
		return
	}
	setIfEmpty(&e.Description, wd.Description)
	setIfEmpty(&e.Website, wd.Website)
	setIfEmpty(&e.Industry, wd.Industry)
	setIfEmpty(&e.Headquarters, wd.Headquarters)
	if e.FoundedYear == nil {
		if year := foundedYear(wd.FoundedDate); year != nil {
			e.FoundedYear = year
		}
	}
	if wd.Employees != nil && e.EmployeeCount == nil {
		v := int(*wd.Employees)
		e.EmployeeCount = &v
	}
	if wd.Revenue != nil && e.Revenue == nil {
		e.Revenue = wd.Revenue
	}
	s.recordSource(e, domain.SourceWikidata, wd)
}

func (s *Service) applyNews(e *Enriched, data interface{}) {
	articles, ok := data.([]newsapi.Article)
	if !ok || len(articles) == 0 {
		return
	}
	if len(articles) > 10 {
		articles = articles[:10]
	}
	e.News = articles
	s.recordSource(e, domain.SourceNewsAPI, articles)
}

func (s *Service) recordSource(e *Enriched, source domain.DataSource, payload interface{}) {
	for _, existing := range e.Sources {
		if existing == source {
			e.raw[string(source)] = payload
			return
		}
	}
	e.Sources = append(e.Sources, source)
	e.raw[string(source)] = payload
}

// SaveEnrichedData writes merged fields back onto the company record. Only
// empty fields are filled; existing data is never overwritten.
func (s *Service) SaveEnrichedData(company *domain.Company, e *Enriched) error {
	setIfEmpty(&company.Description, e.Description)
	setIfEmpty(&company.Website, e.Website)
	setIfEmpty(&company.Industry, e.Industry)
	setIfEmpty(&company.Sector, e.Sector)
	setIfEmpty(&company.Headquarters, e.Headquarters)
	setIfEmpty(&company.City, e.City)
	setIfEmpty(&company.State, e.State)
	setIfEmpty(&company.Country, e.Country)
	setIfEmpty(&company.CIK, e.CIK)
	setIfEmpty(&company.Exchange, e.Exchange)
	if company.FoundedYear == nil {
		company.FoundedYear = e.FoundedYear
	}
	if company.EmployeeCount == nil {
		company.EmployeeCount = e.EmployeeCount
	}
	if e.MarketCap != nil {
		company.MarketCap = e.MarketCap
	}
	if company.Revenue == nil {
		company.Revenue = e.Revenue
	}

	if len(e.raw) > 0 {
		raw, err := json.Marshal(e.raw)
		if err == nil {
			company.RawData = string(raw)
		}
	}
	if company.DataSource == "" || company.DataSource == domain.SourceManual {
		for _, src := range e.Sources {
			if src != domain.SourceDatabase {
				company.DataSource = src
				break
			}
		}
	}
	now := s.now()
	company.LastFetched = &now
	company.UpdatedAt = now

	if err := s.repo.Update(company); err != nil {
		return err
	}

	// A successful quote also lands as a daily market data snapshot.
	if e.quote != nil && e.quote.RegularMarketPrice > 0 {
		if err := s.saveMarketSnapshot(company.ID, e.quote, now); err != nil {
			s.log.Warn().Err(err).Str("company", company.ID).Msg("Failed to save market snapshot")
		}
	}
	return nil
}

func (s *Service) saveMarketSnapshot(companyID string, quote *yahoo.Quote, now time.Time) error {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	md := &domain.MarketData{
		ID:        uuid.NewString(),
		CompanyID: companyID,
		Date:      day,
	}
	md.Close = &quote.RegularMarketPrice
	if quote.RegularMarketPreviousClose > 0 {
		md.Open = &quote.RegularMarketPreviousClose
	}
	if quote.RegularMarketDayHigh > 0 {
		md.High = &quote.RegularMarketDayHigh
	}
	if quote.RegularMarketDayLow > 0 {
		md.Low = &quote.RegularMarketDayLow
	}
	if quote.RegularMarketVolume > 0 {
		md.Volume = &quote.RegularMarketVolume
	}
	if quote.MarketCap > 0 {
		md.MarketCap = &quote.MarketCap
	}
	return s.repo.UpsertMarketSnapshot(md)
}

// IsCompanyDataStale reports whether a company needs re-enrichment.
func (s *Service) IsCompanyDataStale(company *domain.Company) bool {
	if company.LastFetched == nil {
		return true
	}
	return s.now().Sub(*company.LastFetched) > StaleAfter
}

// GetStaleCompanies returns companies whose data is missing or older than
// the staleness window, oldest first.
func (s *Service) GetStaleCompanies(limit int) ([]domain.Company, error) {
	return s.repo.GetStale(StaleAfter, limit)
}

// BatchEnrich enriches companies one at a time with a delay between each,
// collecting per-company outcomes.
func (s *Service) BatchEnrich(ctx context.Context, companyIDs []string) (*BatchResult, error) {
	result := &BatchResult{Items: []BatchItem{}}
	for i, id := range companyIDs {
		if i > 0 {
			if err := s.sleep(ctx, batchDelay); err != nil {
				return result, err
			}
		}
		item := BatchItem{CompanyID: id}
		if _, err := s.EnrichCompany(ctx, id); err != nil {
			item.Error = err.Error()
			result.Failed++
		} else {
			result.Enriched++
		}
		result.Items = append(result.Items, item)
	}
	return result, nil
}

func slotSource(slot int) string {
	switch slot {
	case slotEdgar:
		return "sec-edgar"
	case slotQuote, slotProfile, slotFinancials:
		return "yahoo-finance"
	case slotOpenCorporates:
		return "opencorporates"
	case slotWikidata:
		return "wikidata"
	case slotNews:
		return "newsapi"
	}
	return "unknown"
}

// foundedYear extracts the year from a Wikidata timestamp like
// "+1976-04-01T00:00:00Z".
func foundedYear(foundedDate string) *int {
	if len(foundedDate) < 5 {
		return nil
	}
	year, err := strconv.Atoi(foundedDate[1:5])
	if err != nil || year == 0 {
		return nil
	}
	return &year
}

func setIfEmpty(dst *string, value string) {
	if *dst == "" && value != "" {
		*dst = value
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
