package aggregation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlasresearch/atlas/internal/clients/edgar"
	"github.com/atlasresearch/atlas/internal/clients/newsapi"
	"github.com/atlasresearch/atlas/internal/clients/opencorporates"
	"github.com/atlasresearch/atlas/internal/clients/wikidata"
	"github.com/atlasresearch/atlas/internal/clients/yahoo"
	"github.com/atlasresearch/atlas/internal/domain"
	"github.com/atlasresearch/atlas/internal/modules/companies"
	atesting "github.com/atlasresearch/atlas/internal/testing"
)

type fakeEdgar struct {
	info *edgar.CompanyInfo
	err  error
}

func (f *fakeEdgar) GetCompanyByTicker(ctx context.Context, ticker string) (*edgar.CompanyInfo, error) {
	return f.info, f.err
}

type fakeYahoo struct {
	quote      *yahoo.Quote
	profile    *yahoo.CompanyProfile
	financials *yahoo.Financials
	err        error
}

func (f *fakeYahoo) GetQuote(ctx context.Context, symbol string) (*yahoo.Quote, error) {
	return f.quote, f.err
}

func (f *fakeYahoo) GetCompanyProfile(ctx context.Context, symbol string) (*yahoo.CompanyProfile, error) {
	return f.profile, f.err
}

func (f *fakeYahoo) GetFinancials(ctx context.Context, symbol string) (*yahoo.Financials, error) {
	return f.financials, f.err
}

type fakeOpenCorporates struct {
	hits []opencorporates.Company
	err  error
}

func (f *fakeOpenCorporates) SearchCompanies(ctx context.Context, q, jurisdiction string) ([]opencorporates.Company, error) {
	return f.hits, f.err
}

type fakeWikidata struct {
	data *wikidata.CompanyData
	err  error
}

func (f *fakeWikidata) GetCompanyData(ctx context.Context, name string) (*wikidata.CompanyData, error) {
	return f.data, f.err
}

type fakeNews struct {
	articles []newsapi.Article
	err      error
}

func (f *fakeNews) GetCompanyNews(ctx context.Context, companyName string, pageSize int) ([]newsapi.Article, error) {
	return f.articles, f.err
}

func seedCompany(t *testing.T, repo *companies.Repository, c *domain.Company) *domain.Company {
	t.Helper()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Slug == "" {
		c.Slug = domain.Slugify(c.Name) + "-" + c.ID[:8]
	}
	if c.Type == "" {
		c.Type = domain.CompanyPublic
	}
	now := time.Now()
	c.CreatedAt = now
	c.UpdatedAt = now
	require.NoError(t, repo.Create(c))
	return c
}

func TestEnrichCompany_MergesAllSources(t *testing.T) {
	db, cleanup := atesting.NewTestDB(t, "research")
	defer cleanup()
	repo := companies.NewRepository(db.Conn(), zerolog.Nop())

	company := seedCompany(t, repo, &domain.Company{Name: "Apple", Ticker: "AAPL"})

	edgarInfo := &edgar.CompanyInfo{CIK: "0000320193", Name: "Apple Inc.", SICDescription: "Electronic Computers"}
	edgarInfo.Exchanges = []string{"Nasdaq"}

	svc := NewService(repo,
		&fakeEdgar{info: edgarInfo},
		&fakeYahoo{
			quote:   &yahoo.Quote{LongName: "Apple Inc.", MarketCap: 3e12, FullExchangeName: "NasdaqGS"},
			profile: &yahoo.CompanyProfile{LongBusinessSummary: "Designs consumer electronics.", Website: "https://apple.com", Industry: "Consumer Electronics", Sector: "Technology", Country: "United States", FullTimeEmployees: 161000},
			financials: &yahoo.Financials{
				TotalRevenue: &yahoo.RawValue{Raw: 3.9e11},
			},
		},
		&fakeOpenCorporates{hits: []opencorporates.Company{{
			Name:          "APPLE INC.",
			AddressInFull: "One Apple Park Way, Cupertino CA",
		}}},
		&fakeWikidata{data: &wikidata.CompanyData{FoundedDate: "+1976-04-01T00:00:00Z"}},
		&fakeNews{articles: []newsapi.Article{{Title: "Apple ships new hardware"}}},
		zerolog.Nop(),
	)

	enriched, err := svc.EnrichCompany(context.Background(), company.ID)
	require.NoError(t, err)

	assert.Equal(t, "0000320193", enriched.CIK)
	// SIC description lands first, Yahoo does not overwrite it.
	assert.Equal(t, "Electronic Computers", enriched.Industry)
	assert.Equal(t, "Nasdaq", enriched.Exchange)
	assert.Equal(t, "Designs consumer electronics.", enriched.Description)
	assert.Equal(t, "APPLE INC.", enriched.LegalName)
	require.NotNil(t, enriched.MarketCap)
	assert.Equal(t, 3e12, *enriched.MarketCap)
	require.NotNil(t, enriched.Revenue)
	assert.Equal(t, 3.9e11, *enriched.Revenue)
	require.NotNil(t, enriched.FoundedYear)
	assert.Equal(t, 1976, *enriched.FoundedYear)
	assert.Len(t, enriched.News, 1)
	assert.Equal(t, []domain.DataSource{
		domain.SourceDatabase, domain.SourceSECEdgar, domain.SourceYahooFinance,
		domain.SourceOpenCorporates, domain.SourceWikidata, domain.SourceNewsAPI,
	}, enriched.Sources)
	assert.Empty(t, enriched.Errors)

	saved, err := repo.GetByID(company.ID)
	require.NoError(t, err)
	assert.Equal(t, "0000320193", saved.CIK)
	assert.Equal(t, "Designs consumer electronics.", saved.Description)
	require.NotNil(t, saved.MarketCap)
	require.NotNil(t, saved.LastFetched)
	assert.NotEmpty(t, saved.RawData)
}

func TestEnrichCompany_QuoteWritesMarketSnapshot(t *testing.T) {
	db, cleanup := atesting.NewTestDB(t, "research")
	defer cleanup()
	repo := companies.NewRepository(db.Conn(), zerolog.Nop())

	company := seedCompany(t, repo, &domain.Company{Name: "Apple", Ticker: "AAPL"})

	svc := NewService(repo, nil,
		&fakeYahoo{quote: &yahoo.Quote{
			RegularMarketPrice:  231.5,
			RegularMarketVolume: 48_000_000,
			MarketCap:           3e12,
		}},
		nil, nil, nil, zerolog.Nop(),
	)

	_, err := svc.EnrichCompany(context.Background(), company.ID)
	require.NoError(t, err)

	var count int
	var closePrice float64
	err = db.Conn().QueryRow(`SELECT COUNT(*), MAX(close) FROM market_data WHERE company_id = ?`,
		company.ID).Scan(&count, &closePrice)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, 231.5, closePrice)

	// A second enrichment on the same day replaces the snapshot.
	_, err = svc.EnrichCompany(context.Background(), company.ID)
	require.NoError(t, err)
	err = db.Conn().QueryRow(`SELECT COUNT(*) FROM market_data WHERE company_id = ?`,
		company.ID).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestEnrichCompany_ProviderFailureIsCollected(t *testing.T) {
	db, cleanup := atesting.NewTestDB(t, "research")
	defer cleanup()
	repo := companies.NewRepository(db.Conn(), zerolog.Nop())
	company := seedCompany(t, repo, &domain.Company{Name: "Apple", Ticker: "AAPL"})

	svc := NewService(repo,
		&fakeEdgar{err: errors.New("upstream 503")},
		&fakeYahoo{quote: &yahoo.Quote{MarketCap: 3e12}},
		nil, nil, nil,
		zerolog.Nop(),
	)

	enriched, err := svc.EnrichCompany(context.Background(), company.ID)
	require.NoError(t, err)

	require.Len(t, enriched.Errors, 1)
	assert.Contains(t, enriched.Errors[0], "sec-edgar")
	assert.Contains(t, enriched.Errors[0], "upstream 503")
	require.NotNil(t, enriched.MarketCap)
}

func TestEnrichCompany_DoesNotOverwriteExistingFields(t *testing.T) {
	db, cleanup := atesting.NewTestDB(t, "research")
	defer cleanup()
	repo := companies.NewRepository(db.Conn(), zerolog.Nop())
	company := seedCompany(t, repo, &domain.Company{
		Name:        "Apple",
		Description: "Hand-written description",
	})

	svc := NewService(repo, nil, nil, nil,
		&fakeWikidata{data: &wikidata.CompanyData{Description: "Wikidata description"}},
		nil, zerolog.Nop(),
	)

	_, err := svc.EnrichCompany(context.Background(), company.ID)
	require.NoError(t, err)

	saved, err := repo.GetByID(company.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hand-written description", saved.Description)
}

func TestEnrichCompany_SkipsMarketProvidersWithoutTicker(t *testing.T) {
	db, cleanup := atesting.NewTestDB(t, "research")
	defer cleanup()
	repo := companies.NewRepository(db.Conn(), zerolog.Nop())
	company := seedCompany(t, repo, &domain.Company{Name: "Stripe", Type: domain.CompanyPrivate})

	svc := NewService(repo,
		&fakeEdgar{err: errors.New("should not be called")},
		&fakeYahoo{err: errors.New("should not be called")},
		nil, nil, nil,
		zerolog.Nop(),
	)

	enriched, err := svc.EnrichCompany(context.Background(), company.ID)
	require.NoError(t, err)
	assert.Empty(t, enriched.Errors)
	assert.Equal(t, []domain.DataSource{domain.SourceDatabase}, enriched.Sources)
}

func TestEnrichCompany_StoredRecordIsFirstSource(t *testing.T) {
	db, cleanup := atesting.NewTestDB(t, "research")
	defer cleanup()
	repo := companies.NewRepository(db.Conn(), zerolog.Nop())
	company := seedCompany(t, repo, &domain.Company{Name: "Apple", Type: domain.CompanyPrivate})

	svc := NewService(repo, nil, nil, nil,
		&fakeWikidata{data: &wikidata.CompanyData{Description: "Consumer electronics maker"}},
		nil, zerolog.Nop(),
	)

	enriched, err := svc.EnrichCompany(context.Background(), company.ID)
	require.NoError(t, err)

	assert.Equal(t,
		[]domain.DataSource{domain.SourceDatabase, domain.SourceWikidata},
		enriched.Sources)

	// The record's provenance tracks the first external contributor, not
	// the database seed.
	saved, err := repo.GetByID(company.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SourceWikidata, saved.DataSource)
}

func TestIsCompanyDataStale(t *testing.T) {
	svc := NewService(nil, nil, nil, nil, nil, nil, zerolog.Nop())

	assert.True(t, svc.IsCompanyDataStale(&domain.Company{}))

	fresh := time.Now().Add(-time.Hour)
	assert.False(t, svc.IsCompanyDataStale(&domain.Company{LastFetched: &fresh}))

	old := time.Now().Add(-31 * 24 * time.Hour)
	assert.True(t, svc.IsCompanyDataStale(&domain.Company{LastFetched: &old}))
}

func TestBatchEnrich(t *testing.T) {
	db, cleanup := atesting.NewTestDB(t, "research")
	defer cleanup()
	repo := companies.NewRepository(db.Conn(), zerolog.Nop())
	first := seedCompany(t, repo, &domain.Company{Name: "Stripe", Type: domain.CompanyPrivate})
	second := seedCompany(t, repo, &domain.Company{Name: "Figma", Type: domain.CompanyPrivate})

	svc := NewService(repo, nil, nil, nil, nil, nil, zerolog.Nop())
	svc.sleep = func(ctx context.Context, d time.Duration) error { return nil }

	result, err := svc.BatchEnrich(context.Background(),
		[]string{first.ID, "missing-id", second.ID})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Enriched)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Items, 3)
	assert.Empty(t, result.Items[0].Error)
	assert.NotEmpty(t, result.Items[1].Error)
}

func TestBatchEnrich_ContextCancelStops(t *testing.T) {
	db, cleanup := atesting.NewTestDB(t, "research")
	defer cleanup()
	repo := companies.NewRepository(db.Conn(), zerolog.Nop())
	first := seedCompany(t, repo, &domain.Company{Name: "Stripe", Type: domain.CompanyPrivate})
	second := seedCompany(t, repo, &domain.Company{Name: "Figma", Type: domain.CompanyPrivate})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc := NewService(repo, nil, nil, nil, nil, nil, zerolog.Nop())
	result, err := svc.BatchEnrich(ctx, []string{first.ID, second.ID})

	require.Error(t, err)
	assert.Equal(t, 1, result.Enriched)
}
