package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlasresearch/atlas/internal/clients/edgar"
	"github.com/atlasresearch/atlas/internal/clients/yahoo"
	"github.com/atlasresearch/atlas/internal/domain"
	"github.com/atlasresearch/atlas/internal/modules/companies"
	atesting "github.com/atlasresearch/atlas/internal/testing"
)

type stubYahoo struct {
	quote   *yahoo.Quote
	profile *yahoo.CompanyProfile
}

func (s *stubYahoo) GetQuote(ctx context.Context, symbol string) (*yahoo.Quote, error) {
	return s.quote, nil
}

func (s *stubYahoo) GetCompanyProfile(ctx context.Context, symbol string) (*yahoo.CompanyProfile, error) {
	return s.profile, nil
}

func (s *stubYahoo) GetFinancials(ctx context.Context, symbol string) (*yahoo.Financials, error) {
	return nil, nil
}

type stubEdgar struct {
	info *edgar.CompanyInfo
}

func (s *stubEdgar) GetCompanyByTicker(ctx context.Context, ticker string) (*edgar.CompanyInfo, error) {
	return s.info, nil
}

func seedFetchCompany(t *testing.T, repo *companies.Repository, c *domain.Company) *domain.Company {
	t.Helper()
	c.ID = uuid.NewString()
	c.Slug = domain.Slugify(c.Name)
	now := time.Now()
	c.CreatedAt = now
	c.UpdatedAt = now
	require.NoError(t, repo.Create(c))
	return c
}

func TestFetchCompanyProcessor_EnrichesPublicCompany(t *testing.T) {
	db, cleanup := atesting.NewTestDB(t, "research")
	defer cleanup()
	repo := companies.NewRepository(db.Conn(), zerolog.Nop())
	company := seedFetchCompany(t, repo, &domain.Company{
		Name:   "Apple",
		Type:   domain.CompanyPublic,
		Ticker: "AAPL",
	})

	proc := NewFetchCompanyProcessor(repo,
		&stubYahoo{
			quote:   &yahoo.Quote{MarketCap: 3e12, FullExchangeName: "NasdaqGS"},
			profile: &yahoo.CompanyProfile{LongBusinessSummary: "Consumer electronics.", Industry: "Consumer Electronics"},
		},
		&stubEdgar{info: &edgar.CompanyInfo{CIK: "0000320193"}},
		nil, nil,
		zerolog.Nop(),
	)

	payload, err := marshalPayload(FetchCompanyPayload{CompanyID: company.ID})
	require.NoError(t, err)

	var milestones []int
	result, err := proc.Handle(context.Background(),
		&Job{ID: uuid.NewString(), Payload: payload},
		func(pct int) { milestones = append(milestones, pct) })
	require.NoError(t, err)

	out, ok := result.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, true, out["success"])
	assert.Equal(t, company.ID, out["companyId"])
	assert.Equal(t, []int{25, 50, 75, 100}, milestones)

	saved, err := repo.GetByID(company.ID)
	require.NoError(t, err)
	require.NotNil(t, saved.MarketCap)
	assert.Equal(t, 3e12, *saved.MarketCap)
	assert.Equal(t, "NasdaqGS", saved.Exchange)
	assert.Equal(t, "0000320193", saved.CIK)
	assert.Equal(t, "Consumer electronics.", saved.Description)
	require.NotNil(t, saved.LastFetched)
}

func TestFetchCompanyProcessor_PrivateCompanySkipsMarketProviders(t *testing.T) {
	db, cleanup := atesting.NewTestDB(t, "research")
	defer cleanup()
	repo := companies.NewRepository(db.Conn(), zerolog.Nop())
	company := seedFetchCompany(t, repo, &domain.Company{
		Name: "Stripe",
		Type: domain.CompanyPrivate,
	})

	proc := NewFetchCompanyProcessor(repo, &stubYahoo{}, &stubEdgar{}, nil, nil, zerolog.Nop())

	payload, err := marshalPayload(FetchCompanyPayload{CompanyID: company.ID})
	require.NoError(t, err)

	result, err := proc.Handle(context.Background(),
		&Job{ID: uuid.NewString(), Payload: payload}, func(int) {})
	require.NoError(t, err)

	out := result.(map[string]interface{})
	assert.Equal(t, 0, out["enriched"])

	saved, err := repo.GetByID(company.ID)
	require.NoError(t, err)
	assert.Nil(t, saved.MarketCap)
	require.NotNil(t, saved.LastFetched)
}

func TestFetchCompanyProcessor_UnknownCompanyErrors(t *testing.T) {
	db, cleanup := atesting.NewTestDB(t, "research")
	defer cleanup()
	repo := companies.NewRepository(db.Conn(), zerolog.Nop())

	proc := NewFetchCompanyProcessor(repo, nil, nil, nil, nil, zerolog.Nop())
	payload, err := marshalPayload(FetchCompanyPayload{CompanyID: "missing"})
	require.NoError(t, err)

	_, err = proc.Handle(context.Background(),
		&Job{ID: uuid.NewString(), Payload: payload}, func(int) {})
	assert.Error(t, err)
}
