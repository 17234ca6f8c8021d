package investors

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlasresearch/atlas/internal/clients/wikidata"
	"github.com/atlasresearch/atlas/internal/domain"
	atesting "github.com/atlasresearch/atlas/internal/testing"
)

type fakeWikidata struct {
	data *wikidata.CompanyData
	err  error
}

func (f *fakeWikidata) GetCompanyData(_ context.Context, _ string) (*wikidata.CompanyData, error) {
	return f.data, f.err
}

func setupService(t *testing.T, wd WikidataClient) (*Service, *Repository, func()) {
	t.Helper()
	db, cleanup := atesting.NewTestDB(t, "research")
	repo := NewRepository(db.Conn(), zerolog.Nop())
	return NewService(repo, wd, zerolog.Nop()), repo, cleanup
}

func TestCreate(t *testing.T) {
	svc, _, cleanup := setupService(t, nil)
	defer cleanup()

	inv, err := svc.Create(CreateInput{Name: "Sequoia Capital", Type: domain.InvestorVCFirm})
	require.NoError(t, err)
	assert.Equal(t, "sequoia-capital", inv.Slug)
	assert.Equal(t, domain.InvestorVCFirm, inv.Type)
	assert.NotEmpty(t, inv.ID)

	got, err := svc.Get(inv.ID)
	require.NoError(t, err)
	assert.Equal(t, "Sequoia Capital", got.Name)
}

func TestCreate_SlugConflict(t *testing.T) {
	svc, _, cleanup := setupService(t, nil)
	defer cleanup()

	_, err := svc.Create(CreateInput{Name: "Sequoia Capital"})
	require.NoError(t, err)

	_, err = svc.Create(CreateInput{Name: "sequoia capital"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestCreate_RequiresName(t *testing.T) {
	svc, _, cleanup := setupService(t, nil)
	defer cleanup()

	_, err := svc.Create(CreateInput{})
	assert.ErrorIs(t, err, domain.ErrInvalid)
}

func TestCreate_DefaultsTypeToOther(t *testing.T) {
	svc, _, cleanup := setupService(t, nil)
	defer cleanup()

	inv, err := svc.Create(CreateInput{Name: "Some Fund"})
	require.NoError(t, err)
	assert.Equal(t, domain.InvestorOther, inv.Type)
}

func TestUpdate_NameChangeRegeneratesSlug(t *testing.T) {
	svc, _, cleanup := setupService(t, nil)
	defer cleanup()

	inv, err := svc.Create(CreateInput{Name: "Benchmark"})
	require.NoError(t, err)

	newName := "Benchmark Capital"
	updated, err := svc.Update(inv.ID, UpdateInput{Name: &newName})
	require.NoError(t, err)
	assert.Equal(t, "benchmark-capital", updated.Slug)

	_, err = svc.GetBySlug("benchmark-capital")
	require.NoError(t, err)
}

func TestUpdate_PartialLeavesOtherFields(t *testing.T) {
	svc, _, cleanup := setupService(t, nil)
	defer cleanup()

	inv, err := svc.Create(CreateInput{Name: "Accel", Description: "Early stage fund"})
	require.NoError(t, err)

	website := "https://www.accel.com"
	updated, err := svc.Update(inv.ID, UpdateInput{Website: &website})
	require.NoError(t, err)
	assert.Equal(t, website, updated.Website)
	assert.Equal(t, "Early stage fund", updated.Description)
}

func TestUpdate_NotFound(t *testing.T) {
	svc, _, cleanup := setupService(t, nil)
	defer cleanup()

	name := "x"
	_, err := svc.Update(uuid.NewString(), UpdateInput{Name: &name})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDelete(t *testing.T) {
	svc, _, cleanup := setupService(t, nil)
	defer cleanup()

	inv, err := svc.Create(CreateInput{Name: "Greylock Partners"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(inv.ID))
	_, err = svc.Get(inv.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(inv.ID), domain.ErrNotFound)
}

func TestList_Filters(t *testing.T) {
	svc, _, cleanup := setupService(t, nil)
	defer cleanup()

	_, err := svc.Create(CreateInput{Name: "Sequoia Capital", Type: domain.InvestorVCFirm, Country: "US"})
	require.NoError(t, err)
	_, err = svc.Create(CreateInput{Name: "Ron Conway", Type: domain.InvestorAngel, Country: "US"})
	require.NoError(t, err)
	_, err = svc.Create(CreateInput{Name: "Index Ventures", Type: domain.InvestorVCFirm, Country: "UK"})
	require.NoError(t, err)

	all, err := svc.List(ListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	vcs, err := svc.List(ListFilter{Type: domain.InvestorVCFirm})
	require.NoError(t, err)
	assert.Len(t, vcs, 2)

	us, err := svc.List(ListFilter{Country: "US"})
	require.NoError(t, err)
	assert.Len(t, us, 2)
}

func TestGetPortfolio_Stats(t *testing.T) {
	svc, repo, cleanup := setupService(t, nil)
	defer cleanup()

	inv, err := svc.Create(CreateInput{Name: "Sequoia Capital"})
	require.NoError(t, err)

	db := repo.db
	now := time.Now().Unix()
	companyID := uuid.NewString()
	_, err = db.Exec(`INSERT INTO companies (id, name, slug, type, created_at, updated_at)
		VALUES (?, 'Stripe', 'stripe', 'PRIVATE', ?, ?)`, companyID, now, now)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO portfolio_companies (id, investor_id, company_id, status, created_at, updated_at)
		VALUES (?, ?, ?, 'ACTIVE', ?, ?)`, uuid.NewString(), inv.ID, companyID, now, now)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO investments (id, investor_id, company_id, amount, stage, status, created_at, updated_at)
		VALUES (?, ?, ?, 2000000, 'SEED', 'ACTIVE', ?, ?)`, uuid.NewString(), inv.ID, companyID, now, now)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO investments (id, investor_id, company_id, amount, stage, status, created_at, updated_at)
		VALUES (?, ?, ?, 5000000, 'SERIES_A', 'IPO', ?, ?)`, uuid.NewString(), inv.ID, companyID, now, now)
	require.NoError(t, err)

	portfolio, err := svc.GetPortfolio(inv.ID)
	require.NoError(t, err)
	require.Len(t, portfolio.Companies, 1)
	assert.Equal(t, "Stripe", portfolio.Companies[0].Company.Name)
	assert.Equal(t, 1, portfolio.Stats.TotalCompanies)
	assert.Equal(t, 1, portfolio.Stats.ActiveInvestments)
	assert.Equal(t, 1, portfolio.Stats.Exits)
	assert.Equal(t, 7000000.0, portfolio.Stats.TotalInvested)
}

func TestEnrichFromWikidata(t *testing.T) {
	employees := 1000.0
	wd := &fakeWikidata{data: &wikidata.CompanyData{
		EntityID:    "Q2299279",
		Description: "American venture capital firm",
		Website:     "https://www.sequoiacap.com",
		FoundedDate: "+1972-06-01T00:00:00Z",
		Employees:   &employees,
	}}
	svc, _, cleanup := setupService(t, wd)
	defer cleanup()

	inv, err := svc.Create(CreateInput{Name: "Sequoia Capital"})
	require.NoError(t, err)

	enriched, err := svc.EnrichFromWikidata(context.Background(), inv.ID)
	require.NoError(t, err)
	assert.Equal(t, "American venture capital firm", enriched.Description)
	assert.Equal(t, "https://www.sequoiacap.com", enriched.Website)
	require.NotNil(t, enriched.FoundedYear)
	assert.Equal(t, 1972, *enriched.FoundedYear)
	assert.Equal(t, domain.SourceWikidata, enriched.DataSource)
	assert.NotNil(t, enriched.LastFetched)
	assert.Contains(t, enriched.RawData, "Q2299279")
}

func TestEnrichFromWikidata_NoEntityLeavesRecord(t *testing.T) {
	svc, _, cleanup := setupService(t, &fakeWikidata{})
	defer cleanup()

	inv, err := svc.Create(CreateInput{Name: "Obscure Fund", Description: "keep"})
	require.NoError(t, err)

	enriched, err := svc.EnrichFromWikidata(context.Background(), inv.ID)
	require.NoError(t, err)
	assert.Equal(t, "keep", enriched.Description)
	assert.Nil(t, enriched.LastFetched)
}
