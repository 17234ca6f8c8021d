package companies

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlasresearch/atlas/internal/domain"
	atesting "github.com/atlasresearch/atlas/internal/testing"
)

type fakeEnqueuer struct {
	companyIDs []string
}

func (f *fakeEnqueuer) EnqueueFetchCompany(companyID string) (string, error) {
	f.companyIDs = append(f.companyIDs, companyID)
	return uuid.NewString(), nil
}

func setupService(t *testing.T, enq Enqueuer) (*Service, *Repository, func()) {
	t.Helper()
	db, cleanup := atesting.NewTestDB(t, "research")
	repo := NewRepository(db.Conn(), zerolog.Nop())
	return NewService(repo, enq, zerolog.Nop()), repo, cleanup
}

func TestCreate(t *testing.T) {
	svc, _, cleanup := setupService(t, nil)
	defer cleanup()

	c, err := svc.Create(CreateInput{Name: "Stripe, Inc.", Type: domain.CompanyPrivate})
	require.NoError(t, err)
	assert.Equal(t, "stripe-inc", c.Slug)
	assert.Equal(t, domain.CompanyPrivate, c.Type)

	got, err := svc.Get(c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Stripe, Inc.", got.Name)
}

func TestCreate_SlugConflict(t *testing.T) {
	svc, _, cleanup := setupService(t, nil)
	defer cleanup()

	_, err := svc.Create(CreateInput{Name: "Stripe"})
	require.NoError(t, err)
	_, err = svc.Create(CreateInput{Name: "STRIPE"})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestCreate_TickerQueuesFetch(t *testing.T) {
	enq := &fakeEnqueuer{}
	svc, _, cleanup := setupService(t, enq)
	defer cleanup()

	c, err := svc.Create(CreateInput{Name: "Apple", Type: domain.CompanyPublic, Ticker: "AAPL"})
	require.NoError(t, err)
	require.Len(t, enq.companyIDs, 1)
	assert.Equal(t, c.ID, enq.companyIDs[0])
}

func TestCreate_NoTickerNoFetch(t *testing.T) {
	enq := &fakeEnqueuer{}
	svc, _, cleanup := setupService(t, enq)
	defer cleanup()

	_, err := svc.Create(CreateInput{Name: "Acme"})
	require.NoError(t, err)
	assert.Empty(t, enq.companyIDs)
}

func TestGetByTicker_CaseInsensitive(t *testing.T) {
	svc, _, cleanup := setupService(t, nil)
	defer cleanup()

	_, err := svc.Create(CreateInput{Name: "Apple", Ticker: "AAPL"})
	require.NoError(t, err)

	c, err := svc.GetByTicker("aapl")
	require.NoError(t, err)
	assert.Equal(t, "Apple", c.Name)
}

func TestUpdate_NameChangeRegeneratesSlug(t *testing.T) {
	svc, _, cleanup := setupService(t, nil)
	defer cleanup()

	c, err := svc.Create(CreateInput{Name: "Twitter"})
	require.NoError(t, err)

	newName := "X Corp"
	updated, err := svc.Update(c.ID, UpdateInput{Name: &newName})
	require.NoError(t, err)
	assert.Equal(t, "x-corp", updated.Slug)
}

func TestDelete_CascadesInvestments(t *testing.T) {
	svc, repo, cleanup := setupService(t, nil)
	defer cleanup()

	c, err := svc.Create(CreateInput{Name: "Acme"})
	require.NoError(t, err)

	now := time.Now().Unix()
	invID := uuid.NewString()
	_, err = repo.db.Exec(`INSERT INTO investors (id, name, slug, type, created_at, updated_at)
		VALUES (?, 'Fund', 'fund', 'VC_FIRM', ?, ?)`, invID, now, now)
	require.NoError(t, err)
	_, err = repo.db.Exec(`INSERT INTO investments (id, investor_id, company_id, stage, created_at, updated_at)
		VALUES (?, ?, ?, 'SEED', ?, ?)`, uuid.NewString(), invID, c.ID, now, now)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(c.ID))

	var count int
	require.NoError(t, repo.db.QueryRow(`SELECT COUNT(*) FROM investments`).Scan(&count))
	assert.Equal(t, 0, count)
}

func TestGetFundingHistory(t *testing.T) {
	svc, repo, cleanup := setupService(t, nil)
	defer cleanup()

	c, err := svc.Create(CreateInput{Name: "Acme"})
	require.NoError(t, err)

	seed := 2000000.0
	seriesA := 10000000.0
	valuation := 50000000.0
	early := time.Now().Add(-400 * 24 * time.Hour)
	late := time.Now().Add(-30 * 24 * time.Hour)
	require.NoError(t, repo.AddFundingRound(&domain.FundingRound{
		ID: uuid.NewString(), CompanyID: c.ID, RoundType: "SEED",
		Amount: &seed, Currency: "USD", AnnouncedAt: &early, CreatedAt: time.Now(),
	}))
	require.NoError(t, repo.AddFundingRound(&domain.FundingRound{
		ID: uuid.NewString(), CompanyID: c.ID, RoundType: "SERIES_A",
		Amount: &seriesA, Valuation: &valuation, Currency: "USD",
		AnnouncedAt: &late, CreatedAt: time.Now(),
	}))

	history, err := svc.GetFundingHistory(c.ID)
	require.NoError(t, err)
	require.Len(t, history.Rounds, 2)
	assert.Equal(t, "SERIES_A", history.Rounds[0].RoundType)
	assert.Equal(t, 12000000.0, history.TotalRaised)
	require.NotNil(t, history.LatestValuation)
	assert.Equal(t, valuation, *history.LatestValuation)
}

func TestGetInvestors(t *testing.T) {
	svc, repo, cleanup := setupService(t, nil)
	defer cleanup()

	c, err := svc.Create(CreateInput{Name: "Acme"})
	require.NoError(t, err)

	now := time.Now().Unix()
	invID := uuid.NewString()
	_, err = repo.db.Exec(`INSERT INTO investors (id, name, slug, type, created_at, updated_at)
		VALUES (?, 'Sequoia Capital', 'sequoia-capital', 'VC_FIRM', ?, ?)`, invID, now, now)
	require.NoError(t, err)
	_, err = repo.db.Exec(`INSERT INTO investments
		(id, investor_id, company_id, amount, stage, status, invested_at, created_at, updated_at)
		VALUES (?, ?, ?, 1000000, 'SEED', 'ACTIVE', ?, ?, ?)`,
		uuid.NewString(), invID, c.ID, now, now, now)
	require.NoError(t, err)

	investments, err := svc.GetInvestors(c.ID)
	require.NoError(t, err)
	require.Len(t, investments, 1)
	require.NotNil(t, investments[0].Investor)
	assert.Equal(t, "Sequoia Capital", investments[0].Investor.Name)
}

func TestIsDataStale(t *testing.T) {
	svc, repo, cleanup := setupService(t, nil)
	defer cleanup()

	c, err := svc.Create(CreateInput{Name: "Acme"})
	require.NoError(t, err)

	// Never fetched means stale.
	stale, err := svc.IsDataStale(c.ID, 30*24*time.Hour)
	require.NoError(t, err)
	assert.True(t, stale)

	recent := time.Now().Add(-time.Hour)
	c.LastFetched = &recent
	c.UpdatedAt = time.Now()
	require.NoError(t, repo.Update(c))

	stale, err = svc.IsDataStale(c.ID, 30*24*time.Hour)
	require.NoError(t, err)
	assert.False(t, stale)
}

func TestCheckStale(t *testing.T) {
	svc, repo, cleanup := setupService(t, nil)
	defer cleanup()

	c, err := svc.Create(CreateInput{Name: "Acme"})
	require.NoError(t, err)

	report, err := svc.CheckStale(c.ID)
	require.NoError(t, err)
	assert.True(t, report.Stale)
	assert.Nil(t, report.LastFetched)

	recent := time.Now().Add(-time.Hour)
	c.LastFetched = &recent
	c.UpdatedAt = time.Now()
	require.NoError(t, repo.Update(c))

	report, err = svc.CheckStale(c.ID)
	require.NoError(t, err)
	assert.False(t, report.Stale)
	require.NotNil(t, report.LastFetched)
}

func TestGetStale(t *testing.T) {
	svc, repo, cleanup := setupService(t, nil)
	defer cleanup()

	fresh, err := svc.Create(CreateInput{Name: "Fresh Co"})
	require.NoError(t, err)
	_, err = svc.Create(CreateInput{Name: "Never Fetched Co"})
	require.NoError(t, err)

	now := time.Now()
	fresh.LastFetched = &now
	fresh.UpdatedAt = now
	require.NoError(t, repo.Update(fresh))

	stale, err := svc.GetStale(30*24*time.Hour, 10)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, "Never Fetched Co", stale[0].Name)
}
