package connections

import (
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	atesting "github.com/atlasresearch/atlas/internal/testing"
)

type graphFixture struct {
	svc *Service
	db  *sql.DB

	sequoia   string
	benchmark string
	greylock  string
	solo      string

	stripe string
	airbnb string
	figma  string
}

func setupGraph(t *testing.T) (*graphFixture, func()) {
	t.Helper()
	db, cleanup := atesting.NewTestDB(t, "research")
	conn := db.Conn()

	f := &graphFixture{
		svc: NewService(NewRepository(conn, zerolog.Nop()), zerolog.Nop()),
		db:  conn,
	}
	f.sequoia = seedInvestor(t, conn, "Sequoia Capital")
	f.benchmark = seedInvestor(t, conn, "Benchmark")
	f.greylock = seedInvestor(t, conn, "Greylock")
	f.solo = seedInvestor(t, conn, "Solo Angel")

	f.stripe = seedCompany(t, conn, "Stripe")
	f.airbnb = seedCompany(t, conn, "Airbnb")
	f.figma = seedCompany(t, conn, "Figma")

	// Sequoia and Benchmark share Stripe and Airbnb, Greylock overlaps
	// both on Airbnb, Solo Angel only touches Figma via Greylock.
	seedHolding(t, conn, f.sequoia, f.stripe)
	seedHolding(t, conn, f.sequoia, f.airbnb)
	seedHolding(t, conn, f.benchmark, f.stripe)
	seedHolding(t, conn, f.benchmark, f.airbnb)
	seedHolding(t, conn, f.greylock, f.airbnb)
	seedHolding(t, conn, f.greylock, f.figma)
	seedHolding(t, conn, f.solo, f.figma)

	return f, cleanup
}

func seedInvestor(t *testing.T, db *sql.DB, name string) string {
	t.Helper()
	id := uuid.NewString()
	now := time.Now().Unix()
	_, err := db.Exec(`INSERT INTO investors (id, name, slug, type, created_at, updated_at)
		VALUES (?, ?, ?, 'VC_FIRM', ?, ?)`, id, name, uuid.NewString(), now, now)
	require.NoError(t, err)
	return id
}

func seedCompany(t *testing.T, db *sql.DB, name string) string {
	t.Helper()
	id := uuid.NewString()
	now := time.Now().Unix()
	_, err := db.Exec(`INSERT INTO companies (id, name, slug, type, created_at, updated_at)
		VALUES (?, ?, ?, 'PRIVATE', ?, ?)`, id, name, uuid.NewString(), now, now)
	require.NoError(t, err)
	return id
}

func seedHolding(t *testing.T, db *sql.DB, investorID, companyID string) {
	t.Helper()
	now := time.Now().Unix()
	_, err := db.Exec(`INSERT INTO portfolio_companies (id, investor_id, company_id, status, created_at, updated_at)
		VALUES (?, ?, ?, 'ACTIVE', ?, ?)`, uuid.NewString(), investorID, companyID, now, now)
	require.NoError(t, err)
}

func TestDiscoverConnections(t *testing.T) {
	f, cleanup := setupGraph(t)
	defer cleanup()

	pairs, err := f.svc.DiscoverConnections()
	require.NoError(t, err)
	// sequoia-benchmark, sequoia-greylock, benchmark-greylock, greylock-solo
	assert.Equal(t, 4, pairs)

	var directed int
	require.NoError(t, f.db.QueryRow(`SELECT COUNT(*) FROM investor_connections`).Scan(&directed))
	assert.Equal(t, 8, directed)
}

func TestDiscoverConnections_Rerun(t *testing.T) {
	f, cleanup := setupGraph(t)
	defer cleanup()

	_, err := f.svc.DiscoverConnections()
	require.NoError(t, err)
	pairs, err := f.svc.DiscoverConnections()
	require.NoError(t, err)
	assert.Equal(t, 4, pairs)

	var directed int
	require.NoError(t, f.db.QueryRow(`SELECT COUNT(*) FROM investor_connections`).Scan(&directed))
	assert.Equal(t, 8, directed)
}

func TestGetInvestorNetwork(t *testing.T) {
	f, cleanup := setupGraph(t)
	defer cleanup()
	_, err := f.svc.DiscoverConnections()
	require.NoError(t, err)

	network, err := f.svc.GetInvestorNetwork(f.sequoia, 1)
	require.NoError(t, err)
	require.Len(t, network, 2)

	// Benchmark shares two companies, Greylock one.
	assert.Equal(t, "Benchmark", network[0].Investor.Name)
	assert.Equal(t, 2, network[0].Strength)
	require.Len(t, network[0].SharedCompanies, 2)
	names := []string{network[0].SharedCompanies[0].Name, network[0].SharedCompanies[1].Name}
	assert.ElementsMatch(t, []string{"Stripe", "Airbnb"}, names)

	assert.Equal(t, "Greylock", network[1].Investor.Name)
	assert.Equal(t, 1, network[1].Strength)
}

func TestGetInvestorNetwork_MinStrength(t *testing.T) {
	f, cleanup := setupGraph(t)
	defer cleanup()
	_, err := f.svc.DiscoverConnections()
	require.NoError(t, err)

	network, err := f.svc.GetInvestorNetwork(f.sequoia, 2)
	require.NoError(t, err)
	require.Len(t, network, 1)
	assert.Equal(t, "Benchmark", network[0].Investor.Name)
}

func TestGetCompanyNetwork(t *testing.T) {
	f, cleanup := setupGraph(t)
	defer cleanup()

	related, err := f.svc.GetCompanyNetwork(f.airbnb, 20)
	require.NoError(t, err)
	require.Len(t, related, 2)

	assert.Equal(t, "Stripe", related[0].Name)
	assert.Equal(t, 2, related[0].SharedInvestors)
	assert.Equal(t, RelationshipSharedInvestors, related[0].Relationship)
	assert.Equal(t, "Figma", related[1].Name)
	assert.Equal(t, 1, related[1].SharedInvestors)
}

func TestGetNetworkStats(t *testing.T) {
	f, cleanup := setupGraph(t)
	defer cleanup()
	_, err := f.svc.DiscoverConnections()
	require.NoError(t, err)

	stats, err := f.svc.GetNetworkStats()
	require.NoError(t, err)

	assert.Equal(t, 4, stats.TotalConnections)
	assert.Equal(t, 4, stats.InvestorCount)
	assert.InDelta(t, 2.0, stats.AverageConnections, 0.001)

	require.NotEmpty(t, stats.MostConnected)
	assert.Equal(t, "Greylock", stats.MostConnected[0].Name)
	assert.Equal(t, 3, stats.MostConnected[0].Connections)

	require.NotEmpty(t, stats.Strongest)
	assert.Equal(t, 2, stats.Strongest[0].Strength)
}

func TestFindPotentialCoInvestors(t *testing.T) {
	f, cleanup := setupGraph(t)
	defer cleanup()
	_, err := f.svc.DiscoverConnections()
	require.NoError(t, err)

	// Stripe is held by Sequoia and Benchmark; both connect to Greylock
	// with strength 1, so Greylock is suggested with the summed score.
	candidates, err := f.svc.FindPotentialCoInvestors(f.stripe, 10)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "Greylock", candidates[0].Name)
	assert.Equal(t, 2, candidates[0].Score)
	assert.Equal(t, 2, candidates[0].ConnectedInvestors)

	// Figma's backers reach Sequoia and Benchmark through Greylock only.
	candidates, err = f.svc.FindPotentialCoInvestors(f.figma, 10)
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	names := []string{candidates[0].Name, candidates[1].Name}
	assert.ElementsMatch(t, []string{"Sequoia Capital", "Benchmark"}, names)
	for _, c := range candidates {
		assert.Equal(t, 1, c.ConnectedInvestors)
		assert.Equal(t, 1, c.Score)
	}
}
