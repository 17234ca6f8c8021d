package importexport

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlasresearch/atlas/internal/domain"
	"github.com/atlasresearch/atlas/internal/modules/companies"
	"github.com/atlasresearch/atlas/internal/modules/investments"
	"github.com/atlasresearch/atlas/internal/modules/investors"
	atesting "github.com/atlasresearch/atlas/internal/testing"
)

func setupService(t *testing.T) (*Service, func()) {
	t.Helper()
	db, cleanup := atesting.NewTestDB(t, "research")
	conn := db.Conn()

	investorRepo := investors.NewRepository(conn, zerolog.Nop())
	companyRepo := companies.NewRepository(conn, zerolog.Nop())
	investmentRepo := investments.NewRepository(conn, zerolog.Nop())

	svc := NewService(
		investors.NewService(investorRepo, nil, zerolog.Nop()),
		companies.NewService(companyRepo, nil, zerolog.Nop()),
		investments.NewService(investmentRepo, zerolog.Nop()),
		investorRepo,
		companyRepo,
		zerolog.Nop(),
	)
	return svc, cleanup
}

func TestImportInvestors_RowIsolation(t *testing.T) {
	svc, cleanup := setupService(t)
	defer cleanup()

	result := svc.ImportInvestors([]investors.CreateInput{
		{Name: "Sequoia Capital", Type: domain.InvestorVCFirm},
		{Name: ""}, // invalid, missing name
		{Name: "Benchmark"},
	})

	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, 2, result.Errors[0].Row)
	assert.Contains(t, result.Errors[0].Error, "name is required")
}

func TestImportInvestors_DuplicateSlugReported(t *testing.T) {
	svc, cleanup := setupService(t)
	defer cleanup()

	result := svc.ImportInvestors([]investors.CreateInput{
		{Name: "Sequoia Capital"},
		{Name: "Sequoia Capital"},
	})

	assert.Equal(t, 1, result.Imported)
	assert.Equal(t, 1, result.Failed)
}

func TestImportInvestments_ResolvesByName(t *testing.T) {
	svc, cleanup := setupService(t)
	defer cleanup()

	svc.ImportInvestors([]investors.CreateInput{{Name: "Sequoia Capital"}})
	svc.ImportCompanies([]companies.CreateInput{{Name: "Stripe"}})

	amount := 50_000_000.0
	result := svc.ImportInvestments([]InvestmentImport{
		{InvestorName: "Sequoia", CompanyName: "Stripe", Amount: &amount, Stage: domain.StageSeriesB},
		{InvestorName: "No Such Fund", CompanyName: "Stripe"},
	})

	assert.Equal(t, 1, result.Imported)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, 2, result.Errors[0].Row)
	assert.Contains(t, result.Errors[0].Error, "No Such Fund")
}

func TestExportAll_RoundTrip(t *testing.T) {
	svc, cleanup := setupService(t)
	defer cleanup()

	svc.ImportInvestors([]investors.CreateInput{{Name: "Sequoia Capital"}})
	svc.ImportCompanies([]companies.CreateInput{{Name: "Stripe"}, {Name: "Figma"}})
	svc.ImportInvestments([]InvestmentImport{
		{InvestorName: "Sequoia", CompanyName: "Stripe"},
	})

	bundle, err := svc.ExportAll()
	require.NoError(t, err)

	assert.Len(t, bundle.Investors, 1)
	assert.Len(t, bundle.Companies, 2)
	assert.Len(t, bundle.Investments, 1)
	assert.False(t, bundle.ExportedAt.IsZero())
}

func TestExportInvestmentsCSV_ResolvesNames(t *testing.T) {
	svc, cleanup := setupService(t)
	defer cleanup()

	svc.ImportInvestors([]investors.CreateInput{{Name: "Sequoia Capital"}})
	svc.ImportCompanies([]companies.CreateInput{{Name: "Stripe"}})
	result := svc.ImportInvestments([]InvestmentImport{
		{InvestorName: "Sequoia Capital", CompanyName: "Stripe", LeadInvestor: true},
	})
	require.Equal(t, 1, result.Imported)

	data, err := svc.ExportInvestmentsCSV()
	require.NoError(t, err)

	doc := string(data)
	assert.Contains(t, doc, "investorName,companyName")
	assert.Contains(t, doc, "Sequoia Capital,Stripe")
	assert.Contains(t, doc, "true")
}
