// Package importexport moves investor research data in and out of the
// platform as JSON bundles or CSV files. Imports are row-isolated: a bad
// row is reported and skipped, the rest of the batch still lands.
package importexport

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/atlasresearch/atlas/internal/domain"
	"github.com/atlasresearch/atlas/internal/modules/companies"
	"github.com/atlasresearch/atlas/internal/modules/investments"
	"github.com/atlasresearch/atlas/internal/modules/investors"
)

// RowError reports one failed import row. Row numbers are 1-based.
type RowError struct {
	Row   int         `json:"row"`
	Error string      `json:"error"`
	Data  interface{} `json:"data,omitempty"`
}

// ImportResult summarizes an import batch.
type ImportResult struct {
	Imported int        `json:"imported"`
	Failed   int        `json:"failed"`
	Errors   []RowError `json:"errors"`
}

// InvestmentImport is an investment row keyed by entity names instead of IDs.
type InvestmentImport struct {
	InvestorName string                  `json:"investorName"`
	CompanyName  string                  `json:"companyName"`
	Amount       *float64                `json:"amount"`
	Stage        domain.InvestmentStage  `json:"stage"`
	Status       domain.InvestmentStatus `json:"status"`
	InvestedAt   *time.Time              `json:"investedAt"`
	LeadInvestor bool                    `json:"leadInvestor"`
	Notes        string                  `json:"notes"`
}

// ExportBundle is the full dataset as one JSON document.
type ExportBundle struct {
	Investors   []domain.Investor   `json:"investors"`
	Companies   []domain.Company    `json:"companies"`
	Investments []domain.Investment `json:"investments"`
	ExportedAt  time.Time           `json:"exportedAt"`
}

// Service performs bulk imports and exports.
type Service struct {
	investors      *investors.Service
	companies      *companies.Service
	investments    *investments.Service
	investorLookup *investors.Repository
	companyLookup  *companies.Repository
	log            zerolog.Logger
}

// NewService creates a new import/export service. The repositories are used
// for name-based lookups when resolving investment rows.
func NewService(
	investorSvc *investors.Service,
	companySvc *companies.Service,
	investmentSvc *investments.Service,
	investorRepo *investors.Repository,
	companyRepo *companies.Repository,
	log zerolog.Logger,
) *Service {
	return &Service{
		investors:      investorSvc,
		companies:      companySvc,
		investments:    investmentSvc,
		investorLookup: investorRepo,
		companyLookup:  companyRepo,
		log:            log.With().Str("service", "importexport").Logger(),
	}
}

// ImportInvestors creates one investor per row.
func (s *Service) ImportInvestors(rows []investors.CreateInput) *ImportResult {
	result := newResult()
	for i, row := range rows {
		if _, err := s.investors.Create(row); err != nil {
			result.fail(i, err, row)
			continue
		}
		result.Imported++
	}
	s.logBatch("investors", result)
	return result
}

// ImportCompanies creates one company per row.
func (s *Service) ImportCompanies(rows []companies.CreateInput) *ImportResult {
	result := newResult()
	for i, row := range rows {
		if _, err := s.companies.Create(row); err != nil {
			result.fail(i, err, row)
			continue
		}
		result.Imported++
	}
	s.logBatch("companies", result)
	return result
}

// ImportInvestments creates one investment per row, resolving the investor
// and company by name fragment.
func (s *Service) ImportInvestments(rows []InvestmentImport) *ImportResult {
	result := newResult()
	for i, row := range rows {
		if err := s.importInvestment(row); err != nil {
			result.fail(i, err, row)
			continue
		}
		result.Imported++
	}
	s.logBatch("investments", result)
	return result
}

func (s *Service) importInvestment(row InvestmentImport) error {
	investor, err := s.investorLookup.GetByName(row.InvestorName)
	if err != nil {
		return wrapRowError("investor %q", row.InvestorName, err)
	}
	company, err := s.companyLookup.GetByName(row.CompanyName)
	if err != nil {
		return wrapRowError("company %q", row.CompanyName, err)
	}

	_, err = s.investments.Create(investments.CreateInput{
		InvestorID:   investor.ID,
		CompanyID:    company.ID,
		Amount:       row.Amount,
		Stage:        row.Stage,
		Status:       row.Status,
		InvestedAt:   row.InvestedAt,
		LeadInvestor: row.LeadInvestor,
		Notes:        row.Notes,
	})
	return err
}

// ExportAll returns the full dataset.
func (s *Service) ExportAll() (*ExportBundle, error) {
	allInvestors, err := s.investors.List(investors.ListFilter{})
	if err != nil {
		return nil, err
	}
	allCompanies, err := s.companies.List(companies.ListFilter{})
	if err != nil {
		return nil, err
	}
	allInvestments, err := s.investments.List(investments.ListFilter{})
	if err != nil {
		return nil, err
	}

	return &ExportBundle{
		Investors:   allInvestors,
		Companies:   allCompanies,
		Investments: allInvestments,
		ExportedAt:  time.Now(),
	}, nil
}

// ExportInvestors returns every investor.
func (s *Service) ExportInvestors() ([]domain.Investor, error) {
	return s.investors.List(investors.ListFilter{})
}

// ExportCompanies returns every company.
func (s *Service) ExportCompanies() ([]domain.Company, error) {
	return s.companies.List(companies.ListFilter{})
}

// ExportInvestments returns every investment.
func (s *Service) ExportInvestments() ([]domain.Investment, error) {
	return s.investments.List(investments.ListFilter{})
}

// ExportInvestorsCSV returns every investor as a CSV document.
func (s *Service) ExportInvestorsCSV() ([]byte, error) {
	list, err := s.investors.List(investors.ListFilter{})
	if err != nil {
		return nil, err
	}
	return investorsToCSV(list)
}

// ExportCompaniesCSV returns every company as a CSV document.
func (s *Service) ExportCompaniesCSV() ([]byte, error) {
	list, err := s.companies.List(companies.ListFilter{})
	if err != nil {
		return nil, err
	}
	return companiesToCSV(list)
}

// ExportInvestmentsCSV returns every investment as a CSV document, with
// investor and company IDs resolved to names so the output can be
// re-imported.
func (s *Service) ExportInvestmentsCSV() ([]byte, error) {
	list, err := s.investments.List(investments.ListFilter{})
	if err != nil {
		return nil, err
	}

	investorNames := make(map[string]string)
	companyNames := make(map[string]string)
	for _, inv := range list {
		if _, ok := investorNames[inv.InvestorID]; !ok {
			investor, err := s.investorLookup.GetByID(inv.InvestorID)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve investor %s: %w", inv.InvestorID, err)
			}
			investorNames[inv.InvestorID] = investor.Name
		}
		if _, ok := companyNames[inv.CompanyID]; !ok {
			company, err := s.companyLookup.GetByID(inv.CompanyID)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve company %s: %w", inv.CompanyID, err)
			}
			companyNames[inv.CompanyID] = company.Name
		}
	}
	return investmentsToCSV(list, investorNames, companyNames)
}

func (s *Service) logBatch(entity string, result *ImportResult) {
	s.log.Info().
		Str("entity", entity).
		Int("imported", result.Imported).
		Int("failed", result.Failed).
		Msg("Import batch finished")
}

func wrapRowError(format, name string, err error) error {
	return fmt.Errorf(format+": %w", name, err)
}

func newResult() *ImportResult {
	return &ImportResult{Errors: []RowError{}}
}

func (r *ImportResult) fail(index int, err error, data interface{}) {
	r.Failed++
	r.Errors = append(r.Errors, RowError{
		Row:   index + 1,
		Error: err.Error(),
		Data:  data,
	})
}
