package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/atlasresearch/atlas/internal/domain"
	"github.com/atlasresearch/atlas/internal/modules/companies"
	"github.com/atlasresearch/atlas/internal/modules/investments"
	"github.com/atlasresearch/atlas/internal/scraper"
)

// PortfolioScraper scrapes one investor portfolio page.
type PortfolioScraper interface {
	ScrapePortfolio(ctx context.Context, nameOrURL string, overrides *scraper.Config) scraper.Result
}

// ScrapePortfolioProcessor scrapes an investor's portfolio page and links
// the discovered companies to the investor. Companies unknown to the
// platform are created as private, web-scraped records.
type ScrapePortfolioProcessor struct {
	scraper     PortfolioScraper
	audit       *ScrapeAuditStore
	companies   *companies.Repository
	investments *investments.Repository
	log         zerolog.Logger
	now         func() time.Time
}

// NewScrapePortfolioProcessor creates the scrape-portfolio job processor.
func NewScrapePortfolioProcessor(
	sc PortfolioScraper,
	audit *ScrapeAuditStore,
	companyRepo *companies.Repository,
	investmentRepo *investments.Repository,
	log zerolog.Logger,
) *ScrapePortfolioProcessor {
	return &ScrapePortfolioProcessor{
		scraper:     sc,
		audit:       audit,
		companies:   companyRepo,
		investments: investmentRepo,
		log:         log.With().Str("processor", "scrape-portfolio").Logger(),
		now:         time.Now,
	}
}

// Handle runs the scrape. Progress milestones: 10 scrape started, 80 page
// scraped, 100 companies linked.
func (p *ScrapePortfolioProcessor) Handle(ctx context.Context, job *Job, progress func(int)) (interface{}, error) {
	var payload ScrapePortfolioPayload
	if err := unmarshalPayload(job.Payload, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode payload: %w", err)
	}

	auditID := uuid.NewString()
	if err := p.audit.Start(auditID, payload.Target, payload.InvestorID); err != nil {
		return nil, err
	}
	progress(10)

	result := p.scraper.ScrapePortfolio(ctx, payload.Target, nil)
	if !result.Success {
		scrapeErr := fmt.Errorf("scrape failed: %s", result.Error)
		if err := p.audit.Fail(auditID, result.Error); err != nil {
			p.log.Error().Err(err).Str("audit", auditID).Msg("Failed to record scrape failure")
		}
		return nil, scrapeErr
	}
	progress(80)

	linked := 0
	for _, scraped := range result.Companies {
		if err := p.linkCompany(payload.InvestorID, scraped); err != nil {
			// One bad company should not sink the whole portfolio.
			p.log.Warn().Err(err).Str("company", scraped.Name).Msg("Failed to link scraped company")
			continue
		}
		linked++
	}

	encoded, err := json.Marshal(result)
	if err != nil {
		encoded = []byte("{}")
	}
	if err := p.audit.Complete(auditID, string(encoded)); err != nil {
		p.log.Error().Err(err).Str("audit", auditID).Msg("Failed to record scrape completion")
	}
	progress(100)

	return map[string]interface{}{
		"success":     true,
		"scrapingJob": auditID,
		"totalFound":  result.TotalFound,
		"linked":      linked,
		"investorId":  payload.InvestorID,
	}, nil
}

func (p *ScrapePortfolioProcessor) linkCompany(investorID string, scraped scraper.ScrapedCompany) error {
	company, err := p.companies.GetByNameOrWebsite(scraped.Name, scraped.Website)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		company, err = p.createCompany(scraped)
		if err != nil {
			return err
		}
	}

	if investorID == "" {
		return nil
	}
	return p.investments.UpsertPortfolioEntry(investorID, company.ID, domain.StatusActive, p.now())
}

func (p *ScrapePortfolioProcessor) createCompany(scraped scraper.ScrapedCompany) (*domain.Company, error) {
	now := p.now()
	company := &domain.Company{
		ID:          uuid.NewString(),
		Name:        scraped.Name,
		Slug:        domain.Slugify(scraped.Name),
		Type:        domain.CompanyPrivate,
		Description: scraped.Description,
		Website:     scraped.Website,
		LogoURL:     scraped.LogoURL,
		DataSource:  domain.SourceWebScraping,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := p.companies.Create(company); err != nil {
		return nil, err
	}
	return company, nil
}
