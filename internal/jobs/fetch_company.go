package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/atlasresearch/atlas/internal/aggregation"
	"github.com/atlasresearch/atlas/internal/domain"
	"github.com/atlasresearch/atlas/internal/modules/companies"
)

// FetchCompanyProcessor refreshes one company from the upstream providers.
// Unlike full enrichment it runs the providers in stages so job progress
// reflects how far the fetch got.
type FetchCompanyProcessor struct {
	repo     *companies.Repository
	yahoo    aggregation.YahooAPI
	edgar    aggregation.EdgarAPI
	oc       aggregation.OpenCorporatesAPI
	wikidata aggregation.WikidataAPI
	log      zerolog.Logger
	now      func() time.Time
}

// NewFetchCompanyProcessor creates the fetch-company job processor. Any
// client may be nil; its stage is skipped.
func NewFetchCompanyProcessor(
	repo *companies.Repository,
	yahooClient aggregation.YahooAPI,
	edgarClient aggregation.EdgarAPI,
	ocClient aggregation.OpenCorporatesAPI,
	wikidataClient aggregation.WikidataAPI,
	log zerolog.Logger,
) *FetchCompanyProcessor {
	return &FetchCompanyProcessor{
		repo:     repo,
		yahoo:    yahooClient,
		edgar:    edgarClient,
		oc:       ocClient,
		wikidata: wikidataClient,
		log:      log.With().Str("processor", "fetch-company").Logger(),
		now:      time.Now,
	}
}

// Handle runs the fetch. Progress milestones: 25 market data, 50 SEC
// filings data, 75 registry and knowledge-base data, 100 saved.
func (p *FetchCompanyProcessor) Handle(ctx context.Context, job *Job, progress func(int)) (interface{}, error) {
	var payload FetchCompanyPayload
	if err := unmarshalPayload(job.Payload, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode payload: %w", err)
	}

	company, err := p.repo.GetByID(payload.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load company: %w", err)
	}

	updates := 0
	raw := make(map[string]interface{})

	if p.yahoo != nil && company.Ticker != "" {
		updates += p.fetchMarketData(ctx, company, raw)
	}
	progress(25)

	if p.edgar != nil && company.Type == domain.CompanyPublic && company.Ticker != "" {
		updates += p.fetchFilingsData(ctx, company, raw)
	}
	progress(50)

	if p.oc != nil {
		updates += p.fetchRegistryData(ctx, company, raw)
	}
	if p.wikidata != nil {
		updates += p.fetchKnowledgeBase(ctx, company, raw)
	}
	progress(75)

	if len(raw) > 0 {
		if encoded, err := json.Marshal(raw); err == nil {
			company.RawData = string(encoded)
		}
	}
	stamp := p.now()
	company.LastFetched = &stamp
	company.UpdatedAt = stamp
	if err := p.repo.Update(company); err != nil {
		return nil, fmt.Errorf("failed to save company: %w", err)
	}
	progress(100)

	return map[string]interface{}{
		"success":   true,
		"companyId": company.ID,
		"enriched":  updates,
	}, nil
}

func (p *FetchCompanyProcessor) fetchMarketData(ctx context.Context, company *domain.Company, raw map[string]interface{}) int {
	updates := 0
	quote, err := p.yahoo.GetQuote(ctx, company.Ticker)
	if err != nil {
		p.log.Warn().Err(err).Str("ticker", company.Ticker).Msg("Quote fetch failed")
	} else if quote != nil {
		if quote.MarketCap > 0 {
			v := quote.MarketCap
			company.MarketCap = &v
			updates++
		}
		if company.Exchange == "" && quote.FullExchangeName != "" {
			company.Exchange = quote.FullExchangeName
			updates++
		}
		raw[string(domain.SourceYahooFinance)] = quote
	}

	profile, err := p.yahoo.GetCompanyProfile(ctx, company.Ticker)
	if err != nil {
		p.log.Warn().Err(err).Str("ticker", company.Ticker).Msg("Profile fetch failed")
	} else if profile != nil {
		if company.Description == "" && profile.LongBusinessSummary != "" {
			company.Description = profile.LongBusinessSummary
			updates++
		}
		if company.Industry == "" && profile.Industry != "" {
			company.Industry = profile.Industry
			updates++
		}
		if company.Sector == "" && profile.Sector != "" {
			company.Sector = profile.Sector
			updates++
		}
	}
	return updates
}

func (p *FetchCompanyProcessor) fetchFilingsData(ctx context.Context, company *domain.Company, raw map[string]interface{}) int {
	info, err := p.edgar.GetCompanyByTicker(ctx, company.Ticker)
	if err != nil {
		p.log.Warn().Err(err).Str("ticker", company.Ticker).Msg("EDGAR fetch failed")
		return 0
	}
	if info == nil {
		return 0
	}

	updates := 0
	if company.CIK == "" && info.CIK != "" {
		company.CIK = info.CIK
		updates++
	}
	if company.Industry == "" && info.SICDescription != "" {
		company.Industry = info.SICDescription
		updates++
	}
	raw[string(domain.SourceSECEdgar)] = info
	return updates
}

func (p *FetchCompanyProcessor) fetchRegistryData(ctx context.Context, company *domain.Company, raw map[string]interface{}) int {
	hits, err := p.oc.SearchCompanies(ctx, company.Name, "")
	if err != nil {
		p.log.Warn().Err(err).Str("company", company.Name).Msg("Registry search failed")
		return 0
	}
	if len(hits) == 0 {
		return 0
	}

	updates := 0
	first := hits[0]
	if company.Headquarters == "" && first.AddressInFull != "" {
		company.Headquarters = first.AddressInFull
		updates++
	}
	if first.RegisteredAddress != nil {
		if company.Country == "" && first.RegisteredAddress.Country != "" {
			company.Country = first.RegisteredAddress.Country
			updates++
		}
	}
	raw[string(domain.SourceOpenCorporates)] = first
	return updates
}

func (p *FetchCompanyProcessor) fetchKnowledgeBase(ctx context.Context, company *domain.Company, raw map[string]interface{}) int {
	data, err := p.wikidata.GetCompanyData(ctx, company.Name)
	if err != nil {
		p.log.Warn().Err(err).Str("company", company.Name).Msg("Knowledge base fetch failed")
		return 0
	}
	if data == nil {
		return 0
	}

	updates := 0
	if company.Description == "" && data.Description != "" {
		company.Description = data.Description
		updates++
	}
	if company.Website == "" && data.Website != "" {
		company.Website = data.Website
		updates++
	}
	raw[string(domain.SourceWikidata)] = data
	return updates
}
