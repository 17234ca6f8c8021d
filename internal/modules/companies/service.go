package companies

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/atlasresearch/atlas/internal/domain"
)

// Enqueuer schedules a background data fetch for a company. Wired to the
// data-fetch queue; nil disables automatic enrichment.
type Enqueuer interface {
	EnqueueFetchCompany(companyID string) (string, error)
}

// CreateInput carries the fields accepted when creating a company.
type CreateInput struct {
	Name          string             `json:"name"`
	Type          domain.CompanyType `json:"type"`
	Stage         string             `json:"stage"`
	Description   string             `json:"description"`
	Website       string             `json:"website"`
	Headquarters  string             `json:"headquarters"`
	City          string             `json:"city"`
	State         string             `json:"state"`
	Country       string             `json:"country"`
	Industry      string             `json:"industry"`
	Sector        string             `json:"sector"`
	FoundedYear   *int               `json:"foundedYear"`
	EmployeeCount *int               `json:"employeeCount"`
	Ticker        string             `json:"ticker"`
	Exchange      string             `json:"exchange"`
	CIK           string             `json:"cik"`
	LinkedinURL   string             `json:"linkedinUrl"`
	TwitterURL    string             `json:"twitterUrl"`
	LogoURL       string             `json:"logoUrl"`
}

// UpdateInput carries a partial update; nil fields are left unchanged.
type UpdateInput struct {
	Name          *string             `json:"name"`
	Type          *domain.CompanyType `json:"type"`
	Stage         *string             `json:"stage"`
	Description   *string             `json:"description"`
	Website       *string             `json:"website"`
	Headquarters  *string             `json:"headquarters"`
	City          *string             `json:"city"`
	State         *string             `json:"state"`
	Country       *string             `json:"country"`
	Industry      *string             `json:"industry"`
	Sector        *string             `json:"sector"`
	FoundedYear   *int                `json:"foundedYear"`
	EmployeeCount *int                `json:"employeeCount"`
	Ticker        *string             `json:"ticker"`
	Exchange      *string             `json:"exchange"`
	CIK           *string             `json:"cik"`
	LinkedinURL   *string             `json:"linkedinUrl"`
	TwitterURL    *string             `json:"twitterUrl"`
	LogoURL       *string             `json:"logoUrl"`
}

// FundingHistory summarizes a company's funding rounds.
type FundingHistory struct {
	Rounds          []domain.FundingRound `json:"rounds"`
	TotalRaised     float64               `json:"totalRaised"`
	LatestValuation *float64              `json:"latestValuation,omitempty"`
}

// Service implements company business logic.
type Service struct {
	repo     *Repository
	enqueuer Enqueuer
	log      zerolog.Logger
	now      func() time.Time
}

// NewService creates a new company service. enq may be nil.
func NewService(repo *Repository, enq Enqueuer, log zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		enqueuer: enq,
		log:      log.With().Str("service", "companies").Logger(),
		now:      time.Now,
	}
}

// Create validates input, derives the slug, and inserts the company.
// Companies created with a ticker get a background data fetch queued.
func (s *Service) Create(input CreateInput) (*domain.Company, error) {
	if input.Name == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrInvalid)
	}
	if input.Type == "" {
		input.Type = domain.CompanyPrivate
	}

	slug := domain.Slugify(input.Name)
	if slug == "" {
		return nil, fmt.Errorf("%w: name must contain letters or digits", domain.ErrInvalid)
	}
	if _, err := s.repo.GetBySlug(slug); err == nil {
		return nil, fmt.Errorf("%w: company with slug %q", domain.ErrConflict, slug)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	now := s.now()
	c := &domain.Company{
		ID:            uuid.NewString(),
		Name:          input.Name,
		Slug:          slug,
		Type:          input.Type,
		Stage:         input.Stage,
		Description:   input.Description,
		Website:       input.Website,
		Headquarters:  input.Headquarters,
		City:          input.City,
		State:         input.State,
		Country:       input.Country,
		Industry:      input.Industry,
		Sector:        input.Sector,
		FoundedYear:   input.FoundedYear,
		EmployeeCount: input.EmployeeCount,
		Ticker:        input.Ticker,
		Exchange:      input.Exchange,
		CIK:           input.CIK,
		LinkedinURL:   input.LinkedinURL,
		TwitterURL:    input.TwitterURL,
		LogoURL:       input.LogoURL,
		DataSource:    domain.SourceManual,
		RawData:       "{}",
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Create(c); err != nil {
		return nil, err
	}
	s.log.Info().Str("id", c.ID).Str("slug", c.Slug).Msg("company created")

	if c.Ticker != "" && s.enqueuer != nil {
		jobID, err := s.enqueuer.EnqueueFetchCompany(c.ID)
		if err != nil {
			s.log.Warn().Err(err).Str("company", c.ID).Msg("failed to queue data fetch")
		} else {
			s.log.Debug().Str("company", c.ID).Str("job", jobID).Msg("data fetch queued")
		}
	}
	return c, nil
}

// Get returns one company by id.
func (s *Service) Get(id string) (*domain.Company, error) {
	return s.repo.GetByID(id)
}

// GetBySlug returns one company by slug.
func (s *Service) GetBySlug(slug string) (*domain.Company, error) {
	return s.repo.GetBySlug(slug)
}

// GetByTicker returns one company by ticker symbol.
func (s *Service) GetByTicker(ticker string) (*domain.Company, error) {
	return s.repo.GetByTicker(ticker)
}

// List returns companies matching the filter.
func (s *Service) List(filter ListFilter) ([]domain.Company, error) {
	companies, err := s.repo.List(filter)
	if err != nil {
		return nil, err
	}
	if companies == nil {
		companies = []domain.Company{}
	}
	return companies, nil
}

// Update applies a partial update. A name change regenerates the slug.
func (s *Service) Update(id string, input UpdateInput) (*domain.Company, error) {
	c, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil && *input.Name != c.Name {
		slug := domain.Slugify(*input.Name)
		if slug == "" {
			return nil, fmt.Errorf("%w: name must contain letters or digits", domain.ErrInvalid)
		}
		existing, err := s.repo.GetBySlug(slug)
		if err == nil && existing.ID != id {
			return nil, fmt.Errorf("%w: company with slug %q", domain.ErrConflict, slug)
		} else if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		c.Name = *input.Name
		c.Slug = slug
	}
	if input.Type != nil {
		c.Type = *input.Type
	}
	if input.Stage != nil {
		c.Stage = *input.Stage
	}
	if input.Description != nil {
		c.Description = *input.Description
	}
	if input.Website != nil {
		c.Website = *input.Website
	}
	if input.Headquarters != nil {
		c.Headquarters = *input.Headquarters
	}
	if input.City != nil {
		c.City = *input.City
	}
	if input.State != nil {
		c.State = *input.State
	}
	if input.Country != nil {
		c.Country = *input.Country
	}
	if input.Industry != nil {
		c.Industry = *input.Industry
	}
	if input.Sector != nil {
		c.Sector = *input.Sector
	}
	if input.FoundedYear != nil {
		c.FoundedYear = input.FoundedYear
	}
	if input.EmployeeCount != nil {
		c.EmployeeCount = input.EmployeeCount
	}
	if input.Ticker != nil {
		c.Ticker = *input.Ticker
	}
	if input.Exchange != nil {
		c.Exchange = *input.Exchange
	}
	if input.CIK != nil {
		c.CIK = *input.CIK
	}
	if input.LinkedinURL != nil {
		c.LinkedinURL = *input.LinkedinURL
	}
	if input.TwitterURL != nil {
		c.TwitterURL = *input.TwitterURL
	}
	if input.LogoURL != nil {
		c.LogoURL = *input.LogoURL
	}

	c.UpdatedAt = s.now()
	if err := s.repo.Update(c); err != nil {
		return nil, err
	}
	return c, nil
}

// Delete removes a company and everything that cascades from it.
func (s *Service) Delete(id string) error {
	return s.repo.Delete(id)
}

// GetFundingHistory returns a company's rounds with the raised total and
// the valuation of the most recent round that reported one.
func (s *Service) GetFundingHistory(id string) (*FundingHistory, error) {
	if _, err := s.repo.GetByID(id); err != nil {
		return nil, err
	}
	rounds, err := s.repo.GetFundingRounds(id)
	if err != nil {
		return nil, err
	}
	if rounds == nil {
		rounds = []domain.FundingRound{}
	}

	history := &FundingHistory{Rounds: rounds}
	for _, round := range rounds {
		if round.Amount != nil {
			history.TotalRaised += *round.Amount
		}
		if history.LatestValuation == nil && round.Valuation != nil {
			history.LatestValuation = round.Valuation
		}
	}
	return history, nil
}

// GetInvestors returns all investments into a company with investor
// records attached.
func (s *Service) GetInvestors(id string) ([]domain.Investment, error) {
	if _, err := s.repo.GetByID(id); err != nil {
		return nil, err
	}
	investments, err := s.repo.GetInvestors(id)
	if err != nil {
		return nil, err
	}
	if investments == nil {
		investments = []domain.Investment{}
	}
	return investments, nil
}

// IsDataStale reports whether a company's provider data is older than
// maxAge. Never-fetched companies are always stale.
func (s *Service) IsDataStale(id string, maxAge time.Duration) (bool, error) {
	c, err := s.repo.GetByID(id)
	if err != nil {
		return false, err
	}
	if c.LastFetched == nil {
		return true, nil
	}
	return s.now().Sub(*c.LastFetched) > maxAge, nil
}

// GetStale lists companies due for re-enrichment.
func (s *Service) GetStale(maxAge time.Duration, limit int) ([]domain.Company, error) {
	companies, err := s.repo.GetStale(maxAge, limit)
	if err != nil {
		return nil, err
	}
	if companies == nil {
		companies = []domain.Company{}
	}
	return companies, nil
}

// staleAfter is how old enrichment data may get before a company counts
// as stale.
const staleAfter = 30 * 24 * time.Hour

// StalenessReport describes whether a company's enrichment data is due
// for a refresh.
type StalenessReport struct {
	CompanyID   string     `json:"companyId"`
	Stale       bool       `json:"stale"`
	LastFetched *time.Time `json:"lastFetched,omitempty"`
}

// CheckStale reports whether a company's provider data is older than the
// default staleness threshold. Never-fetched companies are always stale.
func (s *Service) CheckStale(id string) (*StalenessReport, error) {
	company, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	stale := company.LastFetched == nil || s.now().Sub(*company.LastFetched) > staleAfter
	return &StalenessReport{
		CompanyID:   company.ID,
		Stale:       stale,
		LastFetched: company.LastFetched,
	}, nil
}

// RequestFetch queues a background data fetch for a company.
func (s *Service) RequestFetch(id string) (string, error) {
	if s.enqueuer == nil {
		return "", fmt.Errorf("%w: job queue not configured", domain.ErrInvalid)
	}
	if _, err := s.repo.GetByID(id); err != nil {
		return "", err
	}
	return s.enqueuer.EnqueueFetchCompany(id)
}
