package investors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/atlasresearch/atlas/internal/clients/wikidata"
	"github.com/atlasresearch/atlas/internal/domain"
)

// WikidataClient is the subset of the wikidata client used for enrichment.
type WikidataClient interface {
	GetCompanyData(ctx context.Context, name string) (*wikidata.CompanyData, error)
}

// CreateInput carries the fields accepted when creating an investor.
type CreateInput struct {
	Name        string              `json:"name"`
	Type        domain.InvestorType `json:"type"`
	Description string              `json:"description"`
	Website     string              `json:"website"`
	City        string              `json:"city"`
	State       string              `json:"state"`
	Country     string              `json:"country"`
	FoundedYear *int                `json:"foundedYear"`
	AUM         *float64            `json:"aum"`
	TeamSize    *int                `json:"teamSize"`
	LinkedinURL string              `json:"linkedinUrl"`
	TwitterURL  string              `json:"twitterUrl"`
	LogoURL     string              `json:"logoUrl"`
}

// UpdateInput carries a partial update; nil fields are left unchanged.
type UpdateInput struct {
	Name        *string              `json:"name"`
	Type        *domain.InvestorType `json:"type"`
	Description *string              `json:"description"`
	Website     *string              `json:"website"`
	City        *string              `json:"city"`
	State       *string              `json:"state"`
	Country     *string              `json:"country"`
	FoundedYear *int                 `json:"foundedYear"`
	AUM         *float64             `json:"aum"`
	TeamSize    *int                 `json:"teamSize"`
	LinkedinURL *string              `json:"linkedinUrl"`
	TwitterURL  *string              `json:"twitterUrl"`
	LogoURL     *string              `json:"logoUrl"`
}

// Portfolio bundles an investor's holdings with summary statistics.
type Portfolio struct {
	Investor  *domain.Investor          `json:"investor"`
	Companies []domain.PortfolioCompany `json:"companies"`
	Stats     *PortfolioStats           `json:"stats"`
}

// Service implements investor business logic.
type Service struct {
	repo     *Repository
	wikidata WikidataClient
	log      zerolog.Logger
	now      func() time.Time
}

// NewService creates a new investor service. wd may be nil, in which case
// Wikidata enrichment is unavailable.
func NewService(repo *Repository, wd WikidataClient, log zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		wikidata: wd,
		log:      log.With().Str("service", "investors").Logger(),
		now:      time.Now,
	}
}

// Create validates input, derives the slug, and inserts the investor.
func (s *Service) Create(input CreateInput) (*domain.Investor, error) {
	if input.Name == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrInvalid)
	}
	if input.Type == "" {
		input.Type = domain.InvestorOther
	}

	slug := domain.Slugify(input.Name)
	if slug == "" {
		return nil, fmt.Errorf("%w: name must contain letters or digits", domain.ErrInvalid)
	}
	if _, err := s.repo.GetBySlug(slug); err == nil {
		return nil, fmt.Errorf("%w: investor with slug %q", domain.ErrConflict, slug)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	now := s.now()
	inv := &domain.Investor{
		ID:          uuid.NewString(),
		Name:        input.Name,
		Slug:        slug,
		Type:        input.Type,
		Description: input.Description,
		Website:     input.Website,
		City:        input.City,
		State:       input.State,
		Country:     input.Country,
		FoundedYear: input.FoundedYear,
		AUM:         input.AUM,
		TeamSize:    input.TeamSize,
		LinkedinURL: input.LinkedinURL,
		TwitterURL:  input.TwitterURL,
		LogoURL:     input.LogoURL,
		DataSource:  domain.SourceManual,
		RawData:     "{}",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(inv); err != nil {
		return nil, err
	}
	s.log.Info().Str("id", inv.ID).Str("slug", inv.Slug).Msg("investor created")
	return inv, nil
}

// Get returns one investor by id.
func (s *Service) Get(id string) (*domain.Investor, error) {
	return s.repo.GetByID(id)
}

// GetBySlug returns one investor by slug.
func (s *Service) GetBySlug(slug string) (*domain.Investor, error) {
	return s.repo.GetBySlug(slug)
}

// List returns investors matching the filter.
func (s *Service) List(filter ListFilter) ([]domain.Investor, error) {
	investors, err := s.repo.List(filter)
	if err != nil {
		return nil, err
	}
	if investors == nil {
		investors = []domain.Investor{}
	}
	return investors, nil
}

// Update applies a partial update. A name change regenerates the slug.
func (s *Service) Update(id string, input UpdateInput) (*domain.Investor, error) {
	inv, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil && *input.Name != inv.Name {
		slug := domain.Slugify(*input.Name)
		if slug == "" {
			return nil, fmt.Errorf("%w: name must contain letters or digits", domain.ErrInvalid)
		}
		existing, err := s.repo.GetBySlug(slug)
		if err == nil && existing.ID != id {
			return nil, fmt.Errorf("%w: investor with slug %q", domain.ErrConflict, slug)
		} else if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		inv.Name = *input.Name
		inv.Slug = slug
	}
	if input.Type != nil {
		inv.Type = *input.Type
	}
	if input.Description != nil {
		inv.Description = *input.Description
	}
	if input.Website != nil {
		inv.Website = *input.Website
	}
	if input.City != nil {
		inv.City = *input.City
	}
	if input.State != nil {
		inv.State = *input.State
	}
	if input.Country != nil {
		inv.Country = *input.Country
	}
	if input.FoundedYear != nil {
		inv.FoundedYear = input.FoundedYear
	}
	if input.AUM != nil {
		inv.AUM = input.AUM
	}
	if input.TeamSize != nil {
		inv.TeamSize = input.TeamSize
	}
	if input.LinkedinURL != nil {
		inv.LinkedinURL = *input.LinkedinURL
	}
	if input.TwitterURL != nil {
		inv.TwitterURL = *input.TwitterURL
	}
	if input.LogoURL != nil {
		inv.LogoURL = *input.LogoURL
	}

	inv.UpdatedAt = s.now()
	if err := s.repo.Update(inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// Delete removes an investor and everything that cascades from it.
func (s *Service) Delete(id string) error {
	return s.repo.Delete(id)
}

// GetPortfolio returns the investor's holdings and summary statistics.
func (s *Service) GetPortfolio(id string) (*Portfolio, error) {
	inv, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	companies, err := s.repo.GetPortfolio(id)
	if err != nil {
		return nil, err
	}
	if companies == nil {
		companies = []domain.PortfolioCompany{}
	}
	stats, err := s.repo.GetPortfolioStats(id)
	if err != nil {
		return nil, err
	}
	return &Portfolio{Investor: inv, Companies: companies, Stats: stats}, nil
}

// EnrichFromWikidata fills empty descriptive fields from the investor's
// Wikidata item and records the raw response.
func (s *Service) EnrichFromWikidata(ctx context.Context, id string) (*domain.Investor, error) {
	if s.wikidata == nil {
		return nil, fmt.Errorf("%w: wikidata client not configured", domain.ErrInvalid)
	}
	inv, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}

	data, err := s.wikidata.GetCompanyData(ctx, inv.Name)
	if err != nil {
		return nil, fmt.Errorf("wikidata lookup for %q: %w", inv.Name, err)
	}
	if data == nil {
		s.log.Debug().Str("investor", inv.Name).Msg("no wikidata entity found")
		return inv, nil
	}

	if inv.Description == "" && data.Description != "" {
		inv.Description = data.Description
	}
	if inv.Website == "" && data.Website != "" {
		inv.Website = data.Website
	}
	if inv.FoundedYear == nil {
		if year := foundedYear(data.FoundedDate); year != nil {
			inv.FoundedYear = year
		}
	}
	if raw, err := json.Marshal(data); err == nil {
		inv.RawData = string(raw)
	}
	now := s.now()
	inv.LastFetched = &now
	inv.UpdatedAt = now
	inv.DataSource = domain.SourceWikidata

	if err := s.repo.Update(inv); err != nil {
		return nil, err
	}
	s.log.Info().Str("id", inv.ID).Str("entity", data.EntityID).Msg("investor enriched from wikidata")
	return inv, nil
}

// foundedYear parses the year out of a Wikidata time value like
// "+1972-06-01T00:00:00Z".
func foundedYear(wikidataTime string) *int {
	if len(wikidataTime) < 5 {
		return nil
	}
	var year int
	if _, err := fmt.Sscanf(wikidataTime[1:5], "%d", &year); err != nil || year == 0 {
		return nil
	}
	return &year
}
