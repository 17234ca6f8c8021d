package investments

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/atlasresearch/atlas/internal/domain"
)

// CreateInput carries the fields accepted when recording an investment.
type CreateInput struct {
	InvestorID   string                  `json:"investorId"`
	CompanyID    string                  `json:"companyId"`
	Amount       *float64                `json:"amount"`
	Stage        domain.InvestmentStage  `json:"stage"`
	Status       domain.InvestmentStatus `json:"status"`
	InvestedAt   *time.Time              `json:"investedAt"`
	ExitedAt     *time.Time              `json:"exitedAt"`
	LeadInvestor bool                    `json:"leadInvestor"`
	Ownership    *float64                `json:"ownership"`
	Notes        string                  `json:"notes"`
}

// UpdateInput carries a partial update; nil fields are left unchanged.
type UpdateInput struct {
	Amount       *float64                 `json:"amount"`
	Stage        *domain.InvestmentStage  `json:"stage"`
	Status       *domain.InvestmentStatus `json:"status"`
	InvestedAt   *time.Time               `json:"investedAt"`
	ExitedAt     *time.Time               `json:"exitedAt"`
	LeadInvestor *bool                    `json:"leadInvestor"`
	Ownership    *float64                 `json:"ownership"`
	Notes        *string                  `json:"notes"`
}

// Service implements investment business logic. Creating an investment
// also maintains the investor's portfolio membership for the company.
type Service struct {
	repo *Repository
	log  zerolog.Logger
	now  func() time.Time
}

// NewService creates a new investment service.
func NewService(repo *Repository, log zerolog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log.With().Str("service", "investments").Logger(),
		now:  time.Now,
	}
}

// Create validates both foreign keys, inserts the investment, and upserts
// the portfolio entry for the pair.
func (s *Service) Create(input CreateInput) (*domain.Investment, error) {
	if input.InvestorID == "" || input.CompanyID == "" {
		return nil, fmt.Errorf("%w: investorId and companyId are required", domain.ErrInvalid)
	}
	if input.Stage == "" {
		return nil, fmt.Errorf("%w: stage is required", domain.ErrInvalid)
	}
	if input.Status == "" {
		input.Status = domain.StatusActive
	}

	if ok, err := s.repo.InvestorExists(input.InvestorID); err != nil {
		return nil, err
	} else if !ok {
		return nil, fmt.Errorf("%w: investor %s", domain.ErrNotFound, input.InvestorID)
	}
	if ok, err := s.repo.CompanyExists(input.CompanyID); err != nil {
		return nil, err
	} else if !ok {
		return nil, fmt.Errorf("%w: company %s", domain.ErrNotFound, input.CompanyID)
	}

	now := s.now()
	inv := &domain.Investment{
		ID:           uuid.NewString(),
		InvestorID:   input.InvestorID,
		CompanyID:    input.CompanyID,
		Amount:       input.Amount,
		Stage:        input.Stage,
		Status:       input.Status,
		InvestedAt:   input.InvestedAt,
		ExitedAt:     input.ExitedAt,
		LeadInvestor: input.LeadInvestor,
		Ownership:    input.Ownership,
		Notes:        input.Notes,
		DataSource:   domain.SourceManual,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(inv); err != nil {
		return nil, err
	}
	if err := s.repo.UpsertPortfolioEntry(inv.InvestorID, inv.CompanyID, inv.Status, now); err != nil {
		return nil, err
	}
	s.log.Info().Str("id", inv.ID).
		Str("investor", inv.InvestorID).Str("company", inv.CompanyID).
		Msg("investment recorded")
	return inv, nil
}

// Get returns one investment by id.
func (s *Service) Get(id string) (*domain.Investment, error) {
	return s.repo.GetByID(id)
}

// List returns investments matching the filter.
func (s *Service) List(filter ListFilter) ([]domain.Investment, error) {
	investments, err := s.repo.List(filter)
	if err != nil {
		return nil, err
	}
	if investments == nil {
		investments = []domain.Investment{}
	}
	return investments, nil
}

// Update applies a partial update. A status change propagates to the
// portfolio entry.
func (s *Service) Update(id string, input UpdateInput) (*domain.Investment, error) {
	inv, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}

	if input.Amount != nil {
		inv.Amount = input.Amount
	}
	if input.Stage != nil {
		inv.Stage = *input.Stage
	}
	statusChanged := false
	if input.Status != nil && *input.Status != inv.Status {
		inv.Status = *input.Status
		statusChanged = true
	}
	if input.InvestedAt != nil {
		inv.InvestedAt = input.InvestedAt
	}
	if input.ExitedAt != nil {
		inv.ExitedAt = input.ExitedAt
	}
	if input.LeadInvestor != nil {
		inv.LeadInvestor = *input.LeadInvestor
	}
	if input.Ownership != nil {
		inv.Ownership = input.Ownership
	}
	if input.Notes != nil {
		inv.Notes = *input.Notes
	}

	inv.UpdatedAt = s.now()
	if err := s.repo.Update(inv); err != nil {
		return nil, err
	}
	if statusChanged {
		if err := s.repo.UpsertPortfolioEntry(inv.InvestorID, inv.CompanyID, inv.Status, inv.UpdatedAt); err != nil {
			return nil, err
		}
	}
	return inv, nil
}

// Delete removes an investment. When it was the last one linking the pair,
// the portfolio entry is removed too.
func (s *Service) Delete(id string) error {
	inv, err := s.repo.GetByID(id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(id); err != nil {
		return err
	}

	remaining, err := s.repo.CountForPair(inv.InvestorID, inv.CompanyID)
	if err != nil {
		return err
	}
	if remaining == 0 {
		if err := s.repo.DeletePortfolioEntry(inv.InvestorID, inv.CompanyID); err != nil {
			return err
		}
		s.log.Debug().Str("investor", inv.InvestorID).Str("company", inv.CompanyID).
			Msg("portfolio entry removed with last investment")
	}
	return nil
}

// GetStatistics aggregates all investments by stage and status.
func (s *Service) GetStatistics() (*Statistics, error) {
	return s.repo.GetStatistics()
}
