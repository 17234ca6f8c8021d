package investments

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/atlasresearch/atlas/internal/domain"
)

const investmentColumns = `id, investor_id, company_id, amount, stage, status,
	invested_at, exited_at, lead_investor, ownership, notes, data_source,
	created_at, updated_at`

// ListFilter narrows investment listings.
type ListFilter struct {
	InvestorID string
	CompanyID  string
	Stage      domain.InvestmentStage
	Status     domain.InvestmentStatus
	Limit      int
	Offset     int
}

// Repository handles investment database operations.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new investment repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "investments").Logger(),
	}
}

// Create inserts an investment record.
func (r *Repository) Create(inv *domain.Investment) error {
	_, err := r.db.Exec(`INSERT INTO investments (`+investmentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.InvestorID, inv.CompanyID, nullFloat(inv.Amount),
		string(inv.Stage), string(inv.Status),
		nullTime(inv.InvestedAt), nullTime(inv.ExitedAt),
		boolInt(inv.LeadInvestor), nullFloat(inv.Ownership), inv.Notes,
		string(inv.DataSource), inv.CreatedAt.Unix(), inv.UpdatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to insert investment: %w", err)
	}
	return nil
}

// GetByID returns one investment or domain.ErrNotFound.
func (r *Repository) GetByID(id string) (*domain.Investment, error) {
	row := r.db.QueryRow(`SELECT `+investmentColumns+` FROM investments WHERE id = ?`, id)
	inv, err := scanInvestment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan investment: %w", err)
	}
	return inv, nil
}

// List returns investments, newest first, optionally filtered.
func (r *Repository) List(filter ListFilter) ([]domain.Investment, error) {
	query := `SELECT ` + investmentColumns + ` FROM investments`
	var conds []string
	var args []interface{}
	if filter.InvestorID != "" {
		conds = append(conds, "investor_id = ?")
		args = append(args, filter.InvestorID)
	}
	if filter.CompanyID != "" {
		conds = append(conds, "company_id = ?")
		args = append(args, filter.CompanyID)
	}
	if filter.Stage != "" {
		conds = append(conds, "stage = ?")
		args = append(args, string(filter.Stage))
	}
	if filter.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, string(filter.Status))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY invested_at DESC, created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query investments: %w", err)
	}
	defer rows.Close()

	var investments []domain.Investment
	for rows.Next() {
		inv, err := scanInvestment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan investment: %w", err)
		}
		investments = append(investments, *inv)
	}
	return investments, rows.Err()
}

// Update rewrites all mutable fields of an investment.
func (r *Repository) Update(inv *domain.Investment) error {
	res, err := r.db.Exec(`UPDATE investments SET
		amount = ?, stage = ?, status = ?, invested_at = ?, exited_at = ?,
		lead_investor = ?, ownership = ?, notes = ?, data_source = ?, updated_at = ?
		WHERE id = ?`,
		nullFloat(inv.Amount), string(inv.Stage), string(inv.Status),
		nullTime(inv.InvestedAt), nullTime(inv.ExitedAt),
		boolInt(inv.LeadInvestor), nullFloat(inv.Ownership), inv.Notes,
		string(inv.DataSource), inv.UpdatedAt.Unix(), inv.ID)
	if err != nil {
		return fmt.Errorf("failed to update investment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes an investment.
func (r *Repository) Delete(id string) error {
	res, err := r.db.Exec(`DELETE FROM investments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete investment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// CountForPair returns how many investments link an investor to a company.
func (r *Repository) CountForPair(investorID, companyID string) (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM investments
		WHERE investor_id = ? AND company_id = ?`, investorID, companyID).Scan(&n)
	return n, err
}

// InvestorExists reports whether an investor record exists.
func (r *Repository) InvestorExists(id string) (bool, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM investors WHERE id = ?`, id).Scan(&n)
	return n > 0, err
}

// CompanyExists reports whether a company record exists.
func (r *Repository) CompanyExists(id string) (bool, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM companies WHERE id = ?`, id).Scan(&n)
	return n > 0, err
}

// UpsertPortfolioEntry records portfolio membership for the investor and
// company pair, updating the status when the pair already exists.
func (r *Repository) UpsertPortfolioEntry(investorID, companyID string, status domain.InvestmentStatus, now time.Time) error {
	_, err := r.db.Exec(`INSERT INTO portfolio_companies
		(id, investor_id, company_id, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(investor_id, company_id)
		DO UPDATE SET status = excluded.status, updated_at = excluded.updated_at`,
		uuid.NewString(), investorID, companyID, string(status), now.Unix(), now.Unix())
	if err != nil {
		return fmt.Errorf("failed to upsert portfolio entry: %w", err)
	}
	return nil
}

// DeletePortfolioEntry removes the portfolio link for a pair.
func (r *Repository) DeletePortfolioEntry(investorID, companyID string) error {
	_, err := r.db.Exec(`DELETE FROM portfolio_companies
		WHERE investor_id = ? AND company_id = ?`, investorID, companyID)
	if err != nil {
		return fmt.Errorf("failed to delete portfolio entry: %w", err)
	}
	return nil
}

// Statistics aggregates investment counts and amounts.
type Statistics struct {
	Total       int                `json:"total"`
	TotalAmount float64            `json:"totalAmount"`
	ByStage     map[string]int     `json:"byStage"`
	ByStatus    map[string]int     `json:"byStatus"`
	AmountStage map[string]float64 `json:"amountByStage"`
}

// GetStatistics aggregates all investments by stage and status.
func (r *Repository) GetStatistics() (*Statistics, error) {
	stats := &Statistics{
		ByStage:     make(map[string]int),
		ByStatus:    make(map[string]int),
		AmountStage: make(map[string]float64),
	}

	err := r.db.QueryRow(`SELECT COUNT(*), COALESCE(SUM(amount), 0) FROM investments`).
		Scan(&stats.Total, &stats.TotalAmount)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate investments: %w", err)
	}

	rows, err := r.db.Query(`SELECT stage, COUNT(*), COALESCE(SUM(amount), 0)
		FROM investments GROUP BY stage`)
	if err != nil {
		return nil, fmt.Errorf("failed to group by stage: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var stage string
		var count int
		var amount float64
		if err := rows.Scan(&stage, &count, &amount); err != nil {
			return nil, err
		}
		stats.ByStage[stage] = count
		stats.AmountStage[stage] = amount
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	statusRows, err := r.db.Query(`SELECT status, COUNT(*) FROM investments GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to group by status: %w", err)
	}
	defer statusRows.Close()
	for statusRows.Next() {
		var status string
		var count int
		if err := statusRows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats.ByStatus[status] = count
	}
	return stats, statusRows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanInvestment(row rowScanner) (*domain.Investment, error) {
	var inv domain.Investment
	var stage, status, source string
	var amount, ownership sql.NullFloat64
	var investedAt, exitedAt sql.NullInt64
	var lead int
	var created, updated int64

	err := row.Scan(&inv.ID, &inv.InvestorID, &inv.CompanyID, &amount, &stage, &status,
		&investedAt, &exitedAt, &lead, &ownership, &inv.Notes, &source,
		&created, &updated)
	if err != nil {
		return nil, err
	}

	inv.Amount = floatPtr(amount)
	inv.Stage = domain.InvestmentStage(stage)
	inv.Status = domain.InvestmentStatus(status)
	inv.InvestedAt = timePtr(investedAt)
	inv.ExitedAt = timePtr(exitedAt)
	inv.LeadInvestor = lead != 0
	inv.Ownership = floatPtr(ownership)
	inv.DataSource = domain.DataSource(source)
	inv.CreatedAt = time.Unix(created, 0)
	inv.UpdatedAt = time.Unix(updated, 0)
	return &inv, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullFloat(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func nullTime(v *time.Time) interface{} {
	if v == nil {
		return nil
	}
	return v.Unix()
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func timePtr(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(v.Int64, 0)
	return &t
}
