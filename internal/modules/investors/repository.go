package investors

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/atlasresearch/atlas/internal/domain"
)

const investorColumns = `id, name, slug, type, description, website, city, state, country,
	founded_year, aum, team_size, linkedin_url, twitter_url, logo_url,
	data_source, raw_data, last_fetched, created_at, updated_at`

// ListFilter narrows investor listings.
type ListFilter struct {
	Type    domain.InvestorType
	Country string
	Limit   int
	Offset  int
}

// Repository handles investor database operations.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new investor repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "investors").Logger(),
	}
}

// Create inserts an investor record.
func (r *Repository) Create(inv *domain.Investor) error {
	_, err := r.db.Exec(`INSERT INTO investors (`+investorColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.Name, inv.Slug, string(inv.Type), inv.Description, inv.Website,
		inv.City, inv.State, inv.Country,
		nullInt(inv.FoundedYear), nullFloat(inv.AUM), nullInt(inv.TeamSize),
		inv.LinkedinURL, inv.TwitterURL, inv.LogoURL,
		string(inv.DataSource), inv.RawData, nullTime(inv.LastFetched),
		inv.CreatedAt.Unix(), inv.UpdatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to insert investor: %w", err)
	}
	return nil
}

// GetByID returns one investor or domain.ErrNotFound.
func (r *Repository) GetByID(id string) (*domain.Investor, error) {
	row := r.db.QueryRow(`SELECT `+investorColumns+` FROM investors WHERE id = ?`, id)
	return scanInvestorRow(row)
}

// GetBySlug returns one investor or domain.ErrNotFound.
func (r *Repository) GetBySlug(slug string) (*domain.Investor, error) {
	row := r.db.QueryRow(`SELECT `+investorColumns+` FROM investors WHERE slug = ?`, slug)
	return scanInvestorRow(row)
}

// GetByName returns the first investor whose name contains the given
// fragment, case-insensitively, or domain.ErrNotFound.
func (r *Repository) GetByName(name string) (*domain.Investor, error) {
	row := r.db.QueryRow(`SELECT `+investorColumns+` FROM investors
		WHERE name LIKE ? COLLATE NOCASE ORDER BY name LIMIT 1`, "%"+name+"%")
	return scanInvestorRow(row)
}

// List returns investors ordered by name, optionally filtered.
func (r *Repository) List(filter ListFilter) ([]domain.Investor, error) {
	query := `SELECT ` + investorColumns + ` FROM investors`
	var conds []string
	var args []interface{}
	if filter.Type != "" {
		conds = append(conds, "type = ?")
		args = append(args, string(filter.Type))
	}
	if filter.Country != "" {
		conds = append(conds, "country = ?")
		args = append(args, filter.Country)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY name"
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query investors: %w", err)
	}
	defer rows.Close()

	var investors []domain.Investor
	for rows.Next() {
		inv, err := scanInvestor(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan investor: %w", err)
		}
		investors = append(investors, *inv)
	}
	return investors, rows.Err()
}

// Count returns the total number of investors.
func (r *Repository) Count() (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM investors`).Scan(&n)
	return n, err
}

// Update rewrites all mutable fields of an investor.
func (r *Repository) Update(inv *domain.Investor) error {
	res, err := r.db.Exec(`UPDATE investors SET
		name = ?, slug = ?, type = ?, description = ?, website = ?,
		city = ?, state = ?, country = ?, founded_year = ?, aum = ?,
		team_size = ?, linkedin_url = ?, twitter_url = ?, logo_url = ?,
		data_source = ?, raw_data = ?, last_fetched = ?, updated_at = ?
		WHERE id = ?`,
		inv.Name, inv.Slug, string(inv.Type), inv.Description, inv.Website,
		inv.City, inv.State, inv.Country, nullInt(inv.FoundedYear), nullFloat(inv.AUM),
		nullInt(inv.TeamSize), inv.LinkedinURL, inv.TwitterURL, inv.LogoURL,
		string(inv.DataSource), inv.RawData, nullTime(inv.LastFetched), inv.UpdatedAt.Unix(),
		inv.ID)
	if err != nil {
		return fmt.Errorf("failed to update investor: %w", err)
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

// Delete removes an investor. Investments and portfolio links cascade.
func (r *Repository) Delete(id string) error {
	res, err := r.db.Exec(`DELETE FROM investors WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete investor: %w", err)
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

// GetPortfolio returns the investor's portfolio entries with company
// records attached, newest first.
func (r *Repository) GetPortfolio(investorID string) ([]domain.PortfolioCompany, error) {
	rows, err := r.db.Query(`SELECT
		pc.id, pc.investor_id, pc.company_id, pc.status, pc.created_at, pc.updated_at,
		c.id, c.name, c.slug, c.type, c.stage, c.description, c.website, c.headquarters,
		c.city, c.state, c.country, c.industry, c.sector, c.founded_year, c.employee_count,
		c.ticker, c.exchange, c.cik, c.market_cap, c.revenue,
		c.linkedin_url, c.twitter_url, c.logo_url, c.data_source, c.raw_data,
		c.last_fetched, c.created_at, c.updated_at
		FROM portfolio_companies pc
		JOIN companies c ON c.id = pc.company_id
		WHERE pc.investor_id = ?
		ORDER BY pc.created_at DESC`, investorID)
	if err != nil {
		return nil, fmt.Errorf("failed to query portfolio: %w", err)
	}
	defer rows.Close()

	var entries []domain.PortfolioCompany
	for rows.Next() {
		var pc domain.PortfolioCompany
		var pcStatus string
		var pcCreated, pcUpdated int64
		var c domain.Company
		var cType, cSource string
		var foundedYear, employeeCount sql.NullInt64
		var marketCap, revenue sql.NullFloat64
		var lastFetched sql.NullInt64
		var cCreated, cUpdated int64

		err := rows.Scan(
			&pc.ID, &pc.InvestorID, &pc.CompanyID, &pcStatus, &pcCreated, &pcUpdated,
			&c.ID, &c.Name, &c.Slug, &cType, &c.Stage, &c.Description, &c.Website,
			&c.Headquarters, &c.City, &c.State, &c.Country, &c.Industry, &c.Sector,
			&foundedYear, &employeeCount, &c.Ticker, &c.Exchange, &c.CIK,
			&marketCap, &revenue, &c.LinkedinURL, &c.TwitterURL, &c.LogoURL,
			&cSource, &c.RawData, &lastFetched, &cCreated, &cUpdated)
		if err != nil {
			return nil, fmt.Errorf("failed to scan portfolio entry: %w", err)
		}

		pc.Status = domain.InvestmentStatus(pcStatus)
		pc.CreatedAt = time.Unix(pcCreated, 0)
		pc.UpdatedAt = time.Unix(pcUpdated, 0)
		c.Type = domain.CompanyType(cType)
		c.DataSource = domain.DataSource(cSource)
		c.FoundedYear = intPtr(foundedYear)
		c.EmployeeCount = intPtr(employeeCount)
		c.MarketCap = floatPtr(marketCap)
		c.Revenue = floatPtr(revenue)
		c.LastFetched = timePtr(lastFetched)
		c.CreatedAt = time.Unix(cCreated, 0)
		c.UpdatedAt = time.Unix(cUpdated, 0)
		pc.Company = &c
		entries = append(entries, pc)
	}
	return entries, rows.Err()
}

// PortfolioStats summarizes an investor's holdings.
type PortfolioStats struct {
	TotalCompanies    int     `json:"totalCompanies"`
	ActiveInvestments int     `json:"activeInvestments"`
	Exits             int     `json:"exits"`
	TotalInvested     float64 `json:"totalInvested"`
}

// GetPortfolioStats computes holding counts and the invested total.
func (r *Repository) GetPortfolioStats(investorID string) (*PortfolioStats, error) {
	stats := &PortfolioStats{}
	err := r.db.QueryRow(`SELECT COUNT(*) FROM portfolio_companies WHERE investor_id = ?`,
		investorID).Scan(&stats.TotalCompanies)
	if err != nil {
		return nil, fmt.Errorf("failed to count portfolio: %w", err)
	}
	err = r.db.QueryRow(`SELECT
		COUNT(CASE WHEN status = 'ACTIVE' THEN 1 END),
		COUNT(CASE WHEN status IN ('EXITED', 'IPO') THEN 1 END),
		COALESCE(SUM(amount), 0)
		FROM investments WHERE investor_id = ?`, investorID).
		Scan(&stats.ActiveInvestments, &stats.Exits, &stats.TotalInvested)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate investments: %w", err)
	}
	return stats, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanInvestor(row rowScanner) (*domain.Investor, error) {
	var inv domain.Investor
	var invType, source string
	var foundedYear, teamSize sql.NullInt64
	var aum sql.NullFloat64
	var lastFetched sql.NullInt64
	var created, updated int64

	err := row.Scan(&inv.ID, &inv.Name, &inv.Slug, &invType, &inv.Description,
		&inv.Website, &inv.City, &inv.State, &inv.Country,
		&foundedYear, &aum, &teamSize,
		&inv.LinkedinURL, &inv.TwitterURL, &inv.LogoURL,
		&source, &inv.RawData, &lastFetched, &created, &updated)
	if err != nil {
		return nil, err
	}

	inv.Type = domain.InvestorType(invType)
	inv.DataSource = domain.DataSource(source)
	inv.FoundedYear = intPtr(foundedYear)
	inv.TeamSize = intPtr(teamSize)
	inv.AUM = floatPtr(aum)
	inv.LastFetched = timePtr(lastFetched)
	inv.CreatedAt = time.Unix(created, 0)
	inv.UpdatedAt = time.Unix(updated, 0)
	return &inv, nil
}

func scanInvestorRow(row *sql.Row) (*domain.Investor, error) {
	inv, err := scanInvestor(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan investor: %w", err)
	}
	return inv, nil
}

func nullInt(v *int) interface{} {
	if v == nil {
		return nil
	}
	return *v
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

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
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
