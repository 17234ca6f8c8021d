package companies

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/atlasresearch/atlas/internal/domain"
)

const companyColumns = `id, name, slug, type, stage, description, website, headquarters,
	city, state, country, industry, sector, founded_year, employee_count,
	ticker, exchange, cik, market_cap, revenue,
	linkedin_url, twitter_url, logo_url, data_source, raw_data,
	last_fetched, created_at, updated_at`

// ListFilter narrows company listings.
type ListFilter struct {
	Type     domain.CompanyType
	Industry string
	Country  string
	Limit    int
	Offset   int
}

// Repository handles company database operations.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new company repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "companies").Logger(),
	}
}

// Create inserts a company record.
func (r *Repository) Create(c *domain.Company) error {
	_, err := r.db.Exec(`INSERT INTO companies (`+companyColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Slug, string(c.Type), c.Stage, c.Description, c.Website,
		c.Headquarters, c.City, c.State, c.Country, c.Industry, c.Sector,
		nullInt(c.FoundedYear), nullInt(c.EmployeeCount),
		c.Ticker, c.Exchange, c.CIK, nullFloat(c.MarketCap), nullFloat(c.Revenue),
		c.LinkedinURL, c.TwitterURL, c.LogoURL, string(c.DataSource), c.RawData,
		nullTime(c.LastFetched), c.CreatedAt.Unix(), c.UpdatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to insert company: %w", err)
	}
	return nil
}

// GetByID returns one company or domain.ErrNotFound.
func (r *Repository) GetByID(id string) (*domain.Company, error) {
	row := r.db.QueryRow(`SELECT `+companyColumns+` FROM companies WHERE id = ?`, id)
	return scanCompanyRow(row)
}

// GetBySlug returns one company or domain.ErrNotFound.
func (r *Repository) GetBySlug(slug string) (*domain.Company, error) {
	row := r.db.QueryRow(`SELECT `+companyColumns+` FROM companies WHERE slug = ?`, slug)
	return scanCompanyRow(row)
}

// GetByTicker returns one company by ticker symbol or domain.ErrNotFound.
func (r *Repository) GetByTicker(ticker string) (*domain.Company, error) {
	row := r.db.QueryRow(`SELECT `+companyColumns+` FROM companies
		WHERE ticker = ? COLLATE NOCASE LIMIT 1`, ticker)
	return scanCompanyRow(row)
}

// GetByName returns the first company whose name contains the fragment,
// case-insensitively, or domain.ErrNotFound.
func (r *Repository) GetByName(name string) (*domain.Company, error) {
	row := r.db.QueryRow(`SELECT `+companyColumns+` FROM companies
		WHERE name LIKE ? COLLATE NOCASE ORDER BY name LIMIT 1`, "%"+name+"%")
	return scanCompanyRow(row)
}

// GetByNameOrWebsite matches an exact name or website, used to dedupe
// scraped companies. Returns domain.ErrNotFound when neither matches.
func (r *Repository) GetByNameOrWebsite(name, website string) (*domain.Company, error) {
	query := `SELECT ` + companyColumns + ` FROM companies WHERE name = ? COLLATE NOCASE`
	args := []interface{}{name}
	if website != "" {
		query += ` OR website = ?`
		args = append(args, website)
	}
	query += ` LIMIT 1`
	row := r.db.QueryRow(query, args...)
	return scanCompanyRow(row)
}

// List returns companies ordered by name, optionally filtered.
func (r *Repository) List(filter ListFilter) ([]domain.Company, error) {
	query := `SELECT ` + companyColumns + ` FROM companies`
	var conds []string
	var args []interface{}
	if filter.Type != "" {
		conds = append(conds, "type = ?")
		args = append(args, string(filter.Type))
	}
	if filter.Industry != "" {
		conds = append(conds, "industry = ?")
		args = append(args, filter.Industry)
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
		return nil, fmt.Errorf("failed to query companies: %w", err)
	}
	defer rows.Close()

	var companies []domain.Company
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan company: %w", err)
		}
		companies = append(companies, *c)
	}
	return companies, rows.Err()
}

// Count returns the total number of companies.
func (r *Repository) Count() (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM companies`).Scan(&n)
	return n, err
}

// Update rewrites all mutable fields of a company.
func (r *Repository) Update(c *domain.Company) error {
	res, err := r.db.Exec(`UPDATE companies SET
		name = ?, slug = ?, type = ?, stage = ?, description = ?, website = ?,
		headquarters = ?, city = ?, state = ?, country = ?, industry = ?, sector = ?,
		founded_year = ?, employee_count = ?, ticker = ?, exchange = ?, cik = ?,
		market_cap = ?, revenue = ?, linkedin_url = ?, twitter_url = ?, logo_url = ?,
		data_source = ?, raw_data = ?, last_fetched = ?, updated_at = ?
		WHERE id = ?`,
		c.Name, c.Slug, string(c.Type), c.Stage, c.Description, c.Website,
		c.Headquarters, c.City, c.State, c.Country, c.Industry, c.Sector,
		nullInt(c.FoundedYear), nullInt(c.EmployeeCount), c.Ticker, c.Exchange, c.CIK,
		nullFloat(c.MarketCap), nullFloat(c.Revenue), c.LinkedinURL, c.TwitterURL, c.LogoURL,
		string(c.DataSource), c.RawData, nullTime(c.LastFetched), c.UpdatedAt.Unix(),
		c.ID)
	if err != nil {
		return fmt.Errorf("failed to update company: %w", err)
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

// Delete removes a company. Investments and portfolio links cascade.
func (r *Repository) Delete(id string) error {
	res, err := r.db.Exec(`DELETE FROM companies WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete company: %w", err)
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

// GetStale returns companies whose provider data is older than maxAge or
// was never fetched at all, oldest first.
func (r *Repository) GetStale(maxAge time.Duration, limit int) ([]domain.Company, error) {
	cutoff := time.Now().Add(-maxAge).Unix()
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(`SELECT `+companyColumns+` FROM companies
		WHERE last_fetched IS NULL OR last_fetched < ?
		ORDER BY last_fetched ASC LIMIT ?`, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query stale companies: %w", err)
	}
	defer rows.Close()

	var companies []domain.Company
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan company: %w", err)
		}
		companies = append(companies, *c)
	}
	return companies, rows.Err()
}

// GetFundingRounds returns a company's funding rounds, newest first.
func (r *Repository) GetFundingRounds(companyID string) ([]domain.FundingRound, error) {
	rows, err := r.db.Query(`SELECT id, company_id, round_type, amount, valuation,
		currency, announced_at, source, created_at
		FROM funding_rounds WHERE company_id = ?
		ORDER BY announced_at DESC`, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query funding rounds: %w", err)
	}
	defer rows.Close()

	var rounds []domain.FundingRound
	for rows.Next() {
		var fr domain.FundingRound
		var amount, valuation sql.NullFloat64
		var announced sql.NullInt64
		var created int64
		err := rows.Scan(&fr.ID, &fr.CompanyID, &fr.RoundType, &amount, &valuation,
			&fr.Currency, &announced, &fr.Source, &created)
		if err != nil {
			return nil, fmt.Errorf("failed to scan funding round: %w", err)
		}
		fr.Amount = floatPtr(amount)
		fr.Valuation = floatPtr(valuation)
		fr.AnnouncedAt = timePtr(announced)
		fr.CreatedAt = time.Unix(created, 0)
		rounds = append(rounds, fr)
	}
	return rounds, rows.Err()
}

// AddFundingRound inserts a funding round record.
func (r *Repository) AddFundingRound(fr *domain.FundingRound) error {
	_, err := r.db.Exec(`INSERT INTO funding_rounds
		(id, company_id, round_type, amount, valuation, currency, announced_at, source, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		fr.ID, fr.CompanyID, fr.RoundType, nullFloat(fr.Amount), nullFloat(fr.Valuation),
		fr.Currency, nullTime(fr.AnnouncedAt), fr.Source, fr.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to insert funding round: %w", err)
	}
	return nil
}

// UpsertMarketSnapshot writes a daily market data row, replacing an
// existing snapshot for the same company and day.
func (r *Repository) UpsertMarketSnapshot(md *domain.MarketData) error {
	var volume interface{}
	if md.Volume != nil {
		volume = *md.Volume
	}
	_, err := r.db.Exec(`INSERT INTO market_data
		(id, company_id, date, open, high, low, close, volume, market_cap)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(company_id, date) DO UPDATE SET
			open = excluded.open, high = excluded.high, low = excluded.low,
			close = excluded.close, volume = excluded.volume,
			market_cap = excluded.market_cap`,
		md.ID, md.CompanyID, md.Date.Unix(),
		nullFloat(md.Open), nullFloat(md.High), nullFloat(md.Low), nullFloat(md.Close),
		volume, nullFloat(md.MarketCap))
	if err != nil {
		return fmt.Errorf("failed to upsert market snapshot: %w", err)
	}
	return nil
}

// GetInvestors returns the investments into a company with investor
// records attached, most recent first.
func (r *Repository) GetInvestors(companyID string) ([]domain.Investment, error) {
	rows, err := r.db.Query(`SELECT
		i.id, i.investor_id, i.company_id, i.amount, i.stage, i.status,
		i.invested_at, i.exited_at, i.lead_investor, i.ownership, i.notes,
		i.data_source, i.created_at, i.updated_at,
		inv.id, inv.name, inv.slug, inv.type, inv.description, inv.website,
		inv.city, inv.state, inv.country, inv.founded_year, inv.aum, inv.team_size,
		inv.linkedin_url, inv.twitter_url, inv.logo_url, inv.data_source,
		inv.raw_data, inv.last_fetched, inv.created_at, inv.updated_at
		FROM investments i
		JOIN investors inv ON inv.id = i.investor_id
		WHERE i.company_id = ?
		ORDER BY i.invested_at DESC`, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query company investors: %w", err)
	}
	defer rows.Close()

	var investments []domain.Investment
	for rows.Next() {
		var inv domain.Investment
		var stage, status, invSource string
		var amount, ownership sql.NullFloat64
		var investedAt, exitedAt sql.NullInt64
		var lead int
		var created, updated int64

		var investor domain.Investor
		var invType, investorSource string
		var foundedYear, teamSize sql.NullInt64
		var aum sql.NullFloat64
		var lastFetched sql.NullInt64
		var invCreated, invUpdated int64

		err := rows.Scan(&inv.ID, &inv.InvestorID, &inv.CompanyID, &amount, &stage, &status,
			&investedAt, &exitedAt, &lead, &ownership, &inv.Notes,
			&invSource, &created, &updated,
			&investor.ID, &investor.Name, &investor.Slug, &invType, &investor.Description,
			&investor.Website, &investor.City, &investor.State, &investor.Country,
			&foundedYear, &aum, &teamSize,
			&investor.LinkedinURL, &investor.TwitterURL, &investor.LogoURL, &investorSource,
			&investor.RawData, &lastFetched, &invCreated, &invUpdated)
		if err != nil {
			return nil, fmt.Errorf("failed to scan company investor: %w", err)
		}

		inv.Amount = floatPtr(amount)
		inv.Stage = domain.InvestmentStage(stage)
		inv.Status = domain.InvestmentStatus(status)
		inv.InvestedAt = timePtr(investedAt)
		inv.ExitedAt = timePtr(exitedAt)
		inv.LeadInvestor = lead != 0
		inv.Ownership = floatPtr(ownership)
		inv.DataSource = domain.DataSource(invSource)
		inv.CreatedAt = time.Unix(created, 0)
		inv.UpdatedAt = time.Unix(updated, 0)

		investor.Type = domain.InvestorType(invType)
		investor.DataSource = domain.DataSource(investorSource)
		investor.FoundedYear = intPtr(foundedYear)
		investor.TeamSize = intPtr(teamSize)
		investor.AUM = floatPtr(aum)
		investor.LastFetched = timePtr(lastFetched)
		investor.CreatedAt = time.Unix(invCreated, 0)
		investor.UpdatedAt = time.Unix(invUpdated, 0)
		inv.Investor = &investor

		investments = append(investments, inv)
	}
	return investments, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCompany(row rowScanner) (*domain.Company, error) {
	var c domain.Company
	var cType, source string
	var foundedYear, employeeCount sql.NullInt64
	var marketCap, revenue sql.NullFloat64
	var lastFetched sql.NullInt64
	var created, updated int64

	err := row.Scan(&c.ID, &c.Name, &c.Slug, &cType, &c.Stage, &c.Description,
		&c.Website, &c.Headquarters, &c.City, &c.State, &c.Country,
		&c.Industry, &c.Sector, &foundedYear, &employeeCount,
		&c.Ticker, &c.Exchange, &c.CIK, &marketCap, &revenue,
		&c.LinkedinURL, &c.TwitterURL, &c.LogoURL, &source, &c.RawData,
		&lastFetched, &created, &updated)
	if err != nil {
		return nil, err
	}

	c.Type = domain.CompanyType(cType)
	c.DataSource = domain.DataSource(source)
	c.FoundedYear = intPtr(foundedYear)
	c.EmployeeCount = intPtr(employeeCount)
	c.MarketCap = floatPtr(marketCap)
	c.Revenue = floatPtr(revenue)
	c.LastFetched = timePtr(lastFetched)
	c.CreatedAt = time.Unix(created, 0)
	c.UpdatedAt = time.Unix(updated, 0)
	return &c, nil
}

func scanCompanyRow(row *sql.Row) (*domain.Company, error) {
	c, err := scanCompany(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan company: %w", err)
	}
	return c, nil
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
