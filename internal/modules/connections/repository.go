package connections

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/atlasresearch/atlas/internal/domain"
)

// InvestorDegree is an investor with its connection count.
type InvestorDegree struct {
	InvestorID  string `json:"investorId"`
	Name        string `json:"name"`
	Connections int    `json:"connections"`
}

// ConnectionSummary is one undirected edge with both investor names resolved.
type ConnectionSummary struct {
	InvestorID          string `json:"investorId"`
	InvestorName        string `json:"investorName"`
	RelatedInvestorID   string `json:"relatedInvestorId"`
	RelatedInvestorName string `json:"relatedInvestorName"`
	Strength            int    `json:"strength"`
}

// Repository handles connection graph database operations.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new connection repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "connections").Logger(),
	}
}

// Upsert writes one directed edge, replacing strength and shared companies
// if the edge already exists.
func (r *Repository) Upsert(conn *domain.InvestorConnection) error {
	shared := conn.SharedCompanies
	if shared == nil {
		shared = []string{}
	}
	encoded, err := json.Marshal(shared)
	if err != nil {
		return fmt.Errorf("failed to encode shared companies: %w", err)
	}

	_, err = r.db.Exec(`INSERT INTO investor_connections
		(id, investor_id, related_investor_id, strength, shared_companies, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(investor_id, related_investor_id) DO UPDATE SET
			strength = excluded.strength,
			shared_companies = excluded.shared_companies,
			updated_at = excluded.updated_at`,
		conn.ID, conn.InvestorID, conn.RelatedInvestorID, conn.Strength, string(encoded),
		conn.CreatedAt.Unix(), conn.UpdatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to upsert connection: %w", err)
	}
	return nil
}

// PortfolioSets returns every investor's set of held company IDs.
func (r *Repository) PortfolioSets() (map[string][]string, error) {
	rows, err := r.db.Query(`SELECT investor_id, company_id FROM portfolio_companies
		ORDER BY investor_id, company_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query portfolios: %w", err)
	}
	defer rows.Close()

	sets := make(map[string][]string)
	for rows.Next() {
		var investorID, companyID string
		if err := rows.Scan(&investorID, &companyID); err != nil {
			return nil, fmt.Errorf("failed to scan portfolio row: %w", err)
		}
		sets[investorID] = append(sets[investorID], companyID)
	}
	return sets, rows.Err()
}

// ListForInvestor returns an investor's outgoing edges at or above the given
// strength, strongest first.
func (r *Repository) ListForInvestor(investorID string, minStrength int) ([]domain.InvestorConnection, error) {
	rows, err := r.db.Query(`SELECT id, investor_id, related_investor_id, strength,
		shared_companies, created_at, updated_at
		FROM investor_connections
		WHERE investor_id = ? AND strength >= ?
		ORDER BY strength DESC, related_investor_id`, investorID, minStrength)
	if err != nil {
		return nil, fmt.Errorf("failed to query connections: %w", err)
	}
	defer rows.Close()

	var conns []domain.InvestorConnection
	for rows.Next() {
		var c domain.InvestorConnection
		var shared string
		var createdAt, updatedAt int64
		if err := rows.Scan(&c.ID, &c.InvestorID, &c.RelatedInvestorID, &c.Strength,
			&shared, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan connection: %w", err)
		}
		if err := json.Unmarshal([]byte(shared), &c.SharedCompanies); err != nil {
			return nil, fmt.Errorf("failed to decode shared companies: %w", err)
		}
		c.CreatedAt = time.Unix(createdAt, 0)
		c.UpdatedAt = time.Unix(updatedAt, 0)
		conns = append(conns, c)
	}
	return conns, rows.Err()
}

// CountEdges returns the number of directed edges in the graph.
func (r *Repository) CountEdges() (int, error) {
	var n int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM investor_connections`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count connections: %w", err)
	}
	return n, nil
}

// InvestorCount returns the number of investors on file.
func (r *Repository) InvestorCount() (int, error) {
	var n int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM investors`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count investors: %w", err)
	}
	return n, nil
}

// DegreeCounts returns the number of connections per investor.
func (r *Repository) DegreeCounts() (map[string]int, error) {
	rows, err := r.db.Query(`SELECT investor_id, COUNT(*) FROM investor_connections
		GROUP BY investor_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query degrees: %w", err)
	}
	defer rows.Close()

	degrees := make(map[string]int)
	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("failed to scan degree row: %w", err)
		}
		degrees[id] = n
	}
	return degrees, rows.Err()
}

// TopConnected returns the investors with the most connections.
func (r *Repository) TopConnected(limit int) ([]InvestorDegree, error) {
	rows, err := r.db.Query(`SELECT ic.investor_id, i.name, COUNT(*) AS degree
		FROM investor_connections ic
		JOIN investors i ON i.id = ic.investor_id
		GROUP BY ic.investor_id
		ORDER BY degree DESC, i.name
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top connected: %w", err)
	}
	defer rows.Close()

	var top []InvestorDegree
	for rows.Next() {
		var d InvestorDegree
		if err := rows.Scan(&d.InvestorID, &d.Name, &d.Connections); err != nil {
			return nil, fmt.Errorf("failed to scan degree: %w", err)
		}
		top = append(top, d)
	}
	return top, rows.Err()
}

// Strongest returns the highest-strength undirected edges. Each symmetric
// pair is reported once.
func (r *Repository) Strongest(limit int) ([]ConnectionSummary, error) {
	rows, err := r.db.Query(`SELECT ic.investor_id, a.name, ic.related_investor_id, b.name, ic.strength
		FROM investor_connections ic
		JOIN investors a ON a.id = ic.investor_id
		JOIN investors b ON b.id = ic.related_investor_id
		WHERE ic.investor_id < ic.related_investor_id
		ORDER BY ic.strength DESC, a.name
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query strongest connections: %w", err)
	}
	defer rows.Close()

	var strongest []ConnectionSummary
	for rows.Next() {
		var c ConnectionSummary
		if err := rows.Scan(&c.InvestorID, &c.InvestorName, &c.RelatedInvestorID,
			&c.RelatedInvestorName, &c.Strength); err != nil {
			return nil, fmt.Errorf("failed to scan connection summary: %w", err)
		}
		strongest = append(strongest, c)
	}
	return strongest, rows.Err()
}

// RelatedCompanies returns companies that share at least one investor with
// the given company, most shared investors first.
func (r *Repository) RelatedCompanies(companyID string, limit int) ([]RelatedCompany, error) {
	rows, err := r.db.Query(`SELECT c.id, c.name, c.slug, c.type, c.industry,
		COUNT(DISTINCT pc.investor_id) AS shared
		FROM portfolio_companies pc
		JOIN companies c ON c.id = pc.company_id
		WHERE pc.investor_id IN (
			SELECT investor_id FROM portfolio_companies WHERE company_id = ?)
		AND pc.company_id != ?
		GROUP BY pc.company_id
		ORDER BY shared DESC, c.name
		LIMIT ?`, companyID, companyID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query related companies: %w", err)
	}
	defer rows.Close()

	var related []RelatedCompany
	for rows.Next() {
		var rc RelatedCompany
		var companyType string
		if err := rows.Scan(&rc.CompanyID, &rc.Name, &rc.Slug, &companyType,
			&rc.Industry, &rc.SharedInvestors); err != nil {
			return nil, fmt.Errorf("failed to scan related company: %w", err)
		}
		rc.Type = domain.CompanyType(companyType)
		rc.Relationship = RelationshipSharedInvestors
		related = append(related, rc)
	}
	return related, rows.Err()
}

// PotentialCoInvestors returns investors connected to a company's current
// backers but not themselves in the company's portfolio, ranked by the
// summed strength of those connections.
func (r *Repository) PotentialCoInvestors(companyID string, limit int) ([]CoInvestorCandidate, error) {
	rows, err := r.db.Query(`SELECT i.id, i.name, i.slug, i.type,
		SUM(ic.strength) AS score, COUNT(DISTINCT ic.investor_id) AS backers
		FROM investor_connections ic
		JOIN investors i ON i.id = ic.related_investor_id
		WHERE ic.investor_id IN (
			SELECT investor_id FROM portfolio_companies WHERE company_id = ?)
		AND ic.related_investor_id NOT IN (
			SELECT investor_id FROM portfolio_companies WHERE company_id = ?)
		GROUP BY ic.related_investor_id
		ORDER BY score DESC, i.name
		LIMIT ?`, companyID, companyID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query potential co-investors: %w", err)
	}
	defer rows.Close()

	var candidates []CoInvestorCandidate
	for rows.Next() {
		var c CoInvestorCandidate
		var investorType string
		if err := rows.Scan(&c.InvestorID, &c.Name, &c.Slug, &investorType,
			&c.Score, &c.ConnectedInvestors); err != nil {
			return nil, fmt.Errorf("failed to scan co-investor candidate: %w", err)
		}
		c.Type = domain.InvestorType(investorType)
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}

// InvestorsByIDs resolves investor summaries for a set of IDs.
func (r *Repository) InvestorsByIDs(ids []string) (map[string]*domain.Investor, error) {
	investors := make(map[string]*domain.Investor)
	if len(ids) == 0 {
		return investors, nil
	}

	rows, err := r.db.Query(`SELECT id, name, slug, type, description FROM investors
		WHERE id IN (`+placeholders(len(ids))+`)`, toArgs(ids)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query investors: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var inv domain.Investor
		var investorType string
		if err := rows.Scan(&inv.ID, &inv.Name, &inv.Slug, &investorType, &inv.Description); err != nil {
			return nil, fmt.Errorf("failed to scan investor: %w", err)
		}
		inv.Type = domain.InvestorType(investorType)
		investors[inv.ID] = &inv
	}
	return investors, rows.Err()
}

// CompaniesByIDs resolves company summaries for a set of IDs.
func (r *Repository) CompaniesByIDs(ids []string) (map[string]CompanyRef, error) {
	companies := make(map[string]CompanyRef)
	if len(ids) == 0 {
		return companies, nil
	}

	rows, err := r.db.Query(`SELECT id, name, slug, type, industry FROM companies
		WHERE id IN (`+placeholders(len(ids))+`)`, toArgs(ids)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query companies: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ref CompanyRef
		var companyType string
		if err := rows.Scan(&ref.ID, &ref.Name, &ref.Slug, &companyType, &ref.Industry); err != nil {
			return nil, fmt.Errorf("failed to scan company: %w", err)
		}
		ref.Type = domain.CompanyType(companyType)
		companies[ref.ID] = ref
	}
	return companies, rows.Err()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func toArgs(ids []string) []interface{} {
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
