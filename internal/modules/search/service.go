// Package search provides cross-entity text search over investors and
// companies.
package search

import (
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"
)

// MinQueryLength is the minimum number of characters before a search runs.
const MinQueryLength = 2

// Result is one search hit.
type Result struct {
	Kind        string `json:"kind"` // "investor" or "company"
	ID          string `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description,omitempty"`
	Industry    string `json:"industry,omitempty"`
	Ticker      string `json:"ticker,omitempty"`
}

// Results groups hits per entity kind with a combined ranking.
type Results struct {
	Investors []Result `json:"investors"`
	Companies []Result `json:"companies"`
	Combined  []Result `json:"combined"`
}

// Service runs LIKE-based searches against the research database.
type Service struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewService creates a new search service.
func NewService(db *sql.DB, log zerolog.Logger) *Service {
	return &Service{
		db:  db,
		log: log.With().Str("service", "search").Logger(),
	}
}

// SearchInvestors matches investors on name or description.
func (s *Service) SearchInvestors(query string, limit int) ([]Result, error) {
	if tooShort(query) {
		return []Result{}, nil
	}
	limit = clamp(limit)
	pattern := "%" + query + "%"
	rows, err := s.db.Query(`SELECT id, name, slug, description
		FROM investors
		WHERE name LIKE ? COLLATE NOCASE OR description LIKE ? COLLATE NOCASE
		ORDER BY name LIMIT ?`, pattern, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search investors: %w", err)
	}
	defer rows.Close()

	results := []Result{}
	for rows.Next() {
		r := Result{Kind: "investor"}
		if err := rows.Scan(&r.ID, &r.Name, &r.Slug, &r.Description); err != nil {
			return nil, fmt.Errorf("failed to scan investor hit: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// SearchCompanies matches companies on name, description, ticker, or
// industry.
func (s *Service) SearchCompanies(query string, limit int) ([]Result, error) {
	if tooShort(query) {
		return []Result{}, nil
	}
	limit = clamp(limit)
	pattern := "%" + query + "%"
	rows, err := s.db.Query(`SELECT id, name, slug, description, industry, ticker
		FROM companies
		WHERE name LIKE ? COLLATE NOCASE OR description LIKE ? COLLATE NOCASE
			OR ticker LIKE ? COLLATE NOCASE OR industry LIKE ? COLLATE NOCASE
		ORDER BY name LIMIT ?`, pattern, pattern, pattern, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search companies: %w", err)
	}
	defer rows.Close()

	results := []Result{}
	for rows.Next() {
		r := Result{Kind: "company"}
		if err := rows.Scan(&r.ID, &r.Name, &r.Slug, &r.Description, &r.Industry, &r.Ticker); err != nil {
			return nil, fmt.Errorf("failed to scan company hit: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// Search runs both entity searches and builds a combined ranking: hits
// whose name starts with the query come first, then lexical order.
func (s *Service) Search(query string, limit int) (*Results, error) {
	if tooShort(query) {
		return &Results{Investors: []Result{}, Companies: []Result{}, Combined: []Result{}}, nil
	}
	limit = clamp(limit)

	investors, err := s.SearchInvestors(query, limit)
	if err != nil {
		return nil, err
	}
	companies, err := s.SearchCompanies(query, limit)
	if err != nil {
		return nil, err
	}

	combined := make([]Result, 0, len(investors)+len(companies))
	combined = append(combined, investors...)
	combined = append(combined, companies...)

	lower := strings.ToLower(query)
	sort.SliceStable(combined, func(i, j int) bool {
		iPrefix := strings.HasPrefix(strings.ToLower(combined[i].Name), lower)
		jPrefix := strings.HasPrefix(strings.ToLower(combined[j].Name), lower)
		if iPrefix != jPrefix {
			return iPrefix
		}
		return strings.ToLower(combined[i].Name) < strings.ToLower(combined[j].Name)
	})
	if len(combined) > limit {
		combined = combined[:limit]
	}

	return &Results{Investors: investors, Companies: companies, Combined: combined}, nil
}

func tooShort(query string) bool {
	return len(strings.TrimSpace(query)) < MinQueryLength
}

func clamp(limit int) int {
	if limit <= 0 || limit > 100 {
		return 20
	}
	return limit
}
