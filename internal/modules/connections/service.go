// Package connections builds and queries the co-investment graph. Two
// investors are connected when their portfolios share at least one company;
// the edge strength is the number of shared companies.
package connections

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"github.com/atlasresearch/atlas/internal/domain"
)

// RelationshipSharedInvestors marks company-to-company edges derived from
// overlapping investor bases.
const RelationshipSharedInvestors = "SHARED_INVESTORS"

// CompanyRef is a compact company reference attached to graph edges.
type CompanyRef struct {
	ID       string             `json:"id"`
	Name     string             `json:"name"`
	Slug     string             `json:"slug"`
	Type     domain.CompanyType `json:"type"`
	Industry string             `json:"industry,omitempty"`
}

// ConnectedInvestor is one edge in an investor's network with the related
// investor and the shared companies resolved.
type ConnectedInvestor struct {
	Investor        *domain.Investor `json:"investor"`
	Strength        int              `json:"strength"`
	SharedCompanies []CompanyRef     `json:"sharedCompanies"`
}

// RelatedCompany is a company linked to another through shared investors.
type RelatedCompany struct {
	CompanyID       string             `json:"companyId"`
	Name            string             `json:"name"`
	Slug            string             `json:"slug"`
	Type            domain.CompanyType `json:"type"`
	Industry        string             `json:"industry,omitempty"`
	Relationship    string             `json:"relationship"`
	SharedInvestors int                `json:"sharedInvestors"`
}

// CoInvestorCandidate is an investor connected to a company's current
// backers, scored by the summed strength of those connections.
type CoInvestorCandidate struct {
	InvestorID         string              `json:"investorId"`
	Name               string              `json:"name"`
	Slug               string              `json:"slug"`
	Type               domain.InvestorType `json:"type"`
	Score              int                 `json:"score"`
	ConnectedInvestors int                 `json:"connectedInvestors"`
}

// NetworkStats summarizes the state of the connection graph.
type NetworkStats struct {
	TotalConnections   int                 `json:"totalConnections"`
	InvestorCount      int                 `json:"investorCount"`
	AverageConnections float64             `json:"averageConnections"`
	MostConnected      []InvestorDegree    `json:"mostConnected"`
	Strongest          []ConnectionSummary `json:"strongest"`
}

// Service provides co-investment graph operations.
type Service struct {
	repo *Repository
	log  zerolog.Logger
}

// NewService creates a new connection service.
func NewService(repo *Repository, log zerolog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log.With().Str("service", "connections").Logger(),
	}
}

// DiscoverConnections recomputes the whole graph from portfolio holdings.
// Every investor pair with overlapping portfolios gets a symmetric pair of
// directed edges. Returns the number of connected pairs.
func (s *Service) DiscoverConnections() (int, error) {
	sets, err := s.repo.PortfolioSets()
	if err != nil {
		return 0, err
	}

	ids := make([]string, 0, len(sets))
	for id := range sets {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	now := time.Now()
	pairs := 0
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			shared := intersect(sets[ids[i]], sets[ids[j]])
			if len(shared) == 0 {
				continue
			}
			if err := s.upsertPair(ids[i], ids[j], shared, now); err != nil {
				return pairs, err
			}
			pairs++
		}
	}

	s.log.Info().Int("investors", len(ids)).Int("pairs", pairs).Msg("Connection discovery complete")
	return pairs, nil
}

func (s *Service) upsertPair(a, b string, shared []string, now time.Time) error {
	for _, edge := range [][2]string{{a, b}, {b, a}} {
		conn := &domain.InvestorConnection{
			ID:                uuid.NewString(),
			InvestorID:        edge[0],
			RelatedInvestorID: edge[1],
			Strength:          len(shared),
			SharedCompanies:   shared,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		if err := s.repo.Upsert(conn); err != nil {
			return err
		}
	}
	return nil
}

// GetInvestorNetwork returns an investor's direct connections, strongest
// first, with related investors and shared companies resolved.
func (s *Service) GetInvestorNetwork(investorID string, minStrength int) ([]ConnectedInvestor, error) {
	if minStrength < 1 {
		minStrength = 1
	}

	edges, err := s.repo.ListForInvestor(investorID, minStrength)
	if err != nil {
		return nil, err
	}

	relatedIDs := make([]string, 0, len(edges))
	companyIDSet := make(map[string]struct{})
	for _, e := range edges {
		relatedIDs = append(relatedIDs, e.RelatedInvestorID)
		for _, cid := range e.SharedCompanies {
			companyIDSet[cid] = struct{}{}
		}
	}

	investors, err := s.repo.InvestorsByIDs(relatedIDs)
	if err != nil {
		return nil, err
	}
	companies, err := s.repo.CompaniesByIDs(keys(companyIDSet))
	if err != nil {
		return nil, err
	}

	network := make([]ConnectedInvestor, 0, len(edges))
	for _, e := range edges {
		inv, ok := investors[e.RelatedInvestorID]
		if !ok {
			continue
		}
		refs := make([]CompanyRef, 0, len(e.SharedCompanies))
		for _, cid := range e.SharedCompanies {
			if ref, ok := companies[cid]; ok {
				refs = append(refs, ref)
			}
		}
		network = append(network, ConnectedInvestor{
			Investor:        inv,
			Strength:        e.Strength,
			SharedCompanies: refs,
		})
	}
	return network, nil
}

// GetCompanyNetwork returns companies related to the given company through
// shared investors, most shared first.
func (s *Service) GetCompanyNetwork(companyID string, limit int) ([]RelatedCompany, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	related, err := s.repo.RelatedCompanies(companyID, limit)
	if err != nil {
		return nil, err
	}
	if related == nil {
		related = []RelatedCompany{}
	}
	return related, nil
}

// GetNetworkStats returns aggregate graph statistics.
func (s *Service) GetNetworkStats() (*NetworkStats, error) {
	edges, err := s.repo.CountEdges()
	if err != nil {
		return nil, err
	}
	investorCount, err := s.repo.InvestorCount()
	if err != nil {
		return nil, err
	}
	degreeCounts, err := s.repo.DegreeCounts()
	if err != nil {
		return nil, err
	}
	mostConnected, err := s.repo.TopConnected(10)
	if err != nil {
		return nil, err
	}
	strongest, err := s.repo.Strongest(5)
	if err != nil {
		return nil, err
	}

	stats := &NetworkStats{
		TotalConnections: edges / 2,
		InvestorCount:    investorCount,
		MostConnected:    mostConnected,
		Strongest:        strongest,
	}
	if investorCount > 0 {
		// Average over every investor, including the unconnected ones.
		degrees := make([]float64, 0, investorCount)
		for _, n := range degreeCounts {
			degrees = append(degrees, float64(n))
		}
		for len(degrees) < investorCount {
			degrees = append(degrees, 0)
		}
		stats.AverageConnections = stat.Mean(degrees, nil)
	}
	if stats.MostConnected == nil {
		stats.MostConnected = []InvestorDegree{}
	}
	if stats.Strongest == nil {
		stats.Strongest = []ConnectionSummary{}
	}
	return stats, nil
}

// FindPotentialCoInvestors suggests investors for a company: investors
// connected to its current backers that do not yet hold the company.
func (s *Service) FindPotentialCoInvestors(companyID string, limit int) ([]CoInvestorCandidate, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	candidates, err := s.repo.PotentialCoInvestors(companyID, limit)
	if err != nil {
		return nil, err
	}
	if candidates == nil {
		candidates = []CoInvestorCandidate{}
	}
	return candidates, nil
}

func intersect(a, b []string) []string {
	set := make(map[string]struct{}, len(a))
	for _, v := range a {
		set[v] = struct{}{}
	}
	var shared []string
	for _, v := range b {
		if _, ok := set[v]; ok {
			shared = append(shared, v)
		}
	}
	sort.Strings(shared)
	return shared
}

func keys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	return out
}
