package opencorporates

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/atlasresearch/atlas/internal/cache"
	"github.com/atlasresearch/atlas/internal/clients/base"
	"github.com/atlasresearch/atlas/internal/ratelimit"
)

const (
	baseURL      = "https://api.opencorporates.com/v0.4"
	rateLimitKey = "opencorporates"

	// Registry records change very rarely.
	registryTTL = 30 * 24 * time.Hour
)

// Address is a registered company address.
type Address struct {
	StreetAddress string `json:"streetAddress"`
	Locality      string `json:"locality"`
	Region        string `json:"region"`
	PostalCode    string `json:"postalCode"`
	Country       string `json:"country"`
}

// Company is a corporate registry record.
type Company struct {
	Name               string   `json:"name"`
	CompanyNumber      string   `json:"companyNumber"`
	JurisdictionCode   string   `json:"jurisdictionCode"`
	IncorporationDate  string   `json:"incorporationDate"`
	DissolutionDate    string   `json:"dissolutionDate"`
	CompanyType        string   `json:"companyType"`
	CurrentStatus      string   `json:"currentStatus"`
	RegisteredAddress  *Address `json:"registeredAddress,omitempty"`
	AddressInFull      string   `json:"addressInFull"`
	OpenCorporatesURL  string   `json:"opencorporatesUrl"`
	PreviousNamesCount int      `json:"previousNamesCount"`
}

// Officer is a company director or officer.
type Officer struct {
	Name      string `json:"name"`
	Position  string `json:"position"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

type wireAddress struct {
	StreetAddress string `json:"street_address"`
	Locality      string `json:"locality"`
	Region        string `json:"region"`
	PostalCode    string `json:"postal_code"`
	Country       string `json:"country"`
}

type wireCompany struct {
	Name              string       `json:"name"`
	CompanyNumber     string       `json:"company_number"`
	JurisdictionCode  string       `json:"jurisdiction_code"`
	IncorporationDate string       `json:"incorporation_date"`
	DissolutionDate   string       `json:"dissolution_date"`
	CompanyType       string       `json:"company_type"`
	CurrentStatus     string       `json:"current_status"`
	RegisteredAddress *wireAddress `json:"registered_address"`
	AddressInFull     string       `json:"registered_address_in_full"`
	OpenCorporatesURL string       `json:"opencorporates_url"`
	PreviousNames     []struct {
		CompanyName string `json:"company_name"`
	} `json:"previous_names"`
	Officers []struct {
		Officer struct {
			Name      string `json:"name"`
			Position  string `json:"position"`
			StartDate string `json:"start_date"`
			EndDate   string `json:"end_date"`
		} `json:"officer"`
	} `json:"officers"`
}

type searchResponse struct {
	Results struct {
		Companies []struct {
			Company wireCompany `json:"company"`
		} `json:"companies"`
		TotalCount int `json:"total_count"`
	} `json:"results"`
}

type companyResponse struct {
	Results struct {
		Company wireCompany `json:"company"`
	} `json:"results"`
}

// Client talks to the OpenCorporates registry API. The rate budget depends
// on whether an API token is configured: 60 requests per minute with one,
// 5 per minute anonymously.
type Client struct {
	http   *base.Client
	apiKey string
	log    zerolog.Logger
}

// New builds an OpenCorporates client. apiKey may be empty.
func New(apiKey string, store cache.Store, limiter *ratelimit.Limiter, log zerolog.Logger) *Client {
	maxRequests := 5
	if apiKey != "" {
		maxRequests = 60
	}
	cfg := base.Config{
		BaseURL: baseURL,
		Headers: map[string]string{
			"Accept": "application/json",
		},
		RateLimitKey:    rateLimitKey,
		RateLimitMax:    maxRequests,
		RateLimitWindow: time.Minute,
		CacheTTL:        registryTTL,
	}
	return &Client{
		http:   base.New("opencorporates", cfg, store, limiter, log),
		apiKey: apiKey,
		log:    log.With().Str("client", "opencorporates").Logger(),
	}
}

// SearchCompanies looks up registry records by name, optionally restricted
// to one jurisdiction, returning at most ten matches.
func (c *Client) SearchCompanies(ctx context.Context, q, jurisdiction string) ([]Company, error) {
	query := url.Values{"q": {q}, "per_page": {"10"}}
	if jurisdiction != "" {
		query.Set("jurisdiction_code", jurisdiction)
	}
	c.auth(query)

	var resp searchResponse
	err := c.http.GetJSON(ctx, "/companies/search", query, base.RequestOptions{
		CacheKey: base.CacheKey("oc:search", map[string]string{
			"q": q, "jurisdiction": jurisdiction,
		}),
	}, &resp)
	if err != nil {
		if base.IsNotFound(err) {
			return []Company{}, nil
		}
		return nil, fmt.Errorf("searching companies for %q: %w", q, err)
	}

	companies := make([]Company, 0, len(resp.Results.Companies))
	for _, entry := range resp.Results.Companies {
		companies = append(companies, mapCompany(entry.Company))
	}
	return companies, nil
}

// GetCompany fetches one registry record. Returns nil without error when
// the record does not exist.
func (c *Client) GetCompany(ctx context.Context, jurisdiction, number string) (*Company, error) {
	wire, err := c.fetchCompany(ctx, jurisdiction, number)
	if err != nil || wire == nil {
		return nil, err
	}
	company := mapCompany(*wire)
	return &company, nil
}

// GetOfficers returns the directors and officers recorded for a company.
func (c *Client) GetOfficers(ctx context.Context, jurisdiction, number string) ([]Officer, error) {
	wire, err := c.fetchCompany(ctx, jurisdiction, number)
	if err != nil {
		return nil, err
	}
	if wire == nil {
		return []Officer{}, nil
	}
	officers := make([]Officer, 0, len(wire.Officers))
	for _, entry := range wire.Officers {
		officers = append(officers, Officer{
			Name:      entry.Officer.Name,
			Position:  entry.Officer.Position,
			StartDate: entry.Officer.StartDate,
			EndDate:   entry.Officer.EndDate,
		})
	}
	return officers, nil
}

func (c *Client) fetchCompany(ctx context.Context, jurisdiction, number string) (*wireCompany, error) {
	query := url.Values{}
	c.auth(query)

	path := fmt.Sprintf("/companies/%s/%s", url.PathEscape(jurisdiction), url.PathEscape(number))
	var resp companyResponse
	err := c.http.GetJSON(ctx, path, query, base.RequestOptions{
		CacheKey: base.CacheKey("oc:company", map[string]string{
			"jurisdiction": jurisdiction, "number": number,
		}),
	}, &resp)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetching company %s/%s: %w", jurisdiction, number, err)
	}
	return &resp.Results.Company, nil
}

func (c *Client) auth(query url.Values) {
	if c.apiKey != "" {
		query.Set("api_token", c.apiKey)
	}
}

func mapCompany(w wireCompany) Company {
	company := Company{
		Name:               w.Name,
		CompanyNumber:      w.CompanyNumber,
		JurisdictionCode:   w.JurisdictionCode,
		IncorporationDate:  w.IncorporationDate,
		DissolutionDate:    w.DissolutionDate,
		CompanyType:        w.CompanyType,
		CurrentStatus:      w.CurrentStatus,
		AddressInFull:      w.AddressInFull,
		OpenCorporatesURL:  w.OpenCorporatesURL,
		PreviousNamesCount: len(w.PreviousNames),
	}
	if w.RegisteredAddress != nil {
		company.RegisteredAddress = &Address{
			StreetAddress: w.RegisteredAddress.StreetAddress,
			Locality:      w.RegisteredAddress.Locality,
			Region:        w.RegisteredAddress.Region,
			PostalCode:    w.RegisteredAddress.PostalCode,
			Country:       w.RegisteredAddress.Country,
		}
	}
	return company
}
