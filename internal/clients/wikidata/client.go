package wikidata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/atlasresearch/atlas/internal/cache"
	"github.com/atlasresearch/atlas/internal/clients/base"
	"github.com/atlasresearch/atlas/internal/ratelimit"
)

const (
	baseURL      = "https://www.wikidata.org"
	rateLimitKey = "wikidata"

	entityTTL = 30 * 24 * time.Hour
)

// Wikidata property identifiers for company facts.
const (
	propWebsite      = "P856"
	propInception    = "P571"
	propHeadquarters = "P159"
	propIndustry     = "P452"
	propCEO          = "P169"
	propEmployees    = "P1128"
	propRevenue      = "P2139"
)

// SearchEntity is one hit of the entity search endpoint.
type SearchEntity struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

// CompanyData is the set of company facts extracted from an entity's claims.
// Headquarters, Industry and CEO hold Wikidata entity identifiers.
type CompanyData struct {
	EntityID     string   `json:"entityId"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Website      string   `json:"website"`
	FoundedDate  string   `json:"foundedDate"`
	Headquarters string   `json:"headquarters"`
	Industry     string   `json:"industry"`
	CEO          string   `json:"ceo"`
	Employees    *float64 `json:"employees,omitempty"`
	Revenue      *float64 `json:"revenue,omitempty"`
}

type searchResponse struct {
	Search []SearchEntity `json:"search"`
}

type claim struct {
	Mainsnak struct {
		Snaktype  string `json:"snaktype"`
		Datavalue struct {
			Value json.RawMessage `json:"value"`
			Type  string          `json:"type"`
		} `json:"datavalue"`
	} `json:"mainsnak"`
}

type entity struct {
	ID     string `json:"id"`
	Labels map[string]struct {
		Value string `json:"value"`
	} `json:"labels"`
	Descriptions map[string]struct {
		Value string `json:"value"`
	} `json:"descriptions"`
	Claims map[string][]claim `json:"claims"`
}

type entitiesResponse struct {
	Entities map[string]entity `json:"entities"`
}

// Client talks to the Wikidata action API.
type Client struct {
	http *base.Client
	log  zerolog.Logger
}

// New builds a Wikidata client.
func New(userAgent string, store cache.Store, limiter *ratelimit.Limiter, log zerolog.Logger) *Client {
	cfg := base.Config{
		BaseURL: baseURL,
		Headers: map[string]string{
			"User-Agent": userAgent,
			"Accept":     "application/json",
		},
		RateLimitKey:    rateLimitKey,
		RateLimitMax:    50,
		RateLimitWindow: time.Minute,
		CacheTTL:        entityTTL,
	}
	return &Client{
		http: base.New("wikidata", cfg, store, limiter, log),
		log:  log.With().Str("client", "wikidata").Logger(),
	}
}

// SearchEntities looks up Wikidata items matching a search term.
func (c *Client) SearchEntities(ctx context.Context, search string) ([]SearchEntity, error) {
	query := url.Values{
		"action":   {"wbsearchentities"},
		"search":   {search},
		"format":   {"json"},
		"language": {"en"},
		"limit":    {"10"},
		"type":     {"item"},
	}
	var resp searchResponse
	err := c.http.GetJSON(ctx, "/w/api.php", query, base.RequestOptions{
		CacheKey: base.CacheKey("wikidata:search", map[string]string{"q": search}),
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("searching entities for %q: %w", search, err)
	}
	return resp.Search, nil
}

// GetCompanyData resolves a company name to a Wikidata item and extracts
// its company facts. Returns nil without error when no item whose
// description reads like a company can be found.
func (c *Client) GetCompanyData(ctx context.Context, name string) (*CompanyData, error) {
	hits, err := c.SearchEntities(ctx, name)
	if err != nil {
		return nil, err
	}

	var match *SearchEntity
	for i := range hits {
		desc := strings.ToLower(hits[i].Description)
		if strings.Contains(desc, "company") ||
			strings.Contains(desc, "corporation") ||
			strings.Contains(desc, "business") {
			match = &hits[i]
			break
		}
	}
	if match == nil {
		c.log.Debug().Str("name", name).Msg("no company entity found")
		return nil, nil
	}

	ent, err := c.getEntity(ctx, match.ID)
	if err != nil {
		return nil, err
	}
	if ent == nil {
		return nil, nil
	}

	data := &CompanyData{
		EntityID:    ent.ID,
		Name:        ent.Labels["en"].Value,
		Description: ent.Descriptions["en"].Value,
	}
	data.Website = claimString(ent.Claims, propWebsite)
	data.FoundedDate = claimString(ent.Claims, propInception)
	data.Headquarters = claimString(ent.Claims, propHeadquarters)
	data.Industry = claimString(ent.Claims, propIndustry)
	data.CEO = claimString(ent.Claims, propCEO)
	data.Employees = claimQuantity(ent.Claims, propEmployees)
	data.Revenue = claimQuantity(ent.Claims, propRevenue)
	return data, nil
}

func (c *Client) getEntity(ctx context.Context, id string) (*entity, error) {
	query := url.Values{
		"action": {"wbgetentities"},
		"ids":    {id},
		"format": {"json"},
		"props":  {"labels|descriptions|claims"},
	}
	var resp entitiesResponse
	err := c.http.GetJSON(ctx, "/w/api.php", query, base.RequestOptions{
		CacheKey: base.CacheKey("wikidata:entity", map[string]string{"id": id}),
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("fetching entity %s: %w", id, err)
	}
	ent, ok := resp.Entities[id]
	if !ok {
		return nil, nil
	}
	return &ent, nil
}

// claimString extracts the first claim value for a property as a string.
// It understands string, time and entity-reference datavalues.
func claimString(claims map[string][]claim, property string) string {
	value, typ := firstClaim(claims, property)
	if value == nil {
		return ""
	}
	switch typ {
	case "string":
		var s string
		if err := json.Unmarshal(value, &s); err == nil {
			return s
		}
	case "time":
		var t struct {
			Time string `json:"time"`
		}
		if err := json.Unmarshal(value, &t); err == nil {
			return t.Time
		}
	case "wikibase-entityid":
		var ref struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(value, &ref); err == nil {
			return ref.ID
		}
	}
	return ""
}

// claimQuantity extracts the first claim value for a property as a number.
func claimQuantity(claims map[string][]claim, property string) *float64 {
	value, typ := firstClaim(claims, property)
	if value == nil || typ != "quantity" {
		return nil
	}
	var q struct {
		Amount string `json:"amount"`
	}
	if err := json.Unmarshal(value, &q); err != nil {
		return nil
	}
	amount, err := strconv.ParseFloat(strings.TrimPrefix(q.Amount, "+"), 64)
	if err != nil {
		return nil
	}
	return &amount
}

func firstClaim(claims map[string][]claim, property string) (json.RawMessage, string) {
	list, ok := claims[property]
	if !ok || len(list) == 0 {
		return nil, ""
	}
	dv := list[0].Mainsnak.Datavalue
	if len(dv.Value) == 0 {
		return nil, ""
	}
	return dv.Value, dv.Type
}
