package wikidata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlasresearch/atlas/internal/clients/base"
	"github.com/atlasresearch/atlas/internal/ratelimit"
	atesting "github.com/atlasresearch/atlas/internal/testing"
)

const searchJSON = `{"search":[
	{"id":"Q19837","label":"Steve Jobs","description":"American entrepreneur (1955-2011)"},
	{"id":"Q312","label":"Apple Inc.","description":"American multinational technology company"}
]}`

const entityJSON = `{"entities":{"Q312":{
	"id":"Q312",
	"labels":{"en":{"value":"Apple Inc."}},
	"descriptions":{"en":{"value":"American multinational technology company"}},
	"claims":{
		"P856":[{"mainsnak":{"snaktype":"value","datavalue":{"value":"https://www.apple.com/","type":"string"}}}],
		"P571":[{"mainsnak":{"snaktype":"value","datavalue":{"value":{"time":"+1976-04-01T00:00:00Z","precision":11},"type":"time"}}}],
		"P159":[{"mainsnak":{"snaktype":"value","datavalue":{"value":{"entity-type":"item","id":"Q486860"},"type":"wikibase-entityid"}}}],
		"P169":[{"mainsnak":{"snaktype":"value","datavalue":{"value":{"entity-type":"item","id":"Q265852"},"type":"wikibase-entityid"}}}],
		"P1128":[{"mainsnak":{"snaktype":"value","datavalue":{"value":{"amount":"+164000","unit":"1"},"type":"quantity"}}}],
		"P2139":[{"mainsnak":{"snaktype":"value","datavalue":{"value":{"amount":"+394328000000","unit":"Q4917"},"type":"quantity"}}}]
	}
}}}`

func newTestClient(serverURL string) *Client {
	cfg := base.Config{
		BaseURL:    serverURL,
		RetryDelay: time.Millisecond,
	}
	return &Client{
		http: base.New("wikidata", cfg, atesting.NewMemoryCache(), ratelimit.New(), zerolog.Nop()),
		log:  zerolog.Nop(),
	}
}

func TestSearchEntities(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/w/api.php", r.URL.Path)
		assert.Equal(t, "wbsearchentities", r.URL.Query().Get("action"))
		assert.Equal(t, "apple", r.URL.Query().Get("search"))
		assert.Equal(t, "item", r.URL.Query().Get("type"))
		_, _ = w.Write([]byte(searchJSON))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	hits, err := client.SearchEntities(context.Background(), "apple")

	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "Q19837", hits[0].ID)
}

func TestGetCompanyData_PicksCompanyDescription(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("action") {
		case "wbsearchentities":
			_, _ = w.Write([]byte(searchJSON))
		case "wbgetentities":
			assert.Equal(t, "Q312", r.URL.Query().Get("ids"))
			_, _ = w.Write([]byte(entityJSON))
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	data, err := client.GetCompanyData(context.Background(), "apple")

	require.NoError(t, err)
	require.NotNil(t, data)
	assert.Equal(t, "Q312", data.EntityID)
	assert.Equal(t, "Apple Inc.", data.Name)
	assert.Equal(t, "https://www.apple.com/", data.Website)
	assert.Equal(t, "+1976-04-01T00:00:00Z", data.FoundedDate)
	assert.Equal(t, "Q486860", data.Headquarters)
	assert.Equal(t, "Q265852", data.CEO)
	require.NotNil(t, data.Employees)
	assert.Equal(t, 164000.0, *data.Employees)
	require.NotNil(t, data.Revenue)
	assert.Equal(t, 394328000000.0, *data.Revenue)
}

func TestGetCompanyData_NoCompanyMatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"search":[
			{"id":"Q90","label":"Paris","description":"capital of France"}
		]}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	data, err := client.GetCompanyData(context.Background(), "paris")

	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestClaimQuantity_IgnoresMalformedAmount(t *testing.T) {
	claims := map[string][]claim{}
	assert.Nil(t, claimQuantity(claims, propEmployees))
}
