package yahoo

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

func newTestClient(serverURL string) *Client {
	cfg := base.Config{
		BaseURL:    serverURL,
		RetryDelay: time.Millisecond,
	}
	return &Client{
		http:          base.New("yahoo", cfg, atesting.NewMemoryCache(), ratelimit.New(), zerolog.Nop()),
		marketDataTTL: 5 * time.Minute,
		log:           zerolog.Nop(),
	}
}

func TestGetQuote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v7/finance/quote", r.URL.Path)
		assert.Equal(t, "AAPL", r.URL.Query().Get("symbols"))
		_, _ = w.Write([]byte(`{"quoteResponse":{"result":[{
			"symbol":"AAPL","longName":"Apple Inc.","regularMarketPrice":195.5,
			"marketCap":3000000000000,"currency":"USD"
		}],"error":null}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	quote, err := client.GetQuote(context.Background(), "AAPL")

	require.NoError(t, err)
	require.NotNil(t, quote)
	assert.Equal(t, "Apple Inc.", quote.LongName)
	assert.Equal(t, 195.5, quote.RegularMarketPrice)
	assert.Equal(t, 3e12, quote.MarketCap)
}

func TestGetQuote_EmptyResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"quoteResponse":{"result":[],"error":null}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	quote, err := client.GetQuote(context.Background(), "NOPE")

	require.NoError(t, err)
	assert.Nil(t, quote)
}

func TestGetQuote_ServerErrorAbsorbed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	quote, err := client.GetQuote(context.Background(), "AAPL")

	require.NoError(t, err)
	assert.Nil(t, quote)
}

func TestGetHistoricalData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v8/finance/chart/AAPL", r.URL.Path)
		assert.Equal(t, "1mo", r.URL.Query().Get("range"))
		assert.Equal(t, "1d", r.URL.Query().Get("interval"))
		_, _ = w.Write([]byte(`{"chart":{"result":[{
			"meta":{"symbol":"AAPL","currency":"USD"},
			"timestamp":[1700000000,1700086400],
			"indicators":{"quote":[{
				"open":[190.1,191.2],"high":[192.0,193.5],
				"low":[189.0,190.8],"close":[191.5,193.0],
				"volume":[50000000,48000000]
			}]}
		}],"error":null}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	points, err := client.GetHistoricalData(context.Background(), "AAPL", "", "")

	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, int64(1700000000), points[0].Timestamp)
	assert.Equal(t, 191.5, points[0].Close)
	assert.Equal(t, int64(48000000), points[1].Volume)
}

func TestGetCompanyProfile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v10/finance/quoteSummary/AAPL", r.URL.Path)
		assert.Equal(t, "assetProfile,summaryProfile", r.URL.Query().Get("modules"))
		_, _ = w.Write([]byte(`{"quoteSummary":{"result":[{
			"assetProfile":{
				"city":"Cupertino","country":"United States",
				"website":"https://www.apple.com","industry":"Consumer Electronics",
				"sector":"Technology","longBusinessSummary":"Apple designs smartphones.",
				"fullTimeEmployees":161000
			}
		}],"error":null}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	profile, err := client.GetCompanyProfile(context.Background(), "AAPL")

	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Equal(t, "Cupertino", profile.City)
	assert.Equal(t, "Technology", profile.Sector)
	assert.Equal(t, 161000, profile.FullTimeEmployees)
}

func TestGetFinancials_MergesKeyStatistics(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"quoteSummary":{"result":[{
			"financialData":{
				"totalRevenue":{"raw":383285000000,"fmt":"383.29B"},
				"revenueGrowth":{"raw":0.021,"fmt":"2.10%"}
			},
			"defaultKeyStatistics":{
				"enterpriseValue":{"raw":2900000000000,"fmt":"2.9T"},
				"sharesOutstanding":{"raw":15500000000,"fmt":"15.5B"}
			}
		}],"error":null}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	fin, err := client.GetFinancials(context.Background(), "AAPL")

	require.NoError(t, err)
	require.NotNil(t, fin)
	require.NotNil(t, fin.TotalRevenue)
	assert.Equal(t, 383285000000.0, fin.TotalRevenue.Raw)
	require.NotNil(t, fin.EnterpriseValue)
	assert.Equal(t, 2.9e12, fin.EnterpriseValue.Raw)
}

func TestSearchSymbols(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/finance/search", r.URL.Path)
		assert.Equal(t, "apple", r.URL.Query().Get("q"))
		_, _ = w.Write([]byte(`{"quotes":[
			{"symbol":"AAPL","shortname":"Apple Inc.","exchange":"NMS","quoteType":"EQUITY"},
			{"symbol":"APLE","shortname":"Apple Hospitality REIT","exchange":"NYQ","quoteType":"EQUITY"}
		]}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	hits, err := client.SearchSymbols(context.Background(), "apple")

	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "AAPL", hits[0].Symbol)
}

func TestGetQuote_CachedSecondCall(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = w.Write([]byte(`{"quoteResponse":{"result":[{"symbol":"AAPL","regularMarketPrice":195.5}],"error":null}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.GetQuote(context.Background(), "AAPL")
	require.NoError(t, err)
	_, err = client.GetQuote(context.Background(), "AAPL")
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
}
