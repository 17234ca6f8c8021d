package jobs

import (
	"github.com/vmihailenco/msgpack/v5"
)

// FetchCompanyPayload is the payload of a fetch-company job.
type FetchCompanyPayload struct {
	CompanyID string `msgpack:"companyId"`
}

// ScrapePortfolioPayload is the payload of a scrape-portfolio job.
type ScrapePortfolioPayload struct {
	InvestorID string `msgpack:"investorId"`
	Target     string `msgpack:"target"` // firm name or portfolio page URL
}

func marshalPayload(v interface{}) ([]byte, error) {
	return msgpack.Marshal(v)
}

func unmarshalPayload(data []byte, v interface{}) error {
	return msgpack.Unmarshal(data, v)
}
