// Package domain contains the core entity types shared by all modules.
package domain

import "time"

// InvestorType classifies an investor record
type InvestorType string

const (
	InvestorVCFirm       InvestorType = "VC_FIRM"
	InvestorAngel        InvestorType = "ANGEL"
	InvestorPEFirm       InvestorType = "PE_FIRM"
	InvestorCorporateVC  InvestorType = "CORPORATE_VC"
	InvestorAccelerator  InvestorType = "ACCELERATOR"
	InvestorFamilyOffice InvestorType = "FAMILY_OFFICE"
	InvestorHedgeFund    InvestorType = "HEDGE_FUND"
	InvestorIndividual   InvestorType = "INDIVIDUAL"
	InvestorOther        InvestorType = "OTHER"
)

// CompanyType classifies a company record
type CompanyType string

const (
	CompanyPublic   CompanyType = "PUBLIC"
	CompanyPrivate  CompanyType = "PRIVATE"
	CompanyAcquired CompanyType = "ACQUIRED"
	CompanyDefunct  CompanyType = "DEFUNCT"
)

// InvestmentStage identifies the financing stage of an investment
type InvestmentStage string

const (
	StagePreSeed     InvestmentStage = "PRE_SEED"
	StageSeed        InvestmentStage = "SEED"
	StageSeriesA     InvestmentStage = "SERIES_A"
	StageSeriesB     InvestmentStage = "SERIES_B"
	StageSeriesC     InvestmentStage = "SERIES_C"
	StageSeriesDPlus InvestmentStage = "SERIES_D_PLUS"
	StageGrowth      InvestmentStage = "GROWTH"
	StageIPO         InvestmentStage = "IPO"
	StageSecondary   InvestmentStage = "SECONDARY"
	StageDebt        InvestmentStage = "DEBT"
	StageGrant       InvestmentStage = "GRANT"
	StageOther       InvestmentStage = "OTHER"
)

// InvestmentStatus tracks the lifecycle of an investment
type InvestmentStatus string

const (
	StatusActive   InvestmentStatus = "ACTIVE"
	StatusExited   InvestmentStatus = "EXITED"
	StatusAcquired InvestmentStatus = "ACQUIRED"
	StatusIPO      InvestmentStatus = "IPO"
	StatusDefunct  InvestmentStatus = "DEFUNCT"
	StatusUnknown  InvestmentStatus = "UNKNOWN"
)

// DataSource records where a record originated
type DataSource string

const (
	SourceManual         DataSource = "MANUAL"
	SourceDatabase       DataSource = "DATABASE"
	SourceSECEdgar       DataSource = "SEC_EDGAR"
	SourceYahooFinance   DataSource = "YAHOO_FINANCE"
	SourceOpenCorporates DataSource = "OPENCORPORATES"
	SourceWikidata       DataSource = "WIKIDATA"
	SourceNewsAPI        DataSource = "NEWSAPI"
	SourceWebScraping    DataSource = "WEB_SCRAPING"
	SourceAPI            DataSource = "API"
)

// Investor is a fund, firm, or individual that makes investments.
// Optional text fields use the empty string as "unset" so that enrichment
// merge logic can test emptiness directly.
type Investor struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Slug        string       `json:"slug"`
	Type        InvestorType `json:"type"`
	Description string       `json:"description,omitempty"`
	Website     string       `json:"website,omitempty"`
	City        string       `json:"city,omitempty"`
	State       string       `json:"state,omitempty"`
	Country     string       `json:"country,omitempty"`
	FoundedYear *int         `json:"foundedYear,omitempty"`
	AUM         *float64     `json:"aum,omitempty"`
	TeamSize    *int         `json:"teamSize,omitempty"`
	LinkedinURL string       `json:"linkedinUrl,omitempty"`
	TwitterURL  string       `json:"twitterUrl,omitempty"`
	LogoURL     string       `json:"logoUrl,omitempty"`
	DataSource  DataSource   `json:"dataSource"`
	RawData     string       `json:"rawData,omitempty"` // JSON audit blob of provider responses
	LastFetched *time.Time   `json:"lastFetched,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// Company is an operating company, possibly held by one or more investors.
type Company struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	Slug          string      `json:"slug"`
	Type          CompanyType `json:"type"`
	Stage         string      `json:"stage,omitempty"`
	Description   string      `json:"description,omitempty"`
	Website       string      `json:"website,omitempty"`
	Headquarters  string      `json:"headquarters,omitempty"`
	City          string      `json:"city,omitempty"`
	State         string      `json:"state,omitempty"`
	Country       string      `json:"country,omitempty"`
	Industry      string      `json:"industry,omitempty"`
	Sector        string      `json:"sector,omitempty"`
	FoundedYear   *int        `json:"foundedYear,omitempty"`
	EmployeeCount *int        `json:"employeeCount,omitempty"`
	Ticker        string      `json:"ticker,omitempty"`
	Exchange      string      `json:"exchange,omitempty"`
	CIK           string      `json:"cik,omitempty"`
	MarketCap     *float64    `json:"marketCap,omitempty"`
	Revenue       *float64    `json:"revenue,omitempty"`
	LinkedinURL   string      `json:"linkedinUrl,omitempty"`
	TwitterURL    string      `json:"twitterUrl,omitempty"`
	LogoURL       string      `json:"logoUrl,omitempty"`
	DataSource    DataSource  `json:"dataSource"`
	RawData       string      `json:"rawData,omitempty"`
	LastFetched   *time.Time  `json:"lastFetched,omitempty"`
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt"`
}

// Investment is a single financing event linking an investor to a company.
type Investment struct {
	ID           string           `json:"id"`
	InvestorID   string           `json:"investorId"`
	CompanyID    string           `json:"companyId"`
	Amount       *float64         `json:"amount,omitempty"`
	Stage        InvestmentStage  `json:"stage"`
	Status       InvestmentStatus `json:"status"`
	InvestedAt   *time.Time       `json:"investedAt,omitempty"`
	ExitedAt     *time.Time       `json:"exitedAt,omitempty"`
	LeadInvestor bool             `json:"leadInvestor"`
	Ownership    *float64         `json:"ownership,omitempty"`
	Notes        string           `json:"notes,omitempty"`
	DataSource   DataSource       `json:"dataSource"`
	CreatedAt    time.Time        `json:"createdAt"`
	UpdatedAt    time.Time        `json:"updatedAt"`

	// Populated on detail reads
	Investor *Investor `json:"investor,omitempty"`
	Company  *Company  `json:"company,omitempty"`
}

// PortfolioCompany is a membership link: the investor holds (or held) the company.
// Keyed by the (investorId, companyId) composite - upserts target that key.
type PortfolioCompany struct {
	ID         string           `json:"id"`
	InvestorID string           `json:"investorId"`
	CompanyID  string           `json:"companyId"`
	Status     InvestmentStatus `json:"status"`
	CreatedAt  time.Time        `json:"createdAt"`
	UpdatedAt  time.Time        `json:"updatedAt"`

	Company  *Company  `json:"company,omitempty"`
	Investor *Investor `json:"investor,omitempty"`
}

// InvestorConnection is a directed co-investment edge. Edges are always
// written in symmetric pairs so per-investor queries stay single-directional.
type InvestorConnection struct {
	ID                string    `json:"id"`
	InvestorID        string    `json:"investorId"`
	RelatedInvestorID string    `json:"relatedInvestorId"`
	Strength          int       `json:"strength"`
	SharedCompanies   []string  `json:"sharedCompanies"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// FundingRound is a reported financing round for a company.
type FundingRound struct {
	ID          string     `json:"id"`
	CompanyID   string     `json:"companyId"`
	RoundType   string     `json:"roundType"`
	Amount      *float64   `json:"amount,omitempty"`
	Valuation   *float64   `json:"valuation,omitempty"`
	Currency    string     `json:"currency"`
	AnnouncedAt *time.Time `json:"announcedAt,omitempty"`
	Source      string     `json:"source,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// MarketData is a daily OHLCV snapshot for a listed company.
type MarketData struct {
	ID        string    `json:"id"`
	CompanyID string    `json:"companyId"`
	Date      time.Time `json:"date"`
	Open      *float64  `json:"open,omitempty"`
	High      *float64  `json:"high,omitempty"`
	Low       *float64  `json:"low,omitempty"`
	Close     *float64  `json:"close,omitempty"`
	Volume    *int64    `json:"volume,omitempty"`
	MarketCap *float64  `json:"marketCap,omitempty"`
}

// ScrapingJobStatus tracks the lifecycle of a scrape run
type ScrapingJobStatus string

const (
	ScrapingRunning   ScrapingJobStatus = "RUNNING"
	ScrapingCompleted ScrapingJobStatus = "COMPLETED"
	ScrapingFailed    ScrapingJobStatus = "FAILED"
)

// ScrapingJob is the audit record of one portfolio scrape run.
type ScrapingJob struct {
	ID          string            `json:"id"`
	URL         string            `json:"url"`
	Status      ScrapingJobStatus `json:"status"`
	InvestorID  string            `json:"investorId,omitempty"`
	Result      string            `json:"result,omitempty"` // JSON scrape result
	Error       string            `json:"error,omitempty"`
	StartedAt   *time.Time        `json:"startedAt,omitempty"`
	CompletedAt *time.Time        `json:"completedAt,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
}
