package edgar

// CompanyInfo is the SEC submissions payload for one company, keyed by CIK.
type CompanyInfo struct {
	CIK            string   `json:"cik"`
	EntityType     string   `json:"entityType"`
	SIC            string   `json:"sic"`
	SICDescription string   `json:"sicDescription"`
	Name           string   `json:"name"`
	Tickers        []string `json:"tickers"`
	Exchanges      []string `json:"exchanges"`
	EIN            string   `json:"ein"`
	Description    string   `json:"description"`
	Website        string   `json:"website"`
	Category       string   `json:"category"`
	FiscalYearEnd  string   `json:"fiscalYearEnd"`
	StateOfIncorp  string   `json:"stateOfIncorporation"`
	Phone          string   `json:"phone"`
	Addresses      struct {
		Business *Address `json:"business"`
		Mailing  *Address `json:"mailing"`
	} `json:"addresses"`
	FormerNames []struct {
		Name string `json:"name"`
		From string `json:"from"`
		To   string `json:"to"`
	} `json:"formerNames"`
	Filings struct {
		Recent RecentFilings `json:"recent"`
	} `json:"filings"`
}

// Address is a SEC-registered address.
type Address struct {
	Street1        string `json:"street1"`
	Street2        string `json:"street2"`
	City           string `json:"city"`
	StateOrCountry string `json:"stateOrCountry"`
	ZipCode        string `json:"zipCode"`
}

// RecentFilings is SEC's column-oriented filing listing: parallel arrays
// indexed together.
type RecentFilings struct {
	AccessionNumber       []string `json:"accessionNumber"`
	FilingDate            []string `json:"filingDate"`
	ReportDate            []string `json:"reportDate"`
	Form                  []string `json:"form"`
	FileNumber            []string `json:"fileNumber"`
	FilmNumber            []string `json:"filmNumber"`
	Items                 []string `json:"items"`
	Size                  []int    `json:"size"`
	IsXBRL                []int    `json:"isXBRL"`
	IsInlineXBRL          []int    `json:"isInlineXBRL"`
	PrimaryDocument       []string `json:"primaryDocument"`
	PrimaryDocDescription []string `json:"primaryDocDescription"`
}

// Filing is one row of the listing, with a synthesized archive URL.
type Filing struct {
	AccessionNumber       string `json:"accessionNumber"`
	FilingDate            string `json:"filingDate"`
	ReportDate            string `json:"reportDate"`
	Form                  string `json:"form"`
	FileNumber            string `json:"fileNumber"`
	FilmNumber            string `json:"filmNumber"`
	Items                 string `json:"items"`
	Size                  int    `json:"size"`
	IsXBRL                bool   `json:"isXBRL"`
	IsInlineXBRL          bool   `json:"isInlineXBRL"`
	PrimaryDocument       string `json:"primaryDocument"`
	PrimaryDocDescription string `json:"primaryDocDescription"`
	DocumentURL           string `json:"documentUrl"`
}

// TickerEntry is one row of the SEC full ticker table.
type TickerEntry struct {
	CIK    int    `json:"cik_str"`
	Ticker string `json:"ticker"`
	Title  string `json:"title"`
}

// SearchResult is a name-search hit against the ticker table.
type SearchResult struct {
	CIK    string `json:"cik"`
	Title  string `json:"title"`
	Ticker string `json:"ticker"`
}
