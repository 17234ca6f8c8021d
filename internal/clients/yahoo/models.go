package yahoo

// Quote is a single entry of the v7 quote endpoint.
type Quote struct {
	Symbol                     string  `json:"symbol"`
	ShortName                  string  `json:"shortName"`
	LongName                   string  `json:"longName"`
	Currency                   string  `json:"currency"`
	FullExchangeName           string  `json:"fullExchangeName"`
	Exchange                   string  `json:"exchange"`
	QuoteType                  string  `json:"quoteType"`
	RegularMarketPrice         float64 `json:"regularMarketPrice"`
	RegularMarketChange        float64 `json:"regularMarketChange"`
	RegularMarketChangePercent float64 `json:"regularMarketChangePercent"`
	RegularMarketVolume        int64   `json:"regularMarketVolume"`
	RegularMarketDayHigh       float64 `json:"regularMarketDayHigh"`
	RegularMarketDayLow        float64 `json:"regularMarketDayLow"`
	RegularMarketPreviousClose float64 `json:"regularMarketPreviousClose"`
	MarketCap                  float64 `json:"marketCap"`
	FiftyTwoWeekHigh           float64 `json:"fiftyTwoWeekHigh"`
	FiftyTwoWeekLow            float64 `json:"fiftyTwoWeekLow"`
	TrailingPE                 float64 `json:"trailingPE"`
	ForwardPE                  float64 `json:"forwardPE"`
	EpsTrailingTwelveMonths    float64 `json:"epsTrailingTwelveMonths"`
	DividendYield              float64 `json:"dividendYield"`
}

type quoteResponse struct {
	QuoteResponse struct {
		Result []Quote     `json:"result"`
		Error  interface{} `json:"error"`
	} `json:"quoteResponse"`
}

// PricePoint is one bar of historical price data.
type PricePoint struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    int64   `json:"volume"`
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol   string  `json:"symbol"`
				Currency string  `json:"currency"`
				Price    float64 `json:"regularMarketPrice"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []float64 `json:"open"`
					High   []float64 `json:"high"`
					Low    []float64 `json:"low"`
					Close  []float64 `json:"close"`
					Volume []int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error interface{} `json:"error"`
	} `json:"chart"`
}

// RawValue is Yahoo's formatted-number wrapper.
type RawValue struct {
	Raw float64 `json:"raw"`
	Fmt string  `json:"fmt"`
}

// CompanyProfile aggregates the assetProfile and summaryProfile modules.
type CompanyProfile struct {
	Address1            string `json:"address1"`
	City                string `json:"city"`
	State               string `json:"state"`
	Zip                 string `json:"zip"`
	Country             string `json:"country"`
	Phone               string `json:"phone"`
	Website             string `json:"website"`
	Industry            string `json:"industry"`
	Sector              string `json:"sector"`
	LongBusinessSummary string `json:"longBusinessSummary"`
	FullTimeEmployees   int    `json:"fullTimeEmployees"`
	CompanyOfficers     []struct {
		Name     string    `json:"name"`
		Title    string    `json:"title"`
		Age      int       `json:"age"`
		TotalPay *RawValue `json:"totalPay"`
	} `json:"companyOfficers"`
}

// Financials aggregates the financialData and defaultKeyStatistics modules.
type Financials struct {
	TotalRevenue      *RawValue `json:"totalRevenue"`
	GrossProfits      *RawValue `json:"grossProfits"`
	Ebitda            *RawValue `json:"ebitda"`
	TotalCash         *RawValue `json:"totalCash"`
	TotalDebt         *RawValue `json:"totalDebt"`
	FreeCashflow      *RawValue `json:"freeCashflow"`
	OperatingCashflow *RawValue `json:"operatingCashflow"`
	RevenueGrowth     *RawValue `json:"revenueGrowth"`
	ProfitMargins     *RawValue `json:"profitMargins"`
	CurrentPrice      *RawValue `json:"currentPrice"`
	TargetMeanPrice   *RawValue `json:"targetMeanPrice"`
	EnterpriseValue   *RawValue `json:"enterpriseValue"`
	SharesOutstanding *RawValue `json:"sharesOutstanding"`
	BookValue         *RawValue `json:"bookValue"`
	PriceToBook       *RawValue `json:"priceToBook"`
}

type quoteSummaryResponse struct {
	QuoteSummary struct {
		Result []struct {
			AssetProfile         *CompanyProfile `json:"assetProfile"`
			SummaryProfile       *CompanyProfile `json:"summaryProfile"`
			FinancialData        *Financials     `json:"financialData"`
			DefaultKeyStatistics *Financials     `json:"defaultKeyStatistics"`
		} `json:"result"`
		Error interface{} `json:"error"`
	} `json:"quoteSummary"`
}

// SearchHit is one result of the symbol search endpoint.
type SearchHit struct {
	Symbol    string `json:"symbol"`
	ShortName string `json:"shortname"`
	LongName  string `json:"longname"`
	Exchange  string `json:"exchange"`
	QuoteType string `json:"quoteType"`
	Sector    string `json:"sector"`
	Industry  string `json:"industry"`
}

type searchResponse struct {
	Quotes []SearchHit `json:"quotes"`
}
