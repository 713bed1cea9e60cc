package externalmodel

import "encoding/json"

// QuoteResponse is the market-data API envelope.
type QuoteResponse struct {
	Status string          `json:"status"` // "ok" | "error"
	Error  string          `json:"error,omitempty"`
	Data   json.RawMessage `json:"data"`
}

// OptionQuote is an option chain entry as returned by the market-data API.
// Numeric fields arrive as strings.
type OptionQuote struct {
	Symbol            string `json:"symbol"` // OCC symbol
	Underlying        string `json:"underlying"`
	Type              string `json:"type"` // "put" | "call"
	Strike            string `json:"strike"`
	Expiration        string `json:"expiration"` // YYYY-MM-DD
	Bid               string `json:"bid"`
	Ask               string `json:"ask"`
	Last              string `json:"last"`
	Volume            int64  `json:"volume"`
	OpenInterest      int64  `json:"open_interest"`
	ImpliedVolatility string `json:"implied_volatility"`
	Delta             string `json:"delta"`
	Gamma             string `json:"gamma"`
	Theta             string `json:"theta"`
	Vega              string `json:"vega"`
	Updated           int64  `json:"updated"` // unix milliseconds
}

// StockQuote is an equity snapshot with the fundamentals used for screening.
type StockQuote struct {
	Symbol            string `json:"symbol"`
	Price             string `json:"price"`
	MarketCap         string `json:"market_cap"`
	Beta              string `json:"beta"`
	DividendYield     string `json:"dividend_yield"` // percent
	PERatio           string `json:"pe_ratio"`
	Sector            string `json:"sector"`
	ImpliedVolatility string `json:"implied_volatility"` // percent
	OptionsVolume     int64  `json:"options_volume"`
	Updated           int64  `json:"updated"`
}
