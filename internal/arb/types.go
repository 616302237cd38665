// Package arb is the arbitrage valuation engine. It takes marketplace
// listings plus a best-effort market price signal and classifies each
// listing as undervalued, fair value, overvalued or unknown, with a
// quantified spread, confidence and risk rating.
package arb

// ValuationStatus is the four-way classification of a listing relative to
// its estimated market price.
type ValuationStatus string

const (
	StatusUndervalued ValuationStatus = "undervalued"
	StatusFairValue   ValuationStatus = "fair_value"
	StatusOvervalued  ValuationStatus = "overvalued"
	StatusUnknown     ValuationStatus = "unknown"
)

// RiskLevel is a coarse risk rating derived from the listing condition.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Confidence rates how trustworthy the market price estimate is, derived
// from which oracle strategy produced it.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Listing is a marketplace listing as supplied by the listing source.
// Prices are assumed USD-normalized upstream. The engine never mutates it.
type Listing struct {
	ItemID    string            `json:"item_id"`
	Title     string            `json:"title"`
	URL       string            `json:"url,omitempty"`
	Price     float64           `json:"price_usd"`
	Shipping  float64           `json:"shipping_usd"`
	Currency  string            `json:"currency"`
	Condition string            `json:"condition,omitempty"`
	Brand     string            `json:"brand,omitempty"`
	Model     string            `json:"model,omitempty"`
	Aspects   map[string]string `json:"aspects,omitempty"`
	ImageURL  string            `json:"image_url,omitempty"`
}

// Opportunity is the engine's verdict for one listing. Exactly one
// ValuationStatus is always set, and HasArbitrage is true iff the status
// is undervalued. Optional fields are pointers so "absent" is
// distinguishable from zero.
type Opportunity struct {
	ItemID          string          `json:"item_id"`
	HasArbitrage    bool            `json:"has_arbitrage"`
	ValuationStatus ValuationStatus `json:"valuation_status"`

	// SpreadUSD and SpreadPct are signed; positive means the listing is
	// below market. Present only when a market price was available and the
	// item passed the part filter.
	SpreadUSD *float64 `json:"spread_usd,omitempty"`
	SpreadPct *float64 `json:"spread_pct,omitempty"`

	MarketPriceUSD *float64 `json:"market_price_usd,omitempty"`
	RetailPriceUSD *float64 `json:"retail_price_usd,omitempty"`

	// AllInCostUSD is price + shipping + estimated tax, always present.
	AllInCostUSD float64 `json:"all_in_cost_usd"`

	PotentialProfitUSD *float64 `json:"potential_profit_usd,omitempty"`
	PotentialLossUSD   *float64 `json:"potential_loss_usd,omitempty"`

	RiskLevel  RiskLevel  `json:"risk_level"`
	Confidence Confidence `json:"confidence"`

	// PriceSource is the provenance of the market price, set even for
	// failure outcomes (e.g. part detection).
	PriceSource  string `json:"price_source,omitempty"`
	ReferenceURL string `json:"reference_url,omitempty"`

	// Thresholds used for this classification, echoed for auditability.
	UndervaluedThreshold *float64 `json:"undervalued_threshold,omitempty"`
	OvervaluedThreshold  *float64 `json:"overvalued_threshold,omitempty"`
}

// Result pairs a listing with its computed opportunity.
type Result struct {
	Listing     Listing     `json:"listing"`
	Opportunity Opportunity `json:"arbitrage"`
}

// Summary aggregates valuation bucket counts over a batch.
type Summary struct {
	Total       int `json:"total"`
	Undervalued int `json:"undervalued"`
	FairValue   int `json:"fair_value"`
	Overvalued  int `json:"overvalued"`
	Unknown     int `json:"unknown"`
}

// Summarize counts valuation buckets across results.
func Summarize(results []Result) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		switch r.Opportunity.ValuationStatus {
		case StatusUndervalued:
			s.Undervalued++
		case StatusFairValue:
			s.FairValue++
		case StatusOvervalued:
			s.Overvalued++
		default:
			s.Unknown++
		}
	}
	return s
}
