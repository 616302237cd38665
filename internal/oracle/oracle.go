// Package oracle answers "what does this item typically sell for?" using
// either a structured watch price database or an AI web-search estimator.
//
// Adapters never return an error for "price not found"; they degrade to a
// Quote with nil prices and an explanatory Source. Errors are reserved for
// transport and auth failures, which callers are expected to isolate.
package oracle

import "context"

// SourceUnavailable is the Source value when no strategy produced a price.
const SourceUnavailable = "Unable to estimate"

// Quote is a best-effort market price estimate for a single item.
type Quote struct {
	// MarketPrice is the estimated current market value in USD, nil when
	// unknown.
	MarketPrice *float64 `json:"market_price"`
	// RetailPrice is the retail/MSRP price in USD, nil when unknown.
	RetailPrice *float64 `json:"retail_price"`
	// Source is a human-readable provenance tag, always set.
	Source string `json:"source"`
	// ReferenceURL links to the price source page when one was found.
	ReferenceURL string `json:"reference_url,omitempty"`
	// Raw is the backend's raw record, passed through for audit/display.
	// The engine never interprets it.
	Raw map[string]any `json:"raw,omitempty"`
}

// CardQuery identifies a trading card for price lookup. All fields are
// optional except Title, which is used as the fallback search text.
type CardQuery struct {
	Name       string
	Set        string
	Grade      string
	CertNumber string
	Year       string
	Edition    string
	Title      string
}

// Oracle provides market price estimates per item type.
type Oracle interface {
	// WatchPrice returns a price estimate for a watch. brand and model may
	// be empty; title is the full listing title.
	WatchPrice(ctx context.Context, brand, model, title string) (Quote, error)

	// CardPrice returns a price estimate for a trading card.
	CardPrice(ctx context.Context, q CardQuery) (Quote, error)
}

// unavailableQuote is the degraded result when every strategy failed.
func unavailableQuote() Quote {
	return Quote{Source: SourceUnavailable}
}

// HasMarketPrice reports whether the quote carries a usable market price.
func (q Quote) HasMarketPrice() bool {
	return q.MarketPrice != nil && *q.MarketPrice > 0
}
