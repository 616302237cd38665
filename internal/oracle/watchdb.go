package oracle

import (
	"context"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

// SourceWatchDatabase marks quotes served by the structured watch price
// database. The marker maps these quotes to high confidence.
const SourceWatchDatabase = "Watch Database"

// The database's record schema is not contractually stable, so price
// extraction probes candidate field names in order instead of decoding
// into a struct.
var (
	marketPriceFields = []string{
		"market_price", "avg_price", "price", "current_price",
		"average_price", "marketValue",
	}
	retailPriceFields = []string{
		"retail_price", "msrp", "retailPrice", "list_price",
		"suggested_retail_price",
	}
	recordListFields = []string{"watches", "data", "results", "items"}
)

// WatchDBOpts configures the watch database client.
type WatchDBOpts struct {
	BaseURL string
	APIKey  string
}

// WatchDB looks up watch market prices from a structured price database
// over HTTP. It only serves watches; CardPrice always degrades.
type WatchDB struct {
	httpClient *resty.Client
}

// NewWatchDB creates a watch database client.
func NewWatchDB(opts WatchDBOpts) *WatchDB {
	client := resty.New().
		SetBaseURL(opts.BaseURL).
		SetHeader("Accept", "application/json")
	if opts.APIKey != "" {
		client.SetHeader("X-API-Key", opts.APIKey)
	}
	return &WatchDB{httpClient: client}
}

// WatchPrice searches the database, first by free-text search term, then by
// brand+model. No result, missing price fields, and transport failures all
// degrade to an unavailable quote so the caller can fall back to another
// strategy; this backend never returns an error.
func (w *WatchDB) WatchPrice(ctx context.Context, brand, model, title string) (Quote, error) {
	searchTerm := strings.TrimSpace(title)
	if searchTerm == "" {
		searchTerm = strings.TrimSpace(brand + " " + model)
	}

	var record map[string]any
	if searchTerm != "" {
		record = w.search(ctx, map[string]string{
			"searchTerm": searchTerm,
			"limit":      "1",
			"page":       "1",
		})
	}
	if record == nil && brand != "" && model != "" {
		record = w.search(ctx, map[string]string{
			"brand": brand,
			"model": model,
			"limit": "1",
		})
	}
	if record == nil {
		return unavailableQuote(), nil
	}

	market := probePrice(record, marketPriceFields)
	retail := probePrice(record, retailPriceFields)
	if market == nil && retail == nil {
		log.Debug().Str("searchTerm", searchTerm).Msg("watch database record has no price fields")
		return unavailableQuote(), nil
	}

	quote := Quote{
		MarketPrice: market,
		RetailPrice: retail,
		Source:      SourceWatchDatabase,
		Raw:         record,
	}
	if u, ok := record["url"].(string); ok {
		quote.ReferenceURL = u
	}
	return quote, nil
}

// CardPrice is unsupported by the watch database.
func (w *WatchDB) CardPrice(ctx context.Context, q CardQuery) (Quote, error) {
	return unavailableQuote(), nil
}

// search runs one query against the database and returns the first record,
// or nil when the query failed or matched nothing.
func (w *WatchDB) search(ctx context.Context, params map[string]string) map[string]any {
	var body map[string]any
	res, err := w.httpClient.NewRequest().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(&body).
		Get("/v1/watches/search")
	if err != nil {
		log.Warn().Err(err).Msg("watch database request failed")
		return nil
	}
	if res.IsError() {
		log.Warn().Int("status", res.StatusCode()).Msg("watch database returned error status")
		return nil
	}
	return firstRecord(body)
}

// firstRecord extracts the first watch record from a response whose list
// may live under one of several field names, or be the body itself.
func firstRecord(body map[string]any) map[string]any {
	for _, field := range recordListFields {
		list, ok := body[field].([]any)
		if !ok || len(list) == 0 {
			continue
		}
		if record, ok := list[0].(map[string]any); ok {
			return record
		}
	}
	// Some deployments return the single best match as the body itself.
	for _, field := range marketPriceFields {
		if _, ok := body[field]; ok {
			return body
		}
	}
	return nil
}

// probePrice tries candidate field names in order and returns the first
// positive numeric value.
func probePrice(record map[string]any, fields []string) *float64 {
	for _, field := range fields {
		v, ok := record[field]
		if !ok {
			continue
		}
		if p := coercePrice(v); p != nil {
			return p
		}
	}
	return nil
}
