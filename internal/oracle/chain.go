package oracle

import (
	"context"

	"github.com/rs/zerolog/log"
)

// Chain tries the structured watch database first and falls back to the AI
// estimator when the database is not configured, unreachable, or has no
// price for the item. Cards always go straight to the AI estimator since no
// structured card price database exists in this deployment.
type Chain struct {
	watchDB  Oracle
	aiSearch Oracle
}

// NewChain creates the composite oracle. watchDB may be nil when no
// structured database is configured.
func NewChain(watchDB, aiSearch Oracle) *Chain {
	return &Chain{watchDB: watchDB, aiSearch: aiSearch}
}

// WatchPrice implements Oracle.
func (c *Chain) WatchPrice(ctx context.Context, brand, model, title string) (Quote, error) {
	if c.watchDB != nil {
		quote, err := c.watchDB.WatchPrice(ctx, brand, model, title)
		if err == nil && (quote.MarketPrice != nil || quote.RetailPrice != nil) {
			return quote, nil
		}
		if err != nil {
			log.Warn().Err(err).Msg("watch database lookup failed, falling back to AI search")
		}
	}
	return c.aiSearch.WatchPrice(ctx, brand, model, title)
}

// CardPrice implements Oracle.
func (c *Chain) CardPrice(ctx context.Context, q CardQuery) (Quote, error) {
	return c.aiSearch.CardPrice(ctx, q)
}
