package oracle

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// QuoteStore persists serialized quotes keyed by query hash.
type QuoteStore interface {
	GetQuote(key string) (payload string, fetchedAt time.Time, err error)
	SetQuote(key string, payload string) error
}

// Cached wraps an Oracle with a persistent quote cache. Cache failures are
// logged and ignored; the wrapped oracle is always the source of truth.
type Cached struct {
	inner Oracle
	store QuoteStore
	ttl   time.Duration
}

// NewCached creates a caching oracle. Entries older than ttl are refetched.
func NewCached(inner Oracle, store QuoteStore, ttl time.Duration) *Cached {
	return &Cached{inner: inner, store: store, ttl: ttl}
}

// WatchPrice implements Oracle with caching.
func (c *Cached) WatchPrice(ctx context.Context, brand, model, title string) (Quote, error) {
	key := quoteKey("watch", brand, model, title)
	if quote, ok := c.lookup(key); ok {
		return quote, nil
	}
	quote, err := c.inner.WatchPrice(ctx, brand, model, title)
	if err != nil {
		return quote, err
	}
	c.save(key, quote)
	return quote, nil
}

// CardPrice implements Oracle with caching.
func (c *Cached) CardPrice(ctx context.Context, q CardQuery) (Quote, error) {
	key := quoteKey("card", q.Name, q.Set, q.Grade, q.CertNumber, q.Year, q.Edition, q.Title)
	if quote, ok := c.lookup(key); ok {
		return quote, nil
	}
	quote, err := c.inner.CardPrice(ctx, q)
	if err != nil {
		return quote, err
	}
	c.save(key, quote)
	return quote, nil
}

func (c *Cached) lookup(key string) (Quote, bool) {
	if c.store == nil {
		return Quote{}, false
	}
	payload, fetchedAt, err := c.store.GetQuote(key)
	if err != nil {
		log.Warn().Err(err).Msg("failed to check quote cache")
		return Quote{}, false
	}
	if payload == "" || time.Since(fetchedAt) > c.ttl {
		return Quote{}, false
	}
	var quote Quote
	if err := json.Unmarshal([]byte(payload), &quote); err != nil {
		log.Warn().Err(err).Msg("corrupt quote cache entry")
		return Quote{}, false
	}
	log.Debug().Str("key", key[:16]).Msg("quote cache hit")
	return quote, true
}

func (c *Cached) save(key string, quote Quote) {
	if c.store == nil {
		return
	}
	// Don't cache failed estimates; the next request should retry.
	if quote.MarketPrice == nil && quote.RetailPrice == nil {
		return
	}
	payload, err := json.Marshal(quote)
	if err != nil {
		return
	}
	if err := c.store.SetQuote(key, string(payload)); err != nil {
		log.Warn().Err(err).Msg("failed to cache quote")
	}
}

// quoteKey hashes the query parts into a stable cache key. The NUL
// separator avoids boundary collisions between adjacent parts.
func quoteKey(parts ...string) string {
	h := sha256.New()
	h.Write([]byte(strings.Join(parts, "\x00")))
	return hex.EncodeToString(h.Sum(nil))
}
