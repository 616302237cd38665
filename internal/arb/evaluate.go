package arb

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/valuehound/valuehound/internal/itemtype"
	"github.com/valuehound/valuehound/internal/oracle"
)

// Business parameter defaults. The tax rate and spread threshold are
// product decisions, not validated against real tax jurisdictions; both
// are overridable via Config.
const (
	DefaultTaxRate      = 0.09
	DefaultThresholdPct = 10.0

	// DefaultSuspiciousRatio: a listing costing less than this fraction of
	// market value is likely a part or misidentified item even when no
	// part keyword matched.
	DefaultSuspiciousRatio = 0.05
)

// Config holds the engine's tunable parameters. TaxRate and ThresholdPct
// are pointers so an explicit zero (no-sales-tax jurisdictions, zero-width
// fair band) is distinguishable from "use the default"; nil selects the
// default.
type Config struct {
	TaxRate         *float64
	ThresholdPct    *float64
	SuspiciousRatio float64
	PartKeywords    []string
}

func (c Config) withDefaults() Config {
	if c.TaxRate == nil {
		c.TaxRate = ptr(DefaultTaxRate)
	}
	if c.ThresholdPct == nil {
		c.ThresholdPct = ptr(DefaultThresholdPct)
	}
	if c.SuspiciousRatio == 0 {
		c.SuspiciousRatio = DefaultSuspiciousRatio
	}
	if c.PartKeywords == nil {
		c.PartKeywords = DefaultPartKeywords
	}
	return c
}

// Evaluator computes one Opportunity per listing. It holds no mutable
// state; evaluation is a pure function of the listing plus one oracle call.
type Evaluator struct {
	oracle oracle.Oracle
	cfg    Config
}

// NewEvaluator creates an evaluator backed by the given price oracle.
func NewEvaluator(o oracle.Oracle, cfg Config) *Evaluator {
	return &Evaluator{oracle: o, cfg: cfg.withDefaults()}
}

// Evaluate classifies a single listing of the given (already resolved)
// item type. Part-flagged watches short-circuit before the oracle is
// queried. Oracle transport errors are returned to the caller; the batch
// orchestrator converts them to per-item unknown results.
func (e *Evaluator) Evaluate(ctx context.Context, l Listing, typ itemtype.Type) (Opportunity, error) {
	taxRate := *e.cfg.TaxRate
	threshold := *e.cfg.ThresholdPct
	allInCost := l.Price + l.Shipping + round2(l.Price*taxRate)

	// Parts must never enter the spread calculation, and skipping the
	// oracle for them avoids a pointless paid lookup.
	if typ == itemtype.Watch {
		if check := detectPart(l.Title, e.cfg.PartKeywords); check.IsPart {
			log.Debug().Str("itemId", l.ItemID).Str("keyword", check.Keyword).Msg("watch part detected, skipping valuation")
			return Opportunity{
				ItemID:          l.ItemID,
				ValuationStatus: StatusUnknown,
				AllInCostUSD:    allInCost,
				RiskLevel:       RiskHigh,
				Confidence:      ConfidenceLow,
				PriceSource:     check.Reason,
			}, nil
		}
	}

	quote, err := e.lookup(ctx, l, typ)
	if err != nil {
		return Opportunity{}, fmt.Errorf("price lookup for %s: %w", l.ItemID, err)
	}

	opp := Opportunity{
		ItemID:         l.ItemID,
		AllInCostUSD:   allInCost,
		RiskLevel:      riskFromCondition(l.Condition),
		Confidence:     ConfidenceForSource(quote.Source),
		PriceSource:    quote.Source,
		ReferenceURL:   quote.ReferenceURL,
		RetailPriceUSD: quote.RetailPrice,
	}

	if !quote.HasMarketPrice() {
		opp.ValuationStatus = StatusUnknown
		opp.Confidence = ConfidenceLow
		opp.UndervaluedThreshold = ptr(threshold)
		opp.OvervaluedThreshold = ptr(-threshold)
		return opp, nil
	}

	marketPrice := *quote.MarketPrice
	opp.MarketPriceUSD = quote.MarketPrice

	// Second line of defense after the keyword detector: a watch selling
	// for a tiny fraction of market value is almost certainly a part or a
	// misidentified item with a generic title.
	if typ == itemtype.Watch && allInCost/marketPrice < e.cfg.SuspiciousRatio {
		log.Debug().
			Str("itemId", l.ItemID).
			Float64("ratio", allInCost/marketPrice).
			Msg("suspicious price ratio, treating as probable part")
		opp.ValuationStatus = StatusUnknown
		opp.RiskLevel = RiskHigh
		opp.Confidence = ConfidenceLow
		opp.PriceSource = quote.Source + " - Price suspiciously low, may be a watch part"
		return opp, nil
	}

	spread := marketPrice - allInCost
	spreadPct := spread / marketPrice * 100
	opp.SpreadUSD = &spread
	opp.SpreadPct = &spreadPct
	opp.UndervaluedThreshold = ptr(threshold)
	opp.OvervaluedThreshold = ptr(-threshold)

	// Positive spreadPct means the listing is below market. Boundary
	// values equal to the threshold trigger the respective bucket.
	switch {
	case spreadPct >= threshold:
		opp.ValuationStatus = StatusUndervalued
		opp.HasArbitrage = true
		opp.PotentialProfitUSD = &spread
	case spreadPct <= -threshold:
		opp.ValuationStatus = StatusOvervalued
		loss := math.Abs(spread)
		opp.PotentialLossUSD = &loss
	default:
		opp.ValuationStatus = StatusFairValue
	}

	return opp, nil
}

func (e *Evaluator) lookup(ctx context.Context, l Listing, typ itemtype.Type) (oracle.Quote, error) {
	if typ == itemtype.Card {
		return e.oracle.CardPrice(ctx, cardQueryFromListing(l))
	}
	return e.oracle.WatchPrice(ctx, l.Brand, l.Model, l.Title)
}

// cardQueryFromListing builds the card lookup query from the listing's
// structured aspects, falling back to the title.
func cardQueryFromListing(l Listing) oracle.CardQuery {
	q := oracle.CardQuery{Title: l.Title, Name: l.Title}
	if l.Aspects != nil {
		if v := l.Aspects["Card Name"]; v != "" {
			q.Name = v
		}
		if v := l.Aspects["Set"]; v != "" {
			q.Set = v
		}
		if v := l.Aspects["Year"]; v != "" {
			q.Year = v
		}
		if v := l.Aspects["Certification Number"]; v != "" {
			q.CertNumber = v
		}
		if v := l.Aspects["Features"]; v != "" {
			q.Edition = v
		}
	}
	q.Grade = extractGrade(l)
	return q
}

// ConfidenceForSource maps a price source tag to a confidence rating:
// structured databases are high, AI web search is medium, anything else
// (including no source) is low.
func ConfidenceForSource(source string) Confidence {
	switch {
	case strings.Contains(source, "Watch Database"),
		strings.Contains(source, "PSA Price Guide"):
		return ConfidenceHigh
	case strings.Contains(source, "AI"),
		strings.Contains(source, "web search"):
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// riskFromCondition derives a coarse risk rating from the listing
// condition text.
func riskFromCondition(condition string) RiskLevel {
	lower := strings.ToLower(condition)
	switch {
	case strings.Contains(lower, "new"), strings.Contains(lower, "graded"):
		return RiskLow
	case strings.Contains(lower, "poor"), strings.Contains(lower, "damaged"):
		return RiskHigh
	default:
		return RiskMedium
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func ptr(v float64) *float64 { return &v }
