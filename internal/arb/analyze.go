package arb

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/valuehound/valuehound/internal/itemtype"
)

const (
	// DefaultBatchSize bounds concurrent oracle calls per batch.
	DefaultBatchSize = 5
	// DefaultBatchDelay is the pause between batches, a courtesy to the
	// oracle backends' rate limits.
	DefaultBatchDelay = 500 * time.Millisecond
)

// Analyzer runs the per-item valuation pipeline across a list of listings
// with bounded concurrency. One bad item never fails the batch.
type Analyzer struct {
	eval       *Evaluator
	batchSize  int
	batchDelay time.Duration
}

// NewAnalyzer creates a batch analyzer around the evaluator.
func NewAnalyzer(eval *Evaluator) *Analyzer {
	return &Analyzer{
		eval:       eval,
		batchSize:  DefaultBatchSize,
		batchDelay: DefaultBatchDelay,
	}
}

// WithBatching overrides batch size and inter-batch delay. Used by tests
// and callers with different rate budgets.
func (a *Analyzer) WithBatching(size int, delay time.Duration) *Analyzer {
	if size > 0 {
		a.batchSize = size
	}
	a.batchDelay = delay
	return a
}

// Analyze evaluates every listing and returns one result per input, in
// input order, plus aggregate bucket counts. Listings are processed in
// fixed-size batches; items within a batch run concurrently, and batch N+1
// does not start before batch N completes. Any per-item failure converts
// to an unknown/low-confidence result.
func (a *Analyzer) Analyze(ctx context.Context, listings []Listing, hint itemtype.Type) ([]Result, Summary) {
	log.Info().Int("count", len(listings)).Str("itemType", string(hint)).Msg("analyzing listings for arbitrage")

	results := make([]Result, len(listings))

	for start := 0; start < len(listings); start += a.batchSize {
		end := min(start+a.batchSize, len(listings))

		g := new(errgroup.Group)
		for i := start; i < end; i++ {
			g.Go(func() error {
				results[i] = a.analyzeOne(ctx, listings[i], hint)
				return nil
			})
		}
		// analyzeOne never returns an error; Wait just joins the batch.
		_ = g.Wait()

		if end < len(listings) && a.batchDelay > 0 {
			select {
			case <-ctx.Done():
				// Fill the remainder with unknown results rather than
				// returning a short slice.
				for i := end; i < len(listings); i++ {
					results[i] = Result{Listing: listings[i], Opportunity: fallbackOpportunity(listings[i])}
				}
				return results, Summarize(results)
			case <-time.After(a.batchDelay):
			}
		}
	}

	summary := Summarize(results)
	log.Info().
		Int("undervalued", summary.Undervalued).
		Int("overvalued", summary.Overvalued).
		Int("unknown", summary.Unknown).
		Int("total", summary.Total).
		Msg("arbitrage analysis complete")

	return results, summary
}

// analyzeOne wraps a single item's pipeline so that errors and panics
// convert to an unknown result. This is the backstop; explicit degradation
// in the oracle adapters is the first line of defense.
func (a *Analyzer) analyzeOne(ctx context.Context, l Listing, hint itemtype.Type) (res Result) {
	res.Listing = l

	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("itemId", l.ItemID).Any("panic", r).Msg("panic during item analysis")
			res.Opportunity = fallbackOpportunity(l)
		}
	}()

	typ := itemtype.Resolve(hint, l.Title)
	opp, err := a.eval.Evaluate(ctx, l, typ)
	if err != nil {
		log.Warn().Err(err).Str("itemId", l.ItemID).Msg("item analysis failed")
		res.Opportunity = fallbackOpportunity(l)
		return res
	}
	res.Opportunity = opp
	return res
}

// fallbackOpportunity is the per-item result when the pipeline failed
// outright: unknown status, low confidence, cost without tax estimate.
func fallbackOpportunity(l Listing) Opportunity {
	return Opportunity{
		ItemID:          l.ItemID,
		ValuationStatus: StatusUnknown,
		AllInCostUSD:    l.Price + l.Shipping,
		RiskLevel:       RiskMedium,
		Confidence:      ConfidenceLow,
	}
}
