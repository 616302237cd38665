package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/valuehound/valuehound/internal/arb"
	"github.com/valuehound/valuehound/internal/ebay"
	"github.com/valuehound/valuehound/internal/itemtype"
)

const (
	defaultAnalyzeLimit = 20
	maxAnalyzeLimit     = 50
)

type analyzeRequest struct {
	Query    string `json:"query" binding:"required"`
	ItemType string `json:"item_type"`
	Limit    int    `json:"limit"`

	// Optional per-request overrides of the engine defaults.
	TaxRate      *float64 `json:"tax_rate"`
	ThresholdPct *float64 `json:"threshold_pct"`
}

type analyzeResponse struct {
	Query    string        `json:"query"`
	ItemType itemtype.Type `json:"item_type"`
	Listings []arb.Result  `json:"listings"`
	Summary  arb.Summary   `json:"summary"`
}

func (h *Handler) analyze(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}

	limit := req.Limit
	if limit <= 0 {
		limit = defaultAnalyzeLimit
	}
	if limit > maxAnalyzeLimit {
		limit = maxAnalyzeLimit
	}

	typ := itemtype.Resolve(itemtype.Type(req.ItemType), req.Query)

	results, err := h.Search.Search(c.Request.Context(), ebay.SearchParams{
		Query:       req.Query,
		Limit:       limit,
		CategoryIDs: itemtype.CategoryID(typ),
	})
	if err != nil {
		log.Error().Err(err).Str("query", req.Query).Msg("analyze search failed")
		Error(c, http.StatusBadGateway, "ebay search failed", map[string]any{"error": err.Error()})
		return
	}

	// An explicit zero override is meaningful (no-sales-tax jurisdictions),
	// so the pointers carry through as-is.
	cfg := h.Cfg
	if req.TaxRate != nil {
		cfg.TaxRate = req.TaxRate
	}
	if req.ThresholdPct != nil {
		cfg.ThresholdPct = req.ThresholdPct
	}
	analyzer := arb.NewAnalyzer(arb.NewEvaluator(h.Oracle, cfg))

	listings, summary := analyzer.Analyze(c.Request.Context(), ebay.Listings(results.Items), typ)

	Ok(c, analyzeResponse{
		Query:    req.Query,
		ItemType: typ,
		Listings: listings,
		Summary:  summary,
	}, map[string]any{
		"total_found": results.TotalFound,
		"has_more":    results.HasMore,
	})
}

func (h *Handler) getItem(c *gin.Context) {
	itemID := c.Param("id")
	if itemID == "" {
		Error(c, http.StatusBadRequest, "missing item id", nil)
		return
	}

	item, err := h.Search.GetItem(c.Request.Context(), itemID)
	if err != nil {
		log.Error().Err(err).Str("itemId", itemID).Msg("item lookup failed")
		Error(c, http.StatusBadGateway, "ebay item lookup failed", map[string]any{"error": err.Error()})
		return
	}

	Ok(c, item, nil)
}
