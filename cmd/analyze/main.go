package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/valuehound/valuehound/internal/arb"
	"github.com/valuehound/valuehound/internal/config"
	"github.com/valuehound/valuehound/internal/ebay"
	"github.com/valuehound/valuehound/internal/itemtype"
	"github.com/valuehound/valuehound/internal/oracle"
)

func main() {
	query := flag.String("q", "", "Search query (e.g. \"rolex submariner 16610\")")
	typeHint := flag.String("type", "", "Item type hint: watch or trading_card (default: detect from query)")
	limit := flag.Int("limit", 10, "Number of listings to analyze")
	rawJSON := flag.Bool("json", false, "Output raw JSON only")
	flag.Parse()

	if *query == "" {
		fmt.Fprintln(os.Stderr, "Error: -q is required")
		flag.Usage()
		os.Exit(1)
	}

	config.LoadEnvFile()
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if !cfg.HasEbayCredentials() {
		fmt.Fprintln(os.Stderr, "Error: eBay credentials not configured (EBAY_CLIENT_ID/EBAY_CLIENT_SECRET or EBAY_OAUTH)")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	search := ebay.NewClient(ebay.ClientOpts{
		ClientID:     cfg.EbayClientID,
		ClientSecret: cfg.EbayClientSecret,
		StaticToken:  cfg.EbayOAuth,
	})

	var watchDB oracle.Oracle
	if cfg.WatchDBBaseURL != "" {
		watchDB = oracle.NewWatchDB(oracle.WatchDBOpts{
			BaseURL: cfg.WatchDBBaseURL,
			APIKey:  cfg.WatchDBAPIKey,
		})
	}
	aiSearch, err := oracle.NewAISearch(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	analyzer := arb.NewAnalyzer(arb.NewEvaluator(oracle.NewChain(watchDB, aiSearch), arb.Config{
		TaxRate:      &cfg.TaxRate,
		ThresholdPct: &cfg.ThresholdPct,
	}))

	typ := itemtype.Resolve(itemtype.Type(*typeHint), *query)

	result, err := search.Search(ctx, ebay.SearchParams{
		Query:       *query,
		Limit:       *limit,
		CategoryIDs: itemtype.CategoryID(typ),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if len(result.Items) == 0 {
		fmt.Println("No listings found")
		return
	}

	results, summary := analyzer.Analyze(ctx, ebay.Listings(result.Items), typ)

	if *rawJSON {
		out := struct {
			Query    string       `json:"query"`
			ItemType string       `json:"item_type"`
			Listings []arb.Result `json:"listings"`
			Summary  arb.Summary  `json:"summary"`
		}{*query, string(typ), results, summary}
		jsonBytes, _ := json.MarshalIndent(out, "", "  ")
		fmt.Println(string(jsonBytes))
		return
	}

	fmt.Printf("Analyzed %d listings for %q (type: %s, %d total on eBay)\n", summary.Total, *query, typ, result.TotalFound)
	fmt.Printf("undervalued: %d, fair: %d, overvalued: %d, unknown: %d\n\n", summary.Undervalued, summary.FairValue, summary.Overvalued, summary.Unknown)

	for i, r := range results {
		fmt.Printf("%d. [%s] %s\n", i+1, r.Opportunity.ValuationStatus, r.Listing.Title)
		fmt.Printf("   $%.2f + $%.2f shipping, all-in $%.2f\n", r.Listing.Price, r.Listing.Shipping, r.Opportunity.AllInCostUSD)
		if r.Opportunity.MarketPriceUSD != nil {
			fmt.Printf("   market $%.2f", *r.Opportunity.MarketPriceUSD)
			if r.Opportunity.SpreadPct != nil {
				fmt.Printf(", spread %+.1f%%", *r.Opportunity.SpreadPct)
			}
			fmt.Printf(" (source: %s)\n", r.Opportunity.PriceSource)
		}
		fmt.Printf("   risk %s, confidence %s\n", r.Opportunity.RiskLevel, r.Opportunity.Confidence)
		if r.Listing.URL != "" {
			fmt.Printf("   %s\n", r.Listing.URL)
		}
	}
}
