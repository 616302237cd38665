package oracle

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

const aiSearchModel = "gemini-2.5-flash-lite"

const watchPricePrompt = `You are an expert watch market analyst. Use web search to find the current market price for this watch from WatchCharts, Chrono24, and other reliable watch marketplaces.

Watch Details:
- Brand: %s
- Model: %s
- Reference: %s
- Full Title: %s

Search the web for: %q

Extract the actual market price from the search results:
1. WatchCharts.com - market price, price index, or current value (most reliable)
2. Chrono24.com - current listings and sold prices
3. eBay sold listings - average sold prices

Look for specific dollar amounts in the results. If you find multiple prices, calculate the average. Focus on the current market value (what the watch actually sells for), not the retail/MSRP price.

Return ONLY a JSON object with this exact format:
{"market_price": 12500.00, "retail_price": 15000.00, "currency": "USD", "source": "WatchCharts/Chrono24 web search", "confidence": "high", "reference_url": "https://watchcharts.com/..."}

For "reference_url": only include a WatchCharts.com URL that actually appears in the search results. Do not construct or guess URLs; use null when none appeared.

If you cannot find prices through web search, return:
{"market_price": null, "retail_price": null, "currency": null, "source": null, "confidence": "low", "reference_url": null}

Return ONLY the JSON, nothing else.`

const cardPricePrompt = `Search the web for the current market price of this trading card: %q

Look for:
1. PSA Price Guide prices (if graded)
2. Recent eBay sold listings
3. PriceCharting.com prices

Return ONLY a JSON object with this exact format:
{"market_price": 500.00, "retail_price": null, "currency": "USD", "source": "PSA Price Guide", "confidence": "high", "reference_url": "https://www.psacard.com/..."}

- market_price: current market value in USD (number, or null if not found)
- retail_price: retail/ungraded card price if available (number, or null)
- source: where you found the price (e.g. "PSA Price Guide", "eBay sold listings", "PriceCharting")
- confidence: "high", "medium", or "low"
- reference_url: a PSA Price Guide URL if one appeared in the results, else null

Focus on actual sold prices from recent listings, not asking prices. If the card is PSA graded, prioritize PSA Price Guide data.

Return ONLY the JSON, nothing else.`

// watchReferenceRe matches watch reference numbers like 126710BLNR.
var watchReferenceRe = regexp.MustCompile(`\b\d{6}[A-Z]*\b`)

// AISearch estimates market prices with a web-search-grounded Gemini call.
// It implements Oracle as the fallback strategy for watches and the only
// strategy for trading cards.
type AISearch struct {
	client *genai.Client
	model  string
}

// NewAISearch creates an AI-search price estimator. It uses the
// GEMINI_API_KEY environment variable for authentication.
func NewAISearch(ctx context.Context) (*AISearch, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: os.Getenv("GEMINI_API_KEY"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &AISearch{client: client, model: aiSearchModel}, nil
}

// WatchPrice estimates a watch's market price via web search.
func (a *AISearch) WatchPrice(ctx context.Context, brand, model, title string) (Quote, error) {
	reference := watchReferenceRe.FindString(title)

	searchQuery := strings.TrimSpace(fmt.Sprintf("%s %s %s price", brand, model, reference))
	prompt := fmt.Sprintf(watchPricePrompt,
		orUnknown(brand), orUnknown(model), orUnknown(reference), title, searchQuery)

	quote, err := a.estimate(ctx, prompt)
	if err != nil {
		return Quote{}, err
	}

	quote.ReferenceURL = validateWatchChartsURL(quote.ReferenceURL)
	if quote.ReferenceURL == "" {
		quote.ReferenceURL = watchChartsSearchURL(brand, model, reference)
	}
	return quote, nil
}

// CardPrice estimates a trading card's market price via web search.
func (a *AISearch) CardPrice(ctx context.Context, q CardQuery) (Quote, error) {
	var parts []string
	for _, p := range []string{q.Name, q.Set, q.Grade, q.Year} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if strings.Contains(strings.ToLower(q.Edition), "1st") {
		parts = append(parts, "1st Edition")
	}
	searchQuery := strings.Join(parts, " ")
	if searchQuery == "" {
		searchQuery = q.Title
	}

	quote, err := a.estimate(ctx, fmt.Sprintf(cardPricePrompt, searchQuery))
	if err != nil {
		return Quote{}, err
	}

	quote.ReferenceURL = validatePSAURL(quote.ReferenceURL)
	return quote, nil
}

// estimate runs the prompt with Google Search grounding and parses the
// response with the cascading parse strategies. A response no strategy can
// parse degrades to an unavailable quote; only transport failures error.
func (a *AISearch) estimate(ctx context.Context, prompt string) (Quote, error) {
	config := &genai.GenerateContentConfig{
		Tools: []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}},
	}

	result, err := a.client.Models.GenerateContent(ctx, a.model, []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{genai.NewPartFromText(prompt)}, genai.RoleUser),
	}, config)
	if err != nil {
		return Quote{}, fmt.Errorf("price estimation call failed: %w", err)
	}

	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		log.Warn().Msg("empty response from price estimator")
		return unavailableQuote(), nil
	}

	text := result.Text()
	payload, ok := parseQuoteText(text)
	if !ok {
		log.Warn().Str("response", truncate(text, 200)).Msg("could not extract price from estimator response")
		return unavailableQuote(), nil
	}

	quote := Quote{
		MarketPrice:  coercePrice(payload.MarketPrice),
		RetailPrice:  coercePrice(payload.RetailPrice),
		Source:       sourceTag(payload.Confidence),
		ReferenceURL: payload.ReferenceURL,
	}

	if result.UsageMetadata != nil {
		log.Info().
			Str("model", a.model).
			Int("inputTokens", int(result.UsageMetadata.PromptTokenCount)).
			Int("outputTokens", int(result.UsageMetadata.CandidatesTokenCount)).
			Bool("hasMarketPrice", quote.HasMarketPrice()).
			Msg("price estimation llm call")
	}

	return quote, nil
}

// sourceTag builds the provenance string for AI-estimated quotes. The
// "AI web search" marker is what maps these quotes to medium confidence.
func sourceTag(confidence string) string {
	if confidence != "" {
		return fmt.Sprintf("AI web search - %s confidence", confidence)
	}
	return "AI web search"
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

// validateWatchChartsURL keeps the URL only when it points at
// watchcharts.com and does not look like a constructed
// /watch/brand/model/reference path, which models tend to invent.
func validateWatchChartsURL(raw string) string {
	if raw == "" || raw == "null" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || !strings.Contains(u.Hostname(), "watchcharts.com") {
		return ""
	}
	path := strings.ToLower(u.Path)
	segments := strings.Count(strings.Trim(path, "/"), "/")
	if strings.HasPrefix(path, "/watch/") && segments >= 2 {
		return ""
	}
	return raw
}

// watchChartsSearchURL constructs a search URL as a fallback reference
// when the model produced no usable link.
func watchChartsSearchURL(brand, model, reference string) string {
	query := strings.TrimSpace(brand + " " + reference)
	if reference == "" {
		query = strings.TrimSpace(brand + " " + model)
	}
	if query == "" {
		return ""
	}
	return "https://watchcharts.com/watches?search=" + url.QueryEscape(query)
}

// validatePSAURL keeps the URL only when it points at a PSA domain.
func validatePSAURL(raw string) string {
	if raw == "" || raw == "null" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	host := u.Hostname()
	if strings.Contains(host, "psacard.com") || strings.Contains(host, "psa.com") {
		return raw
	}
	return ""
}

// truncate shortens s to at most n runes. Byte slicing would split
// multi-byte characters, which show up in estimator responses.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
