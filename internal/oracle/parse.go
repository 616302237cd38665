package oracle

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// aiQuotePayload is the JSON shape the estimator prompts ask for. Price
// fields are declared as any because models sometimes return them as
// strings ("12500.00") instead of numbers.
type aiQuotePayload struct {
	MarketPrice  any    `json:"market_price"`
	RetailPrice  any    `json:"retail_price"`
	Currency     string `json:"currency"`
	Source       string `json:"source"`
	Confidence   string `json:"confidence"`
	ReferenceURL string `json:"reference_url"`
}

var dollarAmountRe = regexp.MustCompile(`\$([\d,]+(?:\.\d{1,2})?)`)

// Dollar amounts outside this band are discarded by the text-extraction
// fallback; they are usually years, cert numbers or typos.
const (
	minPlausiblePrice = 100
	maxPlausiblePrice = 100000
)

// parseQuoteText parses a model response into a payload using a chain of
// strategies: direct JSON parse, JSON object extracted from surrounding
// prose, then bare dollar amounts averaged. Returns false when every
// strategy failed.
func parseQuoteText(text string) (aiQuotePayload, bool) {
	text = strings.TrimSpace(text)

	var payload aiQuotePayload
	if err := json.Unmarshal([]byte(text), &payload); err == nil {
		return payload, true
	}

	if jsonStr, ok := extractJSONObject(text); ok {
		if err := json.Unmarshal([]byte(jsonStr), &payload); err == nil {
			return payload, true
		}
	}

	if avg, ok := averageDollarAmounts(text); ok {
		// Retail is unknown at this point; estimate it 20% above market.
		return aiQuotePayload{
			MarketPrice: avg,
			RetailPrice: avg * 1.2,
			Currency:    "USD",
			Confidence:  "low",
			Source:      "extracted from text",
		}, true
	}

	return aiQuotePayload{}, false
}

// extractJSONObject finds a JSON object embedded in markdown or prose by
// taking the span from the first "{" to the last "}".
func extractJSONObject(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

// averageDollarAmounts extracts $1,234.56-style amounts from text, keeps
// the plausible ones and returns their average.
func averageDollarAmounts(text string) (float64, bool) {
	matches := dollarAmountRe.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return 0, false
	}

	var sum float64
	var n int
	for _, m := range matches {
		v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
		if err != nil {
			continue
		}
		if v > minPlausiblePrice && v < maxPlausiblePrice {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// coercePrice converts a JSON price value (number, numeric string, or nil)
// to a float pointer. Non-positive and unparseable values map to nil.
func coercePrice(v any) *float64 {
	var f float64
	switch t := v.(type) {
	case nil:
		return nil
	case float64:
		f = t
	case string:
		parsed, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimPrefix(strings.TrimSpace(t), "$"), ",", ""), 64)
		if err != nil {
			return nil
		}
		f = parsed
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	if f <= 0 {
		return nil
	}
	return &f
}
