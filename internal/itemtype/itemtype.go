// Package itemtype classifies marketplace listings as luxury watches or
// trading cards, either from a caller-supplied hint or by keyword scoring
// on the listing text.
package itemtype

import "strings"

// Type identifies the kind of collectible a listing represents.
type Type string

const (
	Watch Type = "watch"
	Card  Type = "trading_card"
	// Auto means the type should be derived from the listing text.
	Auto Type = "auto"
)

// eBay Browse API category IDs per item type.
const (
	WatchCategoryID = "260324"
	CardCategoryID  = "183454"
)

var watchKeywords = []string{
	"watch", "rolex", "omega", "seiko", "timepiece", "wristwatch",
	"submariner", "gmt", "datejust", "speedmaster",
}

var cardKeywords = []string{
	"card", "psa", "pokemon", "yugioh", "trading card", "sports card",
	"baseball card", "basketball card", "football card", "magic", "mtg",
}

// Detect scores the text against the watch and card keyword sets and
// returns the type with more matches. Ties default to Watch.
func Detect(text string) Type {
	lower := strings.ToLower(text)

	var watchScore, cardScore int
	for _, kw := range watchKeywords {
		if strings.Contains(lower, kw) {
			watchScore++
		}
	}
	for _, kw := range cardKeywords {
		if strings.Contains(lower, kw) {
			cardScore++
		}
	}

	if cardScore > watchScore {
		return Card
	}
	return Watch
}

// Resolve returns the hint when it is explicit, otherwise detects the type
// from the listing text.
func Resolve(hint Type, text string) Type {
	switch hint {
	case Watch, Card:
		return hint
	default:
		return Detect(text)
	}
}

// CategoryID returns the eBay category ID for the type, or empty for Auto.
func CategoryID(t Type) string {
	switch t {
	case Watch:
		return WatchCategoryID
	case Card:
		return CardCategoryID
	default:
		return ""
	}
}
