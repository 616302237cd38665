package arb

import (
	"fmt"
	"strings"
)

// DefaultPartKeywords flags watch listings that are spare parts or
// accessories rather than complete watches. Order matters: the first match
// wins and becomes the reason. The list is configuration data, tuned
// against observed false positives; override via Config.PartKeywords.
var DefaultPartKeywords = []string{
	"watch link", "watch links", "bracelet link",
	"oyster link", "jubilee link", "president link",
	"watch dial", "watch dials", "replacement dial",
	"watch bracelet", "replacement bracelet", "watch band",
	"watch bezel", "replacement bezel", "bezel insert",
	"watch crown", "replacement crown", "crown tube",
	"watch crystal", "replacement crystal", "sapphire crystal",
	"watch part", "watch parts", "spare part", "spare parts",
	"watch accessory", "watch accessories", "replacement part",
	"watch repair", "for repair", "parts only", "as is",
	"watch movement", "replacement movement", "movement only",
	"watch case", "case back", "caseback",
	"watch hands", "hour hand", "minute hand",
	"watch strap", "leather strap", "rubber strap",
	"watch buckle", "clasp", "deployant",
}

// PartCheck is the outcome of the part detector.
type PartCheck struct {
	IsPart  bool
	Keyword string
	Reason  string
}

// detectPart checks the title against the keyword list with
// case-insensitive substring matching. It runs before any market price
// lookup: part prices are incomparable with whole-watch market prices and
// must never enter the spread calculation.
func detectPart(title string, keywords []string) PartCheck {
	lower := strings.ToLower(title)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return PartCheck{
				IsPart:  true,
				Keyword: kw,
				Reason:  fmt.Sprintf("Watch part detected (%q) - not a full watch", kw),
			}
		}
	}
	return PartCheck{}
}
