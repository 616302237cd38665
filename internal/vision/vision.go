package vision

import (
	"context"
	"strings"

	"github.com/valuehound/valuehound/internal/itemtype"
	"github.com/valuehound/valuehound/internal/oracle"
)

// Identification contains structured information extracted from an item
// photo. Watch fields and card fields are mutually exclusive in practice;
// ItemType says which set is populated.
type Identification struct {
	ItemType itemtype.Type `json:"item_type"`

	// Watch fields
	Brand     string `json:"brand,omitempty"`
	Model     string `json:"model,omitempty"`
	Reference string `json:"reference_number,omitempty"`

	// Card fields
	CardName   string `json:"card_name,omitempty"`
	SetName    string `json:"set_name,omitempty"`
	CardNumber string `json:"card_number,omitempty"`
	Year       string `json:"year,omitempty"`
	Grade      string `json:"grade,omitempty"`
	CertNumber string `json:"cert_number,omitempty"`
	Edition    string `json:"edition,omitempty"`

	Condition   string `json:"condition,omitempty"`
	Description string `json:"description,omitempty"`
	SearchQuery string `json:"search_query,omitempty"`
	Confidence  string `json:"confidence,omitempty"`
}

// Query returns the marketplace search query for this item, falling back
// to the identifying fields when the model produced none.
func (id *Identification) Query() string {
	if q := strings.TrimSpace(id.SearchQuery); q != "" {
		return q
	}

	var parts []string
	switch id.ItemType {
	case itemtype.Card:
		for _, p := range []string{id.CardName, id.SetName, id.Grade} {
			if p != "" {
				parts = append(parts, p)
			}
		}
	default:
		for _, p := range []string{id.Brand, id.Model, id.Reference} {
			if p != "" {
				parts = append(parts, p)
			}
		}
	}
	return strings.Join(parts, " ")
}

// CardQuery maps the identification to a card price lookup.
func (id *Identification) CardQuery() oracle.CardQuery {
	return oracle.CardQuery{
		Name:       id.CardName,
		Set:        id.SetName,
		Grade:      id.Grade,
		CertNumber: id.CertNumber,
		Year:       id.Year,
		Edition:    id.Edition,
		Title:      id.Query(),
	}
}

// Usage contains token usage and cost information.
type Usage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
	CostUSD      float64
}

// Result contains the identification and usage information.
type Result struct {
	Item  *Identification
	Usage Usage
}

// Identifier can identify watches and trading cards from photos.
type Identifier interface {
	// IdentifyImage takes image data and returns a structured identification.
	IdentifyImage(ctx context.Context, imageData []byte, mimeType string) (*Result, error)
	// IdentifyImages identifies from multiple photos of the same item.
	IdentifyImages(ctx context.Context, images [][]byte) (*Result, error)
}
