package ebay

import "github.com/valuehound/valuehound/internal/arb"

// Item is a normalized eBay listing with prices in USD.
type Item struct {
	ItemID    string            `json:"item_id"`
	Title     string            `json:"title"`
	URL       string            `json:"url"`
	Price     float64           `json:"price"`
	Shipping  float64           `json:"shipping"`
	Currency  string            `json:"currency"`
	Condition string            `json:"item_condition,omitempty"`
	Aspects   map[string]string `json:"aspects"`
	// ImageURL is the primary image upgraded to the highest quality size.
	ImageURL string   `json:"image_url,omitempty"`
	Images   []string `json:"images,omitempty"`
	Seller   string   `json:"seller_username,omitempty"`
}

// Listing converts the item to the valuation engine's input shape. Brand
// and model come from the listing aspects when the seller filled them in.
func (it Item) Listing() arb.Listing {
	return arb.Listing{
		ItemID:    it.ItemID,
		Title:     it.Title,
		URL:       it.URL,
		Price:     it.Price,
		Shipping:  it.Shipping,
		Currency:  it.Currency,
		Condition: it.Condition,
		Brand:     it.Aspects["Brand"],
		Model:     it.Aspects["Model"],
		Aspects:   it.Aspects,
		ImageURL:  it.ImageURL,
	}
}

// Listings converts a result page for the valuation engine.
func Listings(items []Item) []arb.Listing {
	listings := make([]arb.Listing, len(items))
	for i, it := range items {
		listings[i] = it.Listing()
	}
	return listings
}
