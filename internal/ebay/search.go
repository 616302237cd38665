package ebay

import (
	"context"
	"regexp"
	"strconv"

	"github.com/rs/zerolog/log"
)

const (
	defaultPageSize = 20
	maxPageSize     = 200

	// Auctions are excluded; a valuation against a running auction price
	// is meaningless.
	defaultFilter = "buyingOptions:{FIXED_PRICE}"
)

type SearchParams struct {
	Query       string
	Limit       int
	Offset      int
	CategoryIDs string
	// Filter overrides the default fixed-price-only filter.
	Filter string
}

type SearchResult struct {
	Items      []Item `json:"items"`
	Count      int    `json:"count"`
	TotalFound int    `json:"total_found"`
	Offset     int    `json:"offset"`
	Limit      int    `json:"limit"`
	HasMore    bool   `json:"has_more"`
}

type money struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

func (m money) amount() float64 {
	v, err := strconv.ParseFloat(m.Value, 64)
	if err != nil {
		return 0
	}
	return v
}

type imageRef struct {
	ImageURL string `json:"imageUrl"`
}

type localizedAspect struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type shippingOption struct {
	ShippingCost money `json:"shippingCost"`
}

type sellerRef struct {
	Username string `json:"username"`
}

type itemSummary struct {
	ItemID           string            `json:"itemId"`
	Title            string            `json:"title"`
	ItemWebURL       string            `json:"itemWebUrl"`
	Price            money             `json:"price"`
	Condition        string            `json:"condition"`
	ConditionID      string            `json:"conditionId"`
	Image            imageRef          `json:"image"`
	AdditionalImages []imageRef        `json:"additionalImages"`
	LocalizedAspects []localizedAspect `json:"localizedAspects"`
	ShippingOptions  []shippingOption  `json:"shippingOptions"`
	Seller           sellerRef         `json:"seller"`
}

type searchResponse struct {
	Total         int           `json:"total"`
	ItemSummaries []itemSummary `json:"itemSummaries"`
}

// Search runs a Browse API item summary search. Non-USD listings are
// dropped so downstream price math stays in one currency.
func (c *Client) Search(ctx context.Context, params SearchParams) (SearchResult, error) {
	limit := params.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	filter := params.Filter
	if filter == "" {
		filter = defaultFilter
	}

	query := map[string]string{
		"q":      params.Query,
		"limit":  strconv.Itoa(limit),
		"filter": filter,
	}
	if params.Offset > 0 {
		query["offset"] = strconv.Itoa(params.Offset)
	}
	if params.CategoryIDs != "" {
		query["category_ids"] = params.CategoryIDs
	}

	result := &searchResponse{}
	req, err := c.req(ctx, result)
	if err != nil {
		return SearchResult{}, err
	}
	if _, err := handleError(req.
		SetQueryParams(query).
		Get("/buy/browse/v1/item_summary/search")); err != nil {
		return SearchResult{}, err
	}

	items := make([]Item, 0, len(result.ItemSummaries))
	for _, summary := range result.ItemSummaries {
		if summary.Price.Currency != "" && summary.Price.Currency != "USD" {
			continue
		}
		items = append(items, summary.toItem())
	}

	searchResult := SearchResult{
		Items:      items,
		Count:      len(items),
		TotalFound: result.Total,
		Offset:     params.Offset,
		Limit:      limit,
		HasMore:    params.Offset+len(items) < result.Total,
	}

	log.Info().
		Str("query", params.Query).
		Str("categoryIds", params.CategoryIDs).
		Int("count", len(items)).
		Int("totalFound", result.Total).
		Msg("ebay search")

	return searchResult, nil
}

func (s itemSummary) toItem() Item {
	aspects := make(map[string]string, len(s.LocalizedAspects))
	for _, aspect := range s.LocalizedAspects {
		aspects[aspect.Name] = aspect.Value
	}

	var shipping float64
	if len(s.ShippingOptions) > 0 {
		shipping = s.ShippingOptions[0].ShippingCost.amount()
	}

	condition := s.Condition
	if condition == "" {
		condition = s.ConditionID
	}

	var images []string
	seen := map[string]bool{}
	appendImage := func(raw string) {
		if raw == "" {
			return
		}
		upgraded := upgradeImageURL(raw)
		if !seen[upgraded] {
			seen[upgraded] = true
			images = append(images, upgraded)
		}
	}
	appendImage(s.Image.ImageURL)
	for _, img := range s.AdditionalImages {
		appendImage(img.ImageURL)
	}

	item := Item{
		ItemID:    s.ItemID,
		Title:     s.Title,
		URL:       s.ItemWebURL,
		Price:     s.Price.amount(),
		Shipping:  shipping,
		Currency:  "USD",
		Condition: condition,
		Aspects:   aspects,
		Images:    images,
		Seller:    s.Seller.Username,
	}
	if len(images) > 0 {
		item.ImageURL = images[0]
	}
	return item
}

// eBay image URLs embed a size parameter (s-l225 thumbnail, s-l500,
// s-l1600 highest). Any recognized size is rewritten to s-l1600.
var imageSizeRes = []*regexp.Regexp{
	regexp.MustCompile(`s-l\d+`),
	regexp.MustCompile(`s-m\d+`),
	regexp.MustCompile(`s-\d+x\d+`),
}

func upgradeImageURL(url string) string {
	for _, re := range imageSizeRes {
		url = re.ReplaceAllString(url, "s-l1600")
	}
	return url
}
