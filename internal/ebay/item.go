package ebay

import "context"

// GetItem fetches full details for a single listing. The item detail
// endpoint shares field names with the search summaries, so the same wire
// shape decodes both.
func (c *Client) GetItem(ctx context.Context, itemID string) (Item, error) {
	result := &itemSummary{}
	req, err := c.req(ctx, result)
	if err != nil {
		return Item{}, err
	}

	if _, err := handleError(req.
		SetPathParams(map[string]string{"itemId": itemID}).
		Get("/buy/browse/v1/item/{itemId}")); err != nil {
		return Item{}, err
	}

	return result.toItem(), nil
}
