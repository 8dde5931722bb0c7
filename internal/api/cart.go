package api

import "context"

// GetCart fetches the full remote cart.
func (c *Client) GetCart(ctx context.Context) ([]CartItem, error) {
	var payload cartPayload
	if err := c.authed(ctx, "GET", c.baseURL+"/cart", nil, &payload); err != nil {
		return nil, err
	}
	return payload.Items, nil
}

// AddCartItem posts a new line to the cart. The server may coalesce by
// productId, so callers reconcile with GetCart rather than trusting the
// returned item.
func (c *Client) AddCartItem(ctx context.Context, productID int64, cantidad int) (*CartItem, error) {
	body := map[string]interface{}{"productId": productID, "cantidad": cantidad}
	var item CartItem
	if err := c.authed(ctx, "POST", c.baseURL+"/cart/items", body, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// UpdateCartItem sets the quantity of an existing line.
func (c *Client) UpdateCartItem(ctx context.Context, itemID int64, cantidad int) error {
	body := map[string]int{"cantidad": cantidad}
	return c.authed(ctx, "PUT", c.baseURL+"/cart/items/"+itoa(itemID), body, nil)
}

// RemoveCartItem deletes one line from the cart.
func (c *Client) RemoveCartItem(ctx context.Context, itemID int64) error {
	body := map[string]int64{"itemId": itemID}
	return c.authed(ctx, "DELETE", c.baseURL+"/cart/items/"+itoa(itemID), body, nil)
}

// ClearCart deletes the whole cart resource.
func (c *Client) ClearCart(ctx context.Context) error {
	return c.authed(ctx, "DELETE", c.baseURL+"/cart", nil, nil)
}
