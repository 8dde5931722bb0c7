package api

import (
	"context"
	"fmt"
)

// ListProducts fetches the catalog. No authentication required.
func (c *Client) ListProducts(ctx context.Context) ([]Product, error) {
	var products []Product
	if err := c.do(ctx, "GET", c.baseURL+"/products", "", nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// ConfirmOrder turns the current cart into an order.
func (c *Client) ConfirmOrder(ctx context.Context, req ConfirmOrderRequest) (*OrderConfirmation, error) {
	var conf OrderConfirmation
	if err := c.authed(ctx, "POST", c.baseURL+"/orders/confirm", req, &conf); err != nil {
		return nil, err
	}
	return &conf, nil
}

// ListOrders fetches the authenticated user's order history.
func (c *Client) ListOrders(ctx context.Context) ([]Order, error) {
	var orders []Order
	if err := c.authed(ctx, "GET", c.baseURL+"/orders", nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// MenuItems fetches the role-based navigation entries. The response is
// wrapped in a {success, data} envelope; anything else is malformed.
func (c *Client) MenuItems(ctx context.Context) ([]MenuItem, error) {
	var env menuEnvelope
	if err := c.authed(ctx, "GET", c.baseURL+"/menu/items", nil, &env); err != nil {
		return nil, err
	}
	if !env.Success || env.Data == nil {
		return nil, fmt.Errorf("malformed menu response")
	}
	return env.Data, nil
}
