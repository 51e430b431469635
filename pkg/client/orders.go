package client

import (
	"context"
	"net/http"
)

// PlaceOrder submits an order. A non-empty idempotencyKey makes retries of the
// same checkout safe.
func (c *Client) PlaceOrder(ctx context.Context, in PlaceOrderInput, idempotencyKey string) (*Order, error) {
	var order Order
	r := request{method: http.MethodPost, path: "/orders", body: in}
	if idempotencyKey != "" {
		r.headers = map[string]string{"Idempotency-Key": idempotencyKey}
	}
	if err := c.do(ctx, r, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *Client) MyOrders(ctx context.Context, page int) (*OrderPage, error) {
	var res OrderPage
	if err := c.do(ctx, request{method: http.MethodGet, path: "/orders/myorders", query: pageQuery(page)}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) GetOrder(ctx context.Context, id string) (*Order, error) {
	var order Order
	if err := c.do(ctx, request{method: http.MethodGet, path: "/orders/" + id}, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// ListOrders is admin only; an empty status lists every order.
func (c *Client) ListOrders(ctx context.Context, status OrderStatus, page int) (*OrderPage, error) {
	q := pageQuery(page)
	if status != "" {
		q.Set("status", string(status))
	}
	var res OrderPage
	if err := c.do(ctx, request{method: http.MethodGet, path: "/orders", query: q}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) UpdateOrderStatus(ctx context.Context, id string, status OrderStatus, note string) (*Order, error) {
	var order Order
	in := StatusInput{Status: status, Note: note}
	if err := c.do(ctx, request{method: http.MethodPut, path: "/orders/" + id + "/status", body: in}, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *Client) PayOrder(ctx context.Context, id string, in PaymentInput) (*Order, error) {
	var order Order
	if err := c.do(ctx, request{method: http.MethodPut, path: "/orders/" + id + "/pay", body: in}, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *Client) SetTracking(ctx context.Context, id, trackingNumber string) (*Order, error) {
	var order Order
	in := TrackingInput{TrackingNumber: trackingNumber}
	if err := c.do(ctx, request{method: http.MethodPut, path: "/orders/" + id + "/tracking", body: in}, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *Client) CancelOrder(ctx context.Context, id, note string) (*Order, error) {
	var order Order
	in := map[string]string{"note": note}
	if err := c.do(ctx, request{method: http.MethodPut, path: "/orders/" + id + "/cancel", body: in}, &order); err != nil {
		return nil, err
	}
	return &order, nil
}
