package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// ProductQuery mirrors the catalog filters of GET /products.
type ProductQuery struct {
	Page     int
	Keyword  string
	Category string
	MinPrice *float64
	MaxPrice *float64
	Sort     string
}

func (q ProductQuery) values() url.Values {
	v := pageQuery(q.Page)
	if q.Keyword != "" {
		v.Set("keyword", q.Keyword)
	}
	if q.Category != "" {
		v.Set("category", q.Category)
	}
	if q.MinPrice != nil {
		v.Set("minPrice", strconv.FormatFloat(*q.MinPrice, 'f', -1, 64))
	}
	if q.MaxPrice != nil {
		v.Set("maxPrice", strconv.FormatFloat(*q.MaxPrice, 'f', -1, 64))
	}
	if q.Sort != "" {
		v.Set("sort", q.Sort)
	}
	return v
}

func (c *Client) ListProducts(ctx context.Context, q ProductQuery) (*ProductPage, error) {
	var res ProductPage
	if err := c.do(ctx, request{method: http.MethodGet, path: "/products", query: q.values()}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) TopProducts(ctx context.Context) ([]Product, error) {
	var res []Product
	if err := c.do(ctx, request{method: http.MethodGet, path: "/products/top"}, &res); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *Client) Categories(ctx context.Context) ([]string, error) {
	var res []string
	if err := c.do(ctx, request{method: http.MethodGet, path: "/products/categories"}, &res); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *Client) GetProduct(ctx context.Context, id string) (*Product, error) {
	var product Product
	if err := c.do(ctx, request{method: http.MethodGet, path: "/products/" + id}, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

func (c *Client) CreateProduct(ctx context.Context, in ProductInput) (*Product, error) {
	var product Product
	if err := c.do(ctx, request{method: http.MethodPost, path: "/products", body: in}, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

func (c *Client) UpdateProduct(ctx context.Context, id string, in ProductInput) (*Product, error) {
	var product Product
	if err := c.do(ctx, request{method: http.MethodPut, path: "/products/" + id, body: in}, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

func (c *Client) DeleteProduct(ctx context.Context, id string) error {
	return c.do(ctx, request{method: http.MethodDelete, path: "/products/" + id}, nil)
}

func (c *Client) RateProduct(ctx context.Context, id string, rating int, review string) (*Product, error) {
	var product Product
	in := RatingInput{Rating: rating, Review: review}
	if err := c.do(ctx, request{method: http.MethodPost, path: "/products/" + id + "/ratings", body: in}, &product); err != nil {
		return nil, err
	}
	return &product, nil
}
