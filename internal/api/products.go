package api

import (
	"context"
	"net/url"

	"github.com/example/skycart/internal/readmodel"
	"github.com/example/skycart/internal/validation"
)

func (c *Client) ListProducts(ctx context.Context, filter ProductFilter) (*readmodel.ProductList, error) {
	var list readmodel.ProductList
	if err := c.get(ctx, "products.list", "/products", filter.Values(), &list); err != nil {
		return nil, err
	}
	return &list, nil
}

func (c *Client) GetProduct(ctx context.Context, id string) (*readmodel.Product, error) {
	var product readmodel.Product
	if err := c.get(ctx, "products.get", "/products/"+escape(id), nil, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

func (c *Client) AdminListProducts(ctx context.Context, page, limit int) (*readmodel.ProductList, error) {
	var list readmodel.ProductList
	if err := c.get(ctx, "products.admin_list", "/products/admin/products", pageQuery(page, limit), &list); err != nil {
		return nil, err
	}
	return &list, nil
}

func (c *Client) CreateProduct(ctx context.Context, input ProductInput) (*readmodel.Product, error) {
	if err := validation.Struct(input); err != nil {
		return nil, err
	}
	var product readmodel.Product
	if err := c.post(ctx, "products.create", "/products/admin/product/new", input, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

func (c *Client) UpdateProduct(ctx context.Context, id string, input ProductInput) (*readmodel.Product, error) {
	if err := validation.Struct(input); err != nil {
		return nil, err
	}
	var product readmodel.Product
	if err := c.put(ctx, "products.update", "/products/admin/product/"+escape(id), input, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

func (c *Client) DeleteProduct(ctx context.Context, id string) (*readmodel.MessageResponse, error) {
	var resp readmodel.MessageResponse
	if err := c.delete(ctx, "products.delete", "/products/admin/product/"+escape(id), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) SubmitReview(ctx context.Context, productID string, req ReviewRequest) (*readmodel.MessageResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	var resp readmodel.MessageResponse
	if err := c.post(ctx, "products.review", "/products/"+escape(productID)+"/review", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeleteReview removes the caller's own review of a product.
func (c *Client) DeleteReview(ctx context.Context, productID string) (*readmodel.MessageResponse, error) {
	var resp readmodel.MessageResponse
	if err := c.delete(ctx, "products.delete_review", "/products/"+escape(productID)+"/review", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// AdminDeleteReviews is the moderation endpoint.
func (c *Client) AdminDeleteReviews(ctx context.Context, productID string) (*readmodel.MessageResponse, error) {
	var resp readmodel.MessageResponse
	q := url.Values{"productId": {productID}}
	if err := c.delete(ctx, "products.admin_delete_reviews", "/products/admin/reviews", q, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
