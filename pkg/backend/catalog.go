package backend

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/datx24/storefront/pkg/models"
)

func (c *Client) Categories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	if err := c.getResource(ctx, "/categories", nil, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

func (c *Client) Category(ctx context.Context, id int64) (*models.Category, error) {
	var category models.Category
	if err := c.getResource(ctx, fmt.Sprintf("/categories/%d", id), nil, &category); err != nil {
		return nil, err
	}
	return &category, nil
}

func (c *Client) Products(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if err := c.getResource(ctx, "/products", nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (c *Client) Product(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	if err := c.getResource(ctx, fmt.Sprintf("/products/%d", id), nil, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

func (c *Client) ProductBySlug(ctx context.Context, slug string) (*models.Product, error) {
	var product models.Product
	if err := c.getResource(ctx, "/products/slug/"+url.PathEscape(slug), nil, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

// CategoryProducts fetches one page of a category filtered by price
func (c *Client) CategoryProducts(ctx context.Context, q models.CategoryProductsQuery) (*models.CategoryProducts, error) {
	page := q.Page
	if page < 1 {
		page = 1
	}
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("min_price", strconv.FormatInt(q.MinPrice, 10))
	query.Set("max_price", strconv.FormatInt(q.MaxPrice, 10))

	var result models.CategoryProducts
	if err := c.getJSON(ctx, "/products/category/"+url.PathEscape(q.Slug), query, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) PriceRange(ctx context.Context, slug string) (*models.PriceRange, error) {
	var pr models.PriceRange
	if err := c.getJSON(ctx, "/products/category/"+url.PathEscape(slug)+"/price-range", nil, &pr); err != nil {
		return nil, err
	}
	return &pr, nil
}
