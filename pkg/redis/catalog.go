package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	redisclient "github.com/redis/go-redis/v9"

	"github.com/datx24/storefront/pkg/models"
)

const DefaultCatalogTTL = 5 * time.Minute

// CatalogSource is the upstream the cache reads through to.
type CatalogSource interface {
	Categories(ctx context.Context) ([]models.Category, error)
	Product(ctx context.Context, id int64) (*models.Product, error)
	ProductBySlug(ctx context.Context, slug string) (*models.Product, error)
	CategoryProducts(ctx context.Context, q models.CategoryProductsQuery) (*models.CategoryProducts, error)
	PriceRange(ctx context.Context, slug string) (*models.PriceRange, error)
}

// CachedCatalog caches products and category price ranges. Product documents live
// under product:{id}, with product-slug:{slug} pointing at the id. Listings are not
// cached. Redis failures are logged and the upstream answers instead.
type CachedCatalog struct {
	next   CatalogSource
	client *redisclient.Client
	ttl    time.Duration
}

func NewCachedCatalog(next CatalogSource, client *redisclient.Client, ttl time.Duration) *CachedCatalog {
	if ttl <= 0 {
		ttl = DefaultCatalogTTL
	}
	return &CachedCatalog{next: next, client: client, ttl: ttl}
}

func (c *CachedCatalog) Categories(ctx context.Context) ([]models.Category, error) {
	return c.next.Categories(ctx)
}

func (c *CachedCatalog) CategoryProducts(ctx context.Context, q models.CategoryProductsQuery) (*models.CategoryProducts, error) {
	return c.next.CategoryProducts(ctx, q)
}

func (c *CachedCatalog) PriceRange(ctx context.Context, slug string) (*models.PriceRange, error) {
	key := priceRangeKey(slug)

	var cached models.PriceRange
	if c.load(ctx, key, &cached) {
		return &cached, nil
	}

	priceRange, err := c.next.PriceRange(ctx, slug)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, priceRange)
	return priceRange, nil
}

func (c *CachedCatalog) Product(ctx context.Context, id int64) (*models.Product, error) {
	product, _, err := c.ProductWithStatus(ctx, id)
	return product, err
}

// ProductWithStatus also reports whether the product came from the cache.
func (c *CachedCatalog) ProductWithStatus(ctx context.Context, id int64) (*models.Product, bool, error) {
	var cached models.Product
	if c.load(ctx, productKey(id), &cached) {
		return &cached, true, nil
	}

	product, err := c.next.Product(ctx, id)
	if err != nil {
		return nil, false, err
	}
	c.cacheProduct(ctx, product)
	return product, false, nil
}

func (c *CachedCatalog) ProductBySlug(ctx context.Context, slug string) (*models.Product, error) {
	product, _, err := c.ProductBySlugWithStatus(ctx, slug)
	return product, err
}

func (c *CachedCatalog) ProductBySlugWithStatus(ctx context.Context, slug string) (*models.Product, bool, error) {
	id, err := c.client.Get(ctx, productSlugKey(slug)).Int64()
	if err == nil {
		var cached models.Product
		if c.load(ctx, productKey(id), &cached) {
			return &cached, true, nil
		}
	} else if !errors.Is(err, redisclient.Nil) {
		log.Printf("Warning: catalog cache lookup for %s failed: %v", slug, err)
	}

	product, err := c.next.ProductBySlug(ctx, slug)
	if err != nil {
		return nil, false, err
	}
	c.cacheProduct(ctx, product)
	return product, false, nil
}

// InvalidateProduct drops a product and its slug mapping after an admin write.
func (c *CachedCatalog) InvalidateProduct(ctx context.Context, id int64) error {
	var cached models.Product
	found := c.load(ctx, productKey(id), &cached)

	pipe := c.client.TxPipeline()
	pipe.Del(ctx, productKey(id))
	if found && cached.Slug != "" {
		pipe.Del(ctx, productSlugKey(cached.Slug))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to invalidate product %d: %w", id, err)
	}
	return nil
}

// InvalidatePriceRanges drops every cached price range, used when a product price
// or category assignment may have changed.
func (c *CachedCatalog) InvalidatePriceRanges(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, "price-range:*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan price ranges: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

func (c *CachedCatalog) cacheProduct(ctx context.Context, product *models.Product) {
	payload, err := json.Marshal(product)
	if err != nil {
		return
	}

	pipe := c.client.TxPipeline()
	pipe.Set(ctx, productKey(product.ID), payload, c.ttl)
	if product.Slug != "" {
		pipe.Set(ctx, productSlugKey(product.Slug), product.ID, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("Warning: Failed to cache product %d: %v", product.ID, err)
	}
}

func (c *CachedCatalog) load(ctx context.Context, key string, dst interface{}) bool {
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redisclient.Nil) {
		return false
	}
	if err != nil {
		log.Printf("Warning: catalog cache read %s failed: %v", key, err)
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		log.Printf("Warning: dropping corrupt cache entry %s: %v", key, err)
		c.client.Del(ctx, key)
		return false
	}
	return true
}

func (c *CachedCatalog) store(ctx context.Context, key string, value interface{}) {
	payload, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		log.Printf("Warning: Failed to cache %s: %v", key, err)
	}
}

func productKey(id int64) string {
	return "product:" + strconv.FormatInt(id, 10)
}

func productSlugKey(slug string) string {
	return "product-slug:" + slug
}

func priceRangeKey(slug string) string {
	return "price-range:" + slug
}
