package store

import (
	"context"
	"net/url"

	"github.com/safar/storefront/internal/cache"
	"github.com/safar/storefront/internal/models"
)

func (s *Store) ProductsQuery(q models.ProductQuery) cache.QueryDef[models.ProductPage] {
	return query(s, withQuery("/products", productValues(q)), func(page models.ProductPage) []cache.Tag {
		tags := make([]cache.Tag, 0, len(page.Items)+1)
		for _, p := range page.Items {
			tags = append(tags, cache.TID(TagProducts, p.ID))
		}
		return append(tags, cache.TID(TagProducts, idList))
	})
}

func (s *Store) Products(ctx context.Context, q models.ProductQuery) (models.ProductPage, error) {
	return cache.Query(ctx, s.cache, s.ProductsQuery(q))
}

func (s *Store) ProductQuery(id string) cache.QueryDef[*models.Product] {
	return query(s, "/products/"+url.PathEscape(id), static[*models.Product](cache.TID(TagProducts, id)))
}

func (s *Store) Product(ctx context.Context, id string) (*models.Product, error) {
	return cache.Query(ctx, s.cache, s.ProductQuery(id))
}
