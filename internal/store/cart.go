package store

import (
	"context"
	"net/url"

	"github.com/safar/storefront/internal/api"
	"github.com/safar/storefront/internal/cache"
	"github.com/safar/storefront/internal/models"
)

func (s *Store) CartQuery() cache.QueryDef[*models.Cart] {
	return query(s, "/cart", static[*models.Cart](cache.T(TagCart)))
}

func (s *Store) Cart(ctx context.Context) (*models.Cart, error) {
	return cache.Query(ctx, s.cache, s.CartQuery())
}

func (s *Store) AddToCart(ctx context.Context, req models.AddToCartRequest) (*models.Cart, error) {
	resp, err := cache.Mutate(ctx, s.cache, cache.MutationDef[models.APIResponse[*models.Cart]]{
		Name: "add to cart",
		Run: func(ctx context.Context) (models.APIResponse[*models.Cart], error) {
			return api.Post[models.APIResponse[*models.Cart]](ctx, s.client, "/cart", req)
		},
		Invalidates: static[models.APIResponse[*models.Cart]](cache.T(TagCart)),
	})
	return resp.Data, err
}

func (s *Store) UpdateCartItem(ctx context.Context, req models.UpdateCartItemRequest) (*models.Cart, error) {
	resp, err := cache.Mutate(ctx, s.cache, cache.MutationDef[models.APIResponse[*models.Cart]]{
		Name: "update cart item",
		Run: func(ctx context.Context) (models.APIResponse[*models.Cart], error) {
			return api.Put[models.APIResponse[*models.Cart]](ctx, s.client, "/cart", req)
		},
		Invalidates: static[models.APIResponse[*models.Cart]](cache.T(TagCart)),
	})
	return resp.Data, err
}

func (s *Store) RemoveCartItem(ctx context.Context, req models.RemoveCartItemRequest) error {
	params := url.Values{}
	params.Set("variant", req.Variant)
	params.Set("size", req.Size)
	path := "/cart/" + url.PathEscape(req.Product) + "?" + params.Encode()

	_, err := cache.Mutate(ctx, s.cache, cache.MutationDef[struct{}]{
		Name: "remove cart item",
		Run: func(ctx context.Context) (struct{}, error) {
			_, err := api.Delete[models.APIResponse[*models.Cart]](ctx, s.client, path)
			return struct{}{}, err
		},
		Invalidates: static[struct{}](cache.T(TagCart)),
	})
	return err
}

func (s *Store) ClearCart(ctx context.Context) error {
	_, err := cache.Mutate(ctx, s.cache, cache.MutationDef[struct{}]{
		Name: "clear cart",
		Run: func(ctx context.Context) (struct{}, error) {
			_, err := api.Delete[models.APIResponse[struct{}]](ctx, s.client, "/cart")
			return struct{}{}, err
		},
		Invalidates: static[struct{}](cache.T(TagCart)),
	})
	return err
}
