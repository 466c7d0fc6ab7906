package store

import (
	"context"
	"net/url"

	"github.com/safar/storefront/internal/api"
	"github.com/safar/storefront/internal/cache"
	"github.com/safar/storefront/internal/models"
)

const recentOrdersLimit = 5

func orderTags(orders []models.Order) []cache.Tag {
	tags := make([]cache.Tag, 0, len(orders)+1)
	for _, o := range orders {
		tags = append(tags, cache.TID(TagOrders, o.ID))
	}
	return append(tags, cache.TID(TagOrders, idList))
}

func (s *Store) OrdersQuery() cache.QueryDef[[]models.Order] {
	return query(s, "/orders", orderTags)
}

func (s *Store) Orders(ctx context.Context) ([]models.Order, error) {
	return cache.Query(ctx, s.cache, s.OrdersQuery())
}

func (s *Store) RecentOrdersQuery() cache.QueryDef[[]models.Order] {
	return query(s, "/orders?"+limitValues(recentOrdersLimit).Encode(), orderTags)
}

func (s *Store) RecentOrders(ctx context.Context) ([]models.Order, error) {
	return cache.Query(ctx, s.cache, s.RecentOrdersQuery())
}

func (s *Store) OrderQuery(id string) cache.QueryDef[*models.Order] {
	return query(s, "/orders/"+url.PathEscape(id), static[*models.Order](cache.TID(TagOrders, id)))
}

func (s *Store) Order(ctx context.Context, id string) (*models.Order, error) {
	return cache.Query(ctx, s.cache, s.OrderQuery(id))
}

// CreateOrder submits a draft. Success also invalidates the current user,
// whose loyalty balance the server may have changed.
func (s *Store) CreateOrder(ctx context.Context, draft models.OrderDraft) (*models.Order, error) {
	return cache.Mutate(ctx, s.cache, cache.MutationDef[*models.Order]{
		Name: "create order",
		Run: func(ctx context.Context) (*models.Order, error) {
			return api.Post[*models.Order](ctx, s.client, "/orders", draft)
		},
		Invalidates: static[*models.Order](cache.T(TagOrders), cache.TID(TagUsers, idMe)),
	})
}

func (s *Store) UpdateOrder(ctx context.Context, id string, req models.UpdateOrderRequest) (*models.Order, error) {
	return cache.Mutate(ctx, s.cache, cache.MutationDef[*models.Order]{
		Name: "update order",
		Run: func(ctx context.Context) (*models.Order, error) {
			return api.Put[*models.Order](ctx, s.client, "/orders/"+url.PathEscape(id), req)
		},
		Invalidates: static[*models.Order](cache.TID(TagOrders, id), cache.TID(TagOrders, idList)),
	})
}

func (s *Store) DeleteOrder(ctx context.Context, id string) error {
	_, err := cache.Mutate(ctx, s.cache, cache.MutationDef[struct{}]{
		Name: "delete order",
		Run: func(ctx context.Context) (struct{}, error) {
			_, err := api.Delete[struct{}](ctx, s.client, "/orders/"+url.PathEscape(id))
			return struct{}{}, err
		},
		Invalidates: static[struct{}](cache.TID(TagOrders, id), cache.TID(TagOrders, idList)),
	})
	return err
}
