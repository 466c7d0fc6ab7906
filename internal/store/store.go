// Package store binds the remote API resources to the query cache. Every read
// is a cached query that provides tags; every write is a mutation that
// invalidates tags, so dependent views refresh without manual coordination.
package store

import (
	"context"

	"github.com/safar/storefront/internal/api"
	"github.com/safar/storefront/internal/cache"
)

const (
	TagCart          = "Cart"
	TagOrders        = "Orders"
	TagUsers         = "Users"
	TagNotifications = "Notifications"
	TagReviews       = "Reviews"
	TagProducts      = "Products"
)

const (
	idMe     = "me"
	idList   = "LIST"
	idRecent = "RECENT"
)

type Store struct {
	client *api.Client
	cache  *cache.Cache
}

func New(client *api.Client, c *cache.Cache) *Store {
	return &Store{
		client: client,
		cache:  c,
	}
}

func (s *Store) Cache() *cache.Cache {
	return s.cache
}

// Reset drops every cached resource. Used on logout so the next account does
// not see the previous one's data.
func (s *Store) Reset() {
	s.cache.Reset()
}

func query[T any](s *Store, key string, tags func(T) []cache.Tag) cache.QueryDef[T] {
	return cache.QueryDef[T]{
		Key: key,
		Fetch: func(ctx context.Context) (T, error) {
			return api.Get[T](ctx, s.client, key)
		},
		Tags: tags,
	}
}

func static[T any](tags ...cache.Tag) func(T) []cache.Tag {
	return func(T) []cache.Tag { return tags }
}
