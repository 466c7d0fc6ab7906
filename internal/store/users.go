package store

import (
	"context"
	"net/url"

	"github.com/safar/storefront/internal/api"
	"github.com/safar/storefront/internal/cache"
	"github.com/safar/storefront/internal/models"
)

type UpdateUserRequest struct {
	Name      *string  `json:"name,omitempty"`
	Roles     []string `json:"roles,omitempty"`
	IsBlocked *bool    `json:"isBlocked,omitempty"`
}

func (s *Store) CurrentUserQuery() cache.QueryDef[*models.User] {
	return query(s, "/users/me", static[*models.User](cache.TID(TagUsers, idMe)))
}

func (s *Store) CurrentUser(ctx context.Context) (*models.User, error) {
	return cache.Query(ctx, s.cache, s.CurrentUserQuery())
}

// RefreshCurrentUser bypasses the cache; the loyalty balance is only ever
// read from the server.
func (s *Store) RefreshCurrentUser(ctx context.Context) (*models.User, error) {
	return cache.Refetch(ctx, s.cache, s.CurrentUserQuery())
}

func (s *Store) UsersQuery() cache.QueryDef[[]models.User] {
	return query(s, "/users", func(users []models.User) []cache.Tag {
		tags := make([]cache.Tag, 0, len(users)+1)
		for _, u := range users {
			tags = append(tags, cache.TID(TagUsers, u.ID))
		}
		return append(tags, cache.TID(TagUsers, idList))
	})
}

func (s *Store) Users(ctx context.Context) ([]models.User, error) {
	return cache.Query(ctx, s.cache, s.UsersQuery())
}

func (s *Store) User(ctx context.Context, id string) (*models.User, error) {
	return cache.Query(ctx, s.cache, query(s, "/users/"+url.PathEscape(id), static[*models.User](cache.TID(TagUsers, id))))
}

func (s *Store) UpdateUser(ctx context.Context, id string, req UpdateUserRequest) (*models.User, error) {
	return cache.Mutate(ctx, s.cache, cache.MutationDef[*models.User]{
		Name: "update user",
		Run: func(ctx context.Context) (*models.User, error) {
			return api.Patch[*models.User](ctx, s.client, "/users/"+url.PathEscape(id), req)
		},
		Invalidates: static[*models.User](cache.TID(TagUsers, id), cache.TID(TagUsers, idList)),
	})
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	_, err := cache.Mutate(ctx, s.cache, cache.MutationDef[struct{}]{
		Name: "delete user",
		Run: func(ctx context.Context) (struct{}, error) {
			_, err := api.Delete[struct{}](ctx, s.client, "/users/"+url.PathEscape(id))
			return struct{}{}, err
		},
		Invalidates: static[struct{}](cache.TID(TagUsers, id), cache.TID(TagUsers, idList)),
	})
	return err
}
