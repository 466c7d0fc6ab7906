package store

import (
	"context"
	"net/url"

	"github.com/safar/storefront/internal/api"
	"github.com/safar/storefront/internal/cache"
	"github.com/safar/storefront/internal/models"
)

func (s *Store) NotificationsQuery(page, limit int) cache.QueryDef[models.Paginated[models.Notification]] {
	return query(s, withQuery("/notifications", pageValues(page, limit)),
		static[models.Paginated[models.Notification]](cache.T(TagNotifications)))
}

func (s *Store) Notifications(ctx context.Context, page, limit int) (models.Paginated[models.Notification], error) {
	return cache.Query(ctx, s.cache, s.NotificationsQuery(page, limit))
}

func (s *Store) UnreadCountQuery() cache.QueryDef[models.UnreadCount] {
	return query(s, "/notifications/unread-count", static[models.UnreadCount](cache.T(TagNotifications)))
}

func (s *Store) UnreadCount(ctx context.Context) (models.UnreadCount, error) {
	return cache.Query(ctx, s.cache, s.UnreadCountQuery())
}

func (s *Store) MarkAllNotificationsRead(ctx context.Context) error {
	_, err := cache.Mutate(ctx, s.cache, cache.MutationDef[struct{}]{
		Name: "mark all notifications read",
		Run: func(ctx context.Context) (struct{}, error) {
			_, err := api.Patch[map[string]bool](ctx, s.client, "/notifications/mark-all-read", nil)
			return struct{}{}, err
		},
		Invalidates: static[struct{}](cache.T(TagNotifications)),
	})
	return err
}

func (s *Store) MarkNotificationRead(ctx context.Context, id string) (*models.Notification, error) {
	return cache.Mutate(ctx, s.cache, cache.MutationDef[*models.Notification]{
		Name: "mark notification read",
		Run: func(ctx context.Context) (*models.Notification, error) {
			return api.Patch[*models.Notification](ctx, s.client, "/notifications/"+url.PathEscape(id)+"/read", nil)
		},
		Invalidates: static[*models.Notification](cache.T(TagNotifications)),
	})
}

func (s *Store) DeleteNotification(ctx context.Context, id string) error {
	_, err := cache.Mutate(ctx, s.cache, cache.MutationDef[struct{}]{
		Name: "delete notification",
		Run: func(ctx context.Context) (struct{}, error) {
			_, err := api.Delete[map[string]bool](ctx, s.client, "/notifications/"+url.PathEscape(id))
			return struct{}{}, err
		},
		Invalidates: static[struct{}](cache.T(TagNotifications)),
	})
	return err
}
