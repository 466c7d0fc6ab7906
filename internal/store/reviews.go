package store

import (
	"context"
	"net/url"

	"github.com/safar/storefront/internal/api"
	"github.com/safar/storefront/internal/cache"
	"github.com/safar/storefront/internal/models"
)

func reviewTags(group string) func([]models.Review) []cache.Tag {
	return func(reviews []models.Review) []cache.Tag {
		tags := make([]cache.Tag, 0, len(reviews)+1)
		for _, r := range reviews {
			tags = append(tags, cache.TID(TagReviews, r.ID))
		}
		return append(tags, cache.TID(TagReviews, group))
	}
}

func (s *Store) ProductReviewsQuery(productID string) cache.QueryDef[[]models.Review] {
	return query(s, "/reviews/product/"+url.PathEscape(productID), reviewTags(productID))
}

func (s *Store) ProductReviews(ctx context.Context, productID string) ([]models.Review, error) {
	return cache.Query(ctx, s.cache, s.ProductReviewsQuery(productID))
}

func (s *Store) RecentReviews(ctx context.Context) ([]models.Review, error) {
	return cache.Query(ctx, s.cache, query(s, "/reviews/recent", reviewTags(idRecent)))
}

func (s *Store) Review(ctx context.Context, id string) (*models.Review, error) {
	return cache.Query(ctx, s.cache, query(s, "/reviews/"+url.PathEscape(id), static[*models.Review](cache.TID(TagReviews, id))))
}

// UserProductReview returns the caller's review of productID, or nil.
func (s *Store) UserProductReview(ctx context.Context, productID string) (*models.Review, error) {
	return cache.Query(ctx, s.cache, query(s, "/reviews/user/product/"+url.PathEscape(productID),
		static[*models.Review](cache.TID(TagReviews, productID))))
}

// CreateReview also invalidates the product, whose rating the server
// recomputes.
func (s *Store) CreateReview(ctx context.Context, req models.CreateReviewRequest) (models.Review, error) {
	resp, err := cache.Mutate(ctx, s.cache, cache.MutationDef[models.APIResponse[models.Review]]{
		Name: "create review",
		Run: func(ctx context.Context) (models.APIResponse[models.Review], error) {
			return api.Post[models.APIResponse[models.Review]](ctx, s.client, "/reviews", req)
		},
		Invalidates: static[models.APIResponse[models.Review]](
			cache.TID(TagReviews, req.Product),
			cache.TID(TagReviews, idRecent),
			cache.TID(TagProducts, req.Product),
		),
	})
	return resp.Data, err
}

func (s *Store) UpdateReview(ctx context.Context, id string, req models.UpdateReviewRequest) (models.Review, error) {
	resp, err := cache.Mutate(ctx, s.cache, cache.MutationDef[models.APIResponse[models.Review]]{
		Name: "update review",
		Run: func(ctx context.Context) (models.APIResponse[models.Review], error) {
			return api.Patch[models.APIResponse[models.Review]](ctx, s.client, "/reviews/"+url.PathEscape(id), req)
		},
		Invalidates: func(resp models.APIResponse[models.Review]) []cache.Tag {
			return []cache.Tag{
				cache.TID(TagReviews, id),
				cache.TID(TagProducts, resp.Data.Product),
			}
		},
	})
	return resp.Data, err
}

func (s *Store) DeleteReview(ctx context.Context, id string) error {
	_, err := cache.Mutate(ctx, s.cache, cache.MutationDef[struct{}]{
		Name: "delete review",
		Run: func(ctx context.Context) (struct{}, error) {
			_, err := api.Delete[models.APIResponse[struct{}]](ctx, s.client, "/reviews/"+url.PathEscape(id))
			return struct{}{}, err
		},
		Invalidates: static[struct{}](cache.TID(TagReviews, id)),
	})
	return err
}
