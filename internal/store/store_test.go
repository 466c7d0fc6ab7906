package store

import (
	"context"
	"net/http"
	"testing"

	"github.com/safar/storefront/internal/api"
	"github.com/safar/storefront/internal/apitest"
	"github.com/safar/storefront/internal/cache"
	"github.com/safar/storefront/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type token string

func (t token) Token() string { return string(t) }

func newTestStore(t *testing.T, tok string) (*Store, *apitest.Server) {
	t.Helper()
	server := apitest.NewServer()
	t.Cleanup(server.Close)
	client := api.NewClientWithHTTP(server.URL, server.Client(), token(tok))
	return New(client, cache.New()), server
}

func TestCartIsCachedUntilMutated(t *testing.T) {
	ctx := context.Background()
	s, server := newTestStore(t, apitest.DefaultToken)
	shirt := server.SeedProduct(models.Product{Name: "Shirt", Price: decimal.NewFromInt(20)})

	cart, err := s.Cart(ctx)
	require.NoError(t, err)
	assert.True(t, cart.IsEmpty())

	_, err = s.Cart(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, server.CallCount(http.MethodGet, "/cart"))

	var seen []*models.Cart
	stop := cache.Subscribe(s.Cache(), s.CartQuery(), func(c *models.Cart, err error) {
		seen = append(seen, c)
	})
	defer stop()

	_, err = s.AddToCart(ctx, models.AddToCartRequest{Product: shirt.ID, Quantity: 2, Variant: "red", Size: "M"})
	require.NoError(t, err)

	assert.Equal(t, 2, server.CallCount(http.MethodGet, "/cart"))
	require.Len(t, seen, 1)
	require.Len(t, seen[0].Items, 1)
	assert.Equal(t, 2, seen[0].Items[0].Quantity)
}

func TestRemoveCartItemSendsVariantAndSize(t *testing.T) {
	ctx := context.Background()
	s, server := newTestStore(t, apitest.DefaultToken)
	shirt := server.SeedProduct(models.Product{Name: "Shirt", Price: decimal.NewFromInt(20)})
	server.SeedCartItem(apitest.DefaultUserID, shirt.ID, 1, "red", "M")
	server.SeedCartItem(apitest.DefaultUserID, shirt.ID, 1, "blue", "M")

	require.NoError(t, s.RemoveCartItem(ctx, models.RemoveCartItemRequest{Product: shirt.ID, Variant: "red", Size: "M"}))

	cart := server.CartOf(apitest.DefaultUserID)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "blue", cart.Items[0].Variant)
}

func TestCreateOrderRefreshesCurrentUser(t *testing.T) {
	ctx := context.Background()
	s, server := newTestStore(t, apitest.DefaultToken)
	server.SetLoyaltyPoints(apitest.DefaultUserID, decimal.NewFromInt(100))
	defer cache.Subscribe(s.Cache(), s.CurrentUserQuery(), func(*models.User, error) {})()

	user, err := s.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, "100", user.LoyaltyPoints.String())

	_, err = s.CreateOrder(ctx, models.OrderDraft{
		Items:        []models.OrderDraftItem{{Product: "p", Quantity: 1, Price: decimal.NewFromInt(30)}},
		Subtotal:     decimal.NewFromInt(30),
		Total:        decimal.NewFromInt(30),
		CheckoutType: models.CheckoutPoints,
		Status:       models.OrderStatusPending,
	})
	require.NoError(t, err)

	user, ok := cache.Peek[*models.User](s.Cache(), "/users/me")
	require.True(t, ok)
	assert.Equal(t, "70", user.LoyaltyPoints.String())
}

func TestFailedMutationKeepsCache(t *testing.T) {
	ctx := context.Background()
	s, server := newTestStore(t, apitest.DefaultToken)
	defer cache.Subscribe(s.Cache(), s.CartQuery(), func(*models.Cart, error) {})()

	_, err := s.Cart(ctx)
	require.NoError(t, err)

	server.Fail(http.MethodDelete, "/cart", http.StatusInternalServerError, 1)
	err = s.ClearCart(ctx)
	require.Error(t, err)

	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
	assert.Equal(t, 1, server.CallCount(http.MethodGet, "/cart"))
}

func TestRequestsWithoutTokenAreSentUnauthenticated(t *testing.T) {
	ctx := context.Background()
	s, server := newTestStore(t, "")

	_, err := s.Cart(ctx)
	require.Error(t, err)
	assert.True(t, api.IsUnauthorized(err))

	calls := server.Calls()
	require.Len(t, calls, 1)
	assert.Empty(t, calls[0].Auth)

	page, err := s.Products(ctx, models.ProductQuery{})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
}

func TestMarkAllReadRefreshesNotificationQueries(t *testing.T) {
	ctx := context.Background()
	s, server := newTestStore(t, apitest.DefaultToken)
	server.SeedNotification(apitest.DefaultUserID, models.Notification{Title: "a", Message: "one"})
	server.SeedNotification(apitest.DefaultUserID, models.Notification{Title: "b", Message: "two"})

	var counts []int
	defer cache.Subscribe(s.Cache(), s.UnreadCountQuery(), func(c models.UnreadCount, err error) {
		counts = append(counts, c.Count)
	})()

	unread, err := s.UnreadCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, unread.Count)

	list, err := s.Notifications(ctx, 1, 20)
	require.NoError(t, err)
	require.Len(t, list.Items, 2)
	assert.Equal(t, "b", list.Items[0].Title)

	require.NoError(t, s.MarkAllNotificationsRead(ctx))
	assert.Equal(t, []int{2, 0}, counts)
}

func TestCreateReviewInvalidatesProduct(t *testing.T) {
	ctx := context.Background()
	s, server := newTestStore(t, apitest.DefaultToken)
	shirt := server.SeedProduct(models.Product{Name: "Shirt", Price: decimal.NewFromInt(20)})
	defer cache.Subscribe(s.Cache(), s.ProductQuery(shirt.ID), func(*models.Product, error) {})()
	defer cache.Subscribe(s.Cache(), s.ProductReviewsQuery(shirt.ID), func([]models.Review, error) {})()

	_, err := s.Product(ctx, shirt.ID)
	require.NoError(t, err)
	reviews, err := s.ProductReviews(ctx, shirt.ID)
	require.NoError(t, err)
	assert.Empty(t, reviews)

	_, err = s.CreateReview(ctx, models.CreateReviewRequest{Product: shirt.ID, Rating: 5, Comment: "fits"})
	require.NoError(t, err)

	assert.Equal(t, 2, server.CallCount(http.MethodGet, "/products/"+shirt.ID))
	reviews, ok := cache.Peek[[]models.Review](s.Cache(), "/reviews/product/"+shirt.ID)
	require.True(t, ok)
	assert.Len(t, reviews, 1)

	mine, err := s.UserProductReview(ctx, shirt.ID)
	require.NoError(t, err)
	require.NotNil(t, mine)
	assert.Equal(t, 5, mine.Rating)
}

func TestProductQueryKeysAreStable(t *testing.T) {
	onSale := true
	q := models.ProductQuery{Page: 2, Limit: 10, Type: models.ProductTypePoints, OnSale: &onSale}
	assert.Equal(t, "/products?limit=10&onSale=true&page=2&type=points", withQuery("/products", productValues(q)))
	assert.Equal(t, "/products", withQuery("/products", productValues(models.ProductQuery{})))
	assert.Equal(t, "limit=20&page=1", pageValues(0, 20).Encode())
}

func storeFor(server *apitest.Server, tok string) *Store {
	return New(api.NewClientWithHTTP(server.URL, server.Client(), token(tok)), cache.New())
}

func TestAdminUpdatesAndDeletesOrders(t *testing.T) {
	ctx := context.Background()
	user, server := newTestStore(t, apitest.DefaultToken)
	admin := storeFor(server, apitest.AdminToken)

	order, err := user.CreateOrder(ctx, models.OrderDraft{
		Items:        []models.OrderDraftItem{{Product: "p", Quantity: 1, Price: decimal.NewFromInt(10)}},
		Subtotal:     decimal.NewFromInt(10),
		Total:        decimal.NewFromInt(25),
		CheckoutType: models.CheckoutMoney,
		Status:       models.OrderStatusPending,
	})
	require.NoError(t, err)

	var statuses []string
	defer cache.Subscribe(admin.Cache(), admin.OrderQuery(order.ID), func(o *models.Order, err error) {
		if err == nil {
			statuses = append(statuses, o.Status)
		}
	})()
	defer cache.Subscribe(admin.Cache(), admin.OrdersQuery(), func([]models.Order, error) {})()

	all, err := admin.Orders(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	_, err = admin.Order(ctx, order.ID)
	require.NoError(t, err)

	_, err = user.UpdateOrder(ctx, order.ID, models.UpdateOrderRequest{Status: models.OrderStatusShipped})
	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.Status)

	_, err = admin.UpdateOrder(ctx, order.ID, models.UpdateOrderRequest{Status: models.OrderStatusShipped})
	require.NoError(t, err)
	assert.Equal(t, []string{models.OrderStatusPending, models.OrderStatusShipped}, statuses)

	require.NoError(t, admin.DeleteOrder(ctx, order.ID))
	all, ok := cache.Peek[[]models.Order](admin.Cache(), "/orders")
	require.True(t, ok)
	assert.Empty(t, all)

	recent, err := user.RecentOrders(ctx)
	require.NoError(t, err)
	assert.Empty(t, recent)
	assert.Equal(t, "limit=5", server.Calls()[len(server.Calls())-1].Query)
}

func TestUserAdministration(t *testing.T) {
	ctx := context.Background()
	_, server := newTestStore(t, apitest.DefaultToken)
	admin := storeFor(server, apitest.AdminToken)

	var sizes []int
	defer cache.Subscribe(admin.Cache(), admin.UsersQuery(), func(users []models.User, err error) {
		if err == nil {
			sizes = append(sizes, len(users))
		}
	})()

	users, err := admin.Users(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)

	name := "Renamed"
	updated, err := admin.UpdateUser(ctx, apitest.DefaultUserID, UpdateUserRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)

	got, err := admin.User(ctx, apitest.DefaultUserID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)

	require.NoError(t, admin.DeleteUser(ctx, apitest.DefaultUserID))
	assert.Equal(t, []int{2, 2, 1}, sizes)

	_, err = admin.User(ctx, apitest.DefaultUserID)
	assert.True(t, api.IsNotFound(err))
}

func TestSingleNotificationMutations(t *testing.T) {
	ctx := context.Background()
	s, server := newTestStore(t, apitest.DefaultToken)
	first := server.SeedNotification(apitest.DefaultUserID, models.Notification{Title: "a", Message: "one"})
	second := server.SeedNotification(apitest.DefaultUserID, models.Notification{Title: "b", Message: "two"})

	var counts []int
	defer cache.Subscribe(s.Cache(), s.UnreadCountQuery(), func(c models.UnreadCount, err error) {
		counts = append(counts, c.Count)
	})()
	_, err := s.UnreadCount(ctx)
	require.NoError(t, err)

	read, err := s.MarkNotificationRead(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, read.Read)

	require.NoError(t, s.DeleteNotification(ctx, second.ID))
	assert.Equal(t, []int{2, 1, 0}, counts)

	list, err := s.Notifications(ctx, 1, 20)
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.Equal(t, first.ID, list.Items[0].ID)

	err = s.DeleteNotification(ctx, second.ID)
	assert.True(t, api.IsNotFound(err))
}

func TestReviewUpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	s, server := newTestStore(t, apitest.DefaultToken)
	other := storeFor(server, apitest.AdminToken)
	mug := server.SeedProduct(models.Product{Name: "Mug", Price: decimal.NewFromInt(12)})

	created, err := s.CreateReview(ctx, models.CreateReviewRequest{Product: mug.ID, Rating: 4, Comment: "nice"})
	require.NoError(t, err)

	recent, err := s.RecentReviews(ctx)
	require.NoError(t, err)
	require.Len(t, recent, 1)

	rating := 2
	_, err = other.UpdateReview(ctx, created.ID, models.UpdateReviewRequest{Rating: &rating})
	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.Status)

	updated, err := s.UpdateReview(ctx, created.ID, models.UpdateReviewRequest{Rating: &rating})
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Rating)
	assert.Equal(t, "nice", updated.Comment)

	got, err := s.Review(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Rating)

	require.NoError(t, s.DeleteReview(ctx, created.ID))
	recent, err = s.RecentReviews(ctx)
	require.NoError(t, err)
	assert.Empty(t, recent)
}

func TestProductsFilterByType(t *testing.T) {
	ctx := context.Background()
	s, server := newTestStore(t, "")
	server.SeedProduct(models.Product{Name: "Tote", Price: decimal.NewFromInt(20), Type: models.ProductTypeMoney})
	stickers := server.SeedProduct(models.Product{Name: "Stickers", Price: decimal.NewFromInt(50), Type: models.ProductTypePoints})

	all, err := s.Products(ctx, models.ProductQuery{})
	require.NoError(t, err)
	assert.Equal(t, 2, all.Total)

	points, err := s.Products(ctx, models.ProductQuery{Type: models.ProductTypePoints})
	require.NoError(t, err)
	require.Len(t, points.Items, 1)
	assert.Equal(t, stickers.ID, points.Items[0].ID)

	_, err = s.Products(ctx, models.ProductQuery{Type: models.ProductTypePoints})
	require.NoError(t, err)
	assert.Equal(t, 2, server.CallCount(http.MethodGet, "/products"))
}
