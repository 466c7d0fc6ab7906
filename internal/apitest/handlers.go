package apitest

import (
	"net/http"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/safar/storefront/internal/models"
	"github.com/shopspring/decimal"
)

var loyaltyRate = decimal.NewFromInt(10)

func (s *Server) cartLocked(userID string) *models.Cart {
	cart, ok := s.carts[userID]
	if !ok {
		cart = &models.Cart{ID: newID(), User: userID, Items: []models.CartItem{}}
		s.carts[userID] = cart
	}
	return cart
}

func (s *Server) cartCopyLocked(userID string) models.Cart {
	cart := *s.cartLocked(userID)
	cart.Items = append([]models.CartItem{}, cart.Items...)
	return cart
}

func (s *Server) addToCartLocked(userID string, req models.AddToCartRequest) bool {
	product, ok := s.products[req.Product]
	if !ok {
		return false
	}
	cart := s.cartLocked(userID)
	for i := range cart.Items {
		item := &cart.Items[i]
		if item.Product.ID == req.Product && item.Variant == req.Variant && item.Size == req.Size {
			item.Quantity += req.Quantity
			return true
		}
	}
	cart.Items = append(cart.Items, models.CartItem{
		ID: newID(),
		Product: models.ProductRef{
			ID:       product.ID,
			Name:     product.Name,
			Price:    product.Price,
			Type:     product.Type,
			Variants: product.Variants,
		},
		Quantity: req.Quantity,
		Variant:  req.Variant,
		Size:     req.Size,
	})
	return true
}

func (s *Server) handleGetCart(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	cart := s.cartCopyLocked(currentUser(r))
	s.mu.Unlock()
	respondJSON(w, http.StatusOK, cart)
}

func (s *Server) handleAddToCart(w http.ResponseWriter, r *http.Request) {
	var req models.AddToCartRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Quantity < 1 {
		respondError(w, http.StatusBadRequest, "quantity must be at least 1")
		return
	}

	s.mu.Lock()
	ok := s.addToCartLocked(currentUser(r), req)
	cart := s.cartCopyLocked(currentUser(r))
	s.mu.Unlock()

	if !ok {
		respondError(w, http.StatusNotFound, "Product not found")
		return
	}
	respondJSON(w, http.StatusCreated, models.APIResponse[models.Cart]{Success: true, Message: "Item added", Data: cart})
}

func (s *Server) handleUpdateCartItem(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateCartItemRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Quantity < 1 {
		respondError(w, http.StatusBadRequest, "quantity must be at least 1")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	cart := s.cartLocked(currentUser(r))
	for i := range cart.Items {
		item := &cart.Items[i]
		if item.Product.ID == req.Product && item.Variant == req.Variant && item.Size == req.Size {
			item.Quantity = req.Quantity
			respondJSON(w, http.StatusOK, models.APIResponse[models.Cart]{Success: true, Message: "Item updated", Data: s.cartCopyLocked(currentUser(r))})
			return
		}
	}
	respondError(w, http.StatusNotFound, "Item not in cart")
}

func (s *Server) handleRemoveCartItem(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")
	variant := r.URL.Query().Get("variant")
	size := r.URL.Query().Get("size")

	s.mu.Lock()
	defer s.mu.Unlock()
	cart := s.cartLocked(currentUser(r))
	before := len(cart.Items)
	cart.Items = slices.DeleteFunc(cart.Items, func(item models.CartItem) bool {
		return item.Product.ID == productID && item.Variant == variant && item.Size == size
	})
	if len(cart.Items) == before {
		respondError(w, http.StatusNotFound, "Item not in cart")
		return
	}
	respondJSON(w, http.StatusOK, models.APIResponse[models.Cart]{Success: true, Message: "Item removed", Data: s.cartCopyLocked(currentUser(r))})
}

func (s *Server) handleClearCart(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.cartLocked(currentUser(r)).Items = []models.CartItem{}
	s.mu.Unlock()
	respondJSON(w, http.StatusOK, models.APIResponse[struct{}]{Success: true, Message: "Cart cleared"})
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var draft models.OrderDraft
	if err := decode(r, &draft); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(draft.Items) == 0 {
		respondError(w, http.StatusBadRequest, "Order has no items")
		return
	}

	userID := currentUser(r)

	s.mu.Lock()
	s.lastDraft = &draft
	user := s.users[userID]

	order := models.Order{
		ID:          newID(),
		User:        userID,
		TotalAmount: draft.Total,
		Discount:    draft.Discount,
		Status:      models.OrderStatusPending,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	for _, item := range draft.Items {
		order.Items = append(order.Items, models.OrderItem{
			Product:  item.Product,
			Variant:  item.Variant,
			Size:     item.Size,
			Quantity: item.Quantity,
			Price:    item.Price,
			Subtotal: item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))),
		})
	}

	switch draft.CheckoutType {
	case models.CheckoutPoints:
		if user.LoyaltyPoints.LessThan(draft.Total) {
			s.mu.Unlock()
			respondError(w, http.StatusBadRequest, "Insufficient loyalty points")
			return
		}
		user.LoyaltyPoints = user.LoyaltyPoints.Sub(draft.Total)
		order.PointsUsed = draft.Total
	default:
		user.LoyaltyPoints = user.LoyaltyPoints.Add(draft.Subtotal.Div(loyaltyRate).Floor())
	}

	s.orders = append(s.orders, order)
	n := s.storeNotificationLocked(userID, models.Notification{
		Type:    "ORDER_CREATED",
		Title:   "Order placed",
		Message: "Your order " + order.ID + " was received",
		OrderID: order.ID,
	})
	s.mu.Unlock()

	s.broadcast(userID, n)
	respondJSON(w, http.StatusCreated, order)
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	userID := currentUser(r)
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	s.mu.Lock()
	isAdmin := slices.Contains(s.users[userID].Roles, models.RoleAdmin)
	var orders []models.Order
	for i := len(s.orders) - 1; i >= 0; i-- {
		if isAdmin || s.orders[i].User == userID {
			orders = append(orders, s.orders[i])
		}
	}
	s.mu.Unlock()

	if limit > 0 && len(orders) > limit {
		orders = orders[:limit]
	}
	if orders == nil {
		orders = []models.Order{}
	}
	respondJSON(w, http.StatusOK, orders)
}

func (s *Server) findOrderLocked(id string) int {
	for i := range s.orders {
		if s.orders[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.findOrderLocked(chi.URLParam(r, "id"))
	if i < 0 {
		respondError(w, http.StatusNotFound, "Order not found")
		return
	}
	respondJSON(w, http.StatusOK, s.orders[i])
}

func (s *Server) handleUpdateOrder(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateOrderRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !slices.Contains(s.users[currentUser(r)].Roles, models.RoleAdmin) {
		respondError(w, http.StatusForbidden, "Forbidden resource")
		return
	}
	i := s.findOrderLocked(chi.URLParam(r, "id"))
	if i < 0 {
		respondError(w, http.StatusNotFound, "Order not found")
		return
	}
	if req.Status != "" {
		s.orders[i].Status = req.Status
	}
	s.orders[i].UpdatedBy = currentUser(r)
	s.orders[i].UpdatedAt = time.Now().UTC()
	respondJSON(w, http.StatusOK, s.orders[i])
}

func (s *Server) handleDeleteOrder(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.findOrderLocked(chi.URLParam(r, "id"))
	if i < 0 {
		respondError(w, http.StatusNotFound, "Order not found")
		return
	}
	s.orders = slices.Delete(s.orders, i, i+1)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, *u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	respondJSON(w, http.StatusOK, users)
}

func (s *Server) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	respondJSON(w, http.StatusOK, s.users[currentUser(r)])
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[chi.URLParam(r, "id")]
	if !ok {
		respondError(w, http.StatusNotFound, "User not found")
		return
	}
	respondJSON(w, http.StatusOK, u)
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var patch struct {
		Name      *string  `json:"name"`
		Roles     []string `json:"roles"`
		IsBlocked *bool    `json:"isBlocked"`
	}
	if err := decode(r, &patch); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[chi.URLParam(r, "id")]
	if !ok {
		respondError(w, http.StatusNotFound, "User not found")
		return
	}
	if patch.Name != nil {
		u.Name = *patch.Name
	}
	if patch.Roles != nil {
		u.Roles = patch.Roles
	}
	if patch.IsBlocked != nil {
		u.IsBlocked = *patch.IsBlocked
	}
	respondJSON(w, http.StatusOK, u)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := chi.URLParam(r, "id")
	if _, ok := s.users[id]; !ok {
		respondError(w, http.StatusNotFound, "User not found")
		return
	}
	delete(s.users, id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit < 1 {
		limit = 20
	}

	s.mu.Lock()
	all := s.notifications[currentUser(r)]
	var filtered []models.Notification
	for i := len(all) - 1; i >= 0; i-- {
		if readFilter := q.Get("read"); readFilter != "" && strconv.FormatBool(all[i].Read) != readFilter {
			continue
		}
		filtered = append(filtered, all[i])
	}
	s.mu.Unlock()

	total := len(filtered)
	start := min((page-1)*limit, total)
	end := min(start+limit, total)
	pages := (total + limit - 1) / limit

	items := append([]models.Notification{}, filtered[start:end]...)
	respondJSON(w, http.StatusOK, models.Paginated[models.Notification]{
		Items: items,
		Total: total,
		Page:  page,
		Pages: pages,
		Limit: limit,
	})
}

func (s *Server) handleUnreadCount(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	count := 0
	for _, n := range s.notifications[currentUser(r)] {
		if !n.Read {
			count++
		}
	}
	s.mu.Unlock()
	respondJSON(w, http.StatusOK, models.UnreadCount{Count: count})
}

func (s *Server) handleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	s.mu.Lock()
	list := s.notifications[currentUser(r)]
	for i := range list {
		if !list[i].Read {
			list[i].Read = true
			list[i].ReadAt = &now
		}
	}
	s.mu.Unlock()
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.notifications[currentUser(r)]
	for i := range list {
		if list[i].ID == id {
			list[i].Read = true
			list[i].ReadAt = &now
			respondJSON(w, http.StatusOK, list[i])
			return
		}
	}
	respondError(w, http.StatusNotFound, "Notification not found")
}

func (s *Server) handleDeleteNotification(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	userID := currentUser(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	before := len(s.notifications[userID])
	s.notifications[userID] = slices.DeleteFunc(s.notifications[userID], func(n models.Notification) bool {
		return n.ID == id
	})
	if len(s.notifications[userID]) == before {
		respondError(w, http.StatusNotFound, "Notification not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	s.mu.Lock()
	var products []models.Product
	for _, p := range s.products {
		if t := q.Get("type"); t != "" && p.Type != t {
			continue
		}
		if c := q.Get("category"); c != "" && p.Category != c {
			continue
		}
		if search := q.Get("search"); search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(search)) {
			continue
		}
		products = append(products, p)
	}
	s.mu.Unlock()

	sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })
	if products == nil {
		products = []models.Product{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"data": products, "total": len(products)})
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[chi.URLParam(r, "id")]
	if !ok {
		respondError(w, http.StatusNotFound, "Product not found")
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (s *Server) handleProductReviews(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "id")
	s.mu.Lock()
	reviews := []models.Review{}
	for _, rv := range s.reviews {
		if rv.Product == productID {
			reviews = append(reviews, rv)
		}
	}
	s.mu.Unlock()
	respondJSON(w, http.StatusOK, reviews)
}

func (s *Server) handleRecentReviews(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	reviews := []models.Review{}
	for i := len(s.reviews) - 1; i >= 0 && len(reviews) < 5; i-- {
		reviews = append(reviews, s.reviews[i])
	}
	s.mu.Unlock()
	respondJSON(w, http.StatusOK, reviews)
}

func (s *Server) findReviewLocked(id string) int {
	for i := range s.reviews {
		if s.reviews[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Server) handleGetReview(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.findReviewLocked(chi.URLParam(r, "id"))
	if i < 0 {
		respondError(w, http.StatusNotFound, "Review not found")
		return
	}
	respondJSON(w, http.StatusOK, s.reviews[i])
}

func (s *Server) handleUserProductReview(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "id")
	userID := currentUser(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rv := range s.reviews {
		if rv.Product == productID && rv.User.ID == userID {
			respondJSON(w, http.StatusOK, rv)
			return
		}
	}
	respondJSON(w, http.StatusOK, nil)
}

func (s *Server) handleCreateReview(w http.ResponseWriter, r *http.Request) {
	var req models.CreateReviewRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Rating < 1 || req.Rating > 5 {
		respondError(w, http.StatusBadRequest, "rating must be between 1 and 5")
		return
	}

	userID := currentUser(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[req.Product]; !ok {
		respondError(w, http.StatusNotFound, "Product not found")
		return
	}
	now := time.Now().UTC()
	review := models.Review{
		ID:        newID(),
		Product:   req.Product,
		User:      models.ReviewUser{ID: userID, Name: s.users[userID].Name},
		Rating:    req.Rating,
		Comment:   req.Comment,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.reviews = append(s.reviews, review)
	respondJSON(w, http.StatusCreated, models.APIResponse[models.Review]{Success: true, Message: "Review created", Data: review})
}

func (s *Server) handleUpdateReview(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateReviewRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.findReviewLocked(chi.URLParam(r, "id"))
	if i < 0 {
		respondError(w, http.StatusNotFound, "Review not found")
		return
	}
	if s.reviews[i].User.ID != currentUser(r) {
		respondError(w, http.StatusForbidden, "Forbidden resource")
		return
	}
	if req.Rating != nil {
		s.reviews[i].Rating = *req.Rating
	}
	if req.Comment != nil {
		s.reviews[i].Comment = *req.Comment
	}
	s.reviews[i].UpdatedAt = time.Now().UTC()
	respondJSON(w, http.StatusOK, models.APIResponse[models.Review]{Success: true, Message: "Review updated", Data: s.reviews[i]})
}

func (s *Server) handleDeleteReview(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.findReviewLocked(chi.URLParam(r, "id"))
	if i < 0 {
		respondError(w, http.StatusNotFound, "Review not found")
		return
	}
	s.reviews = slices.Delete(s.reviews, i, i+1)
	respondJSON(w, http.StatusOK, models.APIResponse[struct{}]{Success: true, Message: "Review deleted"})
}
