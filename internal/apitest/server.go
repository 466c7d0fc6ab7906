// Package apitest runs an in-memory stand-in for the remote storefront API:
// the REST resources the client consumes plus the notifications push socket.
package apitest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/oklog/ulid/v2"
	"github.com/safar/storefront/internal/models"
	"github.com/shopspring/decimal"
)

const (
	DefaultUserID = "u-1"
	DefaultToken  = "token-u-1"
	AdminUserID   = "u-admin"
	AdminToken    = "token-admin"
)

type Call struct {
	Method string
	Path   string
	Query  string
	Auth   string
}

type failure struct {
	status  int
	message string
	times   int
}

type Server struct {
	*httptest.Server

	mu            sync.Mutex
	tokens        map[string]string
	users         map[string]*models.User
	products      map[string]models.Product
	carts         map[string]*models.Cart
	orders        []models.Order
	notifications map[string][]models.Notification
	reviews       []models.Review
	failures      map[string]*failure
	calls         []Call
	lastDraft     *models.OrderDraft

	upgrader websocket.Upgrader
	sockets  map[string]map[*socket]struct{}
}

type socket struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *socket) writeJSON(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return s.conn.WriteJSON(v)
}

// NewServer starts the fake API on a loopback listener.
func NewServer() *Server {
	s := New()
	s.Server = httptest.NewServer(s.routes())
	return s
}

// New returns the fake API without a listener. Mount Handler on a server of
// your own.
func New() *Server {
	return &Server{
		tokens: map[string]string{
			DefaultToken: DefaultUserID,
			AdminToken:   AdminUserID,
		},
		users: map[string]*models.User{
			DefaultUserID: {ID: DefaultUserID, Name: "Test User", Email: "user@example.com", Roles: []string{models.RoleUser}, IsVerified: true},
			AdminUserID:   {ID: AdminUserID, Name: "Admin", Email: "admin@example.com", Roles: []string{models.RoleAdmin}, IsVerified: true},
		},
		products:      make(map[string]models.Product),
		carts:         make(map[string]*models.Cart),
		notifications: make(map[string][]models.Notification),
		failures:      make(map[string]*failure),
		sockets:       make(map[string]map[*socket]struct{}),
	}
}

func (s *Server) Handler() http.Handler {
	return s.routes()
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.record)
	r.Use(s.injectFailures)

	r.Get("/ws", s.handleSocket)

	r.Route("/products", func(r chi.Router) {
		r.Get("/", s.handleListProducts)
		r.Get("/{id}", s.handleGetProduct)
	})

	r.Route("/reviews", func(r chi.Router) {
		r.Get("/product/{id}", s.handleProductReviews)
		r.Get("/recent", s.handleRecentReviews)
		r.Get("/{id}", s.handleGetReview)
		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)
			r.Get("/user/product/{id}", s.handleUserProductReview)
			r.Post("/", s.handleCreateReview)
			r.Patch("/{id}", s.handleUpdateReview)
			r.Delete("/{id}", s.handleDeleteReview)
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(s.authenticate)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", s.handleGetCart)
			r.Post("/", s.handleAddToCart)
			r.Put("/", s.handleUpdateCartItem)
			r.Delete("/", s.handleClearCart)
			r.Delete("/{productId}", s.handleRemoveCartItem)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", s.handleListOrders)
			r.Post("/", s.handleCreateOrder)
			r.Get("/{id}", s.handleGetOrder)
			r.Put("/{id}", s.handleUpdateOrder)
			r.Delete("/{id}", s.handleDeleteOrder)
		})

		r.Route("/users", func(r chi.Router) {
			r.Get("/", s.handleListUsers)
			r.Get("/me", s.handleCurrentUser)
			r.Get("/{id}", s.handleGetUser)
			r.Patch("/{id}", s.handleUpdateUser)
			r.Delete("/{id}", s.handleDeleteUser)
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", s.handleListNotifications)
			r.Get("/unread-count", s.handleUnreadCount)
			r.Patch("/mark-all-read", s.handleMarkAllRead)
			r.Patch("/{id}/read", s.handleMarkRead)
			r.Delete("/{id}", s.handleDeleteNotification)
		})
	})

	return r
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls = append(s.calls, Call{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Auth:   r.Header.Get("Authorization"),
		})
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) injectFailures(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path
		s.mu.Lock()
		f, ok := s.failures[key]
		if ok {
			if f.times > 0 {
				f.times--
				if f.times == 0 {
					delete(s.failures, key)
				}
			}
		}
		s.mu.Unlock()

		if ok {
			respondError(w, f.status, f.message)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type userKey struct{}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := s.userFor(r)
		if !ok {
			respondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey{}, userID)))
	})
}

func currentUser(r *http.Request) string {
	userID, _ := r.Context().Value(userKey{}).(string)
	return userID
}

func (s *Server) userFor(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(auth, "Bearer ")
	if !found {
		token = r.URL.Query().Get("token")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	userID, ok := s.tokens[token]
	return userID, ok
}

// Fail makes the next times requests to method+path answer with status.
// times <= 0 fails until Recover is called.
func (s *Server) Fail(method, path string, status int, times int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method+" "+path] = &failure{status: status, message: "injected failure", times: times}
}

func (s *Server) Recover(method, path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.failures, method+" "+path)
}

func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

func (s *Server) CallCount(method, path string) int {
	n := 0
	for _, c := range s.Calls() {
		if c.Method == method && c.Path == path {
			n++
		}
	}
	return n
}

func (s *Server) ResetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}

func (s *Server) LastDraft() *models.OrderDraft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastDraft
}

func (s *Server) SeedProduct(p models.Product) models.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = newID()
	}
	if p.Type == "" {
		p.Type = models.ProductTypeMoney
	}
	s.products[p.ID] = p
	return p
}

func (s *Server) SeedCartItem(userID, productID string, quantity int, variant, size string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addToCartLocked(userID, models.AddToCartRequest{Product: productID, Quantity: quantity, Variant: variant, Size: size})
}

func (s *Server) CartOf(userID string) models.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cartCopyLocked(userID)
}

func (s *Server) SetLoyaltyPoints(userID string, points decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[userID].LoyaltyPoints = points
}

func (s *Server) LoyaltyPoints(userID string) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[userID].LoyaltyPoints
}

func (s *Server) Orders() []models.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Order(nil), s.orders...)
}

func (s *Server) SeedNotification(userID string, n models.Notification) models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.storeNotificationLocked(userID, n)
}

func (s *Server) storeNotificationLocked(userID string, n models.Notification) models.Notification {
	if n.ID == "" {
		n.ID = newID()
	}
	if n.Type == "" {
		n.Type = "ORDER_CREATED"
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	s.notifications[userID] = append(s.notifications[userID], n)
	return n
}

func newID() string {
	return strings.ToLower(ulid.Make().String())
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]any{"statusCode": status, "message": message})
}

func decode(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}
