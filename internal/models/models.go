package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID            string          `json:"_id"`
	Name          string          `json:"name"`
	Email         string          `json:"email"`
	Roles         []string        `json:"roles"`
	LoyaltyPoints decimal.Decimal `json:"loyaltyPoints"`
	IsVerified    bool            `json:"isVerified"`
	IsBlocked     bool            `json:"isBlocked"`
	CreatedAt     *time.Time      `json:"createdAt,omitempty"`
	UpdatedAt     *time.Time      `json:"updatedAt,omitempty"`
}

type ProductVariant struct {
	Color  string   `json:"color"`
	Images []string `json:"images"`
	Sizes  []string `json:"sizes,omitempty"`
	Stock  int      `json:"stock,omitempty"`
}

type Product struct {
	ID                 string           `json:"_id"`
	Name               string           `json:"name"`
	Description        string           `json:"description,omitempty"`
	Ratings            float64          `json:"ratings,omitempty"`
	Variants           []ProductVariant `json:"variants,omitempty"`
	OnSale             bool             `json:"onSale,omitempty"`
	DiscountPercentage decimal.Decimal  `json:"discountPercentage"`
	Price              decimal.Decimal  `json:"price"`
	Stock              int              `json:"stock"`
	Type               string           `json:"type"`
	Category           string           `json:"category,omitempty"`
	LoyaltyPoints      decimal.Decimal  `json:"loyaltyPoints"`
	CreatedAt          *time.Time       `json:"createdAt,omitempty"`
	UpdatedAt          *time.Time       `json:"updatedAt,omitempty"`
}

// ProductRef is the denormalized product embedded in a cart line.
type ProductRef struct {
	ID       string           `json:"_id"`
	Name     string           `json:"name"`
	Price    decimal.Decimal  `json:"price"`
	Type     string           `json:"type"`
	Variants []ProductVariant `json:"variants,omitempty"`
}

// Image returns the first image of the selected variant, falling back to the
// first variant when none is selected.
func (p ProductRef) Image(variant string) string {
	for _, v := range p.Variants {
		if variant == "" || v.Color == variant {
			if len(v.Images) > 0 {
				return v.Images[0]
			}
			return ""
		}
	}
	return ""
}

type CartItem struct {
	ID       string     `json:"_id"`
	Product  ProductRef `json:"product"`
	Quantity int        `json:"quantity"`
	Variant  string     `json:"variant,omitempty"`
	Size     string     `json:"size,omitempty"`
}

type Cart struct {
	ID    string     `json:"_id"`
	Items []CartItem `json:"items"`
	User  string     `json:"user"`
}

func (c *Cart) IsEmpty() bool {
	return c == nil || len(c.Items) == 0
}

type AddToCartRequest struct {
	Product  string `json:"product"`
	Quantity int    `json:"quantity"`
	Variant  string `json:"variant"`
	Size     string `json:"size"`
}

type UpdateCartItemRequest struct {
	Product  string `json:"product"`
	Quantity int    `json:"quantity"`
	Variant  string `json:"variant,omitempty"`
	Size     string `json:"size,omitempty"`
}

type RemoveCartItemRequest struct {
	Product string
	Variant string
	Size    string
}

type OrderItem struct {
	Product  string          `json:"product"`
	Variant  string          `json:"variant,omitempty"`
	Size     string          `json:"size,omitempty"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

type Order struct {
	ID          string          `json:"_id"`
	User        string          `json:"user"`
	Items       []OrderItem     `json:"items"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	PointsUsed  decimal.Decimal `json:"pointsUsed"`
	Discount    decimal.Decimal `json:"discount"`
	Status      string          `json:"status"`
	UpdatedBy   string          `json:"updatedBy,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

type UpdateOrderRequest struct {
	Status string `json:"status,omitempty"`
}

type OrderDraftItem struct {
	Product  string          `json:"product"`
	Variant  string          `json:"variant,omitempty"`
	Size     string          `json:"size,omitempty"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// OrderDraft is the client-assembled body of POST /orders. It is never stored.
type OrderDraft struct {
	Items        []OrderDraftItem `json:"items"`
	Subtotal     decimal.Decimal  `json:"subtotal"`
	Discount     decimal.Decimal  `json:"discount"`
	Shipping     decimal.Decimal  `json:"shipping"`
	Total        decimal.Decimal  `json:"total"`
	DiscountCode string           `json:"discountCode,omitempty"`
	CheckoutType string           `json:"checkoutType"`
	Status       string           `json:"status"`
	CreatedAt    time.Time        `json:"createdAt"`
}

// Notification is the server representation returned by the list endpoint.
type Notification struct {
	ID        string     `json:"_id"`
	Type      string     `json:"type"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	OrderID   string     `json:"orderId,omitempty"`
	Read      bool       `json:"read"`
	CreatedAt time.Time  `json:"createdAt"`
	ReadAt    *time.Time `json:"readAt,omitempty"`
}

// NotificationItem is the locally held view of a notification.
type NotificationItem struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
	Read      bool      `json:"read"`
	OrderID   string    `json:"orderId,omitempty"`
}

func (n Notification) Item() NotificationItem {
	return NotificationItem{
		ID:        n.ID,
		Title:     n.Title,
		Message:   n.Message,
		CreatedAt: n.CreatedAt,
		Read:      n.Read,
		OrderID:   n.OrderID,
	}
}

type UnreadCount struct {
	Count int `json:"count"`
}

type Paginated[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
	Page  int `json:"page"`
	Pages int `json:"pages"`
	Limit int `json:"limit"`
}

type ReviewUser struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
}

type Review struct {
	ID        string     `json:"_id"`
	Product   string     `json:"product"`
	User      ReviewUser `json:"user"`
	Rating    int        `json:"rating"`
	Comment   string     `json:"comment"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

type CreateReviewRequest struct {
	Product string `json:"product"`
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

type UpdateReviewRequest struct {
	Rating  *int    `json:"rating,omitempty"`
	Comment *string `json:"comment,omitempty"`
}

type ProductQuery struct {
	Page      int
	Limit     int
	Category  string
	MinPrice  *decimal.Decimal
	MaxPrice  *decimal.Decimal
	OnSale    *bool
	Type      string
	Search    string
	SortBy    string
	SortOrder string
}

type ProductPage struct {
	Items      []Product `json:"data"`
	Total      int       `json:"total"`
	Page       int       `json:"page"`
	Limit      int       `json:"limit"`
	TotalPages int       `json:"totalPages"`
}

type APIResponse[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    T      `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

const (
	OrderStatusPending    = "pending"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCanceled   = "canceled"
)

const (
	ProductTypeMoney  = "money"
	ProductTypePoints = "points"
	ProductTypeHybrid = "hybrid"
)

const (
	CheckoutMoney  = "money"
	CheckoutPoints = "points"
)

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)
