package checkout

import (
	"testing"

	"github.com/safar/storefront/internal/models"
	"github.com/shopspring/decimal"
)

func line(price int64, quantity int, typ string) models.CartItem {
	return models.CartItem{
		Product:  models.ProductRef{ID: "p", Price: decimal.NewFromInt(price), Type: typ},
		Quantity: quantity,
	}
}

func TestPriceWithoutDiscount(t *testing.T) {
	cart := &models.Cart{Items: []models.CartItem{line(20, 2, models.ProductTypeMoney)}}

	p := Price(cart, decimal.Zero, decimal.NewFromInt(15))

	if !p.Subtotal.Equal(decimal.NewFromInt(40)) {
		t.Errorf("Expected subtotal 40, got %s", p.Subtotal)
	}
	if !p.Total.Equal(decimal.NewFromInt(55)) {
		t.Errorf("Expected total 55, got %s", p.Total)
	}
	if !p.Discount.IsZero() {
		t.Errorf("Expected no discount, got %s", p.Discount)
	}
}

func TestPriceFormula(t *testing.T) {
	tests := []struct {
		name     string
		items    []models.CartItem
		percent  int64
		subtotal string
		discount string
		total    string
	}{
		{"single line", []models.CartItem{line(20, 2, models.ProductTypeMoney)}, 10, "40", "4", "51"},
		{"several lines", []models.CartItem{line(10, 1, models.ProductTypeMoney), line(5, 3, models.ProductTypeHybrid)}, 20, "25", "5", "35"},
		{"fractional discount", []models.CartItem{line(33, 1, models.ProductTypeMoney)}, 15, "33", "4.95", "43.05"},
		{"empty cart", nil, 25, "0", "0", "15"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Price(&models.Cart{Items: tt.items}, decimal.NewFromInt(tt.percent), decimal.NewFromInt(15))

			if p.Subtotal.String() != tt.subtotal {
				t.Errorf("subtotal = %s, expected %s", p.Subtotal, tt.subtotal)
			}
			if p.Discount.String() != tt.discount {
				t.Errorf("discount = %s, expected %s", p.Discount, tt.discount)
			}
			if p.Total.String() != tt.total {
				t.Errorf("total = %s, expected %s", p.Total, tt.total)
			}
			if !p.PointsRequired.Equal(p.Subtotal) {
				t.Errorf("points required = %s, expected undiscounted subtotal %s", p.PointsRequired, p.Subtotal)
			}
		})
	}
}

func TestAllPointsCheckout(t *testing.T) {
	tests := []struct {
		name string
		cart *models.Cart
		want bool
	}{
		{"not loaded", nil, false},
		{"empty cart is vacuously true", &models.Cart{}, true},
		{"points only", &models.Cart{Items: []models.CartItem{line(5, 1, models.ProductTypePoints)}}, true},
		{"points and hybrid", &models.Cart{Items: []models.CartItem{line(5, 1, models.ProductTypePoints), line(5, 1, models.ProductTypeHybrid)}}, true},
		{"one money item", &models.Cart{Items: []models.CartItem{line(5, 1, models.ProductTypePoints), line(5, 1, models.ProductTypeMoney)}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AllPointsCheckout(tt.cart); got != tt.want {
				t.Errorf("AllPointsCheckout() = %v, expected %v", got, tt.want)
			}
		})
	}
}
