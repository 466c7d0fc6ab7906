package checkout

import (
	"github.com/safar/storefront/internal/models"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

type Pricing struct {
	Subtotal        decimal.Decimal
	DiscountPercent decimal.Decimal
	Discount        decimal.Decimal
	Shipping        decimal.Decimal
	Total           decimal.Decimal
	PointsRequired  decimal.Decimal
	AllPoints       bool
}

// Price derives every checkout figure from the cart as last fetched. It never
// mutates the cart.
func Price(cart *models.Cart, discountPercent, shippingFee decimal.Decimal) Pricing {
	subtotal := Subtotal(cart)
	discount := subtotal.Mul(discountPercent).Div(hundred)

	return Pricing{
		Subtotal:        subtotal,
		DiscountPercent: discountPercent,
		Discount:        discount,
		Shipping:        shippingFee,
		Total:           subtotal.Sub(discount).Add(shippingFee),
		PointsRequired:  subtotal,
		AllPoints:       AllPointsCheckout(cart),
	}
}

func Subtotal(cart *models.Cart) decimal.Decimal {
	subtotal := decimal.Zero
	if cart == nil {
		return subtotal
	}
	for _, item := range cart.Items {
		subtotal = subtotal.Add(item.Product.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return subtotal
}

// AllPointsCheckout reports whether every line can be paid with points. An
// empty cart qualifies; a cart not yet loaded does not.
func AllPointsCheckout(cart *models.Cart) bool {
	if cart == nil {
		return false
	}
	for _, item := range cart.Items {
		if item.Product.Type != models.ProductTypePoints && item.Product.Type != models.ProductTypeHybrid {
			return false
		}
	}
	return true
}
