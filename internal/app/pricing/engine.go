package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sokocart/sokocart-backend/internal/app/model"
)

// Pure monetary derivations. Nothing in this package touches storage;
// callers feed it snapshots and persist the results themselves.

// Totals aggregates a cart's monetary state before any coupon.
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

// ItemSubtotal is unit price times quantity.
func ItemSubtotal(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}

// ItemTotal is subtotal plus tax minus discount. No floor is applied at
// the item level; consumers dividing by it must clamp.
func ItemTotal(subtotal, tax, discount decimal.Decimal) decimal.Decimal {
	return subtotal.Add(tax).Sub(discount)
}

// CartTotals sums the line-level amounts of the given items.
func CartTotals(items []model.CartItem) Totals {
	t := Totals{
		Subtotal: decimal.Zero,
		Tax:      decimal.Zero,
		Total:    decimal.Zero,
	}
	for _, item := range items {
		subtotal := ItemSubtotal(item.UnitPrice, item.Quantity)
		t.Subtotal = t.Subtotal.Add(subtotal)
		t.Tax = t.Tax.Add(item.TaxAmount)
		t.Total = t.Total.Add(ItemTotal(subtotal, item.TaxAmount, item.DiscountAmount))
	}
	return t
}

// TotalAfterDiscount floors the discounted cart total at zero.
func TotalAfterDiscount(total, discount decimal.Decimal) decimal.Decimal {
	result := total.Sub(discount)
	if result.IsNegative() {
		return decimal.Zero
	}
	return result
}

// Discount computes the monetary value of a coupon against a cart total.
// Percentage discounts are rounded half away from zero to 2 decimal
// places; fixed discounts never exceed the cart total; free shipping is
// worth exactly the shipping fee supplied by the caller (zero if none).
func Discount(kind model.CouponKind, value, cartTotal, shippingFee decimal.Decimal) (decimal.Decimal, error) {
	switch kind {
	case model.CouponPercentage:
		return cartTotal.Mul(value).Div(decimal.NewFromInt(100)).Round(2), nil
	case model.CouponFixed:
		if value.GreaterThan(cartTotal) {
			return cartTotal, nil
		}
		return value, nil
	case model.CouponFreeShipping:
		return shippingFee, nil
	default:
		return decimal.Zero, fmt.Errorf("unknown coupon kind: %q", kind)
	}
}
