package coupon

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Apply calculates the discount the rule yields against the given order
// amount. It returns ErrBelowMinimum when the amount does not reach the
// rule's MinOrderAmount. The result is clamped to MaxDiscount when set,
// floored at zero, and rounded to 2 decimal places.
//
// Apply is pure: evaluating the same rule against the same amount always
// yields the same discount.
func Apply(rule *Rule, orderAmount decimal.Decimal) (Discount, error) {
	if rule.MinOrderAmount.IsPositive() && orderAmount.LessThan(rule.MinOrderAmount) {
		return Discount{}, ErrBelowMinimum
	}

	var amount decimal.Decimal
	switch rule.DiscountType {
	case DiscountPercentage:
		amount = orderAmount.Mul(rule.Value).Div(hundred)
	case DiscountFixed:
		amount = decimal.Min(rule.Value, orderAmount)
	default:
		return Discount{}, errors.Errorf("unsupported discount type: %q", rule.DiscountType)
	}

	if rule.MaxDiscount.IsPositive() && amount.GreaterThan(rule.MaxDiscount) {
		amount = rule.MaxDiscount
	}
	if amount.IsNegative() {
		amount = decimal.Zero
	}

	return Discount{
		Code:        rule.Code,
		Amount:      amount.Round(2),
		Description: rule.Description,
	}, nil
}
