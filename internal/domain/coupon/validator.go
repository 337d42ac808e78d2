package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Validator validates a coupon code against an order amount and returns the
// computed discount. At most one coupon is active per order; a successful
// validation replaces any previously applied result on the caller's side.
//
// Preview computes the same result without consuming a use; Validate is
// called once, at order placement, and increments the usage counter.
type Validator interface {
	Preview(ctx context.Context, code string, orderAmount decimal.Decimal) (*Discount, error)
	Validate(ctx context.Context, code string, orderAmount decimal.Decimal) (*Discount, error)
}

// RepoValidator implements Validator by looking up coupon rules from a
// Repository and applying them via the Apply function.
type RepoValidator struct {
	repo Repository
	now  func() time.Time
}

// NewRepoValidator creates a RepoValidator backed by the given Repository.
func NewRepoValidator(repo Repository) *RepoValidator {
	return &RepoValidator{repo: repo, now: time.Now}
}

// Preview looks up the coupon rule for the given code, checks temporal
// validity and usage limits, and applies it to the order amount without
// consuming a use. Every failure mode maps to a sentinel error with a
// human-readable message; none are retried.
func (v *RepoValidator) Preview(ctx context.Context, code string, orderAmount decimal.Decimal) (*Discount, error) {
	rule, err := v.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrInvalidCoupon) {
			return nil, ErrInvalidCoupon
		}
		return nil, errors.Wrap(err, "lookup coupon")
	}

	now := v.now()

	if rule.ValidFrom != nil && now.Before(*rule.ValidFrom) {
		return nil, ErrCouponExpired
	}
	if rule.ValidUntil != nil && now.After(*rule.ValidUntil) {
		return nil, ErrCouponExpired
	}

	if rule.MaxUses > 0 && rule.Uses >= rule.MaxUses {
		return nil, ErrCouponUsageLimitReached
	}

	d, err := Apply(rule, orderAmount)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Validate is Preview plus consuming one use on success.
func (v *RepoValidator) Validate(ctx context.Context, code string, orderAmount decimal.Decimal) (*Discount, error) {
	d, err := v.Preview(ctx, code, orderAmount)
	if err != nil {
		return nil, err
	}

	if err := v.repo.IncrementUses(ctx, code); err != nil {
		return nil, errors.Wrap(err, "increment coupon uses")
	}
	return d, nil
}
