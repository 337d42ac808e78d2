package postgres

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kstorelabs/kstore-cart/internal/domain/coupon"
)

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

const couponColumns = `code, discount_type, value, min_order_amount, max_discount,
	description, valid_from, valid_until, max_uses, uses`

func scanCoupon(row pgx.Row) (coupon.Rule, error) {
	var c coupon.Rule
	err := row.Scan(&c.Code, &c.DiscountType, &c.Value, &c.MinOrderAmount, &c.MaxDiscount,
		&c.Description, &c.ValidFrom, &c.ValidUntil, &c.MaxUses, &c.Uses)
	return c, err
}

// FindByCode looks up a coupon by its code, case-insensitively. Returns
// coupon.ErrInvalidCoupon when no matching coupon exists.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Rule, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+couponColumns+` FROM coupons WHERE code = UPPER($1)`, code)
	c, err := scanCoupon(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrInvalidCoupon
		}
		return nil, errors.Wrapf(err, "find coupon %s", code)
	}
	return &c, nil
}

// ListActive returns coupons whose validity window contains now and whose
// usage limit is not exhausted, ordered by code.
func (r *CouponRepository) ListActive(ctx context.Context, now time.Time) ([]coupon.Rule, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+couponColumns+` FROM coupons
		 WHERE (valid_from IS NULL OR valid_from <= $1)
		   AND (valid_until IS NULL OR valid_until >= $1)
		   AND (max_uses = 0 OR uses < max_uses)
		 ORDER BY code`, now)
	if err != nil {
		return nil, errors.Wrap(err, "list active coupons")
	}
	defer rows.Close()

	var coupons []coupon.Rule
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan coupon")
		}
		coupons = append(coupons, c)
	}
	return coupons, rows.Err()
}

// IncrementUses bumps the usage counter for a coupon code.
func (r *CouponRepository) IncrementUses(ctx context.Context, code string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE coupons SET uses = uses + 1 WHERE code = UPPER($1)`, code)
	if err != nil {
		return errors.Wrapf(err, "increment uses for coupon %s", code)
	}
	return nil
}

// Upsert inserts or updates a coupon rule, preserving the existing usage
// counter. Used by the seed and promo-ingest tools.
func (r *CouponRepository) Upsert(ctx context.Context, c coupon.Rule) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO coupons (code, discount_type, value, min_order_amount, max_discount,
		   description, valid_from, valid_until, max_uses, uses)
		 VALUES (UPPER($1), $2, $3, $4, $5, $6, $7, $8, $9, 0)
		 ON CONFLICT (code) DO UPDATE SET
		   discount_type = EXCLUDED.discount_type,
		   value = EXCLUDED.value,
		   min_order_amount = EXCLUDED.min_order_amount,
		   max_discount = EXCLUDED.max_discount,
		   description = EXCLUDED.description,
		   valid_from = EXCLUDED.valid_from,
		   valid_until = EXCLUDED.valid_until,
		   max_uses = EXCLUDED.max_uses`,
		c.Code, c.DiscountType, c.Value, c.MinOrderAmount, c.MaxDiscount,
		c.Description, c.ValidFrom, c.ValidUntil, c.MaxUses)
	if err != nil {
		return errors.Wrapf(err, "upsert coupon %s", c.Code)
	}
	return nil
}
