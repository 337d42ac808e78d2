package postgres

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kstorelabs/kstore-cart/internal/domain/cart"
	"github.com/kstorelabs/kstore-cart/internal/domain/order"
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL. Line
// items and the shipping address are stored as JSONB; they never change
// after placement.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

const orderColumns = `id, user_id, buyer_email, items, shipping_address, payment_method,
	payment_ref, coupon_code, items_price, tax_price, shipping_price, coupon_discount,
	total_price, status, status_reason, created_at, updated_at`

// Create persists a new order.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return errors.Wrap(err, "marshal order items")
	}
	addrJSON, err := json.Marshal(o.ShippingAddress)
	if err != nil {
		return errors.Wrap(err, "marshal shipping address")
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO orders (`+orderColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		o.ID, o.UserID, o.BuyerEmail, itemsJSON, addrJSON, o.PaymentMethod, o.PaymentRef,
		o.CouponCode, o.ItemsPrice, o.TaxPrice, o.ShippingPrice, o.CouponDiscount,
		o.TotalPrice, string(o.Status), o.StatusReason, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return errors.Wrapf(err, "create order %s", o.ID)
	}
	return nil
}

func scanOrder(row pgx.Row) (*order.Order, error) {
	var (
		o         order.Order
		itemsJSON []byte
		addrJSON  []byte
		status    string
	)
	err := row.Scan(&o.ID, &o.UserID, &o.BuyerEmail, &itemsJSON, &addrJSON, &o.PaymentMethod,
		&o.PaymentRef, &o.CouponCode, &o.ItemsPrice, &o.TaxPrice, &o.ShippingPrice,
		&o.CouponDiscount, &o.TotalPrice, &status, &o.StatusReason, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
		return nil, errors.Wrap(err, "unmarshal order items")
	}
	var addr cart.Address
	if err := json.Unmarshal(addrJSON, &addr); err != nil {
		return nil, errors.Wrap(err, "unmarshal shipping address")
	}
	o.ShippingAddress = addr
	o.Status = order.Status(status)
	return &o, nil
}

// GetByID returns a single order. It returns order.ErrNotFound when no
// matching order exists.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get order %s", id)
	}
	return o, nil
}

// ListByUser returns the user's orders, newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, errors.Wrapf(err, "list orders for user %s", userID)
	}
	defer rows.Close()

	var orders []order.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan order")
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}

// UpdateStatus persists a status change with its optional reason. The
// UPDATE is a compare-and-set on the status the service read: a row that
// moved on concurrently is left untouched and ErrStatusConflict is
// returned, so a terminal state can never be overwritten by a stale
// transition.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, from, to order.Status, reason string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE orders SET status = $3, status_reason = $4, updated_at = now()
		 WHERE id = $1 AND status = $2`,
		id, string(from), string(to), reason)
	if err != nil {
		return errors.Wrapf(err, "update status of order %s", id)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrStatusConflict
	}
	return nil
}

// MarkPaid persists the confirmed status and the payment reference, with
// the same compare-and-set guard as UpdateStatus. An empty reference
// keeps the stored one.
func (r *OrderRepository) MarkPaid(ctx context.Context, id string, from order.Status, paymentRef string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE orders
		 SET status = $3,
		     payment_ref = CASE WHEN $4 = '' THEN payment_ref ELSE $4 END,
		     updated_at = now()
		 WHERE id = $1 AND status = $2`,
		id, string(from), string(order.StatusConfirmed), paymentRef)
	if err != nil {
		return errors.Wrapf(err, "mark order %s paid", id)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrStatusConflict
	}
	return nil
}
