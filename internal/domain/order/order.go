// Package order implements the order assembler: it turns a session cart,
// shipping address, payment method, and optional coupon into an immutable
// order and drives the order's status lifecycle.
package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kstorelabs/kstore-cart/internal/domain/cart"
)

// Item is a single line of a placed order. Price is the catalog price at
// placement time.
type Item struct {
	ProductID string
	Name      string
	Price     decimal.Decimal
	Quantity  int
}

// Order is an immutable record of a placed order. Only Status and
// StatusReason change after creation, and only through lifecycle
// transitions.
type Order struct {
	ID              string
	UserID          string
	BuyerEmail      string
	Items           []Item
	ShippingAddress cart.Address
	PaymentMethod   string
	PaymentRef      string
	CouponCode      string
	ItemsPrice      decimal.Decimal
	TaxPrice        decimal.Decimal
	ShippingPrice   decimal.Decimal
	CouponDiscount  decimal.Decimal
	TotalPrice      decimal.Decimal
	Status          Status
	StatusReason    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Repository defines persistence operations for orders.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	// UpdateStatus persists a status change together with an optional
	// reason. The write only applies while the row still holds the status
	// the caller read; otherwise ErrStatusConflict is returned.
	UpdateStatus(ctx context.Context, id string, from, to Status, reason string) error
	// MarkPaid persists the confirmed status and the provider's payment
	// reference, guarded the same way as UpdateStatus. An empty reference
	// keeps the stored one.
	MarkPaid(ctx context.Context, id string, from Status, paymentRef string) error
}

// Notifier dispatches buyer-facing notifications for order events. Calls
// are fire-and-forget: the assembler logs failures and never lets them
// block order finalization.
type Notifier interface {
	OrderPlaced(ctx context.Context, o *Order) error
}
