package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/kstorelabs/kstore-cart/internal/domain/cart"
	"github.com/kstorelabs/kstore-cart/internal/domain/coupon"
	"github.com/kstorelabs/kstore-cart/internal/domain/product"
	"github.com/kstorelabs/kstore-cart/internal/payment"
)

// Pricing constants. Tax is a flat 5% of the items price; shipping is free
// above the threshold, flat otherwise.
var (
	taxRate           = decimal.RequireFromString("0.05")
	freeShippingAbove = decimal.NewFromInt(500)
	shippingFee       = decimal.NewFromInt(50)
)

// Sentinel errors for order placement and lifecycle validation.
var (
	ErrEmptyCart         = errors.New("cart is empty")
	ErrIncompleteAddress = errors.New("shipping address is incomplete")
	ErrNoPaymentMethod   = errors.New("payment method is required")
	ErrReasonRequired    = errors.New("a reason is required")
	ErrNotFound          = errors.New("order not found")
	ErrNotOwned          = errors.New("order belongs to another user")
	ErrStatusConflict    = errors.New("order status changed concurrently")
)

// InsufficientStockError indicates a cart line exceeding current stock.
type InsufficientStockError struct {
	ProductID string
	Requested int
	InStock   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("product %s has %d in stock, %d requested", e.ProductID, e.InStock, e.Requested)
}

// ProductNotFoundError indicates a cart line referencing a product that no
// longer exists in the catalog.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// PlaceOrderRequest holds the input for placing an order. The cart itself
// is loaded from the session ledger.
type PlaceOrderRequest struct {
	SessionID  string
	UserID     string
	BuyerEmail string
	CouponCode string
}

// Service encapsulates order placement and lifecycle business logic.
type Service struct {
	carts    *cart.Ledger
	products product.Repository
	coupons  coupon.Validator
	orders   Repository
	payments *payment.Registry
	notifier Notifier
	currency string
	now      func() time.Time
}

// NewService creates an order Service with the required domain dependencies.
func NewService(
	carts *cart.Ledger,
	products product.Repository,
	coupons coupon.Validator,
	orders Repository,
	payments *payment.Registry,
	notifier Notifier,
	currency string,
) *Service {
	return &Service{
		carts:    carts,
		products: products,
		coupons:  coupons,
		orders:   orders,
		payments: payments,
		notifier: notifier,
		currency: currency,
		now:      time.Now,
	}
}

// PlaceOrder assembles an order from the session's cart. It validates the
// cart and address, re-fetches products for authoritative prices and stock,
// prices the order, authorizes payment, persists the order, clears the cart
// ledger, and enqueues a confirmation notification.
//
// The cart and the placed order are never both held: a successful placement
// always ends with an empty cart.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*Order, error) {
	c, err := s.carts.Load(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	if len(c.Items) == 0 {
		return nil, ErrEmptyCart
	}
	if !c.ShippingAddress.Complete() {
		return nil, ErrIncompleteAddress
	}
	if c.PaymentMethod == "" {
		return nil, ErrNoPaymentMethod
	}

	items, itemsPrice, err := s.priceItems(ctx, c.Items)
	if err != nil {
		return nil, err
	}

	taxPrice := itemsPrice.Mul(taxRate).Round(2)
	shippingPrice := shippingFee
	if itemsPrice.GreaterThan(freeShippingAbove) {
		shippingPrice = decimal.Zero
	}

	discount := decimal.Zero
	if req.CouponCode != "" {
		d, err := s.coupons.Validate(ctx, req.CouponCode, itemsPrice)
		if err != nil {
			return nil, errors.Wrap(err, "validate coupon")
		}
		discount = d.Amount
	}

	total := itemsPrice.Add(taxPrice).Add(shippingPrice).Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}

	now := s.now()
	o := &Order{
		ID:              uuid.New().String(),
		UserID:          req.UserID,
		BuyerEmail:      req.BuyerEmail,
		Items:           items,
		ShippingAddress: c.ShippingAddress,
		PaymentMethod:   c.PaymentMethod,
		CouponCode:      req.CouponCode,
		ItemsPrice:      itemsPrice,
		TaxPrice:        taxPrice,
		ShippingPrice:   shippingPrice,
		CouponDiscount:  discount,
		TotalPrice:      total.Round(2),
		Status:          StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	prov, err := s.payments.Provider(c.PaymentMethod)
	if err != nil {
		return nil, err
	}
	auth, err := prov.Authorize(ctx, payment.Request{
		OrderID:  o.ID,
		Amount:   o.TotalPrice,
		Currency: s.currency,
		Method:   c.PaymentMethod,
	})
	if err != nil {
		return nil, errors.Wrap(err, "authorize payment")
	}
	o.PaymentRef = auth.Reference
	if auth.Approved {
		o.Status = StatusConfirmed
	}

	if err := s.orders.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	// Cart and notification are side effects of an already-placed order:
	// failures are logged, never returned.
	lg := zctx.From(ctx)
	if err := s.carts.Clear(ctx, req.SessionID); err != nil {
		lg.Warn("Failed to clear cart after order placement",
			zap.String("order_id", o.ID), zap.Error(err))
	}
	if err := s.notifier.OrderPlaced(ctx, o); err != nil {
		lg.Warn("Failed to enqueue order confirmation",
			zap.String("order_id", o.ID), zap.Error(err))
	}

	return o, nil
}

// priceItems re-fetches products in one batch, verifies existence and
// stock, and returns the order lines priced at the current catalog price.
func (s *Service) priceItems(ctx context.Context, lines []cart.Item) ([]Item, decimal.Decimal, error) {
	ids := make([]string, len(lines))
	for i, line := range lines {
		ids[i] = line.ID
	}

	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, decimal.Zero, errors.Wrap(err, "get products")
	}
	byID := make(map[string]product.Product, len(fetched))
	for _, p := range fetched {
		byID[p.ID] = p
	}

	items := make([]Item, len(lines))
	itemsPrice := decimal.Zero
	for i, line := range lines {
		p, ok := byID[line.ID]
		if !ok {
			return nil, decimal.Zero, &ProductNotFoundError{ProductID: line.ID}
		}
		if line.Quantity > p.CountInStock {
			return nil, decimal.Zero, &InsufficientStockError{
				ProductID: line.ID,
				Requested: line.Quantity,
				InStock:   p.CountInStock,
			}
		}

		items[i] = Item{
			ProductID: p.ID,
			Name:      p.Name,
			Price:     p.Price,
			Quantity:  line.Quantity,
		}
		itemsPrice = itemsPrice.Add(p.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}

	return items, itemsPrice, nil
}

// GetByID returns the order when it belongs to the given user.
func (s *Service) GetByID(ctx context.Context, orderID, userID string) (*Order, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, ErrNotOwned
	}
	return o, nil
}

// ListByUser returns the user's order history, newest first.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	return s.orders.ListByUser(ctx, userID)
}

// Cancel moves an order to cancelled. Only pending and confirmed orders
// may be cancelled, and a non-empty reason is required.
func (s *Service) Cancel(ctx context.Context, orderID, userID, reason string) (*Order, error) {
	return s.exit(ctx, orderID, userID, StatusCancelled, reason)
}

// RequestReturn moves an order to returned. Only delivered orders qualify,
// and a non-empty reason is required.
func (s *Service) RequestReturn(ctx context.Context, orderID, userID, reason string) (*Order, error) {
	return s.exit(ctx, orderID, userID, StatusReturned, reason)
}

// exit performs a buyer-initiated side exit (cancel or return).
func (s *Service) exit(ctx context.Context, orderID, userID string, to Status, reason string) (*Order, error) {
	if reason == "" {
		return nil, ErrReasonRequired
	}

	o, err := s.GetByID(ctx, orderID, userID)
	if err != nil {
		return nil, err
	}
	if !o.Status.CanTransition(to) {
		return nil, &InvalidTransitionError{From: o.Status, To: to}
	}

	if err := s.orders.UpdateStatus(ctx, o.ID, o.Status, to, reason); err != nil {
		return nil, errors.Wrap(err, "update order status")
	}
	o.Status = to
	o.StatusReason = reason
	return o, nil
}

// MarkPaid confirms a pending order after the buyer completes payment with
// the provider. The provider reference is recorded for later capture or
// refund.
func (s *Service) MarkPaid(ctx context.Context, orderID, userID, paymentRef string) (*Order, error) {
	o, err := s.GetByID(ctx, orderID, userID)
	if err != nil {
		return nil, err
	}
	if !o.Status.CanTransition(StatusConfirmed) {
		return nil, &InvalidTransitionError{From: o.Status, To: StatusConfirmed}
	}

	if err := s.orders.MarkPaid(ctx, o.ID, o.Status, paymentRef); err != nil {
		return nil, errors.Wrap(err, "mark order paid")
	}
	o.Status = StatusConfirmed
	if paymentRef != "" {
		o.PaymentRef = paymentRef
	}
	return o, nil
}

// AdvanceStatus performs an administrative forward transition (confirmed ->
// processing -> shipped -> delivered). The transition table rejects
// anything else, including transitions out of terminal states.
func (s *Service) AdvanceStatus(ctx context.Context, orderID string, to Status) (*Order, error) {
	if to == StatusCancelled || to == StatusReturned {
		// Side exits require a reason and go through Cancel/RequestReturn.
		return nil, ErrReasonRequired
	}

	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !o.Status.CanTransition(to) {
		return nil, &InvalidTransitionError{From: o.Status, To: to}
	}

	if err := s.orders.UpdateStatus(ctx, o.ID, o.Status, to, ""); err != nil {
		return nil, errors.Wrap(err, "update order status")
	}
	o.Status = to
	o.StatusReason = ""
	return o, nil
}
