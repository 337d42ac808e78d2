package order

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kstorelabs/kstore-cart/internal/domain/cart"
	"github.com/kstorelabs/kstore-cart/internal/domain/coupon"
	"github.com/kstorelabs/kstore-cart/internal/domain/product"
	"github.com/kstorelabs/kstore-cart/internal/payment"
)

// --- Mock implementations ---

type mockCartStore struct {
	carts   map[string]*cart.Cart
	cleared []string
}

func newMockCartStore() *mockCartStore {
	return &mockCartStore{carts: make(map[string]*cart.Cart)}
}

func (m *mockCartStore) Load(_ context.Context, sessionID string) (*cart.Cart, error) {
	return m.carts[sessionID], nil
}

func (m *mockCartStore) SaveItems(_ context.Context, sessionID string, items []cart.Item) error {
	c, ok := m.carts[sessionID]
	if !ok {
		c = &cart.Cart{}
		m.carts[sessionID] = c
	}
	c.Items = items
	return nil
}

func (m *mockCartStore) SaveShippingAddress(_ context.Context, _ string, _ cart.Address) error {
	return nil
}

func (m *mockCartStore) SavePaymentMethod(_ context.Context, _ string, _ string) error {
	return nil
}

func (m *mockCartStore) Clear(_ context.Context, sessionID string) error {
	m.cleared = append(m.cleared, sessionID)
	if c, ok := m.carts[sessionID]; ok {
		c.Items = nil
	}
	return nil
}

type mockProductRepo struct {
	byID map[string]product.Product
	err  error
}

func (m *mockProductRepo) List(_ context.Context) ([]product.Product, error) {
	return nil, nil
}

func (m *mockProductRepo) GetByID(_ context.Context, id string) (*product.Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return &p, nil
}

func (m *mockProductRepo) GetByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []product.Product
	for _, id := range ids {
		if p, ok := m.byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

type mockCouponValidator struct {
	discount  *coupon.Discount
	err       error
	validated []string
}

func (m *mockCouponValidator) Preview(_ context.Context, code string, _ decimal.Decimal) (*coupon.Discount, error) {
	return m.discount, m.err
}

func (m *mockCouponValidator) Validate(_ context.Context, code string, _ decimal.Decimal) (*coupon.Discount, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.validated = append(m.validated, code)
	return m.discount, nil
}

type mockOrderRepo struct {
	byID      map[string]*Order
	created   *Order
	createErr error
	statuses  []Status
	// afterRead runs once GetByID has taken its snapshot, letting tests
	// interleave a concurrent mutation between read and write.
	afterRead func()
}

func newMockOrderRepo(orders ...*Order) *mockOrderRepo {
	byID := make(map[string]*Order)
	for _, o := range orders {
		byID[o.ID] = o
	}
	return &mockOrderRepo{byID: byID}
}

func (m *mockOrderRepo) Create(_ context.Context, o *Order) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.created = o
	m.byID[o.ID] = o
	return nil
}

func (m *mockOrderRepo) GetByID(_ context.Context, id string) (*Order, error) {
	o, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *o
	if m.afterRead != nil {
		m.afterRead()
	}
	return &cp, nil
}

func (m *mockOrderRepo) ListByUser(_ context.Context, userID string) ([]Order, error) {
	var out []Order
	for _, o := range m.byID {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *mockOrderRepo) UpdateStatus(_ context.Context, id string, from, to Status, reason string) error {
	o, ok := m.byID[id]
	if !ok || o.Status != from {
		return ErrStatusConflict
	}
	o.Status = to
	o.StatusReason = reason
	m.statuses = append(m.statuses, to)
	return nil
}

func (m *mockOrderRepo) MarkPaid(_ context.Context, id string, from Status, paymentRef string) error {
	o, ok := m.byID[id]
	if !ok || o.Status != from {
		return ErrStatusConflict
	}
	o.Status = StatusConfirmed
	if paymentRef != "" {
		o.PaymentRef = paymentRef
	}
	return nil
}

type mockNotifier struct {
	placed []string
	err    error
}

func (m *mockNotifier) OrderPlaced(_ context.Context, o *Order) error {
	if m.err != nil {
		return m.err
	}
	m.placed = append(m.placed, o.ID)
	return nil
}

type mockPaymentProvider struct {
	auth *payment.Authorization
	err  error
}

func (m *mockPaymentProvider) Authorize(_ context.Context, req payment.Request) (*payment.Authorization, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.auth, nil
}

// --- Helpers ---

type fixture struct {
	svc      *Service
	store    *mockCartStore
	products *mockProductRepo
	coupons  *mockCouponValidator
	orders   *mockOrderRepo
	notifier *mockNotifier
}

func newFixture(t *testing.T, provider payment.Provider) *fixture {
	t.Helper()

	store := newMockCartStore()
	products := &mockProductRepo{byID: map[string]product.Product{
		"p1": {ID: "p1", Name: "Widget", Price: decimal.NewFromInt(50), CountInStock: 10},
		"p2": {ID: "p2", Name: "Gadget", Price: decimal.NewFromInt(100), CountInStock: 3},
	}}
	coupons := &mockCouponValidator{}
	orders := newMockOrderRepo()
	notifier := &mockNotifier{}

	if provider == nil {
		provider = payment.NewCOD()
	}
	registry := payment.NewRegistry(map[string]payment.Provider{
		payment.MethodCOD: provider,
	})

	svc := NewService(cart.NewLedger(store), products, coupons, orders, registry, notifier, "USD")
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC) }

	return &fixture{
		svc:      svc,
		store:    store,
		products: products,
		coupons:  coupons,
		orders:   orders,
		notifier: notifier,
	}
}

func completeAddress() cart.Address {
	return cart.Address{
		FullName:   "Jo Doe",
		Line1:      "1 Main St",
		City:       "Springfield",
		PostalCode: "12345",
		Country:    "US",
	}
}

func (f *fixture) seedCart(items []cart.Item, addr cart.Address, method string) {
	f.store.carts["s1"] = &cart.Cart{
		Items:           items,
		ShippingAddress: addr,
		PaymentMethod:   method,
	}
}

func placeReq() PlaceOrderRequest {
	return PlaceOrderRequest{
		SessionID:  "s1",
		UserID:     "u1",
		BuyerEmail: "jo@example.com",
	}
}

// --- PlaceOrder ---

func TestPlaceOrder_Pricing(t *testing.T) {
	f := newFixture(t, nil)
	// 2 x 50 + 1 x 100 = 200 items price.
	f.seedCart([]cart.Item{
		{ID: "p1", Quantity: 2},
		{ID: "p2", Quantity: 1},
	}, completeAddress(), payment.MethodCOD)

	o, err := f.svc.PlaceOrder(context.Background(), placeReq())
	require.NoError(t, err)

	assert.True(t, o.ItemsPrice.Equal(decimal.NewFromInt(200)), "items price %s", o.ItemsPrice)
	assert.True(t, o.TaxPrice.Equal(decimal.NewFromInt(10)), "tax %s", o.TaxPrice)
	assert.True(t, o.ShippingPrice.Equal(decimal.NewFromInt(50)), "shipping %s", o.ShippingPrice)
	assert.True(t, o.CouponDiscount.IsZero())
	assert.True(t, o.TotalPrice.Equal(decimal.NewFromInt(260)), "total %s", o.TotalPrice)

	// COD authorizes immediately; order lands confirmed with a reference.
	assert.Equal(t, StatusConfirmed, o.Status)
	assert.Equal(t, "cod-"+o.ID, o.PaymentRef)
	assert.Equal(t, "jo@example.com", o.BuyerEmail)

	// Prices captured at placement, not cart snapshot prices.
	require.Len(t, o.Items, 2)
	assert.Equal(t, "Widget", o.Items[0].Name)
}

func TestPlaceOrder_WithCoupon(t *testing.T) {
	f := newFixture(t, nil)
	f.coupons.discount = &coupon.Discount{Code: "TEN", Amount: decimal.NewFromInt(20)}
	f.seedCart([]cart.Item{
		{ID: "p1", Quantity: 2},
		{ID: "p2", Quantity: 1},
	}, completeAddress(), payment.MethodCOD)

	req := placeReq()
	req.CouponCode = "TEN"

	o, err := f.svc.PlaceOrder(context.Background(), req)
	require.NoError(t, err)

	// 200 + 10 tax + 50 shipping - 20 discount = 240.
	assert.True(t, o.CouponDiscount.Equal(decimal.NewFromInt(20)))
	assert.True(t, o.TotalPrice.Equal(decimal.NewFromInt(240)), "total %s", o.TotalPrice)
	assert.Equal(t, []string{"TEN"}, f.coupons.validated)
}

func TestPlaceOrder_FreeShippingAboveThreshold(t *testing.T) {
	f := newFixture(t, nil)
	// 6 x 100 = 600 > 500 threshold.
	f.seedCart([]cart.Item{{ID: "p2", Quantity: 6}}, completeAddress(), payment.MethodCOD)
	f.products.byID["p2"] = product.Product{ID: "p2", Name: "Gadget", Price: decimal.NewFromInt(100), CountInStock: 10}

	o, err := f.svc.PlaceOrder(context.Background(), placeReq())
	require.NoError(t, err)
	assert.True(t, o.ShippingPrice.IsZero(), "shipping %s", o.ShippingPrice)
}

func TestPlaceOrder_TotalFlooredAtZero(t *testing.T) {
	f := newFixture(t, nil)
	f.coupons.discount = &coupon.Discount{Code: "HUGE", Amount: decimal.NewFromInt(9999)}
	f.seedCart([]cart.Item{{ID: "p1", Quantity: 1}}, completeAddress(), payment.MethodCOD)

	req := placeReq()
	req.CouponCode = "HUGE"

	o, err := f.svc.PlaceOrder(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, o.TotalPrice.IsZero(), "total %s", o.TotalPrice)
}

func TestPlaceOrder_Validation(t *testing.T) {
	tests := []struct {
		name    string
		items   []cart.Item
		addr    cart.Address
		method  string
		wantErr error
	}{
		{
			name:    "empty cart",
			items:   nil,
			addr:    completeAddress(),
			method:  payment.MethodCOD,
			wantErr: ErrEmptyCart,
		},
		{
			name:    "incomplete address",
			items:   []cart.Item{{ID: "p1", Quantity: 1}},
			addr:    cart.Address{FullName: "Jo"},
			wantErr: ErrIncompleteAddress,
		},
		{
			name:    "no payment method",
			items:   []cart.Item{{ID: "p1", Quantity: 1}},
			addr:    completeAddress(),
			method:  "",
			wantErr: ErrNoPaymentMethod,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			f.seedCart(tt.items, tt.addr, tt.method)

			_, err := f.svc.PlaceOrder(context.Background(), placeReq())
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, f.orders.created)
		})
	}
}

func TestPlaceOrder_InsufficientStock(t *testing.T) {
	f := newFixture(t, nil)
	f.seedCart([]cart.Item{{ID: "p2", Quantity: 5}}, completeAddress(), payment.MethodCOD)

	_, err := f.svc.PlaceOrder(context.Background(), placeReq())

	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "p2", stockErr.ProductID)
	assert.Equal(t, 5, stockErr.Requested)
	assert.Equal(t, 3, stockErr.InStock)
}

func TestPlaceOrder_ProductGone(t *testing.T) {
	f := newFixture(t, nil)
	f.seedCart([]cart.Item{{ID: "discontinued", Quantity: 1}}, completeAddress(), payment.MethodCOD)

	_, err := f.svc.PlaceOrder(context.Background(), placeReq())

	var pnfErr *ProductNotFoundError
	require.ErrorAs(t, err, &pnfErr)
	assert.Equal(t, "discontinued", pnfErr.ProductID)
}

func TestPlaceOrder_CouponFailureAborts(t *testing.T) {
	f := newFixture(t, nil)
	f.coupons.err = coupon.ErrInvalidCoupon
	f.seedCart([]cart.Item{{ID: "p1", Quantity: 1}}, completeAddress(), payment.MethodCOD)

	req := placeReq()
	req.CouponCode = "BOGUS"

	_, err := f.svc.PlaceOrder(context.Background(), req)
	assert.ErrorIs(t, err, coupon.ErrInvalidCoupon)
	assert.Nil(t, f.orders.created)
	assert.Empty(t, f.store.cleared)
}

func TestPlaceOrder_PaymentDeclined(t *testing.T) {
	declined := &payment.DeclinedError{Method: payment.MethodCOD, Reason: "test decline"}
	f := newFixture(t, &mockPaymentProvider{err: declined})
	f.seedCart([]cart.Item{{ID: "p1", Quantity: 1}}, completeAddress(), payment.MethodCOD)

	_, err := f.svc.PlaceOrder(context.Background(), placeReq())

	var dErr *payment.DeclinedError
	assert.ErrorAs(t, err, &dErr)
	assert.Nil(t, f.orders.created)
	assert.Empty(t, f.store.cleared, "cart must survive a declined payment")
}

func TestPlaceOrder_UnapprovedStaysPending(t *testing.T) {
	f := newFixture(t, &mockPaymentProvider{auth: &payment.Authorization{
		Provider: "mock", Reference: "ref-1", Approved: false,
	}})
	f.seedCart([]cart.Item{{ID: "p1", Quantity: 1}}, completeAddress(), payment.MethodCOD)

	o, err := f.svc.PlaceOrder(context.Background(), placeReq())
	require.NoError(t, err)
	assert.Equal(t, StatusPending, o.Status)
	assert.Equal(t, "ref-1", o.PaymentRef)
}

func TestPlaceOrder_ClearsCartAndNotifies(t *testing.T) {
	f := newFixture(t, nil)
	f.seedCart([]cart.Item{{ID: "p1", Quantity: 1}}, completeAddress(), payment.MethodCOD)

	o, err := f.svc.PlaceOrder(context.Background(), placeReq())
	require.NoError(t, err)

	assert.Equal(t, []string{"s1"}, f.store.cleared)
	assert.Equal(t, []string{o.ID}, f.notifier.placed)
}

func TestPlaceOrder_NotifierFailureDoesNotFail(t *testing.T) {
	f := newFixture(t, nil)
	f.notifier.err = errors.New("smtp down")
	f.seedCart([]cart.Item{{ID: "p1", Quantity: 1}}, completeAddress(), payment.MethodCOD)

	o, err := f.svc.PlaceOrder(context.Background(), placeReq())
	require.NoError(t, err)
	assert.NotNil(t, o)
	assert.NotNil(t, f.orders.created)
}

// --- Lookup and lifecycle ---

func TestGetByID_Ownership(t *testing.T) {
	f := newFixture(t, nil)
	f.orders.byID["o1"] = &Order{ID: "o1", UserID: "u1", Status: StatusPending}

	o, err := f.svc.GetByID(context.Background(), "o1", "u1")
	require.NoError(t, err)
	assert.Equal(t, "o1", o.ID)

	_, err = f.svc.GetByID(context.Background(), "o1", "intruder")
	assert.ErrorIs(t, err, ErrNotOwned)

	_, err = f.svc.GetByID(context.Background(), "missing", "u1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCancel(t *testing.T) {
	tests := []struct {
		name    string
		status  Status
		reason  string
		wantErr bool
	}{
		{"pending with reason", StatusPending, "changed my mind", false},
		{"confirmed with reason", StatusConfirmed, "ordered twice", false},
		{"processing rejected", StatusProcessing, "too late", true},
		{"shipped rejected", StatusShipped, "too late", true},
		{"delivered rejected", StatusDelivered, "too late", true},
		{"cancelled is terminal", StatusCancelled, "again", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			f.orders.byID["o1"] = &Order{ID: "o1", UserID: "u1", Status: tt.status}

			o, err := f.svc.Cancel(context.Background(), "o1", "u1", tt.reason)
			if tt.wantErr {
				var itErr *InvalidTransitionError
				assert.ErrorAs(t, err, &itErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, StatusCancelled, o.Status)
			assert.Equal(t, tt.reason, o.StatusReason)
		})
	}
}

func TestCancel_ReasonRequired(t *testing.T) {
	f := newFixture(t, nil)
	f.orders.byID["o1"] = &Order{ID: "o1", UserID: "u1", Status: StatusPending}

	_, err := f.svc.Cancel(context.Background(), "o1", "u1", "")
	assert.ErrorIs(t, err, ErrReasonRequired)
}

func TestRequestReturn(t *testing.T) {
	f := newFixture(t, nil)
	f.orders.byID["o1"] = &Order{ID: "o1", UserID: "u1", Status: StatusDelivered}

	o, err := f.svc.RequestReturn(context.Background(), "o1", "u1", "wrong size")
	require.NoError(t, err)
	assert.Equal(t, StatusReturned, o.Status)

	// Only delivered orders can be returned.
	f.orders.byID["o2"] = &Order{ID: "o2", UserID: "u1", Status: StatusProcessing}
	_, err = f.svc.RequestReturn(context.Background(), "o2", "u1", "wrong size")
	var itErr *InvalidTransitionError
	assert.ErrorAs(t, err, &itErr)
}

func TestMarkPaid(t *testing.T) {
	f := newFixture(t, nil)
	f.orders.byID["o1"] = &Order{ID: "o1", UserID: "u1", Status: StatusPending, PaymentRef: "intent-1"}

	o, err := f.svc.MarkPaid(context.Background(), "o1", "u1", "charge-9")
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, o.Status)
	assert.Equal(t, "charge-9", o.PaymentRef)

	// An empty reference keeps the stored one.
	f.orders.byID["o2"] = &Order{ID: "o2", UserID: "u1", Status: StatusPending, PaymentRef: "intent-2"}
	o, err = f.svc.MarkPaid(context.Background(), "o2", "u1", "")
	require.NoError(t, err)
	assert.Equal(t, "intent-2", o.PaymentRef)

	// Already-confirmed orders cannot be paid again.
	_, err = f.svc.MarkPaid(context.Background(), "o1", "u1", "charge-10")
	var itErr *InvalidTransitionError
	assert.ErrorAs(t, err, &itErr)

	_, err = f.svc.MarkPaid(context.Background(), "o1", "intruder", "charge-11")
	assert.ErrorIs(t, err, ErrNotOwned)
}

func TestMarkPaid_ConcurrentCancelWins(t *testing.T) {
	// The order reads as pending, then an admin cancellation commits
	// before the payment write lands. The guarded write must refuse to
	// resurrect the terminal order.
	f := newFixture(t, nil)
	f.orders.byID["o1"] = &Order{ID: "o1", UserID: "u1", Status: StatusPending}
	f.orders.afterRead = func() {
		f.orders.byID["o1"].Status = StatusCancelled
		f.orders.afterRead = nil
	}

	_, err := f.svc.MarkPaid(context.Background(), "o1", "u1", "charge-9")
	assert.ErrorIs(t, err, ErrStatusConflict)
	assert.Equal(t, StatusCancelled, f.orders.byID["o1"].Status)
}

func TestCancel_ConcurrentAdvanceWins(t *testing.T) {
	f := newFixture(t, nil)
	f.orders.byID["o1"] = &Order{ID: "o1", UserID: "u1", Status: StatusConfirmed}
	f.orders.afterRead = func() {
		f.orders.byID["o1"].Status = StatusProcessing
		f.orders.afterRead = nil
	}

	_, err := f.svc.Cancel(context.Background(), "o1", "u1", "changed my mind")
	assert.ErrorIs(t, err, ErrStatusConflict)
	assert.Equal(t, StatusProcessing, f.orders.byID["o1"].Status)
}

func TestAdvanceStatus(t *testing.T) {
	f := newFixture(t, nil)
	f.orders.byID["o1"] = &Order{ID: "o1", UserID: "u1", Status: StatusConfirmed}

	o, err := f.svc.AdvanceStatus(context.Background(), "o1", StatusProcessing)
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, o.Status)

	o, err = f.svc.AdvanceStatus(context.Background(), "o1", StatusShipped)
	require.NoError(t, err)
	assert.Equal(t, StatusShipped, o.Status)

	// Skipping a step is rejected.
	f.orders.byID["o2"] = &Order{ID: "o2", UserID: "u1", Status: StatusConfirmed}
	_, err = f.svc.AdvanceStatus(context.Background(), "o2", StatusDelivered)
	var itErr *InvalidTransitionError
	assert.ErrorAs(t, err, &itErr)
}

func TestAdvanceStatus_SideExitsRejected(t *testing.T) {
	f := newFixture(t, nil)
	f.orders.byID["o1"] = &Order{ID: "o1", UserID: "u1", Status: StatusPending}

	// Cancellations and returns carry reasons and go through their own
	// entry points.
	_, err := f.svc.AdvanceStatus(context.Background(), "o1", StatusCancelled)
	assert.ErrorIs(t, err, ErrReasonRequired)

	_, err = f.svc.AdvanceStatus(context.Background(), "o1", StatusReturned)
	assert.ErrorIs(t, err, ErrReasonRequired)
}
