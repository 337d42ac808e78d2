// Package handler implements the REST edge of the storefront API. Request
// DTOs are strongly typed and validated before any business logic runs;
// malformed payloads are rejected at the boundary.
package handler

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/kstorelabs/kstore-cart/internal/domain/cart"
	"github.com/kstorelabs/kstore-cart/internal/domain/coupon"
	"github.com/kstorelabs/kstore-cart/internal/domain/order"
	"github.com/kstorelabs/kstore-cart/internal/domain/product"
	"github.com/kstorelabs/kstore-cart/internal/domain/session"
)

// Handler serves the storefront API, delegating business logic to the
// injected domain services.
type Handler struct {
	carts      *cart.Ledger
	products   product.Repository
	coupons    coupon.Validator
	couponRepo coupon.Repository
	orders     *order.Service
	verifier   session.Verifier
	validate   *validator.Validate
	now        func() time.Time
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	carts *cart.Ledger,
	products product.Repository,
	coupons coupon.Validator,
	couponRepo coupon.Repository,
	orders *order.Service,
	verifier session.Verifier,
) *Handler {
	return &Handler{
		carts:      carts,
		products:   products,
		coupons:    coupons,
		couponRepo: couponRepo,
		orders:     orders,
		verifier:   verifier,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
		now:        time.Now,
	}
}

// Routes registers all API routes on the given mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/products", h.ListProducts)
	mux.HandleFunc("GET /api/products/{id}", h.GetProduct)

	mux.HandleFunc("GET /api/cart", h.GetCart)
	mux.HandleFunc("POST /api/cart/items", h.AddCartItem)
	mux.HandleFunc("PUT /api/cart/items/{id}", h.SetCartItemQuantity)
	mux.HandleFunc("DELETE /api/cart/items/{id}", h.RemoveCartItem)
	mux.HandleFunc("DELETE /api/cart", h.ClearCart)
	mux.HandleFunc("PUT /api/cart/shipping", h.SetShippingAddress)
	mux.HandleFunc("PUT /api/cart/payment", h.SetPaymentMethod)

	mux.HandleFunc("POST /api/coupons/validate", h.ValidateCoupon)
	mux.HandleFunc("GET /api/coupons/active", h.ListActiveCoupons)

	mux.HandleFunc("POST /api/orders", h.requireAuth(h.PlaceOrder))
	mux.HandleFunc("GET /api/orders/myorders", h.requireAuth(h.ListMyOrders))
	mux.HandleFunc("GET /api/orders/{id}", h.requireAuth(h.GetOrder))
	mux.HandleFunc("PUT /api/orders/{id}/pay", h.requireAuth(h.PayOrder))
	mux.HandleFunc("PUT /api/orders/{id}/cancel", h.requireAuth(h.CancelOrder))
	mux.HandleFunc("PUT /api/orders/{id}/return", h.requireAuth(h.RequestReturn))
	mux.HandleFunc("PUT /api/orders/{id}/status", h.requireAdmin(h.AdvanceOrderStatus))
}
