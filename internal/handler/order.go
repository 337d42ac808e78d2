package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kstorelabs/kstore-cart/internal/domain/order"
	"github.com/kstorelabs/kstore-cart/internal/domain/session"
)

type orderItemResponse struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

type orderResponse struct {
	ID              string              `json:"id"`
	Items           []orderItemResponse `json:"items"`
	ShippingAddress addressResponse     `json:"shippingAddress"`
	PaymentMethod   string              `json:"paymentMethod"`
	PaymentRef      string              `json:"paymentRef,omitempty"`
	CouponCode      string              `json:"couponCode,omitempty"`
	ItemsPrice      decimal.Decimal     `json:"itemsPrice"`
	TaxPrice        decimal.Decimal     `json:"taxPrice"`
	ShippingPrice   decimal.Decimal     `json:"shippingPrice"`
	CouponDiscount  decimal.Decimal     `json:"couponDiscount"`
	TotalPrice      decimal.Decimal     `json:"totalPrice"`
	Status          string              `json:"status"`
	StatusReason    string              `json:"statusReason,omitempty"`
	CreatedAt       time.Time           `json:"createdAt"`
	UpdatedAt       time.Time           `json:"updatedAt"`
}

func toOrderResponse(o *order.Order) orderResponse {
	items := make([]orderItemResponse, len(o.Items))
	for i, it := range o.Items {
		items[i] = orderItemResponse{
			ProductID: it.ProductID,
			Name:      it.Name,
			Price:     it.Price,
			Quantity:  it.Quantity,
		}
	}
	return orderResponse{
		ID:    o.ID,
		Items: items,
		ShippingAddress: addressResponse{
			FullName:   o.ShippingAddress.FullName,
			Line1:      o.ShippingAddress.Line1,
			Line2:      o.ShippingAddress.Line2,
			City:       o.ShippingAddress.City,
			PostalCode: o.ShippingAddress.PostalCode,
			Country:    o.ShippingAddress.Country,
			Phone:      o.ShippingAddress.Phone,
		},
		PaymentMethod:  o.PaymentMethod,
		PaymentRef:     o.PaymentRef,
		CouponCode:     o.CouponCode,
		ItemsPrice:     o.ItemsPrice,
		TaxPrice:       o.TaxPrice,
		ShippingPrice:  o.ShippingPrice,
		CouponDiscount: o.CouponDiscount,
		TotalPrice:     o.TotalPrice,
		Status:         string(o.Status),
		StatusReason:   o.StatusReason,
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
	}
}

type placeOrderRequest struct {
	CouponCode string `json:"couponCode"`
}

// PlaceOrder assembles an order from the session's cart. The cart itself is
// server state; the body only carries the optional coupon code.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	sid, ok := h.requireCartSession(w, r)
	if !ok {
		return
	}
	sess := sessionFrom(r.Context())

	c, err := h.carts.Load(r.Context(), sid)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	if !session.CanCheckout(sess, c) {
		respondDomainError(w, r, order.ErrEmptyCart)
		return
	}

	var req placeOrderRequest
	if r.ContentLength > 0 {
		if err := h.decodeBody(r, &req); err != nil {
			respondDomainError(w, r, err)
			return
		}
	}

	o, err := h.orders.PlaceOrder(r.Context(), order.PlaceOrderRequest{
		SessionID:  sid,
		UserID:     sess.UserID,
		BuyerEmail: sess.Email,
		CouponCode: req.CouponCode,
	})
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, toOrderResponse(o))
}

// ListMyOrders returns the authenticated user's order history, newest first.
func (h *Handler) ListMyOrders(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())

	orders, err := h.orders.ListByUser(r.Context(), sess.UserID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	resp := make([]orderResponse, len(orders))
	for i := range orders {
		resp[i] = toOrderResponse(&orders[i])
	}
	respondJSON(w, http.StatusOK, resp)
}

// GetOrder returns one of the authenticated user's orders.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())

	o, err := h.orders.GetByID(r.Context(), r.PathValue("id"), sess.UserID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toOrderResponse(o))
}

type payOrderRequest struct {
	PaymentRef string `json:"paymentRef"`
}

// PayOrder confirms a pending order once the buyer completes payment with
// the provider, recording the provider's reference.
func (h *Handler) PayOrder(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())

	var req payOrderRequest
	if r.ContentLength > 0 {
		if err := h.decodeBody(r, &req); err != nil {
			respondDomainError(w, r, err)
			return
		}
	}

	o, err := h.orders.MarkPaid(r.Context(), r.PathValue("id"), sess.UserID, req.PaymentRef)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toOrderResponse(o))
}

type exitOrderRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// CancelOrder cancels one of the user's orders. Only pending and confirmed
// orders qualify; a reason is required.
func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	h.exitOrder(w, r, h.orders.Cancel)
}

// RequestReturn requests a return for a delivered order. A reason is
// required.
func (h *Handler) RequestReturn(w http.ResponseWriter, r *http.Request) {
	h.exitOrder(w, r, h.orders.RequestReturn)
}

func (h *Handler) exitOrder(
	w http.ResponseWriter, r *http.Request,
	exit func(ctx context.Context, orderID, userID, reason string) (*order.Order, error),
) {
	sess := sessionFrom(r.Context())

	var req exitOrderRequest
	if err := h.decodeBody(r, &req); err != nil {
		respondDomainError(w, r, err)
		return
	}

	o, err := exit(r.Context(), r.PathValue("id"), sess.UserID, req.Reason)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toOrderResponse(o))
}

type advanceStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// AdvanceOrderStatus moves an order forward through fulfilment. Admin only;
// cancellations and returns go through their own endpoints.
func (h *Handler) AdvanceOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req advanceStatusRequest
	if err := h.decodeBody(r, &req); err != nil {
		respondDomainError(w, r, err)
		return
	}

	to, err := order.ParseStatus(req.Status)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	o, err := h.orders.AdvanceStatus(r.Context(), r.PathValue("id"), to)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toOrderResponse(o))
}
