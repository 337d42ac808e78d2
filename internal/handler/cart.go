package handler

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/kstorelabs/kstore-cart/internal/domain/cart"
)

type cartItemResponse struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Image        string          `json:"image"`
	Price        decimal.Decimal `json:"price"`
	CountInStock int             `json:"countInStock"`
	Quantity     int             `json:"quantity"`
	Subtotal     decimal.Decimal `json:"subtotal"`
}

type addressResponse struct {
	FullName   string `json:"fullName"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
	Phone      string `json:"phone,omitempty"`
}

// cartResponse carries the cart lines plus derived totals. Totals are
// computed per response, never read from storage.
type cartResponse struct {
	Items           []cartItemResponse `json:"items"`
	ShippingAddress *addressResponse   `json:"shippingAddress,omitempty"`
	PaymentMethod   string             `json:"paymentMethod,omitempty"`
	TotalQuantity   int                `json:"totalQuantity"`
	TotalAmount     decimal.Decimal    `json:"totalAmount"`
}

func toCartResponse(c *cart.Cart) cartResponse {
	items := make([]cartItemResponse, len(c.Items))
	for i, it := range c.Items {
		items[i] = cartItemResponse{
			ID:           it.ID,
			Name:         it.Name,
			Image:        it.Image,
			Price:        it.Price,
			CountInStock: it.CountInStock,
			Quantity:     it.Quantity,
			Subtotal:     it.Subtotal(),
		}
	}

	resp := cartResponse{
		Items:         items,
		PaymentMethod: c.PaymentMethod,
		TotalQuantity: c.TotalQuantity(),
		TotalAmount:   c.TotalAmount(),
	}
	if c.ShippingAddress != (cart.Address{}) {
		resp.ShippingAddress = &addressResponse{
			FullName:   c.ShippingAddress.FullName,
			Line1:      c.ShippingAddress.Line1,
			Line2:      c.ShippingAddress.Line2,
			City:       c.ShippingAddress.City,
			PostalCode: c.ShippingAddress.PostalCode,
			Country:    c.ShippingAddress.Country,
			Phone:      c.ShippingAddress.Phone,
		}
	}
	return resp
}

// requireCartSession resolves the cart session ID or writes a 400.
func (h *Handler) requireCartSession(w http.ResponseWriter, r *http.Request) (string, bool) {
	sid := cartSessionID(r)
	if sid == "" {
		respondError(w, http.StatusBadRequest, "X-Session-ID header required")
		return "", false
	}
	return sid, true
}

// GetCart returns the session's cart with derived totals.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	sid, ok := h.requireCartSession(w, r)
	if !ok {
		return
	}

	c, err := h.carts.Load(r.Context(), sid)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toCartResponse(c))
}

type addCartItemRequest struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
}

// AddCartItem adds a catalog product to the cart, merging with an existing
// line for the same product.
func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	sid, ok := h.requireCartSession(w, r)
	if !ok {
		return
	}

	var req addCartItemRequest
	if err := h.decodeBody(r, &req); err != nil {
		respondDomainError(w, r, err)
		return
	}

	p, err := h.products.GetByID(r.Context(), req.ProductID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	c, err := h.carts.AddItem(r.Context(), sid, cart.Item{
		ID:           p.ID,
		Name:         p.Name,
		Image:        p.Image,
		Price:        p.Price,
		CountInStock: p.CountInStock,
	}, req.Quantity)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toCartResponse(c))
}

type setQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// SetCartItemQuantity overwrites a line's quantity; zero or less removes
// the line.
func (h *Handler) SetCartItemQuantity(w http.ResponseWriter, r *http.Request) {
	sid, ok := h.requireCartSession(w, r)
	if !ok {
		return
	}

	var req setQuantityRequest
	if err := h.decodeBody(r, &req); err != nil {
		respondDomainError(w, r, err)
		return
	}

	c, err := h.carts.SetQuantity(r.Context(), sid, r.PathValue("id"), req.Quantity)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toCartResponse(c))
}

// RemoveCartItem removes a line from the cart.
func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	sid, ok := h.requireCartSession(w, r)
	if !ok {
		return
	}

	c, err := h.carts.RemoveItem(r.Context(), sid, r.PathValue("id"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toCartResponse(c))
}

// ClearCart empties the cart.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	sid, ok := h.requireCartSession(w, r)
	if !ok {
		return
	}

	if err := h.carts.Clear(r.Context(), sid); err != nil {
		respondDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type setShippingRequest struct {
	FullName   string `json:"fullName" validate:"required"`
	Line1      string `json:"line1" validate:"required"`
	Line2      string `json:"line2"`
	City       string `json:"city" validate:"required"`
	PostalCode string `json:"postalCode" validate:"required"`
	Country    string `json:"country" validate:"required"`
	Phone      string `json:"phone"`
}

// SetShippingAddress overwrites the cart's shipping address.
func (h *Handler) SetShippingAddress(w http.ResponseWriter, r *http.Request) {
	sid, ok := h.requireCartSession(w, r)
	if !ok {
		return
	}

	var req setShippingRequest
	if err := h.decodeBody(r, &req); err != nil {
		respondDomainError(w, r, err)
		return
	}

	addr := cart.Address{
		FullName:   req.FullName,
		Line1:      req.Line1,
		Line2:      req.Line2,
		City:       req.City,
		PostalCode: req.PostalCode,
		Country:    req.Country,
		Phone:      req.Phone,
	}
	if err := h.carts.SetShippingAddress(r.Context(), sid, addr); err != nil {
		respondDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type setPaymentRequest struct {
	Method string `json:"method" validate:"required,oneof=cod card"`
}

// SetPaymentMethod overwrites the cart's payment method.
func (h *Handler) SetPaymentMethod(w http.ResponseWriter, r *http.Request) {
	sid, ok := h.requireCartSession(w, r)
	if !ok {
		return
	}

	var req setPaymentRequest
	if err := h.decodeBody(r, &req); err != nil {
		respondDomainError(w, r, err)
		return
	}

	if err := h.carts.SetPaymentMethod(r.Context(), sid, req.Method); err != nil {
		respondDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
