package handler

import (
	"net/http"

	"github.com/shopspring/decimal"
)

type validateCouponRequest struct {
	Code        string          `json:"code" validate:"required"`
	OrderAmount decimal.Decimal `json:"orderAmount" validate:"required"`
}

type discountResponse struct {
	Code        string          `json:"code"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description,omitempty"`
}

// ValidateCoupon checks a coupon against an order amount and returns the
// discount it would produce. No usage is consumed; that happens at order
// placement.
func (h *Handler) ValidateCoupon(w http.ResponseWriter, r *http.Request) {
	var req validateCouponRequest
	if err := h.decodeBody(r, &req); err != nil {
		respondDomainError(w, r, err)
		return
	}

	d, err := h.coupons.Preview(r.Context(), req.Code, req.OrderAmount)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, discountResponse{
		Code:        d.Code,
		Amount:      d.Amount,
		Description: d.Description,
	})
}

type activeCouponResponse struct {
	Code           string          `json:"code"`
	DiscountType   string          `json:"discountType"`
	Value          decimal.Decimal `json:"value"`
	MinOrderAmount decimal.Decimal `json:"minOrderAmount"`
	Description    string          `json:"description,omitempty"`
}

// ListActiveCoupons returns the currently redeemable promotions.
func (h *Handler) ListActiveCoupons(w http.ResponseWriter, r *http.Request) {
	rules, err := h.couponRepo.ListActive(r.Context(), h.now())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	resp := make([]activeCouponResponse, len(rules))
	for i, rule := range rules {
		resp[i] = activeCouponResponse{
			Code:           rule.Code,
			DiscountType:   string(rule.DiscountType),
			Value:          rule.Value,
			MinOrderAmount: rule.MinOrderAmount,
			Description:    rule.Description,
		}
	}
	respondJSON(w, http.StatusOK, resp)
}
