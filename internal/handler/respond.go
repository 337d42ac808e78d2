package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/kstorelabs/kstore-cart/internal/domain/cart"
	"github.com/kstorelabs/kstore-cart/internal/domain/coupon"
	"github.com/kstorelabs/kstore-cart/internal/domain/order"
	"github.com/kstorelabs/kstore-cart/internal/domain/product"
	"github.com/kstorelabs/kstore-cart/internal/domain/session"
	"github.com/kstorelabs/kstore-cart/internal/payment"
)

// errorResponse is the uniform error body: one human-readable message per
// failure, surfaced inline by the client.
type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Best effort: the status code is already written.
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, errorResponse{Code: status, Message: msg})
}

// decodeBody strictly decodes the request body into dst and runs struct
// validation. Unknown fields and malformed payloads are rejected at the
// boundary with a 400.
func (h *Handler) decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errors.Wrap(err, "malformed request body")
	}
	if err := h.validate.Struct(dst); err != nil {
		return err
	}
	return nil
}

// respondDomainError maps domain errors to HTTP status codes. Anything
// unrecognized is a 500 with a generic message; the cause is logged, not
// leaked.
func respondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		iqErr  *cart.InvalidQuantityError
		isErr  *order.InsufficientStockError
		pnfErr *order.ProductNotFoundError
		itErr  *order.InvalidTransitionError
		pdErr  *payment.DeclinedError
		vErrs  validator.ValidationErrors
	)

	switch {
	case errors.Is(err, session.ErrUnauthorized):
		respondError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, order.ErrNotOwned):
		respondError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, order.ErrNotFound), errors.Is(err, product.ErrNotFound):
		respondError(w, http.StatusNotFound, "not found")
	case errors.Is(err, order.ErrEmptyCart),
		errors.Is(err, order.ErrIncompleteAddress),
		errors.Is(err, order.ErrNoPaymentMethod),
		errors.Is(err, order.ErrReasonRequired),
		errors.Is(err, cart.ErrEmptyID),
		errors.Is(err, payment.ErrUnknownMethod):
		respondError(w, http.StatusBadRequest, rootMessage(err))
	case errors.Is(err, coupon.ErrInvalidCoupon),
		errors.Is(err, coupon.ErrCouponExpired),
		errors.Is(err, coupon.ErrBelowMinimum),
		errors.Is(err, coupon.ErrCouponUsageLimitReached):
		respondError(w, http.StatusUnprocessableEntity, rootMessage(err))
	case errors.As(err, &iqErr),
		errors.As(err, &isErr),
		errors.As(err, &pnfErr),
		errors.As(err, &pdErr):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &itErr):
		respondError(w, http.StatusConflict, itErr.Error())
	case errors.Is(err, order.ErrStatusConflict):
		respondError(w, http.StatusConflict, rootMessage(err))
	case errors.As(err, &vErrs):
		respondError(w, http.StatusBadRequest, vErrs.Error())
	default:
		zctx.From(r.Context()).Error("Request failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

// rootMessage unwraps to the sentinel's message, dropping wrap prefixes
// like "validate coupon:".
func rootMessage(err error) string {
	for {
		unwrapped := errors.Unwrap(err)
		if unwrapped == nil {
			return err.Error()
		}
		err = unwrapped
	}
}
