// Package payment defines the payment authorization port used during
// checkout, with cash-on-delivery and Stripe implementations.
package payment

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// MethodCOD is the cash-on-delivery payment method identifier. Card
// payments use MethodCard and are authorized through Stripe.
const (
	MethodCOD  = "cod"
	MethodCard = "card"
)

// ErrUnknownMethod is returned when no provider is registered for the
// requested payment method.
var ErrUnknownMethod = errors.New("unknown payment method")

// DeclinedError indicates the provider rejected the authorization.
type DeclinedError struct {
	Method string
	Reason string
}

func (e *DeclinedError) Error() string {
	return fmt.Sprintf("payment declined (%s): %s", e.Method, e.Reason)
}

// Request describes a single payment authorization attempt.
type Request struct {
	OrderID  string
	Amount   decimal.Decimal
	Currency string
	Method   string
}

// Authorization is the outcome of a successful provider call. Approved
// indicates the order may proceed to confirmation; Reference is the
// provider-side identifier for later capture or refund.
type Authorization struct {
	Provider  string
	Reference string
	Approved  bool
}

// Provider authorizes payments for a single payment method.
type Provider interface {
	Authorize(ctx context.Context, req Request) (*Authorization, error)
}

// Registry selects a Provider by payment method name.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry builds a Registry from the given method-to-provider mapping.
func NewRegistry(providers map[string]Provider) *Registry {
	return &Registry{providers: providers}
}

// Provider returns the provider registered for the method, or
// ErrUnknownMethod.
func (r *Registry) Provider(method string) (Provider, error) {
	p, ok := r.providers[method]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownMethod, "%q", method)
	}
	return p, nil
}
