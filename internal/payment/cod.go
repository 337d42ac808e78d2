package payment

import "context"

// COD implements Provider for cash-on-delivery orders. There is nothing to
// capture upfront, so every authorization is approved immediately.
type COD struct{}

// NewCOD returns the cash-on-delivery provider.
func NewCOD() *COD {
	return &COD{}
}

// Authorize accepts the order without contacting any external system.
func (c *COD) Authorize(_ context.Context, req Request) (*Authorization, error) {
	return &Authorization{
		Provider:  MethodCOD,
		Reference: "cod-" + req.OrderID,
		Approved:  true,
	}, nil
}
