package payment

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
)

var minorUnits = decimal.NewFromInt(100)

// Stripe implements Provider by creating a PaymentIntent for the order
// amount. An intent that Stripe reports as succeeded or ready for capture
// approves the order; any other status leaves the order pending until the
// buyer completes confirmation.
type Stripe struct {
	api *client.API
}

// NewStripe creates a Stripe provider using the given secret API key.
func NewStripe(apiKey string) *Stripe {
	api := &client.API{}
	api.Init(apiKey, nil)
	return &Stripe{api: api}
}

// Authorize creates a PaymentIntent for the request amount in minor units.
func (s *Stripe) Authorize(ctx context.Context, req Request) (*Authorization, error) {
	params := &stripe.PaymentIntentParams{
		Params: stripe.Params{
			Context: ctx,
		},
		Amount:   stripe.Int64(req.Amount.Mul(minorUnits).IntPart()),
		Currency: stripe.String(req.Currency),
	}
	params.AddMetadata("order_id", req.OrderID)

	pi, err := s.api.PaymentIntents.New(params)
	if err != nil {
		var sErr *stripe.Error
		if errors.As(err, &sErr) && sErr.Code == stripe.ErrorCodeCardDeclined {
			return nil, &DeclinedError{Method: req.Method, Reason: sErr.Msg}
		}
		return nil, errors.Wrap(err, "create payment intent")
	}

	approved := pi.Status == stripe.PaymentIntentStatusSucceeded ||
		pi.Status == stripe.PaymentIntentStatusRequiresCapture

	return &Authorization{
		Provider:  "stripe",
		Reference: pi.ID,
		Approved:  approved,
	}, nil
}
