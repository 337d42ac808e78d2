// Package notify implements buyer notifications as a Postgres-backed job
// queue drained by a background worker. Enqueueing is fire-and-forget from
// the order assembler's point of view: a failed enqueue is logged by the
// caller and never blocks order finalization.
package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/kstorelabs/kstore-cart/internal/domain/order"
)

// JobTypeOrderConfirmation identifies order confirmation email jobs.
const JobTypeOrderConfirmation = "email:order_confirmation"

// Job is a claimed notification job.
type Job struct {
	ID       int64
	Type     string
	Payload  []byte
	Attempts int
}

// JobStore persists and claims notification jobs.
type JobStore interface {
	Enqueue(ctx context.Context, jobType string, payload []byte) error
	ClaimPending(ctx context.Context, limit int) ([]Job, error)
	MarkDone(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, cause string, retry bool) error
}

// OrderConfirmationPayload is the JSON payload of an order confirmation job.
type OrderConfirmationPayload struct {
	OrderID       string          `json:"order_id"`
	Email         string          `json:"email"`
	CustomerName  string          `json:"customer_name"`
	OrderDate     time.Time       `json:"order_date"`
	Status        string          `json:"status"`
	ItemsPrice    decimal.Decimal `json:"items_price"`
	TaxPrice      decimal.Decimal `json:"tax_price"`
	ShippingPrice decimal.Decimal `json:"shipping_price"`
	Discount      decimal.Decimal `json:"discount"`
	TotalPrice    decimal.Decimal `json:"total_price"`
}

// Queue implements order.Notifier by enqueueing jobs for the worker.
type Queue struct {
	store JobStore
}

var _ order.Notifier = (*Queue)(nil)

// NewQueue creates a Queue backed by the given JobStore.
func NewQueue(store JobStore) *Queue {
	return &Queue{store: store}
}

// OrderPlaced enqueues an order confirmation email for the buyer.
func (q *Queue) OrderPlaced(ctx context.Context, o *order.Order) error {
	payload, err := json.Marshal(OrderConfirmationPayload{
		OrderID:       o.ID,
		Email:         o.BuyerEmail,
		CustomerName:  o.ShippingAddress.FullName,
		OrderDate:     o.CreatedAt,
		Status:        string(o.Status),
		ItemsPrice:    o.ItemsPrice,
		TaxPrice:      o.TaxPrice,
		ShippingPrice: o.ShippingPrice,
		Discount:      o.CouponDiscount,
		TotalPrice:    o.TotalPrice,
	})
	if err != nil {
		return errors.Wrap(err, "marshal payload")
	}
	return q.store.Enqueue(ctx, JobTypeOrderConfirmation, payload)
}
