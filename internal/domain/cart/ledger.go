package cart

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
)

// ErrEmptyID is returned when a mutation is attempted with a blank product ID.
var ErrEmptyID = errors.New("product id required")

// InvalidQuantityError indicates an add with a non-positive quantity.
type InvalidQuantityError struct {
	ProductID string
	Quantity  int
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity %d is not valid for product %s", e.Quantity, e.ProductID)
}

// Ledger applies mutations to a session's cart and persists each successful
// mutation through the Store port as a side effect. It is not safe for
// concurrent use; callers serialize access per session.
type Ledger struct {
	store Store
}

// NewLedger creates a Ledger backed by the given Store.
func NewLedger(store Store) *Ledger {
	return &Ledger{store: store}
}

// Load returns the persisted cart for a session, or an empty cart when
// nothing is persisted yet.
func (l *Ledger) Load(ctx context.Context, sessionID string) (*Cart, error) {
	c, err := l.store.Load(ctx, sessionID)
	if err != nil {
		return nil, errors.Wrap(err, "load cart")
	}
	if c == nil {
		c = &Cart{}
	}
	return c, nil
}

// AddItem merges the item into the cart: an existing line with the same ID
// has its quantity incremented by qty, otherwise a new line is appended.
// Quantity is not clamped to CountInStock here; stock is re-checked when
// the order is placed.
func (l *Ledger) AddItem(ctx context.Context, sessionID string, item Item, qty int) (*Cart, error) {
	if item.ID == "" {
		return nil, ErrEmptyID
	}
	if qty <= 0 {
		return nil, &InvalidQuantityError{ProductID: item.ID, Quantity: qty}
	}

	c, err := l.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if i := c.find(item.ID); i >= 0 {
		c.Items[i].Quantity += qty
		// Refresh the advisory fields so a stale line picks up current
		// price and stock on re-add.
		c.Items[i].Price = item.Price
		c.Items[i].CountInStock = item.CountInStock
	} else {
		item.Quantity = qty
		c.Items = append(c.Items, item)
	}

	if err := l.store.SaveItems(ctx, sessionID, c.Items); err != nil {
		return nil, errors.Wrap(err, "persist cart items")
	}
	return c, nil
}

// RemoveItem filters out the line with the given product ID. Removing an
// absent ID is a no-op.
func (l *Ledger) RemoveItem(ctx context.Context, sessionID, id string) (*Cart, error) {
	c, err := l.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	kept := c.Items[:0]
	for _, it := range c.Items {
		if it.ID != id {
			kept = append(kept, it)
		}
	}
	c.Items = kept

	if err := l.store.SaveItems(ctx, sessionID, c.Items); err != nil {
		return nil, errors.Wrap(err, "persist cart items")
	}
	return c, nil
}

// SetQuantity overwrites the quantity of an existing line. A missing ID is
// a no-op; qty <= 0 removes the line.
func (l *Ledger) SetQuantity(ctx context.Context, sessionID, id string, qty int) (*Cart, error) {
	if qty <= 0 {
		return l.RemoveItem(ctx, sessionID, id)
	}

	c, err := l.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	i := c.find(id)
	if i < 0 {
		return c, nil
	}
	c.Items[i].Quantity = qty

	if err := l.store.SaveItems(ctx, sessionID, c.Items); err != nil {
		return nil, errors.Wrap(err, "persist cart items")
	}
	return c, nil
}

// Clear empties the cart and removes the persisted entry.
func (l *Ledger) Clear(ctx context.Context, sessionID string) error {
	if err := l.store.Clear(ctx, sessionID); err != nil {
		return errors.Wrap(err, "clear cart")
	}
	return nil
}

// SetShippingAddress overwrites the cart's shipping address. It persists
// independently of the item list.
func (l *Ledger) SetShippingAddress(ctx context.Context, sessionID string, addr Address) error {
	if err := l.store.SaveShippingAddress(ctx, sessionID, addr); err != nil {
		return errors.Wrap(err, "persist shipping address")
	}
	return nil
}

// SetPaymentMethod overwrites the cart's payment method. It persists
// independently of the item list.
func (l *Ledger) SetPaymentMethod(ctx context.Context, sessionID, method string) error {
	if err := l.store.SavePaymentMethod(ctx, sessionID, method); err != nil {
		return errors.Wrap(err, "persist payment method")
	}
	return nil
}
