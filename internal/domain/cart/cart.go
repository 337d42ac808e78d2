// Package cart implements the session cart ledger: a list of line items
// with derived totals, a shipping address, and a chosen payment method.
package cart

import (
	"context"

	"github.com/shopspring/decimal"
)

// Item is a single cart line. Identity key is ID; a cart holds at most one
// Item per product ID. CountInStock is the stock ceiling captured when the
// item was added; it is advisory here and re-checked at checkout, since
// stock can change while the cart sits idle.
type Item struct {
	ID           string
	Name         string
	Image        string
	Price        decimal.Decimal
	CountInStock int
	Quantity     int
}

// Subtotal returns price multiplied by quantity for this line.
func (i Item) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Address is a shipping destination. Complete reports whether the fields
// required to dispatch an order are all present.
type Address struct {
	FullName   string
	Line1      string
	Line2      string
	City       string
	PostalCode string
	Country    string
	Phone      string
}

// Complete reports whether all required address fields are set.
func (a Address) Complete() bool {
	return a.FullName != "" && a.Line1 != "" && a.City != "" &&
		a.PostalCode != "" && a.Country != ""
}

// Cart holds the line items and checkout preferences for one session.
// Totals are never stored: they are derived from Items on demand, so they
// can never drift out of sync with the line list.
type Cart struct {
	Items           []Item
	ShippingAddress Address
	PaymentMethod   string
}

// TotalQuantity returns the sum of quantities across all lines.
func (c *Cart) TotalQuantity() int {
	total := 0
	for _, it := range c.Items {
		total += it.Quantity
	}
	return total
}

// TotalAmount returns the sum of price * quantity across all lines.
func (c *Cart) TotalAmount() decimal.Decimal {
	sum := decimal.Zero
	for _, it := range c.Items {
		sum = sum.Add(it.Subtotal())
	}
	return sum
}

// find returns the index of the line with the given product ID, or -1.
func (c *Cart) find(id string) int {
	for i := range c.Items {
		if c.Items[i].ID == id {
			return i
		}
	}
	return -1
}

// Store persists cart state per session. Implementations are best-effort
// key-value stores: a corrupt persisted value is dropped and replaced by
// the zero value on the next Load. Last writer wins across sessions.
type Store interface {
	Load(ctx context.Context, sessionID string) (*Cart, error)
	SaveItems(ctx context.Context, sessionID string, items []Item) error
	SaveShippingAddress(ctx context.Context, sessionID string, addr Address) error
	SavePaymentMethod(ctx context.Context, sessionID string, method string) error
	Clear(ctx context.Context, sessionID string) error
}
