// Package email composes and sends buyer-facing emails. Delivery goes
// through the Sender port so tests and local runs can substitute the SMTP
// transport.
package email

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrNoRecipient is returned when a message has no destination address.
var ErrNoRecipient = errors.New("recipient address required")

// Message is a composed email ready for delivery.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Sender delivers composed messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}
