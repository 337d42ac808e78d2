package email

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderOrderConfirmation(t *testing.T) {
	body, err := RenderOrderConfirmation(OrderConfirmationData{
		CustomerName:  "Jo",
		OrderID:       "ord-1",
		OrderDate:     time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		Status:        "confirmed",
		ItemsPrice:    decimal.NewFromInt(200),
		TaxPrice:      decimal.NewFromInt(10),
		ShippingPrice: decimal.NewFromInt(50),
		Discount:      decimal.NewFromInt(20),
		TotalPrice:    decimal.NewFromInt(240),
	})
	require.NoError(t, err)

	assert.Contains(t, body, "Jo")
	assert.Contains(t, body, "ord-1")
	assert.Contains(t, body, "Mar 1, 2026")
	assert.Contains(t, body, "confirmed")
	assert.Contains(t, body, "-20")
	assert.Contains(t, body, "240")
}

func TestRenderOrderConfirmation_NoDiscountRow(t *testing.T) {
	body, err := RenderOrderConfirmation(OrderConfirmationData{
		OrderID:    "ord-2",
		OrderDate:  time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		Status:     "confirmed",
		TotalPrice: decimal.NewFromInt(100),
	})
	require.NoError(t, err)

	assert.NotContains(t, body, "Discount")
	// No name, no personal greeting.
	assert.Contains(t, body, "Thanks for your order!")
}
