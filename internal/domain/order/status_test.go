package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus_CanTransition(t *testing.T) {
	tests := []struct {
		from Status
		to   Status
		want bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusProcessing, false},
		{StatusPending, StatusDelivered, false},

		{StatusConfirmed, StatusProcessing, true},
		{StatusConfirmed, StatusCancelled, true},
		{StatusConfirmed, StatusShipped, false},

		{StatusProcessing, StatusShipped, true},
		{StatusProcessing, StatusCancelled, false},
		{StatusProcessing, StatusReturned, false},

		{StatusShipped, StatusDelivered, true},
		{StatusShipped, StatusCancelled, false},

		{StatusDelivered, StatusReturned, true},
		{StatusDelivered, StatusShipped, false},

		// Terminal states go nowhere.
		{StatusCancelled, StatusPending, false},
		{StatusCancelled, StatusConfirmed, false},
		{StatusReturned, StatusDelivered, false},

		// No self-loops.
		{StatusPending, StatusPending, false},
		{StatusDelivered, StatusDelivered, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"_to_"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransition(tt.to))
		})
	}
}

func TestStatus_Terminal(t *testing.T) {
	assert.True(t, StatusCancelled.Terminal())
	assert.True(t, StatusReturned.Terminal())

	for _, s := range []Status{StatusPending, StatusConfirmed, StatusProcessing, StatusShipped, StatusDelivered} {
		assert.False(t, s.Terminal(), "%s should not be terminal", s)
	}
}

func TestParseStatus(t *testing.T) {
	st, err := ParseStatus("shipped")
	require.NoError(t, err)
	assert.Equal(t, StatusShipped, st)

	_, err = ParseStatus("teleported")
	assert.ErrorContains(t, err, "unknown order status")

	_, err = ParseStatus("")
	assert.Error(t, err)
}

func TestInvalidTransitionError_Message(t *testing.T) {
	err := &InvalidTransitionError{From: StatusShipped, To: StatusCancelled}
	assert.Equal(t, "cannot transition order from shipped to cancelled", err.Error())
}
