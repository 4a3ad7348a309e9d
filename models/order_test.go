package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to OrderStatus
		want     bool
	}{
		{StatusPending, StatusPreparing, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusReady, false},
		{StatusPending, StatusDelivered, false},
		{StatusPreparing, StatusReady, true},
		{StatusPreparing, StatusCancelled, true},
		{StatusPreparing, StatusDelivered, false},
		{StatusReady, StatusDelivered, true},
		{StatusReady, StatusCancelled, true},
		{StatusReady, StatusPreparing, false},
		{StatusDelivered, StatusCancelled, false},
		{StatusDelivered, StatusPending, false},
		{StatusCancelled, StatusPending, false},
		{StatusCancelled, StatusDelivered, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, CanTransition(tt.from, tt.to),
			"%s -> %s", tt.from, tt.to)
	}
}

func TestValidOrderStatus(t *testing.T) {
	assert.True(t, ValidOrderStatus(StatusPending))
	assert.True(t, ValidOrderStatus(StatusCancelled))
	assert.False(t, ValidOrderStatus("en_route"))
	assert.False(t, ValidOrderStatus(""))
}
