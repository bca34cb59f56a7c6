package orders

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trato-app/trato-backend/pkg/enums"
	pkgerrors "github.com/trato-app/trato-backend/pkg/errors"
)

func TestValidatePredecessor(t *testing.T) {
	cases := []struct {
		name    string
		current enums.OrderStatus
		target  enums.OrderStatus
		ok      bool
	}{
		{"pending to accepted", enums.OrderStatusPending, enums.OrderStatusAccepted, true},
		{"accepted to ready", enums.OrderStatusAccepted, enums.OrderStatusReady, true},
		{"ready to assigned", enums.OrderStatusReady, enums.OrderStatusAssigned, true},
		{"assigned to picked up", enums.OrderStatusAssigned, enums.OrderStatusPickedUp, true},
		{"picked up to in transit", enums.OrderStatusPickedUp, enums.OrderStatusInTransit, true},
		{"in transit to delivered", enums.OrderStatusInTransit, enums.OrderStatusDelivered, true},
		{"ready to delivered", enums.OrderStatusReady, enums.OrderStatusDelivered, true},
		{"in transit to cancelled", enums.OrderStatusInTransit, enums.OrderStatusCancelled, true},
		{"pending to ready", enums.OrderStatusPending, enums.OrderStatusReady, false},
		{"pending to delivered", enums.OrderStatusPending, enums.OrderStatusDelivered, false},
		{"delivered to cancelled", enums.OrderStatusDelivered, enums.OrderStatusCancelled, false},
		{"cancelled to accepted", enums.OrderStatusCancelled, enums.OrderStatusAccepted, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := validatePredecessor(tc.current, tc.target)
			if tc.ok {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			typed := pkgerrors.As(err)
			require.NotNil(t, typed)
			assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
		})
	}
}

func TestDeliveredPredecessor(t *testing.T) {
	assert.Equal(t, enums.OrderStatusInTransit, deliveredPredecessor(enums.DeliveryTypeDelivery))
	assert.Equal(t, enums.OrderStatusReady, deliveredPredecessor(enums.DeliveryTypePickup))
	assert.Equal(t, enums.OrderStatusReady, deliveredPredecessor(enums.DeliveryTypeDineIn))
}
