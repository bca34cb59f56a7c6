package orders

import (
	"github.com/trato-app/trato-backend/pkg/enums"
	pkgerrors "github.com/trato-app/trato-backend/pkg/errors"
)

// predecessors lists the statuses each target may be reached from. Delivered
// has two entries because pickup and dine-in orders skip the courier leg.
var predecessors = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusAccepted:  {enums.OrderStatusPending},
	enums.OrderStatusReady:     {enums.OrderStatusAccepted},
	enums.OrderStatusAssigned:  {enums.OrderStatusReady},
	enums.OrderStatusPickedUp:  {enums.OrderStatusAssigned},
	enums.OrderStatusInTransit: {enums.OrderStatusPickedUp},
	enums.OrderStatusDelivered: {enums.OrderStatusInTransit, enums.OrderStatusReady},
	enums.OrderStatusCancelled: {
		enums.OrderStatusPending,
		enums.OrderStatusAccepted,
		enums.OrderStatusReady,
		enums.OrderStatusAssigned,
		enums.OrderStatusPickedUp,
		enums.OrderStatusInTransit,
	},
}

// validatePredecessor confirms the current status can move to the target.
func validatePredecessor(current, target enums.OrderStatus) error {
	for _, allowed := range predecessors[target] {
		if allowed == current {
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeStateConflict, "transition not allowed from current status").
		WithDetails(map[string]any{"from": current, "to": target})
}

// deliveredPredecessor picks the legal prior status for the delivered move
// given how the order is fulfilled.
func deliveredPredecessor(deliveryType enums.DeliveryType) enums.OrderStatus {
	if deliveryType.RequiresDriver() {
		return enums.OrderStatusInTransit
	}
	return enums.OrderStatusReady
}
