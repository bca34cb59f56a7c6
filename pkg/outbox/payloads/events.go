package payloads

import (
	"github.com/google/uuid"

	"github.com/trato-app/trato-backend/pkg/enums"
)

// OrderStatusChanged is emitted whenever an order moves between states,
// including creation (from empty) and cancellation.
type OrderStatusChanged struct {
	OrderID      uuid.UUID          `json:"orderId"`
	BuyerID      uuid.UUID          `json:"buyerId"`
	SellerID     uuid.UUID          `json:"sellerId"`
	DriverID     *uuid.UUID         `json:"driverId,omitempty"`
	DeliveryType enums.DeliveryType `json:"deliveryType"`
	From         enums.OrderStatus  `json:"from,omitempty"`
	To           enums.OrderStatus  `json:"to"`
}

// StockChanged is emitted once per product touched by a reconciliation or a
// restock release.
type StockChanged struct {
	ProductKind enums.ProductKind `json:"productKind"`
	ProductID   uuid.UUID         `json:"productId"`
	SellerID    uuid.UUID         `json:"sellerId"`
	Name        string            `json:"name"`
	Delta       int               `json:"delta"`
	Remaining   int               `json:"remaining"`
	OrderID     uuid.UUID         `json:"orderId"`
}
