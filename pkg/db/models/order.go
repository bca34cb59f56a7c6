package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/trato-app/trato-backend/pkg/enums"
)

// Order represents a buyer order against a single seller.
type Order struct {
	ID           uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BuyerID      uuid.UUID          `gorm:"column:buyer_id;type:uuid;not null"`
	SellerID     uuid.UUID          `gorm:"column:seller_id;type:uuid;not null"`
	DriverID     *uuid.UUID         `gorm:"column:driver_id;type:uuid"`
	Status       enums.OrderStatus  `gorm:"column:status;type:order_status;not null;default:'pending'"`
	DeliveryType enums.DeliveryType `gorm:"column:delivery_type;type:delivery_type;not null"`
	Address      *string            `gorm:"column:address"`
	Notes        *string            `gorm:"column:notes"`
	Subtotal     decimal.Decimal    `gorm:"column:subtotal;type:numeric(10,2);not null"`
	DeliveryFee  decimal.Decimal    `gorm:"column:delivery_fee;type:numeric(10,2);not null;default:0"`
	Total        decimal.Decimal    `gorm:"column:total;type:numeric(10,2);not null"`
	AcceptedAt   *time.Time         `gorm:"column:accepted_at"`
	ReadyAt      *time.Time         `gorm:"column:ready_at"`
	AssignedAt   *time.Time         `gorm:"column:assigned_at"`
	PickedUpAt   *time.Time         `gorm:"column:picked_up_at"`
	InTransitAt  *time.Time         `gorm:"column:in_transit_at"`
	DeliveredAt  *time.Time         `gorm:"column:delivered_at"`
	CancelledAt  *time.Time         `gorm:"column:cancelled_at"`
	Items        []OrderLineItem    `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
