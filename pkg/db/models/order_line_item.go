package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/trato-app/trato-backend/pkg/enums"
)

// OrderLineItem snapshots a single product at checkout time. Exactly one of
// ProductID / DailyProductID is set, matching ProductKind. The kind is fixed
// at creation and never re-derived from which column happens to be populated.
type OrderLineItem struct {
	ID             uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID         `gorm:"column:order_id;type:uuid;not null"`
	ProductKind    enums.ProductKind `gorm:"column:product_kind;type:product_kind;not null"`
	ProductID      *uuid.UUID        `gorm:"column:product_id;type:uuid"`
	DailyProductID *uuid.UUID        `gorm:"column:daily_product_id;type:uuid"`
	Name           string            `gorm:"column:name;not null"`
	Quantity       int               `gorm:"column:quantity;not null"`
	UnitPrice      decimal.Decimal   `gorm:"column:unit_price;type:numeric(10,2);not null"`
	Total          decimal.Decimal   `gorm:"column:total;type:numeric(10,2);not null"`
	CreatedAt      time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// CatalogID returns whichever catalog reference matches the stored kind.
func (li OrderLineItem) CatalogID() *uuid.UUID {
	if li.ProductKind == enums.ProductKindDaily {
		return li.DailyProductID
	}
	return li.ProductID
}
