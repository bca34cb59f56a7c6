package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// DailyProduct represents a short lived listing that expires on its own.
// Names are intentionally not unique; stale references from clients are
// resolved by name against the newest unexpired row.
type DailyProduct struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SellerID      uuid.UUID       `gorm:"column:seller_id;type:uuid;not null"`
	Name          string          `gorm:"column:name;not null"`
	Description   *string         `gorm:"column:description"`
	Tags          pq.StringArray  `gorm:"column:tags;type:text[];not null;default:ARRAY[]::text[]"`
	Price         decimal.Decimal `gorm:"column:price;type:numeric(10,2);not null"`
	StockQuantity int             `gorm:"column:stock_quantity;not null;default:0"`
	IsAvailable   bool            `gorm:"column:is_available;not null;default:true"`
	ExpiresAt     time.Time       `gorm:"column:expires_at;not null"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// IsSellable reports whether the listing can still be sold at the given time.
func (d DailyProduct) IsSellable(now time.Time) bool {
	return d.IsAvailable && d.StockQuantity > 0 && now.Before(d.ExpiresAt)
}
