package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/trato-app/trato-backend/pkg/db/models"
)

// Repository performs the conditional stock writes for both catalogs. Every
// decrement is a single guarded UPDATE so concurrent buyers can never drive a
// quantity below zero.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	DecrementStanding(ctx context.Context, id uuid.UUID, qty int) (*DecrementResult, error)
	DecrementDaily(ctx context.Context, id uuid.UUID, qty int, now time.Time) (*DecrementResult, error)
	IncrementStanding(ctx context.Context, id uuid.UUID, qty int) error
	IncrementDaily(ctx context.Context, id uuid.UUID, qty int) error

	FindStanding(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindDaily(ctx context.Context, id uuid.UUID) (*models.DailyProduct, error)
	FindSellableDailyByName(ctx context.Context, name string, now time.Time) (*models.DailyProduct, error)
	RebindLineItemDaily(ctx context.Context, lineItemID, dailyProductID uuid.UUID) error
}

// DecrementResult carries the post-decrement row state needed for events.
type DecrementResult struct {
	SellerID  uuid.UUID
	Name      string
	Remaining int
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an inventory repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

type decrementRow struct {
	StockQuantity int
	SellerID      uuid.UUID
	Name          string
}

const decrementStandingSQL = `
UPDATE products
SET stock_quantity = stock_quantity - ?,
    is_available = CASE WHEN stock_quantity - ? <= 0 THEN FALSE ELSE is_available END,
    updated_at = ?
WHERE id = ? AND stock_quantity >= ?
RETURNING stock_quantity, seller_id, name`

// DecrementStanding atomically takes qty from a standing product. The guard is
// quantity only; availability is a storefront flag and hiding a listing must
// not block accepting orders already placed against it. A nil result with no
// error means the guard rejected the write (missing row or not enough stock);
// the caller classifies which.
func (r *repository) DecrementStanding(ctx context.Context, id uuid.UUID, qty int) (*DecrementResult, error) {
	var row decrementRow
	res := r.db.WithContext(ctx).Raw(decrementStandingSQL, qty, qty, time.Now(), id, qty).Scan(&row)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &DecrementResult{SellerID: row.SellerID, Name: row.Name, Remaining: row.StockQuantity}, nil
}

const decrementDailySQL = `
UPDATE daily_products
SET stock_quantity = stock_quantity - ?,
    is_available = CASE WHEN stock_quantity - ? <= 0 THEN FALSE ELSE is_available END,
    updated_at = ?
WHERE id = ? AND is_available AND stock_quantity >= ? AND expires_at > ?
RETURNING stock_quantity, seller_id, name`

// DecrementDaily is DecrementStanding for the daily catalog, with the expiry
// window enforced inside the same guard.
func (r *repository) DecrementDaily(ctx context.Context, id uuid.UUID, qty int, now time.Time) (*DecrementResult, error) {
	var row decrementRow
	res := r.db.WithContext(ctx).Raw(decrementDailySQL, qty, qty, now, id, qty, now).Scan(&row)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &DecrementResult{SellerID: row.SellerID, Name: row.Name, Remaining: row.StockQuantity}, nil
}

func (r *repository) IncrementStanding(ctx context.Context, id uuid.UUID, qty int) error {
	return r.db.WithContext(ctx).Exec(
		`UPDATE products
		 SET stock_quantity = stock_quantity + ?, is_available = TRUE, updated_at = ?
		 WHERE id = ?`,
		qty, time.Now(), id,
	).Error
}

func (r *repository) IncrementDaily(ctx context.Context, id uuid.UUID, qty int) error {
	return r.db.WithContext(ctx).Exec(
		`UPDATE daily_products
		 SET stock_quantity = stock_quantity + ?, is_available = TRUE, updated_at = ?
		 WHERE id = ?`,
		qty, time.Now(), id,
	).Error
}

func (r *repository) FindStanding(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) FindDaily(ctx context.Context, id uuid.UUID) (*models.DailyProduct, error) {
	var product models.DailyProduct
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// FindSellableDailyByName resolves stale daily references: the newest unexpired
// sellable row with the exact snapshot name wins.
func (r *repository) FindSellableDailyByName(ctx context.Context, name string, now time.Time) (*models.DailyProduct, error) {
	var product models.DailyProduct
	err := r.db.WithContext(ctx).
		Where("name = ? AND is_available AND stock_quantity > 0 AND expires_at > ?", name, now).
		Order("created_at DESC").
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// RebindLineItemDaily persists a fallback-resolved daily reference back onto
// the line item so the drift heals instead of being re-guessed later.
func (r *repository) RebindLineItemDaily(ctx context.Context, lineItemID, dailyProductID uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&models.OrderLineItem{}).
		Where("id = ?", lineItemID).
		Update("daily_product_id", dailyProductID).Error
}
