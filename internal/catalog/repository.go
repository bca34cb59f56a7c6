package catalog

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/trato-app/trato-backend/pkg/db/models"
	"github.com/trato-app/trato-backend/pkg/pagination"
)

// Repository persists both catalogs.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateProduct(ctx context.Context, product *models.Product) (*models.Product, error)
	SaveProduct(ctx context.Context, product *models.Product) error
	DeleteProduct(ctx context.Context, id, sellerID uuid.UUID) (bool, error)
	FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	ListProductsBySeller(ctx context.Context, sellerID uuid.UUID, params pagination.Params) ([]models.Product, error)
	ListAvailableProducts(ctx context.Context, params pagination.Params) ([]models.Product, error)
	SetProductStock(ctx context.Context, id, sellerID uuid.UUID, qty int) (bool, error)

	CreateDailyProduct(ctx context.Context, product *models.DailyProduct) (*models.DailyProduct, error)
	FindDailyProduct(ctx context.Context, id uuid.UUID) (*models.DailyProduct, error)
	ListDailyProductsBySeller(ctx context.Context, sellerID uuid.UUID, params pagination.Params) ([]models.DailyProduct, error)
	ListSellableDailyProducts(ctx context.Context, now time.Time, params pagination.Params) ([]models.DailyProduct, error)
	CloseDailyProduct(ctx context.Context, id, sellerID uuid.UUID) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a catalog repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateProduct(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

func (r *repository) SaveProduct(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Save(product).Error
}

func (r *repository) DeleteProduct(ctx context.Context, id, sellerID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND seller_id = ?", id, sellerID).
		Delete(&models.Product{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) ListProductsBySeller(ctx context.Context, sellerID uuid.UUID, params pagination.Params) ([]models.Product, error) {
	query := r.db.WithContext(ctx).Where("seller_id = ?", sellerID)
	return r.pageProducts(query, params)
}

func (r *repository) ListAvailableProducts(ctx context.Context, params pagination.Params) ([]models.Product, error) {
	query := r.db.WithContext(ctx).Where("is_available AND stock_quantity > 0")
	return r.pageProducts(query, params)
}

// SetProductStock overwrites the on-hand quantity and syncs the availability
// flag in the same write.
func (r *repository) SetProductStock(ctx context.Context, id, sellerID uuid.UUID, qty int) (bool, error) {
	res := r.db.WithContext(ctx).Exec(
		`UPDATE products
		 SET stock_quantity = ?, is_available = ?, updated_at = ?
		 WHERE id = ? AND seller_id = ?`,
		qty, qty > 0, time.Now(), id, sellerID,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) pageProducts(query *gorm.DB, params pagination.Params) ([]models.Product, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}
	var rows []models.Product
	err = query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error
	return rows, err
}

func (r *repository) CreateDailyProduct(ctx context.Context, product *models.DailyProduct) (*models.DailyProduct, error) {
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

func (r *repository) FindDailyProduct(ctx context.Context, id uuid.UUID) (*models.DailyProduct, error) {
	var product models.DailyProduct
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) ListDailyProductsBySeller(ctx context.Context, sellerID uuid.UUID, params pagination.Params) ([]models.DailyProduct, error) {
	query := r.db.WithContext(ctx).Where("seller_id = ?", sellerID)
	return r.pageDailyProducts(query, params)
}

// ListSellableDailyProducts filters expiry at read time so buyers never see a
// listing past its window.
func (r *repository) ListSellableDailyProducts(ctx context.Context, now time.Time, params pagination.Params) ([]models.DailyProduct, error) {
	query := r.db.WithContext(ctx).
		Where("is_available AND stock_quantity > 0 AND expires_at > ?", now)
	return r.pageDailyProducts(query, params)
}

// CloseDailyProduct takes a listing off sale without deleting the row, so
// existing line item references stay resolvable.
func (r *repository) CloseDailyProduct(ctx context.Context, id, sellerID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Exec(
		`UPDATE daily_products
		 SET is_available = FALSE, updated_at = ?
		 WHERE id = ? AND seller_id = ?`,
		time.Now(), id, sellerID,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) pageDailyProducts(query *gorm.DB, params pagination.Params) ([]models.DailyProduct, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}
	var rows []models.DailyProduct
	err = query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error
	return rows, err
}
