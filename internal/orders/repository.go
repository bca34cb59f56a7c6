package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/trato-app/trato-backend/pkg/db/models"
	"github.com/trato-app/trato-backend/pkg/enums"
	"github.com/trato-app/trato-backend/pkg/pagination"
)

// Repository persists orders and performs the conditional status writes the
// state machine relies on.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error)
	FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindOrdersByBuyer(ctx context.Context, buyerID uuid.UUID, params pagination.Params) ([]models.Order, *pagination.Cursor, error)
	FindOrdersBySeller(ctx context.Context, sellerID uuid.UUID, status *enums.OrderStatus, params pagination.Params) ([]models.Order, *pagination.Cursor, error)
	FindDriverQueue(ctx context.Context, params pagination.Params) ([]models.Order, *pagination.Cursor, error)

	MoveStatus(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus, now time.Time) (bool, error)
	ClaimForDriver(ctx context.Context, id, driverID uuid.UUID, now time.Time) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (r *repository) FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindOrdersByBuyer(ctx context.Context, buyerID uuid.UUID, params pagination.Params) ([]models.Order, *pagination.Cursor, error) {
	query := r.db.WithContext(ctx).
		Preload("Items").
		Where("buyer_id = ?", buyerID)
	return r.pageOrders(query, params)
}

func (r *repository) FindOrdersBySeller(ctx context.Context, sellerID uuid.UUID, status *enums.OrderStatus, params pagination.Params) ([]models.Order, *pagination.Cursor, error) {
	query := r.db.WithContext(ctx).
		Preload("Items").
		Where("seller_id = ?", sellerID)
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	return r.pageOrders(query, params)
}

// FindDriverQueue lists unclaimed delivery orders that are ready for dispatch.
func (r *repository) FindDriverQueue(ctx context.Context, params pagination.Params) ([]models.Order, *pagination.Cursor, error) {
	query := r.db.WithContext(ctx).
		Preload("Items").
		Where("status = ? AND delivery_type = ? AND driver_id IS NULL",
			enums.OrderStatusReady, enums.DeliveryTypeDelivery)
	return r.pageOrders(query, params)
}

// pageOrders fetches one row past the page so it can tell whether another page
// exists. The cursor is the last returned row; the next query resumes strictly
// after it.
func (r *repository) pageOrders(query *gorm.DB, params pagination.Params) ([]models.Order, *pagination.Cursor, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, nil, err
	}
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	pageSize := pagination.NormalizeLimit(params.Limit)

	var rows []models.Order
	err = query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error
	if err != nil {
		return nil, nil, err
	}

	if len(rows) <= pageSize {
		return rows, nil, nil
	}
	rows = rows[:pageSize]
	last := rows[len(rows)-1]
	return rows, &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}, nil
}

// timestampColumns maps each target status to the column stamped alongside it.
var timestampColumns = map[enums.OrderStatus]string{
	enums.OrderStatusAccepted:  "accepted_at",
	enums.OrderStatusReady:     "ready_at",
	enums.OrderStatusAssigned:  "assigned_at",
	enums.OrderStatusPickedUp:  "picked_up_at",
	enums.OrderStatusInTransit: "in_transit_at",
	enums.OrderStatusDelivered: "delivered_at",
	enums.OrderStatusCancelled: "cancelled_at",
}

// MoveStatus advances the order in a single conditional write keyed on the
// prior status. A false return means another writer got there first.
func (r *repository) MoveStatus(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus, now time.Time) (bool, error) {
	column, ok := timestampColumns[to]
	if !ok {
		return false, fmt.Errorf("no timestamp column for status %q", to)
	}
	res := r.db.WithContext(ctx).Exec(
		fmt.Sprintf(`UPDATE orders SET status = ?, %s = ?, updated_at = ? WHERE id = ? AND status = ?`, column),
		to, now, now, id, from,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ClaimForDriver binds a driver to a ready delivery order. The driver_id IS
// NULL guard makes concurrent claims lose cleanly.
func (r *repository) ClaimForDriver(ctx context.Context, id, driverID uuid.UUID, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Exec(
		`UPDATE orders
		 SET status = ?, driver_id = ?, assigned_at = ?, updated_at = ?
		 WHERE id = ? AND status = ? AND driver_id IS NULL AND delivery_type = ?`,
		enums.OrderStatusAssigned, driverID, now, now,
		id, enums.OrderStatusReady, enums.DeliveryTypeDelivery,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
