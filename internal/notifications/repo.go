package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/trato-app/trato-backend/pkg/db/models"
	"github.com/trato-app/trato-backend/pkg/pagination"
)

// Repository exposes persistence helpers for notifications.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, notification *models.Notification) error
	List(ctx context.Context, params listNotificationsParams) ([]models.Notification, *pagination.Cursor, error)
	MarkRead(ctx context.Context, recipientID, notificationID uuid.UUID, now time.Time) (notificationMarkResult, error)
	MarkAllRead(ctx context.Context, recipientID uuid.UUID, now time.Time) (int64, error)
}

// listNotificationsParams carries the query the service built. Limit is the
// fetch size including the extra look-ahead row.
type listNotificationsParams struct {
	RecipientID uuid.UUID
	IncludePool bool
	Limit       int
	Cursor      *pagination.Cursor
	UnreadOnly  bool
}

type notificationMarkResult struct {
	Updated bool
	Found   bool
}

type notificationStore struct {
	db *gorm.DB
}

// NewRepository returns a notifications repository bound to the database.
func NewRepository(db *gorm.DB) Repository {
	return &notificationStore{db: db}
}

func (r *notificationStore) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &notificationStore{db: tx}
}

func (r *notificationStore) Create(ctx context.Context, notification *models.Notification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}

func (r *notificationStore) List(ctx context.Context, params listNotificationsParams) ([]models.Notification, *pagination.Cursor, error) {
	fetch := params.Limit
	if fetch <= 1 {
		fetch = pagination.LimitWithBuffer(0)
	}
	pageSize := fetch - 1

	query := r.db.WithContext(ctx).Model(&models.Notification{})
	if params.IncludePool {
		query = query.Where("recipient_id IN ?", []uuid.UUID{params.RecipientID, DispatchPoolRecipient})
	} else {
		query = query.Where("recipient_id = ?", params.RecipientID)
	}
	if params.UnreadOnly {
		query = query.Where("read_at IS NULL")
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var rows []models.Notification
	err := query.Order("created_at DESC, id DESC").Limit(fetch).Find(&rows).Error
	if err != nil {
		return nil, nil, err
	}

	if len(rows) <= pageSize {
		return rows, nil, nil
	}
	// The cursor is the last row returned; the filter above is strict, so the
	// next page resumes at the look-ahead row.
	rows = rows[:pageSize]
	last := rows[len(rows)-1]
	return rows, &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}, nil
}

func (r *notificationStore) MarkRead(ctx context.Context, recipientID, notificationID uuid.UUID, now time.Time) (notificationMarkResult, error) {
	update := r.recipientScope(ctx, recipientID).
		Where("id = ? AND read_at IS NULL", notificationID).
		UpdateColumn("read_at", now)
	if update.Error != nil {
		return notificationMarkResult{}, update.Error
	}
	if update.RowsAffected > 0 {
		return notificationMarkResult{Updated: true, Found: true}, nil
	}

	// Nothing updated: distinguish already-read from missing.
	var count int64
	err := r.recipientScope(ctx, recipientID).
		Where("id = ?", notificationID).
		Count(&count).Error
	if err != nil {
		return notificationMarkResult{}, err
	}
	return notificationMarkResult{Found: count > 0}, nil
}

func (r *notificationStore) MarkAllRead(ctx context.Context, recipientID uuid.UUID, now time.Time) (int64, error) {
	update := r.recipientScope(ctx, recipientID).
		Where("read_at IS NULL").
		UpdateColumn("read_at", now)
	if update.Error != nil {
		return 0, update.Error
	}
	return update.RowsAffected, nil
}

func (r *notificationStore) recipientScope(ctx context.Context, recipientID uuid.UUID) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("recipient_id = ?", recipientID)
}
