package notifications

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/gigbridge-backend/pkg/db/models"
	"github.com/angelmondragon/gigbridge-backend/pkg/pagination"
)

// Repository persists in-app notifications.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

type listQuery struct {
	UserID     uuid.UUID
	Limit      int
	Cursor     *pagination.Cursor
	UnreadOnly bool
}

// markOutcome is what MarkRead found.
type markOutcome int

const (
	markMissing markOutcome = iota
	markAlreadyRead
	markApplied
)

func (r *Repository) Create(ctx context.Context, n *models.Notification) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *Repository) forUser(ctx context.Context, userID uuid.UUID) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Notification{}).Where("user_id = ?", userID)
}

// List returns one newest-first page and the cursor of the next one.
func (r *Repository) List(ctx context.Context, q listQuery) ([]models.Notification, *pagination.Cursor, error) {
	query := r.forUser(ctx, q.UserID)
	if q.UnreadOnly {
		query = query.Where("read_at IS NULL")
	}

	var rows []models.Notification
	if err := query.Scopes(pagination.After(q.Cursor, q.Limit)).Find(&rows).Error; err != nil {
		return nil, nil, fmt.Errorf("list notifications: %w", err)
	}
	page, next := pagination.Split(rows, q.Limit, func(n models.Notification) pagination.Cursor {
		return pagination.Cursor{CreatedAt: n.CreatedAt, ID: n.ID}
	})
	return page, next, nil
}

func (r *Repository) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	var n int64
	err := r.forUser(ctx, userID).Where("read_at IS NULL").Count(&n).Error
	return n, err
}

// MarkRead stamps read_at on a notification owned by userID. A notification
// belonging to someone else reads as missing.
func (r *Repository) MarkRead(ctx context.Context, userID, id uuid.UUID, now time.Time) (markOutcome, error) {
	var current models.Notification
	err := r.forUser(ctx, userID).Select("id", "read_at").Where("id = ?", id).Take(&current).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return markMissing, nil
	case err != nil:
		return markMissing, err
	case current.ReadAt != nil:
		return markAlreadyRead, nil
	}

	res := r.forUser(ctx, userID).Where("id = ? AND read_at IS NULL", id).UpdateColumn("read_at", now)
	if res.Error != nil {
		return markMissing, res.Error
	}
	if res.RowsAffected == 0 {
		return markAlreadyRead, nil
	}
	return markApplied, nil
}

func (r *Repository) MarkAllRead(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error) {
	res := r.forUser(ctx, userID).Where("read_at IS NULL").UpdateColumn("read_at", now)
	return res.RowsAffected, res.Error
}

// DeleteOlderThan purges read notifications created before cutoff. Unread
// ones are kept regardless of age.
func (r *Repository) DeleteOlderThan(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
	db := r.db
	if tx != nil {
		db = tx
	}
	res := db.WithContext(ctx).
		Where("read_at IS NOT NULL AND created_at < ?", cutoff).
		Delete(&models.Notification{})
	return res.RowsAffected, res.Error
}
