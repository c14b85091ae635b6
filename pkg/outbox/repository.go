package outbox

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/gigbridge-backend/pkg/db/models"
	"github.com/angelmondragon/gigbridge-backend/pkg/enums"
)

var errTxRequired = errors.New("outbox: transaction required")

// Repository owns the outbox_events table. Every write goes through the
// caller's transaction so an event commits or rolls back with its state
// change.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Insert(tx *gorm.DB, event models.OutboxEvent) error {
	if tx == nil {
		return errTxRequired
	}
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	return tx.Create(&event).Error
}

// pending selects unpublished rows that still have attempts left. A
// non-positive maxAttempts disables the attempt filter.
func pending(maxAttempts int) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		q = q.Where("published_at IS NULL")
		if maxAttempts > 0 {
			q = q.Where("attempt_count < ?", maxAttempts)
		}
		return q
	}
}

// FetchUnpublishedForPublish locks the oldest pending rows with SKIP LOCKED
// so concurrent publishers split the backlog instead of queueing on it.
func (r *Repository) FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error) {
	if tx == nil {
		return nil, errTxRequired
	}
	var batch []models.OutboxEvent
	err := tx.Scopes(pending(maxAttempts)).
		Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate, Options: clause.LockingOptionsSkipLocked}).
		Order(clause.OrderBy{Columns: []clause.OrderByColumn{
			{Column: clause.Column{Name: "created_at"}},
			{Column: clause.Column{Name: "id"}},
		}}).
		Limit(limit).
		Find(&batch).Error
	return batch, err
}

func (r *Repository) MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error {
	return r.mark(tx, id, map[string]any{
		"published_at": time.Now().UTC(),
		"last_error":   nil,
	})
}

func (r *Repository) MarkFailedTx(tx *gorm.DB, id uuid.UUID, cause error) error {
	return r.mark(tx, id, map[string]any{
		"attempt_count": gorm.Expr("attempt_count + ?", 1),
		"last_error":    cause.Error(),
	})
}

// MarkTerminalTx pins attempt_count at terminalAttempts, which takes the row
// out of the pending scope for good.
func (r *Repository) MarkTerminalTx(tx *gorm.DB, id uuid.UUID, cause error, terminalAttempts int) error {
	return r.mark(tx, id, map[string]any{
		"attempt_count": terminalAttempts,
		"last_error":    cause.Error(),
	})
}

func (r *Repository) mark(tx *gorm.DB, id uuid.UUID, fields map[string]any) error {
	if tx == nil {
		return errTxRequired
	}
	return tx.Model(&models.OutboxEvent{}).Where("id = ?", id).Updates(fields).Error
}

func (r *Repository) ExistsTx(tx *gorm.DB, eventType enums.OutboxEventType, aggregateType enums.OutboxAggregateType, aggregateID uuid.UUID) (bool, error) {
	if tx == nil {
		return false, errTxRequired
	}
	var hits int64
	err := tx.Model(&models.OutboxEvent{}).
		Where(&models.OutboxEvent{EventType: eventType, AggregateType: aggregateType, AggregateID: aggregateID}).
		Count(&hits).Error
	return hits > 0, err
}

// DeletePublishedBefore is the retention sweep. Unpublished rows are kept no
// matter how old they are.
func (r *Repository) DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
	q := r.db
	if tx != nil {
		q = tx
	}
	res := q.WithContext(ctx).
		Where("published_at IS NOT NULL").
		Where("published_at < ?", cutoff).
		Delete(&models.OutboxEvent{})
	return res.RowsAffected, res.Error
}
