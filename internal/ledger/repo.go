package ledger

import (
	"context"
	"time"

	"github.com/angelmondragon/gigbridge-backend/pkg/db/models"
	"github.com/angelmondragon/gigbridge-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository manages persistence for ledger events and the balance columns
// they move.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	InsertIfAbsent(ctx context.Context, event *models.LedgerEvent) (bool, error)
	CreditBalance(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (int64, error)
	FindByEngagement(ctx context.Context, engagementID uuid.UUID, eventType enums.LedgerEventType) (*models.LedgerEvent, error)
	ListOrphanSettlements(ctx context.Context, limit int) ([]models.LedgerEvent, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// InsertIfAbsent writes event unless one already exists for the same
// (engagement_id, type). It reports whether a row was written.
func (r *repository) InsertIfAbsent(ctx context.Context, event *models.LedgerEvent) (bool, error) {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(event)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// CreditBalance adds amount to the user's balance and bumps their completed
// work counter in one statement. It returns the affected row count.
func (r *repository) CreditBalance(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		UpdateColumns(map[string]any{
			"balance":         gorm.Expr("balance + ?", amount),
			"completed_count": gorm.Expr("completed_count + 1"),
			"updated_at":      time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}

func (r *repository) FindByEngagement(ctx context.Context, engagementID uuid.UUID, eventType enums.LedgerEventType) (*models.LedgerEvent, error) {
	var event models.LedgerEvent
	if err := r.db.WithContext(ctx).
		Where("engagement_id = ? AND type = ?", engagementID, eventType).
		First(&event).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

// ListOrphanSettlements returns settlement credits whose engagement is not
// completed. These cannot be produced by a committed settlement and are
// surfaced for manual review, never reversed automatically.
func (r *repository) ListOrphanSettlements(ctx context.Context, limit int) ([]models.LedgerEvent, error) {
	var events []models.LedgerEvent
	q := r.db.WithContext(ctx).
		Where("type = ?", enums.LedgerEventTypeSettlementCredit).
		Where("NOT EXISTS (SELECT 1 FROM engagements e WHERE e.id = ledger_events.engagement_id AND e.status = ?)",
			enums.EngagementStatusCompleted).
		Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}
