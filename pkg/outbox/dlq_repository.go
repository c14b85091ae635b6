package outbox

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/gigbridge-backend/pkg/db/models"
)

const maxDLQErrorLen = 1024

// ErrNotDeadLettered is returned by Requeue when the event has no DLQ row.
var ErrNotDeadLettered = errors.New("event is not in the dead letter table")

// DLQRepository owns outbox_dlq: the publisher writes to it, operators
// requeue from it.
type DLQRepository struct {
	db *gorm.DB
}

func NewDLQRepository(db *gorm.DB) *DLQRepository {
	return &DLQRepository{db: db}
}

// InsertTx stores entry inside the publisher's batch transaction. Long error
// messages are cut at a rune boundary.
func (r *DLQRepository) InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	now := time.Now().UTC()
	if entry.FailedAt.IsZero() {
		entry.FailedAt = now
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	if entry.ErrorMessage != nil {
		msg := clipUTF8(*entry.ErrorMessage, maxDLQErrorLen)
		entry.ErrorMessage = &msg
	}
	return tx.Create(&entry).Error
}

// Requeue hands a dead-lettered event back to the publisher: the DLQ rows for
// it are removed and the outbox row's attempt counter is reset. Already
// published rows are left alone.
func (r *DLQRepository) Requeue(ctx context.Context, eventID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("event_id = ?", eventID).Delete(&models.OutboxDLQ{})
		if res.Error != nil {
			return fmt.Errorf("delete dlq rows: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotDeadLettered
		}
		res = tx.Model(&models.OutboxEvent{}).
			Where("id = ? AND published_at IS NULL", eventID).
			Updates(map[string]any{"attempt_count": 0, "last_error": nil})
		if res.Error != nil {
			return fmt.Errorf("reset outbox row: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("outbox row %s missing or already published", eventID)
		}
		return nil
	})
}

func clipUTF8(s string, max int) string {
	if len(s) <= max {
		return s
	}
	s = s[:max]
	for len(s) > 0 && !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}
