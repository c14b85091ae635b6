package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/gigbridge-backend/pkg/enums"
)

// LedgerEvent records an immutable balance movement. The (engagement_id, type)
// pair is unique, so a settlement credit can only ever be written once.
type LedgerEvent struct {
	ID           uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	EngagementID uuid.UUID             `gorm:"column:engagement_id;type:uuid;not null"`
	UserID       uuid.UUID             `gorm:"column:user_id;type:uuid;not null"`
	ProjectID    uuid.UUID             `gorm:"column:project_id;type:uuid;not null"`
	Type         enums.LedgerEventType `gorm:"column:type;type:ledger_event_type_enum;not null"`
	Amount       decimal.Decimal       `gorm:"column:amount;type:numeric(14,2);not null"`
	Metadata     json.RawMessage       `gorm:"column:metadata;type:jsonb"`
	CreatedAt    time.Time             `gorm:"column:created_at;autoCreateTime"`
}

func (LedgerEvent) TableName() string { return "ledger_events" }
