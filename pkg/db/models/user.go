package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/gigbridge-backend/pkg/enums"
)

// User represents a marketplace account together with its running balance.
type User struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email          string          `gorm:"column:email;type:text;not null;uniqueIndex"`
	Name           string          `gorm:"column:name;type:text;not null"`
	Role           enums.UserRole  `gorm:"column:role;type:user_role_enum;not null"`
	Balance        decimal.Decimal `gorm:"column:balance;type:numeric(14,2);not null;default:0"`
	CompletedCount int             `gorm:"column:completed_count;not null;default:0"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (User) TableName() string { return "users" }
