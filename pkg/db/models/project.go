package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Project is owned by the project catalog; the engagement engine only reads it.
type Project struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ClientID  uuid.UUID       `gorm:"column:client_id;type:uuid;not null"`
	Title     string          `gorm:"column:title;type:text;not null"`
	Budget    decimal.Decimal `gorm:"column:budget;type:numeric(14,2);not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (Project) TableName() string { return "projects" }
