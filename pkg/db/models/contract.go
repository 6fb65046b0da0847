package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/carrental-backend/pkg/enums"
)

// Contract binds one car to one customer for a date range.
type Contract struct {
	ID         uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CarID      uuid.UUID            `gorm:"column:car_id;type:uuid;not null"`
	CustomerID uuid.UUID            `gorm:"column:customer_id;type:uuid;not null"`
	Status     enums.ContractStatus `gorm:"column:status;type:contract_status;not null;default:'active'"`
	StartDate  time.Time            `gorm:"column:start_date;type:date;not null"`
	EndDate    *time.Time           `gorm:"column:end_date;type:date"`
	TotalPrice *decimal.Decimal     `gorm:"column:total_price;type:numeric(12,2)"`
	CreatedAt  time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Contract) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
