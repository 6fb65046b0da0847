package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/carrental-backend/pkg/enums"
)

// Car is a rentable vehicle in the fleet.
type Car struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Brand        string          `gorm:"column:brand;not null"`
	Model        string          `gorm:"column:model;not null"`
	Year         int             `gorm:"column:year;not null"`
	PricePerHour decimal.Decimal `gorm:"column:price_per_hour;type:numeric(12,2);not null"`
	Status       enums.CarStatus `gorm:"column:status;type:car_status;not null;default:'available'"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Car) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
