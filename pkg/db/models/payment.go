package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/carrental-backend/pkg/enums"
)

// Payment records money received against a contract.
type Payment struct {
	ID          uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ContractID  uuid.UUID           `gorm:"column:contract_id;type:uuid;not null"`
	Method      enums.PaymentMethod `gorm:"column:method;type:payment_method;not null"`
	PaymentDate time.Time           `gorm:"column:payment_date;type:date;not null"`
	Status      enums.PaymentStatus `gorm:"column:status;type:payment_status;not null"`
	Amount      decimal.Decimal     `gorm:"column:amount;type:numeric(12,2);not null"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Payment) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
