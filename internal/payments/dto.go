package payments

import (
	"time"

	"github.com/angelmondragon/carrental-backend/pkg/db/models"
	"github.com/angelmondragon/carrental-backend/pkg/enums"
	"github.com/angelmondragon/carrental-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentDTO struct {
	ID          uuid.UUID           `json:"id"`
	ContractID  uuid.UUID           `json:"contract_id"`
	Method      enums.PaymentMethod `json:"method"`
	PaymentDate types.Date          `json:"payment_date"`
	Status      enums.PaymentStatus `json:"status"`
	Amount      decimal.Decimal     `json:"amount"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// CreatePaymentInput records money received against a contract.
type CreatePaymentInput struct {
	ContractID  uuid.UUID           `json:"contract_id" validate:"required"`
	Method      enums.PaymentMethod `json:"method" validate:"required"`
	PaymentDate types.Date          `json:"payment_date" validate:"required"`
	Status      enums.PaymentStatus `json:"status" validate:"required"`
	Amount      decimal.Decimal     `json:"amount"`
}

// UpdatePaymentInput is a partial update; nil fields are left unchanged.
type UpdatePaymentInput struct {
	ContractID  *uuid.UUID           `json:"contract_id,omitempty"`
	Method      *enums.PaymentMethod `json:"method,omitempty"`
	PaymentDate *types.Date          `json:"payment_date,omitempty"`
	Status      *enums.PaymentStatus `json:"status,omitempty"`
	Amount      *decimal.Decimal     `json:"amount,omitempty"`
}

type ListFilters struct {
	ContractID *uuid.UUID
	Status     *enums.PaymentStatus
}

type ListInput struct {
	Filters ListFilters
	Cursor  string
	Limit   int
}

type DeleteResult struct {
	ID      uuid.UUID `json:"id"`
	Message string    `json:"message"`
}

func FromModel(p *models.Payment) PaymentDTO {
	return PaymentDTO{
		ID:          p.ID,
		ContractID:  p.ContractID,
		Method:      p.Method,
		PaymentDate: types.NewDate(p.PaymentDate),
		Status:      p.Status,
		Amount:      p.Amount,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}
