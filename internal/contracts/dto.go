package contracts

import (
	"time"

	"github.com/angelmondragon/carrental-backend/pkg/db/models"
	"github.com/angelmondragon/carrental-backend/pkg/enums"
	"github.com/angelmondragon/carrental-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ContractDTO is the API representation of a contract.
type ContractDTO struct {
	ID         uuid.UUID            `json:"id"`
	CarID      uuid.UUID            `json:"car_id"`
	CustomerID uuid.UUID            `json:"customer_id"`
	Status     enums.ContractStatus `json:"status"`
	StartDate  types.Date           `json:"start_date"`
	EndDate    *types.Date          `json:"end_date"`
	TotalPrice *decimal.Decimal     `json:"total_price"`
	CreatedAt  time.Time            `json:"created_at"`
	UpdatedAt  time.Time            `json:"updated_at"`
}

// CreateContractInput is the payload for opening a contract. The price is supplied by
// the caller and stored as given.
type CreateContractInput struct {
	CarID      uuid.UUID             `json:"car_id" validate:"required"`
	CustomerID uuid.UUID             `json:"customer_id" validate:"required"`
	StartDate  types.Date            `json:"start_date" validate:"required"`
	EndDate    types.Date            `json:"end_date" validate:"required"`
	TotalPrice *decimal.Decimal      `json:"total_price,omitempty"`
	Status     *enums.ContractStatus `json:"status,omitempty"`
}

// UpdateContractInput is a partial patch. EndDate distinguishes an absent field from an
// explicit null, which clears the end date.
type UpdateContractInput struct {
	CarID      *uuid.UUID            `json:"car_id,omitempty"`
	CustomerID *uuid.UUID            `json:"customer_id,omitempty"`
	StartDate  *types.Date           `json:"start_date,omitempty"`
	EndDate    types.NullableDate    `json:"end_date"`
	TotalPrice *decimal.Decimal      `json:"total_price,omitempty"`
	Status     *enums.ContractStatus `json:"status,omitempty"`
}

// CancelResult is returned by a successful cancellation.
type CancelResult struct {
	Contract ContractDTO `json:"contract"`
	Message  string      `json:"message"`
}

// RentalPrice is the quote for renting a car for a number of hours.
type RentalPrice struct {
	CarID        uuid.UUID       `json:"car_id"`
	Hours        decimal.Decimal `json:"hours"`
	PricePerHour decimal.Decimal `json:"price_per_hour"`
	Total        decimal.Decimal `json:"total"`
}

type ListFilters struct {
	Status     *enums.ContractStatus
	CarID      *uuid.UUID
	CustomerID *uuid.UUID
}

type ListInput struct {
	Filters ListFilters
	Cursor  string
	Limit   int
}

func FromModel(c *models.Contract) ContractDTO {
	dto := ContractDTO{
		ID:         c.ID,
		CarID:      c.CarID,
		CustomerID: c.CustomerID,
		Status:     c.Status,
		StartDate:  types.NewDate(c.StartDate),
		TotalPrice: c.TotalPrice,
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  c.UpdatedAt,
	}
	if c.EndDate != nil {
		end := types.NewDate(*c.EndDate)
		dto.EndDate = &end
	}
	return dto
}
