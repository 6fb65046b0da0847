package cars

import (
	"time"

	"github.com/angelmondragon/carrental-backend/pkg/db/models"
	"github.com/angelmondragon/carrental-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CarDTO is the API representation of a car.
type CarDTO struct {
	ID           uuid.UUID       `json:"id"`
	Brand        string          `json:"brand"`
	Model        string          `json:"model"`
	Year         int             `json:"year"`
	PricePerHour decimal.Decimal `json:"price_per_hour"`
	Status       enums.CarStatus `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// CreateCarInput is the payload for registering a car.
type CreateCarInput struct {
	Brand        string           `json:"brand" validate:"required,max=100"`
	Model        string           `json:"model" validate:"required,max=100"`
	Year         int              `json:"year" validate:"required,gte=1886,lte=2100"`
	PricePerHour decimal.Decimal  `json:"price_per_hour"`
	Status       *enums.CarStatus `json:"status,omitempty"`
}

// UpdateCarInput is a partial update; nil fields are left unchanged.
type UpdateCarInput struct {
	Brand        *string          `json:"brand,omitempty" validate:"omitempty,min=1,max=100"`
	Model        *string          `json:"model,omitempty" validate:"omitempty,min=1,max=100"`
	Year         *int             `json:"year,omitempty" validate:"omitempty,gte=1886,lte=2100"`
	PricePerHour *decimal.Decimal `json:"price_per_hour,omitempty"`
	Status       *enums.CarStatus `json:"status,omitempty"`
}

// ListFilters narrows car listings. Text filters are case-insensitive substrings.
type ListFilters struct {
	Brand  string
	Model  string
	Year   *int
	Status *enums.CarStatus
}

// ListInput combines filters and cursor pagination.
type ListInput struct {
	Filters ListFilters
	Cursor  string
	Limit   int
}

// DeleteResult confirms a deletion.
type DeleteResult struct {
	ID      uuid.UUID `json:"id"`
	Message string    `json:"message"`
}

func FromModel(c *models.Car) CarDTO {
	return CarDTO{
		ID:           c.ID,
		Brand:        c.Brand,
		Model:        c.Model,
		Year:         c.Year,
		PricePerHour: c.PricePerHour,
		Status:       c.Status,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}
