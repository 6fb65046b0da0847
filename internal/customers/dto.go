package customers

import (
	"strings"
	"time"

	"github.com/angelmondragon/carrental-backend/pkg/db/models"
	"github.com/angelmondragon/carrental-backend/pkg/types"
	"github.com/google/uuid"
)

// UniqueEmailConstraint is the unique constraint backing customers.email.
const UniqueEmailConstraint = "customers_email_key"

// CustomerDTO is the API representation of a customer.
type CustomerDTO struct {
	ID        uuid.UUID  `json:"id"`
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
	BirthDate types.Date `json:"birth_date"`
	Phone     string     `json:"phone"`
	Email     string     `json:"email"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

type CreateCustomerInput struct {
	FirstName string     `json:"first_name" validate:"required,max=100"`
	LastName  string     `json:"last_name" validate:"required,max=100"`
	BirthDate types.Date `json:"birth_date" validate:"required"`
	Phone     string     `json:"phone" validate:"required,max=32"`
	Email     string     `json:"email" validate:"required,email,max=255"`
}

// UpdateCustomerInput is a partial update; nil fields are left unchanged.
type UpdateCustomerInput struct {
	FirstName *string     `json:"first_name,omitempty" validate:"omitempty,min=1,max=100"`
	LastName  *string     `json:"last_name,omitempty" validate:"omitempty,min=1,max=100"`
	BirthDate *types.Date `json:"birth_date,omitempty"`
	Phone     *string     `json:"phone,omitempty" validate:"omitempty,min=1,max=32"`
	Email     *string     `json:"email,omitempty" validate:"omitempty,email,max=255"`
}

// ListFilters narrows customer listings. Name matches either first or last name.
type ListFilters struct {
	Name  string
	Email string
}

type ListInput struct {
	Filters ListFilters
	Cursor  string
	Limit   int
}

// DeleteResult reports how many contracts went with the customer.
type DeleteResult struct {
	ID               uuid.UUID `json:"id"`
	RemovedContracts int64     `json:"removed_contracts"`
	ReleasedCars     int       `json:"released_cars"`
	Message          string    `json:"message"`
}

func FromModel(c *models.Customer) CustomerDTO {
	return CustomerDTO{
		ID:        c.ID,
		FirstName: c.FirstName,
		LastName:  c.LastName,
		BirthDate: types.NewDate(c.BirthDate),
		Phone:     c.Phone,
		Email:     c.Email,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

// NormalizeEmail lowercases and trims an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
