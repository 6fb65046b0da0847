package customers

import (
	"context"
	"time"

	"github.com/angelmondragon/carrental-backend/pkg/db/models"
	"github.com/angelmondragon/carrental-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines persistence operations for customers and their cascade.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, customer *models.Customer) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Customer, error)
	List(ctx context.Context, filters ListFilters, cursor *pagination.Cursor, limit int) ([]models.Customer, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	// ActiveContractCarIDs returns the cars held by the customer's active contracts
	// that have not reached their end date on day.
	ActiveContractCarIDs(ctx context.Context, id uuid.UUID, day time.Time) ([]uuid.UUID, error)
	// CountOtherHolders counts unexpired active contracts of other customers on the car.
	CountOtherHolders(ctx context.Context, carID, customerID uuid.UUID, day time.Time) (int64, error)
	// DeleteCascade removes the customer's payments, contracts and the customer row,
	// returning the number of contracts removed.
	DeleteCascade(ctx context.Context, id uuid.UUID) (int64, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}
