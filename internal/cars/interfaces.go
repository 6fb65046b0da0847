package cars

import (
	"context"

	"github.com/angelmondragon/carrental-backend/pkg/db/models"
	"github.com/angelmondragon/carrental-backend/pkg/enums"
	"github.com/angelmondragon/carrental-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines persistence operations for the cars table.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, car *models.Car) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Car, error)
	List(ctx context.Context, filters ListFilters, cursor *pagination.Cursor, limit int) ([]models.Car, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) error
	CountContracts(ctx context.Context, id uuid.UUID) (int64, error)
	// TransitionStatus moves the car to "to" only while its current status is one of "from".
	// It reports whether a row changed.
	TransitionStatus(ctx context.Context, id uuid.UUID, to enums.CarStatus, from ...enums.CarStatus) (bool, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}
