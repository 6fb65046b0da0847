package contracts

import (
	"context"
	"time"

	"github.com/angelmondragon/carrental-backend/pkg/db/models"
	"github.com/angelmondragon/carrental-backend/pkg/enums"
	"github.com/angelmondragon/carrental-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines persistence operations for contracts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, contract *models.Contract) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Contract, error)
	List(ctx context.Context, filters ListFilters, cursor *pagination.Cursor, limit int) ([]models.Contract, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	// TransitionStatus moves the contract to "to" only while its status is one of "from".
	TransitionStatus(ctx context.Context, id uuid.UUID, to enums.ContractStatus, from ...enums.ContractStatus) (bool, error)
	// ListExpiredIDs returns active contracts whose end date is on or before day, oldest first.
	ListExpiredIDs(ctx context.Context, day time.Time, limit int) ([]uuid.UUID, error)
	// CountActiveHolders counts active contracts other than excludeID that hold the car
	// beyond day.
	CountActiveHolders(ctx context.Context, carID, excludeID uuid.UUID, day time.Time) (int64, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}
