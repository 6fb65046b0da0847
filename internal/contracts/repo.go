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

type repository struct {
	db *gorm.DB
}

// NewRepository builds a contracts repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, contract *models.Contract) error {
	return r.db.WithContext(ctx).Create(contract).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Contract, error) {
	var contract models.Contract
	if err := r.db.WithContext(ctx).First(&contract, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &contract, nil
}

func (r *repository) List(ctx context.Context, filters ListFilters, cursor *pagination.Cursor, limit int) ([]models.Contract, error) {
	q := r.db.WithContext(ctx).Model(&models.Contract{})
	if filters.Status != nil {
		q = q.Where("status = ?", *filters.Status)
	}
	if filters.CarID != nil {
		q = q.Where("car_id = ?", *filters.CarID)
	}
	if filters.CustomerID != nil {
		q = q.Where("customer_id = ?", *filters.CustomerID)
	}

	var rows []models.Contract
	if err := pagination.Apply(q, cursor, limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&models.Contract{}).Where("id = ?", id).Updates(updates).Error
}

func (r *repository) TransitionStatus(ctx context.Context, id uuid.UUID, to enums.ContractStatus, from ...enums.ContractStatus) (bool, error) {
	q := r.db.WithContext(ctx).Model(&models.Contract{}).Where("id = ?", id)
	if len(from) > 0 {
		q = q.Where("status IN ?", from)
	}
	res := q.UpdateColumns(map[string]any{
		"status":     to,
		"updated_at": time.Now().UTC(),
	})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) ListExpiredIDs(ctx context.Context, day time.Time, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	q := r.db.WithContext(ctx).
		Model(&models.Contract{}).
		Where("status = ? AND end_date IS NOT NULL AND end_date <= ?", enums.ContractStatusActive, day).
		Order("end_date ASC").
		Order("id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *repository) CountActiveHolders(ctx context.Context, carID, excludeID uuid.UUID, day time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Contract{}).
		Where("car_id = ? AND id <> ? AND status = ?", carID, excludeID, enums.ContractStatusActive).
		Where("(end_date IS NULL OR end_date > ?)", day).
		Count(&count).Error
	return count, err
}
