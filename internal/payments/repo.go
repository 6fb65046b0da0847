package payments

import (
	"context"

	"github.com/angelmondragon/carrental-backend/pkg/db/models"
	"github.com/angelmondragon/carrental-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a payments repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).First(&payment, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) List(ctx context.Context, filters ListFilters, cursor *pagination.Cursor, limit int) ([]models.Payment, error) {
	q := r.db.WithContext(ctx).Model(&models.Payment{})
	if filters.ContractID != nil {
		q = q.Where("contract_id = ?", *filters.ContractID)
	}
	if filters.Status != nil {
		q = q.Where("status = ?", *filters.Status)
	}

	var rows []models.Payment
	if err := pagination.Apply(q, cursor, limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&models.Payment{}).Where("id = ?", id).Updates(updates).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Payment{}, "id = ?", id).Error
}

func (r *repository) FindContract(ctx context.Context, id uuid.UUID) (*models.Contract, error) {
	var contract models.Contract
	if err := r.db.WithContext(ctx).First(&contract, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &contract, nil
}
