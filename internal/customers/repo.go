package customers

import (
	"context"
	"strings"
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

// NewRepository builds a customers repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, customer *models.Customer) error {
	return r.db.WithContext(ctx).Create(customer).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	var customer models.Customer
	if err := r.db.WithContext(ctx).First(&customer, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *repository) List(ctx context.Context, filters ListFilters, cursor *pagination.Cursor, limit int) ([]models.Customer, error) {
	q := r.db.WithContext(ctx).Model(&models.Customer{})
	if name := strings.TrimSpace(filters.Name); name != "" {
		pattern := likePattern(name)
		q = q.Where("(LOWER(first_name) LIKE ? ESCAPE '\\' OR LOWER(last_name) LIKE ? ESCAPE '\\')", pattern, pattern)
	}
	if email := strings.TrimSpace(filters.Email); email != "" {
		q = q.Where("email = ?", NormalizeEmail(email))
	}

	var rows []models.Customer
	if err := pagination.Apply(q, cursor, limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&models.Customer{}).Where("id = ?", id).Updates(updates).Error
}

func (r *repository) ActiveContractCarIDs(ctx context.Context, id uuid.UUID, day time.Time) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.Contract{}).
		Where("customer_id = ? AND status = ?", id, enums.ContractStatusActive).
		Where("(end_date IS NULL OR end_date > ?)", day).
		Distinct().
		Pluck("car_id", &ids).Error
	return ids, err
}

func (r *repository) CountOtherHolders(ctx context.Context, carID, customerID uuid.UUID, day time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Contract{}).
		Where("car_id = ? AND customer_id <> ? AND status = ?", carID, customerID, enums.ContractStatusActive).
		Where("(end_date IS NULL OR end_date > ?)", day).
		Count(&count).Error
	return count, err
}

// DeleteCascade issues the deletes explicitly so the outcome does not depend on the
// driver honouring ON DELETE CASCADE.
func (r *repository) DeleteCascade(ctx context.Context, id uuid.UUID) (int64, error) {
	db := r.db.WithContext(ctx)
	contractIDs := db.Model(&models.Contract{}).Select("id").Where("customer_id = ?", id)
	if err := db.Where("contract_id IN (?)", contractIDs).Delete(&models.Payment{}).Error; err != nil {
		return 0, err
	}
	res := db.Where("customer_id = ?", id).Delete(&models.Contract{})
	if res.Error != nil {
		return 0, res.Error
	}
	if err := db.Delete(&models.Customer{}, "id = ?", id).Error; err != nil {
		return 0, err
	}
	return res.RowsAffected, nil
}

func likePattern(term string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(strings.ToLower(term))
	return "%" + escaped + "%"
}
