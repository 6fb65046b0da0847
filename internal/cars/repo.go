package cars

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

// NewRepository builds a cars repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, car *models.Car) error {
	return r.db.WithContext(ctx).Create(car).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Car, error) {
	var car models.Car
	if err := r.db.WithContext(ctx).First(&car, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &car, nil
}

func (r *repository) List(ctx context.Context, filters ListFilters, cursor *pagination.Cursor, limit int) ([]models.Car, error) {
	q := r.db.WithContext(ctx).Model(&models.Car{})
	if brand := strings.TrimSpace(filters.Brand); brand != "" {
		q = q.Where("LOWER(brand) LIKE ? ESCAPE '\\'", likePattern(brand))
	}
	if model := strings.TrimSpace(filters.Model); model != "" {
		q = q.Where("LOWER(model) LIKE ? ESCAPE '\\'", likePattern(model))
	}
	if filters.Year != nil {
		q = q.Where("year = ?", *filters.Year)
	}
	if filters.Status != nil {
		q = q.Where("status = ?", *filters.Status)
	}

	var rows []models.Car
	if err := pagination.Apply(q, cursor, limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&models.Car{}).Where("id = ?", id).Updates(updates).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Car{}, "id = ?", id).Error
}

func (r *repository) CountContracts(ctx context.Context, id uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Contract{}).Where("car_id = ?", id).Count(&count).Error
	return count, err
}

func (r *repository) TransitionStatus(ctx context.Context, id uuid.UUID, to enums.CarStatus, from ...enums.CarStatus) (bool, error) {
	q := r.db.WithContext(ctx).Model(&models.Car{}).Where("id = ?", id)
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

func likePattern(term string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(strings.ToLower(term))
	return "%" + escaped + "%"
}
