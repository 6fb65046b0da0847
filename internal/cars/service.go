package cars

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/carrental-backend/pkg/db/models"
	"github.com/angelmondragon/carrental-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/carrental-backend/pkg/errors"
	"github.com/angelmondragon/carrental-backend/pkg/pagination"
	"github.com/angelmondragon/carrental-backend/pkg/types"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service manages the fleet.
type Service interface {
	Create(ctx context.Context, input CreateCarInput) (*CarDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*CarDTO, error)
	List(ctx context.Context, input ListInput) (*types.ListResult[CarDTO], error)
	Update(ctx context.Context, id uuid.UUID, input UpdateCarInput) (*CarDTO, error)
	Delete(ctx context.Context, id uuid.UUID) (*DeleteResult, error)
}

type ServiceParams struct {
	Repository Repository
	TxRunner   txRunner
}

type service struct {
	repo Repository
	tx   txRunner
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("cars repository required")
	}
	if params.TxRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: params.Repository, tx: params.TxRunner}, nil
}

func (s *service) Create(ctx context.Context, input CreateCarInput) (*CarDTO, error) {
	car := &models.Car{
		Brand:        strings.TrimSpace(input.Brand),
		Model:        strings.TrimSpace(input.Model),
		Year:         input.Year,
		PricePerHour: input.PricePerHour,
		Status:       enums.CarStatusAvailable,
	}
	if input.Status != nil {
		car.Status = *input.Status
	}
	if err := validateCar(car); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, car); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create car")
	}
	dto := FromModel(car)
	return &dto, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*CarDTO, error) {
	car, err := s.load(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	dto := FromModel(car)
	return &dto, nil
}

func (s *service) List(ctx context.Context, input ListInput) (*types.ListResult[CarDTO], error) {
	if input.Filters.Status != nil && !input.Filters.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
	}
	cursor, err := pagination.ParseCursor(input.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, input.Filters, cursor, input.Limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list cars")
	}
	page, next := pagination.Trim(rows, input.Limit, func(c models.Car) pagination.Cursor {
		return pagination.Cursor{CreatedAt: c.CreatedAt, ID: c.ID}
	})
	items := make([]CarDTO, 0, len(page))
	for i := range page {
		items = append(items, FromModel(&page[i]))
	}
	return &types.ListResult[CarDTO]{Items: items, NextCursor: next}, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateCarInput) (*CarDTO, error) {
	var updated *models.Car
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		car, err := s.load(ctx, repo, id)
		if err != nil {
			return err
		}

		updates := map[string]any{}
		if input.Brand != nil {
			car.Brand = strings.TrimSpace(*input.Brand)
			updates["brand"] = car.Brand
		}
		if input.Model != nil {
			car.Model = strings.TrimSpace(*input.Model)
			updates["model"] = car.Model
		}
		if input.Year != nil {
			car.Year = *input.Year
			updates["year"] = car.Year
		}
		if input.PricePerHour != nil {
			car.PricePerHour = *input.PricePerHour
			updates["price_per_hour"] = car.PricePerHour
		}
		if input.Status != nil {
			car.Status = *input.Status
			updates["status"] = car.Status
		}
		if err := validateCar(car); err != nil {
			return err
		}
		if err := repo.Update(ctx, id, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update car")
		}
		updated, err = s.load(ctx, repo, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	dto := FromModel(updated)
	return &dto, nil
}

// Delete removes a car that no contract references.
func (s *service) Delete(ctx context.Context, id uuid.UUID) (*DeleteResult, error) {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := s.load(ctx, repo, id); err != nil {
			return err
		}
		count, err := repo.CountContracts(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count car contracts")
		}
		if count > 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "car is referenced by contracts").
				WithDetails(map[string]any{"contracts": count})
		}
		if err := repo.Delete(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete car")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &DeleteResult{ID: id, Message: "car deleted"}, nil
}

func (s *service) load(ctx context.Context, repo Repository, id uuid.UUID) (*models.Car, error) {
	car, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "car not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load car")
	}
	return car, nil
}

func validateCar(car *models.Car) error {
	details := map[string]any{}
	if car.Brand == "" {
		details["brand"] = "required"
	}
	if car.Model == "" {
		details["model"] = "required"
	}
	if car.Year < 1886 || car.Year > 2100 {
		details["year"] = "must be between 1886 and 2100"
	}
	if !car.PricePerHour.IsPositive() {
		details["price_per_hour"] = "must be greater than 0"
	} else if !types.FitsMoneyScale(car.PricePerHour) {
		details["price_per_hour"] = "must have at most 2 decimal places"
	}
	if !car.Status.IsValid() {
		details["status"] = "invalid"
	}
	if len(details) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid car").WithDetails(details)
	}
	return nil
}
