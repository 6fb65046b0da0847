package customers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/carrental-backend/internal/cars"
	"github.com/angelmondragon/carrental-backend/pkg/db"
	"github.com/angelmondragon/carrental-backend/pkg/db/models"
	"github.com/angelmondragon/carrental-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/carrental-backend/pkg/errors"
	"github.com/angelmondragon/carrental-backend/pkg/pagination"
	"github.com/angelmondragon/carrental-backend/pkg/types"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service manages customer records.
type Service interface {
	Create(ctx context.Context, input CreateCustomerInput) (*CustomerDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*CustomerDTO, error)
	List(ctx context.Context, input ListInput) (*types.ListResult[CustomerDTO], error)
	Update(ctx context.Context, id uuid.UUID, input UpdateCustomerInput) (*CustomerDTO, error)
	Delete(ctx context.Context, id uuid.UUID) (*DeleteResult, error)
}

type ServiceParams struct {
	Repository Repository
	Cars       cars.Repository
	TxRunner   txRunner
	Now        func() time.Time
}

type service struct {
	repo Repository
	cars cars.Repository
	tx   txRunner
	now  func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("customers repository required")
	}
	if params.Cars == nil {
		return nil, fmt.Errorf("cars repository required")
	}
	if params.TxRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{repo: params.Repository, cars: params.Cars, tx: params.TxRunner, now: now}, nil
}

func (s *service) Create(ctx context.Context, input CreateCustomerInput) (*CustomerDTO, error) {
	customer := &models.Customer{
		FirstName: strings.TrimSpace(input.FirstName),
		LastName:  strings.TrimSpace(input.LastName),
		BirthDate: input.BirthDate.Day(),
		Phone:     strings.TrimSpace(input.Phone),
		Email:     NormalizeEmail(input.Email),
	}
	if err := s.validate(customer); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, customer); err != nil {
		return nil, mapWriteError(err, "create customer")
	}
	dto := FromModel(customer)
	return &dto, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*CustomerDTO, error) {
	customer, err := s.load(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	dto := FromModel(customer)
	return &dto, nil
}

func (s *service) List(ctx context.Context, input ListInput) (*types.ListResult[CustomerDTO], error) {
	cursor, err := pagination.ParseCursor(input.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, input.Filters, cursor, input.Limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list customers")
	}
	page, next := pagination.Trim(rows, input.Limit, func(c models.Customer) pagination.Cursor {
		return pagination.Cursor{CreatedAt: c.CreatedAt, ID: c.ID}
	})
	items := make([]CustomerDTO, 0, len(page))
	for i := range page {
		items = append(items, FromModel(&page[i]))
	}
	return &types.ListResult[CustomerDTO]{Items: items, NextCursor: next}, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateCustomerInput) (*CustomerDTO, error) {
	var updated *models.Customer
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		customer, err := s.load(ctx, repo, id)
		if err != nil {
			return err
		}

		updates := map[string]any{}
		if input.FirstName != nil {
			customer.FirstName = strings.TrimSpace(*input.FirstName)
			updates["first_name"] = customer.FirstName
		}
		if input.LastName != nil {
			customer.LastName = strings.TrimSpace(*input.LastName)
			updates["last_name"] = customer.LastName
		}
		if input.BirthDate != nil {
			customer.BirthDate = input.BirthDate.Day()
			updates["birth_date"] = customer.BirthDate
		}
		if input.Phone != nil {
			customer.Phone = strings.TrimSpace(*input.Phone)
			updates["phone"] = customer.Phone
		}
		if input.Email != nil {
			customer.Email = NormalizeEmail(*input.Email)
			updates["email"] = customer.Email
		}
		if err := s.validate(customer); err != nil {
			return err
		}
		if err := repo.Update(ctx, id, updates); err != nil {
			return mapWriteError(err, "update customer")
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

// Delete removes the customer with their contracts and payments. Cars held by the
// customer's active contracts go back to the fleet.
func (s *service) Delete(ctx context.Context, id uuid.UUID) (*DeleteResult, error) {
	result := &DeleteResult{ID: id}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := s.load(ctx, repo, id); err != nil {
			return err
		}
		today := types.StartOfDay(s.now())
		carIDs, err := repo.ActiveContractCarIDs(ctx, id, today)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load active contracts")
		}
		carRepo := s.cars.WithTx(tx)
		for _, carID := range carIDs {
			holders, err := repo.CountOtherHolders(ctx, carID, id, today)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count car holders")
			}
			if holders > 0 {
				continue
			}
			released, err := carRepo.TransitionStatus(ctx, carID, enums.CarStatusAvailable, enums.CarStatusReserved, enums.CarStatusRented)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release car")
			}
			if released {
				result.ReleasedCars++
			}
		}
		removed, err := repo.DeleteCascade(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete customer")
		}
		result.RemovedContracts = removed
		return nil
	})
	if err != nil {
		return nil, err
	}
	result.Message = fmt.Sprintf("customer deleted with %d contract(s)", result.RemovedContracts)
	return result, nil
}

func (s *service) load(ctx context.Context, repo Repository, id uuid.UUID) (*models.Customer, error) {
	customer, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load customer")
	}
	return customer, nil
}

func (s *service) validate(c *models.Customer) error {
	details := map[string]any{}
	if c.FirstName == "" {
		details["first_name"] = "required"
	}
	if c.LastName == "" {
		details["last_name"] = "required"
	}
	if c.Phone == "" {
		details["phone"] = "required"
	}
	if c.Email == "" || !strings.Contains(c.Email, "@") {
		details["email"] = "must be a valid email"
	}
	if c.BirthDate.IsZero() || !c.BirthDate.Before(types.StartOfDay(s.now())) {
		details["birth_date"] = "must be in the past"
	}
	if len(details) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid customer").WithDetails(details)
	}
	return nil
}

func mapWriteError(err error, msg string) error {
	if db.IsUniqueViolation(err, UniqueEmailConstraint) {
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "email already in use")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}
