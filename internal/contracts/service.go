package contracts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/carrental-backend/internal/cars"
	"github.com/angelmondragon/carrental-backend/internal/customers"
	"github.com/angelmondragon/carrental-backend/internal/policy"
	"github.com/angelmondragon/carrental-backend/pkg/db/models"
	"github.com/angelmondragon/carrental-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/carrental-backend/pkg/errors"
	"github.com/angelmondragon/carrental-backend/pkg/logger"
	"github.com/angelmondragon/carrental-backend/pkg/metrics"
	"github.com/angelmondragon/carrental-backend/pkg/outbox"
	"github.com/angelmondragon/carrental-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/carrental-backend/pkg/pagination"
	"github.com/angelmondragon/carrental-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const minDuration = 24 * time.Hour

const (
	opCreate = "create"
	opCancel = "cancel"
	opUpdate = "update"
	opPrice  = "price"
)

// Service validates and applies contract lifecycle transitions together with the car
// status changes they imply.
type Service interface {
	Create(ctx context.Context, actor policy.Principal, input CreateContractInput) (*ContractDTO, error)
	Cancel(ctx context.Context, actor policy.Principal, id uuid.UUID) (*CancelResult, error)
	Update(ctx context.Context, actor policy.Principal, id uuid.UUID, input UpdateContractInput) (*ContractDTO, error)
	ComputeRentalPrice(ctx context.Context, carID uuid.UUID, hours decimal.Decimal) (*RentalPrice, error)
	Get(ctx context.Context, id uuid.UUID) (*ContractDTO, error)
	List(ctx context.Context, input ListInput) (*types.ListResult[ContractDTO], error)
	// ListExpired returns ids of active contracts whose end date has been reached.
	ListExpired(ctx context.Context, limit int) ([]uuid.UUID, error)
	// Expire ends one expired contract and frees its car. It reports false when the
	// contract no longer qualifies.
	Expire(ctx context.Context, id uuid.UUID) (bool, error)
}

type ServiceParams struct {
	Repository Repository
	Cars       cars.Repository
	Customers  customers.Repository
	TxRunner   txRunner
	Outbox     outbox.Emitter
	Metrics    *metrics.ContractMetrics
	Logger     *logger.Logger
	Now        func() time.Time
}

type service struct {
	repo      Repository
	cars      cars.Repository
	customers customers.Repository
	tx        txRunner
	outbox    outbox.Emitter
	metrics   *metrics.ContractMetrics
	logg      *logger.Logger
	now       func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("contracts repository required")
	}
	if params.Cars == nil {
		return nil, fmt.Errorf("cars repository required")
	}
	if params.Customers == nil {
		return nil, fmt.Errorf("customers repository required")
	}
	if params.TxRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:      params.Repository,
		cars:      params.Cars,
		customers: params.Customers,
		tx:        params.TxRunner,
		outbox:    params.Outbox,
		metrics:   params.Metrics,
		logg:      params.Logger,
		now:       now,
	}, nil
}

func (s *service) Create(ctx context.Context, actor policy.Principal, input CreateContractInput) (*ContractDTO, error) {
	status := enums.ContractStatusActive
	if input.Status != nil {
		status = *input.Status
	}
	if !status.IsValid() {
		return nil, s.reject(opCreate, pkgerrors.New(pkgerrors.CodeValidation, "invalid contract status"))
	}
	if input.TotalPrice != nil {
		if err := validateTotalPrice(*input.TotalPrice); err != nil {
			return nil, s.reject(opCreate, err)
		}
	}
	if err := validateRange(input.StartDate.Time, input.EndDate.Time); err != nil {
		return nil, s.reject(opCreate, err)
	}

	endDay := input.EndDate.Day()
	contract := &models.Contract{
		CarID:      input.CarID,
		CustomerID: input.CustomerID,
		Status:     status,
		StartDate:  input.StartDate.Day(),
		EndDate:    &endDay,
		TotalPrice: input.TotalPrice,
	}
	released := false

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		carRepo := s.cars.WithTx(tx)
		car, err := s.loadCar(ctx, carRepo, input.CarID)
		if err != nil {
			return err
		}
		if car.Status != enums.CarStatusAvailable {
			return fail(ErrCarUnavailable)
		}
		if _, err := s.loadCustomer(ctx, s.customers.WithTx(tx), input.CustomerID); err != nil {
			return err
		}

		reserved, err := carRepo.TransitionStatus(ctx, car.ID, enums.CarStatusReserved, enums.CarStatusAvailable)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve car")
		}
		if !reserved {
			return fail(ErrCarUnavailable)
		}
		if err := s.repo.WithTx(tx).Create(ctx, contract); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create contract")
		}

		// Back-dated contracts and contracts opened in a terminal state never hold the car.
		if status != enums.ContractStatusActive || !s.today().Before(endDay) {
			released, err = carRepo.TransitionStatus(ctx, car.ID, enums.CarStatusAvailable, enums.CarStatusReserved)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release car")
			}
		}

		return s.emit(ctx, tx, actorRef(actor), enums.EventContractCreated, contract, contractEvent(contract, released, nil))
	})
	if err != nil {
		return nil, s.reject(opCreate, err)
	}

	s.metrics.IncTransition(metrics.TransitionCreated)
	s.info(ctx, contract.ID, "contract.created", map[string]any{"car_id": contract.CarID.String(), "car_released": released})
	dto := FromModel(contract)
	return &dto, nil
}

// Cancel terminates a contract that has not started yet and frees its car.
func (s *service) Cancel(ctx context.Context, actor policy.Principal, id uuid.UUID) (*CancelResult, error) {
	var canceled *models.Contract
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		contract, err := s.load(ctx, repo, id)
		if err != nil {
			return err
		}
		now := s.now().UTC()
		if !now.Before(contract.StartDate) {
			return fail(ErrCancellationWindowClosed).WithDetails(map[string]any{
				"start_date": types.NewDate(contract.StartDate),
			})
		}
		if contract.Status == enums.ContractStatusTerminated {
			return fail(ErrAlreadyTerminated)
		}

		ok, err := repo.TransitionStatus(ctx, id, enums.ContractStatusTerminated, enums.ContractStatusActive, enums.ContractStatusEnded)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "terminate contract")
		}
		if !ok {
			return fail(ErrAlreadyTerminated)
		}

		released := false
		if contract.Status == enums.ContractStatusActive {
			if released, err = s.releaseCar(ctx, repo, s.cars.WithTx(tx), contract.CarID, contract.ID); err != nil {
				return err
			}
		}

		if canceled, err = s.load(ctx, repo, id); err != nil {
			return err
		}
		return s.emit(ctx, tx, actorRef(actor), enums.EventContractCanceled, canceled, payloads.ContractCanceledEvent{
			ContractID:  canceled.ID,
			CarID:       canceled.CarID,
			CustomerID:  canceled.CustomerID,
			CanceledAt:  now,
			CarReleased: released,
		})
	})
	if err != nil {
		return nil, s.reject(opCancel, err)
	}

	s.metrics.IncTransition(metrics.TransitionCanceled)
	s.info(ctx, id, "contract.canceled", nil)
	return &CancelResult{Contract: FromModel(canceled), Message: "contract canceled"}, nil
}

// Update applies a partial patch. Reassigning the car, or reactivating a closed contract,
// reserves the target car under the same rules as creation.
func (s *service) Update(ctx context.Context, actor policy.Principal, id uuid.UUID, input UpdateContractInput) (*ContractDTO, error) {
	var updated *models.Contract
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		carRepo := s.cars.WithTx(tx)
		contract, err := s.load(ctx, repo, id)
		if err != nil {
			return err
		}

		updates := map[string]any{}

		start := contract.StartDate
		startRaw := contract.StartDate
		if input.StartDate != nil {
			startRaw = input.StartDate.Time
			start = input.StartDate.Day()
			updates["start_date"] = start
		}
		endRaw := contract.EndDate
		if input.EndDate.Valid {
			if input.EndDate.Value == nil {
				endRaw = nil
				updates["end_date"] = nil
			} else {
				raw := input.EndDate.Value.Time
				endRaw = &raw
				updates["end_date"] = input.EndDate.Value.Day()
			}
		}
		if endRaw != nil {
			if err := validateRange(startRaw, *endRaw); err != nil {
				return err
			}
		}

		if input.TotalPrice != nil {
			if err := validateTotalPrice(*input.TotalPrice); err != nil {
				return err
			}
			updates["total_price"] = *input.TotalPrice
		}

		status := contract.Status
		if input.Status != nil {
			if !input.Status.IsValid() {
				return pkgerrors.New(pkgerrors.CodeValidation, "invalid contract status")
			}
			status = *input.Status
			updates["status"] = status
		}

		if input.CustomerID != nil && *input.CustomerID != contract.CustomerID {
			if _, err := s.loadCustomer(ctx, s.customers.WithTx(tx), *input.CustomerID); err != nil {
				return err
			}
			updates["customer_id"] = *input.CustomerID
		}

		wasActive := contract.Status == enums.ContractStatusActive
		willBeActive := status == enums.ContractStatusActive
		carID := contract.CarID
		var previousCarID *uuid.UUID
		if input.CarID != nil && *input.CarID != contract.CarID {
			prev := contract.CarID
			previousCarID = &prev
			carID = *input.CarID
			updates["car_id"] = carID
		}

		if previousCarID != nil || (willBeActive && !wasActive) {
			car, err := s.loadCar(ctx, carRepo, carID)
			if err != nil {
				return err
			}
			if willBeActive {
				if car.Status != enums.CarStatusAvailable {
					return fail(ErrCarUnavailable)
				}
				reserved, err := carRepo.TransitionStatus(ctx, carID, enums.CarStatusReserved, enums.CarStatusAvailable)
				if err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve car")
				}
				if !reserved {
					return fail(ErrCarUnavailable)
				}
			}
		}

		released := false
		if wasActive && (previousCarID != nil || !willBeActive) {
			if released, err = s.releaseCar(ctx, repo, carRepo, contract.CarID, contract.ID); err != nil {
				return err
			}
		}

		if len(updates) == 0 {
			updated = contract
			return nil
		}
		if err := repo.Update(ctx, id, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update contract")
		}
		if updated, err = s.load(ctx, repo, id); err != nil {
			return err
		}
		return s.emit(ctx, tx, actorRef(actor), enums.EventContractUpdated, updated, contractEvent(updated, released, previousCarID))
	})
	if err != nil {
		return nil, s.reject(opUpdate, err)
	}

	s.metrics.IncTransition(metrics.TransitionUpdated)
	s.info(ctx, id, "contract.updated", nil)
	dto := FromModel(updated)
	return &dto, nil
}

// ComputeRentalPrice quotes price_per_hour × hours for an available car. The result is
// not rounded.
func (s *service) ComputeRentalPrice(ctx context.Context, carID uuid.UUID, hours decimal.Decimal) (*RentalPrice, error) {
	if !hours.IsPositive() {
		return nil, s.reject(opPrice, pkgerrors.New(pkgerrors.CodeValidation, "hours must be greater than 0"))
	}
	car, err := s.loadCar(ctx, s.cars, carID)
	if err != nil {
		return nil, s.reject(opPrice, err)
	}
	if car.Status != enums.CarStatusAvailable {
		return nil, s.reject(opPrice, fail(ErrCarUnavailable))
	}
	return &RentalPrice{
		CarID:        car.ID,
		Hours:        hours,
		PricePerHour: car.PricePerHour,
		Total:        car.PricePerHour.Mul(hours),
	}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*ContractDTO, error) {
	contract, err := s.load(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	dto := FromModel(contract)
	return &dto, nil
}

func (s *service) List(ctx context.Context, input ListInput) (*types.ListResult[ContractDTO], error) {
	if input.Filters.Status != nil && !input.Filters.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
	}
	cursor, err := pagination.ParseCursor(input.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, input.Filters, cursor, input.Limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list contracts")
	}
	page, next := pagination.Trim(rows, input.Limit, func(c models.Contract) pagination.Cursor {
		return pagination.Cursor{CreatedAt: c.CreatedAt, ID: c.ID}
	})
	items := make([]ContractDTO, 0, len(page))
	for i := range page {
		items = append(items, FromModel(&page[i]))
	}
	return &types.ListResult[ContractDTO]{Items: items, NextCursor: next}, nil
}

func (s *service) ListExpired(ctx context.Context, limit int) ([]uuid.UUID, error) {
	ids, err := s.repo.ListExpiredIDs(ctx, s.today(), limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list expired contracts")
	}
	return ids, nil
}

func (s *service) Expire(ctx context.Context, id uuid.UUID) (bool, error) {
	today := s.today()
	expired := false
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		contract, err := s.load(ctx, repo, id)
		if err != nil {
			return err
		}
		if contract.Status != enums.ContractStatusActive || contract.EndDate == nil || contract.EndDate.After(today) {
			return nil
		}

		ok, err := repo.TransitionStatus(ctx, id, enums.ContractStatusEnded, enums.ContractStatusActive)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "end contract")
		}
		if !ok {
			return nil
		}
		contract.Status = enums.ContractStatusEnded

		released, err := s.releaseCar(ctx, repo, s.cars.WithTx(tx), contract.CarID, contract.ID)
		if err != nil {
			return err
		}

		expired = true
		return s.emit(ctx, tx, nil, enums.EventContractExpired, contract, contractEvent(contract, released, nil))
	})
	if err != nil {
		return false, err
	}
	if expired {
		s.metrics.IncTransition(metrics.TransitionExpired)
	}
	return expired, nil
}

// releaseCar frees a reserved or rented car unless another active contract that has not
// reached its end date still holds it. Back-dated and unswept contracts never hold a car.
func (s *service) releaseCar(ctx context.Context, repo Repository, carRepo cars.Repository, carID, contractID uuid.UUID) (bool, error) {
	holders, err := repo.CountActiveHolders(ctx, carID, contractID, s.today())
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count car holders")
	}
	if holders > 0 {
		return false, nil
	}
	released, err := carRepo.TransitionStatus(ctx, carID, enums.CarStatusAvailable, enums.CarStatusReserved, enums.CarStatusRented)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release car")
	}
	return released, nil
}

func (s *service) today() time.Time {
	return types.StartOfDay(s.now())
}

func (s *service) load(ctx context.Context, repo Repository, id uuid.UUID) (*models.Contract, error) {
	contract, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fail(ErrContractNotFound)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load contract")
	}
	return contract, nil
}

func (s *service) loadCar(ctx context.Context, repo cars.Repository, id uuid.UUID) (*models.Car, error) {
	car, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fail(ErrCarNotFound)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load car")
	}
	return car, nil
}

func (s *service) loadCustomer(ctx context.Context, repo customers.Repository, id uuid.UUID) (*models.Customer, error) {
	customer, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fail(ErrCustomerNotFound)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load customer")
	}
	return customer, nil
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, actor *outbox.ActorRef, eventType enums.OutboxEventType, contract *models.Contract, data any) error {
	err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateContract,
		AggregateID:   contract.ID,
		Actor:         actor,
		Data:          data,
		OccurredAt:    s.now(),
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit "+string(eventType))
	}
	return nil
}

func (s *service) reject(op string, err error) error {
	if reason := rejectionReason(err); reason != "" {
		s.metrics.IncRejection(op, reason)
	}
	return err
}

func (s *service) info(ctx context.Context, id uuid.UUID, msg string, fields map[string]any) {
	if s.logg == nil {
		return
	}
	if fields == nil {
		fields = map[string]any{}
	}
	fields["contract_id"] = id.String()
	s.logg.Info(s.logg.WithFields(ctx, fields), msg)
}

func validateTotalPrice(price decimal.Decimal) error {
	if price.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "total_price must not be negative")
	}
	if !types.FitsMoneyScale(price) {
		return pkgerrors.New(pkgerrors.CodeValidation, "total_price must have at most 2 decimal places")
	}
	return nil
}

// validateRange checks the raw instants before they are truncated to calendar days.
func validateRange(start, end time.Time) error {
	if !start.Before(end) {
		return fail(ErrInvalidRange)
	}
	if end.Sub(start) < minDuration {
		return fail(ErrDurationTooShort)
	}
	return nil
}

func actorRef(p policy.Principal) *outbox.ActorRef {
	return &outbox.ActorRef{UserID: p.UserID, Role: p.Role}
}

func contractEvent(c *models.Contract, released bool, previousCarID *uuid.UUID) payloads.ContractEvent {
	return payloads.ContractEvent{
		ContractID:    c.ID,
		CarID:         c.CarID,
		CustomerID:    c.CustomerID,
		Status:        c.Status,
		StartDate:     c.StartDate,
		EndDate:       c.EndDate,
		TotalPrice:    c.TotalPrice,
		CarReleased:   released,
		PreviousCarID: previousCarID,
	}
}
