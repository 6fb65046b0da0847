package payments

import (
	"context"
	"errors"
	"fmt"

	"github.com/angelmondragon/carrental-backend/internal/policy"
	"github.com/angelmondragon/carrental-backend/pkg/db/models"
	"github.com/angelmondragon/carrental-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/carrental-backend/pkg/errors"
	"github.com/angelmondragon/carrental-backend/pkg/logger"
	"github.com/angelmondragon/carrental-backend/pkg/outbox"
	"github.com/angelmondragon/carrental-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/carrental-backend/pkg/pagination"
	"github.com/angelmondragon/carrental-backend/pkg/types"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service records payments against contracts.
type Service interface {
	Create(ctx context.Context, actor policy.Principal, input CreatePaymentInput) (*PaymentDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*PaymentDTO, error)
	List(ctx context.Context, input ListInput) (*types.ListResult[PaymentDTO], error)
	Update(ctx context.Context, id uuid.UUID, input UpdatePaymentInput) (*PaymentDTO, error)
	Delete(ctx context.Context, id uuid.UUID) (*DeleteResult, error)
}

type ServiceParams struct {
	Repository Repository
	TxRunner   txRunner
	Outbox     outbox.Emitter
	Logger     *logger.Logger
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outbox.Emitter
	logg   *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if params.TxRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &service{repo: params.Repository, tx: params.TxRunner, outbox: params.Outbox, logg: params.Logger}, nil
}

// Create persists a payment dated on or after its contract's start and emits
// payment_recorded in the same transaction.
func (s *service) Create(ctx context.Context, actor policy.Principal, input CreatePaymentInput) (*PaymentDTO, error) {
	payment := &models.Payment{
		ContractID:  input.ContractID,
		Method:      input.Method,
		PaymentDate: input.PaymentDate.Day(),
		Status:      input.Status,
		Amount:      input.Amount,
	}
	if err := validatePayment(payment); err != nil {
		return nil, err
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		contract, err := s.loadContract(ctx, repo, payment.ContractID)
		if err != nil {
			return err
		}
		if err := checkDate(payment, contract); err != nil {
			return err
		}
		if err := repo.Create(ctx, payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment")
		}
		err = s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentRecorded,
			AggregateType: enums.AggregatePayment,
			AggregateID:   payment.ID,
			Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: actor.Role},
			Data: payloads.PaymentRecordedEvent{
				PaymentID:   payment.ID,
				ContractID:  payment.ContractID,
				Method:      payment.Method,
				Status:      payment.Status,
				Amount:      payment.Amount,
				PaymentDate: payment.PaymentDate,
			},
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit payment_recorded")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"payment_id":  payment.ID.String(),
			"contract_id": payment.ContractID.String(),
		}), "payment.recorded")
	}
	dto := FromModel(payment)
	return &dto, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*PaymentDTO, error) {
	payment, err := s.load(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	dto := FromModel(payment)
	return &dto, nil
}

func (s *service) List(ctx context.Context, input ListInput) (*types.ListResult[PaymentDTO], error) {
	if input.Filters.Status != nil && !input.Filters.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
	}
	cursor, err := pagination.ParseCursor(input.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, input.Filters, cursor, input.Limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payments")
	}
	page, next := pagination.Trim(rows, input.Limit, func(p models.Payment) pagination.Cursor {
		return pagination.Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
	})
	items := make([]PaymentDTO, 0, len(page))
	for i := range page {
		items = append(items, FromModel(&page[i]))
	}
	return &types.ListResult[PaymentDTO]{Items: items, NextCursor: next}, nil
}

// Update applies a partial update and re-checks amount and date against the resulting
// contract.
func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdatePaymentInput) (*PaymentDTO, error) {
	var updated *models.Payment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		payment, err := s.load(ctx, repo, id)
		if err != nil {
			return err
		}

		updates := map[string]any{}
		if input.ContractID != nil {
			payment.ContractID = *input.ContractID
			updates["contract_id"] = payment.ContractID
		}
		if input.Method != nil {
			payment.Method = *input.Method
			updates["method"] = payment.Method
		}
		if input.PaymentDate != nil {
			payment.PaymentDate = input.PaymentDate.Day()
			updates["payment_date"] = payment.PaymentDate
		}
		if input.Status != nil {
			payment.Status = *input.Status
			updates["status"] = payment.Status
		}
		if input.Amount != nil {
			payment.Amount = *input.Amount
			updates["amount"] = payment.Amount
		}
		if err := validatePayment(payment); err != nil {
			return err
		}
		if input.ContractID != nil || input.PaymentDate != nil {
			contract, err := s.loadContract(ctx, repo, payment.ContractID)
			if err != nil {
				return err
			}
			if err := checkDate(payment, contract); err != nil {
				return err
			}
		}
		if err := repo.Update(ctx, id, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment")
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

func (s *service) Delete(ctx context.Context, id uuid.UUID) (*DeleteResult, error) {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := s.load(ctx, repo, id); err != nil {
			return err
		}
		if err := repo.Delete(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete payment")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &DeleteResult{ID: id, Message: "payment deleted"}, nil
}

func (s *service) load(ctx context.Context, repo Repository, id uuid.UUID) (*models.Payment, error) {
	payment, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}
	return payment, nil
}

func (s *service) loadContract(ctx context.Context, repo Repository, id uuid.UUID) (*models.Contract, error) {
	contract, err := repo.FindContract(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "contract not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load contract")
	}
	return contract, nil
}

func validatePayment(p *models.Payment) error {
	details := map[string]any{}
	if p.ContractID == uuid.Nil {
		details["contract_id"] = "required"
	}
	if !p.Method.IsValid() {
		details["method"] = "must be one of card, bank_transfer, paypal, stripe, klarna"
	}
	if !p.Status.IsValid() {
		details["status"] = "must be one of paid, open, cancelled, partial, refunded"
	}
	if p.Amount.IsNegative() {
		details["amount"] = "must not be negative"
	} else if !types.FitsMoneyScale(p.Amount) {
		details["amount"] = "must have at most 2 decimal places"
	}
	if p.PaymentDate.IsZero() {
		details["payment_date"] = "required"
	}
	if len(details) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid payment").WithDetails(details)
	}
	return nil
}

func checkDate(p *models.Payment, contract *models.Contract) error {
	if p.PaymentDate.Before(contract.StartDate) {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment_date must not be before the contract start date").
			WithDetails(map[string]any{
				"payment_date":        types.NewDate(p.PaymentDate),
				"contract_start_date": types.NewDate(contract.StartDate),
			})
	}
	return nil
}
