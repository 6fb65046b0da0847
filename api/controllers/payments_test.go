package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/carrental-backend/internal/payments"
	"github.com/angelmondragon/carrental-backend/internal/policy"
	"github.com/angelmondragon/carrental-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/carrental-backend/pkg/errors"
	"github.com/angelmondragon/carrental-backend/pkg/types"
)

type stubPaymentService struct {
	payment *payments.PaymentDTO
	err     error

	gotActor  policy.Principal
	gotCreate payments.CreatePaymentInput
	gotList   payments.ListInput
}

func (s *stubPaymentService) Create(ctx context.Context, actor policy.Principal, input payments.CreatePaymentInput) (*payments.PaymentDTO, error) {
	s.gotActor = actor
	s.gotCreate = input
	return s.payment, s.err
}

func (s *stubPaymentService) Get(ctx context.Context, id uuid.UUID) (*payments.PaymentDTO, error) {
	return s.payment, s.err
}

func (s *stubPaymentService) List(ctx context.Context, input payments.ListInput) (*types.ListResult[payments.PaymentDTO], error) {
	s.gotList = input
	return &types.ListResult[payments.PaymentDTO]{Items: []payments.PaymentDTO{}}, s.err
}

func (s *stubPaymentService) Update(ctx context.Context, id uuid.UUID, input payments.UpdatePaymentInput) (*payments.PaymentDTO, error) {
	return s.payment, s.err
}

func (s *stubPaymentService) Delete(ctx context.Context, id uuid.UUID) (*payments.DeleteResult, error) {
	return &payments.DeleteResult{ID: id, Message: "payment deleted"}, s.err
}

func TestPaymentCreate(t *testing.T) {
	contractID := uuid.New()
	svc := &stubPaymentService{payment: &payments.PaymentDTO{ID: uuid.New(), ContractID: contractID}}
	handler := PaymentCreate(svc, nil)

	body := `{"contract_id":"` + contractID.String() + `","method":"card","payment_date":"2026-10-16","status":"paid","amount":"99.90"}`
	req := withPrincipal(httptest.NewRequest(http.MethodPost, "/api/v1/payments", strings.NewReader(body)), enums.RoleCustomer)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, contractID, svc.gotCreate.ContractID)
	assert.Equal(t, enums.PaymentMethodCard, svc.gotCreate.Method)
	assert.Equal(t, enums.RoleCustomer, svc.gotActor.Role)
}

func TestPaymentCreateMissingContract(t *testing.T) {
	svc := &stubPaymentService{err: pkgerrors.New(pkgerrors.CodeNotFound, "contract not found")}
	handler := PaymentCreate(svc, nil)

	body := `{"contract_id":"` + uuid.NewString() + `","method":"card","payment_date":"2026-10-16","status":"paid","amount":"10"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments", strings.NewReader(body))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPaymentListFiltersByContract(t *testing.T) {
	contractID := uuid.New()
	svc := &stubPaymentService{}
	handler := PaymentList(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/payments?contract_id="+contractID.String()+"&status=open", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.gotList.Filters.ContractID)
	assert.Equal(t, contractID, *svc.gotList.Filters.ContractID)
	require.NotNil(t, svc.gotList.Filters.Status)
	assert.Equal(t, enums.PaymentStatusOpen, *svc.gotList.Filters.Status)
}
