package customers

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/carrental-backend/internal/cars"
	"github.com/angelmondragon/carrental-backend/pkg/db/dbtest"
	"github.com/angelmondragon/carrental-backend/pkg/db/models"
	"github.com/angelmondragon/carrental-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/carrental-backend/pkg/errors"
	"github.com/angelmondragon/carrental-backend/pkg/types"
)

var fixedNow = time.Date(2025, 8, 17, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	client := dbtest.Client(t)
	svc, err := NewService(ServiceParams{
		Repository: NewRepository(client.DB()),
		Cars:       cars.NewRepository(client.DB()),
		TxRunner:   client,
		Now:        func() time.Time { return fixedNow },
	})
	require.NoError(t, err)
	return svc, client.DB()
}

func mustDate(t *testing.T, value string) types.Date {
	t.Helper()
	d, err := types.ParseDate(value)
	require.NoError(t, err)
	return d
}

func validInput(t *testing.T, email string) CreateCustomerInput {
	return CreateCustomerInput{
		FirstName: "Anna",
		LastName:  "Schmidt",
		BirthDate: mustDate(t, "1990-04-12"),
		Phone:     "+49 30 123456",
		Email:     email,
	}
}

func TestServiceCreateNormalisesEmail(t *testing.T) {
	svc, _ := newTestService(t)

	customer, err := svc.Create(context.Background(), validInput(t, "  Anna@Example.COM "))
	require.NoError(t, err)
	assert.Equal(t, "anna@example.com", customer.Email)
	assert.Equal(t, 1990, customer.BirthDate.Year())
}

func TestServiceCreateDuplicateEmailConflicts(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, validInput(t, "anna@example.com"))
	require.NoError(t, err)
	_, err = svc.Create(ctx, validInput(t, "ANNA@example.com"))
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.CodeOf(err))
}

func TestServiceCreateRejectsFutureBirthDate(t *testing.T) {
	svc, _ := newTestService(t)

	input := validInput(t, "anna@example.com")
	input.BirthDate = mustDate(t, "2030-01-01")
	_, err := svc.Create(context.Background(), input)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	assert.Contains(t, typed.Details().(map[string]any), "birth_date")
}

func TestServiceUpdatePartial(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, validInput(t, "anna@example.com"))
	require.NoError(t, err)

	phone := "+49 40 999"
	updated, err := svc.Update(ctx, created.ID, UpdateCustomerInput{Phone: &phone})
	require.NoError(t, err)
	assert.Equal(t, phone, updated.Phone)
	assert.Equal(t, "Anna", updated.FirstName)

	_, err = svc.Update(ctx, uuid.New(), UpdateCustomerInput{Phone: &phone})
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}

func TestServiceUpdateEmailConflict(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, validInput(t, "anna@example.com"))
	require.NoError(t, err)
	other, err := svc.Create(ctx, validInput(t, "ben@example.com"))
	require.NoError(t, err)

	email := "anna@example.com"
	_, err = svc.Update(ctx, other.ID, UpdateCustomerInput{Email: &email})
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.CodeOf(err))
}

func TestServiceListPaginates(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		_, err := svc.Create(ctx, validInput(t, email))
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond)
	}

	first, err := svc.List(ctx, ListInput{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Items, 2)
	assert.Equal(t, "c@example.com", first.Items[0].Email)
	require.NotEmpty(t, first.NextCursor)

	second, err := svc.List(ctx, ListInput{Limit: 2, Cursor: first.NextCursor})
	require.NoError(t, err)
	require.Len(t, second.Items, 1)
	assert.Equal(t, "a@example.com", second.Items[0].Email)
	assert.Empty(t, second.NextCursor)

	filtered, err := svc.List(ctx, ListInput{Filters: ListFilters{Email: "B@example.com"}})
	require.NoError(t, err)
	require.Len(t, filtered.Items, 1)
}

func TestServiceDeleteCascadesAndReleasesCars(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	customer, err := svc.Create(ctx, validInput(t, "anna@example.com"))
	require.NoError(t, err)

	reserved := &models.Car{Brand: "VW", Model: "Golf", Year: 2021, PricePerHour: decimal.NewFromInt(10), Status: enums.CarStatusReserved}
	returned := &models.Car{Brand: "VW", Model: "Polo", Year: 2020, PricePerHour: decimal.NewFromInt(8), Status: enums.CarStatusAvailable}
	require.NoError(t, conn.Create(reserved).Error)
	require.NoError(t, conn.Create(returned).Error)

	start := time.Date(2025, 8, 20, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 3)
	active := &models.Contract{CarID: reserved.ID, CustomerID: customer.ID, Status: enums.ContractStatusActive, StartDate: start, EndDate: &end}
	ended := &models.Contract{CarID: returned.ID, CustomerID: customer.ID, Status: enums.ContractStatusEnded, StartDate: start.AddDate(0, -1, 0), EndDate: &start}
	require.NoError(t, conn.Create(active).Error)
	require.NoError(t, conn.Create(ended).Error)
	require.NoError(t, conn.Create(&models.Payment{
		ContractID: active.ID, Method: enums.PaymentMethodCard, PaymentDate: start,
		Status: enums.PaymentStatusPaid, Amount: decimal.NewFromInt(100),
	}).Error)

	result, err := svc.Delete(ctx, customer.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.RemovedContracts)
	assert.Equal(t, 1, result.ReleasedCars)

	var contracts, payments int64
	require.NoError(t, conn.Model(&models.Contract{}).Count(&contracts).Error)
	require.NoError(t, conn.Model(&models.Payment{}).Count(&payments).Error)
	assert.Zero(t, contracts)
	assert.Zero(t, payments)

	var car models.Car
	require.NoError(t, conn.First(&car, "id = ?", reserved.ID).Error)
	assert.Equal(t, enums.CarStatusAvailable, car.Status)

	_, err = svc.Get(ctx, customer.ID)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}

func TestServiceDeleteKeepsCarHeldByAnotherCustomer(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	leaving, err := svc.Create(ctx, validInput(t, "leaving@example.com"))
	require.NoError(t, err)
	staying, err := svc.Create(ctx, validInput(t, "staying@example.com"))
	require.NoError(t, err)

	car := &models.Car{Brand: "BMW", Model: "X5", Year: 2019, PricePerHour: decimal.NewFromInt(40), Status: enums.CarStatusReserved}
	require.NoError(t, conn.Create(car).Error)

	// expired but not swept yet
	oldStart := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	oldEnd := time.Date(2025, 8, 5, 0, 0, 0, 0, time.UTC)
	require.NoError(t, conn.Create(&models.Contract{
		CarID: car.ID, CustomerID: leaving.ID, Status: enums.ContractStatusActive, StartDate: oldStart, EndDate: &oldEnd,
	}).Error)

	nextStart := time.Date(2025, 9, 20, 0, 0, 0, 0, time.UTC)
	nextEnd := time.Date(2025, 9, 25, 0, 0, 0, 0, time.UTC)
	require.NoError(t, conn.Create(&models.Contract{
		CarID: car.ID, CustomerID: staying.ID, Status: enums.ContractStatusActive, StartDate: nextStart, EndDate: &nextEnd,
	}).Error)

	shared := &models.Car{Brand: "Audi", Model: "A4", Year: 2022, PricePerHour: decimal.NewFromInt(30), Status: enums.CarStatusReserved}
	require.NoError(t, conn.Create(shared).Error)
	for _, holder := range []uuid.UUID{leaving.ID, staying.ID} {
		require.NoError(t, conn.Create(&models.Contract{
			CarID: shared.ID, CustomerID: holder, Status: enums.ContractStatusActive, StartDate: nextStart, EndDate: &nextEnd,
		}).Error)
	}

	result, err := svc.Delete(ctx, leaving.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.RemovedContracts)
	assert.Zero(t, result.ReleasedCars)

	for _, id := range []uuid.UUID{car.ID, shared.ID} {
		var reloaded models.Car
		require.NoError(t, conn.First(&reloaded, "id = ?", id).Error)
		assert.Equal(t, enums.CarStatusReserved, reloaded.Status)
	}
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{})
	assert.Error(t, err)
}
