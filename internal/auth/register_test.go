package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/carrental-backend/internal/users"
	"github.com/angelmondragon/carrental-backend/pkg/config"
	"github.com/angelmondragon/carrental-backend/pkg/db/dbtest"
	"github.com/angelmondragon/carrental-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/carrental-backend/pkg/errors"
	"github.com/angelmondragon/carrental-backend/pkg/security"
)

func newRegisterParams(t *testing.T) (RegisterServiceParams, *users.Repository) {
	t.Helper()
	client := dbtest.Client(t)
	repo := users.NewRepository(client.DB())
	return RegisterServiceParams{DB: client, Users: repo, PasswordConfig: config.PasswordConfig{}}, repo
}

func TestRegisterCreatesCustomer(t *testing.T) {
	params, repo := newRegisterParams(t)
	svc, err := NewRegisterService(params)
	require.NoError(t, err)

	user, err := svc.Register(context.Background(), RegisterRequest{Email: " New@Example.com", Password: "Str0ng!pass"})
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", user.Email)
	assert.Equal(t, enums.RoleCustomer, user.Role)

	stored, err := repo.FindByEmail(context.Background(), "new@example.com")
	require.NoError(t, err)
	ok, err := security.VerifyPassword("Str0ng!pass", stored.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRegisterDuplicateEmailConflicts(t *testing.T) {
	params, _ := newRegisterParams(t)
	svc, err := NewRegisterService(params)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = svc.Register(ctx, RegisterRequest{Email: "dup@example.com", Password: "Str0ng!pass"})
	require.NoError(t, err)
	_, err = svc.Register(ctx, RegisterRequest{Email: "DUP@example.com", Password: "Str0ng!pass"})
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.CodeOf(err))
}

func TestRegisterEnforcesPasswordPolicy(t *testing.T) {
	params, _ := newRegisterParams(t)
	svc, err := NewRegisterService(params)
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), RegisterRequest{Email: "weak@example.com", Password: "weakpass"})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	details := typed.Details().(map[string]any)
	violations := details["password"].([]string)
	assert.Contains(t, violations, security.ErrPasswordNoUpper.Error())
	assert.Contains(t, violations, security.ErrPasswordNoDigit.Error())
	assert.Contains(t, violations, security.ErrPasswordNoSpecial.Error())
}

func TestAdminRegisterAssignsRole(t *testing.T) {
	params, _ := newRegisterParams(t)
	svc, err := NewAdminRegisterService(params)
	require.NoError(t, err)
	ctx := context.Background()

	user, err := svc.Register(ctx, AdminRegisterRequest{Email: "owner@example.com", Password: "Own3r!pass", Role: enums.RoleOwner})
	require.NoError(t, err)
	assert.Equal(t, enums.RoleOwner, user.Role)

	_, err = svc.Register(ctx, AdminRegisterRequest{Email: "guest@example.com", Password: "Gu3st!pass", Role: enums.RoleGuest})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))

	_, err = svc.Register(ctx, AdminRegisterRequest{Email: "x@example.com", Password: "Gu3st!pass", Role: "admin"})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestNewRegisterServiceRequiresDependencies(t *testing.T) {
	_, err := NewRegisterService(RegisterServiceParams{})
	assert.Error(t, err)
	_, err = NewAdminRegisterService(RegisterServiceParams{})
	assert.Error(t, err)
}
