package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/angelmondragon/carrental-backend/internal/users"
	"github.com/angelmondragon/carrental-backend/pkg/config"
	"github.com/angelmondragon/carrental-backend/pkg/db"
	"github.com/angelmondragon/carrental-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/carrental-backend/pkg/errors"
	"github.com/angelmondragon/carrental-backend/pkg/security"
	"gorm.io/gorm"
)

// RegisterService handles self-service signup.
type RegisterService interface {
	Register(ctx context.Context, req RegisterRequest) (*users.UserDTO, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// RegisterServiceParams packages the dependencies for the registration flow.
type RegisterServiceParams struct {
	DB             txRunner
	Users          *users.Repository
	PasswordConfig config.PasswordConfig
}

type registerService struct {
	db          txRunner
	users       *users.Repository
	passwordCfg config.PasswordConfig
}

// NewRegisterService builds a registration service with the provided dependencies.
func NewRegisterService(params RegisterServiceParams) (RegisterService, error) {
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "database client required")
	}
	if params.Users == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "user repository required")
	}
	return &registerService{
		db:          params.DB,
		users:       params.Users,
		passwordCfg: params.PasswordConfig,
	}, nil
}

func (s *registerService) Register(ctx context.Context, req RegisterRequest) (*users.UserDTO, error) {
	return createUser(ctx, s.db, s.users, s.passwordCfg, req.Email, req.Password, enums.RoleCustomer)
}

// createUser enforces the password policy and email uniqueness, then persists the user.
func createUser(ctx context.Context, runner txRunner, repo *users.Repository, cfg config.PasswordConfig, rawEmail, password string, role enums.Role) (*users.UserDTO, error) {
	email := users.NormalizeEmail(rawEmail)
	if email == "" || !strings.Contains(email, "@") {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "a valid email is required")
	}
	if !role.IsValid() || role == enums.RoleGuest {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid role")
	}
	if err := security.ValidatePasswordPolicy(password); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "password does not meet requirements").
			WithDetails(map[string]any{"password": security.PolicyViolations(err)})
	}

	passwordHash, err := security.HashPassword(password, cfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	var created *users.UserDTO
	err = runner.WithTx(ctx, func(tx *gorm.DB) error {
		userRepo := repo.WithTx(tx)

		if _, err := userRepo.FindByEmail(ctx, email); err == nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check user email")
		}

		user, err := userRepo.Create(ctx, users.CreateUserDTO{
			Email:        email,
			PasswordHash: passwordHash,
			Role:         role,
		})
		if err != nil {
			if db.IsUniqueViolation(err, users.UniqueEmailConstraint) {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "email already registered")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
		}
		created = users.FromModel(user)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}
