package auth

import (
	"context"

	"github.com/angelmondragon/carrental-backend/internal/users"
	"github.com/angelmondragon/carrental-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/carrental-backend/pkg/errors"
)

// AdminRegisterService creates users with an explicit role. Routed only outside production.
type AdminRegisterService interface {
	Register(ctx context.Context, req AdminRegisterRequest) (*users.UserDTO, error)
}

type adminRegisterService struct {
	db          txRunner
	users       *users.Repository
	passwordCfg config.PasswordConfig
}

// NewAdminRegisterService builds the bootstrap registration service.
func NewAdminRegisterService(params RegisterServiceParams) (AdminRegisterService, error) {
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "database client required")
	}
	if params.Users == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "user repository required")
	}
	return &adminRegisterService{
		db:          params.DB,
		users:       params.Users,
		passwordCfg: params.PasswordConfig,
	}, nil
}

func (s *adminRegisterService) Register(ctx context.Context, req AdminRegisterRequest) (*users.UserDTO, error) {
	return createUser(ctx, s.db, s.users, s.passwordCfg, req.Email, req.Password, req.Role)
}
