package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/carrental-backend/api/middleware"
	"github.com/angelmondragon/carrental-backend/internal/auth"
	"github.com/angelmondragon/carrental-backend/internal/policy"
	"github.com/angelmondragon/carrental-backend/internal/users"
	"github.com/angelmondragon/carrental-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/carrental-backend/pkg/errors"
)

type stubAuthService struct {
	login *auth.LoginResponse
	pair  *auth.TokenPair
	user  *users.UserDTO
	err   error

	gotRefresh auth.RefreshRequest
	gotLogout  string
	gotMe      uuid.UUID
}

func (s *stubAuthService) Login(ctx context.Context, req auth.LoginRequest) (*auth.LoginResponse, error) {
	return s.login, s.err
}

func (s *stubAuthService) Refresh(ctx context.Context, req auth.RefreshRequest) (*auth.TokenPair, error) {
	s.gotRefresh = req
	return s.pair, s.err
}

func (s *stubAuthService) Logout(ctx context.Context, accessToken string) error {
	s.gotLogout = accessToken
	return s.err
}

func (s *stubAuthService) Me(ctx context.Context, userID uuid.UUID) (*users.UserDTO, error) {
	s.gotMe = userID
	return s.user, s.err
}

type stubRegisterService struct {
	user *users.UserDTO
	err  error
}

func (s stubRegisterService) Register(ctx context.Context, req auth.RegisterRequest) (*users.UserDTO, error) {
	return s.user, s.err
}

type stubAdminRegisterService struct {
	got auth.AdminRegisterRequest
}

func (s *stubAdminRegisterService) Register(ctx context.Context, req auth.AdminRegisterRequest) (*users.UserDTO, error) {
	s.got = req
	return &users.UserDTO{ID: uuid.New(), Email: req.Email, Role: req.Role}, nil
}

func TestAuthLoginSuccess(t *testing.T) {
	svc := &stubAuthService{login: &auth.LoginResponse{
		TokenPair: auth.TokenPair{AccessToken: "access", RefreshToken: "refresh", TokenType: "Bearer", ExpiresIn: 1800},
		User:      &users.UserDTO{ID: uuid.New(), Email: "owner@example.com", Role: enums.RoleOwner},
	}}
	handler := AuthLogin(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/public/login", strings.NewReader(`{"email":"owner@example.com","password":"Secret#123"}`))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var envelope struct {
		Data auth.LoginResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
	assert.Equal(t, "access", envelope.Data.AccessToken)
	assert.Equal(t, 1800, envelope.Data.ExpiresIn)
	assert.Equal(t, enums.RoleOwner, envelope.Data.User.Role)
}

func TestAuthLoginInvalidCredentials(t *testing.T) {
	svc := &stubAuthService{err: pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")}
	handler := AuthLogin(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/public/login", strings.NewReader(`{"email":"owner@example.com","password":"wrong"}`))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid credentials", decodeError(t, rec).Message)
}

func TestAuthRegisterDuplicateEmail(t *testing.T) {
	handler := AuthRegister(stubRegisterService{err: pkgerrors.New(pkgerrors.CodeConflict, "email already registered")}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/public/register", strings.NewReader(`{"email":"a@example.com","password":"Secret#123"}`))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAuthRegisterCreated(t *testing.T) {
	user := &users.UserDTO{ID: uuid.New(), Email: "a@example.com", Role: enums.RoleCustomer}
	handler := AuthRegister(stubRegisterService{user: user}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/public/register", strings.NewReader(`{"email":"a@example.com","password":"Secret#123"}`))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"role":"customer"`)
}

func TestAdminAuthRegisterPassesRole(t *testing.T) {
	svc := &stubAdminRegisterService{}
	handler := AdminAuthRegister(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/auth/register", strings.NewReader(`{"email":"v@example.com","password":"Secret#123","role":"viewer"}`))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, enums.RoleViewer, svc.got.Role)
}

func TestAuthRefreshUsesBearerToken(t *testing.T) {
	svc := &stubAuthService{pair: &auth.TokenPair{AccessToken: "new-access", RefreshToken: "new-refresh"}}
	handler := AuthRefresh(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", strings.NewReader(`{"refresh_token":"old-refresh"}`))
	req.Header.Set("Authorization", "Bearer old-access")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "old-access", svc.gotRefresh.AccessToken)
	assert.Equal(t, "old-refresh", svc.gotRefresh.RefreshToken)
}

func TestAuthRefreshRequiresBearerToken(t *testing.T) {
	svc := &stubAuthService{}
	handler := AuthRefresh(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", strings.NewReader(`{"refresh_token":"old-refresh"}`))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, svc.gotRefresh.RefreshToken)
}

func TestAuthLogout(t *testing.T) {
	svc := &stubAuthService{}
	handler := AuthLogout(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer the-token")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "the-token", svc.gotLogout)
}

func TestAuthMe(t *testing.T) {
	t.Run("guest is unauthorized", func(t *testing.T) {
		svc := &stubAuthService{}
		req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
		req = req.WithContext(middleware.WithPrincipal(req.Context(), policy.Guest()))
		rec := httptest.NewRecorder()

		AuthMe(svc, nil).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, uuid.Nil, svc.gotMe)
	})

	t.Run("user profile", func(t *testing.T) {
		userID := uuid.New()
		svc := &stubAuthService{user: &users.UserDTO{ID: userID, Email: "o@example.com", Role: enums.RoleOwner}}
		req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
		req = req.WithContext(middleware.WithPrincipal(req.Context(), policy.Principal{UserID: userID, Role: enums.RoleOwner}))
		rec := httptest.NewRecorder()

		AuthMe(svc, nil).ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, userID, svc.gotMe)
	})
}
