package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/carrental-backend/internal/users"
	pkgAuth "github.com/angelmondragon/carrental-backend/pkg/auth"
	"github.com/angelmondragon/carrental-backend/pkg/auth/session"
	"github.com/angelmondragon/carrental-backend/pkg/config"
	"github.com/angelmondragon/carrental-backend/pkg/db/dbtest"
	"github.com/angelmondragon/carrental-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/carrental-backend/pkg/errors"
	"github.com/angelmondragon/carrental-backend/pkg/security"
)

type stubSessions struct {
	sessions map[string]session.Issued
	owners   map[string]uuid.UUID
	revoked  []string
}

func newStubSessions() *stubSessions {
	return &stubSessions{sessions: map[string]session.Issued{}, owners: map[string]uuid.UUID{}}
}

func (s *stubSessions) Generate(ctx context.Context, userID uuid.UUID) (session.Issued, error) {
	issued := session.Issued{AccessID: uuid.NewString(), RefreshToken: uuid.NewString()}
	s.sessions[issued.AccessID] = issued
	s.owners[issued.AccessID] = userID
	return issued, nil
}

func (s *stubSessions) Rotate(ctx context.Context, userID uuid.UUID, oldAccessID, provided string) (session.Issued, error) {
	current, ok := s.sessions[oldAccessID]
	if !ok || current.RefreshToken != provided || s.owners[oldAccessID] != userID {
		return session.Issued{}, session.ErrInvalidRefreshToken
	}
	delete(s.sessions, oldAccessID)
	return s.Generate(ctx, userID)
}

func (s *stubSessions) Revoke(ctx context.Context, accessID string) error {
	delete(s.sessions, accessID)
	s.revoked = append(s.revoked, accessID)
	return nil
}

var testJWT = config.JWTConfig{Secret: "secret", Issuer: "carrental", ExpirationMinutes: 30}

func newLoginService(t *testing.T, role enums.Role, active bool) (Service, *stubSessions, *users.Repository, string) {
	t.Helper()
	client := dbtest.Client(t)
	repo := users.NewRepository(client.DB())
	hash, err := security.HashPassword("Passw0rd!", config.PasswordConfig{})
	require.NoError(t, err)
	user, err := repo.Create(context.Background(), users.CreateUserDTO{Email: "user@example.com", PasswordHash: hash, Role: role})
	require.NoError(t, err)
	if !active {
		require.NoError(t, client.DB().Model(user).Update("is_active", false).Error)
	}

	sessions := newStubSessions()
	svc, err := NewService(ServiceParams{
		UserRepo:       repo,
		SessionManager: sessions,
		JWTConfig:      testJWT,
		Now:            func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)
	return svc, sessions, repo, user.Email
}

func TestLoginIssuesTokens(t *testing.T) {
	svc, sessions, repo, email := newLoginService(t, enums.RoleEditor, true)

	resp, err := svc.Login(context.Background(), LoginRequest{Email: "USER@example.com", Password: "Passw0rd!"})
	require.NoError(t, err)
	assert.Equal(t, "bearer", resp.TokenType)
	assert.Equal(t, 1800, resp.ExpiresIn)
	assert.NotEmpty(t, resp.RefreshToken)

	claims, err := pkgAuth.ParseAccessToken(testJWT, resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, enums.RoleEditor, claims.Role)
	assert.Contains(t, sessions.sessions, claims.ID)

	stored, err := repo.FindByEmail(context.Background(), email)
	require.NoError(t, err)
	assert.NotNil(t, stored.LastLoginAt)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, _, _, _ := newLoginService(t, enums.RoleCustomer, true)
	ctx := context.Background()

	_, err := svc.Login(ctx, LoginRequest{Email: "user@example.com", Password: "wrong"})
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.CodeOf(err))

	_, err = svc.Login(ctx, LoginRequest{Email: "nobody@example.com", Password: "Passw0rd!"})
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.CodeOf(err))
}

func TestLoginRejectsInactiveUser(t *testing.T) {
	svc, _, _, _ := newLoginService(t, enums.RoleCustomer, false)
	_, err := svc.Login(context.Background(), LoginRequest{Email: "user@example.com", Password: "Passw0rd!"})
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.CodeOf(err))
}

func TestRefreshRotatesSession(t *testing.T) {
	svc, sessions, _, _ := newLoginService(t, enums.RoleOwner, true)
	ctx := context.Background()

	login, err := svc.Login(ctx, LoginRequest{Email: "user@example.com", Password: "Passw0rd!"})
	require.NoError(t, err)

	pair, err := svc.Refresh(ctx, RefreshRequest{AccessToken: login.AccessToken, RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, pair.RefreshToken)

	claims, err := pkgAuth.ParseAccessToken(testJWT, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, enums.RoleOwner, claims.Role)
	assert.Len(t, sessions.sessions, 1)

	_, err = svc.Refresh(ctx, RefreshRequest{AccessToken: login.AccessToken, RefreshToken: login.RefreshToken})
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.CodeOf(err))

	_, err = svc.Refresh(ctx, RefreshRequest{AccessToken: "garbage", RefreshToken: pair.RefreshToken})
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.CodeOf(err))
}

func TestLogoutRevokesSessionAndMe(t *testing.T) {
	svc, sessions, _, _ := newLoginService(t, enums.RoleViewer, true)
	ctx := context.Background()

	login, err := svc.Login(ctx, LoginRequest{Email: "user@example.com", Password: "Passw0rd!"})
	require.NoError(t, err)

	me, err := svc.Me(ctx, login.User.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.RoleViewer, me.Role)

	require.NoError(t, svc.Logout(ctx, login.AccessToken))
	assert.Len(t, sessions.revoked, 1)
	assert.Empty(t, sessions.sessions)

	_, err = svc.Me(ctx, uuid.New())
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}
