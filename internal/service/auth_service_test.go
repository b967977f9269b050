package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/patil-rushikesh/FDW-backend/internal/models"
	appErrors "github.com/patil-rushikesh/FDW-backend/pkg/errors"
)

type mockAuthRepo struct {
	user             *models.User
	findErr          error
	auditLogs        []*models.AuditLog
	lastLoginUpdated bool
}

func (m *mockAuthRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	if m.user == nil || m.user.ID != id {
		return nil, sql.ErrNoRows
	}
	return m.user, nil
}

func (m *mockAuthRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	m.lastLoginUpdated = true
	return nil
}

func (m *mockAuthRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.auditLogs = append(m.auditLogs, log)
	return nil
}

func newAuthService(t *testing.T, repo *mockAuthRepo) *AuthService {
	t.Helper()
	return NewAuthService(repo, validator.New(), zap.NewNop(), AuthConfig{
		AccessTokenSecret: "secret",
		AccessTokenExpiry: time.Hour,
		Issuer:            "fdw-test",
	})
}

func hashed(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestLoginIssuesTokenWithDepartmentClaims(t *testing.T) {
	repo := &mockAuthRepo{user: &models.User{
		ID:           "FAC01",
		Name:         "Asha Rao",
		Department:   models.DepartmentComputer,
		Designation:  "HOD",
		Role:         models.RoleHOD,
		Active:       true,
		PasswordHash: hashed(t, "s3cret"),
	}}
	svc := newAuthService(t, repo)

	resp, err := svc.Login(context.Background(), models.LoginRequest{UserID: "FAC01", Password: "s3cret"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, int64(3600), resp.ExpiresIn)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.True(t, repo.lastLoginUpdated)
	require.Len(t, repo.auditLogs, 1)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "FAC01", claims.UserID)
	assert.Equal(t, models.RoleHOD, claims.Role)
	assert.Equal(t, models.DepartmentComputer, claims.Department)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	repo := &mockAuthRepo{user: &models.User{ID: "FAC01", Active: true, PasswordHash: hashed(t, "s3cret")}}
	svc := newAuthService(t, repo)

	_, err := svc.Login(context.Background(), models.LoginRequest{UserID: "FAC01", Password: "wrong"})
	require.True(t, errors.Is(err, appErrors.ErrInvalidCredentials))
	require.Len(t, repo.auditLogs, 1)
	assert.Equal(t, models.AuditActionLoginFailed, repo.auditLogs[0].Action)

	_, err = svc.Login(context.Background(), models.LoginRequest{UserID: "nobody", Password: "s3cret"})
	require.True(t, errors.Is(err, appErrors.ErrInvalidCredentials))

	_, err = svc.Login(context.Background(), models.LoginRequest{UserID: "FAC01"})
	require.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestLoginRejectsInactiveAccount(t *testing.T) {
	repo := &mockAuthRepo{user: &models.User{ID: "FAC01", Active: false, PasswordHash: hashed(t, "s3cret")}}
	svc := newAuthService(t, repo)

	_, err := svc.Login(context.Background(), models.LoginRequest{UserID: "FAC01", Password: "s3cret"})
	require.True(t, errors.Is(err, appErrors.ErrInactiveAccount))
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	svc := newAuthService(t, &mockAuthRepo{})
	_, err := svc.ValidateToken("not-a-token")
	require.True(t, errors.Is(err, appErrors.ErrUnauthorized))
}

func TestValidateTokenRejectsExpiredAndForeignTokens(t *testing.T) {
	repo := &mockAuthRepo{user: &models.User{ID: "FAC01", Role: models.RoleFaculty, Active: true, PasswordHash: hashed(t, "s3cret")}}
	svc := newAuthService(t, repo)
	svc.now = func() time.Time { return time.Now().UTC().Add(-2 * time.Hour) }

	resp, err := svc.Login(context.Background(), models.LoginRequest{UserID: "FAC01", Password: "s3cret"})
	require.NoError(t, err)
	_, err = svc.ValidateToken(resp.AccessToken)
	require.True(t, errors.Is(err, appErrors.ErrUnauthorized))

	other := NewAuthService(repo, nil, nil, AuthConfig{AccessTokenSecret: "secret", AccessTokenExpiry: time.Hour, Issuer: "someone-else"})
	resp, err = other.Login(context.Background(), models.LoginRequest{UserID: "FAC01", Password: "s3cret"})
	require.NoError(t, err)
	_, err = svc.ValidateToken(resp.AccessToken)
	require.True(t, errors.Is(err, appErrors.ErrUnauthorized))
}
