package handler

import (
	"context"
	"encoding/json"
	"time"

	"account-service/internal/models"
	"account-service/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type mockAuthService struct {
	mock.Mock
}

var _ service.AuthService = (*mockAuthService)(nil)

func (m *mockAuthService) AuthenticateLocal(ctx context.Context, email, password string) (*models.User, error) {
	args := m.Called(ctx, email, password)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *mockAuthService) AuthenticateBearer(ctx context.Context, token string, typ models.TokenType) (*models.Principal, error) {
	args := m.Called(ctx, token, typ)
	p, _ := args.Get(0).(*models.Principal)
	return p, args.Error(1)
}

func (m *mockAuthService) Login(ctx context.Context, in service.LoginInput) (*models.AuthResult, error) {
	args := m.Called(ctx, in)
	r, _ := args.Get(0).(*models.AuthResult)
	return r, args.Error(1)
}

func (m *mockAuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	args := m.Called(ctx, refreshToken)
	return args.String(0), args.Error(1)
}

func (m *mockAuthService) Logout(ctx context.Context, refreshToken string) error {
	return m.Called(ctx, refreshToken).Error(0)
}

func (m *mockAuthService) Register(ctx context.Context, in service.RegisterInput) (*models.AuthResult, error) {
	args := m.Called(ctx, in)
	r, _ := args.Get(0).(*models.AuthResult)
	return r, args.Error(1)
}

func (m *mockAuthService) VerifyAccount(ctx context.Context, principal *models.Principal) (map[string]any, error) {
	args := m.Called(ctx, principal)
	v, _ := args.Get(0).(map[string]any)
	return v, args.Error(1)
}

func (m *mockAuthService) SendVerificationEmail(ctx context.Context, principal *models.Principal) error {
	return m.Called(ctx, principal).Error(0)
}

func (m *mockAuthService) SendChangePasswordEmail(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

func (m *mockAuthService) SendPhoneCode(ctx context.Context, principal *models.Principal, phone string) error {
	return m.Called(ctx, principal, phone).Error(0)
}

func (m *mockAuthService) RefreshTokenTTL() time.Duration {
	return 60 * 24 * time.Hour
}

type mockUserService struct {
	mock.Mock
}

var _ service.UserService = (*mockUserService)(nil)

func (m *mockUserService) GetMe(ctx context.Context, principal *models.Principal, client service.ClientInfo) (map[string]any, error) {
	args := m.Called(ctx, principal, client)
	v, _ := args.Get(0).(map[string]any)
	return v, args.Error(1)
}

func (m *mockUserService) GetUser(ctx context.Context, principal *models.Principal, id uuid.UUID, client service.ClientInfo) (map[string]any, error) {
	args := m.Called(ctx, principal, id, client)
	v, _ := args.Get(0).(map[string]any)
	return v, args.Error(1)
}

func (m *mockUserService) GetByUsername(ctx context.Context, username string) (map[string]any, error) {
	args := m.Called(ctx, username)
	v, _ := args.Get(0).(map[string]any)
	return v, args.Error(1)
}

func (m *mockUserService) UpdateProfile(ctx context.Context, principal *models.Principal, id uuid.UUID, attrs map[string]json.RawMessage) (map[string]any, error) {
	args := m.Called(ctx, principal, id, attrs)
	v, _ := args.Get(0).(map[string]any)
	return v, args.Error(1)
}

func (m *mockUserService) UpdateUsername(ctx context.Context, principal *models.Principal, id uuid.UUID, username string) (map[string]any, error) {
	args := m.Called(ctx, principal, id, username)
	v, _ := args.Get(0).(map[string]any)
	return v, args.Error(1)
}

func (m *mockUserService) ChangePassword(ctx context.Context, principal *models.Principal, id uuid.UUID, password, confirmation string) error {
	return m.Called(ctx, principal, id, password, confirmation).Error(0)
}

func (m *mockUserService) UpdatePhone(ctx context.Context, principal *models.Principal, id uuid.UUID, phone, code string) (map[string]any, error) {
	args := m.Called(ctx, principal, id, phone, code)
	v, _ := args.Get(0).(map[string]any)
	return v, args.Error(1)
}

func (m *mockUserService) ToggleFavor(ctx context.Context, principal *models.Principal, id uuid.UUID, businessID string) ([]string, error) {
	args := m.Called(ctx, principal, id, businessID)
	v, _ := args.Get(0).([]string)
	return v, args.Error(1)
}

func (m *mockUserService) ListUsers(ctx context.Context, principal *models.Principal, filter models.UserFilter, skip, limit int) (*service.UserList, error) {
	args := m.Called(ctx, principal, filter, skip, limit)
	v, _ := args.Get(0).(*service.UserList)
	return v, args.Error(1)
}

func (m *mockUserService) EditUser(ctx context.Context, principal *models.Principal, id uuid.UUID, attrs map[string]json.RawMessage) error {
	return m.Called(ctx, principal, id, attrs).Error(0)
}
