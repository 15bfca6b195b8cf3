package mocks

import (
	"context"

	"account-service/internal/interfaces"
	"account-service/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockUserRepository is a mock type for the UserRepository type
type MockUserRepository struct {
	mock.Mock
}

func (_m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	ret := _m.Called(ctx, user)
	return ret.Error(0)
}

func (_m *MockUserRepository) Update(ctx context.Context, user *models.User) error {
	ret := _m.Called(ctx, user)
	return ret.Error(0)
}

func (_m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	ret := _m.Called(ctx, id)
	return userOrNil(ret.Get(0)), ret.Error(1)
}

func (_m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	ret := _m.Called(ctx, email)
	return userOrNil(ret.Get(0)), ret.Error(1)
}

func (_m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	ret := _m.Called(ctx, username)
	return userOrNil(ret.Get(0)), ret.Error(1)
}

func (_m *MockUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	ret := _m.Called(ctx, email)
	return ret.Bool(0), ret.Error(1)
}

func (_m *MockUserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	ret := _m.Called(ctx, username)
	return ret.Bool(0), ret.Error(1)
}

func (_m *MockUserRepository) List(ctx context.Context, filter models.UserFilter, skip, limit int) ([]models.UserListItem, error) {
	ret := _m.Called(ctx, filter, skip, limit)
	var r0 []models.UserListItem
	if v := ret.Get(0); v != nil {
		r0 = v.([]models.UserListItem)
	}
	return r0, ret.Error(1)
}

func (_m *MockUserRepository) Count(ctx context.Context, filter models.UserFilter) (int64, error) {
	ret := _m.Called(ctx, filter)
	return ret.Get(0).(int64), ret.Error(1)
}

func userOrNil(v any) *models.User {
	if v == nil {
		return nil
	}
	return v.(*models.User)
}

// NewMockUserRepository creates a new instance of MockUserRepository. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockUserRepository(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockUserRepository {
	m := &MockUserRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

var _ interfaces.UserRepository = (*MockUserRepository)(nil)
