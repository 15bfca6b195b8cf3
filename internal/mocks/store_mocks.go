package mocks

import (
	"context"
	"time"

	"account-service/internal/interfaces"
	"account-service/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockRevocationLedger is a mock type for the token.RevocationLedger type
type MockRevocationLedger struct {
	mock.Mock
}

func (_m *MockRevocationLedger) Insert(ctx context.Context, tid string) (models.RevokedToken, error) {
	ret := _m.Called(ctx, tid)
	return ret.Get(0).(models.RevokedToken), ret.Error(1)
}

func (_m *MockRevocationLedger) Exists(ctx context.Context, tid string) (bool, error) {
	ret := _m.Called(ctx, tid)
	return ret.Bool(0), ret.Error(1)
}

// NewMockRevocationLedger creates a new instance of MockRevocationLedger.
func NewMockRevocationLedger(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockRevocationLedger {
	m := &MockRevocationLedger{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// MockPhoneCodeRepository is a mock type for the PhoneCodeRepository type
type MockPhoneCodeRepository struct {
	mock.Mock
}

func (_m *MockPhoneCodeRepository) Save(ctx context.Context, userID uuid.UUID, phone, code string, ttl time.Duration) error {
	return _m.Called(ctx, userID, phone, code, ttl).Error(0)
}

func (_m *MockPhoneCodeRepository) Consume(ctx context.Context, userID uuid.UUID, phone, code string) (bool, error) {
	ret := _m.Called(ctx, userID, phone, code)
	return ret.Bool(0), ret.Error(1)
}

// NewMockPhoneCodeRepository creates a new instance of MockPhoneCodeRepository.
func NewMockPhoneCodeRepository(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockPhoneCodeRepository {
	m := &MockPhoneCodeRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// MockBusinessClient is a mock type for the BusinessClient type
type MockBusinessClient struct {
	mock.Mock
}

func (_m *MockBusinessClient) AddToFavoredUser(ctx context.Context, businessID string, userID uuid.UUID) error {
	return _m.Called(ctx, businessID, userID).Error(0)
}

func (_m *MockBusinessClient) RemoveFromFavoredUser(ctx context.Context, businessID string, userID uuid.UUID) error {
	return _m.Called(ctx, businessID, userID).Error(0)
}

// NewMockBusinessClient creates a new instance of MockBusinessClient.
func NewMockBusinessClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockBusinessClient {
	m := &MockBusinessClient{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

var (
	_ interfaces.PhoneCodeRepository = (*MockPhoneCodeRepository)(nil)
	_ interfaces.BusinessClient      = (*MockBusinessClient)(nil)
)
