package mocks

import (
	"context"

	"account-service/internal/interfaces"
	"account-service/internal/models"

	"github.com/stretchr/testify/mock"
)

// MockMailSender is a mock type for the MailSender type
type MockMailSender struct {
	mock.Mock
}

func (_m *MockMailSender) SendEmailVerification(ctx context.Context, user *models.User, token string) error {
	return _m.Called(ctx, user, token).Error(0)
}

func (_m *MockMailSender) SendChangePassword(ctx context.Context, user *models.User, token string) error {
	return _m.Called(ctx, user, token).Error(0)
}

func (_m *MockMailSender) SendPhoneCode(ctx context.Context, phone, code string) error {
	return _m.Called(ctx, phone, code).Error(0)
}

// NewMockMailSender creates a new instance of MockMailSender.
func NewMockMailSender(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockMailSender {
	m := &MockMailSender{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// MockEventPublisher is a mock type for the EventPublisher type
type MockEventPublisher struct {
	mock.Mock
}

func (_m *MockEventPublisher) Publish(ctx context.Context, event models.AccountEvent) error {
	return _m.Called(ctx, event).Error(0)
}

func (_m *MockEventPublisher) Close() error {
	return _m.Called().Error(0)
}

// NewMockEventPublisher creates a new instance of MockEventPublisher.
func NewMockEventPublisher(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockEventPublisher {
	m := &MockEventPublisher{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

var (
	_ interfaces.MailSender     = (*MockMailSender)(nil)
	_ interfaces.EventPublisher = (*MockEventPublisher)(nil)
)
