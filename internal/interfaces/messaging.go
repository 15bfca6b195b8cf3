package interfaces

import (
	"context"

	"account-service/internal/models"
)

// MailSender delivers account emails and phone codes.
type MailSender interface {
	SendEmailVerification(ctx context.Context, user *models.User, token string) error
	SendChangePassword(ctx context.Context, user *models.User, token string) error
	SendPhoneCode(ctx context.Context, phone, code string) error
}

// EventPublisher announces account lifecycle events.
type EventPublisher interface {
	Publish(ctx context.Context, event models.AccountEvent) error
	Close() error
}
