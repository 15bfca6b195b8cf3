package interfaces

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// PhoneCodeRepository keeps short-lived phone verification codes, one per user and phone.
type PhoneCodeRepository interface {
	Save(ctx context.Context, userID uuid.UUID, phone, code string, ttl time.Duration) error
	// Consume removes the stored code for userID and phone and reports whether it matched code.
	Consume(ctx context.Context, userID uuid.UUID, phone, code string) (bool, error)
}
