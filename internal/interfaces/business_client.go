package interfaces

import (
	"context"

	"github.com/google/uuid"
)

// BusinessClient mirrors favorites into the business service.
type BusinessClient interface {
	AddToFavoredUser(ctx context.Context, businessID string, userID uuid.UUID) error
	RemoveFromFavoredUser(ctx context.Context, businessID string, userID uuid.UUID) error
}
