package interfaces

import (
	"context"

	"account-service/internal/models"

	"github.com/google/uuid"
)

// UserRepository persists user accounts. Username and email uniqueness is
// enforced by the store; violations surface as models.ErrConflict subtypes.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	List(ctx context.Context, filter models.UserFilter, skip, limit int) ([]models.UserListItem, error)
	Count(ctx context.Context, filter models.UserFilter) (int64, error)
}
