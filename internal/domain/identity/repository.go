package identity

import (
	"context"

	"github.com/fleetrent/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// UserRepository persists user aggregates.
// Find methods return (nil, nil) when no row matches.
type UserRepository interface {
	Save(ctx context.Context, user *User) error
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	// FindActiveDrivers returns drivers that can accrue debts: active
	// accounts with a vehicle assigned.
	FindActiveDrivers(ctx context.Context) ([]User, error)
	List(ctx context.Context, role *Role, filter shared.Filter) (*shared.Paginated[User], error)
	Delete(ctx context.Context, id uuid.UUID) error
}
