package identity

import (
	"context"

	"github.com/fleetrent/backend/internal/domain/fleet"
	"github.com/fleetrent/backend/internal/domain/identity"
	"github.com/fleetrent/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreateUserInput carries the fields for a new account
type CreateUserInput struct {
	Username    string
	Password    string
	Role        identity.Role
	DisplayName string
	Phone       string
	VehicleID   *uuid.UUID
}

// UpdateUserInput carries optional profile changes; nil fields are left as is
type UpdateUserInput struct {
	DisplayName *string
	Phone       *string
	Password    *string
}

// UserService manages accounts and driver-vehicle assignments
type UserService struct {
	userRepo    identity.UserRepository
	vehicleRepo fleet.VehicleRepository
	logger      *zap.Logger
}

// NewUserService creates a new UserService
func NewUserService(userRepo identity.UserRepository, vehicleRepo fleet.VehicleRepository, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{userRepo: userRepo, vehicleRepo: vehicleRepo, logger: logger}
}

// Create registers a new account, optionally assigning a vehicle to a driver
func (s *UserService) Create(ctx context.Context, input CreateUserInput) (*identity.User, error) {
	existing, err := s.userRepo.FindByUsername(ctx, input.Username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, shared.NewDomainError("CONFLICT", "Username is already taken")
	}

	user, err := identity.NewUser(input.Username, input.Password, input.Role)
	if err != nil {
		return nil, err
	}
	if input.DisplayName != "" {
		if err := user.SetDisplayName(input.DisplayName); err != nil {
			return nil, err
		}
	}
	if input.Phone != "" {
		if err := user.SetPhone(input.Phone); err != nil {
			return nil, err
		}
	}
	if input.VehicleID != nil {
		if err := s.assignVehicle(ctx, user, *input.VehicleID); err != nil {
			return nil, err
		}
	}

	if err := s.userRepo.Save(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("User created",
		zap.String("user_id", user.ID.String()),
		zap.String("username", user.Username),
		zap.String("role", string(user.Role)))

	return user, nil
}

// Get returns one account by ID
func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "User not found")
	}
	return user, nil
}

// AssignedVehicle returns the vehicle currently rented by the user
func (s *UserService) AssignedVehicle(ctx context.Context, userID uuid.UUID) (*fleet.Vehicle, error) {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.AssignedVehicleID == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "No vehicle is assigned to this user")
	}
	vehicle, err := s.vehicleRepo.FindByID(ctx, *user.AssignedVehicleID)
	if err != nil {
		return nil, err
	}
	if vehicle == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Assigned vehicle no longer exists")
	}
	return vehicle, nil
}

// List returns accounts, optionally filtered by role
func (s *UserService) List(ctx context.Context, role *identity.Role, filter shared.Filter) (*shared.Paginated[identity.User], error) {
	return s.userRepo.List(ctx, role, filter)
}

// Update applies profile changes
func (s *UserService) Update(ctx context.Context, id uuid.UUID, input UpdateUserInput) (*identity.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.DisplayName != nil {
		if err := user.SetDisplayName(*input.DisplayName); err != nil {
			return nil, err
		}
	}
	if input.Phone != nil {
		if err := user.SetPhone(*input.Phone); err != nil {
			return nil, err
		}
	}
	if input.Password != nil {
		if err := user.SetPassword(*input.Password); err != nil {
			return nil, err
		}
	}
	if err := s.userRepo.Save(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// AssignVehicle binds a driver to a vehicle
func (s *UserService) AssignVehicle(ctx context.Context, userID, vehicleID uuid.UUID) (*identity.User, error) {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.assignVehicle(ctx, user, vehicleID); err != nil {
		return nil, err
	}
	if err := s.userRepo.Save(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// UnassignVehicle releases the driver's current vehicle
func (s *UserService) UnassignVehicle(ctx context.Context, userID uuid.UUID) (*identity.User, error) {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.UnassignVehicle()
	if err := s.userRepo.Save(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Deactivate disables an account
func (s *UserService) Deactivate(ctx context.Context, id uuid.UUID) error {
	user, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := user.Deactivate(); err != nil {
		return err
	}
	return s.userRepo.Save(ctx, user)
}

func (s *UserService) assignVehicle(ctx context.Context, user *identity.User, vehicleID uuid.UUID) error {
	vehicle, err := s.vehicleRepo.FindByID(ctx, vehicleID)
	if err != nil {
		return err
	}
	if vehicle == nil {
		return shared.NewDomainError("NOT_FOUND", "Vehicle not found")
	}
	if !vehicle.IsRentable() {
		return shared.NewDomainError("CONFLICT", "Vehicle is not available for rental")
	}
	return user.AssignVehicle(vehicleID)
}
