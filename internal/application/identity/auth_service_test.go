package identity

import (
	"context"
	"testing"
	"time"

	"github.com/fleetrent/backend/internal/domain/activity"
	"github.com/fleetrent/backend/internal/domain/fleet"
	"github.com/fleetrent/backend/internal/domain/identity"
	"github.com/fleetrent/backend/internal/domain/shared"
	"github.com/fleetrent/backend/internal/infrastructure/auth"
	"github.com/fleetrent/backend/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Save(ctx context.Context, user *identity.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserRepository) FindByUsername(ctx context.Context, username string) (*identity.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserRepository) FindActiveDrivers(ctx context.Context) ([]identity.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]identity.User), args.Error(1)
}

func (m *MockUserRepository) List(ctx context.Context, role *identity.Role, filter shared.Filter) (*shared.Paginated[identity.User], error) {
	args := m.Called(ctx, role, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.Paginated[identity.User]), args.Error(1)
}

func (m *MockUserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockVehicleRepository struct {
	mock.Mock
}

func (m *MockVehicleRepository) Save(ctx context.Context, vehicle *fleet.Vehicle) error {
	args := m.Called(ctx, vehicle)
	return args.Error(0)
}

func (m *MockVehicleRepository) FindByID(ctx context.Context, id uuid.UUID) (*fleet.Vehicle, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fleet.Vehicle), args.Error(1)
}

func (m *MockVehicleRepository) FindByPlate(ctx context.Context, plate string) (*fleet.Vehicle, error) {
	args := m.Called(ctx, plate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fleet.Vehicle), args.Error(1)
}

func (m *MockVehicleRepository) List(ctx context.Context, status *fleet.VehicleStatus, filter shared.Filter) (*shared.Paginated[fleet.Vehicle], error) {
	args := m.Called(ctx, status, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.Paginated[fleet.Vehicle]), args.Error(1)
}

func (m *MockVehicleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type recorderSpy struct {
	entries []*activity.Entry
}

func (r *recorderSpy) Record(_ context.Context, entry *activity.Entry) {
	r.entries = append(r.entries, entry)
}

func testJWTService() *auth.JWTService {
	return auth.NewJWTService(config.JWTConfig{
		Secret:                 "test-secret-at-least-32-characters!!",
		Issuer:                 "fleetrent-test",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: 24 * time.Hour,
	})
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("valid credentials return tokens", func(t *testing.T) {
		userRepo := new(MockUserRepository)
		recorder := &recorderSpy{}
		user, err := identity.NewUser("carlos", "secret-pass1", identity.RoleDriver)
		require.NoError(t, err)

		userRepo.On("FindByUsername", ctx, "carlos").Return(user, nil)
		userRepo.On("Save", ctx, user).Return(nil)

		svc := NewAuthService(userRepo, testJWTService(), auth.NewMemoryTokenBlacklist(), recorder, nil)
		result, err := svc.Login(ctx, LoginInput{Username: "carlos", Password: "secret-pass1"})
		require.NoError(t, err)
		assert.NotEmpty(t, result.Tokens.AccessToken)
		assert.NotNil(t, user.LastLoginAt)
		require.Len(t, recorder.entries, 1)
		assert.Equal(t, activity.EntryUserLoggedIn, recorder.entries[0].Type)
	})

	t.Run("unknown user and wrong password return the same error", func(t *testing.T) {
		userRepo := new(MockUserRepository)
		user, err := identity.NewUser("carlos", "secret-pass1", identity.RoleDriver)
		require.NoError(t, err)

		userRepo.On("FindByUsername", ctx, "ghost").Return(nil, nil)
		userRepo.On("FindByUsername", ctx, "carlos").Return(user, nil)

		svc := NewAuthService(userRepo, testJWTService(), auth.NewMemoryTokenBlacklist(), &recorderSpy{}, nil)

		_, err1 := svc.Login(ctx, LoginInput{Username: "ghost", Password: "whatever1"})
		_, err2 := svc.Login(ctx, LoginInput{Username: "carlos", Password: "wrong-pass1"})
		require.Error(t, err1)
		require.Error(t, err2)
		assert.Equal(t, err1.Error(), err2.Error())

		var domainErr *shared.DomainError
		require.ErrorAs(t, err1, &domainErr)
		assert.Equal(t, "UNAUTHORIZED", domainErr.Code)
	})

	t.Run("deactivated account cannot log in", func(t *testing.T) {
		userRepo := new(MockUserRepository)
		user, err := identity.NewUser("carlos", "secret-pass1", identity.RoleDriver)
		require.NoError(t, err)
		require.NoError(t, user.Deactivate())

		userRepo.On("FindByUsername", ctx, "carlos").Return(user, nil)

		svc := NewAuthService(userRepo, testJWTService(), auth.NewMemoryTokenBlacklist(), &recorderSpy{}, nil)
		_, err = svc.Login(ctx, LoginInput{Username: "carlos", Password: "secret-pass1"})
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "UNAUTHORIZED", domainErr.Code)
	})
}

func TestAuthService_Refresh(t *testing.T) {
	ctx := context.Background()
	jwtSvc := testJWTService()

	t.Run("valid refresh token rotates the pair", func(t *testing.T) {
		userRepo := new(MockUserRepository)
		user, err := identity.NewUser("carlos", "secret-pass1", identity.RoleDriver)
		require.NoError(t, err)
		userRepo.On("FindByUsername", ctx, "carlos").Return(user, nil)
		userRepo.On("FindByID", ctx, user.ID).Return(user, nil)
		userRepo.On("Save", ctx, user).Return(nil)

		svc := NewAuthService(userRepo, jwtSvc, auth.NewMemoryTokenBlacklist(), &recorderSpy{}, nil)
		login, err := svc.Login(ctx, LoginInput{Username: "carlos", Password: "secret-pass1"})
		require.NoError(t, err)

		tokens, err := svc.Refresh(ctx, login.Tokens.RefreshToken)
		require.NoError(t, err)
		assert.NotEmpty(t, tokens.AccessToken)
	})

	t.Run("access token is not a refresh token", func(t *testing.T) {
		userRepo := new(MockUserRepository)
		pair, err := jwtSvc.GenerateTokenPair(auth.GenerateTokenInput{UserID: uuid.New(), Username: "u", Role: "driver"})
		require.NoError(t, err)

		svc := NewAuthService(userRepo, jwtSvc, auth.NewMemoryTokenBlacklist(), &recorderSpy{}, nil)
		_, err = svc.Refresh(ctx, pair.AccessToken)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "UNAUTHORIZED", domainErr.Code)
	})
}

func TestAuthService_Logout(t *testing.T) {
	ctx := context.Background()
	jwtSvc := testJWTService()
	blacklist := auth.NewMemoryTokenBlacklist()

	pair, err := jwtSvc.GenerateTokenPair(auth.GenerateTokenInput{UserID: uuid.New(), Username: "u", Role: "driver"})
	require.NoError(t, err)

	svc := NewAuthService(new(MockUserRepository), jwtSvc, blacklist, &recorderSpy{}, nil)
	require.NoError(t, svc.Logout(ctx, pair.AccessToken))

	claims, err := jwtSvc.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)
	revoked, err := blacklist.IsBlacklisted(ctx, claims.ID)
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestUserService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects duplicate username", func(t *testing.T) {
		userRepo := new(MockUserRepository)
		existing, err := identity.NewUser("carlos", "secret-pass1", identity.RoleDriver)
		require.NoError(t, err)
		userRepo.On("FindByUsername", ctx, "carlos").Return(existing, nil)

		svc := NewUserService(userRepo, new(MockVehicleRepository), nil)
		_, err = svc.Create(ctx, CreateUserInput{Username: "carlos", Password: "secret-pass1", Role: identity.RoleDriver})
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "CONFLICT", domainErr.Code)
	})

	t.Run("creates driver with vehicle", func(t *testing.T) {
		userRepo := new(MockUserRepository)
		vehicleRepo := new(MockVehicleRepository)
		vehicle, err := fleet.NewVehicle("ABC123", "Bajaj", "Pulsar", 2023)
		require.NoError(t, err)

		userRepo.On("FindByUsername", ctx, "carlos").Return(nil, nil)
		vehicleRepo.On("FindByID", ctx, vehicle.ID).Return(vehicle, nil)
		userRepo.On("Save", ctx, mock.AnythingOfType("*identity.User")).Return(nil)

		svc := NewUserService(userRepo, vehicleRepo, nil)
		user, err := svc.Create(ctx, CreateUserInput{
			Username:  "carlos",
			Password:  "secret-pass1",
			Role:      identity.RoleDriver,
			VehicleID: &vehicle.ID,
		})
		require.NoError(t, err)
		require.NotNil(t, user.AssignedVehicleID)
		assert.Equal(t, vehicle.ID, *user.AssignedVehicleID)
	})

	t.Run("rejects vehicle in maintenance", func(t *testing.T) {
		userRepo := new(MockUserRepository)
		vehicleRepo := new(MockVehicleRepository)
		vehicle, err := fleet.NewVehicle("ABC123", "Bajaj", "Pulsar", 2023)
		require.NoError(t, err)
		require.NoError(t, vehicle.SetStatus(fleet.VehicleStatusMaintenance))

		userRepo.On("FindByUsername", ctx, "carlos").Return(nil, nil)
		vehicleRepo.On("FindByID", ctx, vehicle.ID).Return(vehicle, nil)

		svc := NewUserService(userRepo, vehicleRepo, nil)
		_, err = svc.Create(ctx, CreateUserInput{
			Username:  "carlos",
			Password:  "secret-pass1",
			Role:      identity.RoleDriver,
			VehicleID: &vehicle.ID,
		})
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "CONFLICT", domainErr.Code)
	})
}
