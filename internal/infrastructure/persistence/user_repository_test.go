package persistence

import (
	"context"
	"testing"

	"github.com/fleetrent/backend/internal/domain/identity"
	"github.com/fleetrent/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupUserTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&identity.User{}))
	return db
}

func newPersistedDriver(t *testing.T, repo *GormUserRepository, username string) *identity.User {
	t.Helper()
	user, err := identity.NewUser(username, "driverpass1", identity.RoleDriver)
	require.NoError(t, err)
	require.NoError(t, repo.Save(context.Background(), user))
	return user
}

func TestGormUserRepository_Save(t *testing.T) {
	db := setupUserTestDB(t)
	repo := NewGormUserRepository(db)
	ctx := context.Background()

	t.Run("round-trips a user", func(t *testing.T) {
		user := newPersistedDriver(t, repo, "carlos.m")

		found, err := repo.FindByID(ctx, user.ID)
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, "carlos.m", found.Username)
		assert.Equal(t, identity.RoleDriver, found.Role)
		assert.True(t, found.VerifyPassword("driverpass1"))
	})

	t.Run("maps duplicate username to ALREADY_EXISTS", func(t *testing.T) {
		newPersistedDriver(t, repo, "duplicated")

		dup, err := identity.NewUser("duplicated", "otherpass9", identity.RoleDriver)
		require.NoError(t, err)
		err = repo.Save(ctx, dup)
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "ALREADY_EXISTS", domainErr.Code)
	})
}

func TestGormUserRepository_FindByUsername(t *testing.T) {
	db := setupUserTestDB(t)
	repo := NewGormUserRepository(db)
	ctx := context.Background()

	newPersistedDriver(t, repo, "maria.r")

	t.Run("matches regardless of case", func(t *testing.T) {
		found, err := repo.FindByUsername(ctx, "MARIA.R")
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, "maria.r", found.Username)
	})

	t.Run("returns nil for unknown username", func(t *testing.T) {
		found, err := repo.FindByUsername(ctx, "ghost")
		require.NoError(t, err)
		assert.Nil(t, found)
	})
}

func TestGormUserRepository_FindActiveDrivers(t *testing.T) {
	db := setupUserTestDB(t)
	repo := NewGormUserRepository(db)
	ctx := context.Background()

	assigned := newPersistedDriver(t, repo, "assigned.driver")
	vehicleID := uuid.New()
	require.NoError(t, assigned.AssignVehicle(vehicleID))
	require.NoError(t, repo.Save(ctx, assigned))

	// No vehicle assigned
	newPersistedDriver(t, repo, "benched.driver")

	deactivated := newPersistedDriver(t, repo, "gone.driver")
	require.NoError(t, deactivated.AssignVehicle(uuid.New()))
	require.NoError(t, deactivated.Deactivate())
	require.NoError(t, repo.Save(ctx, deactivated))

	admin, err := identity.NewUser("the.admin", "adminpass1", identity.RoleAdmin)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, admin))

	drivers, err := repo.FindActiveDrivers(ctx)
	require.NoError(t, err)
	require.Len(t, drivers, 1)
	assert.Equal(t, "assigned.driver", drivers[0].Username)
	require.NotNil(t, drivers[0].AssignedVehicleID)
	assert.Equal(t, vehicleID, *drivers[0].AssignedVehicleID)
}

func TestGormUserRepository_List(t *testing.T) {
	db := setupUserTestDB(t)
	repo := NewGormUserRepository(db)
	ctx := context.Background()

	newPersistedDriver(t, repo, "driver.one")
	newPersistedDriver(t, repo, "driver.two")
	admin, err := identity.NewUser("only.admin", "adminpass1", identity.RoleAdmin)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, admin))

	t.Run("lists everyone without role filter", func(t *testing.T) {
		page, err := repo.List(ctx, nil, shared.DefaultFilter())
		require.NoError(t, err)
		assert.Equal(t, int64(3), page.Total)
	})

	t.Run("narrows to one role", func(t *testing.T) {
		role := identity.RoleDriver
		page, err := repo.List(ctx, &role, shared.DefaultFilter())
		require.NoError(t, err)
		assert.Equal(t, int64(2), page.Total)
		for _, u := range page.Items {
			assert.Equal(t, identity.RoleDriver, u.Role)
		}
	})
}

func TestGormUserRepository_Delete(t *testing.T) {
	db := setupUserTestDB(t)
	repo := NewGormUserRepository(db)
	ctx := context.Background()

	user := newPersistedDriver(t, repo, "short.lived")
	require.NoError(t, repo.Delete(ctx, user.ID))

	found, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Nil(t, found)

	err = repo.Delete(ctx, uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
