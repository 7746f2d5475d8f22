package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/fleetrent/backend/internal/domain/billing"
	"github.com/fleetrent/backend/internal/domain/shared"
	"github.com/fleetrent/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupBillingTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	err = db.AutoMigrate(&billing.Debt{}, &billing.Payment{}, &billing.SettlementRequest{})
	require.NoError(t, err)

	// The production schema enforces one live debt per driver-vehicle-day
	// with a partial unique index; mirror it here.
	err = db.Exec(`CREATE UNIQUE INDEX uq_debts_driver_vehicle_date
		ON debts(driver_id, vehicle_id, date) WHERE NOT deleted`).Error
	require.NoError(t, err)

	return db
}

func newPersistedDebt(t *testing.T, repo *GormDebtRepository, day time.Time) *billing.Debt {
	t.Helper()
	debt, err := billing.NewDebt(uuid.New(), uuid.New(), day, valueobject.NewMoneyCOPFromInt(70000))
	require.NoError(t, err)
	require.NoError(t, repo.Save(context.Background(), debt))
	return debt
}

func TestGormDebtRepository_Save(t *testing.T) {
	db := setupBillingTestDB(t)
	repo := NewGormDebtRepository(db)
	ctx := context.Background()

	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	t.Run("round-trips a debt", func(t *testing.T) {
		debt := newPersistedDebt(t, repo, day)

		found, err := repo.FindByID(ctx, debt.ID)
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, debt.DriverID, found.DriverID)
		assert.Equal(t, billing.DebtStateCreated, found.State)
		assert.True(t, debt.Amount.Equal(found.Amount))
		assert.False(t, found.Paid)
	})

	t.Run("maps duplicate day to ALREADY_EXISTS", func(t *testing.T) {
		debt := newPersistedDebt(t, repo, day)

		dup, err := billing.NewDebt(debt.DriverID, debt.VehicleID, day, valueobject.NewMoneyCOPFromInt(70000))
		require.NoError(t, err)

		err = repo.Save(ctx, dup)
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "ALREADY_EXISTS", domainErr.Code)
	})

	t.Run("soft-deleted day can be regenerated", func(t *testing.T) {
		debt := newPersistedDebt(t, repo, day)
		require.NoError(t, debt.SoftDelete("created in error"))
		require.NoError(t, repo.SaveWithLock(ctx, debt))

		replacement, err := billing.NewDebt(debt.DriverID, debt.VehicleID, day, valueobject.NewMoneyCOPFromInt(70000))
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, replacement))
	})
}

func TestGormDebtRepository_SaveWithLock(t *testing.T) {
	db := setupBillingTestDB(t)
	repo := NewGormDebtRepository(db)
	ctx := context.Background()

	t.Run("persists a version bump", func(t *testing.T) {
		debt := newPersistedDebt(t, repo, time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC))

		require.NoError(t, debt.SubmitManualReceipt(debt.DriverID, "receipt-001"))
		require.NoError(t, repo.SaveWithLock(ctx, debt))

		found, err := repo.FindByID(ctx, debt.ID)
		require.NoError(t, err)
		assert.Equal(t, billing.DebtStatePendingApproval, found.State)
		assert.Equal(t, debt.Version, found.Version)
	})

	t.Run("detects concurrent modification", func(t *testing.T) {
		debt := newPersistedDebt(t, repo, time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC))

		stale, err := repo.FindByID(ctx, debt.ID)
		require.NoError(t, err)

		require.NoError(t, debt.SubmitManualReceipt(debt.DriverID, "receipt-fast"))
		require.NoError(t, repo.SaveWithLock(ctx, debt))

		require.NoError(t, stale.SubmitManualReceipt(stale.DriverID, "receipt-slow"))
		err = repo.SaveWithLock(ctx, stale)
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "CONCURRENCY_CONFLICT", domainErr.Code)
	})
}

func TestGormDebtRepository_Lookups(t *testing.T) {
	db := setupBillingTestDB(t)
	repo := NewGormDebtRepository(db)
	ctx := context.Background()

	day := time.Date(2026, 3, 13, 0, 0, 0, 0, time.UTC)

	t.Run("FindByID returns nil for unknown debt", func(t *testing.T) {
		found, err := repo.FindByID(ctx, uuid.New())
		require.NoError(t, err)
		assert.Nil(t, found)
	})

	t.Run("FindByGatewayReference resolves checkout reference", func(t *testing.T) {
		debt := newPersistedDebt(t, repo, day)
		require.NoError(t, debt.ChooseOnlineMethod(debt.DriverID, "DEBT-abc123"))
		require.NoError(t, repo.SaveWithLock(ctx, debt))

		found, err := repo.FindByGatewayReference(ctx, "DEBT-abc123")
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, debt.ID, found.ID)

		missing, err := repo.FindByGatewayReference(ctx, "DEBT-nope")
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("ExistsForDay ignores deleted debts", func(t *testing.T) {
		debt := newPersistedDebt(t, repo, day)

		exists, err := repo.ExistsForDay(ctx, debt.DriverID, debt.VehicleID, day.Add(9*time.Hour))
		require.NoError(t, err)
		assert.True(t, exists)

		require.NoError(t, debt.SoftDelete("wrong vehicle"))
		require.NoError(t, repo.SaveWithLock(ctx, debt))

		exists, err = repo.ExistsForDay(ctx, debt.DriverID, debt.VehicleID, day)
		require.NoError(t, err)
		assert.False(t, exists)
	})
}

func TestGormDebtRepository_List(t *testing.T) {
	db := setupBillingTestDB(t)
	repo := NewGormDebtRepository(db)
	ctx := context.Background()

	driverID := uuid.New()
	vehicleID := uuid.New()
	for i := 0; i < 3; i++ {
		day := time.Date(2026, 3, 1+i, 0, 0, 0, 0, time.UTC)
		debt, err := billing.NewDebt(driverID, vehicleID, day, valueobject.NewMoneyCOPFromInt(70000))
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, debt))
	}
	other := newPersistedDebt(t, repo, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, other.SoftDelete("not this driver"))
	require.NoError(t, repo.SaveWithLock(ctx, other))

	t.Run("filters by driver", func(t *testing.T) {
		page, err := repo.List(ctx, billing.DebtQuery{DriverID: &driverID}, shared.DefaultFilter())
		require.NoError(t, err)
		assert.Equal(t, int64(3), page.Total)
		assert.Len(t, page.Items, 3)
		// Newest day first
		assert.True(t, page.Items[0].Date.After(page.Items[2].Date))
	})

	t.Run("excludes deleted debts unless asked", func(t *testing.T) {
		page, err := repo.List(ctx, billing.DebtQuery{}, shared.DefaultFilter())
		require.NoError(t, err)
		assert.Equal(t, int64(3), page.Total)

		all, err := repo.List(ctx, billing.DebtQuery{IncludeDeleted: true}, shared.DefaultFilter())
		require.NoError(t, err)
		assert.Equal(t, int64(4), all.Total)
	})

	t.Run("filters by date range and paid flag", func(t *testing.T) {
		from := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
		to := time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)
		paid := false
		page, err := repo.List(ctx, billing.DebtQuery{
			DriverID: &driverID,
			From:     &from,
			To:       &to,
			Paid:     &paid,
		}, shared.DefaultFilter())
		require.NoError(t, err)
		assert.Equal(t, int64(2), page.Total)
	})

	t.Run("ignores order_by outside the sortable set", func(t *testing.T) {
		filter := shared.Filter{
			Page:     1,
			PageSize: 10,
			OrderBy:  "date; DROP TABLE debts--",
			OrderDir: "desc",
		}
		page, err := repo.List(ctx, billing.DebtQuery{DriverID: &driverID}, filter)
		require.NoError(t, err)
		assert.Equal(t, int64(3), page.Total)
		// falls back to the default order, newest day first
		assert.True(t, page.Items[0].Date.After(page.Items[2].Date))
	})

	t.Run("orders by a whitelisted column", func(t *testing.T) {
		filter := shared.Filter{Page: 1, PageSize: 10, OrderBy: "date", OrderDir: "asc"}
		page, err := repo.List(ctx, billing.DebtQuery{DriverID: &driverID}, filter)
		require.NoError(t, err)
		require.Len(t, page.Items, 3)
		assert.True(t, page.Items[0].Date.Before(page.Items[2].Date))
	})

	t.Run("paginates", func(t *testing.T) {
		filter := shared.Filter{Page: 1, PageSize: 2}
		page, err := repo.List(ctx, billing.DebtQuery{DriverID: &driverID}, filter)
		require.NoError(t, err)
		assert.Equal(t, int64(3), page.Total)
		assert.Len(t, page.Items, 2)
		assert.Equal(t, 2, page.TotalPages)
	})
}
