package handler_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	appbilling "github.com/fleetrent/backend/internal/application/billing"
	"github.com/fleetrent/backend/internal/domain/billing"
	"github.com/fleetrent/backend/internal/domain/fleet"
	"github.com/fleetrent/backend/internal/domain/identity"
	"github.com/fleetrent/backend/internal/domain/shared"
	"github.com/fleetrent/backend/internal/domain/shared/valueobject"
	httphandler "github.com/fleetrent/backend/internal/interfaces/http/handler"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubVehicleRepo struct {
	byID map[uuid.UUID]*fleet.Vehicle
}

func (r *stubVehicleRepo) Save(_ context.Context, vehicle *fleet.Vehicle) error {
	r.byID[vehicle.ID] = vehicle
	return nil
}

func (r *stubVehicleRepo) FindByID(_ context.Context, id uuid.UUID) (*fleet.Vehicle, error) {
	return r.byID[id], nil
}

func (r *stubVehicleRepo) FindByPlate(_ context.Context, _ string) (*fleet.Vehicle, error) {
	return nil, nil
}

func (r *stubVehicleRepo) List(_ context.Context, _ *fleet.VehicleStatus, _ shared.Filter) (*shared.Paginated[fleet.Vehicle], error) {
	return &shared.Paginated[fleet.Vehicle]{}, nil
}

func (r *stubVehicleRepo) Delete(_ context.Context, _ uuid.UUID) error {
	return nil
}

type generationFixture struct {
	router      *gin.Engine
	debtRepo    *stubDebtRepo
	userRepo    *stubUserRepo
	vehicleRepo *stubVehicleRepo
}

func newGenerationFixture(t *testing.T) *generationFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	debtRepo := &stubDebtRepo{byRef: map[string]*billing.Debt{}}
	userRepo := newStubUserRepo()
	vehicleRepo := &stubVehicleRepo{byID: map[uuid.UUID]*fleet.Vehicle{}}

	service := appbilling.NewDebtGenerationService(
		debtRepo, &stubPaymentRepo{}, userRepo, vehicleRepo, nopRecorder{},
		valueobject.NewMoneyCOPFromInt(70000), nil)

	router := gin.New()
	h := httphandler.NewGenerationHandler(service)
	router.POST("/api/v1/internal/generate-debts", h.Trigger)

	return &generationFixture{
		router:      router,
		debtRepo:    debtRepo,
		userRepo:    userRepo,
		vehicleRepo: vehicleRepo,
	}
}

func (f *generationFixture) post(t *testing.T, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/internal/generate-debts", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *generationFixture) seedAssignedDriver(t *testing.T) *identity.User {
	t.Helper()
	vehicle, err := fleet.NewVehicle("GEN123", "Bajaj", "Pulsar", 2023)
	require.NoError(t, err)
	f.vehicleRepo.byID[vehicle.ID] = vehicle

	driver, err := identity.NewUser("gen-driver", "s3cret-pass", identity.RoleDriver)
	require.NoError(t, err)
	require.NoError(t, driver.AssignVehicle(vehicle.ID))
	f.userRepo.drivers = append(f.userRepo.drivers, *driver)
	return driver
}

func TestGenerationTrigger_MalformedBody(t *testing.T) {
	f := newGenerationFixture(t)

	rec := f.post(t, []byte(`{"date": 20260827}`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, false, body["success"])
	errInfo := body["error"].(map[string]interface{})
	assert.Contains(t, errInfo["message"], "YYYY-MM-DD")
}

func TestGenerationTrigger_InvalidDateFormat(t *testing.T) {
	f := newGenerationFixture(t)

	rec := f.post(t, []byte(`{"date": "27-08-2026"}`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, false, decodeBody(t, rec)["success"])
}

func TestGenerationTrigger_RunsForRequestedDay(t *testing.T) {
	f := newGenerationFixture(t)
	driver := f.seedAssignedDriver(t)

	rec := f.post(t, []byte(`{"date": "2026-08-27"}`))

	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeBody(t, rec)["data"].(map[string]interface{})
	assert.Equal(t, float64(1), data["created"])
	assert.Equal(t, float64(0), data["failed"])

	require.Len(t, f.debtRepo.saved, 1)
	saved := f.debtRepo.saved[0]
	assert.Equal(t, driver.ID, saved.DriverID)
	assert.Equal(t, time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC), saved.Date)
}

func TestGenerationTrigger_EmptyBodyUsesToday(t *testing.T) {
	f := newGenerationFixture(t)

	rec := f.post(t, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeBody(t, rec)["data"].(map[string]interface{})
	assert.Equal(t, float64(0), data["created"])
}
