package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fleetrent/backend/internal/domain/activity"
	"github.com/fleetrent/backend/internal/domain/billing"
	"github.com/fleetrent/backend/internal/domain/fleet"
	"github.com/fleetrent/backend/internal/domain/identity"
	"github.com/fleetrent/backend/internal/domain/shared"
	"github.com/fleetrent/backend/internal/domain/shared/valueobject"
	"github.com/fleetrent/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// GenerationResult summarizes one debt generation run
type GenerationResult struct {
	Date    time.Time `json:"date"`
	Created int       `json:"created"`
	Skipped int       `json:"skipped"`
	Failed  int       `json:"failed"`
	Errors  []string  `json:"errors,omitempty"`
}

// DebtGenerationService creates the daily rental debt for every active
// driver with an assigned vehicle. Running it twice for the same day is a
// no-op: generation checks for an existing debt and for a payment already
// covering the day, and the partial unique index on debts backstops the
// race between concurrent runs.
type DebtGenerationService struct {
	debtRepo    billing.DebtRepository
	paymentRepo billing.PaymentRepository
	userRepo    identity.UserRepository
	vehicleRepo fleet.VehicleRepository
	recorder    activity.Recorder
	defaultRate valueobject.Money
	logger      *zap.Logger
}

// NewDebtGenerationService creates a new DebtGenerationService
func NewDebtGenerationService(
	debtRepo billing.DebtRepository,
	paymentRepo billing.PaymentRepository,
	userRepo identity.UserRepository,
	vehicleRepo fleet.VehicleRepository,
	recorder activity.Recorder,
	defaultRate valueobject.Money,
	logger *zap.Logger,
) *DebtGenerationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DebtGenerationService{
		debtRepo:    debtRepo,
		paymentRepo: paymentRepo,
		userRepo:    userRepo,
		vehicleRepo: vehicleRepo,
		recorder:    recorder,
		defaultRate: defaultRate,
		logger:      logger,
	}
}

// GenerateDailyDebts creates one debt per active driver for the calendar day
// containing referenceDate. A failure for one driver never aborts the run;
// it is counted and the loop continues.
func (s *DebtGenerationService) GenerateDailyDebts(ctx context.Context, referenceDate time.Time) (*GenerationResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "billing", "generate_daily_debts")
	defer span.End()

	day := billing.DayOf(referenceDate)
	result := &GenerationResult{Date: day}
	telemetry.SetAttribute(span, telemetry.SpanAttrDebtDate, day.Format("2006-01-02"))

	drivers, err := s.userRepo.FindActiveDrivers(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to load active drivers: %w", err)
	}

	s.logger.Info("Debt generation started",
		zap.Time("date", day),
		zap.Int("drivers", len(drivers)))

	for i := range drivers {
		driver := &drivers[i]
		created, err := s.generateForDriver(ctx, driver, day)
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", driver.Username, err))
			s.logger.Error("Debt generation failed for driver",
				zap.String("driver_id", driver.ID.String()),
				zap.String("username", driver.Username),
				zap.Error(err))
			continue
		}
		if created {
			result.Created++
		} else {
			result.Skipped++
		}
	}

	s.logger.Info("Debt generation finished",
		zap.Time("date", day),
		zap.Int("created", result.Created),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed))

	telemetry.SetOK(span)
	return result, nil
}

func (s *DebtGenerationService) generateForDriver(ctx context.Context, driver *identity.User, day time.Time) (bool, error) {
	if driver.AssignedVehicleID == nil {
		return false, nil
	}
	vehicleID := *driver.AssignedVehicleID

	vehicle, err := s.vehicleRepo.FindByID(ctx, vehicleID)
	if err != nil {
		return false, fmt.Errorf("failed to load vehicle: %w", err)
	}
	if vehicle == nil || !vehicle.IsRentable() {
		return false, nil
	}

	exists, err := s.debtRepo.ExistsForDay(ctx, driver.ID, vehicleID, day)
	if err != nil {
		return false, fmt.Errorf("failed to check existing debt: %w", err)
	}
	if exists {
		return false, nil
	}

	from, to := billing.DayRange(day)
	paid, err := s.paymentRepo.ExistsInRange(ctx, driver.ID, vehicleID, from, to)
	if err != nil {
		return false, fmt.Errorf("failed to check payments: %w", err)
	}
	if paid {
		return false, nil
	}

	rate := s.defaultRate
	if vehicle.HasRateOverride() {
		rate = vehicle.DailyRateMoney()
	}

	debt, err := billing.NewDebt(driver.ID, vehicleID, day, rate)
	if err != nil {
		return false, err
	}

	if err := s.debtRepo.Save(ctx, debt); err != nil {
		// A concurrent run created the debt between the existence check
		// and the insert; the unique index turned it into a skip.
		var domainErr *shared.DomainError
		if errors.As(err, &domainErr) && domainErr.Code == "ALREADY_EXISTS" {
			return false, nil
		}
		return false, fmt.Errorf("failed to save debt: %w", err)
	}

	s.recorder.Record(ctx, activity.NewEntry(
		activity.EntryDebtGenerated,
		fmt.Sprintf("Daily debt generated for %s (%s)", driver.GetDisplayNameOrUsername(), vehicle.Plate),
	).WithSubject(debt.ID).WithAmount(debt.Amount))

	return true, nil
}
