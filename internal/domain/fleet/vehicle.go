package fleet

import (
	"strings"
	"time"

	"github.com/fleetrent/backend/internal/domain/shared"
	"github.com/fleetrent/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// VehicleStatus represents the operational state of a vehicle
type VehicleStatus string

const (
	VehicleStatusActive      VehicleStatus = "active"
	VehicleStatusMaintenance VehicleStatus = "maintenance"
	VehicleStatusRetired     VehicleStatus = "retired"
)

// Vehicle is a rentable unit of the fleet. DailyRate overrides the
// fleet-wide default rental rate when set.
type Vehicle struct {
	shared.BaseAggregateRoot
	Plate     string          `gorm:"type:varchar(20);not null;uniqueIndex"`
	Brand     string          `gorm:"type:varchar(100)"`
	Model     string          `gorm:"type:varchar(100)"`
	Year      int             `gorm:"not null;default:0"`
	DailyRate decimal.Decimal `gorm:"type:decimal(18,2)"`
	Status    VehicleStatus   `gorm:"type:varchar(20);not null;default:'active';index"`
	Notes     string          `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (Vehicle) TableName() string {
	return "vehicles"
}

// NewVehicle registers a vehicle by its license plate
func NewVehicle(plate, brand, model string, year int) (*Vehicle, error) {
	plate = strings.ToUpper(strings.TrimSpace(plate))
	if plate == "" {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "License plate cannot be empty")
	}
	if len(plate) > 20 {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "License plate cannot exceed 20 characters")
	}

	return &Vehicle{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Plate:             plate,
		Brand:             strings.TrimSpace(brand),
		Model:             strings.TrimSpace(model),
		Year:              year,
		Status:            VehicleStatusActive,
	}, nil
}

// SetDailyRate overrides the fleet-wide rental rate for this vehicle.
// A zero rate clears the override.
func (v *Vehicle) SetDailyRate(rate valueobject.Money) error {
	if rate.IsNegative() {
		return shared.NewDomainError("VALIDATION_ERROR", "Daily rate cannot be negative")
	}
	v.DailyRate = rate.Amount()
	v.touch()
	return nil
}

// HasRateOverride returns true when this vehicle charges its own rate
func (v *Vehicle) HasRateOverride() bool {
	return v.DailyRate.IsPositive()
}

// DailyRateMoney returns the override rate as a Money value object
func (v *Vehicle) DailyRateMoney() valueobject.Money {
	return valueobject.NewMoneyCOP(v.DailyRate)
}

// SetStatus transitions the vehicle's operational state
func (v *Vehicle) SetStatus(status VehicleStatus) error {
	switch status {
	case VehicleStatusActive, VehicleStatusMaintenance, VehicleStatusRetired:
	default:
		return shared.NewDomainError("VALIDATION_ERROR", "Unknown vehicle status")
	}
	if v.Status == VehicleStatusRetired && status != VehicleStatusRetired {
		return shared.NewDomainError("CONFLICT", "A retired vehicle cannot return to service")
	}
	v.Status = status
	v.touch()
	return nil
}

// IsRentable returns true when the vehicle can accrue rental debts
func (v *Vehicle) IsRentable() bool {
	return v.Status == VehicleStatusActive
}

func (v *Vehicle) touch() {
	v.UpdatedAt = time.Now()
	v.IncrementVersion()
}
