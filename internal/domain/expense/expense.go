package expense

import (
	"context"
	"strings"
	"time"

	"github.com/fleetrent/backend/internal/domain/shared"
	"github.com/fleetrent/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Category groups operating expenses for reporting
type Category string

const (
	CategoryMaintenance Category = "maintenance"
	CategoryFuel        Category = "fuel"
	CategoryInsurance   Category = "insurance"
	CategoryPaperwork   Category = "paperwork"
	CategoryOther       Category = "other"
)

// IsValid returns true for a known category
func (c Category) IsValid() bool {
	switch c {
	case CategoryMaintenance, CategoryFuel, CategoryInsurance, CategoryPaperwork, CategoryOther:
		return true
	}
	return false
}

// Expense is an operating cost of the fleet, optionally tied to one vehicle
type Expense struct {
	shared.BaseAggregateRoot
	Concept    string          `gorm:"type:varchar(200);not null"`
	Category   Category        `gorm:"type:varchar(30);not null;default:'other';index"`
	Amount     decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	VehicleID  *uuid.UUID      `gorm:"type:uuid;index"`
	IncurredAt time.Time       `gorm:"not null;index"`
	Notes      string          `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (Expense) TableName() string {
	return "expenses"
}

// NewExpense records an operating cost
func NewExpense(concept string, category Category, amount valueobject.Money, incurredAt time.Time) (*Expense, error) {
	concept = strings.TrimSpace(concept)
	if concept == "" {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Expense concept cannot be empty")
	}
	if !category.IsValid() {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Unknown expense category")
	}
	if !amount.IsPositive() {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Expense amount must be positive")
	}
	if incurredAt.IsZero() {
		incurredAt = time.Now()
	}

	return &Expense{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Concept:           concept,
		Category:          category,
		Amount:            amount.Amount(),
		IncurredAt:        incurredAt,
	}, nil
}

// ForVehicle ties the expense to a specific vehicle
func (e *Expense) ForVehicle(vehicleID uuid.UUID) error {
	if vehicleID == uuid.Nil {
		return shared.NewDomainError("VALIDATION_ERROR", "Vehicle ID cannot be empty")
	}
	e.VehicleID = &vehicleID
	e.UpdatedAt = time.Now()
	e.IncrementVersion()
	return nil
}

// AmountMoney returns the cost as a Money value object
func (e *Expense) AmountMoney() valueobject.Money {
	return valueobject.NewMoneyCOP(e.Amount)
}

// Repository persists expenses.
// Find methods return (nil, nil) when no row matches.
type Repository interface {
	Save(ctx context.Context, expense *Expense) error
	FindByID(ctx context.Context, id uuid.UUID) (*Expense, error)
	List(ctx context.Context, category *Category, from, to *time.Time, filter shared.Filter) (*shared.Paginated[Expense], error)
	Delete(ctx context.Context, id uuid.UUID) error
}
