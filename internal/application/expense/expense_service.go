package expense

import (
	"context"
	"fmt"
	"time"

	"github.com/fleetrent/backend/internal/domain/activity"
	"github.com/fleetrent/backend/internal/domain/expense"
	"github.com/fleetrent/backend/internal/domain/shared"
	"github.com/fleetrent/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreateExpenseInput carries the fields for recording an operating cost
type CreateExpenseInput struct {
	Concept    string
	Category   expense.Category
	Amount     valueobject.Money
	VehicleID  *uuid.UUID
	IncurredAt time.Time
	Notes      string
}

// Service records and queries fleet operating expenses
type Service struct {
	expenseRepo expense.Repository
	recorder    activity.Recorder
	logger      *zap.Logger
}

// NewService creates a new expense Service
func NewService(expenseRepo expense.Repository, recorder activity.Recorder, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{expenseRepo: expenseRepo, recorder: recorder, logger: logger}
}

// Create records an operating cost
func (s *Service) Create(ctx context.Context, adminID uuid.UUID, input CreateExpenseInput) (*expense.Expense, error) {
	exp, err := expense.NewExpense(input.Concept, input.Category, input.Amount, input.IncurredAt)
	if err != nil {
		return nil, err
	}
	if input.VehicleID != nil {
		if err := exp.ForVehicle(*input.VehicleID); err != nil {
			return nil, err
		}
	}
	exp.Notes = input.Notes

	if err := s.expenseRepo.Save(ctx, exp); err != nil {
		return nil, err
	}

	s.recorder.Record(ctx, activity.NewEntry(
		activity.EntryExpenseRecorded,
		fmt.Sprintf("Expense recorded: %s", exp.Concept),
	).WithActor(adminID, "").WithSubject(exp.ID).WithAmount(exp.Amount))

	return exp, nil
}

// Get returns one expense by ID
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*expense.Expense, error) {
	exp, err := s.expenseRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if exp == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Expense not found")
	}
	return exp, nil
}

// List returns expenses filtered by category and date range
func (s *Service) List(ctx context.Context, category *expense.Category, from, to *time.Time, filter shared.Filter) (*shared.Paginated[expense.Expense], error) {
	return s.expenseRepo.List(ctx, category, from, to, filter)
}

// Delete removes an expense record
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	exp, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	return s.expenseRepo.Delete(ctx, exp.ID)
}
