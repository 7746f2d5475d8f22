package activity

import (
	"context"
	"time"

	"github.com/fleetrent/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EntryType classifies what happened
type EntryType string

const (
	EntryDebtGenerated     EntryType = "debt_generated"
	EntryDebtUpdated       EntryType = "debt_updated"
	EntryDebtDeleted       EntryType = "debt_deleted"
	EntryReceiptSubmitted  EntryType = "receipt_submitted"
	EntryDebtApproved      EntryType = "debt_approved"
	EntryDebtRejected      EntryType = "debt_rejected"
	EntryOnlinePayment     EntryType = "online_payment"
	EntryPaymentRecorded   EntryType = "payment_recorded"
	EntryRequestSubmitted  EntryType = "request_submitted"
	EntryRequestApproved   EntryType = "request_approved"
	EntryRequestRejected   EntryType = "request_rejected"
	EntryExpenseRecorded   EntryType = "expense_recorded"
	EntryUserLoggedIn      EntryType = "user_logged_in"
)

// Entry is one immutable line of the audit trail. Exactly one entry is
// written per state change; entries are never updated or deleted.
type Entry struct {
	shared.BaseEntity
	Type        EntryType       `gorm:"type:varchar(50);not null;index"`
	ActorID     *uuid.UUID      `gorm:"type:uuid;index"`
	ActorName   string          `gorm:"type:varchar(200)"`
	SubjectID   *uuid.UUID      `gorm:"type:uuid;index"`
	Description string          `gorm:"type:varchar(500);not null"`
	Amount      decimal.Decimal `gorm:"type:decimal(18,2)"`
	OccurredAt  time.Time       `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (Entry) TableName() string {
	return "activity_entries"
}

// NewEntry builds an audit line stamped now
func NewEntry(entryType EntryType, description string) *Entry {
	return &Entry{
		BaseEntity:  shared.NewBaseEntity(),
		Type:        entryType,
		Description: description,
		OccurredAt:  time.Now(),
	}
}

// WithActor attaches who performed the action
func (e *Entry) WithActor(actorID uuid.UUID, actorName string) *Entry {
	e.ActorID = &actorID
	e.ActorName = actorName
	return e
}

// WithSubject attaches the aggregate the action touched
func (e *Entry) WithSubject(subjectID uuid.UUID) *Entry {
	e.SubjectID = &subjectID
	return e
}

// WithAmount attaches the money involved
func (e *Entry) WithAmount(amount decimal.Decimal) *Entry {
	e.Amount = amount
	return e
}

// Recorder appends entries to the audit trail. Recording failures must not
// fail the business operation that triggered them; implementations log and
// swallow errors.
type Recorder interface {
	Record(ctx context.Context, entry *Entry)
}

// FanoutRecorder forwards each entry to every underlying recorder. It lets
// the audit trail and telemetry observe the same stream of events.
type FanoutRecorder []Recorder

// NewFanoutRecorder creates a recorder that fans out to all given recorders
func NewFanoutRecorder(recorders ...Recorder) FanoutRecorder {
	return FanoutRecorder(recorders)
}

// Record forwards the entry to every recorder
func (f FanoutRecorder) Record(ctx context.Context, entry *Entry) {
	for _, r := range f {
		r.Record(ctx, entry)
	}
}

// Repository persists and queries the audit trail
type Repository interface {
	Save(ctx context.Context, entry *Entry) error
	List(ctx context.Context, entryType *EntryType, filter shared.Filter) (*shared.Paginated[Entry], error)
	ListByActor(ctx context.Context, actorID uuid.UUID, filter shared.Filter) (*shared.Paginated[Entry], error)
}
