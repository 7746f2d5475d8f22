package activity

import (
	"context"

	"github.com/fleetrent/backend/internal/domain/activity"
	"github.com/fleetrent/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service queries the audit trail and doubles as the Recorder the other
// services write through
type Service struct {
	repo   activity.Repository
	logger *zap.Logger
}

// NewService creates a new activity Service
func NewService(repo activity.Repository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, logger: logger}
}

// Record appends an entry. Failures are logged and swallowed so the audit
// trail never fails a business operation.
func (s *Service) Record(ctx context.Context, entry *activity.Entry) {
	if err := s.repo.Save(ctx, entry); err != nil {
		s.logger.Error("Failed to record activity entry",
			zap.String("type", string(entry.Type)),
			zap.Error(err))
	}
}

// List returns the audit trail, optionally filtered by entry type
func (s *Service) List(ctx context.Context, entryType *activity.EntryType, filter shared.Filter) (*shared.Paginated[activity.Entry], error) {
	return s.repo.List(ctx, entryType, filter)
}

// ListByActor returns entries performed by one user
func (s *Service) ListByActor(ctx context.Context, actorID uuid.UUID, filter shared.Filter) (*shared.Paginated[activity.Entry], error) {
	return s.repo.ListByActor(ctx, actorID, filter)
}

var _ activity.Recorder = (*Service)(nil)
