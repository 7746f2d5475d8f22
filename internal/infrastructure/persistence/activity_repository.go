package persistence

import (
	"context"

	"github.com/fleetrent/backend/internal/domain/activity"
	"github.com/fleetrent/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormActivityRepository implements the activity Repository using GORM
type GormActivityRepository struct {
	db *gorm.DB
}

// NewGormActivityRepository creates a new GormActivityRepository
func NewGormActivityRepository(db *gorm.DB) *GormActivityRepository {
	return &GormActivityRepository{db: db}
}

// Save appends an entry to the activity feed
func (r *GormActivityRepository) Save(ctx context.Context, entry *activity.Entry) error {
	return dbFromContext(ctx, r.db).Save(entry).Error
}

// List lists activity entries, optionally narrowed to one type, newest first
func (r *GormActivityRepository) List(ctx context.Context, entryType *activity.EntryType, filter shared.Filter) (*shared.Paginated[activity.Entry], error) {
	conn := dbFromContext(ctx, r.db)

	countQuery := conn.Model(&activity.Entry{})
	findQuery := conn.Model(&activity.Entry{})
	if entryType != nil {
		countQuery = countQuery.Where("type = ?", *entryType)
		findQuery = findQuery.Where("type = ?", *entryType)
	}

	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, err
	}

	var entries []activity.Entry
	if err := applyFilter(findQuery, filter, "occurred_at DESC").Find(&entries).Error; err != nil {
		return nil, err
	}

	result := shared.NewPaginated(entries, total, filter.Page, filter.PageSize)
	return &result, nil
}

// ListByActor lists activity entries produced by one actor, newest first
func (r *GormActivityRepository) ListByActor(ctx context.Context, actorID uuid.UUID, filter shared.Filter) (*shared.Paginated[activity.Entry], error) {
	conn := dbFromContext(ctx, r.db)

	var total int64
	if err := conn.Model(&activity.Entry{}).Where("actor_id = ?", actorID).Count(&total).Error; err != nil {
		return nil, err
	}

	var entries []activity.Entry
	if err := applyFilter(conn.Model(&activity.Entry{}).Where("actor_id = ?", actorID), filter, "occurred_at DESC").
		Find(&entries).Error; err != nil {
		return nil, err
	}

	result := shared.NewPaginated(entries, total, filter.Page, filter.PageSize)
	return &result, nil
}

var _ activity.Repository = (*GormActivityRepository)(nil)
