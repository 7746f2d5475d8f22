package persistence

import (
	"context"

	"github.com/fleetrent/backend/internal/domain/shared"
	"gorm.io/gorm"
)

type txKey struct{}

// GormUnitOfWork runs application callbacks inside one database transaction.
// The transaction handle travels through the context so every repository
// touched by the callback joins the same transaction.
type GormUnitOfWork struct {
	db *gorm.DB
}

// NewGormUnitOfWork creates a new GormUnitOfWork
func NewGormUnitOfWork(db *gorm.DB) *GormUnitOfWork {
	return &GormUnitOfWork{db: db}
}

// Do executes fn within a transaction. Any error from fn rolls it back.
func (u *GormUnitOfWork) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// dbFromContext returns the ambient transaction when one is running,
// otherwise the repository's own connection bound to ctx
func dbFromContext(ctx context.Context, fallback *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return fallback.WithContext(ctx)
}

var _ shared.UnitOfWork = (*GormUnitOfWork)(nil)
