package shared

import "context"

// UnitOfWork runs a function atomically. Repository calls made with the
// context passed to fn join the same transaction; any error rolls the whole
// unit back.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}
