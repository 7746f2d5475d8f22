package shared

import (
	"context"
	"time"
)

// IdempotencyStore tracks already-processed external notification keys so
// that duplicate deliveries (gateway webhook retries) become no-ops.
type IdempotencyStore interface {
	// MarkProcessed records a key as processed. Returns true if the key was
	// newly recorded, false if it had already been processed.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Forget removes a key, allowing the notification to be retried after a
	// processing failure.
	Forget(ctx context.Context, key string) error
}
