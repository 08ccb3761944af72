package budget

import (
	"context"
	"time"
)

// Store persists token counters.
type Store interface {
	// Add increments key by tokens and sets its retention on first write.
	Add(ctx context.Context, key string, tokens int64, retention time.Duration) error
	// Get returns the counter value, 0 for a missing key.
	Get(ctx context.Context, key string) (int64, error)
}
