package monitor

import (
	"context"
	"time"
)

// Fetcher retrieves a page and returns the raw body plus metadata. It is
// responsible for its own timeout, retry, and private-network validation;
// the scheduler treats any returned error as a transient round failure.
type Fetcher interface {
	Fetch(ctx context.Context, request FetchRequest) (FetchResponse, error)
}

// Notifier delivers a notification. Delivery is best-effort: a returned
// error is logged by the caller and never retried within a round.
type Notifier interface {
	Send(ctx context.Context, n Notification) error
}

// Hasher computes digests used to detect unchanged page content between
// rounds.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}
