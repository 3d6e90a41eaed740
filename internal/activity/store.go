package activity

import (
	"context"
	"time"
)

// Filter bounds a feed read. A zero EntityType matches every type; NotBefore
// excludes events older than the retention boundary regardless of sweep
// timing; Limit caps the result size. A zero Limit means no bound at the
// store level; services apply their own caps.
type Filter struct {
	EntityType EntityType
	NotBefore  time.Time
	Limit      int
}

// Store is the append-only log behind the ingestion and query services.
// Implementations are interface-driven so in-memory, Postgres, and Redis
// backends can be swapped without rewiring business code.
//
// Append assigns the sequence number (a single linearizable counter) and the
// timestamp (monotonically non-decreasing per insertion order) and returns
// the stored event. List returns events ordered by (timestamp desc, seq
// desc). DeleteOlderThan removes at most limit events older than cutoff and
// reports how many went away, so retention sweeps hold write locks only for
// a bounded batch.
type Store interface {
	Append(ctx context.Context, event Event) (Event, error)
	List(ctx context.Context, filter Filter) ([]Event, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time, limit int) (int64, error)
}
