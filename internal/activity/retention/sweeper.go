// Package retention enforces the rolling age window on the activity log. A
// sweep deletes expired events in bounded batches so ingestion and reads are
// never blocked for more than one small critical section. Sweeps are
// best-effort: reads self-filter by age, so a sweep falling behind degrades
// storage, not correctness.
package retention

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"pactum/internal/activity"
	"pactum/internal/activity/metrics"
	"pactum/pkg/requestcontext"
)

// Status describes the sweeper's health for the health endpoint.
type Status struct {
	Sweeping    bool      `json:"sweeping"`
	LastRun     time.Time `json:"last_run,omitzero"`
	LastSuccess time.Time `json:"last_success,omitzero"`
	LastSwept   int64     `json:"last_swept"`
	LastError   string    `json:"last_error,omitempty"`
}

// Sweeper deletes events older than the retention window. At most one sweep
// runs at a time; a trigger during an active sweep is a no-op, so schedulers
// may fire as often as they like.
type Sweeper struct {
	store   activity.Store
	window  time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics

	batchSize    int
	maxRetries   int
	retryBackoff time.Duration

	sweeping atomic.Bool
	mu       sync.Mutex
	status   Status
}

// Option configures a Sweeper.
type Option func(*Sweeper)

// WithBatchSize bounds how many events one delete batch may remove.
func WithBatchSize(n int) Option {
	return func(s *Sweeper) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithRetry sets the per-batch retry count and initial backoff.
func WithRetry(attempts int, backoff time.Duration) Option {
	return func(s *Sweeper) {
		if attempts > 0 {
			s.maxRetries = attempts
		}
		if backoff > 0 {
			s.retryBackoff = backoff
		}
	}
}

// New creates a Sweeper for the given window.
func New(store activity.Store, window time.Duration, logger *slog.Logger, m *metrics.Metrics, opts ...Option) (*Sweeper, error) {
	if store == nil {
		return nil, errors.New("activity store is required")
	}
	if window <= 0 {
		return nil, errors.New("retention window must be positive")
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Sweeper{
		store:        store,
		window:       window,
		logger:       logger,
		metrics:      m,
		batchSize:    500,
		maxRetries:   3,
		retryBackoff: 100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Window returns the configured retention window.
func (s *Sweeper) Window() time.Duration { return s.window }

// Sweep deletes all events older than now minus the window, in batches.
// Returns how many events were deleted. If a sweep is already running the
// call returns immediately with no work done.
func (s *Sweeper) Sweep(ctx context.Context) (int64, error) {
	if !s.sweeping.CompareAndSwap(false, true) {
		return 0, nil
	}
	defer s.sweeping.Store(false)

	start := time.Now()
	cutoff := requestcontext.Now(ctx).Add(-s.window)

	var total int64
	for {
		deleted, err := s.deleteBatch(ctx, cutoff)
		total += deleted
		if err != nil {
			s.metrics.ObserveSweep(total, time.Since(start), true)
			s.recordOutcome(total, err)
			return total, err
		}
		if deleted < int64(s.batchSize) {
			break
		}
	}

	s.metrics.ObserveSweep(total, time.Since(start), false)
	s.recordOutcome(total, nil)
	return total, nil
}

// Healthy reports whether the last sweep completed without error.
func (s *Sweeper) Healthy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status.LastError == ""
}

// Status returns a snapshot of the sweeper's health.
func (s *Sweeper) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	status := s.status
	status.Sweeping = s.sweeping.Load()
	return status
}

// deleteBatch runs one bounded delete, retrying with backoff on failure.
func (s *Sweeper) deleteBatch(ctx context.Context, cutoff time.Time) (int64, error) {
	backoff := s.retryBackoff
	var lastErr error
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return 0, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		deleted, err := s.store.DeleteOlderThan(ctx, cutoff, s.batchSize)
		if err == nil {
			return deleted, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return 0, lastErr
}

func (s *Sweeper) recordOutcome(deleted int64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.status.LastRun = now
	s.status.LastSwept = deleted
	if err != nil {
		s.status.LastError = err.Error()
		s.logger.Error("retention sweep failed; retention behind schedule",
			"deleted", deleted,
			"error", err,
		)
		return
	}
	s.status.LastError = ""
	s.status.LastSuccess = now
	if deleted > 0 {
		s.logger.Info("retention sweep completed", "deleted", deleted)
	}
}
