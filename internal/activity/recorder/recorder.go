// Package recorder is the write entry point of the activity log. Every
// collaborator that mutates a tracked entity calls Record after its own
// state change has committed; a log entry therefore implies the underlying
// mutation succeeded.
package recorder

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"pactum/internal/activity"
	"pactum/internal/activity/metrics"
	dErrors "pactum/pkg/domain-errors"
	"pactum/pkg/platform/circuit"
	"pactum/pkg/platform/sentinel"
)

// Input is the mutation payload collaborators submit.
type Input struct {
	EntityType string
	EntityID   string
	Action     string
	Changes    map[string]any
	Actor      activity.Actor
}

// Recorder validates mutation payloads and appends them to the store with
// bounded retries. A circuit breaker sheds load during store outages so a
// slow store never stalls the calling business operation.
type Recorder struct {
	store   activity.Store
	breaker *circuit.Breaker
	logger  *slog.Logger
	metrics *metrics.Metrics

	maxAttempts  int
	retryBackoff time.Duration
	asyncTimeout time.Duration
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithMaxAttempts bounds the append retries per event.
func WithMaxAttempts(n int) Option {
	return func(r *Recorder) {
		if n > 0 {
			r.maxAttempts = n
		}
	}
}

// WithRetryBackoff sets the initial backoff between append attempts; it
// doubles each retry.
func WithRetryBackoff(d time.Duration) Option {
	return func(r *Recorder) {
		if d > 0 {
			r.retryBackoff = d
		}
	}
}

// WithBreaker replaces the default circuit breaker.
func WithBreaker(b *circuit.Breaker) Option {
	return func(r *Recorder) {
		if b != nil {
			r.breaker = b
		}
	}
}

// New creates a Recorder.
func New(store activity.Store, logger *slog.Logger, m *metrics.Metrics, opts ...Option) (*Recorder, error) {
	if store == nil {
		return nil, errors.New("activity store is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	r := &Recorder{
		store:        store,
		breaker:      circuit.New("activity-store"),
		logger:       logger,
		metrics:      m,
		maxAttempts:  3,
		retryBackoff: 50 * time.Millisecond,
		asyncTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Record validates the payload, assigns the event ID, and appends it. Store
// failures are retried with exponential backoff up to the attempt bound and
// then surfaced as a retryable unavailable error. Validation failures are
// returned immediately; the caller must fix the payload.
func (r *Recorder) Record(ctx context.Context, in Input) (activity.Event, error) {
	event, err := activity.NewEvent(in.EntityType, in.EntityID, in.Action, in.Changes, in.Actor)
	if err != nil {
		return activity.Event{}, err
	}
	event.ID = uuid.NewString()

	if !r.breaker.Allow() {
		r.metrics.RecordFailed()
		return activity.Event{}, dErrors.Wrap(dErrors.CodeUnavailable, "activity store unavailable", sentinel.ErrUnavailable)
	}

	backoff := r.retryBackoff
	var lastErr error
	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				r.breaker.RecordFailure()
				r.metrics.RecordFailed()
				return activity.Event{}, dErrors.Wrap(dErrors.CodeUnavailable, "activity record canceled", ctx.Err())
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		stored, err := r.store.Append(ctx, event)
		if err == nil {
			r.breaker.RecordSuccess()
			r.metrics.RecordedEvent(string(stored.EntityType))
			return stored, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}

	r.breaker.RecordFailure()
	r.metrics.RecordFailed()
	return activity.Event{}, dErrors.Wrap(dErrors.CodeUnavailable, "activity store unavailable", lastErr)
}

// RecordAsync appends the event in the background with fire-and-forget
// semantics for in-process collaborators: a persistent failure is logged and
// dropped, never propagated, so the triggering business operation is
// unaffected.
func (r *Recorder) RecordAsync(in Input) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), r.asyncTimeout)
		defer cancel()

		if _, err := r.Record(ctx, in); err != nil {
			r.metrics.DroppedEvent()
			r.logger.Warn("activity event dropped",
				"entity_type", in.EntityType,
				"entity_id", in.EntityID,
				"action", in.Action,
				"error", err,
			)
		}
	}()
}
