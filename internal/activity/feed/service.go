// Package feed is the read API over the activity log: filtered, bounded,
// newest-first pages for the feed view.
package feed

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"pactum/internal/activity"
	"pactum/internal/activity/metrics"
	dErrors "pactum/pkg/domain-errors"
	"pactum/pkg/requestcontext"
)

const (
	// DefaultLimit applies when the caller omits a limit.
	DefaultLimit = 100
	// MaxLimit is the hard cap protecting the store from unbounded scans.
	MaxLimit = 200
)

// Query bounds one feed read. An empty or "all" EntityType returns every
// type.
type Query struct {
	EntityType string
	Limit      int
}

// Service serves feed pages. Every read re-checks event age against the
// retention window, so expired events never surface even when the sweeper is
// behind schedule.
type Service struct {
	store   activity.Store
	window  time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// New creates a feed service with the given retention window.
func New(store activity.Store, window time.Duration, logger *slog.Logger, m *metrics.Metrics) (*Service, error) {
	if store == nil {
		return nil, errors.New("activity store is required")
	}
	if window <= 0 {
		return nil, errors.New("retention window must be positive")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, window: window, logger: logger, metrics: m}, nil
}

// Window returns the retention window the service filters by.
func (s *Service) Window() time.Duration { return s.window }

// Query returns at most the limited number of events, most recent first,
// ordered by (timestamp desc, seq desc).
func (s *Service) Query(ctx context.Context, q Query) ([]activity.Event, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	entityType := q.EntityType
	if entityType == "all" {
		entityType = ""
	}

	events, err := s.store.List(ctx, activity.Filter{
		EntityType: activity.EntityType(entityType),
		NotBefore:  requestcontext.Now(ctx).Add(-s.window),
		Limit:      limit,
	})
	s.metrics.FeedQuery(err != nil)
	if err != nil {
		s.logger.ErrorContext(ctx, "activity feed query failed",
			"request_id", requestcontext.RequestID(ctx),
			"entity_type", q.EntityType,
			"error", err,
		)
		return nil, dErrors.Wrap(dErrors.CodeUnavailable, "activity store unavailable", err)
	}
	return events, nil
}
