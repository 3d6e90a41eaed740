// Package memory provides the in-memory activity log store used for
// development and as the test double for the other backends.
package memory

import (
	"context"
	"sync"
	"time"

	"pactum/internal/activity"
	"pactum/pkg/requestcontext"
)

// InMemoryStore keeps events in insertion order behind a RWMutex. Only the
// sequence assignment and the slice append run under the write lock; reads
// take a consistent snapshot under the read lock.
type InMemoryStore struct {
	mu     sync.RWMutex
	events []activity.Event
	seq    int64
	lastTS time.Time
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

// Append assigns the next sequence number and a non-decreasing timestamp.
// The timestamp comes from the request context so tests and batch jobs can
// pin time.
func (s *InMemoryStore) Append(ctx context.Context, event activity.Event) (activity.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := requestcontext.Now(ctx).UTC()
	if ts.Before(s.lastTS) {
		ts = s.lastTS
	}
	s.lastTS = ts
	s.seq++

	event.Seq = s.seq
	event.Timestamp = ts
	s.events = append(s.events, event)
	return event, nil
}

// List walks the log newest-first. Insertion order equals (timestamp, seq)
// ascending because timestamps never decrease, so a reverse walk yields the
// required (timestamp desc, seq desc) order.
func (s *InMemoryStore) List(_ context.Context, filter activity.Filter) ([]activity.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []activity.Event
	for i := len(s.events) - 1; i >= 0; i-- {
		event := s.events[i]
		if filter.EntityType != "" && event.EntityType != filter.EntityType {
			continue
		}
		if !filter.NotBefore.IsZero() && event.Timestamp.Before(filter.NotBefore) {
			// Older events can only get older; stop scanning.
			break
		}
		result = append(result, event)
		if filter.Limit > 0 && len(result) >= filter.Limit {
			break
		}
	}
	return result, nil
}

// DeleteOlderThan drops at most limit events with a timestamp strictly before
// cutoff. Expired events form a prefix of the log.
func (s *InMemoryStore) DeleteOlderThan(_ context.Context, cutoff time.Time, limit int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for n < len(s.events) && s.events[n].Timestamp.Before(cutoff) {
		if limit > 0 && n >= limit {
			break
		}
		n++
	}
	if n == 0 {
		return 0, nil
	}
	s.events = append([]activity.Event(nil), s.events[n:]...)
	return int64(n), nil
}

// Len reports the number of stored events.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

// Clear resets the store between tests.
func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
	s.seq = 0
	s.lastTS = time.Time{}
}
