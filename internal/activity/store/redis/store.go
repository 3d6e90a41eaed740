// Package redis implements the activity log store on Redis sorted sets: a
// global feed set plus one index set per entity type, scored by timestamp so
// retention deletes are score-range operations. A plain INCR counter assigns
// sequence numbers.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"pactum/internal/activity"
	"pactum/pkg/requestcontext"
)

const (
	keySeq  = "activity:seq"
	keyFeed = "activity:feed"
)

func typeKey(t activity.EntityType) string {
	return "activity:feed:" + string(t)
}

type Store struct {
	client redis.UniversalClient
}

// New creates a Redis activity log store.
func New(client redis.UniversalClient) *Store {
	return &Store{client: client}
}

// Append reserves the next sequence number, stamps the event, and writes the
// serialized payload into the global and per-type feed sets in one pipeline.
func (s *Store) Append(ctx context.Context, event activity.Event) (activity.Event, error) {
	seq, err := s.client.Incr(ctx, keySeq).Result()
	if err != nil {
		return activity.Event{}, fmt.Errorf("reserve activity seq: %w", err)
	}

	event.Seq = seq
	event.Timestamp = requestcontext.Now(ctx).UTC()

	payload, err := json.Marshal(event)
	if err != nil {
		return activity.Event{}, fmt.Errorf("marshal activity event: %w", err)
	}

	member := redis.Z{Score: score(event.Timestamp), Member: string(payload)}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, keyFeed, member)
		pipe.ZAdd(ctx, typeKey(event.EntityType), member)
		return nil
	})
	if err != nil {
		return activity.Event{}, fmt.Errorf("append activity event: %w", err)
	}
	return event, nil
}

// List reads newest-first from the per-type set when a filter is given,
// otherwise from the global feed. Scores are millisecond timestamps, so
// equal-score members are re-sorted by (timestamp, seq) after decoding and
// sub-millisecond stragglers at the cutoff are re-checked in Go.
func (s *Store) List(ctx context.Context, filter activity.Filter) ([]activity.Event, error) {
	key := keyFeed
	if filter.EntityType != "" {
		key = typeKey(filter.EntityType)
	}

	rangeBy := &redis.ZRangeBy{Min: "-inf", Max: "+inf", Count: -1}
	if !filter.NotBefore.IsZero() {
		rangeBy.Min = strconv.FormatInt(filter.NotBefore.UnixMilli(), 10)
	}
	if filter.Limit > 0 {
		rangeBy.Count = int64(filter.Limit)
	}

	members, err := s.client.ZRevRangeByScore(ctx, key, rangeBy).Result()
	if err != nil {
		return nil, fmt.Errorf("range activity feed: %w", err)
	}

	events := make([]activity.Event, 0, len(members))
	for _, member := range members {
		var event activity.Event
		if err := json.Unmarshal([]byte(member), &event); err != nil {
			return nil, fmt.Errorf("unmarshal activity event: %w", err)
		}
		if !filter.NotBefore.IsZero() && event.Timestamp.Before(filter.NotBefore) {
			continue
		}
		events = append(events, event)
	}

	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].Timestamp.Equal(events[j].Timestamp) {
			return events[i].Timestamp.After(events[j].Timestamp)
		}
		return events[i].Seq > events[j].Seq
	})
	return events, nil
}

// DeleteOlderThan removes a bounded batch of expired members from the global
// feed and from each affected per-type set.
func (s *Store) DeleteOlderThan(ctx context.Context, cutoff time.Time, limit int) (int64, error) {
	rangeBy := &redis.ZRangeBy{
		Min:   "-inf",
		Max:   "(" + strconv.FormatInt(cutoff.UnixMilli(), 10),
		Count: int64(limit),
	}
	members, err := s.client.ZRangeByScore(ctx, keyFeed, rangeBy).Result()
	if err != nil {
		return 0, fmt.Errorf("range expired activity events: %w", err)
	}
	if len(members) == 0 {
		return 0, nil
	}

	byType := make(map[activity.EntityType][]any)
	var expired []any
	for _, member := range members {
		var event activity.Event
		if err := json.Unmarshal([]byte(member), &event); err != nil {
			return 0, fmt.Errorf("unmarshal expired activity event: %w", err)
		}
		if !event.Timestamp.Before(cutoff) {
			// Millisecond score truncation; not actually expired yet.
			continue
		}
		expired = append(expired, member)
		byType[event.EntityType] = append(byType[event.EntityType], member)
	}
	if len(expired) == 0 {
		return 0, nil
	}

	var removed *redis.IntCmd
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		removed = pipe.ZRem(ctx, keyFeed, expired...)
		for entityType, typeMembers := range byType {
			pipe.ZRem(ctx, typeKey(entityType), typeMembers...)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("delete expired activity events: %w", err)
	}
	return removed.Val(), nil
}

func score(ts time.Time) float64 {
	// Millisecond precision keeps scores exactly representable in float64;
	// nanosecond scores would lose low bits past 2^53.
	return float64(ts.UnixMilli())
}
