//go:build integration

package postgres

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"pactum/internal/activity"
	"pactum/pkg/testutil/containers"
)

type StoreSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *Store
}

func TestStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(StoreSuite))
}

func (s *StoreSuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T())
	s.store = New(s.pg.DB)
	s.Require().NoError(s.store.Migrate(context.Background()))
}

func (s *StoreSuite) SetupTest() {
	s.Require().NoError(s.pg.TruncateTables(context.Background(), "activity_logs"))
}

func (s *StoreSuite) appendEvent(entityType activity.EntityType, entityID string) activity.Event {
	event, err := s.store.Append(context.Background(), activity.Event{
		ID:         uuid.NewString(),
		EntityType: entityType,
		EntityID:   entityID,
		Action:     activity.ActionUpdated,
		Changes:    map[string]any{"title": entityID},
		UserID:     "u1",
		UserName:   "Ana",
	})
	s.Require().NoError(err)
	return event
}

// insertAt bypasses Append to plant an event with an explicit timestamp.
func (s *StoreSuite) insertAt(ts time.Time, entityID string) {
	_, err := s.pg.DB.ExecContext(context.Background(), `
		INSERT INTO activity_logs (id, entity_type, entity_id, action, changes, user_id, user_name, timestamp)
		VALUES ($1, 'task', $2, 'updated', '{}', 'u1', 'Ana', $3)
	`, uuid.NewString(), entityID, ts)
	s.Require().NoError(err)
}

func (s *StoreSuite) TestAppendAssignsSequenceAndTimestamp() {
	first := s.appendEvent(activity.EntityTask, "t1")
	second := s.appendEvent(activity.EntityTask, "t2")

	s.Greater(second.Seq, first.Seq)
	s.False(first.Timestamp.IsZero())
	s.False(second.Timestamp.Before(first.Timestamp))
}

func (s *StoreSuite) TestListNewestFirst() {
	for i := 0; i < 5; i++ {
		s.appendEvent(activity.EntityTask, fmt.Sprintf("t%d", i))
	}

	events, err := s.store.List(context.Background(), activity.Filter{})
	s.Require().NoError(err)
	s.Require().Len(events, 5)
	s.Equal("t4", events[0].EntityID)
	s.Equal("t0", events[4].EntityID)
	for i := 1; i < len(events); i++ {
		s.Greater(events[i-1].Seq, events[i].Seq)
	}
}

func (s *StoreSuite) TestListFilterByEntityType() {
	s.appendEvent(activity.EntityTask, "t1")
	s.appendEvent(activity.EntityPayment, "p1")
	s.appendEvent(activity.EntityTask, "t2")

	events, err := s.store.List(context.Background(), activity.Filter{EntityType: activity.EntityTask})
	s.Require().NoError(err)
	s.Require().Len(events, 2)
	s.Equal("t2", events[0].EntityID)
	s.Equal("t1", events[1].EntityID)
}

func (s *StoreSuite) TestListNotBeforeBoundary() {
	cutoff := time.Now().UTC().Add(-30 * 24 * time.Hour)
	s.insertAt(cutoff.Add(-time.Second), "expired")
	s.insertAt(cutoff, "boundary")
	s.insertAt(cutoff.Add(time.Second), "fresh")

	events, err := s.store.List(context.Background(), activity.Filter{NotBefore: cutoff})
	s.Require().NoError(err)
	s.Require().Len(events, 2)
	s.Equal("fresh", events[0].EntityID)
	s.Equal("boundary", events[1].EntityID)
}

func (s *StoreSuite) TestListLimit() {
	for i := 0; i < 6; i++ {
		s.appendEvent(activity.EntityTask, fmt.Sprintf("t%d", i))
	}

	events, err := s.store.List(context.Background(), activity.Filter{Limit: 2})
	s.Require().NoError(err)
	s.Require().Len(events, 2)
	s.Equal("t5", events[0].EntityID)
}

func (s *StoreSuite) TestChangesRoundTrip() {
	appended, err := s.store.Append(context.Background(), activity.Event{
		ID:         uuid.NewString(),
		EntityType: activity.EntityTask,
		EntityID:   "t1",
		Action:     activity.ActionStatusChanged,
		Changes:    map[string]any{"old_status": "Backlog", "new_status": "Hecho"},
		UserID:     "u1",
		UserName:   "Ana",
	})
	s.Require().NoError(err)

	events, err := s.store.List(context.Background(), activity.Filter{})
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(appended.ID, events[0].ID)
	s.Equal(map[string]any{"old_status": "Backlog", "new_status": "Hecho"}, events[0].Changes)
}

func (s *StoreSuite) TestDeleteOlderThanBatches() {
	cutoff := time.Now().UTC().Add(-30 * 24 * time.Hour)
	for i := 0; i < 5; i++ {
		s.insertAt(cutoff.Add(time.Duration(i-5)*time.Hour), fmt.Sprintf("old%d", i))
	}
	s.appendEvent(activity.EntityTask, "fresh")

	deleted, err := s.store.DeleteOlderThan(context.Background(), cutoff, 3)
	s.Require().NoError(err)
	s.Equal(int64(3), deleted)

	deleted, err = s.store.DeleteOlderThan(context.Background(), cutoff, 3)
	s.Require().NoError(err)
	s.Equal(int64(2), deleted)

	deleted, err = s.store.DeleteOlderThan(context.Background(), cutoff, 3)
	s.Require().NoError(err)
	s.Zero(deleted)

	events, err := s.store.List(context.Background(), activity.Filter{})
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal("fresh", events[0].EntityID)
}

func (s *StoreSuite) TestConcurrentAppendsAssignUniqueSequences() {
	const goroutines = 20

	var wg sync.WaitGroup
	seqs := make(chan int64, goroutines)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			event, err := s.store.Append(context.Background(), activity.Event{
				ID:         uuid.NewString(),
				EntityType: activity.EntityTask,
				EntityID:   fmt.Sprintf("t%d", i),
				Action:     activity.ActionCreated,
				UserID:     "u1",
				UserName:   "Ana",
			})
			if err == nil {
				seqs <- event.Seq
			}
		}(i)
	}
	wg.Wait()
	close(seqs)

	seen := make(map[int64]bool)
	for seq := range seqs {
		s.False(seen[seq], "duplicate seq %d", seq)
		seen[seq] = true
	}
	s.Len(seen, goroutines)
}
