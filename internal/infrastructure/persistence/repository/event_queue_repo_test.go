package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/trash-inspection/internal/domain/entity"
	"github.com/garyjia/trash-inspection/internal/domain/event"
)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestQueue(t *testing.T) (*EventQueueRepository, *testClock) {
	db := newTestDB(t)
	repo := NewEventQueueRepository(db.DB, zap.NewNop())
	clock := &testClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	repo.now = clock.Now
	return repo, clock
}

func TestEventQueue_EnqueueAndClaim(t *testing.T) {
	queue, _ := newTestQueue(t)
	ctx := context.Background()

	evt := event.NewEvent(event.TypeEformCompleted, 12345)
	require.NoError(t, queue.Enqueue(ctx, evt))

	claimed, err := queue.Claim(ctx, "worker-1", 10, time.Minute)
	require.NoError(t, err)
	require.Len(t, claimed, 1)

	msg := claimed[0]
	assert.Equal(t, evt.ID, msg.EventID)
	assert.Equal(t, "eform.completed", msg.EventType)
	assert.Equal(t, int64(12345), msg.CaseID)
	assert.Equal(t, 1, msg.Attempts)
	assert.Equal(t, "worker-1", msg.LockedBy)
	require.NotNil(t, msg.LockedUntil)

	rebuilt := msg.Event()
	assert.Equal(t, evt.ID, rebuilt.ID)
	assert.Equal(t, evt.Type, rebuilt.Type)
	assert.Equal(t, evt.CaseID, rebuilt.CaseID)
	assert.Equal(t, evt.CorrelationID, rebuilt.CorrelationID)
	assert.Equal(t, 1, rebuilt.Attempt)
}

func TestEventQueue_EnqueueIsIdempotent(t *testing.T) {
	queue, _ := newTestQueue(t)
	ctx := context.Background()

	evt := event.NewEvent(event.TypeEformRetrieved, 1)
	require.NoError(t, queue.Enqueue(ctx, evt))
	require.NoError(t, queue.Enqueue(ctx, evt))

	stats, err := queue.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Pending)
}

func TestEventQueue_EnqueueRejectsInvalidEvent(t *testing.T) {
	queue, _ := newTestQueue(t)
	assert.Error(t, queue.Enqueue(context.Background(), &event.Event{ID: "x", Type: "eform.unknown", CaseID: 1}))
}

func TestEventQueue_ClaimedMessagesAreNotClaimedTwice(t *testing.T) {
	queue, clock := newTestQueue(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		require.NoError(t, queue.Enqueue(ctx, event.NewEvent(event.TypeEformRetrieved, int64(i))))
		clock.Advance(time.Millisecond)
	}

	first, err := queue.Claim(ctx, "w1", 2, time.Minute)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, int64(1), first[0].CaseID)
	assert.Equal(t, int64(2), first[1].CaseID)

	second, err := queue.Claim(ctx, "w2", 10, time.Minute)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, int64(3), second[0].CaseID)

	none, err := queue.Claim(ctx, "w3", 10, time.Minute)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestEventQueue_ExpiredLeaseIsReclaimed(t *testing.T) {
	queue, clock := newTestQueue(t)
	ctx := context.Background()

	require.NoError(t, queue.Enqueue(ctx, event.NewEvent(event.TypeEformCompleted, 1)))
	_, err := queue.Claim(ctx, "w1", 1, 30*time.Second)
	require.NoError(t, err)

	clock.Advance(31 * time.Second)
	claimed, err := queue.Claim(ctx, "w2", 1, 30*time.Second)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, "w2", claimed[0].LockedBy)
	assert.Equal(t, 2, claimed[0].Attempts)
}

func TestEventQueue_Ack(t *testing.T) {
	queue, _ := newTestQueue(t)
	ctx := context.Background()

	require.NoError(t, queue.Enqueue(ctx, event.NewEvent(event.TypeEformCompleted, 1)))
	claimed, err := queue.Claim(ctx, "w1", 1, time.Minute)
	require.NoError(t, err)
	require.NoError(t, queue.Ack(ctx, claimed[0].ID))

	msg, found, err := queue.Get(ctx, claimed[0].ID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, entity.QueueStatusDone, msg.Status)
	assert.Nil(t, msg.LockedUntil)
	assert.Empty(t, msg.LockedBy)

	none, err := queue.Claim(ctx, "w1", 1, time.Minute)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestEventQueue_RetryDelaysRedelivery(t *testing.T) {
	queue, clock := newTestQueue(t)
	ctx := context.Background()

	require.NoError(t, queue.Enqueue(ctx, event.NewEvent(event.TypeEformCompleted, 1)))
	claimed, err := queue.Claim(ctx, "w1", 1, time.Minute)
	require.NoError(t, err)

	require.NoError(t, queue.Retry(ctx, claimed[0].ID, 10*time.Second, "store down"))

	none, err := queue.Claim(ctx, "w1", 1, time.Minute)
	require.NoError(t, err)
	assert.Empty(t, none, "message should not be available before the delay")

	clock.Advance(11 * time.Second)
	again, err := queue.Claim(ctx, "w1", 1, time.Minute)
	require.NoError(t, err)
	require.Len(t, again, 1)
	assert.Equal(t, 2, again[0].Attempts)
	assert.Equal(t, "store down", again[0].LastError)
}

func TestEventQueue_DeadLetter(t *testing.T) {
	queue, _ := newTestQueue(t)
	ctx := context.Background()

	require.NoError(t, queue.Enqueue(ctx, event.NewEvent(event.TypeEformCompleted, 1)))
	claimed, err := queue.Claim(ctx, "w1", 1, time.Minute)
	require.NoError(t, err)
	require.NoError(t, queue.DeadLetter(ctx, claimed[0].ID, "form field not found"))

	msg, _, err := queue.Get(ctx, claimed[0].ID)
	require.NoError(t, err)
	assert.Equal(t, entity.QueueStatusDead, msg.Status)
	assert.Equal(t, "form field not found", msg.LastError)
}

func TestEventQueue_Stats(t *testing.T) {
	queue, _ := newTestQueue(t)
	ctx := context.Background()

	for i := 1; i <= 4; i++ {
		require.NoError(t, queue.Enqueue(ctx, event.NewEvent(event.TypeEformRetrieved, int64(i))))
	}

	claimed, err := queue.Claim(ctx, "w1", 3, time.Minute)
	require.NoError(t, err)
	require.Len(t, claimed, 3)
	require.NoError(t, queue.Ack(ctx, claimed[0].ID))
	require.NoError(t, queue.DeadLetter(ctx, claimed[1].ID, "boom"))

	stats, err := queue.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, entity.QueueStats{Pending: 1, InFlight: 1, Done: 1, Dead: 1}, *stats)
}

func TestEventQueue_GetMissing(t *testing.T) {
	queue, _ := newTestQueue(t)
	_, found, err := queue.Get(context.Background(), 42)
	require.NoError(t, err)
	assert.False(t, found)
}
