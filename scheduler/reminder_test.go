package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dmarquez/tasknestbackend/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type fakeTodoSource struct {
	mu       sync.Mutex
	due      []models.Todo
	marked   []bson.ObjectID
	cleared  []bson.ObjectID
	queried  int
	queryGo  chan struct{} // when set, DueWithin blocks until closed
	queryHit chan struct{} // signals DueWithin was entered
}

func (f *fakeTodoSource) DueWithin(_ context.Context, _ time.Duration) ([]models.Todo, error) {
	f.mu.Lock()
	f.queried++
	f.mu.Unlock()
	if f.queryHit != nil {
		close(f.queryHit)
	}
	if f.queryGo != nil {
		<-f.queryGo
	}
	return f.due, nil
}

func (f *fakeTodoSource) MarkReminded(_ context.Context, ids []bson.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.marked = append(f.marked, ids...)
	return nil
}

func (f *fakeTodoSource) ClearReminded(_ context.Context, ids []bson.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared = append(f.cleared, ids...)
	return nil
}

func (f *fakeTodoSource) queries() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queried
}

type fakeNotifier struct {
	failFor  map[bson.ObjectID]bool
	notified []bson.ObjectID
}

func (n *fakeNotifier) NotifyDue(_ context.Context, todo models.Todo) error {
	if n.failFor[todo.ID] {
		return errors.New("smtp unavailable")
	}
	n.notified = append(n.notified, todo.ID)
	return nil
}

func dueTodo() models.Todo {
	due := time.Now().Add(30 * time.Minute)
	return models.Todo{
		ID:      bson.NewObjectID(),
		OwnerID: bson.NewObjectID(),
		Title:   "file expense report",
		DueDate: &due,
	}
}

func TestReminderMarksBeforeNotify(t *testing.T) {
	a, b := dueTodo(), dueTodo()
	src := &fakeTodoSource{due: []models.Todo{a, b}}
	n := &fakeNotifier{}

	NewReminder(src, n, time.Hour).Run()

	assert.ElementsMatch(t, []bson.ObjectID{a.ID, b.ID}, src.marked)
	assert.ElementsMatch(t, []bson.ObjectID{a.ID, b.ID}, n.notified)
	assert.Empty(t, src.cleared)
}

func TestReminderRevertsFailedDispatch(t *testing.T) {
	ok, bad := dueTodo(), dueTodo()
	src := &fakeTodoSource{due: []models.Todo{ok, bad}}
	n := &fakeNotifier{failFor: map[bson.ObjectID]bool{bad.ID: true}}

	NewReminder(src, n, time.Hour).Run()

	// Both were flagged up front, but only the failed one is reverted so
	// it gets retried on a later tick.
	assert.ElementsMatch(t, []bson.ObjectID{ok.ID, bad.ID}, src.marked)
	assert.Equal(t, []bson.ObjectID{bad.ID}, src.cleared)
	assert.Equal(t, []bson.ObjectID{ok.ID}, n.notified)
}

func TestReminderSkipsOverlappingTick(t *testing.T) {
	src := &fakeTodoSource{
		due:      []models.Todo{dueTodo()},
		queryGo:  make(chan struct{}),
		queryHit: make(chan struct{}),
	}
	n := &fakeNotifier{}
	r := NewReminder(src, n, time.Hour)

	done := make(chan struct{})
	go func() {
		r.Run()
		close(done)
	}()

	// Wait for the first tick to be mid-flight, then fire a second one.
	<-src.queryHit
	r.Run()
	assert.Equal(t, 1, src.queries(), "overlapping tick must be skipped, not queued")

	close(src.queryGo)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("first run did not finish")
	}

	// With the first run finished, the next tick proceeds normally.
	src.queryGo = nil
	src.queryHit = nil
	r.Run()
	require.Equal(t, 2, src.queries())
}

func TestReminderNoDueTodos(t *testing.T) {
	src := &fakeTodoSource{}
	n := &fakeNotifier{}

	NewReminder(src, n, time.Hour).Run()

	assert.Empty(t, src.marked)
	assert.Empty(t, n.notified)
}
