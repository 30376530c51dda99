// Package scheduler runs the periodic background jobs: due-task reminders
// and expired refresh-token garbage collection.
package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/dmarquez/tasknestbackend/models"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type TodoSource interface {
	DueWithin(ctx context.Context, window time.Duration) ([]models.Todo, error)
	MarkReminded(ctx context.Context, ids []bson.ObjectID) error
	ClearReminded(ctx context.Context, ids []bson.ObjectID) error
}

type Notifier interface {
	NotifyDue(ctx context.Context, todo models.Todo) error
}

// Reminder sends due-soon notifications. Todos are flagged reminded before
// dispatch so a crash mid-batch cannot double-send; todos whose dispatch
// fails get the flag reverted and are retried on a later tick.
type Reminder struct {
	todos     TodoSource
	notifier  Notifier
	lookahead time.Duration

	mu      sync.Mutex
	running bool
}

func NewReminder(todos TodoSource, notifier Notifier, lookahead time.Duration) *Reminder {
	return &Reminder{
		todos:     todos,
		notifier:  notifier,
		lookahead: lookahead,
	}
}

// Run executes one tick. If a previous run is still in progress the tick
// is skipped entirely, not queued.
func (r *Reminder) Run() {
	if !r.tryStart() {
		log.Println("reminder: previous run still in progress, skipping tick")
		return
	}
	defer r.finish()

	ctx := context.Background()

	due, err := r.todos.DueWithin(ctx, r.lookahead)
	if err != nil {
		log.Printf("reminder: due query failed: %v", err)
		return
	}
	if len(due) == 0 {
		return
	}

	ids := make([]bson.ObjectID, 0, len(due))
	for _, t := range due {
		ids = append(ids, t.ID)
	}
	if err := r.todos.MarkReminded(ctx, ids); err != nil {
		log.Printf("reminder: mark failed: %v", err)
		return
	}

	var failed []bson.ObjectID
	for _, t := range due {
		if err := r.notifier.NotifyDue(ctx, t); err != nil {
			log.Printf("reminder: notify for todo %s failed: %v", t.ID.Hex(), err)
			failed = append(failed, t.ID)
		}
	}

	if len(failed) > 0 {
		if err := r.todos.ClearReminded(ctx, failed); err != nil {
			log.Printf("reminder: revert failed: %v", err)
		}
	}
}

func (r *Reminder) tryStart() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return false
	}
	r.running = true
	return true
}

func (r *Reminder) finish() {
	r.mu.Lock()
	r.running = false
	r.mu.Unlock()
}
