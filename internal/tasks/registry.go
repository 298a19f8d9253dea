package tasks

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/desertthunder/dlbot/internal/shared"
)

var (
	// ErrTaskActive is returned when a user submits while a previous task is still running.
	ErrTaskActive = errors.New("a download is already running for this user")
	// ErrCancelled is returned by jobs stopped through [Registry.Cancel].
	ErrCancelled = errors.New("download cancelled")
)

// Task is one running download owned by a user.
type Task struct {
	ID        string
	UserID    int64
	Label     string
	OutDir    string
	StartedAt time.Time

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func newTask(ctx context.Context, userID int64, label, outDir string) (*Task, context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	return &Task{
		ID:        shared.GenerateID(),
		UserID:    userID,
		Label:     label,
		OutDir:    outDir,
		StartedAt: time.Now(),
		cancel:    cancel,
		done:      make(chan struct{}),
	}, ctx
}

// Done is closed once the task has finished.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Finished reports whether the task has ended.
func (t *Task) Finished() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

func (t *Task) finish() {
	t.once.Do(func() {
		t.cancel()
		close(t.done)
	})
}

// Registry maps user ids to their running task.
type Registry struct {
	mu    sync.Mutex
	tasks map[int64]*Task
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{tasks: make(map[int64]*Task)}
}

// Register stores task for its user. It fails with [ErrTaskActive] while an unfinished task is stored.
func (r *Registry) Register(task *Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.tasks[task.UserID]; ok && !prev.Finished() {
		return ErrTaskActive
	}
	r.tasks[task.UserID] = task
	return nil
}

// Cancel requests cancellation of the user's task. It returns false when there is
// no task or the task already finished.
func (r *Registry) Cancel(userID int64) bool {
	r.mu.Lock()
	task, ok := r.tasks[userID]
	r.mu.Unlock()

	if !ok || task.Finished() {
		return false
	}
	task.cancel()
	return true
}

// Unregister removes the user's entry. Removing a missing entry is a no-op.
// Callers unregister before finishing the task: Register only replaces finished
// tasks, so until then the entry cannot belong to a newer submission.
func (r *Registry) Unregister(userID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tasks, userID)
}

// Active returns the user's unfinished task.
func (r *Registry) Active(userID int64) (*Task, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[userID]
	if !ok || task.Finished() {
		return nil, false
	}
	return task, true
}

// Len returns the number of registered tasks.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tasks)
}
