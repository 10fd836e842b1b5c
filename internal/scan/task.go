package scan

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// ErrNotFinished is returned by Result before the task is done.
var ErrNotFinished = errors.New("scan task not finished")

// Task is one in-flight scan. Done is closed when the scan finished or was
// abandoned; a cancelled task never delivers a result.
type Task struct {
	ID   string
	Path string

	parent    context.Context
	ctx       context.Context
	cancel    context.CancelFunc
	cancelled atomic.Bool

	done   chan struct{}
	once   sync.Once
	result Result
	err    error
}

func newTask(parent context.Context, path string) *Task {
	ctx, cancel := context.WithCancel(parent)
	return &Task{
		ID:     uuid.New().String(),
		Path:   path,
		parent: parent,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Done is closed once the result is available.
func (t *Task) Done() <-chan struct{} { return t.done }

// Cancel marks the task cancelled and aborts the detection in progress.
func (t *Task) Cancel() {
	t.cancelled.Store(true)
	t.cancel()
}

// Cancelled reports whether the task was cancelled, either by Cancel or
// because its parent context ended while it ran.
func (t *Task) Cancelled() bool {
	return t.cancelled.Load()
}

// Result returns the outcome. It must only be called after Done is closed.
func (t *Task) Result() (Result, error) {
	select {
	case <-t.done:
	default:
		return Result{}, ErrNotFinished
	}
	if t.Cancelled() {
		return Result{}, ErrCancelled
	}
	return t.result, t.err
}

// Wait blocks until the task is done or ctx ends. Ending ctx does not cancel
// the task.
func (t *Task) Wait(ctx context.Context) (Result, error) {
	select {
	case <-t.done:
		return t.Result()
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

func (t *Task) finish(res Result, err error) {
	t.once.Do(func() {
		t.result, t.err = res, err
		t.cancel()
		close(t.done)
	})
}
