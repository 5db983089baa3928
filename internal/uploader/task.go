package uploader

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Task is one in-flight or finished upload. Progress and completion are
// separate signals: Progress delivers percentages (best effort, latest wins)
// and is closed on completion; Done is closed once URL and Err are final.
type Task struct {
	ID           string
	Slot         string
	OriginalName string
	// Name is the renamed file, Key its storage key.
	Name     string
	Key      string
	Category string

	progress chan int
	done     chan struct{}
	cancel   context.CancelFunc

	mu      sync.Mutex
	closed  bool
	percent int
	url     string
	err     error
}

func newTask(slot, original, renamed, category string) *Task {
	return &Task{
		ID:           uuid.NewString(),
		Slot:         slot,
		OriginalName: original,
		Name:         renamed,
		Key:          ObjectKey(renamed),
		Category:     category,
		progress:     make(chan int, 8),
		done:         make(chan struct{}),
		cancel:       func() {},
	}
}

// NewFinishedTask returns a task that is already complete. Useful for
// attachments restored from elsewhere and in tests.
func NewFinishedTask(slot, original, renamed, url string, err error) *Task {
	t := newTask(slot, original, renamed, Category(slot))
	t.finish(url, err)
	return t
}

func (t *Task) Progress() <-chan int { return t.progress }

func (t *Task) Done() <-chan struct{} { return t.done }

// Percent is the latest progress value, 100 once finished successfully.
func (t *Task) Percent() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.percent
}

// URL is the retrievable link; empty until the upload succeeded.
func (t *Task) URL() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.url
}

func (t *Task) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Finished reports whether the task has completed, successfully or not.
func (t *Task) Finished() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the task finishes or ctx is done.
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Cancel aborts a transfer still in flight.
func (t *Task) Cancel() {
	t.cancel()
}

func (t *Task) report(pct int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed || pct <= t.percent {
		return
	}
	t.percent = pct
	select {
	case t.progress <- pct:
	default:
	}
}

func (t *Task) finish(url string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.closed = true
	t.url = url
	t.err = err
	if err == nil {
		t.percent = 100
		select {
		case t.progress <- 100:
		default:
		}
	}
	close(t.progress)
	close(t.done)
}
