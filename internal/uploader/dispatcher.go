package uploader

import (
	"context"
	"sync"
)

// Dispatcher hands an outcome notification over to the execution context the caller wants it on.
type Dispatcher interface {
	Dispatch(fn func())
}

type DispatcherFunc func(fn func())

func (f DispatcherFunc) Dispatch(fn func()) {
	f(fn)
}

// Inline runs notifications on the goroutine that finished the upload.
var Inline Dispatcher = DispatcherFunc(func(fn func()) { fn() })

// MainLoop is a serial FIFO queue of notifications, run by whichever goroutine calls Run.
// Dispatch never blocks.
type MainLoop struct {
	mu      sync.Mutex
	pending []func()
	wake    chan struct{}
}

func NewMainLoop() *MainLoop {
	return &MainLoop{wake: make(chan struct{}, 1)}
}

func (l *MainLoop) Dispatch(fn func()) {
	l.mu.Lock()
	l.pending = append(l.pending, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Run executes queued notifications until ctx is done.
func (l *MainLoop) Run(ctx context.Context) error {
	for {
		for _, fn := range l.drain() {
			fn()
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}

func (l *MainLoop) drain() []func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	batch := l.pending
	l.pending = nil
	return batch
}
