package deviceinfo

import (
	"context"
	"fmt"
	"sync"
)

// Dispatcher runs work on the single UI-affine goroutine.
type Dispatcher interface {
	// Invoke runs fn on the dispatcher goroutine and waits for it to return.
	Invoke(ctx context.Context, fn func()) error

	// Post queues fn without waiting.
	Post(fn func()) error
}

// defaultDispatcherQueue is the queue size used when NewLoopDispatcher is
// given a non-positive size.
const defaultDispatcherQueue = 64

// LoopDispatcher is a Dispatcher backed by one goroutine draining a
// bounded queue. It is unbound until Run is called and again after Run
// returns; while unbound Invoke and Post return ErrDispatcherUnavailable.
type LoopDispatcher struct {
	queue chan func()

	mu      sync.RWMutex
	running bool
	stopped chan struct{} // closed when the current Run returns

	logger Logger
}

// NewLoopDispatcher creates a dispatcher with the given queue size.
func NewLoopDispatcher(size int) *LoopDispatcher {
	if size <= 0 {
		size = defaultDispatcherQueue
	}
	return &LoopDispatcher{
		queue:  make(chan func(), size),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the dispatcher.
func (d *LoopDispatcher) SetLogger(logger Logger) {
	d.logger = logger
}

// Run drains the queue until ctx is cancelled. Only one Run may be active;
// a second concurrent call returns immediately with an error.
func (d *LoopDispatcher) Run(ctx context.Context) error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return fmt.Errorf("deviceinfo: dispatcher already running")
	}
	d.running = true
	stopped := make(chan struct{})
	d.stopped = stopped
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		d.running = false
		d.mu.Unlock()
		close(stopped)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case fn := <-d.queue:
			d.run(fn)
		}
	}
}

// Running reports whether a Run loop is bound.
func (d *LoopDispatcher) Running() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.running
}

func (d *LoopDispatcher) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("dispatcher task panicked", "panic", r)
		}
	}()
	fn()
}

// Post queues fn. It returns ErrDispatcherBusy when the queue is full.
func (d *LoopDispatcher) Post(fn func()) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if !d.running {
		return ErrDispatcherUnavailable
	}
	select {
	case d.queue <- fn:
		return nil
	default:
		return ErrDispatcherBusy
	}
}

// Invoke queues fn and waits for it to finish. A panic in fn is returned
// as an error. If the loop stops before fn runs, Invoke returns
// ErrDispatcherUnavailable.
func (d *LoopDispatcher) Invoke(ctx context.Context, fn func()) error {
	d.mu.RLock()
	if !d.running {
		d.mu.RUnlock()
		return ErrDispatcherUnavailable
	}
	stopped := d.stopped
	d.mu.RUnlock()

	done := make(chan error, 1)
	task := func() {
		var err error
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("deviceinfo: dispatched task panicked: %v", r)
			}
			done <- err
		}()
		fn()
	}

	select {
	case d.queue <- task:
	case <-ctx.Done():
		return ctx.Err()
	case <-stopped:
		return ErrDispatcherUnavailable
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-stopped:
		// The task may have completed just before the loop exited.
		select {
		case err := <-done:
			return err
		default:
			return ErrDispatcherUnavailable
		}
	}
}
