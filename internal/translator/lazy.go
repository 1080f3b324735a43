package translator

import (
	"context"
	"sync"
	"sync/atomic"
)

// lazyInit runs a load function at most once until it succeeds or fails
// for good. Fast path reads the state without the lock; the slow path
// rechecks under the lock before loading.
type lazyInit struct {
	state atomic.Int32
	mu    sync.Mutex
	err   error
}

func (l *lazyInit) State() InitState {
	return InitState(l.state.Load())
}

// Do returns nil once loaded and the remembered error once failed. The
// load runs detached from ctx cancellation, so its outcome is kept whatever
// happened to the caller that started it. A Reset during the load wins:
// the outcome is returned to this caller but not stored.
func (l *lazyInit) Do(ctx context.Context, load func(ctx context.Context) error) error {
	if l.State() == Ready {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.State() {
	case Ready:
		return nil
	case Failed:
		return l.err
	}

	l.state.Store(int32(Loading))
	if err := load(context.WithoutCancel(ctx)); err != nil {
		if l.state.CompareAndSwap(int32(Loading), int32(Failed)) {
			l.err = err
		}
		return err
	}
	l.state.CompareAndSwap(int32(Loading), int32(Ready))
	return nil
}

// Reset returns the state to NotLoaded without waiting for a load in
// flight.
func (l *lazyInit) Reset() {
	l.state.Store(int32(NotLoaded))
}
