package persist

import (
	"context"
	"sync"

	"github.com/dshills/mathboard/internal/board"
)

// Autosaver saves snapshots in the background. Scheduling never blocks;
// when saves fall behind, only the latest scheduled snapshot is written.
type Autosaver struct {
	gw      *Gateway
	onError func(error)

	mu        sync.Mutex
	pending   *board.Snapshot
	scheduled uint64 // sequence number of the latest Schedule
	saved     uint64 // sequence number covered by the latest finished save
	lastErr   error
	progress  chan struct{} // closed and replaced after every save
	closed    bool

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
}

// AutosaveOption configures an Autosaver.
type AutosaveOption func(*Autosaver)

// WithErrorHandler registers fn to be called with every failed save.
func WithErrorHandler(fn func(error)) AutosaveOption {
	return func(a *Autosaver) {
		a.onError = fn
	}
}

// NewAutosaver starts a background saver writing through gw.
func NewAutosaver(gw *Gateway, opts ...AutosaveOption) *Autosaver {
	a := &Autosaver{
		gw:       gw,
		progress: make(chan struct{}),
		wake:     make(chan struct{}, 1),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	go a.run()
	return a
}

// Schedule queues a copy of s for saving and returns immediately. It
// returns false once the autosaver is closed.
func (a *Autosaver) Schedule(s *board.Snapshot) bool {
	if s == nil {
		return false
	}

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return false
	}
	a.pending = s.Clone()
	a.scheduled++
	a.mu.Unlock()

	select {
	case a.wake <- struct{}{}:
	default:
	}
	return true
}

// Flush waits until every snapshot scheduled before the call has been
// saved, and returns the error of the last save.
func (a *Autosaver) Flush(ctx context.Context) error {
	a.mu.Lock()
	target := a.scheduled
	a.mu.Unlock()

	for {
		a.mu.Lock()
		if a.saved >= target {
			err := a.lastErr
			a.mu.Unlock()
			return err
		}
		ch := a.progress
		a.mu.Unlock()

		select {
		case <-ch:
		case <-a.done:
			a.mu.Lock()
			caught := a.saved >= target
			err := a.lastErr
			a.mu.Unlock()
			if !caught {
				return ErrClosed
			}
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Pending reports whether a scheduled snapshot has not been saved yet,
// including one being written right now.
func (a *Autosaver) Pending() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.saved < a.scheduled
}

// Close saves any pending snapshot and stops the background goroutine.
func (a *Autosaver) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		<-a.done
		return nil
	}
	a.closed = true
	a.mu.Unlock()

	close(a.stop)
	<-a.done

	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastErr
}

func (a *Autosaver) run() {
	defer close(a.done)
	for {
		select {
		case <-a.wake:
			a.saveOnce()
		case <-a.stop:
			a.saveOnce()
			return
		}
	}
}

func (a *Autosaver) saveOnce() {
	a.mu.Lock()
	snap, seq := a.pending, a.scheduled
	a.pending = nil
	a.mu.Unlock()

	if snap == nil {
		return
	}

	err := a.gw.Save(context.Background(), snap)
	if err != nil {
		a.gw.logger.Error("autosave failed", "error", err)
		if a.onError != nil {
			a.onError(err)
		}
	}

	a.mu.Lock()
	a.saved = seq
	a.lastErr = err
	close(a.progress)
	a.progress = make(chan struct{})
	a.mu.Unlock()
}
