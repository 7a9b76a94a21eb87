package native

import (
	"sync"
	"time"
)

// syncEvent is the portable manual-reset event used by the software
// implementation. On Windows the fence path can wrap a real OS handle
// instead (see event_windows.go).
type syncEvent struct {
	mu        sync.Mutex
	ch        chan struct{}
	set       bool
	destroyed bool
}

// NewEvent returns an unset manual-reset event.
func NewEvent() Event {
	return &syncEvent{ch: make(chan struct{})}
}

func (e *syncEvent) Set() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.set && !e.destroyed {
		e.set = true
		close(e.ch)
	}
}

func (e *syncEvent) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.set && !e.destroyed {
		e.set = false
		e.ch = make(chan struct{})
	}
}

func (e *syncEvent) Wait(timeoutMS uint32) WaitStatus {
	e.mu.Lock()
	if e.destroyed {
		e.mu.Unlock()
		return WaitFailed
	}
	set := e.set
	ch := e.ch
	e.mu.Unlock()

	if set {
		return WaitObject0
	}
	switch timeoutMS {
	case 0:
		return WaitTimeout
	case InfiniteTimeout:
		<-ch
		return WaitObject0
	default:
		select {
		case <-ch:
			return WaitObject0
		case <-time.After(time.Duration(timeoutMS) * time.Millisecond):
			return WaitTimeout
		}
	}
}

func (e *syncEvent) Destroy() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.destroyed {
		return
	}
	e.destroyed = true
	if !e.set {
		// Unblock pending waiters; they observe the destroyed flag on
		// their next wait.
		close(e.ch)
	}
}
