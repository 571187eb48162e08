package server

import (
	"sync"
	"sync/atomic"
)

// Order is the direction callbacks of a hook are invoked in, relative
// to registration.
type Order int

const (
	Forward Order = iota
	Reverse
)

func (o Order) String() string {
	if o == Reverse {
		return "reverse"
	}
	return "forward"
}

var lastHookID atomic.Int32

// Hook names a lifecycle phase.  Callbacks are registered against a
// hook on an App; the hook itself only carries how they are run.
type Hook struct {
	ID   int32
	Name string

	lock         sync.Mutex
	order        Order
	onError      []*Hook
	continuePast bool
	combine      func(first, second error) error
}

// NewHook creates a phase with its own ID.
func NewHook(name string, order Order) *Hook {
	return &Hook{ID: lastHookID.Add(1), Name: name, order: order}
}

// Copy returns a hook with the same settings and a new ID, so it has
// no callbacks of its own.
func (h *Hook) Copy() *Hook {
	order, continuePast, combine, onError := h.settings()
	return &Hook{
		ID:           lastHookID.Add(1),
		Name:         h.Name,
		order:        order,
		onError:      onError,
		continuePast: continuePast,
		combine:      combine,
	}
}

// OnError adds a hook to run when this one fails.  A nil argument
// clears the list.
func (h *Hook) OnError(next *Hook) *Hook {
	h.lock.Lock()
	defer h.lock.Unlock()
	if next == nil {
		h.onError = nil
		return h
	}
	h.onError = append(h.onError, next)
	return h
}

// SetErrorCombiner merges the errors of several failing callbacks.
// Without one, the first error is kept.
func (h *Hook) SetErrorCombiner(f func(first, second error) error) *Hook {
	h.lock.Lock()
	defer h.lock.Unlock()
	h.combine = f
	return h
}

// ContinuePastError keeps invoking callbacks after one has failed.
func (h *Hook) ContinuePastError(b bool) *Hook {
	h.lock.Lock()
	defer h.lock.Unlock()
	h.continuePast = b
	return h
}

func (h *Hook) String() string { return "hook " + h.Name }

func (h *Hook) settings() (Order, bool, func(first, second error) error, []*Hook) {
	h.lock.Lock()
	defer h.lock.Unlock()
	return h.order, h.continuePast, h.combine, append([]*Hook(nil), h.onError...)
}

// Shutdown releases what Start acquired.  Stop leads to Shutdown on
// error; a failed Start leads to Stop.
var (
	Shutdown = NewHook("shutdown", Reverse)
	Stop     = NewHook("stop", Reverse).OnError(Shutdown).ContinuePastError(true)
	Start    = NewHook("start", Forward).OnError(Stop)
)
