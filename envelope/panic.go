package envelope

import (
	"fmt"
	"runtime/debug"

	"github.com/pkg/errors"
)

// PanicError is what a recovered panic turns into.  Value is whatever
// was passed to panic and Stack is the goroutine stack at recovery.
type PanicError struct {
	Value interface{}
	Stack string
}

func (err *PanicError) Error() string { return "panic: " + fmt.Sprint(err.Value) }

// ErrorName is used by error dictionaries.
func (err *PanicError) ErrorName() string { return "PanicError" }

// Unwrap exposes the panic value when it was itself an error.
func (err *PanicError) Unwrap() error {
	if e, ok := err.Value.(error); ok {
		return e
	}
	return nil
}

// SetErrorOnPanic must be deferred.  When the surrounding function
// panics, *ep is replaced by a *PanicError and the panic is logged.
func SetErrorOnPanic(ep *error, log BasicLogger) {
	r := recover()
	if r == nil {
		return
	}
	pe := &PanicError{Value: r, Stack: string(debug.Stack())}
	*ep = errors.WithStack(pe)
	log.Error("recovered panic", map[string]interface{}{
		"value": fmt.Sprint(r),
		"stack": pe.Stack,
	})
	if flusher, ok := log.(LogFlusher); ok {
		flusher.Flush()
	}
}

// CatchPanic runs fn and returns its error, or a *PanicError if fn
// panics.
func CatchPanic(log BasicLogger, fn func() error) (err error) {
	defer SetErrorOnPanic(&err, log)
	return fn()
}

// AsPanic finds the *PanicError in err's chain.
func AsPanic(err error) (*PanicError, bool) {
	var pe *PanicError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
