package envelope

import (
	"io"
	"net/http"

	"github.com/pkg/errors"
)

// DeferredWriter buffers the status, headers and body of a response
// until Flush is called.  Until then the response can be abandoned
// with Reset and written again, which is how a failed encoding turns
// into an error response.
type DeferredWriter struct {
	base        http.ResponseWriter
	header      http.Header
	resetHeader http.Header
	buffer      []byte
	status      int
	done        bool
}

var _ http.ResponseWriter = &DeferredWriter{}

// NewDeferredWriter wraps w.  The headers already set on w are the
// starting point for the deferred headers.
func NewDeferredWriter(w http.ResponseWriter) *DeferredWriter {
	return &DeferredWriter{
		base:        w,
		header:      w.Header().Clone(),
		resetHeader: w.Header().Clone(),
		buffer:      make([]byte, 0, 4*1024),
	}
}

// Header returns the deferred headers, or the underlying headers
// once flushed.
func (w *DeferredWriter) Header() http.Header {
	if w.done {
		return w.base.Header()
	}
	return w.header
}

func (w *DeferredWriter) Write(b []byte) (int, error) {
	if w.done {
		return w.base.Write(b)
	}
	w.buffer = append(w.buffer, b...)
	return len(b), nil
}

// WriteHeader records the status code.
func (w *DeferredWriter) WriteHeader(statusCode int) {
	if w.done {
		w.base.WriteHeader(statusCode)
		return
	}
	w.status = statusCode
}

// Status returns the recorded status, 0 if none.
func (w *DeferredWriter) Status() int { return w.status }

// Reset discards the buffered body, status and any header changes
// made since construction or the last PreserveHeader.
func (w *DeferredWriter) Reset() {
	w.buffer = w.buffer[:0]
	w.status = 0
	w.header = w.resetHeader.Clone()
}

// PreserveHeader makes the current headers the state Reset returns to.
func (w *DeferredWriter) PreserveHeader() {
	w.resetHeader = w.header.Clone()
}

// Done reports whether Flush has been called.
func (w *DeferredWriter) Done() bool { return w.done }

// UnderlyingWriter returns the wrapped http.ResponseWriter.
func (w *DeferredWriter) UnderlyingWriter() http.ResponseWriter { return w.base }

// Flush sends everything buffered.  After Flush the writer passes
// writes straight through.
func (w *DeferredWriter) Flush() error {
	if w.done {
		return errors.New("deferred writer already flushed")
	}
	w.done = true
	target := w.base.Header()
	for k := range target {
		if _, ok := w.header[k]; !ok {
			delete(target, k)
		}
	}
	for k, v := range w.header {
		target[k] = v
	}
	if w.status != 0 {
		w.base.WriteHeader(w.status)
	}
	for len(w.buffer) > 0 {
		n, err := w.base.Write(w.buffer)
		w.buffer = w.buffer[n:]
		if err == nil {
			continue
		}
		if n > 0 && errors.Is(err, io.ErrShortWrite) {
			continue
		}
		return errors.Wrap(err, "flush response")
	}
	return nil
}
