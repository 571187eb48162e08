package server

import (
	"context"
	"sync"

	"github.com/IntellionInc/logos/envelope"
)

// Callback is invoked when its hook runs.
type Callback func(ctx context.Context) error

// App collects the start and stop callbacks of the libraries a service
// uses.
type App struct {
	lock    sync.Mutex // held when adding hooks
	runLock sync.Mutex // held when running hooks
	hooks   map[int32][]Callback
	log     envelope.BasicLogger
}

// NewApp creates an App with no callbacks.
func NewApp(log envelope.BasicLogger) *App {
	if log == nil {
		log = envelope.NoLogger()
	}
	return &App{
		hooks: make(map[int32][]Callback),
		log:   log,
	}
}

// On registers a callback for a hook.  Callbacks may register further
// callbacks, for example a start callback can register a stop
// callback.
func (app *App) On(h *Hook, callbacks ...Callback) *App {
	app.lock.Lock()
	defer app.lock.Unlock()
	for _, cb := range callbacks {
		if cb != nil {
			app.hooks[h.ID] = append(app.hooks[h.ID], cb)
		}
	}
	return app
}

// Do invokes the callbacks for a hook.  It returns only the first error
// reported unless the hook provides an error combiner.
func (app *App) Do(ctx context.Context, h *Hook) error {
	app.runLock.Lock()
	defer app.runLock.Unlock()
	return app.do(ctx, h)
}

func (app *App) do(ctx context.Context, h *Hook) error {
	order, continuePast, ec, onError := h.settings()
	if ec == nil {
		ec = func(err, _ error) error { return err }
	}
	ecw := func(e1, e2 error) error {
		if e1 == nil {
			return e2
		}
		if e2 == nil {
			return e1
		}
		return ec(e1, e2)
	}
	app.lock.Lock()
	callbacks := make([]Callback, len(app.hooks[h.ID]))
	copy(callbacks, app.hooks[h.ID])
	app.lock.Unlock()

	app.log.Debug("Running hook", map[string]interface{}{
		"hook":      h.Name,
		"callbacks": len(callbacks),
	})
	var err error
	run := func(cb Callback) {
		err = ecw(err, envelope.CatchPanic(app.log, func() error { return cb(ctx) }))
	}
	if order == Forward {
		for _, cb := range callbacks {
			run(cb)
			if err != nil && !continuePast {
				break
			}
		}
	} else {
		for i := len(callbacks) - 1; i >= 0; i-- {
			run(callbacks[i])
			if err != nil && !continuePast {
				break
			}
		}
	}
	if err != nil {
		app.log.Warn("Hook failed", map[string]interface{}{
			"hook":  h.Name,
			"error": err.Error(),
		})
		for _, oe := range onError {
			err = ecw(err, app.do(ctx, oe))
		}
	}
	return err
}
