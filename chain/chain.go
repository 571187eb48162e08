// Package chain runs an ordered list of stage functions.
//
// A chain has five stages that always execute in this order:
//
//	initially → before → main → after → finally
//
// Within a stage, hooks run in the order they were added.  An error in
// any of the first four stages is handed to the error handler and the
// flow jumps to the finally stage.  Finally hooks always run, every one
// of them, even when an earlier finally hook failed.
//
// An interception predicate may be attached.  It is consulted after
// every initially and before hook; once it reports true the remaining
// before hooks, the main hook and the after hooks are skipped.
package chain

import (
	"context"
	"fmt"
	"sync"

	"github.com/IntellionInc/logos/envelope"

	"go.uber.org/multierr"
)

// Stage identifies where a hook runs.
type Stage int

const (
	Initially Stage = iota
	Before
	Main
	After
	Finally
)

var stageNames = [...]string{"initially", "before", "main", "after", "finally"}

func (s Stage) String() string {
	if s >= 0 && int(s) < len(stageNames) {
		return stageNames[s]
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// Hook is one unit of work.
type Hook func(ctx context.Context) error

// ErrorHandler receives the errors of failed hooks.
type ErrorHandler func(ctx context.Context, stage Stage, err error)

// Chain is the capability of registering stage hooks and running them.
type Chain interface {
	Initially(hooks ...Hook) Chain
	Before(hooks ...Hook) Chain
	Main(hook Hook) Chain
	After(hooks ...Hook) Chain
	Finally(hooks ...Hook) Chain
	Run(ctx context.Context) error
}

// Runner is the standard Chain.
type Runner struct {
	name        string
	lock        sync.Mutex // held when adding hooks
	runLock     sync.Mutex // held when running hooks
	hooks       [Finally + 1][]Hook
	intercepted func() bool
	onError     ErrorHandler
	combiner    func(first, second error) error
	log         envelope.BasicLogger
	halted      bool
}

var _ Chain = &Runner{}

// Option configures a Runner.
type Option func(*Runner)

// WithInterception sets the predicate that short-circuits the chain.
func WithInterception(intercepted func() bool) Option {
	return func(r *Runner) {
		r.intercepted = intercepted
	}
}

// WithErrorHandler routes hook errors to h.  When a handler is set,
// Run returns nil: the handler owns the errors.
func WithErrorHandler(h ErrorHandler) Option {
	return func(r *Runner) {
		r.onError = h
	}
}

// WithErrorCombiner sets how Run merges several errors when there is
// no error handler.  The default keeps all of them with multierr.
func WithErrorCombiner(f func(first, second error) error) Option {
	return func(r *Runner) {
		r.combiner = f
	}
}

// WithLogger sets the logger used to report hook panics.
func WithLogger(log envelope.BasicLogger) Option {
	return func(r *Runner) {
		r.log = log
	}
}

// New creates an empty chain.  The name is used in panic reports.
func New(name string, opts ...Option) *Runner {
	r := &Runner{
		name:     name,
		combiner: multierr.Append,
		log:      envelope.NoLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Runner) add(stage Stage, hooks []Hook) *Runner {
	r.lock.Lock()
	defer r.lock.Unlock()
	for _, h := range hooks {
		if h != nil {
			r.hooks[stage] = append(r.hooks[stage], h)
		}
	}
	return r
}

// Initially adds hooks that run first.
func (r *Runner) Initially(hooks ...Hook) Chain { return r.add(Initially, hooks) }

// Before adds hooks that run before the main hook.
func (r *Runner) Before(hooks ...Hook) Chain { return r.add(Before, hooks) }

// Main sets the main hook, replacing any earlier one.
func (r *Runner) Main(hook Hook) Chain {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.hooks[Main] = nil
	if hook != nil {
		r.hooks[Main] = []Hook{hook}
	}
	return r
}

// After adds hooks that run after a successful main hook.
func (r *Runner) After(hooks ...Hook) Chain { return r.add(After, hooks) }

// Finally adds hooks that always run.
func (r *Runner) Finally(hooks ...Hook) Chain { return r.add(Finally, hooks) }

// Len reports how many hooks are registered for a stage.
func (r *Runner) Len(stage Stage) int {
	r.lock.Lock()
	defer r.lock.Unlock()
	return len(r.hooks[stage])
}

// Halted reports whether the last Run was short-circuited by the
// interception predicate.
func (r *Runner) Halted() bool {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.halted
}

func (r *Runner) String() string { return "chain " + r.name }

// Run executes the stages.  Hooks added while the chain runs are
// picked up only by later stages.
func (r *Runner) Run(ctx context.Context) error {
	r.runLock.Lock()
	defer r.runLock.Unlock()
	r.lock.Lock()
	r.halted = false
	r.lock.Unlock()

	var collected error
	fail := func(stage Stage, err error) {
		if r.onError != nil {
			r.onError(ctx, stage, err)
			return
		}
		if collected == nil {
			collected = err
			return
		}
		collected = r.combiner(collected, err)
	}

	flow := func() {
		for _, stage := range []Stage{Initially, Before} {
			for _, h := range r.stage(stage) {
				if err := r.invoke(ctx, stage, h); err != nil {
					fail(stage, err)
					return
				}
				if r.intercepted != nil && r.intercepted() {
					r.lock.Lock()
					r.halted = true
					r.lock.Unlock()
					return
				}
			}
		}
		for _, stage := range []Stage{Main, After} {
			for _, h := range r.stage(stage) {
				if err := r.invoke(ctx, stage, h); err != nil {
					fail(stage, err)
					return
				}
			}
		}
	}
	flow()

	for _, h := range r.stage(Finally) {
		if err := r.invoke(ctx, Finally, h); err != nil {
			fail(Finally, err)
		}
	}
	return collected
}

func (r *Runner) stage(stage Stage) []Hook {
	r.lock.Lock()
	defer r.lock.Unlock()
	hooks := make([]Hook, len(r.hooks[stage]))
	copy(hooks, r.hooks[stage])
	return hooks
}

func (r *Runner) invoke(ctx context.Context, stage Stage, h Hook) (err error) {
	defer envelope.SetErrorOnPanic(&err, r.log)
	return h(ctx)
}
