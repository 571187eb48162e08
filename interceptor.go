package logos

import (
	"context"

	"github.com/IntellionInc/logos/chain"
	"github.com/IntellionInc/logos/envelope"
)

// Outcome is what a protocol reports.
type Outcome struct {
	Success bool
	Data    any
	Error   error
	Errors  []error
}

// Succeed is a successful Outcome.
func Succeed(data any) Outcome {
	return Outcome{Success: true, Data: data}
}

// Fail is a failed Outcome.
func Fail(err error) Outcome {
	return Outcome{Error: err}
}

// Protocol decides whether a request may proceed.
type Protocol func(ctx context.Context, c *Controller) Outcome

// InterceptorFactory builds a fresh interceptor for one controller.
type InterceptorFactory func(c *Controller) *Interceptor

// Yield is an interceptor's summary of its protocol run.
type Yield struct {
	Success bool     `json:"success" yaml:"success"`
	Data    any      `json:"data,omitempty" yaml:"data,omitempty"`
	Error   string   `json:"error,omitempty" yaml:"error,omitempty"`
	Errors  []string `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// Interceptor runs a protocol ahead of a controller's handler.  When
// the protocol fails the controller is intercepted: its status becomes
// the interceptor's failure status and its response carries the
// failure message.
type Interceptor struct {
	name     string
	protocol Protocol
	status   int
	message  func(Outcome) string
	outcome  Outcome
	yield    Yield
	done     bool
}

// NewInterceptor builds an interceptor.  message chooses the
// interception text from the failed outcome.
func NewInterceptor(name string, protocol Protocol, status int, message func(Outcome) string) *Interceptor {
	return &Interceptor{
		name:     name,
		protocol: protocol,
		status:   status,
		message:  message,
	}
}

// StaticMessage always reports text.
func StaticMessage(text string) func(Outcome) string {
	return func(Outcome) string { return text }
}

// AuthInterceptor runs the controller's authentication protocol.
func AuthInterceptor(c *Controller) *Interceptor {
	return NewInterceptor("auth", c.def.authProtocol(), StatusUnauthorized, StaticMessage("Unauthorized"))
}

// ValidationInterceptor runs the controller's validation protocol.
// The interception text is the validation error's message when there
// is one.
func ValidationInterceptor(c *Controller) *Interceptor {
	return NewInterceptor("validation", c.def.validationProtocol(), StatusBadRequest, func(o Outcome) string {
		if o.Error != nil && o.Error.Error() != "" {
			return o.Error.Error()
		}
		if len(o.Errors) > 0 && o.Errors[0] != nil {
			return o.Errors[0].Error()
		}
		return "Invalid arguments"
	})
}

// Name is the interceptor's label.
func (i *Interceptor) Name() string { return i.name }

// Outcome is the protocol's report.  Valid after Exec.
func (i *Interceptor) Outcome() Outcome { return i.outcome }

// Yield is valid after Exec.
func (i *Interceptor) Yield() Yield { return i.yield }

// Exec runs the protocol for c.  It never fails: a protocol that
// returns an error, or panics, counts as a failed outcome.
func (i *Interceptor) Exec(ctx context.Context, c *Controller) error {
	if i.done {
		return nil
	}
	i.done = true
	run := chain.New("interceptor "+i.name,
		chain.WithLogger(c.log),
		chain.WithErrorHandler(func(_ context.Context, _ chain.Stage, err error) {
			i.outcome = Fail(err)
		}))
	run.Main(func(ctx context.Context) error {
		if i.protocol == nil {
			i.outcome = Succeed(nil)
			return nil
		}
		return envelope.CatchPanic(c.log, func() error {
			i.outcome = i.protocol(ctx, c)
			return nil
		})
	})
	run.Finally(
		func(context.Context) error { return i.setControllerStatus(c) },
		func(context.Context) error { return i.setControllerInterception(c) },
		i.setYield,
	)
	return run.Run(ctx)
}

func (i *Interceptor) setControllerStatus(c *Controller) error {
	if !i.outcome.Success {
		c.fail(i.status)
	}
	return nil
}

func (i *Interceptor) setControllerInterception(c *Controller) error {
	if !i.outcome.Success {
		c.intercepted = true
		c.interception = i.message(i.outcome)
	}
	return nil
}

func (i *Interceptor) setYield(context.Context) error {
	i.yield = Yield{
		Success: i.outcome.Success,
		Data:    i.outcome.Data,
	}
	if i.outcome.Error != nil {
		i.yield.Error = i.outcome.Error.Error()
	}
	for _, err := range i.outcome.Errors {
		if err != nil {
			i.yield.Errors = append(i.yield.Errors, err.Error())
		}
	}
	return nil
}
