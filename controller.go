package logos

import (
	"context"
	"fmt"

	"github.com/IntellionInc/logos/chain"
	"github.com/IntellionInc/logos/dto"
	"github.com/IntellionInc/logos/envelope"
	"github.com/IntellionInc/logos/schema"
	"github.com/IntellionInc/logos/serializer"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// MaxTranslations bounds how many chained known errors are followed
// before giving up with an internal error.
const MaxTranslations = 16

// Controller handles one request.  Build it with Definition.New, pick
// a method with Controls, add behavior with the other builders, then
// call Exec once.
//
// Exec runs these stages:
//
//	setup      interceptors, in the order they were added
//	control    the handler
//	serialize  the result, when a schema is attached
//	finally    status, response shaping, send
//
// A failed interceptor skips control and serialize.  Any failure ends
// in a payload being sent; nothing is returned to the transport other
// than a failure to send.
type Controller struct {
	def        *Definition
	request    *Request
	response   Responder
	log        envelope.BasicLogger
	production bool
	chain      *chain.Runner

	method       string
	handler      HandlerFunc
	errors       ErrorDictionary
	dtos         dto.Set
	serializer   *schema.Schema
	interceptors []*Interceptor

	status       int
	meta         map[string]any
	intercepted  bool
	interception string
	controlled   any
	serialized   any
	serializes   bool
	yield        any

	executed bool
	sendErr  error
}

// Option configures one controller instance.
type Option func(*Controller)

// WithInstanceErrors adds translations that take precedence over the
// class dictionary for this instance only.
func WithInstanceErrors(dict ErrorDictionary) Option {
	return func(c *Controller) {
		c.errors = c.errors.Merge(dict)
	}
}

// WithRequestDTOs adds DTOs for this instance.
func WithRequestDTOs(set dto.Set) Option {
	return func(c *Controller) {
		c.dtos = c.dtos.Merge(set)
	}
}

// WithRequestLogger overrides the definition's logger.
func WithRequestLogger(log envelope.BasicLogger) Option {
	return func(c *Controller) {
		c.log = log
	}
}

// WithProduction overrides whether stacks are hidden from failure
// payloads.
func WithProduction(production bool) Option {
	return func(c *Controller) {
		c.production = production
	}
}

func newController(d *Definition, req *Request, res Responder, opts []Option) *Controller {
	if req == nil {
		req = &Request{}
	}
	c := &Controller{
		def:        d,
		request:    req,
		response:   res,
		log:        d.log,
		production: d.production,
		errors:     ErrorDictionary{},
		dtos:       dto.Set{}.Merge(d.dtos),
		serializer: d.serializer,
		status:     StatusSuccess,
		meta:       map[string]any{},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.chain = chain.New("controller "+d.name,
		chain.WithLogger(c.log),
		chain.WithInterception(func() bool { return c.intercepted }),
		chain.WithErrorHandler(c.onError))
	for _, f := range d.interceptors {
		c.Intercepts(f)
	}
	c.chain.Main(c.control)
	c.chain.Finally(c.writeStatus, c.shape, c.respond)
	return c
}

// Controls selects the handler method by name.
func (c *Controller) Controls(method string) *Controller {
	c.method = method
	c.handler, _ = c.def.method(method)
	return c
}

// ControlsFunc uses h as the handler.
func (c *Controller) ControlsFunc(h HandlerFunc) *Controller {
	c.method = "func"
	c.handler = h
	return c
}

// Intercepts adds an interceptor to the setup stage.  The interceptor
// is built when the stage runs.
func (c *Controller) Intercepts(f InterceptorFactory) *Controller {
	c.chain.Before(func(ctx context.Context) error {
		i := f(c)
		if i == nil {
			return nil
		}
		c.interceptors = append(c.interceptors, i)
		return i.Exec(ctx, c)
	})
	return c
}

// Authenticates adds the authentication interceptor.
func (c *Controller) Authenticates() *Controller {
	return c.Intercepts(AuthInterceptor)
}

// Validates adds the validation interceptor.
func (c *Controller) Validates() *Controller {
	return c.Intercepts(ValidationInterceptor)
}

// Serializes adds the serialize stage.  A nil schema uses the
// definition's.
func (c *Controller) Serializes(s *schema.Schema) *Controller {
	if s != nil {
		c.serializer = s
	}
	c.chain.After(c.serialize)
	return c
}

// WithDTOs adds DTOs for the validation protocol.
func (c *Controller) WithDTOs(set dto.Set) *Controller {
	c.dtos = c.dtos.Merge(set)
	return c
}

// AssignErrors adds instance level translations.
func (c *Controller) AssignErrors(dict ErrorDictionary) *Controller {
	c.errors = c.errors.Merge(dict)
	return c
}

// Exec runs the controller.  It returns an error only when the
// payload could not be sent.
func (c *Controller) Exec(ctx context.Context) error {
	if c.executed {
		return errors.New("controller already executed")
	}
	c.executed = true
	if err := c.chain.Run(ctx); err != nil {
		return err
	}
	return c.sendErr
}

func (c *Controller) Definition() *Definition      { return c.def }
func (c *Controller) Request() *Request            { return c.request }
func (c *Controller) Method() string               { return c.method }
func (c *Controller) Status() int                  { return c.status }
func (c *Controller) Meta() map[string]any         { return c.meta }
func (c *Controller) DTOs() dto.Set                { return c.dtos }
func (c *Controller) Interceptors() []*Interceptor { return c.interceptors }

// Intercepted reports whether an interceptor stopped the request, and
// with what message.
func (c *Controller) Intercepted() (bool, string) { return c.intercepted, c.interception }

// Interception is the message of the interceptor that stopped the
// request, if any.
func (c *Controller) Interception() string { return c.interception }

// Result is the handler's result, or the Failure recorded for it.
func (c *Controller) Result() any { return c.controlled }

// Yield is the value placed in the response.  Valid after Exec.
func (c *Controller) Yield() any { return c.yield }

// SetStatus lets a handler choose the response status.
func (c *Controller) SetStatus(status int) { c.status = status }

// Body is the decoded request body as a record, or nil.
func (c *Controller) Body() map[string]any {
	body, _ := c.request.Body.(map[string]any)
	return body
}

// Param is a path variable.
func (c *Controller) Param(name string) string { return c.request.Params[name] }

// fail moves the status to a failure.  A success code there is a
// misconfigured translation and becomes 500.
func (c *Controller) fail(status int) {
	if IsSuccess(status) || status == 0 {
		status = StatusInternalServerError
	}
	c.status = status
}

func (c *Controller) control(ctx context.Context) error {
	if c.handler == nil {
		return errors.Errorf("%s has no method %q", c.def.name, c.method)
	}
	return envelope.CatchPanic(c.log, func() error {
		result, err := c.handler(ctx, c)
		if err != nil {
			return err
		}
		c.controlled = result
		return nil
	})
}

func (c *Controller) serialize(ctx context.Context) error {
	if c.serializer == nil {
		return nil
	}
	c.serializes = true
	out, err := serializer.Serialize(ctx, c.serializer, c.controlled)
	if err != nil {
		c.log.Error("Serialization failed", map[string]interface{}{
			"controller": c.def.name,
			"method":     c.method,
			"error":      err.Error(),
		})
		c.serialized = newFailure(err.Error(), err)
		c.status = StatusInternalServerError
		return nil
	}
	c.serialized = out
	return nil
}

func (c *Controller) writeStatus(context.Context) error {
	if c.response != nil {
		c.response.Status(c.status)
	}
	return nil
}

func (c *Controller) shape(context.Context) error {
	switch {
	case c.intercepted:
		c.yield = c.interception
	case c.serializes:
		c.yield = c.serialized
	default:
		c.yield = c.controlled
	}
	return nil
}

func (c *Controller) respond(context.Context) error {
	if c.response == nil {
		return nil
	}
	return c.response.Send(c.Payload())
}

// Payload is what respond sends: data on success, error otherwise.
func (c *Controller) Payload() Payload {
	p := Payload{
		Status: c.status,
		Meta:   c.meta,
	}
	if IsSuccess(c.status) {
		p.Data = c.yield
		return p
	}
	switch y := c.yield.(type) {
	case Failure:
		p.Error = y.Error
		if !c.production {
			p.Stack = y.Stack
		}
	default:
		p.Error = y
	}
	return p
}

func (c *Controller) onError(ctx context.Context, stage chain.Stage, err error) {
	if stage == chain.Finally {
		c.log.Error("Cannot respond", map[string]interface{}{
			"controller": c.def.name,
			"method":     c.method,
			"error":      err.Error(),
		})
		c.sendErr = multierr.Append(c.sendErr, err)
		return
	}
	c.translate(ctx, err)
}

func (c *Controller) lookupError(name string) (ErrorFactory, bool) {
	if f, ok := c.errors[name]; ok {
		return f, true
	}
	return c.def.lookupError(name)
}

// translate turns err into a failed response.  Known errors set their
// status and message; a chained known error may hand over to the next
// error, which is looked up again.  Unknown errors are internal.
func (c *Controller) translate(ctx context.Context, err error) {
	original := err
	for step := 0; step < MaxTranslations; step++ {
		factory, ok := c.lookupError(ErrorName(err))
		if !ok {
			c.internal(err)
			return
		}
		known := factory(err.Error())
		if chained, ok := known.(*Chained); ok && chained.Next != nil {
			var next error
			nextErr := envelope.CatchPanic(c.log, func() error {
				next = chained.Next(ctx)
				return nil
			})
			if nextErr != nil {
				next = nextErr
			}
			if next != nil {
				err = next
				continue
			}
		}
		c.fail(known.Status())
		c.controlled = newFailure(known.Message(), original)
		return
	}
	c.internal(errors.Wrapf(original, "error translation exceeded %d steps", MaxTranslations))
}

func (c *Controller) internal(err error) {
	c.log.Error("Unhandled controller error", map[string]interface{}{
		"controller": c.def.name,
		"method":     c.method,
		"error":      fmt.Sprintf("%v", err),
	})
	if IsSuccess(c.status) {
		c.status = StatusInternalServerError
	}
	c.controlled = newFailure(err.Error(), err)
}
