package logos

import (
	"context"
	"fmt"
	"reflect"

	"github.com/muir/reflectutils"
	"github.com/pkg/errors"
)

// Namer is implemented by errors that carry a name for error
// dictionaries.
type Namer interface {
	ErrorName() string
}

// NamedError is an error with an explicit dictionary name.
type NamedError struct {
	Name    string
	Message string
}

func (err *NamedError) Error() string     { return err.Message }
func (err *NamedError) ErrorName() string { return err.Name }

// NewError returns a named error with a stack trace attached.
func NewError(name, message string) error {
	return errors.WithStack(&NamedError{Name: name, Message: message})
}

// Errorf is NewError with formatting.
func Errorf(name, format string, args ...interface{}) error {
	return NewError(name, fmt.Sprintf(format, args...))
}

// ErrorName finds the name an error dictionary looks up: the
// ErrorName() of the first error in the chain that has one, otherwise
// the type name of the root cause.
func ErrorName(err error) string {
	if err == nil {
		return ""
	}
	var named Namer
	if errors.As(err, &named) {
		return named.ErrorName()
	}
	return reflectutils.TypeName(reflect.TypeOf(errors.Cause(err)))
}

// Recoverable is a known error: one that an error dictionary has
// translated into a status and a message.  It is either Terminal or
// Chained.
type Recoverable interface {
	error
	Status() int
	Message() string
	isRecoverable()
}

// Terminal is a known error that ends translation.
type Terminal struct {
	Code int
	Text string
}

var _ Recoverable = &Terminal{}

func (t *Terminal) Error() string   { return t.Text }
func (t *Terminal) Status() int     { return t.Code }
func (t *Terminal) Message() string { return t.Text }
func (t *Terminal) isRecoverable()  {}

// Chained is a known error that may stand for another error.  Next
// returns the error this one really means, or nil to stop here and use
// Code and Text.
type Chained struct {
	Code int
	Text string
	Next func(ctx context.Context) error
}

var _ Recoverable = &Chained{}

func (c *Chained) Error() string   { return c.Text }
func (c *Chained) Status() int     { return c.Code }
func (c *Chained) Message() string { return c.Text }
func (c *Chained) isRecoverable()  {}

// ErrorFactory builds the known error for a dictionary entry.  It
// receives the message of the error being translated.
type ErrorFactory func(message string) Recoverable

// Known maps an error to a fixed status.  An empty message keeps the
// original error's message.
func Known(status int, message string) ErrorFactory {
	return func(original string) Recoverable {
		text := message
		if text == "" {
			text = original
		}
		return &Terminal{Code: status, Text: text}
	}
}

// Translates maps an error to status and message unless next reports
// a further error, which is then looked up in turn.
func Translates(status int, message string, next func(ctx context.Context, original string) error) ErrorFactory {
	return func(original string) Recoverable {
		text := message
		if text == "" {
			text = original
		}
		c := &Chained{Code: status, Text: text}
		if next != nil {
			c.Next = func(ctx context.Context) error { return next(ctx, original) }
		}
		return c
	}
}

// ErrorDictionary maps error names to known errors.
type ErrorDictionary map[string]ErrorFactory

// Merge returns a new dictionary with the entries of d and then
// others; later entries win.
func (d ErrorDictionary) Merge(others ...ErrorDictionary) ErrorDictionary {
	merged := make(ErrorDictionary, len(d))
	for k, v := range d {
		merged[k] = v
	}
	for _, o := range others {
		for k, v := range o {
			merged[k] = v
		}
	}
	return merged
}

// Failure is the result recorded when a stage fails.
type Failure struct {
	Success bool   `json:"success" yaml:"success"`
	Error   string `json:"error" yaml:"error"`
	Stack   string `json:"stack,omitempty" yaml:"stack,omitempty"`
}

func newFailure(message string, cause error) Failure {
	return Failure{
		Error: message,
		Stack: stackOf(cause),
	}
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// stackOf renders err with its stack trace when one was recorded.
func stackOf(err error) string {
	if err == nil {
		return ""
	}
	var st stackTracer
	if errors.As(err, &st) {
		return fmt.Sprintf("%+v", err)
	}
	return fmt.Sprintf("%+v", errors.WithStack(err))
}
