package envelope_test

import (
	"fmt"
	"testing"

	"github.com/IntellionInc/logos/envelope"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrors(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 304, envelope.GetReturnCode(envelope.ReturnCode(fmt.Errorf("x"), 304)), "unwrapped")
	assert.Equal(t, 303, envelope.GetReturnCode(errors.Wrap(envelope.ReturnCode(fmt.Errorf("x"), 303), "o")), "wrapped")
	assert.Equal(t, 302, envelope.GetReturnCode(fmt.Errorf("std: %w", envelope.ReturnCode(fmt.Errorf("x"), 302))), "std wrapped")
	assert.Equal(t, 400, envelope.GetReturnCode(envelope.BadRequest(fmt.Errorf("x"))), "bad")
	assert.Equal(t, 401, envelope.GetReturnCode(envelope.Unauthorized(fmt.Errorf("x"))), "unauth")
	assert.Equal(t, 403, envelope.GetReturnCode(envelope.Forbidden(fmt.Errorf("x"))), "forbid")
	assert.Equal(t, 404, envelope.GetReturnCode(envelope.NotFound(fmt.Errorf("x"))), "not found")
	assert.Equal(t, 422, envelope.GetReturnCode(envelope.UnprocessableEntity(fmt.Errorf("x"))), "unprocessable")
	assert.Equal(t, 404, envelope.GetReturnCode(envelope.NotFound(envelope.BadRequest(fmt.Errorf("x")))), "outermost wins")
	assert.Equal(t, 500, envelope.GetReturnCode(fmt.Errorf("x")), "plain")
	assert.Nil(t, envelope.ReturnCode(nil, 400))
	assert.EqualError(t, envelope.NotFound(fmt.Errorf("gone")), "gone")
}

func TestCatchPanic(t *testing.T) {
	t.Parallel()
	err := envelope.CatchPanic(envelope.NoLogger(), func() error {
		panic("oops")
	})
	assert.EqualError(t, err, "panic: oops")
	pe, ok := envelope.AsPanic(err)
	if assert.True(t, ok) {
		assert.Equal(t, "oops", pe.Value)
		assert.Contains(t, pe.Stack, "runtime/debug.Stack")
		assert.Equal(t, "PanicError", pe.ErrorName())
	}

	sentinel := fmt.Errorf("sentinel")
	err = envelope.CatchPanic(envelope.NoLogger(), func() error { panic(sentinel) })
	assert.ErrorIs(t, err, sentinel, "an error panic value stays reachable")

	err = envelope.CatchPanic(envelope.NoLogger(), func() error { return fmt.Errorf("plain") })
	assert.EqualError(t, err, "plain")
	_, ok = envelope.AsPanic(err)
	assert.False(t, ok)
	assert.NoError(t, envelope.CatchPanic(envelope.NoLogger(), func() error { return nil }))
}

type captureLogger struct {
	lines []interface{}
}

func (c *captureLogger) Print(v ...interface{}) { c.lines = append(c.lines, fmt.Sprint(v...)) }

func TestLoggerFromStd(t *testing.T) {
	t.Parallel()
	std := &captureLogger{}
	log := envelope.LoggerFromStd(std, false)
	log.Error("failed", map[string]interface{}{"b": 2, "a": 1})
	log.Warn("careful")
	log.Debug("hidden")
	assert.Equal(t, []interface{}{"ERROR failed a=1 b=2", "WARN careful"}, std.lines)

	envelope.LoggerFromStd(std, true).Debug("shown")
	assert.Equal(t, "DEBUG shown", std.lines[2])
}
