package chain_test

import (
	"context"
	"testing"

	"github.com/IntellionInc/logos/chain"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func record(calls *[]string, name string) chain.Hook {
	return func(context.Context) error {
		*calls = append(*calls, name)
		return nil
	}
}

func failing(calls *[]string, name string) chain.Hook {
	return func(context.Context) error {
		*calls = append(*calls, name)
		return errors.New(name)
	}
}

func TestOrder(t *testing.T) {
	t.Parallel()
	var calls []string
	c := chain.New("order")
	c.Finally(record(&calls, "finally1"))
	c.After(record(&calls, "after"))
	c.Main(record(&calls, "replaced"))
	c.Main(record(&calls, "main"))
	c.Before(record(&calls, "before1"), record(&calls, "before2"))
	c.Initially(record(&calls, "initially"))
	c.Finally(record(&calls, "finally2"))
	require.NoError(t, c.Run(context.Background()))
	assert.Equal(t, []string{"initially", "before1", "before2", "main", "after", "finally1", "finally2"}, calls)
	assert.Equal(t, 1, c.Len(chain.Main))
	assert.Equal(t, 2, c.Len(chain.Before))
	assert.False(t, c.Halted())
}

func TestInterception(t *testing.T) {
	t.Parallel()
	var calls []string
	stop := false
	c := chain.New("intercepted", chain.WithInterception(func() bool { return stop }))
	c.Before(
		record(&calls, "before1"),
		func(context.Context) error {
			calls = append(calls, "interceptor")
			stop = true
			return nil
		},
		record(&calls, "before3"),
	)
	c.Main(record(&calls, "main"))
	c.After(record(&calls, "after"))
	c.Finally(record(&calls, "finally"))
	require.NoError(t, c.Run(context.Background()))
	assert.Equal(t, []string{"before1", "interceptor", "finally"}, calls)
	assert.True(t, c.Halted())
}

func TestErrorJumpsToFinally(t *testing.T) {
	t.Parallel()
	var calls []string
	var handled []string
	c := chain.New("errors", chain.WithErrorHandler(func(_ context.Context, stage chain.Stage, err error) {
		handled = append(handled, stage.String()+":"+err.Error())
	}))
	c.Before(record(&calls, "before"))
	c.Main(failing(&calls, "main"))
	c.After(record(&calls, "after"))
	c.Finally(failing(&calls, "finally1"), failing(&calls, "finally2"))
	assert.NoError(t, c.Run(context.Background()), "the handler owns the errors")
	assert.Equal(t, []string{"before", "main", "finally1", "finally2"}, calls)
	assert.Equal(t, []string{"main:main", "finally:finally1", "finally:finally2"}, handled)
}

func TestErrorInBefore(t *testing.T) {
	t.Parallel()
	var calls []string
	c := chain.New("before")
	c.Initially(record(&calls, "initially"))
	c.Before(failing(&calls, "before1"), record(&calls, "before2"))
	c.Main(record(&calls, "main"))
	c.Finally(record(&calls, "finally"))
	err := c.Run(context.Background())
	assert.EqualError(t, err, "before1")
	assert.Equal(t, []string{"initially", "before1", "finally"}, calls)
}

func TestCombinedErrorsWithoutHandler(t *testing.T) {
	t.Parallel()
	var calls []string
	c := chain.New("combined")
	c.Main(failing(&calls, "main"))
	c.Finally(failing(&calls, "finally"))
	err := c.Run(context.Background())
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 2)

	first := chain.New("first", chain.WithErrorCombiner(func(a, _ error) error { return a }))
	first.Main(failing(&calls, "one"))
	first.Finally(failing(&calls, "two"))
	assert.EqualError(t, first.Run(context.Background()), "one")
}

func TestPanicBecomesError(t *testing.T) {
	t.Parallel()
	var calls []string
	c := chain.New("panics")
	c.Main(func(context.Context) error { panic("oops") })
	c.After(record(&calls, "after"))
	c.Finally(record(&calls, "finally"))
	err := c.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oops")
	assert.Equal(t, []string{"finally"}, calls)
}

func TestStageString(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "initially", chain.Initially.String())
	assert.Equal(t, "finally", chain.Finally.String())
	assert.Equal(t, "stage(9)", chain.Stage(9).String())
}
