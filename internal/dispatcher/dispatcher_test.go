package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testLogger implements Logger for testing
type testLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *testLogger) Debug(msg string, keysAndValues ...any) {
	l.log("DEBUG", msg, keysAndValues)
}

func (l *testLogger) Info(msg string, keysAndValues ...any) {
	l.log("INFO", msg, keysAndValues)
}

func (l *testLogger) Error(msg string, keysAndValues ...any) {
	l.log("ERROR", msg, keysAndValues)
}

func (l *testLogger) log(level, msg string, keysAndValues []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("%s: %s %v", level, msg, keysAndValues))
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *testLogger) {
	t.Helper()
	logger := &testLogger{}
	d, err := New(logger)
	require.NoError(t, err)
	return d, logger
}

func TestDispatcher_Handler(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var got Command
	d.Register("export", func(_ context.Context, c Command) (any, error) {
		got = c
		return "result", nil
	})

	result, err := d.Dispatch(context.Background(), Command{Name: "export", Args: []string{"s1.vcx"}})
	require.NoError(t, err)
	assert.Equal(t, "result", result)
	assert.Equal(t, []string{"s1.vcx"}, got.Args)
	assert.False(t, got.Timestamp.IsZero(), "timestamp is filled in")
}

func TestDispatcher_UnknownCommand(t *testing.T) {
	d, _ := newTestDispatcher(t)

	_, err := d.Dispatch(context.Background(), Command{Name: "frobnicate"})
	assert.ErrorIs(t, err, ErrUnknownCommand)
	assert.Contains(t, err.Error(), "frobnicate")
}

func TestDispatcher_HandlerError(t *testing.T) {
	d, _ := newTestDispatcher(t)
	boom := errors.New("boom")
	d.Register("compare", func(context.Context, Command) (any, error) { return nil, boom })

	_, err := d.Dispatch(context.Background(), Command{Name: "compare"})
	assert.ErrorIs(t, err, boom)
}

func TestDispatcher_PassesContext(t *testing.T) {
	d, _ := newTestDispatcher(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d.Register("batch-export", func(ctx context.Context, _ Command) (any, error) {
		return nil, ctx.Err()
	})

	_, err := d.Dispatch(ctx, Command{Name: "batch-export"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDispatcher_LoggedHandler(t *testing.T) {
	d, logger := newTestDispatcher(t)
	d.Register("render", func(context.Context, Command) (any, error) {
		return "ok", nil
	}, Logged())

	_, err := d.Dispatch(context.Background(), Command{Name: "render", Args: []string{"a", "b"}})
	require.NoError(t, err)

	require.Len(t, logger.messages, 2)
	assert.True(t, strings.HasPrefix(logger.messages[0], "DEBUG: handling command"))
	assert.True(t, strings.HasPrefix(logger.messages[1], "DEBUG: command complete"))
}

func TestDispatcher_LoggedHandlerError(t *testing.T) {
	d, logger := newTestDispatcher(t)
	d.Register("validate", func(context.Context, Command) (any, error) {
		return nil, fmt.Errorf("test error")
	}, Logged())

	_, err := d.Dispatch(context.Background(), Command{Name: "validate"})
	require.Error(t, err)

	require.Len(t, logger.messages, 2)
	assert.True(t, strings.HasPrefix(logger.messages[1], "ERROR: command failed"))
}

func TestDispatcher_HasHandler(t *testing.T) {
	d, _ := newTestDispatcher(t)
	d.Register("list", func(context.Context, Command) (any, error) { return nil, nil })

	assert.True(t, d.HasHandler("list"))
	assert.False(t, d.HasHandler("restore"))
}

func TestDispatcher_Commands(t *testing.T) {
	d, _ := newTestDispatcher(t)
	noop := func(context.Context, Command) (any, error) { return nil, nil }
	d.Register("list", noop, Usage("list archived subjects"))
	d.Register("export", noop, Usage("export <datafile>"), Logged())
	d.Register("archive", noop)

	assert.Equal(t, []Info{
		{Name: "archive"},
		{Name: "export", Usage: "export <datafile>"},
		{Name: "list", Usage: "list archived subjects"},
	}, d.Commands())
}
