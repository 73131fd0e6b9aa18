package tools

import (
	"context"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanjuz-cas/SURF/internal/models"
)

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func newTestDispatcher(t *testing.T, ops ...Operation) (*Dispatcher, *FallbackLog) {
	t.Helper()
	reg := NewRegistry()
	for _, op := range ops {
		require.NoError(t, reg.Register(op))
	}
	fallback, err := NewFallbackLog(filepath.Join(t.TempDir(), "fallback.log"))
	require.NoError(t, err)
	return NewDispatcher(reg, fallback, testLogger()), fallback
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	reg := NewRegistry()
	op := Operation{Name: "echo", Handler: func(ctx context.Context, args map[string]any) (map[string]any, error) {
		return args, nil
	}}
	require.NoError(t, reg.Register(op))
	assert.Error(t, reg.Register(op))
}

func TestRegistryResolveUnknown(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Resolve("summon_demon")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownOperation)
}

func TestDispatcherUnknownOperation(t *testing.T) {
	d, _ := newTestDispatcher(t)
	res := d.Invoke(context.Background(), models.ToolInvocation{Operation: "nope"})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "unknown operation")
	assert.Equal(t, models.MethodPrimary, res.Method)
}

func TestDispatcherInvalidArgumentsSkipsHandler(t *testing.T) {
	executed := false
	d, _ := newTestDispatcher(t, Operation{
		Name:   "score",
		Schema: Schema{Params: []Param{{Name: "score", Type: TypeFloat, Required: true}}},
		Handler: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			executed = true
			return nil, nil
		},
	})
	res := d.Invoke(context.Background(), models.ToolInvocation{
		Operation: "score",
		Arguments: map[string]any{"score": "very high"},
	})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "invalid arguments")
	assert.False(t, executed, "handler must not run on validation failure")
}

func TestDispatcherPrimarySuccess(t *testing.T) {
	d, _ := newTestDispatcher(t, Operation{
		Name:   "echo",
		Schema: Schema{Params: []Param{{Name: "limit", Type: TypeInt, Default: 3}}},
		Handler: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			return map[string]any{"limit": args["limit"]}, nil
		},
	})
	res := d.Invoke(context.Background(), models.ToolInvocation{Operation: "echo"})
	require.True(t, res.Success)
	assert.Equal(t, models.MethodPrimary, res.Method)
	assert.Equal(t, 3, res.Payload["limit"])
}

func TestDispatcherDeliverableTransportFailureFallsBack(t *testing.T) {
	d, fallback := newTestDispatcher(t, Operation{
		Name:        "post_message",
		Deliverable: true,
		Schema:      Schema{Params: []Param{{Name: "message", Type: TypeString, Required: true}}},
		Handler: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			return nil, fmt.Errorf("%w: webhook unreachable", ErrTransport)
		},
	})

	inv := models.ToolInvocation{
		Operation: "post_message",
		Arguments: map[string]any{"message": "priority report"},
	}
	res := d.Invoke(context.Background(), inv)

	require.True(t, res.Success, "delivery failure must degrade, not abort")
	assert.Equal(t, models.MethodLocalFallback, res.Method)
	assert.Equal(t, false, res.Payload["delivered"])
	assert.Equal(t, true, res.Payload["logged_locally"])

	entries, err := fallback.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 1, "exactly one new fallback entry per failed delivery")
	assert.Equal(t, "post_message", entries[0].Operation)
	assert.Equal(t, "priority report", entries[0].Arguments["message"])
	assert.Contains(t, entries[0].Reason, "webhook unreachable")
	assert.False(t, entries[0].Timestamp.IsZero())
}

func TestDispatcherDataTransportFailureIsFatal(t *testing.T) {
	d, fallback := newTestDispatcher(t, Operation{
		Name: "get_all_feedback",
		Handler: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			return nil, fmt.Errorf("%w: database is locked", ErrTransport)
		},
	})
	res := d.Invoke(context.Background(), models.ToolInvocation{Operation: "get_all_feedback"})
	assert.False(t, res.Success, "a data read cannot be faked locally")
	assert.Contains(t, res.Error, "transport error")

	entries, err := fallback.Entries()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDispatcherHandlerErrorIsFatal(t *testing.T) {
	d, _ := newTestDispatcher(t, Operation{
		Name: "boom",
		Handler: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			return nil, fmt.Errorf("row vanished")
		},
	})
	res := d.Invoke(context.Background(), models.ToolInvocation{Operation: "boom"})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "handler error")
	assert.Contains(t, res.Error, "row vanished")
}

func TestFallbackLogRoundTrip(t *testing.T) {
	fallback, err := NewFallbackLog(filepath.Join(t.TempDir(), "fallback.log"))
	require.NoError(t, err)

	// empty log reads back empty
	entries, err := fallback.Entries()
	require.NoError(t, err)
	assert.Empty(t, entries)

	for i := 0; i < 3; i++ {
		require.NoError(t, fallback.Append(FallbackEntry{
			Operation: "post_message",
			Arguments: map[string]any{"n": float64(i)},
			Reason:    "no webhook configured",
		}))
	}

	entries, err = fallback.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 3)
	for i, e := range entries {
		assert.Equal(t, float64(i), e.Arguments["n"], "entries read back oldest first")
	}

	// reading is idempotent
	again, err := fallback.Entries()
	require.NoError(t, err)
	assert.Equal(t, entries, again)
}
