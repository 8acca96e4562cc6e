package tracing

import (
	"context"
	"fmt"
	"testing"

	logic "github.com/goliatone/go-logic"
	"github.com/goliatone/go-logic/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func setup(t *testing.T, logics ...*logic.Logic) (*store.Store[int], *Bridge, *tracetest.SpanRecorder) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	e, err := logic.New(logics)
	require.NoError(t, err)
	t.Cleanup(e.Close)

	bridge := New(e.Monitor(), WithTracerProvider(tp))
	t.Cleanup(bridge.Close)

	s, err := store.New(func(n int, _ *logic.Action) int { return n + 1 }, 0, e.Middleware())
	require.NoError(t, err)
	return s, bridge, recorder
}

func eventNames(span sdktrace.ReadOnlySpan) []string {
	var names []string
	for _, evt := range span.Events() {
		names = append(names, evt.Name)
	}
	return names
}

func hasAttr(attrs []attribute.KeyValue, want attribute.KeyValue) bool {
	for _, kv := range attrs {
		if kv.Key == want.Key && kv.Value == want.Value {
			return true
		}
	}
	return false
}

func TestBridgeSpanPerLifecycle(t *testing.T) {
	s, bridge, recorder := setup(t, &logic.Logic{
		Name: "worker",
		Type: logic.Type("FOO"),
		Process: func(deps *logic.Deps, dispatch logic.DispatchFunc, done func()) (any, error) {
			dispatch(logic.NewAction("BAR"))
			return nil, nil
		},
	})

	require.NoError(t, s.Dispatch(logic.NewAction("FOO")))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, "logic worker", span.Name())
	assert.Equal(t, codes.Ok, span.Status().Code)
	assert.Equal(t, []string{"next", "dispatch", "end"}, eventNames(span))
	assert.True(t, hasAttr(span.Attributes(), AttrName.String("worker")))
	assert.True(t, hasAttr(span.Attributes(), AttrAction.String("FOO")))
	assert.True(t, hasAttr(span.Events()[1].Attributes, AttrDispAction.String("BAR")))
	assert.Equal(t, 0, bridge.Open())
}

func TestBridgeMarksInterceptFailure(t *testing.T) {
	s, _, recorder := setup(t, &logic.Logic{
		Name: "guard",
		Type: logic.Type("FOO"),
		Validate: func(*logic.Deps, logic.Decision, logic.Decision) error {
			return fmt.Errorf("no access")
		},
	})

	require.NoError(t, s.Dispatch(logic.NewAction("FOO")))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "no access", spans[0].Status().Description)
	assert.Equal(t, []string{"dispatchError", "dispatch", "end"}, eventNames(spans[0]))
}

func TestBridgeRecordsCancellation(t *testing.T) {
	s, bridge, recorder := setup(t, &logic.Logic{
		Name:       "poller",
		Type:       logic.Type("POLL"),
		CancelType: logic.Type("STOP"),
		Process: func(*logic.Deps, logic.DispatchFunc, func()) (any, error) {
			return nil, nil
		},
	})

	require.NoError(t, s.Dispatch(logic.NewAction("POLL")))
	assert.Equal(t, 1, bridge.Open())
	assert.Empty(t, recorder.Ended())

	require.NoError(t, s.Dispatch(logic.NewAction("STOP")))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.True(t, hasAttr(spans[0].Attributes(), AttrCancelled.Bool(true)))
	assert.Equal(t, []string{"next", "dispFuture", "dispCancelled", "end"}, eventNames(spans[0]))
	assert.Equal(t, 0, bridge.Open())
}

func TestBridgeCloseEndsOpenSpans(t *testing.T) {
	s, bridge, recorder := setup(t, &logic.Logic{
		Name: "forever",
		Type: logic.Type("FOO"),
		Process: func(*logic.Deps, logic.DispatchFunc, func()) (any, error) {
			return nil, nil
		},
	})

	require.NoError(t, s.Dispatch(logic.NewAction("FOO")))
	bridge.Close()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.True(t, hasAttr(spans[0].Attributes(), AttrAbandoned.Bool(true)))
	assert.Equal(t, 0, bridge.Open())

	require.NoError(t, s.Dispatch(logic.NewAction("FOO")))
	assert.Len(t, recorder.Ended(), 1)
}
