// Package tracing turns the logic monitor stream into OpenTelemetry spans,
// one span per lifecycle.
package tracing

import (
	"context"
	"sync"

	logic "github.com/goliatone/go-logic"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// tracerName is the OpenTelemetry instrumentation scope name for this package.
const tracerName = "github.com/goliatone/go-logic/tracing"

const (
	AttrName          = attribute.Key("logic.name")
	AttrAction        = attribute.Key("logic.action")
	AttrNextAction    = attribute.Key("logic.next_action")
	AttrDispAction    = attribute.Key("logic.disp_action")
	AttrShouldProcess = attribute.Key("logic.should_process")
	AttrReason        = attribute.Key("logic.reason")
	AttrError         = attribute.Key("logic.error")
	AttrCancelled     = attribute.Key("logic.cancelled")
	AttrAbandoned     = attribute.Key("logic.abandoned")
)

type spanKey struct {
	action *logic.Action
	name   string
}

type openSpan struct {
	span   trace.Span
	failed bool
}

// Bridge records lifecycle spans for every event published on a stream.
type Bridge struct {
	tracer trace.Tracer

	mu    sync.Mutex
	spans map[spanKey]*openSpan
	sub   logic.Subscription
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithTracerProvider uses tp instead of the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(b *Bridge) {
		if tp != nil {
			b.tracer = tp.Tracer(tracerName)
		}
	}
}

// New subscribes a bridge to stream.
func New(stream logic.Stream, opts ...Option) *Bridge {
	b := &Bridge{
		tracer: otel.Tracer(tracerName),
		spans:  make(map[spanKey]*openSpan),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	if stream != nil {
		b.sub = stream.Subscribe(b.observe)
	}
	return b
}

// Open returns the number of lifecycles with a span still open.
func (b *Bridge) Open() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.spans)
}

// Close detaches the bridge and ends any span still open.
func (b *Bridge) Close() {
	if b.sub != nil {
		b.sub.Unsubscribe()
	}
	b.mu.Lock()
	spans := b.spans
	b.spans = make(map[spanKey]*openSpan)
	b.mu.Unlock()

	for _, s := range spans {
		s.span.SetAttributes(AttrAbandoned.Bool(true))
		s.span.End()
	}
}

func (b *Bridge) observe(evt logic.Event) {
	switch evt.Op {
	case logic.OpTop, logic.OpBottom:
		return
	case logic.OpBegin:
		b.begin(evt)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	targets := b.targets(evt)
	for _, s := range targets {
		s.span.AddEvent(string(evt.Op), trace.WithAttributes(eventAttributes(evt)...))
		switch evt.Op {
		case logic.OpDispatchError, logic.OpNextError:
			s.failed = true
			s.span.SetStatus(codes.Error, evt.Err)
		case logic.OpCancelled, logic.OpDispCancelled:
			s.span.SetAttributes(AttrCancelled.Bool(true))
		}
	}

	if evt.Op != logic.OpEnd {
		return
	}
	key := spanKey{action: evt.Action, name: evt.Name}
	if s, ok := b.spans[key]; ok {
		if !s.failed {
			s.span.SetStatus(codes.Ok, "")
		}
		s.span.End()
		delete(b.spans, key)
	}
}

func (b *Bridge) begin(evt logic.Event) {
	_, span := b.tracer.Start(context.Background(), "logic "+evt.Name,
		trace.WithSpanKind(trace.SpanKindInternal),
	)
	span.SetAttributes(
		AttrName.String(evt.Name),
		AttrAction.String(actionType(evt.Action)),
	)

	b.mu.Lock()
	defer b.mu.Unlock()
	key := spanKey{action: evt.Action, name: evt.Name}
	if prev, ok := b.spans[key]; ok {
		prev.span.SetAttributes(AttrAbandoned.Bool(true))
		prev.span.End()
	}
	b.spans[key] = &openSpan{span: span}
}

// targets finds the spans an event belongs to. Dispatch events carry no
// logic name, so they go to every open span for the action.
func (b *Bridge) targets(evt logic.Event) []*openSpan {
	if evt.Name != "" {
		if s, ok := b.spans[spanKey{action: evt.Action, name: evt.Name}]; ok {
			return []*openSpan{s}
		}
		return nil
	}
	var out []*openSpan
	for key, s := range b.spans {
		if key.action == evt.Action {
			out = append(out, s)
		}
	}
	return out
}

func eventAttributes(evt logic.Event) []attribute.KeyValue {
	var attrs []attribute.KeyValue
	if evt.NextAction != nil {
		attrs = append(attrs, AttrNextAction.String(evt.NextAction.Type))
	}
	if evt.DispAction != nil {
		attrs = append(attrs, AttrDispAction.String(evt.DispAction.Type))
	}
	if evt.ShouldProcess != nil {
		attrs = append(attrs, AttrShouldProcess.Bool(*evt.ShouldProcess))
	}
	if evt.Reason != "" {
		attrs = append(attrs, AttrReason.String(evt.Reason))
	}
	if evt.Err != "" {
		attrs = append(attrs, AttrError.String(evt.Err))
	}
	return attrs
}

func actionType(act *logic.Action) string {
	if act == nil {
		return ""
	}
	return act.Type
}
