package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// spanPrinter writes a one-line summary of every ended span.
type spanPrinter struct {
	mu  sync.Mutex
	out io.Writer
}

func newSpanProvider(out io.Writer) *sdktrace.TracerProvider {
	return sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(&spanPrinter{out: out}))
}

func (p *spanPrinter) OnStart(context.Context, sdktrace.ReadWriteSpan) {}

func (p *spanPrinter) OnEnd(s sdktrace.ReadOnlySpan) {
	events := make([]string, 0, len(s.Events()))
	for _, evt := range s.Events() {
		events = append(events, evt.Name)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, "span %q status=%s events=%s\n",
		s.Name(), s.Status().Code, strings.Join(events, ","))
}

func (p *spanPrinter) Shutdown(context.Context) error   { return nil }
func (p *spanPrinter) ForceFlush(context.Context) error { return nil }
