package report

import (
	"context"
	"fmt"

	"github.com/loykin/minesim/internal/mining"
)

// Sink is a destination for loop events (terminal, log file, display,
// metrics). Implementations must be safe for concurrent use.
type Sink interface {
	Send(ctx context.Context, e mining.Event) error
}

// Named sinks report a label used in error messages.
type Named interface {
	Name() string
}

type multi []Sink

// Multi fans an event out to every sink in order. Delivery stops at the
// first failure, whose error names the sink.
func Multi(sinks ...Sink) Sink {
	out := make(multi, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (m multi) Send(ctx context.Context, e mining.Event) error {
	for i, s := range m {
		if err := s.Send(ctx, e); err != nil {
			return fmt.Errorf("sink %s: %w", sinkName(s, i), err)
		}
	}
	return nil
}

func sinkName(s Sink, i int) string {
	if n, ok := s.(Named); ok {
		return n.Name()
	}
	return fmt.Sprintf("#%d", i)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, e mining.Event) error

func (f SinkFunc) Send(ctx context.Context, e mining.Event) error { return f(ctx, e) }
