package report

import (
	"context"
	"io"
	"sync"

	"github.com/loykin/minesim/internal/mining"
)

type flusher interface {
	Flush() error
}

// LineSink writes each event line to w followed by a newline. Buffered
// writers exposing Flush are flushed after every line.
type LineSink struct {
	mu   sync.Mutex
	w    io.Writer
	name string
}

// NewLineSink creates a line-oriented sink. name labels it in errors.
func NewLineSink(name string, w io.Writer) *LineSink {
	return &LineSink{w: w, name: name}
}

func (s *LineSink) Name() string { return s.name }

func (s *LineSink) Send(_ context.Context, e mining.Event) error {
	if e.Line == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := io.WriteString(s.w, e.Line+"\n"); err != nil {
		return err
	}
	if f, ok := s.w.(flusher); ok {
		return f.Flush()
	}
	return nil
}
