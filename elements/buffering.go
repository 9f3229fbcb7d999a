package elements

import (
	"context"
	"log/slog"
	"sync"

	"github.com/zsiec/framegraph/graph"
)

// DefaultBufferDepth is the queue depth used by NewBufferingSink callers
// that don't need a different value, mirroring the fixed per-stream buffer
// sizes a capture pipeline picks for its frame queues.
const DefaultBufferDepth = 60

// BufferingSink decouples pad delivery from processing time by queueing
// buffers internally instead of running process on the edge worker's
// goroutine. Handle only blocks once the queue is full, so a slow process
// function applies backpressure gradually rather than immediately.
type BufferingSink[T any] struct {
	graph.Element
	log     *slog.Logger
	queue   chan T
	process func(T)

	closeOnce sync.Once
	done      chan struct{}
}

// NewBufferingSink builds a BufferingSink with the given id, queue depth,
// and per-buffer processing function. process runs on a single dedicated
// goroutine, so it does not need to be safe for concurrent use.
func NewBufferingSink[T any](id string, depth int, process func(T)) *BufferingSink[T] {
	s := &BufferingSink[T]{
		Element: graph.NewSinkBase(id),
		log:     slog.With("component", "elements-buffering-sink", "id", id),
		queue:   make(chan T, depth),
		process: process,
		done:    make(chan struct{}),
	}
	go s.drain()
	return s
}

// InputPads implements graph.Consumer.
func (s *BufferingSink[T]) InputPads() map[graph.PadRef]graph.InputPad {
	return map[graph.PadRef]graph.InputPad{
		graph.InputDefault: graph.NewTypedInput[T](graph.InputDefault, s.handle),
	}
}

func (s *BufferingSink[T]) handle(ctx context.Context, handle graph.Handle, buf T) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case s.queue <- buf:
		return nil
	}
}

func (s *BufferingSink[T]) drain() {
	defer close(s.done)
	for buf := range s.queue {
		s.process(buf)
	}
}

// Close stops accepting new buffers and waits for the queue to drain. It is
// safe to call more than once. Callers should invoke it after the owning
// pipeline is stopped, since the graph runtime has no lifecycle hook for
// sinks (only Cancelable producers get one).
func (s *BufferingSink[T]) Close() {
	s.closeOnce.Do(func() { close(s.queue) })
	<-s.done
}
