package elements

import (
	"context"
	"sync"

	"github.com/zsiec/framegraph/graph"
)

// CollectorSink records every buffer it receives, guarded by a mutex, so
// tests can assert on what a pipeline actually delivered without racing the
// edge worker goroutine.
type CollectorSink[T any] struct {
	graph.Element

	mu    sync.Mutex
	items []T
}

// NewCollectorSink builds a CollectorSink with the given id.
func NewCollectorSink[T any](id string) *CollectorSink[T] {
	return &CollectorSink[T]{Element: graph.NewSinkBase(id)}
}

// InputPads implements graph.Consumer.
func (c *CollectorSink[T]) InputPads() map[graph.PadRef]graph.InputPad {
	return map[graph.PadRef]graph.InputPad{
		graph.InputDefault: graph.NewTypedInput[T](graph.InputDefault, c.handle),
	}
}

func (c *CollectorSink[T]) handle(ctx context.Context, handle graph.Handle, buf T) error {
	c.mu.Lock()
	c.items = append(c.items, buf)
	c.mu.Unlock()
	return nil
}

// Items returns a snapshot of everything collected so far.
func (c *CollectorSink[T]) Items() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

// Count returns how many buffers have been collected so far.
func (c *CollectorSink[T]) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
