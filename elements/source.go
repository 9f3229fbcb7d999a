package elements

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/zsiec/framegraph/graph"
)

// TestSource emits values produced by gen at a fixed interval until either
// limit values have been emitted (limit <= 0 means unbounded) or its edge is
// cancelled. It exists for tests and examples that need a deterministic,
// self-contained Producer.
type TestSource[T any] struct {
	graph.Element
	log      *slog.Logger
	interval time.Duration
	limit    int
	gen      func(seq int) T

	once   sync.Once
	ch     chan T
	ctx    context.Context
	cancel context.CancelFunc
}

// NewTestSource builds a TestSource with the given id, tick interval,
// optional emission limit (0 for unbounded), and generator function.
func NewTestSource[T any](id string, interval time.Duration, limit int, gen func(seq int) T) *TestSource[T] {
	ctx, cancel := context.WithCancel(context.Background())
	return &TestSource[T]{
		Element:  graph.NewSourceBase(id),
		log:      slog.With("component", "elements-source", "id", id),
		interval: interval,
		limit:    limit,
		gen:      gen,
		ch:       make(chan T),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// OutputPads implements graph.Producer. The generator goroutine is started
// lazily, once, on the first call.
func (s *TestSource[T]) OutputPads() map[graph.PadRef]graph.OutputPad {
	s.once.Do(func() { go s.run() })
	return map[graph.PadRef]graph.OutputPad{
		graph.OutputDefault: graph.NewTypedOutput[T](graph.OutputDefault, s.ch),
	}
}

func (s *TestSource[T]) run() {
	defer close(s.ch)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	seq := 0
	for {
		if s.limit > 0 && seq >= s.limit {
			s.log.Debug("emission limit reached", "count", seq)
			return
		}
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
		}
		select {
		case <-s.ctx.Done():
			return
		case s.ch <- s.gen(seq):
			seq++
		}
	}
}

// OnCancel implements graph.Cancelable: it stops the generator goroutine
// even though the pipeline no longer has any edge reading from it.
func (s *TestSource[T]) OnCancel(ctx context.Context, edge graph.EdgeID) {
	s.log.Debug("edge cancelled, stopping generator", "edge", edge.String())
	s.cancel()
}
