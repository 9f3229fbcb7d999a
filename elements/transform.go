package elements

import (
	"context"
	"log/slog"

	"github.com/zsiec/framegraph/graph"
)

// MapFilter applies fn to every buffer it receives and forwards the result
// on its single output pad. Its input pad blocks (providing backpressure)
// until the forwarding send completes or the edge is cancelled.
type MapFilter[I, O any] struct {
	graph.Element
	log *slog.Logger
	fn  func(I) O
	out chan O
}

// NewMapFilter builds a MapFilter with the given id and mapping function.
func NewMapFilter[I, O any](id string, fn func(I) O) *MapFilter[I, O] {
	return &MapFilter[I, O]{
		Element: graph.NewFilterBase(id),
		log:     slog.With("component", "elements-mapfilter", "id", id),
		fn:      fn,
		out:     make(chan O),
	}
}

// InputPads implements graph.Consumer.
func (f *MapFilter[I, O]) InputPads() map[graph.PadRef]graph.InputPad {
	return map[graph.PadRef]graph.InputPad{
		graph.InputDefault: graph.NewTypedInput[I](graph.InputDefault, f.handle),
	}
}

// OutputPads implements graph.Producer.
func (f *MapFilter[I, O]) OutputPads() map[graph.PadRef]graph.OutputPad {
	return map[graph.PadRef]graph.OutputPad{
		graph.OutputDefault: graph.NewTypedOutput[O](graph.OutputDefault, f.out),
	}
}

func (f *MapFilter[I, O]) handle(ctx context.Context, handle graph.Handle, buf I) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case f.out <- f.fn(buf):
		return nil
	}
}
