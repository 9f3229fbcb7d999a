package elements

import (
	"context"
	"log/slog"

	"github.com/zsiec/framegraph/graph"
)

// PadPrimary and PadSecondary name SplitFilter's two output pads.
var (
	PadPrimary   = graph.CustomPad("primary")
	PadSecondary = graph.CustomPad("secondary")
)

// SplitFilter forwards every buffer it receives to two independent output
// pads, exercising an element with more than one output pad of the same
// buffer type — the case a single OutputDefault pad can't express.
type SplitFilter[T any] struct {
	graph.Element
	log       *slog.Logger
	primary   chan T
	secondary chan T
}

// NewSplitFilter builds a SplitFilter with the given id.
func NewSplitFilter[T any](id string) *SplitFilter[T] {
	return &SplitFilter[T]{
		Element:   graph.NewFilterBase(id),
		log:       slog.With("component", "elements-split", "id", id),
		primary:   make(chan T),
		secondary: make(chan T),
	}
}

// InputPads implements graph.Consumer.
func (f *SplitFilter[T]) InputPads() map[graph.PadRef]graph.InputPad {
	return map[graph.PadRef]graph.InputPad{
		graph.InputDefault: graph.NewTypedInput[T](graph.InputDefault, f.handle),
	}
}

// OutputPads implements graph.Producer.
func (f *SplitFilter[T]) OutputPads() map[graph.PadRef]graph.OutputPad {
	return map[graph.PadRef]graph.OutputPad{
		PadPrimary:   graph.NewTypedOutput[T](PadPrimary, f.primary),
		PadSecondary: graph.NewTypedOutput[T](PadSecondary, f.secondary),
	}
}

// handle fans a single buffer out to both output channels. It sends to
// primary first, then secondary, each gated on the input edge's ctx so
// cancelling that edge unblocks a pending send. Until primary is read,
// secondary receives nothing.
func (f *SplitFilter[T]) handle(ctx context.Context, handle graph.Handle, buf T) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case f.primary <- buf:
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case f.secondary <- buf:
	}
	return nil
}
