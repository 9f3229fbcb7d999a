package graph

import (
	"context"
	"sync"
)

// chanSource is a minimal Producer for tests: it wraps a manually-fed
// channel of ints as its sole output pad.
type chanSource struct {
	Element
	ch chan int
}

func newChanSource(id string) *chanSource {
	return &chanSource{Element: NewSourceBase(id), ch: make(chan int, 16)}
}

func (s *chanSource) OutputPads() map[PadRef]OutputPad {
	return map[PadRef]OutputPad{OutputDefault: NewTypedOutput[int](OutputDefault, s.ch)}
}

// collectSink is a minimal Consumer for tests: it appends every delivered
// int to an internal slice, safe for concurrent Handle calls.
type collectSink struct {
	Element
	mu    sync.Mutex
	items []int
}

func newCollectSink(id string) *collectSink {
	return &collectSink{Element: NewSinkBase(id)}
}

func (s *collectSink) InputPads() map[PadRef]InputPad {
	return map[PadRef]InputPad{
		InputDefault: NewTypedInput[int](InputDefault, func(ctx context.Context, handle Handle, buf int) error {
			s.mu.Lock()
			s.items = append(s.items, buf)
			s.mu.Unlock()
			return nil
		}),
	}
}

func (s *collectSink) Items() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int, len(s.items))
	copy(out, s.items)
	return out
}

// passFilter is a minimal Producer+Consumer for tests: it forwards every
// buffer it receives to its own output pad, doubling it.
type passFilter struct {
	Element
	out chan int
}

func newPassFilter(id string) *passFilter {
	return &passFilter{Element: NewFilterBase(id), out: make(chan int, 16)}
}

func (f *passFilter) OutputPads() map[PadRef]OutputPad {
	return map[PadRef]OutputPad{OutputDefault: NewTypedOutput[int](OutputDefault, f.out)}
}

func (f *passFilter) InputPads() map[PadRef]InputPad {
	return map[PadRef]InputPad{
		InputDefault: NewTypedInput[int](InputDefault, func(ctx context.Context, handle Handle, buf int) error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case f.out <- buf * 2:
				return nil
			}
		}),
	}
}

// stringSink exposes an input pad typed string, for BufferType-mismatch tests.
type stringSink struct {
	Element
}

func newStringSink(id string) *stringSink {
	return &stringSink{Element: NewSinkBase(id)}
}

func (s *stringSink) InputPads() map[PadRef]InputPad {
	return map[PadRef]InputPad{
		InputDefault: NewTypedInput[string](InputDefault, func(ctx context.Context, handle Handle, buf string) error {
			return nil
		}),
	}
}
